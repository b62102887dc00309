package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"kir/internal/kir/domain"
)

// DraftStorage is a Redis-backed domain.DraftStorage shared by every instance.
// Each write refreshes the TTL, so a draft expires ttl after its last edit.
type DraftStorage struct {
	client *redis.Client
	ttl    time.Duration
}

// DraftStorageOption configures a DraftStorage.
type DraftStorageOption func(*DraftStorage)

// WithTTL sets the draft expiry. Zero keeps drafts forever.
func WithTTL(ttl time.Duration) DraftStorageOption {
	return func(s *DraftStorage) {
		s.ttl = ttl
	}
}

// NewDraftStorage wraps client. The client lifecycle is managed by the caller.
func NewDraftStorage(client *redis.Client, opts ...DraftStorageOption) *DraftStorage {
	s := &DraftStorage{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *DraftStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get draft: %v: %w", err, domain.ErrUnavailable)
	}
	return data, true, nil
}

func (s *DraftStorage) Set(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set draft: %v: %w", err, domain.ErrUnavailable)
	}
	return nil
}

func (s *DraftStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete draft: %v: %w", err, domain.ErrUnavailable)
	}
	return nil
}

// Verify interface implementation.
var _ domain.DraftStorage = (*DraftStorage)(nil)
