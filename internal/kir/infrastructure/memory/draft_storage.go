package memory

import (
	"context"
	"slices"
	"sync"
)

// DraftStorage is a process-local domain.DraftStorage. Drafts are lost on restart;
// use the Redis backend when they must survive one.
type DraftStorage struct {
	mu     sync.RWMutex
	drafts map[string][]byte
}

// NewDraftStorage creates an empty store.
func NewDraftStorage() *DraftStorage {
	return &DraftStorage{drafts: make(map[string][]byte)}
}

func (s *DraftStorage) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.drafts[key]
	return slices.Clone(data), ok, nil
}

func (s *DraftStorage) Set(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[key] = slices.Clone(data)
	return nil
}

func (s *DraftStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, key)
	return nil
}
