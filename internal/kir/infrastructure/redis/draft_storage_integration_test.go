//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kir/internal/kir/infrastructure/redis"
	"kir/internal/testutil/containers"
)

type DraftStorageSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *redis.DraftStorage
}

func TestDraftStorageSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(DraftStorageSuite))
}

func (s *DraftStorageSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = redis.NewDraftStorage(s.redis.Client, redis.WithTTL(time.Hour))
}

func (s *DraftStorageSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *DraftStorageSuite) TestRoundTrip() {
	ctx := context.Background()

	_, found, err := s.store.Get(ctx, "kir:draft:client-1")
	s.Require().NoError(err)
	s.False(found)

	s.Require().NoError(s.store.Set(ctx, "kir:draft:client-1", []byte(`{"currentStep":3}`)))
	data, found, err := s.store.Get(ctx, "kir:draft:client-1")
	s.Require().NoError(err)
	s.True(found)
	s.JSONEq(`{"currentStep":3}`, string(data))

	s.Require().NoError(s.store.Delete(ctx, "kir:draft:client-1"))
	_, found, err = s.store.Get(ctx, "kir:draft:client-1")
	s.Require().NoError(err)
	s.False(found)
}

func (s *DraftStorageSuite) TestDeleteMissingKeyIsNotAnError() {
	s.NoError(s.store.Delete(context.Background(), "kir:draft:nobody"))
}

func (s *DraftStorageSuite) TestWritesRefreshTTL() {
	ctx := context.Background()
	s.Require().NoError(s.store.Set(ctx, "kir:draft:client-2", []byte(`{}`)))

	ttl, err := s.redis.Client.TTL(ctx, "kir:draft:client-2").Result()
	s.Require().NoError(err)
	s.Greater(ttl, 59*time.Minute)
	s.LessOrEqual(ttl, time.Hour)
}
