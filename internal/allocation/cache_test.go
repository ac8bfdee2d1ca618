package allocation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/data-rescue/internal/domain"
	"github.com/jonesrussell/data-rescue/internal/logger"
)

func newRedisCache(t *testing.T, ttl time.Duration) (*RankingCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRankingCache(client, ttl, logger.NewNopLogger()), mr
}

func TestRankingCache_StoreThenLoad(t *testing.T) {
	cache, _ := newRedisCache(t, time.Hour)

	size := 10.5
	stored := []domain.RankedAsset{
		{AssetID: "1", Priority: 1, SizeMB: &size, URL: "https://example.org/a.csv"},
		{AssetID: "2", Priority: 2, URL: "https://example.org/b.zip"},
	}
	require.NoError(t, cache.Store(context.Background(), stored))

	loaded, err := cache.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stored, loaded)
}

func TestRankingCache_LoadBeforeStoreMisses(t *testing.T) {
	cache, _ := newRedisCache(t, time.Hour)

	_, err := cache.Load(context.Background())
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRankingCache_ExpiredEntryMisses(t *testing.T) {
	cache, mr := newRedisCache(t, time.Minute)

	require.NoError(t, cache.Store(context.Background(), []domain.RankedAsset{{AssetID: "1"}}))

	mr.FastForward(2 * time.Minute)

	_, err := cache.Load(context.Background())
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRankingCache_StoreReplacesWhole(t *testing.T) {
	cache, _ := newRedisCache(t, time.Hour)

	require.NoError(t, cache.Store(context.Background(), []domain.RankedAsset{{AssetID: "1"}, {AssetID: "2"}}))
	require.NoError(t, cache.Store(context.Background(), []domain.RankedAsset{{AssetID: "3"}}))

	loaded, err := cache.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "3", loaded[0].AssetID)
}

func TestRankingCache_NilClientStoreIsNoop(t *testing.T) {
	cache := NewRankingCache(nil, time.Hour, logger.NewNopLogger())

	err := cache.Store(context.Background(), []domain.RankedAsset{{AssetID: "1"}})
	assert.NoError(t, err)
}

func TestRankingCache_NilClientLoadMisses(t *testing.T) {
	cache := NewRankingCache(nil, time.Hour, logger.NewNopLogger())

	_, err := cache.Load(context.Background())
	assert.ErrorIs(t, err, ErrCacheMiss)
}
