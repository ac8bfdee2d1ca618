package allocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/data-rescue/internal/domain"
	"github.com/jonesrussell/data-rescue/internal/logger"
)

// rankingCacheKey is the Redis key holding the last successfully fetched
// ranking.
const rankingCacheKey = "dispatcher:ranking:latest"

// ErrCacheMiss is returned when no ranking has been cached yet.
var ErrCacheMiss = errors.New("no cached ranking")

// RankingCache is the dispatcher's write-through cache of the last ranking
// the ranker served. The whole list is written in one SET, never partially.
type RankingCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewRankingCache creates a cache over the given Redis client. A nil client
// disables caching: Store becomes a no-op and Load always misses.
func NewRankingCache(client *redis.Client, ttl time.Duration, log logger.Logger) *RankingCache {
	return &RankingCache{
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

// Store replaces the cached ranking.
func (c *RankingCache) Store(ctx context.Context, assets []domain.RankedAsset) error {
	if c.client == nil {
		return nil
	}

	payload, err := json.Marshal(assets)
	if err != nil {
		return fmt.Errorf("marshal ranking cache: %w", err)
	}

	if err := c.client.Set(ctx, rankingCacheKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("write ranking cache: %w", err)
	}

	c.logger.Debug("Ranking cache refreshed",
		logger.Int("assets", len(assets)),
	)

	return nil
}

// Load returns the last cached ranking, or ErrCacheMiss when none exists.
func (c *RankingCache) Load(ctx context.Context) ([]domain.RankedAsset, error) {
	if c.client == nil {
		return nil, ErrCacheMiss
	}

	payload, err := c.client.Get(ctx, rankingCacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("read ranking cache: %w", err)
	}

	var assets []domain.RankedAsset
	if err := json.Unmarshal(payload, &assets); err != nil {
		return nil, fmt.Errorf("decode ranking cache: %w", err)
	}
	return assets, nil
}
