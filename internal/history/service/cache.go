package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"docscan/internal/history/models"
)

// StatsCache caches per-owner stats aggregates. Implementations must treat a
// miss as a normal outcome, not an error.
type StatsCache interface {
	Get(ctx context.Context, ownerID int64) (*models.Stats, error)
	Set(ctx context.Context, ownerID int64, stats models.Stats) error
	Invalidate(ctx context.Context, ownerID int64) error
}

const statsCacheTTL = 5 * time.Minute

// RedisStatsCache caches stats aggregates in Redis with a short TTL.
// Invalidation on save and delete keeps the window of staleness to crash
// scenarios only.
type RedisStatsCache struct {
	client *redis.Client
}

// NewRedisStatsCache constructs a Redis-backed stats cache.
func NewRedisStatsCache(client *redis.Client) *RedisStatsCache {
	return &RedisStatsCache{client: client}
}

func statsKey(ownerID int64) string {
	return "docscan:stats:" + strconv.FormatInt(ownerID, 10)
}

func (c *RedisStatsCache) Get(ctx context.Context, ownerID int64) (*models.Stats, error) {
	payload, err := c.client.Get(ctx, statsKey(ownerID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached stats: %w", err)
	}

	var stats models.Stats
	if err := json.Unmarshal(payload, &stats); err != nil {
		return nil, fmt.Errorf("decode cached stats: %w", err)
	}
	return &stats, nil
}

func (c *RedisStatsCache) Set(ctx context.Context, ownerID int64, stats models.Stats) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	if err := c.client.Set(ctx, statsKey(ownerID), payload, statsCacheTTL).Err(); err != nil {
		return fmt.Errorf("cache stats: %w", err)
	}
	return nil
}

func (c *RedisStatsCache) Invalidate(ctx context.Context, ownerID int64) error {
	if err := c.client.Del(ctx, statsKey(ownerID)).Err(); err != nil {
		return fmt.Errorf("invalidate cached stats: %w", err)
	}
	return nil
}
