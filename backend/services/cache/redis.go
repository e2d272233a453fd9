package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/upb/insight-gateway/backend/services/providers"
)

const keyPrefix = "insight:result:"

// RedisCache implements ResultCache on a Redis instance. Values are
// stored as JSON under a namespaced key.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps an existing Redis client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get implements ResultCache
func (c *RedisCache) Get(ctx context.Context, key string) (*providers.AnalysisResult, bool, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var result providers.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		// A corrupt entry is treated as a miss so the request can
		// still be served; the entry will be overwritten.
		return nil, false, nil
	}
	return &result, true, nil
}

// Set implements ResultCache
func (c *RedisCache) Set(ctx context.Context, key string, result *providers.AnalysisResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping verifies connectivity. Used by the readiness probe.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
