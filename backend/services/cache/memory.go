package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/upb/insight-gateway/backend/services/providers"
)

// MemoryCache implements ResultCache in process memory. Used when no
// Redis address is configured.
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache creates an in-memory cache with the given default TTL.
func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{
		store: gocache.New(defaultTTL, 2*defaultTTL),
	}
}

// Get implements ResultCache
func (c *MemoryCache) Get(_ context.Context, key string) (*providers.AnalysisResult, bool, error) {
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false, nil
	}
	result, ok := v.(*providers.AnalysisResult)
	if !ok {
		return nil, false, nil
	}
	return result, true, nil
}

// Set implements ResultCache
func (c *MemoryCache) Set(_ context.Context, key string, result *providers.AnalysisResult, ttl time.Duration) error {
	c.store.Set(key, result, ttl)
	return nil
}
