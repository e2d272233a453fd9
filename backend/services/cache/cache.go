// Package cache provides the analysis result cache. Redis backs it in
// production; an in-memory implementation covers single-node setups
// without Redis.
package cache

import (
	"context"
	"time"

	"github.com/upb/insight-gateway/backend/services/providers"
)

// ResultCache stores completed analysis results keyed by request
// content hash.
type ResultCache interface {
	// Get returns the cached result and whether the key was present.
	Get(ctx context.Context, key string) (*providers.AnalysisResult, bool, error)

	// Set stores a result under key for ttl.
	Set(ctx context.Context, key string, result *providers.AnalysisResult, ttl time.Duration) error
}
