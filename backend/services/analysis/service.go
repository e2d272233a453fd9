// Package analysis orchestrates one analyze operation: cache lookup,
// routed provider call, cache write, and the degraded fallback when
// every upstream is down.
package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/upb/insight-gateway/backend/internal/observability"
	"github.com/upb/insight-gateway/backend/services/cache"
	"github.com/upb/insight-gateway/backend/services/providers"
	"github.com/upb/insight-gateway/backend/services/routing"
)

const (
	fallbackSummary      = "Analysis is temporarily unavailable; showing a degraded response."
	fallbackModelVersion = "fallback"
	fallbackConfidence   = 0.1
)

// Request is the validated analyze payload.
type Request struct {
	StructuredData map[string]interface{} `json:"structured_data" validate:"required,min=1"`
	Notes          []string               `json:"notes,omitempty" validate:"omitempty,dive,max=2000"`
}

// Response is the analyze result returned to callers.
type Response struct {
	RequestID string                   `json:"request_id"`
	Cached    bool                     `json:"cached"`
	Result    providers.AnalysisResult `json:"result"`
}

// Service runs analyze operations against the router with a result
// cache in front.
type Service struct {
	router   *routing.Router
	cache    cache.ResultCache
	cacheTTL time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewService creates the analysis service.
func NewService(router *routing.Router, resultCache cache.ResultCache, cacheTTL time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		router:   router,
		cache:    resultCache,
		cacheTTL: cacheTTL,
		logger:   logger,
		metrics:  metrics,
	}
}

// CacheKey derives the cache key for a request from its content. JSON
// object keys marshal in sorted order, so equal payloads hash equally.
func CacheKey(req *Request) string {
	payload, err := json.Marshal(struct {
		StructuredData map[string]interface{} `json:"structured_data"`
		Notes          []string               `json:"notes"`
	}{req.StructuredData, req.Notes})
	if err != nil {
		// Maps of JSON-decoded values always marshal; this only
		// triggers on programmatic misuse.
		payload = []byte(err.Error())
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Analyze serves one analyze operation. Terminal routing failures
// (exhaustion, non-retryable upstream rejections) degrade into a
// low-confidence fallback response rather than an error; cancellation
// and validation problems still surface as errors.
func (s *Service) Analyze(ctx context.Context, requestID string, req *Request) (*Response, error) {
	key := CacheKey(req)

	cached, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.metrics.CacheOps.WithLabelValues("error").Inc()
		s.logger.Warn("cache lookup failed",
			zap.String("request_id", requestID),
			zap.Error(err))
	} else if found {
		s.metrics.CacheOps.WithLabelValues("hit").Inc()
		s.logger.Info("serving cached result",
			zap.String("request_id", requestID),
			zap.String("provider", cached.Provider))
		return &Response{RequestID: requestID, Cached: true, Result: *cached}, nil
	} else {
		s.metrics.CacheOps.WithLabelValues("miss").Inc()
	}

	routed, err := s.router.Route(ctx, &providers.AnalysisRequest{
		RequestID:      requestID,
		StructuredData: req.StructuredData,
		Notes:          req.Notes,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isTerminal(err) {
			s.logger.Error("routing failed, returning fallback response",
				zap.String("request_id", requestID),
				zap.Error(err))
			return &Response{RequestID: requestID, Result: fallbackResult()}, nil
		}
		return nil, err
	}

	result := *routed.Result
	result.Provider = routed.Provider

	if err := s.cache.Set(ctx, key, &result, s.cacheTTL); err != nil {
		s.metrics.CacheOps.WithLabelValues("error").Inc()
		s.logger.Warn("cache write failed",
			zap.String("request_id", requestID),
			zap.Error(err))
	}

	return &Response{RequestID: requestID, Result: result}, nil
}

// isTerminal reports whether a routing error means no upstream can
// serve this request right now.
func isTerminal(err error) bool {
	if routing.IsExhausted(err) {
		return true
	}
	var cerr *providers.ClassifiedError
	return errors.As(err, &cerr)
}

func fallbackResult() providers.AnalysisResult {
	return providers.AnalysisResult{
		Provider: fallbackModelVersion,
		Summary:  fallbackSummary,
		Metadata: providers.ResultMetadata{
			ConfidenceScore: fallbackConfidence,
			ModelVersion:    fallbackModelVersion,
			Timestamp:       time.Now().UTC(),
		},
	}
}
