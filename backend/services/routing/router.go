// Package routing implements the failover engine: per-request candidate
// ranking, provider health tracking with cooldowns and disablements,
// a local sliding-window quota, and the route loop that ties them
// together.
package routing

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/upb/insight-gateway/backend/internal/observability"
	"github.com/upb/insight-gateway/backend/services/providers"
	"github.com/upb/insight-gateway/backend/services/tokens"
)

// ExhaustedError is returned when every candidate was skipped or
// failed. It carries the last classified failure so callers can see
// why the final candidate went down.
type ExhaustedError struct {
	LastError *providers.ClassifiedError
}

// Error implements the error interface
func (e *ExhaustedError) Error() string {
	if e.LastError != nil {
		return "all providers exhausted: " + e.LastError.Error()
	}
	return "all providers exhausted: no eligible candidates"
}

// Unwrap exposes the last classified failure
func (e *ExhaustedError) Unwrap() error {
	if e.LastError != nil {
		return e.LastError
	}
	return nil
}

// IsExhausted checks whether an error chain contains an ExhaustedError
func IsExhausted(err error) bool {
	var ee *ExhaustedError
	return errors.As(err, &ee)
}

// RouteResult pairs an analysis result with the provider that served it.
type RouteResult struct {
	Result   *providers.AnalysisResult
	Provider string
}

// Config holds the router parameters.
type Config struct {
	Strategy    Strategy
	CallTimeout time.Duration
	Health      HealthConfig
}

// DefaultConfig returns the standard router parameters.
func DefaultConfig() Config {
	return Config{
		Strategy:    StrategyCostThenFailover,
		CallTimeout: 30 * time.Second,
		Health:      DefaultHealthConfig(),
	}
}

// Router dispatches analysis requests across the registered providers.
type Router struct {
	registry *providers.Registry
	health   *HealthTracker
	cfg      Config
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewRouter creates a router over the given registry.
func NewRouter(registry *providers.Registry, cfg Config, logger *zap.Logger, metrics *observability.Metrics) *Router {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	return &Router{
		registry: registry,
		health:   NewHealthTracker(cfg.Health),
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// Health exposes the tracker for status snapshots.
func (r *Router) Health() *HealthTracker {
	return r.health
}

// Route tries ranked candidates in order until one succeeds. Each
// candidate is attempted at most once per invocation. Ineligible
// providers are skipped; quota rejections are folded into health as
// rate-limit failures; non-retryable unknown failures abort
// immediately; everything else fails over to the next candidate.
// Cancellation is observed between attempts.
func (r *Router) Route(ctx context.Context, req *providers.AnalysisRequest) (*RouteResult, error) {
	prompt, err := providers.BuildPrompt(req)
	if err != nil {
		return nil, err
	}
	estimated := tokens.Estimate(prompt)

	candidates := Rank(r.cfg.Strategy, r.registry.List(), estimated)

	var lastErr *providers.ClassifiedError

	for _, p := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := p.Name()

		if !r.health.Eligible(name) {
			r.metrics.ProviderAttempts.WithLabelValues(name, "skip").Inc()
			r.logger.Debug("skipping ineligible provider",
				zap.String("request_id", req.RequestID),
				zap.String("provider", name))
			continue
		}

		if !r.health.TryConsumeQuota(name) {
			cerr := providers.NewClassifiedError(name, "local quota exceeded", 429, true, nil)
			transition := r.health.RecordFailure(name, cerr)
			lastErr = cerr

			r.metrics.QuotaRejections.WithLabelValues(name).Inc()
			r.metrics.ProviderAttempts.WithLabelValues(name, "skip").Inc()
			r.metrics.HealthTransitions.WithLabelValues(name, string(transition)).Inc()
			r.logger.Warn("provider quota exceeded, cooling down",
				zap.String("request_id", req.RequestID),
				zap.String("provider", name))
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
		start := time.Now()
		result, err := p.Analyze(callCtx, req)
		cancel()

		r.metrics.ProviderLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())

		if err == nil {
			r.health.RecordSuccess(name)
			r.metrics.ProviderAttempts.WithLabelValues(name, "success").Inc()
			r.logger.Info("provider call succeeded",
				zap.String("request_id", req.RequestID),
				zap.String("provider", name),
				zap.Int("estimated_tokens", estimated),
				zap.Duration("latency", time.Since(start)))
			return &RouteResult{Result: result, Provider: name}, nil
		}

		cerr := providers.Classify(name, err)
		transition := r.health.RecordFailure(name, cerr)
		lastErr = cerr

		r.metrics.ProviderAttempts.WithLabelValues(name, "failure").Inc()
		if transition != TransitionNone {
			r.metrics.HealthTransitions.WithLabelValues(name, string(transition)).Inc()
		}
		r.logger.Warn("provider call failed",
			zap.String("request_id", req.RequestID),
			zap.String("provider", name),
			zap.Int("status_code", cerr.StatusCode),
			zap.Bool("retryable", cerr.Retryable),
			zap.String("transition", string(transition)),
			zap.Error(cerr))

		if !cerr.Retryable && !isFailoverStatus(cerr.StatusCode) {
			r.metrics.TerminalErrors.WithLabelValues("non_retryable").Inc()
			r.logger.Error("non-retryable failure, aborting request",
				zap.String("request_id", req.RequestID),
				zap.String("provider", name),
				zap.Error(cerr))
			return nil, cerr
		}
	}

	r.metrics.TerminalErrors.WithLabelValues("exhausted").Inc()
	exhausted := &ExhaustedError{LastError: lastErr}
	r.logger.Error("all providers exhausted",
		zap.String("request_id", req.RequestID),
		zap.Error(exhausted))
	return nil, exhausted
}

// isFailoverStatus reports whether a non-retryable status still allows
// trying the next candidate. Auth and payment failures disable the one
// provider but other upstreams may still serve the request.
func isFailoverStatus(status int) bool {
	switch status {
	case 401, 402, 403, 429:
		return true
	default:
		return false
	}
}
