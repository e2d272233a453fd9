// Package app wires the gateway's services together.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/upb/insight-gateway/backend/config"
	"github.com/upb/insight-gateway/backend/internal/observability"
	"github.com/upb/insight-gateway/backend/middleware"
	"github.com/upb/insight-gateway/backend/services/analysis"
	"github.com/upb/insight-gateway/backend/services/cache"
	"github.com/upb/insight-gateway/backend/services/jobs"
	"github.com/upb/insight-gateway/backend/services/providers"
	"github.com/upb/insight-gateway/backend/services/providers/claude"
	"github.com/upb/insight-gateway/backend/services/providers/deepseek"
	"github.com/upb/insight-gateway/backend/services/providers/openai"
	"github.com/upb/insight-gateway/backend/services/routing"
	"github.com/upb/insight-gateway/backend/services/webhooks"
)

// Dependencies holds all initialized application components
type Dependencies struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Registry *providers.Registry
	Router   *routing.Router
	Analysis *analysis.Service
	Jobs     *jobs.Queue
	Webhooks *webhooks.Service
	Auth     *middleware.APIKeyAuth

	redisClient *redis.Client
}

// New builds the full dependency graph from configuration.
func New(cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	metrics := observability.NewMetrics()

	registry := providers.NewRegistry()
	for _, pc := range cfg.EnabledProviders() {
		adapter, err := buildProvider(pc, cfg.Router.CallTimeout)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(adapter); err != nil {
			return nil, err
		}
		logger.Info("registered provider",
			zap.String("provider", pc.Name),
			zap.String("model", pc.Model),
			zap.Float64("cost_per_1k", pc.CostPer1K))
	}

	strategy, err := routing.ParseStrategy(cfg.Router.Strategy)
	if err != nil {
		return nil, err
	}

	router := routing.NewRouter(registry, routing.Config{
		Strategy:    strategy,
		CallTimeout: cfg.Router.CallTimeout,
		Health: routing.HealthConfig{
			RateLimitCooldown: cfg.Router.RateLimitCooldown,
			ErrorCooldown:     cfg.Router.ErrorCooldown,
			AuthDisable:       cfg.Router.AuthDisable,
			PaymentDisable:    cfg.Router.PaymentDisable,
			QuotaWindow:       cfg.Router.QuotaWindow,
			QuotaMax:          cfg.Router.QuotaMax,
		},
	}, logger, metrics)

	var redisClient *redis.Client
	var resultCache cache.ResultCache
	var jobStore jobs.Store

	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis unreachable at %s: %w", cfg.Redis.Addr, err)
		}
		resultCache = cache.NewRedisCache(redisClient)
		jobStore = jobs.NewRedisStore(redisClient, cfg.Jobs.ResultTTL)
		logger.Info("using redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		resultCache = cache.NewMemoryCache(cfg.Cache.TTL)
		jobStore = jobs.NewMemoryStore()
		logger.Info("redis not configured, using in-memory cache and job store")
	}

	analysisSvc := analysis.NewService(router, resultCache, cfg.Cache.TTL, logger, metrics)
	webhookSvc := webhooks.NewService(cfg.Webhook.Timeout, cfg.Webhook.Retries, cfg.Webhook.Backoff, logger, metrics)
	queue := jobs.NewQueue(jobStore, analysisSvc, webhookSvc, cfg.Jobs.Workers, cfg.Jobs.Backlog, logger, metrics)

	return &Dependencies{
		Config:      cfg,
		Logger:      logger,
		Metrics:     metrics,
		Registry:    registry,
		Router:      router,
		Analysis:    analysisSvc,
		Jobs:        queue,
		Webhooks:    webhookSvc,
		Auth:        middleware.NewAPIKeyAuth(cfg.APIKey, logger),
		redisClient: redisClient,
	}, nil
}

func buildProvider(pc config.ProviderConfig, timeout time.Duration) (providers.Provider, error) {
	pcfg := providers.Config{
		APIKey:    pc.APIKey,
		BaseURL:   pc.BaseURL,
		Model:     pc.Model,
		CostPer1K: pc.CostPer1K,
		Timeout:   timeout,
	}

	switch pc.Name {
	case "claude":
		return claude.NewAdapter(pcfg), nil
	case "openai":
		return openai.NewAdapter(pcfg), nil
	case "deepseek":
		return deepseek.NewAdapter(pcfg), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", pc.Name)
	}
}

// Ready reports whether external dependencies are reachable.
func (d *Dependencies) Ready(ctx context.Context) error {
	if d.redisClient != nil {
		if err := d.redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close stops background work and releases connections.
func (d *Dependencies) Close() {
	if d.Jobs != nil {
		d.Jobs.Stop()
	}
	if d.redisClient != nil {
		if err := d.redisClient.Close(); err != nil {
			d.Logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
}
