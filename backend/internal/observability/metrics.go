package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects application metrics on a private registry so that
// multiple instances (e.g. in tests) never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	// Router / failover engine
	ProviderAttempts  *prometheus.CounterVec   // provider, outcome: success|failure|skip
	ProviderLatency   *prometheus.HistogramVec // provider
	HealthTransitions *prometheus.CounterVec   // provider, transition: cooldown|disable
	QuotaRejections   *prometheus.CounterVec   // provider
	TerminalErrors    *prometheus.CounterVec   // kind: exhausted|non_retryable

	// Result cache
	CacheOps *prometheus.CounterVec // result: hit|miss|error

	// Async jobs and webhooks
	JobsProcessed     *prometheus.CounterVec // status: completed|failed
	WebhookDeliveries *prometheus.CounterVec // outcome: delivered|failed
}

// NewMetrics creates and registers all gateway metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ProviderAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "insight_gateway",
			Subsystem: "router",
			Name:      "provider_attempts_total",
			Help:      "Provider attempts by outcome (success, failure, skip).",
		}, []string{"provider", "outcome"}),
		ProviderLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "insight_gateway",
			Subsystem: "router",
			Name:      "provider_latency_seconds",
			Help:      "Latency of provider analyze calls.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"provider"}),
		HealthTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "insight_gateway",
			Subsystem: "router",
			Name:      "health_transitions_total",
			Help:      "Cooldown and disable transitions applied to providers.",
		}, []string{"provider", "transition"}),
		QuotaRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "insight_gateway",
			Subsystem: "router",
			Name:      "quota_rejections_total",
			Help:      "Local quota rejections per provider.",
		}, []string{"provider"}),
		TerminalErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "insight_gateway",
			Subsystem: "router",
			Name:      "terminal_errors_total",
			Help:      "Requests that ended in a terminal routing error.",
		}, []string{"kind"}),
		CacheOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "insight_gateway",
			Subsystem: "cache",
			Name:      "operations_total",
			Help:      "Result cache lookups by result (hit, miss, error).",
		}, []string{"result"}),
		JobsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "insight_gateway",
			Subsystem: "jobs",
			Name:      "processed_total",
			Help:      "Async analysis jobs processed by final status.",
		}, []string{"status"}),
		WebhookDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "insight_gateway",
			Subsystem: "webhooks",
			Name:      "deliveries_total",
			Help:      "Webhook delivery attempts by outcome.",
		}, []string{"outcome"}),
	}
}

// Handler returns the HTTP handler that exposes this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
