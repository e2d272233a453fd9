// Package config loads the gateway configuration from environment
// variables, once at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server      ServerConfig
	Log         LogConfig
	APIKey      string // optional static API key for /api/v1
	Redis       RedisConfig
	Cache       CacheConfig
	Providers   []ProviderConfig
	Router      RouterConfig
	Jobs        JobsConfig
	Webhook     WebhookConfig
	Environment string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string // json or console
}

// RedisConfig holds the optional Redis connection. An empty Addr
// selects the in-memory cache and job store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CacheConfig holds result cache configuration
type CacheConfig struct {
	TTL time.Duration
}

// ProviderConfig holds one upstream provider's configuration
type ProviderConfig struct {
	Name      string
	APIKey    string
	BaseURL   string
	Model     string
	CostPer1K float64
}

// Enabled reports whether the provider has credentials configured
func (p ProviderConfig) Enabled() bool {
	return p.APIKey != ""
}

// RouterConfig holds failover engine configuration
type RouterConfig struct {
	Strategy          string
	CallTimeout       time.Duration
	RateLimitCooldown time.Duration
	ErrorCooldown     time.Duration
	AuthDisable       time.Duration
	PaymentDisable    time.Duration
	QuotaWindow       time.Duration
	QuotaMax          int
}

// JobsConfig holds the async worker pool configuration
type JobsConfig struct {
	Workers   int
	Backlog   int
	ResultTTL time.Duration
}

// WebhookConfig holds webhook delivery configuration
type WebhookConfig struct {
	Timeout time.Duration
	Retries int
	Backoff time.Duration
}

// New loads configuration from the environment. Providers are listed
// in fixed fallback order: claude, openai, deepseek.
func New() (*Config, error) {
	// Load .env if present (backend/.env when run from the repo root)
	_ = godotenv.Load("backend/.env")
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		APIKey: getEnv("API_KEY", ""),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			TTL: getEnvAsDuration("CACHE_TTL", time.Hour),
		},
		Providers: []ProviderConfig{
			{
				Name:      "claude",
				APIKey:    getEnv("CLAUDE_API_KEY", ""),
				BaseURL:   getEnv("CLAUDE_BASE_URL", ""),
				Model:     getEnv("CLAUDE_MODEL", "claude-3-5-haiku-latest"),
				CostPer1K: getEnvAsFloat("CLAUDE_COST_PER_1K", 0.0008),
			},
			{
				Name:      "openai",
				APIKey:    getEnv("OPENAI_API_KEY", ""),
				BaseURL:   getEnv("OPENAI_BASE_URL", ""),
				Model:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
				CostPer1K: getEnvAsFloat("OPENAI_COST_PER_1K", 0.00015),
			},
			{
				Name:      "deepseek",
				APIKey:    getEnv("DEEPSEEK_API_KEY", ""),
				BaseURL:   getEnv("DEEPSEEK_BASE_URL", ""),
				Model:     getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
				CostPer1K: getEnvAsFloat("DEEPSEEK_COST_PER_1K", 0.00014),
			},
		},
		Router: RouterConfig{
			Strategy:          getEnv("ROUTER_STRATEGY", "cost_then_failover"),
			CallTimeout:       getEnvAsDuration("ROUTER_CALL_TIMEOUT", 30*time.Second),
			RateLimitCooldown: getEnvAsDuration("RATE_LIMIT_COOLDOWN", 60*time.Second),
			ErrorCooldown:     getEnvAsDuration("ERROR_COOLDOWN", 15*time.Second),
			AuthDisable:       getEnvAsDuration("AUTH_DISABLE", 24*time.Hour),
			PaymentDisable:    getEnvAsDuration("PAYMENT_DISABLE", 24*time.Hour),
			QuotaWindow:       getEnvAsDuration("QUOTA_WINDOW", 60*time.Second),
			QuotaMax:          getEnvAsInt("QUOTA_MAX", 5),
		},
		Jobs: JobsConfig{
			Workers:   getEnvAsInt("JOB_WORKERS", 2),
			Backlog:   getEnvAsInt("JOB_BACKLOG", 64),
			ResultTTL: getEnvAsDuration("JOB_RESULT_TTL", 24*time.Hour),
		},
		Webhook: WebhookConfig{
			Timeout: getEnvAsDuration("WEBHOOK_TIMEOUT", 10*time.Second),
			Retries: getEnvAsInt("WEBHOOK_RETRIES", 3),
			Backoff: getEnvAsDuration("WEBHOOK_BACKOFF", time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EnabledProviders returns the providers with credentials, in fixed
// fallback order.
func (c *Config) EnabledProviders() []ProviderConfig {
	out := make([]ProviderConfig, 0, len(c.Providers))
	for _, p := range c.Providers {
		if p.Enabled() {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if len(c.EnabledProviders()) == 0 {
		return fmt.Errorf("no providers configured: set at least one of CLAUDE_API_KEY, OPENAI_API_KEY, DEEPSEEK_API_KEY")
	}
	for _, p := range c.EnabledProviders() {
		if p.CostPer1K < 0 {
			return fmt.Errorf("provider %s: cost per 1k tokens must not be negative", p.Name)
		}
	}
	if c.Router.CallTimeout <= 0 {
		return fmt.Errorf("ROUTER_CALL_TIMEOUT must be positive")
	}
	if c.Router.QuotaMax < 0 {
		return fmt.Errorf("QUOTA_MAX must not be negative")
	}
	if c.Jobs.Workers <= 0 {
		return fmt.Errorf("JOB_WORKERS must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		// Bare numbers are read as seconds.
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return fallback
}
