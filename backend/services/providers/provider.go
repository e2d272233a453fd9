package providers

import (
	"context"
	"time"
)

// Provider represents a unified analysis provider interface
type Provider interface {
	// Name returns the provider name (e.g., "claude", "openai", "deepseek")
	Name() string

	// CostPer1K returns the configured cost per 1000 estimated tokens
	CostPer1K() float64

	// Analyze performs a single analysis request against the upstream
	Analyze(ctx context.Context, req *AnalysisRequest) (*AnalysisResult, error)
}

// AnalysisRequest represents a unified analysis request
type AnalysisRequest struct {
	// RequestID is the correlation ID carried through logs and responses
	RequestID string `json:"request_id"`

	// StructuredData is the caller-supplied payload to analyze
	StructuredData map[string]interface{} `json:"structured_data"`

	// Notes are optional free-text annotations appended to the prompt
	Notes []string `json:"notes,omitempty"`
}

// AnalysisResult represents a unified analysis response
type AnalysisResult struct {
	// Provider that served the result. Adapters leave this empty; the
	// caller fills it in so cached results keep their provenance.
	Provider string `json:"provider,omitempty"`

	// Summary is the headline finding
	Summary string `json:"summary"`

	// KeyInsights are the main observations extracted from the data
	KeyInsights []string `json:"key_insights"`

	// NextActions are suggested follow-ups
	NextActions []string `json:"next_actions"`

	// Metadata describes how the result was produced
	Metadata ResultMetadata `json:"metadata"`

	// RawResponse is the unparsed upstream content, kept for debugging
	RawResponse string `json:"-"`
}

// ResultMetadata carries provenance for an analysis result
type ResultMetadata struct {
	ConfidenceScore  float64   `json:"confidence_score"`
	ModelVersion     string    `json:"model_version"`
	ProcessingTimeMS int64     `json:"processing_time_ms"`
	Timestamp        time.Time `json:"timestamp"`
}

// Config holds common configuration for provider adapters
type Config struct {
	// APIKey for authentication; an empty key disables the provider
	APIKey string

	// BaseURL for the API (optional override)
	BaseURL string

	// Model identifier sent upstream
	Model string

	// CostPer1K is the price per 1000 estimated tokens, used for ranking
	CostPer1K float64

	// Timeout for HTTP requests
	Timeout time.Duration
}
