package providers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyNil(t *testing.T) {
	assert.Nil(t, Classify("openai", nil))
}

func TestClassifyStructuredPassthrough(t *testing.T) {
	orig := NewClassifiedError("claude", "upstream said no", 503, true, nil)

	t.Run("direct", func(t *testing.T) {
		got := Classify("openai", orig)
		assert.Same(t, orig, got)
	})

	t.Run("wrapped", func(t *testing.T) {
		wrapped := fmt.Errorf("analyze failed: %w", orig)
		got := Classify("openai", wrapped)
		require.NotNil(t, got)
		// The original classification survives wrapping untouched.
		assert.Same(t, orig, got)
		assert.Equal(t, "claude", got.Provider)
		assert.Equal(t, 503, got.StatusCode)
	})
}

func TestClassifyMessageHeuristics(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantStatus    int
		wantRetryable bool
	}{
		{"rate limit phrase", errors.New("Rate Limit exceeded for model"), 429, true},
		{"too many requests", errors.New("too many requests, slow down"), 429, true},
		{"throttled", errors.New("request throttled by upstream"), 429, true},
		{"unauthorized", errors.New("Unauthorized: bad credentials"), 401, false},
		{"invalid api key", errors.New("invalid API key provided"), 401, false},
		{"forbidden", errors.New("403 Forbidden"), 401, false},
		{"payment required", errors.New("Payment Required"), 402, false},
		{"insufficient balance", errors.New("insufficient balance on account"), 402, false},
		{"unknown network", errors.New("connection reset by peer"), 0, true},
		{"timeout", errors.New("context deadline exceeded"), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify("deepseek", tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantStatus, got.StatusCode)
			assert.Equal(t, tt.wantRetryable, got.Retryable)
			assert.Equal(t, "deepseek", got.Provider)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyRateLimitWinsOverAuth(t *testing.T) {
	// A message matching both families classifies as rate limit.
	got := Classify("openai", errors.New("rate limit hit: authentication quota exhausted"))
	require.NotNil(t, got)
	assert.Equal(t, 429, got.StatusCode)
	assert.True(t, got.Retryable)
}
