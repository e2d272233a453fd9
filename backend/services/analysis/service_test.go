package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/insight-gateway/backend/internal/observability"
	"github.com/upb/insight-gateway/backend/services/cache"
	"github.com/upb/insight-gateway/backend/services/providers"
	"github.com/upb/insight-gateway/backend/services/routing"
)

type scriptedProvider struct {
	name    string
	cost    float64
	calls   int
	analyze func(call int) (*providers.AnalysisResult, error)
}

func (s *scriptedProvider) Name() string       { return s.name }
func (s *scriptedProvider) CostPer1K() float64 { return s.cost }
func (s *scriptedProvider) Analyze(ctx context.Context, req *providers.AnalysisRequest) (*providers.AnalysisResult, error) {
	s.calls++
	return s.analyze(s.calls)
}

func newService(t *testing.T, provs ...providers.Provider) *Service {
	t.Helper()

	registry := providers.NewRegistry()
	for _, p := range provs {
		require.NoError(t, registry.Register(p))
	}

	metrics := observability.NewMetrics()
	router := routing.NewRouter(registry, routing.DefaultConfig(), zap.NewNop(), metrics)
	return NewService(router, cache.NewMemoryCache(time.Hour), time.Hour, zap.NewNop(), metrics)
}

func testRequest() *Request {
	return &Request{
		StructuredData: map[string]interface{}{"revenue": 100},
		Notes:          []string{"monthly"},
	}
}

func TestAnalyzeCachesResult(t *testing.T) {
	p := &scriptedProvider{name: "openai", cost: 0.01, analyze: func(int) (*providers.AnalysisResult, error) {
		return &providers.AnalysisResult{Summary: "fresh"}, nil
	}}
	svc := newService(t, p)

	first, err := svc.Analyze(context.Background(), "req-1", testRequest())
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, "openai", first.Result.Provider)
	assert.Equal(t, "req-1", first.RequestID)

	// Identical payload hits the cache; the provider is not called again.
	second, err := svc.Analyze(context.Background(), "req-2", testRequest())
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, "fresh", second.Result.Summary)
	assert.Equal(t, "openai", second.Result.Provider)
	assert.Equal(t, "req-2", second.RequestID)
	assert.Equal(t, 1, p.calls)
}

func TestAnalyzeDifferentPayloadsMiss(t *testing.T) {
	p := &scriptedProvider{name: "openai", cost: 0.01, analyze: func(int) (*providers.AnalysisResult, error) {
		return &providers.AnalysisResult{Summary: "fresh"}, nil
	}}
	svc := newService(t, p)

	_, err := svc.Analyze(context.Background(), "req-1", testRequest())
	require.NoError(t, err)

	other := &Request{StructuredData: map[string]interface{}{"revenue": 200}}
	_, err = svc.Analyze(context.Background(), "req-2", other)
	require.NoError(t, err)
	assert.Equal(t, 2, p.calls)
}

func TestAnalyzeFallbackOnExhaustion(t *testing.T) {
	p := &scriptedProvider{name: "openai", cost: 0.01, analyze: func(int) (*providers.AnalysisResult, error) {
		return nil, providers.NewClassifiedError("openai", "down", 503, true, nil)
	}}
	svc := newService(t, p)

	resp, err := svc.Analyze(context.Background(), "req-1", testRequest())
	require.NoError(t, err)
	assert.Equal(t, fallbackConfidence, resp.Result.Metadata.ConfidenceScore)
	assert.Equal(t, fallbackModelVersion, resp.Result.Metadata.ModelVersion)
	assert.Equal(t, "req-1", resp.RequestID)
	assert.NotEmpty(t, resp.Result.Summary)
}

func TestAnalyzeFallbackIsNotCached(t *testing.T) {
	p := &scriptedProvider{name: "openai", cost: 0.01, analyze: func(call int) (*providers.AnalysisResult, error) {
		if call == 1 {
			return nil, providers.NewClassifiedError("openai", "bad request", 400, false, nil)
		}
		return &providers.AnalysisResult{Summary: "recovered"}, nil
	}}
	svc := newService(t, p)

	resp, err := svc.Analyze(context.Background(), "req-1", testRequest())
	require.NoError(t, err)
	assert.Equal(t, fallbackModelVersion, resp.Result.Metadata.ModelVersion)

	resp, err = svc.Analyze(context.Background(), "req-2", testRequest())
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	assert.Equal(t, "recovered", resp.Result.Summary)
}

func TestAnalyzeCancellationSurfaces(t *testing.T) {
	p := &scriptedProvider{name: "openai", cost: 0.01, analyze: func(int) (*providers.AnalysisResult, error) {
		return &providers.AnalysisResult{}, nil
	}}
	svc := newService(t, p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Analyze(ctx, "req-1", testRequest())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCacheKeyDeterministic(t *testing.T) {
	a := &Request{StructuredData: map[string]interface{}{"b": 2, "a": 1}, Notes: []string{"n"}}
	b := &Request{StructuredData: map[string]interface{}{"a": 1, "b": 2}, Notes: []string{"n"}}
	c := &Request{StructuredData: map[string]interface{}{"a": 1, "b": 3}, Notes: []string{"n"}}

	assert.Equal(t, CacheKey(a), CacheKey(b))
	assert.NotEqual(t, CacheKey(a), CacheKey(c))
	assert.Len(t, CacheKey(a), 64)
}
