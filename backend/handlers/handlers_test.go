package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/insight-gateway/backend/app"
	"github.com/upb/insight-gateway/backend/internal/observability"
	"github.com/upb/insight-gateway/backend/middleware"
	"github.com/upb/insight-gateway/backend/routes"
	"github.com/upb/insight-gateway/backend/services/analysis"
	"github.com/upb/insight-gateway/backend/services/cache"
	"github.com/upb/insight-gateway/backend/services/jobs"
	"github.com/upb/insight-gateway/backend/services/providers"
	"github.com/upb/insight-gateway/backend/services/routing"
)

type fakeProvider struct {
	name string
	fn   func(ctx context.Context, req *providers.AnalysisRequest) (*providers.AnalysisResult, error)
}

func (f *fakeProvider) Name() string       { return f.name }
func (f *fakeProvider) CostPer1K() float64 { return 0.001 }
func (f *fakeProvider) Analyze(ctx context.Context, req *providers.AnalysisRequest) (*providers.AnalysisResult, error) {
	if f.fn != nil {
		return f.fn(ctx, req)
	}
	return &providers.AnalysisResult{
		Summary:     "looks good",
		KeyInsights: []string{"insight"},
		Metadata:    providers.ResultMetadata{ConfidenceScore: 0.9, ModelVersion: "fake-1"},
	}, nil
}

func newTestServer(t *testing.T, apiKey string, provs ...providers.Provider) *httptest.Server {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	registry := providers.NewRegistry()
	for _, p := range provs {
		require.NoError(t, registry.Register(p))
	}

	router := routing.NewRouter(registry, routing.DefaultConfig(), logger, metrics)
	analysisSvc := analysis.NewService(router, cache.NewMemoryCache(time.Hour), time.Hour, logger, metrics)
	queue := jobs.NewQueue(jobs.NewMemoryStore(), analysisSvc, nil, 1, 8, logger, metrics)
	queue.Start()
	t.Cleanup(queue.Stop)

	deps := &app.Dependencies{
		Logger:   logger,
		Metrics:  metrics,
		Registry: registry,
		Router:   router,
		Analysis: analysisSvc,
		Jobs:     queue,
		Auth:     middleware.NewAPIKeyAuth(apiKey, logger),
	}

	server := httptest.NewServer(routes.SetupRoutes(deps))
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeData(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func TestAnalyzeEndpoint(t *testing.T) {
	server := newTestServer(t, "", &fakeProvider{name: "openai"})

	resp := postJSON(t, server.URL+"/api/v1/analyze", `{"structured_data":{"revenue":10},"notes":["q1"]}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body analysis.Response
	decodeData(t, resp, &body)
	assert.Equal(t, "looks good", body.Result.Summary)
	assert.Equal(t, "openai", body.Result.Provider)
	assert.NotEmpty(t, body.RequestID)
	assert.False(t, body.Cached)
}

func TestAnalyzeEndpointRejectsBadPayload(t *testing.T) {
	server := newTestServer(t, "", &fakeProvider{name: "openai"})

	t.Run("invalid json", func(t *testing.T) {
		resp := postJSON(t, server.URL+"/api/v1/analyze", `{not json`, nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing structured_data", func(t *testing.T) {
		resp := postJSON(t, server.URL+"/api/v1/analyze", `{"notes":["x"]}`, nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestAnalyzeEndpointFallbackWhenProvidersDown(t *testing.T) {
	down := &fakeProvider{name: "openai", fn: func(ctx context.Context, req *providers.AnalysisRequest) (*providers.AnalysisResult, error) {
		return nil, providers.NewClassifiedError("openai", "unavailable", 503, true, nil)
	}}
	server := newTestServer(t, "", down)

	resp := postJSON(t, server.URL+"/api/v1/analyze", `{"structured_data":{"a":1}}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body analysis.Response
	decodeData(t, resp, &body)
	assert.Equal(t, "fallback", body.Result.Metadata.ModelVersion)
	assert.InDelta(t, 0.1, body.Result.Metadata.ConfidenceScore, 1e-9)
}

func TestJobLifecycle(t *testing.T) {
	server := newTestServer(t, "", &fakeProvider{name: "openai"})

	resp := postJSON(t, server.URL+"/api/v1/jobs", `{"structured_data":{"a":1}}`, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var submitted struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	decodeData(t, resp, &submitted)
	require.NotEmpty(t, submitted.JobID)
	assert.Equal(t, "pending", submitted.Status)

	require.Eventually(t, func() bool {
		getResp, err := http.Get(server.URL + "/api/v1/jobs/" + submitted.JobID)
		if err != nil {
			return false
		}
		var job struct {
			Status string `json:"status"`
		}
		decodeData(t, getResp, &job)
		return job.Status == "completed"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGetJobValidation(t *testing.T) {
	server := newTestServer(t, "", &fakeProvider{name: "openai"})

	t.Run("bad id", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/v1/jobs/not-a-uuid")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown id", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/v1/jobs/0d4c7c4a-36a7-4b85-9f1a-3e9f06a2b111")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestProvidersSnapshotEndpoint(t *testing.T) {
	failing := &fakeProvider{name: "openai", fn: func(ctx context.Context, req *providers.AnalysisRequest) (*providers.AnalysisResult, error) {
		return nil, providers.NewClassifiedError("openai", "rate limited", 429, true, nil)
	}}
	server := newTestServer(t, "", failing)

	resp := postJSON(t, server.URL+"/api/v1/analyze", `{"structured_data":{"a":1}}`, nil)
	_ = resp.Body.Close()

	getResp, err := http.Get(server.URL + "/api/v1/providers")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	var snapshot []routing.ProviderStatus
	decodeData(t, getResp, &snapshot)
	require.Len(t, snapshot, 1)
	assert.Equal(t, "openai", snapshot[0].Name)
	assert.False(t, snapshot[0].Eligible)
	assert.NotNil(t, snapshot[0].CooldownUntil)
	assert.Equal(t, 1, snapshot[0].ConsecutiveFailures)
}

func TestAPIKeyGuardsAPIRoutes(t *testing.T) {
	server := newTestServer(t, "topsecret", &fakeProvider{name: "openai"})

	t.Run("missing key rejected", func(t *testing.T) {
		resp := postJSON(t, server.URL+"/api/v1/analyze", `{"structured_data":{"a":1}}`, nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("correct key accepted", func(t *testing.T) {
		resp := postJSON(t, server.URL+"/api/v1/analyze", `{"structured_data":{"a":1}}`, map[string]string{"X-API-Key": "topsecret"})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("health endpoints stay open", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestOperationalEndpoints(t *testing.T) {
	server := newTestServer(t, "", &fakeProvider{name: "openai"})

	t.Run("healthz", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("readyz", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/readyz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("docs", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/v1/docs")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var doc map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
		assert.Contains(t, doc, "openapi")
		assert.Contains(t, doc, "paths")
	})

	t.Run("unknown route", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/nope")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
