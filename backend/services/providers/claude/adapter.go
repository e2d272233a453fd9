// Package claude implements the analysis provider adapter for the
// Anthropic messages API.
package claude

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/upb/insight-gateway/backend/services/providers"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
	maxOutputTokens  = 1024
)

// Adapter implements providers.Provider for the Anthropic messages API.
type Adapter struct {
	config     providers.Config
	httpClient *http.Client
}

// NewAdapter creates a new Claude adapter
func NewAdapter(config providers.Config) *Adapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Adapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return "claude"
}

// CostPer1K returns the configured cost per 1000 estimated tokens
func (a *Adapter) CostPer1K() float64 {
	return a.config.CostPer1K
}

// Analyze performs an analysis request via the messages API
func (a *Adapter) Analyze(ctx context.Context, req *providers.AnalysisRequest) (*providers.AnalysisResult, error) {
	startTime := time.Now()

	prompt, err := providers.BuildPrompt(req)
	if err != nil {
		return nil, providers.NewClassifiedError(a.Name(), "failed to build prompt", 0, false, err)
	}

	msgReq := &messagesRequest{
		Model:     a.config.Model,
		MaxTokens: maxOutputTokens,
		System:    providers.SystemPrompt(),
		Messages: []message{
			{Role: "user", Content: prompt},
		},
	}

	reqBody, err := json.Marshal(msgReq)
	if err != nil {
		return nil, providers.NewClassifiedError(a.Name(), "failed to marshal request", 0, false, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/v1/messages", strings.NewReader(string(reqBody)))
	if err != nil {
		return nil, providers.NewClassifiedError(a.Name(), "failed to create request", 0, false, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.config.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, providers.NewClassifiedError(a.Name(), "http request failed", 0, true, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, providers.NewClassifiedError(a.Name(), "failed to read response", httpResp.StatusCode, true, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, a.handleErrorResponse(httpResp.StatusCode, respBody)
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(respBody, &msgResp); err != nil {
		return nil, providers.NewClassifiedError(a.Name(), "failed to unmarshal response", httpResp.StatusCode, false, err)
	}

	content := msgResp.textContent()
	if content == "" {
		return nil, providers.NewClassifiedError(a.Name(), "empty completion", httpResp.StatusCode, true, nil)
	}

	summary, insights, actions, confidence := providers.ParseModelOutput(content)

	return &providers.AnalysisResult{
		Summary:     summary,
		KeyInsights: insights,
		NextActions: actions,
		Metadata: providers.ResultMetadata{
			ConfidenceScore:  confidence,
			ModelVersion:     msgResp.Model,
			ProcessingTimeMS: time.Since(startTime).Milliseconds(),
			Timestamp:        time.Now().UTC(),
		},
		RawResponse: content,
	}, nil
}

// handleErrorResponse maps non-200 responses to classified errors.
// 429 and 5xx are retryable; 401, 402 and 403 are not.
func (a *Adapter) handleErrorResponse(statusCode int, body []byte) error {
	message := string(body)
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	retryable := statusCode == http.StatusTooManyRequests || statusCode >= 500

	return providers.NewClassifiedError(a.Name(), message, statusCode, retryable, errors.New(message))
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Content []contentBlock `json:"content"`
	Usage   usage          `json:"usage"`
}

func (r *messagesResponse) textContent() string {
	var sb strings.Builder
	for _, block := range r.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
