// Package openai implements the analysis provider adapter for the
// OpenAI chat completions API. The wire format is shared by several
// vendors, so the adapter can be instantiated under a different name
// and base URL (see the deepseek package).
package openai

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

const defaultBaseURL = "https://api.openai.com/v1"

// Adapter implements providers.Provider over the chat completions wire.
type Adapter struct {
	name       string
	config     providers.Config
	httpClient *http.Client
}

// NewAdapter creates the adapter for api.openai.com.
func NewAdapter(config providers.Config) *Adapter {
	return NewCompatible("openai", defaultBaseURL, config)
}

// NewCompatible creates an adapter for any OpenAI-wire-compatible
// vendor under its own name and default base URL.
func NewCompatible(name, baseURL string, config providers.Config) *Adapter {
	if config.BaseURL == "" {
		config.BaseURL = baseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Adapter{
		name:   name,
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return a.name
}

// CostPer1K returns the configured cost per 1000 estimated tokens
func (a *Adapter) CostPer1K() float64 {
	return a.config.CostPer1K
}

// Analyze performs an analysis request via chat completions
func (a *Adapter) Analyze(ctx context.Context, req *providers.AnalysisRequest) (*providers.AnalysisResult, error) {
	startTime := time.Now()

	prompt, err := providers.BuildPrompt(req)
	if err != nil {
		return nil, providers.NewClassifiedError(a.name, "failed to build prompt", 0, false, err)
	}

	chatReq := &chatRequest{
		Model: a.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: providers.SystemPrompt()},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.2,
	}

	reqBody, err := json.Marshal(chatReq)
	if err != nil {
		return nil, providers.NewClassifiedError(a.name, "failed to marshal request", 0, false, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/chat/completions", strings.NewReader(string(reqBody)))
	if err != nil {
		return nil, providers.NewClassifiedError(a.name, "failed to create request", 0, false, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.config.APIKey)

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, providers.NewClassifiedError(a.name, "http request failed", 0, true, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, providers.NewClassifiedError(a.name, "failed to read response", httpResp.StatusCode, true, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, a.handleErrorResponse(httpResp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, providers.NewClassifiedError(a.name, "failed to unmarshal response", httpResp.StatusCode, false, err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, providers.NewClassifiedError(a.name, "empty completion", httpResp.StatusCode, true, nil)
	}

	content := chatResp.Choices[0].Message.Content
	summary, insights, actions, confidence := providers.ParseModelOutput(content)

	return &providers.AnalysisResult{
		Summary:     summary,
		KeyInsights: insights,
		NextActions: actions,
		Metadata: providers.ResultMetadata{
			ConfidenceScore:  confidence,
			ModelVersion:     chatResp.Model,
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

	return providers.NewClassifiedError(a.name, message, statusCode, retryable, errors.New(message))
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}
