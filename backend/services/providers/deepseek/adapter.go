// Package deepseek adapts the DeepSeek API, which speaks the OpenAI
// chat completions wire format under its own base URL.
package deepseek

import (
	"github.com/upb/insight-gateway/backend/services/providers"
	"github.com/upb/insight-gateway/backend/services/providers/openai"
)

const defaultBaseURL = "https://api.deepseek.com/v1"

// NewAdapter creates the DeepSeek provider adapter.
func NewAdapter(config providers.Config) *openai.Adapter {
	return openai.NewCompatible("deepseek", defaultBaseURL, config)
}
