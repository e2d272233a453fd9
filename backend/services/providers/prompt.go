package providers

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = `You are an analysis engine. Given structured data and optional notes,
respond with a single JSON object and nothing else, using exactly these fields:
{"summary": string, "key_insights": [string], "next_actions": [string], "confidence_score": number between 0 and 1}`

// BuildPrompt renders the user-facing prompt for an analysis request.
// Structured data is embedded as JSON so the model sees exact values.
func BuildPrompt(req *AnalysisRequest) (string, error) {
	data, err := json.Marshal(req.StructuredData)
	if err != nil {
		return "", fmt.Errorf("failed to encode structured data: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Analyze the following data:\n")
	sb.Write(data)
	if len(req.Notes) > 0 {
		sb.WriteString("\n\nAdditional notes:\n")
		for _, note := range req.Notes {
			sb.WriteString("- ")
			sb.WriteString(note)
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

// SystemPrompt returns the shared system instruction for all adapters.
func SystemPrompt() string {
	return systemPrompt
}

type modelOutput struct {
	Summary         string   `json:"summary"`
	KeyInsights     []string `json:"key_insights"`
	NextActions     []string `json:"next_actions"`
	ConfidenceScore float64  `json:"confidence_score"`
}

// ParseModelOutput interprets the model's text as the strict JSON object
// the system prompt requests. Models occasionally wrap the object in
// code fences or prose, so the first balanced object is extracted. When
// no parseable object is present the whole text becomes the summary
// with a reduced confidence score.
func ParseModelOutput(content string) (summary string, insights, actions []string, confidence float64) {
	raw := extractJSONObject(content)
	if raw != "" {
		var out modelOutput
		if err := json.Unmarshal([]byte(raw), &out); err == nil && out.Summary != "" {
			conf := out.ConfidenceScore
			if conf <= 0 || conf > 1 {
				conf = 0.5
			}
			return out.Summary, out.KeyInsights, out.NextActions, conf
		}
	}
	return strings.TrimSpace(content), nil, nil, 0.3
}

// extractJSONObject returns the first top-level {...} block in s, or "".
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
