package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPromptIncludesDataAndNotes(t *testing.T) {
	req := &AnalysisRequest{
		StructuredData: map[string]interface{}{"revenue": 1250.5},
		Notes:          []string{"Q3 figures", "currency is USD"},
	}

	prompt, err := BuildPrompt(req)
	require.NoError(t, err)
	assert.Contains(t, prompt, `"revenue":1250.5`)
	assert.Contains(t, prompt, "- Q3 figures")
	assert.Contains(t, prompt, "- currency is USD")
}

func TestParseModelOutput(t *testing.T) {
	t.Run("strict json", func(t *testing.T) {
		content := `{"summary":"sales up","key_insights":["growth"],"next_actions":["restock"],"confidence_score":0.9}`
		summary, insights, actions, conf := ParseModelOutput(content)
		assert.Equal(t, "sales up", summary)
		assert.Equal(t, []string{"growth"}, insights)
		assert.Equal(t, []string{"restock"}, actions)
		assert.Equal(t, 0.9, conf)
	})

	t.Run("fenced json", func(t *testing.T) {
		content := "```json\n{\"summary\":\"ok\",\"confidence_score\":0.7}\n```"
		summary, _, _, conf := ParseModelOutput(content)
		assert.Equal(t, "ok", summary)
		assert.Equal(t, 0.7, conf)
	})

	t.Run("out of range confidence clamps to default", func(t *testing.T) {
		content := `{"summary":"ok","confidence_score":7}`
		_, _, _, conf := ParseModelOutput(content)
		assert.Equal(t, 0.5, conf)
	})

	t.Run("free text fallback", func(t *testing.T) {
		summary, insights, actions, conf := ParseModelOutput("  The data looks fine.  ")
		assert.Equal(t, "The data looks fine.", summary)
		assert.Nil(t, insights)
		assert.Nil(t, actions)
		assert.Equal(t, 0.3, conf)
	})
}
