package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogghst/puntini/internal/domain"
)

func TestDecodeDecisionCleanJSON(t *testing.T) {
	d, err := decodeDecision(`{"kind":"step","step":{"tool":"upsert_node","args":{"label":"Person","key":"alice"}}}`)
	require.NoError(t, err)

	assert.Equal(t, domain.DecisionStep, d.Kind)
	require.NotNil(t, d.Step)
	assert.Equal(t, domain.ToolUpsertNode, d.Step.Tool)
}

func TestDecodeDecisionMarkdownFence(t *testing.T) {
	text := "```json\n{\"kind\":\"evaluation\",\"evaluation\":{\"verdict\":\"complete\",\"summary\":\"done\"}}\n```"

	d, err := decodeDecision(text)
	require.NoError(t, err)

	assert.Equal(t, domain.DecisionEvaluation, d.Kind)
	assert.Equal(t, domain.VerdictComplete, d.Evaluation.Verdict)
}

func TestDecodeDecisionRepairsAlmostJSON(t *testing.T) {
	// Single quotes and a trailing comma, typical model sloppiness.
	text := `{'kind': 'intent', 'intent': {'intent': 'mutate', 'complexity': 'simple', 'needs_context': true,}}`

	d, err := decodeDecision(text)
	require.NoError(t, err)

	assert.Equal(t, domain.DecisionIntent, d.Kind)
	assert.True(t, d.Intent.NeedsContext)
}

func TestDecodeDecisionRejectsGarbage(t *testing.T) {
	_, err := decodeDecision("I could not decide, sorry!")
	require.Error(t, err)
}

func TestDecodeDecisionRejectsMismatchedPayload(t *testing.T) {
	_, err := decodeDecision(`{"kind":"step"}`)
	require.Error(t, err)
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient("", "", nil, nil)
	require.Error(t, err)
}
