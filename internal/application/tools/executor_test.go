package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ogghst/puntini/internal/domain"
	"github.com/ogghst/puntini/pkg/adapters/graph/memory"
	"github.com/ogghst/puntini/pkg/adapters/metrics/nop"
)

func newExecutor(t *testing.T) *Executor {
	t.Helper()
	return NewExecutor(memory.NewGraphStore(), nop.NewCollector(), zap.NewNop())
}

func TestExecuteUpsertNodeSuccess(t *testing.T) {
	exec := newExecutor(t)

	result := exec.Execute(context.Background(), domain.ToolUpsertNode, map[string]any{
		"label": "Person",
		"key":   "john",
		"props": map[string]any{"age": 30},
	})

	require.True(t, result.Succeeded())
	assert.Equal(t, domain.ResultKindNode, result.ResultKind)
	node, ok := result.Payload.(*domain.Node)
	require.True(t, ok)
	assert.Equal(t, "Person", node.Label)
	assert.NotEmpty(t, node.ID)
	assert.GreaterOrEqual(t, result.Elapsed.Nanoseconds(), int64(0))
}

func TestExecuteUnknownTool(t *testing.T) {
	exec := newExecutor(t)

	result := exec.Execute(context.Background(), domain.ToolName("explode"), nil)

	assert.Equal(t, domain.ToolStatusError, result.Status)
	assert.Equal(t, domain.ToolErrValidation, result.ErrorType)
	assert.False(t, result.Retryable)
}

func TestExecuteMissingRequiredArg(t *testing.T) {
	exec := newExecutor(t)

	result := exec.Execute(context.Background(), domain.ToolUpsertNode, map[string]any{
		"label": "Person",
	})

	assert.Equal(t, domain.ToolErrValidation, result.ErrorType)
	assert.Contains(t, result.ErrorMessage, "key")
	assert.False(t, result.Retryable)
}

func TestExecuteWrongArgShape(t *testing.T) {
	exec := newExecutor(t)

	result := exec.Execute(context.Background(), domain.ToolUpsertNode, map[string]any{
		"label": "Person",
		"key":   "john",
		"props": "not-an-object",
	})

	assert.Equal(t, domain.ToolErrValidation, result.ErrorType)
}

func TestExecuteNotFoundDowngraded(t *testing.T) {
	exec := newExecutor(t)

	result := exec.Execute(context.Background(), domain.ToolDeleteNode, map[string]any{
		"match": map[string]any{"label": "Person", "key": "nobody"},
	})

	assert.Equal(t, domain.ToolStatusError, result.Status)
	assert.Equal(t, domain.ToolErrNotFound, result.ErrorType)
	assert.False(t, result.Retryable)
}

func TestExecuteNoStoreIsSystemError(t *testing.T) {
	exec := NewExecutor(nil, nop.NewCollector(), zap.NewNop())

	result := exec.Execute(context.Background(), domain.ToolUpsertNode, map[string]any{
		"label": "Person", "key": "john",
	})

	assert.Equal(t, domain.ToolErrSystem, result.ErrorType)
	assert.True(t, result.Retryable)
}

func TestExecuteSubgraph(t *testing.T) {
	exec := newExecutor(t)
	ctx := context.Background()

	for _, key := range []string{"a", "b"} {
		result := exec.Execute(ctx, domain.ToolUpsertNode, map[string]any{"label": "Person", "key": key})
		require.True(t, result.Succeeded())
	}
	result := exec.Execute(ctx, domain.ToolUpsertEdge, map[string]any{
		"type":         "KNOWS",
		"source_label": "Person", "source_key": "a",
		"target_label": "Person", "target_key": "b",
	})
	require.True(t, result.Succeeded())

	result = exec.Execute(ctx, domain.ToolGetSubgraph, map[string]any{
		"match": map[string]any{"label": "Person", "key": "a"},
		"depth": float64(1), // JSON numbers decode as float64
	})
	require.True(t, result.Succeeded())
	assert.Equal(t, domain.ResultKindSubgraph, result.ResultKind)

	sg, ok := result.Payload.(*domain.Subgraph)
	require.True(t, ok)
	assert.Len(t, sg.Nodes, 2)
	assert.Len(t, sg.Edges, 1)
}

func TestRetryableJudgment(t *testing.T) {
	tests := []struct {
		name     string
		tool     domain.ToolName
		errType  domain.ToolErrorType
		err      error
		expected bool
	}{
		{"network phrasing", domain.ToolUpsertNode, domain.ToolErrTool, errors.New("connection refused"), true},
		{"timeout phrasing", domain.ToolUpsertNode, domain.ToolErrTool, errors.New("request timed out"), true},
		{"read-only tool", domain.ToolGetSubgraph, domain.ToolErrTool, errors.New("weird backend hiccup"), true},
		{"query tool", domain.ToolRunQuery, domain.ToolErrTool, errors.New("whatever"), true},
		{"plain tool error", domain.ToolUpsertNode, domain.ToolErrTool, errors.New("duplicate key"), false},
		{"validation never", domain.ToolGetSubgraph, domain.ToolErrValidation, errors.New("connection timeout"), false},
		{"not found never", domain.ToolRunQuery, domain.ToolErrNotFound, errors.New("timeout"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRetryable(tt.tool, tt.errType, tt.err))
		})
	}
}

func TestSignaturesCoverKnownTools(t *testing.T) {
	sigs := Signatures()
	require.Len(t, sigs, len(domain.KnownTools()))

	byName := make(map[domain.ToolName]domain.ToolSignature)
	for _, sig := range sigs {
		byName[sig.Name] = sig
	}
	for _, name := range domain.KnownTools() {
		sig, ok := byName[name]
		require.True(t, ok, "missing signature for %s", name)
		assert.NotEmpty(t, sig.Description)
	}
}
