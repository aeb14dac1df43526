package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogghst/puntini/internal/domain"
)

func testSignatures() []domain.ToolSignature {
	return []domain.ToolSignature{
		{Name: domain.ToolUpsertNode, Description: "create or merge a node"},
	}
}

func TestBuildFirstAttemptIsMinimal(t *testing.T) {
	cm := NewContextManager(testSignatures())
	state := &domain.ExecutionState{Goal: "add alice", Attempt: 1}
	state.RecordFailure(domain.StagePlanStep, "old failure", domain.CategoryRandom)
	state.RecordProgress(domain.StagePlanStep, "planned something")

	pc := cm.Build(domain.ModeParseIntent, state)

	assert.Equal(t, "add alice", pc.Goal)
	assert.Equal(t, 1, pc.Attempt)
	assert.Len(t, pc.ToolSignatures, 1)
	assert.Nil(t, pc.LastFailure)
	assert.Empty(t, pc.Progress)
	assert.Empty(t, pc.PlanRecap)
}

func TestBuildSecondAttemptAddsLastFailure(t *testing.T) {
	cm := NewContextManager(testSignatures())
	state := &domain.ExecutionState{Goal: "add alice", Attempt: 2}
	state.RecordFailure(domain.StagePlanStep, "first", domain.CategoryRandom)
	state.RecordFailure(domain.StagePlanStep, "second", domain.CategoryRandom)
	state.RecordProgress(domain.StagePlanStep, "progress line")

	pc := cm.Build(domain.ModePlanStep, state)

	require.NotNil(t, pc.LastFailure)
	assert.Equal(t, "second", pc.LastFailure.Message)
	assert.Empty(t, pc.Progress)
}

func TestBuildThirdAttemptAddsHistory(t *testing.T) {
	cm := NewContextManager(testSignatures())
	state := &domain.ExecutionState{Goal: "add alice", Attempt: 3}
	state.RecordFailure(domain.StagePlanStep, "boom", domain.CategoryRandom)
	state.RecordProgress(domain.StagePlanStep, "progress line")
	state.Todo = append(state.Todo, domain.TodoItem{
		Description: "create node",
		Tool:        domain.ToolUpsertNode,
		Status:      domain.TodoDone,
		Args:        map[string]any{"label": "Person"},
	})

	pc := cm.Build(domain.ModePlanStep, state)

	require.NotNil(t, pc.LastFailure)
	assert.Len(t, pc.Progress, 1)
	require.Len(t, pc.PlanRecap, 1)
	// Recap drops args to keep the payload small.
	assert.Nil(t, pc.PlanRecap[0].Args)
	assert.Equal(t, domain.ToolUpsertNode, pc.PlanRecap[0].Tool)
}

func TestBuildStepModesCarryExecutionInputs(t *testing.T) {
	cm := NewContextManager(testSignatures())
	state := &domain.ExecutionState{
		Goal:       "add alice",
		Attempt:    1,
		StepCount:  2,
		Entities:   []domain.ResolvedEntity{{Mention: "alice", Key: "alice"}},
		LastResult: &domain.ToolResult{ToolName: domain.ToolUpsertNode, Status: domain.ToolStatusSuccess},
	}

	intent := cm.Build(domain.ModeParseIntent, state)
	assert.Empty(t, intent.Entities)
	assert.Nil(t, intent.LastResult)

	step := cm.Build(domain.ModePlanStep, state)
	assert.Len(t, step.Entities, 1)
	assert.NotNil(t, step.LastResult)
	assert.Equal(t, 2, step.StepCount)

	eval := cm.Build(domain.ModeEvaluate, state)
	assert.NotNil(t, eval.LastResult)
}
