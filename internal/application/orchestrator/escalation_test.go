package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogghst/puntini/internal/domain"
)

func newEscalationHandler() *EscalationHandler {
	return NewEscalationHandler(NewErrorClassifier())
}

func TestShouldEscalateOnRetryCeiling(t *testing.T) {
	h := newEscalationHandler()
	state := &domain.ExecutionState{TotalRetries: 3, MaxRetries: 3}

	assert.True(t, h.ShouldEscalate(state))
}

func TestShouldEscalateOnAmbiguity(t *testing.T) {
	h := newEscalationHandler()
	state := &domain.ExecutionState{
		MaxRetries:  3,
		Ambiguities: []domain.Ambiguity{{Mention: "alice"}},
	}

	assert.True(t, h.ShouldEscalate(state))
}

func TestShouldEscalateOnSystematicFailure(t *testing.T) {
	h := newEscalationHandler()
	state := &domain.ExecutionState{MaxRetries: 3}
	state.RecordFailure(domain.StagePlanStep, "bad shape", domain.CategorySystematic)

	assert.True(t, h.ShouldEscalate(state))
}

func TestShouldNotEscalateOnFirstIdentical(t *testing.T) {
	// One identical failure still has its bonus unchanged retry.
	h := newEscalationHandler()
	state := &domain.ExecutionState{MaxRetries: 3}
	state.RecordFailure(domain.StagePlanStep, "boom", domain.CategoryRandom)
	state.RecordFailure(domain.StagePlanStep, "boom", domain.CategoryIdentical)

	assert.False(t, h.ShouldEscalate(state))
}

func TestShouldEscalateWhenIdenticalExhausted(t *testing.T) {
	h := newEscalationHandler()
	state := &domain.ExecutionState{MaxRetries: 5}
	state.RecordFailure(domain.StagePlanStep, "boom", domain.CategoryRandom)
	state.RecordFailure(domain.StagePlanStep, "boom", domain.CategoryIdentical)
	state.RecordFailure(domain.StagePlanStep, "boom", domain.CategoryIdentical)

	assert.True(t, h.ShouldEscalate(state))
}

func TestIsFatalOnlyAfterHumanSawSameError(t *testing.T) {
	h := newEscalationHandler()
	state := &domain.ExecutionState{MaxRetries: 1}
	state.RecordFailure(domain.StagePlanStep, "boom", domain.CategoryRandom)

	assert.False(t, h.IsFatal(state))

	state.EscalationCount = 1
	state.LastEscalatedError = "boom"
	assert.True(t, h.IsFatal(state))

	state.RecordFailure(domain.StagePlanStep, "different", domain.CategoryRandom)
	assert.False(t, h.IsFatal(state))
}

func TestPrepareContextCeilingReason(t *testing.T) {
	h := newEscalationHandler()
	state := &domain.ExecutionState{TotalRetries: 3, MaxRetries: 3}
	state.RecordFailure(domain.StageExecuteTool, "timeout", domain.CategoryRandom)

	ec := h.PrepareContext(state)

	require.NotNil(t, ec)
	assert.Contains(t, ec.Reason, "retry ceiling")
	assert.Equal(t, "timeout", ec.Error)
	assert.Equal(t, domain.StageExecuteTool, ec.ResumeTo)
	assert.Equal(t, OptionRetry, ec.Recommended)
	assert.Len(t, ec.Options, 2)
}

func TestPrepareContextSystematicRecommendsAbort(t *testing.T) {
	h := newEscalationHandler()
	state := &domain.ExecutionState{MaxRetries: 3}
	state.RecordFailure(domain.StagePlanStep, "bad shape", domain.CategorySystematic)

	ec := h.PrepareContext(state)

	assert.Equal(t, OptionAbort, ec.Recommended)
	assert.Equal(t, domain.StagePlanStep, ec.ResumeTo)
}

func TestPrepareContextWithoutFailures(t *testing.T) {
	h := newEscalationHandler()
	state := &domain.ExecutionState{MaxRetries: 3}

	ec := h.PrepareContext(state)

	assert.NotEmpty(t, ec.Reason)
	assert.Equal(t, domain.StageParseIntent, ec.ResumeTo)
}
