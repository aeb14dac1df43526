package orchestrator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ogghst/puntini/internal/domain"
)

func TestClassifyFirstFailureIsRandom(t *testing.T) {
	c := NewErrorClassifier()
	state := &domain.ExecutionState{}

	category := c.Classify(state, domain.StagePlanStep, errors.New("connection refused"))

	assert.Equal(t, domain.CategoryRandom, category)
}

func TestClassifyValidationIsSystematic(t *testing.T) {
	c := NewErrorClassifier()
	state := &domain.ExecutionState{}

	err := domain.NewError(domain.ErrCodeValidation, "missing required arg")
	category := c.Classify(state, domain.StagePlanStep, err)

	assert.Equal(t, domain.CategorySystematic, category)
}

func TestClassifyRepeatedMessageIsIdentical(t *testing.T) {
	c := NewErrorClassifier()
	state := &domain.ExecutionState{}
	state.RecordFailure(domain.StagePlanStep, "connection refused", domain.CategoryRandom)

	category := c.Classify(state, domain.StagePlanStep, errors.New("connection refused"))

	assert.Equal(t, domain.CategoryIdentical, category)
}

func TestClassifyIdenticalWinsOverSystematic(t *testing.T) {
	// A repeated validation error is identical first: the repeat signal is
	// stronger evidence than the error code.
	c := NewErrorClassifier()
	state := &domain.ExecutionState{}
	err := domain.NewError(domain.ErrCodeValidation, "bad shape")
	state.RecordFailure(domain.StagePlanStep, err.Error(), domain.CategorySystematic)

	category := c.Classify(state, domain.StagePlanStep, err)

	assert.Equal(t, domain.CategoryIdentical, category)
}

func TestClassifySameMessageDifferentStageIsNotIdentical(t *testing.T) {
	c := NewErrorClassifier()
	state := &domain.ExecutionState{}
	state.RecordFailure(domain.StageParseIntent, "timeout", domain.CategoryRandom)

	category := c.Classify(state, domain.StagePlanStep, errors.New("timeout"))

	assert.Equal(t, domain.CategoryRandom, category)
}

func TestClassifyIsStableForSameInputs(t *testing.T) {
	c := NewErrorClassifier()
	state := &domain.ExecutionState{}
	state.RecordFailure(domain.StageExecuteTool, "boom", domain.CategoryRandom)

	first := c.Classify(state, domain.StageExecuteTool, errors.New("boom"))
	second := c.Classify(state, domain.StageExecuteTool, errors.New("boom"))

	assert.Equal(t, first, second)
}

func TestRemediationMapping(t *testing.T) {
	c := NewErrorClassifier()

	assert.Equal(t, domain.RemediationRetry, c.RemediationFor(domain.CategoryIdentical))
	assert.Equal(t, domain.RemediationEscalate, c.RemediationFor(domain.CategorySystematic))
	assert.Equal(t, domain.RemediationRetryWithBackoff, c.RemediationFor(domain.CategoryRandom))
}

func TestIdenticalExhausted(t *testing.T) {
	c := NewErrorClassifier()
	state := &domain.ExecutionState{}

	state.RecordFailure(domain.StagePlanStep, "boom", domain.CategoryRandom)
	assert.False(t, c.IdenticalExhausted(state, domain.StagePlanStep))

	state.RecordFailure(domain.StagePlanStep, "boom", domain.CategoryIdentical)
	assert.False(t, c.IdenticalExhausted(state, domain.StagePlanStep))

	state.RecordFailure(domain.StagePlanStep, "boom", domain.CategoryIdentical)
	assert.True(t, c.IdenticalExhausted(state, domain.StagePlanStep))
}

func TestIdenticalExhaustedIgnoresOtherStages(t *testing.T) {
	c := NewErrorClassifier()
	state := &domain.ExecutionState{}

	state.RecordFailure(domain.StagePlanStep, "boom", domain.CategoryIdentical)
	state.RecordFailure(domain.StageExecuteTool, "other", domain.CategoryRandom)
	state.RecordFailure(domain.StagePlanStep, "boom", domain.CategoryIdentical)

	assert.True(t, c.IdenticalExhausted(state, domain.StagePlanStep))
	assert.False(t, c.IdenticalExhausted(state, domain.StageExecuteTool))
}
