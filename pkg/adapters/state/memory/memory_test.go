package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogghst/puntini/internal/domain"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := NewStateStore()
	ctx := context.Background()

	state := &domain.ExecutionState{
		ID:     "exec-1",
		Goal:   "add alice",
		Stage:  domain.StagePlanStep,
		Status: domain.ExecutionStatusRunning,
	}
	state.RecordFailure(domain.StagePlanStep, "boom", domain.CategoryRandom)

	require.NoError(t, store.Save(ctx, state))

	loaded, err := store.Load(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, "add alice", loaded.Goal)
	assert.Equal(t, domain.StagePlanStep, loaded.Stage)
	require.Len(t, loaded.Failures, 1)
}

func TestLoadReturnsIsolatedCopy(t *testing.T) {
	store := NewStateStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.ExecutionState{ID: "exec-1", Goal: "original"}))

	first, err := store.Load(ctx, "exec-1")
	require.NoError(t, err)
	first.Goal = "mutated"

	second, err := store.Load(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, "original", second.Goal)
}

func TestLoadMissingIsNotFound(t *testing.T) {
	store := NewStateStore()

	_, err := store.Load(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestSaveRejectsMissingID(t *testing.T) {
	store := NewStateStore()

	err := store.Save(context.Background(), &domain.ExecutionState{})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestDeleteAndList(t *testing.T) {
	store := NewStateStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.ExecutionState{ID: "a"}))
	require.NoError(t, store.Save(ctx, &domain.ExecutionState{ID: "b"}))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)

	require.NoError(t, store.Delete(ctx, "a"))

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}

func TestSetTTLIsNoOp(t *testing.T) {
	store := NewStateStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.ExecutionState{ID: "a"}))
	require.NoError(t, store.SetTTL(ctx, "a", time.Hour))

	_, err := store.Load(ctx, "a")
	require.NoError(t, err)
}
