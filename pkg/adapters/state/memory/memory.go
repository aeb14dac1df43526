package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ogghst/puntini/internal/domain"
)

// StateStore implements ports.StateStore with an in-memory map. Checkpoints
// are stored as JSON so callers always get an isolated copy, exactly like
// the redis variant behaves.
type StateStore struct {
	states map[string][]byte
	mu     sync.RWMutex
}

// NewStateStore creates an in-memory state store.
func NewStateStore() *StateStore {
	return &StateStore{
		states: make(map[string][]byte),
	}
}

// Save persists a checkpoint for an execution.
func (s *StateStore) Save(ctx context.Context, state *domain.ExecutionState) error {
	if state == nil || state.ID == "" {
		return domain.NewError(domain.ErrCodeValidation, "state must have an execution id")
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.ID] = data
	return nil
}

// Load retrieves the latest checkpoint for an execution.
func (s *StateStore) Load(ctx context.Context, executionID string) (*domain.ExecutionState, error) {
	s.mu.RLock()
	data, ok := s.states[executionID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.NewError(domain.ErrCodeNotFound, "state not found: %s", executionID)
	}

	var state domain.ExecutionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}

// Delete removes the checkpoint for an execution.
func (s *StateStore) Delete(ctx context.Context, executionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, executionID)
	return nil
}

// List returns all execution IDs with a stored checkpoint.
func (s *StateStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.states))
	for id := range s.states {
		ids = append(ids, id)
	}
	return ids, nil
}

// SetTTL is a no-op for the in-memory store.
func (s *StateStore) SetTTL(ctx context.Context, executionID string, ttl time.Duration) error {
	return nil
}
