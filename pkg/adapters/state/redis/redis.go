package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ogghst/puntini/internal/domain"
)

const keyPrefix = "puntini:execution:"

// StateStore implements ports.StateStore on Redis. Checkpoints are JSON
// documents under one key per execution, with an optional default TTL.
type StateStore struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewStateStore creates a Redis state store. ttl 0 means no expiry on save.
func NewStateStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *StateStore {
	return &StateStore{
		client: client,
		logger: logger,
		ttl:    ttl,
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

	if err := s.client.Set(ctx, stateKey(state.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// Load retrieves the latest checkpoint for an execution.
func (s *StateStore) Load(ctx context.Context, executionID string) (*domain.ExecutionState, error) {
	data, err := s.client.Get(ctx, stateKey(executionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.NewError(domain.ErrCodeNotFound, "state not found: %s", executionID)
		}
		return nil, fmt.Errorf("failed to get state: %w", err)
	}

	var state domain.ExecutionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}

// Delete removes the checkpoint for an execution.
func (s *StateStore) Delete(ctx context.Context, executionID string) error {
	if err := s.client.Del(ctx, stateKey(executionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete state: %w", err)
	}
	return nil
}

// List returns all execution IDs with a stored checkpoint.
func (s *StateStore) List(ctx context.Context) ([]string, error) {
	var cursor uint64
	var ids []string

	for {
		batch, next, err := s.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}
		for _, key := range batch {
			ids = append(ids, key[len(keyPrefix):])
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return ids, nil
}

// SetTTL overrides the expiry of one execution's checkpoint.
func (s *StateStore) SetTTL(ctx context.Context, executionID string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, stateKey(executionID), ttl).Err(); err != nil {
		return fmt.Errorf("failed to set ttl: %w", err)
	}
	return nil
}

func stateKey(executionID string) string {
	return keyPrefix + executionID
}
