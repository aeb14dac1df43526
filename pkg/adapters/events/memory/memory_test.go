package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogghst/puntini/internal/domain"
)

func TestPublishReachesSubscribers(t *testing.T) {
	bus := NewEventBus()
	ctx := context.Background()

	var got []domain.Event
	err := bus.Subscribe(ctx, "execution.events", func(ctx context.Context, event domain.Event) error {
		got = append(got, event)
		return nil
	})
	require.NoError(t, err)

	event := domain.Event{ID: "e1", Type: domain.EventTypeGoalSubmitted, ExecutionID: "x1"}
	require.NoError(t, bus.Publish(ctx, "execution.events", event))

	require.Len(t, got, 1)
	assert.Equal(t, "e1", got[0].ID)
}

func TestPublishIgnoresOtherTopics(t *testing.T) {
	bus := NewEventBus()
	ctx := context.Background()

	calls := 0
	require.NoError(t, bus.Subscribe(ctx, "topic-a", func(ctx context.Context, event domain.Event) error {
		calls++
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, "topic-b", domain.Event{ID: "e1"}))
	assert.Zero(t, calls)
}

func TestHandlerErrorDoesNotStopDelivery(t *testing.T) {
	bus := NewEventBus()
	ctx := context.Background()

	second := 0
	require.NoError(t, bus.Subscribe(ctx, "t", func(ctx context.Context, event domain.Event) error {
		return errors.New("handler broke")
	}))
	require.NoError(t, bus.Subscribe(ctx, "t", func(ctx context.Context, event domain.Event) error {
		second++
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, "t", domain.Event{ID: "e1"}))
	assert.Equal(t, 1, second)
}

func TestUnsubscribeRemovesTopic(t *testing.T) {
	bus := NewEventBus()
	ctx := context.Background()

	calls := 0
	require.NoError(t, bus.Subscribe(ctx, "t", func(ctx context.Context, event domain.Event) error {
		calls++
		return nil
	}))
	require.NoError(t, bus.Unsubscribe(ctx, "t"))

	require.NoError(t, bus.Publish(ctx, "t", domain.Event{ID: "e1"}))
	assert.Zero(t, calls)
}

func TestClosedBusRejectsPublish(t *testing.T) {
	bus := NewEventBus()

	require.NoError(t, bus.Close())

	err := bus.Publish(context.Background(), "t", domain.Event{ID: "e1"})
	require.Error(t, err)
}
