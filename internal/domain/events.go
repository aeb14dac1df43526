package domain

import "time"

// EventType names one execution lifecycle event.
type EventType string

const (
	EventTypeGoalSubmitted   EventType = "goal.submitted"
	EventTypeStageEntered    EventType = "stage.entered"
	EventTypeToolExecuted    EventType = "tool.executed"
	EventTypeFailureRecorded EventType = "failure.recorded"
	EventTypeSuspended       EventType = "execution.suspended"
	EventTypeResumed         EventType = "execution.resumed"
	EventTypeCompleted       EventType = "execution.completed"
	EventTypeFailed          EventType = "execution.failed"
	EventTypeCancelled       EventType = "execution.cancelled"
)

// Event is one execution lifecycle notification published at stage
// boundaries. Consumers (websocket stream, metrics) filter by ExecutionID.
type Event struct {
	ID          string         `json:"id"`
	Type        EventType      `json:"type"`
	ExecutionID string         `json:"execution_id"`
	Stage       Stage          `json:"stage,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Data        map[string]any `json:"data,omitempty"`
}
