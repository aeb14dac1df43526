package domain

import "time"

// Stage names one unit of the orchestrator's control loop.
type Stage string

const (
	StageParseIntent     Stage = "parse_intent"
	StageResolveEntities Stage = "resolve_entities"
	StageDisambiguate    Stage = "disambiguate"
	StagePlanStep        Stage = "plan_step"
	StageExecuteTool     Stage = "execute_tool"
	StageEvaluate        Stage = "evaluate"
	StageDiagnose        Stage = "diagnose"
	StageEscalate        Stage = "escalate"
	StageAnswer          Stage = "answer"
)

// IsValid checks the stage is one of the defined constants.
func (s Stage) IsValid() bool {
	switch s {
	case StageParseIntent, StageResolveEntities, StageDisambiguate,
		StagePlanStep, StageExecuteTool, StageEvaluate,
		StageDiagnose, StageEscalate, StageAnswer:
		return true
	default:
		return false
	}
}

// IsSuspension reports whether the stage is a suspension point.
func (s Stage) IsSuspension() bool {
	return s == StageDisambiguate || s == StageEscalate
}

// ExecutionStatus is the coarse lifecycle status of one goal execution.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusSuspended ExecutionStatus = "suspended"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// IsTerminal reports whether the status ends the execution.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed || s == ExecutionStatusCancelled
}

// ErrorCategory is the classifier's verdict on a failure.
type ErrorCategory string

const (
	// CategoryIdentical means the error text matches the immediately
	// preceding failure for the same stage verbatim.
	CategoryIdentical ErrorCategory = "identical"

	// CategoryRandom means the error is assumed transient.
	CategoryRandom ErrorCategory = "random"

	// CategorySystematic means the error is deterministic and will recur
	// with the same inputs.
	CategorySystematic ErrorCategory = "systematic"
)

// Remediation is the classifier's recommended next move for a category.
type Remediation string

const (
	RemediationRetry            Remediation = "retry"
	RemediationRetryWithBackoff Remediation = "retry_with_backoff"
	RemediationEscalate         Remediation = "escalate"
)

// Failure records one classified failure. Appended to the failure log,
// never mutated or removed.
type Failure struct {
	Stage     Stage         `json:"stage"`
	Message   string        `json:"message"`
	Category  ErrorCategory `json:"category"`
	Attempt   int           `json:"attempt"`
	Timestamp time.Time     `json:"timestamp"`
}

// ProgressEntry is one append-only progress log line.
type ProgressEntry struct {
	Stage     Stage     `json:"stage"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Artifact records one durable product of the execution, typically a tool
// result envelope.
type Artifact struct {
	Kind      string    `json:"kind"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TodoStatus tracks a planned step through its lifecycle.
type TodoStatus string

const (
	TodoPending TodoStatus = "pending"
	TodoDone    TodoStatus = "done"
	TodoFailed  TodoStatus = "failed"
)

// TodoItem is one planned step in the execution's todo list.
type TodoItem struct {
	Description string         `json:"description"`
	Tool        ToolName       `json:"tool,omitempty"`
	Args        map[string]any `json:"args,omitempty"`
	Status      TodoStatus     `json:"status"`
}

// EscalationOption is one human-selectable choice offered on escalation.
type EscalationOption struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// EscalationContext is constructed only when the machine suspends for human
// input. Recommended names the option the system would pick itself.
type EscalationContext struct {
	Reason      string             `json:"reason"`
	Error       string             `json:"error,omitempty"`
	Options     []EscalationOption `json:"options"`
	Recommended string             `json:"recommended"`
	ResumeTo    Stage              `json:"resume_to"`
	Candidates  []*Node            `json:"candidates,omitempty"`
	Mention     string             `json:"mention,omitempty"`
}

// HumanChoice is the structured answer arriving over the human input channel
// while an execution is suspended.
type HumanChoice struct {
	OptionID string         `json:"option_id"`
	NodeID   string         `json:"node_id,omitempty"`
	Params   map[string]any `json:"params,omitempty"`
}

// ResolvedEntity binds a goal mention to an existing or proposed graph node.
type ResolvedEntity struct {
	Mention  string `json:"mention"`
	Label    string `json:"label"`
	Key      string `json:"key"`
	NodeID   string `json:"node_id,omitempty"`
	Existing bool   `json:"existing"`
}

// Ambiguity is an unresolved mention with more than one plausible binding.
type Ambiguity struct {
	Mention    string  `json:"mention"`
	Candidates []*Node `json:"candidates"`
}

// Resolution is the entity resolver's output.
type Resolution struct {
	Resolved    []ResolvedEntity `json:"resolved"`
	Ambiguities []Ambiguity      `json:"ambiguities"`
}

// ExecutionState is the full persisted state of one goal execution. It is
// owned exclusively by the stage currently holding control and checkpointed
// at every stage boundary so escalation can suspend and resume without loss.
type ExecutionState struct {
	ID     string          `json:"id"`
	Goal   string          `json:"goal"`
	Stage  Stage           `json:"stage"`
	Status ExecutionStatus `json:"status"`

	// Attempt counts retries of the current stage; it resets when the
	// stage advances. TotalRetries accumulates across the whole run and
	// is gated by MaxRetries.
	Attempt      int `json:"attempt"`
	TotalRetries int `json:"total_retries"`
	MaxRetries   int `json:"max_retries"`
	StepCount    int `json:"step_count"`

	Intent      *IntentDecision  `json:"intent,omitempty"`
	Entities    []ResolvedEntity `json:"entities,omitempty"`
	Ambiguities []Ambiguity      `json:"ambiguities,omitempty"`
	CurrentStep *StepDecision    `json:"current_step,omitempty"`
	LastResult  *ToolResult      `json:"last_result,omitempty"`

	Progress  []ProgressEntry `json:"progress"`
	Artifacts []Artifact      `json:"artifacts"`
	Failures  []Failure       `json:"failures"`
	Todo      []TodoItem      `json:"todo"`

	Escalation *EscalationContext `json:"escalation,omitempty"`

	// EscalationCount and LastEscalatedError detect an execution that
	// keeps failing identically after a human already intervened; that
	// is declared fatal instead of suspending again.
	EscalationCount    int    `json:"escalation_count"`
	LastEscalatedError string `json:"last_escalated_error,omitempty"`

	Answer string `json:"answer,omitempty"`
	Error  string `json:"error,omitempty"`

	SubmittedAt time.Time  `json:"submitted_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// LastFailure returns the most recent failure for the given stage, or nil.
func (s *ExecutionState) LastFailure(stage Stage) *Failure {
	for i := len(s.Failures) - 1; i >= 0; i-- {
		if s.Failures[i].Stage == stage {
			return &s.Failures[i]
		}
	}
	return nil
}

// RecordProgress appends one progress log line.
func (s *ExecutionState) RecordProgress(stage Stage, message string) {
	s.Progress = append(s.Progress, ProgressEntry{
		Stage:     stage,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// RecordFailure appends one classified failure.
func (s *ExecutionState) RecordFailure(stage Stage, message string, category ErrorCategory) {
	s.Failures = append(s.Failures, Failure{
		Stage:     stage,
		Message:   message,
		Category:  category,
		Attempt:   s.Attempt,
		Timestamp: time.Now(),
	})
}
