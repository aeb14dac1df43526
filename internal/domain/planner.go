package domain

import "fmt"

// PlannerMode selects which question the planner is being asked.
type PlannerMode string

const (
	// ModeParseIntent asks for intent classification of the goal.
	ModeParseIntent PlannerMode = "parse_intent"

	// ModePlanStep asks for the next single tool call.
	ModePlanStep PlannerMode = "plan_step"

	// ModeEvaluate asks whether the goal is complete.
	ModeEvaluate PlannerMode = "evaluate"
)

// PlannerContext is the payload sent to the planner. The context manager
// widens it with each retry of the same stage: attempt 1 carries the goal
// and tool signatures only, attempt 2 adds the preceding failure, attempt 3+
// adds the cumulative progress log and a plan recap.
type PlannerContext struct {
	Mode    PlannerMode `json:"mode"`
	Goal    string      `json:"goal"`
	Attempt int         `json:"attempt"`

	ToolSignatures []ToolSignature `json:"tool_signatures"`

	// Attempt 2+.
	LastFailure *Failure `json:"last_failure,omitempty"`

	// Attempt 3+.
	Progress   []ProgressEntry `json:"progress,omitempty"`
	PlanRecap  []TodoItem      `json:"plan_recap,omitempty"`

	// Step planning inputs.
	Entities   []ResolvedEntity `json:"entities,omitempty"`
	LastResult *ToolResult      `json:"last_result,omitempty"`
	StepCount  int              `json:"step_count,omitempty"`
}

// DecisionKind tags the planner's structured decision.
type DecisionKind string

const (
	DecisionIntent     DecisionKind = "intent"
	DecisionStep       DecisionKind = "step"
	DecisionEvaluation DecisionKind = "evaluation"
)

// IntentDecision classifies the goal.
type IntentDecision struct {
	Intent       string   `json:"intent"`
	Complexity   string   `json:"complexity"`
	NeedsContext bool     `json:"needs_context"`
	Mentions     []string `json:"mentions,omitempty"`
}

// StepDecision proposes the next single tool call.
type StepDecision struct {
	Tool      ToolName       `json:"tool"`
	Args      map[string]any `json:"args"`
	Rationale string         `json:"rationale,omitempty"`
}

// EvalVerdict is the evaluator's conclusion about the last step.
type EvalVerdict string

const (
	VerdictComplete EvalVerdict = "complete"
	VerdictContinue EvalVerdict = "continue"
	VerdictRetry    EvalVerdict = "retry"
)

// EvalDecision judges completion after a tool execution.
type EvalDecision struct {
	Verdict EvalVerdict `json:"verdict"`
	Summary string      `json:"summary,omitempty"`
}

// PlannerDecision is the tagged union flowing back from the planner. Exactly
// one payload field matching Kind is set; consumers switch on Kind instead of
// probing field presence.
type PlannerDecision struct {
	Kind       DecisionKind    `json:"kind"`
	Intent     *IntentDecision `json:"intent,omitempty"`
	Step       *StepDecision   `json:"step,omitempty"`
	Evaluation *EvalDecision   `json:"evaluation,omitempty"`
}

// Validate checks the decision shape matches its tag.
func (d *PlannerDecision) Validate() error {
	switch d.Kind {
	case DecisionIntent:
		if d.Intent == nil {
			return fmt.Errorf("intent decision missing intent payload")
		}
	case DecisionStep:
		if d.Step == nil {
			return fmt.Errorf("step decision missing step payload")
		}
		if d.Step.Tool == "" {
			return fmt.Errorf("step decision missing tool name")
		}
	case DecisionEvaluation:
		if d.Evaluation == nil {
			return fmt.Errorf("evaluation decision missing evaluation payload")
		}
		switch d.Evaluation.Verdict {
		case VerdictComplete, VerdictContinue, VerdictRetry:
		default:
			return fmt.Errorf("unknown evaluation verdict: %q", d.Evaluation.Verdict)
		}
	default:
		return fmt.Errorf("unknown decision kind: %q", d.Kind)
	}
	return nil
}
