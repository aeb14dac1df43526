package orchestrator

import (
	"github.com/ogghst/puntini/internal/domain"
)

// ContextManager produces the payload sent to the planner, widening it with
// each retry of the same stage (progressive disclosure): attempt 1 carries
// the goal and minimal tool signatures only, attempt 2 adds the structured
// error from the immediately preceding failure, attempt 3+ adds the
// cumulative progress log and a condensed plan recap. Repeated planner calls
// are charged with larger context only when earlier attempts failed.
type ContextManager struct {
	signatures []domain.ToolSignature
}

// NewContextManager creates a context manager over a fixed tool catalog.
func NewContextManager(signatures []domain.ToolSignature) *ContextManager {
	return &ContextManager{signatures: signatures}
}

// Build assembles the planner context for the given mode at the execution's
// current attempt.
func (c *ContextManager) Build(mode domain.PlannerMode, state *domain.ExecutionState) *domain.PlannerContext {
	pc := &domain.PlannerContext{
		Mode:           mode,
		Goal:           state.Goal,
		Attempt:        state.Attempt,
		ToolSignatures: c.signatures,
	}

	// Step planning and evaluation always see the resolved entities and
	// the last tool result; disclosure widening applies to history only.
	if mode == domain.ModePlanStep || mode == domain.ModeEvaluate {
		pc.Entities = state.Entities
		pc.LastResult = state.LastResult
		pc.StepCount = state.StepCount
	}

	if state.Attempt >= 2 && len(state.Failures) > 0 {
		last := state.Failures[len(state.Failures)-1]
		pc.LastFailure = &last
	}

	if state.Attempt >= 3 {
		pc.Progress = state.Progress
		pc.PlanRecap = condensePlan(state.Todo)
	}

	return pc
}

// condensePlan strips args from the todo list, keeping only what the
// planner needs to recap earlier planning.
func condensePlan(todo []domain.TodoItem) []domain.TodoItem {
	recap := make([]domain.TodoItem, 0, len(todo))
	for _, item := range todo {
		recap = append(recap, domain.TodoItem{
			Description: item.Description,
			Tool:        item.Tool,
			Status:      item.Status,
		})
	}
	return recap
}
