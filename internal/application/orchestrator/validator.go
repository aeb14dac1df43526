package orchestrator

import (
	"strings"

	"github.com/ogghst/puntini/internal/domain"
)

// maxGoalLength bounds submitted goal text.
const maxGoalLength = 4096

// Validator validates goal submissions and planned steps before they reach
// the stage machine.
type Validator struct {
	known map[domain.ToolName]bool
}

// NewValidator creates a validator over the registered tool catalog.
func NewValidator(signatures []domain.ToolSignature) *Validator {
	known := make(map[domain.ToolName]bool, len(signatures))
	for _, sig := range signatures {
		known[sig.Name] = true
	}
	return &Validator{known: known}
}

// ValidateGoal checks a submitted goal is usable free text.
func (v *Validator) ValidateGoal(goal string) error {
	trimmed := strings.TrimSpace(goal)
	if trimmed == "" {
		return domain.NewError(domain.ErrCodeValidation, "goal text is required")
	}
	if len(trimmed) > maxGoalLength {
		return domain.NewError(domain.ErrCodeValidation,
			"goal text exceeds %d characters", maxGoalLength)
	}
	return nil
}

// ValidateStep checks a planned step references a known tool.
func (v *Validator) ValidateStep(step *domain.StepDecision) error {
	if step == nil {
		return domain.NewError(domain.ErrCodeValidation, "planned step is nil")
	}
	if !v.known[step.Tool] {
		return domain.NewError(domain.ErrCodeValidation, "planned step references unknown tool %q", step.Tool)
	}
	if step.Args == nil {
		step.Args = map[string]any{}
	}
	return nil
}
