package orchestrator

import (
	"fmt"

	"github.com/ogghst/puntini/internal/domain"
)

// Escalation option identifiers offered to the human.
const (
	OptionRetry = "retry"
	OptionAbort = "abort"
)

// EscalationHandler decides when the machine must suspend for human input
// and constructs the context handed over the human input channel.
type EscalationHandler struct {
	classifier *ErrorClassifier
}

// NewEscalationHandler creates an escalation handler sharing the machine's
// classifier.
func NewEscalationHandler(classifier *ErrorClassifier) *EscalationHandler {
	return &EscalationHandler{classifier: classifier}
}

// ShouldEscalate is true when the retry ceiling is exceeded, the latest
// failure is systematic, an identical failure has spent its bonus retry, or
// entity resolution reports unresolved ambiguity.
func (h *EscalationHandler) ShouldEscalate(state *domain.ExecutionState) bool {
	if state.TotalRetries >= state.MaxRetries {
		return true
	}
	if len(state.Ambiguities) > 0 {
		return true
	}
	if len(state.Failures) > 0 {
		last := state.Failures[len(state.Failures)-1]
		if last.Category == domain.CategorySystematic {
			return true
		}
		if last.Category == domain.CategoryIdentical && h.classifier.IdenticalExhausted(state, last.Stage) {
			return true
		}
	}
	return false
}

// IsFatal reports whether suspending again would be pointless: the same
// failure already went to a human once and recurred unchanged.
func (h *EscalationHandler) IsFatal(state *domain.ExecutionState) bool {
	if state.EscalationCount == 0 || len(state.Failures) == 0 {
		return false
	}
	return state.Failures[len(state.Failures)-1].Message == state.LastEscalatedError
}

// PrepareContext summarizes the situation and offers the human a set of
// actions plus a recommendation.
func (h *EscalationHandler) PrepareContext(state *domain.ExecutionState) *domain.EscalationContext {
	ec := &domain.EscalationContext{
		Options: []domain.EscalationOption{
			{ID: OptionRetry, Description: "Retry from the stage that failed"},
			{ID: OptionAbort, Description: "Abort the execution"},
		},
		Recommended: OptionRetry,
		ResumeTo:    domain.StageParseIntent,
	}

	if len(state.Failures) > 0 {
		last := state.Failures[len(state.Failures)-1]
		ec.Error = last.Message
		ec.ResumeTo = last.Stage
		switch {
		case state.TotalRetries >= state.MaxRetries:
			ec.Reason = fmt.Sprintf("retry ceiling reached (%d of %d)", state.TotalRetries, state.MaxRetries)
		case last.Category == domain.CategorySystematic:
			ec.Reason = "deterministic failure; retrying with the same inputs would recur"
			ec.Recommended = OptionAbort
		case last.Category == domain.CategoryIdentical:
			ec.Reason = "the same failure repeated verbatim after an unchanged retry"
		default:
			ec.Reason = "unrecoverable failure"
		}
	} else {
		ec.Reason = "execution cannot proceed without human input"
	}

	return ec
}
