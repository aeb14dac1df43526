package orchestrator

import (
	"github.com/ogghst/puntini/internal/domain"
)

// ErrorClassifier categorizes failures so the diagnose stage can pick a
// remediation. Classification happens at the moment a failure is appended:
// the category is part of the immutable failure record.
type ErrorClassifier struct{}

// NewErrorClassifier creates a stateless classifier. All the history it
// needs lives in the execution's failure log.
func NewErrorClassifier() *ErrorClassifier {
	return &ErrorClassifier{}
}

// Classify categorizes an error against the failure history of one stage.
//
//   - identical: the error text matches the immediately preceding failure
//     for the same stage verbatim
//   - systematic: a validation/schema-shape error, deterministic, will
//     recur with the same inputs
//   - random: everything else, assumed transient
func (c *ErrorClassifier) Classify(state *domain.ExecutionState, stage domain.Stage, err error) domain.ErrorCategory {
	if prev := state.LastFailure(stage); prev != nil && prev.Message == err.Error() {
		return domain.CategoryIdentical
	}
	if domain.IsValidation(err) {
		return domain.CategorySystematic
	}
	return domain.CategoryRandom
}

// RemediationFor maps a category onto the next move. An identical failure
// gets exactly one unchanged retry; a random one retries with backoff up to
// the ceiling; a systematic one escalates immediately, since retrying a
// deterministic error wastes attempts.
func (c *ErrorClassifier) RemediationFor(category domain.ErrorCategory) domain.Remediation {
	switch category {
	case domain.CategoryIdentical:
		return domain.RemediationRetry
	case domain.CategorySystematic:
		return domain.RemediationEscalate
	default:
		return domain.RemediationRetryWithBackoff
	}
}

// IdenticalExhausted reports whether the stage's failure log ends with two
// or more consecutive identical-category failures, meaning the single
// unchanged retry an identical error is entitled to has been spent.
func (c *ErrorClassifier) IdenticalExhausted(state *domain.ExecutionState, stage domain.Stage) bool {
	run := 0
	for i := len(state.Failures) - 1; i >= 0; i-- {
		f := state.Failures[i]
		if f.Stage != stage {
			continue
		}
		if f.Category != domain.CategoryIdentical {
			break
		}
		run++
		if run >= 2 {
			return true
		}
	}
	return run >= 2
}
