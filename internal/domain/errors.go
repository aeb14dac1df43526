package domain

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a class of failure in the error taxonomy.
type ErrorCode string

const (
	// ErrCodeValidation marks malformed input. Never retried automatically.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"

	// ErrCodeNotFound marks a match that found nothing. Surfaced to the caller.
	ErrCodeNotFound ErrorCode = "NOT_FOUND_ERROR"

	// ErrCodeConstraintViolation marks an identity conflict at the store layer.
	ErrCodeConstraintViolation ErrorCode = "CONSTRAINT_VIOLATION_ERROR"

	// ErrCodeTool marks an operation-specific failure raised by a tool itself.
	ErrCodeTool ErrorCode = "TOOL_ERROR"

	// ErrCodeSystem marks a missing dependency, e.g. no store configured.
	ErrCodeSystem ErrorCode = "SYSTEM_ERROR"
)

// Error is the typed error carried across the store, tool and orchestrator
// layers. Store-layer errors surface unchanged to the Tool Executor, which
// downgrades them into the canonical failure envelope.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a typed error with no underlying cause.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates a typed error wrapping an underlying cause.
func WrapError(code ErrorCode, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the error code, or empty string for untyped errors.
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsValidation reports whether err carries ErrCodeValidation.
func IsValidation(err error) bool { return CodeOf(err) == ErrCodeValidation }

// IsNotFound reports whether err carries ErrCodeNotFound.
func IsNotFound(err error) bool { return CodeOf(err) == ErrCodeNotFound }

// IsConstraintViolation reports whether err carries ErrCodeConstraintViolation.
func IsConstraintViolation(err error) bool { return CodeOf(err) == ErrCodeConstraintViolation }

// IsSystem reports whether err carries ErrCodeSystem.
func IsSystem(err error) bool { return CodeOf(err) == ErrCodeSystem }
