package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ogghst/puntini/internal/domain"
	"github.com/ogghst/puntini/internal/ports"
)

// Executor runs one named operation against the graph store with validated
// arguments and normalizes the outcome into the canonical ToolResult
// envelope. A raw error never escapes: every failure is downgraded into an
// error envelope carrying the error type and a retryable judgment.
type Executor struct {
	store   ports.GraphStore
	metrics ports.MetricsCollector
	logger  *zap.Logger

	ops map[domain.ToolName]operation
}

// NewExecutor builds the executor, discovering the operation set from the
// registration list.
func NewExecutor(store ports.GraphStore, metrics ports.MetricsCollector, logger *zap.Logger) *Executor {
	ops := make(map[domain.ToolName]operation)
	for _, op := range registered() {
		ops[op.name] = op
	}
	return &Executor{
		store:   store,
		metrics: metrics,
		logger:  logger,
		ops:     ops,
	}
}

// Execute validates the arguments for the named tool, invokes it and wraps
// the result. The returned envelope is always non-nil.
func (e *Executor) Execute(ctx context.Context, name domain.ToolName, args map[string]any) *domain.ToolResult {
	start := time.Now()

	if e.store == nil {
		return e.failure(name, domain.ToolErrSystem, "no graph store configured", start)
	}

	op, ok := e.ops[name]
	if !ok {
		return e.failure(name, domain.ToolErrValidation,
			fmt.Sprintf("unknown tool: %q", name), start)
	}

	if err := validateArgs(op, args); err != nil {
		return e.failure(name, domain.ToolErrValidation, err.Error(), start)
	}

	payload, err := op.invoke(ctx, e.store, args)
	elapsed := time.Since(start)

	if err != nil {
		errType := downgrade(err)
		result := &domain.ToolResult{
			Status:       domain.ToolStatusError,
			ToolName:     name,
			ErrorType:    errType,
			ErrorMessage: err.Error(),
			Retryable:    isRetryable(name, errType, err),
			Elapsed:      elapsed,
		}
		e.logger.Warn("tool execution failed",
			zap.String("tool", string(name)),
			zap.String("error_type", string(errType)),
			zap.Error(err))
		e.metrics.RecordToolExecution(name, "error", elapsed)
		return result
	}

	e.logger.Debug("tool executed",
		zap.String("tool", string(name)),
		zap.Duration("duration", elapsed))
	e.metrics.RecordToolExecution(name, "success", elapsed)

	return &domain.ToolResult{
		Status:     domain.ToolStatusSuccess,
		ToolName:   name,
		ResultKind: op.kind,
		Payload:    payload,
		Elapsed:    elapsed,
	}
}

// Signatures exposes the registered tool descriptions.
func (e *Executor) Signatures() []domain.ToolSignature {
	return Signatures()
}

func (e *Executor) failure(name domain.ToolName, errType domain.ToolErrorType, msg string, start time.Time) *domain.ToolResult {
	elapsed := time.Since(start)
	e.metrics.RecordToolExecution(name, "error", elapsed)
	return &domain.ToolResult{
		Status:       domain.ToolStatusError,
		ToolName:     name,
		ErrorType:    errType,
		ErrorMessage: msg,
		Retryable:    errType == domain.ToolErrSystem,
		Elapsed:      elapsed,
	}
}

// validateArgs checks the declared schema: every required argument present
// and of the expected shape.
func validateArgs(op operation, args map[string]any) error {
	for _, name := range op.required {
		v, ok := args[name]
		if !ok || v == nil {
			return fmt.Errorf("missing required argument %q for tool %q", name, op.name)
		}
		if err := checkShape(name, v); err != nil {
			return err
		}
	}
	for _, name := range op.optional {
		if v, ok := args[name]; ok && v != nil {
			if err := checkShape(name, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkShape(name string, v any) error {
	switch name {
	case "props", "params", "match":
		if _, ok := v.(map[string]any); !ok {
			return fmt.Errorf("argument %q must be an object", name)
		}
	case "depth":
		switch v.(type) {
		case int, int64, float64:
		default:
			return fmt.Errorf("argument %q must be a number", name)
		}
	default:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("argument %q must be a string", name)
		}
		if s == "" {
			return fmt.Errorf("argument %q must not be empty", name)
		}
	}
	return nil
}

// downgrade maps a store-layer error onto the envelope error type.
func downgrade(err error) domain.ToolErrorType {
	switch domain.CodeOf(err) {
	case domain.ErrCodeValidation:
		return domain.ToolErrValidation
	case domain.ErrCodeNotFound:
		return domain.ToolErrNotFound
	case domain.ErrCodeSystem:
		return domain.ToolErrSystem
	default:
		return domain.ToolErrTool
	}
}

// isRetryable derives the retry judgment the orchestrator consults: network
// and timeout phrasing points at transient trouble, and read-only
// query-class tools are always safe to run again. Validation and not-found
// failures are deterministic and never retryable.
func isRetryable(name domain.ToolName, errType domain.ToolErrorType, err error) bool {
	if errType == domain.ToolErrValidation || errType == domain.ToolErrNotFound {
		return false
	}
	if name.IsReadOnly() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"timeout", "timed out", "connection", "network", "unavailable", "temporarily", "broken pipe", "eof"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
