package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ogghst/puntini/internal/domain"
)

// runStage executes the stage named by the state and returns the next stage.
// Every transition is an explicit status check on the stage's output; there
// is no implicit fallthrough. A stage never lets a raw error escape: it
// either produces a success delta or appends a classified failure and
// routes to diagnose.
func (m *Manager) runStage(ctx context.Context, state *domain.ExecutionState) domain.Stage {
	switch state.Stage {
	case domain.StageParseIntent:
		return m.stageParseIntent(ctx, state)
	case domain.StageResolveEntities:
		return m.stageResolveEntities(ctx, state)
	case domain.StageDisambiguate:
		return m.stageDisambiguate(ctx, state)
	case domain.StagePlanStep:
		return m.stagePlanStep(ctx, state)
	case domain.StageExecuteTool:
		return m.stageExecuteTool(ctx, state)
	case domain.StageEvaluate:
		return m.stageEvaluate(ctx, state)
	case domain.StageDiagnose:
		return m.stageDiagnose(ctx, state)
	case domain.StageEscalate:
		return m.stageEscalate(ctx, state)
	case domain.StageAnswer:
		return m.stageAnswer(ctx, state)
	default:
		state.RecordFailure(state.Stage, fmt.Sprintf("unknown stage: %q", state.Stage), domain.CategorySystematic)
		return domain.StageEscalate
	}
}

// fail classifies the error, appends it to the failure log and routes to
// diagnose.
func (m *Manager) fail(state *domain.ExecutionState, stage domain.Stage, err error) domain.Stage {
	category := m.classifier.Classify(state, stage, err)
	state.RecordFailure(stage, err.Error(), category)

	m.logger.Warn("stage failed",
		zap.String("execution_id", state.ID),
		zap.String("stage", string(stage)),
		zap.String("category", string(category)),
		zap.Int("attempt", state.Attempt),
		zap.Error(err))

	m.publishEvent(state, domain.EventTypeFailureRecorded, map[string]any{
		"stage":    string(stage),
		"category": string(category),
		"error":    err.Error(),
	})
	return domain.StageDiagnose
}

// advance resets the per-stage attempt counter when a stage completes
// successfully and control moves forward.
func advance(state *domain.ExecutionState, next domain.Stage) domain.Stage {
	state.Attempt = 1
	return next
}

func (m *Manager) stageParseIntent(ctx context.Context, state *domain.ExecutionState) domain.Stage {
	if m.planner == nil {
		state.RecordFailure(domain.StageParseIntent, "no planner configured", domain.CategorySystematic)
		return domain.StageEscalate
	}

	pc := m.contexts.Build(domain.ModeParseIntent, state)
	decision, err := m.planner.Decide(ctx, pc)
	if err != nil {
		return m.fail(state, domain.StageParseIntent, err)
	}
	if err := decision.Validate(); err != nil || decision.Kind != domain.DecisionIntent {
		return m.fail(state, domain.StageParseIntent,
			domain.WrapError(domain.ErrCodeValidation, err, "planner returned malformed intent decision"))
	}

	state.Intent = decision.Intent
	state.RecordProgress(domain.StageParseIntent,
		fmt.Sprintf("intent %q (complexity %s)", decision.Intent.Intent, decision.Intent.Complexity))

	if decision.Intent.NeedsContext {
		return advance(state, domain.StageResolveEntities)
	}
	return advance(state, domain.StagePlanStep)
}

func (m *Manager) stageResolveEntities(ctx context.Context, state *domain.ExecutionState) domain.Stage {
	var mentions []string
	if state.Intent != nil {
		mentions = state.Intent.Mentions
	}

	snapshot := m.graphSnapshot(ctx)
	resolution, err := m.resolver.Resolve(ctx, mentions, snapshot)
	if err != nil {
		return m.fail(state, domain.StageResolveEntities, err)
	}

	state.Entities = append(state.Entities, resolution.Resolved...)
	state.RecordProgress(domain.StageResolveEntities,
		fmt.Sprintf("resolved %d entities, %d ambiguous", len(resolution.Resolved), len(resolution.Ambiguities)))

	if len(resolution.Ambiguities) > 0 {
		state.Ambiguities = resolution.Ambiguities
		return advance(state, domain.StageDisambiguate)
	}
	return advance(state, domain.StagePlanStep)
}

// stageDisambiguate is a suspension point: it presents the ambiguous
// candidates to a human and halts forward progress until a choice arrives
// through ResumeWithInput.
func (m *Manager) stageDisambiguate(ctx context.Context, state *domain.ExecutionState) domain.Stage {
	if len(state.Ambiguities) == 0 {
		return advance(state, domain.StagePlanStep)
	}

	amb := state.Ambiguities[0]
	options := make([]domain.EscalationOption, 0, len(amb.Candidates)+1)
	for _, c := range amb.Candidates {
		options = append(options, domain.EscalationOption{
			ID:          c.ID,
			Description: fmt.Sprintf("Use existing %s %q", c.Label, c.Key),
		})
	}
	options = append(options, domain.EscalationOption{
		ID:          OptionAbort,
		Description: "Abort the execution",
	})

	recommended := OptionAbort
	if len(amb.Candidates) > 0 {
		recommended = amb.Candidates[0].ID
	}

	state.Escalation = &domain.EscalationContext{
		Reason:      fmt.Sprintf("mention %q matches %d entities", amb.Mention, len(amb.Candidates)),
		Options:     options,
		Recommended: recommended,
		ResumeTo:    domain.StagePlanStep,
		Candidates:  amb.Candidates,
		Mention:     amb.Mention,
	}
	m.suspend(state)
	return domain.StageDisambiguate
}

func (m *Manager) stagePlanStep(ctx context.Context, state *domain.ExecutionState) domain.Stage {
	if state.StepCount >= m.opts.StepLimit {
		state.RecordFailure(domain.StagePlanStep,
			fmt.Sprintf("step limit exceeded (%d)", m.opts.StepLimit), domain.CategorySystematic)
		return domain.StageEscalate
	}

	pc := m.contexts.Build(domain.ModePlanStep, state)
	decision, err := m.planner.Decide(ctx, pc)
	if err != nil {
		return m.fail(state, domain.StagePlanStep, err)
	}
	if err := decision.Validate(); err != nil || decision.Kind != domain.DecisionStep {
		return m.fail(state, domain.StagePlanStep,
			domain.WrapError(domain.ErrCodeValidation, err, "planner returned malformed step decision"))
	}
	if err := m.validator.ValidateStep(decision.Step); err != nil {
		return m.fail(state, domain.StagePlanStep, err)
	}

	state.CurrentStep = decision.Step
	description := decision.Step.Rationale
	if description == "" {
		description = string(decision.Step.Tool)
	}
	state.Todo = append(state.Todo, domain.TodoItem{
		Description: description,
		Tool:        decision.Step.Tool,
		Args:        decision.Step.Args,
		Status:      domain.TodoPending,
	})
	state.RecordProgress(domain.StagePlanStep, fmt.Sprintf("planned %s", decision.Step.Tool))

	return advance(state, domain.StageExecuteTool)
}

func (m *Manager) stageExecuteTool(ctx context.Context, state *domain.ExecutionState) domain.Stage {
	step := state.CurrentStep
	if step == nil {
		return m.fail(state, domain.StageExecuteTool,
			domain.NewError(domain.ErrCodeSystem, "no planned step to execute"))
	}

	result := m.executor.Execute(ctx, step.Tool, step.Args)
	state.LastResult = result
	state.Artifacts = append(state.Artifacts, domain.Artifact{
		Kind:      string(result.ResultKind),
		Payload:   result,
		Timestamp: time.Now(),
	})
	m.publishEvent(state, domain.EventTypeToolExecuted, map[string]any{
		"tool":   string(step.Tool),
		"status": string(result.Status),
	})

	if !result.Succeeded() {
		markLastTodo(state, domain.TodoFailed)
		return m.fail(state, domain.StageExecuteTool, toolError(result))
	}

	state.StepCount++
	markLastTodo(state, domain.TodoDone)
	state.RecordProgress(domain.StageExecuteTool,
		fmt.Sprintf("%s succeeded (%s)", step.Tool, result.ResultKind))
	return advance(state, domain.StageEvaluate)
}

func (m *Manager) stageEvaluate(ctx context.Context, state *domain.ExecutionState) domain.Stage {
	pc := m.contexts.Build(domain.ModeEvaluate, state)
	decision, err := m.planner.Decide(ctx, pc)
	if err != nil {
		return m.fail(state, domain.StageEvaluate, err)
	}
	if err := decision.Validate(); err != nil || decision.Kind != domain.DecisionEvaluation {
		return m.fail(state, domain.StageEvaluate,
			domain.WrapError(domain.ErrCodeValidation, err, "planner returned malformed evaluation"))
	}

	eval := decision.Evaluation
	state.RecordProgress(domain.StageEvaluate, fmt.Sprintf("verdict %s", eval.Verdict))

	switch eval.Verdict {
	case domain.VerdictComplete:
		state.Answer = eval.Summary
		return advance(state, domain.StageAnswer)
	case domain.VerdictContinue:
		return advance(state, domain.StagePlanStep)
	default: // VerdictRetry
		msg := eval.Summary
		if msg == "" {
			msg = "evaluator judged the last result unusable"
		}
		return m.fail(state, domain.StageEvaluate, fmt.Errorf("%s", msg))
	}
}

// stageDiagnose picks a remediation for the most recent failure: retry the
// failed stage, retry after a backoff, or hand off to escalation.
func (m *Manager) stageDiagnose(ctx context.Context, state *domain.ExecutionState) domain.Stage {
	if len(state.Failures) == 0 {
		return advance(state, domain.StagePlanStep)
	}
	last := state.Failures[len(state.Failures)-1]

	if m.escalation.ShouldEscalate(state) {
		return domain.StageEscalate
	}

	switch m.classifier.RemediationFor(last.Category) {
	case domain.RemediationEscalate:
		return domain.StageEscalate
	case domain.RemediationRetryWithBackoff:
		if !m.backoff(ctx, state.Attempt) {
			return domain.StageEscalate
		}
	case domain.RemediationRetry:
		// Retry unchanged, no delay.
	}

	state.TotalRetries++
	state.Attempt++
	state.RecordProgress(domain.StageDiagnose,
		fmt.Sprintf("retrying %s (attempt %d)", last.Stage, state.Attempt))
	return last.Stage
}

// stageEscalate suspends the machine pending human input, or declares the
// execution fatally failed when a human already saw the same error.
func (m *Manager) stageEscalate(ctx context.Context, state *domain.ExecutionState) domain.Stage {
	if m.escalation.IsFatal(state) {
		state.Status = domain.ExecutionStatusFailed
		state.Error = fmt.Sprintf("fatal: failure recurred unchanged after human intervention: %s",
			state.LastEscalatedError)
		now := time.Now()
		state.CompletedAt = &now
		return domain.StageEscalate
	}

	ec := m.escalation.PrepareContext(state)
	state.Escalation = ec
	state.EscalationCount++
	state.LastEscalatedError = ec.Error
	m.metrics.RecordEscalation(ec.Reason)
	m.suspend(state)
	return domain.StageEscalate
}

// stageAnswer is terminal: it summarizes results and completes the run.
func (m *Manager) stageAnswer(ctx context.Context, state *domain.ExecutionState) domain.Stage {
	if state.Answer == "" {
		state.Answer = fmt.Sprintf("goal completed in %d steps", state.StepCount)
	}
	state.Status = domain.ExecutionStatusCompleted
	now := time.Now()
	state.CompletedAt = &now
	state.RecordProgress(domain.StageAnswer, "execution completed")
	return domain.StageAnswer
}

// backoff sleeps exponentially on the attempt number. Returns false when
// the context was cancelled while waiting.
func (m *Manager) backoff(ctx context.Context, attempt int) bool {
	delay := m.opts.BackoffBase
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		return false
	}
}

// graphSnapshot grabs a shallow neighborhood of the whole graph for entity
// resolution. An empty graph yields an empty snapshot, not an error.
func (m *Manager) graphSnapshot(ctx context.Context) *domain.Subgraph {
	sg, err := m.graph.GetSubgraph(ctx, domain.MatchSpec{}, 1)
	if err != nil {
		return &domain.Subgraph{}
	}
	return sg
}

func markLastTodo(state *domain.ExecutionState, status domain.TodoStatus) {
	if len(state.Todo) > 0 {
		state.Todo[len(state.Todo)-1].Status = status
	}
}

// toolError lifts a failed envelope back into a typed error so the
// classifier sees validation failures as systematic.
func toolError(result *domain.ToolResult) error {
	var code domain.ErrorCode
	switch result.ErrorType {
	case domain.ToolErrValidation:
		code = domain.ErrCodeValidation
	case domain.ToolErrNotFound:
		code = domain.ErrCodeNotFound
	case domain.ToolErrSystem:
		code = domain.ErrCodeSystem
	default:
		code = domain.ErrCodeTool
	}
	return domain.NewError(code, "%s", result.ErrorMessage)
}
