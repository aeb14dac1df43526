package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ogghst/puntini/internal/application/tools"
	"github.com/ogghst/puntini/internal/application/workers"
	"github.com/ogghst/puntini/internal/domain"
	"github.com/ogghst/puntini/internal/ports"
)

// EventTopic is the bus topic all execution lifecycle events go to.
const EventTopic = "execution.events"

// Options tune one Manager instance. Zero values are replaced by defaults
// in NewManager.
type Options struct {
	// MaxRetries is the total retry ceiling across the whole execution,
	// not per stage.
	MaxRetries int

	// StepLimit caps how many tool steps a single goal may take.
	StepLimit int

	// BackoffBase is the first delay of the exponential backoff ladder.
	BackoffBase time.Duration

	// CheckpointTTL is applied to the persisted state once an execution
	// reaches a terminal status.
	CheckpointTTL time.Duration
}

// Manager drives goal executions through the stage machine. It owns the
// stage loop, persists a checkpoint at every stage boundary, and suspends
// and resumes executions around human input.
type Manager struct {
	planner  ports.Planner
	resolver ports.EntityResolver
	executor *tools.Executor
	graph    ports.GraphStore
	states   ports.StateStore
	bus      ports.EventBus
	metrics  ports.MetricsCollector
	pool     *workers.Pool
	logger   *zap.Logger
	opts     Options

	validator  *Validator
	contexts   *ContextManager
	classifier *ErrorClassifier
	escalation *EscalationHandler

	// Track live (running or suspended) executions
	executions sync.Map // map[string]*executionHandle

	mu     sync.Mutex
	active int
	closed bool
	wg     sync.WaitGroup
}

// executionHandle tracks one live execution's cancellation scope.
type executionHandle struct {
	id         string
	startedAt  time.Time
	cancelFunc context.CancelFunc
}

// NewManager wires the stage machine together. pool may be nil, in which
// case each execution runs on its own goroutine.
func NewManager(
	planner ports.Planner,
	resolver ports.EntityResolver,
	executor *tools.Executor,
	graph ports.GraphStore,
	states ports.StateStore,
	bus ports.EventBus,
	metrics ports.MetricsCollector,
	pool *workers.Pool,
	logger *zap.Logger,
	opts Options,
) *Manager {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.StepLimit <= 0 {
		opts.StepLimit = 20
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 500 * time.Millisecond
	}

	classifier := NewErrorClassifier()

	return &Manager{
		planner:    planner,
		resolver:   resolver,
		executor:   executor,
		graph:      graph,
		states:     states,
		bus:        bus,
		metrics:    metrics,
		pool:       pool,
		logger:     logger,
		opts:       opts,
		validator:  NewValidator(executor.Signatures()),
		contexts:   NewContextManager(executor.Signatures()),
		classifier: classifier,
		escalation: NewEscalationHandler(classifier),
	}
}

// SubmitGoal validates and accepts a natural-language goal, returning the
// new execution's ID. The execution starts asynchronously.
func (m *Manager) SubmitGoal(ctx context.Context, goal string) (string, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", fmt.Errorf("manager is shut down")
	}
	m.mu.Unlock()

	if err := m.validator.ValidateGoal(goal); err != nil {
		m.logger.Warn("goal rejected", zap.Error(err))
		return "", fmt.Errorf("validation failed: %w", err)
	}

	executionID := uuid.New().String()

	state := &domain.ExecutionState{
		ID:          executionID,
		Goal:        goal,
		Stage:       domain.StageParseIntent,
		Status:      domain.ExecutionStatusRunning,
		Attempt:     1,
		MaxRetries:  m.opts.MaxRetries,
		SubmittedAt: time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := m.states.Save(ctx, state); err != nil {
		m.logger.Error("failed to save initial state",
			zap.String("execution_id", executionID),
			zap.Error(err))
		return "", fmt.Errorf("failed to save state: %w", err)
	}

	m.publishEvent(state, domain.EventTypeGoalSubmitted, map[string]any{
		"goal": goal,
	})

	execCtx, cancel := context.WithCancel(context.Background())
	m.executions.Store(executionID, &executionHandle{
		id:         executionID,
		startedAt:  time.Now(),
		cancelFunc: cancel,
	})
	m.trackActive(+1)

	m.metrics.RecordGoalSubmitted()
	m.logger.Info("goal submitted",
		zap.String("execution_id", executionID),
		zap.Int("goal_length", len(goal)))

	m.dispatch(func() {
		m.loop(execCtx, state)
	})

	return executionID, nil
}

// GetState returns the persisted checkpoint of an execution.
func (m *Manager) GetState(ctx context.Context, executionID string) (*domain.ExecutionState, error) {
	state, err := m.states.Load(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	return state, nil
}

// ListExecutions returns the IDs of all executions with a stored checkpoint.
func (m *Manager) ListExecutions(ctx context.Context) ([]string, error) {
	ids, err := m.states.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	return ids, nil
}

// ResumeWithInput applies a human choice to a suspended execution and
// restarts its stage loop. Fails when the execution is not suspended.
func (m *Manager) ResumeWithInput(ctx context.Context, executionID string, choice domain.HumanChoice) error {
	state, err := m.states.Load(ctx, executionID)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}
	if state.Status != domain.ExecutionStatusSuspended {
		return domain.NewError(domain.ErrCodeValidation,
			"execution %s is %s, not suspended", executionID, state.Status)
	}
	if state.Escalation == nil {
		return domain.NewError(domain.ErrCodeSystem,
			"execution %s suspended without escalation context", executionID)
	}

	switch state.Stage {
	case domain.StageDisambiguate:
		if err := m.applyDisambiguation(state, choice); err != nil {
			return err
		}
	case domain.StageEscalate:
		if err := m.applyEscalationChoice(state, choice); err != nil {
			return err
		}
	default:
		return domain.NewError(domain.ErrCodeSystem,
			"execution %s suspended at non-suspension stage %s", executionID, state.Stage)
	}

	state.UpdatedAt = time.Now()
	if err := m.states.Save(ctx, state); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}

	if state.Status.IsTerminal() {
		m.finish(ctx, state)
		return nil
	}

	m.publishEvent(state, domain.EventTypeResumed, map[string]any{
		"option_id": choice.OptionID,
		"stage":     string(state.Stage),
	})
	m.logger.Info("execution resumed",
		zap.String("execution_id", executionID),
		zap.String("option_id", choice.OptionID),
		zap.String("stage", string(state.Stage)))

	// Each resume gets a fresh cancellation scope; the suspended loop
	// already returned, so only the handle survives.
	execCtx, cancel := context.WithCancel(context.Background())
	startedAt := time.Now()
	if val, loaded := m.executions.Load(executionID); loaded {
		old := val.(*executionHandle)
		old.cancelFunc()
		startedAt = old.startedAt
	} else {
		// Resumed after a restart: the handle was never registered.
		m.trackActive(+1)
	}
	m.executions.Store(executionID, &executionHandle{
		id:         executionID,
		startedAt:  startedAt,
		cancelFunc: cancel,
	})

	m.dispatch(func() {
		m.loop(execCtx, state)
	})

	return nil
}

// applyDisambiguation binds the chosen candidate to the pending mention, or
// aborts the execution.
func (m *Manager) applyDisambiguation(state *domain.ExecutionState, choice domain.HumanChoice) error {
	if choice.OptionID == OptionAbort {
		m.abort(state, "aborted by human during disambiguation")
		return nil
	}

	if len(state.Ambiguities) == 0 {
		return domain.NewError(domain.ErrCodeSystem, "no pending ambiguity to resolve")
	}
	amb := state.Ambiguities[0]

	nodeID := choice.NodeID
	if nodeID == "" {
		nodeID = choice.OptionID
	}

	var chosen *domain.Node
	for _, c := range amb.Candidates {
		if c.ID == nodeID {
			chosen = c
			break
		}
	}
	if chosen == nil {
		return domain.NewError(domain.ErrCodeValidation,
			"option %q does not name a candidate for mention %q", choice.OptionID, amb.Mention)
	}

	state.Entities = append(state.Entities, domain.ResolvedEntity{
		Mention:  amb.Mention,
		Label:    chosen.Label,
		Key:      chosen.Key,
		NodeID:   chosen.ID,
		Existing: true,
	})
	state.Ambiguities = state.Ambiguities[1:]
	state.RecordProgress(domain.StageDisambiguate,
		fmt.Sprintf("human bound %q to %s %q", amb.Mention, chosen.Label, chosen.Key))

	state.Escalation = nil
	state.Status = domain.ExecutionStatusRunning
	if len(state.Ambiguities) > 0 {
		// More mentions waiting; the loop re-enters disambiguation and
		// suspends again for the next one.
		state.Stage = domain.StageDisambiguate
	} else {
		state.Stage = domain.StagePlanStep
	}
	state.Attempt = 1
	return nil
}

// applyEscalationChoice either retries from the failed stage with a fresh
// retry ledger or abandons the execution.
func (m *Manager) applyEscalationChoice(state *domain.ExecutionState, choice domain.HumanChoice) error {
	switch choice.OptionID {
	case OptionRetry:
		resumeTo := state.Escalation.ResumeTo
		if !resumeTo.IsValid() {
			resumeTo = domain.StageParseIntent
		}
		state.Stage = resumeTo
		state.Status = domain.ExecutionStatusRunning
		state.Escalation = nil
		// Human approval buys a clean retry ledger.
		state.TotalRetries = 0
		state.Attempt = 1
		state.RecordProgress(domain.StageEscalate,
			fmt.Sprintf("human approved retry from %s", resumeTo))
		return nil

	case OptionAbort:
		m.abort(state, "aborted by human during escalation")
		return nil

	default:
		return domain.NewError(domain.ErrCodeValidation,
			"unknown escalation option %q", choice.OptionID)
	}
}

func (m *Manager) abort(state *domain.ExecutionState, reason string) {
	state.Status = domain.ExecutionStatusFailed
	state.Error = reason
	state.Escalation = nil
	now := time.Now()
	state.CompletedAt = &now
	state.RecordProgress(state.Stage, reason)
}

// Cancel stops a live execution. Terminal executions cannot be cancelled.
func (m *Manager) Cancel(ctx context.Context, executionID string) error {
	state, err := m.states.Load(ctx, executionID)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}
	if state.Status.IsTerminal() {
		return domain.NewError(domain.ErrCodeValidation,
			"execution %s already in terminal status %s", executionID, state.Status)
	}

	if val, ok := m.executions.Load(executionID); ok {
		val.(*executionHandle).cancelFunc()
	}

	state.Status = domain.ExecutionStatusCancelled
	state.Escalation = nil
	now := time.Now()
	state.CompletedAt = &now
	state.UpdatedAt = now
	if err := m.states.Save(ctx, state); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}

	m.publishEvent(state, domain.EventTypeCancelled, nil)
	m.finish(ctx, state)

	m.logger.Info("execution cancelled", zap.String("execution_id", executionID))
	return nil
}

// Shutdown cancels all live executions and waits for their loops to drain.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.executions.Range(func(_, val any) bool {
		val.(*executionHandle).cancelFunc()
		return true
	})

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("orchestrator shut down")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout")
	}
}

// loop advances one execution until it suspends, terminates or its context
// is cancelled. Each stage boundary is checkpointed before the next stage
// runs, so a crash resumes at the last boundary.
func (m *Manager) loop(ctx context.Context, state *domain.ExecutionState) {
	for state.Status == domain.ExecutionStatusRunning {
		select {
		case <-ctx.Done():
			m.markCancelled(state)
			m.finish(context.Background(), state)
			return
		default:
		}

		from := state.Stage
		next := m.runStage(ctx, state)

		if next != from {
			m.metrics.RecordStageTransition(from, next)
			state.Stage = next
			m.publishEvent(state, domain.EventTypeStageEntered, map[string]any{
				"from": string(from),
			})
		}

		state.UpdatedAt = time.Now()
		if err := m.states.Save(context.Background(), state); err != nil {
			m.logger.Error("checkpoint failed",
				zap.String("execution_id", state.ID),
				zap.String("stage", string(state.Stage)),
				zap.Error(err))
		}
	}

	switch state.Status {
	case domain.ExecutionStatusSuspended:
		// The handle stays registered so Cancel still works while a
		// human decides.
		m.logger.Info("execution suspended",
			zap.String("execution_id", state.ID),
			zap.String("stage", string(state.Stage)))
	case domain.ExecutionStatusCompleted, domain.ExecutionStatusFailed, domain.ExecutionStatusCancelled:
		m.finish(context.Background(), state)
	}
}

// markCancelled flips a running state to cancelled after its context died.
func (m *Manager) markCancelled(state *domain.ExecutionState) {
	state.Status = domain.ExecutionStatusCancelled
	now := time.Now()
	state.CompletedAt = &now
	state.UpdatedAt = now
	if err := m.states.Save(context.Background(), state); err != nil {
		m.logger.Error("failed to save cancelled state",
			zap.String("execution_id", state.ID), zap.Error(err))
	}
	m.publishEvent(state, domain.EventTypeCancelled, nil)
}

// finish performs terminal bookkeeping exactly once per execution.
func (m *Manager) finish(ctx context.Context, state *domain.ExecutionState) {
	val, loaded := m.executions.LoadAndDelete(state.ID)
	if !loaded {
		return
	}
	handle := val.(*executionHandle)
	handle.cancelFunc()
	m.trackActive(-1)

	duration := time.Since(handle.startedAt)
	m.metrics.RecordGoalFinished(string(state.Status), duration)

	switch state.Status {
	case domain.ExecutionStatusCompleted:
		m.publishEvent(state, domain.EventTypeCompleted, map[string]any{
			"answer": state.Answer,
			"steps":  state.StepCount,
		})
	case domain.ExecutionStatusFailed:
		m.publishEvent(state, domain.EventTypeFailed, map[string]any{
			"error": state.Error,
		})
	}

	if m.opts.CheckpointTTL > 0 {
		if err := m.states.SetTTL(ctx, state.ID, m.opts.CheckpointTTL); err != nil {
			m.logger.Warn("failed to set checkpoint ttl",
				zap.String("execution_id", state.ID), zap.Error(err))
		}
	}

	m.logger.Info("execution finished",
		zap.String("execution_id", state.ID),
		zap.String("status", string(state.Status)),
		zap.Duration("duration", duration),
		zap.Int("steps", state.StepCount),
		zap.Int("total_retries", state.TotalRetries))
}

// dispatch runs fn on the worker pool when one is configured, falling back
// to a plain goroutine when the pool is absent or saturated.
func (m *Manager) dispatch(fn func()) {
	m.wg.Add(1)
	job := func() {
		defer m.wg.Done()
		fn()
	}
	if m.pool != nil {
		if err := m.pool.Submit(job); err == nil {
			return
		}
		m.logger.Warn("worker pool rejected job, running inline")
	}
	go job()
}

// suspend flips the state to suspended and announces it. The caller has
// already placed the escalation context on the state.
// suspend checkpoints the suspended state before announcing it, so a client
// reacting to the event always loads a resumable checkpoint.
func (m *Manager) suspend(state *domain.ExecutionState) {
	state.Status = domain.ExecutionStatusSuspended
	state.UpdatedAt = time.Now()
	if err := m.states.Save(context.Background(), state); err != nil {
		m.logger.Error("checkpoint failed",
			zap.String("execution_id", state.ID),
			zap.String("stage", string(state.Stage)),
			zap.Error(err))
	}
	data := map[string]any{}
	if state.Escalation != nil {
		data["reason"] = state.Escalation.Reason
		data["resume_to"] = string(state.Escalation.ResumeTo)
	}
	m.publishEvent(state, domain.EventTypeSuspended, data)
}

// publishEvent emits one lifecycle event. Publication failures are logged
// and swallowed: the event stream is advisory, the checkpoint is the truth.
func (m *Manager) publishEvent(state *domain.ExecutionState, eventType domain.EventType, data map[string]any) {
	event := domain.Event{
		ID:          uuid.New().String(),
		Type:        eventType,
		ExecutionID: state.ID,
		Stage:       state.Stage,
		Timestamp:   time.Now(),
		Data:        data,
	}
	if err := m.bus.Publish(context.Background(), EventTopic, event); err != nil {
		m.logger.Error("failed to publish event",
			zap.String("execution_id", state.ID),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
}

func (m *Manager) trackActive(delta int) {
	m.mu.Lock()
	m.active += delta
	n := m.active
	m.mu.Unlock()
	m.metrics.SetActiveExecutions(n)
}
