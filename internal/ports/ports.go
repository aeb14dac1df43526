package ports

import (
	"context"
	"time"

	"github.com/ogghst/puntini/internal/domain"
)

// GraphStore holds nodes and edges and exposes idempotent mutation, matching
// and bounded-depth traversal. Every operation is atomic: it succeeds or
// fails as a whole, never partially applies. Implementations must be safe
// for concurrent use; the in-memory store guards one operation with an
// exclusive lock, the Neo4j store relies on the database's native MERGE.
type GraphStore interface {
	// UpsertNode creates or merges a node keyed by (label, key). Applying
	// the same spec twice converges to one stored node with the same ID.
	UpsertNode(ctx context.Context, spec domain.NodeSpec) (*domain.Node, error)

	// UpsertEdge creates or merges an edge keyed by the (source, type,
	// target) tuple. Both endpoints must already exist.
	UpsertEdge(ctx context.Context, spec domain.EdgeSpec) (*domain.Edge, error)

	// UpdateProps applies a property delta to every node and edge matching
	// the spec. An empty delta never touches storage or raises.
	UpdateProps(ctx context.Context, match domain.MatchSpec, props map[string]any) error

	// DeleteNode removes every matching node, cascading to edges that
	// touch a deleted node.
	DeleteNode(ctx context.Context, match domain.MatchSpec) error

	// DeleteEdge removes every matching edge. Never touches nodes.
	DeleteEdge(ctx context.Context, match domain.MatchSpec) error

	// GetSubgraph expands breadth-first from all matching center nodes for
	// exactly depth hops. Depth 0 returns only the centers with no edges.
	GetSubgraph(ctx context.Context, match domain.MatchSpec, depth int) (*domain.Subgraph, error)

	// RunQuery is an escape hatch for ad hoc reads. The result shape is
	// store-defined; the orchestrator never depends on it.
	RunQuery(ctx context.Context, raw string, params map[string]any) (any, error)

	// Stats returns a cheap node/edge count snapshot.
	Stats(ctx context.Context) (domain.GraphStats, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}

// StateStore persists ExecutionState checkpoints, one record per execution.
type StateStore interface {
	Save(ctx context.Context, state *domain.ExecutionState) error
	Load(ctx context.Context, executionID string) (*domain.ExecutionState, error)
	Delete(ctx context.Context, executionID string) error
	List(ctx context.Context) ([]string, error)
	SetTTL(ctx context.Context, executionID string, ttl time.Duration) error
}

// EventHandler consumes one published event.
type EventHandler func(ctx context.Context, event domain.Event) error

// EventBus publishes execution lifecycle events to subscribers.
type EventBus interface {
	Publish(ctx context.Context, topic string, event domain.Event) error
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
	Unsubscribe(ctx context.Context, topic string) error
	Close() error
}

// Planner is the abstract LLM collaborator. One synchronous call per
// question; the mode inside the context selects intent classification, next
// step proposal or completion evaluation. A malformed/unparsable model
// response must surface as a validation-coded error so the classifier treats
// it as systematic; transport failures surface as plain errors.
type Planner interface {
	Decide(ctx context.Context, pc *domain.PlannerContext) (*domain.PlannerDecision, error)
}

// EntityResolver binds goal mentions to existing or new graph entities
// against a snapshot of the graph.
type EntityResolver interface {
	Resolve(ctx context.Context, mentions []string, snapshot *domain.Subgraph) (*domain.Resolution, error)
}

// MetricsCollector records orchestration metrics.
type MetricsCollector interface {
	RecordGoalSubmitted()
	RecordGoalFinished(status string, duration time.Duration)
	RecordStageTransition(from, to domain.Stage)
	RecordToolExecution(tool domain.ToolName, status string, duration time.Duration)
	RecordPlannerCall(mode domain.PlannerMode, duration time.Duration, inputTokens, outputTokens int64)
	RecordEscalation(reason string)
	SetActiveExecutions(n int)
	SetWorkerStatus(idle, busy, stopped int)
}
