package tools

import (
	"context"

	"github.com/ogghst/puntini/internal/domain"
	"github.com/ogghst/puntini/internal/ports"
)

// operation binds one known tool name to its argument schema and the store
// call it performs. The set of operations is closed: every case is declared
// in the registration list below and discovered at startup, never resolved
// from open-ended caller strings at call time.
type operation struct {
	name        domain.ToolName
	description string
	required    []string
	optional    []string
	kind        domain.ResultKind
	invoke      func(ctx context.Context, store ports.GraphStore, args map[string]any) (any, error)
}

// registered enumerates every operation the executor knows.
func registered() []operation {
	return []operation{
		{
			name:        domain.ToolUpsertNode,
			description: "Create a node or merge properties into an existing one, keyed by (label, key).",
			required:    []string{"label", "key"},
			optional:    []string{"props"},
			kind:        domain.ResultKindNode,
			invoke: func(ctx context.Context, store ports.GraphStore, args map[string]any) (any, error) {
				spec := domain.NodeSpec{
					Label: stringArg(args, "label"),
					Key:   stringArg(args, "key"),
					Props: mapArg(args, "props"),
				}
				return store.UpsertNode(ctx, spec)
			},
		},
		{
			name:        domain.ToolUpsertEdge,
			description: "Create or merge a relationship between two existing nodes, keyed by (source, type, target).",
			required:    []string{"type", "source_label", "source_key", "target_label", "target_key"},
			optional:    []string{"props"},
			kind:        domain.ResultKindEdge,
			invoke: func(ctx context.Context, store ports.GraphStore, args map[string]any) (any, error) {
				spec := domain.EdgeSpec{
					Type:        stringArg(args, "type"),
					SourceLabel: stringArg(args, "source_label"),
					SourceKey:   stringArg(args, "source_key"),
					TargetLabel: stringArg(args, "target_label"),
					TargetKey:   stringArg(args, "target_key"),
					Props:       mapArg(args, "props"),
				}
				return store.UpsertEdge(ctx, spec)
			},
		},
		{
			name:        domain.ToolUpdateProps,
			description: "Apply a property delta to every node and edge matching a filter.",
			required:    []string{"match", "props"},
			kind:        domain.ResultKindNone,
			invoke: func(ctx context.Context, store ports.GraphStore, args map[string]any) (any, error) {
				return nil, store.UpdateProps(ctx, matchArg(args), mapArg(args, "props"))
			},
		},
		{
			name:        domain.ToolDeleteNode,
			description: "Delete every node matching a filter, cascading to touching edges.",
			required:    []string{"match"},
			kind:        domain.ResultKindNone,
			invoke: func(ctx context.Context, store ports.GraphStore, args map[string]any) (any, error) {
				return nil, store.DeleteNode(ctx, matchArg(args))
			},
		},
		{
			name:        domain.ToolDeleteEdge,
			description: "Delete every edge matching a filter. Nodes are never touched.",
			required:    []string{"match"},
			kind:        domain.ResultKindNone,
			invoke: func(ctx context.Context, store ports.GraphStore, args map[string]any) (any, error) {
				return nil, store.DeleteEdge(ctx, matchArg(args))
			},
		},
		{
			name:        domain.ToolGetSubgraph,
			description: "Breadth-first expansion from all nodes matching a filter, bounded at depth hops.",
			required:    []string{"match"},
			optional:    []string{"depth"},
			kind:        domain.ResultKindSubgraph,
			invoke: func(ctx context.Context, store ports.GraphStore, args map[string]any) (any, error) {
				return store.GetSubgraph(ctx, matchArg(args), intArg(args, "depth"))
			},
		},
		{
			name:        domain.ToolRunQuery,
			description: "Run a raw ad hoc read query. Result shape is store-defined.",
			required:    []string{"query"},
			optional:    []string{"params"},
			kind:        domain.ResultKindRaw,
			invoke: func(ctx context.Context, store ports.GraphStore, args map[string]any) (any, error) {
				return store.RunQuery(ctx, stringArg(args, "query"), mapArg(args, "params"))
			},
		},
	}
}

// Signatures returns the minimal tool descriptions handed to the planner.
func Signatures() []domain.ToolSignature {
	ops := registered()
	sigs := make([]domain.ToolSignature, 0, len(ops))
	for _, op := range ops {
		sigs = append(sigs, domain.ToolSignature{
			Name:        op.name,
			Description: op.description,
			Required:    op.required,
			Optional:    op.optional,
		})
	}
	return sigs
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func mapArg(args map[string]any, name string) map[string]any {
	m, _ := args[name].(map[string]any)
	return m
}

func intArg(args map[string]any, name string) int {
	switch v := args[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func matchArg(args map[string]any) domain.MatchSpec {
	m := mapArg(args, "match")
	return domain.MatchSpec{
		ID:    stringArg(m, "id"),
		Label: stringArg(m, "label"),
		Key:   stringArg(m, "key"),
		Props: mapArg(m, "props"),
	}
}
