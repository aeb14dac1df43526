package domain

import (
	"reflect"
	"time"
)

// Node is a stored graph node. The server-assigned ID is stable across
// updates; identity for idempotent upserts is the (Label, Key) pair.
type Node struct {
	ID        string         `json:"id"`
	Label     string         `json:"label"`
	Key       string         `json:"key"`
	Props     map[string]any `json:"props,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NaturalKey returns the label:key identity of the node.
func (n *Node) NaturalKey() string {
	return n.Label + ":" + n.Key
}

// Edge is a stored relationship between two nodes. Endpoint labels and keys
// are denormalized so the edge identity tuple survives node ID changes and
// re-matching stays idempotent.
type Edge struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	SourceID    string         `json:"source_id"`
	SourceLabel string         `json:"source_label"`
	SourceKey   string         `json:"source_key"`
	TargetID    string         `json:"target_id"`
	TargetLabel string         `json:"target_label"`
	TargetKey   string         `json:"target_key"`
	Props       map[string]any `json:"props,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NaturalKey returns the (source, type, target) identity tuple of the edge.
func (e *Edge) NaturalKey() string {
	return e.SourceLabel + ":" + e.SourceKey + "|" + e.Type + "|" + e.TargetLabel + ":" + e.TargetKey
}

// NodeSpec is an immutable creation/update intent for a node.
type NodeSpec struct {
	Label string         `json:"label"`
	Key   string         `json:"key"`
	Props map[string]any `json:"props,omitempty"`
}

// EdgeSpec is an immutable creation/update intent for an edge. Endpoints are
// referenced by natural key; both must already exist.
type EdgeSpec struct {
	Type        string         `json:"type"`
	SourceLabel string         `json:"source_label"`
	SourceKey   string         `json:"source_key"`
	TargetLabel string         `json:"target_label"`
	TargetKey   string         `json:"target_key"`
	Props       map[string]any `json:"props,omitempty"`
}

// MatchSpec is a filter over nodes and edges. All present fields must match
// (AND semantics). It is a filter, not an entity: a spec may match nodes,
// edges, both, or nothing.
type MatchSpec struct {
	ID    string         `json:"id,omitempty"`
	Label string         `json:"label,omitempty"`
	Key   string         `json:"key,omitempty"`
	Props map[string]any `json:"props,omitempty"`
}

// IsEmpty reports whether the spec constrains nothing.
func (m MatchSpec) IsEmpty() bool {
	return m.ID == "" && m.Label == "" && m.Key == "" && len(m.Props) == 0
}

// MatchesNode reports whether the node satisfies every present field.
func (m MatchSpec) MatchesNode(n *Node) bool {
	if m.ID != "" && m.ID != n.ID {
		return false
	}
	if m.Label != "" && m.Label != n.Label {
		return false
	}
	if m.Key != "" && m.Key != n.Key {
		return false
	}
	return propsSubset(m.Props, n.Props)
}

// MatchesEdge reports whether the edge satisfies every present field. The
// Label field matches the relationship type; Key is meaningless for edges
// and excludes them when set.
func (m MatchSpec) MatchesEdge(e *Edge) bool {
	if m.Key != "" {
		return false
	}
	if m.ID != "" && m.ID != e.ID {
		return false
	}
	if m.Label != "" && m.Label != e.Type {
		return false
	}
	return propsSubset(m.Props, e.Props)
}

// propsSubset compares with reflect.DeepEqual: property values may hold
// nested maps or slices, which == would panic on.
func propsSubset(want, have map[string]any) bool {
	for k, v := range want {
		got, ok := have[k]
		if !ok || !reflect.DeepEqual(got, v) {
			return false
		}
	}
	return true
}

// Subgraph is the result of a bounded-depth traversal: all reached nodes,
// the edges that reached them, and the IDs of the matched center nodes.
type Subgraph struct {
	Nodes   []*Node  `json:"nodes"`
	Edges   []*Edge  `json:"edges"`
	Centers []string `json:"centers"`
}

// GraphStats is a cheap size snapshot of a store.
type GraphStats struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

// MergeProps applies a property delta onto existing properties: keys present
// in delta win, keys absent from delta are preserved. Returns the merged map;
// existing may be nil.
func MergeProps(existing, delta map[string]any) map[string]any {
	merged := make(map[string]any, len(existing)+len(delta))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range delta {
		merged[k] = v
	}
	return merged
}
