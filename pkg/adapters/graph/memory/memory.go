package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ogghst/puntini/internal/domain"
)

// GraphStore implements ports.GraphStore with plain maps. A single exclusive
// lock guards the key-to-identifier indexes for the duration of one
// operation, which makes every operation atomic.
type GraphStore struct {
	mu sync.Mutex

	nodes   map[string]*domain.Node // by server-assigned ID
	edges   map[string]*domain.Edge // by server-assigned ID
	nodeIdx map[string]string       // natural key -> node ID
	edgeIdx map[string]string       // identity tuple -> edge ID
}

// NewGraphStore creates an empty in-memory graph store.
func NewGraphStore() *GraphStore {
	return &GraphStore{
		nodes:   make(map[string]*domain.Node),
		edges:   make(map[string]*domain.Edge),
		nodeIdx: make(map[string]string),
		edgeIdx: make(map[string]string),
	}
}

func nodeKey(label, key string) string {
	return label + ":" + key
}

func edgeKey(spec domain.EdgeSpec) string {
	return spec.SourceLabel + ":" + spec.SourceKey + "|" + spec.Type + "|" + spec.TargetLabel + ":" + spec.TargetKey
}

// UpsertNode creates or merges a node keyed by (label, key). New property
// keys win, existing keys absent from the delta are preserved. The second
// call with the same spec returns the same identifier.
func (s *GraphStore) UpsertNode(ctx context.Context, spec domain.NodeSpec) (*domain.Node, error) {
	if spec.Label == "" || spec.Key == "" {
		return nil, domain.NewError(domain.ErrCodeValidation, "node label and key are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if id, ok := s.nodeIdx[nodeKey(spec.Label, spec.Key)]; ok {
		node := s.nodes[id]
		node.Props = domain.MergeProps(node.Props, spec.Props)
		node.UpdatedAt = now
		return copyNode(node), nil
	}

	node := &domain.Node{
		ID:        uuid.New().String(),
		Label:     spec.Label,
		Key:       spec.Key,
		Props:     domain.MergeProps(nil, spec.Props),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.nodes[node.ID] = node
	s.nodeIdx[nodeKey(spec.Label, spec.Key)] = node.ID
	return copyNode(node), nil
}

// UpsertEdge creates or merges an edge keyed by the (source, type, target)
// tuple. Fails with a not-found error if either endpoint is missing.
func (s *GraphStore) UpsertEdge(ctx context.Context, spec domain.EdgeSpec) (*domain.Edge, error) {
	if spec.Type == "" {
		return nil, domain.NewError(domain.ErrCodeValidation, "edge type is required")
	}
	if spec.SourceLabel == "" || spec.SourceKey == "" || spec.TargetLabel == "" || spec.TargetKey == "" {
		return nil, domain.NewError(domain.ErrCodeValidation, "edge endpoints require label and key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	srcID, ok := s.nodeIdx[nodeKey(spec.SourceLabel, spec.SourceKey)]
	if !ok {
		return nil, domain.NewError(domain.ErrCodeNotFound,
			"source node not found: %s:%s", spec.SourceLabel, spec.SourceKey)
	}
	tgtID, ok := s.nodeIdx[nodeKey(spec.TargetLabel, spec.TargetKey)]
	if !ok {
		return nil, domain.NewError(domain.ErrCodeNotFound,
			"target node not found: %s:%s", spec.TargetLabel, spec.TargetKey)
	}

	now := time.Now()
	if id, ok := s.edgeIdx[edgeKey(spec)]; ok {
		edge := s.edges[id]
		edge.Props = domain.MergeProps(edge.Props, spec.Props)
		edge.UpdatedAt = now
		return copyEdge(edge), nil
	}

	edge := &domain.Edge{
		ID:          uuid.New().String(),
		Type:        spec.Type,
		SourceID:    srcID,
		SourceLabel: spec.SourceLabel,
		SourceKey:   spec.SourceKey,
		TargetID:    tgtID,
		TargetLabel: spec.TargetLabel,
		TargetKey:   spec.TargetKey,
		Props:       domain.MergeProps(nil, spec.Props),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.edges[edge.ID] = edge
	s.edgeIdx[edgeKey(spec)] = edge.ID
	return copyEdge(edge), nil
}

// UpdateProps applies the property delta to every node and edge matching the
// spec. Nodes and edges are searched independently; a spec may match both
// kinds. An empty delta is a no-op.
func (s *GraphStore) UpdateProps(ctx context.Context, match domain.MatchSpec, props map[string]any) error {
	if len(props) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	touched := 0
	for _, node := range s.nodes {
		if match.MatchesNode(node) {
			node.Props = domain.MergeProps(node.Props, props)
			node.UpdatedAt = now
			touched++
		}
	}
	for _, edge := range s.edges {
		if match.MatchesEdge(edge) {
			edge.Props = domain.MergeProps(edge.Props, props)
			edge.UpdatedAt = now
			touched++
		}
	}

	if touched == 0 {
		return domain.NewError(domain.ErrCodeNotFound, "no node or edge matches spec")
	}
	return nil
}

// DeleteNode removes every matching node. Deletion cascades: every edge
// whose source or target is a deleted node is removed first.
func (s *GraphStore) DeleteNode(ctx context.Context, match domain.MatchSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doomed := make(map[string]bool)
	for id, node := range s.nodes {
		if match.MatchesNode(node) {
			doomed[id] = true
		}
	}
	if len(doomed) == 0 {
		return domain.NewError(domain.ErrCodeNotFound, "no node matches spec")
	}

	for id, edge := range s.edges {
		if doomed[edge.SourceID] || doomed[edge.TargetID] {
			delete(s.edgeIdx, edge.NaturalKey())
			delete(s.edges, id)
		}
	}
	for id := range doomed {
		node := s.nodes[id]
		delete(s.nodeIdx, nodeKey(node.Label, node.Key))
		delete(s.nodes, id)
	}
	return nil
}

// DeleteEdge removes every matching edge. Nodes are never touched.
func (s *GraphStore) DeleteEdge(ctx context.Context, match domain.MatchSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, edge := range s.edges {
		if match.MatchesEdge(edge) {
			delete(s.edgeIdx, edge.NaturalKey())
			delete(s.edges, id)
			removed++
		}
	}
	if removed == 0 {
		return domain.NewError(domain.ErrCodeNotFound, "no edge matches spec")
	}
	return nil
}

// GetSubgraph finds all nodes matching the spec as centers, then expands
// breadth-first outward for exactly depth hops, accumulating newly reached
// nodes and the edges that reached them.
func (s *GraphStore) GetSubgraph(ctx context.Context, match domain.MatchSpec, depth int) (*domain.Subgraph, error) {
	if depth < 0 {
		return nil, domain.NewError(domain.ErrCodeValidation, "depth must be non-negative, got %d", depth)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var centers []string
	for id, node := range s.nodes {
		if match.MatchesNode(node) {
			centers = append(centers, id)
		}
	}
	if len(centers) == 0 {
		return nil, domain.NewError(domain.ErrCodeNotFound, "no center node matches spec")
	}

	seen := make(map[string]bool, len(centers))
	seenEdges := make(map[string]bool)
	result := &domain.Subgraph{Centers: centers}

	frontier := centers
	for _, id := range centers {
		seen[id] = true
		result.Nodes = append(result.Nodes, copyNode(s.nodes[id]))
	}

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []string
		inFrontier := make(map[string]bool, len(frontier))
		for _, id := range frontier {
			inFrontier[id] = true
		}

		for id, edge := range s.edges {
			if seenEdges[id] {
				continue
			}
			var reached string
			switch {
			case inFrontier[edge.SourceID] && !seen[edge.TargetID]:
				reached = edge.TargetID
			case inFrontier[edge.TargetID] && !seen[edge.SourceID]:
				reached = edge.SourceID
			case inFrontier[edge.SourceID] && inFrontier[edge.TargetID]:
				// Edge inside the frontier still belongs to the expansion.
				seenEdges[id] = true
				result.Edges = append(result.Edges, copyEdge(edge))
				continue
			default:
				continue
			}
			seenEdges[id] = true
			result.Edges = append(result.Edges, copyEdge(edge))
			seen[reached] = true
			result.Nodes = append(result.Nodes, copyNode(s.nodes[reached]))
			next = append(next, reached)
		}
		frontier = next
	}

	return result, nil
}

// RunQuery is the ad hoc read escape hatch. The in-memory engine has no
// query language; it returns a stats snapshot plus the parameters it was
// handed so callers can at least observe store shape.
func (s *GraphStore) RunQuery(ctx context.Context, raw string, params map[string]any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]any{
		"query":  raw,
		"params": params,
		"nodes":  len(s.nodes),
		"edges":  len(s.edges),
	}, nil
}

// Stats returns the current node and edge counts.
func (s *GraphStore) Stats(ctx context.Context) (domain.GraphStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return domain.GraphStats{Nodes: len(s.nodes), Edges: len(s.edges)}, nil
}

// Close is a no-op for the in-memory store.
func (s *GraphStore) Close(ctx context.Context) error {
	return nil
}

// copyNode returns a defensive copy so callers cannot mutate stored state.
func copyNode(n *domain.Node) *domain.Node {
	c := *n
	c.Props = domain.MergeProps(nil, n.Props)
	return &c
}

func copyEdge(e *domain.Edge) *domain.Edge {
	c := *e
	c.Props = domain.MergeProps(nil, e.Props)
	return &c
}
