package resolver

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ogghst/puntini/internal/domain"
)

// Resolver implements ports.EntityResolver with deterministic matching
// against a graph snapshot. A mention that matches exactly one node binds
// to it; several matches produce an ambiguity for a human to settle; no
// match proposes a new entity.
type Resolver struct {
	defaultLabel string
	logger       *zap.Logger
}

// New creates a resolver. defaultLabel is the label assigned to entities
// that do not exist yet; empty means "Entity".
func New(defaultLabel string, logger *zap.Logger) *Resolver {
	if defaultLabel == "" {
		defaultLabel = "Entity"
	}
	return &Resolver{
		defaultLabel: defaultLabel,
		logger:       logger,
	}
}

// Resolve binds each mention against the snapshot. Matching is two-phase:
// exact key match wins outright, then case-insensitive key match. The
// result is deterministic for a given snapshot.
func (r *Resolver) Resolve(ctx context.Context, mentions []string, snapshot *domain.Subgraph) (*domain.Resolution, error) {
	res := &domain.Resolution{}
	if snapshot == nil {
		snapshot = &domain.Subgraph{}
	}

	for _, mention := range mentions {
		trimmed := strings.TrimSpace(mention)
		if trimmed == "" {
			continue
		}

		candidates := match(trimmed, snapshot.Nodes)
		switch len(candidates) {
		case 0:
			res.Resolved = append(res.Resolved, domain.ResolvedEntity{
				Mention:  trimmed,
				Label:    r.defaultLabel,
				Key:      trimmed,
				Existing: false,
			})
		case 1:
			node := candidates[0]
			res.Resolved = append(res.Resolved, domain.ResolvedEntity{
				Mention:  trimmed,
				Label:    node.Label,
				Key:      node.Key,
				NodeID:   node.ID,
				Existing: true,
			})
		default:
			r.logger.Debug("ambiguous mention",
				zap.String("mention", trimmed),
				zap.Int("candidates", len(candidates)))
			res.Ambiguities = append(res.Ambiguities, domain.Ambiguity{
				Mention:    trimmed,
				Candidates: candidates,
			})
		}
	}

	return res, nil
}

// match returns snapshot nodes whose key matches the mention. Exact matches
// preempt case-insensitive ones so "Alice" never collides with "alice" when
// both exist.
func match(mention string, nodes []*domain.Node) []*domain.Node {
	var exact, folded []*domain.Node
	for _, n := range nodes {
		if n.Key == mention {
			exact = append(exact, n)
		} else if strings.EqualFold(n.Key, mention) {
			folded = append(folded, n)
		}
	}
	if len(exact) > 0 {
		return exact
	}
	return folded
}
