package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ogghst/puntini/internal/domain"
)

func snapshot(nodes ...*domain.Node) *domain.Subgraph {
	return &domain.Subgraph{Nodes: nodes}
}

func TestResolveBindsSingleMatch(t *testing.T) {
	r := New("", zap.NewNop())
	sg := snapshot(&domain.Node{ID: "n1", Label: "Person", Key: "alice"})

	res, err := r.Resolve(context.Background(), []string{"alice"}, sg)
	require.NoError(t, err)

	require.Len(t, res.Resolved, 1)
	assert.True(t, res.Resolved[0].Existing)
	assert.Equal(t, "n1", res.Resolved[0].NodeID)
	assert.Equal(t, "Person", res.Resolved[0].Label)
	assert.Empty(t, res.Ambiguities)
}

func TestResolveProposesNewEntity(t *testing.T) {
	r := New("Entity", zap.NewNop())

	res, err := r.Resolve(context.Background(), []string{"bob"}, snapshot())
	require.NoError(t, err)

	require.Len(t, res.Resolved, 1)
	assert.False(t, res.Resolved[0].Existing)
	assert.Equal(t, "Entity", res.Resolved[0].Label)
	assert.Equal(t, "bob", res.Resolved[0].Key)
	assert.Empty(t, res.Resolved[0].NodeID)
}

func TestResolveReportsAmbiguity(t *testing.T) {
	r := New("", zap.NewNop())
	sg := snapshot(
		&domain.Node{ID: "n1", Label: "Person", Key: "alice"},
		&domain.Node{ID: "n2", Label: "Company", Key: "alice"},
	)

	res, err := r.Resolve(context.Background(), []string{"alice"}, sg)
	require.NoError(t, err)

	assert.Empty(t, res.Resolved)
	require.Len(t, res.Ambiguities, 1)
	assert.Equal(t, "alice", res.Ambiguities[0].Mention)
	assert.Len(t, res.Ambiguities[0].Candidates, 2)
}

func TestResolveExactMatchBeatsCaseInsensitive(t *testing.T) {
	r := New("", zap.NewNop())
	sg := snapshot(
		&domain.Node{ID: "n1", Label: "Person", Key: "Alice"},
		&domain.Node{ID: "n2", Label: "Person", Key: "alice"},
	)

	res, err := r.Resolve(context.Background(), []string{"alice"}, sg)
	require.NoError(t, err)

	require.Len(t, res.Resolved, 1)
	assert.Equal(t, "n2", res.Resolved[0].NodeID)
}

func TestResolveCaseInsensitiveFallback(t *testing.T) {
	r := New("", zap.NewNop())
	sg := snapshot(&domain.Node{ID: "n1", Label: "Person", Key: "Alice"})

	res, err := r.Resolve(context.Background(), []string{"ALICE"}, sg)
	require.NoError(t, err)

	require.Len(t, res.Resolved, 1)
	assert.Equal(t, "n1", res.Resolved[0].NodeID)
}

func TestResolveSkipsBlankMentionsAndNilSnapshot(t *testing.T) {
	r := New("", zap.NewNop())

	res, err := r.Resolve(context.Background(), []string{"  ", "bob"}, nil)
	require.NoError(t, err)

	require.Len(t, res.Resolved, 1)
	assert.Equal(t, "bob", res.Resolved[0].Mention)
}
