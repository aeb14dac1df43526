package neo4j

import (
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dbNode(id, label, key string) neo4j.Node {
	return neo4j.Node{
		Labels: []string{label},
		Props:  map[string]any{"id": id, "key": key},
	}
}

func dbRel(id, relType string) neo4j.Relationship {
	return neo4j.Relationship{
		Type:  relType,
		Props: map[string]any{"id": id},
	}
}

func TestAssembleSubgraphDeduplicatesNodes(t *testing.T) {
	a := dbNode("n1", "Person", "a")
	b := dbNode("n2", "Person", "b")

	// b is both a center and reached from a; a is reached back from b.
	sg := assembleSubgraph(
		[]any{a, b},
		[]any{b, a},
		nil,
	)

	assert.Len(t, sg.Nodes, 2)
	assert.ElementsMatch(t, []string{"n1", "n2"}, sg.Centers)
}

func TestAssembleSubgraphDeduplicatesEdges(t *testing.T) {
	a := dbNode("n1", "Person", "a")
	knows := dbRel("e1", "KNOWS")

	// The same relationship appears in two collected paths.
	sg := assembleSubgraph(
		[]any{a},
		[]any{dbNode("n2", "Person", "b")},
		[]any{[]any{knows}, []any{knows}},
	)

	require.Len(t, sg.Edges, 1)
	assert.Equal(t, "e1", sg.Edges[0].ID)
	assert.Equal(t, "KNOWS", sg.Edges[0].Type)
}

func TestFilterReservedStripsBookkeeping(t *testing.T) {
	props := filterReserved(map[string]any{
		"id":         "n1",
		"key":        "john",
		"created_at": time.Now(),
		"updated_at": time.Now(),
		"age":        int64(30),
	})

	assert.Equal(t, map[string]any{"age": int64(30)}, props)
}

func TestToDomainNodeConversion(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	node := toDomainNode(neo4j.Node{
		Labels: []string{"Person"},
		Props: map[string]any{
			"id":         "n1",
			"key":        "john",
			"created_at": created,
			"city":       "NYC",
		},
	})

	assert.Equal(t, "n1", node.ID)
	assert.Equal(t, "Person", node.Label)
	assert.Equal(t, "john", node.Key)
	assert.Equal(t, created, node.CreatedAt)
	assert.Equal(t, map[string]any{"city": "NYC"}, node.Props)
}
