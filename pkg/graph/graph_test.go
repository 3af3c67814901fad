package graph

import (
	"testing"

	"github.com/orneryd/mgraph/pkg/entitystore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := New("test")
	require.NoError(t, err)
	return g
}

func TestCreateAndGetNode(t *testing.T) {
	g := newTestGraph(t)
	id, err := g.CreateNode([]string{"Person"}, map[string]any{"name": "Ada"})
	require.NoError(t, err)

	n, err := g.GetNode(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"Person"}, n.Labels)
	assert.Equal(t, "Ada", n.Properties["name"])
}

func TestGetNodeMutationDoesNotAffectStore(t *testing.T) {
	g := newTestGraph(t)
	id, err := g.CreateNode([]string{"Person"}, map[string]any{"name": "Ada"})
	require.NoError(t, err)

	n, err := g.GetNode(id)
	require.NoError(t, err)
	n.Properties["name"] = "Mutated"
	n.Labels[0] = "Mutated"

	again, err := g.GetNode(id)
	require.NoError(t, err)
	assert.Equal(t, "Ada", again.Properties["name"])
	assert.Equal(t, "Person", again.Labels[0])
}

func TestGetNodeInvalidID(t *testing.T) {
	g := newTestGraph(t)
	_, err := g.GetNode(999)
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestCreateEdgeRejectsMissingNodes(t *testing.T) {
	g := newTestGraph(t)
	a, err := g.CreateNode(nil, nil)
	require.NoError(t, err)

	_, err = g.CreateEdge(a, 999, "KNOWS", nil)
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestCreateAndGetEdge(t *testing.T) {
	g := newTestGraph(t)
	a, _ := g.CreateNode(nil, nil)
	b, _ := g.CreateNode(nil, nil)

	eid, err := g.CreateEdge(a, b, "KNOWS", map[string]any{"since": int64(2020)})
	require.NoError(t, err)

	e, err := g.GetEdge(eid)
	require.NoError(t, err)
	assert.Equal(t, a, e.From)
	assert.Equal(t, b, e.To)
	assert.Equal(t, "KNOWS", e.RelType)
	assert.Equal(t, int64(2020), e.Properties["since"])
}

func TestDeleteNodeStrictContractRejectsDanglingEdges(t *testing.T) {
	g := newTestGraph(t)
	a, _ := g.CreateNode(nil, nil)
	b, _ := g.CreateNode(nil, nil)
	_, err := g.CreateEdge(a, b, "KNOWS", nil)
	require.NoError(t, err)

	err = g.DeleteNode(a)
	assert.ErrorIs(t, err, ErrConsistency)
}

func TestDeleteNodeSucceedsOnceEdgesRemoved(t *testing.T) {
	g := newTestGraph(t)
	a, _ := g.CreateNode(nil, nil)
	b, _ := g.CreateNode(nil, nil)
	eid, _ := g.CreateEdge(a, b, "KNOWS", nil)

	require.NoError(t, g.DeleteEdge(eid))
	require.NoError(t, g.DeleteNode(a))

	_, err := g.GetNode(a)
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestMultiEdgeBetweenSamePair(t *testing.T) {
	g := newTestGraph(t)
	a, _ := g.CreateNode(nil, nil)
	b, _ := g.CreateNode(nil, nil)

	e1, err := g.CreateEdge(a, b, "KNOWS", map[string]any{"n": int64(1)})
	require.NoError(t, err)
	e2, err := g.CreateEdge(a, b, "KNOWS", map[string]any{"n": int64(2)})
	require.NoError(t, err)

	edges, err := g.GetEdgesConnecting(a, b, Outgoing, "KNOWS")
	require.NoError(t, err)
	assert.Len(t, edges, 2)

	ids := []int{edges[0].ID, edges[1].ID}
	assert.ElementsMatch(t, []int{e1, e2}, ids)
}

func TestMultiEdgeDemotesBackToSingleOnDelete(t *testing.T) {
	g := newTestGraph(t)
	a, _ := g.CreateNode(nil, nil)
	b, _ := g.CreateNode(nil, nil)
	e1, _ := g.CreateEdge(a, b, "KNOWS", nil)
	e2, _ := g.CreateEdge(a, b, "KNOWS", nil)

	require.NoError(t, g.DeleteEdge(e1))

	edges, err := g.GetEdgesConnecting(a, b, Outgoing, "KNOWS")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, e2, edges[0].ID)
}

func TestAdjacencyClearedOnlyWhenLastRelationRemoved(t *testing.T) {
	g := newTestGraph(t)
	a, _ := g.CreateNode(nil, nil)
	b, _ := g.CreateNode(nil, nil)
	e1, _ := g.CreateEdge(a, b, "KNOWS", nil)
	_, err := g.CreateEdge(a, b, "WORKS_WITH", nil)
	require.NoError(t, err)

	_, present := g.adjacency.GetElement(a, b)
	assert.True(t, present)

	require.NoError(t, g.DeleteEdge(e1))
	_, present = g.adjacency.GetElement(a, b)
	assert.True(t, present, "adjacency must stay set while another relation still connects the pair")
}

func TestGetEdgesConnectingAllRelationsInRelationIDOrder(t *testing.T) {
	g := newTestGraph(t)
	a, _ := g.CreateNode(nil, nil)
	b, _ := g.CreateNode(nil, nil)

	e1, err := g.CreateEdge(a, b, "KNOWS", nil)
	require.NoError(t, err)
	e2, err := g.CreateEdge(a, b, "WORKS_WITH", nil)
	require.NoError(t, err)
	e3, err := g.CreateEdge(a, b, "FOLLOWS", nil)
	require.NoError(t, err)

	edges, err := g.GetEdgesConnecting(a, b, Outgoing)
	require.NoError(t, err)
	require.Len(t, edges, 3)

	relIDs := make(map[string]int, 3)
	relIDs["KNOWS"], _ = g.relations.ID("KNOWS")
	relIDs["WORKS_WITH"], _ = g.relations.ID("WORKS_WITH")
	relIDs["FOLLOWS"], _ = g.relations.ID("FOLLOWS")

	for i := 1; i < len(edges); i++ {
		assert.LessOrEqual(t, relIDs[edges[i-1].RelType], relIDs[edges[i].RelType])
	}
	ids := []int{edges[0].ID, edges[1].ID, edges[2].ID}
	assert.ElementsMatch(t, []int{e1, e2, e3}, ids)
}

func TestGetEdgesConnectingDirectionIncomingReadsReverseCell(t *testing.T) {
	g := newTestGraph(t)
	a, _ := g.CreateNode(nil, nil)
	b, _ := g.CreateNode(nil, nil)
	eid, err := g.CreateEdge(a, b, "KNOWS", nil)
	require.NoError(t, err)

	out, err := g.GetEdgesConnecting(a, b, Outgoing, "KNOWS")
	require.NoError(t, err)
	assert.Len(t, out, 1)

	in, err := g.GetEdgesConnecting(b, a, Incoming, "KNOWS")
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, eid, in[0].ID)

	both, err := g.GetEdgesConnecting(a, b, Both, "KNOWS")
	require.NoError(t, err)
	assert.Len(t, both, 1, "Both must not double-report the same edge")
}

func TestGetNodeEdgesDirectionFiltering(t *testing.T) {
	g := newTestGraph(t)
	a, _ := g.CreateNode(nil, nil)
	b, _ := g.CreateNode(nil, nil)
	c, _ := g.CreateNode(nil, nil)
	_, err := g.CreateEdge(a, b, "KNOWS", nil)
	require.NoError(t, err)
	_, err = g.CreateEdge(c, a, "KNOWS", nil)
	require.NoError(t, err)

	out, err := g.GetNodeEdges(a, Outgoing)
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, b, out[0].To)

	in, err := g.GetNodeEdges(a, Incoming)
	require.NoError(t, err)
	assert.Len(t, in, 1)
	assert.Equal(t, c, in[0].From)

	both, err := g.GetNodeEdges(a, Both)
	require.NoError(t, err)
	assert.Len(t, both, 2)
}

func TestBulkDeleteImplicitlyRemovesIncidentEdgesWithoutCountingThem(t *testing.T) {
	// a has two incident edges (to b and to c), neither named explicitly;
	// a third edge between b and c is untouched since it names neither
	// deleted node.
	g := newTestGraph(t)
	a, _ := g.CreateNode(nil, nil)
	b, _ := g.CreateNode(nil, nil)
	c, _ := g.CreateNode(nil, nil)
	eAB, _ := g.CreateEdge(a, b, "KNOWS", nil)
	eAC, _ := g.CreateEdge(a, c, "KNOWS", nil)
	eBC, err := g.CreateEdge(b, c, "KNOWS", nil)
	require.NoError(t, err)

	nodesDeleted, edgesDeleted, err := g.BulkDelete([]int{a}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, nodesDeleted)
	assert.Equal(t, 0, edgesDeleted, "implicit edges never count toward edgesDeleted")

	_, err = g.GetNode(a)
	assert.ErrorIs(t, err, ErrInvalidID)
	_, err = g.GetEdge(eAB)
	assert.ErrorIs(t, err, ErrInvalidID)
	_, err = g.GetEdge(eAC)
	assert.ErrorIs(t, err, ErrInvalidID)

	remaining, err := g.GetEdge(eBC)
	require.NoError(t, err, "an edge incident on neither deleted node must survive")
	assert.Equal(t, b, remaining.From)
	assert.Equal(t, c, remaining.To)
}

func TestBulkDeleteExplicitEdgeCountsOnceEvenIfAlsoImplicit(t *testing.T) {
	g := newTestGraph(t)
	a, _ := g.CreateNode(nil, nil)
	b, _ := g.CreateNode(nil, nil)
	eAB, _ := g.CreateEdge(a, b, "KNOWS", nil)

	// eAB is both named explicitly and implicit on a; duplicated in the
	// input list to also exercise edge-list deduplication.
	nodesDeleted, edgesDeleted, err := g.BulkDelete([]int{a}, []int{eAB, eAB})
	require.NoError(t, err)
	assert.Equal(t, 1, nodesDeleted)
	assert.Equal(t, 1, edgesDeleted)
}

func TestBulkDeleteDedupesDuplicateNodeIDs(t *testing.T) {
	g := newTestGraph(t)
	a, _ := g.CreateNode(nil, nil)

	nodesDeleted, edgesDeleted, err := g.BulkDelete([]int{a, a, a}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, nodesDeleted)
	assert.Equal(t, 0, edgesDeleted)
}

func TestBulkDeleteIgnoresAlreadyAbsentIDs(t *testing.T) {
	g := newTestGraph(t)
	a, _ := g.CreateNode(nil, nil)
	b, _ := g.CreateNode(nil, nil)
	eid, _ := g.CreateEdge(a, b, "KNOWS", nil)

	// A never-valid id alongside a real one must not error or block the
	// real deletion.
	nodesDeleted, edgesDeleted, err := g.BulkDelete([]int{a, 99999}, []int{eid, 88888})
	require.NoError(t, err)
	assert.Equal(t, 1, nodesDeleted)
	assert.Equal(t, 1, edgesDeleted)
}

func TestBulkDeleteIsIdempotent(t *testing.T) {
	// P5: bulkDelete(bulkDelete(g, X), X) == bulkDelete(g, X).
	g := newTestGraph(t)
	a, _ := g.CreateNode(nil, nil)
	b, _ := g.CreateNode(nil, nil)
	eid, _ := g.CreateEdge(a, b, "KNOWS", nil)
	nodeIDs := []int{a}
	edgeIDs := []int{eid}

	first := g.Stats()
	n1, e1, err := g.BulkDelete(nodeIDs, edgeIDs)
	require.NoError(t, err)
	assert.Equal(t, 1, n1)
	assert.Equal(t, 1, e1)
	after := g.Stats()

	n2, e2, err := g.BulkDelete(nodeIDs, edgeIDs)
	require.NoError(t, err, "a repeated call with ids already removed must be a no-op, not an error")
	assert.Equal(t, 0, n2)
	assert.Equal(t, 0, e2)
	assert.Equal(t, after, g.Stats(), "state must be unchanged by the repeated call")
	assert.NotEqual(t, first, after)
}

func TestBulkDeleteAllNodesEmptiesGraph(t *testing.T) {
	// B3: BulkDelete(all nodes, []) returns (N, 0) and leaves the graph
	// empty.
	g := newTestGraph(t)
	var nodeIDs []int
	for i := 0; i < 4; i++ {
		id, err := g.CreateNode(nil, nil)
		require.NoError(t, err)
		nodeIDs = append(nodeIDs, id)
	}
	for i := 0; i < 3; i++ {
		_, err := g.CreateEdge(nodeIDs[i], nodeIDs[i+1], "KNOWS", nil)
		require.NoError(t, err)
	}

	nodesDeleted, edgesDeleted, err := g.BulkDelete(nodeIDs, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, nodesDeleted)
	assert.Equal(t, 0, edgesDeleted)

	s := g.Stats()
	assert.Equal(t, 0, s.NodeCount)
	assert.Equal(t, 0, s.EdgeCount)
	assert.Equal(t, 4, s.DeletedNodeCount)
	assert.Equal(t, 3, s.DeletedEdgeCount)
}

func TestBulkDeleteMultiNodeClusterCountsMatchIncidence(t *testing.T) {
	// n0<->n1 (2 edges, one each direction), n1->n2, n2->n0, n3 standalone
	// pair connected to nothing being deleted. Deleting n0 and n1 must take
	// every edge touching either of them and leave n2<->n3's edge alone.
	g := newTestGraph(t)
	n0, _ := g.CreateNode(nil, nil)
	n1, _ := g.CreateNode(nil, nil)
	n2, _ := g.CreateNode(nil, nil)
	n3, _ := g.CreateNode(nil, nil)

	e01, _ := g.CreateEdge(n0, n1, "KNOWS", nil)
	e10, _ := g.CreateEdge(n1, n0, "KNOWS", nil)
	e12, _ := g.CreateEdge(n1, n2, "KNOWS", nil)
	e20, _ := g.CreateEdge(n2, n0, "KNOWS", nil)
	e23, err := g.CreateEdge(n2, n3, "KNOWS", nil)
	require.NoError(t, err)

	nodesDeleted, edgesDeleted, err := g.BulkDelete([]int{n0, n1}, []int{e01})
	require.NoError(t, err)
	assert.Equal(t, 2, nodesDeleted)
	assert.Equal(t, 1, edgesDeleted, "only the explicitly named edge counts")

	for _, eid := range []int{e01, e10, e12, e20} {
		_, err := g.GetEdge(eid)
		assert.ErrorIs(t, err, ErrInvalidID)
	}
	remaining, err := g.GetEdge(e23)
	require.NoError(t, err)
	assert.Equal(t, n2, remaining.From)
	assert.Equal(t, n3, remaining.To)
}

func TestStats(t *testing.T) {
	g := newTestGraph(t)
	a, _ := g.CreateNode([]string{"Person"}, nil)
	b, _ := g.CreateNode([]string{"Person"}, nil)
	_, err := g.CreateEdge(a, b, "KNOWS", nil)
	require.NoError(t, err)

	s := g.Stats()
	assert.Equal(t, 2, s.NodeCount)
	assert.Equal(t, 1, s.EdgeCount)
	assert.Equal(t, 1, s.LabelCount)
	assert.Equal(t, 1, s.RelationCount)
}

func TestCapacityGrowsPastPageBoundary(t *testing.T) {
	g := newTestGraph(t)
	var ids []int
	for i := 0; i < entitystore.DefaultPageSize+1; i++ {
		id, err := g.CreateNode([]string{"Person"}, nil)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	for _, id := range ids {
		_, err := g.GetNode(id)
		require.NoError(t, err)
	}
}
