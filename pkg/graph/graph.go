// Package graph implements the matrix-backed property graph: dense-id
// nodes and edges backed by pkg/entitystore, with adjacency, per-label,
// and per-relation-type structure held in pkg/matrix sparse matrices.
//
// A Graph is the unit of concurrency control (pkg/rwcoord) and the unit of
// persistence (pkg/persist): everything needed to reconstruct it lives in
// its entity stores, its schema registries, and its matrices.
package graph

import (
	"fmt"
	"sort"

	"github.com/orneryd/mgraph/internal/bufpool"
	"github.com/orneryd/mgraph/pkg/entitystore"
	"github.com/orneryd/mgraph/pkg/matrix"
	"github.com/orneryd/mgraph/pkg/rwcoord"
	"github.com/orneryd/mgraph/pkg/schema"
)

// initialCapacity is the matrix dimension a brand-new graph starts with;
// it grows along with the entity stores as nodes are created.
const initialCapacity = 1

// Graph is a single property graph: its nodes, its edges, its label and
// relation-type schema, and the matrices that encode structure over them.
//
// A Graph's zero value is not usable; construct one with New.
type Graph struct {
	name string

	coord *rwcoord.Coordinator

	labels    *schema.Registry
	relations *schema.Registry

	nodes *entitystore.Store[nodeRecord]
	edges *entitystore.Store[edgeRecord]

	capacity int // current matrix dimension, == nodes.Capacity() after any grow

	adjacency *matrix.Matrix[bool]   // A
	labelMats []*matrix.Matrix[bool] // L_k, indexed by label id, lazily created
	relMats   []*matrix.Matrix[uint64] // R_t, indexed by relation id, lazily created

	multi *multiEdgeLists

	// deletedNodes and deletedEdges are cumulative counts of entities ever
	// removed from this graph (not currently-live counts); they survive past
	// the ids they counted being freed, and decrease only when BulkDelete
	// rolls back a deletion it had counted.
	deletedNodes int
	deletedEdges int

	// pairRelCount[{from,to}] counts how many distinct relation types
	// currently hold at least one edge from->to; it lets DeleteEdge clear
	// A[from,to] exactly when the last relation covering that pair is
	// removed, without re-scanning every relation matrix.
	pairRelCount map[[2]int]int
}

// New creates an empty graph named name.
func New(name string) (*Graph, error) {
	adjacency, err := matrix.New[bool](initialCapacity, initialCapacity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResource, err)
	}
	return &Graph{
		name:         name,
		coord:        rwcoord.New(),
		labels:       schema.NewRegistry(),
		relations:    schema.NewRegistry(),
		nodes:        entitystore.New[nodeRecord](0),
		edges:        entitystore.New[edgeRecord](0),
		capacity:     initialCapacity,
		adjacency:    adjacency,
		multi:        newMultiEdgeLists(),
		pairRelCount: make(map[[2]int]int),
	}, nil
}

// Name returns the graph's name.
func (g *Graph) Name() string { return g.name }

// Stats summarizes a graph's current size, reported by C4's operations and
// used by pkg/persist to size shard headers.
type Stats struct {
	NodeCount        int
	DeletedNodeCount int
	EdgeCount        int
	DeletedEdgeCount int
	LabelCount       int
	RelationCount    int
	Capacity         int
}

// Stats returns a point-in-time snapshot of graph size.
func (g *Graph) Stats() Stats {
	g.coord.RLock()
	defer g.coord.RUnlock()
	return Stats{
		NodeCount:        g.nodes.Count(),
		DeletedNodeCount: g.deletedNodes,
		EdgeCount:        g.edges.Count(),
		DeletedEdgeCount: g.deletedEdges,
		LabelCount:       g.labels.Count(),
		RelationCount:    g.relations.Count(),
		Capacity:         g.capacity,
	}
}

// ensureCapacityLocked grows every matrix to at least n rows/cols. Callers
// must already hold the write lock. Growth is one-directional: a graph's
// matrices never shrink, since entity ids are never reused while a node or
// edge referencing them could still be iterated (see entitystore's
// free-list, which keys by id, not by capacity).
func (g *Graph) ensureCapacityLocked(n int) error {
	if n <= g.capacity {
		return nil
	}
	if err := g.adjacency.Resize(n, n); err != nil {
		return fmt.Errorf("%w: %v", ErrResource, err)
	}
	for _, lm := range g.labelMats {
		if lm == nil {
			continue
		}
		if err := lm.Resize(n, n); err != nil {
			return fmt.Errorf("%w: %v", ErrResource, err)
		}
	}
	for _, rm := range g.relMats {
		if rm == nil {
			continue
		}
		if err := rm.Resize(n, n); err != nil {
			return fmt.Errorf("%w: %v", ErrResource, err)
		}
	}
	g.capacity = n
	return nil
}

// labelMatrixLocked returns L_k for label id, creating and sizing it to
// the current capacity on first use. Callers must hold the write lock.
func (g *Graph) labelMatrixLocked(labelID int) (*matrix.Matrix[bool], error) {
	for len(g.labelMats) <= labelID {
		g.labelMats = append(g.labelMats, nil)
	}
	if g.labelMats[labelID] == nil {
		m, err := matrix.New[bool](g.capacity, g.capacity)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResource, err)
		}
		g.labelMats[labelID] = m
	}
	return g.labelMats[labelID], nil
}

// relMatrixLocked returns R_t for relation id, creating and sizing it to
// the current capacity on first use. Callers must hold the write lock.
func (g *Graph) relMatrixLocked(relID int) (*matrix.Matrix[uint64], error) {
	for len(g.relMats) <= relID {
		g.relMats = append(g.relMats, nil)
	}
	if g.relMats[relID] == nil {
		m, err := matrix.New[uint64](g.capacity, g.capacity)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResource, err)
		}
		g.relMats[relID] = m
	}
	return g.relMats[relID], nil
}

// CreateNode allocates a new node carrying the given labels and
// properties, returning its id. Labels not already known to the graph are
// registered.
func (g *Graph) CreateNode(labels []string, props map[string]any) (int, error) {
	g.coord.Lock()
	defer g.coord.Unlock()
	return g.createNodeLocked(labels, props)
}

func (g *Graph) createNodeLocked(labels []string, props map[string]any) (int, error) {
	labelIDs := make([]int, 0, len(labels))
	for _, name := range labels {
		id, err := g.labels.GetOrAdd(name)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidName, err)
		}
		labelIDs = append(labelIDs, id)
	}

	id := g.nodes.Allocate(nodeRecord{labels: labelIDs, props: copyProps(props)})
	if err := g.ensureCapacityLocked(g.nodes.Capacity()); err != nil {
		_ = g.nodes.Delete(id)
		return 0, err
	}
	for _, lid := range labelIDs {
		lm, err := g.labelMatrixLocked(lid)
		if err != nil {
			_ = g.nodes.Delete(id)
			return 0, err
		}
		if err := lm.SetElement(id, id, true); err != nil {
			_ = g.nodes.Delete(id)
			return 0, fmt.Errorf("%w: %v", ErrConsistency, err)
		}
	}
	return id, nil
}

// GetNode returns a copy of the node stored at id.
func (g *Graph) GetNode(id int) (Node, error) {
	g.coord.RLock()
	defer g.coord.RUnlock()
	return g.getNodeLocked(id)
}

func (g *Graph) getNodeLocked(id int) (Node, error) {
	rec, ok := g.nodes.Get(id)
	if !ok {
		return Node{}, fmt.Errorf("%w: node %d", ErrInvalidID, id)
	}
	labelNames := make([]string, len(rec.labels))
	for i, lid := range rec.labels {
		name, err := g.labels.Name(lid)
		if err != nil {
			return Node{}, fmt.Errorf("%w: %v", ErrConsistency, err)
		}
		labelNames[i] = name
	}
	return Node{ID: id, Labels: labelNames, Properties: copyProps(rec.props)}, nil
}

// nodeHasEdgesLocked reports whether any edge currently touches id, used
// to enforce DeleteNode's strict no-dangling-edges contract.
func (g *Graph) nodeHasEdgesLocked(id int) bool {
	has := false
	g.adjacency.Iterate(func(i, j int, v bool) bool {
		if i == id || j == id {
			has = true
			return false
		}
		return true
	})
	return has
}

// DeleteNode removes the node at id. DeleteNode is strict: it returns
// ErrConsistency if any edge still references id, rather than silently
// cascading. Callers that want cascading deletion use BulkDelete, which
// removes a node's edges and the node itself as a single atomic step.
func (g *Graph) DeleteNode(id int) error {
	g.coord.Lock()
	defer g.coord.Unlock()
	return g.deleteNodeLocked(id)
}

func (g *Graph) deleteNodeLocked(id int) error {
	rec, ok := g.nodes.Get(id)
	if !ok {
		return fmt.Errorf("%w: node %d", ErrInvalidID, id)
	}
	if g.nodeHasEdgesLocked(id) {
		return fmt.Errorf("%w: node %d still has edges", ErrConsistency, id)
	}
	for _, lid := range rec.labels {
		if lm := g.labelMats[lid]; lm != nil {
			_ = lm.ClearElement(id, id)
		}
	}
	if err := g.nodes.Delete(id); err != nil {
		return err
	}
	g.deletedNodes++
	return nil
}

// CreateEdge creates an edge of relType from->to, registering relType if
// this is the first time it's seen. Returns the new edge's id.
func (g *Graph) CreateEdge(from, to int, relType string, props map[string]any) (int, error) {
	g.coord.Lock()
	defer g.coord.Unlock()
	return g.createEdgeLocked(from, to, relType, props)
}

func (g *Graph) createEdgeLocked(from, to int, relType string, props map[string]any) (int, error) {
	if _, ok := g.nodes.Get(from); !ok {
		return 0, fmt.Errorf("%w: node %d", ErrInvalidID, from)
	}
	if _, ok := g.nodes.Get(to); !ok {
		return 0, fmt.Errorf("%w: node %d", ErrInvalidID, to)
	}
	relID, err := g.relations.GetOrAdd(relType)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidName, err)
	}

	edgeID := g.edges.Allocate(edgeRecord{from: from, to: to, relType: relID, props: copyProps(props)})
	if err := g.ensureCapacityLocked(g.nodes.Capacity()); err != nil {
		_ = g.edges.Delete(edgeID)
		return 0, err
	}

	rm, err := g.relMatrixLocked(relID)
	if err != nil {
		_ = g.edges.Delete(edgeID)
		return 0, err
	}

	cell, present := rm.GetElement(from, to)
	newCell := g.multi.insert(cell, present, edgeID)
	if err := rm.SetElement(from, to, newCell); err != nil {
		_ = g.edges.Delete(edgeID)
		return 0, fmt.Errorf("%w: %v", ErrConsistency, err)
	}

	if !present {
		key := [2]int{from, to}
		if g.pairRelCount[key] == 0 {
			if err := g.adjacency.SetElement(from, to, true); err != nil {
				return 0, fmt.Errorf("%w: %v", ErrConsistency, err)
			}
		}
		g.pairRelCount[key]++
	}
	return edgeID, nil
}

// GetEdge returns a copy of the edge stored at id.
func (g *Graph) GetEdge(id int) (Edge, error) {
	g.coord.RLock()
	defer g.coord.RUnlock()
	return g.getEdgeLocked(id)
}

func (g *Graph) getEdgeLocked(id int) (Edge, error) {
	rec, ok := g.edges.Get(id)
	if !ok {
		return Edge{}, fmt.Errorf("%w: edge %d", ErrInvalidID, id)
	}
	name, err := g.relations.Name(rec.relType)
	if err != nil {
		return Edge{}, fmt.Errorf("%w: %v", ErrConsistency, err)
	}
	return Edge{ID: id, From: rec.from, To: rec.to, RelType: name, Properties: copyProps(rec.props)}, nil
}

// DeleteEdge removes the edge at id.
func (g *Graph) DeleteEdge(id int) error {
	g.coord.Lock()
	defer g.coord.Unlock()
	return g.deleteEdgeLocked(id)
}

func (g *Graph) deleteEdgeLocked(id int) error {
	rec, ok := g.edges.Get(id)
	if !ok {
		return fmt.Errorf("%w: edge %d", ErrInvalidID, id)
	}
	rm := g.relMats[rec.relType]
	cell, present := rm.GetElement(rec.from, rec.to)
	if !present {
		return fmt.Errorf("%w: edge %d missing from relation matrix", ErrConsistency, id)
	}
	newCell, stillPresent := g.multi.remove(cell, present, id)
	if stillPresent {
		if err := rm.SetElement(rec.from, rec.to, newCell); err != nil {
			return fmt.Errorf("%w: %v", ErrConsistency, err)
		}
	} else {
		if err := rm.ClearElement(rec.from, rec.to); err != nil {
			return fmt.Errorf("%w: %v", ErrConsistency, err)
		}
		key := [2]int{rec.from, rec.to}
		g.pairRelCount[key]--
		if g.pairRelCount[key] <= 0 {
			delete(g.pairRelCount, key)
			if err := g.adjacency.ClearElement(rec.from, rec.to); err != nil {
				return fmt.Errorf("%w: %v", ErrConsistency, err)
			}
		}
	}
	if err := g.edges.Delete(id); err != nil {
		return err
	}
	g.deletedEdges++
	return nil
}

// GetEdgesConnecting returns every edge between src and dst (zero, one, or
// many per relation's multi-edge cell state), restricted to dir and to
// relTypes (all relation types, in relation-id order, if relTypes is
// empty). For Outgoing it reads R_t[src,dst]; for Incoming it reads
// R_t[dst,src] (this implementation never maintains a separate R_tᵀ, so
// "incoming" is always the direct cell read rather than a transposed-matrix
// lookup); for Both it's the union of the two, deduplicated so a self-loop
// (src == dst) isn't reported twice.
func (g *Graph) GetEdgesConnecting(src, dst int, dir Direction, relTypes ...string) ([]Edge, error) {
	g.coord.RLock()
	defer g.coord.RUnlock()

	relIDs, err := g.resolveRelIDsLocked(relTypes)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool)
	var out []Edge
	collect := func(from, to int) error {
		for _, relID := range relIDs {
			if relID >= len(g.relMats) || g.relMats[relID] == nil {
				continue
			}
			cell, present := g.relMats[relID].GetElement(from, to)
			for _, id := range g.multi.edgesAt(cell, present) {
				if seen[id] {
					continue
				}
				seen[id] = true
				e, err := g.getEdgeLocked(id)
				if err != nil {
					return err
				}
				out = append(out, e)
			}
		}
		return nil
	}

	if dir == Outgoing || dir == Both {
		if err := collect(src, dst); err != nil {
			return nil, err
		}
	}
	if dir == Incoming || dir == Both {
		if err := collect(dst, src); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// resolveRelIDsLocked maps relTypes to relation ids in relation-id order,
// silently skipping names the graph has never registered; an empty
// relTypes means every relation id the graph knows about, in order.
// Callers must already hold at least a read lease.
func (g *Graph) resolveRelIDsLocked(relTypes []string) ([]int, error) {
	if len(relTypes) == 0 {
		ids := make([]int, g.relations.Count())
		for i := range ids {
			ids[i] = i
		}
		return ids, nil
	}
	ids := make([]int, 0, len(relTypes))
	for _, name := range relTypes {
		if id, ok := g.relations.ID(name); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Direction selects which end of an edge GetNodeEdges matches against.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
	Both
)

// GetNodeEdges returns every edge touching nodeID in the given direction,
// optionally restricted to relTypes (all relation types if empty).
func (g *Graph) GetNodeEdges(nodeID int, dir Direction, relTypes ...string) ([]Edge, error) {
	g.coord.RLock()
	defer g.coord.RUnlock()

	if _, ok := g.nodes.Get(nodeID); !ok {
		return nil, fmt.Errorf("%w: node %d", ErrInvalidID, nodeID)
	}

	relIDs := bufpool.GetIntSlice()
	defer bufpool.PutIntSlice(relIDs)
	if len(relTypes) == 0 {
		for id := 0; id < g.relations.Count(); id++ {
			relIDs = append(relIDs, id)
		}
	} else {
		for _, name := range relTypes {
			if id, ok := g.relations.ID(name); ok {
				relIDs = append(relIDs, id)
			}
		}
	}

	var out []Edge
	seen := make(map[int]bool)
	for _, relID := range relIDs {
		if relID >= len(g.relMats) || g.relMats[relID] == nil {
			continue
		}
		rm := g.relMats[relID]
		_ = rm.Iterate(func(i, j int, cell uint64) bool {
			matches := (dir == Outgoing || dir == Both) && i == nodeID
			matches = matches || ((dir == Incoming || dir == Both) && j == nodeID)
			if !matches {
				return true
			}
			for _, id := range g.multi.edgesAt(cell, true) {
				if seen[id] {
					continue
				}
				seen[id] = true
				if e, err := g.getEdgeLocked(id); err == nil {
					out = append(out, e)
				}
			}
			return true
		})
	}
	return out, nil
}

// BulkDelete atomically removes every node named in nodeIDs together with
// every edge incident on any of them, plus every edge explicitly named in
// edgeIDs. Node and edge ids may contain duplicates or name an id that no
// longer exists (or never did); both are silently ignored rather than
// treated as an error, so a repeated call with the same arguments is
// idempotent: bulkDelete(bulkDelete(g, ids), ids) == bulkDelete(g, ids).
//
// It returns nodesDeleted, the number of distinct existing node ids
// removed, and edgesDeleted, the number of distinct existing edge ids
// named in edgeIDs that were removed. Edges removed only implicitly
// (incident on a deleted node but never named in edgeIDs) do not add to
// edgesDeleted — the counter reports caller-visible deletions, not
// incidental ones — and an edge that is both named explicitly and
// incident on a deleted node is still counted once.
//
// If an internal operation fails partway through, every deletion already
// applied in this call is rolled back and the original error is returned.
// Rollback recreates entities rather than restoring raw matrix state; this
// only reproduces the original ids because the whole call holds the write
// lock and entitystore hands ids back LIFO, so undoing in reverse order
// pops exactly the id each step just freed.
func (g *Graph) BulkDelete(nodeIDs, edgeIDs []int) (nodesDeleted, edgesDeleted int, err error) {
	g.coord.Lock()
	defer g.coord.Unlock()

	distinctNodes := make([]int, 0, len(nodeIDs))
	deletingNode := make(map[int]bool, len(nodeIDs))
	for _, nid := range nodeIDs {
		if deletingNode[nid] {
			continue
		}
		if _, ok := g.nodes.Get(nid); !ok {
			continue
		}
		deletingNode[nid] = true
		distinctNodes = append(distinctNodes, nid)
	}
	sort.Ints(distinctNodes)

	explicitEdges := make(map[int]bool, len(edgeIDs))
	for _, eid := range edgeIDs {
		if _, ok := g.edges.Get(eid); ok {
			explicitEdges[eid] = true
		}
	}

	// Implicit edges: every edge still incident (in either direction) on
	// a node being deleted, gathered by walking each relation matrix's
	// occupied cells. These merge into the same to-delete set as the
	// explicit list but are never counted toward edgesDeleted.
	toDelete := make(map[int]bool, len(explicitEdges))
	for eid := range explicitEdges {
		toDelete[eid] = true
	}
	for _, rm := range g.relMats {
		if rm == nil {
			continue
		}
		_ = rm.Iterate(func(i, j int, cell uint64) bool {
			if !deletingNode[i] && !deletingNode[j] {
				return true
			}
			for _, eid := range g.multi.edgesAt(cell, true) {
				toDelete[eid] = true
			}
			return true
		})
	}
	orderedEdges := make([]int, 0, len(toDelete))
	for eid := range toDelete {
		orderedEdges = append(orderedEdges, eid)
	}
	sort.Ints(orderedEdges)

	type undoStep func()
	var undo []undoStep
	rollback := func() {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}

	// Edges first, so DeleteNode's strict no-dangling-edges contract is
	// already satisfied by the time each node is removed below.
	for _, eid := range orderedEdges {
		rec, ok := g.edges.Get(eid)
		if !ok {
			rollback()
			return 0, 0, fmt.Errorf("%w: edge %d", ErrInvalidID, eid)
		}
		if err := g.deleteEdgeLocked(eid); err != nil {
			rollback()
			return 0, 0, err
		}
		relType, _ := g.relations.Name(rec.relType)
		undo = append(undo, func() {
			_, _ = g.createEdgeLocked(rec.from, rec.to, relType, rec.props)
			g.deletedEdges--
		})
	}

	for _, nid := range distinctNodes {
		rec, ok := g.nodes.Get(nid)
		if !ok {
			rollback()
			return 0, 0, fmt.Errorf("%w: node %d", ErrInvalidID, nid)
		}
		if err := g.deleteNodeLocked(nid); err != nil {
			rollback()
			return 0, 0, err
		}
		names := make([]string, len(rec.labels))
		for i, lid := range rec.labels {
			names[i], _ = g.labels.Name(lid)
		}
		props := rec.props
		undo = append(undo, func() {
			_, _ = g.createNodeLocked(names, props)
			g.deletedNodes--
		})
	}
	return len(distinctNodes), len(explicitEdges), nil
}

// Labels returns the graph's label schema registry.
func (g *Graph) Labels() *schema.Registry { return g.labels }

// Relations returns the graph's relation-type schema registry.
func (g *Graph) Relations() *schema.Registry { return g.relations }

// Coordinator returns the graph's reader/writer coordinator, used by
// pkg/engine to drive fork-barrier hooks.
func (g *Graph) Coordinator() *rwcoord.Coordinator { return g.coord }

// Adjacency returns the graph's A matrix, the union of every relation
// matrix's pattern. Read-only callers (pkg/paths, pkg/algo) must hold a
// read lease (via Coordinator) for the duration of any access.
func (g *Graph) Adjacency() *matrix.Matrix[bool] { return g.adjacency }

// LabelMatrix returns L_k for labelID, or nil if no node has ever carried
// that label.
func (g *Graph) LabelMatrix(labelID int) *matrix.Matrix[bool] {
	if labelID < 0 || labelID >= len(g.labelMats) {
		return nil
	}
	return g.labelMats[labelID]
}

// RelationMatrix returns R_t for relationID, or nil if no edge of that
// relation type has ever been created.
func (g *Graph) RelationMatrix(relationID int) *matrix.Matrix[uint64] {
	if relationID < 0 || relationID >= len(g.relMats) {
		return nil
	}
	return g.relMats[relationID]
}

// ResolveMultiEdgeCell exposes the multi-edge cell decoding used internally,
// for packages (pkg/persist) that must serialize relation matrices
// faithfully including multi-edge lists.
func (g *Graph) ResolveMultiEdgeCell(cell uint64, present bool) []int {
	return g.multi.edgesAt(cell, present)
}

// IterateNodes visits every live node in ascending id order. Callers that
// need a consistent snapshot (pkg/persist) take a read lease themselves
// around the call; IterateNodes does not lock, since pkg/persist.Encode
// calls it while already holding that read lease.
func (g *Graph) IterateNodes(visit func(Node) bool) {
	g.nodes.Iterate(func(id int, rec nodeRecord) bool {
		n, err := g.getNodeLocked(id)
		if err != nil {
			return true
		}
		return visit(n)
	})
}

// IterateEdges visits every live edge in ascending id order, under the
// same no-lock contract as IterateNodes.
func (g *Graph) IterateEdges(visit func(Edge) bool) {
	g.edges.Iterate(func(id int, rec edgeRecord) bool {
		e, err := g.getEdgeLocked(id)
		if err != nil {
			return true
		}
		return visit(e)
	})
}

// RLock and RUnlock expose the read lease directly so callers that need to
// bracket several read-only operations (IterateNodes plus IterateEdges, for
// instance) as one atomic snapshot don't pay for re-entering RLock per call.
func (g *Graph) RLock()   { g.coord.RLock() }
func (g *Graph) RUnlock() { g.coord.RUnlock() }

// RestoreNode recreates a node at exactly id with the given labels and
// properties, growing the graph's matrices to cover id if necessary. It is
// used only by pkg/persist when reloading a graph from a shard stream,
// where ids must match the persisted state exactly rather than being
// freshly assigned.
func (g *Graph) RestoreNode(id int, labels []string, props map[string]any) error {
	g.coord.Lock()
	defer g.coord.Unlock()

	labelIDs := make([]int, 0, len(labels))
	for _, name := range labels {
		lid, err := g.labels.GetOrAdd(name)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidName, err)
		}
		labelIDs = append(labelIDs, lid)
	}
	if err := g.nodes.RestoreAt(id, nodeRecord{labels: labelIDs, props: copyProps(props)}); err != nil {
		return fmt.Errorf("%w: %v", ErrConsistency, err)
	}
	if err := g.ensureCapacityLocked(g.nodes.Capacity()); err != nil {
		return err
	}
	for _, lid := range labelIDs {
		lm, err := g.labelMatrixLocked(lid)
		if err != nil {
			return err
		}
		if err := lm.SetElement(id, id, true); err != nil {
			return fmt.Errorf("%w: %v", ErrConsistency, err)
		}
	}
	return nil
}

// RestoreEdge recreates an edge at exactly id, under the same exact-id
// contract as RestoreNode.
func (g *Graph) RestoreEdge(id, from, to int, relType string, props map[string]any) error {
	g.coord.Lock()
	defer g.coord.Unlock()

	relID, err := g.relations.GetOrAdd(relType)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	if err := g.edges.RestoreAt(id, edgeRecord{from: from, to: to, relType: relID, props: copyProps(props)}); err != nil {
		return fmt.Errorf("%w: %v", ErrConsistency, err)
	}
	if err := g.ensureCapacityLocked(g.nodes.Capacity()); err != nil {
		return err
	}
	rm, err := g.relMatrixLocked(relID)
	if err != nil {
		return err
	}
	cell, present := rm.GetElement(from, to)
	newCell := g.multi.insert(cell, present, id)
	if err := rm.SetElement(from, to, newCell); err != nil {
		return fmt.Errorf("%w: %v", ErrConsistency, err)
	}
	if !present {
		key := [2]int{from, to}
		if g.pairRelCount[key] == 0 {
			if err := g.adjacency.SetElement(from, to, true); err != nil {
				return fmt.Errorf("%w: %v", ErrConsistency, err)
			}
		}
		g.pairRelCount[key]++
	}
	return nil
}
