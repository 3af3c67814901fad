package graph

// multiEdgeTag marks a relation-matrix cell as holding an index into
// multiEdgeLists rather than a raw edge id. Edge ids are entity-store
// indices and never approach the high bit of a uint64, so the tag is safe.
const multiEdgeTag = uint64(1) << 63

// multiEdgeLists is the side table relation-matrix cells point into once a
// (from, to) pair under one relation type holds more than one edge. A
// plain slice with LIFO reuse (mirroring pkg/entitystore's free-list) keeps
// list indices stable across unrelated mutations elsewhere in the graph.
type multiEdgeLists struct {
	lists    [][]int
	freed    []bool
	freeList []int
}

func newMultiEdgeLists() *multiEdgeLists {
	return &multiEdgeLists{}
}

func (m *multiEdgeLists) alloc(edgeIDs []int) uint64 {
	if n := len(m.freeList); n > 0 {
		idx := m.freeList[n-1]
		m.freeList = m.freeList[:n-1]
		m.lists[idx] = edgeIDs
		m.freed[idx] = false
		return uint64(idx) | multiEdgeTag
	}
	idx := len(m.lists)
	m.lists = append(m.lists, edgeIDs)
	m.freed = append(m.freed, false)
	return uint64(idx) | multiEdgeTag
}

func (m *multiEdgeLists) get(cell uint64) []int {
	idx := int(cell &^ multiEdgeTag)
	if idx < 0 || idx >= len(m.lists) || m.freed[idx] {
		return nil
	}
	return m.lists[idx]
}

func (m *multiEdgeLists) set(cell uint64, edgeIDs []int) {
	idx := int(cell &^ multiEdgeTag)
	m.lists[idx] = edgeIDs
}

func (m *multiEdgeLists) free(cell uint64) {
	idx := int(cell &^ multiEdgeTag)
	if idx < 0 || idx >= len(m.lists) || m.freed[idx] {
		return
	}
	m.lists[idx] = nil
	m.freed[idx] = true
	m.freeList = append(m.freeList, idx)
}

// isMulti reports whether cell is a tagged pointer into multiEdgeLists
// rather than a raw edge id.
func isMulti(cell uint64) bool { return cell&multiEdgeTag != 0 }

// edgesAt resolves a relation-matrix cell value to the edge ids it
// represents: zero, one, or many.
func (m *multiEdgeLists) edgesAt(cell uint64, present bool) []int {
	if !present {
		return nil
	}
	if isMulti(cell) {
		return m.get(cell)
	}
	return []int{int(cell)}
}

// insert adds edgeID to whatever is currently stored under cell,
// promoting a single-edge cell to a multi-edge list on the second insert.
// It returns the new cell value, which is always present after an insert.
func (m *multiEdgeLists) insert(cell uint64, present bool, edgeID int) uint64 {
	if !present {
		return uint64(edgeID)
	}
	if isMulti(cell) {
		list := m.get(cell)
		list = append(list, edgeID)
		m.set(cell, list)
		return cell
	}
	existing := int(cell)
	return m.alloc([]int{existing, edgeID})
}

// remove drops edgeID from whatever is currently stored under cell. It
// returns the new cell value and whether the cell remains present
// (non-empty) afterward; demotes a two-element list back to a raw edge id
// when the removal leaves exactly one edge, freeing the list slot.
func (m *multiEdgeLists) remove(cell uint64, present bool, edgeID int) (newCell uint64, stillPresent bool) {
	if !present {
		return 0, false
	}
	if !isMulti(cell) {
		if int(cell) == edgeID {
			return 0, false
		}
		return cell, true // edgeID wasn't the one stored; leave untouched
	}
	list := m.get(cell)
	filtered := list[:0]
	for _, id := range list {
		if id != edgeID {
			filtered = append(filtered, id)
		}
	}
	switch len(filtered) {
	case 0:
		m.free(cell)
		return 0, false
	case 1:
		sole := filtered[0]
		m.free(cell)
		return uint64(sole), true
	default:
		m.set(cell, filtered)
		return cell, true
	}
}
