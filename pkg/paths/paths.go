// Package paths implements the all-paths engine: enumeration of
// edge-simple paths between two nodes (or from a source with an optional
// destination filter), driven by an explicit DFS stack rather than
// recursion so iteration can be paused, resumed, and bounded by a caller
// without needing goroutines or channels.
package paths

import (
	"github.com/orneryd/mgraph/pkg/graph"
)

// Step is one hop of a path: the edge taken and the node arrived at.
type Step struct {
	Edge graph.Edge
	Node int
}

// Path is a sequence of steps starting implicitly from Iterator's Source.
type Path struct {
	Steps []Step
}

// End returns the node a path terminates at, or Source if the path is empty.
func (p Path) End(source int) int {
	if len(p.Steps) == 0 {
		return source
	}
	return p.Steps[len(p.Steps)-1].Node
}

// Options bounds and filters path enumeration.
type Options struct {
	// MinLen and MaxLen bound path length in edges. MaxLen <= 0 means
	// unbounded (still finite, since paths are edge-simple over a finite
	// edge set).
	MinLen, MaxLen int
	// Dest, if non-nil, restricts enumeration to paths ending at *Dest.
	Dest *int
	// RelTypes restricts which relation types may be traversed; empty
	// means any.
	RelTypes []string
	// Direction selects which edges a frame may step across: graph.Outgoing
	// (the zero value) follows an edge from its From node to its To node,
	// graph.Incoming follows it from To to From, and graph.Both allows
	// either. A self-loop steps to itself regardless of direction.
	Direction graph.Direction
}

// frame is one level of the explicit DFS stack: the node reached to get
// here, the edges available to try next from that node, and a cursor into
// them.
type frame struct {
	node      int
	outEdges  []graph.Edge
	cursor    int
	edgeTaken graph.Edge // the edge this frame arrived by (unused at the root frame)
	hasEdge   bool
}

// Iterator enumerates edge-simple paths starting at Source in an
// unspecified but deterministic order for a fixed graph state. It does not
// hold the graph's write lock between calls to Next; callers that need a
// consistent view across a long iteration take a read lease themselves
// (see graph.Graph.RLock) around the whole walk.
type Iterator struct {
	g          *graph.Graph
	source     int
	opts       Options
	stack      []frame
	usedEdges  map[int]bool
	started    bool
	exhausted  bool
}

// Init creates an iterator walking out from source.
func Init(g *graph.Graph, source int, opts Options) *Iterator {
	return &Iterator{
		g:         g,
		source:    source,
		opts:      opts,
		usedEdges: make(map[int]bool),
	}
}

func (it *Iterator) relTypeAllowed(relType string) bool {
	if len(it.opts.RelTypes) == 0 {
		return true
	}
	for _, r := range it.opts.RelTypes {
		if r == relType {
			return true
		}
	}
	return false
}

func (it *Iterator) pushFrame(node int) error {
	edges, err := it.g.GetNodeEdges(node, it.opts.Direction)
	if err != nil {
		return err
	}
	filtered := edges[:0]
	for _, e := range edges {
		if it.relTypeAllowed(e.RelType) {
			filtered = append(filtered, e)
		}
	}
	it.stack = append(it.stack, frame{node: node, outEdges: filtered})
	return nil
}

// otherEnd returns the node a step across e leads to when the walk is
// currently sitting at node: the far end for a directed traversal, or
// node itself for a self-loop.
func otherEnd(e graph.Edge, node int) int {
	if e.From == node {
		return e.To
	}
	return e.From
}

func (it *Iterator) matchesConstraints(depth, endNode int) bool {
	if depth < it.opts.MinLen {
		return false
	}
	if it.opts.MaxLen > 0 && depth > it.opts.MaxLen {
		return false
	}
	if it.opts.Dest != nil && endNode != *it.opts.Dest {
		return false
	}
	return true
}

func (it *Iterator) buildPath() Path {
	steps := make([]Step, 0, len(it.stack))
	for _, f := range it.stack {
		if f.hasEdge {
			steps = append(steps, Step{Edge: f.edgeTaken, Node: f.node})
		}
	}
	return Path{Steps: steps}
}

// Next advances the walk and returns the next path satisfying Options, or
// ok=false once every edge-simple path from Source has been produced.
func (it *Iterator) Next() (Path, bool, error) {
	if it.exhausted {
		return Path{}, false, nil
	}
	if !it.started {
		it.started = true
		if err := it.pushFrame(it.source); err != nil {
			it.exhausted = true
			return Path{}, false, err
		}
		if it.matchesConstraints(0, it.source) {
			return Path{}, true, nil // the zero-length path at Source itself
		}
	}

	for len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]
		if top.cursor >= len(top.outEdges) {
			if top.hasEdge {
				delete(it.usedEdges, top.edgeTaken.ID)
			}
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}
		e := top.outEdges[top.cursor]
		top.cursor++

		if it.usedEdges[e.ID] {
			continue
		}
		it.usedEdges[e.ID] = true
		next := otherEnd(e, top.node)
		if err := it.pushFrame(next); err != nil {
			it.exhausted = true
			return Path{}, false, err
		}
		it.stack[len(it.stack)-1].edgeTaken = e
		it.stack[len(it.stack)-1].hasEdge = true

		depth := len(it.stack) - 1
		if it.opts.MaxLen > 0 && depth > it.opts.MaxLen {
			// over budget; unwind this branch without yielding
			delete(it.usedEdges, e.ID)
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}
		if it.matchesConstraints(depth, next) {
			return it.buildPath(), true, nil
		}
	}

	it.exhausted = true
	return Path{}, false, nil
}

// Collect drains up to limit paths from it. limit <= 0 means unbounded
// (until the iterator exhausts).
func Collect(it *Iterator, limit int) ([]Path, error) {
	var out []Path
	for limit <= 0 || len(out) < limit {
		p, ok, err := it.Next()
		if err != nil {
			return out, err
		}
		if !ok {
			break
		}
		out = append(out, p)
	}
	return out, nil
}
