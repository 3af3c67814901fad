// Package algo implements read-only algorithm adapters: each builds a
// filtered "effective adjacency" matrix from a caller-chosen subset of
// relation types and labels, then runs a traversal or propagation
// algorithm over it. Adapters never mutate the graph they're given; they
// only ever call matrix.EWiseAdd/Select to build a scratch matrix and
// matrix.BoolMxV to step across it.
package algo

import (
	"fmt"

	"github.com/orneryd/mgraph/pkg/graph"
	"github.com/orneryd/mgraph/pkg/matrix"
)

// Selection chooses which relation types and labels an adapter considers.
// Empty RelTypes means every relation type; empty Labels means no label
// filtering is applied.
type Selection struct {
	RelTypes []string
	// Labels, if non-empty, restricts the effective adjacency to edges
	// between nodes that both carry at least one of these labels
	// (L . A . L), and ClearDiagonal additionally drops self-loops this
	// filtering can introduce.
	Labels        []string
	ClearDiagonal bool
}

// EffectiveAdjacency builds the union of the selected relation types'
// patterns, optionally pre/post-filtered by the union of the selected
// labels, as described in Selection.
func EffectiveAdjacency(g *graph.Graph, sel Selection) (*matrix.Matrix[bool], error) {
	g.RLock()
	defer g.RUnlock()
	return effectiveAdjacencyLocked(g, sel)
}

func effectiveAdjacencyLocked(g *graph.Graph, sel Selection) (*matrix.Matrix[bool], error) {
	dim := g.Stats().Capacity

	relIDs := sel.RelTypes
	var ids []int
	if len(relIDs) == 0 {
		for id := 0; id < g.Relations().Count(); id++ {
			ids = append(ids, id)
		}
	} else {
		for _, name := range relIDs {
			if id, ok := g.Relations().ID(name); ok {
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: selection matches no relation types", graph.ErrNotSupported)
	}

	union, err := matrix.New[bool](dim, dim)
	if err != nil {
		return nil, err
	}
	for _, relID := range ids {
		rm := g.RelationMatrix(relID)
		if rm == nil {
			continue
		}
		pattern, err := matrix.New[bool](dim, dim)
		if err != nil {
			return nil, err
		}
		if err := rm.Iterate(func(i, j int, v uint64) bool {
			_ = pattern.SetElement(i, j, true)
			return true
		}); err != nil {
			return nil, err
		}
		if err := matrix.EWiseAdd(union, union, pattern); err != nil {
			return nil, err
		}
	}

	if len(sel.Labels) > 0 {
		labelUnion, err := matrix.New[bool](dim, dim)
		if err != nil {
			return nil, err
		}
		for _, name := range sel.Labels {
			if id, ok := g.Labels().ID(name); ok {
				if lm := g.LabelMatrix(id); lm != nil {
					if err := matrix.EWiseAdd(labelUnion, labelUnion, lm); err != nil {
						return nil, err
					}
				}
			}
		}
		filtered, err := matrix.New[bool](dim, dim)
		if err != nil {
			return nil, err
		}
		// L . A . L restricted to diagonal-only L: keep union[i,j] only
		// when both i and j carry a selected label.
		if err := union.Iterate(func(i, j int, v bool) bool {
			_, iLabeled := labelUnion.GetElement(i, i)
			_, jLabeled := labelUnion.GetElement(j, j)
			if iLabeled && jLabeled {
				_ = filtered.SetElement(i, j, true)
			}
			return true
		}); err != nil {
			return nil, err
		}
		union = filtered
	}

	if sel.ClearDiagonal {
		cleared, err := matrix.New[bool](dim, dim)
		if err != nil {
			return nil, err
		}
		if err := matrix.Select(cleared, union, matrix.Predicate{Kind: matrix.OffDiagonal}); err != nil {
			return nil, err
		}
		union = cleared
	}

	return union, nil
}

// BFSTree computes, over the effective adjacency chosen by sel, the BFS
// distance from source to every reachable node. The result maps node id to
// hop count; source itself is distance 0.
func BFSTree(g *graph.Graph, source int, sel Selection) (map[int]int, error) {
	adj, err := EffectiveAdjacency(g, sel)
	if err != nil {
		return nil, err
	}
	n := adj.Rows()
	if source < 0 || source >= n {
		return nil, fmt.Errorf("%w: source %d out of range", graph.ErrInvalidID, source)
	}

	// BoolMxV(m, v)[i] is OR_j m[i,j] AND v[j]: stepping "forward" along
	// edge i->j from a frontier held in v requires v on the row side, so
	// walk the transpose instead of adj itself.
	adjT, err := matrix.New[bool](n, n)
	if err != nil {
		return nil, err
	}
	if err := matrix.Transpose(adjT, adj); err != nil {
		return nil, err
	}

	dist := map[int]int{source: 0}
	frontier := make([]bool, n)
	frontier[source] = true

	for depth := 1; ; depth++ {
		next, err := matrix.BoolMxV(adjT, frontier)
		if err != nil {
			return nil, err
		}
		progressed := false
		newFrontier := make([]bool, n)
		for i, reached := range next {
			if reached {
				if _, seen := dist[i]; !seen {
					dist[i] = depth
					newFrontier[i] = true // only nodes first reached this round expand next round
					progressed = true
				}
			}
		}
		if !progressed {
			break
		}
		frontier = newFrontier
	}
	return dist, nil
}

// LabelPropagation runs label-propagation community detection over the
// effective adjacency chosen by sel: every node starts as its own
// community, then iteratively adopts the most common community among its
// neighbors until labels stop changing or maxIterations is reached. Labels
// are updated in place in ascending node order, so a node already sees the
// labels its lower-numbered neighbors adopted earlier in the same pass.
func LabelPropagation(g *graph.Graph, sel Selection, maxIterations int) (map[int]int, error) {
	adj, err := EffectiveAdjacency(g, sel)
	if err != nil {
		return nil, err
	}
	n := adj.Rows()

	neighbors := make([][]int, n)
	if err := adj.Iterate(func(i, j int, v bool) bool {
		neighbors[i] = append(neighbors[i], j)
		neighbors[j] = append(neighbors[j], i) // propagation treats the relation as undirected
		return true
	}); err != nil {
		return nil, err
	}

	community := make([]int, n)
	for i := range community {
		community[i] = i
	}

	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i := 0; i < n; i++ {
			if len(neighbors[i]) == 0 {
				continue
			}
			counts := make(map[int]int)
			for _, j := range neighbors[i] {
				counts[community[j]]++
			}
			best, bestCount := community[i], -1
			for c, count := range counts {
				if count > bestCount || (count == bestCount && c < best) {
					best, bestCount = c, count
				}
			}
			if best != community[i] {
				community[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	out := make(map[int]int, n)
	for i, c := range community {
		out[i] = c
	}
	return out, nil
}
