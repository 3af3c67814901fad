// Package matrix is a thin, typed adaptor over an external sparse-matrix
// kernel (github.com/intel/forGraphBLASGo, a pure-Go library shaped after
// the GraphBLAS C API that the original graph engine this module is built
// from was itself implemented on top of).
//
// The wrapper exposes exactly the operations the graph core needs
// (construct, resize, element access, pattern union, matrix-vector
// multiply, transpose, select, ordered iteration) and nothing else. It
// validates shape and bounds against its own state; it never reaches into
// the kernel's internals.
//
// Thread Safety:
//
//	Matrix is NOT thread-safe on its own. Callers (pkg/graph) serialize all
//	mutation through the writer lock and allow concurrent reads only while
//	holding the reader lock; see pkg/rwcoord.
package matrix

import (
	"errors"
	"fmt"

	gb "github.com/intel/forGraphBLASGo"
)

// ErrResource is returned when the underlying kernel cannot satisfy an
// allocation (construct or resize), mapping to the "Resource" error kind.
var ErrResource = errors.New("matrix: resource exhausted")

// Element is the closed set of payload types a Matrix may hold: boolean
// patterns for adjacency/label matrices, uint64 tagged cells for relation
// matrices (see pkg/graph for the single/multi-edge tagging scheme).
type Element interface {
	~bool | ~uint64
}

// Matrix is a square or rectangular sparse matrix over T.
type Matrix[T Element] struct {
	gb           *gb.Matrix[T]
	nrows, ncols int
}

// New constructs a zero-valued matrix of the given dimensions. Both
// dimensions must be positive; callers needing an empty graph size it to 1
// and grow with Resize as nodes are created (see pkg/entitystore).
func New[T Element](nrows, ncols int) (*Matrix[T], error) {
	if nrows <= 0 || ncols <= 0 {
		return nil, fmt.Errorf("matrix: invalid dimensions %dx%d", nrows, ncols)
	}
	m, err := gb.MatrixNew[T](nrows, ncols)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResource, err)
	}
	return &Matrix[T]{gb: m, nrows: nrows, ncols: ncols}, nil
}

// Rows reports the current row dimension.
func (m *Matrix[T]) Rows() int { return m.nrows }

// Cols reports the current column dimension.
func (m *Matrix[T]) Cols() int { return m.ncols }

// Resize grows or shrinks the matrix. Per the C1 contract this is
// non-destructive: existing entries within the new bounds are preserved,
// new area is empty. Shrinking drops entries outside the new bounds, which
// the graph core never does (capacity only ever grows, see I1).
func (m *Matrix[T]) Resize(nrows, ncols int) error {
	if nrows <= 0 || ncols <= 0 {
		return fmt.Errorf("matrix: invalid dimensions %dx%d", nrows, ncols)
	}
	if err := m.gb.Resize(nrows, ncols); err != nil {
		return fmt.Errorf("%w: %v", ErrResource, err)
	}
	m.nrows, m.ncols = nrows, ncols
	return nil
}

// SetElement assigns v at (i, j). Idempotent for the same (i, j, v).
func (m *Matrix[T]) SetElement(i, j int, v T) error {
	if err := m.bounds(i, j); err != nil {
		return err
	}
	if err := m.gb.SetElement(v, i, j); err != nil {
		return fmt.Errorf("%w: %v", ErrResource, err)
	}
	return nil
}

// ClearElement removes (i, j). A no-op if the cell is already empty.
func (m *Matrix[T]) ClearElement(i, j int) error {
	if err := m.bounds(i, j); err != nil {
		return err
	}
	_ = m.gb.RemoveElement(i, j) // kernel treats removing an absent cell as a no-op
	return nil
}

// GetElement returns the value stored at (i, j), or ok=false if the cell is
// empty or out of bounds.
func (m *Matrix[T]) GetElement(i, j int) (v T, ok bool) {
	if m.bounds(i, j) != nil {
		var zero T
		return zero, false
	}
	val, err := m.gb.ExtractElement(i, j)
	if err != nil {
		var zero T
		return zero, false
	}
	return val, true
}

// NNZ returns the number of stored (non-empty) entries.
func (m *Matrix[T]) NNZ() int {
	n, err := m.gb.NVals()
	if err != nil {
		return 0
	}
	return n
}

// Tuple is one (row, col, value) entry yielded by Iterate or used to
// rebuild a matrix after a composition op (EWiseAdd, Transpose, Select).
type Tuple[T Element] struct {
	Row, Col int
	Val      T
}

// tuples extracts every stored entry from the kernel in whatever order it
// chooses to return them. Re-extracting after further mutation always
// reflects current state, which is what makes Iterate "restartable".
func (m *Matrix[T]) tuples() ([]Tuple[T], error) {
	rows, cols, vals, err := m.gb.ExtractTuples()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResource, err)
	}
	out := make([]Tuple[T], len(rows))
	for k := range rows {
		out[k] = Tuple[T]{Row: rows[k], Col: cols[k], Val: vals[k]}
	}
	return out, nil
}

// Iterate visits every stored entry in an unspecified but total order.
// The visitor returns false to stop early.
func (m *Matrix[T]) Iterate(visit func(i, j int, v T) bool) error {
	tuples, err := m.tuples()
	if err != nil {
		return err
	}
	for _, t := range tuples {
		if !visit(t.Row, t.Col, t.Val) {
			break
		}
	}
	return nil
}

// clearAll drops every stored entry without changing dimensions.
func (m *Matrix[T]) clearAll() error {
	if err := m.gb.Clear(); err != nil {
		return fmt.Errorf("%w: %v", ErrResource, err)
	}
	return nil
}

func (m *Matrix[T]) bounds(i, j int) error {
	if i < 0 || i >= m.nrows || j < 0 || j >= m.ncols {
		return fmt.Errorf("matrix: index (%d,%d) out of bounds for %dx%d", i, j, m.nrows, m.ncols)
	}
	return nil
}

// EWiseAdd sets dst to the pattern union of a and b: dst[i,j] is present
// iff a[i,j] or b[i,j] is present. Where both operands hold a value for the
// same cell, the combined value is chosen by an "any-pair" reducer — either
// operand's value is a valid result for a pattern merge, so this
// implementation keeps a's value. dst may alias a or b.
func EWiseAdd[T Element](dst, a, b *Matrix[T]) error {
	at, err := a.tuples()
	if err != nil {
		return err
	}
	bt, err := b.tuples()
	if err != nil {
		return err
	}

	type key struct{ i, j int }
	merged := make(map[key]T, len(at)+len(bt))
	for _, t := range at {
		merged[key{t.Row, t.Col}] = t.Val
	}
	for _, t := range bt {
		k := key{t.Row, t.Col}
		if _, present := merged[k]; !present {
			merged[k] = t.Val
		}
	}

	if err := dst.clearAll(); err != nil {
		return err
	}
	for k, v := range merged {
		if err := dst.SetElement(k.i, k.j, v); err != nil {
			return err
		}
	}
	return nil
}

// PredicateKind selects the filter Select applies.
type PredicateKind int

const (
	// OffDiagonal keeps entries with row != col.
	OffDiagonal PredicateKind = iota
	// NonZero keeps every stored entry (a no-op filter; useful after
	// operations that might leave zero-valued-but-present cells).
	NonZero
	// RowRange keeps entries with Lo <= row < Hi.
	RowRange
	// ColRange keeps entries with Lo <= col < Hi.
	ColRange
)

// Predicate parameterizes Select.
type Predicate struct {
	Kind   PredicateKind
	Lo, Hi int
}

func (p Predicate) keep(i, j int) bool {
	switch p.Kind {
	case OffDiagonal:
		return i != j
	case RowRange:
		return i >= p.Lo && i < p.Hi
	case ColRange:
		return j >= p.Lo && j < p.Hi
	default: // NonZero
		return true
	}
}

// Select fills dst with the subset of src's entries satisfying pred. dst
// must not alias src.
func Select[T Element](dst, src *Matrix[T], pred Predicate) error {
	tuples, err := src.tuples()
	if err != nil {
		return err
	}
	if err := dst.clearAll(); err != nil {
		return err
	}
	for _, t := range tuples {
		if pred.keep(t.Row, t.Col) {
			if err := dst.SetElement(t.Row, t.Col, t.Val); err != nil {
				return err
			}
		}
	}
	return nil
}

// Transpose fills dst with src transposed (dst[j,i] = src[i,j] for every
// stored entry). dst must already be sized ncols(src) x nrows(src); it must
// not alias src.
func Transpose[T Element](dst, src *Matrix[T]) error {
	tuples, err := src.tuples()
	if err != nil {
		return err
	}
	if err := dst.clearAll(); err != nil {
		return err
	}
	for _, t := range tuples {
		if err := dst.SetElement(t.Col, t.Row, t.Val); err != nil {
			return err
		}
	}
	return nil
}
