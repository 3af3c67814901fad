package graph

import "errors"

// Sentinel errors map directly onto the error taxonomy every graph
// operation reports through: callers distinguish failure kinds with
// errors.Is rather than string matching.
var (
	// ErrInvalidID is returned when a node or edge id does not name a
	// currently live entity.
	ErrInvalidID = errors.New("graph: invalid id")
	// ErrInvalidName is returned for an empty or otherwise malformed
	// label or relation-type name.
	ErrInvalidName = errors.New("graph: invalid name")
	// ErrResource is returned when the underlying matrix kernel or entity
	// store cannot satisfy an allocation.
	ErrResource = errors.New("graph: resource exhausted")
	// ErrConsistency is returned when an operation would violate an
	// internal invariant (e.g. an edge referencing a node that does not
	// exist).
	ErrConsistency = errors.New("graph: consistency violation")
	// ErrConcurrency names the error kind for an operation attempted from
	// a context that the concurrency discipline forbids. No operation in
	// this module returns it: a write during an active fork barrier blocks
	// until the barrier is released instead of failing.
	ErrConcurrency = errors.New("graph: concurrency violation")
	// ErrNotSupported is returned for a request outside what this engine
	// implements (e.g. an algorithm adapter given an empty selection).
	ErrNotSupported = errors.New("graph: not supported")
)
