package graph

import "github.com/hupe1980/nxgraph/result"

var (
	// ErrNotFound is returned when an ID or path does not resolve.
	ErrNotFound = result.Sentinel(result.KindStructural, "graph: object not found")
	// ErrNameCollision is returned when a sibling already has the name.
	ErrNameCollision = result.Sentinel(result.KindStructural, "graph: name collision")
	// ErrInvalidParent is returned when the parent cannot hold the child.
	ErrInvalidParent = result.Sentinel(result.KindStructural, "graph: invalid parent")
	// ErrInvalidName is returned for empty names, "." , ".." or names containing "/".
	ErrInvalidName = result.Sentinel(result.KindValidation, "graph: invalid name")
	// ErrTupleShapeMismatch is returned when an array does not match its attribute matrix.
	ErrTupleShapeMismatch = result.Sentinel(result.KindValidation, "graph: tuple shape mismatch")
	// ErrStaleID is returned for the ID of a destroyed object.
	ErrStaleID = result.Sentinel(result.KindStructural, "graph: stale id")
	// ErrCycle is returned when adding a parent would make an object its own ancestor.
	ErrCycle = result.Sentinel(result.KindStructural, "graph: ownership cycle")
	// ErrKindMismatch is returned when an object has an unexpected kind.
	ErrKindMismatch = result.Sentinel(result.KindValidation, "graph: unexpected object kind")
)
