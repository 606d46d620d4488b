package datastore

import "github.com/hupe1980/nxgraph/result"

var (
	// ErrUnallocated is returned when element data of an Empty store is needed.
	ErrUnallocated = result.Sentinel(result.KindValidation, "datastore: store is not allocated")
	// ErrIndexOutOfRange is returned for tuple indexes outside the store.
	ErrIndexOutOfRange = result.Sentinel(result.KindValidation, "datastore: index out of range")
	// ErrShapeMismatch is returned for invalid or incompatible shapes.
	ErrShapeMismatch = result.Sentinel(result.KindValidation, "datastore: shape mismatch")
	// ErrTypeMismatch is returned when a store has an unexpected element type.
	ErrTypeMismatch = result.Sentinel(result.KindValidation, "datastore: type mismatch")
	// ErrUnsupportedType is returned for unknown data types.
	ErrUnsupportedType = result.Sentinel(result.KindValidation, "datastore: unsupported data type")
)
