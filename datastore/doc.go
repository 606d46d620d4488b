// Package datastore implements typed, shape-aware element storage.
//
// A store holds one scalar type laid out contiguously in row-major order.
// Its tuple shape describes the logical elements and its component shape
// the per-element structure, so
//
//	Size() == TupleShape().Product() * ComponentShape().Product()
//
// holds after every operation. Shapes are ordered slowest axis first.
//
// [DataStore] is the generic implementation for numeric types, [BoolStore]
// packs booleans into bits, and [Empty] is a placeholder that carries shape
// and type but no elements (used while preflighting a pipeline). Code that
// must not know the element type works through the [Store] interface.
//
// An optional chunk shape, with the rank of the combined tuple and
// component shape, is metadata for the container writer only. Element
// access ignores it.
package datastore
