package datastore

import (
	"bytes"
	"fmt"
)

// Store is the type-erased view of a typed store. Element access through
// Float64At and SetFloat64 panics on an unallocated store.
type Store interface {
	DataType() DataType
	TupleShape() Shape
	ComponentShape() Shape
	// ChunkShape returns nil for unchunked stores.
	ChunkShape() Shape
	SetChunkShape(chunk Shape) error
	NumTuples() int
	NumComponents() int
	Size() int
	Allocated() bool

	// Reshape changes the tuple shape. Allocated stores keep the elements
	// of the overlapping flat prefix; new elements are zero.
	Reshape(tupleShape Shape) error
	CopyTuple(src, dst int) error
	FillFloat64(v float64) error
	Float64At(i int) float64
	SetFloat64(i int, v float64)

	// EncodeBigEndian appends count elements starting at flat index start
	// to dst in big-endian wire order.
	EncodeBigEndian(dst []byte, start, count int) ([]byte, error)
	// DecodeBigEndian overwrites elements starting at flat index start
	// with the big-endian elements in src.
	DecodeBigEndian(src []byte, start int) error

	Clone() Store
	// Bytes returns the in-memory footprint of the element data.
	Bytes() int64
}

// Option configures store construction.
type Option func(*config)

type config struct {
	chunk Shape
}

// WithChunkShape sets the chunk shape used when the store is persisted.
func WithChunkShape(chunk Shape) Option {
	return func(c *config) { c.chunk = chunk.Clone() }
}

// meta holds the type and shape fields every store shares.
type meta struct {
	dtype DataType
	tuple Shape
	comp  Shape
	chunk Shape
}

func newMeta(dtype DataType, tuple, comp Shape, opts []Option) (meta, error) {
	if !dtype.Valid() {
		return meta{}, fmt.Errorf("%w: %d", ErrUnsupportedType, dtype)
	}
	if err := tuple.Validate(); err != nil {
		return meta{}, fmt.Errorf("tuple shape: %w", err)
	}
	if len(comp) == 0 {
		comp = Shape{1}
	}
	if err := comp.Validate(); err != nil {
		return meta{}, fmt.Errorf("component shape: %w", err)
	}
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validateChunk(cfg.chunk, tuple, comp); err != nil {
		return meta{}, err
	}
	return meta{dtype: dtype, tuple: tuple.Clone(), comp: comp.Clone(), chunk: cfg.chunk}, nil
}

func (m *meta) DataType() DataType    { return m.dtype }
func (m *meta) TupleShape() Shape     { return m.tuple.Clone() }
func (m *meta) ComponentShape() Shape { return m.comp.Clone() }
func (m *meta) ChunkShape() Shape     { return m.chunk.Clone() }
func (m *meta) NumTuples() int        { return m.tuple.Product() }
func (m *meta) NumComponents() int    { return m.comp.Product() }
func (m *meta) Size() int             { return m.NumTuples() * m.NumComponents() }

func (m *meta) SetChunkShape(chunk Shape) error {
	if err := validateChunk(chunk, m.tuple, m.comp); err != nil {
		return err
	}
	m.chunk = chunk.Clone()
	return nil
}

// reshape validates and applies a new tuple shape. A chunk shape whose rank
// no longer fits is dropped.
func (m *meta) reshape(tuple Shape) error {
	if err := tuple.Validate(); err != nil {
		return fmt.Errorf("tuple shape: %w", err)
	}
	m.tuple = tuple.Clone()
	if validateChunk(m.chunk, m.tuple, m.comp) != nil {
		m.chunk = nil
	}
	return nil
}

func (m *meta) clone() meta {
	return meta{dtype: m.dtype, tuple: m.tuple.Clone(), comp: m.comp.Clone(), chunk: m.chunk.Clone()}
}

func (m *meta) checkTuple(i int) error {
	if i < 0 || i >= m.NumTuples() {
		return fmt.Errorf("%w: tuple %d of %d", ErrIndexOutOfRange, i, m.NumTuples())
	}
	return nil
}

func (m *meta) checkRange(start, count int) error {
	if start < 0 || count < 0 || start+count > m.Size() {
		return fmt.Errorf("%w: elements [%d,%d) of %d", ErrIndexOutOfRange, start, start+count, m.Size())
	}
	return nil
}

// New allocates a zeroed store of the given type.
func New(dtype DataType, tupleShape, componentShape Shape, opts ...Option) (Store, error) {
	switch dtype {
	case Int8:
		return NewTyped[int8](tupleShape, componentShape, opts...)
	case Uint8:
		return NewTyped[uint8](tupleShape, componentShape, opts...)
	case Int16:
		return NewTyped[int16](tupleShape, componentShape, opts...)
	case Uint16:
		return NewTyped[uint16](tupleShape, componentShape, opts...)
	case Int32:
		return NewTyped[int32](tupleShape, componentShape, opts...)
	case Uint32:
		return NewTyped[uint32](tupleShape, componentShape, opts...)
	case Int64:
		return NewTyped[int64](tupleShape, componentShape, opts...)
	case Uint64:
		return NewTyped[uint64](tupleShape, componentShape, opts...)
	case Float32:
		return NewTyped[float32](tupleShape, componentShape, opts...)
	case Float64:
		return NewTyped[float64](tupleShape, componentShape, opts...)
	case Bool:
		return NewBool(tupleShape, componentShape, opts...)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedType, dtype)
	}
}

// Allocate returns s if it is allocated, otherwise a zeroed store with the
// same type, shapes and chunk shape.
func Allocate(s Store) (Store, error) {
	if s.Allocated() {
		return s, nil
	}
	var opts []Option
	if c := s.ChunkShape(); c != nil {
		opts = append(opts, WithChunkShape(c))
	}
	return New(s.DataType(), s.TupleShape(), s.ComponentShape(), opts...)
}

// As returns s as a *DataStore[T] if its element type is T.
func As[T Numeric](s Store) (*DataStore[T], bool) {
	ds, ok := s.(*DataStore[T])
	return ds, ok
}

// AsBool returns s as a *BoolStore.
func AsBool(s Store) (*BoolStore, bool) {
	bs, ok := s.(*BoolStore)
	return bs, ok
}

// AllocationBytes estimates the in-memory footprint of an allocated store.
func AllocationBytes(dtype DataType, size int) int64 {
	if dtype == Bool {
		return int64((size+63)/64) * 8
	}
	return int64(size) * int64(dtype.Size())
}

// SameLayout reports whether a and b have equal types and shapes.
func SameLayout(a, b Store) bool {
	return a.DataType() == b.DataType() &&
		a.TupleShape().Equal(b.TupleShape()) &&
		a.ComponentShape().Equal(b.ComponentShape())
}

// Equal reports whether a and b have the same layout and identical
// elements. Unallocated stores compare by layout only.
func Equal(a, b Store) bool {
	if !SameLayout(a, b) || a.Allocated() != b.Allocated() {
		return false
	}
	if !a.Allocated() {
		return true
	}
	ea, err := a.EncodeBigEndian(nil, 0, a.Size())
	if err != nil {
		return false
	}
	eb, err := b.EncodeBigEndian(nil, 0, b.Size())
	if err != nil {
		return false
	}
	return bytes.Equal(ea, eb)
}
