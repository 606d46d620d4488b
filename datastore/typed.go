package datastore

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DataStore is a contiguous store of numeric elements.
type DataStore[T Numeric] struct {
	meta
	data []T
}

// NewTyped allocates a zeroed store of T.
func NewTyped[T Numeric](tupleShape, componentShape Shape, opts ...Option) (*DataStore[T], error) {
	m, err := newMeta(TypeOf[T](), tupleShape, componentShape, opts)
	if err != nil {
		return nil, err
	}
	return &DataStore[T]{meta: m, data: make([]T, m.Size())}, nil
}

// FromSlice wraps values, which must hold exactly the shapes' element count.
// The store takes ownership of the slice.
func FromSlice[T Numeric](values []T, tupleShape, componentShape Shape, opts ...Option) (*DataStore[T], error) {
	m, err := newMeta(TypeOf[T](), tupleShape, componentShape, opts)
	if err != nil {
		return nil, err
	}
	if len(values) != m.Size() {
		return nil, fmt.Errorf("%w: %d values for %d elements", ErrShapeMismatch, len(values), m.Size())
	}
	return &DataStore[T]{meta: m, data: values}, nil
}

func (s *DataStore[T]) Allocated() bool { return true }

// Get returns the element at flat index i.
func (s *DataStore[T]) Get(i int) T { return s.data[i] }

// Set stores v at flat index i.
func (s *DataStore[T]) Set(i int, v T) { s.data[i] = v }

// Fill sets every element to v.
func (s *DataStore[T]) Fill(v T) {
	for i := range s.data {
		s.data[i] = v
	}
}

// Values returns the backing slice. It is invalidated by Reshape.
func (s *DataStore[T]) Values() []T { return s.data }

// Tuple returns a view of the components of tuple t.
func (s *DataStore[T]) Tuple(t int) []T {
	nc := s.NumComponents()
	return s.data[t*nc : (t+1)*nc]
}

// SetTuple copies vals into tuple t.
func (s *DataStore[T]) SetTuple(t int, vals []T) error {
	if err := s.checkTuple(t); err != nil {
		return err
	}
	nc := s.NumComponents()
	if len(vals) != nc {
		return fmt.Errorf("%w: %d values for %d components", ErrShapeMismatch, len(vals), nc)
	}
	copy(s.data[t*nc:], vals)
	return nil
}

func (s *DataStore[T]) CopyTuple(src, dst int) error {
	if err := s.checkTuple(src); err != nil {
		return err
	}
	if err := s.checkTuple(dst); err != nil {
		return err
	}
	nc := s.NumComponents()
	copy(s.data[dst*nc:(dst+1)*nc], s.data[src*nc:(src+1)*nc])
	return nil
}

func (s *DataStore[T]) Reshape(tupleShape Shape) error {
	if err := s.reshape(tupleShape); err != nil {
		return err
	}
	if n := s.Size(); n != len(s.data) {
		data := make([]T, n)
		copy(data, s.data)
		s.data = data
	}
	return nil
}

func (s *DataStore[T]) FillFloat64(v float64) error {
	s.Fill(T(v))
	return nil
}

func (s *DataStore[T]) Float64At(i int) float64     { return float64(s.data[i]) }
func (s *DataStore[T]) SetFloat64(i int, v float64) { s.data[i] = T(v) }

func (s *DataStore[T]) EncodeBigEndian(dst []byte, start, count int) ([]byte, error) {
	if err := s.checkRange(start, count); err != nil {
		return dst, err
	}
	return appendBigEndian(dst, s.data[start:start+count]), nil
}

func (s *DataStore[T]) DecodeBigEndian(src []byte, start int) error {
	size := s.dtype.Size()
	if len(src)%size != 0 {
		return fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrShapeMismatch, len(src), size)
	}
	count := len(src) / size
	if err := s.checkRange(start, count); err != nil {
		return err
	}
	decodeBigEndian(s.data[start:start+count], src)
	return nil
}

func (s *DataStore[T]) Clone() Store {
	data := make([]T, len(s.data))
	copy(data, s.data)
	return &DataStore[T]{meta: s.meta.clone(), data: data}
}

func (s *DataStore[T]) Bytes() int64 { return AllocationBytes(s.dtype, len(s.data)) }

func appendBigEndian[T Numeric](dst []byte, src []T) []byte {
	be := binary.BigEndian
	switch v := any(src).(type) {
	case []int8:
		for _, x := range v {
			dst = append(dst, byte(x))
		}
	case []uint8:
		dst = append(dst, v...)
	case []int16:
		for _, x := range v {
			dst = be.AppendUint16(dst, uint16(x))
		}
	case []uint16:
		for _, x := range v {
			dst = be.AppendUint16(dst, x)
		}
	case []int32:
		for _, x := range v {
			dst = be.AppendUint32(dst, uint32(x))
		}
	case []uint32:
		for _, x := range v {
			dst = be.AppendUint32(dst, x)
		}
	case []int64:
		for _, x := range v {
			dst = be.AppendUint64(dst, uint64(x))
		}
	case []uint64:
		for _, x := range v {
			dst = be.AppendUint64(dst, x)
		}
	case []float32:
		for _, x := range v {
			dst = be.AppendUint32(dst, math.Float32bits(x))
		}
	case []float64:
		for _, x := range v {
			dst = be.AppendUint64(dst, math.Float64bits(x))
		}
	}
	return dst
}

func decodeBigEndian[T Numeric](dst []T, src []byte) {
	be := binary.BigEndian
	switch v := any(dst).(type) {
	case []int8:
		for i := range v {
			v[i] = int8(src[i])
		}
	case []uint8:
		copy(v, src)
	case []int16:
		for i := range v {
			v[i] = int16(be.Uint16(src[2*i:]))
		}
	case []uint16:
		for i := range v {
			v[i] = be.Uint16(src[2*i:])
		}
	case []int32:
		for i := range v {
			v[i] = int32(be.Uint32(src[4*i:]))
		}
	case []uint32:
		for i := range v {
			v[i] = be.Uint32(src[4*i:])
		}
	case []int64:
		for i := range v {
			v[i] = int64(be.Uint64(src[8*i:]))
		}
	case []uint64:
		for i := range v {
			v[i] = be.Uint64(src[8*i:])
		}
	case []float32:
		for i := range v {
			v[i] = math.Float32frombits(be.Uint32(src[4*i:]))
		}
	case []float64:
		for i := range v {
			v[i] = math.Float64frombits(be.Uint64(src[8*i:]))
		}
	}
}
