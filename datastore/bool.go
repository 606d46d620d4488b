package datastore

import (
	"fmt"

	"github.com/hupe1980/nxgraph/internal/bitset"
)

// BoolStore packs booleans one bit per element. On the wire every element
// takes one byte holding 0 or 1.
type BoolStore struct {
	meta
	bits *bitset.BitSet
}

// NewBool allocates a store with every element false.
func NewBool(tupleShape, componentShape Shape, opts ...Option) (*BoolStore, error) {
	m, err := newMeta(Bool, tupleShape, componentShape, opts)
	if err != nil {
		return nil, err
	}
	return &BoolStore{meta: m, bits: bitset.New(m.Size())}, nil
}

func (s *BoolStore) Allocated() bool { return true }

// Get returns element i.
func (s *BoolStore) Get(i int) bool { return s.bits.Test(i) }

// Set stores v at element i. Concurrent Sets on distinct indexes are safe.
func (s *BoolStore) Set(i int, v bool) { s.bits.Put(i, v) }

// Fill sets every element to v.
func (s *BoolStore) Fill(v bool) { s.bits.SetAll(v) }

// Count returns the number of true elements.
func (s *BoolStore) Count() int { return s.bits.Count() }

func (s *BoolStore) CopyTuple(src, dst int) error {
	if err := s.checkTuple(src); err != nil {
		return err
	}
	if err := s.checkTuple(dst); err != nil {
		return err
	}
	nc := s.NumComponents()
	for c := 0; c < nc; c++ {
		s.bits.Put(dst*nc+c, s.bits.Test(src*nc+c))
	}
	return nil
}

func (s *BoolStore) Reshape(tupleShape Shape) error {
	if err := s.reshape(tupleShape); err != nil {
		return err
	}
	if n := s.Size(); n != s.bits.Len() {
		s.bits = s.bits.Resize(n)
	}
	return nil
}

func (s *BoolStore) FillFloat64(v float64) error {
	s.Fill(v != 0)
	return nil
}

func (s *BoolStore) Float64At(i int) float64 {
	if s.bits.Test(i) {
		return 1
	}
	return 0
}

func (s *BoolStore) SetFloat64(i int, v float64) { s.bits.Put(i, v != 0) }

func (s *BoolStore) EncodeBigEndian(dst []byte, start, count int) ([]byte, error) {
	if err := s.checkRange(start, count); err != nil {
		return dst, err
	}
	for i := start; i < start+count; i++ {
		var b byte
		if s.bits.Test(i) {
			b = 1
		}
		dst = append(dst, b)
	}
	return dst, nil
}

func (s *BoolStore) DecodeBigEndian(src []byte, start int) error {
	if err := s.checkRange(start, len(src)); err != nil {
		return err
	}
	for i, b := range src {
		if b > 1 {
			return fmt.Errorf("%w: bool byte %d at element %d", ErrTypeMismatch, b, start+i)
		}
		s.bits.Put(start+i, b == 1)
	}
	return nil
}

func (s *BoolStore) Clone() Store {
	return &BoolStore{meta: s.meta.clone(), bits: s.bits.Clone()}
}

func (s *BoolStore) Bytes() int64 { return AllocationBytes(Bool, s.bits.Len()) }
