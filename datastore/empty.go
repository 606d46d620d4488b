package datastore

// Empty describes a store's type and shapes without holding elements.
// Preflight builds graphs out of Empty stores so no element memory is spent
// validating a pipeline.
type Empty struct {
	meta
}

// NewEmpty returns a placeholder with the given layout.
func NewEmpty(dtype DataType, tupleShape, componentShape Shape, opts ...Option) (*Empty, error) {
	m, err := newMeta(dtype, tupleShape, componentShape, opts)
	if err != nil {
		return nil, err
	}
	return &Empty{meta: m}, nil
}

// Placeholder returns an Empty with s's layout.
func Placeholder(s Store) *Empty {
	return &Empty{meta: meta{
		dtype: s.DataType(),
		tuple: s.TupleShape(),
		comp:  s.ComponentShape(),
		chunk: s.ChunkShape(),
	}}
}

func (s *Empty) Allocated() bool { return false }

func (s *Empty) Reshape(tupleShape Shape) error { return s.reshape(tupleShape) }

func (s *Empty) CopyTuple(int, int) error          { return ErrUnallocated }
func (s *Empty) FillFloat64(float64) error         { return ErrUnallocated }
func (s *Empty) Float64At(int) float64             { panic(ErrUnallocated) }
func (s *Empty) SetFloat64(int, float64)           { panic(ErrUnallocated) }
func (s *Empty) DecodeBigEndian([]byte, int) error { return ErrUnallocated }

func (s *Empty) EncodeBigEndian(dst []byte, _, _ int) ([]byte, error) {
	return dst, ErrUnallocated
}

func (s *Empty) Clone() Store { return &Empty{meta: s.meta.clone()} }

func (s *Empty) Bytes() int64 { return 0 }
