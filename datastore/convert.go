package datastore

// Convert returns a new store of dtype holding s's elements converted
// through float64. Integers beyond 2^53 lose precision and out-of-range
// values follow Go's conversion rules.
func Convert(s Store, dtype DataType) (Store, error) {
	out, err := NewLike(s, dtype)
	if err != nil {
		return nil, err
	}
	if err := ConvertRange(s, out, 0, s.Size()); err != nil {
		return nil, err
	}
	return out, nil
}

// NewLike allocates a zeroed store with s's shapes and the given type.
func NewLike(s Store, dtype DataType) (Store, error) {
	var opts []Option
	if c := s.ChunkShape(); c != nil {
		opts = append(opts, WithChunkShape(c))
	}
	return New(dtype, s.TupleShape(), s.ComponentShape(), opts...)
}

// ConvertRange copies elements [start,end) of src into dst, converting
// element types. Disjoint ranges may run concurrently.
func ConvertRange(src, dst Store, start, end int) error {
	if !src.Allocated() || !dst.Allocated() {
		return ErrUnallocated
	}
	if src.Size() != dst.Size() {
		return ErrShapeMismatch
	}
	if src.DataType() == dst.DataType() {
		buf, err := src.EncodeBigEndian(nil, start, end-start)
		if err != nil {
			return err
		}
		return dst.DecodeBigEndian(buf, start)
	}
	for i := start; i < end; i++ {
		dst.SetFloat64(i, src.Float64At(i))
	}
	return nil
}
