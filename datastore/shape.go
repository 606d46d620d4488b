package datastore

import (
	"fmt"
	"slices"
)

// Shape is a list of axis extents, slowest axis first.
type Shape []int

// Product returns the number of elements the shape spans.
// The empty shape spans one element.
func (s Shape) Product() int {
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

// Equal reports whether both shapes have the same extents.
func (s Shape) Equal(o Shape) bool { return slices.Equal(s, o) }

// Clone returns an independent copy.
func (s Shape) Clone() Shape {
	if s == nil {
		return nil
	}
	return slices.Clone(s)
}

// Validate checks that the shape has at least one axis and no negative extent.
func (s Shape) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: empty shape", ErrShapeMismatch)
	}
	for i, d := range s {
		if d < 0 {
			return fmt.Errorf("%w: axis %d has extent %d", ErrShapeMismatch, i, d)
		}
	}
	return nil
}

func (s Shape) String() string { return fmt.Sprint([]int(s)) }

// Concat returns a followed by b.
func Concat(a, b Shape) Shape {
	out := make(Shape, 0, len(a)+len(b))
	return append(append(out, a...), b...)
}

// validateChunk checks a chunk shape against the full tuple+component shape.
func validateChunk(chunk, tuple, comp Shape) error {
	if chunk == nil {
		return nil
	}
	if len(chunk) != len(tuple)+len(comp) {
		return fmt.Errorf("%w: chunk rank %d, array rank %d", ErrShapeMismatch, len(chunk), len(tuple)+len(comp))
	}
	for i, d := range chunk {
		if d <= 0 {
			return fmt.Errorf("%w: chunk axis %d has extent %d", ErrShapeMismatch, i, d)
		}
	}
	return nil
}
