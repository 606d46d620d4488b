package conv

import (
	"fmt"
	"math"
)

// IntToUint64 converts a non-negative int to uint64.
func IntToUint64(v int) (uint64, error) {
	if v < 0 {
		return 0, fmt.Errorf("integer overflow: %d cannot be converted to uint64 (negative)", v)
	}
	return uint64(v), nil
}

// IntToUint32 converts int to uint32.
func IntToUint32(v int) (uint32, error) {
	if v < 0 {
		return 0, fmt.Errorf("integer overflow: %d cannot be converted to uint32 (negative)", v)
	}
	if uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("integer overflow: %d cannot be converted to uint32 (too large)", v)
	}
	return uint32(v), nil
}

// Uint64ToInt converts uint64 to int.
func Uint64ToInt(v uint64) (int, error) {
	if v > uint64(math.MaxInt) {
		return 0, fmt.Errorf("integer overflow: %d cannot be converted to int (too large)", v)
	}
	return int(v), nil
}

// Uint64ToInt64 converts uint64 to int64.
func Uint64ToInt64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("integer overflow: %d cannot be converted to int64 (too large)", v)
	}
	return int64(v), nil
}

// ShapeToUint64 converts a shape to its on-disk form.
func ShapeToUint64(shape []int) ([]uint64, error) {
	if shape == nil {
		return nil, nil
	}
	out := make([]uint64, len(shape))
	for i, d := range shape {
		u, err := IntToUint64(d)
		if err != nil {
			return nil, fmt.Errorf("axis %d: %w", i, err)
		}
		out[i] = u
	}
	return out, nil
}

// ShapeFromUint64 converts an on-disk shape back to ints.
func ShapeFromUint64(shape []uint64) ([]int, error) {
	if shape == nil {
		return nil, nil
	}
	out := make([]int, len(shape))
	for i, d := range shape {
		v, err := Uint64ToInt(d)
		if err != nil {
			return nil, fmt.Errorf("axis %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// MulInt multiplies two non-negative ints and reports overflow.
func MulInt(a, b int) (int, error) {
	if a < 0 || b < 0 {
		return 0, fmt.Errorf("integer overflow: negative operand %d * %d", a, b)
	}
	if a != 0 && b > math.MaxInt/a {
		return 0, fmt.Errorf("integer overflow: %d * %d", a, b)
	}
	return a * b, nil
}
