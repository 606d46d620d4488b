package datastore

import (
	"fmt"
	"strings"
)

// DataType identifies the scalar element type of a store.
type DataType uint8

const (
	Int8 DataType = iota
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
	Bool
)

var typeNames = [...]string{"int8", "uint8", "int16", "uint16", "int32", "uint32", "int64", "uint64", "float32", "float64", "bool"}

var typeSizes = [...]int{1, 1, 2, 2, 4, 4, 8, 8, 4, 8, 1}

// Valid reports whether t is a known type.
func (t DataType) Valid() bool { return int(t) < len(typeNames) }

func (t DataType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("DataType(%d)", t)
	}
	return typeNames[t]
}

// Size returns the on-disk size of one element in bytes. Bool is one byte.
func (t DataType) Size() int {
	if !t.Valid() {
		return 0
	}
	return typeSizes[t]
}

// IsFloat reports whether t is a floating point type.
func (t DataType) IsFloat() bool { return t == Float32 || t == Float64 }

// ParseDataType parses a type name as printed by String.
func ParseDataType(s string) (DataType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range typeNames {
		if name == s {
			return DataType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedType, s)
}

func (t DataType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedType, t)
	}
	return []byte(t.String()), nil
}

func (t *DataType) UnmarshalText(b []byte) error {
	v, err := ParseDataType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Numeric is the set of element types DataStore supports.
type Numeric interface {
	int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64 | float32 | float64
}

// TypeOf returns the DataType for T.
func TypeOf[T Numeric]() DataType {
	var z T
	switch any(z).(type) {
	case int8:
		return Int8
	case uint8:
		return Uint8
	case int16:
		return Int16
	case uint16:
		return Uint16
	case int32:
		return Int32
	case uint32:
		return Uint32
	case int64:
		return Int64
	case uint64:
		return Uint64
	case float32:
		return Float32
	default:
		return Float64
	}
}
