package graph

import (
	"fmt"
	"slices"
	"strings"
)

// Separator joins names in the string form of a DataPath.
const Separator = "/"

// DataPath is a list of names from the root to an object. The empty path
// denotes the root.
type DataPath []string

// ValidateName reports whether name may be used for an object. Names must
// be non-empty, must not contain the separator and must not be "." or "..".
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q is reserved", ErrInvalidName, name)
	case strings.Contains(name, Separator):
		return fmt.Errorf("%w: %q contains %q", ErrInvalidName, name, Separator)
	}
	return nil
}

// NewPath builds a path from validated names.
func NewPath(names ...string) (DataPath, error) {
	for _, n := range names {
		if err := ValidateName(n); err != nil {
			return nil, err
		}
	}
	return DataPath(slices.Clone(names)), nil
}

// MustPath is like NewPath but panics on invalid names.
func MustPath(names ...string) DataPath {
	p, err := NewPath(names...)
	if err != nil {
		panic(err)
	}
	return p
}

// ParsePath parses "a/b/c". Leading and trailing separators are ignored.
func ParsePath(s string) (DataPath, error) {
	s = strings.Trim(s, Separator)
	if s == "" {
		return DataPath{}, nil
	}
	return NewPath(strings.Split(s, Separator)...)
}

func (p DataPath) String() string { return strings.Join(p, Separator) }

// IsRoot reports whether p is empty.
func (p DataPath) IsRoot() bool { return len(p) == 0 }

// Name returns the last element, or "" for the root.
func (p DataPath) Name() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Parent returns p without its last element.
func (p DataPath) Parent() DataPath {
	if len(p) == 0 {
		return DataPath{}
	}
	return slices.Clone(p[:len(p)-1])
}

// Child returns p extended by name.
func (p DataPath) Child(name string) DataPath {
	out := make(DataPath, len(p), len(p)+1)
	copy(out, p)
	return append(out, name)
}

// WithName returns p with its last element replaced.
func (p DataPath) WithName(name string) DataPath {
	return p.Parent().Child(name)
}

// Equal reports whether both paths name the same location.
func (p DataPath) Equal(o DataPath) bool { return slices.Equal(p, o) }

func (p DataPath) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *DataPath) UnmarshalText(b []byte) error {
	v, err := ParsePath(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
