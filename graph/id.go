package graph

import (
	"fmt"

	"github.com/hupe1980/nxgraph/internal/arena"
)

// ID identifies an object for its whole lifetime.
type ID arena.Ref

// RootID addresses the implicit root container.
var RootID = ID{}

// IsZero reports whether id is RootID.
func (id ID) IsZero() bool { return id == RootID }

func (id ID) String() string {
	if id.IsZero() {
		return "#root"
	}
	return fmt.Sprintf("#%d.%d", id.Index, id.Gen)
}

// Kind tags the type of an object.
type Kind uint8

const (
	KindGroup Kind = iota + 1
	KindDataArray
	KindImageGeom
	KindAttributeMatrix
	KindMontage
)

func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "Group"
	case KindDataArray:
		return "DataArray"
	case KindImageGeom:
		return "ImageGeom"
	case KindAttributeMatrix:
		return "AttributeMatrix"
	case KindMontage:
		return "Montage"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// ParseKind parses a name printed by String.
func ParseKind(s string) (Kind, error) {
	for k := KindGroup; k <= KindMontage; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrKindMismatch, s)
}
