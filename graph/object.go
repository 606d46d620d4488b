package graph

import (
	"maps"
	"slices"

	"github.com/hupe1980/nxgraph/datastore"
)

// Object is a node of the data structure. Values returned by lookups are
// live: they observe later mutations made through the DataStructure.
type Object interface {
	ID() ID
	Name() string
	Kind() Kind
	// Parents returns the owning containers. RootID denotes the root.
	Parents() []ID

	node() *base
	clone() Object
}

// Container is an Object that holds named children.
type Container interface {
	Object
	Children() map[string]ID
	ChildNames() []string
	Child(name string) (ID, bool)

	children() *container
}

type base struct {
	id      ID
	name    string
	parents []ID
}

func (b *base) ID() ID        { return b.id }
func (b *base) Name() string  { return b.name }
func (b *base) Parents() []ID { return slices.Clone(b.parents) }
func (b *base) node() *base   { return b }

func (b *base) hasParent(p ID) bool { return slices.Contains(b.parents, p) }

func (b *base) dropParent(p ID) {
	if i := slices.Index(b.parents, p); i >= 0 {
		b.parents = slices.Delete(b.parents, i, i+1)
	}
}

func (b base) copyBase() base {
	return base{id: b.id, name: b.name, parents: slices.Clone(b.parents)}
}

type container struct {
	entries map[string]ID
}

func newContainer() container { return container{entries: make(map[string]ID)} }

// Children returns a copy of the name to ID map.
func (c *container) Children() map[string]ID { return maps.Clone(c.entries) }

// ChildNames returns the child names in sorted order.
func (c *container) ChildNames() []string {
	return slices.Sorted(maps.Keys(c.entries))
}

// Child looks up a child by name.
func (c *container) Child(name string) (ID, bool) {
	id, ok := c.entries[name]
	return id, ok
}

func (c *container) children() *container { return c }

func (c container) copyContainer() container {
	return container{entries: maps.Clone(c.entries)}
}

// Group is a plain container.
type Group struct {
	base
	container
}

func (g *Group) Kind() Kind { return KindGroup }

func (g *Group) clone() Object {
	return &Group{base: g.copyBase(), container: g.copyContainer()}
}

// DataArray wraps one typed store.
type DataArray struct {
	base
	store datastore.Store
}

func (a *DataArray) Kind() Kind { return KindDataArray }

// Store returns the backing store.
func (a *DataArray) Store() datastore.Store { return a.store }

func (a *DataArray) DataType() datastore.DataType    { return a.store.DataType() }
func (a *DataArray) TupleShape() datastore.Shape     { return a.store.TupleShape() }
func (a *DataArray) ComponentShape() datastore.Shape { return a.store.ComponentShape() }
func (a *DataArray) Size() int                       { return a.store.Size() }

func (a *DataArray) clone() Object {
	return &DataArray{base: a.copyBase(), store: a.store}
}

// ImageGeom is a structured grid with per-axis extents, origin and spacing.
// Its cell data attribute matrix has tuple shape {Z, Y, X}.
type ImageGeom struct {
	base
	container
	dims     [3]int
	origin   [3]float64
	spacing  [3]float64
	cellData ID
}

func (g *ImageGeom) Kind() Kind { return KindImageGeom }

// Dims returns the extents as X, Y, Z.
func (g *ImageGeom) Dims() [3]int        { return g.dims }
func (g *ImageGeom) Origin() [3]float64  { return g.origin }
func (g *ImageGeom) Spacing() [3]float64 { return g.spacing }
func (g *ImageGeom) NumCells() int       { return g.dims[0] * g.dims[1] * g.dims[2] }

// CellData returns the ID of the cell attribute matrix, or RootID if unset.
// The ID is not an ownership reference and may have been destroyed.
func (g *ImageGeom) CellData() ID { return g.cellData }

// CellTupleShape returns the tuple shape cell arrays must have.
func (g *ImageGeom) CellTupleShape() datastore.Shape {
	return CellShape(g.dims)
}

func (g *ImageGeom) clone() Object {
	c := *g
	c.base = g.copyBase()
	c.container = g.copyContainer()
	return &c
}

// CellShape converts X, Y, Z extents to the slowest-first tuple shape.
func CellShape(dims [3]int) datastore.Shape {
	return datastore.Shape{dims[2], dims[1], dims[0]}
}

// AttributeMatrix holds data arrays that all share its tuple shape.
type AttributeMatrix struct {
	base
	container
	tupleShape datastore.Shape
}

func (m *AttributeMatrix) Kind() Kind { return KindAttributeMatrix }

// TupleShape returns the shape every child array must have.
func (m *AttributeMatrix) TupleShape() datastore.Shape { return m.tupleShape.Clone() }

func (m *AttributeMatrix) clone() Object {
	return &AttributeMatrix{base: m.copyBase(), container: m.copyContainer(), tupleShape: m.tupleShape.Clone()}
}

// Montage arranges image geometries on a grid.
type Montage struct {
	base
	container
	gridShape datastore.Shape
}

func (m *Montage) Kind() Kind { return KindMontage }

// GridShape returns the tile grid extents.
func (m *Montage) GridShape() datastore.Shape { return m.gridShape.Clone() }

func (m *Montage) clone() Object {
	return &Montage{base: m.copyBase(), container: m.copyContainer(), gridShape: m.gridShape.Clone()}
}

// accepts reports whether a container of kind parent may hold child.
func accepts(parent, child Kind) bool {
	switch parent {
	case KindGroup, KindImageGeom:
		return child != 0
	case KindAttributeMatrix:
		return child == KindDataArray
	case KindMontage:
		return child == KindImageGeom || child == KindGroup
	default:
		return false
	}
}
