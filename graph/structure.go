package graph

import (
	"errors"
	"fmt"

	"github.com/hupe1980/nxgraph/datastore"
	"github.com/hupe1980/nxgraph/internal/arena"
)

// MemoryAcquirer reserves memory for allocated stores. It is satisfied by
// *resource.Controller.
type MemoryAcquirer interface {
	AcquireMemory(bytes int64) error
	ReleaseMemory(bytes int64)
}

// DataStructure owns a graph of objects.
type DataStructure struct {
	nodes *arena.Arena[Object]
	root  container

	mem       MemoryAcquirer
	storeRefs map[datastore.Store]int
}

// Option configures a DataStructure.
type Option func(*DataStructure)

// WithMemoryAcquirer accounts the bytes of every allocated store held by
// the structure against m.
func WithMemoryAcquirer(m MemoryAcquirer) Option {
	return func(ds *DataStructure) { ds.mem = m }
}

// New returns an empty DataStructure.
func New(opts ...Option) *DataStructure {
	ds := &DataStructure{
		nodes:     arena.New[Object](64),
		root:      newContainer(),
		storeRefs: make(map[datastore.Store]int),
	}
	for _, opt := range opts {
		opt(ds)
	}
	return ds
}

// Len returns the number of live objects.
func (ds *DataStructure) Len() int { return ds.nodes.Len() }

// Get returns the object for id.
func (ds *DataStructure) Get(id ID) (Object, bool) {
	return ds.nodes.Get(arena.Ref(id))
}

// Contains reports whether id refers to a live object.
func (ds *DataStructure) Contains(id ID) bool { return ds.nodes.Contains(arena.Ref(id)) }

// RootChildren returns a copy of the root's name to ID map.
func (ds *DataStructure) RootChildren() map[string]ID { return ds.root.Children() }

// RootChildNames returns the root's child names in sorted order.
func (ds *DataStructure) RootChildNames() []string { return ds.root.ChildNames() }

// Resolve walks path from the root.
func (ds *DataStructure) Resolve(path DataPath) (ID, bool) {
	id := RootID
	for _, name := range path {
		c := ds.containerOf(id)
		if c == nil {
			return ID{}, false
		}
		next, ok := c.entries[name]
		if !ok {
			return ID{}, false
		}
		id = next
	}
	return id, true
}

// GetByPath resolves path to an object. The root itself is not an object.
func (ds *DataStructure) GetByPath(path DataPath) (Object, bool) {
	id, ok := ds.Resolve(path)
	if !ok || id.IsZero() {
		return nil, false
	}
	return ds.Get(id)
}

// Lookup resolves path to an object of type T.
func Lookup[T Object](ds *DataStructure, path DataPath) (T, error) {
	var zero T
	obj, ok := ds.GetByPath(path)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	t, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is a %s", ErrKindMismatch, path, obj.Kind())
	}
	return t, nil
}

// LookupID returns the object for id as type T.
func LookupID[T Object](ds *DataStructure, id ID) (T, error) {
	var zero T
	obj, ok := ds.Get(id)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	t, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is a %s", ErrKindMismatch, id, obj.Kind())
	}
	return t, nil
}

func (ds *DataStructure) GetDataArray(id ID) (*DataArray, bool) {
	a, err := LookupID[*DataArray](ds, id)
	return a, err == nil
}

func (ds *DataStructure) GetGroup(id ID) (*Group, bool) {
	g, err := LookupID[*Group](ds, id)
	return g, err == nil
}

func (ds *DataStructure) GetImageGeom(id ID) (*ImageGeom, bool) {
	g, err := LookupID[*ImageGeom](ds, id)
	return g, err == nil
}

func (ds *DataStructure) GetAttributeMatrix(id ID) (*AttributeMatrix, bool) {
	m, err := LookupID[*AttributeMatrix](ds, id)
	return m, err == nil
}

// containerOf returns the child map of id, or nil if id is not a live
// container.
func (ds *DataStructure) containerOf(id ID) *container {
	if id.IsZero() {
		return &ds.root
	}
	obj, ok := ds.Get(id)
	if !ok {
		return nil
	}
	if c, ok := obj.(Container); ok {
		return c.children()
	}
	return nil
}

func (ds *DataStructure) kindOf(id ID) Kind {
	if id.IsZero() {
		return KindGroup
	}
	if obj, ok := ds.Get(id); ok {
		return obj.Kind()
	}
	return 0
}

// checkInsert validates adding obj under parent with the given name.
func (ds *DataStructure) checkInsert(parent ID, name string, obj Object) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	c := ds.containerOf(parent)
	if c == nil {
		if !parent.IsZero() && !ds.Contains(parent) {
			return fmt.Errorf("%w: parent %s", ErrNotFound, parent)
		}
		return fmt.Errorf("%w: %s cannot hold children", ErrInvalidParent, parent)
	}
	if !accepts(ds.kindOf(parent), obj.Kind()) {
		return fmt.Errorf("%w: %s cannot hold a %s", ErrInvalidParent, ds.kindOf(parent), obj.Kind())
	}
	if existing, ok := c.entries[name]; ok && existing != obj.ID() {
		return fmt.Errorf("%w: %q", ErrNameCollision, name)
	}
	if a, ok := obj.(*DataArray); ok {
		if err := ds.checkTupleShape(parent, a.store.TupleShape()); err != nil {
			return err
		}
	}
	return nil
}

// checkTupleShape enforces attribute matrix tuple shapes on child arrays.
func (ds *DataStructure) checkTupleShape(parent ID, tuple datastore.Shape) error {
	if parent.IsZero() {
		return nil
	}
	obj, _ := ds.Get(parent)
	m, ok := obj.(*AttributeMatrix)
	if !ok {
		return nil
	}
	if !m.tupleShape.Equal(tuple) {
		return fmt.Errorf("%w: array %v, matrix %s has %v", ErrTupleShapeMismatch, tuple, m.name, m.tupleShape)
	}
	return nil
}

// insert adds a new object to the arena and links it under parent. The
// caller must have run checkInsert.
func (ds *DataStructure) insert(parent ID, obj Object) ID {
	id := ID(ds.nodes.Insert(obj))
	b := obj.node()
	b.id = id
	b.parents = []ID{parent}
	ds.containerOf(parent).entries[b.name] = id
	return id
}

func (ds *DataStructure) create(parent ID, obj Object) (ID, error) {
	if err := ds.checkInsert(parent, obj.Name(), obj); err != nil {
		return ID{}, err
	}
	if a, ok := obj.(*DataArray); ok {
		if err := ds.retain(a.store); err != nil {
			return ID{}, err
		}
	}
	return ds.insert(parent, obj), nil
}

// CreateGroup creates a group under parent.
func (ds *DataStructure) CreateGroup(parent ID, name string) (ID, error) {
	return ds.create(parent, &Group{base: base{name: name}, container: newContainer()})
}

// CreateDataArray creates an array wrapping store under parent. Arrays
// inside an attribute matrix must match its tuple shape.
func (ds *DataStructure) CreateDataArray(parent ID, name string, store datastore.Store) (ID, error) {
	if store == nil {
		return ID{}, fmt.Errorf("%w: nil store", datastore.ErrUnallocated)
	}
	return ds.create(parent, &DataArray{base: base{name: name}, store: store})
}

// CreateImageGeom creates an image geometry with dims given as X, Y, Z.
func (ds *DataStructure) CreateImageGeom(parent ID, name string, dims [3]int, origin, spacing [3]float64) (ID, error) {
	if err := validateDims(dims); err != nil {
		return ID{}, err
	}
	return ds.create(parent, &ImageGeom{
		base:      base{name: name},
		container: newContainer(),
		dims:      dims,
		origin:    origin,
		spacing:   spacing,
	})
}

// CreateAttributeMatrix creates an attribute matrix with the given tuple shape.
func (ds *DataStructure) CreateAttributeMatrix(parent ID, name string, tupleShape datastore.Shape) (ID, error) {
	if err := tupleShape.Validate(); err != nil {
		return ID{}, err
	}
	return ds.create(parent, &AttributeMatrix{base: base{name: name}, container: newContainer(), tupleShape: tupleShape.Clone()})
}

// CreateMontage creates a montage with the given tile grid shape.
func (ds *DataStructure) CreateMontage(parent ID, name string, gridShape datastore.Shape) (ID, error) {
	if err := gridShape.Validate(); err != nil {
		return ID{}, err
	}
	return ds.create(parent, &Montage{base: base{name: name}, container: newContainer(), gridShape: gridShape.Clone()})
}

func validateDims(dims [3]int) error {
	for i, d := range dims {
		if d <= 0 {
			return fmt.Errorf("%w: dimension %d is %d", datastore.ErrShapeMismatch, i, d)
		}
	}
	return nil
}

// retain accounts one more reference to store.
func (ds *DataStructure) retain(store datastore.Store) error {
	if ds.storeRefs[store] == 0 && ds.mem != nil && store.Allocated() {
		if err := ds.mem.AcquireMemory(store.Bytes()); err != nil {
			return err
		}
	}
	ds.storeRefs[store]++
	return nil
}

// release drops one reference to store.
func (ds *DataStructure) release(store datastore.Store) {
	n := ds.storeRefs[store] - 1
	if n > 0 {
		ds.storeRefs[store] = n
		return
	}
	delete(ds.storeRefs, store)
	if ds.mem != nil && store.Allocated() {
		ds.mem.ReleaseMemory(store.Bytes())
	}
}

// regrow accounts a change in the footprint of a retained store.
func (ds *DataStructure) regrow(oldBytes, newBytes int64) error {
	if ds.mem == nil {
		return nil
	}
	switch {
	case newBytes > oldBytes:
		return ds.mem.AcquireMemory(newBytes - oldBytes)
	case newBytes < oldBytes:
		ds.mem.ReleaseMemory(oldBytes - newBytes)
	}
	return nil
}

// IsNotFound reports whether err means an ID or path did not resolve.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
