package graph

import (
	"fmt"
	"slices"

	"github.com/hupe1980/nxgraph/datastore"
	"github.com/hupe1980/nxgraph/internal/arena"
)

func (ds *DataStructure) mustGet(id ID) (Object, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("%w: the root cannot be modified", ErrInvalidParent)
	}
	obj, ok := ds.Get(id)
	if !ok {
		if ds.nodes.Stale(arena.Ref(id)) {
			return nil, fmt.Errorf("%w: %s", ErrStaleID, id)
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return obj, nil
}

// Rename changes the name of id in every parent.
func (ds *DataStructure) Rename(id ID, newName string) error {
	if err := ValidateName(newName); err != nil {
		return err
	}
	obj, err := ds.mustGet(id)
	if err != nil {
		return err
	}
	b := obj.node()
	if b.name == newName {
		return nil
	}
	for _, p := range b.parents {
		if other, ok := ds.containerOf(p).entries[newName]; ok && other != id {
			return fmt.Errorf("%w: %q", ErrNameCollision, newName)
		}
	}
	for _, p := range b.parents {
		c := ds.containerOf(p)
		delete(c.entries, b.name)
		c.entries[newName] = id
	}
	b.name = newName
	return nil
}

// Remove unlinks id from all parents and destroys it, cascading to
// children left without parents.
func (ds *DataStructure) Remove(id ID) error {
	obj, err := ds.mustGet(id)
	if err != nil {
		return err
	}
	b := obj.node()
	for _, p := range b.parents {
		delete(ds.containerOf(p).entries, b.name)
	}
	b.parents = nil
	ds.destroy(id)
	return nil
}

// RemoveFromParent unlinks id from parent. The object is destroyed when
// parent was its last owner.
func (ds *DataStructure) RemoveFromParent(parent, id ID) error {
	obj, err := ds.mustGet(id)
	if err != nil {
		return err
	}
	b := obj.node()
	if !b.hasParent(parent) {
		return fmt.Errorf("%w: %s is not a child of %s", ErrNotFound, id, parent)
	}
	delete(ds.containerOf(parent).entries, b.name)
	b.dropParent(parent)
	if len(b.parents) == 0 {
		ds.destroy(id)
	}
	return nil
}

func (ds *DataStructure) destroy(id ID) {
	obj, ok := ds.nodes.Remove(arena.Ref(id))
	if !ok {
		return
	}
	switch o := obj.(type) {
	case *DataArray:
		ds.release(o.store)
	case Container:
		for _, child := range o.children().entries {
			cobj, ok := ds.Get(child)
			if !ok {
				continue
			}
			cb := cobj.node()
			cb.dropParent(id)
			if len(cb.parents) == 0 {
				ds.destroy(child)
			}
		}
	}
}

// isAncestor reports whether anc owns id directly or transitively.
func (ds *DataStructure) isAncestor(anc, id ID) bool {
	if anc.IsZero() {
		return true
	}
	seen := make(map[ID]bool)
	stack := []ID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == anc {
			return true
		}
		if cur.IsZero() || seen[cur] {
			continue
		}
		seen[cur] = true
		if obj, ok := ds.Get(cur); ok {
			stack = append(stack, obj.node().parents...)
		}
	}
	return false
}

// AddParent links id under an additional parent.
func (ds *DataStructure) AddParent(id, parent ID) error {
	obj, err := ds.mustGet(id)
	if err != nil {
		return err
	}
	b := obj.node()
	if b.hasParent(parent) {
		return nil
	}
	if !parent.IsZero() && ds.isAncestor(id, parent) {
		return fmt.Errorf("%w: %s under %s", ErrCycle, id, parent)
	}
	if err := ds.checkInsert(parent, b.name, obj); err != nil {
		return err
	}
	ds.containerOf(parent).entries[b.name] = id
	b.parents = append(b.parents, parent)
	return nil
}

// Move re-parents id from one owner to another.
func (ds *DataStructure) Move(id, from, to ID) error {
	obj, err := ds.mustGet(id)
	if err != nil {
		return err
	}
	if !obj.node().hasParent(from) {
		return fmt.Errorf("%w: %s is not a child of %s", ErrNotFound, id, from)
	}
	if from == to {
		return nil
	}
	if err := ds.AddParent(id, to); err != nil {
		return err
	}
	return ds.RemoveFromParent(from, id)
}

// ShallowCopy creates a new object named name under destParent that shares
// the source's store or children.
func (ds *DataStructure) ShallowCopy(id, destParent ID, name string) (ID, error) {
	obj, err := ds.mustGet(id)
	if err != nil {
		return ID{}, err
	}
	if !destParent.IsZero() && ds.isAncestor(id, destParent) {
		return ID{}, fmt.Errorf("%w: %s under %s", ErrCycle, id, destParent)
	}
	cp := obj.clone()
	cb := cp.node()
	cb.name = name
	cb.id = ID{}
	if err := ds.checkInsert(destParent, name, cp); err != nil {
		return ID{}, err
	}
	if a, ok := cp.(*DataArray); ok {
		if err := ds.retain(a.store); err != nil {
			return ID{}, err
		}
	}
	newID := ds.insert(destParent, cp)
	if c, ok := cp.(Container); ok {
		for _, child := range c.children().entries {
			if cobj, ok := ds.Get(child); ok {
				cobj.node().parents = append(cobj.node().parents, newID)
			}
		}
	}
	return newID, nil
}

// DeepCopy recursively copies id to destPath with new IDs and cloned
// stores. Objects shared inside the copied subtree stay shared in the copy,
// and weak references into the subtree are remapped.
func (ds *DataStructure) DeepCopy(id ID, destPath DataPath) (ID, error) {
	return ds.deepCopy(id, destPath, datastore.Store.Clone)
}

// DeepCopyLayout is DeepCopy with unallocated placeholders in place of
// cloned stores.
func (ds *DataStructure) DeepCopyLayout(id ID, destPath DataPath) (ID, error) {
	return ds.deepCopy(id, destPath, func(s datastore.Store) datastore.Store {
		return datastore.Placeholder(s)
	})
}

func (ds *DataStructure) deepCopy(id ID, destPath DataPath, copyStore func(datastore.Store) datastore.Store) (ID, error) {
	obj, err := ds.mustGet(id)
	if err != nil {
		return ID{}, err
	}
	if destPath.IsRoot() {
		return ID{}, fmt.Errorf("%w: empty destination path", ErrInvalidName)
	}
	parent, ok := ds.Resolve(destPath.Parent())
	if !ok {
		return ID{}, fmt.Errorf("%w: %s", ErrNotFound, destPath.Parent())
	}
	probe := obj.clone()
	probe.node().id = ID{}
	if err := ds.checkInsert(parent, destPath.Name(), probe); err != nil {
		return ID{}, err
	}

	plan := ds.planCopy(id)
	mapping := make(map[ID]ID)
	top, err := ds.materialize(plan, parent, destPath.Name(), mapping, copyStore)
	if err != nil {
		if !top.IsZero() {
			_ = ds.Remove(top)
		}
		return ID{}, err
	}
	for _, newID := range mapping {
		if g, ok := ds.GetImageGeom(newID); ok {
			if m, ok := mapping[g.cellData]; ok {
				g.cellData = m
			}
		}
	}
	return top, nil
}

type copyPlan struct {
	src      Object
	children []copyPlan
}

func (ds *DataStructure) planCopy(id ID) copyPlan {
	obj, _ := ds.Get(id)
	p := copyPlan{src: obj}
	if c, ok := obj.(Container); ok {
		for _, name := range c.ChildNames() {
			child, _ := c.Child(name)
			p.children = append(p.children, ds.planCopy(child))
		}
	}
	return p
}

func (ds *DataStructure) materialize(p copyPlan, parent ID, name string, mapping map[ID]ID, copyStore func(datastore.Store) datastore.Store) (ID, error) {
	if existing, ok := mapping[p.src.ID()]; ok {
		return existing, ds.AddParent(existing, parent)
	}
	cp := p.src.clone()
	cb := cp.node()
	cb.name = name
	cb.id = ID{}
	if c, ok := cp.(Container); ok {
		clear(c.children().entries)
	}
	if a, ok := cp.(*DataArray); ok {
		a.store = copyStore(a.store)
		if err := ds.retain(a.store); err != nil {
			return ID{}, err
		}
	}
	newID := ds.insert(parent, cp)
	mapping[p.src.ID()] = newID
	for _, child := range p.children {
		if _, err := ds.materialize(child, newID, child.src.Name(), mapping, copyStore); err != nil {
			return newID, err
		}
	}
	return newID, nil
}

// SetStore replaces the store of a data array.
func (ds *DataStructure) SetStore(id ID, store datastore.Store) error {
	a, err := LookupID[*DataArray](ds, id)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("%w: nil store", datastore.ErrUnallocated)
	}
	if store == a.store {
		return nil
	}
	for _, p := range a.parents {
		if err := ds.checkTupleShape(p, store.TupleShape()); err != nil {
			return err
		}
	}
	if err := ds.retain(store); err != nil {
		return err
	}
	ds.release(a.store)
	a.store = store
	return nil
}

// ReshapeArray changes the tuple shape of a data array in place. Arrays
// sharing the store through a shallow copy see the new shape too.
func (ds *DataStructure) ReshapeArray(id ID, tupleShape datastore.Shape) error {
	stores, err := ds.planReshape(id, tupleShape)
	if err != nil {
		return err
	}
	return ds.reshapeStores(stores, tupleShape)
}

func (ds *DataStructure) planReshape(id ID, tupleShape datastore.Shape) ([]datastore.Store, error) {
	a, err := LookupID[*DataArray](ds, id)
	if err != nil {
		return nil, err
	}
	if err := tupleShape.Validate(); err != nil {
		return nil, err
	}
	stores := []datastore.Store{a.store}
	if err := ds.checkHolders(stores, tupleShape, ID{}); err != nil {
		return nil, err
	}
	return stores, nil
}

// CheckResize reports whether resizing id would succeed without changing
// anything. tupleShape applies to data arrays and attribute matrices,
// dims to image geometries.
func (ds *DataStructure) CheckResize(id ID, tupleShape datastore.Shape, dims [3]int) error {
	obj, err := ds.mustGet(id)
	if err != nil {
		return err
	}
	switch o := obj.(type) {
	case *DataArray:
		_, err = ds.planReshape(id, tupleShape)
	case *AttributeMatrix:
		_, err = ds.planMatrixResize(o, tupleShape)
	case *ImageGeom:
		if err = validateDims(dims); err != nil {
			return err
		}
		if m, ok := ds.GetAttributeMatrix(o.cellData); ok {
			_, err = ds.planMatrixResize(m, CellShape(dims))
		}
	default:
		err = fmt.Errorf("%w: cannot resize a %s", ErrKindMismatch, o.Kind())
	}
	return err
}

// checkHolders checks tupleShape against the attribute matrix parents of
// every array holding one of stores. The matrix skip is exempt.
func (ds *DataStructure) checkHolders(stores []datastore.Store, tupleShape datastore.Shape, skip ID) error {
	for _, obj := range ds.nodes.All() {
		a, ok := obj.(*DataArray)
		if !ok || !slices.Contains(stores, a.store) {
			continue
		}
		for _, p := range a.parents {
			if !skip.IsZero() && p == skip {
				continue
			}
			if err := ds.checkTupleShape(p, tupleShape); err != nil {
				return fmt.Errorf("%s: %w", a.name, err)
			}
		}
	}
	return nil
}

// reshapeStores reserves the memory delta and then reshapes every store.
func (ds *DataStructure) reshapeStores(stores []datastore.Store, tupleShape datastore.Shape) error {
	var oldBytes, newBytes int64
	for _, s := range stores {
		if !s.Allocated() {
			continue
		}
		oldBytes += s.Bytes()
		newBytes += datastore.AllocationBytes(s.DataType(), tupleShape.Product()*s.NumComponents())
	}
	if err := ds.regrow(oldBytes, newBytes); err != nil {
		return err
	}
	for _, s := range stores {
		if err := s.Reshape(tupleShape); err != nil {
			return err
		}
	}
	return nil
}

// ResizeAttributeMatrix sets a matrix's tuple shape and reshapes every
// child array to match.
func (ds *DataStructure) ResizeAttributeMatrix(id ID, tupleShape datastore.Shape) error {
	m, err := LookupID[*AttributeMatrix](ds, id)
	if err != nil {
		return err
	}
	stores, err := ds.planMatrixResize(m, tupleShape)
	if err != nil {
		return err
	}
	if err := ds.reshapeStores(stores, tupleShape); err != nil {
		return err
	}
	m.tupleShape = tupleShape.Clone()
	return nil
}

func (ds *DataStructure) planMatrixResize(m *AttributeMatrix, tupleShape datastore.Shape) ([]datastore.Store, error) {
	if err := tupleShape.Validate(); err != nil {
		return nil, err
	}
	var stores []datastore.Store
	for _, name := range m.ChildNames() {
		a, ok := ds.GetDataArray(m.entries[name])
		if !ok || slices.Contains(stores, a.store) {
			continue
		}
		stores = append(stores, a.store)
	}
	if err := ds.checkHolders(stores, tupleShape, m.id); err != nil {
		return nil, err
	}
	return stores, nil
}

// SetImageGeomDims changes the grid extents (X, Y, Z) and resizes the cell
// attribute matrix, if any, to {Z, Y, X}.
func (ds *DataStructure) SetImageGeomDims(id ID, dims [3]int) error {
	g, err := LookupID[*ImageGeom](ds, id)
	if err != nil {
		return err
	}
	if err := validateDims(dims); err != nil {
		return err
	}
	if _, ok := ds.GetAttributeMatrix(g.cellData); ok {
		if err := ds.ResizeAttributeMatrix(g.cellData, CellShape(dims)); err != nil {
			return err
		}
	}
	g.dims = dims
	return nil
}

// SetImageGeomGeometry sets origin and spacing.
func (ds *DataStructure) SetImageGeomGeometry(id ID, origin, spacing [3]float64) error {
	g, err := LookupID[*ImageGeom](ds, id)
	if err != nil {
		return err
	}
	g.origin, g.spacing = origin, spacing
	return nil
}

// SetCellData records matrix as the cell data of geom. The matrix tuple
// shape must equal the geometry's cell shape.
func (ds *DataStructure) SetCellData(geom, matrix ID) error {
	g, err := LookupID[*ImageGeom](ds, geom)
	if err != nil {
		return err
	}
	m, err := LookupID[*AttributeMatrix](ds, matrix)
	if err != nil {
		return err
	}
	if !m.tupleShape.Equal(g.CellTupleShape()) {
		return fmt.Errorf("%w: matrix %v, geometry cells %v", ErrTupleShapeMismatch, m.tupleShape, g.CellTupleShape())
	}
	g.cellData = matrix
	return nil
}
