package action

import (
	"fmt"

	"github.com/hupe1980/nxgraph/datastore"
	"github.com/hupe1980/nxgraph/graph"
	"github.com/hupe1980/nxgraph/result"
)

// Rename gives the object at Path a new name.
type Rename struct {
	Path    graph.DataPath
	NewName string
}

func (a Rename) String() string { return fmt.Sprintf("rename %s to %s", a.Path, a.NewName) }

func (a Rename) Apply(ds *graph.DataStructure, _ Mode) result.Result[struct{}] {
	id, err := resolve(ds, a.Path)
	if err == nil {
		err = ds.Rename(id, a.NewName)
	}
	if err != nil {
		return fail(a, err)
	}
	return done()
}

// Delete removes the object at Path from every parent. A missing path is
// an error unless IgnoreMissing is set, in which case it is a warning.
type Delete struct {
	Path          graph.DataPath
	IgnoreMissing bool
}

// CodeMissingPath is the warning code for deletes of missing paths.
const CodeMissingPath = 101

func (a Delete) String() string { return fmt.Sprintf("delete %s", a.Path) }

func (a Delete) Apply(ds *graph.DataStructure, _ Mode) result.Result[struct{}] {
	if a.Path.IsRoot() {
		return fail(a, fmt.Errorf("%w: cannot delete the root", graph.ErrInvalidParent))
	}
	id, err := resolve(ds, a.Path)
	if err != nil {
		if a.IgnoreMissing && graph.IsNotFound(err) {
			return result.Ok(struct{}{}, result.Warnf(CodeMissingPath, "%s does not exist", a.Path))
		}
		return fail(a, err)
	}
	if err := ds.Remove(id); err != nil {
		return fail(a, err)
	}
	return done()
}

// Resize changes the tuple shape of a data array or attribute matrix, or
// the dims (X, Y, Z) of an image geometry. In Preflight mode allocated
// stores are swapped for placeholders of the new shape once the resize is
// known to succeed.
type Resize struct {
	Path       graph.DataPath
	TupleShape datastore.Shape
	Dims       [3]int
}

func (a Resize) String() string {
	if a.TupleShape == nil {
		return fmt.Sprintf("resize %s to %v", a.Path, a.Dims)
	}
	return fmt.Sprintf("resize %s to %v", a.Path, a.TupleShape)
}

func (a Resize) Apply(ds *graph.DataStructure, mode Mode) result.Result[struct{}] {
	id, err := resolve(ds, a.Path)
	if err != nil {
		return fail(a, err)
	}
	obj, _ := ds.Get(id)
	if mode == Preflight {
		if err := ds.CheckResize(id, a.TupleShape, a.Dims); err != nil {
			return fail(a, err)
		}
		if err := unallocate(ds, obj); err != nil {
			return fail(a, err)
		}
	}
	switch o := obj.(type) {
	case *graph.DataArray:
		err = ds.ReshapeArray(id, a.TupleShape)
	case *graph.AttributeMatrix:
		err = ds.ResizeAttributeMatrix(id, a.TupleShape)
	case *graph.ImageGeom:
		err = ds.SetImageGeomDims(id, a.Dims)
	default:
		err = fmt.Errorf("%w: cannot resize a %s", graph.ErrKindMismatch, o.Kind())
	}
	if err != nil {
		return fail(a, err)
	}
	return done()
}

// unallocate replaces allocated stores affected by a resize of obj with
// placeholders so the resize does no element work.
func unallocate(ds *graph.DataStructure, obj graph.Object) error {
	swap := func(id graph.ID) error {
		arr, found := ds.GetDataArray(id)
		if !found || !arr.Store().Allocated() {
			return nil
		}
		return ds.SetStore(id, datastore.Placeholder(arr.Store()))
	}
	switch o := obj.(type) {
	case *graph.DataArray:
		return swap(o.ID())
	case *graph.AttributeMatrix:
		for _, child := range o.Children() {
			if err := swap(child); err != nil {
				return err
			}
		}
	case *graph.ImageGeom:
		if m, found := ds.GetAttributeMatrix(o.CellData()); found {
			return unallocate(ds, m)
		}
	}
	return nil
}

// Copy deep copies the object at Src to Dest. In Preflight mode the copied
// arrays hold placeholders.
type Copy struct {
	Src  graph.DataPath
	Dest graph.DataPath
}

func (a Copy) String() string { return fmt.Sprintf("copy %s to %s", a.Src, a.Dest) }

func (a Copy) Apply(ds *graph.DataStructure, mode Mode) result.Result[struct{}] {
	id, err := resolve(ds, a.Src)
	if err != nil {
		return fail(a, err)
	}
	if mode == Preflight {
		_, err = ds.DeepCopyLayout(id, a.Dest)
	} else {
		_, err = ds.DeepCopy(id, a.Dest)
	}
	if err != nil {
		return fail(a, err)
	}
	return done()
}

// Move re-parents the object at Src under DestParent.
type Move struct {
	Src        graph.DataPath
	DestParent graph.DataPath
}

func (a Move) String() string { return fmt.Sprintf("move %s to %s", a.Src, a.DestParent) }

func (a Move) Apply(ds *graph.DataStructure, _ Mode) result.Result[struct{}] {
	if a.Src.IsRoot() {
		return fail(a, fmt.Errorf("%w: cannot move the root", graph.ErrInvalidParent))
	}
	id, err := resolve(ds, a.Src)
	if err != nil {
		return fail(a, err)
	}
	from, err := resolve(ds, a.Src.Parent())
	if err != nil {
		return fail(a, err)
	}
	to, err := resolve(ds, a.DestParent)
	if err != nil {
		return fail(a, err)
	}
	if err := ds.Move(id, from, to); err != nil {
		return fail(a, err)
	}
	return done()
}
