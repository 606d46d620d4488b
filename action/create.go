package action

import (
	"fmt"

	"github.com/hupe1980/nxgraph/datastore"
	"github.com/hupe1980/nxgraph/graph"
	"github.com/hupe1980/nxgraph/result"
)

// CreateGroup creates a group at Path.
type CreateGroup struct {
	Path graph.DataPath
}

func (a CreateGroup) String() string { return fmt.Sprintf("create group %s", a.Path) }

func (a CreateGroup) Apply(ds *graph.DataStructure, _ Mode) result.Result[struct{}] {
	parent, err := resolveParent(ds, a.Path)
	if err != nil {
		return fail(a, err)
	}
	if _, err := ds.CreateGroup(parent, a.Path.Name()); err != nil {
		return fail(a, err)
	}
	return done()
}

// CreateArray creates a data array at Path. A nil TupleShape inside an
// attribute matrix takes the matrix's tuple shape. In Execute mode every
// element is set to FillValue.
type CreateArray struct {
	Path           graph.DataPath
	Type           datastore.DataType
	TupleShape     datastore.Shape
	ComponentShape datastore.Shape
	ChunkShape     datastore.Shape
	FillValue      float64
}

func (a CreateArray) String() string {
	return fmt.Sprintf("create %s array %s %v", a.Type, a.Path, a.TupleShape)
}

func (a CreateArray) Apply(ds *graph.DataStructure, mode Mode) result.Result[struct{}] {
	parent, err := resolveParent(ds, a.Path)
	if err != nil {
		return fail(a, err)
	}
	tuple := a.TupleShape
	if tuple == nil {
		if m, found := ds.GetAttributeMatrix(parent); found {
			tuple = m.TupleShape()
		}
	}
	store, err := newStore(mode, a.Type, tuple, a.ComponentShape, a.ChunkShape, a.FillValue)
	if err != nil {
		return fail(a, err)
	}
	if _, err := ds.CreateDataArray(parent, a.Path.Name(), store); err != nil {
		return fail(a, err)
	}
	return done()
}

func newStore(mode Mode, dtype datastore.DataType, tuple, comp, chunk datastore.Shape, fill float64) (datastore.Store, error) {
	var opts []datastore.Option
	if chunk != nil {
		opts = append(opts, datastore.WithChunkShape(chunk))
	}
	if mode == Preflight {
		return datastore.NewEmpty(dtype, tuple, comp, opts...)
	}
	s, err := datastore.New(dtype, tuple, comp, opts...)
	if err != nil {
		return nil, err
	}
	if fill != 0 {
		if err := s.FillFloat64(fill); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// CreateArrayLike creates an array at Path with the shapes of the array at
// Like. Type overrides the element type when SetType is true.
type CreateArrayLike struct {
	Path    graph.DataPath
	Like    graph.DataPath
	SetType bool
	Type    datastore.DataType
}

func (a CreateArrayLike) String() string {
	return fmt.Sprintf("create array %s like %s", a.Path, a.Like)
}

func (a CreateArrayLike) Apply(ds *graph.DataStructure, mode Mode) result.Result[struct{}] {
	like, err := graph.Lookup[*graph.DataArray](ds, a.Like)
	if err != nil {
		return fail(a, err)
	}
	dtype := like.DataType()
	if a.SetType {
		dtype = a.Type
	}
	return CreateArray{
		Path:           a.Path,
		Type:           dtype,
		TupleShape:     like.TupleShape(),
		ComponentShape: like.ComponentShape(),
		ChunkShape:     like.Store().ChunkShape(),
	}.Apply(ds, mode)
}

// CreateImageGeom creates an image geometry and, when CellDataName is set,
// its cell attribute matrix.
type CreateImageGeom struct {
	Path         graph.DataPath
	Dims         [3]int
	Origin       [3]float64
	Spacing      [3]float64
	CellDataName string
}

func (a CreateImageGeom) String() string {
	return fmt.Sprintf("create image geometry %s %v", a.Path, a.Dims)
}

func (a CreateImageGeom) Apply(ds *graph.DataStructure, _ Mode) result.Result[struct{}] {
	parent, err := resolveParent(ds, a.Path)
	if err != nil {
		return fail(a, err)
	}
	if a.CellDataName != "" {
		if err := graph.ValidateName(a.CellDataName); err != nil {
			return fail(a, err)
		}
	}
	geom, err := ds.CreateImageGeom(parent, a.Path.Name(), a.Dims, a.Origin, a.Spacing)
	if err != nil {
		return fail(a, err)
	}
	if a.CellDataName == "" {
		return done()
	}
	cells, err := ds.CreateAttributeMatrix(geom, a.CellDataName, graph.CellShape(a.Dims))
	if err == nil {
		err = ds.SetCellData(geom, cells)
	}
	if err != nil {
		_ = ds.Remove(geom)
		return fail(a, err)
	}
	return done()
}

// CreateAttributeMatrix creates an attribute matrix at Path.
type CreateAttributeMatrix struct {
	Path       graph.DataPath
	TupleShape datastore.Shape
}

func (a CreateAttributeMatrix) String() string {
	return fmt.Sprintf("create attribute matrix %s %v", a.Path, a.TupleShape)
}

func (a CreateAttributeMatrix) Apply(ds *graph.DataStructure, _ Mode) result.Result[struct{}] {
	parent, err := resolveParent(ds, a.Path)
	if err != nil {
		return fail(a, err)
	}
	if _, err := ds.CreateAttributeMatrix(parent, a.Path.Name(), a.TupleShape); err != nil {
		return fail(a, err)
	}
	return done()
}
