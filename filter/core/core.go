package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hupe1980/nxgraph/datastore"
	"github.com/hupe1980/nxgraph/filter"
	"github.com/hupe1980/nxgraph/graph"
	"github.com/hupe1980/nxgraph/internal/resource"
	"github.com/hupe1980/nxgraph/parallel"
	"github.com/hupe1980/nxgraph/segment"
)

// All returns a fresh instance of every built-in filter.
func All() []filter.Filter {
	return []filter.Filter{
		NewCreateDataArray(),
		NewThresholdArray(),
		NewConvertData(),
		NewScalarSegmentFeatures(),
		NewFindNeighbors(),
		NewFindFeatureCentroids(),
		NewFindNeighborhoods(),
		NewWriteContainer(),
		NewReadContainer(),
	}
}

// Register adds every built-in filter to reg.
func Register(reg *filter.Registry) error {
	return reg.Register(All()...)
}

// info carries the identity methods shared by all filters.
type info struct {
	name  string
	human string
}

func (i info) Name() string      { return i.name }
func (i info) HumanName() string { return i.human }
func (i info) UUID() uuid.UUID   { return filter.NewUUID(i.name) }

// numericTypes are the element types scalar filters accept.
var numericTypes = []datastore.DataType{
	datastore.Int8, datastore.Uint8, datastore.Int16, datastore.Uint16,
	datastore.Int32, datastore.Uint32, datastore.Int64, datastore.Uint64,
	datastore.Float32, datastore.Float64,
}

func parallelOptions(ctx context.Context) []parallel.Option {
	return []parallel.Option{parallel.WithController(resource.FromContext(ctx))}
}

func gridOf(g *graph.ImageGeom) segment.Grid {
	return segment.Grid{Dims: g.Dims()}
}

// cellArray checks that the array at p is laid out on the cells of geom.
func cellArray(ds *graph.DataStructure, geom *graph.ImageGeom, p graph.DataPath) (*graph.DataArray, error) {
	arr, err := graph.Lookup[*graph.DataArray](ds, p)
	if err != nil {
		return nil, err
	}
	if !arr.TupleShape().Equal(geom.CellTupleShape()) {
		return nil, fmt.Errorf("%w: %s has tuples %v, geometry cells %v", graph.ErrTupleShapeMismatch, p, arr.TupleShape(), geom.CellTupleShape())
	}
	if arr.Store().NumComponents() != 1 {
		return nil, fmt.Errorf("%w: %s has %v components, want 1", datastore.ErrShapeMismatch, p, arr.ComponentShape())
	}
	return arr, nil
}

func int32Values(ds *graph.DataStructure, p graph.DataPath) ([]int32, error) {
	arr, err := graph.Lookup[*graph.DataArray](ds, p)
	if err != nil {
		return nil, err
	}
	s, ok := datastore.As[int32](arr.Store())
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s, want int32", datastore.ErrTypeMismatch, p, arr.DataType())
	}
	return s.Values(), nil
}

func float32Store(ds *graph.DataStructure, p graph.DataPath) (*datastore.DataStore[float32], error) {
	arr, err := graph.Lookup[*graph.DataArray](ds, p)
	if err != nil {
		return nil, err
	}
	s, ok := datastore.As[float32](arr.Store())
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s, want float32", datastore.ErrTypeMismatch, p, arr.DataType())
	}
	return s, nil
}

// numFeatures derives the feature count from a feature attribute matrix,
// whose tuple 0 is the background.
func numFeatures(ds *graph.DataStructure, p graph.DataPath) (int, error) {
	m, err := graph.Lookup[*graph.AttributeMatrix](ds, p)
	if err != nil {
		return 0, err
	}
	n := m.TupleShape().Product() - 1
	if n < 0 {
		return 0, fmt.Errorf("%w: feature matrix %s is empty", datastore.ErrShapeMismatch, p)
	}
	return n, nil
}

func checkNames(names ...string) error {
	for _, n := range names {
		if err := graph.ValidateName(n); err != nil {
			return err
		}
	}
	return nil
}

// writeLists stores per-feature lists flattened in feature order into
// the 1-D array at p, resizing it to the total length.
func writeLists[T int32 | float32](ds *graph.DataStructure, p graph.DataPath, lists [][]T) error {
	total := 0
	for _, l := range lists {
		total += len(l)
	}
	id, ok := ds.Resolve(p)
	if !ok {
		return fmt.Errorf("%w: %s", graph.ErrNotFound, p)
	}
	if err := ds.ReshapeArray(id, datastore.Shape{total}); err != nil {
		return err
	}
	arr, _ := ds.GetDataArray(id)
	s, ok := datastore.As[T](arr.Store())
	if !ok {
		return fmt.Errorf("%w: %s is %s", datastore.ErrTypeMismatch, p, arr.DataType())
	}
	vals, off := s.Values(), 0
	for _, l := range lists {
		off += copy(vals[off:], l)
	}
	return nil
}
