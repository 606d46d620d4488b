package core

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/hupe1980/nxgraph/action"
	"github.com/hupe1980/nxgraph/datastore"
	"github.com/hupe1980/nxgraph/filter"
	"github.com/hupe1980/nxgraph/graph"
	"github.com/hupe1980/nxgraph/neighbor"
	"github.com/hupe1980/nxgraph/result"
)

// FindNeighborhoods relates features whose centroids lie closer than a
// multiple of the larger equivalent radius.
type FindNeighborhoods struct{ info }

func NewFindNeighborhoods() *FindNeighborhoods {
	return &FindNeighborhoods{info{name: "FindNeighborhoods", human: "Find Feature Neighborhoods"}}
}

func (f *FindNeighborhoods) Parameters() filter.Parameters {
	return filter.Parameters{
		filter.AttributeMatrixSelection("feature_matrix", "Feature Attribute Matrix", graph.MustPath("Image", "CellFeatureData")),
		filter.ArraySelection("centroids", "Centroids", graph.MustPath("Image", "CellFeatureData", "Centroids"), datastore.Float32),
		filter.ArraySelection("diameters", "Equivalent Diameters", graph.MustPath("Image", "CellFeatureData", "EquivalentDiameters"), datastore.Float32),
		filter.Float("multiplier", "Multiples of Radius", 1),
		filter.String("count", "Neighborhoods Name", "Neighborhoods"),
		filter.GroupCreation("lists", "Neighborhood List Group", graph.MustPath("Image", "NeighborhoodLists")),
		filter.String("list", "Neighborhood List Name", "NeighborhoodList"),
	}
}

type neighborhoodArgs struct {
	matrix, centroids, diameters, lists graph.DataPath
	multiplier                          float64
	count, list                         string
}

func readNeighborhoodArgs(args filter.Arguments) (neighborhoodArgs, error) {
	r := filter.NewReader(args)
	a := neighborhoodArgs{
		matrix:     filter.Read[graph.DataPath](r, "feature_matrix"),
		centroids:  filter.Read[graph.DataPath](r, "centroids"),
		diameters:  filter.Read[graph.DataPath](r, "diameters"),
		lists:      filter.Read[graph.DataPath](r, "lists"),
		multiplier: filter.Read[float64](r, "multiplier"),
		count:      filter.Read[string](r, "count"),
		list:       filter.Read[string](r, "list"),
	}
	if err := r.Err(); err != nil {
		return a, err
	}
	if a.multiplier <= 0 {
		return a, fmt.Errorf("%w: multiplier %g must be positive", filter.ErrInvalidArgument, a.multiplier)
	}
	return a, checkNames(a.count, a.list)
}

func (f *FindNeighborhoods) Preflight(ds *graph.DataStructure, args filter.Arguments) result.Result[action.Batch] {
	a, err := readNeighborhoodArgs(args)
	if err != nil {
		return filter.Fail[action.Batch](f, err)
	}
	m, err := graph.Lookup[*graph.AttributeMatrix](ds, a.matrix)
	if err != nil {
		return filter.Fail[action.Batch](f, err)
	}
	centroids, err := graph.Lookup[*graph.DataArray](ds, a.centroids)
	if err != nil {
		return filter.Fail[action.Batch](f, err)
	}
	if centroids.Store().NumComponents() != 3 {
		return filter.Fail[action.Batch](f, fmt.Errorf("%w: %s has %v components, want 3", datastore.ErrShapeMismatch, a.centroids, centroids.ComponentShape()))
	}
	diameters, err := graph.Lookup[*graph.DataArray](ds, a.diameters)
	if err != nil {
		return filter.Fail[action.Batch](f, err)
	}
	for _, arr := range []*graph.DataArray{centroids, diameters} {
		if !arr.TupleShape().Equal(m.TupleShape()) {
			return filter.Fail[action.Batch](f, fmt.Errorf("%w: %s has tuples %v, feature matrix %v", graph.ErrTupleShapeMismatch, arr.Name(), arr.TupleShape(), m.TupleShape()))
		}
	}
	return result.Ok(action.Batch{
		action.CreateArray{Path: a.matrix.Child(a.count), Type: datastore.Int32},
		action.CreateGroup{Path: a.lists},
		action.CreateArray{Path: a.lists.Child(a.list), Type: datastore.Int32, TupleShape: datastore.Shape{0}},
	})
}

func (f *FindNeighborhoods) Execute(ctx context.Context, ds *graph.DataStructure, args filter.Arguments, messages filter.MessageHandler, _ *filter.CancelFlag) result.Result[struct{}] {
	a, err := readNeighborhoodArgs(args)
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}
	centroids, err := float32Store(ds, a.centroids)
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}
	diameters, err := float32Store(ds, a.diameters)
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}
	n := centroids.NumTuples()
	centers := make([]r3.Vec, n)
	radii := make([]float64, n)
	for i := range n {
		t := centroids.Tuple(i)
		centers[i] = r3.Vec{X: float64(t[0]), Y: float64(t[1]), Z: float64(t[2])}
		radii[i] = float64(diameters.Get(i)) / 2
	}

	messages.Progress("Finding neighborhoods")
	bitmaps, err := neighbor.Neighborhoods(ctx, centers, radii, a.multiplier, parallelOptions(ctx)...)
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}
	counts, err := graph.Lookup[*graph.DataArray](ds, a.matrix.Child(a.count))
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}
	if s, ok := datastore.As[int32](counts.Store()); ok {
		for i, bm := range bitmaps {
			s.Set(i, int32(bm.GetCardinality())) //nolint:gosec // bounded by feature count
		}
	}
	if err := writeLists(ds, a.lists.Child(a.list), neighbor.Lists(bitmaps)); err != nil {
		return filter.Fail[struct{}](f, err)
	}
	return result.Ok(struct{}{})
}
