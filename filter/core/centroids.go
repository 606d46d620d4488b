package core

import (
	"context"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/hupe1980/nxgraph/action"
	"github.com/hupe1980/nxgraph/datastore"
	"github.com/hupe1980/nxgraph/filter"
	"github.com/hupe1980/nxgraph/graph"
	"github.com/hupe1980/nxgraph/neighbor"
	"github.com/hupe1980/nxgraph/result"
)

// FindFeatureCentroids computes the physical centroid and the equivalent
// sphere diameter of every feature.
type FindFeatureCentroids struct{ info }

func NewFindFeatureCentroids() *FindFeatureCentroids {
	return &FindFeatureCentroids{info{name: "FindFeatureCentroids", human: "Find Feature Centroids"}}
}

func (f *FindFeatureCentroids) Parameters() filter.Parameters {
	return filter.Parameters{
		filter.GeometrySelection("geometry", "Image Geometry", graph.MustPath("Image")),
		filter.ArraySelection("feature_ids", "Feature IDs", graph.MustPath("Image", "Cell", "FeatureIds"), datastore.Int32),
		filter.AttributeMatrixSelection("feature_matrix", "Feature Attribute Matrix", graph.MustPath("Image", "CellFeatureData")),
		filter.String("centroids", "Centroids Name", "Centroids"),
		filter.String("diameters", "Equivalent Diameters Name", "EquivalentDiameters"),
	}
}

type centroidArgs struct {
	geometry, ids, matrix graph.DataPath
	centroids, diameters  string
}

func readCentroidArgs(args filter.Arguments) (centroidArgs, error) {
	r := filter.NewReader(args)
	a := centroidArgs{
		geometry:  filter.Read[graph.DataPath](r, "geometry"),
		ids:       filter.Read[graph.DataPath](r, "feature_ids"),
		matrix:    filter.Read[graph.DataPath](r, "feature_matrix"),
		centroids: filter.Read[string](r, "centroids"),
		diameters: filter.Read[string](r, "diameters"),
	}
	if err := r.Err(); err != nil {
		return a, err
	}
	return a, checkNames(a.centroids, a.diameters)
}

func (f *FindFeatureCentroids) Preflight(ds *graph.DataStructure, args filter.Arguments) result.Result[action.Batch] {
	a, err := readCentroidArgs(args)
	if err != nil {
		return filter.Fail[action.Batch](f, err)
	}
	geom, err := graph.Lookup[*graph.ImageGeom](ds, a.geometry)
	if err != nil {
		return filter.Fail[action.Batch](f, err)
	}
	if _, err := cellArray(ds, geom, a.ids); err != nil {
		return filter.Fail[action.Batch](f, err)
	}
	return result.Ok(action.Batch{
		action.CreateArray{Path: a.matrix.Child(a.centroids), Type: datastore.Float32, ComponentShape: datastore.Shape{3}},
		action.CreateArray{Path: a.matrix.Child(a.diameters), Type: datastore.Float32},
	})
}

func (f *FindFeatureCentroids) Execute(ctx context.Context, ds *graph.DataStructure, args filter.Arguments, _ filter.MessageHandler, _ *filter.CancelFlag) result.Result[struct{}] {
	a, err := readCentroidArgs(args)
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}
	geom, err := graph.Lookup[*graph.ImageGeom](ds, a.geometry)
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}
	ids, err := int32Values(ds, a.ids)
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}
	n, err := numFeatures(ds, a.matrix)
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}
	origin, spacing := geom.Origin(), geom.Spacing()
	c, err := neighbor.FindCentroids(ctx, ids, neighbor.Geometry{
		Grid:    gridOf(geom),
		Origin:  r3.Vec{X: origin[0], Y: origin[1], Z: origin[2]},
		Spacing: r3.Vec{X: spacing[0], Y: spacing[1], Z: spacing[2]},
	}, n, parallelOptions(ctx)...)
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}

	centers, err := float32Store(ds, a.matrix.Child(a.centroids))
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}
	diameters, err := float32Store(ds, a.matrix.Child(a.diameters))
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}
	for i, v := range c.Centers {
		t := centers.Tuple(i)
		t[0], t[1], t[2] = float32(v.X), float32(v.Y), float32(v.Z)
		diameters.Set(i, float32(c.Diameters[i]))
	}
	return result.Ok(struct{}{})
}
