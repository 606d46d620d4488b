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

// FindNeighbors finds the features sharing a face with every feature. It
// stores neighbor counts and a surface flag in the feature attribute
// matrix and the flattened neighbor and shared area lists in a group.
type FindNeighbors struct{ info }

func NewFindNeighbors() *FindNeighbors {
	return &FindNeighbors{info{name: "FindNeighbors", human: "Find Feature Neighbors"}}
}

func (f *FindNeighbors) Parameters() filter.Parameters {
	return filter.Parameters{
		filter.GeometrySelection("geometry", "Image Geometry", graph.MustPath("Image")),
		filter.ArraySelection("feature_ids", "Feature IDs", graph.MustPath("Image", "Cell", "FeatureIds"), datastore.Int32),
		filter.AttributeMatrixSelection("feature_matrix", "Feature Attribute Matrix", graph.MustPath("Image", "CellFeatureData")),
		filter.String("num_neighbors", "Number of Neighbors Name", "NumNeighbors"),
		filter.String("surface", "Surface Features Name", "SurfaceFeatures"),
		filter.GroupCreation("lists", "Neighbor List Group", graph.MustPath("Image", "NeighborLists")),
		filter.String("neighbor_list", "Neighbor List Name", "NeighborList"),
		filter.String("shared_areas", "Shared Surface Area List Name", "SharedSurfaceAreaList"),
	}
}

type neighborArgs struct {
	geometry, ids, matrix, lists          graph.DataPath
	numNeighbors, surface, list, areaList string
}

func readNeighborArgs(args filter.Arguments) (neighborArgs, error) {
	r := filter.NewReader(args)
	a := neighborArgs{
		geometry:     filter.Read[graph.DataPath](r, "geometry"),
		ids:          filter.Read[graph.DataPath](r, "feature_ids"),
		matrix:       filter.Read[graph.DataPath](r, "feature_matrix"),
		lists:        filter.Read[graph.DataPath](r, "lists"),
		numNeighbors: filter.Read[string](r, "num_neighbors"),
		surface:      filter.Read[string](r, "surface"),
		list:         filter.Read[string](r, "neighbor_list"),
		areaList:     filter.Read[string](r, "shared_areas"),
	}
	if err := r.Err(); err != nil {
		return a, err
	}
	return a, checkNames(a.numNeighbors, a.surface, a.list, a.areaList)
}

func (f *FindNeighbors) Preflight(ds *graph.DataStructure, args filter.Arguments) result.Result[action.Batch] {
	a, err := readNeighborArgs(args)
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
		action.CreateArray{Path: a.matrix.Child(a.numNeighbors), Type: datastore.Int32},
		action.CreateArray{Path: a.matrix.Child(a.surface), Type: datastore.Bool},
		action.CreateGroup{Path: a.lists},
		action.CreateArray{Path: a.lists.Child(a.list), Type: datastore.Int32, TupleShape: datastore.Shape{0}},
		action.CreateArray{Path: a.lists.Child(a.areaList), Type: datastore.Float32, TupleShape: datastore.Shape{0}},
	})
}

func (f *FindNeighbors) Execute(ctx context.Context, ds *graph.DataStructure, args filter.Arguments, messages filter.MessageHandler, _ *filter.CancelFlag) result.Result[struct{}] {
	a, err := readNeighborArgs(args)
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

	messages.Progress("Finding face neighbors")
	faces, err := neighbor.FaceNeighbors(ctx, ids, gridOf(geom), n, parallelOptions(ctx)...)
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}

	counts, err := graph.Lookup[*graph.DataArray](ds, a.matrix.Child(a.numNeighbors))
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}
	if s, ok := datastore.As[int32](counts.Store()); ok {
		copy(s.Values(), faces.NumNeighbors())
	}
	surface, err := graph.Lookup[*graph.DataArray](ds, a.matrix.Child(a.surface))
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}
	if s, ok := datastore.AsBool(surface.Store()); ok {
		s.Fill(false)
		for it := faces.Surface.Iterator(); it.HasNext(); {
			s.Set(int(it.Next()), true)
		}
	}

	if err := writeLists(ds, a.lists.Child(a.list), faces.Neighbors); err != nil {
		return filter.Fail[struct{}](f, err)
	}
	sp := geom.Spacing()
	areas := faces.SharedAreas(r3.Vec{X: sp[0], Y: sp[1], Z: sp[2]})
	if err := writeLists(ds, a.lists.Child(a.areaList), toFloat32Lists(areas)); err != nil {
		return filter.Fail[struct{}](f, err)
	}
	messages.Info(fmt.Sprintf("Found neighbors of %d features", n))
	return result.Ok(struct{}{})
}

func toFloat32Lists(in [][]float64) [][]float32 {
	out := make([][]float32, len(in))
	for f, l := range in {
		out[f] = make([]float32, len(l))
		for k, v := range l {
			out[f][k] = float32(v)
		}
	}
	return out
}
