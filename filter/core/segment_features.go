package core

import (
	"context"
	"fmt"

	"github.com/hupe1980/nxgraph/action"
	"github.com/hupe1980/nxgraph/datastore"
	"github.com/hupe1980/nxgraph/filter"
	"github.com/hupe1980/nxgraph/graph"
	"github.com/hupe1980/nxgraph/result"
	"github.com/hupe1980/nxgraph/segment"
)

// ScalarSegmentFeatures groups 6-connected cells whose scalar values
// differ by at most a tolerance into features. It writes the feature ID of
// every cell and creates a feature attribute matrix with an Active array.
type ScalarSegmentFeatures struct{ info }

func NewScalarSegmentFeatures() *ScalarSegmentFeatures {
	return &ScalarSegmentFeatures{info{name: "ScalarSegmentFeatures", human: "Segment Features (Scalar)"}}
}

func (f *ScalarSegmentFeatures) Parameters() filter.Parameters {
	return filter.Parameters{
		filter.GeometrySelection("geometry", "Image Geometry", graph.MustPath("Image")),
		filter.ArraySelection("input", "Scalar Array", graph.MustPath("Image", "Cell", "Data"), numericTypes...),
		filter.Float("tolerance", "Tolerance", 0),
		filter.OptionalArraySelection("mask", "Mask Array", datastore.Bool, datastore.Uint8),
		filter.ArrayCreation("feature_ids", "Feature IDs", graph.MustPath("Image", "Cell", "FeatureIds")),
		filter.AttributeMatrixCreation("feature_matrix", "Feature Attribute Matrix", graph.MustPath("Image", "CellFeatureData")),
		filter.String("active", "Active Array Name", "Active"),
		filter.Bool("randomize", "Randomize Feature IDs", true),
		filter.Int("seed", "Random Seed", 5489),
		filter.Bool("periodic", "Periodic Boundaries", false),
	}
}

type segmentArgs struct {
	geometry  graph.DataPath
	input     graph.DataPath
	tolerance float64
	mask      graph.DataPath
	ids       graph.DataPath
	matrix    graph.DataPath
	active    string
	randomize bool
	seed      int64
	periodic  bool
}

func readSegmentArgs(args filter.Arguments) (segmentArgs, error) {
	r := filter.NewReader(args)
	a := segmentArgs{
		geometry:  filter.Read[graph.DataPath](r, "geometry"),
		input:     filter.Read[graph.DataPath](r, "input"),
		tolerance: filter.Read[float64](r, "tolerance"),
		mask:      filter.Read[graph.DataPath](r, "mask"),
		ids:       filter.Read[graph.DataPath](r, "feature_ids"),
		matrix:    filter.Read[graph.DataPath](r, "feature_matrix"),
		active:    filter.Read[string](r, "active"),
		randomize: filter.Read[bool](r, "randomize"),
		seed:      filter.Read[int64](r, "seed"),
		periodic:  filter.Read[bool](r, "periodic"),
	}
	return a, r.Err()
}

func (f *ScalarSegmentFeatures) Preflight(ds *graph.DataStructure, args filter.Arguments) result.Result[action.Batch] {
	a, err := readSegmentArgs(args)
	if err != nil {
		return filter.Fail[action.Batch](f, err)
	}
	if a.tolerance < 0 {
		return filter.Fail[action.Batch](f, fmt.Errorf("%w: negative tolerance %g", filter.ErrInvalidArgument, a.tolerance))
	}
	if err := checkNames(a.active); err != nil {
		return filter.Fail[action.Batch](f, err)
	}
	geom, err := graph.Lookup[*graph.ImageGeom](ds, a.geometry)
	if err != nil {
		return filter.Fail[action.Batch](f, err)
	}
	if _, err := cellArray(ds, geom, a.input); err != nil {
		return filter.Fail[action.Batch](f, err)
	}
	if !a.mask.IsRoot() {
		if _, err := cellArray(ds, geom, a.mask); err != nil {
			return filter.Fail[action.Batch](f, err)
		}
	}
	return result.Ok(action.Batch{
		action.CreateArray{Path: a.ids, Type: datastore.Int32, TupleShape: geom.CellTupleShape()},
		action.CreateAttributeMatrix{Path: a.matrix, TupleShape: datastore.Shape{1}},
		action.CreateArray{Path: a.matrix.Child(a.active), Type: datastore.Bool},
	})
}

func (f *ScalarSegmentFeatures) Execute(ctx context.Context, ds *graph.DataStructure, args filter.Arguments, messages filter.MessageHandler, cancel *filter.CancelFlag) result.Result[struct{}] {
	a, err := readSegmentArgs(args)
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}
	geom, err := graph.Lookup[*graph.ImageGeom](ds, a.geometry)
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}
	input, err := cellArray(ds, geom, a.input)
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}
	var mask *datastore.BoolStore
	if !a.mask.IsRoot() {
		if mask, err = maskStore(ds, a.mask); err != nil {
			return filter.Fail[struct{}](f, err)
		}
	}
	seg, err := scalarSegmenter(input.Store(), a.tolerance, mask)
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}
	ids, err := int32Values(ds, a.ids)
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}

	count, err := segment.Segment(ids, gridOf(geom), seg, segment.Options{
		Periodic:     a.periodic,
		ShouldCancel: cancel.Canceled,
		Progress:     messages.ProgressFunc(),
	})
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}
	if cancel.Canceled() {
		return result.Ok(struct{}{})
	}
	if a.randomize {
		messages.Info("Randomizing feature IDs")
		if err := segment.Randomize(ctx, ids, count, uint64(a.seed), parallelOptions(ctx)...); err != nil { //nolint:gosec // seed bits are reinterpreted
			return filter.Fail[struct{}](f, err)
		}
	}

	matrix, ok := ds.Resolve(a.matrix)
	if !ok {
		return filter.Fail[struct{}](f, fmt.Errorf("%w: %s", graph.ErrNotFound, a.matrix))
	}
	if err := ds.ResizeAttributeMatrix(matrix, datastore.Shape{count + 1}); err != nil {
		return filter.Fail[struct{}](f, err)
	}
	active, err := graph.Lookup[*graph.DataArray](ds, a.matrix.Child(a.active))
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}
	if bs, ok := datastore.AsBool(active.Store()); ok {
		bs.Fill(true)
		bs.Set(0, false)
	}
	messages.Info(fmt.Sprintf("Found %d features", count))
	return result.Ok(struct{}{})
}

// maskStore returns the mask at p as bools. Uint8 masks are converted.
func maskStore(ds *graph.DataStructure, p graph.DataPath) (*datastore.BoolStore, error) {
	arr, err := graph.Lookup[*graph.DataArray](ds, p)
	if err != nil {
		return nil, err
	}
	s := arr.Store()
	if s.DataType() != datastore.Bool {
		if s, err = datastore.Convert(s, datastore.Bool); err != nil {
			return nil, err
		}
	}
	bs, _ := datastore.AsBool(s)
	return bs, nil
}

func scalarSegmenter(s datastore.Store, tolerance float64, mask *datastore.BoolStore) (segment.Segmenter, error) {
	switch s.DataType() {
	case datastore.Int8:
		return newScalarSegmenter[int8](s, tolerance, mask)
	case datastore.Uint8:
		return newScalarSegmenter[uint8](s, tolerance, mask)
	case datastore.Int16:
		return newScalarSegmenter[int16](s, tolerance, mask)
	case datastore.Uint16:
		return newScalarSegmenter[uint16](s, tolerance, mask)
	case datastore.Int32:
		return newScalarSegmenter[int32](s, tolerance, mask)
	case datastore.Uint32:
		return newScalarSegmenter[uint32](s, tolerance, mask)
	case datastore.Int64:
		return newScalarSegmenter[int64](s, tolerance, mask)
	case datastore.Uint64:
		return newScalarSegmenter[uint64](s, tolerance, mask)
	case datastore.Float32:
		return newScalarSegmenter[float32](s, tolerance, mask)
	case datastore.Float64:
		return newScalarSegmenter[float64](s, tolerance, mask)
	default:
		return nil, fmt.Errorf("%w: cannot segment %s", datastore.ErrUnsupportedType, s.DataType())
	}
}

func newScalarSegmenter[T datastore.Numeric](s datastore.Store, tolerance float64, mask *datastore.BoolStore) (segment.Segmenter, error) {
	ts, ok := datastore.As[T](s)
	if !ok {
		return nil, fmt.Errorf("%w: %s", datastore.ErrUnallocated, s.DataType())
	}
	return segment.ScalarSegmenter[T]{Values: ts.Values(), Tolerance: tolerance, Mask: mask}, nil
}
