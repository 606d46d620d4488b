package core

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/nxgraph/action"
	"github.com/hupe1980/nxgraph/datastore"
	"github.com/hupe1980/nxgraph/filter"
	"github.com/hupe1980/nxgraph/graph"
	"github.com/hupe1980/nxgraph/result"
	"github.com/hupe1980/nxgraph/segment"
)

// newImage builds a 3x3x3 image whose Data array is 1 for x < 2 and 5 for
// x == 2.
func newImage(t *testing.T) *graph.DataStructure {
	t.Helper()
	ds := graph.New()
	res := action.Apply(ds, action.Batch{
		action.CreateImageGeom{Path: graph.MustPath("Image"), Dims: [3]int{3, 3, 3}, Spacing: [3]float64{1, 1, 1}, CellDataName: "Cell"},
		action.CreateArray{Path: graph.MustPath("Image", "Cell", "Data"), Type: datastore.Float32},
	}, action.Execute)
	require.True(t, res.Valid(), "%v", res.Err())

	arr, err := graph.Lookup[*graph.DataArray](ds, graph.MustPath("Image", "Cell", "Data"))
	require.NoError(t, err)
	data, ok := datastore.As[float32](arr.Store())
	require.True(t, ok)
	for i := range data.Values() {
		if i%3 == 2 {
			data.Set(i, 5)
		} else {
			data.Set(i, 1)
		}
	}
	return ds
}

type step struct {
	f    filter.Filter
	args filter.Arguments
}

func analysis() []step {
	return []step{
		{NewScalarSegmentFeatures(), filter.Arguments{"tolerance": 0.5, "randomize": false}},
		{NewFindNeighbors(), filter.Arguments{}},
		{NewFindFeatureCentroids(), filter.Arguments{}},
		{NewFindNeighborhoods(), filter.Arguments{}},
	}
}

func execute(t *testing.T, ds *graph.DataStructure, steps ...step) {
	t.Helper()
	for _, s := range steps {
		res := filter.RunExecute(context.Background(), s.f, ds, s.args, nil, nil)
		require.True(t, res.Valid(), "%s: %v", s.f.Name(), res.Err())
	}
}

func values[T datastore.Numeric](t *testing.T, ds *graph.DataStructure, names ...string) []T {
	t.Helper()
	arr, err := graph.Lookup[*graph.DataArray](ds, graph.MustPath(names...))
	require.NoError(t, err)
	s, ok := datastore.As[T](arr.Store())
	require.True(t, ok, "%s is %s", graph.MustPath(names...), arr.DataType())
	return s.Values()
}

func bools(t *testing.T, ds *graph.DataStructure, names ...string) []bool {
	t.Helper()
	arr, err := graph.Lookup[*graph.DataArray](ds, graph.MustPath(names...))
	require.NoError(t, err)
	s, ok := datastore.AsBool(arr.Store())
	require.True(t, ok)
	out := make([]bool, s.Size())
	for i := range out {
		out[i] = s.Get(i)
	}
	return out
}

func TestSegmentFeatures(t *testing.T) {
	ds := newImage(t)
	execute(t, ds, analysis()[0])

	ids := values[int32](t, ds, "Image", "Cell", "FeatureIds")
	for i, id := range ids {
		if i%3 == 2 {
			assert.Equal(t, int32(2), id, "cell %d", i)
		} else {
			assert.Equal(t, int32(1), id, "cell %d", i)
		}
	}
	m, err := graph.Lookup[*graph.AttributeMatrix](ds, graph.MustPath("Image", "CellFeatureData"))
	require.NoError(t, err)
	assert.Equal(t, datastore.Shape{3}, m.TupleShape())
	assert.Equal(t, []bool{false, true, true}, bools(t, ds, "Image", "CellFeatureData", "Active"))
}

func TestSegmentFeaturesRandomized(t *testing.T) {
	ds := newImage(t)
	execute(t, ds, step{NewScalarSegmentFeatures(), filter.Arguments{"tolerance": 0.5, "seed": 42}})

	ids := values[int32](t, ds, "Image", "Cell", "FeatureIds")
	left, right := ids[0], ids[2]
	assert.ElementsMatch(t, []int32{1, 2}, []int32{left, right})
	for i, id := range ids {
		if i%3 == 2 {
			assert.Equal(t, right, id)
		} else {
			assert.Equal(t, left, id)
		}
	}
}

func TestSegmentFeaturesMasked(t *testing.T) {
	ds := newImage(t)
	execute(t, ds, step{NewThresholdArray(), filter.Arguments{
		"input": "Image/Cell/Data", "output": "Image/Cell/Mask", "min": 100, "max": 200,
	}})

	res := filter.RunExecute(context.Background(), NewScalarSegmentFeatures(), ds, filter.Arguments{
		"tolerance": 0.5, "mask": "Image/Cell/Mask",
	}, nil, nil)
	require.False(t, res.Valid())
	assert.ErrorIs(t, res.Err(), segment.ErrNoFeatures)
	assert.Equal(t, result.KindAlgorithm, res.Errors[0].Kind)
}

func TestSegmentFeaturesCanceled(t *testing.T) {
	ds := newImage(t)
	var cancel filter.CancelFlag
	cancel.Cancel()
	res := filter.RunExecute(context.Background(), NewScalarSegmentFeatures(), ds, filter.Arguments{}, nil, &cancel)
	require.True(t, res.Valid(), "%v", res.Err())
	assert.Equal(t, make([]int32, 27), values[int32](t, ds, "Image", "Cell", "FeatureIds"))
}

func TestFindNeighbors(t *testing.T) {
	ds := newImage(t)
	execute(t, ds, analysis()[:2]...)

	assert.Equal(t, []int32{0, 1, 1}, values[int32](t, ds, "Image", "CellFeatureData", "NumNeighbors"))
	assert.Equal(t, []bool{false, true, true}, bools(t, ds, "Image", "CellFeatureData", "SurfaceFeatures"))
	assert.Equal(t, []int32{2, 1}, values[int32](t, ds, "Image", "NeighborLists", "NeighborList"))
	assert.Equal(t, []float32{9, 9}, values[float32](t, ds, "Image", "NeighborLists", "SharedSurfaceAreaList"))
}

func TestCentroidsAndNeighborhoods(t *testing.T) {
	ds := newImage(t)
	execute(t, ds, analysis()...)

	centers := values[float32](t, ds, "Image", "CellFeatureData", "Centroids")
	assert.InDeltaSlice(t, []float32{1, 1.5, 1.5}, centers[3:6], 1e-6)
	assert.InDeltaSlice(t, []float32{2.5, 1.5, 1.5}, centers[6:9], 1e-6)

	diameters := values[float32](t, ds, "Image", "CellFeatureData", "EquivalentDiameters")
	assert.InDelta(t, 3.2517, diameters[1], 1e-3)
	assert.InDelta(t, 2.5809, diameters[2], 1e-3)

	assert.Equal(t, []int32{0, 1, 1}, values[int32](t, ds, "Image", "CellFeatureData", "Neighborhoods"))
	assert.Equal(t, []int32{2, 1}, values[int32](t, ds, "Image", "NeighborhoodLists", "NeighborhoodList"))
}

type entry struct {
	Path string
	Kind graph.Kind
	Type datastore.DataType
}

func layout(t *testing.T, ds *graph.DataStructure) []entry {
	t.Helper()
	var out []entry
	require.NoError(t, ds.Walk(func(p graph.DataPath, obj graph.Object) error {
		e := entry{Path: p.String(), Kind: obj.Kind()}
		if arr, ok := obj.(*graph.DataArray); ok {
			e.Type = arr.DataType()
		}
		out = append(out, e)
		return nil
	}))
	return out
}

func TestPreflightMatchesExecute(t *testing.T) {
	ds := newImage(t)
	pre := ds.StructuralCopy()
	for _, s := range analysis() {
		res := filter.RunPreflight(s.f, pre, s.args)
		require.True(t, res.Valid(), "%s: %v", s.f.Name(), res.Err())
	}
	execute(t, ds, analysis()...)

	if diff := cmp.Diff(layout(t, ds), layout(t, pre)); diff != "" {
		t.Errorf("preflight layout differs (-execute +preflight):\n%s", diff)
	}
}

func TestThresholdAndConvert(t *testing.T) {
	ds := newImage(t)
	execute(t, ds,
		step{NewThresholdArray(), filter.Arguments{"input": "Image/Cell/Data", "output": "Image/Cell/Mask", "min": 2, "max": 10}},
		step{NewConvertData(), filter.Arguments{"input": "Image/Cell/Mask", "type": "uint8", "output": "Image/Cell/MaskU8"}},
	)
	mask := values[uint8](t, ds, "Image", "Cell", "MaskU8")
	for i, v := range mask {
		assert.Equal(t, uint8(i%3/2), v, "cell %d", i)
	}

	res := filter.RunPreflight(NewThresholdArray(), ds.StructuralCopy(), filter.Arguments{
		"input": "Image/Cell/Data", "output": "Image/Cell/Other", "min": 3, "max": 1,
	})
	require.False(t, res.Valid())
	assert.ErrorIs(t, res.Err(), filter.ErrInvalidArgument)
}

func TestCreateDataArray(t *testing.T) {
	ds := newImage(t)
	execute(t, ds, step{NewCreateDataArray(), filter.Arguments{
		"output": "Image/Cell/Ones", "type": "int16", "fill_value": 1,
	}})
	ones := values[int16](t, ds, "Image", "Cell", "Ones")
	assert.Len(t, ones, 27)
	assert.Equal(t, int16(1), ones[26])

	res := filter.RunPreflight(NewCreateDataArray(), ds.StructuralCopy(), filter.Arguments{"output": "Loose", "type": "int16"})
	require.False(t, res.Valid(), "a loose array needs a tuple shape")
}

func TestContainerRoundTrip(t *testing.T) {
	ds := newImage(t)
	execute(t, ds, analysis()...)

	file := filepath.Join(t.TempDir(), "out.nxg")
	execute(t, ds,
		step{NewWriteContainer(), filter.Arguments{"output_file": file, "compression": "zstd", "auto_chunk_bytes": 64}},
		step{NewReadContainer(), filter.Arguments{"input_file": file, "output_group": "Copy"}},
	)

	assert.Equal(t,
		values[int32](t, ds, "Image", "Cell", "FeatureIds"),
		values[int32](t, ds, "Copy", "Image", "Cell", "FeatureIds"))
	assert.Equal(t,
		values[float32](t, ds, "Image", "NeighborLists", "SharedSurfaceAreaList"),
		values[float32](t, ds, "Copy", "Image", "NeighborLists", "SharedSurfaceAreaList"))

	geom, err := graph.Lookup[*graph.ImageGeom](ds, graph.MustPath("Copy", "Image"))
	require.NoError(t, err)
	cells, err := graph.Lookup[*graph.AttributeMatrix](ds, graph.MustPath("Copy", "Image", "Cell"))
	require.NoError(t, err)
	assert.Equal(t, cells.ID(), geom.CellData())

	pre := ds.StructuralCopy()
	res := filter.RunPreflight(NewReadContainer(), pre, filter.Arguments{"input_file": file, "output_group": "Again"})
	require.True(t, res.Valid(), "%v", res.Err())
	arr, err := graph.Lookup[*graph.DataArray](pre, graph.MustPath("Again", "Image", "Cell", "Data"))
	require.NoError(t, err)
	assert.False(t, arr.Store().Allocated())

	res = filter.RunPreflight(NewReadContainer(), ds.StructuralCopy(), filter.Arguments{"input_file": filepath.Join(t.TempDir(), "missing.nxg")})
	require.False(t, res.Valid())
}

func TestRegister(t *testing.T) {
	reg := filter.NewRegistry()
	require.NoError(t, Register(reg))
	assert.Len(t, reg.List(), len(All()))

	f, ok := reg.LookupByName("ScalarSegmentFeatures")
	require.True(t, ok)
	assert.Equal(t, filter.NewUUID("ScalarSegmentFeatures"), f.UUID())
	assert.Error(t, Register(reg), "second registration collides")
}
