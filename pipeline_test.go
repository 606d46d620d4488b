package nxgraph_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/nxgraph"
	"github.com/hupe1980/nxgraph/action"
	"github.com/hupe1980/nxgraph/blobstore"
	"github.com/hupe1980/nxgraph/dataio"
	"github.com/hupe1980/nxgraph/datastore"
	"github.com/hupe1980/nxgraph/filter"
	"github.com/hupe1980/nxgraph/filter/core"
	"github.com/hupe1980/nxgraph/graph"
	"github.com/hupe1980/nxgraph/internal/resource"
	"github.com/hupe1980/nxgraph/result"
	"github.com/hupe1980/nxgraph/segment"
)

func newImage(t *testing.T, ds *graph.DataStructure) {
	t.Helper()
	res := action.Apply(ds, action.Batch{
		action.CreateImageGeom{Path: graph.MustPath("Image"), Dims: [3]int{3, 3, 3}, Spacing: [3]float64{1, 1, 1}, CellDataName: "Cell"},
		action.CreateArray{Path: graph.MustPath("Image", "Cell", "Data"), Type: datastore.Float32},
	}, action.Execute)
	require.True(t, res.Valid(), "%v", res.Err())

	arr, err := graph.Lookup[*graph.DataArray](ds, graph.MustPath("Image", "Cell", "Data"))
	require.NoError(t, err)
	data, _ := datastore.As[float32](arr.Store())
	for i := range data.Values() {
		data.Set(i, float32(1+4*(i%3/2)))
	}
}

func analysis(p *nxgraph.Pipeline) *nxgraph.Pipeline {
	return p.
		Append(core.NewScalarSegmentFeatures(), filter.Arguments{"tolerance": 0.5, "randomize": false}).
		Append(core.NewFindNeighbors(), filter.Arguments{}).
		Append(core.NewFindFeatureCentroids(), filter.Arguments{}).
		Append(core.NewFindNeighborhoods(), filter.Arguments{})
}

func TestExecute(t *testing.T) {
	metrics := &nxgraph.BasicMetricsCollector{}
	var messages []filter.Message
	p, err := nxgraph.NewPipeline(
		nxgraph.WithMetricsCollector(metrics),
		nxgraph.WithMessageHandler(func(m filter.Message) { messages = append(messages, m) }),
	)
	require.NoError(t, err)
	analysis(p)

	ds := p.NewDataStructure()
	newImage(t, ds)

	rep, err := p.Execute(context.Background(), ds, nil)
	require.NoError(t, err)
	assert.True(t, rep.Valid())
	assert.Len(t, rep.Steps, 4)

	arr, err := graph.Lookup[*graph.DataArray](ds, graph.MustPath("Image", "CellFeatureData", "NumNeighbors"))
	require.NoError(t, err)
	counts, _ := datastore.As[int32](arr.Store())
	assert.Equal(t, []int32{0, 1, 1}, counts.Values())

	stats := metrics.GetStats()
	assert.Equal(t, int64(4), stats.PreflightCount)
	assert.Equal(t, int64(4), stats.ExecuteCount)
	assert.Zero(t, stats.ExecuteErrors)
	assert.Contains(t, messages, filter.Message{Type: filter.MessageInfo, Text: "Found 2 features"})
}

func TestPreflightReportsEveryStep(t *testing.T) {
	p, err := nxgraph.NewPipeline()
	require.NoError(t, err)
	p.Append(core.NewThresholdArray(), filter.Arguments{"input": "Image/Cell/Data", "output": "Image/Cell/Mask", "min": 5, "max": 1}).
		Append(core.NewFindNeighbors(), filter.Arguments{})

	ds := p.NewDataStructure()
	newImage(t, ds)

	rep := p.Preflight(ds)
	require.False(t, rep.Valid())
	require.Len(t, rep.Steps, 2)
	assert.NotEmpty(t, rep.Steps[0].Errors)
	assert.NotEmpty(t, rep.Steps[1].Errors, "the feature ids of step 1 do not exist")

	_, err = p.Execute(context.Background(), ds, nil)
	require.ErrorIs(t, err, nxgraph.ErrPreflightFailed)
	require.ErrorIs(t, err, filter.ErrInvalidArgument)
	_, ok := ds.Resolve(graph.MustPath("Image", "Cell", "Mask"))
	assert.False(t, ok, "nothing executes after a failed preflight")
}

func TestExecuteStopsAtFailingStep(t *testing.T) {
	metrics := &nxgraph.BasicMetricsCollector{}
	p, err := nxgraph.NewPipeline(nxgraph.WithMetricsCollector(metrics))
	require.NoError(t, err)
	p.Append(core.NewThresholdArray(), filter.Arguments{"input": "Image/Cell/Data", "output": "Image/Cell/Mask", "min": 100, "max": 200}).
		Append(core.NewScalarSegmentFeatures(), filter.Arguments{"mask": "Image/Cell/Mask"}).
		Append(core.NewFindNeighbors(), filter.Arguments{})

	ds := p.NewDataStructure()
	newImage(t, ds)

	rep, err := p.Execute(context.Background(), ds, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, nxgraph.ErrExecuteFailed)
	assert.ErrorIs(t, err, segment.ErrNoFeatures)

	var stepErr *nxgraph.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, 1, stepErr.Step)
	assert.Equal(t, "ScalarSegmentFeatures", stepErr.Filter)
	assert.Equal(t, result.KindAlgorithm, stepErr.Kind())

	require.Len(t, rep.Steps, 2)
	assert.Len(t, rep.Warnings(), 1, "the empty mask warns")
	assert.Equal(t, int64(1), metrics.GetStats().ExecuteErrors)
}

func TestExecuteCanceled(t *testing.T) {
	p, err := nxgraph.NewPipeline()
	require.NoError(t, err)
	analysis(p)
	ds := p.NewDataStructure()
	newImage(t, ds)

	var cancel filter.CancelFlag
	cancel.Cancel()
	rep, err := p.Execute(context.Background(), ds, &cancel)
	require.NoError(t, err)
	assert.Empty(t, rep.Steps)
}

func TestMemoryLimit(t *testing.T) {
	p, err := nxgraph.NewPipeline(nxgraph.WithResourceLimits(nxgraph.ResourceConfig{MemoryLimitBytes: 64}))
	require.NoError(t, err)
	ds := p.NewDataStructure()

	res := action.Apply(ds, action.Batch{
		action.CreateArray{Path: graph.MustPath("Big"), Type: datastore.Float64, TupleShape: datastore.Shape{100}},
	}, action.Execute)
	require.False(t, res.Valid())
	assert.ErrorIs(t, res.Err(), resource.ErrMemoryLimitExceeded)
}

func TestSave(t *testing.T) {
	ctx := context.Background()
	metrics := &nxgraph.BasicMetricsCollector{}
	cfg := nxgraph.DefaultConfig()
	cfg.Storage.Compression = "lz4"
	p, err := nxgraph.NewPipeline(nxgraph.WithConfig(cfg), nxgraph.WithLogger(nil), nxgraph.WithMetricsCollector(metrics))
	require.NoError(t, err)

	ds := p.NewDataStructure()
	newImage(t, ds)

	store := blobstore.NewMemoryStore()
	n, err := p.Save(ctx, store, "image.nxg", ds)
	require.NoError(t, err)

	loaded, err := dataio.Load(ctx, store, "image.nxg")
	require.NoError(t, err)
	a, err := graph.Lookup[*graph.DataArray](loaded, graph.MustPath("Image", "Cell", "Data"))
	require.NoError(t, err)
	b, err := graph.Lookup[*graph.DataArray](ds, graph.MustPath("Image", "Cell", "Data"))
	require.NoError(t, err)
	assert.True(t, datastore.Equal(a.Store(), b.Store()))

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.SaveCount)
	assert.Equal(t, n, stats.SaveBytes)
}
