package filter

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/nxgraph/action"
	"github.com/hupe1980/nxgraph/datastore"
	"github.com/hupe1980/nxgraph/graph"
	"github.com/hupe1980/nxgraph/result"
)

// fillFilter creates an array and fills it with a constant.
type fillFilter struct {
	executed int
}

func (f *fillFilter) Name() string      { return "Fill" }
func (f *fillFilter) UUID() uuid.UUID   { return NewUUID(f.Name()) }
func (f *fillFilter) HumanName() string { return "Fill Array" }

func (f *fillFilter) Parameters() Parameters {
	return Parameters{
		ArrayCreation("output", "Output", graph.MustPath("out")),
		ShapeParam("shape", "Tuple Shape", datastore.Shape{4}),
		Float("value", "Value", 1),
		Choice("type", "Type", 0, "float32", "int32"),
	}
}

func (f *fillFilter) Preflight(_ *graph.DataStructure, args Arguments) result.Result[action.Batch] {
	r := NewReader(args)
	out := Read[graph.DataPath](r, "output")
	shape := Read[datastore.Shape](r, "shape")
	choice := Read[int](r, "type")
	if err := r.Err(); err != nil {
		return Fail[action.Batch](f, err)
	}
	dtype := datastore.Float32
	if choice == 1 {
		dtype = datastore.Int32
	}
	return result.Ok(action.Batch{action.CreateArray{Path: out, Type: dtype, TupleShape: shape}})
}

func (f *fillFilter) Execute(_ context.Context, ds *graph.DataStructure, args Arguments, messages MessageHandler, _ *CancelFlag) result.Result[struct{}] {
	f.executed++
	out, _ := Get[graph.DataPath](args, "output")
	v, _ := Get[float64](args, "value")
	arr, err := graph.Lookup[*graph.DataArray](ds, out)
	if err != nil {
		return Fail[struct{}](f, err)
	}
	messages.Info("filling")
	if err := arr.Store().FillFloat64(v); err != nil {
		return Fail[struct{}](f, err)
	}
	return result.Ok(struct{}{}, result.Warnf(7, "filled %d", arr.Size()))
}

func TestResolve(t *testing.T) {
	f := &fillFilter{}

	res := f.Parameters().Resolve(Arguments{"value": 3, "type": "int32", "shape": []any{2, 3}})
	require.True(t, res.Valid(), "%v", res.Err())
	assert.Equal(t, 3.0, res.Value["value"])
	assert.Equal(t, 1, res.Value["type"])
	assert.Equal(t, datastore.Shape{2, 3}, res.Value["shape"])
	assert.Equal(t, graph.MustPath("out"), res.Value["output"])

	res = f.Parameters().Resolve(Arguments{"value": "x", "type": 5, "bogus": true, "shape": []any{-1}})
	require.False(t, res.Valid())
	assert.Len(t, res.Errors, 4, "all problems are reported")
	for _, e := range res.Errors {
		assert.Equal(t, result.KindValidation, e.Kind)
	}
	assert.ErrorIs(t, res.Err(), ErrUnknownArgument)
	assert.ErrorIs(t, res.Err(), ErrArgumentType)
}

func TestGet(t *testing.T) {
	args := Arguments{"n": int64(3)}
	n, err := Get[int64](args, "n")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = Get[int](args, "n")
	assert.ErrorIs(t, err, ErrArgumentType)
	assert.Equal(t, result.KindValidation, result.KindOf(err))

	_, err = Get[int64](args, "missing")
	assert.ErrorIs(t, err, ErrMissingArgument)
}

func TestIntConversion(t *testing.T) {
	p := IntRange("n", "N", 0, 0, 10)
	v, err := p.Validate(4.0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)

	_, err = p.Validate(4.5)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = p.Validate(11)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestVec3(t *testing.T) {
	p := Vec3Param("v", "V", [3]float64{1, 1, 1})
	v, err := p.Validate([]any{1, 2.5, 3})
	require.NoError(t, err)
	assert.Equal(t, [3]float64{1, 2.5, 3}, v)
	_, err = p.Validate([]float64{1})
	assert.Error(t, err)
}

func TestRunPreflightLeavesPlaceholders(t *testing.T) {
	ds := graph.New()
	f := &fillFilter{}

	res := RunPreflight(f, ds, Arguments{"shape": datastore.Shape{3}})
	require.True(t, res.Valid(), "%v", res.Err())
	require.Len(t, res.Value.Actions, 1)

	arr, err := graph.Lookup[*graph.DataArray](ds, graph.MustPath("out"))
	require.NoError(t, err)
	assert.False(t, arr.Store().Allocated())
	assert.Equal(t, datastore.Shape{3}, arr.TupleShape())
	assert.Zero(t, f.executed)

	res = RunPreflight(f, ds, nil)
	require.False(t, res.Valid(), "output now exists")
	assert.ErrorIs(t, res.Err(), graph.ErrNameCollision)
}

func TestRunExecute(t *testing.T) {
	ds := graph.New()
	f := &fillFilter{}
	var msgs []Message

	res := RunExecute(context.Background(), f, ds, Arguments{"value": 2.5},
		func(m Message) { msgs = append(msgs, m) }, nil)
	require.True(t, res.Valid(), "%v", res.Err())
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, []Message{{Type: MessageInfo, Text: "filling"}}, msgs)

	arr, err := graph.Lookup[*graph.DataArray](ds, graph.MustPath("out"))
	require.NoError(t, err)
	s, ok := datastore.As[float32](arr.Store())
	require.True(t, ok)
	assert.Equal(t, []float32{2.5, 2.5, 2.5, 2.5}, s.Values())
}

func TestRunExecuteCanceled(t *testing.T) {
	ds := graph.New()
	f := &fillFilter{}
	cancel := &CancelFlag{}
	cancel.Cancel()

	res := RunExecute(context.Background(), f, ds, nil, nil, cancel)
	require.True(t, res.Valid())
	assert.Zero(t, f.executed)
	_, ok := ds.Resolve(graph.MustPath("out"))
	assert.True(t, ok, "applied actions stay")
}

func TestCancelFlagNil(t *testing.T) {
	var c *CancelFlag
	assert.False(t, c.Canceled())
	c.Cancel()
	var h MessageHandler
	h.Info("dropped")
	assert.Nil(t, h.ProgressFunc())
}

func TestArraySelection(t *testing.T) {
	ds := graph.New()
	s, err := datastore.New(datastore.Int32, datastore.Shape{2}, nil)
	require.NoError(t, err)
	_, err = ds.CreateDataArray(graph.RootID, "ids", s)
	require.NoError(t, err)

	ps := Parameters{
		ArraySelection("a", "A", graph.MustPath("ids"), datastore.Int32),
		ArraySelection("b", "B", graph.MustPath("ids"), datastore.Float32),
		GeometrySelection("g", "G", graph.MustPath("ids")),
		OptionalArraySelection("m", "M", datastore.Bool),
		AttributeMatrixSelection("am", "AM", graph.MustPath("ids")),
	}
	res := ps.Resolve(nil)
	require.True(t, res.Valid())
	errs := ps.CheckStructure(ds, res.Value)
	require.Len(t, errs, 3)
	assert.ErrorIs(t, errs[0], datastore.ErrTypeMismatch)
	assert.ErrorIs(t, errs[1], graph.ErrKindMismatch)
	assert.ErrorIs(t, errs[2], graph.ErrKindMismatch)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	f := &fillFilter{}
	require.NoError(t, reg.Register(f))
	assert.ErrorIs(t, reg.Register(&fillFilter{}), ErrDuplicateFilter)

	got, ok := reg.Lookup(NewUUID("Fill"))
	require.True(t, ok)
	assert.Same(t, f, got)
	_, ok = reg.LookupByName("Fill")
	assert.True(t, ok)
	assert.Len(t, reg.List(), 1)
	assert.Equal(t, NewUUID("Fill"), NewUUID("Fill"))
	assert.NotEqual(t, NewUUID("Fill"), NewUUID("Other"))
}
