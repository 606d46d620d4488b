package core

import (
	"context"

	"github.com/hupe1980/nxgraph/action"
	"github.com/hupe1980/nxgraph/datastore"
	"github.com/hupe1980/nxgraph/filter"
	"github.com/hupe1980/nxgraph/graph"
	"github.com/hupe1980/nxgraph/parallel"
	"github.com/hupe1980/nxgraph/result"
)

// ConvertData copies an array into a new array of another element type.
type ConvertData struct{ info }

func NewConvertData() *ConvertData {
	return &ConvertData{info{name: "ConvertData", human: "Convert Data Type"}}
}

func (f *ConvertData) Parameters() filter.Parameters {
	return filter.Parameters{
		filter.ArraySelection("input", "Input Array", nil),
		filter.DataTypeParam("type", "Output Type", datastore.Float32),
		filter.ArrayCreation("output", "Converted Array", graph.MustPath("Converted")),
	}
}

func (f *ConvertData) Preflight(_ *graph.DataStructure, args filter.Arguments) result.Result[action.Batch] {
	r := filter.NewReader(args)
	in := filter.Read[graph.DataPath](r, "input")
	dtype := filter.Read[datastore.DataType](r, "type")
	out := filter.Read[graph.DataPath](r, "output")
	if err := r.Err(); err != nil {
		return filter.Fail[action.Batch](f, err)
	}
	return result.Ok(action.Batch{action.CreateArrayLike{Path: out, Like: in, SetType: true, Type: dtype}})
}

func (f *ConvertData) Execute(ctx context.Context, ds *graph.DataStructure, args filter.Arguments, _ filter.MessageHandler, _ *filter.CancelFlag) result.Result[struct{}] {
	r := filter.NewReader(args)
	in := filter.Read[graph.DataPath](r, "input")
	out := filter.Read[graph.DataPath](r, "output")
	if err := r.Err(); err != nil {
		return filter.Fail[struct{}](f, err)
	}
	src, err := graph.Lookup[*graph.DataArray](ds, in)
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}
	dst, err := graph.Lookup[*graph.DataArray](ds, out)
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}
	err = parallel.For(ctx, src.Size(), func(_ context.Context, r parallel.Range) error {
		return datastore.ConvertRange(src.Store(), dst.Store(), r.Begin, r.End)
	}, parallelOptions(ctx)...)
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}
	return result.Ok(struct{}{})
}
