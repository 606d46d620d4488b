package core

import (
	"context"
	"fmt"

	"github.com/hupe1980/nxgraph/action"
	"github.com/hupe1980/nxgraph/datastore"
	"github.com/hupe1980/nxgraph/filter"
	"github.com/hupe1980/nxgraph/graph"
	"github.com/hupe1980/nxgraph/parallel"
	"github.com/hupe1980/nxgraph/result"
)

// ThresholdArray writes a bool mask that is true where the input lies in
// [min, max].
type ThresholdArray struct{ info }

func NewThresholdArray() *ThresholdArray {
	return &ThresholdArray{info{name: "ThresholdArray", human: "Threshold Array"}}
}

func (f *ThresholdArray) Parameters() filter.Parameters {
	return filter.Parameters{
		filter.ArraySelection("input", "Input Array", nil, numericTypes...),
		filter.ArrayCreation("output", "Mask Array", graph.MustPath("Mask")),
		filter.Float("min", "Minimum", 0),
		filter.Float("max", "Maximum", 1),
	}
}

func (f *ThresholdArray) Preflight(_ *graph.DataStructure, args filter.Arguments) result.Result[action.Batch] {
	r := filter.NewReader(args)
	in := filter.Read[graph.DataPath](r, "input")
	out := filter.Read[graph.DataPath](r, "output")
	lo := filter.Read[float64](r, "min")
	hi := filter.Read[float64](r, "max")
	if err := r.Err(); err != nil {
		return filter.Fail[action.Batch](f, err)
	}
	if lo > hi {
		return filter.Fail[action.Batch](f, fmt.Errorf("%w: min %g exceeds max %g", filter.ErrInvalidArgument, lo, hi))
	}
	return result.Ok(action.Batch{action.CreateArrayLike{Path: out, Like: in, SetType: true, Type: datastore.Bool}})
}

func (f *ThresholdArray) Execute(ctx context.Context, ds *graph.DataStructure, args filter.Arguments, _ filter.MessageHandler, _ *filter.CancelFlag) result.Result[struct{}] {
	r := filter.NewReader(args)
	in := filter.Read[graph.DataPath](r, "input")
	out := filter.Read[graph.DataPath](r, "output")
	lo := filter.Read[float64](r, "min")
	hi := filter.Read[float64](r, "max")
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
	mask, ok := datastore.AsBool(dst.Store())
	if !ok {
		return filter.Fail[struct{}](f, fmt.Errorf("%w: %s is %s", datastore.ErrTypeMismatch, out, dst.DataType()))
	}
	values := src.Store()
	err = parallel.For(ctx, values.Size(), func(ctx context.Context, r parallel.Range) error {
		for i := r.Begin; i < r.End; i++ {
			v := values.Float64At(i)
			mask.Set(i, v >= lo && v <= hi)
		}
		return ctx.Err()
	}, parallelOptions(ctx)...)
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}
	if mask.Count() == 0 {
		return result.Ok(struct{}{}, result.Warnf(2, "no element of %s lies in [%g, %g]", in, lo, hi))
	}
	return result.Ok(struct{}{})
}
