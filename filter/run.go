package filter

import (
	"context"
	"fmt"

	"github.com/hupe1980/nxgraph/action"
	"github.com/hupe1980/nxgraph/graph"
	"github.com/hupe1980/nxgraph/result"
)

// Prepared is the outcome of a successful preflight.
type Prepared struct {
	// Args are the resolved arguments.
	Args Arguments
	// Actions is the batch the filter returned.
	Actions action.Batch
}

// prepare resolves args, checks selections and asks f for its batch
// without applying it.
func prepare(f Filter, ds *graph.DataStructure, args Arguments) result.Result[Prepared] {
	params := f.Parameters()
	resolved := params.Resolve(args)
	if !resolved.Valid() {
		return result.Then(resolved, Prepared{})
	}
	res := result.Then(resolved, Prepared{Args: resolved.Value})
	if errs := params.CheckStructure(ds, resolved.Value); len(errs) > 0 {
		res.AddError(errs...)
		return res
	}
	batch := f.Preflight(ds, resolved.Value)
	result.Merge(&res, batch)
	res.Value.Actions = batch.Value
	return res
}

// RunPreflight resolves args, asks f for its actions and applies them to
// ds in preflight mode. ds is usually a structural copy.
func RunPreflight(f Filter, ds *graph.DataStructure, args Arguments) result.Result[Prepared] {
	res := prepare(f, ds, args)
	if !res.Valid() {
		return res
	}
	result.Merge(&res, action.Apply(ds, res.Value.Actions, action.Preflight))
	return res
}

// RunExecute preflights f against the current state of ds, applies the
// actions in execute mode and then runs the algorithm body. Warnings of
// every stage are kept. A cancel observed before the body runs returns
// success with the actions applied so far.
func RunExecute(ctx context.Context, f Filter, ds *graph.DataStructure, args Arguments, messages MessageHandler, cancel *CancelFlag) result.Result[struct{}] {
	prep := prepare(f, ds, args)
	res := result.Then(prep, struct{}{})
	if !prep.Valid() {
		return res
	}
	result.Merge(&res, action.Apply(ds, prep.Value.Actions, action.Execute))
	if !res.Valid() || cancel.Canceled() {
		return res
	}
	if err := ctx.Err(); err != nil {
		res.AddError(result.Wrap(result.KindAlgorithm, err, "%s", f.Name()))
		return res
	}
	result.Merge(&res, f.Execute(ctx, ds, prep.Value.Args, messages, cancel))
	return res
}

// Fail is a convenience for filter bodies returning a single error.
func Fail[T any](f Filter, err error) result.Result[T] {
	return result.FailErr[T](fmt.Errorf("%s: %w", f.Name(), err))
}
