package core

import (
	"context"
	"fmt"

	"github.com/hupe1980/nxgraph/action"
	"github.com/hupe1980/nxgraph/datastore"
	"github.com/hupe1980/nxgraph/filter"
	"github.com/hupe1980/nxgraph/graph"
	"github.com/hupe1980/nxgraph/result"
)

// CreateDataArray creates an array filled with a constant. Inside an
// attribute matrix an empty tuple shape takes the matrix's.
type CreateDataArray struct{ info }

func NewCreateDataArray() *CreateDataArray {
	return &CreateDataArray{info{name: "CreateDataArray", human: "Create Data Array"}}
}

func (f *CreateDataArray) Parameters() filter.Parameters {
	return filter.Parameters{
		filter.ArrayCreation("output", "Created Array", graph.MustPath("Data")),
		filter.DataTypeParam("type", "Data Type", datastore.Float32),
		filter.ShapeParam("tuple_shape", "Tuple Shape", nil),
		filter.ShapeParam("component_shape", "Component Shape", datastore.Shape{1}),
		filter.ShapeParam("chunk_shape", "Chunk Shape", nil),
		filter.Float("fill_value", "Fill Value", 0),
	}
}

func (f *CreateDataArray) Preflight(ds *graph.DataStructure, args filter.Arguments) result.Result[action.Batch] {
	r := filter.NewReader(args)
	a := action.CreateArray{
		Path:           filter.Read[graph.DataPath](r, "output"),
		Type:           filter.Read[datastore.DataType](r, "type"),
		TupleShape:     filter.Read[datastore.Shape](r, "tuple_shape"),
		ComponentShape: filter.Read[datastore.Shape](r, "component_shape"),
		ChunkShape:     filter.Read[datastore.Shape](r, "chunk_shape"),
		FillValue:      filter.Read[float64](r, "fill_value"),
	}
	if err := r.Err(); err != nil {
		return filter.Fail[action.Batch](f, err)
	}
	if a.TupleShape == nil {
		if _, err := graph.Lookup[*graph.AttributeMatrix](ds, a.Path.Parent()); err != nil {
			return filter.Fail[action.Batch](f, fmt.Errorf("%w: tuple_shape is required outside an attribute matrix", filter.ErrInvalidArgument))
		}
	}
	if a.Type == datastore.Bool && a.FillValue != 0 && a.FillValue != 1 {
		return result.Ok(action.Batch{a}, result.Warnf(1, "fill value %g is stored as true", a.FillValue))
	}
	return result.Ok(action.Batch{a})
}

func (f *CreateDataArray) Execute(context.Context, *graph.DataStructure, filter.Arguments, filter.MessageHandler, *filter.CancelFlag) result.Result[struct{}] {
	return result.Ok(struct{}{})
}
