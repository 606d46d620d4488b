package core

import (
	"context"
	"fmt"

	"github.com/hupe1980/nxgraph/action"
	"github.com/hupe1980/nxgraph/dataio"
	"github.com/hupe1980/nxgraph/filter"
	"github.com/hupe1980/nxgraph/graph"
	"github.com/hupe1980/nxgraph/result"
)

// ReadContainer imports the hierarchy of a container file into a new
// group. Preflight imports placeholders; execute reads the data.
type ReadContainer struct{ info }

func NewReadContainer() *ReadContainer {
	return &ReadContainer{info{name: "ReadContainer", human: "Read Container File"}}
}

func (f *ReadContainer) Parameters() filter.Parameters {
	return filter.Parameters{
		filter.String("input_file", "Input File", ""),
		filter.GroupCreation("output_group", "Output Group", graph.MustPath("Imported")),
	}
}

func (f *ReadContainer) Preflight(_ *graph.DataStructure, args filter.Arguments) result.Result[action.Batch] {
	r := filter.NewReader(args)
	file := filter.Read[string](r, "input_file")
	group := filter.Read[graph.DataPath](r, "output_group")
	if err := r.Err(); err != nil {
		return filter.Fail[action.Batch](f, err)
	}
	if file == "" {
		return filter.Fail[action.Batch](f, fmt.Errorf("%w: input file is empty", filter.ErrInvalidArgument))
	}
	rd, err := dataio.OpenFile(file)
	if err != nil {
		return filter.Fail[action.Batch](f, err)
	}
	_ = rd.Close()
	return result.Ok(action.Batch{
		action.CreateGroup{Path: group},
		importContainer{File: file, Parent: group},
	})
}

// Execute has nothing left to do; the import action already read the data.
func (f *ReadContainer) Execute(context.Context, *graph.DataStructure, filter.Arguments, filter.MessageHandler, *filter.CancelFlag) result.Result[struct{}] {
	return result.Ok(struct{}{})
}

// importContainer recreates the container's objects under Parent. Arrays
// get placeholder stores in preflight mode.
type importContainer struct {
	File   string
	Parent graph.DataPath
}

func (a importContainer) String() string {
	return fmt.Sprintf("import %s into %s", a.File, a.Parent)
}

func (a importContainer) Apply(ds *graph.DataStructure, mode action.Mode) result.Result[struct{}] {
	parent, ok := ds.Resolve(a.Parent)
	if !ok {
		return a.fail(fmt.Errorf("%w: %s", graph.ErrNotFound, a.Parent))
	}
	rd, err := dataio.OpenFile(a.File)
	if err != nil {
		return a.fail(err)
	}
	defer rd.Close()
	if err := rd.Import(context.Background(), ds, parent, mode == action.Execute); err != nil {
		return a.fail(err)
	}
	return result.Ok(struct{}{})
}

func (a importContainer) fail(err error) result.Result[struct{}] {
	kind := result.FromError(err).Kind
	return result.Fail[struct{}](result.Wrap(kind, err, "%s", a))
}
