package core

import (
	"context"
	"fmt"

	"github.com/hupe1980/nxgraph/action"
	"github.com/hupe1980/nxgraph/dataio"
	"github.com/hupe1980/nxgraph/filter"
	"github.com/hupe1980/nxgraph/graph"
	"github.com/hupe1980/nxgraph/internal/resource"
	"github.com/hupe1980/nxgraph/result"
)

var compressions = []dataio.Compression{dataio.CompressionNone, dataio.CompressionLZ4, dataio.CompressionZSTD}

// WriteContainer writes the whole data structure to a container file.
type WriteContainer struct{ info }

func NewWriteContainer() *WriteContainer {
	return &WriteContainer{info{name: "WriteContainer", human: "Write Container File"}}
}

func (f *WriteContainer) Parameters() filter.Parameters {
	names := make([]string, len(compressions))
	for i, c := range compressions {
		names[i] = c.String()
	}
	return filter.Parameters{
		filter.String("output_file", "Output File", ""),
		filter.Choice("compression", "Compression", 0, names...),
		filter.Int("auto_chunk_bytes", "Auto Chunk Size (bytes)", 0),
		filter.IntRange("workers", "Writer Threads", 0, 0, 1024),
	}
}

type writeArgs struct {
	path string
	opts dataio.WriteOptions
}

func readWriteArgs(args filter.Arguments) (writeArgs, error) {
	r := filter.NewReader(args)
	a := writeArgs{path: filter.Read[string](r, "output_file")}
	a.opts.Compression = compressions[filter.Read[int](r, "compression")]
	a.opts.AutoChunkBytes = filter.Read[int64](r, "auto_chunk_bytes")
	a.opts.Workers = int(filter.Read[int64](r, "workers"))
	if err := r.Err(); err != nil {
		return a, err
	}
	if a.path == "" {
		return a, fmt.Errorf("%w: output file is empty", filter.ErrInvalidArgument)
	}
	if a.opts.AutoChunkBytes < 0 {
		return a, fmt.Errorf("%w: negative auto chunk size", filter.ErrInvalidArgument)
	}
	return a, nil
}

func (f *WriteContainer) Preflight(_ *graph.DataStructure, args filter.Arguments) result.Result[action.Batch] {
	if _, err := readWriteArgs(args); err != nil {
		return filter.Fail[action.Batch](f, err)
	}
	return result.Ok(action.Batch{})
}

func (f *WriteContainer) Execute(ctx context.Context, ds *graph.DataStructure, args filter.Arguments, messages filter.MessageHandler, _ *filter.CancelFlag) result.Result[struct{}] {
	a, err := readWriteArgs(args)
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}
	a.opts.Controller = resource.FromContext(ctx)
	a.opts.Progress = messages.ProgressFunc()
	n, err := dataio.WriteFile(ctx, a.path, ds, a.opts)
	if err != nil {
		return filter.Fail[struct{}](f, err)
	}
	messages.Info(fmt.Sprintf("Wrote %d bytes to %s", n, a.path))
	return result.Ok(struct{}{})
}
