package dataio

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"sync/atomic"

	"github.com/hupe1980/nxgraph/blobstore"
	"github.com/hupe1980/nxgraph/datastore"
	"github.com/hupe1980/nxgraph/graph"
	"github.com/hupe1980/nxgraph/internal/conv"
	nxfs "github.com/hupe1980/nxgraph/internal/fs"
	"github.com/hupe1980/nxgraph/internal/hash"
	"github.com/hupe1980/nxgraph/internal/progress"
	"github.com/hupe1980/nxgraph/internal/resource"
	"github.com/hupe1980/nxgraph/parallel"
)

// WriteOptions configures container writes. The zero value writes
// uncompressed, keeps each store's own chunk shape and uses GOMAXPROCS
// chunk writers.
type WriteOptions struct {
	// Compression applies to unchunked datasets.
	Compression Compression
	// AutoChunkBytes, when positive, chunks unchunked arrays larger than
	// this many bytes along their slowest axis.
	AutoChunkBytes int64
	// Workers caps concurrent chunk writes.
	Workers int
	// Controller limits workers and write throughput.
	Controller *resource.Controller
	// FileSystem is used by WriteFile and Save. Defaults to the local one.
	FileSystem nxfs.FileSystem
	// Progress receives throttled progress messages.
	Progress func(string)
}

func (o WriteOptions) fs() nxfs.FileSystem {
	if o.FileSystem != nil {
		return o.FileSystem
	}
	return nxfs.Default
}

type chunkJob struct {
	path  string
	store datastore.Store
	grid  *chunkGrid
	desc  *dataset
	done  []atomic.Bool
}

type writer struct {
	ctx  context.Context
	ds   *graph.DataStructure
	w    io.WriterAt
	opts WriteOptions

	offset uint64
	seen   map[graph.ID]string
	stores map[datastore.Store]*dataset
	jobs   []*chunkJob
}

// Write encodes ds to w and returns the container size. Unchunked datasets
// are written as they are reached; chunks are written concurrently once
// the data region is laid out. The header goes last.
func Write(ctx context.Context, w io.WriterAt, ds *graph.DataStructure, opts WriteOptions) (int64, error) {
	if opts.Controller != nil {
		w = resource.NewRateLimitedWriterAt(ctx, w, opts.Controller)
	}
	wr := &writer{
		ctx:    ctx,
		ds:     ds,
		w:      w,
		opts:   opts,
		offset: headerSize,
		seen:   make(map[graph.ID]string),
		stores: make(map[datastore.Store]*dataset),
	}
	children, err := wr.container(graph.RootID, graph.DataPath{})
	if err != nil {
		return 0, err
	}
	if err := wr.writeChunks(); err != nil {
		return 0, err
	}

	dir, crc, err := encodeDirectory(&directory{Version: Version, Children: children})
	if err != nil {
		return 0, fmt.Errorf("dataio: encode directory: %w", err)
	}
	dirOffset := wr.offset
	if _, err := w.WriteAt(dir, int64(dirOffset)); err != nil {
		return 0, &IOError{Op: "write", Path: "<directory>", Err: err}
	}
	h := header{Version: Version, DirOffset: dirOffset, DirLength: uint64(len(dir)), DirCRC: crc}
	if _, err := w.WriteAt(h.encode(), 0); err != nil {
		return 0, &IOError{Op: "write", Path: "<header>", Err: err}
	}
	return int64(dirOffset) + int64(len(dir)), nil
}

func (wr *writer) childrenOf(id graph.ID) map[string]graph.ID {
	if id.IsZero() {
		return wr.ds.RootChildren()
	}
	obj, ok := wr.ds.Get(id)
	if !ok {
		return nil
	}
	if c, ok := obj.(graph.Container); ok {
		return c.Children()
	}
	return nil
}

func (wr *writer) container(id graph.ID, prefix graph.DataPath) ([]node, error) {
	children := wr.childrenOf(id)
	names := make([]string, 0, len(children))
	for name := range children {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]node, 0, len(names))
	for _, name := range names {
		if err := wr.ctx.Err(); err != nil {
			return nil, err
		}
		n, err := wr.object(children[name], prefix.Child(name))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (wr *writer) object(id graph.ID, path graph.DataPath) (node, error) {
	obj, ok := wr.ds.Get(id)
	if !ok {
		return node{}, fmt.Errorf("%w: %s at %s", graph.ErrNotFound, id, path)
	}
	if len(path) > MaxDepth {
		return node{}, fmt.Errorf("%w: %d levels at %s", ErrTooDeep, len(path), path)
	}
	n := node{Name: obj.Name(), Kind: obj.Kind().String()}
	if first, ok := wr.seen[id]; ok {
		n.Link = first
		return n, nil
	}
	wr.seen[id] = path.String()

	var err error
	switch o := obj.(type) {
	case *graph.DataArray:
		n.Dataset, err = wr.array(path.String(), o.Store())
		if err != nil {
			return node{}, err
		}
		return n, nil
	case *graph.ImageGeom:
		dims := o.Dims()
		if n.Dims, err = conv.ShapeToUint64(dims[:]); err != nil {
			return node{}, err
		}
		origin, spacing := o.Origin(), o.Spacing()
		n.Origin, n.Spacing = origin[:], spacing[:]
		if cd := o.CellData(); !cd.IsZero() {
			if m, ok := wr.ds.Get(cd); ok {
				if child, ok := o.Child(m.Name()); ok && child == cd {
					n.CellData = m.Name()
				}
			}
		}
	case *graph.AttributeMatrix:
		if n.Shape, err = conv.ShapeToUint64(o.TupleShape()); err != nil {
			return node{}, err
		}
	case *graph.Montage:
		if n.Shape, err = conv.ShapeToUint64(o.GridShape()); err != nil {
			return node{}, err
		}
	}
	if n.Children, err = wr.container(id, path); err != nil {
		return node{}, err
	}
	return n, nil
}

// array lays out one dataset. Stores shared by several arrays are
// written once.
func (wr *writer) array(path string, s datastore.Store) (*dataset, error) {
	if d, ok := wr.stores[s]; ok {
		c := *d
		return &c, nil
	}
	if !s.Allocated() {
		return nil, &IOError{Op: "write", Path: path, Err: datastore.ErrUnallocated}
	}
	d := &dataset{Type: s.DataType().String(), Offset: wr.offset}
	var err error
	if d.TupleShape, err = conv.ShapeToUint64(s.TupleShape()); err != nil {
		return nil, err
	}
	if d.ComponentShape, err = conv.ShapeToUint64(s.ComponentShape()); err != nil {
		return nil, err
	}
	raw, err := conv.MulInt(s.Size(), s.DataType().Size())
	if err != nil {
		return nil, err
	}
	d.RawLength = uint64(raw)

	chunk := s.ChunkShape()
	full := datastore.Concat(s.TupleShape(), s.ComponentShape())
	if chunk == nil {
		chunk = autoChunk(full, s.DataType().Size(), wr.opts.AutoChunkBytes)
	}
	if chunk != nil {
		if err := wr.planChunks(path, s, full, chunk, d); err != nil {
			return nil, err
		}
	} else if err := wr.writeWhole(path, s, d); err != nil {
		return nil, err
	}
	wr.offset += d.Length
	wr.stores[s] = d
	c := *d
	return &c, nil
}

func (wr *writer) writeWhole(path string, s datastore.Store, d *dataset) error {
	encoded, err := s.EncodeBigEndian(make([]byte, 0, d.RawLength), 0, s.Size())
	if err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	stored, c, err := compress(encoded, wr.opts.Compression)
	if err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	d.Compression = c
	d.Length = uint64(len(stored))
	d.CRC = hash.CRC32C(stored)
	if len(stored) == 0 {
		return nil
	}
	if _, err := wr.w.WriteAt(stored, int64(d.Offset)); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

func (wr *writer) planChunks(path string, s datastore.Store, full, chunk datastore.Shape, d *dataset) error {
	grid, err := newChunkGrid(full, chunk)
	if err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if d.ChunkShape, err = conv.ShapeToUint64(chunk); err != nil {
		return err
	}
	d.Length = d.RawLength
	d.ChunkCRCs = make([]uint32, grid.Len())
	wr.jobs = append(wr.jobs, &chunkJob{
		path:  path,
		store: s,
		grid:  grid,
		desc:  d,
		done:  make([]atomic.Bool, grid.Len()),
	})
	return nil
}

// writeChunks writes every planned chunk across workers. The first
// failure cancels the rest.
func (wr *writer) writeChunks() error {
	if len(wr.jobs) == 0 {
		return nil
	}
	starts := make([]int, len(wr.jobs)+1)
	for i, j := range wr.jobs {
		starts[i+1] = starts[i] + j.grid.Len()
	}
	total := starts[len(wr.jobs)]
	rep := progress.New(wr.opts.Progress, 0)
	var written atomic.Int64

	err := parallel.For(wr.ctx, total, func(ctx context.Context, r parallel.Range) error {
		var buf []byte
		for n := r.Begin; n < r.End; n++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			ji := sort.SearchInts(starts, n+1) - 1
			job := wr.jobs[ji]
			linear := n - starts[ji]
			var err error
			if buf, err = wr.writeChunk(job, linear, buf); err != nil {
				return err
			}
			rep.Percent("Writing chunks", int(written.Add(1)), total)
		}
		return nil
	}, parallel.WithWorkers(wr.opts.Workers), parallel.WithGrain(1), parallel.WithController(wr.opts.Controller))
	if err != nil {
		return err
	}

	for _, job := range wr.jobs {
		for i := range job.done {
			if !job.done[i].Load() {
				return &IOError{Op: "write", Path: job.path, Chunk: job.grid.index(i), Err: ErrIncomplete}
			}
		}
	}
	return nil
}

func (wr *writer) writeChunk(job *chunkJob, linear int, buf []byte) ([]byte, error) {
	idx := job.grid.index(linear)
	size := int64(job.store.DataType().Size())
	base := int64(job.desc.Offset)
	var crc hash.Digest
	err := job.grid.runs(idx, func(r run) error {
		var err error
		buf, err = job.store.EncodeBigEndian(buf[:0], r.start, r.count)
		if err != nil {
			return err
		}
		crc.Add(buf)
		_, err = wr.w.WriteAt(buf, base+int64(r.start)*size)
		return err
	})
	if err != nil {
		return buf, &IOError{Op: "write", Path: job.path, Chunk: slices.Clone(idx), Err: err}
	}
	job.desc.ChunkCRCs[linear] = crc.Sum32()
	job.done[linear].Store(true)
	return buf, nil
}

// WriteFile writes ds to path. The file is written in place; a failed
// write leaves a partial file that will not open.
func WriteFile(ctx context.Context, path string, ds *graph.DataStructure, opts WriteOptions) (int64, error) {
	f, err := opts.fs().OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := Write(ctx, f, ds, opts)
	if err != nil {
		_ = f.Close()
		return 0, err
	}
	if err := f.Truncate(n); err != nil {
		_ = f.Close()
		return 0, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return 0, err
	}
	return n, f.Close()
}

// Save writes ds to name in store. The container is staged in a
// temporary local file and then streamed into the store.
func Save(ctx context.Context, store blobstore.BlobStore, name string, ds *graph.DataStructure, opts WriteOptions) (int64, error) {
	fsys := opts.fs()
	tmp, err := fsys.CreateTemp("", "nxg-*.tmp")
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tmp.Close()
		_ = fsys.Remove(tmp.Name())
	}()

	n, err := Write(ctx, tmp, ds, opts)
	if err != nil {
		return 0, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	dst, err := store.Create(ctx, name)
	if err != nil {
		return 0, err
	}
	if _, err := io.Copy(dst, io.LimitReader(tmp, n)); err != nil {
		_ = blobstore.Abort(dst)
		return 0, fmt.Errorf("dataio: save %s: %w", name, err)
	}
	if err := dst.Close(); err != nil {
		return 0, fmt.Errorf("dataio: save %s: %w", name, err)
	}
	return n, nil
}
