package dataio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/hupe1980/nxgraph/blobstore"
	"github.com/hupe1980/nxgraph/datastore"
	"github.com/hupe1980/nxgraph/graph"
	"github.com/hupe1980/nxgraph/internal/conv"
	"github.com/hupe1980/nxgraph/internal/hash"
	"github.com/hupe1980/nxgraph/internal/mmap"
)

// Entry describes one node of a container.
type Entry struct {
	Path graph.DataPath
	Kind graph.Kind
	// Link is set for repeated occurrences of an object with several
	// parents and names the path of its first occurrence.
	Link graph.DataPath

	// Array fields, zero for other kinds.
	DataType       datastore.DataType
	TupleShape     datastore.Shape
	ComponentShape datastore.Shape
	ChunkShape     datastore.Shape
	Compression    Compression
	// StoredBytes is the on-disk size of the dataset.
	StoredBytes uint64

	// Dims is set for image geometries; Shape for attribute matrices
	// (tuple shape) and montages (grid shape).
	Dims  [3]int
	Shape datastore.Shape
}

// arrayInfo is a validated dataset descriptor.
type arrayInfo struct {
	path  string
	dtype datastore.DataType
	tuple datastore.Shape
	comp  datastore.Shape
	chunk datastore.Shape
	desc  *dataset
}

func (a *arrayInfo) full() datastore.Shape { return datastore.Concat(a.tuple, a.comp) }

func (a *arrayInfo) options() []datastore.Option {
	if a.chunk == nil {
		return nil
	}
	return []datastore.Option{datastore.WithChunkShape(a.chunk)}
}

// Reader decodes a container. It is safe for concurrent use.
type Reader struct {
	r       io.ReaderAt
	closer  io.Closer
	dir     *directory
	entries []Entry
	arrays  map[string]*arrayInfo
}

// NewReader parses the header and directory of the size-byte container
// in r.
func NewReader(r io.ReaderAt, size int64) (*Reader, error) {
	buf := make([]byte, headerSize)
	if n, err := r.ReadAt(buf, 0); n < headerSize {
		if err == nil || errors.Is(err, io.EOF) {
			err = fmt.Errorf("%w: %d byte file", ErrIncomplete, size)
		}
		return nil, err
	}
	if allZero(buf) {
		return nil, fmt.Errorf("%w: header was never written", ErrIncomplete)
	}
	h, err := decodeHeader(buf)
	if err != nil {
		return nil, err
	}
	if h.DirOffset < headerSize || h.DirOffset+h.DirLength > uint64(size) || h.DirOffset+h.DirLength < h.DirOffset {
		return nil, fmt.Errorf("%w: directory [%d,+%d) beyond %d bytes", ErrIncomplete, h.DirOffset, h.DirLength, size)
	}
	raw := make([]byte, h.DirLength)
	if _, err := readFull(r, raw, int64(h.DirOffset)); err != nil {
		return nil, err
	}
	dir, err := decodeDirectory(raw, h.DirCRC)
	if err != nil {
		return nil, err
	}
	rd := &Reader{r: r, dir: dir, arrays: make(map[string]*arrayInfo)}
	if err := rd.index(dir.Children, graph.DataPath{}, h.DirOffset); err != nil {
		return nil, err
	}
	return rd, nil
}

// OpenFile memory-maps the container at path.
func OpenFile(path string) (*Reader, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	rd, err := NewReader(m, m.Size())
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	rd.closer = m
	return rd, nil
}

// Open opens the container blob name in store. Reads issued through the
// Reader use ctx.
func Open(ctx context.Context, store blobstore.BlobStore, name string) (*Reader, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	rd, err := NewReader(blobstore.ReaderAt(ctx, b), b.Size())
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	rd.closer = b
	return rd, nil
}

// Load reads the whole container blob name from store.
func Load(ctx context.Context, store blobstore.BlobStore, name string, opts ...graph.Option) (*graph.DataStructure, error) {
	rd, err := Open(ctx, store, name)
	if err != nil {
		return nil, err
	}
	defer rd.Close()
	return rd.Load(ctx, opts...)
}

// Close releases the underlying file or blob.
func (rd *Reader) Close() error {
	if rd.closer == nil {
		return nil
	}
	c := rd.closer
	rd.closer = nil
	return c.Close()
}

// Entries returns every node in depth-first, sorted-name order.
func (rd *Reader) Entries() []Entry { return slices.Clone(rd.entries) }

func (rd *Reader) index(nodes []node, prefix graph.DataPath, dataEnd uint64) error {
	for i := range nodes {
		n := &nodes[i]
		if err := graph.ValidateName(n.Name); err != nil {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		kind, err := graph.ParseKind(n.Kind)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		path := prefix.Child(n.Name)
		e := Entry{Path: path, Kind: kind}
		if n.Link != "" {
			if e.Link, err = graph.ParsePath(n.Link); err != nil {
				return fmt.Errorf("%w: link %q: %w", ErrCorrupt, n.Link, err)
			}
			rd.entries = append(rd.entries, e)
			continue
		}
		switch kind {
		case graph.KindDataArray:
			info, err := newArrayInfo(path.String(), n.Dataset, dataEnd)
			if err != nil {
				return err
			}
			rd.arrays[info.path] = info
			e.DataType, e.TupleShape, e.ComponentShape, e.ChunkShape = info.dtype, info.tuple, info.comp, info.chunk
			e.Compression, e.StoredBytes = info.desc.Compression, info.desc.Length
		case graph.KindImageGeom:
			dims, err := conv.ShapeFromUint64(n.Dims)
			if err != nil || len(dims) != 3 || len(n.Origin) != 3 || len(n.Spacing) != 3 {
				return fmt.Errorf("%w: image geometry %s", ErrCorrupt, path)
			}
			e.Dims = [3]int(dims)
		case graph.KindAttributeMatrix, graph.KindMontage:
			if e.Shape, err = conv.ShapeFromUint64(n.Shape); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrCorrupt, path, err)
			}
		}
		rd.entries = append(rd.entries, e)
		if err := rd.index(n.Children, path, dataEnd); err != nil {
			return err
		}
	}
	return nil
}

func newArrayInfo(path string, d *dataset, dataEnd uint64) (*arrayInfo, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: array %s has no dataset", ErrCorrupt, path)
	}
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: array %s: %s", ErrCorrupt, path, fmt.Sprintf(format, args...))
	}
	info := &arrayInfo{path: path, desc: d}
	var err error
	if info.dtype, err = datastore.ParseDataType(d.Type); err != nil {
		return nil, bad("%v", err)
	}
	if info.tuple, err = conv.ShapeFromUint64(d.TupleShape); err != nil {
		return nil, bad("tuple shape: %v", err)
	}
	if info.comp, err = conv.ShapeFromUint64(d.ComponentShape); err != nil {
		return nil, bad("component shape: %v", err)
	}
	if info.chunk, err = conv.ShapeFromUint64(d.ChunkShape); err != nil {
		return nil, bad("chunk shape: %v", err)
	}
	raw, err := conv.MulInt(info.full().Product(), info.dtype.Size())
	if err != nil || uint64(raw) != d.RawLength {
		return nil, bad("raw length %d does not match shapes", d.RawLength)
	}
	if d.Offset < headerSize || d.Offset+d.Length > dataEnd || d.Offset+d.Length < d.Offset {
		return nil, bad("data [%d,+%d) outside data region", d.Offset, d.Length)
	}
	if info.chunk != nil {
		grid, err := newChunkGrid(info.full(), info.chunk)
		if err != nil {
			return nil, bad("%v", err)
		}
		if d.Compression != CompressionNone || d.Length != d.RawLength || len(d.ChunkCRCs) != grid.Len() {
			return nil, bad("chunk layout")
		}
	}
	return info, nil
}

func (rd *Reader) array(path graph.DataPath) (*arrayInfo, error) {
	info, ok := rd.arrays[path.String()]
	if !ok {
		return nil, fmt.Errorf("%w: no array at %s", graph.ErrNotFound, path)
	}
	return info, nil
}

// Structure builds the container's hierarchy with unallocated
// placeholder stores. No element data is read.
func (rd *Reader) Structure() (*graph.DataStructure, error) {
	ds := graph.New()
	if err := rd.Import(context.Background(), ds, graph.RootID, false); err != nil {
		return nil, err
	}
	return ds, nil
}

// Load reads the whole container into a new structure.
func (rd *Reader) Load(ctx context.Context, opts ...graph.Option) (*graph.DataStructure, error) {
	ds := graph.New(opts...)
	if err := rd.Import(ctx, ds, graph.RootID, true); err != nil {
		return nil, err
	}
	return ds, nil
}

// Import recreates the container's hierarchy under parent in ds. With
// withData false arrays get placeholder stores. Arrays that shared a
// store when written share one again.
func (rd *Reader) Import(ctx context.Context, ds *graph.DataStructure, parent graph.ID, withData bool) error {
	im := &importer{
		ctx:      ctx,
		rd:       rd,
		ds:       ds,
		withData: withData,
		created:  make(map[string]graph.ID),
		stores:   make(map[uint64]datastore.Store),
	}
	return im.nodes(rd.dir.Children, parent, graph.DataPath{})
}

type importer struct {
	ctx      context.Context
	rd       *Reader
	ds       *graph.DataStructure
	withData bool
	created  map[string]graph.ID
	stores   map[uint64]datastore.Store
}

func (im *importer) nodes(nodes []node, parent graph.ID, prefix graph.DataPath) error {
	for i := range nodes {
		if err := im.ctx.Err(); err != nil {
			return err
		}
		if err := im.node(&nodes[i], parent, prefix.Child(nodes[i].Name)); err != nil {
			return err
		}
	}
	return nil
}

func (im *importer) node(n *node, parent graph.ID, path graph.DataPath) error {
	if n.Link != "" {
		id, ok := im.created[n.Link]
		if !ok {
			return fmt.Errorf("%w: %s links to unknown %q", ErrCorrupt, path, n.Link)
		}
		im.created[path.String()] = id
		return im.ds.AddParent(id, parent)
	}

	var (
		id  graph.ID
		err error
	)
	switch n.Kind {
	case graph.KindGroup.String():
		id, err = im.ds.CreateGroup(parent, n.Name)
	case graph.KindDataArray.String():
		var s datastore.Store
		if s, err = im.store(path); err == nil {
			id, err = im.ds.CreateDataArray(parent, n.Name, s)
		}
	case graph.KindImageGeom.String():
		id, err = im.ds.CreateImageGeom(parent, n.Name, dims3(n.Dims), [3]float64(n.Origin), [3]float64(n.Spacing))
	case graph.KindAttributeMatrix.String():
		id, err = im.ds.CreateAttributeMatrix(parent, n.Name, shapeOf(n.Shape))
	case graph.KindMontage.String():
		id, err = im.ds.CreateMontage(parent, n.Name, shapeOf(n.Shape))
	default:
		err = fmt.Errorf("%w: kind %q", ErrCorrupt, n.Kind)
	}
	if err != nil {
		return fmt.Errorf("dataio: import %s: %w", path, err)
	}
	im.created[path.String()] = id

	if err := im.nodes(n.Children, id, path); err != nil {
		return err
	}
	if n.Kind == graph.KindImageGeom.String() && n.CellData != "" {
		cd, ok := im.created[path.Child(n.CellData).String()]
		if !ok {
			return fmt.Errorf("%w: %s cell data %q missing", ErrCorrupt, path, n.CellData)
		}
		if err := im.ds.SetCellData(id, cd); err != nil {
			return fmt.Errorf("dataio: import %s: %w", path, err)
		}
	}
	return nil
}

func (im *importer) store(path graph.DataPath) (datastore.Store, error) {
	info, err := im.rd.array(path)
	if err != nil {
		return nil, err
	}
	shared := info.desc.Length > 0
	if s, ok := im.stores[info.desc.Offset]; ok && shared {
		return s, nil
	}
	var s datastore.Store
	if im.withData {
		s, err = im.rd.readArray(im.ctx, info)
	} else {
		s, err = datastore.NewEmpty(info.dtype, info.tuple, info.comp, info.options()...)
	}
	if err != nil {
		return nil, err
	}
	if shared {
		im.stores[info.desc.Offset] = s
	}
	return s, nil
}

// shapeOf and dims3 read shapes validated by index.
func shapeOf(s []uint64) datastore.Shape {
	out, _ := conv.ShapeFromUint64(s)
	return out
}

func dims3(s []uint64) [3]int {
	return [3]int(shapeOf(s))
}

// ReadArray reads the array at path.
func (rd *Reader) ReadArray(ctx context.Context, path graph.DataPath) (datastore.Store, error) {
	info, err := rd.array(path)
	if err != nil {
		return nil, err
	}
	return rd.readArray(ctx, info)
}

func (rd *Reader) readArray(ctx context.Context, info *arrayInfo) (datastore.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := datastore.New(info.dtype, info.tuple, info.comp, info.options()...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, info.path, err)
	}
	d := info.desc
	stored := make([]byte, d.Length)
	if _, err := readFull(rd.r, stored, int64(d.Offset)); err != nil {
		return nil, &IOError{Op: "read", Path: info.path, Err: err}
	}

	if info.chunk != nil {
		grid, _ := newChunkGrid(info.full(), info.chunk)
		size := info.dtype.Size()
		for linear := range grid.Len() {
			idx := grid.index(linear)
			var crc hash.Digest
			_ = grid.runs(idx, func(r run) error {
				crc.Add(stored[r.start*size : (r.start+r.count)*size])
				return nil
			})
			if crc.Sum32() != d.ChunkCRCs[linear] {
				return nil, &IOError{Op: "read", Path: info.path, Chunk: idx, Err: ErrChecksumMismatch}
			}
		}
	} else {
		if err := hash.Verify(stored, d.CRC); err != nil {
			return nil, &IOError{Op: "read", Path: info.path, Err: fmt.Errorf("%w: %w", ErrChecksumMismatch, err)}
		}
		raw, err := conv.Uint64ToInt(d.RawLength)
		if err != nil {
			return nil, &IOError{Op: "read", Path: info.path, Err: err}
		}
		if stored, err = decompress(stored, d.Compression, raw); err != nil {
			return nil, &IOError{Op: "read", Path: info.path, Err: err}
		}
	}
	if err := s.DecodeBigEndian(stored, 0); err != nil {
		return nil, &IOError{Op: "read", Path: info.path, Err: err}
	}
	return s, nil
}

// ChunkCounts returns the number of chunks along each axis of the array
// at path.
func (rd *Reader) ChunkCounts(path graph.DataPath) ([]int, error) {
	grid, _, err := rd.grid(path)
	if err != nil {
		return nil, err
	}
	return grid.Counts(), nil
}

func (rd *Reader) grid(path graph.DataPath) (*chunkGrid, *arrayInfo, error) {
	info, err := rd.array(path)
	if err != nil {
		return nil, nil, err
	}
	if info.chunk == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotChunked, path)
	}
	grid, err := newChunkGrid(info.full(), info.chunk)
	if err != nil {
		return nil, nil, err
	}
	return grid, info, nil
}

// ReadChunk reads one chunk of the array at path. The returned store's
// tuple and component shapes are the chunk's clipped extents.
func (rd *Reader) ReadChunk(ctx context.Context, path graph.DataPath, idx []int) (datastore.Store, error) {
	grid, info, err := rd.grid(path)
	if err != nil {
		return nil, err
	}
	linear, err := grid.linear(idx)
	if err != nil {
		return nil, err
	}
	return rd.readChunk(ctx, grid, info, linear)
}

func (rd *Reader) readChunk(ctx context.Context, grid *chunkGrid, info *arrayInfo, linear int) (datastore.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx := grid.index(linear)
	ext := grid.extent(idx)
	rank := len(info.tuple)
	s, err := datastore.New(info.dtype, ext[:rank], ext[rank:])
	if err != nil {
		return nil, &IOError{Op: "read", Path: info.path, Chunk: idx, Err: err}
	}
	size := info.dtype.Size()
	base := int64(info.desc.Offset)
	var (
		crc    hash.Digest
		cursor int
		buf    []byte
	)
	err = grid.runs(idx, func(r run) error {
		buf = slices.Grow(buf[:0], r.count*size)[:r.count*size]
		if _, err := readFull(rd.r, buf, base+int64(r.start*size)); err != nil {
			return err
		}
		crc.Add(buf)
		if err := s.DecodeBigEndian(buf, cursor); err != nil {
			return err
		}
		cursor += r.count
		return nil
	})
	if err == nil && crc.Sum32() != info.desc.ChunkCRCs[linear] {
		err = ErrChecksumMismatch
	}
	if err != nil {
		return nil, &IOError{Op: "read", Path: info.path, Chunk: idx, Err: err}
	}
	return s, nil
}

// ForEachChunk reads the chunks of the array at path one at a time in
// lexicographic order and passes each to fn.
func (rd *Reader) ForEachChunk(ctx context.Context, path graph.DataPath, fn func(idx []int, chunk datastore.Store) error) error {
	grid, info, err := rd.grid(path)
	if err != nil {
		return err
	}
	for linear := range grid.Len() {
		s, err := rd.readChunk(ctx, grid, info, linear)
		if err != nil {
			return err
		}
		if err := fn(grid.index(linear), s); err != nil {
			return err
		}
	}
	return nil
}

// Verify reads every dataset and checks its checksums. All failures are
// returned joined.
func (rd *Reader) Verify(ctx context.Context) error {
	var errs []error
	for _, e := range rd.entries {
		if e.Kind != graph.KindDataArray || e.Link != nil {
			continue
		}
		if _, err := rd.ReadArray(ctx, e.Path); err != nil {
			if ctx.Err() != nil {
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func readFull(r io.ReaderAt, p []byte, off int64) (int, error) {
	n, err := r.ReadAt(p, off)
	if n == len(p) {
		return n, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = fmt.Errorf("%w: short read at %d", ErrIncomplete, off)
	}
	return n, err
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
