package dataio

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/nxgraph/blobstore"
	"github.com/hupe1980/nxgraph/datastore"
	"github.com/hupe1980/nxgraph/graph"
	nxfs "github.com/hupe1980/nxgraph/internal/fs"
	"github.com/hupe1980/nxgraph/result"
)

var allTypes = []datastore.DataType{
	datastore.Int8, datastore.Uint8, datastore.Int16, datastore.Uint16,
	datastore.Int32, datastore.Uint32, datastore.Int64, datastore.Uint64,
	datastore.Float32, datastore.Float64, datastore.Bool,
}

func filled(t *testing.T, dtype datastore.DataType, tuple, comp datastore.Shape, opts ...datastore.Option) datastore.Store {
	t.Helper()
	s, err := datastore.New(dtype, tuple, comp, opts...)
	require.NoError(t, err)
	for i := range s.Size() {
		v := float64(i % 100)
		if dtype == datastore.Bool {
			v = float64(i % 3 % 2)
		} else if dtype.IsFloat() {
			v += 0.5
		}
		s.SetFloat64(i, v)
	}
	return s
}

func writeFile(t *testing.T, ds *graph.DataStructure, opts WriteOptions) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.nxg")
	n, err := WriteFile(context.Background(), path, ds, opts)
	require.NoError(t, err)
	fi, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, n, fi.Size())
	return path
}

func readFile(t *testing.T, path string) *graph.DataStructure {
	t.Helper()
	rd, err := OpenFile(path)
	require.NoError(t, err)
	defer rd.Close()
	out, err := rd.Load(context.Background())
	require.NoError(t, err)
	return out
}

// assertSameArrays checks that every array of want exists in got with
// equal elements.
func assertSameArrays(t *testing.T, want, got *graph.DataStructure) {
	t.Helper()
	n := 0
	require.NoError(t, want.Walk(func(path graph.DataPath, obj graph.Object) error {
		a, ok := obj.(*graph.DataArray)
		if !ok {
			return nil
		}
		n++
		b, err := graph.Lookup[*graph.DataArray](got, path)
		require.NoError(t, err, path.String())
		assert.True(t, datastore.Equal(a.Store(), b.Store()), path.String())
		return nil
	}))
	assert.Positive(t, n)
}

func TestRoundTripAllTypes(t *testing.T) {
	variants := []struct {
		name  string
		chunk datastore.Shape
		opts  WriteOptions
	}{
		{name: "whole"},
		{name: "lz4", opts: WriteOptions{Compression: CompressionLZ4}},
		{name: "zstd", opts: WriteOptions{Compression: CompressionZSTD}},
		{name: "chunked", chunk: datastore.Shape{3, 2, 2}, opts: WriteOptions{Workers: 4}},
		{name: "chunked-serial", chunk: datastore.Shape{5, 5, 1}, opts: WriteOptions{Workers: 1}},
	}
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			ds := graph.New()
			g, err := ds.CreateGroup(graph.RootID, "Types")
			require.NoError(t, err)
			for _, dtype := range allTypes {
				var opts []datastore.Option
				if v.chunk != nil {
					opts = append(opts, datastore.WithChunkShape(v.chunk))
				}
				_, err := ds.CreateDataArray(g, dtype.String(), filled(t, dtype, datastore.Shape{7, 5}, datastore.Shape{3}, opts...))
				require.NoError(t, err)
			}

			got := readFile(t, writeFile(t, ds, v.opts))
			assertSameArrays(t, ds, got)

			arr, err := graph.Lookup[*graph.DataArray](got, graph.MustPath("Types", "bool"))
			require.NoError(t, err)
			assert.Equal(t, v.chunk, arr.Store().ChunkShape())
			bs, ok := datastore.AsBool(arr.Store())
			require.True(t, ok)
			assert.True(t, bs.Get(1))
			assert.False(t, bs.Get(2))
		})
	}
}

func nested(t *testing.T, depth int) (*graph.DataStructure, graph.DataPath) {
	t.Helper()
	ds := graph.New()
	parent, path := graph.RootID, graph.DataPath{}
	for range depth - 1 {
		id, err := ds.CreateGroup(parent, "g")
		require.NoError(t, err)
		parent, path = id, path.Child("g")
	}
	_, err := ds.CreateDataArray(parent, "Values", filled(t, datastore.Int32, datastore.Shape{4}, nil))
	require.NoError(t, err)
	return ds, path.Child("Values")
}

func TestDeepHierarchyRoundTrip(t *testing.T) {
	for _, depth := range []int{8, 16, 20, 64, MaxDepth} {
		ds, leaf := nested(t, depth)
		out := readFile(t, writeFile(t, ds, WriteOptions{}))
		_, err := graph.Lookup[*graph.DataArray](out, leaf)
		require.NoError(t, err, "depth %d", depth)
		assertSameArrays(t, ds, out)
	}
}

func TestTooDeepIsRejectedOnWrite(t *testing.T) {
	ds, _ := nested(t, MaxDepth+1)
	path := filepath.Join(t.TempDir(), "deep.nxg")
	_, err := WriteFile(context.Background(), path, ds, WriteOptions{})
	require.ErrorIs(t, err, ErrTooDeep)
	assert.Equal(t, result.KindValidation, result.FromError(err).Kind)
}

func TestBoolStoredAsBytes(t *testing.T) {
	ds := graph.New()
	s, err := datastore.NewBool(datastore.Shape{4}, nil)
	require.NoError(t, err)
	s.Set(1, true)
	s.Set(3, true)
	_, err = ds.CreateDataArray(graph.RootID, "Mask", s)
	require.NoError(t, err)

	path := writeFile(t, ds, WriteOptions{})
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 0, 1}, raw[headerSize:headerSize+4])
}

func TestGeometryLinksAndSharing(t *testing.T) {
	ds := graph.New()
	geom, err := ds.CreateImageGeom(graph.RootID, "Image", [3]int{3, 2, 2}, [3]float64{1, 2, 3}, [3]float64{0.5, 0.5, 2})
	require.NoError(t, err)
	cell, err := ds.CreateAttributeMatrix(geom, "Cell", graph.CellShape([3]int{3, 2, 2}))
	require.NoError(t, err)
	require.NoError(t, ds.SetCellData(geom, cell))
	phases, err := ds.CreateDataArray(cell, "Phases", filled(t, datastore.Int32, datastore.Shape{2, 2, 3}, nil))
	require.NoError(t, err)
	_, err = ds.ShallowCopy(phases, cell, "PhasesAlias")
	require.NoError(t, err)
	other, err := ds.CreateGroup(graph.RootID, "Other")
	require.NoError(t, err)
	require.NoError(t, ds.AddParent(phases, other))
	_, err = ds.CreateMontage(graph.RootID, "Montage", datastore.Shape{2, 1})
	require.NoError(t, err)

	got := readFile(t, writeFile(t, ds, WriteOptions{Compression: CompressionZSTD}))
	require.NoError(t, got.Validate())
	assertSameArrays(t, ds, got)

	g, err := graph.Lookup[*graph.ImageGeom](got, graph.MustPath("Image"))
	require.NoError(t, err)
	assert.Equal(t, [3]int{3, 2, 2}, g.Dims())
	assert.Equal(t, [3]float64{1, 2, 3}, g.Origin())
	assert.Equal(t, [3]float64{0.5, 0.5, 2}, g.Spacing())
	cellID, ok := got.Resolve(graph.MustPath("Image", "Cell"))
	require.True(t, ok)
	assert.Equal(t, cellID, g.CellData())

	id, ok := got.Resolve(graph.MustPath("Image", "Cell", "Phases"))
	require.True(t, ok)
	assert.Len(t, got.PathsOf(id), 2)

	a, err := graph.Lookup[*graph.DataArray](got, graph.MustPath("Image", "Cell", "Phases"))
	require.NoError(t, err)
	b, err := graph.Lookup[*graph.DataArray](got, graph.MustPath("Image", "Cell", "PhasesAlias"))
	require.NoError(t, err)
	assert.Same(t, a.Store(), b.Store())

	m, err := graph.Lookup[*graph.Montage](got, graph.MustPath("Montage"))
	require.NoError(t, err)
	assert.Equal(t, datastore.Shape{2, 1}, m.GridShape())
}

func TestStructureAndEntries(t *testing.T) {
	ds := graph.New()
	_, err := ds.CreateDataArray(graph.RootID, "A", filled(t, datastore.Float32, datastore.Shape{6}, nil, datastore.WithChunkShape(datastore.Shape{4, 1})))
	require.NoError(t, err)

	rd, err := OpenFile(writeFile(t, ds, WriteOptions{}))
	require.NoError(t, err)
	defer rd.Close()

	entries := rd.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, graph.DataPath{"A"}, entries[0].Path)
	assert.Equal(t, graph.KindDataArray, entries[0].Kind)
	assert.Equal(t, datastore.Float32, entries[0].DataType)
	assert.Equal(t, datastore.Shape{4, 1}, entries[0].ChunkShape)
	assert.Equal(t, uint64(24), entries[0].StoredBytes)

	st, err := rd.Structure()
	require.NoError(t, err)
	a, err := graph.Lookup[*graph.DataArray](st, graph.MustPath("A"))
	require.NoError(t, err)
	assert.False(t, a.Store().Allocated())
	assert.Equal(t, datastore.Shape{6}, a.TupleShape())
}

func TestReadChunk(t *testing.T) {
	ds := graph.New()
	src := filled(t, datastore.Uint16, datastore.Shape{5, 4}, nil, datastore.WithChunkShape(datastore.Shape{2, 3, 1}))
	_, err := ds.CreateDataArray(graph.RootID, "Grid", src)
	require.NoError(t, err)

	rd, err := OpenFile(writeFile(t, ds, WriteOptions{}))
	require.NoError(t, err)
	defer rd.Close()
	ctx := context.Background()
	path := graph.MustPath("Grid")

	counts, err := rd.ChunkCounts(path)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 1}, counts)

	// Corner chunk is clipped to one row and one column.
	c, err := rd.ReadChunk(ctx, path, []int{2, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, datastore.Shape{1, 1}, c.TupleShape())
	assert.Equal(t, src.Float64At(4*4+3), c.Float64At(0))

	c, err = rd.ReadChunk(ctx, path, []int{0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, datastore.Shape{2, 3}, c.TupleShape())
	for r := range 2 {
		for col := range 3 {
			assert.Equal(t, src.Float64At(r*4+col), c.Float64At(r*3+col))
		}
	}

	_, err = rd.ReadChunk(ctx, path, []int{3, 0, 0})
	assert.ErrorIs(t, err, datastore.ErrIndexOutOfRange)

	var seen [][]int
	total := 0
	require.NoError(t, rd.ForEachChunk(ctx, path, func(idx []int, chunk datastore.Store) error {
		seen = append(seen, idx)
		total += chunk.Size()
		return nil
	}))
	assert.Equal(t, [][]int{{0, 0, 0}, {0, 1, 0}, {1, 0, 0}, {1, 1, 0}, {2, 0, 0}, {2, 1, 0}}, seen)
	assert.Equal(t, src.Size(), total)
}

func TestReadChunkUnchunked(t *testing.T) {
	ds := graph.New()
	_, err := ds.CreateDataArray(graph.RootID, "A", filled(t, datastore.Int8, datastore.Shape{3}, nil))
	require.NoError(t, err)
	rd, err := OpenFile(writeFile(t, ds, WriteOptions{}))
	require.NoError(t, err)
	defer rd.Close()

	_, err = rd.ReadChunk(context.Background(), graph.MustPath("A"), []int{0, 0})
	assert.ErrorIs(t, err, ErrNotChunked)
	_, err = rd.ReadArray(context.Background(), graph.MustPath("B"))
	assert.ErrorIs(t, err, graph.ErrNotFound)
}

func TestAutoChunk(t *testing.T) {
	ds := graph.New()
	_, err := ds.CreateDataArray(graph.RootID, "Big", filled(t, datastore.Float64, datastore.Shape{64, 8}, nil))
	require.NoError(t, err)

	path := writeFile(t, ds, WriteOptions{AutoChunkBytes: 1024})
	rd, err := OpenFile(path)
	require.NoError(t, err)
	defer rd.Close()
	assert.Equal(t, datastore.Shape{16, 8, 1}, rd.Entries()[0].ChunkShape)
	require.NoError(t, rd.Verify(context.Background()))
	assertSameArrays(t, ds, readFile(t, path))
}

func TestChunkWriteFailure(t *testing.T) {
	ds := graph.New()
	_, err := ds.CreateDataArray(graph.RootID, "A", filled(t, datastore.Float64, datastore.Shape{16, 16}, nil, datastore.WithChunkShape(datastore.Shape{4, 4, 1})))
	require.NoError(t, err)

	fsys := nxfs.NewFaultyFS(nil)
	fsys.AddRule("broken.nxg", nxfs.Fault{FailAfterBytes: 64, Err: syscall.ENOSPC})
	path := filepath.Join(t.TempDir(), "broken.nxg")

	_, err = WriteFile(context.Background(), path, ds, WriteOptions{FileSystem: fsys, Workers: 1})
	require.Error(t, err)
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "write", ioErr.Op)
	assert.Equal(t, "A", ioErr.Path)
	assert.Equal(t, []int{0, 0, 0}, ioErr.Chunk)
	var errno syscall.Errno
	require.ErrorAs(t, err, &errno)
	assert.Equal(t, syscall.ENOSPC, errno)
	assert.Equal(t, result.KindIO, result.KindOf(err))

	// The partial file is left behind without a header.
	_, err = OpenFile(path)
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestCorruptContainers(t *testing.T) {
	build := func(t *testing.T, chunk datastore.Shape) []byte {
		ds := graph.New()
		var opts []datastore.Option
		if chunk != nil {
			opts = append(opts, datastore.WithChunkShape(chunk))
		}
		_, err := ds.CreateDataArray(graph.RootID, "A", filled(t, datastore.Int32, datastore.Shape{8}, nil, opts...))
		require.NoError(t, err)
		raw, err := os.ReadFile(writeFile(t, ds, WriteOptions{}))
		require.NoError(t, err)
		return raw
	}
	open := func(raw []byte) (*Reader, error) {
		return NewReader(bytes.NewReader(raw), int64(len(raw)))
	}

	t.Run("magic", func(t *testing.T) {
		raw := build(t, nil)
		raw[0] = 'X'
		_, err := open(raw)
		assert.ErrorIs(t, err, ErrInvalidMagic)
	})
	t.Run("version", func(t *testing.T) {
		raw := build(t, nil)
		raw[5] = 99
		_, err := open(raw)
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})
	t.Run("truncated", func(t *testing.T) {
		raw := build(t, nil)
		_, err := open(raw[:len(raw)-5])
		assert.ErrorIs(t, err, ErrIncomplete)
		_, err = open(raw[:10])
		assert.ErrorIs(t, err, ErrIncomplete)
	})
	t.Run("directory", func(t *testing.T) {
		raw := build(t, nil)
		raw[len(raw)-1] ^= 0xff
		_, err := open(raw)
		assert.ErrorIs(t, err, ErrChecksumMismatch)
	})
	t.Run("data", func(t *testing.T) {
		raw := build(t, nil)
		raw[headerSize] ^= 0xff
		rd, err := open(raw)
		require.NoError(t, err)
		_, err = rd.Load(context.Background())
		assert.ErrorIs(t, err, ErrChecksumMismatch)
		assert.Error(t, rd.Verify(context.Background()))
	})
	t.Run("chunk", func(t *testing.T) {
		raw := build(t, datastore.Shape{4, 1})
		raw[headerSize+4*4] ^= 0xff
		rd, err := open(raw)
		require.NoError(t, err)
		_, err = rd.ReadChunk(context.Background(), graph.MustPath("A"), []int{0, 0})
		require.NoError(t, err)
		_, err = rd.ReadChunk(context.Background(), graph.MustPath("A"), []int{1, 0})
		var ioErr *IOError
		require.ErrorAs(t, err, &ioErr)
		assert.Equal(t, []int{1, 0}, ioErr.Chunk)
		assert.True(t, errors.Is(err, ErrChecksumMismatch))
	})
}

func TestSaveAndLoadBlobStore(t *testing.T) {
	ctx := context.Background()
	ds := graph.New()
	_, err := ds.CreateDataArray(graph.RootID, "A", filled(t, datastore.Float32, datastore.Shape{10, 2}, datastore.Shape{2}))
	require.NoError(t, err)

	for name, store := range map[string]blobstore.BlobStore{
		"memory": blobstore.NewMemoryStore(),
		"local":  blobstore.NewLocalStore(t.TempDir()),
	} {
		t.Run(name, func(t *testing.T) {
			n, err := Save(ctx, store, "run-1.nxg", ds, WriteOptions{Compression: CompressionLZ4})
			require.NoError(t, err)
			assert.Positive(t, n)

			got, err := Load(ctx, store, "run-1.nxg")
			require.NoError(t, err)
			assertSameArrays(t, ds, got)

			_, err = Load(ctx, store, "missing.nxg")
			assert.ErrorIs(t, err, blobstore.ErrNotFound)
		})
	}
}

func TestUnallocatedArrayIsRejected(t *testing.T) {
	ds := graph.New()
	e, err := datastore.NewEmpty(datastore.Float32, datastore.Shape{3}, nil)
	require.NoError(t, err)
	_, err = ds.CreateDataArray(graph.RootID, "A", e)
	require.NoError(t, err)

	_, err = Write(context.Background(), &bufferAt{}, ds, WriteOptions{})
	assert.ErrorIs(t, err, datastore.ErrUnallocated)
}

func TestCompressionFallback(t *testing.T) {
	data := []byte{1, 2, 3}
	out, c, err := compress(data, CompressionZSTD)
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, c)
	assert.Equal(t, data, out)

	zeros := make([]byte, 4096)
	for _, want := range []Compression{CompressionLZ4, CompressionZSTD} {
		out, c, err := compress(zeros, want)
		require.NoError(t, err)
		assert.Equal(t, want, c)
		assert.Less(t, len(out), len(zeros))
		back, err := decompress(out, c, len(zeros))
		require.NoError(t, err)
		assert.Equal(t, zeros, back)
	}

	got, err := ParseCompression("ZSTD")
	require.NoError(t, err)
	assert.Equal(t, CompressionZSTD, got)
	_, err = ParseCompression("snappy")
	assert.Error(t, err)
}

func TestChunkGridRuns(t *testing.T) {
	g, err := newChunkGrid(datastore.Shape{3, 4}, datastore.Shape{2, 3})
	require.NoError(t, err)
	assert.Equal(t, 4, g.Len())
	assert.Equal(t, []int{1, 1}, g.index(3))

	var runs []run
	require.NoError(t, g.runs([]int{0, 1}, func(r run) error {
		runs = append(runs, r)
		return nil
	}))
	assert.Equal(t, []run{{start: 3, count: 1}, {start: 7, count: 1}}, runs)

	runs = nil
	require.NoError(t, g.runs([]int{1, 0}, func(r run) error {
		runs = append(runs, r)
		return nil
	}))
	assert.Equal(t, []run{{start: 8, count: 3}}, runs)

	// Chunks spanning whole rows collapse into a single run.
	g, err = newChunkGrid(datastore.Shape{3, 4}, datastore.Shape{2, 4})
	require.NoError(t, err)
	runs = nil
	require.NoError(t, g.runs([]int{0, 0}, func(r run) error {
		runs = append(runs, r)
		return nil
	}))
	assert.Equal(t, []run{{start: 0, count: 8}}, runs)
}

// bufferAt is an in-memory io.WriterAt.
type bufferAt struct {
	data []byte
}

func (b *bufferAt) WriteAt(p []byte, off int64) (int, error) {
	if end := int(off) + len(p); end > len(b.data) {
		b.data = append(b.data, make([]byte, end-len(b.data))...)
	}
	return copy(b.data[off:], p), nil
}
