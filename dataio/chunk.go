package dataio

import (
	"fmt"

	"github.com/hupe1980/nxgraph/datastore"
)

// chunkGrid partitions a row-major array of the given full shape into
// chunks. Edge chunks are clipped to the array extent.
type chunkGrid struct {
	shape  datastore.Shape
	chunk  datastore.Shape
	counts []int
	// strides of the full array in elements.
	strides []int
}

func newChunkGrid(shape, chunk datastore.Shape) (*chunkGrid, error) {
	if len(shape) != len(chunk) {
		return nil, fmt.Errorf("%w: chunk rank %d, array rank %d", datastore.ErrShapeMismatch, len(chunk), len(shape))
	}
	g := &chunkGrid{
		shape:   shape.Clone(),
		chunk:   chunk.Clone(),
		counts:  make([]int, len(shape)),
		strides: make([]int, len(shape)),
	}
	stride := 1
	for axis := len(shape) - 1; axis >= 0; axis-- {
		if chunk[axis] <= 0 {
			return nil, fmt.Errorf("%w: chunk axis %d has extent %d", datastore.ErrShapeMismatch, axis, chunk[axis])
		}
		g.counts[axis] = (shape[axis] + chunk[axis] - 1) / chunk[axis]
		g.strides[axis] = stride
		stride *= shape[axis]
	}
	return g, nil
}

// Len returns the number of chunks.
func (g *chunkGrid) Len() int {
	n := 1
	for _, c := range g.counts {
		n *= c
	}
	return n
}

// Counts returns the number of chunks along each axis.
func (g *chunkGrid) Counts() []int { return append([]int(nil), g.counts...) }

// index converts a linear chunk number to its per-axis index, most
// significant axis first.
func (g *chunkGrid) index(linear int) []int {
	idx := make([]int, len(g.counts))
	for axis := len(g.counts) - 1; axis >= 0; axis-- {
		idx[axis] = linear % g.counts[axis]
		linear /= g.counts[axis]
	}
	return idx
}

// linear is the inverse of index.
func (g *chunkGrid) linear(idx []int) (int, error) {
	if len(idx) != len(g.counts) {
		return 0, fmt.Errorf("%w: chunk index rank %d, grid rank %d", datastore.ErrIndexOutOfRange, len(idx), len(g.counts))
	}
	n := 0
	for axis, i := range idx {
		if i < 0 || i >= g.counts[axis] {
			return 0, fmt.Errorf("%w: chunk index %v outside grid %v", datastore.ErrIndexOutOfRange, idx, g.counts)
		}
		n = n*g.counts[axis] + i
	}
	return n, nil
}

// extent returns the clipped extents of the chunk at idx.
func (g *chunkGrid) extent(idx []int) datastore.Shape {
	out := make(datastore.Shape, len(idx))
	for axis, i := range idx {
		begin := i * g.chunk[axis]
		out[axis] = min(g.chunk[axis], g.shape[axis]-begin)
	}
	return out
}

// run is a contiguous span of elements of the full array.
type run struct {
	start int // flat element index in the full array
	count int
}

// runs calls fn for each contiguous run of the chunk at idx in row-major
// order. Trailing axes the chunk spans completely are merged into one run.
func (g *chunkGrid) runs(idx []int, fn func(r run) error) error {
	ext := g.extent(idx)
	rank := len(ext)
	if rank == 0 {
		return fn(run{start: 0, count: 1})
	}
	for _, e := range ext {
		if e == 0 {
			return nil
		}
	}
	k, inner := rank-1, 1
	for k > 0 && ext[k] == g.shape[k] {
		inner *= g.shape[k]
		k--
	}
	count := ext[k] * inner
	first := idx[k] * g.chunk[k] * g.strides[k]

	pos := make([]int, k)
	for {
		start := first
		for axis := range k {
			start += (idx[axis]*g.chunk[axis] + pos[axis]) * g.strides[axis]
		}
		if err := fn(run{start: start, count: count}); err != nil {
			return err
		}
		axis := k - 1
		for ; axis >= 0; axis-- {
			pos[axis]++
			if pos[axis] < ext[axis] {
				break
			}
			pos[axis] = 0
		}
		if axis < 0 {
			return nil
		}
	}
}

// autoChunk derives a chunk shape that splits the slowest axis so one
// chunk holds roughly target bytes.
func autoChunk(shape datastore.Shape, elemSize int, target int64) datastore.Shape {
	if len(shape) == 0 || target <= 0 {
		return nil
	}
	row := int64(elemSize)
	for _, d := range shape[1:] {
		row *= int64(d)
	}
	if row <= 0 || row*int64(shape[0]) <= target {
		return nil
	}
	chunk := shape.Clone()
	chunk[0] = int(max(1, target/row))
	return chunk
}
