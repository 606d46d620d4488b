package neighbor

import (
	"context"
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/hupe1980/nxgraph/parallel"
	"github.com/hupe1980/nxgraph/segment"
)

// FaceResult lists, per feature, the features it touches.
type FaceResult struct {
	// Neighbors[f] holds the sorted IDs of features sharing a face with f.
	// Index 0 is unused.
	Neighbors [][]int32
	// SharedFaces[f][k] counts the faces shared by f and Neighbors[f][k].
	SharedFaces [][]int32
	// Surface holds the features touching the grid boundary.
	Surface *roaring.Bitmap

	// axisFaces[f][k] splits SharedFaces[f][k] by face normal X, Y, Z.
	axisFaces [][][3]int32
}

// SharedAreas converts shared face counts to areas for cells of the given
// spacing. A face normal to X has area Y*Z spacing, and so on.
func (r *FaceResult) SharedAreas(spacing r3.Vec) [][]float64 {
	area := [3]float64{spacing.Y * spacing.Z, spacing.X * spacing.Z, spacing.X * spacing.Y}
	out := make([][]float64, len(r.axisFaces))
	for f, faces := range r.axisFaces {
		out[f] = make([]float64, len(faces))
		for k, c := range faces {
			out[f][k] = float64(c[0])*area[0] + float64(c[1])*area[1] + float64(c[2])*area[2]
		}
	}
	return out
}

// NumNeighbors returns the neighbor count of every feature.
func (r *FaceResult) NumNeighbors() []int32 {
	out := make([]int32, len(r.Neighbors))
	for f, n := range r.Neighbors {
		out[f] = int32(len(n)) //nolint:gosec // bounded by feature count
	}
	return out
}

type faceLocal struct {
	pairs   map[uint64][3]int32
	surface *roaring.Bitmap
}

func pairKey(a, b int32) uint64 { return uint64(uint32(a))<<32 | uint64(uint32(b)) }

// FaceNeighbors scans featureIDs, laid out on grid, for cell faces whose
// two sides belong to different non-zero features.
func FaceNeighbors(ctx context.Context, featureIDs []int32, grid segment.Grid, numFeatures int, opts ...parallel.Option) (*FaceResult, error) {
	if len(featureIDs) != grid.Len() {
		return nil, fmt.Errorf("%w: %d ids for %d cells", segment.ErrGridMismatch, len(featureIDs), grid.Len())
	}
	dims := grid.Dims
	res := &FaceResult{
		Neighbors:   make([][]int32, numFeatures+1),
		SharedFaces: make([][]int32, numFeatures+1),
		Surface:     roaring.New(),
		axisFaces:   make([][][3]int32, numFeatures+1),
	}
	merged := make(map[uint64][3]int32)

	err := parallel.MapReduce(ctx, len(featureIDs),
		func(ctx context.Context, r parallel.Range) (faceLocal, error) {
			local := faceLocal{pairs: make(map[uint64][3]int32), surface: roaring.New()}
			for i := r.Begin; i < r.End; i++ {
				f := featureIDs[i]
				if f <= 0 {
					continue
				}
				if int(f) > numFeatures {
					return local, fmt.Errorf("%w: id %d exceeds %d features", segment.ErrGridMismatch, f, numFeatures)
				}
				x, y, z := grid.Coord(i)
				coord := [3]int{x, y, z}
				for axis, stride := range [3]int{1, dims[0], dims[0] * dims[1]} {
					for _, step := range [2]int{-1, 1} {
						c := coord[axis] + step
						if c < 0 || c >= dims[axis] {
							local.surface.Add(uint32(f))
							continue
						}
						g := featureIDs[i+step*stride]
						if g > 0 && g != f {
							c := local.pairs[pairKey(f, g)]
							c[axis]++
							local.pairs[pairKey(f, g)] = c
						}
					}
				}
			}
			return local, ctx.Err()
		},
		func(local faceLocal) error {
			for k, n := range local.pairs {
				m := merged[k]
				for axis := range m {
					m[axis] += n[axis]
				}
				merged[k] = m
			}
			res.Surface.Or(local.surface)
			return nil
		},
		opts...,
	)
	if err != nil {
		return nil, err
	}

	keys := make([]uint64, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		f, g := int32(k>>32), int32(uint32(k)) //nolint:gosec // packed from int32 ids
		res.Neighbors[f] = append(res.Neighbors[f], g)
		c := merged[k]
		res.SharedFaces[f] = append(res.SharedFaces[f], c[0]+c[1]+c[2])
		res.axisFaces[f] = append(res.axisFaces[f], c)
	}
	return res, nil
}
