package neighbor

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/hupe1980/nxgraph/parallel"
)

// Neighborhoods tests every pair of features i < j (IDs 1..N, index 0 of
// centers and radii is ignored). A pair is related when the distance
// between centers is below multiplier times the larger of the two radii.
// Related pairs are recorded in both features' bitmaps.
//
// Each worker owns a private bitmap per feature it touches; bitmaps are
// OR-merged after the loop, so the result is independent of scheduling.
func Neighborhoods(ctx context.Context, centers []r3.Vec, radii []float64, multiplier float64, opts ...parallel.Option) ([]*roaring.Bitmap, error) {
	if len(centers) != len(radii) {
		return nil, fmt.Errorf("neighbor: %d centers for %d radii", len(centers), len(radii))
	}
	n := len(centers) - 1
	out := make([]*roaring.Bitmap, len(centers))
	for i := range out {
		out[i] = roaring.New()
	}
	if n < 2 {
		return out, nil
	}

	// ranges over i in [1, n); worker-local bitmaps are created on demand
	err := parallel.MapReduce(ctx, n-1,
		func(ctx context.Context, r parallel.Range) (map[int]*roaring.Bitmap, error) {
			local := make(map[int]*roaring.Bitmap)
			add := func(f, other int) {
				bm, ok := local[f]
				if !ok {
					bm = roaring.New()
					local[f] = bm
				}
				bm.Add(uint32(other)) //nolint:gosec // feature ids are non-negative int32
			}
			for i := r.Begin + 1; i < r.End+1; i++ {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				for j := i + 1; j <= n; j++ {
					crit := multiplier * max(radii[i], radii[j])
					if r3.Norm(r3.Sub(centers[i], centers[j])) < crit {
						add(i, j)
						add(j, i)
					}
				}
			}
			return local, nil
		},
		func(local map[int]*roaring.Bitmap) error {
			for f, bm := range local {
				out[f].Or(bm)
			}
			return nil
		},
		opts...,
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Lists converts bitmaps to sorted ID slices.
func Lists(bitmaps []*roaring.Bitmap) [][]int32 {
	out := make([][]int32, len(bitmaps))
	for f, bm := range bitmaps {
		ids := bm.ToArray()
		list := make([]int32, len(ids))
		for k, id := range ids {
			list[k] = int32(id) //nolint:gosec // ids were int32
		}
		out[f] = list
	}
	return out
}
