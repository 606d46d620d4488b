package neighbor

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/hupe1980/nxgraph/parallel"
	"github.com/hupe1980/nxgraph/segment"
)

// Geometry places grid cells in space.
type Geometry struct {
	Grid    segment.Grid
	Origin  r3.Vec
	Spacing r3.Vec
}

// CellCenter returns the center of cell i.
func (g Geometry) CellCenter(i int) r3.Vec {
	x, y, z := g.Grid.Coord(i)
	return r3.Vec{
		X: g.Origin.X + (float64(x)+0.5)*g.Spacing.X,
		Y: g.Origin.Y + (float64(y)+0.5)*g.Spacing.Y,
		Z: g.Origin.Z + (float64(z)+0.5)*g.Spacing.Z,
	}
}

// Centroids holds per-feature statistics. Index 0 is background.
type Centroids struct {
	Centers []r3.Vec
	Cells   []int64
	// Diameters are equivalent sphere diameters.
	Diameters []float64
}

type centroidLocal struct {
	sums  []r3.Vec
	cells []int64
}

// FindCentroids averages the cell centers of every feature and derives
// the diameter of a sphere of equal volume.
func FindCentroids(ctx context.Context, featureIDs []int32, geom Geometry, numFeatures int, opts ...parallel.Option) (*Centroids, error) {
	if len(featureIDs) != geom.Grid.Len() {
		return nil, fmt.Errorf("%w: %d ids for %d cells", segment.ErrGridMismatch, len(featureIDs), geom.Grid.Len())
	}
	out := &Centroids{
		Centers:   make([]r3.Vec, numFeatures+1),
		Cells:     make([]int64, numFeatures+1),
		Diameters: make([]float64, numFeatures+1),
	}
	err := parallel.MapReduce(ctx, len(featureIDs),
		func(ctx context.Context, r parallel.Range) (centroidLocal, error) {
			local := centroidLocal{sums: make([]r3.Vec, numFeatures+1), cells: make([]int64, numFeatures+1)}
			for i := r.Begin; i < r.End; i++ {
				f := int(featureIDs[i])
				if f < 0 || f > numFeatures {
					return local, fmt.Errorf("%w: id %d exceeds %d features", segment.ErrGridMismatch, f, numFeatures)
				}
				local.sums[f] = r3.Add(local.sums[f], geom.CellCenter(i))
				local.cells[f]++
			}
			return local, ctx.Err()
		},
		func(local centroidLocal) error {
			for f := range local.sums {
				out.Centers[f] = r3.Add(out.Centers[f], local.sums[f])
				out.Cells[f] += local.cells[f]
			}
			return nil
		},
		opts...,
	)
	if err != nil {
		return nil, err
	}
	cellVolume := geom.Spacing.X * geom.Spacing.Y * geom.Spacing.Z
	for f := range out.Centers {
		if out.Cells[f] == 0 {
			continue
		}
		out.Centers[f] = r3.Scale(1/float64(out.Cells[f]), out.Centers[f])
		volume := float64(out.Cells[f]) * cellVolume
		out.Diameters[f] = math.Cbrt(6 * volume / math.Pi)
	}
	return out, nil
}
