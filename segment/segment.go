package segment

import (
	"fmt"
	"time"

	"github.com/hupe1980/nxgraph/internal/progress"
	"github.com/hupe1980/nxgraph/result"
)

var (
	// ErrNoFeatures is returned when no element could seed a feature.
	ErrNoFeatures = result.Sentinel(result.KindAlgorithm, "segment: no features detected, threshold likely too strict")
	// ErrGridMismatch is returned when the ID array does not match the grid.
	ErrGridMismatch = result.Sentinel(result.KindValidation, "segment: feature ids do not match grid")
)

// Grid is a structured grid with extents X, Y, Z. Linear indexes are
// z*X*Y + y*X + x.
type Grid struct {
	Dims [3]int
}

// Len returns the number of elements.
func (g Grid) Len() int { return g.Dims[0] * g.Dims[1] * g.Dims[2] }

// Coord converts a linear index to x, y, z.
func (g Grid) Coord(i int) (x, y, z int) {
	plane := g.Dims[0] * g.Dims[1]
	z = i / plane
	rem := i - z*plane
	y = rem / g.Dims[0]
	x = rem - y*g.Dims[0]
	return x, y, z
}

// Index converts x, y, z to a linear index.
func (g Grid) Index(x, y, z int) int {
	return z*g.Dims[0]*g.Dims[1] + y*g.Dims[0] + x
}

func (g Grid) validate(n int) error {
	for i, d := range g.Dims {
		if d <= 0 {
			return fmt.Errorf("%w: dimension %d is %d", ErrGridMismatch, i, d)
		}
	}
	if n != g.Len() {
		return fmt.Errorf("%w: %d ids for %d elements", ErrGridMismatch, n, g.Len())
	}
	return nil
}

// Segmenter decides seeding and grouping.
type Segmenter interface {
	// Eligible reports whether an unassigned element may seed a feature.
	Eligible(index int) bool
	// Group reports whether the unassigned neighbor joins the feature
	// that current belongs to.
	Group(current, neighbor int, featureID int32) bool
}

// Options tunes Segment.
type Options struct {
	// Periodic wraps neighbors across opposite grid faces.
	Periodic bool
	// ShouldCancel is polled once per seed. When it returns true Segment
	// stops and returns the features found so far without error.
	ShouldCancel func() bool
	// Progress receives throttled status messages.
	Progress func(string)
	// ProgressInterval defaults to one second.
	ProgressInterval time.Duration
}

// neighbor offsets in the order -X, -Y, -Z, +X, +Y, +Z.
var faces = [6]struct {
	axis int
	step int
}{{0, -1}, {1, -1}, {2, -1}, {0, 1}, {1, 1}, {2, 1}}

// Segment assigns feature IDs to featureIDs, which must be all zero or
// hold IDs from an earlier pass that are to be kept. It returns the number
// of features found. If none was found it returns ErrNoFeatures.
func Segment(featureIDs []int32, grid Grid, s Segmenter, opts Options) (int, error) {
	if err := grid.validate(len(featureIDs)); err != nil {
		return 0, err
	}
	rep := progress.New(opts.Progress, opts.ProgressInterval)
	dims := grid.Dims
	strides := [3]int{1, dims[0], dims[0] * dims[1]}

	var (
		count    int
		nextSeed = 1
		stack    = make([]int, 0, 1024)
	)
	for {
		if opts.ShouldCancel != nil && opts.ShouldCancel() {
			return count, nil
		}
		seed := -1
		for i := nextSeed; i < len(featureIDs); i++ {
			if featureIDs[i] == 0 && s.Eligible(i) {
				seed = i
				break
			}
		}
		if seed < 0 {
			break
		}

		fid := int32(count + 1) //nolint:gosec // bounded by grid size
		featureIDs[seed] = fid
		stack = append(stack[:0], seed)
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y, z := grid.Coord(cur)
			coord := [3]int{x, y, z}
			for _, f := range faces {
				c := coord[f.axis] + f.step
				nb := cur + f.step*strides[f.axis]
				if c < 0 || c >= dims[f.axis] {
					if !opts.Periodic {
						continue
					}
					// wrap to the opposite face
					nb -= f.step * dims[f.axis] * strides[f.axis]
				}
				if featureIDs[nb] != 0 || !s.Group(cur, nb, fid) {
					continue
				}
				featureIDs[nb] = fid
				stack = append(stack, nb)
				if nb == nextSeed {
					nextSeed = nb + 1
				}
			}
		}
		count++
		nextSeed = max(nextSeed, seed+1)
		rep.Report("Total features found: %d", count)
	}

	if count == 0 {
		return 0, ErrNoFeatures
	}
	return count, nil
}
