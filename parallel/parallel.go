// Package parallel runs work over contiguous index ranges on a bounded
// number of goroutines.
//
// [Split] partitions [0, n) into non-overlapping ranges that cover every
// index exactly once, so per-range functions that only write indexes of
// their own range need no locking. [MapReduce] gives each range a private
// accumulator and merges them on the calling goroutine in range order.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/nxgraph/internal/resource"
)

// DefaultGrain is the minimum number of indexes per range.
const DefaultGrain = 1024

// Range is the half-open index interval [Begin, End).
type Range struct {
	Begin int
	End   int
}

// Len returns the number of indexes in r.
func (r Range) Len() int { return r.End - r.Begin }

// Split divides [0, n) into at most parts contiguous ranges whose sizes
// differ by at most one. It returns nil for n <= 0.
func Split(n, parts int) []Range {
	if n <= 0 {
		return nil
	}
	if parts < 1 {
		parts = 1
	}
	if parts > n {
		parts = n
	}
	out := make([]Range, parts)
	size, rem := n/parts, n%parts
	begin := 0
	for i := range out {
		end := begin + size
		if i < rem {
			end++
		}
		out[i] = Range{Begin: begin, End: end}
		begin = end
	}
	return out
}

type options struct {
	workers    int
	grain      int
	controller *resource.Controller
}

// Option configures a dispatch.
type Option func(*options)

// WithWorkers caps the number of concurrent ranges. Values below one mean
// the default: the controller's worker count, else GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithGrain sets the minimum number of indexes per range.
func WithGrain(n int) Option {
	return func(o *options) { o.grain = n }
}

// WithController makes every range hold one of rc's worker slots.
func WithController(rc *resource.Controller) Option {
	return func(o *options) { o.controller = rc }
}

func plan(n int, opts []Option) ([]Range, options) {
	o := options{grain: DefaultGrain}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = runtime.GOMAXPROCS(0)
		if o.controller != nil {
			o.workers = o.controller.MaxWorkers()
		}
	}
	if o.grain < 1 {
		o.grain = 1
	}
	parts := min(o.workers, max(1, n/o.grain))
	return Split(n, parts), o
}

// For calls fn once per range of [0, n). The first error cancels the
// context passed to the remaining ranges and is returned.
func For(ctx context.Context, n int, fn func(ctx context.Context, r Range) error, opts ...Option) error {
	ranges, o := plan(n, opts)
	return run(ctx, ranges, o, func(ctx context.Context, _ int, r Range) error {
		return fn(ctx, r)
	})
}

// ForEach calls fn for every index of [0, n), in parallel across ranges.
func ForEach(ctx context.Context, n int, fn func(i int), opts ...Option) error {
	return For(ctx, n, func(ctx context.Context, r Range) error {
		for i := r.Begin; i < r.End; i++ {
			fn(i)
		}
		return ctx.Err()
	}, opts...)
}

// MapReduce computes a partial result per range with mapFn and passes the
// partials to reduce on the calling goroutine in range order.
func MapReduce[T any](ctx context.Context, n int, mapFn func(ctx context.Context, r Range) (T, error), reduce func(part T) error, opts ...Option) error {
	ranges, o := plan(n, opts)
	parts := make([]T, len(ranges))
	err := run(ctx, ranges, o, func(ctx context.Context, i int, r Range) error {
		p, err := mapFn(ctx, r)
		if err != nil {
			return err
		}
		parts[i] = p
		return nil
	})
	if err != nil {
		return err
	}
	for _, p := range parts {
		if err := reduce(p); err != nil {
			return err
		}
	}
	return nil
}

func run(ctx context.Context, ranges []Range, o options, fn func(ctx context.Context, i int, r Range) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(ranges) == 1 {
		return fn(ctx, 0, ranges[0])
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, r := range ranges {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if o.controller != nil {
				if err := o.controller.AcquireWorker(gctx); err != nil {
					return err
				}
				defer o.controller.ReleaseWorker()
			}
			return fn(gctx, i, r)
		})
	}
	return g.Wait()
}
