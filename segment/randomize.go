package segment

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/hupe1980/nxgraph/parallel"
)

// Permutation returns a table p with p[0] = 0 and p[1..n] a permutation of
// 1..n produced by a Fisher-Yates shuffle seeded with seed.
func Permutation(n int, seed uint64) []int32 {
	p := make([]int32, n+1)
	for i := range p {
		p[i] = int32(i) //nolint:gosec // n fits int32 feature ids
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for i := n; i > 1; i-- {
		j := 1 + rng.IntN(i)
		p[i], p[j] = p[j], p[i]
	}
	return p
}

// Randomize relabels featureIDs through Permutation(numFeatures, seed).
// IDs outside 0..numFeatures are rejected.
func Randomize(ctx context.Context, featureIDs []int32, numFeatures int, seed uint64, opts ...parallel.Option) error {
	perm := Permutation(numFeatures, seed)
	return parallel.For(ctx, len(featureIDs), func(_ context.Context, r parallel.Range) error {
		for i := r.Begin; i < r.End; i++ {
			id := featureIDs[i]
			if id < 0 || int(id) > numFeatures {
				return fmt.Errorf("%w: id %d at %d exceeds %d features", ErrGridMismatch, id, i, numFeatures)
			}
			featureIDs[i] = perm[id]
		}
		return nil
	}, opts...)
}
