package cluster

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

// DefaultNInit is the number of random restarts per fit.
const DefaultNInit = 10

// BestOf runs nInit independent fits with seeds base, base+1, ... and
// keeps the lowest-inertia result. K-means is sensitive to initialization;
// restarting and keeping the minimum is the standard mitigation and is
// deterministic for a fixed base seed. Fits run in parallel; correctness
// does not depend on completion order, only on the min-inertia reduction.
func BestOf(ctx context.Context, c Clusterer, data [][]float64, k, nInit int, baseSeed int64) (*Result, int64, error) {
	if nInit < 1 {
		return nil, 0, eris.Errorf("cluster: n_init must be >= 1, got %d", nInit)
	}

	var (
		mu       sync.Mutex
		best     *Result
		bestSeed int64
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := 0; i < nInit; i++ {
		seed := baseSeed + int64(i)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := c.Fit(data, k, seed)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			// Tie-break on seed so the winner is deterministic even when
			// two seeds converge to identical inertia.
			if best == nil || res.Inertia < best.Inertia ||
				(res.Inertia == best.Inertia && seed < bestSeed) {
				best = res
				bestSeed = seed
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return best, bestSeed, nil
}
