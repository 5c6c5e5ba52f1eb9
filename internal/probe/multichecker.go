package probe

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// CheckAll probes every URL with at most limit probes in flight and returns
// the results in input order. A limit <= 0 means no bound.
func CheckAll(ctx context.Context, p Prober, urls []string, limit int) []Result {
	results := make([]Result, len(urls))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			results[i] = p.Probe(ctx, u)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
