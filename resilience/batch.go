package resilience

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunChunked calls fn for every index in [0, n) in batches of size. All
// calls in a batch run concurrently; the next batch starts only after every
// call in the current batch has returned. The first error stops further
// batches and is returned once its batch has drained.
func RunChunked(ctx context.Context, n, size int, fn func(ctx context.Context, i int) error) error {
	if size <= 0 {
		size = 1
	}

	for start := 0; start < n; start += size {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(start+size, n)
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				return fn(gctx, i)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}
