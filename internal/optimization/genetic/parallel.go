package genetic

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/copyleftdev/evolver/internal/optimization"
	"github.com/copyleftdev/evolver/internal/optimization/rng"
)

// parallelFor calls fn for every index in [0, n). The range is split into
// contiguous chunks, chunk w running on its own goroutine with streams[w],
// so a given index always sees the same stream and draw order. The first
// error cancels the remaining work and is returned.
func parallelFor(ctx context.Context, streams []*rng.Random, n int, fn func(r *rng.Random, i int) error) error {
	if n <= 0 {
		return ctx.Err()
	}
	workers := len(streams)
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		if lo >= hi {
			break
		}
		r := streams[w]

		g.Go(func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = &optimization.Error{
						Kind:      optimization.KindStrategy,
						Message:   "strategy panicked",
						Component: "genetic",
						Err:       fmt.Errorf("%v", rec),
					}
				}
			}()

			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := fn(r, i); err != nil {
					return err
				}
			}
			return nil
		})
	}

	return g.Wait()
}
