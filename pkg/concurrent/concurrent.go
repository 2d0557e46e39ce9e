package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ForEach runs action for every element with at most workers goroutines in
// flight. The context passed to action is cancelled on the first error, which
// is returned after all started actions finish. workers <= 0 means no limit.
func ForEach[T any](ctx context.Context, in []T, workers int, action func(context.Context, int, T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for idx, value := range in {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return action(gctx, idx, value)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Map applies mapFn to each element in parallel, preserving order.
func Map[T any, R any](ctx context.Context, in []T, workers int, mapFn func(context.Context, T) (R, error)) ([]R, error) {
	out := make([]R, len(in))
	err := ForEach(ctx, in, workers, func(ctx context.Context, i int, v T) error {
		r, err := mapFn(ctx, v)
		if err != nil {
			return err
		}
		out[i] = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
