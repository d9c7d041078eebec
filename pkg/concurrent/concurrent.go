package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/docworld/pkg/sequence"
)

// Concurrent runs action for each element of the iterator in its own
// goroutine and waits for all of them. The first error cancels the context
// handed to the remaining actions and is returned.
func Concurrent[T any](ctx context.Context, i *sequence.Iterator[T], action func(context.Context, T) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for value := range i.Seq() {
		g.Go(func() error {
			return action(ctx, value)
		})
	}
	return g.Wait()
}

// ParallelMap applies mapFn to each element of the iterator, preserving
// order. At most workers calls run at once; workers <= 0 means no limit.
func ParallelMap[T any, R any](ctx context.Context, i *sequence.Iterator[T], workers int, mapFn func(context.Context, T) (R, error)) ([]R, error) {
	in := i.Collect()
	out := make([]R, len(in))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for idx, val := range in {
		g.Go(func() error {
			r, err := mapFn(ctx, val)
			if err != nil {
				return err
			}
			out[idx] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
