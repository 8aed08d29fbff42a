package agent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// fanOut runs fn for every item with at most limit calls in flight. Calls
// beyond the limit wait for a free slot. Results are indexed by item
// position, never by completion order. The first error cancels the context
// handed to the running calls, stops queued items from starting and is
// returned once all started calls have finished.
func fanOut[In, Out any](ctx context.Context, limit int, items []In, fn func(ctx context.Context, item In) (Out, error)) ([]Out, error) {
	results := make([]Out, len(items))

	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, item := range items {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			out, err := fn(gctx, item)
			if err != nil {
				return err
			}

			results[i] = out

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
