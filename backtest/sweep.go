package backtest

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Sweep runs one backtest per opts entry, at most limit at a time (limit <= 0
// means unbounded). Every run gets its own Backtest, RiskManager and a fresh
// strategy from newStrategy, so nothing mutable is shared. Results keep the
// order of opts.
func Sweep(ctx context.Context, bars []Bar, newStrategy func() Strategy, opts []Opts, limit int) ([]*Result, error) {
	results := make([]*Result, len(opts))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, o := range opts {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := New(bars, o).Strategy(newStrategy()).Run()
			if err != nil {
				return fmt.Errorf("sweep run %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
