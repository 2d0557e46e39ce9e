package episode

import (
	"context"
	"fmt"

	"github.com/zeusync/roadsim/internal/core/observability/log"
	"github.com/zeusync/roadsim/pkg/concurrent"
)

// RunBatch runs one independent episode per seed, at most workers at a time,
// and returns the results in seed order. Each episode has its own engine and
// traffic; nothing is shared between them.
func RunBatch(ctx context.Context, cfg Config, seeds []uint64, maxTicks uint64, workers int, logger log.Log) ([]Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNop()
	}
	logger.Info("batch started", log.Int("episodes", len(seeds)), log.Int("workers", workers))

	results, err := concurrent.Map(ctx, seeds, workers, func(ctx context.Context, seed uint64) (Result, error) {
		c := cfg
		c.Seed = seed
		r, err := NewRunner(c, nil, logger)
		if err != nil {
			return Result{}, fmt.Errorf("seed %d: %w", seed, err)
		}
		res, err := r.Run(ctx, maxTicks)
		if err != nil {
			return Result{}, fmt.Errorf("seed %d: %w", seed, err)
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}

	collisions := 0
	for _, res := range results {
		if res.Collided {
			collisions++
		}
	}
	logger.Info("batch finished", log.Int("episodes", len(results)), log.Int("collisions", collisions))
	return results, nil
}
