package services

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"alfredoptarigan/cv-ranker/internal/logger"
)

// Worker runs independent per-candidate jobs with bounded concurrency.
type Worker interface {
	// Run calls fn for every index in [0, n) and waits for all of them.
	// Jobs report their own outcome; Run only returns the context error
	// when the caller gave up.
	Run(ctx context.Context, n int, fn func(ctx context.Context, i int)) error
}

type worker struct {
	concurrency int
	logger      *zap.Logger
}

func NewWorker(concurrency int, log *zap.Logger) Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &worker{
		concurrency: concurrency,
		logger:      logger.OrNop(log),
	}
}

func (w *worker) Run(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	if n <= 0 {
		return nil
	}

	workers := min(w.concurrency, n)
	w.logger.Debug("starting jobs", zap.Int("jobs", n), zap.Int("workers", workers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fn(gctx, i)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
