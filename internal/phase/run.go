package phase

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"curator/internal/catalog"
	"curator/internal/logging"
	"curator/internal/services"
)

// Runner executes phase batches against the catalog. Items within a batch run
// concurrently up to MaxParallel; item faults are collected while storage
// faults and context cancellation abort the batch.
type Runner struct {
	store       *catalog.Store
	logger      *slog.Logger
	maxParallel int
}

// NewRunner returns a batch runner. maxParallel values below one run the
// batch serially.
func NewRunner(store *catalog.Store, logger *slog.Logger, maxParallel int) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Runner{
		store:       store,
		logger:      logger.With(logging.String(logging.FieldComponent, "phase-runner")),
		maxParallel: maxParallel,
	}
}

// RunPhase runs the handler for every item currently eligible for its phase.
// The returned error is non-nil only for batch-level aborts; per-item faults
// are reported in the result.
func (r *Runner) RunPhase(ctx context.Context, handler Handler) (*Result, error) {
	phase := handler.Phase()
	ids := r.store.Eligible(phase)
	result := &Result{Phase: phase, Attempted: len(ids)}
	if len(ids) == 0 {
		return result, nil
	}
	log := r.logger.With(logging.String(logging.FieldPhase, string(phase)))
	log.Info("starting phase batch", logging.Int("items", len(ids)))

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.maxParallel)
	for _, id := range ids {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			itemCtx := services.WithItemID(services.WithPhase(groupCtx, string(phase)), id)
			err := handler.Execute(itemCtx, id)
			if err == nil {
				mu.Lock()
				result.Succeeded++
				mu.Unlock()
				return nil
			}
			if services.IsStorageFault(err) || groupCtx.Err() != nil {
				return err
			}
			log.Error("item failed", logging.String(logging.FieldItemID, id), logging.Error(err))
			mu.Lock()
			result.Failures = append(result.Failures, Failure{ItemID: id, Err: err})
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return result, err
	}
	sort.Slice(result.Failures, func(a, b int) bool {
		return result.Failures[a].ItemID < result.Failures[b].ItemID
	})
	log.Info("phase batch finished",
		logging.Int("succeeded", result.Succeeded),
		logging.Int("failed", len(result.Failures)))
	return result, nil
}
