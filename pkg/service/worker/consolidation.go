package worker

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sangam-civic/sangam/pkg/usecase"
	"github.com/sangam-civic/sangam/pkg/utils/logging"
)

// Consolidator runs one consolidation batch
type Consolidator interface {
	Run(ctx context.Context, opt usecase.ConsolidateOption) (*usecase.ConsolidateResult, error)
}

// ConsolidationWorker runs consolidation batches at a fixed interval
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - Overlapping runs are not possible: the next tick waits for the current run
type ConsolidationWorker struct {
	consolidator Consolidator
	interval     time.Duration
	prune        bool
	stopCh       chan struct{}
	doneCh       chan struct{}
}

// NewConsolidationWorker creates a new worker for periodic consolidation
func NewConsolidationWorker(consolidator Consolidator, interval time.Duration, prune bool) *ConsolidationWorker {
	return &ConsolidationWorker{
		consolidator: consolidator,
		interval:     interval,
		prune:        prune,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start begins the background loop. The first run happens immediately in
// the background and does not block server startup.
func (w *ConsolidationWorker) Start(ctx context.Context) error {
	if w.interval <= 0 {
		return goerr.New("consolidation interval must be positive", goerr.V("interval", w.interval))
	}

	logging.Default().Info("Consolidation worker starting",
		"interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *ConsolidationWorker) Stop() {
	logging.Default().Info("Consolidation worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Consolidation worker stopped")
}

func (w *ConsolidationWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	if err := w.consolidate(ctx); err != nil {
		logging.Default().Error("Initial consolidation failed (will retry next interval)",
			"error", err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.consolidate(ctx); err != nil {
				logging.Default().Error("Consolidation failed (will retry next interval)",
					"error", err.Error())
			}

		case <-w.stopCh:
			logging.Default().Info("Consolidation worker received stop signal")
			return

		case <-ctx.Done():
			logging.Default().Info("Consolidation worker context cancelled")
			return
		}
	}
}

func (w *ConsolidationWorker) consolidate(ctx context.Context) error {
	startTime := time.Now()

	result, err := w.consolidator.Run(ctx, usecase.ConsolidateOption{Prune: w.prune})
	if err != nil {
		return goerr.Wrap(err, "consolidation run failed")
	}

	logging.Default().Info("Consolidation completed",
		"threads", len(result.Threads),
		"created", result.Created,
		"skipped", len(result.Skipped),
		"duration", time.Since(startTime).String())

	return nil
}
