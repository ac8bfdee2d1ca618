package ranking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonesrussell/data-rescue/internal/logger"
)

// Store is the catalog access the recomputer needs: derived-state upkeep, a
// ranking snapshot, and a transactional batch insert for the emitted rows.
type Store interface {
	RefreshResourceMetadata(ctx context.Context) error
	DatasetSnapshots(ctx context.Context) ([]DatasetSnapshot, error)
	InsertRankBatch(ctx context.Context, records []RankRecord) error
}

// recomputeTimeout bounds one recomputation pass against the catalog.
const recomputeTimeout = 60 * time.Second

// Recomputer periodically recomputes dataset ranks and persists the changed
// rows. The first pass runs immediately on Start.
type Recomputer struct {
	engine   *Engine
	store    Store
	log      logger.Logger
	interval time.Duration

	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewRecomputer creates a recomputer running every interval.
func NewRecomputer(engine *Engine, store Store, log logger.Logger, interval time.Duration) *Recomputer {
	return &Recomputer{
		engine:   engine,
		store:    store,
		log:      log,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start launches the background recompute loop.
func (r *Recomputer) Start() error {
	if r.running {
		return errors.New("recomputer is already running")
	}
	r.running = true

	r.log.Info("Rank recomputer starting",
		logger.Duration("interval", r.interval),
	)

	r.wg.Add(1)
	go r.run()

	return nil
}

// Stop signals the loop to exit and waits for the in-flight pass to finish.
func (r *Recomputer) Stop() {
	if !r.running {
		return
	}
	close(r.stopChan)
	r.wg.Wait()
	r.running = false
	r.log.Info("Rank recomputer stopped")
}

func (r *Recomputer) run() {
	defer r.wg.Done()

	r.recomputePass()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.recomputePass()
		case <-r.stopChan:
			return
		}
	}
}

func (r *Recomputer) recomputePass() {
	ctx, cancel := context.WithTimeout(context.Background(), recomputeTimeout)
	defer cancel()

	records, err := r.RunOnce(ctx)
	if err != nil {
		r.log.Error("Rank recomputation failed", logger.Error(err))
		return
	}

	r.log.Info("Rank recomputation finished",
		logger.Int("changed_ranks", len(records)),
	)
}

// RunOnce performs a single snapshot-compute-persist pass and returns the
// newly emitted rank records. A failed metadata refresh degrades to ranking
// over the previous derived state rather than aborting the pass.
func (r *Recomputer) RunOnce(ctx context.Context) ([]RankRecord, error) {
	if err := r.store.RefreshResourceMetadata(ctx); err != nil {
		r.log.Warn("Resource metadata refresh failed, ranking over stale state",
			logger.Error(err),
		)
	}

	snapshot, err := r.store.DatasetSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset snapshots: %w", err)
	}

	records := r.engine.ComputeRank(snapshot)
	if len(records) == 0 {
		return records, nil
	}

	if err := r.store.InsertRankBatch(ctx, records); err != nil {
		return nil, fmt.Errorf("persist rank batch: %w", err)
	}

	return records, nil
}
