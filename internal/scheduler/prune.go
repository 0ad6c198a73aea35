package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/openfoundry/outreach/internal/index"
	"github.com/openfoundry/outreach/internal/logger"
	"github.com/openfoundry/outreach/internal/store/jsonfile"
)

const (
	// DefaultRetention is how long outreach log entries are kept.
	DefaultRetention = 90 * 24 * time.Hour
)

// LogPruner removes outreach log entries older than the retention
// window. Contacts and opt-outs are never pruned.
type LogPruner struct {
	registry  *index.Registry
	store     *jsonfile.Store
	logger    logger.Logger
	interval  time.Duration
	retention time.Duration
	stopCh    chan struct{}
}

// NewLogPruner creates a new log pruner
func NewLogPruner(
	registry *index.Registry,
	store *jsonfile.Store,
	log logger.Logger,
	interval time.Duration,
	retention time.Duration,
) *LogPruner {
	if retention == 0 {
		retention = DefaultRetention
	}

	return &LogPruner{
		registry:  registry,
		store:     store,
		logger:    log,
		interval:  interval,
		retention: retention,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic pruning process
func (lp *LogPruner) Start(ctx context.Context) error {
	// Run immediately on start
	if err := lp.Prune(ctx); err != nil {
		lp.logger.Warn("initial log pruning failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(lp.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := lp.Prune(ctx); err != nil {
					lp.logger.Error("log pruning failed",
						logger.Error(err))
				}
			case <-lp.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the pruner
func (lp *LogPruner) Stop() {
	close(lp.stopCh)
}

// Prune drops records older than the retention window and persists
// when anything was removed.
func (lp *LogPruner) Prune(_ context.Context) error {
	cutoff := time.Now().UTC().Add(-lp.retention)
	removed := lp.registry.PruneRecords(cutoff)
	if removed == 0 {
		lp.logger.Debug("no outreach records to prune")
		return nil
	}

	if err := lp.store.Save(lp.registry.Export()); err != nil {
		return fmt.Errorf("failed to persist after pruning: %w", err)
	}

	lp.logger.Info("pruned outreach log",
		logger.Int("removed", removed),
		logger.String("retention", lp.retention.String()))

	return nil
}
