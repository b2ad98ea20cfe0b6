// Package maintenance runs periodic housekeeping over the attempt
// ledger. The ledger is append-only, so its only upkeep is pruning
// rows past the retention horizon.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/yoshi22/bookkeeping3rd/backend/internal/store"
)

// Scheduler prunes old attempts on a fixed interval.
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     *store.SQLiteStore
	logger    *slog.Logger
	retention time.Duration
}

// New creates a Scheduler. retention is how long ledger rows are kept.
func New(s *store.SQLiteStore, retention time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		store:     s,
		logger:    logger,
		retention: retention,
	}
}

// Start schedules the daily prune and runs the scheduler in the
// background. Retention of zero disables pruning entirely.
func (m *Scheduler) Start() {
	if m.retention <= 0 {
		m.logger.Info("attempt pruning disabled")
		return
	}
	m.scheduler.Every(24).Hours().Do(m.prune)
	m.scheduler.StartAsync()
}

// Stop terminates the scheduler.
func (m *Scheduler) Stop() {
	m.scheduler.Stop()
}

func (m *Scheduler) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	horizon := time.Now().Add(-m.retention)
	pruned, err := m.store.PruneAttempts(ctx, horizon)
	if err != nil {
		m.logger.Error("attempt pruning failed", "error", err)
		return
	}
	if pruned > 0 {
		m.logger.Info("pruned old attempts", "rows", pruned, "horizon", horizon)
	}
}
