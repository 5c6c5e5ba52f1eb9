package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hamed0406/dlprobe/internal/domain"
)

// Sweeper checks the whole catalog. *index.Service satisfies it.
type Sweeper interface {
	Statuses(ctx context.Context) ([]domain.DownloadStatus, error)
}

// Watcher sweeps the catalog on a cron schedule and hands the statuses to
// the alerter. Nothing is served from it.
type Watcher struct {
	Logger   *zap.Logger
	Sweeper  Sweeper
	Alerter  *Alerter
	Schedule string
}

func NewWatcher(logger *zap.Logger, sw Sweeper, al *Alerter, schedule string) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{Logger: logger, Sweeper: sw, Alerter: al, Schedule: schedule}
}

// Run does an immediate sweep, then one per schedule tick, until ctx is
// cancelled. An empty schedule disables the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	if w.Schedule == "" {
		w.Logger.Info("watcher_disabled")
		return nil
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(w.Schedule, func() { w.runOnce(ctx) }); err != nil {
		return fmt.Errorf("watch schedule %q: %w", w.Schedule, err)
	}

	w.runOnce(ctx)
	c.Start()
	w.Logger.Info("watcher_started", zap.String("schedule", w.Schedule))

	<-ctx.Done()
	<-c.Stop().Done()
	w.Logger.Info("watcher_stopped")
	return ctx.Err()
}

func (w *Watcher) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	statuses, err := w.Sweeper.Statuses(ctx)
	if err != nil {
		w.Logger.Warn("watcher_sweep_error", zap.Error(err))
		return
	}
	if w.Alerter == nil {
		return
	}
	sent, err := w.Alerter.Observe(ctx, statuses)
	if err != nil {
		w.Logger.Warn("watcher_alert_error", zap.Error(err))
	}
	if sent > 0 {
		w.Logger.Info("watcher_alerts_sent", zap.Int("count", sent))
	}
}
