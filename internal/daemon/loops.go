package daemon

import (
	"context"
	"errors"
	"time"

	"octowatch/internal/logging"
	"octowatch/internal/octoprint"
	"octowatch/internal/printers"
)

func (d *Daemon) pollLoop(ctx context.Context) {
	interval := time.Duration(d.cfg.Poll.IntervalSeconds) * time.Second
	if interval <= 0 {
		d.logger.Info("background poll disabled",
			logging.String(logging.FieldEventType, "poll_disabled"),
		)
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Ticks that land while a poll is in flight are dropped by the ticker.
			outcome := d.Poll(ctx)
			d.logger.Debug("background poll finished",
				logging.String(logging.FieldEventType, "poll_tick"),
				logging.String("outcome", outcome.String()),
			)
		}
	}
}

func (d *Daemon) runStream(ctx context.Context) {
	handler := func(ctx context.Context, printer printers.Printer, current octoprint.CurrentState) {
		d.deps.Refresher.OnLiveStateChanged(ctx, printer, current)
	}
	if err := d.deps.Stream.Run(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
		logging.WarnWithContext(d.logger, "live stream stopped", "stream_stopped",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the default printer URL and credentials"),
			logging.String(logging.FieldImpact, "state changes rely on push and poll only"),
		)
	}
}

func (d *Daemon) runWatcher(ctx context.Context) {
	watcher := printers.NewWatcher(d.deps.Registry, d.deps.ConfigPath, printers.LoadFromConfig, d.logger)
	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.WarnWithContext(d.logger, "config watcher stopped", "config_watch_failed",
			logging.String("path", d.deps.ConfigPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "restart the daemon after editing printers"),
			logging.String(logging.FieldImpact, "printer changes are not picked up until restart"),
		)
	}
}

func (d *Daemon) maintenanceLoop(ctx context.Context) {
	d.maintain(ctx)
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.maintain(ctx)
		}
	}
}

// maintain prunes attachment folders and journal rows past logging.retention_days.
func (d *Daemon) maintain(ctx context.Context) {
	days := d.cfg.Logging.RetentionDays
	if days <= 0 {
		return
	}
	removed := logging.CleanupOldLogs(d.logger, days, logging.RetentionTarget{
		Dir:         d.cfg.Paths.AttachmentsDir,
		Directories: true,
	})
	pruned, err := d.pruneJournal(ctx, time.Now().AddDate(0, 0, -days))
	if err != nil {
		logging.WarnWithContext(d.logger, "journal prune failed", "journal_prune_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check journal.db permissions in state_dir"),
			logging.String(logging.FieldImpact, "old journal rows remain"),
		)
	}
	if removed > 0 || pruned > 0 {
		d.logger.Info("retention pass complete",
			logging.String(logging.FieldEventType, "retention_complete"),
			logging.Int("attachments_removed", removed),
			logging.Int64("journal_pruned", pruned),
		)
	}
}

func (d *Daemon) pruneJournal(ctx context.Context, cutoff time.Time) (int64, error) {
	if d.deps.Journal == nil {
		return 0, nil
	}
	return d.deps.Journal.Prune(ctx, cutoff)
}
