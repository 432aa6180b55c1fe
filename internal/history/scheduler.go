package history

import (
	"context"
	"log/slog"
	"time"
)

// PruneConfig controls the retention scheduler. Zero values fall back to
// the defaults below.
type PruneConfig struct {
	Retention     time.Duration // entries older than this are deleted (default: 30 days)
	CheckInterval time.Duration // how often to run (default: 24h)
}

const (
	DefaultRetention     = 30 * 24 * time.Hour
	DefaultPruneInterval = 24 * time.Hour
)

func (c PruneConfig) withDefaults() PruneConfig {
	if c.Retention <= 0 {
		c.Retention = DefaultRetention
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = DefaultPruneInterval
	}
	return c
}

// StartPruneScheduler deletes entries older than the retention window. It
// runs once immediately, then every CheckInterval, and returns when ctx is
// cancelled. Failures are logged and retried on the next tick.
func StartPruneScheduler(ctx context.Context, store Store, cfg PruneConfig) {
	cfg = cfg.withDefaults()
	slog.Info("history prune scheduler started",
		"retention", cfg.Retention.String(),
		"interval", cfg.CheckInterval.String(),
	)

	runPrune(ctx, store, cfg.Retention, time.Now)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("history prune scheduler stopped")
			return
		case <-ticker.C:
			runPrune(ctx, store, cfg.Retention, time.Now)
		}
	}
}

// runPrune performs one prune cycle.
func runPrune(ctx context.Context, store Store, retention time.Duration, now func() time.Time) {
	start := time.Now()
	cutoff := now().Add(-retention)

	pruned, err := store.Prune(ctx, cutoff)
	if err != nil {
		slog.Error("history prune failed", "error", err)
		return
	}
	slog.Info("pruned load history",
		"entries_pruned", pruned,
		"cutoff", cutoff.Format(time.RFC3339),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
