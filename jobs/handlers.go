package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

// Reconciler recomputes cached balances.
type Reconciler interface {
	ReconcileBalances(ctx context.Context) (ledger.ReconcileReport, error)
}

// CacheWarmer pre-builds cached reports.
type CacheWarmer interface {
	WarmCache(ctx context.Context) error
}

// Deps carries the services the task handlers call into.
type Deps struct {
	Reconciler Reconciler
	Warmer     CacheWarmer
	Logger     *slog.Logger
}

// HandleReconcileBalances runs the balance reconciliation.
func (d Deps) HandleReconcileBalances(ctx context.Context, t *asynq.Task) error {
	start := time.Now()
	stats, err := d.Reconciler.ReconcileBalances(ctx)
	if err != nil {
		d.Logger.Error("balance reconciliation failed", slog.Any("error", err))
		return err
	}
	d.Logger.Info("balance reconciliation done",
		slog.Int("checked", stats.Checked),
		slog.Int("repaired", stats.Repaired),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

// HandleCacheWarmup pre-builds the dashboard reports.
func (d Deps) HandleCacheWarmup(ctx context.Context, t *asynq.Task) error {
	if err := d.Warmer.WarmCache(ctx); err != nil {
		d.Logger.Warn("report cache warmup failed", slog.Any("error", err))
		return err
	}
	d.Logger.Info("report cache warmed")
	return nil
}
