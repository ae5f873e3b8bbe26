package app

import (
	"context"
	"time"

	"github.com/vk/circuitgrid/internal/ctxlog"
)

// snapshots saves modified circuits on every tick and once more on
// shutdown, then closes the store.
func (a *App) snapshots(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx).With("component", "snapshot")
	if a.store == nil {
		logger.Info("Snapshots disabled: no data directory configured")
		return nil
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("Closing snapshot store failed", "error", err)
		}
	}()

	ticker := time.NewTicker(a.settings.SnapshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := a.saveModified(context.WithoutCancel(ctx)); err != nil {
				return err
			}
			logger.Info("Final snapshot written.")
			return nil
		case <-ticker.C:
			if err := a.saveModified(ctx); err != nil {
				logger.Error("Snapshot failed", "error", err)
			}
		}
	}
}

func (a *App) saveModified(ctx context.Context) error {
	n, err := a.store.SaveModified(ctx, a.design)
	snapshotsSaved.Add(float64(n))
	if n > 0 {
		ctxlog.FromContext(ctx).Debug("Saved snapshots.", "count", n)
	}
	return err
}
