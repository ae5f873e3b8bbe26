package app

import (
	"context"

	"github.com/vk/circuitgrid/internal/ctxlog"
	"golang.org/x/sync/errgroup"
)

// Run starts the background services and blocks until ctx is cancelled or
// one of them fails.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.serveHTTP(gctx) })
	g.Go(func() error { return a.bookkeeping(gctx) })
	g.Go(func() error { return a.snapshots(gctx) })
	g.Go(func() error { return a.relay(gctx) })

	a.logger.Info("🚀 circuitgrid running", "circuits", len(a.design.Circuits()))
	err := g.Wait()
	a.logger.Info("🏁 circuitgrid stopped.")
	return err
}
