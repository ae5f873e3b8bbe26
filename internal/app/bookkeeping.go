package app

import (
	"context"
	"time"

	"github.com/vk/circuitgrid/internal/annotate"
	"github.com/vk/circuitgrid/internal/circuit"
	"github.com/vk/circuitgrid/internal/ctxlog"
)

// bookkeeping refreshes derived data in the background: it annotates
// circuits that lost their labels and rebuilds netlists whose structure
// changed, logging any new design-rule problems.
func (a *App) bookkeeping(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx).With("component", "bookkeeping")
	ticker := time.NewTicker(a.settings.BookkeepingInterval)
	defer ticker.Stop()

	seen := make(map[*circuit.Circuit]uint64)
	for {
		a.bookkeepingPass(ctxlog.WithLogger(ctx, logger), seen)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (a *App) bookkeepingPass(ctx context.Context, seen map[*circuit.Circuit]uint64) {
	logger := ctxlog.FromContext(ctx)
	defer func() {
		if r := recover(); r != nil {
			if circuit.IsMisuse(r) {
				logger.Error("Transaction misuse during bookkeeping", "panic", r)
			}
			panic(r)
		}
	}()

	for _, c := range a.design.Circuits() {
		if ctx.Err() != nil {
			return
		}
		if !c.IsAnnotated() {
			if err := annotate.Annotate(ctx, c, false, annotate.LogReporter{Logger: logger}); err != nil {
				bookkeepingRuns.WithLabelValues("error").Inc()
				logger.Warn("Annotation failed", "circuit", c.Name(), "error", err)
				continue
			}
		}

		nl, err := a.netlists.Get(ctx, c)
		if err != nil {
			bookkeepingRuns.WithLabelValues("error").Inc()
			logger.Warn("Netlist rebuild failed", "circuit", c.Name(), "error", err)
			continue
		}
		netlistProblems.WithLabelValues(c.Name()).Set(float64(len(nl.Problems)))
		if v, ok := seen[c]; ok && v == nl.Version {
			continue
		}
		seen[c] = nl.Version
		logger.Debug("Netlist rebuilt.", "circuit", c.Name(), "version", nl.Version, "nets", len(nl.Nets))
		for _, p := range nl.Problems {
			logger.Warn("Design-rule problem", "circuit", c.Name(), "problem", p.String())
		}
	}
	bookkeepingRuns.WithLabelValues("ok").Inc()
}
