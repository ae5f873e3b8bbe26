package circuit

import (
	"context"

	"github.com/vk/circuitgrid/internal/comp"
)

// portWatcher is the circuit's listener on its admitted components.
type portWatcher struct {
	c *Circuit
}

// PortsChanged reconciles the connectivity structure. A transaction carried
// by ctx that declared the circuit handles it inline, and panics if it only
// reads the circuit. Otherwise a write transaction is queued and waited for.
func (w *portWatcher) PortsChanged(ctx context.Context, e comp.Event) {
	c := w.c
	if m, ok := MutatorFrom(ctx); ok && m.Declares(c) {
		if c.Contains(e.Source) {
			m.ReconcilePorts(ctx, c, e.Source, e.Old, e.New)
		} else {
			m.check(c, "reconcile ports")
		}
		return
	}

	err := Run(ctx, c, ReadWrite, "ports changed", func(ctx context.Context, m *Mutator) error {
		if c.Contains(e.Source) {
			m.ReconcilePorts(ctx, c, e.Source, e.Old, e.New)
		}
		return nil
	})
	if err != nil {
		c.logger(ctx).Error("port reconciliation abandoned", "component", e.Source.ID().String(), "error", err)
	}
}

// Invalidated forwards an appearance change without structural edits.
func (w *portWatcher) Invalidated(ctx context.Context, e comp.Event) {
	w.c.fire(ctx, Event{Action: Invalidated, Component: e.Source})
}
