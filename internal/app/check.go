package app

import (
	"context"
	"fmt"

	"github.com/vk/circuitgrid/internal/annotate"
	"github.com/vk/circuitgrid/internal/ctxlog"
)

// Check annotates every circuit and builds its netlist once, writing a
// report to the app's output. It returns the number of design-rule problems.
func (a *App) Check(ctx context.Context) (int, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	total := 0
	for _, c := range a.design.Circuits() {
		var msgs annotate.Messages
		if err := annotate.Annotate(ctx, c, false, &msgs); err != nil {
			return total, err
		}
		nl, err := a.netlists.Get(ctx, c)
		if err != nil {
			return total, err
		}
		fmt.Fprintf(a.outW, "%s: %d nets, %d problems\n", c.Name(), len(nl.Nets), len(nl.Problems))
		for _, p := range nl.Problems {
			fmt.Fprintf(a.outW, "  %s\n", p)
		}
		total += len(nl.Problems)
	}
	return total, nil
}
