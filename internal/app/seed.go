package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/circuitgrid/internal/circuit"
	"github.com/vk/circuitgrid/internal/comp"
	"github.com/vk/circuitgrid/internal/config"
	"github.com/vk/circuitgrid/internal/ctxlog"
	"github.com/vk/circuitgrid/internal/design"
	"github.com/vk/circuitgrid/internal/geom"
	"github.com/vk/circuitgrid/internal/memcontents"
	"github.com/vk/circuitgrid/internal/registry"
	"github.com/vk/circuitgrid/internal/snapshot"
)

const (
	// minExtent keeps components without ports from having empty bounds.
	minExtent = 10
	// defaultDataWidth is the cell width of memory components without a width.
	defaultDataWidth = 8
)

// ErrNotMemory is returned when contents are configured for a component
// whose factory holds no memory.
var ErrNotMemory = errors.New("factory holds no memory")

// seedDesign creates every configured circuit, then fills each one in its
// own write transaction, subcircuits before the circuits that use them.
func seedDesign(ctx context.Context, d *design.Design, cfg config.Design, reg *registry.Registry) error {
	order, err := cfg.Hierarchy().Order()
	if err != nil {
		return err
	}
	byName := make(map[string]config.Circuit, len(cfg.Circuits))
	for _, cc := range cfg.Circuits {
		if _, err := d.NewCircuit(cc.Name); err != nil {
			return err
		}
		byName[cc.Name] = cc
	}

	for _, name := range order {
		cc := byName[name]
		c, _ := d.Circuit(name)
		comps := make([]comp.Component, 0, len(cc.Components)+len(cc.Wires))
		for j, xc := range cc.Components {
			x, err := buildComponent(d, xc, reg)
			if err != nil {
				return fmt.Errorf("circuit %q component %d (%s): %w", cc.Name, j, xc.Name, err)
			}
			comps = append(comps, x)
		}
		for _, wc := range cc.Wires {
			comps = append(comps, comp.NewWire(geom.At(wc.X0, wc.Y0), geom.At(wc.X1, wc.Y1)))
		}

		err := circuit.Run(ctx, c, circuit.ReadWrite, "seed", func(ctx context.Context, m *circuit.Mutator) error {
			for _, x := range comps {
				m.Add(ctx, c, x)
			}
			return nil
		})
		if err != nil {
			return err
		}
		ctxlog.FromContext(ctx).Debug("Seeded circuit.", "circuit", c.Name(), "components", len(comps))
	}
	return nil
}

func buildComponent(d *design.Design, xc config.Component, reg *registry.Registry) (*comp.Generic, error) {
	var f *comp.Factory
	if xc.Subcircuit != "" {
		sub, ok := d.Circuit(xc.Subcircuit)
		if !ok {
			return nil, fmt.Errorf("%w: %q", design.ErrUnknownCircuit, xc.Subcircuit)
		}
		f = design.SubcircuitFactory(sub)
	} else {
		var ok bool
		if f, ok = reg.Lookup(xc.Factory); !ok {
			return nil, fmt.Errorf("%w: %q", snapshot.ErrUnknownFactory, xc.Factory)
		}
	}

	origin := geom.At(xc.X, xc.Y)
	bounds := geom.NewBounds(xc.X, xc.Y, minExtent, minExtent)
	ports := make([]comp.Port, 0, len(xc.Ports))
	for _, pc := range xc.Ports {
		dir, err := comp.ParseDirection(pc.Direction)
		if err != nil {
			return nil, err
		}
		width := pc.Width
		if width == 0 {
			width = xc.Width
		}
		loc := origin.Translate(pc.X, pc.Y)
		bounds = bounds.Add(geom.Spanning(origin, loc))
		ports = append(ports, comp.Port{Loc: loc, Width: width, Dir: dir})
	}

	g := comp.NewGeneric(f, bounds, ports...)
	if xc.Label != "" {
		g.SetLabel(xc.Label)
	}
	switch {
	case f.Memory:
		mem, err := newContents(xc)
		if err != nil {
			return nil, err
		}
		g.SetContents(mem)
	case len(xc.Contents) > 0:
		return nil, fmt.Errorf("%w: %q", ErrNotMemory, f.Name)
	}
	return g, nil
}

// newContents allocates 1<<AddrBits cells and loads the configured values.
func newContents(xc config.Component) (memcontents.Contents, error) {
	width := xc.Width
	if width == 0 {
		width = defaultDataWidth
	}
	mem, err := memcontents.New(1<<xc.AddrBits, width)
	if err != nil {
		return nil, err
	}
	mem.Load(0, xc.Contents, ^uint32(0))
	return mem, nil
}

// restore rebuilds the design from the snapshot store. It reports false when
// the store is absent or empty.
func (a *App) restore(ctx context.Context) (bool, error) {
	if a.store == nil {
		return false, nil
	}
	names, err := a.store.List()
	if err != nil {
		return false, fmt.Errorf("failed to list snapshots: %w", err)
	}
	if len(names) == 0 {
		return false, nil
	}

	records := make([]*snapshot.Record, 0, len(names))
	for _, name := range names {
		rec, err := a.store.Load(name)
		if err != nil {
			return false, err
		}
		if _, err := a.design.NewCircuit(rec.Circuit); err != nil {
			return false, err
		}
		records = append(records, rec)
	}
	for _, rec := range records {
		c, _ := a.design.Circuit(rec.Circuit)
		err := snapshot.Restore(ctx, a.design, c, rec, a.registry.Lookup)
		if errors.Is(err, snapshot.ErrUnknownFactory) {
			return false, fmt.Errorf("snapshot of %q uses a factory this build does not provide: %w", rec.Circuit, err)
		}
		if err != nil {
			return false, err
		}
		c.ClearModified()
	}
	return true, nil
}
