package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/circuitgrid/internal/circuit"
	"github.com/vk/circuitgrid/internal/comp"
	"github.com/vk/circuitgrid/internal/design"
	"github.com/vk/circuitgrid/internal/geom"
	"github.com/vk/circuitgrid/internal/memcontents"
)

// ErrUnknownFactory is returned when a record names a factory the caller
// cannot provide.
var ErrUnknownFactory = errors.New("unknown component factory")

// FactoryLookup returns the factory registered under name.
type FactoryLookup func(name string) (*comp.Factory, bool)

// Restore replaces the contents of c with rec in a single write
// transaction. Subcircuit instances are resolved by circuit name in d.
func Restore(ctx context.Context, d *design.Design, c *circuit.Circuit, rec *Record, lookup FactoryLookup) error {
	comps := make([]comp.Component, 0, len(rec.Components)+len(rec.Wires))
	for i, cr := range rec.Components {
		x, err := rebuild(d, cr, lookup)
		if err != nil {
			return fmt.Errorf("restore %s: component %d: %w", rec.Circuit, i, err)
		}
		comps = append(comps, x)
	}
	for _, wr := range rec.Wires {
		comps = append(comps, comp.NewWire(geom.At(wr.X0, wr.Y0), geom.At(wr.X1, wr.Y1)))
	}

	return circuit.Run(ctx, c, circuit.ReadWrite, "restore", func(ctx context.Context, m *circuit.Mutator) error {
		m.Clear(ctx, c)
		for _, x := range comps {
			m.Add(ctx, c, x)
		}
		return nil
	})
}

func rebuild(d *design.Design, cr ComponentRecord, lookup FactoryLookup) (comp.Component, error) {
	var f *comp.Factory
	if cr.Subcircuit != "" {
		sub, ok := d.Circuit(cr.Subcircuit)
		if !ok {
			return nil, fmt.Errorf("%w: %q", design.ErrUnknownCircuit, cr.Subcircuit)
		}
		f = design.SubcircuitFactory(sub)
	} else {
		var ok bool
		if f, ok = lookup(cr.Factory); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFactory, cr.Factory)
		}
	}

	ports := make([]comp.Port, 0, len(cr.Ports))
	for _, pr := range cr.Ports {
		dir, err := comp.ParseDirection(pr.Dir)
		if err != nil {
			return nil, err
		}
		ports = append(ports, comp.Port{Loc: geom.At(pr.X, pr.Y), Width: pr.Width, Dir: dir})
	}
	g := comp.NewGeneric(f, geom.NewBounds(cr.Bounds[0], cr.Bounds[1], cr.Bounds[2], cr.Bounds[3]), ports...)
	g.SetLabel(cr.Label)
	if mr := cr.Memory; mr != nil {
		mem, err := memcontents.New(mr.Size, mr.Width)
		if err != nil {
			return nil, fmt.Errorf("memory of %s: %w", cr.Factory, err)
		}
		mem.Load(0, mr.Cells, ^uint32(0))
		g.SetContents(mem)
	}
	return g, nil
}
