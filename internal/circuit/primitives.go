package circuit

import (
	"context"
	"maps"
	"slices"

	"github.com/vk/circuitgrid/internal/comp"
)

// The primitives below are reached only through a Mutator that has already
// verified write permission.

func (c *Circuit) admit(ctx context.Context, x comp.Component) {
	if w, ok := x.(*comp.Wire); ok {
		if w.IsDegenerate() {
			return
		}
		c.mu.Lock()
		added := c.conn.AddWire(w)
		if added {
			c.invalidateLocked()
		}
		c.mu.Unlock()
		if added {
			c.fire(ctx, Event{Action: Added, Component: w})
		}
		return
	}

	// Listen before the ports are read so a concurrent port change is
	// reconciled afterwards instead of lost.
	x.AddListener(c.watcher)
	c.mu.Lock()
	if _, ok := c.nonWires[x.ID()]; ok {
		c.mu.Unlock()
		return
	}
	c.nonWires[x.ID()] = x
	c.conn.AddComponent(x)
	f := x.Factory()
	if f.Clock {
		c.clocks = append(c.clocks, x)
	}
	if f.Subcircuit != 0 {
		c.instances[x.ID()] = f.Subcircuit
	}
	c.invalidateLocked()
	c.mu.Unlock()

	if f.Subcircuit != 0 {
		c.linkSubcircuit(x, f.Subcircuit)
	}
	c.fire(ctx, Event{Action: Added, Component: x})
}

func (c *Circuit) evict(ctx context.Context, x comp.Component) {
	if w, ok := x.(*comp.Wire); ok {
		c.mu.Lock()
		removed := c.conn.RemoveWire(w)
		if removed {
			c.invalidateLocked()
		}
		c.mu.Unlock()
		if removed {
			c.fire(ctx, Event{Action: Removed, Component: w})
		}
		return
	}

	c.mu.Lock()
	if _, ok := c.nonWires[x.ID()]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.nonWires, x.ID())
	c.conn.RemoveComponent(x)
	c.clocks = slices.DeleteFunc(c.clocks, func(k comp.Component) bool { return k.ID() == x.ID() })
	ref, isInstance := c.instances[x.ID()]
	delete(c.instances, x.ID())
	c.invalidateLocked()
	c.mu.Unlock()

	if isInstance {
		c.unlinkSubcircuit(x, ref)
	}
	x.RemoveListener(c.watcher)
	c.fire(ctx, Event{Action: Removed, Component: x})
}

func (c *Circuit) resetAll(ctx context.Context) {
	c.mu.Lock()
	prior := sortedComponents(c.nonWires)
	priorWires := c.conn.Wires()
	instances := c.instances
	c.nonWires = make(map[comp.ID]comp.Component)
	c.conn.Reset()
	c.clocks = nil
	c.instances = make(map[comp.ID]comp.CircuitRef)
	c.invalidateLocked()
	c.mu.Unlock()

	for _, x := range prior {
		if ref, ok := instances[x.ID()]; ok {
			c.unlinkSubcircuit(x, ref)
		}
		x.RemoveListener(c.watcher)
	}
	c.fire(ctx, Event{Action: Cleared, Prior: prior, PriorWires: priorWires})
}

func (c *Circuit) reconcilePorts(ctx context.Context, x comp.Component, old, next []comp.Port) {
	edits := diffPorts(old, next)
	c.mu.Lock()
	applyEdits(c.conn, x, edits)
	c.invalidateLocked()
	c.mu.Unlock()
	c.fire(ctx, Event{Action: Invalidated, Component: x})
}

func sortedComponents(m map[comp.ID]comp.Component) []comp.Component {
	ids := slices.Sorted(maps.Keys(m))
	out := make([]comp.Component, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}
