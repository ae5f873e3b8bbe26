package circuit

import (
	"slices"

	"github.com/vk/circuitgrid/internal/comp"
	"github.com/vk/circuitgrid/internal/connstore"
	"github.com/vk/circuitgrid/internal/geom"
)

// Contains reports whether x is a member of the non-wire set or a wire held
// by the connectivity structure.
func (c *Circuit) Contains(x comp.Component) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.containsLocked(x)
}

func (c *Circuit) containsLocked(x comp.Component) bool {
	if w, ok := x.(*comp.Wire); ok {
		return c.conn.HasWire(w)
	}
	_, ok := c.nonWires[x.ID()]
	return ok
}

// NonWires returns the non-wire components ordered by ID.
func (c *Circuit) NonWires() []comp.Component {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedComponents(c.nonWires)
}

// Wires returns the wires ordered by ID.
func (c *Circuit) Wires() []*comp.Wire {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn.Wires()
}

// Components returns non-wires followed by wires.
func (c *Circuit) Components() []comp.Component {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := sortedComponents(c.nonWires)
	for _, w := range c.conn.Wires() {
		out = append(out, w)
	}
	return out
}

// Clocks returns the clock-like components in admission order.
func (c *Circuit) Clocks() []comp.Component {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.clocks)
}

func (c *Circuit) WiresAt(loc geom.Location) []*comp.Wire {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn.WiresAt(loc)
}

func (c *Circuit) NonWiresAt(loc geom.Location) []comp.Component {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn.NonWiresAt(loc)
}

func (c *Circuit) ComponentsAt(loc geom.Location) []comp.Component {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn.ComponentsAt(loc)
}

// Exclusive returns the component driving loc, or nil.
func (c *Circuit) Exclusive(loc geom.Location) comp.Component {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn.Exclusive(loc)
}

// IsConnected reports whether anything other than ignore touches loc.
func (c *Circuit) IsConnected(loc geom.Location, ignore comp.Component) bool {
	for _, x := range c.ComponentsAt(loc) {
		if ignore == nil || x.ID() != ignore.ID() {
			return true
		}
	}
	return false
}

func (c *Circuit) SplitLocations() []geom.Location {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn.SplitLocations()
}

func (c *Circuit) SplitCauses(loc geom.Location) []comp.Component {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn.SplitCauses(loc)
}

func (c *Circuit) HasConflict(x comp.Component) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn.HasConflict(x)
}

func (c *Circuit) ConflictAt(loc geom.Location) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn.ConflictAt(loc)
}

// Width returns the bit width at loc, or zero if nothing fixes it.
func (c *Circuit) Width(loc geom.Location) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn.Width(loc)
}

func (c *Circuit) WidthDeterminant(loc geom.Location) (geom.Location, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn.WidthDeterminant(loc)
}

func (c *Circuit) WidthIncompatibilities() []connstore.WidthIncompatibility {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn.WidthIncompatibilities()
}

// Nets returns the nets of the connectivity structure.
func (c *Circuit) Nets() []connstore.Net {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn.Nets()
}

// AllWithin returns the components whose bounds lie inside b.
func (c *Circuit) AllWithin(b geom.Bounds) []comp.Component {
	var out []comp.Component
	for _, x := range c.Components() {
		if b.ContainsBounds(x.Bounds()) {
			out = append(out, x)
		}
	}
	return out
}

// AllContaining returns the components whose bounds contain p.
func (c *Circuit) AllContaining(p geom.Location) []comp.Component {
	var out []comp.Component
	for _, x := range c.Components() {
		if x.Contains(p) {
			out = append(out, x)
		}
	}
	return out
}

// AllContainingExact is AllContaining using each component's exact hit test.
func (c *Circuit) AllContainingExact(p geom.Location) []comp.Component {
	var out []comp.Component
	for _, x := range c.Components() {
		if x.HitTest(p) {
			out = append(out, x)
		}
	}
	return out
}

// Bounds is the union of the bounds of every component and wire.
func (c *Circuit) Bounds() geom.Bounds {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b := c.conn.WireBounds()
	for _, x := range c.nonWires {
		b = b.Add(x.Bounds())
	}
	return b
}
