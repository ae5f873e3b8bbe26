package comp

import (
	"context"
	"slices"
	"sync"

	"github.com/vk/circuitgrid/internal/geom"
	"github.com/vk/circuitgrid/internal/memcontents"
)

// MemoryHolder is implemented by components that can carry memory contents.
type MemoryHolder interface {
	// Contents returns the cells, or nil when none are attached.
	Contents() memcontents.Contents
}

// Generic is a configurable component whose ports are set explicitly. It is
// used for components built from configuration and in tests.
type Generic struct {
	id      ID
	factory *Factory

	mu        sync.RWMutex
	bounds    geom.Bounds
	ports     []Port
	label     string
	contents  memcontents.Contents
	listeners []Listener
}

// NewGeneric creates a component of the given factory occupying bounds.
func NewGeneric(f *Factory, bounds geom.Bounds, ports ...Port) *Generic {
	return &Generic{
		id:      NewID(),
		factory: f,
		bounds:  bounds,
		ports:   slices.Clone(ports),
	}
}

func (g *Generic) ID() ID            { return g.id }
func (g *Generic) Factory() *Factory { return g.factory }

func (g *Generic) Ports() []Port {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.ports)
}

func (g *Generic) Bounds() geom.Bounds {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.bounds
}

func (g *Generic) Contains(p geom.Location) bool {
	return g.Bounds().Contains(p)
}

// HitTest accepts points strictly inside the body and points exactly on a
// port. The outline itself does not count.
func (g *Generic) HitTest(p geom.Location) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	b := g.bounds
	if p.X > b.X && p.X < b.X+b.Width && p.Y > b.Y && p.Y < b.Y+b.Height {
		return true
	}
	for _, port := range g.ports {
		if port.Loc == p {
			return true
		}
	}
	return false
}

func (g *Generic) Label() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.label
}

// SetLabel changes the label attribute. Labels are configuration, so no
// listener is notified.
func (g *Generic) SetLabel(label string) {
	g.mu.Lock()
	g.label = label
	g.mu.Unlock()
}

func (g *Generic) Contents() memcontents.Contents {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.contents
}

// SetContents attaches memory cells. Cell values are state rather than
// structure, so no listener is notified.
func (g *Generic) SetContents(c memcontents.Contents) {
	g.mu.Lock()
	g.contents = c
	g.mu.Unlock()
}

func (g *Generic) AddListener(l Listener) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !slices.Contains(g.listeners, l) {
		g.listeners = append(g.listeners, l)
	}
}

func (g *Generic) RemoveListener(l Listener) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if i := slices.Index(g.listeners, l); i >= 0 {
		g.listeners = slices.Delete(g.listeners, i, i+1)
	}
}

// SetPorts replaces the port list and notifies listeners with the old and
// new snapshots. Setting an identical list is a no-op.
func (g *Generic) SetPorts(ctx context.Context, ports []Port) {
	g.mu.Lock()
	if slices.Equal(g.ports, ports) {
		g.mu.Unlock()
		return
	}
	old := g.ports
	g.ports = slices.Clone(ports)
	listeners := slices.Clone(g.listeners)
	g.mu.Unlock()

	e := Event{Source: g, Old: slices.Clone(old), New: slices.Clone(ports)}
	for _, l := range listeners {
		l.PortsChanged(ctx, e)
	}
}

// SetWidth changes the width of every port, the typical effect of editing a
// component's bit-width attribute.
func (g *Generic) SetWidth(ctx context.Context, width int) {
	ports := g.Ports()
	for i := range ports {
		ports[i].Width = width
	}
	g.SetPorts(ctx, ports)
}

// Invalidate reports an appearance-only change.
func (g *Generic) Invalidate(ctx context.Context) {
	g.mu.RLock()
	listeners := slices.Clone(g.listeners)
	ports := slices.Clone(g.ports)
	g.mu.RUnlock()

	e := Event{Source: g, Old: ports, New: ports}
	for _, l := range listeners {
		l.Invalidated(ctx, e)
	}
}
