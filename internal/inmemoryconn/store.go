package inmemoryconn

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/vk/circuitgrid/internal/comp"
	"github.com/vk/circuitgrid/internal/connstore"
	"github.com/vk/circuitgrid/internal/geom"
)

// splitThreshold is the number of ends that must meet at a location before
// it is reported as a split point.
const splitThreshold = 3

type point struct {
	wires []*comp.Wire
	ports map[comp.ID]connstore.Attachment
}

func (p *point) empty() bool {
	return len(p.wires) == 0 && len(p.ports) == 0
}

func (p *point) ends() int {
	return len(p.wires) + len(p.ports)
}

// sortedPorts returns the attachments at the point ordered by component ID.
func (p *point) sortedPorts() []connstore.Attachment {
	out := make([]connstore.Attachment, 0, len(p.ports))
	for _, a := range p.ports {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b connstore.Attachment) int {
		return cmp.Compare(a.Component.ID(), b.Component.ID())
	})
	return out
}

type netIndex struct {
	nets  []connstore.Net
	byLoc map[geom.Location]int
}

// Store implements connstore.Store using maps guarded by a RWMutex.
type Store struct {
	mu     sync.RWMutex
	points map[geom.Location]*point
	// wires is keyed by the ordered end pair; a wire with the ends of one
	// already present is the same wire.
	wires map[[2]geom.Location]*comp.Wire
	// owned maps a non-wire component to the locations of its entries.
	owned map[comp.ID]map[geom.Location]struct{}

	index atomic.Pointer[netIndex]
}

// New creates an empty in-memory connectivity store.
func New() connstore.Store {
	s := &Store{}
	s.init()
	return s
}

func (s *Store) init() {
	s.points = make(map[geom.Location]*point)
	s.wires = make(map[[2]geom.Location]*comp.Wire)
	s.owned = make(map[comp.ID]map[geom.Location]struct{})
	s.index.Store(nil)
}

// Reset empties the store.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()
}

func (s *Store) pointAt(loc geom.Location) *point {
	p, ok := s.points[loc]
	if !ok {
		p = &point{ports: make(map[comp.ID]connstore.Attachment)}
		s.points[loc] = p
	}
	return p
}

func (s *Store) prune(loc geom.Location) {
	if p, ok := s.points[loc]; ok && p.empty() {
		delete(s.points, loc)
	}
}

// AddWire inserts w at both of its ends.
func (s *Store) AddWire(w *comp.Wire) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addWire(w)
}

func (s *Store) addWire(w *comp.Wire) bool {
	if _, exists := s.wires[w.Key()]; exists {
		return false
	}
	s.wires[w.Key()] = w
	a, b := w.Ends()
	s.pointAt(a).wires = append(s.pointAt(a).wires, w)
	if b != a {
		s.pointAt(b).wires = append(s.pointAt(b).wires, w)
	}
	s.index.Store(nil)
	return true
}

// RemoveWire drops the wire with w's ends from both of them.
func (s *Store) RemoveWire(w *comp.Wire) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeWire(w)
}

func (s *Store) removeWire(w *comp.Wire) bool {
	held, exists := s.wires[w.Key()]
	if !exists {
		return false
	}
	delete(s.wires, w.Key())
	a, b := held.Ends()
	for _, loc := range []geom.Location{a, b} {
		p, ok := s.points[loc]
		if !ok {
			continue
		}
		p.wires = slices.DeleteFunc(p.wires, func(x *comp.Wire) bool { return x == held })
		s.prune(loc)
	}
	s.index.Store(nil)
	return true
}

// AddComponent records every port of c. Wires are routed to AddWire.
func (s *Store) AddComponent(c comp.Component) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := c.(*comp.Wire); ok {
		s.addWire(w)
		return
	}
	for _, p := range c.Ports() {
		s.addPort(c, p)
	}
}

// RemoveComponent drops every entry recorded for c.
func (s *Store) RemoveComponent(c comp.Component) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := c.(*comp.Wire); ok {
		s.removeWire(w)
		return
	}
	for loc := range s.owned[c.ID()] {
		if p, ok := s.points[loc]; ok {
			delete(p.ports, c.ID())
			s.prune(loc)
		}
	}
	delete(s.owned, c.ID())
	s.index.Store(nil)
}

// AddPort records p for c. An existing entry for c at the same location is
// overwritten.
func (s *Store) AddPort(c comp.Component, p comp.Port) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addPort(c, p)
}

func (s *Store) addPort(c comp.Component, p comp.Port) {
	s.pointAt(p.Loc).ports[c.ID()] = connstore.Attachment{Component: c, Port: p}
	locs, ok := s.owned[c.ID()]
	if !ok {
		locs = make(map[geom.Location]struct{})
		s.owned[c.ID()] = locs
	}
	locs[p.Loc] = struct{}{}
	s.index.Store(nil)
}

// RemovePort drops the entry for c at p.Loc.
func (s *Store) RemovePort(c comp.Component, p comp.Port) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removePort(c, p.Loc)
}

func (s *Store) removePort(c comp.Component, loc geom.Location) {
	if pt, ok := s.points[loc]; ok {
		delete(pt.ports, c.ID())
		s.prune(loc)
	}
	if locs, ok := s.owned[c.ID()]; ok {
		delete(locs, loc)
		if len(locs) == 0 {
			delete(s.owned, c.ID())
		}
	}
	s.index.Store(nil)
}

// ReplacePort swaps old for next. When both share a location the entry is
// updated in place.
func (s *Store) ReplacePort(c comp.Component, old, next comp.Port) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old.Loc != next.Loc {
		s.removePort(c, old.Loc)
	}
	s.addPort(c, next)
}

// HasWire reports whether a wire with w's ends is present.
func (s *Store) HasWire(w *comp.Wire) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.wires[w.Key()]
	return ok
}

// Wires returns all wires ordered by ID.
func (s *Store) Wires() []*comp.Wire {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*comp.Wire, 0, len(s.wires))
	for _, w := range s.wires {
		out = append(out, w)
	}
	slices.SortFunc(out, func(a, b *comp.Wire) int { return cmp.Compare(a.ID(), b.ID()) })
	return out
}

func (s *Store) WiresAt(loc geom.Location) []*comp.Wire {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.points[loc]
	if !ok {
		return nil
	}
	return slices.Clone(p.wires)
}

func (s *Store) NonWiresAt(loc geom.Location) []comp.Component {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.points[loc]
	if !ok {
		return nil
	}
	var out []comp.Component
	for _, a := range p.sortedPorts() {
		out = append(out, a.Component)
	}
	return out
}

func (s *Store) ComponentsAt(loc geom.Location) []comp.Component {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.componentsAt(loc)
}

func (s *Store) componentsAt(loc geom.Location) []comp.Component {
	p, ok := s.points[loc]
	if !ok {
		return nil
	}
	out := make([]comp.Component, 0, p.ends())
	for _, w := range p.wires {
		out = append(out, w)
	}
	for _, a := range p.sortedPorts() {
		out = append(out, a.Component)
	}
	return out
}

func (s *Store) PortAt(c comp.Component, loc geom.Location) (comp.Port, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.points[loc]
	if !ok {
		return comp.Port{}, false
	}
	a, ok := p.ports[c.ID()]
	return a.Port, ok
}

// Exclusive returns the lowest-ID component with an exclusive port at loc.
func (s *Store) Exclusive(loc geom.Location) comp.Component {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.points[loc]
	if !ok {
		return nil
	}
	for _, a := range p.sortedPorts() {
		if a.Port.Exclusive() {
			return a.Component
		}
	}
	return nil
}

func (s *Store) ConflictAt(loc geom.Location) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conflictAt(loc)
}

func (s *Store) conflictAt(loc geom.Location) bool {
	p, ok := s.points[loc]
	if !ok {
		return false
	}
	n := 0
	for _, a := range p.ports {
		if a.Port.Exclusive() {
			n++
		}
	}
	return n > 1
}

func (s *Store) HasConflict(c comp.Component) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for loc := range s.owned[c.ID()] {
		a := s.points[loc].ports[c.ID()]
		if a.Port.Exclusive() && s.conflictAt(loc) {
			return true
		}
	}
	return false
}

// SplitLocations returns every location where three or more ends meet.
func (s *Store) SplitLocations() []geom.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []geom.Location
	for loc, p := range s.points {
		if p.ends() >= splitThreshold {
			out = append(out, loc)
		}
	}
	slices.SortFunc(out, geom.Location.Compare)
	return out
}

// SplitCauses lists the components meeting at a split location.
func (s *Store) SplitCauses(loc geom.Location) []comp.Component {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.points[loc]
	if !ok || p.ends() < splitThreshold {
		return nil
	}
	return s.componentsAt(loc)
}

func (s *Store) Width(loc geom.Location) int {
	net, ok := s.netAt(loc)
	if !ok {
		return 0
	}
	return net.Width
}

func (s *Store) WidthDeterminant(loc geom.Location) (geom.Location, bool) {
	net, ok := s.netAt(loc)
	if !ok || net.Width == 0 {
		return geom.Location{}, false
	}
	return net.Determinant, true
}

func (s *Store) WidthIncompatibilities() []connstore.WidthIncompatibility {
	var out []connstore.WidthIncompatibility
	for _, net := range s.nets().nets {
		var inc connstore.WidthIncompatibility
		for _, a := range net.Attachments {
			if a.Port.Width == 0 || slices.Contains(inc.Widths, a.Port.Width) {
				continue
			}
			inc.Widths = append(inc.Widths, a.Port.Width)
			inc.Points = append(inc.Points, a.Port.Loc)
		}
		if len(inc.Widths) > 1 {
			out = append(out, inc)
		}
	}
	return out
}

// Nets returns the current nets ordered by their first location.
func (s *Store) Nets() []connstore.Net {
	return slices.Clone(s.nets().nets)
}

func (s *Store) WireBounds() geom.Bounds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b := geom.Empty
	for _, w := range s.wires {
		b = b.Add(w.Bounds())
	}
	return b
}

func (s *Store) netAt(loc geom.Location) (connstore.Net, bool) {
	idx := s.nets()
	i, ok := idx.byLoc[loc]
	if !ok {
		return connstore.Net{}, false
	}
	return idx.nets[i], true
}

// nets returns the cached index, rebuilding it if an edit cleared it.
func (s *Store) nets() *netIndex {
	if idx := s.index.Load(); idx != nil {
		return idx
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.index.Load(); idx != nil {
		return idx
	}
	idx := s.build()
	s.index.CompareAndSwap(nil, idx)
	return idx
}

func (s *Store) build() *netIndex {
	uf := newUnionFind()
	for loc := range s.points {
		uf.add(loc)
	}
	for _, w := range s.wires {
		a, b := w.Ends()
		uf.union(a, b)
	}

	groups := make(map[geom.Location][]geom.Location)
	for loc := range s.points {
		root := uf.find(loc)
		groups[root] = append(groups[root], loc)
	}

	idx := &netIndex{byLoc: make(map[geom.Location]int, len(s.points))}
	for _, locs := range groups {
		slices.SortFunc(locs, geom.Location.Compare)
		net := connstore.Net{Locations: locs}
		for _, loc := range locs {
			for _, a := range s.points[loc].sortedPorts() {
				net.Attachments = append(net.Attachments, a)
				if net.Width == 0 && a.Port.Width > 0 {
					net.Width = a.Port.Width
					net.Determinant = loc
				}
			}
		}
		idx.nets = append(idx.nets, net)
	}
	slices.SortFunc(idx.nets, func(a, b connstore.Net) int {
		return a.Locations[0].Compare(b.Locations[0])
	})
	for i, net := range idx.nets {
		for _, loc := range net.Locations {
			idx.byLoc[loc] = i
		}
	}
	return idx
}
