package comp

import (
	"github.com/vk/circuitgrid/internal/geom"
)

// WireFactory is the factory shared by all wires.
var WireFactory = &Factory{Name: "Wire"}

// hitSlack is how far from the segment a point may be and still hit a wire.
const hitSlack = 2

// Wire is a straight connector between two locations. Wires are immutable;
// a wire whose ends coincide is degenerate and never admitted to a circuit.
type Wire struct {
	id   ID
	End0 geom.Location
	End1 geom.Location
}

// NewWire creates a wire between a and b.
func NewWire(a, b geom.Location) *Wire {
	return &Wire{id: NewID(), End0: a, End1: b}
}

func (w *Wire) ID() ID            { return w.id }
func (w *Wire) Factory() *Factory { return WireFactory }

// IsDegenerate reports whether both ends are the same location.
func (w *Wire) IsDegenerate() bool {
	return w.End0 == w.End1
}

// Ports returns the two ends. A wire does not fix a width on its own.
func (w *Wire) Ports() []Port {
	return []Port{
		{Loc: w.End0, Dir: Bidirectional},
		{Loc: w.End1, Dir: Bidirectional},
	}
}

// Ends returns both end locations.
func (w *Wire) Ends() (geom.Location, geom.Location) {
	return w.End0, w.End1
}

// Key identifies the wire by its ends, smaller location first. Two wires
// with the same key are the same wire to a circuit.
func (w *Wire) Key() [2]geom.Location {
	if w.End1.Compare(w.End0) < 0 {
		return [2]geom.Location{w.End1, w.End0}
	}
	return [2]geom.Location{w.End0, w.End1}
}

// OtherEnd returns the end opposite to loc.
func (w *Wire) OtherEnd(loc geom.Location) geom.Location {
	if loc == w.End0 {
		return w.End1
	}
	return w.End0
}

func (w *Wire) Bounds() geom.Bounds {
	return geom.Spanning(w.End0, w.End1)
}

// Contains reports whether p lies on the segment.
func (w *Wire) Contains(p geom.Location) bool {
	return w.distance2(p) == 0
}

// HitTest accepts points within a small distance of the segment.
func (w *Wire) HitTest(p geom.Location) bool {
	return w.distance2(p) <= hitSlack*hitSlack
}

// distance2 is the squared distance from p to the segment, rounded down.
func (w *Wire) distance2(p geom.Location) int {
	dx := w.End1.X - w.End0.X
	dy := w.End1.Y - w.End0.Y
	px := p.X - w.End0.X
	py := p.Y - w.End0.Y
	length2 := dx*dx + dy*dy
	if length2 == 0 {
		return px*px + py*py
	}
	dot := px*dx + py*dy
	switch {
	case dot <= 0:
		return px*px + py*py
	case dot >= length2:
		qx := p.X - w.End1.X
		qy := p.Y - w.End1.Y
		return qx*qx + qy*qy
	}
	cross := px*dy - py*dx
	return cross * cross / length2
}

func (w *Wire) Label() string        { return "" }
func (w *Wire) SetLabel(string)      {}
func (w *Wire) AddListener(Listener) {}

func (w *Wire) RemoveListener(Listener) {}
