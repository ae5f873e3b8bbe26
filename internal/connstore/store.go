// Package connstore defines the interface of a circuit's connectivity
// structure: the location-indexed record of which wire ends and component
// ports touch which grid point.
//
// # Why Connectivity Store Exists
//
// The circuit graph store owns the set of placed components, but questions
// like "what is the bit width at this point" or "do two outputs drive the same
// net" are answered from connectivity, not from the component set. Keeping
// connectivity behind an interface separates the structural bookkeeping in
// package circuit from the net derivation, and lets tests substitute a
// recording implementation to observe the exact edit sequence a circuit
// applies.
//
// # Write Discipline
//
// Mutating methods are only called by a circuit while it holds write
// permission for the enclosing graph. Implementations must still be safe for
// concurrent readers, since read accessors may run outside transactions.
package connstore

import (
	"github.com/vk/circuitgrid/internal/comp"
	"github.com/vk/circuitgrid/internal/geom"
)

// Attachment is one component port sitting at a location.
type Attachment struct {
	Component comp.Component
	Port      comp.Port
}

// Net is a maximal set of locations joined by wires.
type Net struct {
	Locations []geom.Location
	// Attachments lists every non-wire port on the net.
	Attachments []Attachment
	// Width is the width fixed by the net's ports, or zero if unknown.
	Width int
	// Determinant is the location of the port that fixed Width.
	Determinant geom.Location
}

// WidthIncompatibility reports a net whose ports disagree about width.
type WidthIncompatibility struct {
	Points []geom.Location
	Widths []int
}

// Store is the connectivity structure of a single circuit.
type Store interface {
	// AddWire inserts a wire. It returns false if a wire with the same ends
	// is already present.
	AddWire(w *comp.Wire) bool
	// RemoveWire removes the wire with w's ends. It returns false if there
	// was none.
	RemoveWire(w *comp.Wire) bool
	// HasWire reports whether a wire with w's ends is present.
	HasWire(w *comp.Wire) bool

	// AddComponent registers every port of a non-wire component.
	AddComponent(c comp.Component)
	// RemoveComponent drops every port entry recorded for c, wherever it is.
	RemoveComponent(c comp.Component)

	// AddPort records one port of c at the port's location.
	AddPort(c comp.Component, p comp.Port)
	// RemovePort drops the entry for c at p's location.
	RemovePort(c comp.Component, p comp.Port)
	// ReplacePort swaps the entry for c at old's location for next without
	// an intermediate disconnection.
	ReplacePort(c comp.Component, old, next comp.Port)

	// Reset empties the structure.
	Reset()

	Wires() []*comp.Wire
	WiresAt(loc geom.Location) []*comp.Wire
	NonWiresAt(loc geom.Location) []comp.Component
	// ComponentsAt lists wires and non-wires touching loc.
	ComponentsAt(loc geom.Location) []comp.Component
	// PortAt returns the port c has recorded at loc.
	PortAt(c comp.Component, loc geom.Location) (comp.Port, bool)
	// Exclusive returns the component driving loc, or nil.
	Exclusive(loc geom.Location) comp.Component
	// HasConflict reports whether any exclusive port of c shares its
	// location with another exclusive port.
	HasConflict(c comp.Component) bool
	// ConflictAt reports whether more than one exclusive port sits at loc.
	ConflictAt(loc geom.Location) bool

	SplitLocations() []geom.Location
	SplitCauses(loc geom.Location) []comp.Component

	Width(loc geom.Location) int
	WidthDeterminant(loc geom.Location) (geom.Location, bool)
	WidthIncompatibilities() []WidthIncompatibility
	Nets() []Net

	WireBounds() geom.Bounds
}

// Factory creates an empty Store.
type Factory func() Store
