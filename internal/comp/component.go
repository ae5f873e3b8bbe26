package comp

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/vk/circuitgrid/internal/geom"
)

// ID identifies a component for its whole lifetime. IDs are never reused.
type ID uint64

var lastID atomic.Uint64

// NewID allocates a fresh component ID.
func NewID() ID {
	return ID(lastID.Add(1))
}

func (id ID) String() string {
	return fmt.Sprintf("c%d", uint64(id))
}

// CircuitRef is a lookup-only reference to a circuit owned by a design.
// The zero value refers to no circuit.
type CircuitRef uint64

// Direction is the signal direction of a port.
type Direction uint8

const (
	Input Direction = iota
	Output
	Bidirectional
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	case Bidirectional:
		return "bidirectional"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// ParseDirection converts a configuration string into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "input", "in":
		return Input, nil
	case "output", "out":
		return Output, nil
	case "bidirectional", "inout", "":
		return Bidirectional, nil
	}
	return 0, fmt.Errorf("unknown port direction %q", s)
}

// Port is an immutable snapshot of one connection point. A Width of zero
// means the width is not fixed by this port.
type Port struct {
	Loc   geom.Location
	Width int
	Dir   Direction
}

// Exclusive reports whether the port drives its location. Two exclusive
// ports at the same location conflict.
func (p Port) Exclusive() bool {
	return p.Dir == Output
}

// IsInput reports whether the port can receive a value.
func (p Port) IsInput() bool {
	return p.Dir != Output
}

// IsOutput reports whether the port can drive a value.
func (p Port) IsOutput() bool {
	return p.Dir != Input
}

// Factory describes the behavior class of a component. Factories are shared
// by every component they create and must not be mutated after use.
type Factory struct {
	Name string
	// HDLName is the base name used when labels are generated.
	HDLName string
	// Clock marks clock-like components tracked in a circuit's clock list.
	Clock bool
	// Pin marks circuit pins, whose generated labels depend on direction and width.
	Pin bool
	// RequiresLabel marks components that must carry a non-empty label for
	// code generation.
	RequiresLabel bool
	// Memory marks components whose cell values are held in a
	// memcontents.Contents.
	Memory bool
	// Subcircuit is set when the component instantiates another circuit.
	Subcircuit CircuitRef
}

// Event describes a change reported by a component.
type Event struct {
	Source Component
	Old    []Port
	New    []Port
}

// Listener observes component-level changes. Listeners are compared by
// equality on removal, so implementations are normally pointers.
type Listener interface {
	// PortsChanged is called after the component's port list changed shape.
	// ctx is the context handed to the call that changed the ports.
	PortsChanged(ctx context.Context, e Event)
	// Invalidated is called when the component's appearance changed without
	// any structural effect.
	Invalidated(ctx context.Context, e Event)
}

// Component is a placed element of a circuit.
type Component interface {
	ID() ID
	Factory() *Factory
	// Ports returns a copy of the current port list.
	Ports() []Port
	Bounds() geom.Bounds
	// Contains tests the point against the component's bounds.
	Contains(p geom.Location) bool
	// HitTest tests the point against the component's exact shape.
	HitTest(p geom.Location) bool
	Label() string
	SetLabel(label string)
	AddListener(l Listener)
	RemoveListener(l Listener)
}
