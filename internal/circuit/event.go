package circuit

import (
	"context"
	"fmt"

	"github.com/vk/circuitgrid/internal/comp"
)

// Action tags a structural notification.
type Action int

const (
	Added Action = iota + 1
	Removed
	Cleared
	Invalidated
)

func (a Action) String() string {
	switch a {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Cleared:
		return "cleared"
	case Invalidated:
		return "invalidated"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Event is raised once per structural change.
type Event struct {
	Action  Action
	Circuit *Circuit
	// Component is the subject of Added, Removed and Invalidated.
	Component comp.Component
	// Prior holds the non-wire components present before a clear.
	Prior []comp.Component
	// PriorWires holds the wires present before a clear.
	PriorWires []*comp.Wire
}

// Listener observes structural changes of a circuit. Notifications are
// delivered synchronously from the goroutine that made the change, inside
// its write transaction.
type Listener interface {
	CircuitChanged(ctx context.Context, e Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, e Event)

func (f ListenerFunc) CircuitChanged(ctx context.Context, e Event) { f(ctx, e) }
