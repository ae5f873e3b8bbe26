// Package design owns the circuits of one design document. It is the
// owning end of every subcircuit reference: circuits refer to each other by
// comp.CircuitRef and the design resolves them.
package design

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/vk/circuitgrid/internal/circuit"
	"github.com/vk/circuitgrid/internal/comp"
	"github.com/vk/circuitgrid/internal/connstore"
	"github.com/vk/circuitgrid/internal/inmemoryconn"
	"github.com/vk/circuitgrid/internal/locker"
)

var (
	ErrDuplicateName  = errors.New("circuit name already used")
	ErrUnknownCircuit = errors.New("circuit not in design")
	ErrCircuitInUse   = errors.New("circuit is instantiated by another circuit")
)

// Design is a named collection of circuits sharing one lock manager, so a
// single transaction may span any of them.
type Design struct {
	name    string
	locks   *locker.Manager
	newConn connstore.Factory

	mu       sync.RWMutex
	circuits map[comp.CircuitRef]*circuit.Circuit
	order    []comp.CircuitRef
}

// Option configures a Design.
type Option func(*Design)

// WithConnectivity sets the connectivity factory for every circuit created
// by the design.
func WithConnectivity(f connstore.Factory) Option {
	return func(d *Design) { d.newConn = f }
}

// New creates an empty design.
func New(name string, opts ...Option) *Design {
	d := &Design{
		name:     name,
		locks:    locker.NewManager(),
		newConn:  inmemoryconn.New,
		circuits: make(map[comp.CircuitRef]*circuit.Circuit),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Design) Name() string { return d.name }

// NewCircuit creates and registers an empty circuit.
func (d *Design) NewCircuit(name string) (*circuit.Circuit, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.byNameLocked(name) != nil {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	c := circuit.New(name,
		circuit.WithLocks(d.locks),
		circuit.WithConnectivity(d.newConn),
		circuit.WithResolver(d),
	)
	d.circuits[c.ID()] = c
	d.order = append(d.order, c.ID())
	return c, nil
}

// Resolve implements circuit.Resolver.
func (d *Design) Resolve(ref comp.CircuitRef) (*circuit.Circuit, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.circuits[ref]
	return c, ok
}

// Circuit looks a circuit up by name.
func (d *Design) Circuit(name string) (*circuit.Circuit, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c := d.byNameLocked(name)
	return c, c != nil
}

func (d *Design) byNameLocked(name string) *circuit.Circuit {
	for _, ref := range d.order {
		if c := d.circuits[ref]; c.Name() == name {
			return c
		}
	}
	return nil
}

// Circuits returns the circuits in creation order.
func (d *Design) Circuits() []*circuit.Circuit {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*circuit.Circuit, 0, len(d.order))
	for _, ref := range d.order {
		out = append(out, d.circuits[ref])
	}
	return out
}

// Rename changes a circuit's name, keeping names unique.
func (d *Design) Rename(c *circuit.Circuit, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.circuits[c.ID()]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCircuit, c.Name())
	}
	if other := d.byNameLocked(name); other != nil && other != c {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	c.SetName(name)
	return nil
}

// RemoveCircuit clears c and drops it from the design. A circuit still
// instantiated elsewhere cannot be removed.
func (d *Design) RemoveCircuit(ctx context.Context, c *circuit.Circuit) error {
	if _, ok := d.Resolve(c.ID()); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCircuit, c.Name())
	}
	if users := c.CircuitsUsingThis(); len(users) > 0 {
		return fmt.Errorf("%w: %q used by %q", ErrCircuitInUse, c.Name(), users[0].Name())
	}
	err := circuit.Run(ctx, c, circuit.ReadWrite, "remove circuit", func(ctx context.Context, m *circuit.Mutator) error {
		m.Clear(ctx, c)
		return nil
	})
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.circuits, c.ID())
	d.order = slices.DeleteFunc(d.order, func(ref comp.CircuitRef) bool { return ref == c.ID() })
	return nil
}

// Modified returns the circuits changed since their flag was last cleared.
func (d *Design) Modified() []*circuit.Circuit {
	var out []*circuit.Circuit
	for _, c := range d.Circuits() {
		if c.Modified() {
			out = append(out, c)
		}
	}
	return out
}

// SubcircuitFactory returns a factory whose components instantiate c.
func SubcircuitFactory(c *circuit.Circuit) *comp.Factory {
	return &comp.Factory{Name: c.Name(), HDLName: c.Name(), Subcircuit: c.ID()}
}
