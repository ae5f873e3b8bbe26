package circuit

import (
	"context"
	"sync"

	"github.com/vk/circuitgrid/internal/comp"
)

// Mutator is the capability through which a running transaction changes
// circuits. Every method panics with an *AccessError if the transaction is
// not running or lacks write access to the circuit.
type Mutator struct {
	txn    *Transaction
	access map[*Circuit]Access

	mu      sync.Mutex
	written map[*Circuit]struct{}
}

// Transaction returns the transaction the mutator belongs to.
func (m *Mutator) Transaction() *Transaction { return m.txn }

// CanWrite reports whether the running transaction may mutate c.
func (m *Mutator) CanWrite(c *Circuit) bool {
	return m.txn.State() == Running && m.access[c] == ReadWrite
}

// Declares reports whether the transaction declared c at any level.
func (m *Mutator) Declares(c *Circuit) bool {
	_, ok := m.access[c]
	return ok
}

func (m *Mutator) check(c *Circuit, op string) {
	if m.txn.State() != Running {
		panic(&AccessError{Op: op, Circuit: c.Name(), Err: ErrTransactionNotRunning})
	}
	a, ok := m.access[c]
	if !ok {
		panic(&AccessError{Op: op, Circuit: c.Name(), Err: ErrUndeclaredCircuit})
	}
	if a != ReadWrite {
		panic(&AccessError{Op: op, Circuit: c.Name(), Err: ErrNoWritePermission})
	}
	m.mu.Lock()
	m.written[c] = struct{}{}
	m.mu.Unlock()
}

// Add admits x into c. Admitting a present component or a degenerate wire
// does nothing.
func (m *Mutator) Add(ctx context.Context, c *Circuit, x comp.Component) {
	m.check(c, "add")
	c.admit(ctx, x)
}

// Remove evicts x from c. Removing an absent component does nothing.
func (m *Mutator) Remove(ctx context.Context, c *Circuit, x comp.Component) {
	m.check(c, "remove")
	c.evict(ctx, x)
}

// Clear empties c.
func (m *Mutator) Clear(ctx context.Context, c *Circuit) {
	m.check(c, "clear")
	c.resetAll(ctx)
}

// ReconcilePorts updates c's connectivity for x from old to next ports.
func (m *Mutator) ReconcilePorts(ctx context.Context, c *Circuit, x comp.Component, old, next []comp.Port) {
	m.check(c, "reconcile ports")
	c.reconcilePorts(ctx, x, old, next)
}

// finish marks every written circuit modified once.
func (m *Mutator) finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for c := range m.written {
		c.markModified()
	}
}

type mutatorKey struct{}

// WithMutator returns a context carrying m.
func WithMutator(ctx context.Context, m *Mutator) context.Context {
	return context.WithValue(ctx, mutatorKey{}, m)
}

// MutatorFrom returns the Mutator of the running transaction carried by ctx.
// A mutator whose transaction has completed is not returned.
func MutatorFrom(ctx context.Context) (*Mutator, bool) {
	m, ok := ctx.Value(mutatorKey{}).(*Mutator)
	if !ok || m.txn.State() != Running {
		return nil, false
	}
	return m, true
}
