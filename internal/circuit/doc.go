// Package circuit is the live structural model of one circuit: its placed
// components, its wires and the connectivity derived from them.
//
// A Circuit is only changed through a Mutator handed to the body of a
// running Transaction. A transaction declares up front which circuits it
// reads and which it writes; the circuits' locks are then granted by a
// shared locker.Manager so that concurrent readers never observe a
// half-applied edit. Mutating without write permission panics with an
// *AccessError, since it means the calling code is broken.
//
// When an admitted component reports that its ports changed, the circuit
// reconciles the connectivity structure against the old and new port lists
// with a minimal edit set. If the change happens inside a transaction that
// already writes the circuit, the reconcile runs inline through the
// Mutator found in the context; otherwise a new write transaction is queued.
//
// Observers subscribe with Subscribe and are held weakly; see package
// listeners.
package circuit
