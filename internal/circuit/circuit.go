package circuit

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/vk/circuitgrid/internal/comp"
	"github.com/vk/circuitgrid/internal/connstore"
	"github.com/vk/circuitgrid/internal/ctxlog"
	"github.com/vk/circuitgrid/internal/inmemoryconn"
	"github.com/vk/circuitgrid/internal/listeners"
	"github.com/vk/circuitgrid/internal/locker"
)

var (
	nextID       atomic.Uint64
	defaultLocks = locker.NewManager()
)

// Resolver finds the circuit a subcircuit reference points at.
type Resolver interface {
	Resolve(ref comp.CircuitRef) (*Circuit, bool)
}

// Option configures a Circuit.
type Option func(*Circuit)

// WithLocks makes the circuit's lock part of m. Circuits that are written
// together by one transaction must share a manager.
func WithLocks(m *locker.Manager) Option {
	return func(c *Circuit) { c.locks = m }
}

// WithConnectivity sets the factory for the connectivity structure.
func WithConnectivity(f connstore.Factory) Option {
	return func(c *Circuit) { c.newConn = f }
}

// WithResolver sets the resolver used for subcircuit back-references.
func WithResolver(r Resolver) Option {
	return func(c *Circuit) { c.resolver = r }
}

type derived struct {
	value any
}

// Circuit is the graph store of a single circuit.
type Circuit struct {
	id       comp.CircuitRef
	locks    *locker.Manager
	lock     *locker.Lock
	newConn  connstore.Factory
	resolver Resolver
	watcher  *portWatcher

	mu        sync.RWMutex
	name      string
	nonWires  map[comp.ID]comp.Component
	conn      connstore.Store
	clocks    []comp.Component
	instances map[comp.ID]comp.CircuitRef

	version    atomic.Uint64
	generation atomic.Uint64
	annotated  atomic.Bool
	modified   atomic.Bool
	derived    atomic.Pointer[derived]

	usedMu sync.Mutex
	usedBy map[comp.ID]*Circuit

	listeners listeners.Registry[Listener]
}

// New creates an empty, named circuit.
func New(name string, opts ...Option) *Circuit {
	c := &Circuit{
		id:        comp.CircuitRef(nextID.Add(1)),
		locks:     defaultLocks,
		newConn:   inmemoryconn.New,
		name:      name,
		nonWires:  make(map[comp.ID]comp.Component),
		instances: make(map[comp.ID]comp.CircuitRef),
		usedBy:    make(map[comp.ID]*Circuit),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lock = c.locks.NewLock(uint64(c.id))
	c.conn = c.newConn()
	c.watcher = &portWatcher{c: c}
	return c
}

// ID is the circuit's reference, usable as a comp.Factory subcircuit.
func (c *Circuit) ID() comp.CircuitRef { return c.id }

func (c *Circuit) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

func (c *Circuit) SetName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
}

func (c *Circuit) String() string { return c.Name() }

func (c *Circuit) logger(ctx context.Context) *slog.Logger {
	return ctxlog.Or(ctx, slog.Default()).With("circuit", c.Name())
}

// Subscribe registers l for structural notifications. The registration
// lasts as long as the returned subscription is reachable.
func (c *Circuit) Subscribe(l Listener) *listeners.Subscription[Listener] {
	return c.listeners.Add(l)
}

func (c *Circuit) fire(ctx context.Context, e Event) {
	e.Circuit = c
	mutationsTotal.WithLabelValues(e.Action.String()).Inc()
	c.listeners.Each(func(l Listener) { l.CircuitChanged(ctx, e) })
}

// invalidateLocked drops every derived cache. c.mu must be held for writing.
func (c *Circuit) invalidateLocked() {
	c.version.Add(1)
	c.derived.Store(nil)
	c.annotated.Store(false)
}

// Version increases on every structural change.
func (c *Circuit) Version() uint64 { return c.version.Load() }

// Derived returns the cached secondary graph, if one is fresh.
func (c *Circuit) Derived() (any, bool) {
	d := c.derived.Load()
	if d == nil {
		return nil, false
	}
	return d.value, true
}

// StoreDerived caches v as the secondary graph computed at version. It is
// dropped, and false returned, if the circuit changed since.
func (c *Circuit) StoreDerived(version uint64, v any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version.Load() != version {
		return false
	}
	c.derived.Store(&derived{value: v})
	return true
}

func (c *Circuit) IsAnnotated() bool { return c.annotated.Load() }

// MarkAnnotated records that every labelled component present at version
// has a label. Nothing is recorded, and false returned, if the circuit
// changed since.
func (c *Circuit) MarkAnnotated(version uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version.Load() != version {
		return false
	}
	c.annotated.Store(true)
	return true
}

// ClearAnnotationLevel resets the annotated flag and the derived cache of
// this circuit and every subcircuit it instantiates.
func (c *Circuit) ClearAnnotationLevel() {
	c.clearAnnotation(make(map[comp.CircuitRef]bool))
}

func (c *Circuit) clearAnnotation(seen map[comp.CircuitRef]bool) {
	if seen[c.id] {
		return
	}
	seen[c.id] = true
	c.annotated.Store(false)
	c.derived.Store(nil)
	for _, sub := range c.Subcircuits() {
		sub.clearAnnotation(seen)
	}
}

// Modified reports whether a write transaction changed the circuit since
// the last ClearModified.
func (c *Circuit) Modified() bool { return c.modified.Load() }

// ClearModified resets the modified flag, typically after saving.
func (c *Circuit) ClearModified() { c.modified.Store(false) }

// Generation counts the write transactions that modified the circuit.
func (c *Circuit) Generation() uint64 { return c.generation.Load() }

func (c *Circuit) markModified() {
	c.modified.Store(true)
	c.generation.Add(1)
	modifiedTotal.Inc()
}

// Subcircuits resolves the circuits instantiated by this one, ordered by ID.
// Unresolvable references are skipped.
func (c *Circuit) Subcircuits() []*Circuit {
	if c.resolver == nil {
		return nil
	}
	c.mu.RLock()
	refs := make(map[comp.CircuitRef]struct{}, len(c.instances))
	for _, ref := range c.instances {
		refs[ref] = struct{}{}
	}
	c.mu.RUnlock()

	var out []*Circuit
	for ref := range refs {
		if sub, ok := c.resolver.Resolve(ref); ok {
			out = append(out, sub)
		}
	}
	slices.SortFunc(out, func(a, b *Circuit) int { return cmp.Compare(a.id, b.id) })
	return out
}

// SubcircuitRefs returns the subcircuit reference of every contained
// subcircuit instance, keyed by the instance's ID.
func (c *Circuit) SubcircuitRefs() map[comp.ID]comp.CircuitRef {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[comp.ID]comp.CircuitRef, len(c.instances))
	for id, ref := range c.instances {
		out[id] = ref
	}
	return out
}

// CircuitsUsingThis returns the circuits that instantiate this one.
func (c *Circuit) CircuitsUsingThis() []*Circuit {
	c.usedMu.Lock()
	defer c.usedMu.Unlock()
	var out []*Circuit
	for _, host := range c.usedBy {
		if !slices.Contains(out, host) {
			out = append(out, host)
		}
	}
	slices.SortFunc(out, func(a, b *Circuit) int { return cmp.Compare(a.id, b.id) })
	return out
}

func (c *Circuit) linkSubcircuit(x comp.Component, ref comp.CircuitRef) {
	if c.resolver == nil {
		return
	}
	if sub, ok := c.resolver.Resolve(ref); ok {
		sub.usedMu.Lock()
		sub.usedBy[x.ID()] = c
		sub.usedMu.Unlock()
	}
}

func (c *Circuit) unlinkSubcircuit(x comp.Component, ref comp.CircuitRef) {
	if c.resolver == nil {
		return
	}
	if sub, ok := c.resolver.Resolve(ref); ok {
		sub.usedMu.Lock()
		delete(sub.usedBy, x.ID())
		sub.usedMu.Unlock()
	}
}
