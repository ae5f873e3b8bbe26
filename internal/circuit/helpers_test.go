package circuit

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/circuitgrid/internal/comp"
	"github.com/vk/circuitgrid/internal/connstore"
	"github.com/vk/circuitgrid/internal/geom"
	"github.com/vk/circuitgrid/internal/inmemoryconn"
)

var (
	gateFactory  = &comp.Factory{Name: "AND Gate", HDLName: "AND_GATE", RequiresLabel: true}
	clockFactory = &comp.Factory{Name: "Clock", HDLName: "CLOCK", Clock: true}
)

func port(x, y, width int, dir comp.Direction) comp.Port {
	return comp.Port{Loc: geom.At(x, y), Width: width, Dir: dir}
}

func newGate(ports ...comp.Port) *comp.Generic {
	return comp.NewGeneric(gateFactory, geom.NewBounds(0, 0, 30, 30), ports...)
}

// recorder collects circuit events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) CircuitChanged(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) count(a Action) int {
	n := 0
	for _, e := range r.snapshot() {
		if e.Action == a {
			n++
		}
	}
	return n
}

func subscribe(t *testing.T, c *Circuit) *recorder {
	t.Helper()
	r := &recorder{}
	sub := c.Subscribe(r)
	t.Cleanup(sub.Close)
	return r
}

func write(t *testing.T, c *Circuit, body func(ctx context.Context, m *Mutator)) {
	t.Helper()
	err := Run(context.Background(), c, ReadWrite, t.Name(), func(ctx context.Context, m *Mutator) error {
		body(ctx, m)
		return nil
	})
	require.NoError(t, err)
}

func add(t *testing.T, c *Circuit, xs ...comp.Component) {
	t.Helper()
	write(t, c, func(ctx context.Context, m *Mutator) {
		for _, x := range xs {
			m.Add(ctx, c, x)
		}
	})
}

// recordingStore logs the port edits applied to it.
type recordingStore struct {
	connstore.Store
	mu  sync.Mutex
	ops []string
}

func newRecordingStore() *recordingStore {
	return &recordingStore{Store: inmemoryconn.New()}
}

func (r *recordingStore) log(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, fmt.Sprintf(format, args...))
}

func (r *recordingStore) AddPort(c comp.Component, p comp.Port) {
	r.log("add %s", p.Loc)
	r.Store.AddPort(c, p)
}

func (r *recordingStore) RemovePort(c comp.Component, p comp.Port) {
	r.log("remove %s", p.Loc)
	r.Store.RemovePort(c, p)
}

func (r *recordingStore) ReplacePort(c comp.Component, old, next comp.Port) {
	r.log("replace %s", old.Loc)
	r.Store.ReplacePort(c, old, next)
}

func (r *recordingStore) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = nil
}

func (r *recordingStore) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ops...)
}

// mapResolver resolves subcircuit references from a fixed set.
type mapResolver map[comp.CircuitRef]*Circuit

func (r mapResolver) Resolve(ref comp.CircuitRef) (*Circuit, bool) {
	c, ok := r[ref]
	return c, ok
}
