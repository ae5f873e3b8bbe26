package eventbridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/circuitgrid/internal/circuit"
	"github.com/vk/circuitgrid/internal/comp"
	"github.com/vk/circuitgrid/internal/geom"
)

type emitted struct {
	event string
	data  map[string]any
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []emitted
	fail   error
	closed bool
}

func (f *fakeEmitter) Emit(event string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	data, _ := args[0].(map[string]any)
	f.events = append(f.events, emitted{event: event, data: data})
	return nil
}

func (f *fakeEmitter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeEmitter) snapshot() []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]emitted(nil), f.events...)
}

var gate = &comp.Factory{Name: "AND Gate", HDLName: "AND_GATE"}

func newGate() *comp.Generic {
	return comp.NewGeneric(gate, geom.NewBounds(0, 0, 30, 30),
		comp.Port{Loc: geom.At(0, 10), Width: 1, Dir: comp.Input},
		comp.Port{Loc: geom.At(30, 10), Width: 1, Dir: comp.Output},
	)
}

func runBridge(t *testing.T, b *Bridge) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	return func() {
		stop()
		require.NoError(t, <-done)
	}
}

func TestBridge_RelaysNotifications(t *testing.T) {
	f := &fakeEmitter{}
	b := New(f, WithEvent("changes"))
	b.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	stop := runBridge(t, b)

	c := circuit.New("main")
	b.Watch(c)

	g := newGate()
	w := comp.NewWire(geom.At(30, 10), geom.At(60, 10))
	err := circuit.Run(context.Background(), c, circuit.ReadWrite, "edit", func(ctx context.Context, m *circuit.Mutator) error {
		m.Add(ctx, c, g)
		m.Add(ctx, c, w)
		m.Clear(ctx, c)
		return nil
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(f.snapshot()) == 3 }, time.Second, 5*time.Millisecond)
	stop()

	got := f.snapshot()
	assert.Equal(t, "changes", got[0].event)
	assert.Equal(t, "added", got[0].data["action"])
	assert.Equal(t, "main", got[0].data["circuit"])
	assert.Equal(t, g.ID().String(), got[0].data["component"])
	assert.Equal(t, "AND Gate", got[0].data["factory"])
	assert.Equal(t, "2026-01-02T03:04:05Z", got[0].data["time"])

	assert.Equal(t, "added", got[1].data["action"])
	assert.Equal(t, w.ID().String(), got[1].data["component"])

	assert.Equal(t, "cleared", got[2].data["action"])
	assert.NotContains(t, got[2].data, "component")
	assert.ElementsMatch(t, []any{g.ID().String(), w.ID().String()}, got[2].data["prior"])

	f.mu.Lock()
	assert.True(t, f.closed, "Run closes the emitter on shutdown")
	f.mu.Unlock()
}

func TestBridge_WatchTwiceAndUnwatch(t *testing.T) {
	f := &fakeEmitter{}
	b := New(f)
	stop := runBridge(t, b)
	defer stop()

	c := circuit.New("main")
	b.Watch(c)
	b.Watch(c)

	add := func() {
		err := circuit.Run(context.Background(), c, circuit.ReadWrite, "add", func(ctx context.Context, m *circuit.Mutator) error {
			m.Add(ctx, c, newGate())
			return nil
		})
		require.NoError(t, err)
	}

	add()
	require.Eventually(t, func() bool { return len(f.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	b.Unwatch(c)
	add()
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, f.snapshot(), 1)
}

func TestBridge_FullQueueDrops(t *testing.T) {
	f := &fakeEmitter{}
	b := New(f, WithQueueSize(1))

	c := circuit.New("main")
	b.Watch(c)
	err := circuit.Run(context.Background(), c, circuit.ReadWrite, "burst", func(ctx context.Context, m *circuit.Mutator) error {
		for range 3 {
			m.Add(ctx, c, newGate())
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(2), b.Dropped())

	stop := runBridge(t, b)
	require.Eventually(t, func() bool { return len(f.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	stop()
}

func TestBridge_EmitErrorKeepsRunning(t *testing.T) {
	f := &fakeEmitter{fail: errors.New("boom")}
	b := New(f)
	stop := runBridge(t, b)

	c := circuit.New("main")
	b.Watch(c)
	err := circuit.Run(context.Background(), c, circuit.ReadWrite, "add", func(ctx context.Context, m *circuit.Mutator) error {
		m.Add(ctx, c, newGate())
		return nil
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(b.queue) == 0 }, time.Second, 5*time.Millisecond)

	f.mu.Lock()
	f.fail = nil
	f.mu.Unlock()

	err = circuit.Run(context.Background(), c, circuit.ReadWrite, "add", func(ctx context.Context, m *circuit.Mutator) error {
		m.Add(ctx, c, newGate())
		return nil
	})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(f.snapshot()) >= 1 }, time.Second, 5*time.Millisecond)
	stop()
}

func TestDial_RejectsBadURL(t *testing.T) {
	_, err := Dial(context.Background(), Config{URL: "not a url"})
	require.Error(t, err)
}
