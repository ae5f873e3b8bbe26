package circuit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/circuitgrid/internal/comp"
	"github.com/vk/circuitgrid/internal/connstore"
	"github.com/vk/circuitgrid/internal/geom"
	"github.com/vk/circuitgrid/internal/locker"
)

func misuse(t *testing.T, want error, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		v := recover()
		require.NotNil(t, v, "expected a misuse panic")
		require.True(t, IsMisuse(v), "panic value %v", v)
		assert.ErrorIs(t, v.(error), want)
	}()
	fn()
}

func TestTransactionStates(t *testing.T) {
	c := New("main")
	txn := NewTransaction("states").Write(c)
	assert.Equal(t, Unsubmitted, txn.State())

	var during State
	require.NoError(t, txn.Execute(context.Background(), func(ctx context.Context, m *Mutator) error {
		during = m.Transaction().State()
		return nil
	}))
	assert.Equal(t, Running, during)
	assert.Equal(t, Completed, txn.State())
}

func TestTransaction_DeclareUpgradesAccess(t *testing.T) {
	c := New("main")
	txn := NewTransaction("x").Read(c).Write(c).Read(c)
	a, ok := txn.AccessTo(c)
	require.True(t, ok)
	assert.Equal(t, ReadWrite, a)
}

func TestTransaction_ReuseIsMisuse(t *testing.T) {
	c := New("main")
	txn := NewTransaction("once").Read(c)
	require.NoError(t, txn.Execute(context.Background(), func(context.Context, *Mutator) error { return nil }))

	misuse(t, ErrTransactionReused, func() {
		_ = txn.Execute(context.Background(), func(context.Context, *Mutator) error { return nil })
	})
	misuse(t, ErrTransactionReused, func() { txn.Write(c) })
}

func TestTransaction_BodyErrorIsWrapped(t *testing.T) {
	c := New("main")
	boom := errors.New("boom")
	txn := NewTransaction("fails").Write(c)
	err := txn.Execute(context.Background(), func(context.Context, *Mutator) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), txn.ID().String())
}

func TestMutator_WriteWithoutPermissionPanics(t *testing.T) {
	c := New("main")
	g := newGate()

	misuse(t, ErrNoWritePermission, func() {
		_ = Run(context.Background(), c, Read, "read only", func(ctx context.Context, m *Mutator) error {
			m.Add(ctx, c, g)
			return nil
		})
	})
	assert.False(t, c.Contains(g))
}

func TestMutator_UndeclaredCircuitPanics(t *testing.T) {
	c, other := New("main"), New("other")
	misuse(t, ErrUndeclaredCircuit, func() {
		_ = Run(context.Background(), c, ReadWrite, "wrong circuit", func(ctx context.Context, m *Mutator) error {
			m.Clear(ctx, other)
			return nil
		})
	})
}

func TestMutator_UseAfterCompletionPanics(t *testing.T) {
	c := New("main")
	var leaked *Mutator
	write(t, c, func(_ context.Context, m *Mutator) { leaked = m })

	misuse(t, ErrTransactionNotRunning, func() {
		leaked.Add(context.Background(), c, newGate())
	})
}

func TestPanickingBodyReleasesLocks(t *testing.T) {
	c := New("main")
	assert.Panics(t, func() {
		_ = Run(context.Background(), c, ReadWrite, "panics", func(context.Context, *Mutator) error {
			panic("body failed")
		})
	})
	assert.False(t, c.Modified(), "a panicking body marks nothing modified")

	done := make(chan struct{})
	go func() {
		defer close(done)
		add(t, c, newGate())
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("lock was not released after panic")
	}
}

func TestModifiedMarkedOncePerTransaction(t *testing.T) {
	c := New("main")
	assert.False(t, c.Modified())

	add(t, c, newGate(), newGate(), newGate())
	assert.True(t, c.Modified())
	assert.Equal(t, uint64(1), c.Generation())

	require.NoError(t, Run(context.Background(), c, Read, "reader", func(context.Context, *Mutator) error { return nil }))
	assert.Equal(t, uint64(1), c.Generation())

	write(t, c, func(context.Context, *Mutator) {})
	assert.Equal(t, uint64(1), c.Generation(), "declaring write access alone does not modify")

	c.ClearModified()
	assert.False(t, c.Modified())
	add(t, c, newGate())
	assert.True(t, c.Modified())
	assert.Equal(t, uint64(2), c.Generation())
}

func TestMultiCircuitTransaction(t *testing.T) {
	locks := locker.NewManager()
	a := New("a", WithLocks(locks))
	b := New("b", WithLocks(locks))
	ga, gb := newGate(), newGate()

	txn := NewTransaction("move").Write(a, b)
	require.NoError(t, txn.Execute(context.Background(), func(ctx context.Context, m *Mutator) error {
		m.Add(ctx, a, ga)
		m.Add(ctx, b, gb)
		return nil
	}))
	assert.True(t, a.Contains(ga))
	assert.True(t, b.Contains(gb))
	assert.True(t, a.Modified())
	assert.True(t, b.Modified())
}

func TestMultiCircuitTransaction_MixedLockersIsMisuse(t *testing.T) {
	a := New("a", WithLocks(locker.NewManager()))
	b := New("b", WithLocks(locker.NewManager()))
	txn := NewTransaction("mixed").Read(a).Write(b)

	ran := false
	misuse(t, ErrMixedLockers, func() {
		_ = txn.Execute(context.Background(), func(context.Context, *Mutator) error {
			ran = true
			return nil
		})
	})
	assert.False(t, ran)
	assert.Equal(t, Completed, txn.State())
}

func TestPortChangeInsideWriteTransactionRunsInline(t *testing.T) {
	store := newRecordingStore()
	c := New("main", WithConnectivity(func() connstore.Store { return store }))
	g := newGate(port(0, 0, 1, comp.Input))
	add(t, c, g)
	store.reset()

	done := make(chan struct{})
	go func() {
		defer close(done)
		write(t, c, func(ctx context.Context, m *Mutator) {
			g.SetPorts(ctx, []comp.Port{port(0, 10, 1, comp.Input)})
		})
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("inline reconcile deadlocked")
	}
	assert.Equal(t, []string{"remove (0,0)", "add (0,10)"}, store.recorded())
	assert.Equal(t, uint64(2), c.Generation())
}

func TestPortChangeInsideReadTransactionIsMisuse(t *testing.T) {
	c := New("main")
	g := newGate(port(0, 0, 1, comp.Input))
	add(t, c, g)

	misuse(t, ErrNoWritePermission, func() {
		_ = Run(context.Background(), c, Read, "reader", func(ctx context.Context, m *Mutator) error {
			g.SetPorts(ctx, []comp.Port{port(0, 10, 1, comp.Input)})
			return nil
		})
	})
}

func TestPortChangeQueuesBehindRunningTransaction(t *testing.T) {
	c := New("main")
	g := newGate(port(0, 0, 1, comp.Input))
	add(t, c, g)

	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = Run(context.Background(), c, Read, "holder", func(context.Context, *Mutator) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	changed := make(chan struct{})
	go func() {
		defer close(changed)
		g.SetPorts(context.Background(), []comp.Port{port(0, 10, 1, comp.Input)})
	}()

	require.Eventually(t, func() bool {
		_, _, waiting := c.lock.State()
		return waiting == 1
	}, 5*time.Second, time.Millisecond)
	assert.Equal(t, []comp.Component{g}, c.NonWiresAt(geom.At(0, 0)), "reconcile must wait for the reader")

	close(release)
	<-changed
	assert.Empty(t, c.NonWiresAt(geom.At(0, 0)))
	assert.Equal(t, []comp.Component{g}, c.NonWiresAt(geom.At(0, 10)))
}

func TestWaitCanceled(t *testing.T) {
	c := New("main")
	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = Run(context.Background(), c, ReadWrite, "holder", func(context.Context, *Mutator) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	ran := false
	txn := NewTransaction("impatient").Read(c)
	err := txn.Execute(ctx, func(context.Context, *Mutator) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ran)
	assert.Equal(t, Completed, txn.State())
}

func TestWriteTransactionsAreMutuallyExclusive(t *testing.T) {
	c := New("main")
	var running, maxRunning atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := Run(context.Background(), c, ReadWrite, "writer", func(ctx context.Context, m *Mutator) error {
				n := running.Add(1)
				for {
					cur := maxRunning.Load()
					if n <= cur || maxRunning.CompareAndSwap(cur, n) {
						break
					}
				}
				m.Add(ctx, c, newGate())
				time.Sleep(100 * time.Microsecond)
				running.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxRunning.Load())
	assert.Len(t, c.NonWires(), 50)
}

func TestReadersNeverSeeTornWrites(t *testing.T) {
	c := New("main")
	var wg sync.WaitGroup
	var torn atomic.Int32

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			write(t, c, func(ctx context.Context, m *Mutator) {
				// each batch adds a pair of wires
				m.Add(ctx, c, comp.NewWire(geom.At(i*10, 0), geom.At(i*10, 5)))
				time.Sleep(50 * time.Microsecond)
				m.Add(ctx, c, comp.NewWire(geom.At(i*10, 100), geom.At(i*10, 105)))
			})
		}(i)
		go func() {
			defer wg.Done()
			_ = Run(context.Background(), c, Read, "reader", func(context.Context, *Mutator) error {
				if len(c.Wires())%2 != 0 {
					torn.Add(1)
				}
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Zero(t, torn.Load())
	assert.Len(t, c.Wires(), 100)
}

func TestPendingWriteBlocksLaterReads(t *testing.T) {
	c := New("main")
	var mu sync.Mutex
	var order []string
	record := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = Run(context.Background(), c, Read, "first reader", func(context.Context, *Mutator) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		write(t, c, func(context.Context, *Mutator) { record("write") })
	}()
	require.Eventually(t, func() bool {
		_, _, waiting := c.lock.State()
		return waiting == 1
	}, 5*time.Second, time.Millisecond)

	go func() {
		defer wg.Done()
		_ = Run(context.Background(), c, Read, "late reader", func(context.Context, *Mutator) error {
			record("read")
			return nil
		})
	}()
	require.Eventually(t, func() bool {
		_, _, waiting := c.lock.State()
		return waiting == 2
	}, 5*time.Second, time.Millisecond)

	close(release)
	wg.Wait()
	assert.Equal(t, []string{"write", "read"}, order)
}

func TestMutatorFrom(t *testing.T) {
	_, ok := MutatorFrom(context.Background())
	assert.False(t, ok)

	c := New("main")
	var inner *Mutator
	var innerCtx context.Context
	write(t, c, func(ctx context.Context, m *Mutator) {
		inner, _ = MutatorFrom(ctx)
		innerCtx = ctx
	})
	assert.NotNil(t, inner)
	_, ok = MutatorFrom(innerCtx)
	assert.False(t, ok, "completed transactions are not carried")
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "write", ReadWrite.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "cleared", Cleared.String())
}
