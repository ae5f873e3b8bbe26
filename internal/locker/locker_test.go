package locker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustWait(t *testing.T, tk *Ticket) {
	t.Helper()
	require.NoError(t, tk.Wait(context.Background()))
}

func TestSharedClaimsRunTogether(t *testing.T) {
	m := NewManager()
	l := m.NewLock(1)

	a := m.Submit(Claim{Lock: l, Mode: Shared})
	b := m.Submit(Claim{Lock: l, Mode: Shared})
	assert.True(t, a.Granted())
	assert.True(t, b.Granted())

	readers, writer, waiting := l.State()
	assert.Equal(t, 2, readers)
	assert.False(t, writer)
	assert.Zero(t, waiting)

	a.Release()
	b.Release()
	readers, _, _ = l.State()
	assert.Zero(t, readers)
}

func TestExclusiveWaitsForReaders(t *testing.T) {
	m := NewManager()
	l := m.NewLock(1)

	r := m.Submit(Claim{Lock: l, Mode: Shared})
	w := m.Submit(Claim{Lock: l, Mode: Exclusive})
	assert.False(t, w.Granted())

	r.Release()
	mustWait(t, w)
	_, writer, _ := l.State()
	assert.True(t, writer)
	w.Release()
}

func TestReaderQueuesBehindWaitingWriter(t *testing.T) {
	m := NewManager()
	l := m.NewLock(1)

	r1 := m.Submit(Claim{Lock: l, Mode: Shared})
	w := m.Submit(Claim{Lock: l, Mode: Exclusive})
	r2 := m.Submit(Claim{Lock: l, Mode: Shared})

	assert.True(t, r1.Granted())
	assert.False(t, w.Granted())
	assert.False(t, r2.Granted(), "a later reader must not overtake a waiting writer")

	r1.Release()
	assert.True(t, w.Granted())
	assert.False(t, r2.Granted())

	w.Release()
	assert.True(t, r2.Granted())
	r2.Release()
}

func TestReadBatchAtHead(t *testing.T) {
	m := NewManager()
	l := m.NewLock(1)

	w := m.Submit(Claim{Lock: l, Mode: Exclusive})
	r1 := m.Submit(Claim{Lock: l, Mode: Shared})
	r2 := m.Submit(Claim{Lock: l, Mode: Shared})
	w2 := m.Submit(Claim{Lock: l, Mode: Exclusive})

	w.Release()
	assert.True(t, r1.Granted())
	assert.True(t, r2.Granted())
	assert.False(t, w2.Granted())

	r1.Release()
	r2.Release()
	assert.True(t, w2.Granted())
	w2.Release()
}

func TestDuplicateClaimsMerge(t *testing.T) {
	m := NewManager()
	l := m.NewLock(1)

	tk := m.Submit(Claim{Lock: l, Mode: Shared}, Claim{Lock: l, Mode: Exclusive})
	mustWait(t, tk)
	readers, writer, _ := l.State()
	assert.Zero(t, readers)
	assert.True(t, writer)
	tk.Release()
}

func TestReleaseIsIdempotent(t *testing.T) {
	m := NewManager()
	l := m.NewLock(1)
	tk := m.Submit(Claim{Lock: l, Mode: Shared})
	tk.Release()
	tk.Release()
	readers, _, _ := l.State()
	assert.Zero(t, readers)
}

func TestWaitCancelWithdrawsRequest(t *testing.T) {
	m := NewManager()
	l := m.NewLock(1)

	held := m.Submit(Claim{Lock: l, Mode: Exclusive})
	pending := m.Submit(Claim{Lock: l, Mode: Exclusive})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, pending.Wait(ctx), context.Canceled)

	_, _, waiting := l.State()
	assert.Zero(t, waiting)
	held.Release()
	_, writer, _ := l.State()
	assert.False(t, writer)
}

func TestForeignLockPanics(t *testing.T) {
	a, b := NewManager(), NewManager()
	l := b.NewLock(1)
	assert.PanicsWithValue(t, ErrForeignLock, func() { a.Submit(Claim{Lock: l, Mode: Shared}) })
}

func TestExclusiveMutualExclusion(t *testing.T) {
	m := NewManager()
	l := m.NewLock(1)

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tk := m.Submit(Claim{Lock: l, Mode: Exclusive})
			if err := tk.Wait(context.Background()); err != nil {
				return
			}
			n := inside.Add(1)
			for {
				cur := maxInside.Load()
				if n <= cur || maxInside.CompareAndSwap(cur, n) {
					break
				}
			}
			time.Sleep(time.Microsecond)
			inside.Add(-1)
			tk.Release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside.Load())
}

func TestOpposingGroupsDoNotDeadlock(t *testing.T) {
	m := NewManager()
	a := m.NewLock(1)
	b := m.NewLock(2)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			tk := m.Submit(Claim{Lock: a, Mode: Exclusive}, Claim{Lock: b, Mode: Exclusive})
			_ = tk.Wait(context.Background())
			tk.Release()
		}()
		go func() {
			defer wg.Done()
			tk := m.Submit(Claim{Lock: b, Mode: Exclusive}, Claim{Lock: a, Mode: Shared})
			_ = tk.Wait(context.Background())
			tk.Release()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("lock groups deadlocked")
	}
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "shared", Shared.String())
	assert.Equal(t, "exclusive", Exclusive.String())
	assert.Equal(t, "Mode(7)", Mode(7).String())
}
