// Package locker implements fair reader/writer locks that can be claimed in
// groups.
//
// Each Lock keeps a FIFO queue of pending requests. The head of the queue is
// granted as soon as it is compatible with the current holders, and a run of
// consecutive shared requests at the head is granted together. A queued
// exclusive request therefore blocks every request submitted after it, which
// keeps writers from starving.
//
// A Ticket claims several locks at once. Submission enqueues all of a
// ticket's requests in one step under the Manager's mutex, so every queue
// sees tickets in the same global order and groups of claims cannot
// deadlock against each other. Requests are additionally ordered by lock key
// so that grant order within a ticket is deterministic.
package locker

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrForeignLock is the panic value of a Submit that names a lock created
// by another Manager.
var ErrForeignLock = errors.New("locker: claim on a lock owned by another manager")

// Mode is the access mode of a claim.
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

func (m Mode) String() string {
	switch m {
	case Shared:
		return "shared"
	case Exclusive:
		return "exclusive"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Manager owns the queues of every lock it creates.
type Manager struct {
	mu sync.Mutex
}

// NewManager creates a Manager.
func NewManager() *Manager {
	return &Manager{}
}

// Lock is a single fair reader/writer lock.
type Lock struct {
	m   *Manager
	key uint64

	queue   []*request
	readers int
	writer  bool
}

// NewLock creates a lock ordered by key within multi-lock tickets.
func (m *Manager) NewLock(key uint64) *Lock {
	return &Lock{m: m, key: key}
}

// Key returns the ordering key of the lock.
func (l *Lock) Key() uint64 { return l.key }

// State reports the holders and queue length of the lock.
func (l *Lock) State() (readers int, writer bool, waiting int) {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()
	return l.readers, l.writer, len(l.queue)
}

// Claim asks for a lock in a given mode.
type Claim struct {
	Lock *Lock
	Mode Mode
}

type request struct {
	lock    *Lock
	mode    Mode
	granted bool
	ready   chan struct{}
}

// Ticket is a submitted group of claims.
type Ticket struct {
	m        *Manager
	requests []*request
	done     bool
}

// Submit enqueues the claims and returns immediately. Duplicate claims on
// the same lock are merged, with Exclusive taking precedence.
func (m *Manager) Submit(claims ...Claim) *Ticket {
	merged := make(map[*Lock]Mode, len(claims))
	for _, c := range claims {
		if c.Lock.m != m {
			panic(ErrForeignLock)
		}
		if cur, ok := merged[c.Lock]; !ok || c.Mode > cur {
			merged[c.Lock] = c.Mode
		}
	}

	t := &Ticket{m: m}
	for l, mode := range merged {
		t.requests = append(t.requests, &request{lock: l, mode: mode, ready: make(chan struct{})})
	}
	slices.SortFunc(t.requests, func(a, b *request) int {
		return cmp.Compare(a.lock.key, b.lock.key)
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range t.requests {
		r.lock.queue = append(r.lock.queue, r)
		r.lock.grant()
	}
	return t
}

// Wait blocks until every claim of the ticket is granted. If ctx ends first
// the ticket is abandoned: granted claims are released, pending ones are
// withdrawn, and ctx.Err() is returned.
func (t *Ticket) Wait(ctx context.Context) error {
	for _, r := range t.requests {
		select {
		case <-r.ready:
		case <-ctx.Done():
			t.Release()
			return ctx.Err()
		}
	}
	return nil
}

// Granted reports whether every claim has been granted.
func (t *Ticket) Granted() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for _, r := range t.requests {
		if !r.granted {
			return false
		}
	}
	return true
}

// Release gives up every claim of the ticket. It is safe to call more than
// once.
func (t *Ticket) Release() {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	for _, r := range t.requests {
		l := r.lock
		if r.granted {
			if r.mode == Exclusive {
				l.writer = false
			} else {
				l.readers--
			}
		} else {
			l.queue = slices.DeleteFunc(l.queue, func(x *request) bool { return x == r })
		}
		l.grant()
	}
}

// grant admits compatible requests from the head of the queue. The manager
// mutex must be held.
func (l *Lock) grant() {
	for len(l.queue) > 0 {
		head := l.queue[0]
		if head.mode == Exclusive {
			if l.writer || l.readers > 0 {
				return
			}
			l.writer = true
		} else {
			if l.writer {
				return
			}
			l.readers++
		}
		head.granted = true
		close(head.ready)
		l.queue = l.queue[1:]
		if head.mode == Exclusive {
			return
		}
	}
}
