package circuit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vk/circuitgrid/internal/ctxlog"
	"github.com/vk/circuitgrid/internal/locker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Access is the level a transaction declares for a circuit.
type Access int

const (
	Read Access = iota + 1
	ReadWrite
)

func (a Access) String() string {
	switch a {
	case Read:
		return "read"
	case ReadWrite:
		return "write"
	default:
		return fmt.Sprintf("Access(%d)", int(a))
	}
}

// State is the lifecycle stage of a transaction.
type State int32

const (
	Unsubmitted State = iota
	Waiting
	Running
	Completed
)

func (s State) String() string {
	switch s {
	case Unsubmitted:
		return "unsubmitted"
	case Waiting:
		return "waiting"
	case Running:
		return "running"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Body is the work of a transaction. It receives the context carrying the
// Mutator, so port changes it causes are reconciled inline.
type Body func(ctx context.Context, m *Mutator) error

// Transaction is a unit of work over one or more circuits.
type Transaction struct {
	id    uuid.UUID
	name  string
	state atomic.Int32

	mu     sync.Mutex
	access map[*Circuit]Access
}

// NewTransaction creates an unsubmitted transaction. name appears in logs
// and spans.
func NewTransaction(name string) *Transaction {
	return &Transaction{
		id:     uuid.New(),
		name:   name,
		access: make(map[*Circuit]Access),
	}
}

func (t *Transaction) ID() uuid.UUID { return t.id }
func (t *Transaction) Name() string  { return t.name }
func (t *Transaction) State() State  { return State(t.state.Load()) }

// Read declares read access to cs. A circuit already declared for writing
// keeps write access.
func (t *Transaction) Read(cs ...*Circuit) *Transaction {
	return t.declare(Read, cs)
}

// Write declares write access to cs.
func (t *Transaction) Write(cs ...*Circuit) *Transaction {
	return t.declare(ReadWrite, cs)
}

func (t *Transaction) declare(a Access, cs []*Circuit) *Transaction {
	if t.State() != Unsubmitted {
		panic(&AccessError{Op: "declare", Err: ErrTransactionReused})
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range cs {
		if a > t.access[c] {
			t.access[c] = a
		}
	}
	return t
}

// AccessTo returns the level declared for c.
func (t *Transaction) AccessTo(c *Circuit) (Access, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.access[c]
	return a, ok
}

// Execute submits the transaction, waits for its locks and runs body with
// a Mutator. The locks are released when body returns or panics; a panic is
// re-raised after release. If ctx ends while waiting, the body never runs
// and the context error is returned.
//
// Every circuit written through the Mutator is marked modified once after
// body returns, whether or not it returned an error.
func (t *Transaction) Execute(ctx context.Context, body Body) (err error) {
	if !t.state.CompareAndSwap(int32(Unsubmitted), int32(Waiting)) {
		panic(&AccessError{Op: "execute", Err: ErrTransactionReused})
	}

	t.mu.Lock()
	access := maps.Clone(t.access)
	t.mu.Unlock()

	level := Read
	for _, a := range access {
		level = max(level, a)
	}
	logger := ctxlog.Or(ctx, slog.Default()).With("txn", t.id.String(), "name", t.name)

	ctx, span := tracer.Start(ctx, "circuit.Transaction",
		trace.WithAttributes(
			attribute.String("txn.id", t.id.String()),
			attribute.String("txn.name", t.name),
			attribute.String("txn.access", level.String()),
			attribute.Int("txn.circuits", len(access)),
		),
	)
	defer span.End()

	claims := make([]locker.Claim, 0, len(access))
	var locks *locker.Manager
	for c, a := range access {
		mode := locker.Shared
		if a == ReadWrite {
			mode = locker.Exclusive
		}
		if locks != nil && c.locks != locks {
			t.state.Store(int32(Completed))
			panic(&AccessError{Op: "execute", Circuit: c.Name(), Err: ErrMixedLockers})
		}
		claims = append(claims, locker.Claim{Lock: c.lock, Mode: mode})
		locks = c.locks
	}
	if locks == nil {
		locks = defaultLocks
	}

	start := time.Now()
	ticket := locks.Submit(claims...)
	if err := ticket.Wait(ctx); err != nil {
		t.state.Store(int32(Completed))
		transactionsTotal.WithLabelValues(level.String(), "canceled").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "canceled while waiting")
		return fmt.Errorf("transaction %s: %w", t.id, err)
	}
	wait := time.Since(start)
	lockWait.WithLabelValues(level.String()).Observe(wait.Seconds())
	logger.Debug("transaction granted", "access", level.String(), "circuits", len(access), "wait", wait)

	m := &Mutator{txn: t, access: access, written: make(map[*Circuit]struct{})}
	t.state.Store(int32(Running))

	outcome := "panic"
	defer func() {
		t.state.Store(int32(Completed))
		ticket.Release()
		transactionsTotal.WithLabelValues(level.String(), outcome).Inc()
		if outcome == "panic" {
			span.SetStatus(codes.Error, "body panicked")
		}
		logger.Debug("transaction completed", "outcome", outcome)
	}()

	err = body(WithMutator(ctx, m), m)
	m.finish()

	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("transaction %s: %w", t.id, err)
	}
	outcome = "ok"
	span.SetStatus(codes.Ok, "")
	return nil
}

// Run is shorthand for a single-circuit transaction.
func Run(ctx context.Context, c *Circuit, a Access, name string, body Body) error {
	t := NewTransaction(name)
	if a == ReadWrite {
		t.Write(c)
	} else {
		t.Read(c)
	}
	return t.Execute(ctx, body)
}

// IsMisuse reports whether a recovered panic value is an *AccessError.
func IsMisuse(v any) bool {
	err, ok := v.(error)
	if !ok {
		return false
	}
	var ae *AccessError
	return errors.As(err, &ae)
}
