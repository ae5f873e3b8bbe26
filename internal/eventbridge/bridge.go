// Package eventbridge forwards circuit notifications to a remote observer.
//
// Notifications are produced synchronously inside write transactions, so the
// Bridge only queues a small payload and a separate goroutine (Run) emits it.
// A full queue drops the notification and counts it.
package eventbridge

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/circuitgrid/internal/circuit"
	"github.com/vk/circuitgrid/internal/comp"
	"github.com/vk/circuitgrid/internal/ctxlog"
	"github.com/vk/circuitgrid/internal/listeners"
)

// DefaultEvent is the event name used when none is configured.
const DefaultEvent = "circuit_changed"

const defaultQueueSize = 256

// Emitter delivers one named event to the remote side.
type Emitter interface {
	Emit(event string, args ...any) error
	Close() error
}

// Payload is one queued circuit notification. It is emitted as the map
// built by asMap.
type Payload struct {
	Action    string
	Circuit   string
	Component string
	Factory   string
	Prior     []string
	Time      string
}

func (p Payload) asMap() map[string]any {
	m := map[string]any{
		"action":  p.Action,
		"circuit": p.Circuit,
		"time":    p.Time,
	}
	if p.Component != "" {
		m["component"] = p.Component
		m["factory"] = p.Factory
	}
	if len(p.Prior) > 0 {
		prior := make([]any, len(p.Prior))
		for i, id := range p.Prior {
			prior[i] = id
		}
		m["prior"] = prior
	}
	return m
}

// Bridge is a circuit.Listener that relays notifications through an Emitter.
type Bridge struct {
	emitter Emitter
	event   string
	logger  *slog.Logger
	now     func() time.Time

	queue   chan Payload
	dropped atomic.Uint64

	mu   sync.Mutex
	subs map[*circuit.Circuit]*listeners.Subscription[circuit.Listener]
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithEvent overrides the emitted event name.
func WithEvent(name string) Option {
	return func(b *Bridge) {
		if name != "" {
			b.event = name
		}
	}
}

// WithQueueSize sets how many notifications may wait for emission.
func WithQueueSize(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.queue = make(chan Payload, n)
		}
	}
}

// WithLogger sets the logger used by Run.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// New creates a Bridge on top of e.
func New(e Emitter, opts ...Option) *Bridge {
	b := &Bridge{
		emitter: e,
		event:   DefaultEvent,
		logger:  slog.Default(),
		now:     time.Now,
		queue:   make(chan Payload, defaultQueueSize),
		subs:    make(map[*circuit.Circuit]*listeners.Subscription[circuit.Listener]),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Watch subscribes the bridge to c. Watching a circuit twice is a no-op.
func (b *Bridge) Watch(c *circuit.Circuit) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[c]; ok {
		return
	}
	b.subs[c] = c.Subscribe(b)
}

// Unwatch stops relaying notifications of c.
func (b *Bridge) Unwatch(c *circuit.Circuit) {
	b.mu.Lock()
	sub, ok := b.subs[c]
	delete(b.subs, c)
	b.mu.Unlock()
	if ok {
		sub.Close()
	}
}

// Dropped reports how many notifications were discarded on a full queue.
func (b *Bridge) Dropped() uint64 {
	return b.dropped.Load()
}

// CircuitChanged implements circuit.Listener. It never blocks.
func (b *Bridge) CircuitChanged(ctx context.Context, e circuit.Event) {
	p := Payload{
		Action:  e.Action.String(),
		Circuit: e.Circuit.Name(),
		Time:    b.now().UTC().Format(time.RFC3339Nano),
	}
	if e.Component != nil {
		p.Component = e.Component.ID().String()
		p.Factory = factoryName(e.Component)
	}
	for _, c := range e.Prior {
		p.Prior = append(p.Prior, c.ID().String())
	}
	for _, w := range e.PriorWires {
		p.Prior = append(p.Prior, w.ID().String())
	}

	select {
	case b.queue <- p:
	default:
		b.dropped.Add(1)
		ctxlog.Or(ctx, b.logger).Warn("Event bridge queue full, dropping notification",
			"circuit", p.Circuit, "action", p.Action)
	}
}

// Run emits queued notifications until ctx is done, then closes the emitter.
func (b *Bridge) Run(ctx context.Context) error {
	logger := ctxlog.Or(ctx, b.logger).With("component", "eventbridge", "event", b.event)
	logger.Info("Event bridge started")
	defer func() {
		b.mu.Lock()
		for c, sub := range b.subs {
			sub.Close()
			delete(b.subs, c)
		}
		b.mu.Unlock()
		if err := b.emitter.Close(); err != nil {
			logger.Warn("Closing emitter failed", "error", err)
		}
		logger.Info("Event bridge stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case p := <-b.queue:
			if err := b.emitter.Emit(b.event, p.asMap()); err != nil {
				logger.Warn("Emit failed", "circuit", p.Circuit, "action", p.Action, "error", err)
				continue
			}
			logger.Debug("Emitted notification", "circuit", p.Circuit, "action", p.Action)
		}
	}
}

func factoryName(c comp.Component) string {
	if f := c.Factory(); f != nil {
		return f.Name
	}
	return ""
}
