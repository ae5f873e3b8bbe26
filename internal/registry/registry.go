package registry

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/vk/circuitgrid/internal/comp"
)

// Library is implemented by every group of built-in factories.
type Library interface {
	Register(r *Registry)
}

// Registry holds the factories known to one application instance.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]*comp.Factory
}

// New creates a Registry populated from libs.
func New(libs ...Library) *Registry {
	r := &Registry{factories: make(map[string]*comp.Factory)}
	for _, lib := range libs {
		lib.Register(r)
	}
	return r
}

// RegisterFactory adds f under its name. Registering a name twice is a
// programming error and panics.
func (r *Registry) RegisterFactory(f *comp.Factory) {
	if f == nil || f.Name == "" {
		panic("registry: factory must have a name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[f.Name]; exists {
		panic(fmt.Sprintf("factory with name '%s' already registered", f.Name))
	}
	slog.Debug("Registering factory.", "name", f.Name)
	r.factories[f.Name] = f
}

// Lookup returns the factory registered under name.
func (r *Registry) Lookup(name string) (*comp.Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Names returns the registered factory names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}
