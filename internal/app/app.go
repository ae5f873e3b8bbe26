// Package app wires the configuration, the design and the background
// services of a circuitgrid process together.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/vk/circuitgrid/internal/config"
	"github.com/vk/circuitgrid/internal/ctxlog"
	"github.com/vk/circuitgrid/internal/design"
	"github.com/vk/circuitgrid/internal/eventbridge"
	"github.com/vk/circuitgrid/internal/netlist"
	"github.com/vk/circuitgrid/internal/registry"
	"github.com/vk/circuitgrid/internal/snapshot"

	_ "github.com/vk/circuitgrid/internal/hclconfig"
	_ "github.com/vk/circuitgrid/internal/yamlconfig"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	settings config.App
	registry *registry.Registry
	design   *design.Design
	netlists *netlist.Builder
	store    *snapshot.Store
	emitter  eventbridge.Emitter

	httpServer *http.Server
}

type options struct {
	model    *config.Model
	registry *registry.Registry
	store    *snapshot.Config
	emitter  eventbridge.Emitter
}

// Option customizes NewApp. Options exist mainly for tests.
type Option func(*options)

// WithModel uses m instead of loading configuration files.
func WithModel(m *config.Model) Option {
	return func(o *options) { o.model = m }
}

// WithRegistry replaces the built-in factory registry.
func WithRegistry(r *registry.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithSnapshotStore opens the snapshot store with cfg instead of data_dir.
func WithSnapshotStore(cfg snapshot.Config) Option {
	return func(o *options) { o.store = &cfg }
}

// WithEmitter relays circuit notifications through e instead of dialing the
// configured bridge URL.
func WithEmitter(e eventbridge.Emitter) Option {
	return func(o *options) { o.emitter = e }
}

// NewApp is the constructor for the main application. It loads and
// validates the configuration, then builds the design from the latest
// snapshots or, when there are none, from the seed design.
func NewApp(outW io.Writer, appConfig *Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	boot := newLogger(outW, config.App{LogLevel: appConfig.LogLevel, LogFormat: appConfig.LogFormat}, "")
	ctx := ctxlog.WithLogger(context.Background(), boot)

	model := o.model
	if model == nil {
		var err error
		if model, err = loadModel(ctx, appConfig.ConfigPaths); err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
	}
	model.ApplyDefaults()
	appConfig.apply(model)
	if err := model.Validate(); err != nil {
		return nil, err
	}

	logger := newLogger(outW, model.App, model.Design.Name)
	ctx = ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Configuration loaded.", "circuits", len(model.Design.Circuits), "data_dir", model.App.DataDir)

	a := &App{
		outW:     outW,
		logger:   logger,
		settings: model.App,
		registry: o.registry,
		design:   design.New(model.Design.Name),
		netlists: &netlist.Builder{},
		emitter:  o.emitter,
	}
	if a.registry == nil {
		a.registry = registry.Builtin()
	}

	storeCfg := o.store
	if storeCfg == nil && model.App.DataDir != "" {
		storeCfg = &snapshot.Config{Path: filepath.Join(model.App.DataDir, "snapshots")}
	}
	if storeCfg != nil {
		if storeCfg.Logger == nil {
			storeCfg.Logger = logger.With("component", "badger")
		}
		store, err := snapshot.Open(*storeCfg)
		if err != nil {
			return nil, err
		}
		a.store = store
	}

	restored, err := a.restore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	if !restored {
		if err := seedDesign(ctx, a.design, model.Design, a.registry); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to build seed design: %w", err)
		}
	}
	logger.Info("Design ready.", "circuits", len(a.design.Circuits()), "restored", restored)
	return a, nil
}

func loadModel(ctx context.Context, paths []string) (*config.Model, error) {
	if len(paths) == 0 {
		return config.New(), nil
	}
	loader, err := config.LoaderFor(paths[0])
	if err != nil {
		return nil, err
	}
	return loader.Load(ctx, paths...)
}

// Design returns the application's design. This is primarily for testing.
func (a *App) Design() *design.Design {
	return a.design
}

// Registry returns the factory registry.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Close releases the snapshot store. Run calls it on shutdown.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}
