package app

import (
	"context"
	"fmt"

	"github.com/vk/circuitgrid/internal/ctxlog"
	"github.com/vk/circuitgrid/internal/eventbridge"
)

// relay forwards circuit notifications to the configured observer until ctx
// is done.
func (a *App) relay(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	cfg := a.settings.Bridge
	emitter := a.emitter
	if emitter == nil {
		if cfg == nil {
			logger.Debug("Event bridge not configured.")
			return nil
		}
		var err error
		emitter, err = eventbridge.Dial(ctx, eventbridge.Config{
			URL:                cfg.URL,
			Namespace:          cfg.Namespace,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		})
		if err != nil {
			return fmt.Errorf("event bridge: %w", err)
		}
	}

	var opts []eventbridge.Option
	if cfg != nil {
		opts = append(opts, eventbridge.WithEvent(cfg.Event))
	}
	b := eventbridge.New(emitter, append(opts, eventbridge.WithLogger(logger))...)
	for _, c := range a.design.Circuits() {
		b.Watch(c)
	}
	return b.Run(ctx)
}
