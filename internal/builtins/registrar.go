// ABOUTME: Registrar component publishing the command registration payload on ready
// ABOUTME: The publisher is whatever exposes commands to the outside, e.g. the status server

package builtins

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/2389/coven-bot/internal/command"
	"github.com/2389/coven-bot/internal/component"
	"github.com/2389/coven-bot/internal/event"
)

// Publisher receives the registration payload.
type Publisher interface {
	PublishCommands(ctx context.Context, cmds []command.AppCommand) error
}

// Registrar publishes the command schema whenever the platform reports ready.
type Registrar struct {
	publisher Publisher
	registry  *component.Registry
	logger    *slog.Logger
}

var _ event.Subscriber = (*Registrar)(nil)

// NewRegistrar creates a Registrar.
func NewRegistrar(p Publisher, logger *slog.Logger) *Registrar {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registrar{publisher: p, logger: logger.With("component", "registrar")}
}

// Name implements component.Component.
func (r *Registrar) Name() string { return "registrar" }

// Start keeps the registry for building the tree on ready.
func (r *Registrar) Start(_ context.Context, reg *component.Registry) error {
	r.registry = reg
	return nil
}

// Subscriptions implements event.Subscriber.
func (r *Registrar) Subscriptions() []event.Kind {
	return []event.Kind{event.KindReady}
}

// HandleEvent implements event.Listener.
func (r *Registrar) HandleEvent(ctx context.Context, _ *event.Event) error {
	if r.registry == nil {
		return fmt.Errorf("registrar not started")
	}
	tree, err := command.Build(r.registry.CommandNodes()...)
	if err != nil {
		return fmt.Errorf("building command tree: %w", err)
	}
	cmds := tree.Registration()
	if err := r.publisher.PublishCommands(ctx, cmds); err != nil {
		return fmt.Errorf("publishing commands: %w", err)
	}
	r.logger.Info("commands published", "top_level", len(cmds), "invocable", tree.Len())
	return nil
}
