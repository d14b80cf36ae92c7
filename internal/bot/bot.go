// ABOUTME: Bot composition root: store, registry, command tree, dispatcher and platform
// ABOUTME: Run pumps platform events through the dispatcher and serves the status API

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/2389/coven-bot/internal/command"
	"github.com/2389/coven-bot/internal/component"
	"github.com/2389/coven-bot/internal/config"
	"github.com/2389/coven-bot/internal/dedupe"
	"github.com/2389/coven-bot/internal/event"
	"github.com/2389/coven-bot/internal/feed"
	"github.com/2389/coven-bot/internal/reply"
	"github.com/2389/coven-bot/internal/store"
)

// eventBuffer is the channel buffer between the platform and the dispatcher.
const eventBuffer = 64

// shutdownTimeout bounds the HTTP server shutdown.
const shutdownTimeout = 5 * time.Second

// Platform is a chat network connection. It sends events to out until ctx
// is cancelled and sends replies back.
type Platform interface {
	reply.Replier
	Run(ctx context.Context, out chan<- *event.Event) error
	Close() error
}

// Bot is a configured, started bot.
type Bot struct {
	config     *config.Config
	store      store.Store
	registry   *component.Registry
	tree       *command.Tree
	dedupe     *dedupe.Cache
	dispatcher *event.Dispatcher
	feed       *feed.Feed
	platform   Platform
	httpServer *http.Server
	logger     *slog.Logger

	mu        sync.RWMutex
	published []command.AppCommand
	ready     atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// initStore opens the SQLite store at the configured path.
func initStore(cfg *config.Config) (store.Store, error) {
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// New builds the bot: it opens the store, registers and starts the stock
// components, the live feed and any extra ones, builds the command tree and
// subscribes every event.Subscriber to the dispatcher.
func New(ctx context.Context, cfg *config.Config, p Platform, logger *slog.Logger, extra ...component.Component) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	b := &Bot{
		config:   cfg,
		store:    s,
		platform: p,
		dedupe:   dedupe.New(cfg.Dispatch.DedupeTTL, cfg.Dispatch.DedupeSize),
		feed:     feed.New(logger),
		logger:   logger.With("component", "bot"),
	}

	b.registry = component.NewRegistry(logger)
	components := append(Components(cfg, s, p, b, logger), b.feed)
	for _, c := range append(components, extra...) {
		if err := b.registry.Register(c); err != nil {
			_ = b.Close()
			return nil, err
		}
	}
	b.registry.Seal()

	b.tree, err = command.Build(b.registry.CommandNodes()...)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("building command tree: %w", err)
	}

	if err := b.registry.Start(ctx); err != nil {
		_ = b.Close()
		return nil, err
	}

	b.dispatcher = event.NewDispatcher(event.Config{
		Tree:    b.tree,
		Replier: p,
		Dedupe:  b.dedupe,
		Logger:  logger,
	})
	for _, sub := range component.Find[event.Subscriber](b.registry) {
		b.dispatcher.SubscribeAll(sub)
	}

	if cfg.Server.HTTPAddr != "" {
		b.httpServer = &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           b.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	b.logger.Info("bot ready",
		"name", cfg.Bot.Name,
		"components", b.registry.Len(),
		"commands", b.tree.Len(),
	)
	return b, nil
}

// Tree returns the command tree.
func (b *Bot) Tree() *command.Tree { return b.tree }

// Dispatcher returns the event dispatcher.
func (b *Bot) Dispatcher() *event.Dispatcher { return b.dispatcher }

// Registry returns the sealed component registry.
func (b *Bot) Registry() *component.Registry { return b.registry }

// PublishCommands implements builtins.Publisher. The payload is served at
// /api/commands and marks the bot ready.
func (b *Bot) PublishCommands(_ context.Context, cmds []command.AppCommand) error {
	b.mu.Lock()
	b.published = cmds
	b.mu.Unlock()
	b.ready.Store(true)
	return nil
}

// Published returns the last published registration payload.
func (b *Bot) Published() []command.AppCommand {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.published
}

// Run starts the status server, the platform and the dispatcher, and blocks
// until ctx is cancelled or one of them fails. Resources are released before
// it returns.
func (b *Bot) Run(ctx context.Context) error {
	var ln net.Listener
	if b.httpServer != nil {
		var err error
		ln, err = net.Listen("tcp", b.httpServer.Addr)
		if err != nil {
			_ = b.Close()
			return fmt.Errorf("listening on HTTP address: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan *event.Event, eventBuffer)
	g, gctx := errgroup.WithContext(ctx)

	// The bot stops with its platform.
	g.Go(func() error {
		defer cancel()
		defer close(events)
		if err := b.platform.Run(gctx, events); err != nil {
			return fmt.Errorf("platform: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return b.dispatcher.Run(gctx, events, b.config.Dispatch.Workers)
	})

	if ln != nil {
		g.Go(func() error {
			b.logger.Info("HTTP server listening", "addr", ln.Addr().String())
			if err := b.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return b.httpServer.Shutdown(shutdownCtx)
		})
	}

	runErr := g.Wait()
	if runErr != nil {
		b.logger.Error("bot stopped with error", "error", runErr)
	}
	return errors.Join(runErr, b.Close())
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Close stops components in reverse order and releases the platform and
// store. It is safe to call more than once.
func (b *Bot) Close() error {
	b.closeOnce.Do(func() {
		b.logger.Info("shutting down bot")
		var errs []error
		if b.registry != nil {
			errs = appendCloseError(errs, "components", b.registry.Close())
		}
		if b.platform != nil {
			errs = appendCloseError(errs, "platform", b.platform.Close())
		}
		b.dedupe.Close()
		errs = appendCloseError(errs, "store", b.store.Close())
		b.closeErr = errors.Join(errs...)
	})
	return b.closeErr
}
