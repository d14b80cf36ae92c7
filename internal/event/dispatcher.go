// ABOUTME: Dispatcher delivering events to subscribed listeners with per-listener isolation
// ABOUTME: Resolves command events against the tree and routes replies through the Replier

package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/2389/coven-bot/internal/command"
	"github.com/2389/coven-bot/internal/dedupe"
	"github.com/2389/coven-bot/internal/reply"
)

// ErrNoTree indicates a command event arrived at a dispatcher without a tree.
var ErrNoTree = errors.New("no command tree configured")

// Config holds the dispatcher's collaborators. Tree, Replier and Dedupe are
// optional.
type Config struct {
	Tree    *command.Tree
	Replier reply.Replier
	Dedupe  *dedupe.Cache
	Logger  *slog.Logger
}

// Result summarizes one Dispatch call.
type Result struct {
	// Delivered counts listeners that returned without error.
	Delivered int
	// Failed counts listeners and handlers that errored or panicked.
	Failed int
	// Duplicate is set when the event id was already processed.
	Duplicate bool
	// Rejected holds the resolution error of a command event that was
	// answered and not delivered.
	Rejected error
	// Handled is set when a command handler ran to completion.
	Handled bool
}

type subscription struct {
	id       string
	listener Listener
}

// Dispatcher fans events out to listeners subscribed by kind.
type Dispatcher struct {
	tree    *command.Tree
	replier reply.Replier
	dedupe  *dedupe.Cache
	logger  *slog.Logger

	mu   sync.RWMutex
	subs map[Kind][]subscription
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		tree:    cfg.Tree,
		replier: cfg.Replier,
		dedupe:  cfg.Dedupe,
		logger:  logger.With("component", "dispatcher"),
		subs:    make(map[Kind][]subscription),
	}
}

// Subscribe registers l for kind. Listeners run in subscription order. The
// returned id can be passed to Unsubscribe.
func (d *Dispatcher) Subscribe(kind Kind, l Listener) string {
	id := uuid.New().String()

	d.mu.Lock()
	d.subs[kind] = append(d.subs[kind], subscription{id: id, listener: l})
	d.mu.Unlock()

	d.logger.Debug("listener subscribed", "kind", kind, "listener", l.Name(), "sub_id", id)
	return id
}

// SubscribeAll registers s for every kind it declares.
func (d *Dispatcher) SubscribeAll(s Subscriber) {
	for _, kind := range s.Subscriptions() {
		d.Subscribe(kind, s)
	}
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (d *Dispatcher) Unsubscribe(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for kind, subs := range d.subs {
		for i, s := range subs {
			if s.id == id {
				d.subs[kind] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Listeners returns the names of listeners subscribed to kind.
func (d *Dispatcher) Listeners(kind Kind) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.subs[kind]))
	for _, s := range d.subs[kind] {
		names = append(names, s.listener.Name())
	}
	return names
}

// Dispatch delivers evt to every listener subscribed to its kind. Listener
// failures never propagate; they are logged and counted in the result.
func (d *Dispatcher) Dispatch(ctx context.Context, evt *Event) Result {
	var res Result
	if evt.ID == "" {
		evt.ID = uuid.New().String()
	} else if d.dedupe != nil && d.dedupe.Seen(evt.ID) {
		d.logger.Debug("duplicate event dropped", "event_id", evt.ID, "kind", evt.Kind)
		res.Duplicate = true
		return res
	}
	if evt.Time.IsZero() {
		evt.Time = time.Now()
	}

	if evt.Kind == KindCommand {
		if !d.runCommand(ctx, evt, &res) {
			return res
		}
	}

	d.mu.RLock()
	subs := append([]subscription(nil), d.subs[evt.Kind]...)
	d.mu.RUnlock()

	for _, s := range subs {
		name := s.listener.Name()
		err := d.isolate(name, evt, func() error {
			return s.listener.HandleEvent(ctx, evt)
		})
		if err != nil {
			res.Failed++
			continue
		}
		res.Delivered++
	}
	return res
}

// runCommand resolves and runs a command event. It reports whether the event
// should continue to subscribers.
func (d *Dispatcher) runCommand(ctx context.Context, evt *Event, res *Result) bool {
	inv, err := d.resolve(evt)
	if err != nil {
		res.Rejected = err
		d.logger.Info("command rejected", "event_id", evt.ID, "sender", evt.SenderID, "error", err)
		d.send(ctx, evt, reply.Error(err.Error()))
		return false
	}
	inv.Source = evt.Source()
	evt.Invocation = inv

	if inv.Command.Handler == nil {
		return true
	}

	var msg *reply.Message
	err = d.isolate("command:"+inv.Path, evt, func() error {
		var herr error
		msg, herr = inv.Command.Handler(ctx, inv)
		return herr
	})
	if err != nil {
		res.Failed++
		evt.HandlerErr = err
		d.send(ctx, evt, reply.Errorf("Command `%s` failed.", inv.Path))
		return true
	}
	res.Handled = true
	d.send(ctx, evt, msg)
	return true
}

func (d *Dispatcher) resolve(evt *Event) (*command.Invocation, error) {
	if d.tree == nil {
		return nil, ErrNoTree
	}
	req := evt.Command
	if req == nil {
		path, raw, err := d.tree.Parse(evt.Text)
		if err != nil {
			return nil, err
		}
		req = &CommandRequest{Path: path, Args: raw}
		evt.Command = req
	}
	return d.tree.Resolve(req.Path, req.Args)
}

func (d *Dispatcher) send(ctx context.Context, evt *Event, msg *reply.Message) {
	if msg == nil || d.replier == nil {
		return
	}
	if err := d.replier.Reply(ctx, evt.Target(), msg); err != nil {
		d.logger.Error("reply failed", "event_id", evt.ID, "channel", evt.ChannelID, "error", err)
	}
}

// isolate runs fn, turning a panic into an error, and logs any failure
// against the named listener.
func (d *Dispatcher) isolate(name string, evt *Event, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			d.logger.Error("listener panicked",
				"listener", name,
				"event_id", evt.ID,
				"kind", evt.Kind,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()

	if err = fn(); err != nil {
		d.logger.Error("listener failed",
			"listener", name,
			"event_id", evt.ID,
			"kind", evt.Kind,
			"error", err)
	}
	return err
}

// Run dispatches events from in on workers goroutines until in is closed or
// ctx is cancelled. Handlers already running are detached from ctx and finish
// before Run returns.
func (d *Dispatcher) Run(ctx context.Context, in <-chan *Event, workers int) error {
	if workers < 1 {
		workers = 1
	}
	handlerCtx := context.WithoutCancel(ctx)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case evt, ok := <-in:
					if !ok {
						return nil
					}
					d.Dispatch(handlerCtx, evt)
				}
			}
		})
	}

	d.logger.Info("dispatcher running", "workers", workers)
	err := g.Wait()
	d.logger.Info("dispatcher stopped")
	return err
}
