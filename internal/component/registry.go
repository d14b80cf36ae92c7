// ABOUTME: Registry holding one instance per concrete component type
// ABOUTME: Typed lookup, capability discovery and ordered start/close lifecycle

package component

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/2389/coven-bot/internal/command"
)

// ErrDuplicateComponent indicates a component of the same concrete type is already registered.
var ErrDuplicateComponent = errors.New("component already registered")

// ErrNotFound indicates no component of the requested type is registered.
var ErrNotFound = errors.New("component not found")

// ErrSealed indicates the registry no longer accepts registrations.
var ErrSealed = errors.New("registry is sealed")

// Component is a unit of bot functionality.
type Component interface {
	Name() string
}

// Commander is a component that contributes commands.
type Commander interface {
	Component
	Commands() []command.Node
}

// Starter is a component with startup work. Start receives the registry so it
// can resolve its collaborators.
type Starter interface {
	Component
	Start(ctx context.Context, r *Registry) error
}

// Closer is a component that releases resources at shutdown.
type Closer interface {
	Component
	Close() error
}

// Registry maps concrete component types to their single instance.
type Registry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]Component
	order  []Component
	sealed atomic.Bool
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byType: make(map[reflect.Type]Component),
		logger: logger.With("component", "registry"),
	}
}

// Register adds c keyed by its concrete type.
func (r *Registry) Register(c Component) error {
	if c == nil {
		return fmt.Errorf("register: nil component")
	}
	if r.sealed.Load() {
		return fmt.Errorf("%w: cannot register '%s'", ErrSealed, c.Name())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed.Load() {
		return fmt.Errorf("%w: cannot register '%s'", ErrSealed, c.Name())
	}

	key := reflect.TypeOf(c)
	if existing, ok := r.byType[key]; ok {
		return fmt.Errorf("%w: %s (already registered as '%s')", ErrDuplicateComponent, key, existing.Name())
	}
	r.byType[key] = c
	r.order = append(r.order, c)

	r.logger.Info("component registered", "name", c.Name(), "type", key.String())
	return nil
}

// MustRegister registers every component and panics on the first error.
func (r *Registry) MustRegister(cs ...Component) {
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
}

// Seal stops further registration. It is safe to call more than once.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed.CompareAndSwap(false, true) {
		r.logger.Debug("registry sealed", "components", len(r.order))
	}
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	return r.sealed.Load()
}

// read runs fn under the read lock until the registry is sealed, and without
// it afterwards.
func (r *Registry) read(fn func()) {
	if r.sealed.Load() {
		fn()
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn()
}

// Get returns the registered component whose concrete type is K.
func Get[K Component](r *Registry) (K, error) {
	var zero K
	key := reflect.TypeFor[K]()

	var c Component
	var ok bool
	r.read(func() {
		c, ok = r.byType[key]
	})
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return c.(K), nil
}

// MustGet is Get for wiring code where absence is a programming error.
func MustGet[K Component](r *Registry) K {
	c, err := Get[K](r)
	if err != nil {
		panic(err)
	}
	return c
}

// All returns every component in registration order.
func (r *Registry) All() []Component {
	var out []Component
	r.read(func() {
		out = make([]Component, len(r.order))
		copy(out, r.order)
	})
	return out
}

// Len returns the number of registered components.
func (r *Registry) Len() int {
	var n int
	r.read(func() { n = len(r.order) })
	return n
}

// Find returns every component implementing I, in registration order.
func Find[I any](r *Registry) []I {
	var out []I
	for _, c := range r.All() {
		if v, ok := c.(I); ok {
			out = append(out, v)
		}
	}
	return out
}

// CommandNodes collects the command subtrees of every Commander.
func (r *Registry) CommandNodes() []command.Node {
	var nodes []command.Node
	for _, c := range Find[Commander](r) {
		nodes = append(nodes, c.Commands()...)
	}
	return nodes
}

// Start runs every Starter in registration order and stops at the first
// failure.
func (r *Registry) Start(ctx context.Context) error {
	for _, s := range Find[Starter](r) {
		if err := s.Start(ctx, r); err != nil {
			return fmt.Errorf("starting component '%s': %w", s.Name(), err)
		}
		r.logger.Debug("component started", "name", s.Name())
	}
	return nil
}

// Close runs every Closer in reverse registration order and joins their
// errors.
func (r *Registry) Close() error {
	closers := Find[Closer](r)
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		c := closers[i]
		if err := c.Close(); err != nil {
			r.logger.Error("component close failed", "name", c.Name(), "error", err)
			errs = append(errs, fmt.Errorf("closing component '%s': %w", c.Name(), err))
		}
	}
	return errors.Join(errs...)
}
