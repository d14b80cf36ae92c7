// ABOUTME: Guarded shared state with exclusive and reader/writer access modes
// ABOUTME: Built on a weighted semaphore so acquisition respects context cancellation

package guard

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/semaphore"
)

// capacity is the number of semaphore units. Each reader holds one, a writer
// holds all of them.
const capacity = 1 << 20

// Cell holds a value of type T reachable only through guards.
type Cell[T any] struct {
	sem     *semaphore.Weighted
	value   T
	onWrite func(context.Context, T) error
	logger  *slog.Logger
	name    string
}

// Option configures a Cell.
type Option[T any] func(*Cell[T])

// WithOnWrite runs fn with the current value whenever a write guard is
// released. An error from fn is returned by WriteGuard.Release.
func WithOnWrite[T any](fn func(ctx context.Context, v T) error) Option[T] {
	return func(c *Cell[T]) {
		c.onWrite = fn
	}
}

// WithName labels the cell in log output.
func WithName[T any](name string) Option[T] {
	return func(c *Cell[T]) {
		c.name = name
	}
}

// WithLogger sets the logger used to report hook failures during panics.
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(c *Cell[T]) {
		c.logger = logger
	}
}

// New creates a Cell holding v.
func New[T any](v T, opts ...Option[T]) *Cell[T] {
	c := &Cell[T]{
		sem:   semaphore.NewWeighted(capacity),
		value: v,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.name != "" {
		c.logger = c.logger.With("cell", c.name)
	}
	return c
}

// Lock acquires exclusive access. It is the same as WriteLock.
func (c *Cell[T]) Lock(ctx context.Context) (*WriteGuard[T], error) {
	return c.WriteLock(ctx)
}

// WriteLock waits until no other guard is held and returns an exclusive guard.
func (c *Cell[T]) WriteLock(ctx context.Context) (*WriteGuard[T], error) {
	if err := c.sem.Acquire(ctx, capacity); err != nil {
		return nil, fmt.Errorf("acquire write guard: %w", err)
	}
	return &WriteGuard[T]{cell: c, ctx: context.WithoutCancel(ctx)}, nil
}

// TryLock returns an exclusive guard if one is immediately available.
func (c *Cell[T]) TryLock() (*WriteGuard[T], bool) {
	if !c.sem.TryAcquire(capacity) {
		return nil, false
	}
	return &WriteGuard[T]{cell: c, ctx: context.Background()}, true
}

// ReadLock waits until no writer holds or is queued ahead, then returns a
// shared guard.
func (c *Cell[T]) ReadLock(ctx context.Context) (*ReadGuard[T], error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire read guard: %w", err)
	}
	return &ReadGuard[T]{cell: c}, nil
}

// TryReadLock returns a shared guard if one is immediately available.
func (c *Cell[T]) TryReadLock() (*ReadGuard[T], bool) {
	if !c.sem.TryAcquire(1) {
		return nil, false
	}
	return &ReadGuard[T]{cell: c}, true
}

// Update runs fn with exclusive mutable access and releases the guard when fn
// returns or panics. The returned error is fn's error, or the persistence
// hook's error if fn succeeded.
func (c *Cell[T]) Update(ctx context.Context, fn func(v *T) error) (err error) {
	g, err := c.WriteLock(ctx)
	if err != nil {
		return err
	}
	panicking := true
	defer func() {
		if panicking {
			if rerr := g.Release(); rerr != nil {
				c.logger.Error("write hook failed during panic", "error", rerr)
			}
			return
		}
		if rerr := g.Release(); err == nil {
			err = rerr
		}
	}()
	err = fn(g.Ptr())
	panicking = false
	return err
}

// View runs fn with shared read access and releases the guard when fn returns
// or panics.
func (c *Cell[T]) View(ctx context.Context, fn func(v T) error) error {
	g, err := c.ReadLock(ctx)
	if err != nil {
		return err
	}
	defer g.Release()
	return fn(g.Get())
}

// Load returns a copy of the value under a read guard.
func (c *Cell[T]) Load(ctx context.Context) (T, error) {
	var out T
	err := c.View(ctx, func(v T) error {
		out = v
		return nil
	})
	return out, err
}

// Store replaces the value under a write guard.
func (c *Cell[T]) Store(ctx context.Context, v T) error {
	return c.Update(ctx, func(p *T) error {
		*p = v
		return nil
	})
}
