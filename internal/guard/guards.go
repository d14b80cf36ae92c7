// ABOUTME: WriteGuard and ReadGuard scoped handles returned by Cell acquisition
// ABOUTME: Access after Release panics; Release itself is idempotent

package guard

import "context"

// WriteGuard grants exclusive access to a Cell's value until released.
type WriteGuard[T any] struct {
	cell     *Cell[T]
	ctx      context.Context
	released bool
}

// Get returns the current value.
func (g *WriteGuard[T]) Get() T {
	g.mustHold()
	return g.cell.value
}

// Set replaces the value.
func (g *WriteGuard[T]) Set(v T) {
	g.mustHold()
	g.cell.value = v
}

// Ptr returns a pointer to the value. The pointer must not be used after
// Release.
func (g *WriteGuard[T]) Ptr() *T {
	g.mustHold()
	return &g.cell.value
}

// Release runs the write hook, if any, and drops exclusive access. Calls after
// the first return nil.
func (g *WriteGuard[T]) Release() error {
	if g.released {
		return nil
	}
	g.released = true
	defer g.cell.sem.Release(capacity)

	if g.cell.onWrite != nil {
		return g.cell.onWrite(g.ctx, g.cell.value)
	}
	return nil
}

func (g *WriteGuard[T]) mustHold() {
	if g.released {
		panic("guard: write guard used after release")
	}
}

// ReadGuard grants shared access to a Cell's value until released.
type ReadGuard[T any] struct {
	cell     *Cell[T]
	released bool
}

// Get returns the current value. Reference types inside T are shared with
// the cell and must not be mutated.
func (g *ReadGuard[T]) Get() T {
	if g.released {
		panic("guard: read guard used after release")
	}
	return g.cell.value
}

// Release drops shared access. Calls after the first are no-ops.
func (g *ReadGuard[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	g.cell.sem.Release(1)
}
