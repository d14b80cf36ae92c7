// Package guard provides Cell, a value that can only be reached through a
// scoped guard.
//
// # Modes
//
// A Cell supports both exclusive access and reader/writer access with a single
// primitive:
//
//   - Lock / WriteLock return a WriteGuard with exclusive, mutable access.
//   - ReadLock returns a ReadGuard; any number of them may be held at once.
//
// Internally the cell holds a weighted semaphore. Readers acquire one unit and
// writers acquire every unit, so a writer waits for all readers to leave and
// blocks new readers while it waits. Waiters are served in FIFO order, which
// keeps a steady stream of readers from starving a writer.
//
// # Scoping
//
// Guards must be released exactly once; Release is idempotent and any access
// after release panics. Prefer the scoped helpers Update and View, which
// release on return, on error and on panic.
//
// There is no poisoning and no rollback: a panic while a WriteGuard is held
// leaves whatever partial mutation happened in place. Acquiring the same cell
// again from the goroutine that already holds a guard deadlocks.
//
// # Persistence hook
//
// WithOnWrite installs a function that receives the value each time a write
// guard is released, before the lock is dropped. The store package uses it to
// persist state on every write.
package guard
