// ABOUTME: Task identifiers, states, progress reporting and status snapshots
// ABOUTME: Shared types for the generic background task manager

package task

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// ErrNotFound indicates the id was never issued or the task was reaped.
var ErrNotFound = errors.New("task not found")

// ErrClosed indicates the manager no longer accepts work.
var ErrClosed = errors.New("task manager closed")

// ID identifies a task within one manager.
type ID uint64

func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseID parses an ID from its decimal form.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid task id '%s': %w", s, err)
	}
	return ID(n), nil
}

// State is where a task is in its lifecycle.
type State int

const (
	Pending State = iota
	Running
	Completed
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

// Progress is handed to the work function to publish intermediate values.
type Progress[P any] struct {
	mu      sync.Mutex
	value   P
	set     bool
	updated time.Time
}

// Report replaces the latest progress value.
func (p *Progress[P]) Report(v P) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.value = v
	p.set = true
	p.updated = time.Now()
}

// Latest returns the most recent value and whether one was reported.
func (p *Progress[P]) Latest() (P, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.set
}

// Snapshot is a point-in-time copy of a task.
type Snapshot[D, R, P any] struct {
	ID    ID
	State State
	Data  D

	// Progress is valid when HasProgress is set.
	Progress    P
	HasProgress bool

	// Result is valid when State is Completed. Err is set when Failed or
	// Cancelled.
	Result R
	Err    error

	CreatedAt  time.Time
	StartAt    time.Time
	StartedAt  time.Time
	FinishedAt time.Time
}
