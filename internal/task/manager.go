// ABOUTME: Generic manager that spawns, schedules, cancels and tracks background work
// ABOUTME: Finished tasks are kept for a retention period and then reaped

package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRetention is how long finished tasks stay queryable by default.
const DefaultRetention = 10 * time.Minute

// Work is the function a task runs. It should return promptly once ctx is
// cancelled, with an error wrapping ctx.Err().
type Work[D, R, P any] func(ctx context.Context, data D, progress *Progress[P]) (R, error)

type entry[D, R, P any] struct {
	id       ID
	data     D
	state    State
	progress *Progress[P]
	result   R
	err      error

	created  time.Time
	startAt  time.Time
	started  time.Time
	finished time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

func (e *entry[D, R, P]) snapshot() Snapshot[D, R, P] {
	s := Snapshot[D, R, P]{
		ID:         e.id,
		State:      e.state,
		Data:       e.data,
		Result:     e.result,
		Err:        e.err,
		CreatedAt:  e.created,
		StartAt:    e.startAt,
		StartedAt:  e.started,
		FinishedAt: e.finished,
	}
	s.Progress, s.HasProgress = e.progress.Latest()
	return s
}

// Manager runs work of one shape: data D, result R, progress P.
type Manager[D, R, P any] struct {
	mu     sync.Mutex
	tasks  map[ID]*entry[D, R, P]
	nextID atomic.Uint64
	closed bool

	retention    time.Duration
	reapInterval time.Duration
	logger       *slog.Logger

	registry Registry[D]
	saveMu   sync.Mutex

	baseCtx    context.Context
	cancelBase context.CancelFunc
	wg         sync.WaitGroup
	stopReaper chan struct{}
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	retention    time.Duration
	reapInterval time.Duration
	logger       *slog.Logger
	name         string
	registry     any
}

// WithRetention sets how long finished tasks remain queryable. Zero reaps
// them on the next lookup or sweep.
func WithRetention(d time.Duration) Option {
	return func(o *options) { o.retention = d }
}

// WithReapInterval sets how often the sweeper runs.
func WithReapInterval(d time.Duration) Option {
	return func(o *options) { o.reapInterval = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithName labels the manager in log output.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// NewManager creates a manager and starts its sweeper.
func NewManager[D, R, P any](opts ...Option) *Manager[D, R, P] {
	o := options{retention: DefaultRetention, name: "tasks"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.retention < 0 {
		o.retention = 0
	}
	if o.reapInterval <= 0 {
		o.reapInterval = min(max(o.retention/2, 10*time.Millisecond), time.Minute)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	var registry Registry[D]
	if o.registry != nil {
		r, ok := o.registry.(Registry[D])
		if !ok {
			o.logger.Warn("task registry ignored: data type mismatch", "component", o.name, "registry", fmt.Sprintf("%T", o.registry))
		}
		registry = r
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager[D, R, P]{
		tasks:        make(map[ID]*entry[D, R, P]),
		retention:    o.retention,
		reapInterval: o.reapInterval,
		logger:       o.logger.With("component", o.name),
		registry:     registry,
		baseCtx:      ctx,
		cancelBase:   cancel,
		stopReaper:   make(chan struct{}),
	}
	go m.reapLoop()
	return m
}

// Spawn starts work in the background. The task is Running when Spawn
// returns.
func (m *Manager[D, R, P]) Spawn(data D, work Work[D, R, P]) (ID, error) {
	e, ctx, err := m.add(0, data, time.Time{})
	if err != nil {
		return 0, err
	}
	go m.launch(ctx, e, time.Time{}, work)
	m.persist()
	return e.id, nil
}

// SpawnAt schedules work to start at the given time. The task is Pending
// until then. A time in the past starts it immediately.
func (m *Manager[D, R, P]) SpawnAt(at time.Time, data D, work Work[D, R, P]) (ID, error) {
	e, ctx, err := m.add(0, data, at)
	if err != nil {
		return 0, err
	}
	go m.launch(ctx, e, at, work)
	m.persist()
	return e.id, nil
}

// add registers a new entry under id, or the next free id when id is zero,
// and counts its goroutine in m.wg before the lock is dropped.
func (m *Manager[D, R, P]) add(id ID, data D, startAt time.Time) (*entry[D, R, P], context.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, nil, ErrClosed
	}

	if id == 0 {
		id = ID(m.nextID.Add(1))
	} else {
		if _, ok := m.tasks[id]; ok {
			return nil, nil, fmt.Errorf("%w: %s", errDuplicateID, id)
		}
		if uint64(id) > m.nextID.Load() {
			m.nextID.Store(uint64(id))
		}
	}

	now := time.Now()
	ctx, cancel := context.WithCancel(m.baseCtx)
	e := &entry[D, R, P]{
		id:       id,
		data:     data,
		progress: &Progress[P]{},
		created:  now,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	if startAt.IsZero() {
		e.state = Running
		e.started = now
		e.startAt = now
	} else {
		e.state = Pending
		e.startAt = startAt
	}
	m.tasks[e.id] = e
	m.wg.Add(1)

	m.logger.Debug("task added", "task_id", e.id, "state", e.state, "start_at", e.startAt)
	return e, ctx, nil
}

// launch waits for at, if set, then runs the task.
func (m *Manager[D, R, P]) launch(ctx context.Context, e *entry[D, R, P], at time.Time, work Work[D, R, P]) {
	defer m.wg.Done()
	if !at.IsZero() {
		timer := time.NewTimer(time.Until(at))
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			var zero R
			m.finish(e, zero, fmt.Errorf("cancelled before start: %w", ctx.Err()), Cancelled)
			return
		}
	}
	m.run(ctx, e, work)
}

func (m *Manager[D, R, P]) run(ctx context.Context, e *entry[D, R, P], work Work[D, R, P]) {
	m.mu.Lock()
	if e.state.Terminal() {
		m.mu.Unlock()
		return
	}
	wasPending := e.state == Pending
	if wasPending {
		e.state = Running
		e.started = time.Now()
	}
	m.mu.Unlock()
	if wasPending {
		m.persist()
	}

	var (
		result R
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task panicked: %v", r)
				m.logger.Error("task panicked", "task_id", e.id, "panic", r, "stack", string(debug.Stack()))
			}
		}()
		result, err = work(ctx, e.data, e.progress)
	}()

	state := Completed
	switch {
	case err == nil:
	case ctx.Err() != nil && errors.Is(err, context.Canceled):
		state = Cancelled
	default:
		state = Failed
	}
	m.finish(e, result, err, state)
}

func (m *Manager[D, R, P]) finish(e *entry[D, R, P], result R, err error, state State) {
	m.mu.Lock()
	moved := m.finishLocked(e, result, err, state)
	m.mu.Unlock()
	if !moved {
		return
	}
	m.settle(e, err)
}

// finishLocked moves e to a terminal state. It reports false if e had already
// finished.
func (m *Manager[D, R, P]) finishLocked(e *entry[D, R, P], result R, err error, state State) bool {
	if e.state.Terminal() {
		return false
	}
	e.state = state
	e.finished = time.Now()
	if state == Completed {
		e.result = result
	} else {
		e.err = err
	}
	return true
}

// settle releases waiters once e is terminal. Call exactly once per entry.
func (m *Manager[D, R, P]) settle(e *entry[D, R, P], err error) {
	e.cancel()
	close(e.done)

	if e.state == Failed {
		m.logger.Warn("task failed", "task_id", e.id, "error", err)
	} else {
		m.logger.Debug("task finished", "task_id", e.id, "state", e.state)
	}
}

// expiredLocked reports whether e finished longer than the retention ago.
func (m *Manager[D, R, P]) expiredLocked(e *entry[D, R, P], now time.Time) bool {
	return e.state.Terminal() && now.Sub(e.finished) >= m.retention
}

// lookupLocked returns a live entry, reaping it if it has expired.
func (m *Manager[D, R, P]) lookupLocked(id ID) (*entry[D, R, P], error) {
	e, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if m.expiredLocked(e, time.Now()) {
		delete(m.tasks, id)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

// Status returns a snapshot of the task.
func (m *Manager[D, R, P]) Status(id ID) (Snapshot[D, R, P], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.lookupLocked(id)
	if err != nil {
		return Snapshot[D, R, P]{}, err
	}
	return e.snapshot(), nil
}

// Cancel asks the task to stop. Pending tasks become Cancelled without
// running. Cancelling a finished task does nothing.
func (m *Manager[D, R, P]) Cancel(id ID) error {
	m.mu.Lock()
	e, err := m.lookupLocked(id)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	var settled bool
	if e.state == Pending {
		var zero R
		settled = m.finishLocked(e, zero, fmt.Errorf("cancelled before start: %w", context.Canceled), Cancelled)
	}
	m.mu.Unlock()

	if settled {
		m.settle(e, nil)
		m.persist()
		return nil
	}
	e.cancel()
	m.logger.Debug("task cancel requested", "task_id", id)
	return nil
}

// Wait blocks until the task finishes or ctx is done, and returns its final
// snapshot. The snapshot is returned even if retention has already elapsed.
func (m *Manager[D, R, P]) Wait(ctx context.Context, id ID) (Snapshot[D, R, P], error) {
	m.mu.Lock()
	e, err := m.lookupLocked(id)
	m.mu.Unlock()
	if err != nil {
		return Snapshot[D, R, P]{}, err
	}

	select {
	case <-e.done:
	case <-ctx.Done():
		return Snapshot[D, R, P]{}, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return e.snapshot(), nil
}

// List returns snapshots of every live task ordered by id.
func (m *Manager[D, R, P]) List() []Snapshot[D, R, P] {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	out := make([]Snapshot[D, R, P], 0, len(m.tasks))
	for _, e := range m.tasks {
		if m.expiredLocked(e, now) {
			continue
		}
		out = append(out, e.snapshot())
	}
	slices.SortFunc(out, func(a, b Snapshot[D, R, P]) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

func (m *Manager[D, R, P]) reapLoop() {
	ticker := time.NewTicker(m.reapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.reap()
		case <-m.stopReaper:
			return
		}
	}
}

func (m *Manager[D, R, P]) reap() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	reaped := 0
	for id, e := range m.tasks {
		if m.expiredLocked(e, now) {
			delete(m.tasks, id)
			reaped++
		}
	}
	if reaped > 0 {
		m.logger.Debug("reaped finished tasks", "count", reaped, "remaining", len(m.tasks))
	}
}

// Close stops accepting work, cancels every task and waits for their
// goroutines to return. It is safe to call more than once.
func (m *Manager[D, R, P]) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.cancelBase()
	close(m.stopReaper)
	m.wg.Wait()
}
