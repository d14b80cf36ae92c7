// ABOUTME: Optional persistence of scheduled tasks so pending work survives a restart
// ABOUTME: The manager saves its pending set on every change and Restore re-schedules it

package task

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
)

// saveTimeout bounds one Registry.Save call.
const saveTimeout = 10 * time.Second

var errDuplicateID = errors.New("task id already in use")

// Record is one pending task as saved by a Registry.
type Record[D any] struct {
	ID      ID        `json:"id"`
	StartAt time.Time `json:"start_at"`
	Data    D         `json:"data"`
}

// Schedule is the persisted state of a manager. NextID is the last id
// issued, so a restarted manager never hands it out again.
type Schedule[D any] struct {
	NextID  ID          `json:"next_id"`
	Pending []Record[D] `json:"pending"`
}

// Registry stores a manager's Schedule.
type Registry[D any] interface {
	Load(ctx context.Context) (Schedule[D], error)
	Save(ctx context.Context, s Schedule[D]) error
}

// WithRegistry persists Pending tasks to r. Its data type must match the
// manager's D; a mismatched registry is ignored with a warning.
func WithRegistry[D any](r Registry[D]) Option {
	return func(o *options) { o.registry = r }
}

// Restore loads the saved schedule and re-issues every pending task with its
// original id and start time, running work when each one is due. Tasks whose
// start time has passed run at once. Call it before spawning new work; it
// does nothing without a registry.
func (m *Manager[D, R, P]) Restore(ctx context.Context, work Work[D, R, P]) (int, error) {
	if m.registry == nil {
		return 0, nil
	}
	sched, err := m.registry.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading task schedule: %w", err)
	}

	m.mu.Lock()
	if uint64(sched.NextID) > m.nextID.Load() {
		m.nextID.Store(uint64(sched.NextID))
	}
	m.mu.Unlock()

	restored := 0
	for _, rec := range sched.Pending {
		e, tctx, err := m.add(rec.ID, rec.Data, rec.StartAt)
		if errors.Is(err, errDuplicateID) {
			m.logger.Warn("skipping saved task", "task_id", rec.ID, "error", err)
			continue
		}
		if err != nil {
			return restored, err
		}
		go m.launch(tctx, e, rec.StartAt, work)
		restored++
	}

	m.persist()
	m.logger.Info("restored scheduled tasks", "count", restored, "next_id", m.nextID.Load())
	return restored, nil
}

// persist saves the current schedule. Once the manager is closed the last
// saved schedule is kept, so tasks cancelled by Close come back on restart.
func (m *Manager[D, R, P]) persist() {
	if m.registry == nil {
		return
	}
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	sched := m.scheduleLocked()
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := m.registry.Save(ctx, sched); err != nil {
		m.logger.Warn("saving task schedule failed", "pending", len(sched.Pending), "error", err)
	}
}

func (m *Manager[D, R, P]) scheduleLocked() Schedule[D] {
	sched := Schedule[D]{NextID: ID(m.nextID.Load()), Pending: []Record[D]{}}
	for _, e := range m.tasks {
		if e.state == Pending {
			sched.Pending = append(sched.Pending, Record[D]{ID: e.id, StartAt: e.startAt, Data: e.data})
		}
	}
	slices.SortFunc(sched.Pending, func(a, b Record[D]) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return sched
}
