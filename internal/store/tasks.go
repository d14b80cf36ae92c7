// ABOUTME: Task registry keeping a task manager's pending schedule in a named document
// ABOUTME: Lets scheduled work such as reminders survive a restart

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/2389/coven-bot/internal/task"
)

// TaskRegistry implements task.Registry on top of a DocumentStore.
type TaskRegistry[D any] struct {
	docs DocumentStore
	name string
}

var _ task.Registry[struct{}] = (*TaskRegistry[struct{}])(nil)

// NewTaskRegistry stores the schedule in the document called name.
func NewTaskRegistry[D any](docs DocumentStore, name string) *TaskRegistry[D] {
	return &TaskRegistry[D]{docs: docs, name: name}
}

// Load returns the saved schedule, or an empty one if nothing was saved yet.
func (r *TaskRegistry[D]) Load(ctx context.Context) (task.Schedule[D], error) {
	var sched task.Schedule[D]
	doc, err := r.docs.GetDocument(ctx, r.name)
	if errors.Is(err, ErrNotFound) {
		return sched, nil
	}
	if err != nil {
		return sched, fmt.Errorf("loading %s: %w", r.name, err)
	}
	if err := json.Unmarshal(doc.Value, &sched); err != nil {
		return sched, fmt.Errorf("decoding %s: %w", r.name, err)
	}
	return sched, nil
}

// Save replaces the stored schedule.
func (r *TaskRegistry[D]) Save(ctx context.Context, sched task.Schedule[D]) error {
	data, err := json.Marshal(sched)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", r.name, err)
	}
	return r.docs.PutDocument(ctx, r.name, data)
}
