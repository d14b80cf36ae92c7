// ABOUTME: Reminders component scheduling delayed messages on a task manager
// ABOUTME: Each reminder is a pending task that posts back to its room when due

package builtins

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/2389/coven-bot/internal/command"
	"github.com/2389/coven-bot/internal/component"
	"github.com/2389/coven-bot/internal/reply"
	"github.com/2389/coven-bot/internal/store"
	"github.com/2389/coven-bot/internal/task"
	"github.com/2389/coven-bot/internal/timeparse"
)

// Reminder is the data carried by a reminder task.
type Reminder struct {
	Platform string    `json:"platform"`
	Room     string    `json:"room"`
	Author   string    `json:"author"`
	Text     string    `json:"text"`
	Due      time.Time `json:"due"`
}

// remindersDocument holds pending reminders across restarts.
const remindersDocument = "reminders"

// Reminders schedules "remind add" messages.
type Reminders struct {
	replier reply.Replier
	tasks   *task.Manager[Reminder, string, string]
	access  *Access
	now     func() time.Time
	logger  *slog.Logger
}

// NewReminders creates the component. Due reminders are sent through
// replier. When docs is not nil pending reminders are saved there and
// rescheduled by Start.
func NewReminders(replier reply.Replier, docs store.DocumentStore, logger *slog.Logger, opts ...task.Option) *Reminders {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append([]task.Option{task.WithLogger(logger), task.WithName("reminders")}, opts...)
	if docs != nil {
		opts = append(opts, task.WithRegistry[Reminder](store.NewTaskRegistry[Reminder](docs, remindersDocument)))
	}
	return &Reminders{
		replier: replier,
		tasks:   task.NewManager[Reminder, string, string](opts...),
		now:     time.Now,
		logger:  logger.With("component", "reminders"),
	}
}

// Name implements component.Component.
func (r *Reminders) Name() string { return "reminders" }

// Start resolves the optional Access component and reschedules saved
// reminders. Overdue ones are sent right away.
func (r *Reminders) Start(ctx context.Context, reg *component.Registry) error {
	if access, err := component.Get[*Access](reg); err == nil {
		r.access = access
	}
	n, err := r.tasks.Restore(ctx, r.fire)
	if err != nil {
		return fmt.Errorf("restoring reminders: %w", err)
	}
	if n > 0 {
		r.logger.Info("reminders restored", "count", n)
	}
	return nil
}

// Close stops outstanding reminders. Saved ones come back on the next Start.
func (r *Reminders) Close() error {
	r.tasks.Close()
	return nil
}

// Commands implements component.Commander.
func (r *Reminders) Commands() []command.Node {
	return []command.Node{
		command.Group("remind", "Reminders",
			command.Leaf("add", "Remind this room later", r.add,
				command.RequiredArg("when", command.String, "a delay like 10min or 1h30, or a time like 18:45"),
				command.RequiredArg("text", command.String, "what to say"),
			),
			command.Leaf("list", "List pending reminders in this room", r.list),
			command.Leaf("cancel", "Cancel a reminder", r.cancel,
				command.RequiredArg("id", command.Integer, "reminder number"),
			),
		),
	}
}

func (r *Reminders) add(_ context.Context, inv *command.Invocation) (*reply.Message, error) {
	now := r.now()
	due, err := timeparse.ParseWhen(inv.String("when"), now)
	if err != nil {
		return reply.Errorf("I can't tell when `%s` is. Try `10min`, `1h30` or `18:45`.", inv.String("when")), nil
	}

	rem := Reminder{
		Platform: inv.Source.Platform,
		Room:     inv.Source.ChannelID,
		Author:   inv.Source.SenderID,
		Text:     inv.String("text"),
		Due:      due,
	}
	id, err := r.tasks.SpawnAt(due, rem, r.fire)
	if err != nil {
		return nil, fmt.Errorf("scheduling reminder: %w", err)
	}

	r.logger.Info("reminder scheduled", "task_id", id, "room", rem.Room, "due", due)
	return reply.Textf("Reminder #%s set for %s from now.", id, timeparse.Format(due.Sub(now))), nil
}

func (r *Reminders) fire(ctx context.Context, rem Reminder, progress *task.Progress[string]) (string, error) {
	progress.Report("sending")
	target := reply.Target{Platform: rem.Platform, ChannelID: rem.Room}
	msg := reply.Textf("⏰ %s: %s", rem.Author, rem.Text)
	if err := r.replier.Reply(ctx, target, msg); err != nil {
		return "", fmt.Errorf("sending reminder: %w", err)
	}
	return rem.Text, nil
}

func (r *Reminders) list(_ context.Context, inv *command.Invocation) (*reply.Message, error) {
	now := r.now()
	var lines []string
	for _, snap := range r.tasks.List() {
		if snap.State != task.Pending || snap.Data.Room != inv.Source.ChannelID {
			continue
		}
		lines = append(lines, fmt.Sprintf("- #%s in %s: %s", snap.ID, timeparse.Format(snap.Data.Due.Sub(now)), snap.Data.Text))
	}
	if len(lines) == 0 {
		return reply.Text("No pending reminders in this room."), nil
	}
	return reply.Text(strings.Join(lines, "\n")), nil
}

func (r *Reminders) cancel(_ context.Context, inv *command.Invocation) (*reply.Message, error) {
	id := task.ID(inv.Int("id", 0))
	snap, err := r.tasks.Status(id)
	if errors.Is(err, task.ErrNotFound) || (err == nil && snap.Data.Room != inv.Source.ChannelID) {
		return reply.Errorf("No reminder #%s in this room.", id), nil
	}
	if err != nil {
		return nil, err
	}
	if snap.State != task.Pending {
		return reply.Errorf("Reminder #%s already %s.", id, snap.State), nil
	}

	sender := inv.Source.SenderID
	if snap.Data.Author != sender && (r.access == nil || !r.access.IsOwner(sender)) {
		return reply.Error("Only the author or a bot owner can cancel that reminder."), nil
	}

	if err := r.tasks.Cancel(id); err != nil {
		return nil, fmt.Errorf("cancelling reminder: %w", err)
	}
	return reply.Textf("Cancelled reminder #%s.", id), nil
}
