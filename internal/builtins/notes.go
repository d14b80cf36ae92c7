// ABOUTME: Notes component provides per-room key-value notes.
// ABOUTME: State lives in a guarded cell persisted to the app_data table.

package builtins

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/2389/coven-bot/internal/command"
	"github.com/2389/coven-bot/internal/component"
	"github.com/2389/coven-bot/internal/guard"
	"github.com/2389/coven-bot/internal/reply"
	"github.com/2389/coven-bot/internal/store"
)

const notesDocument = "notes"

// noteBook maps room id to note key to value.
type noteBook map[string]map[string]string

// Notes stores short notes per room.
type Notes struct {
	store  store.DocumentStore
	logger *slog.Logger
	book   *guard.Cell[noteBook]
}

// NewNotes creates a Notes component backed by s.
func NewNotes(s store.DocumentStore, logger *slog.Logger) *Notes {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notes{store: s, logger: logger.With("component", "notes")}
}

// Name implements component.Component.
func (n *Notes) Name() string { return "notes" }

// Start loads saved notes.
func (n *Notes) Start(ctx context.Context, _ *component.Registry) error {
	cell, err := store.OpenCell(ctx, n.store, notesDocument, noteBook{}, n.logger)
	if err != nil {
		return err
	}
	n.book = cell
	return nil
}

// Commands implements component.Commander.
func (n *Notes) Commands() []command.Node {
	key := command.RequiredArg("key", command.String, "note name")
	return []command.Node{
		command.Group("note", "Room notes",
			command.Leaf("set", "Save a note", n.set,
				key,
				command.RequiredArg("value", command.String, "note text"),
			),
			command.Leaf("get", "Show a note", n.get, key),
			command.Leaf("list", "List note names in this room", n.list),
			command.Leaf("delete", "Delete a note", n.delete, key),
		),
	}
}

func (n *Notes) set(ctx context.Context, inv *command.Invocation) (*reply.Message, error) {
	room, key, value := inv.Source.ChannelID, inv.String("key"), inv.String("value")
	err := n.book.Update(ctx, func(b *noteBook) error {
		if *b == nil {
			*b = noteBook{}
		}
		if (*b)[room] == nil {
			(*b)[room] = make(map[string]string)
		}
		(*b)[room][key] = value
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("saving note: %w", err)
	}
	return reply.Textf("Saved note `%s`.", key), nil
}

func (n *Notes) get(ctx context.Context, inv *command.Invocation) (*reply.Message, error) {
	key := inv.String("key")
	var (
		value string
		found bool
	)
	err := n.book.View(ctx, func(b noteBook) error {
		value, found = b[inv.Source.ChannelID][key]
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return reply.Errorf("No note called `%s` here.", key), nil
	}
	return reply.Textf("**%s**: %s", key, value), nil
}

func (n *Notes) list(ctx context.Context, inv *command.Invocation) (*reply.Message, error) {
	var keys []string
	err := n.book.View(ctx, func(b noteBook) error {
		for k := range b[inv.Source.ChannelID] {
			keys = append(keys, k)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return reply.Text("No notes in this room."), nil
	}
	slices.Sort(keys)
	return reply.Text("Notes: `" + strings.Join(keys, "`, `") + "`"), nil
}

func (n *Notes) delete(ctx context.Context, inv *command.Invocation) (*reply.Message, error) {
	room, key := inv.Source.ChannelID, inv.String("key")
	var found bool
	err := n.book.Update(ctx, func(b *noteBook) error {
		if _, found = (*b)[room][key]; found {
			delete((*b)[room], key)
			if len((*b)[room]) == 0 {
				delete(*b, room)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("deleting note: %w", err)
	}
	if !found {
		return reply.Errorf("No note called `%s` here.", key), nil
	}
	return reply.Textf("Deleted note `%s`.", key), nil
}

// Snapshot returns a copy of the notes in room.
func (n *Notes) Snapshot(ctx context.Context, room string) (map[string]string, error) {
	out := make(map[string]string)
	err := n.book.View(ctx, func(b noteBook) error {
		for k, v := range b[room] {
			out[k] = v
		}
		return nil
	})
	return out, err
}
