// ABOUTME: Tests for the stats component
// ABOUTME: Checks room counters and the command log entries written per command

package builtins

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-bot/internal/command"
	"github.com/2389/coven-bot/internal/event"
	"github.com/2389/coven-bot/internal/reply"
	"github.com/2389/coven-bot/internal/store"
)

type failing struct{}

func (failing) Name() string { return "failing" }

func (failing) Commands() []command.Node {
	return []command.Node{
		command.Leaf("boom", "always fails", func(context.Context, *command.Invocation) (*reply.Message, error) {
			return nil, errors.New("boom")
		}),
	}
}

func TestStats_CountsAndLogs(t *testing.T) {
	s := store.NewMockStore()
	stats := NewStats(s, nil)
	h := newHarness(t, nil, stats, NewMisc(), failing{})

	h.emit(&event.Event{Kind: event.KindMessage, ChannelID: "!r", SenderID: "@a", Text: "hi"})
	h.emit(&event.Event{Kind: event.KindMessage, ChannelID: "!r", SenderID: "@b", Text: "hello"})
	h.emit(&event.Event{Kind: event.KindMemberJoin, ChannelID: "!r", SenderID: "@c"})
	h.emit(&event.Event{Kind: event.KindMessage, ChannelID: "!elsewhere", SenderID: "@a"})
	h.say("!r", "@a", "ping")
	h.say("!r", "@a", "boom")

	rs, err := stats.Room(context.Background(), "!r")
	require.NoError(t, err)
	assert.Equal(t, 2, rs.Messages)
	assert.Equal(t, 2, rs.Commands)
	assert.Equal(t, 1, rs.Joins)
	assert.False(t, rs.LastActive.IsZero())

	recs, err := s.ListCommands(context.Background(), store.CommandFilter{ChannelID: "!r"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	byPath := map[string]bool{}
	for _, rec := range recs {
		byPath[rec.Path] = rec.OK
	}
	assert.Equal(t, map[string]bool{"ping": true, "boom": false}, byPath)

	show := h.say("!r", "@a", "stats show").Text
	assert.Contains(t, show, "**This room**: 2 messages, 2 commands, 1 joins")
	assert.Contains(t, show, "**All rooms**: 3 messages, 2 commands, 1 joins")

	recent := h.say("!r", "@a", "stats recent 5").Text
	assert.Contains(t, recent, "`ping` by @a (ok)")
	assert.Contains(t, recent, "`boom` by @a (failed)")
}

func TestStats_RejectedCommandsAreNotLogged(t *testing.T) {
	s := store.NewMockStore()
	stats := NewStats(s, nil)
	h := newHarness(t, nil, stats, NewMisc())

	h.say("!r", "@a", "nonsense")

	rs, err := stats.Room(context.Background(), "!r")
	require.NoError(t, err)
	assert.Zero(t, rs.Commands)

	recs, err := s.ListCommands(context.Background(), store.CommandFilter{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestStats_WithoutLog(t *testing.T) {
	h := newHarness(t, nil, NewStats(nil, nil))

	msg := h.say("!r", "@a", "stats recent")
	assert.True(t, msg.IsError)
}
