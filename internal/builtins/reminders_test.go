// ABOUTME: Tests for the reminders component
// ABOUTME: Uses a clock set in the past so reminders can fire without waiting

package builtins

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-bot/internal/reply"
	"github.com/2389/coven-bot/internal/store"
	"github.com/2389/coven-bot/internal/task"
)

func TestReminders_AddListCancel(t *testing.T) {
	rem := NewReminders(reply.NewRecorder(), nil, nil)
	h := newHarness(t, nil, rem)

	assert.Equal(t, "Reminder #1 set for 2h from now.", h.say("!r", "@a", "remind add 2h water the plants").Text)
	assert.Equal(t, "Reminder #2 set for 3h from now.", h.say("!other", "@a", "remind add 3h elsewhere").Text)

	list := h.say("!r", "@a", "remind list").Text
	assert.Contains(t, list, "#1")
	assert.Contains(t, list, "water the plants")
	assert.NotContains(t, list, "elsewhere")

	denied := h.say("!r", "@b", "remind cancel 1")
	assert.True(t, denied.IsError)

	wrongRoom := h.say("!r", "@a", "remind cancel 2")
	assert.True(t, wrongRoom.IsError)

	assert.Equal(t, "Cancelled reminder #1.", h.say("!r", "@a", "remind cancel 1").Text)
	assert.Equal(t, "No pending reminders in this room.", h.say("!r", "@a", "remind list").Text)

	again := h.say("!r", "@a", "remind cancel 1")
	assert.True(t, again.IsError)
	assert.Contains(t, again.Text, "cancelled")
}

func TestReminders_OwnerCanCancel(t *testing.T) {
	rem := NewReminders(reply.NewRecorder(), nil, nil)
	h := newHarness(t, nil, NewAccess([]string{"@boss"}), rem)

	h.say("!r", "@a", "remind add 1h stretch")
	assert.Equal(t, "Cancelled reminder #1.", h.say("!r", "@boss", "remind cancel 1").Text)
}

func TestReminders_BadTime(t *testing.T) {
	h := newHarness(t, nil, NewReminders(reply.NewRecorder(), nil, nil))

	msg := h.say("!r", "@a", "remind add soonish do things")
	assert.True(t, msg.IsError)
	assert.Contains(t, msg.Text, "soonish")
}

func TestReminders_Fires(t *testing.T) {
	sent := reply.NewRecorder()
	rem := NewReminders(sent, nil, nil)
	// Due times computed from this clock are already past in real time.
	rem.now = func() time.Time { return time.Now().Add(-time.Hour) }
	h := newHarness(t, nil, rem)

	h.say("!r", "@a", "remind add 10min standup")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := rem.tasks.Wait(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, task.Completed, snap.State)
	assert.Equal(t, "standup", snap.Result)

	last, ok := sent.Last()
	require.True(t, ok)
	assert.Equal(t, "⏰ @a: standup", last.Message.Text)
	assert.Equal(t, reply.Target{Platform: "test", ChannelID: "!r"}, last.Target)
}

func TestReminders_CloseCancelsPending(t *testing.T) {
	rem := NewReminders(reply.NewRecorder(), nil, nil)
	h := newHarness(t, nil, rem)
	h.say("!r", "@a", "remind add 1d later")

	require.NoError(t, rem.Close())
	snap, err := rem.tasks.Status(1)
	require.NoError(t, err)
	assert.Equal(t, task.Cancelled, snap.State)
}

func TestReminders_SurviveRestart(t *testing.T) {
	s := store.NewMockStore()

	before := NewReminders(reply.NewRecorder(), s, nil)
	h := newHarness(t, nil, before)
	assert.Equal(t, "Reminder #1 set for 2h from now.", h.say("!r", "@a", "remind add 2h water the plants").Text)
	require.NoError(t, before.Close())

	doc, err := s.GetDocument(context.Background(), "reminders")
	require.NoError(t, err)
	assert.Contains(t, string(doc.Value), "water the plants")

	after := NewReminders(reply.NewRecorder(), s, nil)
	h = newHarness(t, nil, after)

	snap, err := after.tasks.Status(1)
	require.NoError(t, err)
	assert.Equal(t, task.Pending, snap.State)
	assert.Equal(t, "@a", snap.Data.Author)

	assert.Contains(t, h.say("!r", "@a", "remind list").Text, "water the plants")
	assert.Equal(t, "Reminder #2 set for 1h from now.", h.say("!r", "@a", "remind add 1h stretch").Text)
}

func TestReminders_OverdueSentOnStart(t *testing.T) {
	s := store.NewMockStore()
	sched := `{"next_id":4,"pending":[{"id":4,"start_at":"2020-01-01T09:00:00Z","data":{"platform":"test","room":"!r","author":"@a","text":"missed it","due":"2020-01-01T09:00:00Z"}}]}`
	require.NoError(t, s.PutDocument(context.Background(), "reminders", []byte(sched)))

	sent := reply.NewRecorder()
	rem := NewReminders(sent, s, nil)
	newHarness(t, nil, rem)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := rem.tasks.Wait(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, task.Completed, snap.State)

	last, ok := sent.Last()
	require.True(t, ok)
	assert.Equal(t, "⏰ @a: missed it", last.Message.Text)
}
