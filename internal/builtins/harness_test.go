// ABOUTME: Test harness wiring builtin components through a registry and dispatcher
// ABOUTME: Commands are sent as text lines and replies captured by a recorder

package builtins

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/2389/coven-bot/internal/command"
	"github.com/2389/coven-bot/internal/component"
	"github.com/2389/coven-bot/internal/event"
	"github.com/2389/coven-bot/internal/reply"
)

type harness struct {
	t          *testing.T
	registry   *component.Registry
	dispatcher *event.Dispatcher
	replies    *reply.Recorder
	tree       *command.Tree
}

func newHarness(t *testing.T, replies *reply.Recorder, cs ...component.Component) *harness {
	t.Helper()
	if replies == nil {
		replies = reply.NewRecorder()
	}

	reg := component.NewRegistry(nil)
	reg.MustRegister(cs...)
	reg.Seal()

	tree, err := command.Build(reg.CommandNodes()...)
	require.NoError(t, err)
	require.NoError(t, reg.Start(context.Background()))
	t.Cleanup(func() { _ = reg.Close() })

	d := event.NewDispatcher(event.Config{Tree: tree, Replier: replies})
	for _, s := range component.Find[event.Subscriber](reg) {
		d.SubscribeAll(s)
	}

	return &harness{t: t, registry: reg, dispatcher: d, replies: replies, tree: tree}
}

// say sends a command line from sender in room and returns the reply.
func (h *harness) say(room, sender, line string) reply.Message {
	h.t.Helper()
	h.replies.Reset()
	h.dispatcher.Dispatch(context.Background(), &event.Event{
		Kind:      event.KindCommand,
		Platform:  "test",
		ChannelID: room,
		SenderID:  sender,
		Text:      line,
	})
	last, ok := h.replies.Last()
	require.True(h.t, ok, "no reply to %q", line)
	return last.Message
}

func (h *harness) emit(evt *event.Event) event.Result {
	h.t.Helper()
	return h.dispatcher.Dispatch(context.Background(), evt)
}
