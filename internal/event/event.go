// ABOUTME: Event values produced by platform adapters and the listener interfaces
// ABOUTME: Kinds are plain strings so adapters can add their own

package event

import (
	"context"
	"time"

	"github.com/2389/coven-bot/internal/command"
	"github.com/2389/coven-bot/internal/reply"
)

// Kind names a class of event.
type Kind string

const (
	KindReady       Kind = "ready"
	KindMessage     Kind = "message"
	KindCommand     Kind = "command"
	KindInteraction Kind = "interaction"
	KindMemberJoin  Kind = "member_join"
	KindMemberLeave Kind = "member_leave"
)

// CommandRequest is an unresolved command invocation.
type CommandRequest struct {
	Path string
	Args map[string]string
}

// Event is one inbound occurrence from a platform.
type Event struct {
	// ID is the platform event id and the dedupe key.
	ID        string
	Kind      Kind
	Platform  string
	ChannelID string
	SenderID  string
	Time      time.Time
	// Text is the message body, or the command line when Command is nil.
	Text string
	// Command is set by adapters with native commands. When nil for a command
	// event the dispatcher parses Text.
	Command *CommandRequest
	// Invocation is set by the dispatcher once a command event resolves.
	Invocation *command.Invocation
	// HandlerErr is set by the dispatcher when the command handler failed.
	HandlerErr error
	// Payload carries the platform's own event value.
	Payload any
}

// Target returns where replies to this event go.
func (e *Event) Target() reply.Target {
	return reply.Target{
		Platform:  e.Platform,
		ChannelID: e.ChannelID,
		SenderID:  e.SenderID,
		EventID:   e.ID,
	}
}

// Source returns the invocation source for this event.
func (e *Event) Source() command.Source {
	return command.Source{
		Platform:  e.Platform,
		ChannelID: e.ChannelID,
		SenderID:  e.SenderID,
		EventID:   e.ID,
	}
}

// Listener receives events.
type Listener interface {
	Name() string
	HandleEvent(ctx context.Context, evt *Event) error
}

// Subscriber is a listener that declares which kinds it wants.
type Subscriber interface {
	Listener
	Subscriptions() []Kind
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc struct {
	ID string
	Fn func(ctx context.Context, evt *Event) error
}

// Name implements Listener.
func (f ListenerFunc) Name() string { return f.ID }

// HandleEvent implements Listener.
func (f ListenerFunc) HandleEvent(ctx context.Context, evt *Event) error {
	return f.Fn(ctx, evt)
}
