// ABOUTME: Response values produced by command handlers and the reply collaborator interface
// ABOUTME: Platform adapters implement Replier to deliver messages back to users

package reply

import (
	"context"
	"fmt"
)

// Message is the platform-neutral response a handler produces.
// Text is Markdown; adapters decide how to render it.
type Message struct {
	Text string
	// Ephemeral asks the platform to show the reply only to the invoker,
	// when it supports that.
	Ephemeral bool
	// IsError marks user-facing failures (unknown command, bad argument).
	IsError bool
}

// Target identifies where a reply goes.
type Target struct {
	Platform  string
	ChannelID string
	SenderID  string
	// EventID is the inbound event being answered, if any.
	EventID string
}

// Replier delivers messages over the platform connection.
type Replier interface {
	Reply(ctx context.Context, target Target, msg *Message) error
}

// Text returns a plain reply.
func Text(text string) *Message {
	return &Message{Text: text}
}

// Textf returns a formatted plain reply.
func Textf(format string, args ...any) *Message {
	return &Message{Text: fmt.Sprintf(format, args...)}
}

// Error returns a user-visible error reply.
func Error(text string) *Message {
	return &Message{Text: text, IsError: true, Ephemeral: true}
}

// Errorf returns a formatted user-visible error reply.
func Errorf(format string, args ...any) *Message {
	return Error(fmt.Sprintf(format, args...))
}

// ReplierFunc adapts a function to the Replier interface.
type ReplierFunc func(ctx context.Context, target Target, msg *Message) error

// Reply implements Replier.
func (f ReplierFunc) Reply(ctx context.Context, target Target, msg *Message) error {
	return f(ctx, target, msg)
}
