// ABOUTME: In-memory Replier that records every reply for tests and dry runs
// ABOUTME: Safe for concurrent use by dispatcher workers

package reply

import (
	"context"
	"sync"
)

// Sent is one recorded reply.
type Sent struct {
	Target  Target
	Message Message
}

// Recorder implements Replier by keeping replies in memory.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
	// Err, when set, is returned from every Reply call after recording.
	Err error
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Reply records the message.
func (r *Recorder) Reply(_ context.Context, target Target, msg *Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg != nil {
		r.sent = append(r.sent, Sent{Target: target, Message: *msg})
	}
	return r.Err
}

// Sent returns a copy of all recorded replies in order.
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sent, len(r.sent))
	copy(out, r.sent)
	return out
}

// Last returns the most recent reply, or false if none was recorded.
func (r *Recorder) Last() (Sent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return Sent{}, false
	}
	return r.sent[len(r.sent)-1], true
}

// Reset drops recorded replies.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}
