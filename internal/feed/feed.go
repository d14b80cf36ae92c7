// ABOUTME: In-memory fan-out of dispatched bot events to live watchers
// ABOUTME: Subscribes to the dispatcher like any component and never blocks it

package feed

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/coven-bot/internal/event"
)

// subscriberBufferSize is the channel buffer for each watcher.
const subscriberBufferSize = 64

// allChannels is the key for watchers of every channel.
const allChannels = "*"

// Entry is the public view of one dispatched event.
type Entry struct {
	ID        string     `json:"id"`
	Kind      event.Kind `json:"kind"`
	Platform  string     `json:"platform,omitempty"`
	ChannelID string     `json:"channel_id,omitempty"`
	SenderID  string     `json:"sender_id,omitempty"`
	Time      time.Time  `json:"time"`
	Text      string     `json:"text,omitempty"`
	// Command is the dotted path of a resolved command.
	Command string `json:"command,omitempty"`
	Failed  bool   `json:"failed,omitempty"`
}

// FromEvent builds an Entry from a dispatched event.
func FromEvent(evt *event.Event) Entry {
	e := Entry{
		ID:        evt.ID,
		Kind:      evt.Kind,
		Platform:  evt.Platform,
		ChannelID: evt.ChannelID,
		SenderID:  evt.SenderID,
		Time:      evt.Time,
		Text:      evt.Text,
	}
	if evt.Invocation != nil {
		e.Command = evt.Invocation.Path
		e.Failed = evt.HandlerErr != nil
	}
	return e
}

// Feed is an event.Subscriber that republishes events to watchers keyed by
// channel id.
type Feed struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan Entry // channel -> subID -> ch
	closed      bool
	logger      *slog.Logger
}

var _ event.Subscriber = (*Feed)(nil)

// New creates a Feed. Pass nil logger for default.
func New(logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		subscribers: make(map[string]map[string]chan Entry),
		logger:      logger.With("component", "feed"),
	}
}

// Name implements component.Component.
func (f *Feed) Name() string { return "feed" }

// Subscriptions implements event.Subscriber.
func (f *Feed) Subscriptions() []event.Kind {
	return []event.Kind{
		event.KindReady,
		event.KindMessage,
		event.KindCommand,
		event.KindMemberJoin,
		event.KindMemberLeave,
	}
}

// HandleEvent implements event.Listener.
func (f *Feed) HandleEvent(_ context.Context, evt *event.Event) error {
	f.Publish(FromEvent(evt))
	return nil
}

// Subscribe registers a watcher for channelID, or for every channel when
// channelID is empty. The returned channel is closed when ctx is cancelled,
// on Unsubscribe, or on Close.
func (f *Feed) Subscribe(ctx context.Context, channelID string) (<-chan Entry, string) {
	key := strings.TrimSpace(channelID)
	if key == "" {
		key = allChannels
	}
	subID := uuid.New().String()
	ch := make(chan Entry, subscriberBufferSize)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(ch)
		return ch, subID
	}
	if _, ok := f.subscribers[key]; !ok {
		f.subscribers[key] = make(map[string]chan Entry)
	}
	f.subscribers[key][subID] = ch
	f.mu.Unlock()

	f.logger.Debug("watcher added", "channel", key, "sub_id", subID)

	go func() {
		<-ctx.Done()
		f.Unsubscribe(subID)
	}()
	return ch, subID
}

// Publish delivers e to watchers of its channel and of all channels.
// Watchers whose buffers are full miss the entry.
func (f *Feed) Publish(e Entry) {
	// Sends happen under the read lock so Unsubscribe cannot close a
	// channel mid-send; they never block.
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, key := range []string{e.ChannelID, allChannels} {
		if key == "" {
			continue
		}
		for _, ch := range f.subscribers[key] {
			select {
			case ch <- e:
			default:
				f.logger.Debug("dropped entry for slow watcher", "channel", key, "event_id", e.ID)
			}
		}
	}
}

// Unsubscribe removes a watcher and closes its channel.
func (f *Feed) Unsubscribe(subID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for key, subs := range f.subscribers {
		ch, ok := subs[subID]
		if !ok {
			continue
		}
		delete(subs, subID)
		close(ch)
		if len(subs) == 0 {
			delete(f.subscribers, key)
		}
		f.logger.Debug("watcher removed", "channel", key, "sub_id", subID)
		return
	}
}

// Watchers returns the number of active watchers.
func (f *Feed) Watchers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, subs := range f.subscribers {
		n += len(subs)
	}
	return n
}

// Close closes every watcher channel. Later subscriptions get a closed
// channel.
func (f *Feed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	for key, subs := range f.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(f.subscribers, key)
	}
	f.logger.Debug("feed closed")
	return nil
}
