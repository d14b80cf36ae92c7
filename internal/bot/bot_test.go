// ABOUTME: Tests for the bot composition root
// ABOUTME: Runs the full stack against an in-memory platform and a temp SQLite file

package bot

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-bot/internal/builtins"
	"github.com/2389/coven-bot/internal/command"
	"github.com/2389/coven-bot/internal/component"
	"github.com/2389/coven-bot/internal/config"
	"github.com/2389/coven-bot/internal/event"
	"github.com/2389/coven-bot/internal/feed"
	"github.com/2389/coven-bot/internal/reply"
)

// fakePlatform feeds scripted events and records replies.
type fakePlatform struct {
	*reply.Recorder
	in     chan *event.Event
	closed bool
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{Recorder: reply.NewRecorder(), in: make(chan *event.Event)}
}

func (p *fakePlatform) Run(ctx context.Context, out chan<- *event.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-p.in:
			if !ok {
				return nil
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (p *fakePlatform) Close() error {
	p.closed = true
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "bot.db")
	cfg.Bot.Owners = []string{"@owner:example.org"}
	cfg.Dispatch.Workers = 1
	return cfg
}

func newTestBot(t *testing.T) (*Bot, *fakePlatform) {
	t.Helper()
	p := newFakePlatform()
	b, err := New(context.Background(), testConfig(t), p, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b, p
}

func TestNew_BuildsStockTree(t *testing.T) {
	b, _ := newTestBot(t)

	for _, path := range []string{"help", "ping", "uptime", "roll", "note.set", "remind.add", "stats.show"} {
		_, ok := b.Tree().Lookup(path)
		assert.True(t, ok, path)
	}
	assert.Equal(t, 8, b.Registry().Len())
	assert.Equal(t, []string{"stats", "feed"}, b.Dispatcher().Listeners(event.KindMessage))
	assert.Equal(t, []string{"registrar", "feed"}, b.Dispatcher().Listeners(event.KindReady))
}

type clash struct{}

func (clash) Name() string { return "clash" }

func (clash) Commands() []command.Node {
	return []command.Node{command.Leaf("ping", "again", nil)}
}

func TestNew_SchemaErrorIsFatal(t *testing.T) {
	_, err := New(context.Background(), testConfig(t), newFakePlatform(), nil, clash{})
	var schemaErr *command.SchemaError
	require.ErrorAs(t, err, &schemaErr)
}

func TestNew_DuplicateComponentIsFatal(t *testing.T) {
	_, err := New(context.Background(), testConfig(t), newFakePlatform(), nil, builtins.NewMisc())
	require.ErrorIs(t, err, component.ErrDuplicateComponent)
}

func TestRun_EndToEnd(t *testing.T) {
	b, p := newTestBot(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	p.in <- &event.Event{Kind: event.KindReady, Platform: "fake"}
	p.in <- &event.Event{ID: "$1", Kind: event.KindCommand, Platform: "fake", ChannelID: "!r", SenderID: "@a", Text: "note set door 1234"}
	p.in <- &event.Event{ID: "$1", Kind: event.KindCommand, Platform: "fake", ChannelID: "!r", SenderID: "@a", Text: "note set door 1234"}
	p.in <- &event.Event{ID: "$2", Kind: event.KindCommand, Platform: "fake", ChannelID: "!r", SenderID: "@a", Text: "note get door"}

	require.Eventually(t, func() bool {
		return len(p.Sent()) >= 2
	}, 2*time.Second, 10*time.Millisecond)

	texts := map[string]bool{}
	for _, s := range p.Sent() {
		texts[s.Message.Text] = true
	}
	assert.True(t, texts["Saved note `door`."])
	assert.True(t, texts["**door**: 1234"])

	require.Eventually(t, func() bool { return b.Published() != nil }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.True(t, p.closed)
	assert.Len(t, p.Sent(), 2, "duplicate event must not be handled twice")
}

func TestHTTP(t *testing.T) {
	b, _ := newTestBot(t)
	h := b.routes()

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, get("/health").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get("/health/ready").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get("/api/commands").Code)

	b.Dispatcher().Dispatch(context.Background(), &event.Event{Kind: event.KindReady})

	assert.Equal(t, http.StatusOK, get("/health/ready").Code)
	rec := get("/api/commands")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var cmds []command.AppCommand
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cmds))
	var names []string
	for _, c := range cmds {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"note", "remind", "stats", "help", "ping", "uptime", "roll"}, names)
}

func TestRegistration(t *testing.T) {
	cmds, err := Registration(config.Default())
	require.NoError(t, err)

	var groups int
	for _, c := range cmds {
		if len(c.Options) > 0 && c.Options[0].Type == command.OptionSubCommand {
			groups++
		}
	}
	assert.Equal(t, 3, groups)
	assert.Len(t, cmds, 7)
}

func TestHTTP_EventStream(t *testing.T) {
	b, _ := newTestBot(t)
	srv := httptest.NewServer(b.routes())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events?channel=!r", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return b.feed.Watchers() == 1 }, time.Second, 5*time.Millisecond)
	b.Dispatcher().Dispatch(ctx, &event.Event{ID: "$other", Kind: event.KindMessage, ChannelID: "!elsewhere", Text: "ignored"})
	b.Dispatcher().Dispatch(ctx, &event.Event{ID: "$cmd", Kind: event.KindCommand, ChannelID: "!r", SenderID: "@a", Text: "ping"})

	scanner := bufio.NewScanner(resp.Body)
	var kind string
	for scanner.Scan() {
		line := scanner.Text()
		if k, ok := strings.CutPrefix(line, "event: "); ok {
			kind = k
		}
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			var e feed.Entry
			require.NoError(t, json.Unmarshal([]byte(data), &e))
			assert.Equal(t, "command", kind)
			assert.Equal(t, "$cmd", e.ID)
			assert.Equal(t, "ping", e.Command)
			return
		}
	}
	t.Fatalf("stream ended: %v", scanner.Err())
}
