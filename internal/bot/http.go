// ABOUTME: Status HTTP handlers: health, readiness and the published command list
// ABOUTME: No authentication; bind the server to a private address

package bot

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// keepaliveInterval is how often an idle event stream gets a comment line.
const keepaliveInterval = 30 * time.Second

func (b *Bot) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", b.handleHealth)
	mux.HandleFunc("GET /health/ready", b.handleReady)
	mux.HandleFunc("GET /api/commands", b.handleCommands)
	mux.HandleFunc("GET /api/events", b.handleEvents)
	return mux
}

// handleHealth returns 200 OK if the server is alive.
func (b *Bot) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 once the platform has reported ready.
func (b *Bot) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !b.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("platform not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (b *Bot) handleCommands(w http.ResponseWriter, _ *http.Request) {
	cmds := b.Published()
	if cmds == nil {
		sendJSONError(w, http.StatusServiceUnavailable, "commands not published yet")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(cmds)
}

func sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// handleEvents streams dispatched events as server-sent events. The optional
// channel query parameter limits the stream to one room.
func (b *Bot) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		b.logger.Error("streaming not supported")
		sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx := r.Context()
	entries, _ := b.feed.Subscribe(ctx, r.URL.Query().Get("channel"))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			_, _ = fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case e, ok := <-entries:
			if !ok {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				b.logger.Error("encoding feed entry", "error", err)
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Kind, data)
			flusher.Flush()
		}
	}
}
