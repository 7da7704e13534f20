// Package sse implements the SSE transport (§4.5): server-side framing of
// EventQueue events with heartbeats and Last-Event-ID replay, and a
// reconnecting client for consuming another agent's event stream.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/theapemachine/a2a-go/pkg/a2a"
	"github.com/theapemachine/a2a-go/pkg/eventqueue"
)

const DefaultHeartbeatInterval = 30 * time.Second

// ServeQueue upgrades the connection to an SSE stream over queue, replaying
// any events after the client's Last-Event-ID (header or query param) before
// switching to live delivery. filter scopes the stream (e.g. a2a.ForTask).
// Blocks until the client disconnects or the queue closes.
func ServeQueue(w http.ResponseWriter, r *http.Request, queue *eventqueue.Queue, filter a2a.Filter, heartbeat time.Duration) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeatInterval
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if lastID, err := a2a.ParseHexID(lastEventID(r)); err == nil {
		for _, e := range queue.Replay(lastID) {
			if filter == nil || filter(e) {
				writeEvent(w, e)
			}
		}
		flusher.Flush()
	}

	sub := queue.Subscribe(filter)
	defer sub.Unsubscribe()

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-sub.Events():
			if !ok {
				return
			}
			writeEvent(w, e)
			flusher.Flush()
			if e.Type == a2a.EventConnectionClosed {
				return
			}
		case <-ticker.C:
			fmt.Fprintf(w, "event: heartbeat\ndata: %s\n\n", time.Now().UTC().Format(time.RFC3339))
			flusher.Flush()
		}
	}
}

func lastEventID(r *http.Request) string {
	if id := r.Header.Get("Last-Event-ID"); id != "" {
		return id
	}
	return r.URL.Query().Get("lastEventId")
}

// writeEvent frames e per §4.5: an id/event line, data split across one
// "data:" line per newline in the JSON payload (a compact json.Marshal
// never contains one, but a pretty-printed or multi-line payload must
// still survive the frame), then the blank line terminating the event.
func writeEvent(w http.ResponseWriter, e a2a.Event) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "id: %s\nevent: %s\n", e.HexID(), e.Type)
	for _, line := range strings.Split(string(data), "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprint(w, "\n")
}
