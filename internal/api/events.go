package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/satindergrewal/shadercast/internal/events"
)

// EventsHandler streams run progress as Server-Sent Events.
type EventsHandler struct {
	broadcaster *events.Broadcaster
}

// NewEventsHandler creates an SSE handler.
func NewEventsHandler(b *events.Broadcaster) *EventsHandler {
	return &EventsHandler{broadcaster: b}
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	listener := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(listener)

	log.Printf("Event listener connected (total: %d)", h.broadcaster.ListenerCount())
	defer log.Printf("Event listener disconnected")

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-listener.C:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Stage, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
