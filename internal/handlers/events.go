package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/lootmap/internal/services/events"
)

const (
	keepaliveInterval = 30 * time.Second
	streamBuffer      = 32
)

// EventsHandler streams location events as Server-Sent Events
type EventsHandler struct {
	bus       *events.Bus
	logger    *slog.Logger
	keepalive time.Duration
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(bus *events.Bus, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		bus:       bus,
		logger:    logger,
		keepalive: keepaliveInterval,
	}
}

// ServeHTTP handles SSE requests for location events
// GET /v1/events
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.logger.Warn("Method not allowed for events endpoint",
			"method", r.Method,
			"path", r.URL.Path)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	h.logger.Info("SSE connection established", "remote_addr", r.RemoteAddr)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	// The bus dispatches synchronously; a slow client must not stall the
	// store, so events are dropped once the buffer is full.
	stream := make(chan events.Event, streamBuffer)
	kinds := []events.Kind{events.KindLocationAdded, events.KindLocationRemoved, events.KindLootUpdated, events.KindLocationsLoaded}
	for _, kind := range kinds {
		sub := h.bus.Subscribe(kind, "sse:"+r.RemoteAddr, func(ctx context.Context, ev events.Event) error {
			select {
			case stream <- ev:
				return nil
			default:
				return fmt.Errorf("event stream buffer full, dropped %s", ev.Kind())
			}
		})
		defer h.bus.Unsubscribe(sub)
	}

	keepaliveTicker := time.NewTicker(h.keepalive)
	defer keepaliveTicker.Stop()

	h.sendSSE(w, "connected", map[string]interface{}{
		"message": "Connected to event stream",
	})

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("SSE client disconnected", "remote_addr", r.RemoteAddr)
			return

		case ev := <-stream:
			h.sendSSE(w, string(ev.Kind()), ev)

		case <-keepaliveTicker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				h.logger.Error("Failed to write keepalive", "error", err)
				return
			}
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		}
	}
}

// sendSSE sends a Server-Sent Event to the client
func (h *EventsHandler) sendSSE(w http.ResponseWriter, eventType string, data interface{}) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("Failed to marshal SSE data", "error", err)
		return
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, dataJSON); err != nil {
		h.logger.Error("Failed to write event", "error", err)
		return
	}

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
