package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/hochfrequenz/fiztarefa/internal/focus"
	"github.com/hochfrequenz/fiztarefa/internal/pomodoro"
)

// Event types sent to clients
const (
	EventTimer         = "timer"
	EventPhaseComplete = "phase_complete"
)

// SSEEvent represents a server-sent event
type SSEEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// TimerEventData is the payload of timer and phase_complete events
type TimerEventData struct {
	Status     focus.Status         `json:"status"`
	Transition *pomodoro.Transition `json:"transition,omitempty"`
}

const clientBuffer = 16

// Hub fans events out to connected SSE and WebSocket clients
type Hub struct {
	clients    map[chan SSEEvent]bool
	broadcast  chan SSEEvent
	register   chan chan SSEEvent
	unregister chan chan SSEEvent
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a new hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[chan SSEEvent]bool),
		broadcast:  make(chan SSEEvent),
		register:   make(chan chan SSEEvent),
		unregister: make(chan chan SSEEvent),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is cancelled, then closes every client
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for client := range h.clients {
			close(client)
			delete(h.clients, client)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client <- event:
				default:
					// Too slow; the client reconnects and gets a fresh status
					close(client)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends an event to all clients
func (h *Hub) Broadcast(ctx context.Context, event SSEEvent) {
	select {
	case h.broadcast <- event:
	case <-h.done:
	case <-ctx.Done():
	}
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// subscribe registers a new client channel. ok is false once the hub stopped.
func (h *Hub) subscribe(ctx context.Context) (client chan SSEEvent, ok bool) {
	client = make(chan SSEEvent, clientBuffer)
	select {
	case h.register <- client:
		return client, true
	case <-h.done:
	case <-ctx.Done():
	}
	return nil, false
}

func (h *Hub) unsubscribe(client chan SSEEvent) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (s *Server) timerEvent(ev pomodoro.Event) SSEEvent {
	typ := EventTimer
	if ev.Transition != nil {
		typ = EventPhaseComplete
	}
	return SSEEvent{
		Type: typ,
		Data: TimerEventData{Status: s.timer.Describe(ev.State), Transition: ev.Transition},
	}
}

// currentEvent is sent to every client right after it connects
func (s *Server) currentEvent(ctx context.Context) (SSEEvent, error) {
	st, err := s.timer.Status(ctx)
	if err != nil {
		return SSEEvent{}, err
	}
	return SSEEvent{Type: EventTimer, Data: TimerEventData{Status: st}}, nil
}

func (s *Server) sseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming not supported", http.StatusInternalServerError)
			return
		}

		initial, err := s.currentEvent(r.Context())
		if err != nil {
			writeError(w, errorStatus(err), err.Error())
			return
		}

		client, ok := s.hub.subscribe(r.Context())
		if !ok {
			writeError(w, http.StatusServiceUnavailable, "event stream closed")
			return
		}
		defer s.hub.unsubscribe(client)

		// Set SSE headers
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		writeSSE(w, initial)
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case event, ok := <-client:
				if !ok {
					return
				}
				writeSSE(w, event)
				flusher.Flush()
			}
		}
	}
}

func writeSSE(w http.ResponseWriter, event SSEEvent) {
	data, _ := json.Marshal(event)
	fmt.Fprintf(w, "event: %s\n", event.Type)
	fmt.Fprintf(w, "data: %s\n\n", data)
}
