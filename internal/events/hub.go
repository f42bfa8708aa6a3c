package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrHubFull is returned by Hub.Notify when the broadcast queue is full.
var ErrHubFull = errors.New("event hub queue full")

const keepAliveInterval = 30 * time.Second

// Client is one connected SSE listener.
type Client struct {
	id     string
	userID string
	events chan []byte
}

// ID identifies the connection in logs.
func (c *Client) ID() string {
	return c.id
}

// Events returns the channel of encoded SSE frames for the client.
func (c *Client) Events() <-chan []byte {
	return c.events
}

// Hub manages SSE client connections and routes events to the users they concern.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
	done       chan struct{}
	keepAlive  time.Duration
}

// NewHub creates a hub. Call Run before serving clients.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
		done:       make(chan struct{}),
		keepAlive:  keepAliveInterval,
	}
}

// Run processes registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.events)
			}
			h.mu.Unlock()
			close(h.done)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			slog.Debug("SSE client connected", "client_id", client.id, "user_id", client.userID, "total", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.events)
			}
			total := len(h.clients)
			h.mu.Unlock()
			slog.Debug("SSE client disconnected", "client_id", client.id, "total", total)

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				slog.Error("Failed to marshal event", "type", event.Type, "error", err)
				continue
			}
			msg := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, data))

			h.mu.RLock()
			for client := range h.clients {
				if !event.For(client.userID) {
					continue
				}
				select {
				case client.events <- msg:
				default:
					slog.Warn("SSE client is slow, skipping message", "client_id", client.id, "type", event.Type)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Notify queues the event for delivery without blocking.
func (h *Hub) Notify(_ context.Context, event Event) error {
	select {
	case h.broadcast <- event:
		return nil
	default:
		slog.Warn("Broadcast channel full, dropping event", "type", event.Type)
		return ErrHubFull
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Subscribe registers a listener for userID. The returned func unregisters it.
// Subscribe blocks until Run accepts the client; after Run has returned the
// client's channel is already closed.
func (h *Hub) Subscribe(userID string) (*Client, func()) {
	client := &Client{
		id:     uuid.NewString(),
		userID: userID,
		events: make(chan []byte, 64),
	}
	select {
	case h.register <- client:
	case <-h.done:
		close(client.events)
	}

	var once sync.Once
	return client, func() {
		once.Do(func() {
			select {
			case h.unregister <- client:
			case <-h.done:
			}
		})
	}
}

// Handler serves the SSE stream. identify resolves the listening user from
// the request; a failure is answered with 401.
func (h *Hub) Handler(identify func(r *http.Request) (string, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := identify(r)
		if err != nil {
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "SSE not supported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

		client, unsubscribe := h.Subscribe(userID)
		defer unsubscribe()

		fmt.Fprintf(w, ": connected\n\n")
		flusher.Flush()

		ticker := time.NewTicker(h.keepAlive)
		defer ticker.Stop()

		for {
			select {
			case msg, ok := <-client.events:
				if !ok {
					return
				}
				if _, err := w.Write(msg); err != nil {
					return
				}
				flusher.Flush()

			case <-ticker.C:
				if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
					return
				}
				flusher.Flush()

			case <-r.Context().Done():
				return
			}
		}
	})
}
