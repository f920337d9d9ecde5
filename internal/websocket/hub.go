package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Priya8975/activity-logger/internal/domain"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// FeedEvent is one ingested activity event as streamed to dashboards.
type FeedEvent struct {
	Type       string         `json:"type"`
	EventID    string         `json:"event_id"`
	UserID     string         `json:"user_id"`
	Topic      string         `json:"topic"`
	Action     string         `json:"action"`
	Details    map[string]any `json:"details,omitempty"`
	Timestamp  string         `json:"timestamp"`
	ReceivedAt time.Time      `json:"received_at"`
}

type message struct {
	userID string
	data   []byte
}

// Hub manages WebSocket connections and broadcasts ingested events. A client
// that connects with ?user_id= only receives that user's events.
type Hub struct {
	clients    map[*client]struct{}
	mu         sync.RWMutex
	broadcast  chan message
	register   chan *client
	unregister chan *client
	done       chan struct{}
	logger     *slog.Logger
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan message, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run is the hub's event loop. It returns when ctx is done, closing every
// client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("websocket client connected", "total_clients", total, "user_id", c.userID)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("websocket client disconnected", "total_clients", total)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg message) {
	var slow []*client

	h.mu.RLock()
	for c := range h.clients {
		if c.userID != "" && c.userID != msg.userID {
			continue
		}
		select {
		case c.send <- msg.data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	if len(slow) == 0 {
		return
	}

	h.mu.Lock()
	for _, c := range slow {
		if _, ok := h.clients[c]; ok {
			delete(h.clients, c)
			close(c.send)
		}
	}
	h.mu.Unlock()
	h.logger.Warn("dropped slow websocket clients", "count", len(slow))
}

// Broadcast queues one feed event for all interested clients.
func (h *Hub) Broadcast(event FeedEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal websocket event", "error", err)
		return
	}

	select {
	case h.broadcast <- message{userID: event.UserID, data: data}:
	default:
		h.logger.Warn("websocket broadcast channel full, dropping event", "event_id", event.EventID)
	}
}

// BroadcastEvents streams a stored batch, one message per event.
func (h *Hub) BroadcastEvents(events []domain.Event, receivedAt time.Time) {
	for _, e := range events {
		h.Broadcast(FeedEvent{
			Type:       "event_ingested",
			EventID:    e.ID,
			UserID:     e.UserID,
			Topic:      e.Topic,
			Action:     e.Action,
			Details:    e.Details,
			Timestamp:  e.Timestamp,
			ReceivedAt: receivedAt,
		})
	}
}

// HandleWebSocket upgrades HTTP connections to WebSocket and registers the client.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: r.URL.Query().Get("user_id"),
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump only watches for pongs and disconnects; clients never send data.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
