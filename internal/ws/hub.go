package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/partydeck/party-server-go/internal/store"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins; the server sits behind the session's own access
	// control.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one connected listener, scoped to a single session's event
// stream.
type Client struct {
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

// Hub fans session events out to connected clients. It implements
// game.Broadcaster: the game manager publishes rule-card updates and
// transfers here after mutating local state.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan store.Event
	register   chan *Client
	unregister chan *Client
	logger     *zap.Logger
}

// NewHub creates an idle hub; call Run to start it.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan store.Event, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Publish queues an event for fan-out. Non-blocking: when the hub is
// saturated the event is dropped, since durable delivery already happened
// through the gateway's event stream.
func (h *Hub) Publish(ev store.Event) {
	select {
	case h.broadcast <- ev:
	default:
		h.logger.Warn("broadcast queue full, dropping event",
			zap.String("session_id", ev.SessionID),
			zap.String("event_type", ev.Type),
		)
	}
}

// Run drives the hub until ctx is cancelled. Run as a goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.Debug("ws client registered", zap.String("session_id", client.sessionID))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Debug("ws client unregistered", zap.String("session_id", client.sessionID))
			}

		case ev := <-h.broadcast:
			payload, err := json.Marshal(ev)
			if err != nil {
				h.logger.Error("marshal event", zap.Error(err))
				continue
			}
			for client := range h.clients {
				if client.sessionID != ev.SessionID {
					continue
				}
				select {
				case client.send <- payload:
				default:
					// Slow consumer; drop the connection.
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// ServeHTTP upgrades the request and subscribes the client to the session
// named in the "session" query parameter.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "missing session parameter", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: sessionID,
	}
	h.register <- client

	go client.writePump()
	go client.readPump(h)
}

// readPump drains inbound frames so pings and close frames are processed;
// listeners do not send application messages.
func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
}
