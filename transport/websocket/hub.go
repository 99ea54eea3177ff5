package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/lunar-lander/game/engine"
	"github.com/wricardo/lunar-lander/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	// Pending broadcasts before new ones are dropped.
	broadcastBuffer = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origins are enforced by the CORS layer in front of the hub
		return true
	},
}

// InputHandler applies host input received over a socket. service.GameService
// satisfies it.
type InputHandler interface {
	SetInput(ctx context.Context, sessionID string, keys []string) (*engine.Snapshot, error)
	PressKey(ctx context.Context, sessionID, key string, down bool) (*engine.Snapshot, error)
	SetGeometry(ctx context.Context, sessionID string, geo engine.StaticGeometry) (*engine.Snapshot, error)
	Reset(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	StartRealtime(ctx context.Context, sessionID string) error
	StopRealtime(ctx context.Context, sessionID string) error
}

// Message represents an outbound WebSocket message
type Message struct {
	SessionID string           `json:"session_id"`
	Snapshot  *engine.Snapshot `json:"snapshot,omitempty"`
	Event     string           `json:"event,omitempty"`
	Data      interface{}      `json:"data,omitempty"`

	// target restricts delivery to one client
	target *Client
}

// InboundMessage is a host feed sent by a client
type InboundMessage struct {
	Type     string                 `json:"type"` // keys, keydown, keyup, geometry, reset, realtime
	Keys     []string               `json:"keys,omitempty"`
	Key      string                 `json:"key,omitempty"`
	Geometry *engine.StaticGeometry `json:"geometry,omitempty"`
	Enabled  bool                   `json:"enabled,omitempty"`
}

// Client represents a WebSocket client
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients by session ID. Only the Run goroutine touches it.
	sessions map[string]map[*Client]bool

	// Outbound messages for a session's clients
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	input InputHandler

	// done is closed when Run returns
	done chan struct{}
}

// NewHub creates a new WebSocket hub. A nil input handler makes the hub
// broadcast-only.
func NewHub(input InputHandler) *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		input:      input,
		done:       make(chan struct{}),
	}
}

// SetInputHandler sets the handler for inbound messages. Call it before Run.
func (h *Hub) SetInputHandler(input InputHandler) {
	h.input = input
}

// Run starts the hub's event loop and blocks until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.sessions {
				for client := range clients {
					h.unregisterClient(client)
				}
			}
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// ServeWS handles WebSocket requests from clients
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: sessionID,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// BroadcastSnapshot queues a snapshot for every client of a session. It never
// blocks the caller; when the queue is full the snapshot is dropped.
func (h *Hub) BroadcastSnapshot(sessionID string, snap *engine.Snapshot) {
	h.enqueue(&Message{
		SessionID: sessionID,
		Snapshot:  snap,
		Event:     "state_update",
	})
}

// BroadcastEvent sends a custom event to all clients in a session
func (h *Hub) BroadcastEvent(sessionID string, event string, data interface{}) {
	h.enqueue(&Message{
		SessionID: sessionID,
		Event:     event,
		Data:      data,
	})
}

func (h *Hub) enqueue(message *Message) {
	select {
	case h.broadcast <- message:
	default:
		slog.Debug("broadcast queue full, dropping message", "session", message.SessionID, "event", message.Event)
	}
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true
	metrics.WebSocketConnected(1)

	// The greeting tells the client it will now receive broadcasts
	if data, err := json.Marshal(&Message{SessionID: client.sessionID, Event: "connected"}); err == nil {
		client.send <- data
	}

	slog.Debug("client registered", "session", client.sessionID, "clients", len(h.sessions[client.sessionID]))
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.sessions[client.sessionID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)
			metrics.WebSocketConnected(-1)

			// Clean up empty sessions
			if len(clients) == 0 {
				delete(h.sessions, client.sessionID)
			}

			slog.Debug("client unregistered", "session", client.sessionID, "clients", len(clients))
		}
	}
}

// broadcastMessage sends a message to all clients in a session
func (h *Hub) broadcastMessage(message *Message) {
	clients, ok := h.sessions[message.SessionID]
	if !ok {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		slog.Error("failed to marshal broadcast message", "error", err)
		return
	}

	for client := range clients {
		if message.target != nil && message.target != client {
			continue
		}
		select {
		case client.send <- data:
			metrics.WebSocketMessage("out")
		default:
			// Client's send channel is full, drop it
			h.unregisterClient(client)
		}
	}
}

// handleInbound applies one client message and returns the resulting snapshot,
// nil for real-time toggles
func (h *Hub) handleInbound(ctx context.Context, sessionID string, data []byte) (*engine.Snapshot, error) {
	if h.input == nil {
		return nil, fmt.Errorf("input not accepted on this connection")
	}

	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}

	switch msg.Type {
	case "keys":
		return h.input.SetInput(ctx, sessionID, msg.Keys)
	case "keydown", "keyup":
		if msg.Key == "" {
			return nil, fmt.Errorf("%s requires a key", msg.Type)
		}
		return h.input.PressKey(ctx, sessionID, msg.Key, msg.Type == "keydown")
	case "geometry":
		if msg.Geometry == nil {
			return nil, fmt.Errorf("geometry message requires a geometry")
		}
		return h.input.SetGeometry(ctx, sessionID, *msg.Geometry)
	case "reset":
		return h.input.Reset(ctx, sessionID)
	case "realtime":
		if msg.Enabled {
			return nil, h.input.StartRealtime(ctx, sessionID)
		}
		return nil, h.input.StopRealtime(ctx, sessionID)
	default:
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}
}

// reply queues a message for this client only
func (c *Client) reply(message *Message) {
	message.target = c
	c.hub.enqueue(message)
}

// readPump pumps messages from the WebSocket connection to the input handler
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read error", "session", c.sessionID, "error", err)
			}
			break
		}
		metrics.WebSocketMessage("in")

		// Snapshots that changed state reach every client through the service hooks
		if _, err := c.hub.handleInbound(context.Background(), c.sessionID, data); err != nil {
			c.reply(&Message{SessionID: c.sessionID, Event: "error", Data: err.Error()})
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// Drain what queued meanwhile, one JSON document per frame
			n := len(c.send)
			for i := 0; i < n; i++ {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
