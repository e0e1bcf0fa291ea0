package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by the CORS layer upstream.
		return true
	},
}

// Client is one live socket connection. Its identity and room memberships
// live in the registry; the client only owns the transport.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// Connection state management
	ctx    context.Context
	cancel context.CancelFunc
	closed int32 // atomic flag to track if client is closed
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		id:     uuid.New().String(),
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *Client) ID() string {
	return c.id
}

// isClosed returns true if the client is closed
func (c *Client) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// close marks the client as closed and cancels the context
func (c *Client) close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		c.cancel()
	}
}

// readPump reads inbound events and dispatches them to the protocol handler.
// It is the only reader for this connection, so join/leave/disconnect for a
// single connection are processed in arrival order; the enrollment lookup
// inside a join blocks only this connection.
func (c *Client) readPump() {
	defer func() {
		c.close()

		select {
		case c.hub.unregister <- c:
		case <-time.After(5 * time.Second):
			slog.Warn("Timeout sending unregister request", "clientID", c.id)
		}

		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		if c.isClosed() {
			return websocket.ErrCloseSent
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "clientID", c.id, "error", err)
			} else {
				slog.Debug("WebSocket connection closed", "clientID", c.id, "error", err)
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(messageBytes, &env); err != nil {
			slog.Debug("Failed to unmarshal event", "clientID", c.id, "error", err)
			c.sendError("INVALID_MESSAGE", "Invalid message format")
			continue
		}

		c.hub.dispatch(c, &env)
	}
}

// writePump drains the send buffer to the peer and keeps the connection
// alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-c.send:
			if c.isClosed() {
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Debug("Error writing message", "clientID", c.id, "error", err)
				return
			}

		case <-ticker.C:
			if c.isClosed() {
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Debug("Error sending ping", "clientID", c.id, "error", err)
				return
			}

		case <-c.ctx.Done():
			// Server-initiated shutdown: tell the peer before exiting.
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// SendMessage queues an outbound event. Delivery is fire-and-forget: a full
// send buffer closes the client instead of blocking the caller.
func (c *Client) SendMessage(message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return c.sendRaw(data)
}

func (c *Client) sendRaw(data []byte) error {
	if c.isClosed() {
		return ErrClientDisconnected
	}

	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return ErrClientDisconnected
	default:
		slog.Warn("Send buffer full, closing client", "clientID", c.id)
		c.close()
		return ErrClientDisconnected
	}
}

func (c *Client) sendError(code, message string) {
	c.SendMessage(NewErrorMessage(code, message))
}

// ServeWS upgrades an HTTP request and registers the connection with the hub.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket connection", "error", err)
		return
	}

	client := NewClient(hub, conn)
	slog.Info("New WebSocket connection established", "clientID", client.id)

	select {
	case hub.register <- client:
	case <-time.After(5 * time.Second):
		slog.Error("Timeout sending registration request", "clientID", client.id)
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
