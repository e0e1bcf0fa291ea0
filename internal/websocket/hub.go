package websocket

import (
	"context"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"notification-service/internal/course"
	"notification-service/internal/enrollment"
	"notification-service/internal/registry"
)

var ErrClientDisconnected = fmt.Errorf("client disconnected")

// Presence marks users online/offline in a shared store. Optional: a nil
// Presence disables tracking.
type Presence interface {
	SetUserOnline(ctx context.Context, userID string) error
	SetUserOffline(ctx context.Context, userID string) error
}

// Hub owns every live client connection and runs the join/leave protocol
// against the membership registry.
type Hub struct {
	// Single source of truth for room membership
	registry *registry.Registry

	// Enrollment oracle consulted before any membership mutation
	enrollment enrollment.Service

	// Optional presence tracking
	presence Presence

	// Registered clients by connection id
	clients map[string]*Client

	// Register requests from new connections
	register chan *Client

	// Unregister requests from disconnecting clients
	unregister chan *Client

	// Context for graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc

	// Guards the clients map (the relay reads it outside the run loop)
	mu sync.RWMutex
}

func NewHub(reg *registry.Registry, enrollmentSvc enrollment.Service, presence Presence) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		registry:   reg,
		enrollment: enrollmentSvc,
		presence:   presence,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-h.ctx.Done():
			slog.Info("WebSocket hub shutting down")
			return
		}
	}
}

func (h *Hub) Stop() {
	h.cancel()
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.id] = client
	h.registry.AddConnection(client.id)

	slog.Info("Client registered", "clientID", client.id)
}

// unregisterClient runs exactly once per connection: clients close their
// context before requesting unregistration, and the map lookup makes a
// duplicate request a no-op.
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.id)
	h.mu.Unlock()

	userID, bound := h.registry.UserOf(client.id)
	h.registry.RemoveConnection(client.id)

	// The send channel is never closed, only the context is cancelled: the
	// pumps exit on their own and a racing relay send fails with
	// ErrClientDisconnected instead of hitting a closed channel.
	client.close()

	if bound {
		h.markOffline(userID)
	}

	slog.Info("Client unregistered", "clientID", client.id, "userID", userID)
}

func (h *Hub) clientByID(connID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[connID]
	return client, ok
}

func (h *Hub) markOnline(userID string) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.presence.SetUserOnline(ctx, userID); err != nil {
		slog.Error("Failed to set user online", "userID", userID, "error", err)
	}
}

func (h *Hub) markOffline(userID string) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.presence.SetUserOffline(ctx, userID); err != nil {
		slog.Error("Failed to set user offline", "userID", userID, "error", err)
	}
}

// Stats reports the health surface: total live connections and per-room
// member counts.
type Stats struct {
	ConnectedClients int
	RoomCounts       map[course.ID]int
}

func (h *Hub) Stats() Stats {
	return Stats{
		ConnectedClients: h.registry.ConnectionCount(),
		RoomCounts:       h.registry.RoomCounts(),
	}
}
