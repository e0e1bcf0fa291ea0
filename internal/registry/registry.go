// Package registry is the single source of truth for which connections belong
// to which course rooms. Both sides of the bidirectional index are mutated
// together under one mutex, so for every connection C in room R, C's room set
// contains R and R's member set contains C at all times.
package registry

import (
	"sync"

	"notification-service/internal/course"
)

// connection tracks a live transport session.
type connection struct {
	userID string
	rooms  map[course.ID]struct{}
}

// Registry maintains the connection→rooms and room→connections indexes.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*connection
	rooms map[course.ID]map[string]struct{}
}

func New() *Registry {
	return &Registry{
		conns: make(map[string]*connection),
		rooms: make(map[course.ID]map[string]struct{}),
	}
}

// AddConnection registers a new connection with no user bound and no rooms.
// Adding an already-known connection is a no-op.
func (r *Registry) AddConnection(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[connID]; exists {
		return
	}
	r.conns[connID] = &connection{
		rooms: make(map[course.ID]struct{}),
	}
}

// RemoveConnection removes every membership edge for the connection and
// discards its record. Safe to call for unknown connections.
func (r *Registry) RemoveConnection(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.conns[connID]
	if !exists {
		return
	}

	for courseID := range conn.rooms {
		if members, ok := r.rooms[courseID]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(r.rooms, courseID)
			}
		}
	}
	delete(r.conns, connID)
}

// BindUser associates a user with the connection, replacing any prior
// binding. Returns false if the connection is not registered.
func (r *Registry) BindUser(connID, userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.conns[connID]
	if !exists {
		return false
	}
	conn.userID = userID
	return true
}

// UserOf returns the user bound to the connection, if any.
func (r *Registry) UserOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, exists := r.conns[connID]
	if !exists || conn.userID == "" {
		return "", false
	}
	return conn.userID, true
}

// Join adds the membership edge on both sides. Idempotent: rejoining an
// already-joined room changes nothing. Returns false for unknown connections
// so a join that races a disconnect becomes a no-op instead of leaking an
// edge.
func (r *Registry) Join(connID string, courseID course.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.conns[connID]
	if !exists {
		return false
	}

	conn.rooms[courseID] = struct{}{}
	if r.rooms[courseID] == nil {
		r.rooms[courseID] = make(map[string]struct{})
	}
	r.rooms[courseID][connID] = struct{}{}
	return true
}

// Leave removes the membership edge on both sides. Safe no-op when the edge
// does not exist.
func (r *Registry) Leave(connID string, courseID course.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, exists := r.conns[connID]; exists {
		delete(conn.rooms, courseID)
	}
	if members, exists := r.rooms[courseID]; exists {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.rooms, courseID)
		}
	}
}

// Members returns the connection ids currently subscribed to the room.
func (r *Registry) Members(courseID course.ID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, exists := r.rooms[courseID]
	if !exists {
		return []string{}
	}

	result := make([]string, 0, len(members))
	for connID := range members {
		result = append(result, connID)
	}
	return result
}

// Rooms returns the course ids the connection is subscribed to.
func (r *Registry) Rooms(connID string) []course.ID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, exists := r.conns[connID]
	if !exists {
		return []course.ID{}
	}

	result := make([]course.ID, 0, len(conn.rooms))
	for courseID := range conn.rooms {
		result = append(result, courseID)
	}
	return result
}

// ConnectionCount returns the number of live connections.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// RoomCounts returns the live member count per course room.
func (r *Registry) RoomCounts() map[course.ID]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[course.ID]int, len(r.rooms))
	for courseID, members := range r.rooms {
		counts[courseID] = len(members)
	}
	return counts
}
