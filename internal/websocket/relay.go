package websocket

import (
	"encoding/json"

	"log/slog"

	"notification-service/internal/broker"
)

// Relay fans a queued notification out to every connection currently in the
// target course room. Purely reactive: membership is read at delivery time
// and an empty room simply drops the event. Returns the number of
// connections the event was queued to.
func (h *Hub) Relay(n *broker.Notification) int {
	members := h.registry.Members(n.CourseID)
	if len(members) == 0 {
		return 0
	}

	msg := &Message{
		Type: EventNewAssignment,
		Data: AssignmentData{
			Type:    "NEW_ASSIGNMENT",
			Message: "New assignment posted: " + n.AssignmentTitle,
			Data:    n.Payload,
		},
	}
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to marshal notification", "courseId", n.CourseID, "error", err)
		return 0
	}

	delivered := 0
	for _, connID := range members {
		client, ok := h.clientByID(connID)
		if !ok {
			continue
		}
		// Fire-and-forget: one unreachable client never blocks the rest.
		if err := client.sendRaw(data); err == nil {
			delivered++
		}
	}

	return delivered
}
