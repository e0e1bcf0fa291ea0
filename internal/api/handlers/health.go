package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"notification-service/internal/course"
	"notification-service/internal/websocket"
)

type HealthHandler struct {
	hub *websocket.Hub
}

func NewHealthHandler(hub *websocket.Hub) *HealthHandler {
	return &HealthHandler{hub: hub}
}

type roomStatus struct {
	CourseID course.ID `json:"courseId"`
	Clients  int       `json:"clients"`
}

type healthResponse struct {
	Status           string       `json:"status"`
	ConnectedClients int          `json:"connectedClients"`
	CourseRooms      []roomStatus `json:"courseRooms"`
}

// Health reports the relay's live state: connected client count and the
// member count of every course room.
func (h *HealthHandler) Health(c *gin.Context) {
	stats := h.hub.Stats()

	rooms := make([]roomStatus, 0, len(stats.RoomCounts))
	for courseID, clients := range stats.RoomCounts {
		rooms = append(rooms, roomStatus{CourseID: courseID, Clients: clients})
	}

	c.JSON(http.StatusOK, healthResponse{
		Status:           "running",
		ConnectedClients: stats.ConnectedClients,
		CourseRooms:      rooms,
	})
}
