package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notification-service/internal/registry"
	"notification-service/internal/websocket"
)

func setupHealthRouter(reg *registry.Registry) *gin.Engine {
	gin.SetMode(gin.TestMode)

	hub := websocket.NewHub(reg, nil, nil)
	handler := NewHealthHandler(hub)

	router := gin.New()
	router.GET("/health", handler.Health)
	return router
}

func TestHealthReportsLiveState(t *testing.T) {
	reg := registry.New()
	reg.AddConnection("c1")
	reg.AddConnection("c2")
	reg.Join("c1", 100)
	reg.Join("c2", 100)
	router := setupHealthRouter(reg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status           string `json:"status"`
		ConnectedClients int    `json:"connectedClients"`
		CourseRooms      []struct {
			CourseID int64 `json:"courseId"`
			Clients  int   `json:"clients"`
		} `json:"courseRooms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "running", resp.Status)
	assert.Equal(t, 2, resp.ConnectedClients)
	require.Len(t, resp.CourseRooms, 1)
	assert.Equal(t, int64(100), resp.CourseRooms[0].CourseID)
	assert.Equal(t, 2, resp.CourseRooms[0].Clients)
}

func TestHealthWithNoConnections(t *testing.T) {
	router := setupHealthRouter(registry.New())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	// Empty state serializes as an empty list, never null.
	assert.JSONEq(t, `{"status":"running","connectedClients":0,"courseRooms":[]}`, w.Body.String())
}
