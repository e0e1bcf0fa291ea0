package routes

import (
	"github.com/gin-gonic/gin"

	"notification-service/internal/api/handlers"
	"notification-service/internal/api/middleware"
	"notification-service/internal/websocket"
)

type Router struct {
	engine        *gin.Engine
	wsHandler     *handlers.WSHandler
	healthHandler *handlers.HealthHandler
}

func NewRouter(hub *websocket.Hub) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	// Add middlewares
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.LogApi())

	return &Router{
		engine:        engine,
		wsHandler:     handlers.NewWSHandler(hub),
		healthHandler: handlers.NewHealthHandler(hub),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/health", r.healthHandler.Health)
	r.engine.GET("/ws", r.wsHandler.HandleWebSocket)
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
