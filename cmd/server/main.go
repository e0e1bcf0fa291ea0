package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"notification-service/internal/api/routes"
	"notification-service/internal/broker"
	"notification-service/internal/config"
	"notification-service/internal/database"
	"notification-service/internal/enrollment"
	"notification-service/internal/registry"
	"notification-service/internal/services"
	"notification-service/internal/websocket"
)

func main() {
	// Load .env if present
	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting notification service")

	// Presence tracking is optional: without Redis the relay runs fine.
	var presence websocket.Presence
	if cfg.Redis.URL != "" {
		redisClient, err := database.NewRedisConnection(cfg.Redis.URL)
		if err != nil {
			slog.Error("Failed to connect to Redis, presence disabled", "error", err)
		} else {
			defer redisClient.Close()
			presence = services.NewPresenceService(redisClient)
		}
	}

	// Membership registry and enrollment oracle
	reg := registry.New()
	oracle := enrollment.NewClient(cfg.Oracle.BaseURL, &http.Client{Timeout: cfg.Oracle.Timeout})

	// WebSocket hub
	hub := websocket.NewHub(reg, oracle, presence)
	go hub.Run()

	// Broker supervisor: consume the durable queue, relay through the hub,
	// reconnect forever.
	ctx, stop := context.WithCancel(context.Background())
	supervisor := broker.NewSupervisor(
		broker.AMQPDialer(cfg.Broker.URL, cfg.Broker.Queue),
		hub,
		broker.WithBackoff(cfg.Broker.ReconnectDelay),
	)
	go supervisor.Run(ctx)

	// HTTP surface: health check and WebSocket upgrade
	router := routes.NewRouter(hub)
	router.SetupRoutes()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stop()
	hub.Stop()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}
