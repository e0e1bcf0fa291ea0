// Package services holds side services the relay uses best-effort.
package services

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/redis/go-redis/v9"
)

// PresenceService tracks which users currently hold a live connection, in
// Redis. Everything here is best-effort: the relay works fine without it.
type PresenceService struct {
	client *redis.Client
}

func NewPresenceService(client *redis.Client) *PresenceService {
	return &PresenceService{client: client}
}

func (p *PresenceService) SetUserOnline(ctx context.Context, userID string) error {
	pipe := p.client.Pipeline()

	// Add to online users set
	pipe.SAdd(ctx, "online_users", userID)

	// Set user status hash
	pipe.HSet(ctx, fmt.Sprintf("user:%s:status", userID), map[string]interface{}{
		"status":     "online",
		"last_seen":  time.Now().Unix(),
		"updated_at": time.Now().Unix(),
	})

	// Set expiration for status
	pipe.Expire(ctx, fmt.Sprintf("user:%s:status", userID), 5*time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	slog.Debug("User set to online", "userID", userID)
	return nil
}

func (p *PresenceService) SetUserOffline(ctx context.Context, userID string) error {
	pipe := p.client.Pipeline()

	// Remove from online users set
	pipe.SRem(ctx, "online_users", userID)

	// Update user status
	pipe.HSet(ctx, fmt.Sprintf("user:%s:status", userID), map[string]interface{}{
		"status":     "offline",
		"last_seen":  time.Now().Unix(),
		"updated_at": time.Now().Unix(),
	})

	// Keep offline status around longer
	pipe.Expire(ctx, fmt.Sprintf("user:%s:status", userID), 24*time.Hour)

	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	slog.Debug("User set to offline", "userID", userID)
	return nil
}

func (p *PresenceService) IsUserOnline(ctx context.Context, userID string) (bool, error) {
	return p.client.SIsMember(ctx, "online_users", userID).Result()
}

func (p *PresenceService) GetOnlineUsers(ctx context.Context) ([]string, error) {
	return p.client.SMembers(ctx, "online_users").Result()
}
