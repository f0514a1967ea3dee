package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/civiclearn/game-engine/pkg/engine"
)

// Broadcaster publishes session events to Redis Pub/Sub, where the
// monitoring/analytics backend picks them up. It implements engine.Sink.
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

var _ engine.Sink = (*Broadcaster)(nil)

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Channel returns the pub/sub channel for a session
func Channel(sessionID string) string {
	return fmt.Sprintf("session-events:%s", sessionID)
}

// Emit publishes one session event to the session-specific channel.
// Delivery is at-least-once; the engine contains any failure returned here.
func (b *Broadcaster) Emit(ctx context.Context, event engine.Event) error {
	channel := Channel(event.SessionID.String())

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "kind", event.Kind)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_kind", event.Kind,
		"scene_id", event.SceneID,
	)

	return nil
}
