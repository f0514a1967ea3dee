package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civiclearn/game-engine/pkg/engine"
)

func setupBroadcaster(t *testing.T) (*Broadcaster, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return NewBroadcaster(client, logger), client
}

func TestChannel(t *testing.T) {
	assert.Equal(t, "session-events:abc", Channel("abc"))
}

func TestBroadcaster_Emit(t *testing.T) {
	b, client := setupBroadcaster(t)
	ctx := context.Background()

	sessionID := uuid.New()
	sub := client.Subscribe(ctx, Channel(sessionID.String()))
	t.Cleanup(func() { _ = sub.Close() })

	// wait for the subscription before publishing
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	event := engine.Event{
		Kind:      engine.EventSceneEntered,
		SessionID: sessionID,
		GameID:    "fire-safety-101",
		SceneID:   "intro",
		Timestamp: time.Now().UTC(),
		Payload:   map[string]interface{}{"scene_type": "dialogue"},
	}
	require.NoError(t, b.Emit(ctx, event))

	select {
	case msg := <-sub.Channel():
		var got engine.Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, engine.EventSceneEntered, got.Kind)
		assert.Equal(t, sessionID, got.SessionID)
		assert.Equal(t, "intro", got.SceneID)
		assert.Equal(t, "dialogue", got.Payload["scene_type"])
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestBroadcaster_EmitNoSubscribers(t *testing.T) {
	b, _ := setupBroadcaster(t)

	// publishing into the void is not an error
	err := b.Emit(context.Background(), engine.Event{
		Kind:      engine.EventSessionCompleted,
		SessionID: uuid.New(),
	})
	assert.NoError(t, err)
}

func TestBroadcaster_EmitConnectionDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	b := NewBroadcaster(client, slog.New(slog.NewTextHandler(os.Stderr, nil)))

	mr.Close()
	err = b.Emit(context.Background(), engine.Event{
		Kind:      engine.EventSceneEntered,
		SessionID: uuid.New(),
	})
	assert.Error(t, err)
}
