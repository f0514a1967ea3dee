package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EventKind identifies the type of session event being emitted
type EventKind string

const (
	EventSceneEntered     EventKind = "scene_entered"
	EventChoiceMade       EventKind = "choice_made"
	EventQuizSubmitted    EventKind = "quiz_submitted"
	EventSessionResumed   EventKind = "session_resumed"
	EventSessionCompleted EventKind = "session_completed"
)

// Event is an immutable record of one state transition, handed to the
// analytics collaborator.
type Event struct {
	Kind      EventKind              `json:"kind"`
	SessionID uuid.UUID              `json:"session_id"`
	GameID    string                 `json:"game_id"`
	SceneID   string                 `json:"scene_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// Sink receives session events. Delivery is at-least-once; the engine does
// not retry on sink failure.
type Sink interface {
	Emit(ctx context.Context, event Event) error
}

// emitter wraps a host-supplied sink. A sink failure or panic is logged and
// contained; it never reaches the state machine.
type emitter struct {
	sink   Sink
	logger *slog.Logger
}

func (e *emitter) emit(sessionID uuid.UUID, gameID string, kind EventKind, sceneID string, payload map[string]interface{}) {
	if e == nil || e.sink == nil {
		return
	}
	event := Event{
		Kind:      kind,
		SessionID: sessionID,
		GameID:    gameID,
		SceneID:   sceneID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Event sink panicked", "kind", kind, "panic", r)
		}
	}()
	if err := e.sink.Emit(context.Background(), event); err != nil {
		e.logger.Warn("Event sink failed", "kind", kind, "scene_id", sceneID, "error", err)
	}
}
