package state

import (
	"time"

	"github.com/google/uuid"
)

// SnapshotSchemaVersion is the autosave envelope version
const SnapshotSchemaVersion = "1.0"

// GameState is the mutable state of one training session. It has a single
// owner (the session) and is only ever mutated through the session's
// serialized operation queue.
type GameState struct {
	ID             uuid.UUID      `json:"id"` // Unique ID per session
	GameID         string         `json:"game_id"`
	CurrentSceneID string         `json:"current_scene_id"`
	History        []string       `json:"history"`                    // visited scene ids, in order
	Score          int            `json:"score"`                      // accumulated score
	Attempts       map[string]int `json:"attempts,omitempty"`         // per-quiz attempts used
	QuizScores     map[string]int `json:"quiz_scores,omitempty"`      // per-quiz best attempt score
	ChoiceScores   map[string]int `json:"choice_scores,omitempty"`    // per-dialogue latest choice points
	Completed      []string       `json:"completed_scenes,omitempty"` // first-visit order, no duplicates
	StartedAt      time.Time      `json:"started_at"`
	ElapsedMs      int64          `json:"elapsed_ms"`
	Ended          bool           `json:"ended"`
	UpdatedAt      time.Time      `json:"updated_at,omitempty"`
}

func NewGameState(gameID string) *GameState {
	return &GameState{
		ID:           uuid.New(),
		GameID:       gameID,
		History:      make([]string, 0),
		Attempts:     make(map[string]int),
		QuizScores:   make(map[string]int),
		ChoiceScores: make(map[string]int),
		StartedAt:    time.Now().UTC(),
	}
}

// MarkCompleted records a scene as completed, once
func (gs *GameState) MarkCompleted(sceneID string) {
	for _, id := range gs.Completed {
		if id == sceneID {
			return
		}
	}
	gs.Completed = append(gs.Completed, sceneID)
}

// CompletedSet returns the completed scene ids as a set
func (gs *GameState) CompletedSet() map[string]bool {
	set := make(map[string]bool, len(gs.Completed))
	for _, id := range gs.Completed {
		set[id] = true
	}
	return set
}

// Clone returns a deep copy, safe to serialize while the original keeps
// mutating under its owner's lock.
func (gs *GameState) Clone() *GameState {
	cp := *gs
	cp.History = append([]string(nil), gs.History...)
	cp.Completed = append([]string(nil), gs.Completed...)
	cp.Attempts = make(map[string]int, len(gs.Attempts))
	for k, v := range gs.Attempts {
		cp.Attempts[k] = v
	}
	cp.QuizScores = make(map[string]int, len(gs.QuizScores))
	for k, v := range gs.QuizScores {
		cp.QuizScores[k] = v
	}
	cp.ChoiceScores = make(map[string]int, len(gs.ChoiceScores))
	for k, v := range gs.ChoiceScores {
		cp.ChoiceScores[k] = v
	}
	return &cp
}

// Snapshot is the persisted autosave envelope. Restoring a snapshot with
// the original manifest reproduces the session verbatim.
type Snapshot struct {
	SchemaVersion string     `json:"schema_version"`
	GameID        string     `json:"game_id"`
	State         *GameState `json:"state"`
	SavedAt       time.Time  `json:"saved_at"`
}

// NewSnapshot wraps a cloned state in a timestamped envelope
func NewSnapshot(gs *GameState) *Snapshot {
	return &Snapshot{
		SchemaVersion: SnapshotSchemaVersion,
		GameID:        gs.GameID,
		State:         gs.Clone(),
		SavedAt:       time.Now().UTC(),
	}
}
