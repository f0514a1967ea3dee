package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGameState(t *testing.T) {
	gs := NewGameState("fire-safety-101")

	assert.Equal(t, "fire-safety-101", gs.GameID)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", gs.ID.String())
	assert.Empty(t, gs.History)
	assert.Zero(t, gs.Score)
	assert.NotNil(t, gs.Attempts)
	assert.NotNil(t, gs.QuizScores)
	assert.NotNil(t, gs.ChoiceScores)
	assert.False(t, gs.StartedAt.IsZero())
}

func TestMarkCompleted_Dedupes(t *testing.T) {
	gs := NewGameState("g")
	gs.MarkCompleted("intro")
	gs.MarkCompleted("quiz")
	gs.MarkCompleted("intro")

	assert.Equal(t, []string{"intro", "quiz"}, gs.Completed)
	assert.Equal(t, map[string]bool{"intro": true, "quiz": true}, gs.CompletedSet())
}

func TestClone_Independent(t *testing.T) {
	gs := NewGameState("g")
	gs.CurrentSceneID = "s1"
	gs.History = []string{"s1"}
	gs.Score = 10
	gs.Attempts["q1"] = 1
	gs.QuizScores["q1"] = 5
	gs.ChoiceScores["d1"] = 5
	gs.MarkCompleted("s1")

	cp := gs.Clone()
	require.Equal(t, gs, cp)

	// Mutating the original must not leak into the clone
	gs.History = append(gs.History, "s2")
	gs.Attempts["q1"] = 2
	gs.QuizScores["q2"] = 3
	gs.ChoiceScores["d1"] = 0
	gs.MarkCompleted("s2")
	gs.Score = 99

	assert.Equal(t, []string{"s1"}, cp.History)
	assert.Equal(t, 1, cp.Attempts["q1"])
	assert.NotContains(t, cp.QuizScores, "q2")
	assert.Equal(t, 5, cp.ChoiceScores["d1"])
	assert.Equal(t, []string{"s1"}, cp.Completed)
	assert.Equal(t, 10, cp.Score)
}

func TestSnapshot_RoundTrip(t *testing.T) {
	gs := NewGameState("g")
	gs.CurrentSceneID = "quiz"
	gs.History = []string{"intro", "quiz"}
	gs.Score = 7
	gs.Attempts["quiz"] = 1
	gs.ElapsedMs = 12000

	snap := NewSnapshot(gs)
	assert.Equal(t, SnapshotSchemaVersion, snap.SchemaVersion)
	assert.Equal(t, "g", snap.GameID)
	assert.False(t, snap.SavedAt.IsZero())

	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var restored Snapshot
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, snap.State.ID, restored.State.ID)
	assert.Equal(t, snap.State.History, restored.State.History)
	assert.Equal(t, snap.State.Score, restored.State.Score)
	assert.Equal(t, snap.State.Attempts, restored.State.Attempts)
	assert.Equal(t, snap.State.ElapsedMs, restored.State.ElapsedMs)
}

func TestNewSnapshot_ClonesState(t *testing.T) {
	gs := NewGameState("g")
	gs.Score = 1

	snap := NewSnapshot(gs)
	gs.Score = 2

	assert.Equal(t, 1, snap.State.Score)
}
