package engine

import (
	"fmt"

	"github.com/civiclearn/game-engine/pkg/manifest"
	"github.com/civiclearn/game-engine/pkg/state"
)

// GameResults is the immutable session result, produced exactly once at the
// terminal transition.
type GameResults struct {
	GameID               string   `json:"game_id"`
	Score                int      `json:"score"`
	TotalScore           int      `json:"total_score"`
	TimeSpentMs          int64    `json:"time_spent_ms"`
	ScenesCompleted      []string `json:"scenes_completed"` // manifest order
	UnlockedAchievements []string `json:"unlocked_achievements,omitempty"`
}

// Finalize folds final state into a GameResults. It is pure and
// deterministic given the same state and manifest, and legal only once the
// Navigator reports a terminal scene. A current scene id that is missing
// from the manifest indicates a validation gap and is fatal here.
func Finalize(gs *state.GameState, m *manifest.GameManifest) (*GameResults, error) {
	scene, ok := m.Scene(gs.CurrentSceneID)
	if !ok {
		return nil, fmt.Errorf("%w: current scene %q", ErrSceneNotFound, gs.CurrentSceneID)
	}
	if !scene.IsTerminal() {
		return nil, fmt.Errorf("%w: %q", ErrNotTerminal, scene.ID)
	}

	completedSet := gs.CompletedSet()

	// Completed scenes are reported in manifest order, not visit order
	completed := make([]string, 0, len(completedSet))
	for i := range m.Scenes {
		if completedSet[m.Scenes[i].ID] {
			completed = append(completed, m.Scenes[i].ID)
		}
	}

	var unlocked []string
	for _, a := range m.Achievements {
		if a.Unlocked(gs.Score, completedSet, len(m.Scenes)) {
			unlocked = append(unlocked, a.ID)
		}
	}

	return &GameResults{
		GameID:               m.GameID,
		Score:                gs.Score,
		TotalScore:           m.TotalScore(),
		TimeSpentMs:          gs.ElapsedMs,
		ScenesCompleted:      completed,
		UnlockedAchievements: unlocked,
	}, nil
}
