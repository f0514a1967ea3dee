package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func branchingManifest() *GameManifest {
	return &GameManifest{
		SchemaVersion: "1.0",
		GameID:        "branching",
		StartScene:    "fork",
		Scenes: []Scene{
			{
				ID:   "fork",
				Type: SceneDialogue,
				Dialogue: &DialoguePayload{
					Messages: []string{"pick a path"},
					Choices: []Choice{
						{ID: "left", Text: "Left", NextScene: "quiz", Points: 5},
						{ID: "right", Text: "Right", NextScene: "quiz", Points: 10},
					},
				},
			},
			{
				ID:         "quiz",
				Type:       SceneQuiz,
				Navigation: Navigation{Next: "end"},
				Quiz: &QuizPayload{
					Question:    "multi",
					MaxAttempts: 1,
					Options: []QuizOption{
						{ID: "a", IsCorrect: true, Points: 3},
						{ID: "b", IsCorrect: true, Points: 7},
						{ID: "c"},
					},
				},
			},
			{
				ID:      "end",
				Type:    SceneSummary,
				Summary: &SummaryPayload{TotalScore: 20},
			},
		},
	}
}

func TestScene_Lookup(t *testing.T) {
	m := branchingManifest()

	s, ok := m.Scene("quiz")
	require.True(t, ok)
	assert.Equal(t, SceneQuiz, s.Type)

	_, ok = m.Scene("missing")
	assert.False(t, ok)
}

func TestTotalScore_SummaryDeclared(t *testing.T) {
	m := branchingManifest()
	assert.Equal(t, 20, m.TotalScore())
}

func TestTotalScore_FallsBackToMaxObtainable(t *testing.T) {
	m := branchingManifest()
	m.Scenes = m.Scenes[:2] // drop the summary

	// best choice (10) plus all correct quiz options (3+7)
	assert.Equal(t, 20, m.TotalScore())
	assert.Equal(t, 20, m.MaxObtainablePoints())
}

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		name  string
		scene Scene
		want  bool
	}{
		{
			name:  "summary is always terminal",
			scene: Scene{Type: SceneSummary, Navigation: Navigation{Next: "x"}},
			want:  true,
		},
		{
			name:  "dead end dialogue",
			scene: Scene{Type: SceneDialogue},
			want:  true,
		},
		{
			name:  "dialogue with next",
			scene: Scene{Type: SceneDialogue, Navigation: Navigation{Next: "x"}},
			want:  false,
		},
		{
			name:  "skippable dead end is not terminal",
			scene: Scene{Type: SceneDialogue, Navigation: Navigation{CanSkip: true}},
			want:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.scene.IsTerminal())
		})
	}
}

func TestHasChoices(t *testing.T) {
	m := branchingManifest()

	fork, _ := m.Scene("fork")
	assert.True(t, fork.HasChoices())

	quiz, _ := m.Scene("quiz")
	assert.False(t, quiz.HasChoices())

	bare := Scene{Type: SceneDialogue, Dialogue: &DialoguePayload{Messages: []string{"hi"}}}
	assert.False(t, bare.HasChoices())
}

func TestChoiceAndOptionLookup(t *testing.T) {
	m := branchingManifest()

	fork, _ := m.Scene("fork")
	c, ok := fork.Choice("right")
	require.True(t, ok)
	assert.Equal(t, 10, c.Points)
	_, ok = fork.Choice("up")
	assert.False(t, ok)

	quiz, _ := m.Scene("quiz")
	o, ok := quiz.Option("b")
	require.True(t, ok)
	assert.True(t, o.IsCorrect)
	_, ok = quiz.Option("z")
	assert.False(t, ok)
}

func TestAchievement_Unlocked(t *testing.T) {
	min := 15
	tests := []struct {
		name      string
		cond      UnlockCondition
		score     int
		completed map[string]bool
		total     int
		want      bool
	}{
		{
			name:  "min score met",
			cond:  UnlockCondition{MinScore: &min},
			score: 15,
			want:  true,
		},
		{
			name:  "min score not met",
			cond:  UnlockCondition{MinScore: &min},
			score: 14,
			want:  false,
		},
		{
			name:      "all scenes completed",
			cond:      UnlockCondition{AllScenesCompleted: true},
			completed: map[string]bool{"a": true, "b": true},
			total:     2,
			want:      true,
		},
		{
			name:      "not all scenes completed",
			cond:      UnlockCondition{AllScenesCompleted: true},
			completed: map[string]bool{"a": true},
			total:     2,
			want:      false,
		},
		{
			name:      "specific scene completed",
			cond:      UnlockCondition{SceneCompleted: "secret"},
			completed: map[string]bool{"secret": true},
			want:      true,
		},
		{
			name:      "conjunction requires every clause",
			cond:      UnlockCondition{MinScore: &min, SceneCompleted: "secret"},
			score:     20,
			completed: map[string]bool{},
			want:      false,
		},
		{
			name: "empty condition always unlocks",
			cond: UnlockCondition{},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Achievement{ID: "a", Unlock: tt.cond}
			assert.Equal(t, tt.want, a.Unlocked(tt.score, tt.completed, tt.total))
		})
	}
}
