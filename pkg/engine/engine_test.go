package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/civiclearn/game-engine/pkg/manifest"
)

// testManifest builds the fixture game used across the engine tests:
//
//	intro -> fork -(choice)-> q1 -> multi -> end
//
// q1 is a single-select quiz with two attempts, multi is a multi-select
// quiz, end is the summary.
func testManifest(t *testing.T) *manifest.GameManifest {
	t.Helper()
	minScore := 30
	m := &manifest.GameManifest{
		SchemaVersion: "1.0",
		GameID:        "fixture",
		StartScene:    "intro",
		Settings: manifest.Settings{
			AllowNavigation: true,
			AutoSave:        true,
		},
		Scenes: []manifest.Scene{
			{
				ID:         "intro",
				Type:       manifest.SceneDialogue,
				Navigation: manifest.Navigation{Next: "fork"},
				Dialogue:   &manifest.DialoguePayload{Messages: []string{"welcome"}},
			},
			{
				ID:   "fork",
				Type: manifest.SceneDialogue,
				Dialogue: &manifest.DialoguePayload{
					Messages: []string{"pick"},
					Choices: []manifest.Choice{
						{ID: "careless", Text: "Careless", NextScene: "q1", Points: 0},
						{ID: "careful", Text: "Careful", NextScene: "q1", Points: 10},
					},
				},
			},
			{
				ID:         "q1",
				Type:       manifest.SceneQuiz,
				Navigation: manifest.Navigation{Next: "multi"},
				Quiz: &manifest.QuizPayload{
					Question:     "single",
					MaxAttempts:  2,
					ShowFeedback: true,
					Options: []manifest.QuizOption{
						{ID: "right", IsCorrect: true, Points: 10, Feedback: "yes"},
						{ID: "wrong", Feedback: "no"},
					},
				},
			},
			{
				ID:         "multi",
				Type:       manifest.SceneQuiz,
				Navigation: manifest.Navigation{Next: "end"},
				Quiz: &manifest.QuizPayload{
					Question:      "multi",
					MaxAttempts:   3,
					AllowMultiple: true,
					Options: []manifest.QuizOption{
						{ID: "m1", IsCorrect: true, Points: 5},
						{ID: "m2", IsCorrect: true, Points: 5},
						{ID: "m3"},
					},
				},
			},
			{
				ID:      "end",
				Type:    manifest.SceneSummary,
				Summary: &manifest.SummaryPayload{Title: "Done", TotalScore: 30},
			},
		},
		Achievements: []manifest.Achievement{
			{ID: "perfect", Title: "Perfect", Unlock: manifest.UnlockCondition{MinScore: &minScore}},
			{ID: "visitor", Title: "Visitor", Unlock: manifest.UnlockCondition{AllScenesCompleted: true}},
		},
	}
	require.Empty(t, m.Validate())
	return m
}

// captureSink records every emitted event, optionally failing or panicking
type captureSink struct {
	mu      sync.Mutex
	events  []Event
	failErr error
	panics  bool
}

func (s *captureSink) Emit(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panics {
		panic("sink blew up")
	}
	if s.failErr != nil {
		return s.failErr
	}
	s.events = append(s.events, event)
	return nil
}

func (s *captureSink) kinds() []EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]EventKind, len(s.events))
	for i, e := range s.events {
		kinds[i] = e.Kind
	}
	return kinds
}

func (s *captureSink) last() Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[len(s.events)-1]
}

var errSinkDown = errors.New("sink down")

func newTestEmitter(sink Sink) *emitter {
	return &emitter{sink: sink, logger: slog.Default()}
}
