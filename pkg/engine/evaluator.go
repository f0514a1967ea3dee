package engine

import (
	"fmt"

	"github.com/civiclearn/game-engine/pkg/manifest"
	"github.com/civiclearn/game-engine/pkg/state"
)

// AdvancePolicy decides when a quiz attempt should auto-advance the scene.
// The original player's intent for partial-credit attempts is a policy
// knob, not hard-wired behavior.
type AdvancePolicy int

const (
	// AdvanceOnFullMarks advances on a fully correct attempt or on
	// exhausting the attempt budget. Default.
	AdvanceOnFullMarks AdvancePolicy = iota
	// AdvanceOnExhaustionOnly advances only once attempts are exhausted
	AdvanceOnExhaustionOnly
)

// QuizOutcome is the result of one scored submission
type QuizOutcome struct {
	SceneID           string            `json:"scene_id"`
	AttemptsUsed      int               `json:"attempts_used"`
	AttemptsRemaining int               `json:"attempts_remaining"`
	ScoreAwarded      int               `json:"score_awarded"` // contribution added to the accumulated score
	AttemptScore      int               `json:"attempt_score"` // raw points of this attempt
	FullyCorrect      bool              `json:"fully_correct"`
	Exhausted         bool              `json:"exhausted"`
	ShouldAdvance     bool              `json:"should_advance"`
	Feedback          map[string]string `json:"feedback,omitempty"` // per selected option, when showFeedback is set
}

// Evaluator scores submissions against quiz scenes, enforcing attempt and
// points rules. It shares the single GameState owner with the Navigator.
type Evaluator struct {
	manifest *manifest.GameManifest
	gs       *state.GameState
	policy   AdvancePolicy
	emitter  *emitter
}

func NewEvaluator(m *manifest.GameManifest, gs *state.GameState, policy AdvancePolicy, em *emitter) *Evaluator {
	return &Evaluator{manifest: m, gs: gs, policy: policy, emitter: em}
}

// Submit scores one attempt. Incorrect selections contribute zero, never
// negative. A quiz contributes its best attempt to the accumulated score,
// so retries can only improve it. Submitting after exhaustion was already
// reported is host misuse and returns ErrAttemptsExceeded; the state is
// left unchanged on every error path.
func (e *Evaluator) Submit(sceneID string, selectedOptionIDs []string) (*QuizOutcome, error) {
	scene, ok := e.manifest.Scene(sceneID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSceneNotFound, sceneID)
	}
	if scene.Type != manifest.SceneQuiz || scene.Quiz == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotQuizScene, sceneID)
	}
	quiz := scene.Quiz

	if e.gs.Attempts[sceneID] >= quiz.MaxAttempts {
		return nil, fmt.Errorf("%w: %d of %d used on %q", ErrAttemptsExceeded, e.gs.Attempts[sceneID], quiz.MaxAttempts, sceneID)
	}

	if len(selectedOptionIDs) == 0 {
		return nil, fmt.Errorf("%w: empty selection", ErrInvalidSelection)
	}
	if !quiz.AllowMultiple && len(selectedOptionIDs) != 1 {
		return nil, fmt.Errorf("%w: quiz %q is single-select, got %d options", ErrInvalidSelection, sceneID, len(selectedOptionIDs))
	}
	seen := make(map[string]bool, len(selectedOptionIDs))
	for _, id := range selectedOptionIDs {
		if _, ok := scene.Option(id); !ok {
			return nil, fmt.Errorf("%w: unknown option %q", ErrInvalidSelection, id)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: option %q selected twice", ErrInvalidSelection, id)
		}
		seen[id] = true
	}

	// Selection is valid from here on: the attempt counts, including the
	// one that exhausts the budget.
	e.gs.Attempts[sceneID]++
	attemptsUsed := e.gs.Attempts[sceneID]

	attemptScore := 0
	correctSelected := 0
	incorrectSelected := 0
	for _, id := range selectedOptionIDs {
		opt, _ := scene.Option(id)
		if opt.IsCorrect {
			attemptScore += opt.Points
			correctSelected++
		} else {
			incorrectSelected++
		}
	}
	totalCorrect := 0
	for _, opt := range quiz.Options {
		if opt.IsCorrect {
			totalCorrect++
		}
	}
	fullyCorrect := incorrectSelected == 0 && correctSelected == totalCorrect

	awarded := 0
	if attemptScore > e.gs.QuizScores[sceneID] {
		awarded = attemptScore - e.gs.QuizScores[sceneID]
		e.gs.QuizScores[sceneID] = attemptScore
		e.gs.Score += awarded
	}

	exhausted := attemptsUsed >= quiz.MaxAttempts
	shouldAdvance := exhausted
	if e.policy == AdvanceOnFullMarks && fullyCorrect {
		shouldAdvance = true
	}

	outcome := &QuizOutcome{
		SceneID:           sceneID,
		AttemptsUsed:      attemptsUsed,
		AttemptsRemaining: quiz.MaxAttempts - attemptsUsed,
		ScoreAwarded:      awarded,
		AttemptScore:      attemptScore,
		FullyCorrect:      fullyCorrect,
		Exhausted:         exhausted,
		ShouldAdvance:     shouldAdvance,
	}
	if quiz.ShowFeedback {
		outcome.Feedback = make(map[string]string, len(selectedOptionIDs))
		for _, id := range selectedOptionIDs {
			opt, _ := scene.Option(id)
			outcome.Feedback[id] = opt.Feedback
		}
	}

	e.emitter.emit(e.gs.ID, e.gs.GameID, EventQuizSubmitted, sceneID, map[string]interface{}{
		"attempts_used": attemptsUsed,
		"attempt_score": attemptScore,
		"fully_correct": fullyCorrect,
		"exhausted":     exhausted,
	})
	return outcome, nil
}
