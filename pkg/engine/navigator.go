package engine

import (
	"fmt"

	"github.com/civiclearn/game-engine/pkg/manifest"
	"github.com/civiclearn/game-engine/pkg/state"
)

// Navigator is the state machine over scene ids. States are the scene ids
// of the manifest, the initial state is startScene, and terminal states are
// summary scenes or dead-end scenes. Every failed operation leaves the
// GameState untouched.
type Navigator struct {
	manifest *manifest.GameManifest
	gs       *state.GameState
	emitter  *emitter
}

func NewNavigator(m *manifest.GameManifest, gs *state.GameState, em *emitter) *Navigator {
	return &Navigator{manifest: m, gs: gs, emitter: em}
}

// CurrentScene returns the scene the session is on
func (n *Navigator) CurrentScene() (*manifest.Scene, error) {
	s, ok := n.manifest.Scene(n.gs.CurrentSceneID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSceneNotFound, n.gs.CurrentSceneID)
	}
	return s, nil
}

// AtTerminal reports whether the current scene ends the session
func (n *Navigator) AtTerminal() bool {
	s, err := n.CurrentScene()
	if err != nil {
		return false
	}
	return s.IsTerminal()
}

// Enter moves to a scene: sets the current id, appends to history and marks
// the scene completed. A quiz scene gets its attempt counter initialized
// only on first entry, so revisiting never resets a spent budget.
func (n *Navigator) Enter(sceneID string) error {
	scene, ok := n.manifest.Scene(sceneID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrSceneNotFound, sceneID)
	}

	n.gs.CurrentSceneID = sceneID
	n.gs.History = append(n.gs.History, sceneID)
	n.gs.MarkCompleted(sceneID)

	if scene.Type == manifest.SceneQuiz {
		if _, attempted := n.gs.Attempts[sceneID]; !attempted {
			n.gs.Attempts[sceneID] = 0
		}
	}

	n.emitter.emit(n.gs.ID, n.gs.GameID, EventSceneEntered, sceneID, map[string]interface{}{
		"scene_type": string(scene.Type),
	})
	return nil
}

// Advance follows the current scene's declared navigation.next. It is
// illegal when the scene defines choices (those must go through Choose) or
// when no next scene exists and the scene is not skippable.
func (n *Navigator) Advance() error {
	scene, err := n.CurrentScene()
	if err != nil {
		return err
	}
	if scene.HasChoices() {
		return fmt.Errorf("%w: scene %q requires a choice", ErrIllegalTransition, scene.ID)
	}
	if scene.Navigation.Next == "" {
		if scene.IsTerminal() {
			return fmt.Errorf("%w: scene %q is terminal", ErrIllegalTransition, scene.ID)
		}
		return fmt.Errorf("%w: scene %q has no next scene", ErrIllegalTransition, scene.ID)
	}
	return n.Enter(scene.Navigation.Next)
}

// Choose resolves a dialogue choice, scores it and enters its target scene.
// A scene contributes the points of its latest chosen choice: replaying the
// same edge after back() counts the points exactly once, and choosing a
// different branch replaces the earlier contribution.
func (n *Navigator) Choose(choiceID string) error {
	scene, err := n.CurrentScene()
	if err != nil {
		return err
	}
	if scene.Type != manifest.SceneDialogue {
		return fmt.Errorf("%w: scene %q is not a dialogue", ErrIllegalTransition, scene.ID)
	}
	choice, ok := scene.Choice(choiceID)
	if !ok {
		return fmt.Errorf("%w: %q on scene %q", ErrUnknownChoice, choiceID, scene.ID)
	}

	n.gs.Score += choice.Points - n.gs.ChoiceScores[scene.ID]
	n.gs.ChoiceScores[scene.ID] = choice.Points
	n.emitter.emit(n.gs.ID, n.gs.GameID, EventChoiceMade, scene.ID, map[string]interface{}{
		"choice_id": choice.ID,
		"points":    choice.Points,
	})
	return n.Enter(choice.NextScene)
}

// Back pops the last history entry and re-enters the previous scene without
// re-scoring. Legal only when the manifest allows navigation and there is a
// previous scene to return to.
func (n *Navigator) Back() error {
	if !n.manifest.Settings.AllowNavigation {
		return fmt.Errorf("%w: manifest disallows back-navigation", ErrNavigationDisabled)
	}
	if len(n.gs.History) < 2 {
		return fmt.Errorf("%w: no previous scene", ErrNavigationDisabled)
	}

	n.gs.History = n.gs.History[:len(n.gs.History)-1]
	prev := n.gs.History[len(n.gs.History)-1]
	n.gs.CurrentSceneID = prev

	n.emitter.emit(n.gs.ID, n.gs.GameID, EventSceneEntered, prev, map[string]interface{}{
		"via": "back",
	})
	return nil
}
