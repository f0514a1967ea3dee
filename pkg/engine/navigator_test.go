package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civiclearn/game-engine/pkg/manifest"
	"github.com/civiclearn/game-engine/pkg/state"
)

func newNavigator(t *testing.T, sink Sink) (*Navigator, *state.GameState) {
	t.Helper()
	m := testManifest(t)
	gs := state.NewGameState(m.GameID)
	nav := NewNavigator(m, gs, newTestEmitter(sink))
	require.NoError(t, nav.Enter(m.StartScene))
	return nav, gs
}

func TestNavigator_Enter(t *testing.T) {
	sink := &captureSink{}
	nav, gs := newNavigator(t, sink)

	assert.Equal(t, "intro", gs.CurrentSceneID)
	assert.Equal(t, []string{"intro"}, gs.History)
	assert.Equal(t, []string{"intro"}, gs.Completed)

	scene, err := nav.CurrentScene()
	require.NoError(t, err)
	assert.Equal(t, "intro", scene.ID)

	require.Len(t, sink.events, 1)
	assert.Equal(t, EventSceneEntered, sink.events[0].Kind)
	assert.Equal(t, "intro", sink.events[0].SceneID)
}

func TestNavigator_EnterUnknownScene(t *testing.T) {
	nav, gs := newNavigator(t, nil)

	err := nav.Enter("ghost")
	assert.ErrorIs(t, err, ErrSceneNotFound)
	// state untouched on failure
	assert.Equal(t, "intro", gs.CurrentSceneID)
	assert.Equal(t, []string{"intro"}, gs.History)
}

func TestNavigator_Advance(t *testing.T) {
	nav, gs := newNavigator(t, nil)

	require.NoError(t, nav.Advance())
	assert.Equal(t, "fork", gs.CurrentSceneID)
	assert.Equal(t, []string{"intro", "fork"}, gs.History)
}

func TestNavigator_AdvanceRequiresChoice(t *testing.T) {
	// A scene with both choices and a next edge must go through Choose
	nav, gs := newNavigator(t, nil)
	require.NoError(t, nav.Advance()) // intro -> fork

	err := nav.Advance()
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, "fork", gs.CurrentSceneID)
}

func TestNavigator_AdvanceAtTerminal(t *testing.T) {
	m := testManifest(t)
	gs := state.NewGameState(m.GameID)
	nav := NewNavigator(m, gs, nil)
	require.NoError(t, nav.Enter("end"))

	assert.True(t, nav.AtTerminal())
	assert.ErrorIs(t, nav.Advance(), ErrIllegalTransition)
}

func TestNavigator_Choose(t *testing.T) {
	sink := &captureSink{}
	nav, gs := newNavigator(t, sink)
	require.NoError(t, nav.Advance()) // intro -> fork

	require.NoError(t, nav.Choose("careful"))
	assert.Equal(t, "q1", gs.CurrentSceneID)
	assert.Equal(t, 10, gs.Score)
	assert.Equal(t, []string{"intro", "fork", "q1"}, gs.History)
	// quiz scene gets its attempt counter on first entry
	used, ok := gs.Attempts["q1"]
	assert.True(t, ok)
	assert.Zero(t, used)

	kinds := sink.kinds()
	assert.Contains(t, kinds, EventChoiceMade)
}

func TestNavigator_ChooseErrors(t *testing.T) {
	nav, gs := newNavigator(t, nil)

	// intro has no choices
	err := nav.Choose("careful")
	assert.ErrorIs(t, err, ErrUnknownChoice)

	require.NoError(t, nav.Advance()) // -> fork
	err = nav.Choose("teleport")
	assert.ErrorIs(t, err, ErrUnknownChoice)
	assert.Equal(t, "fork", gs.CurrentSceneID)
	assert.Zero(t, gs.Score)
}

func TestNavigator_ChooseOnQuizScene(t *testing.T) {
	m := testManifest(t)
	gs := state.NewGameState(m.GameID)
	nav := NewNavigator(m, gs, nil)
	require.NoError(t, nav.Enter("q1"))

	assert.ErrorIs(t, nav.Choose("right"), ErrIllegalTransition)
}

func TestNavigator_Back(t *testing.T) {
	nav, gs := newNavigator(t, nil)
	require.NoError(t, nav.Advance()) // intro -> fork

	require.NoError(t, nav.Back())
	assert.Equal(t, "intro", gs.CurrentSceneID)
	assert.Equal(t, []string{"intro"}, gs.History)
	// completion is not undone
	assert.Contains(t, gs.Completed, "fork")
}

func TestNavigator_BackAtStart(t *testing.T) {
	nav, _ := newNavigator(t, nil)
	assert.ErrorIs(t, nav.Back(), ErrNavigationDisabled)
}

func TestNavigator_BackDisabledByManifest(t *testing.T) {
	m := testManifest(t)
	m.Settings.AllowNavigation = false
	gs := state.NewGameState(m.GameID)
	nav := NewNavigator(m, gs, nil)
	require.NoError(t, nav.Enter("intro"))
	require.NoError(t, nav.Advance())

	assert.ErrorIs(t, nav.Back(), ErrNavigationDisabled)
	assert.Equal(t, "fork", gs.CurrentSceneID)
}

func TestNavigator_BackThenRechooseScoresOnce(t *testing.T) {
	// Replaying the same branch after back() must not double-count,
	// and picking a different branch replaces the earlier contribution.
	nav, gs := newNavigator(t, nil)
	require.NoError(t, nav.Advance()) // -> fork

	require.NoError(t, nav.Choose("careful"))
	assert.Equal(t, 10, gs.Score)

	require.NoError(t, nav.Back()) // -> fork
	require.NoError(t, nav.Choose("careful"))
	assert.Equal(t, 10, gs.Score)

	require.NoError(t, nav.Back())
	require.NoError(t, nav.Choose("careless"))
	assert.Equal(t, 0, gs.Score)
}

func TestNavigator_ReentryKeepsAttemptBudget(t *testing.T) {
	m := testManifest(t)
	gs := state.NewGameState(m.GameID)
	nav := NewNavigator(m, gs, nil)

	require.NoError(t, nav.Enter("q1"))
	gs.Attempts["q1"] = 2

	require.NoError(t, nav.Enter("multi"))
	require.NoError(t, nav.Back())
	require.NoError(t, nav.Enter("q1"))

	assert.Equal(t, 2, gs.Attempts["q1"], "revisiting must not reset a spent budget")
}

func TestNavigator_SkippableDeadEnd(t *testing.T) {
	m := &manifest.GameManifest{
		SchemaVersion: "1.0",
		GameID:        "skip",
		StartScene:    "s",
		Scenes: []manifest.Scene{
			{
				ID:         "s",
				Type:       manifest.SceneDialogue,
				Navigation: manifest.Navigation{CanSkip: true},
				Dialogue:   &manifest.DialoguePayload{Messages: []string{"x"}},
			},
		},
	}
	gs := state.NewGameState(m.GameID)
	nav := NewNavigator(m, gs, nil)
	require.NoError(t, nav.Enter("s"))

	assert.False(t, nav.AtTerminal())
	// skippable but with nowhere to go; advancing still fails
	assert.ErrorIs(t, nav.Advance(), ErrIllegalTransition)
}
