package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/civiclearn/game-engine/pkg/manifest"
	"github.com/civiclearn/game-engine/pkg/state"
)

const (
	DefaultTickInterval     = time.Second
	DefaultAutosaveDebounce = 500 * time.Millisecond

	saveRetries = 3
	saveBackoff = 100 * time.Millisecond
	saveTimeout = 5 * time.Second
)

// SnapshotStore persists autosave snapshots. Implementations are simple
// get/set key-value stores keyed by game plus session identity.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, sessionID uuid.UUID, snap *state.Snapshot) error
}

// Options configures a session. Zero values get sensible defaults.
type Options struct {
	Policy           AdvancePolicy
	Sink             Sink          // analytics collaborator, may be nil
	Store            SnapshotStore // persistence collaborator, may be nil
	Logger           *slog.Logger
	TickInterval     time.Duration
	AutosaveDebounce time.Duration
}

func (o *Options) withDefaults() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.AutosaveDebounce <= 0 {
		o.AutosaveDebounce = DefaultAutosaveDebounce
	}
}

// Session is the single logical owner of one GameState. All operations are
// synchronous and serialize through one mutex: user-triggered transitions,
// the periodic elapsed-time tick and debounced autosave flushes never
// overlap. Snapshot writes happen on an immutable clone outside the lock.
type Session struct {
	mu sync.Mutex

	manifest *manifest.GameManifest
	gs       *state.GameState
	nav      *Navigator
	eval     *Evaluator
	emitter  *emitter
	store    SnapshotStore
	logger   *slog.Logger

	autosave bool
	dirty    bool
	lastTick time.Time

	tickInterval time.Duration
	debounce     time.Duration
	saveTimer    *time.Timer

	done    chan struct{}
	wg      sync.WaitGroup
	closed  bool
	results *GameResults
}

// NewSession starts a fresh session at the manifest's declared start scene.
// The manifest must already have passed validation; the engine is never
// constructed around a partially loaded document.
func NewSession(m *manifest.GameManifest, opts Options) (*Session, error) {
	gs := state.NewGameState(m.GameID)
	s, err := buildSession(m, gs, opts)
	if err != nil {
		return nil, err
	}
	if err := s.nav.Enter(m.StartScene); err != nil {
		return nil, err
	}
	s.markDirtyLocked()
	s.start()
	return s, nil
}

// ResumeSession reconstructs a session verbatim from a persisted snapshot
// and the original manifest. The navigator resumes at the saved scene
// without re-entering it: no double scoring, no history duplication.
func ResumeSession(m *manifest.GameManifest, snap *state.Snapshot, opts Options) (*Session, error) {
	if snap == nil || snap.State == nil {
		return nil, fmt.Errorf("snapshot has no state")
	}
	if snap.GameID != m.GameID {
		return nil, fmt.Errorf("snapshot belongs to game %q, manifest is %q", snap.GameID, m.GameID)
	}
	gs := snap.State.Clone()
	if gs.Ended {
		// The result was already delivered; a resumed copy must not be
		// able to produce it again.
		return nil, fmt.Errorf("%w: session already completed", ErrSessionEnded)
	}
	if _, ok := m.Scene(gs.CurrentSceneID); !ok {
		return nil, fmt.Errorf("%w: snapshot scene %q", ErrSceneNotFound, gs.CurrentSceneID)
	}
	s, err := buildSession(m, gs, opts)
	if err != nil {
		return nil, err
	}
	s.emitter.emit(gs.ID, gs.GameID, EventSessionResumed, gs.CurrentSceneID, map[string]interface{}{
		"elapsed_ms": gs.ElapsedMs,
	})
	s.start()
	return s, nil
}

func buildSession(m *manifest.GameManifest, gs *state.GameState, opts Options) (*Session, error) {
	opts.withDefaults()
	em := &emitter{sink: opts.Sink, logger: opts.Logger}
	s := &Session{
		manifest:     m,
		gs:           gs,
		emitter:      em,
		store:        opts.Store,
		logger:       opts.Logger,
		autosave:     m.Settings.AutoSave && opts.Store != nil,
		lastTick:     time.Now(),
		tickInterval: opts.TickInterval,
		debounce:     opts.AutosaveDebounce,
		done:         make(chan struct{}),
	}
	s.nav = NewNavigator(m, gs, em)
	s.eval = NewEvaluator(m, gs, opts.Policy, em)
	s.saveTimer = time.NewTimer(s.debounce)
	if !s.saveTimer.Stop() {
		<-s.saveTimer.C
	}
	return s, nil
}

func (s *Session) start() {
	s.wg.Add(1)
	go s.run()
}

// run drives the two asynchronous inputs, the elapsed-time tick and the
// debounced autosave, through the same lock as user operations.
func (s *Session) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.tick()
		case <-s.saveTimer.C:
			s.flush(context.Background())
		}
	}
}

// tick advances elapsedMs from the wall clock, so idle time still counts
func (s *Session) tick() {
	s.mu.Lock()
	now := time.Now()
	s.gs.ElapsedMs += now.Sub(s.lastTick).Milliseconds()
	s.lastTick = now
	if s.autosave {
		s.markDirtyLocked()
	}
	s.mu.Unlock()
}

// markDirtyLocked schedules a debounced autosave. A burst of rapid
// transitions collapses to one write. Caller must hold mu.
func (s *Session) markDirtyLocked() {
	if !s.autosave || s.closed {
		return
	}
	s.dirty = true
	if !s.saveTimer.Stop() {
		select {
		case <-s.saveTimer.C:
		default:
		}
	}
	s.saveTimer.Reset(s.debounce)
}

// flush writes the pending snapshot, if any. The state is cloned under the
// lock; the write itself runs on the immutable clone with bounded retries,
// so a slow or failing store never blocks the session.
func (s *Session) flush(ctx context.Context) {
	s.mu.Lock()
	if !s.dirty || s.store == nil {
		s.mu.Unlock()
		return
	}
	s.dirty = false
	snap := state.NewSnapshot(s.gs)
	sessionID := s.gs.ID
	s.mu.Unlock()

	backoff := saveBackoff
	for attempt := 1; attempt <= saveRetries; attempt++ {
		saveCtx, cancel := context.WithTimeout(ctx, saveTimeout)
		err := s.store.SaveSnapshot(saveCtx, sessionID, snap)
		cancel()
		if err == nil {
			return
		}
		if attempt == saveRetries {
			// Persistence loss degrades resumability, never the live session
			s.logger.Error("Autosave failed, giving up", "session_id", sessionID, "attempts", attempt, "error", err)
			return
		}
		s.logger.Warn("Autosave failed, retrying", "session_id", sessionID, "attempt", attempt, "error", err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		backoff *= 2
	}
}

// ID returns the session identity
func (s *Session) ID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gs.ID
}

// Manifest returns the immutable manifest this session runs
func (s *Session) Manifest() *manifest.GameManifest {
	return s.manifest
}

// State returns a snapshot copy of the current game state
func (s *Session) State() *state.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gs.Clone()
}

// CurrentScene returns the scene the session is on
func (s *Session) CurrentScene() (*manifest.Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.CurrentScene()
}

// AtTerminal reports whether the session has reached a terminal scene
func (s *Session) AtTerminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.AtTerminal()
}

// Advance follows the current scene's declared next edge
func (s *Session) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLiveLocked(); err != nil {
		return err
	}
	if err := s.nav.Advance(); err != nil {
		return err
	}
	s.markDirtyLocked()
	return nil
}

// Choose resolves a dialogue choice and moves to its target scene
func (s *Session) Choose(choiceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLiveLocked(); err != nil {
		return err
	}
	if err := s.nav.Choose(choiceID); err != nil {
		return err
	}
	s.markDirtyLocked()
	return nil
}

// Submit scores a quiz attempt against the current scene. When the outcome
// calls for auto-advance and the quiz declares a next scene, the session
// moves there in the same operation.
func (s *Session) Submit(selectedOptionIDs []string) (*QuizOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLiveLocked(); err != nil {
		return nil, err
	}
	outcome, err := s.eval.Submit(s.gs.CurrentSceneID, selectedOptionIDs)
	if err != nil {
		return nil, err
	}
	if outcome.ShouldAdvance {
		if scene, ok := s.manifest.Scene(outcome.SceneID); ok && scene.Navigation.Next != "" {
			if err := s.nav.Enter(scene.Navigation.Next); err != nil {
				return nil, err
			}
		}
	}
	s.markDirtyLocked()
	return outcome, nil
}

// Back rewinds to the previous scene without re-scoring
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLiveLocked(); err != nil {
		return err
	}
	if err := s.nav.Back(); err != nil {
		return err
	}
	s.markDirtyLocked()
	return nil
}

// Finalize produces the session result. Legal only on a terminal scene; the
// result is created once and repeated calls return the same value.
func (s *Session) Finalize() (*GameResults, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.results != nil {
		return s.results, nil
	}
	results, err := Finalize(s.gs, s.manifest)
	if err != nil {
		return nil, err
	}
	s.results = results
	s.gs.Ended = true
	s.markDirtyLocked()
	s.emitter.emit(s.gs.ID, s.gs.GameID, EventSessionCompleted, s.gs.CurrentSceneID, map[string]interface{}{
		"score":       results.Score,
		"total_score": results.TotalScore,
	})
	return results, nil
}

func (s *Session) checkLiveLocked() error {
	if s.closed || s.results != nil {
		return ErrSessionEnded
	}
	return nil
}

// Close tears the session down: the tick loop stops, elapsed time gets a
// final update and any pending debounced autosave is flushed synchronously
// before the state is discarded. No silent progress loss.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	now := time.Now()
	s.gs.ElapsedMs += now.Sub(s.lastTick).Milliseconds()
	s.lastTick = now
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	s.flush(ctx)
	return nil
}
