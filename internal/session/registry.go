package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/civiclearn/game-engine/internal/logger"
	"github.com/civiclearn/game-engine/internal/storage"
	"github.com/civiclearn/game-engine/pkg/engine"
)

// ErrNotFound is returned when no live session matches the given id
var ErrNotFound = fmt.Errorf("session not found")

// Registry owns the live sessions of this process. It constructs sessions
// from validated manifests, resumes them from persisted snapshots, and
// tears them down with a synchronous autosave flush.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*engine.Session

	storage storage.Storage
	sink    engine.Sink
	logger  *slog.Logger

	tickInterval     time.Duration
	autosaveDebounce time.Duration
}

func NewRegistry(st storage.Storage, sink engine.Sink, logger *slog.Logger, tickInterval, autosaveDebounce time.Duration) *Registry {
	return &Registry{
		sessions:         make(map[uuid.UUID]*engine.Session),
		storage:          st,
		sink:             sink,
		logger:           logger,
		tickInterval:     tickInterval,
		autosaveDebounce: autosaveDebounce,
	}
}

func (r *Registry) options() engine.Options {
	return engine.Options{
		Sink:             r.sink,
		Store:            r.storage,
		Logger:           r.logger,
		TickInterval:     r.tickInterval,
		AutosaveDebounce: r.autosaveDebounce,
	}
}

// Create loads and validates a manifest, then starts a fresh session at its
// start scene. Validation failures abort before any state exists.
func (r *Registry) Create(ctx context.Context, manifestFile string) (*engine.Session, error) {
	m, err := r.storage.GetManifest(ctx, manifestFile)
	if err != nil {
		return nil, err
	}

	sess, err := engine.NewSession(m, r.options())
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	r.mu.Lock()
	r.sessions[sess.ID()] = sess
	r.mu.Unlock()

	logger.WithSessionID(r.logger, sess.ID().String()).Info("Session created", "game_id", m.GameID)
	return sess, nil
}

// Resume reconstructs a session from its persisted snapshot and the named
// manifest. The session continues at the saved scene without re-entering.
func (r *Registry) Resume(ctx context.Context, sessionID uuid.UUID, manifestFile string) (*engine.Session, error) {
	r.mu.RLock()
	if sess, ok := r.sessions[sessionID]; ok {
		r.mu.RUnlock()
		return sess, nil
	}
	r.mu.RUnlock()

	snap, err := r.storage.LoadSnapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: no snapshot for %s", ErrNotFound, sessionID)
	}

	m, err := r.storage.GetManifest(ctx, manifestFile)
	if err != nil {
		return nil, err
	}

	sess, err := engine.ResumeSession(m, snap, r.options())
	if err != nil {
		return nil, fmt.Errorf("failed to resume session: %w", err)
	}

	r.mu.Lock()
	r.sessions[sess.ID()] = sess
	r.mu.Unlock()

	logger.WithSessionID(r.logger, sessionID.String()).Info("Session resumed", "game_id", m.GameID)
	return sess, nil
}

// Get returns a live session by id
func (r *Registry) Get(sessionID uuid.UUID) (*engine.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Remove tears a session down, flushing pending autosave before discarding
func (r *Registry) Remove(ctx context.Context, sessionID uuid.UUID) error {
	r.mu.Lock()
	sess, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	if err := sess.Close(ctx); err != nil {
		return err
	}
	logger.WithSessionID(r.logger, sessionID.String()).Info("Session removed")
	return nil
}

// Shutdown closes every live session, flushing pending autosaves
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	sessions := make([]*engine.Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		sessions = append(sessions, sess)
	}
	r.sessions = make(map[uuid.UUID]*engine.Session)
	r.mu.Unlock()

	for _, sess := range sessions {
		if err := sess.Close(ctx); err != nil {
			r.logger.Error("Failed to close session", "session_id", sess.ID(), "error", err)
		}
	}
}
