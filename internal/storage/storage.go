package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/civiclearn/game-engine/pkg/manifest"
	"github.com/civiclearn/game-engine/pkg/state"
)

// Storage defines a unified interface for all storage operations: autosave
// snapshot persistence (Redis) and manifest document loading (filesystem).
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Snapshot operations (Redis-backed)
	SaveSnapshot(ctx context.Context, sessionID uuid.UUID, snap *state.Snapshot) error
	LoadSnapshot(ctx context.Context, sessionID uuid.UUID) (*state.Snapshot, error)
	DeleteSnapshot(ctx context.Context, sessionID uuid.UUID) error

	// Manifest operations (filesystem-backed). GetManifest returns the
	// validated document or the full violation list as the error.
	ListManifests(ctx context.Context) (map[string]string, error)
	GetManifest(ctx context.Context, filename string) (*manifest.GameManifest, error)
}
