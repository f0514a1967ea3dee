package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/civiclearn/game-engine/pkg/manifest"
	"github.com/civiclearn/game-engine/pkg/state"
)

// SnapshotTTL bounds how long an abandoned session stays resumable
const SnapshotTTL = 24 * time.Hour

// RedisStorage implements the Storage interface using Redis for autosave
// snapshots and the filesystem for authored manifests.
type RedisStorage struct {
	client  *redis.Client
	logger  *slog.Logger
	dataDir string
}

// Ensure RedisStorage implements Storage interface
var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(redisAddr string, dataDir string, logger *slog.Logger) *RedisStorage {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	if dataDir == "" {
		dataDir = "./data"
	}

	return &RedisStorage{
		client:  rdb,
		logger:  logger,
		dataDir: dataDir,
	}
}

// Client exposes the underlying Redis client for collaborators that share
// the connection (the event broadcaster).
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Snapshot operations (Redis-backed)

func snapshotKey(gameID string, sessionID uuid.UUID) string {
	return fmt.Sprintf("snapshot:%s:%s", gameID, sessionID.String())
}

func (r *RedisStorage) SaveSnapshot(ctx context.Context, sessionID uuid.UUID, snap *state.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		r.logger.Error("Failed to marshal snapshot", "session_id", sessionID, "error", err)
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	key := snapshotKey(snap.GameID, sessionID)
	if err := r.client.Set(ctx, key, string(data), SnapshotTTL).Err(); err != nil {
		r.logger.Error("Failed to save snapshot", "session_id", sessionID, "error", err)
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	// Index key so snapshots are loadable by session id alone
	if err := r.client.Set(ctx, "session:"+sessionID.String(), snap.GameID, SnapshotTTL).Err(); err != nil {
		r.logger.Error("Failed to index snapshot", "session_id", sessionID, "error", err)
		return fmt.Errorf("failed to index snapshot: %w", err)
	}

	return nil
}

func (r *RedisStorage) LoadSnapshot(ctx context.Context, sessionID uuid.UUID) (*state.Snapshot, error) {
	gameID, err := r.client.Get(ctx, "session:"+sessionID.String()).Result()
	if err != nil {
		if err == redis.Nil {
			r.logger.Warn("Snapshot not found", "session_id", sessionID)
			return nil, nil // Return nil for not found
		}
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}

	data, err := r.client.Get(ctx, snapshotKey(gameID, sessionID)).Result()
	if err != nil {
		if err == redis.Nil {
			r.logger.Warn("Snapshot not found", "session_id", sessionID)
			return nil, nil
		}
		r.logger.Error("Failed to load snapshot", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snap state.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		r.logger.Error("Failed to unmarshal snapshot", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &snap, nil
}

func (r *RedisStorage) DeleteSnapshot(ctx context.Context, sessionID uuid.UUID) error {
	gameID, err := r.client.Get(ctx, "session:"+sessionID.String()).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return fmt.Errorf("failed to resolve session: %w", err)
	}

	if err := r.client.Del(ctx, snapshotKey(gameID, sessionID), "session:"+sessionID.String()).Err(); err != nil {
		r.logger.Error("Failed to delete snapshot", "session_id", sessionID, "error", err)
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// Manifest operations (filesystem-backed)

func (r *RedisStorage) ListManifests(ctx context.Context) (map[string]string, error) {
	manifestsDir := filepath.Join(r.dataDir, "manifests")
	manifests := make(map[string]string)

	err := filepath.WalkDir(manifestsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		file, err := os.ReadFile(path)
		if err != nil {
			r.logger.Warn("Failed to read manifest file", "path", path, "error", err)
			return nil
		}

		m, verrs := manifest.Parse(file)
		if verrs != nil {
			r.logger.Warn("Skipping invalid manifest file", "path", path, "violations", len(verrs))
			return nil
		}

		filename := filepath.Base(path)
		title := m.Metadata.Title
		if title == "" {
			title = m.GameID
		}
		manifests[title] = filename
		return nil
	})

	if err != nil {
		r.logger.Error("Failed to walk manifests directory", "error", err)
		return nil, fmt.Errorf("failed to list manifests: %w", err)
	}

	return manifests, nil
}

func (r *RedisStorage) GetManifest(ctx context.Context, filename string) (*manifest.GameManifest, error) {
	path := filepath.Join(r.dataDir, "manifests", filename)

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("manifest not found: %s", filename)
		}
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	m, verrs := manifest.Parse(file)
	if verrs != nil {
		return nil, verrs
	}

	return m, nil
}
