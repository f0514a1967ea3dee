package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/civiclearn/game-engine/pkg/manifest"
	"github.com/civiclearn/game-engine/pkg/state"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu        sync.RWMutex
	snapshots map[uuid.UUID]*state.Snapshot
	manifests map[string]*manifest.GameManifest
	pingError error
	saveError error
	saveCalls int
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		snapshots: make(map[uuid.UUID]*state.Snapshot),
		manifests: make(map[string]*manifest.GameManifest),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures the mock to fail snapshot saves
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// SaveCalls reports how many snapshot saves were attempted
func (m *MockStorage) SaveCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saveCalls
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// SaveSnapshot mocks saving a snapshot
func (m *MockStorage) SaveSnapshot(ctx context.Context, sessionID uuid.UUID, snap *state.Snapshot) error {
	if snap == nil {
		return errors.New("snapshot cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.saveError != nil {
		return m.saveError
	}
	m.snapshots[sessionID] = snap
	return nil
}

// LoadSnapshot mocks loading a snapshot
func (m *MockStorage) LoadSnapshot(ctx context.Context, sessionID uuid.UUID) (*state.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, exists := m.snapshots[sessionID]
	if !exists {
		return nil, nil // Return nil for not found
	}
	return snap, nil
}

// DeleteSnapshot mocks deleting a snapshot
func (m *MockStorage) DeleteSnapshot(ctx context.Context, sessionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, sessionID)
	return nil
}

// ListManifests mocks listing manifests
func (m *MockStorage) ListManifests(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]string)
	for filename, doc := range m.manifests {
		title := doc.Metadata.Title
		if title == "" {
			title = doc.GameID
		}
		result[title] = filename
	}
	return result, nil
}

// GetManifest mocks getting a manifest by filename
func (m *MockStorage) GetManifest(ctx context.Context, filename string) (*manifest.GameManifest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, exists := m.manifests[filename]
	if !exists {
		return nil, errors.New("manifest not found")
	}
	return doc, nil
}

// AddManifest adds a manifest to the mock storage (for testing)
func (m *MockStorage) AddManifest(filename string, doc *manifest.GameManifest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manifests[filename] = doc
}
