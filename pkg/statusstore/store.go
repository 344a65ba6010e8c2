// Package statusstore persists model statuses out of band. Nothing on the
// request path reads or writes it.
package statusstore

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/germanamz/modelgate/pkg/models"
)

// Store persists the last known status of each model.
type Store interface {
	PersistedStatus(ctx context.Context, modelID string) (models.Status, error)
	SetStatus(ctx context.Context, modelID string, s models.Status) error
}

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory Store. It is safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	statuses map[string]models.Status
	updated  time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{statuses: make(map[string]models.Status)}
}

// PersistedStatus returns the stored status, or UNKNOWN for a model never set.
func (s *MemoryStore) PersistedStatus(_ context.Context, modelID string) (models.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.statuses[modelID]
	if !ok {
		return models.StatusUnknown, nil
	}
	return st, nil
}

// SetStatus stores a status.
func (s *MemoryStore) SetStatus(_ context.Context, modelID string, st models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.statuses[modelID] = st
	s.updated = time.Now()

	return nil
}

// Snapshot returns a copy of every stored status and the time of the last write.
func (s *MemoryStore) Snapshot() (map[string]models.Status, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return maps.Clone(s.statuses), s.updated
}
