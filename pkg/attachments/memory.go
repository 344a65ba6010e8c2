package attachments

import (
	"context"
	"fmt"
	"sync"
)

type memoryEntry struct {
	att  Attachment
	data []byte
	text string
}

// MemoryStore is an in-memory Store. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	lookups int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

// Put stores an attachment with its raw bytes and extracted text. The kind is
// derived from the MIME type when unset.
func (s *MemoryStore) Put(a Attachment, data []byte, text string) {
	if a.Kind == "" {
		a.Kind = KindOf(a.MIME)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[a.ID] = memoryEntry{att: a, data: data, text: text}
}

// ResolveMany implements Store.
func (s *MemoryStore) ResolveMany(_ context.Context, ids []string) (map[string]Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lookups++

	out := make(map[string]Attachment, len(ids))
	for _, id := range ids {
		if e, ok := s.entries[id]; ok {
			out[id] = e.att
		}
	}

	return out, nil
}

// FetchBytes implements Store.
func (s *MemoryStore) FetchBytes(_ context.Context, a Attachment) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[a.ID]
	if !ok || e.data == nil {
		return nil, fmt.Errorf("attachments: %q: %w", a.ID, ErrNotFound)
	}

	return e.data, nil
}

// FetchText implements Store.
func (s *MemoryStore) FetchText(_ context.Context, a Attachment, _ string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[a.ID]
	if !ok {
		return "", fmt.Errorf("attachments: %q: %w", a.ID, ErrNotFound)
	}

	if e.text == "" && e.att.Kind == KindDocument {
		return string(e.data), nil
	}

	return e.text, nil
}

// Lookups returns how many batch lookups were made.
func (s *MemoryStore) Lookups() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lookups
}
