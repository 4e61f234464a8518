package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cubicle/internal/game"
)

// MemoryStore is an in-process Store used by tests and by `serve --ephemeral`.
// Sessions are deep-copied through JSON on the way in and out so callers
// never share mutable state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]byte)}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*game.Session, error) {
	m.mu.RLock()
	blob, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var session game.Session
	if err := json.Unmarshal(blob, &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &session, nil
}

func (m *MemoryStore) Put(ctx context.Context, session *game.Session) error {
	blob, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.ID, err)
	}
	m.mu.Lock()
	m.sessions[session.ID] = blob
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }
