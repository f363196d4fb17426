package backend

import (
	"context"
	"sync"
)

// SessionStorage persists a visitor's session between requests. Load
// returns (nil, nil) when nothing is stored.
type SessionStorage interface {
	Load(ctx context.Context, key string) (*Session, error)
	Save(ctx context.Context, key string, s *Session) error
	Delete(ctx context.Context, key string) error
}

type MemoryStorage struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{sessions: make(map[string]Session)}
}

func (m *MemoryStorage) Load(_ context.Context, key string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[key]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryStorage) Save(_ context.Context, key string, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[key] = *s
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, key)
	return nil
}
