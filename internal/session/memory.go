package session

import (
	"context"
	"sync"
)

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	current Session
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.current
	if out.User != nil {
		u := *out.User
		out.User = &u
	}
	return out, nil
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	if err := validate(s); err != nil {
		return err
	}
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = s
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = Session{}
	return nil
}
