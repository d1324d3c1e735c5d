package auth

import (
	"context"
	"sync"
)

// Backend persists a Session across process restarts.
//
// Load returns an empty Session and no error when nothing is stored.
// Delete must remove every key at once: a backend must never leave a
// refresh token behind a deleted credential.
type Backend interface {
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, s Session) error
	Delete(ctx context.Context) error
}

// MemoryBackend keeps the session in memory only.
type MemoryBackend struct {
	mu sync.Mutex
	s  Session
}

func (m *MemoryBackend) Load(context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s, nil
}

func (m *MemoryBackend) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s
	return nil
}

func (m *MemoryBackend) Delete(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = Session{}
	return nil
}

// toMap and fromMap convert between a Session and its persisted keys.
func toMap(s Session) map[string]string {
	m := map[string]string{KeyToken: s.Token}
	if s.RefreshToken != "" {
		m[KeyRefreshToken] = s.RefreshToken
	}
	if s.DisplayName != "" {
		m[KeyDisplayName] = s.DisplayName
	}
	return m
}

func fromMap(m map[string]string) Session {
	return Session{
		Token:        m[KeyToken],
		RefreshToken: m[KeyRefreshToken],
		DisplayName:  m[KeyDisplayName],
	}
}
