package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

// Memory is a Store held in process memory.
type Memory struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	now      func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[uuid.UUID]*Session),
		now:      time.Now,
	}
}

func (m *Memory) Create(_ context.Context, s *Session) error {
	now := m.now()
	s.ID = uuid.New()
	s.CreatedAt = now
	s.UpdatedAt = now

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s.clone()
	return nil
}

func (m *Memory) Get(_ context.Context, id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return s.clone(), nil
}

func (m *Memory) Update(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.sessions[s.ID]
	if !ok {
		return core.ErrSessionNotFound
	}
	s.CreatedAt = old.CreatedAt
	s.UpdatedAt = m.now()
	m.sessions[s.ID] = s.clone()
	return nil
}

func (m *Memory) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return core.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *Memory) Purge(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Memory) Close() {}
