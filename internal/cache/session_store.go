package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"docassist/internal/model"
)

// MemorySessionStore keeps sessions in process memory. Entries idle for
// longer than ttl are dropped on access; ttl <= 0 keeps them until restart.
type MemorySessionStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]memoryEntry
}

type memoryEntry struct {
	session   model.Session
	touchedAt time.Time
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]memoryEntry),
	}
}

func (s *MemorySessionStore) GetSession(_ context.Context, sessionID string) (*model.Session, bool, error) {
	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if s.ttl > 0 && s.now().Sub(entry.touchedAt) > s.ttl {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
		return nil, false, nil
	}

	session := entry.session
	session.Turns = slices.Clone(entry.session.Turns)
	return &session, true, nil
}

func (s *MemorySessionStore) SetSession(_ context.Context, session *model.Session) error {
	stored := *session
	stored.Turns = slices.Clone(session.Turns)

	s.mu.Lock()
	s.sessions[session.ID] = memoryEntry{session: stored, touchedAt: s.now()}
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) Ping(context.Context) error {
	return nil
}
