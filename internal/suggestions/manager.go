package suggestions

import (
	"context"
	"sync"
	"time"

	"github.com/rs/xid"
)

const defaultSessionTTL = 2 * time.Hour

// Manager owns the live sessions of this process. Sessions idle for longer
// than the TTL are evicted on the next create or lookup, so the map stays
// bounded by recent activity; snapshots in the session store expire on
// their own TTL.
type Manager struct {
	deps Dependencies
	ttl  time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(deps Dependencies) *Manager {
	ttl := deps.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}

	return &Manager{
		deps:     deps,
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) CreateSession(ctx context.Context, userID, transcript string) *Session {
	session := newSession(xid.New().String(), userID, transcript, m.deps)

	m.mu.Lock()
	m.evictExpiredLocked(time.Now())
	m.sessions[session.ID()] = session
	m.mu.Unlock()

	session.mu.Lock()
	session.persist(ctx)
	session.mu.Unlock()

	return session
}

func (m *Manager) GetSession(sessionID string) (*Session, bool) {
	m.mu.Lock()
	m.evictExpiredLocked(time.Now())
	session, ok := m.sessions[sessionID]
	m.mu.Unlock()

	if ok {
		session.touch()
	}

	return session, ok
}

func (m *Manager) evictExpiredLocked(now time.Time) {
	for id, session := range m.sessions {
		if now.Sub(session.lastActiveTime()) > m.ttl {
			delete(m.sessions, id)
		}
	}
}
