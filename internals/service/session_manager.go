package service

import (
	"sync"
	"time"

	"github.com/SnizhanaK/Currency-Converter/internals/core/domain"
	"github.com/SnizhanaK/Currency-Converter/internals/observability"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionManager keeps the open sessions of this process.
type SessionManager interface {
	Create(prefs domain.Preferences) *Session
	Get(id string) (*Session, error)
	Delete(id string) error
}

type sessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	fetcher  RateFetcher
	now      func() time.Time
}

func NewSessionManager(fetcher RateFetcher, now func() time.Time) SessionManager {
	if now == nil {
		now = time.Now
	}
	return &sessionManager{
		sessions: make(map[string]*Session),
		fetcher:  fetcher,
		now:      now,
	}
}

func (m *sessionManager) Create(prefs domain.Preferences) *Session {
	id := uuid.NewString()
	s := NewSession(id, m.fetcher, m.now, prefs)
	s.Subscribe(func(snap Snapshot) {
		zap.L().Debug("session updated",
			zap.String("session", snap.ID),
			zap.Int("rows", len(snap.Rows)),
			zap.Int("summary", len(snap.Summary)),
			zap.String("total", snap.FormattedTotal),
		)
	})

	m.mu.Lock()
	m.sessions[id] = s
	n := len(m.sessions)
	m.mu.Unlock()

	observability.SetActiveSessions(n)
	zap.L().Info("session created", zap.String("session", id))
	return s
}

func (m *sessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *sessionManager) Delete(id string) error {
	m.mu.Lock()
	if _, ok := m.sessions[id]; !ok {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	observability.SetActiveSessions(n)
	zap.L().Info("session deleted", zap.String("session", id))
	return nil
}
