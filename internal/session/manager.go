// Package session tracks live tap-to-sync editing sessions. Each session
// owns one timeline engine; abandoned sessions are reaped after a period of
// inactivity so nothing half-finished is ever persisted.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rubato/internal/timeline"
)

// SyncSession represents one user's editing session
type SyncSession struct {
	ID           string           `json:"id"`
	SongID       string           `json:"songId,omitempty"` // empty for brand-new songs
	Username     string           `json:"username,omitempty"`
	Engine       *timeline.Engine `json:"-"`
	CreatedAt    time.Time        `json:"createdAt"`
	LastActivity time.Time        `json:"lastActivity"`
}

// Manager manages the set of live editing sessions
type Manager struct {
	sessions map[string]*SyncSession
	mutex    sync.RWMutex
	timeout  time.Duration
	logger   *logrus.Logger
	done     chan struct{}
}

// NewManager creates a session manager reaping sessions idle longer than
// timeout.
func NewManager(timeout time.Duration, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	m := &Manager{
		sessions: make(map[string]*SyncSession),
		timeout:  timeout,
		logger:   logger,
		done:     make(chan struct{}),
	}

	go m.cleanupLoop()

	return m
}

// Create registers a new editing session wrapping the given engine and
// returns it. songID is empty when the session will produce a new song.
func (m *Manager) Create(songID, username string, engine *timeline.Engine) *SyncSession {
	now := time.Now()
	session := &SyncSession{
		ID:           uuid.NewString(),
		SongID:       songID,
		Username:     username,
		Engine:       engine,
		CreatedAt:    now,
		LastActivity: now,
	}

	m.mutex.Lock()
	m.sessions[session.ID] = session
	m.mutex.Unlock()

	m.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"song_id":    songID,
		"username":   username,
	}).Info("Sync session created")
	return session
}

// Get retrieves a session by ID and marks it active.
func (m *Manager) Get(id string) (*SyncSession, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	session, exists := m.sessions[id]
	if !exists {
		return nil, false
	}
	session.LastActivity = time.Now()
	return session, true
}

// Delete discards a session. The engine and its capture state are dropped
// with it; only Commit persists anything.
func (m *Manager) Delete(id string) {
	m.mutex.Lock()
	delete(m.sessions, id)
	m.mutex.Unlock()
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// Close stops the cleanup goroutine.
func (m *Manager) Close() {
	close(m.done)
}

// cleanupLoop periodically reaps sessions idle past the timeout.
func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.reapExpired()
		case <-m.done:
			return
		}
	}
}

func (m *Manager) reapExpired() {
	cutoff := time.Now().Add(-m.timeout)

	m.mutex.Lock()
	defer m.mutex.Unlock()

	for id, session := range m.sessions {
		if session.LastActivity.Before(cutoff) {
			delete(m.sessions, id)
			m.logger.WithFields(logrus.Fields{
				"session_id": id,
				"state":      session.Engine.State(),
			}).Info("Expired sync session discarded")
		}
	}
}
