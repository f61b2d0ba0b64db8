package session

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"rubato/internal/timeline"
)

type fixedClock struct{}

func (fixedClock) CurrentTime() float64 { return 0 }

func newTestManager(t *testing.T, timeout time.Duration) *Manager {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests

	m := NewManager(timeout, logger)
	t.Cleanup(m.Close)
	return m
}

func TestCreateAndGet(t *testing.T) {
	m := newTestManager(t, time.Hour)

	engine := timeline.NewEngine(fixedClock{}, nil)
	created := m.Create("song-1", "alice", engine)
	if created.ID == "" {
		t.Fatal("session has empty ID")
	}

	got, ok := m.Get(created.ID)
	if !ok {
		t.Fatal("Get returned false for live session")
	}
	if got.SongID != "song-1" || got.Username != "alice" || got.Engine != engine {
		t.Errorf("session = %+v", got)
	}
}

func TestGetUnknown(t *testing.T) {
	m := newTestManager(t, time.Hour)

	if _, ok := m.Get("nope"); ok {
		t.Error("Get(unknown) returned true")
	}
}

func TestDelete(t *testing.T) {
	m := newTestManager(t, time.Hour)

	created := m.Create("", "", timeline.NewEngine(fixedClock{}, nil))
	m.Delete(created.ID)

	if _, ok := m.Get(created.ID); ok {
		t.Error("deleted session still retrievable")
	}
	if m.Count() != 0 {
		t.Errorf("Count = %d, want 0", m.Count())
	}
}

func TestReapExpired(t *testing.T) {
	m := newTestManager(t, time.Hour)

	stale := m.Create("", "", timeline.NewEngine(fixedClock{}, nil))
	fresh := m.Create("", "", timeline.NewEngine(fixedClock{}, nil))

	m.mutex.Lock()
	m.sessions[stale.ID].LastActivity = time.Now().Add(-2 * time.Hour)
	m.mutex.Unlock()

	m.reapExpired()

	if _, ok := m.Get(stale.ID); ok {
		t.Error("stale session survived reaping")
	}
	if _, ok := m.Get(fresh.ID); !ok {
		t.Error("fresh session was reaped")
	}
}

func TestGetRefreshesActivity(t *testing.T) {
	m := newTestManager(t, time.Hour)

	created := m.Create("", "", timeline.NewEngine(fixedClock{}, nil))

	m.mutex.Lock()
	m.sessions[created.ID].LastActivity = time.Now().Add(-2 * time.Hour)
	m.mutex.Unlock()

	// Access renews the session before the reaper sees it.
	if _, ok := m.Get(created.ID); !ok {
		t.Fatal("Get returned false")
	}
	m.reapExpired()
	if _, ok := m.Get(created.ID); !ok {
		t.Error("recently accessed session was reaped")
	}
}
