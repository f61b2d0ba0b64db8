package player

import (
	"testing"

	"rubato/pkg/models"
)

func TestStateManagerUpdateTime(t *testing.T) {
	sm := NewStateManager()

	sm.UpdateTime(12.34, 180)

	if got := sm.CurrentTime(); got != 12.34 {
		t.Errorf("CurrentTime() = %v, want 12.34", got)
	}
	state := sm.GetState()
	if state.Duration != 180 {
		t.Errorf("Duration = %v, want 180", state.Duration)
	}
}

func TestStateManagerSeekClamps(t *testing.T) {
	sm := NewStateManager()
	sm.UpdateTime(10, 60)

	sm.Seek(-5)
	if got := sm.CurrentTime(); got != 0 {
		t.Errorf("Seek(-5): CurrentTime() = %v, want 0", got)
	}

	sm.Seek(120)
	if got := sm.CurrentTime(); got != 60 {
		t.Errorf("Seek(120): CurrentTime() = %v, want 60 (duration)", got)
	}
}

func TestStateManagerReset(t *testing.T) {
	sm := NewStateManager()
	sm.UpdateSong(&models.Song{ID: "s1", Title: "Song"})
	sm.UpdatePlaybackState(true)
	sm.UpdateTime(30, 60)

	sm.Reset()

	state := sm.GetState()
	if state.Song != nil || state.IsPlaying || state.CurrentTime != 0 || state.Duration != 0 {
		t.Errorf("Reset left state %+v", state)
	}
}

func TestStateManagerSubscribe(t *testing.T) {
	sm := NewStateManager()
	ch := sm.Subscribe()
	defer sm.Unsubscribe(ch)

	sm.UpdateTime(1.5, 10)

	select {
	case state := <-ch:
		if state.CurrentTime != 1.5 {
			t.Errorf("notified CurrentTime = %v, want 1.5", state.CurrentTime)
		}
	default:
		t.Fatal("no notification received after UpdateTime")
	}
}

func TestStateManagerGetStateReturnsCopy(t *testing.T) {
	sm := NewStateManager()
	sm.UpdateTime(5, 10)

	state := sm.GetState()
	state.CurrentTime = 99

	if got := sm.CurrentTime(); got != 5 {
		t.Errorf("mutating the returned copy changed manager state: %v", got)
	}
}
