// Package player models the external playback clock and the line-selection
// logic driven by it. The server does not decode audio; the browser's audio
// element owns real time and reports it here, so every consumer samples the
// clock instead of keeping time itself.
package player

import (
	"sync"
	"time"

	"rubato/pkg/models"
)

// State represents the reported position of the active audio element
type State struct {
	Song        *models.Song `json:"song,omitempty"`
	IsPlaying   bool         `json:"isPlaying"`
	CurrentTime float64      `json:"currentTime"` // in seconds
	Duration    float64      `json:"duration"`    // in seconds
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// StateManager manages the playback clock state and notifies listeners
type StateManager struct {
	state     *State
	mutex     sync.RWMutex
	listeners []chan *State
}

// NewStateManager creates a new playback state manager
func NewStateManager() *StateManager {
	return &StateManager{
		state:     &State{UpdatedAt: time.Now()},
		listeners: make([]chan *State, 0),
	}
}

// GetState returns the current playback state (thread-safe)
func (sm *StateManager) GetState() *State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	stateCopy := *sm.state
	return &stateCopy
}

// CurrentTime returns the last reported playback position in seconds. This is
// the sampling point the sync timeline engine reads on each tap.
func (sm *StateManager) CurrentTime() float64 {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	return sm.state.CurrentTime
}

// UpdateSong sets the song the clock is attached to
func (sm *StateManager) UpdateSong(song *models.Song) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.state.Song = song
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
}

// UpdatePlaybackState updates playback state (playing/paused)
func (sm *StateManager) UpdatePlaybackState(isPlaying bool) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.state.IsPlaying = isPlaying
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
}

// UpdateTime records a timeupdate tick from the audio element
func (sm *StateManager) UpdateTime(currentTime, duration float64) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.state.CurrentTime = currentTime
	sm.state.Duration = duration
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
}

// Seek moves the reported position without touching play/pause state
func (sm *StateManager) Seek(t float64) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if t < 0 {
		t = 0
	}
	if sm.state.Duration > 0 && t > sm.state.Duration {
		t = sm.state.Duration
	}
	sm.state.CurrentTime = t
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
}

// Reset clears the clock when playback stops or the song is unloaded
func (sm *StateManager) Reset() {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.state.Song = nil
	sm.state.IsPlaying = false
	sm.state.CurrentTime = 0
	sm.state.Duration = 0
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
}

// Subscribe adds a listener for state changes
func (sm *StateManager) Subscribe() <-chan *State {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	ch := make(chan *State, 10) // Buffered channel to prevent blocking
	sm.listeners = append(sm.listeners, ch)
	return ch
}

// Unsubscribe removes a listener (call this when done to prevent memory leaks)
func (sm *StateManager) Unsubscribe(ch <-chan *State) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	for i, listener := range sm.listeners {
		if listener == ch {
			close(listener)
			sm.listeners = append(sm.listeners[:i], sm.listeners[i+1:]...)
			break
		}
	}
}

// notifyListeners sends state updates to all subscribers (must be called with lock held)
func (sm *StateManager) notifyListeners() {
	stateCopy := *sm.state
	for i, listener := range sm.listeners {
		select {
		case listener <- &stateCopy:
			// Successfully sent
		default:
			// Channel is full or closed, remove it
			close(listener)
			sm.listeners = append(sm.listeners[:i], sm.listeners[i+1:]...)
		}
	}
}
