// Package timeline implements the tap-to-sync capture engine: a state machine
// that assigns playback timestamps to lyric lines as the user taps along with
// the audio.
package timeline

import (
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"rubato/internal/lrc"
	"rubato/pkg/models"
)

// Clock is the playback time source sampled on each tap. The engine never
// owns time itself; the audio element does.
type Clock interface {
	CurrentTime() float64
}

// State identifies where an editing session is in its lifecycle.
type State string

const (
	StateIdle          State = "idle"
	StateLyricsEntered State = "lyrics-entered"
	StateSyncing       State = "syncing"
	StateFullySynced   State = "fully-synced"
	StateCommitted     State = "committed"
)

var (
	// ErrNoLyrics is returned when starting without lyric lines.
	ErrNoLyrics = errors.New("no lyrics entered")
	// ErrInvalidState is returned for an operation the current state forbids.
	ErrInvalidState = errors.New("operation not valid in current state")
	// ErrLineOutOfRange is returned for an index outside the lyric list.
	ErrLineOutOfRange = errors.New("line index out of range")
	// ErrLineNotSynced is returned when retiming a line that has no timestamp yet.
	ErrLineNotSynced = errors.New("line is not synced yet")
	// ErrNothingToUndo is returned when the history stack is empty.
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrIncomplete is returned by Commit while any line is still unsynced.
	ErrIncomplete = errors.New("not every line is synced")
	// ErrCommitted is returned for any mutation after Commit; the engine is
	// terminal and a new one must be created for further edits.
	ErrCommitted = errors.New("timeline already committed")
)

// Snapshot is a point-in-time copy of the engine state handed to callers and
// subscribers. Timecodes carries the display form of each timestamp.
type Snapshot struct {
	State       State     `json:"state"`
	Lines       []string  `json:"lines"`
	Timestamps  []float64 `json:"timestamps"`
	Timecodes   []string  `json:"timecodes"`
	ActiveIndex int       `json:"activeIndex"`
	SyncedCount int       `json:"syncedCount"`
	CanUndo     bool      `json:"canUndo"`
}

// Engine is the capture state machine for one editing session. All methods
// are safe for concurrent use; a tap samples the clock and writes the vector
// under one lock acquisition, so a clock tick can never split the operation.
//
// A line counts as synced once its timestamp is greater than zero. The active
// line during capture is always the lowest-index unsynced line: forward
// capture proceeds strictly in list order, while ResyncLine, ClearLine and
// AdjustLine allow post-hoc correction of individual lines.
type Engine struct {
	mu         sync.RWMutex
	state      State
	lines      []string
	timestamps []float64
	history    [][]float64
	clock      Clock
	logger     *logrus.Logger
	listeners  []chan Snapshot
}

// NewEngine creates an idle engine sampling the given clock.
func NewEngine(clock Clock, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		state:  StateIdle,
		clock:  clock,
		logger: logger,
	}
}

// SetLyrics replaces the lyric lines from raw text, one line per verse.
// Blank lines are dropped. Valid from any state except committed; it resets
// all timestamps and history, returning the engine to lyrics-entered.
func (e *Engine) SetLyrics(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateCommitted {
		return ErrCommitted
	}

	lines := splitLyrics(text)
	if len(lines) == 0 {
		return ErrNoLyrics
	}

	e.lines = lines
	e.timestamps = make([]float64, len(lines))
	e.history = nil
	e.state = StateLyricsEntered

	e.logger.WithField("line_count", len(lines)).Debug("Lyrics entered")
	e.notifyListeners()
	return nil
}

// Start begins forward capture: all timestamps zeroed, history cleared.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateCommitted:
		return ErrCommitted
	case StateIdle:
		return ErrNoLyrics
	}

	e.timestamps = make([]float64, len(e.lines))
	e.history = nil
	e.state = StateSyncing

	e.logger.WithField("line_count", len(e.lines)).Info("Synchronization started")
	e.notifyListeners()
	return nil
}

// Resume returns a fully-synced engine to syncing so the caller can keep
// adjusting, without disturbing existing timestamps.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateFullySynced {
		return ErrInvalidState
	}
	e.state = StateSyncing
	e.notifyListeners()
	return nil
}

// Tap records the clock's current position on the active line and returns its
// index. When the last unsynced line is filled the engine moves to
// fully-synced automatically.
func (e *Engine) Tap() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkSyncing(); err != nil {
		return 0, err
	}
	index := e.activeIndexLocked()
	if index < 0 {
		return 0, ErrInvalidState
	}

	e.pushHistory()
	e.timestamps[index] = e.clock.CurrentTime()
	e.recomputeState()

	e.logger.WithFields(logrus.Fields{
		"line":      index,
		"timestamp": e.timestamps[index],
	}).Debug("Line tapped")
	e.notifyListeners()
	return index, nil
}

// Undo restores the timestamp vector exactly as it was before the most
// recent tap, retime, clear or adjustment.
func (e *Engine) Undo() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkSyncing(); err != nil {
		return err
	}
	if len(e.history) == 0 {
		return ErrNothingToUndo
	}

	e.timestamps = e.history[len(e.history)-1]
	e.history = e.history[:len(e.history)-1]
	e.recomputeState()
	e.notifyListeners()
	return nil
}

// ResyncLine retimes one already-synced line to the clock's current position.
// This is the only way a line may be retimed outside forward capture order.
func (e *Engine) ResyncLine(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkSyncing(); err != nil {
		return err
	}
	if index < 0 || index >= len(e.timestamps) {
		return ErrLineOutOfRange
	}
	if e.timestamps[index] <= 0 {
		return ErrLineNotSynced
	}

	e.pushHistory()
	e.timestamps[index] = e.clock.CurrentTime()
	e.recomputeState()

	e.logger.WithFields(logrus.Fields{
		"line":      index,
		"timestamp": e.timestamps[index],
	}).Debug("Line retimed")
	e.notifyListeners()
	return nil
}

// ClearLine unsets one line's timestamp. If the line sits before the current
// active index this reopens forward capture there.
func (e *Engine) ClearLine(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkSyncing(); err != nil {
		return err
	}
	if index < 0 || index >= len(e.timestamps) {
		return ErrLineOutOfRange
	}

	e.pushHistory()
	e.timestamps[index] = 0
	e.recomputeState()
	e.notifyListeners()
	return nil
}

// AdjustLine nudges a synced line's timestamp by delta seconds, clamped at
// zero. Meant for small corrections such as ±0.1s.
func (e *Engine) AdjustLine(index int, delta float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkSyncing(); err != nil {
		return err
	}
	if index < 0 || index >= len(e.timestamps) {
		return ErrLineOutOfRange
	}
	if e.timestamps[index] <= 0 {
		return ErrLineNotSynced
	}

	e.pushHistory()
	next := e.timestamps[index] + delta
	if next < 0 {
		next = 0
	}
	e.timestamps[index] = next
	e.recomputeState()
	e.notifyListeners()
	return nil
}

// Commit finalizes the timeline: it zips lines against timestamps in list
// order, generates the LRC document and returns it together with the synced
// sequence for persistence. Commit refuses while any line is unsynced. The
// engine is terminal afterwards.
func (e *Engine) Commit(meta *lrc.Metadata) (string, []models.SyncedLine, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateCommitted:
		return "", nil, ErrCommitted
	case StateFullySynced:
	default:
		if !e.fullySyncedLocked() {
			return "", nil, ErrIncomplete
		}
	}

	synced := make([]models.SyncedLine, len(e.lines))
	for i, line := range e.lines {
		synced[i] = models.SyncedLine{Time: e.timestamps[i], Text: line}
	}
	raw := lrc.Generate(synced, meta)

	e.state = StateCommitted
	e.history = nil

	e.logger.WithField("line_count", len(synced)).Info("Timeline committed")
	e.notifyListeners()
	return raw, synced, nil
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// ActiveIndex returns the lowest-index unsynced line, or -1 when every line
// is synced or capture has not produced a line list yet.
func (e *Engine) ActiveIndex() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.activeIndexLocked()
}

// IsFullySynced reports whether every line has a timestamp greater than zero.
func (e *Engine) IsFullySynced() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.fullySyncedLocked()
}

// Snapshot returns a copy of the full engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotLocked()
}

// Subscribe adds a listener receiving a snapshot after every state change.
func (e *Engine) Subscribe() <-chan Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := make(chan Snapshot, 10)
	e.listeners = append(e.listeners, ch)
	return ch
}

// Unsubscribe removes a listener registered with Subscribe.
func (e *Engine) Unsubscribe(ch <-chan Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, listener := range e.listeners {
		if listener == ch {
			close(listener)
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			break
		}
	}
}

// checkSyncing gates the mutating capture operations. They are valid while
// syncing and while fully-synced: clearing or adjusting during review must
// work, and the state recompute moves the engine back to syncing when a line
// reopens.
func (e *Engine) checkSyncing() error {
	switch e.state {
	case StateSyncing, StateFullySynced:
		return nil
	case StateCommitted:
		return ErrCommitted
	default:
		return ErrInvalidState
	}
}

func (e *Engine) activeIndexLocked() int {
	for i, ts := range e.timestamps {
		if ts <= 0 {
			return i
		}
	}
	return -1
}

func (e *Engine) fullySyncedLocked() bool {
	if len(e.timestamps) == 0 {
		return false
	}
	return e.activeIndexLocked() == -1
}

func (e *Engine) recomputeState() {
	if e.fullySyncedLocked() {
		e.state = StateFullySynced
	} else {
		e.state = StateSyncing
	}
}

func (e *Engine) pushHistory() {
	snapshot := make([]float64, len(e.timestamps))
	copy(snapshot, e.timestamps)
	e.history = append(e.history, snapshot)
}

func (e *Engine) snapshotLocked() Snapshot {
	lines := make([]string, len(e.lines))
	copy(lines, e.lines)
	timestamps := make([]float64, len(e.timestamps))
	copy(timestamps, e.timestamps)
	timecodes := make([]string, len(e.timestamps))
	for i, ts := range e.timestamps {
		timecodes[i] = lrc.EncodeTimestamp(ts)
	}

	return Snapshot{
		State:       e.state,
		Lines:       lines,
		Timestamps:  timestamps,
		Timecodes:   timecodes,
		ActiveIndex: e.activeIndexLocked(),
		SyncedCount: len(timestamps) - countUnsynced(timestamps),
		CanUndo:     len(e.history) > 0,
	}
}

// notifyListeners sends a snapshot to all subscribers (must be called with lock held)
func (e *Engine) notifyListeners() {
	snapshot := e.snapshotLocked()
	for i, listener := range e.listeners {
		select {
		case listener <- snapshot:
		default:
			close(listener)
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
		}
	}
}

func countUnsynced(timestamps []float64) int {
	n := 0
	for _, ts := range timestamps {
		if ts <= 0 {
			n++
		}
	}
	return n
}

// splitLyrics turns raw textarea input into the immutable line list: one line
// per verse, blanks dropped, surrounding whitespace trimmed.
func splitLyrics(text string) []string {
	var lines []string
	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
