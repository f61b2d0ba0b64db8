package player

import "rubato/pkg/models"

// CurrentLineIndex returns the index of the line active at time t: the unique
// i with lines[i].Time <= t < lines[i+1].Time, the last line's upper bound
// being infinity. Returns -1 when t is before the first line or the sequence
// is empty. Lines must be sorted ascending by time, which Parse guarantees.
func CurrentLineIndex(lines []models.SyncedLine, t float64) int {
	current := -1
	for i, line := range lines {
		if t < line.Time {
			break
		}
		current = i
	}
	return current
}

// Cursor tracks the current line across successive clock ticks. Playback
// normally advances monotonically, so the cursor rechecks its cached index
// and steps forward or backward from there instead of rescanning, making the
// per-tick cost amortized O(1). A Cursor is not safe for concurrent use; each
// playback view owns one.
type Cursor struct {
	lines []models.SyncedLine
	last  int
}

// NewCursor creates a cursor over a sorted synced-line sequence.
func NewCursor(lines []models.SyncedLine) *Cursor {
	return &Cursor{lines: lines, last: -1}
}

// IndexAt returns the current line index for time t, updating the cached
// position. moved reports whether the index changed since the previous call,
// which is the scroll-into-view trigger.
func (c *Cursor) IndexAt(t float64) (index int, moved bool) {
	index = c.last

	// Step backward while the cached line starts after t (seek back).
	for index >= 0 && t < c.lines[index].Time {
		index--
	}
	// Step forward while the next line has started.
	for index+1 < len(c.lines) && t >= c.lines[index+1].Time {
		index++
	}

	moved = index != c.last
	c.last = index
	return index, moved
}

// Index returns the cached current line index without advancing the cursor.
func (c *Cursor) Index() int {
	return c.last
}

// Reset clears the cached position, forcing the next IndexAt to rescan.
func (c *Cursor) Reset() {
	c.last = -1
}
