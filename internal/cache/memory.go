// Package cache provides an in-memory TTL cache for parsed lyric
// sequences, so repeated playback-sync requests for the same song do not
// re-parse the stored LRC text on every hit.
package cache

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"rubato/pkg/models"
)

type entry struct {
	lines     []models.SyncedLine
	expiresAt time.Time
}

// LyricsCache caches synchronized lyric sequences by song ID.
type LyricsCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	logger  *logrus.Logger
	done    chan struct{}
}

// NewLyricsCache creates a cache whose entries expire after ttl. A
// background sweeper evicts stale entries once a minute.
func NewLyricsCache(ttl time.Duration, logger *logrus.Logger) *LyricsCache {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	c := &LyricsCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Get returns the cached lines for a song, or false when absent or expired.
func (c *LyricsCache) Get(songID string) ([]models.SyncedLine, bool) {
	c.mu.RLock()
	e, ok := c.entries[songID]
	c.mu.RUnlock()

	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}

	lines := make([]models.SyncedLine, len(e.lines))
	copy(lines, e.lines)
	return lines, true
}

// Set stores the lines for a song, replacing any previous entry.
func (c *LyricsCache) Set(songID string, lines []models.SyncedLine) {
	stored := make([]models.SyncedLine, len(lines))
	copy(stored, lines)

	c.mu.Lock()
	c.entries[songID] = entry{lines: stored, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Invalidate removes a song's entry. Call whenever its LRC file changes.
func (c *LyricsCache) Invalidate(songID string) {
	c.mu.Lock()
	delete(c.entries, songID)
	c.mu.Unlock()
}

// Len reports the number of cached entries, expired ones included.
func (c *LyricsCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the background sweeper.
func (c *LyricsCache) Close() {
	close(c.done)
}

func (c *LyricsCache) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.done:
			return
		}
	}
}

func (c *LyricsCache) sweep() {
	now := time.Now()
	removed := 0

	c.mu.Lock()
	for id, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, id)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.logger.WithField("removed", removed).Debug("Evicted expired lyrics cache entries")
	}
}
