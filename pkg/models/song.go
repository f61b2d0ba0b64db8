package models

import "time"

// Song statuses follow the editorial lifecycle: a song is created as a draft,
// published once it has validated lyrics, and archived when retired.
const (
	SongStatusDraft     = "draft"
	SongStatusPublished = "published"
	SongStatusArchived  = "archived"
)

// LRC file sources describe how the synchronization was produced.
const (
	LrcSourceManual = "manual"
	LrcSourceAI     = "ai"
	LrcSourceHybrid = "hybrid"
)

// Song represents a song in the catalog
type Song struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	ArtistName string    `json:"artistName"`
	Album      string    `json:"album,omitempty"`
	LyricsText string    `json:"lyricsText,omitempty"` // plain, untimed lyrics
	AudioPath  string    `json:"-"`                    // don't expose file path to client
	Duration   int       `json:"duration"`             // in seconds
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

// LrcFile represents a stored synchronization for one song: the raw LRC
// document plus its parsed line sequence.
type LrcFile struct {
	ID          string       `json:"id"`
	SongID      string       `json:"songId"`
	LrcRaw      string       `json:"lrcRaw"`
	SyncedLines []SyncedLine `json:"syncedLyrics"`
	Source      string       `json:"source"` // manual, ai or hybrid
	CreatedAt   time.Time    `json:"createdAt"`
}

// SyncedLine is one lyric line anchored to a moment in the audio track,
// expressed in seconds from the start.
type SyncedLine struct {
	Time float64 `json:"time"`
	Text string  `json:"text"`
}
