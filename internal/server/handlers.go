package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"rubato/internal/database"
	"rubato/pkg/models"
)

// handleSongs lists songs (optionally filtered) or creates a new one.
func (ls *LyricServer) handleSongs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ls.handleGetSongs(w, r)
	case http.MethodPost:
		ls.handleCreateSong(w, r)
	default:
		ls.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

// handleGetSongs returns songs, optionally filtered by a search query.
func (ls *LyricServer) handleGetSongs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	searchQuery := sanitizeInput(r.URL.Query().Get("search"))
	if vErr := ls.validateSearchQuery(searchQuery); vErr != nil {
		ls.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}

	var songs []models.Song
	var err error

	if searchQuery != "" {
		songs, err = ls.db.SearchSongs(searchQuery)
	} else {
		songs, err = ls.db.GetAllSongs()
	}

	if err != nil {
		ls.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving songs", err)
		return
	}

	ls.respondJSON(w, songs)
}

// handleCreateSong registers a song. When an audio path is given the metadata
// extractor fills in whatever the request left blank, duration included.
func (ls *LyricServer) handleCreateSong(w http.ResponseWriter, r *http.Request) {
	if !ls.authService.IsAuthenticated(r) {
		ls.respondWithError(w, r, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req struct {
		Title     string `json:"title"`
		Artist    string `json:"artist"`
		Album     string `json:"album,omitempty"`
		AudioPath string `json:"audioPath,omitempty"`
		Lyrics    string `json:"lyrics,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ls.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	song := models.Song{
		Title:      sanitizeInput(req.Title),
		ArtistName: sanitizeInput(req.Artist),
		Album:      sanitizeInput(req.Album),
		AudioPath:  req.AudioPath,
		LyricsText: req.Lyrics,
	}

	if song.AudioPath != "" && ls.extractor.IsAudioFile(song.AudioPath) {
		extracted, err := ls.extractor.ExtractFromFile(song.AudioPath)
		if err == nil {
			if song.Title == "" {
				song.Title = extracted.Title
			}
			if song.ArtistName == "" {
				song.ArtistName = extracted.ArtistName
			}
			if song.Album == "" {
				song.Album = extracted.Album
			}
			song.Duration = extracted.Duration
		} else {
			ls.logger.WithError(err).WithField("audio_path", song.AudioPath).Warn("Metadata extraction failed")
		}
	}

	if vErr := ls.validateSongTitle(song.Title); vErr != nil {
		ls.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}
	if song.ArtistName == "" {
		song.ArtistName = "Unknown Artist"
	}

	exists, err := ls.db.SongExists(song.Title, song.ArtistName)
	if err != nil {
		ls.respondWithError(w, r, http.StatusInternalServerError, "Error checking for duplicate song", err)
		return
	}
	if exists {
		ls.respondWithError(w, r, http.StatusConflict, "Song already exists", nil)
		return
	}

	id, err := ls.db.InsertSong(song)
	if err != nil {
		ls.respondWithError(w, r, http.StatusInternalServerError, "Error creating song", err)
		return
	}

	created, err := ls.db.GetSongByID(id)
	if err != nil {
		ls.respondWithError(w, r, http.StatusInternalServerError, "Error reading created song", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	ls.respondJSON(w, created)
}

// handleGetSongCount responds with a JSON count of all songs.
func (ls *LyricServer) handleGetSongCount(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	count, err := ls.db.CountSongs()
	if err != nil {
		ls.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving song count", err)
		return
	}

	ls.respondJSON(w, map[string]int{"count": count})
}

// handleSongSubresource routes /api/songs/{id} and its lrc/lyrics children.
func (ls *LyricServer) handleSongSubresource(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(r.URL.Path, "/")
	// /api/songs/{id} -> ["", "api", "songs", "{id}", ...]

	songID, vErr := ls.validateSongID(pathParts, 4)
	if vErr != nil {
		ls.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}

	if len(pathParts) >= 5 && pathParts[4] != "" {
		switch pathParts[4] {
		case "lrc":
			switch r.Method {
			case http.MethodGet:
				ls.handleGetLrc(w, r, songID)
			case http.MethodPost:
				ls.handleUploadLrc(w, r, songID)
			default:
				ls.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
			}
		case "lyrics":
			ls.handleGetPlainLyrics(w, r, songID)
		default:
			http.NotFound(w, r)
		}
		return
	}

	if r.Method != http.MethodGet {
		ls.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	song, err := ls.db.GetSongByID(songID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			ls.respondWithError(w, r, http.StatusNotFound, "Song not found", nil)
			return
		}
		ls.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving song", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	ls.respondJSON(w, song)
}

// handleGetStats returns library statistics for admin dashboards.
func (ls *LyricServer) handleGetStats(w http.ResponseWriter, r *http.Request) {
	if !ls.authService.IsAdmin(r) {
		ls.respondWithError(w, r, http.StatusForbidden, "Admin access required", nil)
		return
	}

	songCount, err := ls.db.CountSongs()
	if err != nil {
		ls.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving stats", err)
		return
	}

	lrcCount, err := ls.db.CountLrcFiles()
	if err != nil {
		ls.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving stats", err)
		return
	}

	artists, err := ls.db.DistinctArtists()
	if err != nil {
		ls.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving stats", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	ls.respondJSON(w, map[string]interface{}{
		"songCount":    songCount,
		"lrcCount":     lrcCount,
		"artistCount":  len(artists),
		"artists":      artists,
		"syncSessions": ls.syncSessions.Count(),
	})
}

// HealthStatus represents operational status for the /health endpoint.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Database  string                 `json:"database"`
	Songs     int                    `json:"songCount"`
	Sessions  int                    `json:"syncSessions"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// handleHealthCheck returns basic liveness + dependency checks.
func (ls *LyricServer) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Database:  "ok",
		Sessions:  ls.syncSessions.Count(),
		Details:   make(map[string]interface{}),
	}

	count, err := ls.db.CountSongs()
	if err != nil {
		health.Status = "unhealthy"
		health.Database = "error"
		health.Details["database_error"] = err.Error()
	} else {
		health.Songs = count
	}

	if health.Status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	ls.respondJSON(w, health)
}
