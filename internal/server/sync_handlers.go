package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"rubato/internal/database"
	"rubato/internal/lrc"
	"rubato/internal/session"
	"rubato/internal/timeline"
	"rubato/pkg/models"
)

// handleSyncStart opens a tap-to-sync editing session. Starting a session
// against a song that already has validated lyrics requires admin access;
// everything else requires an authenticated user.
func (ls *LyricServer) handleSyncStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ls.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	if !ls.authService.IsAuthenticated(r) {
		ls.respondWithError(w, r, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req struct {
		SongID string `json:"songId,omitempty"`
		Lyrics string `json:"lyrics"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ls.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	if vErr := ls.validateLyricsText(req.Lyrics); vErr != nil {
		ls.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}

	if req.SongID != "" {
		if _, err := ls.db.GetSongByID(req.SongID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				ls.respondWithError(w, r, http.StatusNotFound, "Song not found", nil)
				return
			}
			ls.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving song", err)
			return
		}

		hasLrc, err := ls.db.HasLrcFile(req.SongID)
		if err != nil {
			ls.respondWithError(w, r, http.StatusInternalServerError, "Error checking existing lyrics", err)
			return
		}
		if hasLrc && !ls.authService.IsAdmin(r) {
			ls.respondWithError(w, r, http.StatusForbidden, "Re-syncing validated lyrics requires admin access", nil)
			return
		}
	}

	engine := timeline.NewEngine(ls.playerState, ls.logger)
	if err := engine.SetLyrics(req.Lyrics); err != nil {
		ls.respondWithValidationError(w, r, []ValidationError{{
			Field:   "lyrics",
			Message: "No usable lyric lines found",
			Code:    "NO_LYRIC_LINES",
		}})
		return
	}

	syncSession := ls.syncSessions.Create(req.SongID, ls.authService.CurrentUsername(r), engine)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	ls.respondJSON(w, map[string]interface{}{
		"sessionId": syncSession.ID,
		"snapshot":  engine.Snapshot(),
	})
}

// handleSyncSession routes /api/sync/{id} and its action children.
func (ls *LyricServer) handleSyncSession(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(r.URL.Path, "/")
	// /api/sync/{id} -> ["", "api", "sync", "{id}", ...]

	sessionID, vErr := ls.validateSessionID(pathParts, 4)
	if vErr != nil {
		ls.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}

	syncSession, exists := ls.syncSessions.Get(sessionID)
	if !exists {
		ls.respondWithError(w, r, http.StatusNotFound, "Sync session not found", nil)
		return
	}

	if !ls.ownsSession(r, syncSession) {
		ls.respondWithError(w, r, http.StatusForbidden, "Sync session belongs to another user", nil)
		return
	}

	if len(pathParts) >= 5 && pathParts[4] != "" {
		if r.Method != http.MethodPost {
			ls.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
			return
		}
		ls.handleSyncAction(w, r, syncSession, pathParts[4])
		return
	}

	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		ls.respondJSON(w, map[string]interface{}{
			"sessionId": syncSession.ID,
			"songId":    syncSession.SongID,
			"snapshot":  syncSession.Engine.Snapshot(),
		})
	case http.MethodDelete:
		ls.syncSessions.Delete(syncSession.ID)
		ls.logger.WithField("session_id", syncSession.ID).Info("Sync session abandoned")
		w.Header().Set("Content-Type", "application/json")
		ls.respondJSON(w, map[string]bool{"success": true})
	default:
		ls.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

// handleSyncAction applies one engine operation and returns the new snapshot.
func (ls *LyricServer) handleSyncAction(w http.ResponseWriter, r *http.Request, syncSession *session.SyncSession, action string) {
	engine := syncSession.Engine

	var err error
	switch action {
	case "tap":
		_, err = engine.Tap()
	case "undo":
		err = engine.Undo()
	case "resume":
		err = engine.Resume()
	case "start":
		err = engine.Start()
	case "resync":
		var req struct {
			Line int `json:"line"`
		}
		if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
			ls.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", decodeErr)
			return
		}
		err = engine.ResyncLine(req.Line)
	case "clear":
		var req struct {
			Line int `json:"line"`
		}
		if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
			ls.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", decodeErr)
			return
		}
		err = engine.ClearLine(req.Line)
	case "adjust":
		var req struct {
			Line  int     `json:"line"`
			Delta float64 `json:"delta"`
		}
		if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
			ls.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", decodeErr)
			return
		}
		if req.Delta == 0 {
			req.Delta = ls.config.Sync.AdjustStep
		}
		err = engine.AdjustLine(req.Line, req.Delta)
	case "lyrics":
		var req struct {
			Lyrics string `json:"lyrics"`
		}
		if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
			ls.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", decodeErr)
			return
		}
		if vErr := ls.validateLyricsText(req.Lyrics); vErr != nil {
			ls.respondWithValidationError(w, r, []ValidationError{*vErr})
			return
		}
		err = engine.SetLyrics(req.Lyrics)
	case "commit":
		ls.handleSyncCommit(w, r, syncSession)
		return
	default:
		http.NotFound(w, r)
		return
	}

	if err != nil {
		ls.respondWithError(w, r, ls.timelineErrorStatus(err), err.Error(), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	ls.respondJSON(w, map[string]interface{}{
		"sessionId": syncSession.ID,
		"snapshot":  engine.Snapshot(),
	})
}

// handleSyncCommit finalizes a fully-synced session: generates the LRC
// document, persists the song and its lyrics, and discards the session.
func (ls *LyricServer) handleSyncCommit(w http.ResponseWriter, r *http.Request, syncSession *session.SyncSession) {
	var req struct {
		Title  string `json:"title,omitempty"`
		Artist string `json:"artist,omitempty"`
		Source string `json:"source,omitempty"`
	}

	if r.Body != nil {
		// Commit works with an empty body; metadata is optional.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if vErr := ls.validateLrcSource(req.Source); vErr != nil {
		ls.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}
	if req.Source == "" {
		req.Source = models.LrcSourceManual
	}

	var meta *lrc.Metadata
	if req.Title != "" || req.Artist != "" {
		meta = &lrc.Metadata{
			Title:  sanitizeInput(req.Title),
			Artist: sanitizeInput(req.Artist),
		}
	}

	lrcText, synced, err := syncSession.Engine.Commit(meta)
	if err != nil {
		ls.respondWithError(w, r, ls.timelineErrorStatus(err), err.Error(), nil)
		return
	}

	songID := syncSession.SongID
	if songID == "" {
		title := sanitizeInput(req.Title)
		if title == "" {
			title = "Untitled"
		}
		artist := sanitizeInput(req.Artist)
		if artist == "" {
			artist = "Unknown Artist"
		}

		songID, err = ls.db.InsertSong(models.Song{
			Title:      title,
			ArtistName: artist,
		})
		if err != nil {
			ls.respondWithError(w, r, http.StatusInternalServerError, "Error creating song", err)
			return
		}
	}

	file := models.LrcFile{
		SongID:      songID,
		LrcRaw:      lrcText,
		SyncedLines: synced,
		Source:      req.Source,
	}

	if _, err := ls.db.UpsertLrcFile(file); err != nil {
		ls.respondWithError(w, r, http.StatusInternalServerError, "Error storing LRC file", err)
		return
	}

	if err := ls.db.UpdateSongLyricsText(songID, lrc.ExtractPlainText(lrcText)); err != nil {
		ls.logger.WithError(err).WithField("song_id", songID).Warn("Failed to update plain lyrics text")
	}
	if err := ls.db.UpdateSongStatus(songID, models.SongStatusPublished); err != nil {
		ls.logger.WithError(err).WithField("song_id", songID).Warn("Failed to update song status")
	}

	ls.invalidateLyrics(songID)
	ls.syncSessions.Delete(syncSession.ID)

	ls.logger.WithFields(logrus.Fields{
		"session_id": syncSession.ID,
		"song_id":    songID,
		"line_count": len(synced),
	}).Info("Sync session committed")

	w.Header().Set("Content-Type", "application/json")
	ls.respondJSON(w, map[string]interface{}{
		"success": true,
		"songId":  songID,
		"lrc":     lrcText,
		"lines":   synced,
	})
}

// ownsSession checks that the requesting user opened the session. Admins may
// touch any session; with auth disabled everyone owns everything.
func (ls *LyricServer) ownsSession(r *http.Request, syncSession *session.SyncSession) bool {
	if syncSession.Username == "" || ls.authService.IsAdmin(r) {
		return true
	}
	return ls.authService.CurrentUsername(r) == syncSession.Username
}

// timelineErrorStatus maps engine errors onto HTTP status codes: state
// conflicts are 409, bad line references and missing lyrics are 400.
func (ls *LyricServer) timelineErrorStatus(err error) int {
	switch {
	case errors.Is(err, timeline.ErrInvalidState),
		errors.Is(err, timeline.ErrIncomplete),
		errors.Is(err, timeline.ErrCommitted):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
