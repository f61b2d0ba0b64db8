package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"rubato/internal/database"
	"rubato/internal/lrc"
	"rubato/pkg/models"
)

// handleUploadLrc stores a raw LRC document for a song. The document is
// parsed on the way in; a document yielding zero synchronized lines is a
// validation failure, not a server error.
func (ls *LyricServer) handleUploadLrc(w http.ResponseWriter, r *http.Request, songID string) {
	if !ls.authService.IsAuthenticated(r) {
		ls.respondWithError(w, r, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req struct {
		Lrc    string `json:"lrc"`
		Source string `json:"source,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ls.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	var validationErrors []ValidationError
	if vErr := ls.validateLyricsText(req.Lrc); vErr != nil {
		validationErrors = append(validationErrors, *vErr)
	}
	if vErr := ls.validateLrcSource(req.Source); vErr != nil {
		validationErrors = append(validationErrors, *vErr)
	}
	if len(validationErrors) > 0 {
		ls.respondWithValidationError(w, r, validationErrors)
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

	hasLrc, err := ls.db.HasLrcFile(songID)
	if err != nil {
		ls.respondWithError(w, r, http.StatusInternalServerError, "Error checking existing lyrics", err)
		return
	}
	if hasLrc && !ls.authService.IsAdmin(r) {
		ls.respondWithError(w, r, http.StatusForbidden, "Replacing validated lyrics requires admin access", nil)
		return
	}

	synced := lrc.Parse(req.Lrc)
	if len(synced) == 0 {
		ls.respondWithValidationError(w, r, []ValidationError{{
			Field:   "lrc",
			Message: "no synchronized lines found",
			Code:    "NO_SYNCED_LINES",
		}})
		return
	}

	file := models.LrcFile{
		SongID:      song.ID,
		LrcRaw:      req.Lrc,
		SyncedLines: synced,
		Source:      req.Source,
	}

	if _, err := ls.db.UpsertLrcFile(file); err != nil {
		ls.respondWithError(w, r, http.StatusInternalServerError, "Error storing LRC file", err)
		return
	}

	if err := ls.db.UpdateSongLyricsText(song.ID, lrc.ExtractPlainText(req.Lrc)); err != nil {
		ls.logger.WithError(err).WithField("song_id", song.ID).Warn("Failed to update plain lyrics text")
	}
	if err := ls.db.UpdateSongStatus(song.ID, models.SongStatusPublished); err != nil {
		ls.logger.WithError(err).WithField("song_id", song.ID).Warn("Failed to update song status")
	}

	ls.invalidateLyrics(song.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	ls.respondJSON(w, map[string]interface{}{
		"success":   true,
		"songId":    song.ID,
		"lineCount": len(synced),
	})
}

// handleGetLrc returns the stored raw LRC document and its synchronized
// sequence. The parsed sequence is served from the lyrics cache when warm.
func (ls *LyricServer) handleGetLrc(w http.ResponseWriter, r *http.Request, songID string) {
	file, err := ls.db.GetLrcFileBySongID(songID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			ls.respondWithError(w, r, http.StatusNotFound, "No lyrics stored for this song", nil)
			return
		}
		ls.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving LRC file", err)
		return
	}

	synced, ok := ls.lyricsCache.Get(songID)
	if !ok {
		synced = file.SyncedLines
		ls.lyricsCache.Set(songID, synced)
	}

	w.Header().Set("Content-Type", "application/json")
	ls.respondJSON(w, map[string]interface{}{
		"songId": songID,
		"lrc":    file.LrcRaw,
		"source": file.Source,
		"lines":  synced,
	})
}

// handleGetPlainLyrics returns the display text of the stored LRC document,
// time-codes stripped.
func (ls *LyricServer) handleGetPlainLyrics(w http.ResponseWriter, r *http.Request, songID string) {
	if r.Method != http.MethodGet {
		ls.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	file, err := ls.db.GetLrcFileBySongID(songID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			ls.respondWithError(w, r, http.StatusNotFound, "No lyrics stored for this song", nil)
			return
		}
		ls.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving LRC file", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	ls.respondJSON(w, map[string]interface{}{
		"songId": songID,
		"lyrics": lrc.ExtractPlainText(file.LrcRaw),
	})
}
