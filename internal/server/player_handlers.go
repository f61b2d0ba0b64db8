package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"rubato/internal/database"
	"rubato/internal/player"
)

// handleGetPlayerState returns the current playback state. When the loaded
// song has stored lyrics the response also carries the current line index so
// clients can highlight without re-parsing.
func (ls *LyricServer) handleGetPlayerState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	state := ls.playerState.GetState()

	response := map[string]interface{}{
		"state":     state,
		"lineIndex": -1,
	}

	if state.Song != nil {
		if index, ok := ls.currentLineIndex(state.Song.ID, state.CurrentTime); ok {
			response["lineIndex"] = index
		}
	}

	ls.respondJSON(w, response)
}

// currentLineIndex resolves the active lyric line for a playback position,
// keeping a cursor across requests so steady forward playback never rescans
// the whole sequence.
func (ls *LyricServer) currentLineIndex(songID string, t float64) (int, bool) {
	ls.cursorMu.Lock()
	defer ls.cursorMu.Unlock()

	if ls.cursor == nil || ls.cursorSongID != songID {
		lines, ok := ls.lyricsCache.Get(songID)
		if !ok {
			file, err := ls.db.GetLrcFileBySongID(songID)
			if err != nil {
				return -1, false
			}
			lines = file.SyncedLines
			ls.lyricsCache.Set(songID, lines)
		}
		ls.cursor = player.NewCursor(lines)
		ls.cursorSongID = songID
	}

	index, _ := ls.cursor.IndexAt(t)
	return index, true
}

// handleUpdatePlayerState updates the playback clock from the client's audio
// element. Every field is optional; only what the event carries changes.
func (ls *LyricServer) handleUpdatePlayerState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ls.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	var req struct {
		SongID      *string  `json:"songId,omitempty"`
		IsPlaying   *bool    `json:"isPlaying,omitempty"`
		CurrentTime *float64 `json:"currentTime,omitempty"`
		Duration    *float64 `json:"duration,omitempty"`
		Seek        *float64 `json:"seek,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ls.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	if req.SongID != nil {
		if *req.SongID == "" {
			ls.playerState.Reset()
		} else {
			song, err := ls.db.GetSongByID(*req.SongID)
			if err != nil {
				if errors.Is(err, database.ErrNotFound) {
					ls.respondWithError(w, r, http.StatusNotFound, "Song not found", nil)
					return
				}
				ls.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving song", err)
				return
			}
			ls.playerState.UpdateSong(song)
		}
	}

	if req.IsPlaying != nil {
		ls.playerState.UpdatePlaybackState(*req.IsPlaying)
	}

	if req.CurrentTime != nil || req.Duration != nil {
		currentState := ls.playerState.GetState()
		currentTime := currentState.CurrentTime
		duration := currentState.Duration

		if req.CurrentTime != nil {
			currentTime = *req.CurrentTime
		}
		if req.Duration != nil {
			duration = *req.Duration
		}

		ls.playerState.UpdateTime(currentTime, duration)
	}

	if req.Seek != nil {
		ls.playerState.Seek(*req.Seek)
	}

	w.Header().Set("Content-Type", "application/json")
	ls.respondJSON(w, ls.playerState.GetState())
}
