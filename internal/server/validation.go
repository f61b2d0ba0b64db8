package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rubato/pkg/models"
)

// ValidationError represents a validation error with details
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidationResult contains validation results
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// respondJSON encodes v to the response writer, logging encode failures.
func (ls *LyricServer) respondJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ls.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// respondWithValidationError sends a structured validation error response
func (ls *LyricServer) respondWithValidationError(w http.ResponseWriter, r *http.Request, errors []ValidationError) {
	ls.logger.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"errors": errors,
	}).Warn("Validation failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)

	result := ValidationResult{
		Valid:  false,
		Errors: errors,
	}

	ls.respondJSON(w, result)
}

// respondWithError sends a structured error response
func (ls *LyricServer) respondWithError(w http.ResponseWriter, r *http.Request, statusCode int, message string, err error) {
	logEntry := ls.logger.WithFields(logrus.Fields{
		"method":      r.Method,
		"path":        r.URL.Path,
		"status_code": statusCode,
		"message":     message,
	})

	if err != nil {
		logEntry = logEntry.WithError(err)
	}

	if statusCode >= 500 {
		logEntry.Error("Server error")
	} else {
		logEntry.Warn("Client error")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := map[string]interface{}{
		"error":   message,
		"code":    statusCode,
		"success": false,
	}

	ls.respondJSON(w, response)
}

// validateSongID validates a song ID taken from the URL path
func (ls *LyricServer) validateSongID(pathParts []string, minParts int) (string, *ValidationError) {
	if len(pathParts) < minParts {
		return "", &ValidationError{
			Field:   "song_id",
			Message: "Song ID is required",
			Code:    "MISSING_SONG_ID",
		}
	}

	songID := pathParts[minParts-1]
	if songID == "" {
		return "", &ValidationError{
			Field:   "song_id",
			Message: "Song ID cannot be empty",
			Code:    "EMPTY_SONG_ID",
		}
	}

	if _, err := uuid.Parse(songID); err != nil {
		return "", &ValidationError{
			Field:   "song_id",
			Message: "Song ID must be a valid UUID",
			Code:    "INVALID_SONG_ID_FORMAT",
		}
	}

	return songID, nil
}

// validateSessionID validates a sync session ID taken from the URL path
func (ls *LyricServer) validateSessionID(pathParts []string, minParts int) (string, *ValidationError) {
	if len(pathParts) < minParts || pathParts[minParts-1] == "" {
		return "", &ValidationError{
			Field:   "session_id",
			Message: "Session ID is required",
			Code:    "MISSING_SESSION_ID",
		}
	}

	sessionID := pathParts[minParts-1]
	if _, err := uuid.Parse(sessionID); err != nil {
		return "", &ValidationError{
			Field:   "session_id",
			Message: "Session ID must be a valid UUID",
			Code:    "INVALID_SESSION_ID_FORMAT",
		}
	}

	return sessionID, nil
}

// validateSearchQuery validates search query parameters
func (ls *LyricServer) validateSearchQuery(query string) *ValidationError {
	if len(query) > 1000 {
		return &ValidationError{
			Field:   "search",
			Message: "Search query too long (max 1000 characters)",
			Code:    "SEARCH_QUERY_TOO_LONG",
		}
	}

	if strings.Contains(query, "\x00") {
		return &ValidationError{
			Field:   "search",
			Message: "Search query contains invalid characters",
			Code:    "INVALID_SEARCH_CHARACTERS",
		}
	}

	return nil
}

// validateSongTitle validates a song title submitted by a client
func (ls *LyricServer) validateSongTitle(title string) *ValidationError {
	if title == "" {
		return &ValidationError{
			Field:   "title",
			Message: "Song title is required",
			Code:    "MISSING_SONG_TITLE",
		}
	}

	if len(title) > 255 {
		return &ValidationError{
			Field:   "title",
			Message: "Song title too long (max 255 characters)",
			Code:    "SONG_TITLE_TOO_LONG",
		}
	}

	if strings.Contains(title, "\x00") || strings.Contains(title, "\n") || strings.Contains(title, "\r") {
		return &ValidationError{
			Field:   "title",
			Message: "Song title contains invalid characters",
			Code:    "INVALID_SONG_TITLE_CHARACTERS",
		}
	}

	return nil
}

// validateLyricsText validates raw lyric or LRC text bodies
func (ls *LyricServer) validateLyricsText(text string) *ValidationError {
	if strings.TrimSpace(text) == "" {
		return &ValidationError{
			Field:   "lyrics",
			Message: "Lyrics text is required",
			Code:    "MISSING_LYRICS",
		}
	}

	if len(text) > 100000 {
		return &ValidationError{
			Field:   "lyrics",
			Message: "Lyrics text too long (max 100000 characters)",
			Code:    "LYRICS_TOO_LONG",
		}
	}

	if strings.Contains(text, "\x00") {
		return &ValidationError{
			Field:   "lyrics",
			Message: "Lyrics text contains invalid characters",
			Code:    "INVALID_LYRICS_CHARACTERS",
		}
	}

	return nil
}

// validateLrcSource validates the declared origin of an LRC file
func (ls *LyricServer) validateLrcSource(source string) *ValidationError {
	switch source {
	case "", models.LrcSourceManual, models.LrcSourceAI, models.LrcSourceHybrid:
		return nil
	}

	return &ValidationError{
		Field:   "source",
		Message: "Source must be one of: manual, ai, hybrid",
		Code:    "INVALID_LRC_SOURCE",
	}
}

// sanitizeInput sanitizes user input to prevent injection attacks
func sanitizeInput(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	input = strings.TrimSpace(input)

	return input
}
