package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"rubato/pkg/models"
)

// UpsertLrcFile stores the synchronization for a song, replacing any previous
// one: a song carries at most one LRC file. The parsed line sequence is
// persisted as JSON next to the raw document so readers never have to
// re-parse. Returns the stored record ID.
func (db *Database) UpsertLrcFile(file models.LrcFile) (string, error) {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if file.Source == "" {
		file.Source = models.LrcSourceManual
	}

	syncedJSON, err := json.Marshal(file.SyncedLines)
	if err != nil {
		return "", fmt.Errorf("failed to encode synced lyrics: %w", err)
	}

	_, err = db.upsertLrcStmt.Exec(file.ID, file.SongID, file.LrcRaw, string(syncedJSON), file.Source)
	if err != nil {
		return "", fmt.Errorf("failed to store lrc file: %w", err)
	}

	db.logger.WithFields(map[string]interface{}{
		"song_id": file.SongID,
		"lines":   len(file.SyncedLines),
		"source":  file.Source,
	}).Debug("LRC file stored")
	return file.ID, nil
}

// GetLrcFileBySongID retrieves the stored synchronization for a song,
// returning ErrNotFound when the song has none.
func (db *Database) GetLrcFileBySongID(songID string) (*models.LrcFile, error) {
	var file models.LrcFile
	var syncedJSON string

	err := db.getLrcBySongStmt.QueryRow(songID).Scan(
		&file.ID,
		&file.SongID,
		&file.LrcRaw,
		&syncedJSON,
		&file.Source,
		&file.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lrc file for song %s: %w", songID, err)
	}

	if err := json.Unmarshal([]byte(syncedJSON), &file.SyncedLines); err != nil {
		return nil, fmt.Errorf("failed to decode synced lyrics for song %s: %w", songID, err)
	}
	return &file, nil
}

// HasLrcFile reports whether a song already carries a synchronization; used
// by the admin gate on re-syncing existing content.
func (db *Database) HasLrcFile(songID string) (bool, error) {
	var count int
	if err := db.lrcExistsStmt.QueryRow(songID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check lrc existence: %w", err)
	}
	return count > 0, nil
}

// DeleteLrcFile removes a song's synchronization.
func (db *Database) DeleteLrcFile(songID string) error {
	result, err := db.deleteLrcBySongID.Exec(songID)
	if err != nil {
		return fmt.Errorf("failed to delete lrc file: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountLrcFiles returns the number of stored synchronizations.
func (db *Database) CountLrcFiles() (int, error) {
	var count int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM lrc_files").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count lrc files: %w", err)
	}
	return count, nil
}
