package database

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"rubato/pkg/models"
)

var slugCleanRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-safe slug from a song title. A short uuid suffix is
// appended by InsertSong to keep slugs unique across same-named songs.
func Slugify(value string) string {
	slug := strings.ToLower(value)
	slug = slugCleanRe.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 80 {
		slug = slug[:80]
	}
	if slug == "" {
		slug = "song"
	}
	return slug
}

// InsertSong stores a new song. A missing ID, slug or status is filled in
// here so callers only have to supply the descriptive fields. Returns the
// stored song ID.
func (db *Database) InsertSong(song models.Song) (string, error) {
	if song.ID == "" {
		song.ID = uuid.NewString()
	}
	if song.Slug == "" {
		song.Slug = Slugify(song.Title) + "-" + song.ID[:8]
	}
	if song.Status == "" {
		song.Status = models.SongStatusDraft
	}

	_, err := db.insertSongStmt.Exec(
		song.ID,
		song.Title,
		song.Slug,
		song.ArtistName,
		song.Album,
		song.LyricsText,
		song.AudioPath,
		song.Duration,
		song.Status,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert song: %w", err)
	}

	db.logger.WithFields(map[string]interface{}{
		"id":     song.ID,
		"title":  song.Title,
		"artist": song.ArtistName,
	}).Debug("Song inserted")
	return song.ID, nil
}

// GetSongByID retrieves one song, returning ErrNotFound when absent.
func (db *Database) GetSongByID(id string) (*models.Song, error) {
	var song models.Song
	err := db.getSongByIDStmt.QueryRow(id).Scan(
		&song.ID,
		&song.Title,
		&song.Slug,
		&song.ArtistName,
		&song.Album,
		&song.LyricsText,
		&song.AudioPath,
		&song.Duration,
		&song.Status,
		&song.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get song %s: %w", id, err)
	}
	return &song, nil
}

// GetAllSongs returns all songs, newest first.
func (db *Database) GetAllSongs() ([]models.Song, error) {
	rows, err := db.conn.Query(`
		SELECT id, title, slug, artist_name, album, lyrics_text, audio_path, duration, status, created_at
		FROM songs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	return scanSongs(rows)
}

// SearchSongs returns songs whose title or artist matches the query.
func (db *Database) SearchSongs(query string) ([]models.Song, error) {
	pattern := "%" + query + "%"
	rows, err := db.searchSongsStmt.Query(pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search songs: %w", err)
	}
	defer rows.Close()

	return scanSongs(rows)
}

// SongExists reports whether a song with this title and artist is already stored.
func (db *Database) SongExists(title, artist string) (bool, error) {
	var count int
	if err := db.songExistsStmt.QueryRow(title, artist).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check song existence: %w", err)
	}
	return count > 0, nil
}

// UpdateSongStatus moves a song through its editorial lifecycle.
func (db *Database) UpdateSongStatus(id, status string) error {
	result, err := db.conn.Exec("UPDATE songs SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("failed to update song status: %w", err)
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

// UpdateSongLyricsText replaces the plain, untimed lyric text of a song.
func (db *Database) UpdateSongLyricsText(id, lyrics string) error {
	result, err := db.conn.Exec("UPDATE songs SET lyrics_text = ? WHERE id = ?", lyrics, id)
	if err != nil {
		return fmt.Errorf("failed to update song lyrics: %w", err)
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

// CountSongs returns the number of stored songs.
func (db *Database) CountSongs() (int, error) {
	var count int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM songs").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count songs: %w", err)
	}
	return count, nil
}

// DistinctArtists returns the distinct artist names in the catalog, sorted.
func (db *Database) DistinctArtists() ([]string, error) {
	rows, err := db.conn.Query("SELECT DISTINCT artist_name FROM songs ORDER BY artist_name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer rows.Close()

	var artists []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		artists = append(artists, name)
	}
	return artists, rows.Err()
}

func scanSongs(rows *sql.Rows) ([]models.Song, error) {
	var songs []models.Song
	for rows.Next() {
		var song models.Song
		err := rows.Scan(
			&song.ID,
			&song.Title,
			&song.Slug,
			&song.ArtistName,
			&song.Album,
			&song.LyricsText,
			&song.AudioPath,
			&song.Duration,
			&song.Status,
			&song.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	return songs, rows.Err()
}
