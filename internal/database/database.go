package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when a song or LRC file lookup matches no record.
var ErrNotFound = errors.New("record not found")

// Database wraps a *sql.DB providing higher-level helper methods for
// interacting with the application's persistent store. It is safe for
// concurrent use because the underlying *sql.DB is concurrency-safe.
type Database struct {
	conn   *sql.DB
	logger *logrus.Logger

	// Prepared statements for better performance
	insertSongStmt    *sql.Stmt
	getSongByIDStmt   *sql.Stmt
	songExistsStmt    *sql.Stmt
	searchSongsStmt   *sql.Stmt
	upsertLrcStmt     *sql.Stmt
	getLrcBySongStmt  *sql.Stmt
	lrcExistsStmt     *sql.Stmt
	deleteLrcBySongID *sql.Stmt
}

// NewDatabase opens (or creates) a SQLite database at the provided path and
// ensures all required tables and indices exist. It also applies lightweight
// performance-oriented pragmas (WAL, cache sizing). Caller should Close() it
// when finished.
func NewDatabase(dbPath string) (*Database, error) {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	conn, err := sql.Open("sqlite3", dbPath+"?cache=shared&mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool - adjusted for SQLite
	conn.SetMaxOpenConns(5) // SQLite works better with fewer connections
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(15 * time.Minute)

	// Enable WAL mode for better concurrency
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=2000;",
		"PRAGMA temp_store=memory;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA auto_vacuum=INCREMENTAL;",
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	db := &Database{
		conn:   conn,
		logger: logger,
	}

	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := db.prepareStatements(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	logger.WithField("db_path", dbPath).Info("Database initialized successfully")
	return db, nil
}

// createTables creates tables and indices if they do not already exist. This
// is idempotent and safe to call multiple times.
func (db *Database) createTables() error {
	songsTable := `
	CREATE TABLE IF NOT EXISTS songs (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		artist_name TEXT NOT NULL,
		album TEXT,
		lyrics_text TEXT,
		audio_path TEXT,
		duration INTEGER DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'draft',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	lrcFilesTable := `
	CREATE TABLE IF NOT EXISTS lrc_files (
		id TEXT PRIMARY KEY,
		song_id TEXT NOT NULL UNIQUE,
		lrc_raw TEXT NOT NULL,
		synced_lyrics TEXT NOT NULL,
		source TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (song_id) REFERENCES songs(id) ON DELETE CASCADE
	);`

	indices := []string{
		"CREATE INDEX IF NOT EXISTS idx_songs_artist ON songs(artist_name);",
		"CREATE INDEX IF NOT EXISTS idx_songs_status ON songs(status);",
		"CREATE INDEX IF NOT EXISTS idx_songs_search ON songs(title, artist_name);",
		"CREATE INDEX IF NOT EXISTS idx_lrc_files_song ON lrc_files(song_id);",
	}

	tables := []string{songsTable, lrcFilesTable}
	for _, table := range tables {
		if _, err := db.conn.Exec(table); err != nil {
			return err
		}
	}

	for _, index := range indices {
		if _, err := db.conn.Exec(index); err != nil {
			return err
		}
	}

	return nil
}

// prepareStatements prepares commonly used SQL statements for better performance
func (db *Database) prepareStatements() error {
	var err error

	db.insertSongStmt, err = db.conn.Prepare(`
		INSERT INTO songs (id, title, slug, artist_name, album, lyrics_text, audio_path, duration, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert song statement: %w", err)
	}

	db.getSongByIDStmt, err = db.conn.Prepare(`
		SELECT id, title, slug, artist_name, album, lyrics_text, audio_path, duration, status, created_at
		FROM songs WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get song statement: %w", err)
	}

	db.songExistsStmt, err = db.conn.Prepare(`
		SELECT COUNT(*) FROM songs WHERE title = ? AND artist_name = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare song exists statement: %w", err)
	}

	db.searchSongsStmt, err = db.conn.Prepare(`
		SELECT id, title, slug, artist_name, album, lyrics_text, audio_path, duration, status, created_at
		FROM songs WHERE title LIKE ? OR artist_name LIKE ?
		ORDER BY created_at DESC`)
	if err != nil {
		return fmt.Errorf("failed to prepare search songs statement: %w", err)
	}

	db.upsertLrcStmt, err = db.conn.Prepare(`
		INSERT INTO lrc_files (id, song_id, lrc_raw, synced_lyrics, source)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(song_id) DO UPDATE SET
			lrc_raw = excluded.lrc_raw,
			synced_lyrics = excluded.synced_lyrics,
			source = excluded.source`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert lrc statement: %w", err)
	}

	db.getLrcBySongStmt, err = db.conn.Prepare(`
		SELECT id, song_id, lrc_raw, synced_lyrics, source, created_at
		FROM lrc_files WHERE song_id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get lrc statement: %w", err)
	}

	db.lrcExistsStmt, err = db.conn.Prepare(`
		SELECT COUNT(*) FROM lrc_files WHERE song_id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare lrc exists statement: %w", err)
	}

	db.deleteLrcBySongID, err = db.conn.Prepare(`
		DELETE FROM lrc_files WHERE song_id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete lrc statement: %w", err)
	}

	return nil
}

// Close closes prepared statements and the underlying connection.
func (db *Database) Close() error {
	stmts := []*sql.Stmt{
		db.insertSongStmt,
		db.getSongByIDStmt,
		db.songExistsStmt,
		db.searchSongsStmt,
		db.upsertLrcStmt,
		db.getLrcBySongStmt,
		db.lrcExistsStmt,
		db.deleteLrcBySongID,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return db.conn.Close()
}
