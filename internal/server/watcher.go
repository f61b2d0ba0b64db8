package server

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"rubato/internal/lrc"
	"rubato/pkg/models"
)

// startImportWatcher initializes fsnotify monitoring of the LRC import dir.
func (ls *LyricServer) startImportWatcher() error {
	if err := os.MkdirAll(ls.config.Library.ImportDir, 0o755); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	ls.watcher = watcher

	go ls.watchImports()

	if err := ls.addDirectoryToWatcher(ls.config.Library.ImportDir); err != nil {
		return err
	}

	ls.logger.WithField("import_dir", ls.config.Library.ImportDir).Info("Import watcher started")
	return nil
}

// addDirectoryToWatcher recursively walks and adds subdirectories to watcher.
func (ls *LyricServer) addDirectoryToWatcher(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return ls.watcher.Add(path)
		}
		return nil
	})
}

// watchImports selects on watcher channels and dispatches events.
func (ls *LyricServer) watchImports() {
	defer ls.watcher.Close()

	for {
		select {
		case event, ok := <-ls.watcher.Events:
			if !ok {
				return
			}
			ls.handleImportEvent(event)

		case err, ok := <-ls.watcher.Errors:
			if !ok {
				return
			}
			ls.logger.WithError(err).Error("Import watcher error")
		}
	}
}

// handleImportEvent applies filtering & delegates ingestion.
func (ls *LyricServer) handleImportEvent(event fsnotify.Event) {
	// Ignore temporary files and hidden files
	fileName := filepath.Base(event.Name)
	if strings.HasPrefix(fileName, ".") || strings.HasSuffix(fileName, ".tmp") {
		return
	}

	isLrcFile := strings.EqualFold(filepath.Ext(event.Name), ".lrc")

	switch {
	case event.Has(fsnotify.Create) && isLrcFile:
		go func(name string) {
			time.Sleep(500 * time.Millisecond) // Ensure file is fully written
			ls.ingestLrcFile(name)
		}(event.Name)

	case event.Has(fsnotify.Create):
		// Check if it's a new directory
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			ls.watcher.Add(event.Name)
			ls.logger.WithField("directory", event.Name).Info("Watching new directory")
		}
	}
}

// ingestLrcFile parses a dropped LRC file and registers it as a song with
// stored lyrics. The filename carries the identity: "Artist - Title.lrc",
// or just "Title.lrc".
func (ls *LyricServer) ingestLrcFile(filePath string) {
	ls.logger.WithField("file_path", filePath).Info("New LRC file detected")

	data, err := os.ReadFile(filePath)
	if err != nil {
		ls.logger.WithError(err).WithField("file_path", filePath).Error("Error reading LRC file")
		return
	}

	raw := string(data)
	synced := lrc.Parse(raw)
	if len(synced) == 0 {
		ls.logger.WithField("file_path", filePath).Warn("LRC file contains no synchronized lines, skipping")
		return
	}

	artist, title := parseImportFilename(filePath)

	exists, err := ls.db.SongExists(title, artist)
	if err != nil {
		ls.logger.WithError(err).WithField("file_path", filePath).Error("Error checking if song exists")
		return
	}
	if exists {
		ls.logger.WithFields(logrus.Fields{
			"artist": artist,
			"title":  title,
		}).Debug("Song already registered, skipping import")
		return
	}

	songID, err := ls.db.InsertSong(models.Song{
		Title:      title,
		ArtistName: artist,
		LyricsText: lrc.ExtractPlainText(raw),
		Status:     models.SongStatusPublished,
	})
	if err != nil {
		ls.logger.WithError(err).Error("Error inserting imported song")
		return
	}

	_, err = ls.db.UpsertLrcFile(models.LrcFile{
		SongID:      songID,
		LrcRaw:      raw,
		SyncedLines: synced,
		Source:      models.LrcSourceManual,
	})
	if err != nil {
		ls.logger.WithError(err).WithField("song_id", songID).Error("Error storing imported LRC file")
		return
	}

	ls.logger.WithFields(logrus.Fields{
		"artist":     artist,
		"title":      title,
		"song_id":    songID,
		"line_count": len(synced),
	}).Info("Imported LRC file")
}

// parseImportFilename splits "Artist - Title.lrc" into its parts. Without a
// separator the whole basename becomes the title.
func parseImportFilename(filePath string) (artist, title string) {
	base := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))

	if idx := strings.Index(base, " - "); idx >= 0 {
		artist = strings.TrimSpace(base[:idx])
		title = strings.TrimSpace(base[idx+3:])
	}
	if title == "" {
		title = strings.TrimSpace(base)
	}
	if artist == "" {
		artist = "Unknown Artist"
	}
	return artist, title
}

// stopImportWatcher closes the watcher (idempotent).
func (ls *LyricServer) stopImportWatcher() {
	if ls.watcher != nil {
		ls.watcher.Close()
	}
}
