// Package server exposes the HTTP surface: song and lyrics endpoints, the
// tap-to-sync session API, playback state reporting, and the LRC import
// watcher.
package server

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"rubato/internal/auth"
	"rubato/internal/cache"
	"rubato/internal/config"
	"rubato/internal/database"
	"rubato/internal/metadata"
	"rubato/internal/player"
	"rubato/internal/session"
)

// LyricServer represents the main lyrics service
type LyricServer struct {
	db           *database.Database
	config       *config.Config
	logger       *logrus.Logger
	watcher      *fsnotify.Watcher
	extractor    *metadata.Extractor
	authService  *auth.Service
	syncSessions *session.Manager
	playerState  *player.StateManager
	lyricsCache  *cache.LyricsCache
	httpServer   *http.Server

	cursorMu     sync.Mutex
	cursor       *player.Cursor
	cursorSongID string
}

// NewLyricServer creates a new lyric server instance
func NewLyricServer(cfg *config.Config, db *database.Database, logger *logrus.Logger) (*LyricServer, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	authService, err := auth.NewService(&cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth service: %w", err)
	}

	timeout := time.Duration(cfg.Sync.SessionTimeoutMinutes) * time.Minute

	server := &LyricServer{
		db:           db,
		config:       cfg,
		logger:       logger,
		extractor:    metadata.NewExtractor(cfg.Library.AudioFormats, logger),
		authService:  authService,
		syncSessions: session.NewManager(timeout, logger),
		playerState:  player.NewStateManager(),
		lyricsCache:  cache.NewLyricsCache(15*time.Minute, logger),
	}

	return server, nil
}

// Start starts the lyric server and blocks until the listener fails.
func (ls *LyricServer) Start() error {
	if ls.config.Library.WatchForChanges {
		if err := ls.startImportWatcher(); err != nil {
			ls.logger.WithError(err).Warn("Could not start import watcher")
		}
	}

	mux := ls.setupRoutes()
	handler := ls.panicRecoveryMiddleware(ls.corsMiddleware(ls.requestLoggingMiddleware(mux)))

	songCount, err := ls.db.CountSongs()
	if err != nil {
		songCount = 0
	}

	ls.logger.WithFields(logrus.Fields{
		"address":    ls.config.GetAddress(),
		"song_count": songCount,
	}).Info("Rubato server starting")

	if ls.config.Library.WatchForChanges {
		ls.logger.WithField("import_dir", ls.config.Library.ImportDir).Info("Import watcher monitoring")
	}

	ls.httpServer = &http.Server{
		Addr:        ls.config.GetAddress(),
		Handler:     handler,
		ReadTimeout: time.Duration(ls.config.Server.ReadTimeout) * time.Second,
	}

	if err := ls.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func (ls *LyricServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", ls.handleHome)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(ls.config.Server.StaticDir))))
	mux.HandleFunc("/health", ls.handleHealthCheck)

	// Song and lyrics routes
	mux.HandleFunc("/api/songs", ls.handleSongs)
	mux.HandleFunc("/api/songs/count", ls.handleGetSongCount)
	mux.HandleFunc("/api/songs/", ls.handleSongSubresource)
	mux.HandleFunc("/api/stats", ls.handleGetStats)

	// Tap-to-sync session routes
	mux.HandleFunc("/api/sync/start", ls.handleSyncStart)
	mux.HandleFunc("/api/sync/", ls.handleSyncSession)

	// Player state routes
	mux.HandleFunc("/api/player/state", ls.handleGetPlayerState)
	mux.HandleFunc("/api/player/update", ls.handleUpdatePlayerState)

	// Auth routes
	mux.HandleFunc("/api/auth/login", ls.handleAuthLogin)
	mux.HandleFunc("/api/auth/logout", ls.handleAuthLogout)
	mux.HandleFunc("/api/auth/session", ls.handleAuthSession)

	return mux
}

// handleHome serves the SPA index file from the configured static dir.
func (ls *LyricServer) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(ls.config.Server.StaticDir, "index.html"))
}

// invalidateLyrics drops cached parse results for a song after its LRC
// document changes, the playback cursor included.
func (ls *LyricServer) invalidateLyrics(songID string) {
	ls.lyricsCache.Invalidate(songID)

	ls.cursorMu.Lock()
	if ls.cursorSongID == songID {
		ls.cursor = nil
		ls.cursorSongID = ""
	}
	ls.cursorMu.Unlock()
}

// Shutdown gracefully shuts down the lyric server
func (ls *LyricServer) Shutdown(ctx context.Context) {
	ls.logger.Info("Shutting down lyric server")

	ls.stopImportWatcher()
	ls.syncSessions.Close()
	ls.lyricsCache.Close()

	if ls.httpServer != nil {
		if err := ls.httpServer.Shutdown(ctx); err != nil {
			ls.logger.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	ls.logger.Info("Lyric server shutdown complete")
}
