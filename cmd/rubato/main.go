package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"rubato/internal/config"
	"rubato/internal/database"
	"rubato/internal/server"
)

func main() {
	// Initialize basic logger for startup
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Load .env overlay if present; config file values stay authoritative
	// for everything not overridden through the environment.
	if err := godotenv.Load(); err == nil {
		logger.Debug("Loaded environment overrides from .env")
	}

	configPath := os.Getenv("RUBATO_CONFIG")
	if configPath == "" {
		configPath = "./config.toml"
	}

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}

	configureLogger(logger, &cfg.Logging)

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing database")
	}
	defer db.Close()

	// Create and configure the lyric server
	lyricServer, err := server.NewLyricServer(cfg, db, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error creating lyric server")
	}

	// Warn when the catalog is empty so a fresh install is not mistaken
	// for a broken one.
	if count, err := db.CountSongs(); err != nil {
		logger.WithError(err).Warn("Could not get song count")
	} else if count == 0 {
		logger.WithField("import_dir", cfg.Library.ImportDir).Warn("Song catalog is empty. Drop LRC files into the import directory or create songs through the API.")
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Start the server in a goroutine
	go func() {
		if err := lyricServer.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for shutdown signal
	<-c

	logger.Info("Received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	lyricServer.Shutdown(ctx)
}

// configureLogger applies the configured level, format and output file.
func configureLogger(logger *logrus.Logger, cfg *config.LoggingConfig) {
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(level)
	}

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.WithError(err).Warn("Could not open log file, logging to stderr")
			return
		}
		logger.SetOutput(f)
	}
}
