package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Library  LibraryConfig  `toml:"library"`
	Auth     AuthConfig     `toml:"auth"`
	Sync     SyncConfig     `toml:"sync"`
	Logging  LoggingConfig  `toml:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port        string `toml:"port"`
	Host        string `toml:"host"`
	StaticDir   string `toml:"static_dir"`
	EnableCORS  bool   `toml:"enable_cors"`
	ReadTimeout int    `toml:"read_timeout_seconds"`
}

// DatabaseConfig contains database-related configuration
type DatabaseConfig struct {
	Path           string `toml:"path"`
	MaxConnections int    `toml:"max_connections"`
}

// LibraryConfig controls LRC import and audio metadata handling
type LibraryConfig struct {
	ImportDir       string   `toml:"import_dir"`
	WatchForChanges bool     `toml:"watch_for_changes"`
	AudioFormats    []string `toml:"audio_formats"`
}

// AuthConfig contains authentication configuration
type AuthConfig struct {
	Enabled         bool   `toml:"enabled"`
	UsersFilePath   string `toml:"users_file_path"`
	SessionDuration string `toml:"session_duration"`
	SecureCookies   bool   `toml:"secure_cookies"`
}

// SyncConfig controls tap-to-sync editing sessions
type SyncConfig struct {
	SessionTimeoutMinutes int     `toml:"session_timeout_minutes"`
	AdjustStep            float64 `toml:"adjust_step_seconds"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level          string `toml:"level"`
	Format         string `toml:"format"`
	File           string `toml:"file"`
	RequestLogging bool   `toml:"request_logging"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			Host:        "0.0.0.0",
			StaticDir:   "./static",
			EnableCORS:  true,
			ReadTimeout: 30,
		},
		Database: DatabaseConfig{
			Path:           "./rubato.db",
			MaxConnections: 5,
		},
		Library: LibraryConfig{
			ImportDir:       "./import",
			WatchForChanges: true,
			AudioFormats:    []string{".flac", ".mp3", ".wav"},
		},
		Auth: AuthConfig{
			Enabled:         true,
			UsersFilePath:   "./users.toml",
			SessionDuration: "24h",
			SecureCookies:   false,
		},
		Sync: SyncConfig{
			SessionTimeoutMinutes: 60,
			AdjustStep:            0.1,
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			File:           "",
			RequestLogging: true,
		},
	}
}

// LoadConfig loads configuration from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Config file doesn't exist, create it with defaults
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
		fmt.Printf("Created default configuration file at: %s\n", configPath)
		return cfg, nil
	}

	// Load from file
	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment overrides for deploy-specific values
	if port := os.Getenv("RUBATO_PORT"); port != "" {
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("RUBATO_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create or open file
	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// Write header comment
	header := `# Rubato Lyric Sync Server Configuration
# This file contains all configuration options for the Rubato synchronized
# lyrics server. Edit the values below to customize your server settings.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	// Encode configuration to TOML
	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	// Validate database config
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	// Validate auth config
	if c.Auth.Enabled && c.Auth.UsersFilePath == "" {
		return fmt.Errorf("users file path cannot be empty when auth is enabled")
	}

	// Validate sync config
	if c.Sync.SessionTimeoutMinutes < 1 {
		return fmt.Errorf("sync session timeout must be at least 1 minute")
	}
	if c.Sync.AdjustStep <= 0 {
		return fmt.Errorf("sync adjust step must be positive")
	}

	// Validate logging config
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	return nil
}

// GetAddress returns the full server address
func (c *Config) GetAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

// IsAudioFormatSupported checks if an audio file extension is supported
func (c *Config) IsAudioFormatSupported(ext string) bool {
	for _, supported := range c.Library.AudioFormats {
		if supported == ext {
			return true
		}
	}
	return false
}
