package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfigCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected config file to be created: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
}

func TestConfigSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.Server.Port = "9090"
	cfg.Sync.AdjustStep = 0.25
	cfg.Library.ImportDir = "/tmp/lrc-import"

	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if loaded.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", loaded.Server.Port)
	}
	if loaded.Sync.AdjustStep != 0.25 {
		t.Errorf("expected adjust step 0.25, got %v", loaded.Sync.AdjustStep)
	}
	if loaded.Library.ImportDir != "/tmp/lrc-import" {
		t.Errorf("expected import dir preserved, got %s", loaded.Library.ImportDir)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := DefaultConfig().SaveToFile(path); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	t.Setenv("RUBATO_PORT", "7070")
	t.Setenv("RUBATO_DB_PATH", "/tmp/override.db")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("expected env port override, got %s", cfg.Server.Port)
	}
	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("expected env db path override, got %s", cfg.Database.Path)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"empty port", func(c *Config) { c.Server.Port = "" }, true},
		{"empty host", func(c *Config) { c.Server.Host = "" }, true},
		{"empty db path", func(c *Config) { c.Database.Path = "" }, true},
		{"zero max connections", func(c *Config) { c.Database.MaxConnections = 0 }, true},
		{"auth without users file", func(c *Config) { c.Auth.UsersFilePath = "" }, true},
		{"zero session timeout", func(c *Config) { c.Sync.SessionTimeoutMinutes = 0 }, true},
		{"negative adjust step", func(c *Config) { c.Sync.AdjustStep = -0.1 }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestGetAddress(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "3000"

	if got := cfg.GetAddress(); got != "127.0.0.1:3000" {
		t.Errorf("expected 127.0.0.1:3000, got %s", got)
	}
}

func TestIsAudioFormatSupported(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.IsAudioFormatSupported(".mp3") {
		t.Error("expected .mp3 to be supported")
	}
	if cfg.IsAudioFormatSupported(".ogg") {
		t.Error("expected .ogg to be unsupported by default")
	}
}
