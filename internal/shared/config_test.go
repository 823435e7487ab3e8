package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		t.Setenv("ROLLER_GITHUB_TOKEN", "")
		t.Setenv("ROLLER_WEBHOOK_SECRET", "")

		config := DefaultConfig()
		if config.Database.Path != "./roller.db" {
			t.Errorf("expected database path ./roller.db, got %s", config.Database.Path)
		}
		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}
		if config.GitHub.APIURL != "https://api.github.com" {
			t.Errorf("expected github api url, got %s", config.GitHub.APIURL)
		}
		if config.GitHub.Token != "" {
			t.Errorf("expected empty github token, got %s", config.GitHub.Token)
		}
		if config.Jobs.Workers != 2 {
			t.Errorf("expected 2 workers, got %d", config.Jobs.Workers)
		}
		if config.Server.Addr() != "127.0.0.1:3000" {
			t.Errorf("expected addr 127.0.0.1:3000, got %s", config.Server.Addr())
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		t.Setenv("ROLLER_GITHUB_TOKEN", "")
		t.Setenv("ROLLER_WEBHOOK_SECRET", "")
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[server]
host = "0.0.0.0"
port = 8080

[github]
token = "ghp_test"
webhook_secret = "hook-secret"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}
		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}
		if config.GitHub.WebhookSecret != "hook-secret" {
			t.Errorf("expected webhook secret hook-secret, got %s", config.GitHub.WebhookSecret)
		}
		if config.Jobs.RateLimit != 5.0 {
			t.Errorf("expected default rate limit to survive partial config, got %v", config.Jobs.RateLimit)
		}
	})

	t.Run("Environment Overrides", func(t *testing.T) {
		t.Setenv("ROLLER_GITHUB_TOKEN", "env-token")
		t.Setenv("ROLLER_WEBHOOK_SECRET", "env-secret")

		config := DefaultConfig()
		if config.GitHub.Token != "env-token" {
			t.Errorf("expected token from env, got %s", config.GitHub.Token)
		}
		if config.GitHub.WebhookSecret != "env-secret" {
			t.Errorf("expected secret from env, got %s", config.GitHub.WebhookSecret)
		}
	})

	t.Run("Missing File", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
		if !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("Invalid File", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "bad.toml")
		if err := os.WriteFile(configPath, []byte("[server\nport ="), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("SessionTTL", func(t *testing.T) {
		if got := (ServerConfig{}).SessionTTL(); got != 24*time.Hour {
			t.Errorf("expected 24h fallback, got %v", got)
		}
		if got := (ServerConfig{SessionTTLHours: 2}).SessionTTL(); got != 2*time.Hour {
			t.Errorf("expected 2h, got %v", got)
		}
	})
}
