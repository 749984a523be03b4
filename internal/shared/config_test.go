package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./melodex.db" {
			t.Errorf("expected database path ./melodex.db, got %s", config.Database.Path)
		}

		if config.Database.Driver != "sqlite" {
			t.Errorf("expected sqlite driver, got %s", config.Database.Driver)
		}

		if config.Server.Port != 5001 {
			t.Errorf("expected server port 5001, got %d", config.Server.Port)
		}

		if config.Stream.Port != 8000 {
			t.Errorf("expected stream port 8000, got %d", config.Stream.Port)
		}

		if config.Stream.ChunkSize != 1<<20 {
			t.Errorf("expected 1MiB chunk size, got %d", config.Stream.ChunkSize)
		}

		if config.Client.StreamURL != "http://127.0.0.1:8000" {
			t.Errorf("expected stream URL http://127.0.0.1:8000, got %s", config.Client.StreamURL)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

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

	t.Run("LoadConfig keeps defaults for missing keys", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[server]
host = "127.0.0.1"
port = 9090
allowed_origins = ["http://localhost:3000"]
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
		if config.Server.Addr() != "127.0.0.1:9090" {
			t.Errorf("expected addr 127.0.0.1:9090, got %s", config.Server.Addr())
		}
		if len(config.Server.AllowedOrigins) != 1 || config.Server.AllowedOrigins[0] != "http://localhost:3000" {
			t.Errorf("unexpected allowed origins %v", config.Server.AllowedOrigins)
		}
		if config.Stream.Port != 8000 {
			t.Errorf("expected default stream port to survive, got %d", config.Stream.Port)
		}
	})

	t.Run("LoadConfig rejects invalid TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[server\nport = "), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		env := map[string]string{
			"MELODEX_DB_DRIVER":   "mongo",
			"MELODEX_API_PORT":    "7000",
			"MELODEX_STREAM_PORT": "not-a-number",
			"SENTRY_DSN":          "https://key@example.com/1",
		}
		lookup := func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		}

		config := DefaultConfig()
		config.ApplyEnv(lookup)

		if config.Database.Driver != "mongo" {
			t.Errorf("expected mongo driver, got %s", config.Database.Driver)
		}
		if config.Server.Port != 7000 {
			t.Errorf("expected port 7000, got %d", config.Server.Port)
		}
		if config.Stream.Port != 8000 {
			t.Errorf("invalid number should be ignored, got %d", config.Stream.Port)
		}
		if config.Sentry.DSN != "https://key@example.com/1" {
			t.Errorf("expected sentry dsn from env, got %q", config.Sentry.DSN)
		}
	})

	t.Run("LoadEnv missing file", func(t *testing.T) {
		if err := LoadEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
			t.Errorf("missing .env should not fail: %v", err)
		}
	})

	t.Run("LoadEnv sets variables", func(t *testing.T) {
		envPath := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(envPath, []byte("MELODEX_TEST_ONLY_VALUE=from-dotenv\n"), 0644); err != nil {
			t.Fatalf("failed to write .env: %v", err)
		}
		t.Cleanup(func() { os.Unsetenv("MELODEX_TEST_ONLY_VALUE") })

		if err := LoadEnv(envPath); err != nil {
			t.Fatalf("LoadEnv failed: %v", err)
		}
		if got := os.Getenv("MELODEX_TEST_ONLY_VALUE"); got != "from-dotenv" {
			t.Errorf("expected from-dotenv, got %q", got)
		}
	})
}
