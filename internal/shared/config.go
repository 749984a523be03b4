package shared

import (
	_ "embed"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Stream   StreamConfig   `toml:"stream"`
	Client   ClientConfig   `toml:"client"`
	Player   PlayerConfig   `toml:"player"`
	Sentry   SentryConfig   `toml:"sentry"`
}

// LogConfig controls the level of the shared logger.
type LogConfig struct {
	Level string `toml:"level"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver        string `toml:"driver"`
	Path          string `toml:"path"`
	MaxOpenConns  int    `toml:"max_open_conns"`
	MaxIdleConns  int    `toml:"max_idle_conns"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

// ServerConfig contains catalog API server settings.
type ServerConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
	LoginRateLimit float64  `toml:"login_rate_limit"`
	LoginBurst     int      `toml:"login_burst"`
}

// Addr joins host and port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// StreamConfig contains audio stream server settings.
type StreamConfig struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	MusicDir  string `toml:"music_dir"`
	ChunkSize int    `toml:"chunk_size"`
}

// Addr joins host and port.
func (s StreamConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ClientConfig contains the base URLs the client side talks to.
type ClientConfig struct {
	APIURL         string `toml:"api_url"`
	StreamURL      string `toml:"stream_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the HTTP client timeout.
func (c ClientConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PlayerConfig contains local player settings.
type PlayerConfig struct {
	HistoryPath  string  `toml:"history_path"`
	Volume       float64 `toml:"volume"`
	HistoryLimit int     `toml:"history_limit"`
}

// SentryConfig enables error reporting when DSN is set.
type SentryConfig struct {
	DSN         string `toml:"dsn"`
	Environment string `toml:"environment"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, ErrConflict)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ResolveConfig loads path when it exists, falling back to defaults, then applies the .env file and
// MELODEX_* environment overrides.
func ResolveConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadConfig(path)
			if err != nil {
				return nil, err
			}
			config = loaded
		}
	}

	if err := LoadEnv(".env"); err != nil {
		return nil, err
	}
	config.ApplyEnv(os.LookupEnv)
	return config, nil
}

// LoadEnv loads variables from a dotenv file into the process environment. A missing file is not an error.
func LoadEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%w: failed to load %s: %v", ErrInvalidConfig, path, err)
	}
	return nil
}

// ApplyEnv overrides config values from environment variables looked up through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("MELODEX_LOG_LEVEL", &c.Log.Level)
	str("MELODEX_DB_DRIVER", &c.Database.Driver)
	str("MELODEX_DB_PATH", &c.Database.Path)
	str("MELODEX_MONGO_URI", &c.Database.MongoURI)
	str("MELODEX_MONGO_DATABASE", &c.Database.MongoDatabase)
	num("MELODEX_API_PORT", &c.Server.Port)
	num("MELODEX_STREAM_PORT", &c.Stream.Port)
	str("MELODEX_MUSIC_DIR", &c.Stream.MusicDir)
	str("MELODEX_API_URL", &c.Client.APIURL)
	str("MELODEX_STREAM_URL", &c.Client.StreamURL)
	str("SENTRY_DSN", &c.Sentry.DSN)
	str("SENTRY_ENVIRONMENT", &c.Sentry.Environment)
}
