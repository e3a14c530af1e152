package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override values from the config file.
const (
	EnvAuthFile  = "YTMUSIC_AUTH_FILE"
	EnvTransport = "YTMIGRATE_EXECUTOR"
	EnvProxyURL  = "YTMIGRATE_PROXY_URL"
	EnvDatabase  = "YTMIGRATE_DB"
	EnvBatchSize = "YTMIGRATE_BATCH_SIZE"
	EnvLogLevel  = "YTMIGRATE_LOG_LEVEL"
)

// Executor transports
const (
	TransportProcess = "process"
	TransportHTTP    = "http"
	TransportMemory  = "memory"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Executor  ExecutorConfig  `toml:"executor"`
	Migration MigrationConfig `toml:"migration"`
	Database  DatabaseConfig  `toml:"database"`
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`
}

// ExecutorConfig describes how the external mutation executor is reached.
type ExecutorConfig struct {
	Transport      string   `toml:"transport"`
	Command        []string `toml:"command"`
	MigrateCommand []string `toml:"migrate_command"`
	ProxyURL       string   `toml:"proxy_url"`
	AuthFile       string   `toml:"auth_file"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	RateLimit      float64  `toml:"rate_limit"`
}

// Timeout returns the per call timeout as a [time.Duration]. Zero means no timeout.
func (e ExecutorConfig) Timeout() time.Duration {
	if e.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// MigrationConfig holds orchestrator defaults.
type MigrationConfig struct {
	BatchSize        int  `toml:"batch_size"`
	PreservePosition bool `toml:"preserve_position"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	LogFile string `toml:"log_file"`
}

// Addr returns host:port for [net/http.Server].
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
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

// LoadOrDefault loads path when it exists and falls back to [DefaultConfig] otherwise.
//
// A .env file in the working directory is loaded first (missing is fine) so
// environment overrides can live beside the config.
func LoadOrDefault(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

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

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides config values with any environment variables reported by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAuthFile); ok && v != "" {
		c.Executor.AuthFile = v
	}
	if v, ok := lookup(EnvTransport); ok && v != "" {
		c.Executor.Transport = v
	}
	if v, ok := lookup(EnvProxyURL); ok && v != "" {
		c.Executor.ProxyURL = v
	}
	if v, ok := lookup(EnvDatabase); ok && v != "" {
		c.Database.Path = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvBatchSize); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, EnvBatchSize, v)
		}
		c.Migration.BatchSize = n
	}
	return c.Validate()
}

// Validate reports configuration values that cannot be used.
func (c *Config) Validate() error {
	switch c.Executor.Transport {
	case TransportProcess:
		if len(c.Executor.Command) == 0 {
			return fmt.Errorf("%w: executor.command is required for the process transport", ErrInvalidConfig)
		}
	case TransportHTTP:
		if c.Executor.ProxyURL == "" {
			return fmt.Errorf("%w: executor.proxy_url is required for the http transport", ErrInvalidConfig)
		}
	case TransportMemory:
	default:
		return fmt.Errorf("%w: unknown executor transport %q", ErrInvalidConfig, c.Executor.Transport)
	}

	if c.Migration.BatchSize < 1 {
		return fmt.Errorf("%w: migration.batch_size must be at least 1", ErrInvalidConfig)
	}
	if c.Executor.RateLimit < 0 {
		return fmt.Errorf("%w: executor.rate_limit must not be negative", ErrInvalidConfig)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
