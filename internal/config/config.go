// Package config provides configuration loading for notesd.
//
// Configuration is layered: hardcoded defaults, then an optional YAML file,
// then environment variables. See LoadWithFile for the precedence rules.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Storage providers understood by the store factory.
const (
	ProviderSQLite = "sqlite"
	ProviderNATS   = "nats"
	ProviderMemory = "memory"
)

// Config holds the complete notesd configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Storage       StorageConfig       `koanf:"storage"`
	Notes         NotesConfig         `koanf:"notes"`
	Enhance       EnhanceConfig       `koanf:"enhance"`
	Observability ObservabilityConfig `koanf:"observability"`
	Logging       LoggingConfig       `koanf:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// StorageConfig selects and configures the key-value backend.
type StorageConfig struct {
	Provider string       `koanf:"provider"` // sqlite (default), nats, memory
	SQLite   SQLiteConfig `koanf:"sqlite"`
	NATS     NATSConfig   `koanf:"nats"`
}

// SQLiteConfig configures the local database file.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// NATSConfig configures the JetStream key-value bucket.
type NATSConfig struct {
	URL     string   `koanf:"url"`
	Bucket  string   `koanf:"bucket"`
	Timeout Duration `koanf:"timeout"`
}

// NotesConfig tunes the notes session.
type NotesConfig struct {
	SaveDebounce Duration `koanf:"save_debounce"`
	HistorySize  int      `koanf:"history_size"`
	RecentLimit  int      `koanf:"recent_limit"`
}

// EnhanceConfig configures the Gemini client.
type EnhanceConfig struct {
	APIKey         Secret   `koanf:"api_key"`
	BaseURL        string   `koanf:"base_url"`
	Model          string   `koanf:"model"`
	Timeout        Duration `koanf:"timeout"`
	MaxRetries     int      `koanf:"max_retries"` // 0 means the default, -1 disables retries
	InitialBackoff Duration `koanf:"initial_backoff"`
	MaxBackoff     Duration `koanf:"max_backoff"`
	RateLimit      float64  `koanf:"rate_limit"` // requests per second
	Burst          int      `koanf:"burst"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool    `koanf:"enable_telemetry"`
	ServiceName     string  `koanf:"service_name"`
	OTLPEndpoint    string  `koanf:"otlp_endpoint"`
	OTLPProtocol    string  `koanf:"otlp_protocol"` // grpc (default) or http/protobuf
	OTLPInsecure    bool    `koanf:"otlp_insecure"`
	SampleRate      float64 `koanf:"sample_rate"`
}

// LoggingConfig holds the subset of logging options exposed to operators.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Validate validates the configuration.
//
// Returns an error if:
//   - Server port is not between 1 and 65535
//   - Shutdown timeout is not positive
//   - Storage provider is unknown, or its required settings are missing
//   - Enhancement timeouts or retry settings are out of range
//   - Service name is empty (when telemetry is enabled)
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	switch c.Storage.Provider {
	case ProviderSQLite:
		if strings.TrimSpace(c.Storage.SQLite.Path) == "" {
			return errors.New("storage.sqlite.path is required for the sqlite provider")
		}
	case ProviderNATS:
		if c.Storage.NATS.URL == "" || c.Storage.NATS.Bucket == "" {
			return errors.New("storage.nats.url and storage.nats.bucket are required for the nats provider")
		}
		if c.Storage.NATS.Timeout <= 0 {
			return errors.New("storage.nats.timeout must be positive")
		}
	case ProviderMemory:
	default:
		return fmt.Errorf("unsupported storage provider: %q (supported: %s, %s, %s)",
			c.Storage.Provider, ProviderSQLite, ProviderNATS, ProviderMemory)
	}

	if c.Notes.HistorySize < 1 {
		return fmt.Errorf("invalid notes.history_size: %d (must be positive)", c.Notes.HistorySize)
	}
	if c.Notes.RecentLimit < 1 {
		return fmt.Errorf("invalid notes.recent_limit: %d (must be positive)", c.Notes.RecentLimit)
	}

	if c.Enhance.Timeout <= 0 {
		return errors.New("enhance.timeout must be positive")
	}
	if c.Enhance.MaxRetries < -1 {
		return fmt.Errorf("invalid enhance.max_retries: %d", c.Enhance.MaxRetries)
	}
	if c.Enhance.InitialBackoff <= 0 || c.Enhance.MaxBackoff < c.Enhance.InitialBackoff {
		return errors.New("enhance backoff must satisfy 0 < initial_backoff <= max_backoff")
	}
	if c.Enhance.RateLimit <= 0 || c.Enhance.Burst < 1 {
		return errors.New("enhance.rate_limit and enhance.burst must be positive")
	}

	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}

	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8765
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Storage.Provider == "" {
		cfg.Storage.Provider = ProviderSQLite
	}
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = "~/.local/share/notesd/notes.db"
	}
	if cfg.Storage.NATS.URL == "" {
		cfg.Storage.NATS.URL = "nats://localhost:4222"
	}
	if cfg.Storage.NATS.Bucket == "" {
		cfg.Storage.NATS.Bucket = "notesd"
	}
	if cfg.Storage.NATS.Timeout == 0 {
		cfg.Storage.NATS.Timeout = Duration(5 * time.Second)
	}

	if cfg.Notes.SaveDebounce == 0 {
		cfg.Notes.SaveDebounce = Duration(500 * time.Millisecond)
	}
	if cfg.Notes.HistorySize == 0 {
		cfg.Notes.HistorySize = 50
	}
	if cfg.Notes.RecentLimit == 0 {
		cfg.Notes.RecentLimit = 10
	}

	if cfg.Enhance.BaseURL == "" {
		cfg.Enhance.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Enhance.Model == "" {
		cfg.Enhance.Model = "gemini-2.5-flash"
	}
	if cfg.Enhance.Timeout == 0 {
		cfg.Enhance.Timeout = Duration(60 * time.Second)
	}
	if cfg.Enhance.MaxRetries == 0 {
		cfg.Enhance.MaxRetries = 3
	}
	if cfg.Enhance.InitialBackoff == 0 {
		cfg.Enhance.InitialBackoff = Duration(time.Second)
	}
	if cfg.Enhance.MaxBackoff == 0 {
		cfg.Enhance.MaxBackoff = Duration(30 * time.Second)
	}
	if cfg.Enhance.RateLimit == 0 {
		cfg.Enhance.RateLimit = 1
	}
	if cfg.Enhance.Burst == 0 {
		cfg.Enhance.Burst = 3
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "notesd"
	}
	if cfg.Observability.OTLPEndpoint == "" {
		cfg.Observability.OTLPEndpoint = "localhost:4317"
		cfg.Observability.OTLPInsecure = true
	}
	if cfg.Observability.OTLPProtocol == "" {
		cfg.Observability.OTLPProtocol = "grpc"
	}
	if cfg.Observability.SampleRate == 0 {
		cfg.Observability.SampleRate = 1.0
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
