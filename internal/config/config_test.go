package config

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8765, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, ProviderSQLite, cfg.Storage.Provider)
	assert.Equal(t, 500*time.Millisecond, cfg.Notes.SaveDebounce.Duration())
	assert.Equal(t, 50, cfg.Notes.HistorySize)
	assert.Equal(t, 10, cfg.Notes.RecentLimit)
	assert.Equal(t, 3, cfg.Enhance.MaxRetries)
	assert.Equal(t, time.Second, cfg.Enhance.InitialBackoff.Duration())
	assert.Equal(t, 30*time.Second, cfg.Enhance.MaxBackoff.Duration())
	assert.False(t, cfg.Enhance.APIKey.IsSet())
	assert.False(t, cfg.Observability.EnableTelemetry)

	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "port too low",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "port too high",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "invalid server port",
		},
		{
			name:    "shutdown timeout",
			mutate:  func(c *Config) { c.Server.ShutdownTimeout = 0 },
			wantErr: "shutdown timeout must be positive",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Storage.Provider = "redis" },
			wantErr: "unsupported storage provider",
		},
		{
			name:    "sqlite without path",
			mutate:  func(c *Config) { c.Storage.SQLite.Path = " " },
			wantErr: "storage.sqlite.path",
		},
		{
			name: "nats without bucket",
			mutate: func(c *Config) {
				c.Storage.Provider = ProviderNATS
				c.Storage.NATS.Bucket = ""
			},
			wantErr: "storage.nats.url and storage.nats.bucket",
		},
		{
			name: "memory needs nothing",
			mutate: func(c *Config) {
				c.Storage.Provider = ProviderMemory
				c.Storage.SQLite.Path = ""
			},
		},
		{
			name:    "history size",
			mutate:  func(c *Config) { c.Notes.HistorySize = 0 },
			wantErr: "notes.history_size",
		},
		{
			name:   "retries disabled",
			mutate: func(c *Config) { c.Enhance.MaxRetries = -1 },
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.Enhance.MaxRetries = -2 },
			wantErr: "enhance.max_retries",
		},
		{
			name: "backoff ordering",
			mutate: func(c *Config) {
				c.Enhance.InitialBackoff = Duration(time.Minute)
				c.Enhance.MaxBackoff = Duration(time.Second)
			},
			wantErr: "enhance backoff",
		},
		{
			name: "telemetry without service name",
			mutate: func(c *Config) {
				c.Observability.EnableTelemetry = true
				c.Observability.ServiceName = ""
			},
			wantErr: "service name required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSecret_Redaction(t *testing.T) {
	s := Secret("AIza-secret")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.NotContains(t, fmt.Sprintf("%#v", s), "AIza")
	assert.Equal(t, "AIza-secret", s.Value())
	assert.True(t, s.IsSet())

	data, err := json.Marshal(struct {
		Key Secret `json:"key"`
	}{Key: s})
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"[REDACTED]"}`, string(data))

	var empty Secret
	assert.Equal(t, "", empty.String())
	assert.False(t, empty.IsSet())
}

func TestSecret_UnmarshalJSON(t *testing.T) {
	var v struct {
		Key Secret `json:"key"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"key":"raw-value"}`), &v))
	assert.Equal(t, "raw-value", v.Key.Value())

	assert.True(t, Redacted("[REDACTED]"))
	assert.False(t, Redacted("raw-value"))
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("750ms")))
	assert.Equal(t, 750*time.Millisecond, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-1s")))
	assert.Error(t, d.UnmarshalText([]byte("soon")))

	text, err := Duration(2 * time.Second).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2s", string(text))
}
