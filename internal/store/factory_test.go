package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fyrsmithlabs/notesd/internal/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNew(t *testing.T) {
	ctx := context.Background()
	srv := startTestNATSServer(t)

	tests := []struct {
		name     string
		mutate   func(*config.Config)
		wantName string
		wantErr  bool
	}{
		{
			name: "sqlite default",
			mutate: func(c *config.Config) {
				c.Storage.SQLite.Path = filepath.Join(t.TempDir(), "notes.db")
			},
			wantName: "sqlite",
		},
		{
			name:     "memory",
			mutate:   func(c *config.Config) { c.Storage.Provider = config.ProviderMemory },
			wantName: "memory",
		},
		{
			name: "nats",
			mutate: func(c *config.Config) {
				c.Storage.Provider = config.ProviderNATS
				c.Storage.NATS.URL = srv.ClientURL()
				c.Storage.NATS.Bucket = "factory"
			},
			wantName: "nats",
		},
		{
			name:    "unsupported",
			mutate:  func(c *config.Config) { c.Storage.Provider = "redis" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)

			s, err := New(ctx, cfg, zaptest.NewLogger(t))
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unsupported storage provider")
				return
			}
			require.NoError(t, err)
			defer s.Close()

			assert.Equal(t, tt.wantName, s.Name())
			assert.Equal(t, tt.wantName, Unwrap(s).Name())
			require.NoError(t, s.Ping(ctx))
		})
	}
}

func TestInstrument_RecordsOperations(t *testing.T) {
	ctx := context.Background()
	s := Instrument(NewMemoryStore())
	assert.Same(t, s, Instrument(s))

	before := testutil.ToFloat64(OperationsTotal.WithLabelValues("memory", "get", "not_found"))
	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	after := testutil.ToFloat64(OperationsTotal.WithLabelValues("memory", "get", "not_found"))
	assert.Equal(t, before+1, after)

	before = testutil.ToFloat64(OperationsTotal.WithLabelValues("memory", "put", "success"))
	require.NoError(t, s.Put(ctx, "k", []byte("v")))
	after = testutil.ToFloat64(OperationsTotal.WithLabelValues("memory", "put", "success"))
	assert.Equal(t, before+1, after)

	before = testutil.ToFloat64(OperationsTotal.WithLabelValues("memory", "put", "error"))
	assert.Error(t, s.Put(ctx, "bad key", []byte("v")))
	after = testutil.ToFloat64(OperationsTotal.WithLabelValues("memory", "put", "error"))
	assert.Equal(t, before+1, after)
}
