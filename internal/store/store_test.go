package store

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// startTestNATSServer starts an embedded JetStream-enabled NATS server.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()

	opts := &natsserver.Options{
		Host:      "127.0.0.1",
		Port:      -1, // Random port
		NoLog:     true,
		NoSigs:    true,
		JetStream: true,
		StoreDir:  t.TempDir(),
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})

	return server
}

// backends returns one fresh store per backend.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	sqliteStore, err := NewSQLiteStore(SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)

	srv := startTestNATSServer(t)
	natsStore, err := NewNATSStore(ctx, NATSConfig{
		URL:    srv.ClientURL(),
		Bucket: "notesd-test",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
		"nats":   natsStore,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStore_Conformance(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			assert.Equal(t, name, s.Name())
			require.NoError(t, s.Ping(ctx))

			_, err := s.Get(ctx, KeyNotes)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Put(ctx, KeyNotes, []byte(`[{"id":"1"}]`)))
			got, err := s.Get(ctx, KeyNotes)
			require.NoError(t, err)
			assert.Equal(t, `[{"id":"1"}]`, string(got))

			require.NoError(t, s.Put(ctx, KeyNotes, []byte(`[]`)))
			got, err = s.Get(ctx, KeyNotes)
			require.NoError(t, err)
			assert.Equal(t, `[]`, string(got))

			require.NoError(t, s.Put(ctx, KeySettings, []byte(`{}`)))
			keys, err := s.Keys(ctx)
			require.NoError(t, err)
			sort.Strings(keys)
			assert.Equal(t, []string{KeyNotes, KeySettings}, keys)

			require.NoError(t, s.Delete(ctx, KeySettings))
			_, err = s.Get(ctx, KeySettings)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Delete(ctx, "never-written"))

			keys, err = s.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{KeyNotes}, keys)
		})
	}
}

func TestStore_InvalidKey(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, key := range []string{"", "has space", "star*", "gt>"} {
				err := s.Put(ctx, key, []byte("x"))
				assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
				_, err = s.Get(ctx, key)
				assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
			}
		})
	}
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	buf := []byte("abc")
	require.NoError(t, s.Put(ctx, "k", buf))
	buf[0] = 'z'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[1] = 'z'
	again, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestMemoryStore_Closed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Ping(ctx), ErrClosed)
	assert.ErrorIs(t, s.Put(ctx, "k", nil), ErrClosed)
	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "notes.db")

	s, err := NewSQLiteStore(SQLiteConfig{Path: path})
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())
	require.NoError(t, s.Put(ctx, KeyNotes, []byte(`[1,2,3]`)))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(SQLiteConfig{Path: path})
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, KeyNotes)
	require.NoError(t, err)
	assert.Equal(t, `[1,2,3]`, string(got))
}

func TestSQLiteStore_RequiresPath(t *testing.T) {
	_, err := NewSQLiteStore(SQLiteConfig{})
	assert.Error(t, err)
}

func TestIsBusy(t *testing.T) {
	assert.False(t, isBusy(nil))
	assert.True(t, isBusy(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.True(t, isBusy(errors.New("database table is locked")))
	assert.False(t, isBusy(errors.New("no such table")))
}

func TestNATSStore_SharedBucket(t *testing.T) {
	ctx := context.Background()
	srv := startTestNATSServer(t)
	cfg := NATSConfig{URL: srv.ClientURL(), Bucket: "shared"}

	a, err := NewNATSStore(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close()
	b, err := NewNATSStore(ctx, cfg, nil)
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, "shared", a.Bucket())
	require.NoError(t, a.Put(ctx, KeyNotes, []byte("from-a")))

	got, err := b.Get(ctx, KeyNotes)
	require.NoError(t, err)
	assert.Equal(t, "from-a", string(got))
}

func TestNATSStore_ConnectFailure(t *testing.T) {
	_, err := NewNATSStore(context.Background(), NATSConfig{
		URL:     "nats://127.0.0.1:1",
		Bucket:  "x",
		Timeout: 200 * time.Millisecond,
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to NATS")
}
