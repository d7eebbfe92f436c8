package store

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/notesd/internal/config"
	"go.uber.org/zap"
)

// New creates the Store selected by cfg.Storage.Provider:
//   - "sqlite" (default): local database file, no external services
//   - "nats": JetStream key-value bucket on a NATS server
//   - "memory": in-process map, for tests and throwaway runs
//
// The returned store is instrumented with Prometheus metrics.
//
// Example usage:
//
//	st, err := store.New(ctx, cfg, logger)
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		s   Store
		err error
	)

	switch cfg.Storage.Provider {
	case config.ProviderSQLite, "":
		s, err = NewSQLiteStore(SQLiteConfig{Path: cfg.Storage.SQLite.Path})

	case config.ProviderNATS:
		s, err = NewNATSStore(ctx, NATSConfig{
			URL:     cfg.Storage.NATS.URL,
			Bucket:  cfg.Storage.NATS.Bucket,
			Timeout: cfg.Storage.NATS.Timeout.Duration(),
		}, logger)

	case config.ProviderMemory:
		s = NewMemoryStore()

	default:
		return nil, fmt.Errorf("unsupported storage provider: %s (supported: sqlite, nats, memory)", cfg.Storage.Provider)
	}

	if err != nil {
		return nil, err
	}

	logger.Info("store opened", zap.String("backend", s.Name()))
	return Instrument(s), nil
}
