package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

// NATSConfig configures a NATSStore.
type NATSConfig struct {
	URL     string
	Bucket  string
	Timeout time.Duration
}

// NATSStore is a Store backed by a JetStream key-value bucket.
//
// Writes are last-write-wins; no revision checks are made. The store keeps
// a single bucket revision per key (History 1).
type NATSStore struct {
	nc     *nats.Conn
	kv     jetstream.KeyValue
	bucket string
	logger *zap.Logger
}

// NewNATSStore connects to cfg.URL and binds (creating if needed) the bucket.
func NewNATSStore(ctx context.Context, cfg NATSConfig, logger *zap.Logger) (*NATSStore, error) {
	if cfg.URL == "" || cfg.Bucket == "" {
		return nil, errors.New("nats url and bucket are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name("notesd"),
		nats.Timeout(cfg.Timeout),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}

	s, err := newNATSStoreFromConn(ctx, nc, cfg.Bucket, logger)
	if err != nil {
		nc.Close()
		return nil, err
	}
	return s, nil
}

func newNATSStoreFromConn(ctx context.Context, nc *nats.Conn, bucket string, logger *zap.Logger) (*NATSStore, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "notesd notes and settings",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to bind key-value bucket %s: %w", bucket, err)
	}

	logger.Info("connected to NATS key-value bucket",
		zap.String("url", nc.ConnectedUrl()),
		zap.String("bucket", bucket))

	return &NATSStore{nc: nc, kv: kv, bucket: bucket, logger: logger}, nil
}

// Get implements Store.
func (s *NATSStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	entry, err := s.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("nats: get %s: %w", key, err)
	}
	return entry.Value(), nil
}

// Put implements Store.
func (s *NATSStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if _, err := s.kv.Put(ctx, key, value); err != nil {
		return fmt.Errorf("nats: put %s: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (s *NATSStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := s.kv.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("nats: delete %s: %w", key, err)
	}
	return nil
}

// Keys implements Store.
func (s *NATSStore) Keys(ctx context.Context) ([]string, error) {
	lister, err := s.kv.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("nats: keys: %w", err)
	}
	defer func() { _ = lister.Stop() }()

	var keys []string
	for k := range lister.Keys() {
		keys = append(keys, k)
	}
	return keys, nil
}

// Ping implements Store.
func (s *NATSStore) Ping(ctx context.Context) error {
	if !s.nc.IsConnected() {
		return fmt.Errorf("nats: not connected (status %s)", s.nc.Status())
	}
	if _, err := s.kv.Status(ctx); err != nil {
		return fmt.Errorf("nats: bucket status: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *NATSStore) Close() error {
	if err := s.nc.Drain(); err != nil {
		s.nc.Close()
		return fmt.Errorf("nats: drain: %w", err)
	}
	return nil
}

// Name implements Store.
func (s *NATSStore) Name() string { return "nats" }

// Bucket returns the bound bucket name.
func (s *NATSStore) Bucket() string { return s.bucket }
