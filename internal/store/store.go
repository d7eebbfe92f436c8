// Package store provides the key-value persistence backends behind notesd.
//
// Every backend satisfies Store. Values are opaque bytes; callers own the
// encoding. Backends are selected by New from the storage configuration and
// are wrapped with Prometheus instrumentation.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Well-known keys.
const (
	KeyNotes    = "notes"
	KeySettings = "settings"
)

var (
	// ErrNotFound is returned by Get when the key has never been written
	// or has been deleted.
	ErrNotFound = errors.New("key not found")

	// ErrInvalidKey is returned for keys the backends cannot address.
	ErrInvalidKey = errors.New("invalid key")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store closed")
)

// Store is a minimal key-value store.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists the live keys in no particular order.
	Keys(ctx context.Context) ([]string, error)

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error

	// Name identifies the backend ("sqlite", "nats", "memory").
	Name() string
}

// keyPattern matches keys valid for every backend. JetStream KV restricts
// keys to this alphabet, so the other backends enforce it too.
var keyPattern = regexp.MustCompile(`^[-/_=.a-zA-Z0-9]+$`)

// ValidateKey reports whether key can be stored by every backend.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
