// Package storage is the client's key/value substrate: the server-side
// stand-in for browser local storage. Callers receive a Store explicitly
// instead of reaching for global state, so tests can swap in a MemoryStore.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jrschumacher/complyhub/internal/config"
)

var (
	// ErrNotFound is returned by Get when the key has never been set.
	ErrNotFound = errors.New("storage key not found")
	// ErrEmptyKey is returned for operations on the empty key.
	ErrEmptyKey = errors.New("storage key cannot be empty")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("storage closed")
)

// Store is a string-to-string map with synchronous, last-write-wins
// semantics. Single operations are safe for concurrent use; sequences of
// operations are not isolated from each other.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Keys lists every stored key in no particular order.
	Keys(ctx context.Context) ([]string, error)

	// Close releases backend resources.
	Close() error
}

// Open builds the Store selected by cfg.StorageDriver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StorageDriver {
	case "", config.StorageMemory:
		return NewMemoryStore(), nil
	case config.StorageFile:
		return NewFileStore(cfg.StoragePath)
	case config.StorageSQL:
		return NewSQLStore(ctx, cfg.DatabaseURL, cfg.AppEnv)
	case config.StorageRedis:
		return NewRedisStore(ctx, RedisConfig{URL: cfg.RedisURL})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
