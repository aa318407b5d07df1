package core

import (
	"context"
	"time"
)

// KVStore defines the interface for key-value store operations.
// It backs the shared second-level schema cache.
type KVStore interface {
	// Get retrieves a value by key from the store.
	// Returns ErrKeyNotFound if the key does not exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a key-value pair with an optional TTL.
	// If ttl is 0, the key will not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key from the store. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close closes the connection to the KV store and releases resources.
	Close() error
}
