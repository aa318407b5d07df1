package kvstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rzpsarthak13/dynatable/internal/core"
)

// RedisKVStore implements core.KVStore on Redis strings.
type RedisKVStore struct {
	client redis.UniversalClient
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewRedisKVStore wraps an existing client. The store owns the client and
// closes it on Close.
func NewRedisKVStore(client redis.UniversalClient, logger *slog.Logger) *RedisKVStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RedisKVStore{client: client, logger: logger}
}

// NewRedisClient builds a client from cfg and verifies it with PING. More than
// one endpoint selects cluster mode.
func NewRedisClient(ctx context.Context, cfg Config) (redis.UniversalClient, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("at least one endpoint is required")
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        cfg.Endpoints,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func (r *RedisKVStore) checkOpen() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrClosed
	}
	return nil
}

// Get retrieves a value by key from the store.
func (r *RedisKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.logger.Debug("key not found", "key", key)
		return nil, core.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	r.logger.Debug("key retrieved", "key", key, "bytes", len(val))
	return val, nil
}

// Set stores a key-value pair. A zero ttl never expires.
func (r *RedisKVStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.checkOpen(); err != nil {
		return err
	}

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	r.logger.Debug("key stored", "key", key, "bytes", len(value), "ttl", ttl)
	return nil
}

// Delete removes a key from the store.
func (r *RedisKVStore) Delete(ctx context.Context, key string) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying client.
func (r *RedisKVStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.client.Close()
}

// Client returns the underlying Redis client. The event stream queue shares it.
func (r *RedisKVStore) Client() redis.UniversalClient {
	return r.client
}

// RedisKVStoreFactory creates Redis KV stores.
type RedisKVStoreFactory struct{}

// Type returns the type identifier for this factory.
func (f *RedisKVStoreFactory) Type() string {
	return "redis"
}

// Validate validates the Redis-specific configuration.
func (f *RedisKVStoreFactory) Validate(cfg Config) error {
	if len(cfg.Endpoints) == 0 {
		return &core.ConfigError{Key: "cache.redis.endpoints", Reason: "at least one endpoint is required"}
	}
	if cfg.DB < 0 || cfg.DB > 15 {
		return &core.ConfigError{Key: "cache.redis.db", Reason: fmt.Sprintf("must be between 0 and 15, got %d", cfg.DB)}
	}
	if cfg.PoolSize < 0 {
		return &core.ConfigError{Key: "cache.redis.pool_size", Reason: "must be non-negative"}
	}
	if cfg.MinIdleConns < 0 {
		return &core.ConfigError{Key: "cache.redis.min_idle_conns", Reason: "must be non-negative"}
	}
	if cfg.MaxRetries < 0 {
		return &core.ConfigError{Key: "cache.max_retries", Reason: "must be non-negative"}
	}
	return nil
}

// Create connects to Redis.
func (f *RedisKVStoreFactory) Create(ctx context.Context, cfg Config, logger *slog.Logger) (core.KVStore, error) {
	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewRedisKVStore(client, logger), nil
}

func init() {
	RegisterFactory(&RedisKVStoreFactory{})
}
