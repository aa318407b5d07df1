package kvstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rzpsarthak13/dynatable/internal/core"
)

// ErrClosed is returned by every operation on a closed store.
var ErrClosed = errors.New("kv store is closed")

// Factory is the Strategy interface for creating KV store implementations.
// Each backend (memory, Redis, DynamoDB) registers one from init().
type Factory interface {
	// Create creates a new KV store instance based on the provided configuration.
	Create(ctx context.Context, cfg Config, logger *slog.Logger) (core.KVStore, error)

	// Type returns the type identifier for this factory (e.g., "redis", "dynamodb").
	Type() string

	// Validate validates the configuration specific to this KV store type.
	Validate(cfg Config) error
}

// Config represents the configuration needed to create a KV store.
type Config struct {
	Type string

	// Redis
	Endpoints    []string
	Password     string
	DB           int
	MaxRetries   int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// DynamoDB
	Region          string
	TableName       string
	Endpoint        string // optional, for LocalStack
	AccessKeyID     string // optional, IAM role otherwise
	SecretAccessKey string
}

var (
	factoryRegistry = make(map[string]Factory)
	registryMutex   sync.RWMutex
)

// RegisterFactory registers a KV store factory.
func RegisterFactory(factory Factory) {
	if factory == nil {
		panic("factory cannot be nil")
	}
	if factory.Type() == "" {
		panic("factory type cannot be empty")
	}

	registryMutex.Lock()
	defer registryMutex.Unlock()

	if _, exists := factoryRegistry[factory.Type()]; exists {
		panic(fmt.Sprintf("factory for type %q is already registered", factory.Type()))
	}
	factoryRegistry[factory.Type()] = factory
}

func lookup(storeType string) (Factory, error) {
	registryMutex.RLock()
	factory, exists := factoryRegistry[storeType]
	registryMutex.RUnlock()
	if !exists {
		return nil, &core.ConfigError{
			Key:    "cache.type",
			Reason: fmt.Sprintf("unsupported kv store type %q (available: %v)", storeType, RegisteredTypes()),
		}
	}
	return factory, nil
}

// Validate checks cfg against the factory registered for cfg.Type.
func Validate(cfg Config) error {
	if cfg.Type == "" {
		return &core.ConfigError{Key: "cache.type", Reason: "is required"}
	}
	factory, err := lookup(cfg.Type)
	if err != nil {
		return err
	}
	return factory.Validate(cfg)
}

// Create creates a KV store instance using the factory registered for cfg.Type.
func Create(ctx context.Context, cfg Config, logger *slog.Logger) (core.KVStore, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	factory, err := lookup(cfg.Type)
	if err != nil {
		return nil, err
	}

	store, err := factory.Create(ctx, cfg, logger.With("kvstore", cfg.Type))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s kv store: %w", cfg.Type, err)
	}
	return store, nil
}

// RegisteredTypes returns the registered KV store types, sorted.
func RegisteredTypes() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	types := make([]string, 0, len(factoryRegistry))
	for t := range factoryRegistry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// IsTypeRegistered checks if a KV store type is registered.
func IsTypeRegistered(storeType string) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	_, exists := factoryRegistry[storeType]
	return exists
}
