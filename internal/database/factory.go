package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rzpsarthak13/dynatable/internal/core"
)

// Config describes how to reach one storage engine.
type Config struct {
	Type     string
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// Path is the database file for embedded engines. Empty means in-memory.
	Path string

	MaxOpenConns      int
	MaxIdleConns      int
	ConnMaxLifetime   time.Duration
	ConnMaxIdleTime   time.Duration
	ConnectionTimeout time.Duration
}

// Factory is the strategy for opening one engine type. Each engine registers
// its factory from init().
type Factory interface {
	// Type returns the engine identifier (mysql, postgres, sqlite, duckdb).
	Type() string

	// Validate checks the engine specific fields of cfg.
	Validate(cfg Config) error

	// Open connects to the engine and verifies the connection.
	Open(ctx context.Context, cfg Config, logger *slog.Logger) (core.Database, error)
}

// UnknownDriverError is returned when no factory is registered for a type.
type UnknownDriverError struct {
	Type      string
	Available []string
}

func (e *UnknownDriverError) Error() string {
	return fmt.Sprintf("unsupported database type %q (available: %s)", e.Type, strings.Join(e.Available, ", "))
}

func (e *UnknownDriverError) Is(target error) bool { return target == core.ErrConfig }

var (
	factories = make(map[string]Factory)
	aliases   = map[string]string{"postgresql": "postgres", "sqlite3": "sqlite"}
	factoryMu sync.RWMutex
)

// RegisterFactory registers an engine factory. Registering a type twice panics.
func RegisterFactory(f Factory) {
	if f == nil {
		panic("factory cannot be nil")
	}
	if f.Type() == "" {
		panic("factory type cannot be empty")
	}

	factoryMu.Lock()
	defer factoryMu.Unlock()

	if _, exists := factories[f.Type()]; exists {
		panic(fmt.Sprintf("factory for type %q is already registered", f.Type()))
	}
	factories[f.Type()] = f
}

// NormalizeType lower-cases an engine type and resolves aliases.
func NormalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if alias, ok := aliases[t]; ok {
		return alias
	}
	return t
}

// AvailableTypes returns the registered engine types, sorted.
func AvailableTypes() []string {
	factoryMu.RLock()
	defer factoryMu.RUnlock()

	types := make([]string, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func lookup(t string) (Factory, error) {
	factoryMu.RLock()
	f, ok := factories[NormalizeType(t)]
	factoryMu.RUnlock()
	if !ok {
		return nil, &UnknownDriverError{Type: t, Available: AvailableTypes()}
	}
	return f, nil
}

// Validate checks cfg against the factory registered for cfg.Type.
func Validate(cfg Config) error {
	if cfg.Type == "" {
		return &core.ConfigError{Key: "database.type", Reason: "is required"}
	}
	f, err := lookup(cfg.Type)
	if err != nil {
		return err
	}
	return f.Validate(cfg)
}

// Open connects to the engine selected by cfg.Type.
// Connection failures are returned as core.StorageEngineError.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (core.Database, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Type == "" {
		return nil, &core.ConfigError{Key: "database.type", Reason: "is required"}
	}
	f, err := lookup(cfg.Type)
	if err != nil {
		return nil, err
	}
	if err := f.Validate(cfg); err != nil {
		return nil, err
	}

	db, err := f.Open(ctx, cfg, logger)
	if err != nil {
		return nil, core.NewStorageError("connect", "", err)
	}
	logger.Info("database connected", "engine", f.Type())
	return db, nil
}

// configurePool applies pool settings. Zero values keep the driver defaults.
func configurePool(db *sql.DB, cfg Config) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// ping verifies the connection, bounded by the configured timeout.
func ping(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

func requireField(key, value string) error {
	if strings.TrimSpace(value) == "" {
		return &core.ConfigError{Key: key, Reason: "is required"}
	}
	return nil
}
