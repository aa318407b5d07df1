// Package client wires configuration, storage, the schema registry and the
// CRUD engine into one object the public package can wrap.
package client

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
	"github.com/rzpsarthak13/dynatable/internal/database"
	"github.com/rzpsarthak13/dynatable/internal/events"
	"github.com/rzpsarthak13/dynatable/internal/kvstore"
	"github.com/rzpsarthak13/dynatable/internal/registry"
	"github.com/rzpsarthak13/dynatable/internal/table"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("client is closed")

// ConfigProvider is an interface to provide configuration as YAML without importing the public package.
type ConfigProvider interface {
	GetYAML() ([]byte, error)
}

// ClientImpl is the default implementation of the public Client interface.
type ClientImpl struct {
	mu       sync.RWMutex
	database core.Database
	kvStore  core.KVStore
	events   core.EventQueue
	registry *registry.SchemaRegistry
	engine   *table.Engine
	logger   *slog.Logger
	closed   bool
}

// NewClientImpl creates a client from YAML configuration and opens every
// configured connection. Connections opened before a failure are closed.
func NewClientImpl(ctx context.Context, configProvider ConfigProvider, logger *slog.Logger) (*ClientImpl, error) {
	if configProvider == nil {
		return nil, fmt.Errorf("config provider cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	configMgr := registry.NewConfigManager()
	yamlData, err := configProvider.GetYAML()
	if err != nil {
		return nil, fmt.Errorf("failed to get config YAML: %w", err)
	}
	if err := configMgr.LoadFromYAML(yamlData); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	c := &ClientImpl{logger: logger}
	if err := c.initializeConnections(ctx, configMgr.GetConfig()); err != nil {
		_ = c.closeResources()
		return nil, fmt.Errorf("failed to initialize connections: %w", err)
	}
	return c, nil
}

// NewClientFromConfig is NewClientImpl for an already loaded configuration.
func NewClientFromConfig(ctx context.Context, config *registry.InternalConfig, logger *slog.Logger) (*ClientImpl, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &ClientImpl{logger: logger}
	if err := c.initializeConnections(ctx, config); err != nil {
		_ = c.closeResources()
		return nil, fmt.Errorf("failed to initialize connections: %w", err)
	}
	return c, nil
}

// NewClientFromDatabase creates a client around an open database. The client
// takes ownership of db and of the store and queue in opts.
func NewClientFromDatabase(db core.Database, opts registry.Options) *ClientImpl {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	reg := registry.NewSchemaRegistry(db, opts)
	return &ClientImpl{
		database: db,
		kvStore:  opts.Store,
		events:   opts.Events,
		registry: reg,
		engine:   table.NewEngine(db, reg, opts.Logger),
		logger:   opts.Logger,
	}
}

// initializeConnections opens the database, the optional L2 cache and the
// optional event queue, then builds the registry and engine on top.
func (c *ClientImpl) initializeConnections(ctx context.Context, config *registry.InternalConfig) error {
	db, err := database.Open(ctx, config.DatabaseConfig(), c.logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	c.database = db

	if config.CacheEnabled() {
		store, err := kvstore.Create(ctx, config.KVStoreConfig(), c.logger)
		if err != nil {
			return fmt.Errorf("failed to create KV store: %w", err)
		}
		c.kvStore = store
	}

	if config.EventsEnabled() {
		var redisClient redis.UniversalClient
		if rs, ok := c.kvStore.(*kvstore.RedisKVStore); ok {
			redisClient = rs.Client()
		}
		queue, err := events.Open(ctx, config.EventsConfig(), redisClient, c.logger)
		if err != nil {
			return fmt.Errorf("failed to open event queue: %w", err)
		}
		c.events = queue
	}

	opts := config.RegistryOptions()
	opts.Store = c.kvStore
	opts.Events = c.events
	opts.Logger = c.logger
	c.registry = registry.NewSchemaRegistry(db, opts)
	c.engine = table.NewEngine(db, c.registry, c.logger)

	c.logger.Info("client initialized",
		slog.String("database", db.Dialect().Name()),
		slog.Bool("cache", c.kvStore != nil),
		slog.Bool("events", c.events != nil))
	return nil
}

// begin guards against a closed client and logs the call. The returned func
// logs completion with the elapsed time.
func (c *ClientImpl) begin(op, tableName string) (func(error), error) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	start := time.Now()
	c.logger.Debug("operation started", slog.String("op", op), slog.String("table", tableName))
	return func(err error) {
		attrs := []any{slog.String("op", op), slog.String("table", tableName), slog.Duration("elapsed", time.Since(start))}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
		}
		c.logger.Debug("operation finished", attrs...)
	}, nil
}

// Create inserts a record into an existing table.
func (c *ClientImpl) Create(ctx context.Context, tableName string, record core.Record) (out core.Record, err error) {
	done, err := c.begin("create", tableName)
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()
	return c.engine.Create(ctx, tableName, record)
}

// Read returns a record by primary key.
func (c *ClientImpl) Read(ctx context.Context, tableName string, id interface{}) (out core.Record, found bool, err error) {
	done, err := c.begin("read", tableName)
	if err != nil {
		return nil, false, err
	}
	defer func() { done(err) }()
	return c.engine.Read(ctx, tableName, id)
}

// ReadAll returns the records matching every filter.
func (c *ClientImpl) ReadAll(ctx context.Context, tableName string, filters core.Record) (out []core.Record, err error) {
	done, err := c.begin("read_all", tableName)
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()
	return c.engine.ReadAll(ctx, tableName, filters)
}

// Update applies a partial update.
func (c *ClientImpl) Update(ctx context.Context, tableName string, id interface{}, partial core.Record) (out core.Record, found bool, err error) {
	done, err := c.begin("update", tableName)
	if err != nil {
		return nil, false, err
	}
	defer func() { done(err) }()
	return c.engine.Update(ctx, tableName, id, partial)
}

// Delete removes a record.
func (c *ClientImpl) Delete(ctx context.Context, tableName string, id interface{}) (deleted bool, err error) {
	done, err := c.begin("delete", tableName)
	if err != nil {
		return false, err
	}
	defer func() { done(err) }()
	return c.engine.Delete(ctx, tableName, id)
}

// CreateTable creates a table. It fails when the table already exists.
func (c *ClientImpl) CreateTable(ctx context.Context, tableName string, columns []core.ColumnDef) (ts *core.TableSchema, err error) {
	done, err := c.begin("create_table", tableName)
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()
	return c.registry.CreateTable(ctx, tableName, columns)
}

// EnsureTable returns the schema of tableName, creating it from columns when
// it does not exist.
func (c *ClientImpl) EnsureTable(ctx context.Context, tableName string, columns []core.ColumnDef) (ts *core.TableSchema, err error) {
	done, err := c.begin("ensure_table", tableName)
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()
	return c.registry.Resolve(ctx, tableName, columns)
}

// DropTable drops a table.
func (c *ClientImpl) DropTable(ctx context.Context, tableName string) (dropped bool, err error) {
	done, err := c.begin("drop_table", tableName)
	if err != nil {
		return false, err
	}
	defer func() { done(err) }()
	return c.registry.DropTable(ctx, tableName)
}

// TableExists asks the catalog, bypassing every cache.
func (c *ClientImpl) TableExists(ctx context.Context, tableName string) (exists bool, err error) {
	done, err := c.begin("table_exists", tableName)
	if err != nil {
		return false, err
	}
	defer func() { done(err) }()
	return c.registry.TableExists(ctx, tableName)
}

// GetSchema resolves the schema of an existing table.
func (c *ClientImpl) GetSchema(ctx context.Context, tableName string) (ts *core.TableSchema, err error) {
	done, err := c.begin("get_schema", tableName)
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()
	return c.registry.Resolve(ctx, tableName, nil)
}

// ListTables lists the physical tables of the database.
func (c *ClientImpl) ListTables(ctx context.Context) (names []string, err error) {
	done, err := c.begin("list_tables", "")
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()
	names, err = c.database.ListTables(ctx)
	if err != nil {
		return nil, core.NewStorageError("list tables", "", err)
	}
	return names, nil
}

// EvictStale drops cached schemas whose tables no longer exist.
func (c *ClientImpl) EvictStale(ctx context.Context) (evicted []string, err error) {
	done, err := c.begin("evict_stale", "")
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()
	return c.registry.EvictStale(ctx)
}

// Forget evicts the cached schema of tableName everywhere it is shared.
func (c *ClientImpl) Forget(ctx context.Context, tableName string) (err error) {
	done, err := c.begin("forget", tableName)
	if err != nil {
		return err
	}
	defer func() { done(err) }()
	c.registry.Forget(ctx, tableName)
	return nil
}

// SyncEvents applies schema events published by other instances.
func (c *ClientImpl) SyncEvents(ctx context.Context) (applied int, err error) {
	done, err := c.begin("sync_events", "")
	if err != nil {
		return 0, err
	}
	defer func() { done(err) }()
	return c.registry.SyncEvents(ctx)
}

// CachedTables lists the tables whose schemas are held in memory.
func (c *ClientImpl) CachedTables() []string {
	return c.registry.Cached()
}

// RegisterHook subscribes hook to table creation and drop.
func (c *ClientImpl) RegisterHook(hook registry.LifecycleHook) (unregister func()) {
	return c.registry.Lifecycle().RegisterHook(hook)
}

// Close closes all connections and releases resources. It is idempotent.
func (c *ClientImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.closeResources()
}

func (c *ClientImpl) closeResources() error {
	var errs []error
	if c.events != nil {
		if err := c.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close event queue: %w", err))
		}
	}
	if c.kvStore != nil {
		if err := c.kvStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close KV store: %w", err))
		}
	}
	if c.database != nil {
		if err := c.database.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
