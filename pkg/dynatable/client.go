// Package dynatable provides CRUD access to relational tables whose shape is
// only known at runtime.
//
// Tables are described as a list of columns, created on demand, and
// afterwards addressed by name. Existing tables are discovered by reading
// the database catalog, so a table created by another process or by hand can
// be used without declaring it.
//
// Example usage:
//
//	cfg := dynatable.DefaultConfig()
//	cfg.Database.Path = "app.db"
//
//	client, err := dynatable.NewClient(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	email, _ := dynatable.Column("email", "string", dynatable.Options{"unique": true})
//	users, err := client.Table(ctx, "users", email)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	rec, err := users.Create(ctx, dynatable.Record{"email": "a@example.com"})
package dynatable

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rzpsarthak13/dynatable/internal/client"
)

// Client is the main interface for working with dynamic tables.
// It is safe for concurrent use.
type Client interface {
	// Table returns a handle bound to one table. When the table does not
	// exist it is created from columns; with no columns it must already
	// exist.
	Table(ctx context.Context, name string, columns ...ColumnDef) (Table, error)

	// CreateTable creates a table with the implicit integer primary key "id"
	// followed by columns. It fails with *TableAlreadyExistsError when the
	// table exists.
	CreateTable(ctx context.Context, name string, columns ...ColumnDef) (*TableSchema, error)

	// DropTable drops a table and reports whether it existed.
	DropTable(ctx context.Context, name string) (bool, error)

	// TableExists asks the database catalog directly.
	TableExists(ctx context.Context, name string) (bool, error)

	// GetSchema returns the schema of an existing table.
	GetSchema(ctx context.Context, name string) (*TableSchema, error)

	// ListTables lists every table in the database.
	ListTables(ctx context.Context) ([]string, error)

	// Create inserts a record and returns the stored row with its new id.
	Create(ctx context.Context, table string, record Record) (Record, error)

	// Read returns the row with the given id. found is false when no such
	// row exists.
	Read(ctx context.Context, table string, id interface{}) (rec Record, found bool, err error)

	// ReadAll returns the rows equal to every filter, ordered by id.
	// A nil filter value matches NULL.
	ReadAll(ctx context.Context, table string, filters Record) ([]Record, error)

	// Update sets the given columns and returns the updated row.
	Update(ctx context.Context, table string, id interface{}, partial Record) (rec Record, found bool, err error)

	// Delete removes a row and reports whether it existed.
	Delete(ctx context.Context, table string, id interface{}) (bool, error)

	// EvictStale forgets cached schemas of tables that were dropped behind
	// the client's back and returns their names.
	EvictStale(ctx context.Context) ([]string, error)

	// SyncEvents applies table create and drop events from other clients
	// and returns how many were applied. It is a no-op without events.
	SyncEvents(ctx context.Context) (int, error)

	// Close closes all connections and releases resources.
	Close() error
}

// Option customizes a client.
type Option func(*clientOptions)

type clientOptions struct {
	logger *slog.Logger
	hooks  []LifecycleHook
}

// WithLogger sets the structured logger. Without it the client is silent.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithHook registers a hook for table creation and drop.
func WithHook(hook LifecycleHook) Option {
	return func(o *clientOptions) {
		o.hooks = append(o.hooks, hook)
	}
}

// configProvider implements client.ConfigProvider interface.
type configProvider struct {
	config *Config
}

func (cp *configProvider) GetYAML() ([]byte, error) {
	return cp.config.GetYAML()
}

// clientWrapper wraps the internal client implementation to provide the public interface.
type clientWrapper struct {
	impl *client.ClientImpl
}

// NewClient creates a client and opens every configured connection.
func NewClient(config *Config, opts ...Option) (Client, error) {
	return Open(context.Background(), config, opts...)
}

// Open is NewClient with a context bounding the connection setup.
func Open(ctx context.Context, config *Config, opts ...Option) (Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	impl, err := client.NewClientImpl(ctx, &configProvider{config: config}, o.logger)
	if err != nil {
		return nil, err
	}
	for _, hook := range o.hooks {
		impl.RegisterHook(hook)
	}
	return &clientWrapper{impl: impl}, nil
}

func (cw *clientWrapper) Table(ctx context.Context, name string, columns ...ColumnDef) (Table, error) {
	if _, err := cw.impl.EnsureTable(ctx, name, columns); err != nil {
		return nil, err
	}
	return &tableWrapper{name: name, client: cw}, nil
}

func (cw *clientWrapper) CreateTable(ctx context.Context, name string, columns ...ColumnDef) (*TableSchema, error) {
	return cw.impl.CreateTable(ctx, name, columns)
}

func (cw *clientWrapper) DropTable(ctx context.Context, name string) (bool, error) {
	return cw.impl.DropTable(ctx, name)
}

func (cw *clientWrapper) TableExists(ctx context.Context, name string) (bool, error) {
	return cw.impl.TableExists(ctx, name)
}

func (cw *clientWrapper) GetSchema(ctx context.Context, name string) (*TableSchema, error) {
	return cw.impl.GetSchema(ctx, name)
}

func (cw *clientWrapper) ListTables(ctx context.Context) ([]string, error) {
	return cw.impl.ListTables(ctx)
}

func (cw *clientWrapper) Create(ctx context.Context, table string, record Record) (Record, error) {
	return cw.impl.Create(ctx, table, record)
}

func (cw *clientWrapper) Read(ctx context.Context, table string, id interface{}) (Record, bool, error) {
	return cw.impl.Read(ctx, table, id)
}

func (cw *clientWrapper) ReadAll(ctx context.Context, table string, filters Record) ([]Record, error) {
	return cw.impl.ReadAll(ctx, table, filters)
}

func (cw *clientWrapper) Update(ctx context.Context, table string, id interface{}, partial Record) (Record, bool, error) {
	return cw.impl.Update(ctx, table, id, partial)
}

func (cw *clientWrapper) Delete(ctx context.Context, table string, id interface{}) (bool, error) {
	return cw.impl.Delete(ctx, table, id)
}

func (cw *clientWrapper) EvictStale(ctx context.Context) ([]string, error) {
	return cw.impl.EvictStale(ctx)
}

func (cw *clientWrapper) SyncEvents(ctx context.Context) (int, error) {
	return cw.impl.SyncEvents(ctx)
}

func (cw *clientWrapper) Close() error {
	return cw.impl.Close()
}
