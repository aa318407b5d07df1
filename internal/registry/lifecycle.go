package registry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/rzpsarthak13/dynatable/internal/core"
	"github.com/rzpsarthak13/dynatable/internal/schema"
)

// LifecycleHook observes table creation and removal.
// Hooks run synchronously after the DDL has succeeded and after the registry
// has released the table, so a hook may resolve or write to it. A hook error
// is logged and does not undo the DDL.
type LifecycleHook interface {
	// OnCreate is called after a table was created.
	OnCreate(ctx context.Context, schema *core.TableSchema) error

	// OnDrop is called after a table was dropped.
	OnDrop(ctx context.Context, tableName string) error
}

// LifecycleHookFunc lets plain functions be used as hooks.
type LifecycleHookFunc struct {
	OnCreateFunc func(ctx context.Context, schema *core.TableSchema) error
	OnDropFunc   func(ctx context.Context, tableName string) error
}

// OnCreate calls OnCreateFunc if it's not nil.
func (f LifecycleHookFunc) OnCreate(ctx context.Context, schema *core.TableSchema) error {
	if f.OnCreateFunc != nil {
		return f.OnCreateFunc(ctx, schema)
	}
	return nil
}

// OnDrop calls OnDropFunc if it's not nil.
func (f LifecycleHookFunc) OnDrop(ctx context.Context, tableName string) error {
	if f.OnDropFunc != nil {
		return f.OnDropFunc(ctx, tableName)
	}
	return nil
}

// LifecycleManager checks, creates and drops physical tables. It owns no cache.
type LifecycleManager struct {
	db      core.Database
	builder *schema.StatementBuilder
	logger  *slog.Logger

	mu     sync.RWMutex
	hooks  []hookEntry
	nextID uint64
}

type hookEntry struct {
	id   uint64
	hook LifecycleHook
}

// NewLifecycleManager creates a lifecycle manager on db.
func NewLifecycleManager(db core.Database, logger *slog.Logger) *LifecycleManager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LifecycleManager{
		db:      db,
		builder: schema.NewStatementBuilder(db.Dialect()),
		logger:  logger,
	}
}

// RegisterHook registers a hook and returns a function that removes it.
// Hooks run in registration order.
func (lm *LifecycleManager) RegisterHook(hook LifecycleHook) (unregister func()) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.nextID++
	id := lm.nextID
	lm.hooks = append(lm.hooks, hookEntry{id: id, hook: hook})

	return func() {
		lm.mu.Lock()
		defer lm.mu.Unlock()
		for i, h := range lm.hooks {
			if h.id == id {
				lm.hooks = append(lm.hooks[:i], lm.hooks[i+1:]...)
				return
			}
		}
	}
}

// HookCount returns the number of registered hooks.
func (lm *LifecycleManager) HookCount() int {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return len(lm.hooks)
}

func (lm *LifecycleManager) snapshotHooks() []LifecycleHook {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	hooks := make([]LifecycleHook, len(lm.hooks))
	for i, h := range lm.hooks {
		hooks[i] = h.hook
	}
	return hooks
}

// TableExists asks the catalog. The answer is never cached.
func (lm *LifecycleManager) TableExists(ctx context.Context, name string) (bool, error) {
	exists, err := lm.db.TableExists(ctx, name)
	if err != nil {
		return false, core.NewStorageError("check table", name, err)
	}
	return exists, nil
}

// BuildSchema validates caller columns and returns the schema CreateTable
// would create, with the implicit id column first.
func BuildSchema(name string, columns []core.ColumnDef) (*core.TableSchema, error) {
	if !schema.ValidIdentifier(name) {
		return nil, &core.SchemaError{Table: name, Reason: "invalid table name"}
	}
	if len(columns) == 0 {
		return nil, &core.SchemaError{Table: name, Reason: "at least one column is required"}
	}

	out := &core.TableSchema{
		Name:    name,
		Columns: make([]core.ColumnDef, 0, len(columns)+1),
	}
	out.Columns = append(out.Columns, core.IDColumnDef())

	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		switch {
		case !schema.ValidIdentifier(col.Name):
			return nil, &core.SchemaError{Table: name, Column: col.Name, Reason: "invalid column name"}
		case col.Name == core.IDColumn:
			return nil, &core.SchemaError{Table: name, Column: col.Name, Reason: "the id column is added implicitly"}
		case col.PrimaryKey:
			return nil, &core.SchemaError{Table: name, Column: col.Name, Reason: "the primary key is the implicit id column"}
		case seen[col.Name]:
			return nil, &core.SchemaError{Table: name, Column: col.Name, Reason: "duplicate column"}
		}
		if _, err := schema.ParseType(string(col.Type)); err != nil {
			return nil, err
		}
		seen[col.Name] = true

		if col.Type == core.TypeString && col.Length <= 0 {
			col.Length = core.DefaultStringLength
		}
		if col.Type != core.TypeString {
			col.Length = 0
		}
		col.AutoIncrement = false
		col.ServerDefault = ""
		out.Columns = append(out.Columns, col)
	}
	return out, nil
}

// CreateTable creates the table with an implicit auto-increment id primary key.
//
// Existence is checked before the DDL runs. Two callers can both pass the
// check; the loser's DDL fails and is reported as TableAlreadyExistsError.
func (lm *LifecycleManager) CreateTable(ctx context.Context, name string, columns []core.ColumnDef) (*core.TableSchema, error) {
	ts, err := lm.createTable(ctx, name, columns)
	if err != nil {
		return nil, err
	}
	lm.notifyCreate(ctx, ts)
	return ts, nil
}

// createTable runs the DDL without notifying hooks.
func (lm *LifecycleManager) createTable(ctx context.Context, name string, columns []core.ColumnDef) (*core.TableSchema, error) {
	ts, err := BuildSchema(name, columns)
	if err != nil {
		return nil, err
	}

	exists, err := lm.TableExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &core.TableAlreadyExistsError{Table: name}
	}

	for _, stmt := range lm.builder.CreateTable(ts) {
		if err := lm.db.ExecDDL(ctx, stmt); err != nil {
			if lm.db.Dialect().IsDuplicateTable(err) {
				return nil, &core.TableAlreadyExistsError{Table: name}
			}
			return nil, core.NewStorageError("create table", name, err)
		}
	}
	lm.logger.Info("table created", slog.String("table", name), slog.Int("columns", len(ts.Columns)))
	return ts, nil
}

func (lm *LifecycleManager) notifyCreate(ctx context.Context, ts *core.TableSchema) {
	for _, hook := range lm.snapshotHooks() {
		if err := hook.OnCreate(ctx, ts.Clone()); err != nil {
			lm.logger.Warn("create hook failed", slog.String("table", ts.Name), slog.Any("error", err))
		}
	}
}

// DropTable drops an existing table and reports true.
func (lm *LifecycleManager) DropTable(ctx context.Context, name string) (bool, error) {
	dropped, err := lm.dropTable(ctx, name)
	if err != nil {
		return false, err
	}
	lm.notifyDrop(ctx, name)
	return dropped, nil
}

// dropTable runs the DDL without notifying hooks.
func (lm *LifecycleManager) dropTable(ctx context.Context, name string) (bool, error) {
	exists, err := lm.TableExists(ctx, name)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, &core.TableNotFoundError{Table: name}
	}

	for _, stmt := range lm.builder.DropTable(name) {
		if err := lm.db.ExecDDL(ctx, stmt); err != nil {
			return false, core.NewStorageError("drop table", name, fmt.Errorf("%s: %w", stmt, err))
		}
	}
	lm.logger.Info("table dropped", slog.String("table", name))
	return true, nil
}

func (lm *LifecycleManager) notifyDrop(ctx context.Context, name string) {
	for _, hook := range lm.snapshotHooks() {
		if err := hook.OnDrop(ctx, name); err != nil {
			lm.logger.Warn("drop hook failed", slog.String("table", name), slog.Any("error", err))
		}
	}
}
