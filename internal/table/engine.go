// Package table implements generic record CRUD over tables whose shape is
// only known at runtime.
package table

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/rzpsarthak13/dynatable/internal/core"
	"github.com/rzpsarthak13/dynatable/internal/schema"
)

// SchemaResolver resolves a table name to its schema. columns is nil for
// lookups that must not create the table.
type SchemaResolver interface {
	Resolve(ctx context.Context, name string, columns []core.ColumnDef) (*core.TableSchema, error)
}

// Engine runs create, read, update and delete against any resolved table.
// Every operation resolves the schema first and validates its input before a
// transaction is opened.
type Engine struct {
	db        core.Database
	resolver  SchemaResolver
	builder   *schema.StatementBuilder
	validator *schema.Validator
	logger    *slog.Logger
}

// NewEngine creates an engine on db.
func NewEngine(db core.Database, resolver SchemaResolver, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		db:        db,
		resolver:  resolver,
		builder:   schema.NewStatementBuilder(db.Dialect()),
		validator: schema.NewValidator(),
		logger:    logger,
	}
}

// Create inserts a record and returns the stored row, generated id included.
// Omitted columns get their client-side default.
func (e *Engine) Create(ctx context.Context, table string, record core.Record) (core.Record, error) {
	ts, err := e.resolver.Resolve(ctx, table, nil)
	if err != nil {
		return nil, err
	}
	prepared, err := e.validator.PrepareInsert(ts, record)
	if err != nil {
		return nil, err
	}
	query, args := e.builder.Insert(ts, prepared)

	var out core.Record
	err = e.withTx(ctx, "create record", table, func(tx core.Transaction) error {
		id, err := e.insert(ctx, tx, query, args)
		if err != nil {
			return err
		}
		key, err := e.validator.CoerceKey(ts, id)
		if err != nil {
			return err
		}
		row, found, err := e.selectOne(ctx, tx, ts, key)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("inserted row %v not found", key)
		}
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Debug("record created", slog.String("table", table), slog.Any("id", out[core.IDColumn]))
	return out, nil
}

func (e *Engine) insert(ctx context.Context, tx core.Transaction, query string, args []interface{}) (interface{}, error) {
	if !e.builder.Dialect().SupportsReturning() {
		result, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to read generated id: %w", err)
		}
		return id, nil
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("insert returned no id")
	}
	var id interface{}
	if err := rows.Scan(&id); err != nil {
		return nil, fmt.Errorf("failed to scan generated id: %w", err)
	}
	return id, nil
}

// Read returns the row with the given primary key. found is false when no
// such row exists.
func (e *Engine) Read(ctx context.Context, table string, id interface{}) (core.Record, bool, error) {
	ts, err := e.resolver.Resolve(ctx, table, nil)
	if err != nil {
		return nil, false, err
	}
	key, err := e.validator.CoerceKey(ts, id)
	if err != nil {
		return nil, false, err
	}

	var (
		out   core.Record
		found bool
	)
	err = e.withTx(ctx, "read record", table, func(tx core.Transaction) error {
		out, found, err = e.selectOne(ctx, tx, ts, key)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return out, found, nil
}

// ReadAll returns the rows matching every filter, ordered by primary key.
// A nil filter value matches NULL. Unknown filter keys are rejected.
func (e *Engine) ReadAll(ctx context.Context, table string, filters core.Record) ([]core.Record, error) {
	ts, err := e.resolver.Resolve(ctx, table, nil)
	if err != nil {
		return nil, err
	}
	prepared, err := e.validator.PrepareFilters(ts, filters)
	if err != nil {
		return nil, err
	}
	query, args := e.builder.SelectAll(ts, prepared)

	out := make([]core.Record, 0)
	err = e.withTx(ctx, "read records", table, func(tx core.Transaction) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			row, err := e.builder.ScanRecord(rows, ts)
			if err != nil {
				return err
			}
			out = append(out, row)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies the present keys of partial to the row and returns the
// updated row. found is false when no such row exists. An empty partial
// returns the current row.
func (e *Engine) Update(ctx context.Context, table string, id interface{}, partial core.Record) (core.Record, bool, error) {
	ts, err := e.resolver.Resolve(ctx, table, nil)
	if err != nil {
		return nil, false, err
	}
	prepared, err := e.validator.PrepareUpdate(ts, partial)
	if err != nil {
		return nil, false, err
	}
	key, err := e.validator.CoerceKey(ts, id)
	if err != nil {
		return nil, false, err
	}

	var (
		out   core.Record
		found bool
	)
	err = e.withTx(ctx, "update record", table, func(tx core.Transaction) error {
		current, ok, err := e.selectOne(ctx, tx, ts, key)
		if err != nil || !ok {
			return err
		}
		found = true
		if len(prepared) == 0 {
			out = current
			return nil
		}

		query, args := e.builder.Update(ts, key, prepared)
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return err
		}
		// A row deleted by a concurrent writer after the UPDATE counts as absent.
		out, found, err = e.selectOne(ctx, tx, ts, key)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if found {
		e.logger.Debug("record updated", slog.String("table", table), slog.Any("id", key), slog.Int("columns", len(prepared)))
	}
	return out, found, nil
}

// Delete removes the row and reports whether it existed.
func (e *Engine) Delete(ctx context.Context, table string, id interface{}) (bool, error) {
	ts, err := e.resolver.Resolve(ctx, table, nil)
	if err != nil {
		return false, err
	}
	key, err := e.validator.CoerceKey(ts, id)
	if err != nil {
		return false, err
	}
	query, args := e.builder.Delete(ts, key)

	var deleted bool
	err = e.withTx(ctx, "delete record", table, func(tx core.Transaction) error {
		result, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		deleted = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (e *Engine) selectOne(ctx context.Context, tx core.Transaction, ts *core.TableSchema, key interface{}) (core.Record, bool, error) {
	query, args := e.builder.SelectByKey(ts, key)
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return nil, false, rows.Err()
	}
	row, err := e.builder.ScanRecord(rows, ts)
	if err != nil {
		return nil, false, err
	}
	return row, true, nil
}

// withTx runs fn in a transaction. It rolls back when fn fails or panics and
// commits otherwise. Failures are reported as StorageEngineError, except a
// ValueError, which is returned as is.
func (e *Engine) withTx(ctx context.Context, op, table string, fn func(tx core.Transaction) error) error {
	tx, err := e.db.BeginTx(ctx)
	if err != nil {
		return core.NewStorageError(op, table, err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			e.logger.Warn("rollback failed", slog.String("table", table), slog.String("op", op), slog.Any("error", rbErr))
		}
		var valueErr *core.ValueError
		if errors.As(err, &valueErr) {
			return err
		}
		return core.NewStorageError(op, table, err)
	}
	if err := tx.Commit(); err != nil {
		return core.NewStorageError(op, table, fmt.Errorf("commit: %w", err))
	}
	committed = true
	return nil
}
