package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/rzpsarthak13/dynatable/internal/core"
)

// ErrClosed is returned by every operation on a closed database.
var ErrClosed = errors.New("database is closed")

// sqlDatabase holds the behaviour shared by every database/sql backed engine.
// Engines embed it and add the catalog queries.
type sqlDatabase struct {
	db      *sql.DB
	dialect core.Dialect
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
}

func newSQLDatabase(db *sql.DB, dialect core.Dialect, logger *slog.Logger) *sqlDatabase {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlDatabase{
		db:      db,
		dialect: dialect,
		logger:  logger.With("engine", dialect.Name()),
	}
}

// Dialect returns the SQL rendering rules of the engine.
func (s *sqlDatabase) Dialect() core.Dialect {
	return s.dialect
}

// DB exposes the underlying pool.
func (s *sqlDatabase) DB() *sql.DB {
	return s.db
}

func (s *sqlDatabase) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// ExecDDL executes a data-definition statement outside any transaction.
func (s *sqlDatabase) ExecDDL(ctx context.Context, statement string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.logger.Debug("executing ddl", "statement", statement)
	if _, err := s.db.ExecContext(ctx, statement); err != nil {
		s.logger.Debug("ddl failed", "statement", statement, "error", err)
		return fmt.Errorf("failed to execute ddl: %w", err)
	}
	return nil
}

// Exec executes a non-query statement and returns a result.
func (s *sqlDatabase) Exec(ctx context.Context, query string, args ...interface{}) (core.Result, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	s.logger.Debug("executing statement", "query", query, "args", len(args))
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute statement: %w", err)
	}
	return &sqlResult{result: result}, nil
}

// Query executes a SELECT query and returns rows.
func (s *sqlDatabase) Query(ctx context.Context, query string, args ...interface{}) (core.Rows, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	s.logger.Debug("executing query", "query", query, "args", len(args))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &sqlRows{rows: rows}, nil
}

// BeginTx starts a new transaction.
func (s *sqlDatabase) BeginTx(ctx context.Context) (core.Transaction, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &sqlTransaction{tx: tx, logger: s.logger}, nil
}

// Close closes the pool. Closing twice is a no-op.
func (s *sqlDatabase) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Debug("closing database")
	return s.db.Close()
}

// queryStrings runs a single-column query and collects the results.
// Rows are drained and closed before returning so the connection is free
// for the next statement on single-connection pools.
func (s *sqlDatabase) queryStrings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// sqlTransaction wraps sql.Tx.
type sqlTransaction struct {
	tx     *sql.Tx
	logger *slog.Logger
}

func (t *sqlTransaction) Exec(ctx context.Context, query string, args ...interface{}) (core.Result, error) {
	t.logger.Debug("executing statement in transaction", "query", query, "args", len(args))
	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute statement: %w", err)
	}
	return &sqlResult{result: result}, nil
}

func (t *sqlTransaction) Query(ctx context.Context, query string, args ...interface{}) (core.Rows, error) {
	t.logger.Debug("executing query in transaction", "query", query, "args", len(args))
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &sqlRows{rows: rows}, nil
}

func (t *sqlTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqlTransaction) Rollback() error {
	return t.tx.Rollback()
}

// sqlRows wraps sql.Rows.
type sqlRows struct {
	rows *sql.Rows
}

func (r *sqlRows) Next() bool                     { return r.rows.Next() }
func (r *sqlRows) Scan(dest ...interface{}) error { return r.rows.Scan(dest...) }
func (r *sqlRows) Close() error                   { return r.rows.Close() }
func (r *sqlRows) Err() error                     { return r.rows.Err() }

// sqlResult wraps sql.Result.
type sqlResult struct {
	result sql.Result
}

func (r *sqlResult) LastInsertId() (int64, error) { return r.result.LastInsertId() }
func (r *sqlResult) RowsAffected() (int64, error) { return r.result.RowsAffected() }

// infoSchemaColumn is one row of the information_schema query shared by
// Postgres and DuckDB.
type infoSchemaColumn struct {
	name       string
	dataType   string
	length     sql.NullInt64
	nullable   string
	defaultVal sql.NullString
}

func (c infoSchemaColumn) physical() core.PhysicalColumn {
	col := core.PhysicalColumn{
		Name:     c.name,
		DataType: c.dataType,
		Nullable: c.nullable == "YES",
	}
	if c.length.Valid {
		col.Length = int(c.length.Int64)
	}
	if c.defaultVal.Valid {
		d := c.defaultVal.String
		col.Default = &d
	}
	return col
}

// infoSchemaColumns reads information_schema.columns for one table in ordinal order.
func (s *sqlDatabase) infoSchemaColumns(ctx context.Context, query string, args ...interface{}) ([]core.PhysicalColumn, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cols []core.PhysicalColumn
	for rows.Next() {
		var c infoSchemaColumn
		if err := rows.Scan(&c.name, &c.dataType, &c.length, &c.nullable, &c.defaultVal); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		cols = append(cols, c.physical())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}
	return cols, nil
}

// markConstraints flags primary key and unique columns by name.
func markConstraints(cols []core.PhysicalColumn, primary, unique []string) {
	pk := make(map[string]bool, len(primary))
	for _, n := range primary {
		pk[n] = true
	}
	uq := make(map[string]bool, len(unique))
	for _, n := range unique {
		uq[n] = true
	}
	for i := range cols {
		if pk[cols[i].Name] {
			cols[i].PrimaryKey = true
			cols[i].Nullable = false
		}
		if uq[cols[i].Name] {
			cols[i].Unique = true
		}
	}
}
