package core

import (
	"context"
)

// Database is the storage engine boundary the rest of the module is written against.
type Database interface {
	// Dialect returns the SQL rendering rules of the engine.
	Dialect() Dialect

	// ExecDDL executes a data-definition statement outside any transaction.
	ExecDDL(ctx context.Context, statement string) error

	// Exec executes a non-query statement and returns a result.
	Exec(ctx context.Context, query string, args ...interface{}) (Result, error)

	// Query executes a SELECT query and returns rows.
	Query(ctx context.Context, query string, args ...interface{}) (Rows, error)

	// BeginTx starts a new transaction. The transaction is rolled back by the
	// driver if ctx is cancelled before Commit.
	BeginTx(ctx context.Context) (Transaction, error)

	// TableExists queries the physical catalog. It never caches.
	TableExists(ctx context.Context, name string) (bool, error)

	// IntrospectColumns returns the physical columns of a table in ordinal order.
	IntrospectColumns(ctx context.Context, name string) ([]PhysicalColumn, error)

	// ListTables returns the names of all base tables, sorted.
	ListTables(ctx context.Context) ([]string, error)

	// Close closes the database connection.
	Close() error
}

// Transaction is a scoped unit of work.
type Transaction interface {
	Exec(ctx context.Context, query string, args ...interface{}) (Result, error)
	Query(ctx context.Context, query string, args ...interface{}) (Rows, error)
	Commit() error
	Rollback() error
}

// Rows is an iterator over a query result.
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
	Err() error
}

// Result summarizes an executed statement.
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

// Dialect captures how one engine spells SQL.
type Dialect interface {
	// Name returns the engine name (mysql, postgres, sqlite, duckdb).
	Name() string

	// Placeholder returns the bind parameter for the n-th argument, starting at 1.
	Placeholder(n int) string

	// QuoteIdent quotes a table or column identifier.
	QuoteIdent(name string) string

	// ColumnType renders the storage type of a non-key column.
	ColumnType(col ColumnDef) string

	// IDColumnDDL renders the full definition of the implicit primary key column.
	IDColumnDDL(table string) string

	// CreatePrelude returns statements that must run before CREATE TABLE.
	CreatePrelude(table string) []string

	// DropEpilogue returns statements that must run after DROP TABLE.
	DropEpilogue(table string) []string

	// EmptyInsert renders an INSERT that relies entirely on column defaults.
	EmptyInsert(quotedTable string) string

	// SupportsReturning reports whether INSERT ... RETURNING is used to fetch the new id.
	SupportsReturning() bool

	// IsDuplicateTable reports whether err is the engine's "table already exists" failure.
	IsDuplicateTable(err error) bool
}
