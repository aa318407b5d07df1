package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/rzpsarthak13/dynatable/internal/core"
)

func init() {
	RegisterFactory(duckdbFactory{})
}

type duckdbFactory struct{}

func (duckdbFactory) Type() string { return "duckdb" }

func (duckdbFactory) Validate(Config) error { return nil }

func (duckdbFactory) Open(ctx context.Context, cfg Config, logger *slog.Logger) (core.Database, error) {
	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	configurePool(db, cfg)
	if err := ping(ctx, db, cfg.ConnectionTimeout); err != nil {
		return nil, err
	}
	return NewDuckDBDatabase(db, logger), nil
}

// DuckDBDialect renders SQL for DuckDB. The id column draws from a
// per-table sequence created before the table and dropped after it.
type DuckDBDialect struct{}

func (DuckDBDialect) Name() string { return "duckdb" }

func (DuckDBDialect) Placeholder(int) string { return "?" }

func (DuckDBDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (DuckDBDialect) ColumnType(col core.ColumnDef) string {
	switch col.Type {
	case core.TypeInteger:
		return "INTEGER"
	case core.TypeString:
		return fmt.Sprintf("VARCHAR(%d)", col.Length)
	case core.TypeDateTime:
		return "TIMESTAMP"
	case core.TypeFloat:
		return "DOUBLE"
	case core.TypeBoolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

func sequenceName(table string) string {
	return table + "_id_seq"
}

func (d DuckDBDialect) IDColumnDDL(table string) string {
	return fmt.Sprintf("%s INTEGER PRIMARY KEY DEFAULT nextval('%s')",
		d.QuoteIdent(core.IDColumn), strings.ReplaceAll(sequenceName(table), "'", "''"))
}

func (d DuckDBDialect) CreatePrelude(table string) []string {
	return []string{"CREATE SEQUENCE IF NOT EXISTS " + d.QuoteIdent(sequenceName(table))}
}

func (d DuckDBDialect) DropEpilogue(table string) []string {
	return []string{"DROP SEQUENCE IF EXISTS " + d.QuoteIdent(sequenceName(table))}
}

func (DuckDBDialect) EmptyInsert(quotedTable string) string {
	return "INSERT INTO " + quotedTable + " DEFAULT VALUES"
}

func (DuckDBDialect) SupportsReturning() bool { return true }

func (DuckDBDialect) IsDuplicateTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "already exists")
}

// DuckDBDatabase implements core.Database for DuckDB.
type DuckDBDatabase struct {
	*sqlDatabase
}

// NewDuckDBDatabase wraps an open DuckDB handle.
func NewDuckDBDatabase(db *sql.DB, logger *slog.Logger) *DuckDBDatabase {
	return &DuckDBDatabase{sqlDatabase: newSQLDatabase(db, DuckDBDialect{}, logger)}
}

// TableExists reports whether a base table exists in the current schema.
func (d *DuckDBDatabase) TableExists(ctx context.Context, name string) (bool, error) {
	names, err := d.queryStrings(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("failed to check table: %w", err)
	}
	return len(names) > 0, nil
}

// ListTables returns all base tables in the current schema.
func (d *DuckDBDatabase) ListTables(ctx context.Context) ([]string, error) {
	names, err := d.queryStrings(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	return names, nil
}

// IntrospectColumns reads information_schema.columns and duckdb_constraints().
func (d *DuckDBDatabase) IntrospectColumns(ctx context.Context, name string) ([]core.PhysicalColumn, error) {
	cols, err := d.infoSchemaColumns(ctx, `
		SELECT column_name, data_type, character_maximum_length, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = ?
		ORDER BY ordinal_position`, name)
	if err != nil {
		return nil, err
	}

	primary, err := d.constraintColumns(ctx, name, "PRIMARY KEY")
	if err != nil {
		return nil, err
	}
	unique, err := d.constraintColumns(ctx, name, "UNIQUE")
	if err != nil {
		return nil, err
	}
	markConstraints(cols, primary, unique)

	for i := range cols {
		if cols[i].Default != nil && strings.Contains(*cols[i].Default, "nextval(") {
			cols[i].AutoIncrement = true
		}
	}
	return cols, nil
}

// constraintColumns returns the columns of single-column constraints of a kind.
func (d *DuckDBDatabase) constraintColumns(ctx context.Context, table, kind string) ([]string, error) {
	names, err := d.queryStrings(ctx, `
		SELECT constraint_column_names[1]
		FROM duckdb_constraints()
		WHERE schema_name = current_schema() AND table_name = ? AND constraint_type = ?
			AND len(constraint_column_names) = 1`, table, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s constraints: %w", strings.ToLower(kind), err)
	}
	return names, nil
}
