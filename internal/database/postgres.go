package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/rzpsarthak13/dynatable/internal/core"
)

// pgDuplicateTable is SQLSTATE duplicate_table.
const pgDuplicateTable = "42P07"

func init() {
	RegisterFactory(postgresFactory{})
}

type postgresFactory struct{}

func (postgresFactory) Type() string { return "postgres" }

func (postgresFactory) Validate(cfg Config) error {
	if err := requireField("database.host", cfg.Host); err != nil {
		return err
	}
	return requireField("database.database", cfg.Database)
}

func (postgresFactory) Open(ctx context.Context, cfg Config, logger *slog.Logger) (core.Database, error) {
	db, err := sql.Open("pgx", postgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	configurePool(db, cfg)
	if err := ping(ctx, db, cfg.ConnectionTimeout); err != nil {
		return nil, err
	}
	return NewPostgresDatabase(db, logger), nil
}

func postgresDSN(cfg Config) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", cfg.Host, port, cfg.Database, sslMode)
	if cfg.User != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.User)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}
	if cfg.ConnectionTimeout > 0 {
		dsn += fmt.Sprintf(" connect_timeout=%d", int(cfg.ConnectionTimeout.Seconds()))
	}
	return dsn
}

// PostgresDialect renders SQL for PostgreSQL.
type PostgresDialect struct{}

func (PostgresDialect) Name() string { return "postgres" }

func (PostgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (PostgresDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (PostgresDialect) ColumnType(col core.ColumnDef) string {
	switch col.Type {
	case core.TypeInteger:
		return "INTEGER"
	case core.TypeString:
		return fmt.Sprintf("VARCHAR(%d)", col.Length)
	case core.TypeDateTime:
		return "TIMESTAMP"
	case core.TypeFloat:
		return "DOUBLE PRECISION"
	case core.TypeBoolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

func (d PostgresDialect) IDColumnDDL(string) string {
	return d.QuoteIdent(core.IDColumn) + " SERIAL PRIMARY KEY"
}

func (PostgresDialect) CreatePrelude(string) []string { return nil }

func (PostgresDialect) DropEpilogue(string) []string { return nil }

func (PostgresDialect) EmptyInsert(quotedTable string) string {
	return "INSERT INTO " + quotedTable + " DEFAULT VALUES"
}

func (PostgresDialect) SupportsReturning() bool { return true }

func (PostgresDialect) IsDuplicateTable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgDuplicateTable
	}
	return false
}

// PostgresDatabase implements core.Database for PostgreSQL. Tables live in
// the connection's current schema.
type PostgresDatabase struct {
	*sqlDatabase
}

// NewPostgresDatabase wraps an open PostgreSQL pool.
func NewPostgresDatabase(db *sql.DB, logger *slog.Logger) *PostgresDatabase {
	return &PostgresDatabase{sqlDatabase: newSQLDatabase(db, PostgresDialect{}, logger)}
}

// TableExists reports whether a base table exists in the current schema.
func (p *PostgresDatabase) TableExists(ctx context.Context, name string) (bool, error) {
	names, err := p.queryStrings(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = $1`, name)
	if err != nil {
		return false, fmt.Errorf("failed to check table: %w", err)
	}
	return len(names) > 0, nil
}

// ListTables returns all base tables in the current schema.
func (p *PostgresDatabase) ListTables(ctx context.Context) ([]string, error) {
	names, err := p.queryStrings(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	return names, nil
}

// IntrospectColumns reads information_schema for one table. Columns whose
// default draws from a sequence are reported as auto-increment.
func (p *PostgresDatabase) IntrospectColumns(ctx context.Context, name string) ([]core.PhysicalColumn, error) {
	cols, err := p.infoSchemaColumns(ctx, `
		SELECT column_name, data_type, character_maximum_length, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`, name)
	if err != nil {
		return nil, err
	}

	primary, err := p.constraintColumns(ctx, name, "PRIMARY KEY")
	if err != nil {
		return nil, err
	}
	unique, err := p.constraintColumns(ctx, name, "UNIQUE")
	if err != nil {
		return nil, err
	}
	markConstraints(cols, primary, unique)

	for i := range cols {
		if cols[i].Default != nil && strings.HasPrefix(*cols[i].Default, "nextval(") {
			cols[i].AutoIncrement = true
		}
	}
	return cols, nil
}

func (p *PostgresDatabase) constraintColumns(ctx context.Context, table, kind string) ([]string, error) {
	names, err := p.queryStrings(ctx, `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
			AND tc.table_name = kcu.table_name
		WHERE tc.table_schema = current_schema() AND tc.table_name = $1 AND tc.constraint_type = $2`,
		table, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s constraints: %w", strings.ToLower(kind), err)
	}
	return names, nil
}
