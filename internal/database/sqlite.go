package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/rzpsarthak13/dynatable/internal/core"
)

func init() {
	RegisterFactory(sqliteFactory{})
}

type sqliteFactory struct{}

func (sqliteFactory) Type() string { return "sqlite" }

func (sqliteFactory) Validate(Config) error { return nil }

func (sqliteFactory) Open(ctx context.Context, cfg Config, logger *slog.Logger) (core.Database, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; also keeps an in-memory database on a single connection.
	db.SetMaxOpenConns(1)
	if err := ping(ctx, db, cfg.ConnectionTimeout); err != nil {
		return nil, err
	}
	return NewSQLiteDatabase(db, logger), nil
}

// SQLiteDialect renders SQL for SQLite.
type SQLiteDialect struct{}

func (SQLiteDialect) Name() string { return "sqlite" }

func (SQLiteDialect) Placeholder(int) string { return "?" }

func (SQLiteDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (SQLiteDialect) ColumnType(col core.ColumnDef) string {
	switch col.Type {
	case core.TypeInteger:
		return "INTEGER"
	case core.TypeString:
		return fmt.Sprintf("VARCHAR(%d)", col.Length)
	case core.TypeDateTime:
		return "DATETIME"
	case core.TypeFloat:
		return "REAL"
	case core.TypeBoolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

func (d SQLiteDialect) IDColumnDDL(string) string {
	return d.QuoteIdent(core.IDColumn) + " INTEGER PRIMARY KEY AUTOINCREMENT"
}

func (SQLiteDialect) CreatePrelude(string) []string { return nil }

func (SQLiteDialect) DropEpilogue(string) []string { return nil }

func (SQLiteDialect) EmptyInsert(quotedTable string) string {
	return "INSERT INTO " + quotedTable + " DEFAULT VALUES"
}

func (SQLiteDialect) SupportsReturning() bool { return false }

func (SQLiteDialect) IsDuplicateTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "already exists")
}

// SQLiteDatabase implements core.Database for SQLite.
type SQLiteDatabase struct {
	*sqlDatabase
}

// NewSQLiteDatabase wraps an open SQLite handle.
func NewSQLiteDatabase(db *sql.DB, logger *slog.Logger) *SQLiteDatabase {
	return &SQLiteDatabase{sqlDatabase: newSQLDatabase(db, SQLiteDialect{}, logger)}
}

// TableExists reports whether a table is present in sqlite_master.
func (s *SQLiteDatabase) TableExists(ctx context.Context, name string) (bool, error) {
	names, err := s.queryStrings(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("failed to check table: %w", err)
	}
	return len(names) > 0, nil
}

// ListTables returns all user tables.
func (s *SQLiteDatabase) ListTables(ctx context.Context) ([]string, error) {
	names, err := s.queryStrings(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	return names, nil
}

// IntrospectColumns reads pragma_table_info and the single-column unique indexes.
// An INTEGER primary key aliases the rowid and is reported as auto-increment.
func (s *SQLiteDatabase) IntrospectColumns(ctx context.Context, name string) ([]core.PhysicalColumn, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, type, "notnull", dflt_value, pk
		FROM pragma_table_info(?)
		ORDER BY cid`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}

	var (
		cols    []core.PhysicalColumn
		pkCount int
	)
	for rows.Next() {
		var (
			colName, colType string
			notNull, pk      int
			dflt             sql.NullString
		)
		if err := rows.Scan(&colName, &colType, &notNull, &dflt, &pk); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		col := core.PhysicalColumn{
			Name:       colName,
			DataType:   colType,
			Nullable:   notNull == 0 && pk == 0,
			PrimaryKey: pk > 0,
		}
		if dflt.Valid {
			d := dflt.String
			col.Default = &d
		}
		if pk > 0 {
			pkCount++
		}
		cols = append(cols, col)
	}
	err = rows.Err()
	_ = rows.Close()
	if err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	if pkCount == 1 {
		for i := range cols {
			if cols[i].PrimaryKey && strings.EqualFold(cols[i].DataType, "INTEGER") {
				cols[i].AutoIncrement = true
			}
		}
	}

	unique, err := s.queryStrings(ctx, `
		SELECT MIN(ii.name)
		FROM pragma_index_list(?) AS il, pragma_index_info(il.name) AS ii
		WHERE il."unique" = 1 AND il.origin = 'u'
		GROUP BY il.name
		HAVING COUNT(*) = 1`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query unique indexes: %w", err)
	}
	markConstraints(cols, nil, unique)

	return cols, nil
}
