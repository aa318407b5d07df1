package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/rzpsarthak13/dynatable/internal/core"
)

// mysqlErrTableExists is ER_TABLE_EXISTS_ERROR.
const mysqlErrTableExists = 1050

func init() {
	RegisterFactory(mysqlFactory{})
}

type mysqlFactory struct{}

func (mysqlFactory) Type() string { return "mysql" }

func (mysqlFactory) Validate(cfg Config) error {
	if err := requireField("database.host", cfg.Host); err != nil {
		return err
	}
	if err := requireField("database.database", cfg.Database); err != nil {
		return err
	}
	return requireField("database.user", cfg.User)
}

func (mysqlFactory) Open(ctx context.Context, cfg Config, logger *slog.Logger) (core.Database, error) {
	db, err := sql.Open("mysql", mysqlDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	configurePool(db, cfg)
	if err := ping(ctx, db, cfg.ConnectionTimeout); err != nil {
		return nil, err
	}
	return NewMySQLDatabase(db, logger), nil
}

func mysqlDSN(cfg Config) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Timeout = cfg.ConnectionTimeout
	return mc.FormatDSN()
}

// MySQLDialect renders SQL for MySQL.
type MySQLDialect struct{}

func (MySQLDialect) Name() string { return "mysql" }

func (MySQLDialect) Placeholder(int) string { return "?" }

func (MySQLDialect) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (MySQLDialect) ColumnType(col core.ColumnDef) string {
	switch col.Type {
	case core.TypeInteger:
		return "INT"
	case core.TypeString:
		return fmt.Sprintf("VARCHAR(%d)", col.Length)
	case core.TypeDateTime:
		return "DATETIME"
	case core.TypeFloat:
		return "DOUBLE"
	case core.TypeBoolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

func (d MySQLDialect) IDColumnDDL(string) string {
	return d.QuoteIdent(core.IDColumn) + " INT NOT NULL AUTO_INCREMENT PRIMARY KEY"
}

func (MySQLDialect) CreatePrelude(string) []string { return nil }

func (MySQLDialect) DropEpilogue(string) []string { return nil }

func (MySQLDialect) EmptyInsert(quotedTable string) string {
	return "INSERT INTO " + quotedTable + " () VALUES ()"
}

func (MySQLDialect) SupportsReturning() bool { return false }

func (MySQLDialect) IsDuplicateTable(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlErrTableExists
	}
	return false
}

// MySQLDatabase implements core.Database for MySQL.
type MySQLDatabase struct {
	*sqlDatabase
}

// NewMySQLDatabase wraps an open MySQL pool.
func NewMySQLDatabase(db *sql.DB, logger *slog.Logger) *MySQLDatabase {
	return &MySQLDatabase{sqlDatabase: newSQLDatabase(db, MySQLDialect{}, logger)}
}

// TableExists reports whether a base table exists in the current schema.
func (m *MySQLDatabase) TableExists(ctx context.Context, name string) (bool, error) {
	names, err := m.queryStrings(ctx, `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?`, name)
	if err != nil {
		return false, fmt.Errorf("failed to check table: %w", err)
	}
	return len(names) > 0, nil
}

// ListTables returns all base tables in the current schema.
func (m *MySQLDatabase) ListTables(ctx context.Context) ([]string, error) {
	names, err := m.queryStrings(ctx, `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	return names, nil
}

// IntrospectColumns reads INFORMATION_SCHEMA.COLUMNS for one table.
func (m *MySQLDatabase) IntrospectColumns(ctx context.Context, name string) ([]core.PhysicalColumn, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	rows, err := m.db.QueryContext(ctx, `
		SELECT COLUMN_NAME, COLUMN_TYPE, CHARACTER_MAXIMUM_LENGTH, IS_NULLABLE,
			COLUMN_DEFAULT, COLUMN_KEY, EXTRA
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cols []core.PhysicalColumn
	for rows.Next() {
		var (
			colName, colType, isNullable, colKey, extra string
			length                                      sql.NullInt64
			colDefault                                  sql.NullString
		)
		if err := rows.Scan(&colName, &colType, &length, &isNullable, &colDefault, &colKey, &extra); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}

		col := core.PhysicalColumn{
			Name:          colName,
			DataType:      colType,
			Nullable:      isNullable == "YES",
			PrimaryKey:    colKey == "PRI",
			Unique:        colKey == "UNI",
			AutoIncrement: strings.Contains(strings.ToLower(extra), "auto_increment"),
		}
		if length.Valid {
			col.Length = int(length.Int64)
		}
		if colDefault.Valid {
			d := colDefault.String
			col.Default = &d
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}
	return cols, nil
}
