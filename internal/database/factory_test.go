package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/dynatable/internal/core"
)

func TestAvailableTypes(t *testing.T) {
	assert.Equal(t, []string{"duckdb", "mysql", "postgres", "sqlite"}, AvailableTypes())
}

func TestNormalizeType(t *testing.T) {
	assert.Equal(t, "postgres", NormalizeType(" PostgreSQL "))
	assert.Equal(t, "sqlite", NormalizeType("sqlite3"))
	assert.Equal(t, "mysql", NormalizeType("MySQL"))
}

func TestOpen_UnknownType(t *testing.T) {
	_, err := Open(context.Background(), Config{Type: "oracle"}, nil)
	require.Error(t, err)

	var driverErr *UnknownDriverError
	require.ErrorAs(t, err, &driverErr)
	assert.Equal(t, "oracle", driverErr.Type)
	assert.Contains(t, driverErr.Available, "sqlite")
	assert.ErrorIs(t, err, core.ErrConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "missing type", cfg: Config{}, wantErr: true},
		{name: "mysql without host", cfg: Config{Type: "mysql", Database: "app", User: "u"}, wantErr: true},
		{name: "mysql complete", cfg: Config{Type: "mysql", Host: "db", Database: "app", User: "u"}},
		{name: "postgres without database", cfg: Config{Type: "postgres", Host: "db"}, wantErr: true},
		{name: "postgresql alias", cfg: Config{Type: "postgresql", Host: "db", Database: "app"}},
		{name: "sqlite needs nothing", cfg: Config{Type: "sqlite"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cfg)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDSN(t *testing.T) {
	cfg := Config{
		Host:              "db",
		Database:          "app",
		User:              "u",
		Password:          "p",
		ConnectionTimeout: 5 * time.Second,
	}

	dsn := mysqlDSN(cfg)
	assert.True(t, strings.HasPrefix(dsn, "u:p@tcp(db:3306)/app?"), dsn)
	assert.Contains(t, dsn, "parseTime=true")

	assert.Equal(t, "host=db port=5432 dbname=app sslmode=disable user=u password=p connect_timeout=5", postgresDSN(cfg))
}

func TestDialects_IsDuplicateTable(t *testing.T) {
	tests := []struct {
		name    string
		dialect core.Dialect
		dup     error
		other   error
	}{
		{
			name:    "mysql",
			dialect: MySQLDialect{},
			dup:     fmt.Errorf("failed to execute ddl: %w", &mysql.MySQLError{Number: 1050, Message: "Table 't' already exists"}),
			other:   &mysql.MySQLError{Number: 1064},
		},
		{
			name:    "postgres",
			dialect: PostgresDialect{},
			dup:     fmt.Errorf("failed to execute ddl: %w", &pgconn.PgError{Code: "42P07"}),
			other:   &pgconn.PgError{Code: "42601"},
		},
		{
			name:    "sqlite",
			dialect: SQLiteDialect{},
			dup:     errors.New("SQL logic error: table \"t\" already exists (1)"),
			other:   errors.New("no such table: t"),
		},
		{
			name:    "duckdb",
			dialect: DuckDBDialect{},
			dup:     errors.New("Catalog Error: Table with name \"t\" already exists!"),
			other:   errors.New("Parser Error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.dialect.IsDuplicateTable(tt.dup))
			assert.False(t, tt.dialect.IsDuplicateTable(tt.other))
			assert.False(t, tt.dialect.IsDuplicateTable(nil))
		})
	}
}

func TestDialects_Rendering(t *testing.T) {
	str := core.ColumnDef{Name: "s", Type: core.TypeString, Length: 40}
	flt := core.ColumnDef{Name: "f", Type: core.TypeFloat}

	t.Run("mysql", func(t *testing.T) {
		d := MySQLDialect{}
		assert.Equal(t, "?", d.Placeholder(3))
		assert.Equal(t, "`a``b`", d.QuoteIdent("a`b"))
		assert.Equal(t, "VARCHAR(40)", d.ColumnType(str))
		assert.Equal(t, "DOUBLE", d.ColumnType(flt))
		assert.Equal(t, "`id` INT NOT NULL AUTO_INCREMENT PRIMARY KEY", d.IDColumnDDL("t"))
		assert.Equal(t, "INSERT INTO `t` () VALUES ()", d.EmptyInsert("`t`"))
		assert.False(t, d.SupportsReturning())
	})

	t.Run("postgres", func(t *testing.T) {
		d := PostgresDialect{}
		assert.Equal(t, "$3", d.Placeholder(3))
		assert.Equal(t, "DOUBLE PRECISION", d.ColumnType(flt))
		assert.Equal(t, `"id" SERIAL PRIMARY KEY`, d.IDColumnDDL("t"))
		assert.True(t, d.SupportsReturning())
	})

	t.Run("sqlite", func(t *testing.T) {
		d := SQLiteDialect{}
		assert.Equal(t, "REAL", d.ColumnType(flt))
		assert.Equal(t, `"id" INTEGER PRIMARY KEY AUTOINCREMENT`, d.IDColumnDDL("t"))
		assert.Empty(t, d.CreatePrelude("t"))
	})

	t.Run("duckdb", func(t *testing.T) {
		d := DuckDBDialect{}
		assert.Equal(t, []string{`CREATE SEQUENCE IF NOT EXISTS "t_id_seq"`}, d.CreatePrelude("t"))
		assert.Equal(t, `"id" INTEGER PRIMARY KEY DEFAULT nextval('t_id_seq')`, d.IDColumnDDL("t"))
		assert.Equal(t, []string{`DROP SEQUENCE IF EXISTS "t_id_seq"`}, d.DropEpilogue("t"))
		assert.True(t, d.SupportsReturning())
	})
}
