package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMySQLDatabase_IntrospectColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	m := NewMySQLDatabase(db, nil)
	defer func() { _ = m.Close() }()

	mock.ExpectQuery("FROM INFORMATION_SCHEMA.COLUMNS").
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{
			"COLUMN_NAME", "COLUMN_TYPE", "CHARACTER_MAXIMUM_LENGTH", "IS_NULLABLE",
			"COLUMN_DEFAULT", "COLUMN_KEY", "EXTRA",
		}).
			AddRow("id", "int", nil, "NO", nil, "PRI", "auto_increment").
			AddRow("email", "varchar(100)", int64(100), "NO", nil, "UNI", "").
			AddRow("active", "tinyint(1)", nil, "YES", "1", "", ""))

	cols, err := m.IntrospectColumns(context.Background(), "users")
	require.NoError(t, err)
	require.Len(t, cols, 3)

	assert.True(t, cols[0].PrimaryKey)
	assert.True(t, cols[0].AutoIncrement)
	assert.False(t, cols[0].Nullable)

	assert.Equal(t, 100, cols[1].Length)
	assert.True(t, cols[1].Unique)

	assert.Equal(t, "tinyint(1)", cols[2].DataType)
	require.NotNil(t, cols[2].Default)
	assert.Equal(t, "1", *cols[2].Default)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLDatabase_TableExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	m := NewMySQLDatabase(db, nil)

	mock.ExpectQuery("FROM INFORMATION_SCHEMA.TABLES").
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("users"))
	mock.ExpectQuery("FROM INFORMATION_SCHEMA.TABLES").
		WithArgs("ghosts").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}))

	exists, err := m.TableExists(context.Background(), "users")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = m.TableExists(context.Background(), "ghosts")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDatabase_IntrospectColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	p := NewPostgresDatabase(db, nil)

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("orders").
		WillReturnRows(sqlmock.NewRows([]string{
			"column_name", "data_type", "character_maximum_length", "is_nullable", "column_default",
		}).
			AddRow("id", "integer", nil, "NO", "nextval('orders_id_seq'::regclass)").
			AddRow("code", "character varying", int64(20), "NO", nil).
			AddRow("total", "double precision", nil, "YES", nil))
	mock.ExpectQuery("FROM information_schema.table_constraints").
		WithArgs("orders", "PRIMARY KEY").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id"))
	mock.ExpectQuery("FROM information_schema.table_constraints").
		WithArgs("orders", "UNIQUE").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("code"))

	cols, err := p.IntrospectColumns(context.Background(), "orders")
	require.NoError(t, err)
	require.Len(t, cols, 3)

	assert.True(t, cols[0].PrimaryKey)
	assert.True(t, cols[0].AutoIncrement)

	assert.Equal(t, 20, cols[1].Length)
	assert.True(t, cols[1].Unique)
	assert.False(t, cols[1].Nullable)

	assert.True(t, cols[2].Nullable)
	assert.False(t, cols[2].PrimaryKey)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDatabase_ListTables(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	p := NewPostgresDatabase(db, nil)

	mock.ExpectQuery("FROM information_schema.tables").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("a").AddRow("b"))

	tables, err := p.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tables)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLDatabase_ExecWrapsErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	p := NewPostgresDatabase(db, nil)

	mock.ExpectExec("CREATE TABLE").WillReturnError(assert.AnError)

	err = p.ExecDDL(context.Background(), `CREATE TABLE "t" ("id" SERIAL PRIMARY KEY)`)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}
