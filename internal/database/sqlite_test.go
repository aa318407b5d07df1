package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/dynatable/internal/core"
	"github.com/rzpsarthak13/dynatable/internal/testutil"
)

func openSQLite(t *testing.T) core.Database {
	t.Helper()
	db, err := Open(context.Background(), Config{
		Type: "sqlite",
		Path: filepath.Join(t.TempDir(), "test.db"),
	}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteDatabase_Catalog(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	exists, err := db.TableExists(ctx, "users")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, db.ExecDDL(ctx,
		`CREATE TABLE "users" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "email" VARCHAR(100) NOT NULL UNIQUE, "bio" TEXT)`))
	require.NoError(t, db.ExecDDL(ctx, `CREATE TABLE "accounts" ("id" INTEGER PRIMARY KEY AUTOINCREMENT)`))

	exists, err = db.TableExists(ctx, "users")
	require.NoError(t, err)
	assert.True(t, exists)

	tables, err := db.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"accounts", "users"}, tables)

	cols, err := db.IntrospectColumns(ctx, "users")
	require.NoError(t, err)
	require.Len(t, cols, 3)

	assert.Equal(t, "id", cols[0].Name)
	assert.True(t, cols[0].PrimaryKey)
	assert.True(t, cols[0].AutoIncrement)
	assert.False(t, cols[0].Nullable)

	assert.Equal(t, "email", cols[1].Name)
	assert.Equal(t, "VARCHAR(100)", cols[1].DataType)
	assert.False(t, cols[1].Nullable)
	assert.True(t, cols[1].Unique)

	assert.Equal(t, "bio", cols[2].Name)
	assert.True(t, cols[2].Nullable)
	assert.False(t, cols[2].Unique)
}

func TestSQLiteDatabase_DuplicateTable(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	stmt := `CREATE TABLE "t" ("id" INTEGER PRIMARY KEY AUTOINCREMENT)`
	require.NoError(t, db.ExecDDL(ctx, stmt))

	err := db.ExecDDL(ctx, stmt)
	require.Error(t, err)
	assert.True(t, db.Dialect().IsDuplicateTable(err))
}

func TestSQLiteDatabase_Transaction(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	require.NoError(t, db.ExecDDL(ctx, `CREATE TABLE "t" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "v" TEXT)`))

	tx, err := db.BeginTx(ctx)
	require.NoError(t, err)
	res, err := tx.Exec(ctx, `INSERT INTO "t" ("v") VALUES (?)`, "a")
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	require.NoError(t, tx.Rollback())

	rows, err := db.Query(ctx, `SELECT COUNT(*) FROM "t"`)
	require.NoError(t, err)
	require.True(t, rows.Next())
	var n int
	require.NoError(t, rows.Scan(&n))
	require.NoError(t, rows.Close())
	assert.Equal(t, 0, n)
}

func TestSQLiteDatabase_Closed(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	require.NoError(t, db.Close())
	require.NoError(t, db.Close())

	_, err := db.TableExists(ctx, "t")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = db.BeginTx(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}
