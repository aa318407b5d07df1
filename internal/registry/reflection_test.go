package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/dynatable/internal/core"
	"github.com/rzpsarthak13/dynatable/internal/database"
	"github.com/rzpsarthak13/dynatable/internal/testutil"
)

func TestReflector_Reflect(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	require.NoError(t, db.ExecDDL(ctx, `CREATE TABLE "legacy" (
		"id" INTEGER PRIMARY KEY AUTOINCREMENT,
		"name" VARCHAR(40) NOT NULL,
		"code" VARCHAR(8) UNIQUE,
		"score" REAL,
		"active" BOOLEAN DEFAULT 1,
		"seen_at" DATETIME,
		"notes" TEXT,
		"payload" JSONB
	)`))

	ts, err := NewReflector(db, testutil.NewTestLogger(t)).Reflect(ctx, "legacy")
	require.NoError(t, err)

	want := &core.TableSchema{
		Name: "legacy",
		Columns: []core.ColumnDef{
			{Name: "id", Type: core.TypeInteger, PrimaryKey: true, AutoIncrement: true},
			{Name: "name", Type: core.TypeString, Length: 40},
			{Name: "code", Type: core.TypeString, Length: 8, Nullable: true, Unique: true},
			{Name: "score", Type: core.TypeFloat, Nullable: true},
			{Name: "active", Type: core.TypeBoolean, Nullable: true, ServerDefault: "1"},
			{Name: "seen_at", Type: core.TypeDateTime, Nullable: true},
			{Name: "notes", Type: core.TypeText, Nullable: true},
			{Name: "payload", Type: core.TypeText, Nullable: true},
		},
	}
	assert.True(t, want.Equal(ts), "got %+v", ts.Columns)

	again, err := NewReflector(db, nil).Reflect(ctx, "legacy")
	require.NoError(t, err)
	assert.True(t, ts.Equal(again))
}

func TestReflector_MatchesCreatedSchema(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	created, err := NewLifecycleManager(db, nil).CreateTable(ctx, "users", userColumns())
	require.NoError(t, err)

	reflected, err := NewReflector(db, nil).Reflect(ctx, "users")
	require.NoError(t, err)
	assert.True(t, created.Equal(reflected), "created %+v reflected %+v", created.Columns, reflected.Columns)
}

func TestReflector_Rejects(t *testing.T) {
	tests := []struct {
		name string
		ddl  string
	}{
		{"no primary key", `CREATE TABLE "t" ("a" INTEGER, "b" TEXT)`},
		{"text primary key", `CREATE TABLE "t" ("code" TEXT PRIMARY KEY, "b" TEXT)`},
		{"composite primary key", `CREATE TABLE "t" ("a" INTEGER, "b" INTEGER, "c" TEXT, PRIMARY KEY ("a", "b"))`},
		{"only primary key", `CREATE TABLE "t" ("id" INTEGER PRIMARY KEY)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			db := openSQLite(t)
			require.NoError(t, db.ExecDDL(ctx, tt.ddl))

			_, err := NewReflector(db, nil).Reflect(ctx, "t")
			var re *core.ReflectionError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, "t", re.Table)
			assert.ErrorIs(t, err, core.ErrReflection)
		})
	}
}

func TestReflector_CatalogFailure(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, db.Close())

	_, err := NewReflector(db, nil).Reflect(context.Background(), "users")
	assert.ErrorIs(t, err, core.ErrReflection)
	assert.ErrorIs(t, err, database.ErrClosed)
}
