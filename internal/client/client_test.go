package client

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/dynatable/internal/core"
	"github.com/rzpsarthak13/dynatable/internal/database"
	"github.com/rzpsarthak13/dynatable/internal/kvstore"
	"github.com/rzpsarthak13/dynatable/internal/registry"
	"github.com/rzpsarthak13/dynatable/internal/testutil"
)

type yamlProvider string

func (p yamlProvider) GetYAML() ([]byte, error) { return []byte(p), nil }

type failingProvider struct{}

func (failingProvider) GetYAML() ([]byte, error) { return nil, errors.New("no config") }

func sqliteYAML(path, stream string) yamlProvider {
	return yamlProvider(fmt.Sprintf(`
database:
  type: sqlite
  path: %s
cache:
  type: memory
  namespace: test
events:
  type: memory
  stream: %s
`, path, stream))
}

func columns() []core.ColumnDef {
	return []core.ColumnDef{
		{Name: "sku", Type: core.TypeString, Length: 32, Unique: true},
		{Name: "qty", Type: core.TypeInteger, Nullable: true},
	}
}

func TestClient_EndToEnd(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "client.db")

	c, err := NewClientImpl(ctx, sqliteYAML(path, t.Name()), testutil.NewTestLogger(t))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	ts, err := c.CreateTable(ctx, "items", columns())
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "sku", "qty"}, ts.ColumnNames())

	exists, err := c.TableExists(ctx, "items")
	require.NoError(t, err)
	assert.True(t, exists)

	names, err := c.ListTables(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "items")

	rec, err := c.Create(ctx, "items", core.Record{"sku": "A-1", "qty": 3})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec["id"])

	got, found, err := c.Read(ctx, "items", 1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "A-1", got["sku"])

	updated, found, err := c.Update(ctx, "items", 1, core.Record{"qty": 7})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(7), updated["qty"])

	all, err := c.ReadAll(ctx, "items", core.Record{"sku": "A-1"})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	deleted, err := c.Delete(ctx, "items", 1)
	require.NoError(t, err)
	assert.True(t, deleted)

	schema, err := c.GetSchema(ctx, "items")
	require.NoError(t, err)
	assert.True(t, ts.Equal(schema))
	assert.Equal(t, []string{"items"}, c.CachedTables())

	dropped, err := c.DropTable(ctx, "items")
	require.NoError(t, err)
	assert.True(t, dropped)

	_, err = c.GetSchema(ctx, "items")
	assert.ErrorIs(t, err, core.ErrTableNotFound)
}

func TestClient_EnsureTable(t *testing.T) {
	ctx := context.Background()
	c, err := NewClientImpl(ctx, sqliteYAML(filepath.Join(t.TempDir(), "ensure.db"), t.Name()), nil)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	first, err := c.EnsureTable(ctx, "items", columns())
	require.NoError(t, err)
	second, err := c.EnsureTable(ctx, "items", columns())
	require.NoError(t, err)
	assert.True(t, first.Equal(second))

	_, err = c.CreateTable(ctx, "items", columns())
	assert.ErrorIs(t, err, core.ErrTableAlreadyExists)
}

func TestClient_SharedEvents(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.db")

	a, err := NewClientImpl(ctx, sqliteYAML(path, t.Name()), nil)
	require.NoError(t, err)
	defer func() { _ = a.Close() }()
	b, err := NewClientImpl(ctx, sqliteYAML(path, t.Name()), nil)
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	_, err = a.CreateTable(ctx, "items", columns())
	require.NoError(t, err)
	_, err = b.GetSchema(ctx, "items")
	require.NoError(t, err)
	assert.Equal(t, []string{"items"}, b.CachedTables())

	_, err = a.DropTable(ctx, "items")
	require.NoError(t, err)

	applied, err := b.SyncEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)
	assert.Empty(t, b.CachedTables())
}

func TestClient_FromDatabase(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Type: "sqlite", Path: filepath.Join(t.TempDir(), "db.db")}, nil)
	require.NoError(t, err)

	store := kvstore.NewMemoryKVStore()
	c := NewClientFromDatabase(db, registry.Options{Store: store, Namespace: "ns"})

	var created []string
	unregister := c.RegisterHook(registry.LifecycleHookFunc{
		OnCreateFunc: func(_ context.Context, ts *core.TableSchema) error {
			created = append(created, ts.Name)
			return nil
		},
	})
	_, err = c.CreateTable(ctx, "a", columns())
	require.NoError(t, err)
	unregister()
	_, err = c.CreateTable(ctx, "b", columns())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, created)

	_, err = store.Get(ctx, "ns:schema:a")
	require.NoError(t, err)

	require.NoError(t, db.ExecDDL(ctx, `DROP TABLE "b"`))
	evicted, err := c.EvictStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, evicted)

	require.NoError(t, c.Close())
	_, err = store.Get(ctx, "ns:schema:a")
	assert.ErrorIs(t, err, kvstore.ErrClosed)
}

func TestClient_Closed(t *testing.T) {
	ctx := context.Background()
	c, err := NewClientImpl(ctx, sqliteYAML(filepath.Join(t.TempDir(), "closed.db"), t.Name()), nil)
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err = c.Create(ctx, "items", core.Record{})
	assert.ErrorIs(t, err, ErrClosed)
	_, _, err = c.Read(ctx, "items", 1)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = c.ListTables(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = c.SyncEvents(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNewClientImpl_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewClientImpl(ctx, nil, nil)
	assert.Error(t, err)

	_, err = NewClientImpl(ctx, failingProvider{}, nil)
	assert.ErrorContains(t, err, "no config")

	_, err = NewClientImpl(ctx, yamlProvider("database: {type: oracle}"), nil)
	assert.ErrorIs(t, err, core.ErrConfig)

	missingDir := filepath.Join(t.TempDir(), "missing", "x.db")
	_, err = NewClientImpl(ctx, yamlProvider("database: {type: sqlite, path: "+missingDir+"}"), nil)
	assert.ErrorIs(t, err, core.ErrStorageEngine)
}
