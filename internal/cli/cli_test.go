package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/dynatable/internal/core"
)

type result struct {
	stdout string
	stderr string
	err    error
}

// run executes the CLI against the sqlite database at path.
func run(t *testing.T, path, stdin string, args ...string) result {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--db-type", "sqlite", "--db-path", path))
	err := cmd.ExecuteContext(context.Background())
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func decode(t *testing.T, data string, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(data), v), "output: %s", data)
}

func TestParseColumns(t *testing.T) {
	cols, err := parseColumns([]string{"email:string:length=60,unique=true,nullable=false", "age:integer"})
	require.NoError(t, err)
	assert.Equal(t, []core.ColumnDef{
		{Name: "email", Type: core.TypeString, Length: 60, Unique: true},
		{Name: "age", Type: core.TypeInteger, Nullable: true},
	}, cols)

	_, err = parseColumns([]string{"age:integer", "age:string"})
	assert.ErrorIs(t, err, core.ErrInvalidSchema)

	_, err = parseColumns([]string{"blob:binary"})
	assert.ErrorIs(t, err, core.ErrUnsupportedType)
}

func TestParseAssignments(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    core.Record
		wantErr bool
	}{
		{"empty", nil, core.Record{}, false},
		{"values", []string{"a=1", "b=x=y"}, core.Record{"a": "1", "b": "x=y"}, false},
		{"null", []string{"a=null"}, core.Record{"a": nil}, false},
		{"empty value", []string{"a="}, core.Record{"a": ""}, false},
		{"missing equals", []string{"a"}, nil, true},
		{"missing key", []string{"=1"}, nil, true},
		{"duplicate", []string{"a=1", "a=2"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAssignments(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTablesCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.db")

	res := run(t, path, "", "tables", "create", "users", "email:string:length=60,unique=true,nullable=false", "age:integer", "-o", "json")
	require.NoError(t, res.err, res.stderr)
	var ts core.TableSchema
	decode(t, res.stdout, &ts)
	assert.Equal(t, []string{"id", "email", "age"}, ts.ColumnNames())

	res = run(t, path, "", "tables", "create", "users", "x:integer")
	assert.ErrorIs(t, res.err, core.ErrTableAlreadyExists)

	res = run(t, path, "", "tables", "list", "-o", "json")
	require.NoError(t, res.err)
	var names []string
	decode(t, res.stdout, &names)
	assert.Equal(t, []string{"users"}, names)

	res = run(t, path, "", "tables", "exists", "users")
	require.NoError(t, res.err)
	assert.Equal(t, "users: true\n", res.stdout)

	res = run(t, path, "", "tables", "describe", "users")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "email")
	assert.Contains(t, res.stdout, "PK auto")

	res = run(t, path, "n\n", "tables", "drop", "users")
	assert.ErrorIs(t, res.err, errAborted)
	assert.Contains(t, res.stderr, `Drop table "users"`)

	res = run(t, path, "y\n", "tables", "drop", "users")
	require.NoError(t, res.err)
	assert.Equal(t, "dropped users\n", res.stdout)

	res = run(t, path, "", "tables", "drop", "users", "--yes")
	assert.ErrorIs(t, res.err, core.ErrTableNotFound)

	res = run(t, path, "", "tables", "describe", "users")
	assert.ErrorIs(t, res.err, core.ErrTableNotFound)
}

func TestRecordsCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.db")
	res := run(t, path, "", "tables", "create", "users", "email:string:unique=true", "age:integer")
	require.NoError(t, res.err, res.stderr)

	res = run(t, path, "", "records", "create", "users", "email=a@example.com", "age=31", "-o", "json")
	require.NoError(t, res.err, res.stderr)
	var created []map[string]interface{}
	decode(t, res.stdout, &created)
	require.Len(t, created, 1)
	assert.Equal(t, float64(1), created[0]["id"])
	assert.Equal(t, float64(31), created[0]["age"])

	res = run(t, path, "", "records", "get", "users", "1")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "a@example.com")
	assert.Contains(t, res.stdout, "(1 rows)")

	res = run(t, path, "", "records", "update", "users", "1", "age=null", "-o", "json")
	require.NoError(t, res.err)
	var updated []map[string]interface{}
	decode(t, res.stdout, &updated)
	require.Len(t, updated, 1)
	assert.Nil(t, updated[0]["age"])

	res = run(t, path, "", "records", "create", "users", "email=b@example.com")
	require.NoError(t, res.err)

	res = run(t, path, "", "records", "list", "users", "age=null", "-o", "json")
	require.NoError(t, res.err)
	var listed []map[string]interface{}
	decode(t, res.stdout, &listed)
	assert.Len(t, listed, 2)

	res = run(t, path, "", "records", "list", "users", "email=nobody")
	require.NoError(t, res.err)
	assert.Equal(t, "(0 rows)\n", res.stdout)

	res = run(t, path, "", "records", "create", "users", "nickname=x")
	assert.ErrorIs(t, res.err, core.ErrUnknownColumn)

	res = run(t, path, "", "records", "delete", "users", "1")
	require.NoError(t, res.err)
	assert.Equal(t, "deleted users 1\n", res.stdout)

	res = run(t, path, "", "records", "delete", "users", "1")
	assert.ErrorIs(t, res.err, core.ErrRecordNotFound)

	res = run(t, path, "", "records", "get", "users", "1")
	assert.ErrorIs(t, res.err, core.ErrRecordNotFound)

	res = run(t, path, "", "records", "update", "users", "1", "age=3")
	assert.ErrorIs(t, res.err, core.ErrRecordNotFound)

	res = run(t, path, "", "records", "list", "ghost")
	assert.ErrorIs(t, res.err, core.ErrTableNotFound)
}

func TestCacheEvict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.db")
	res := run(t, path, "", "cache", "evict", "users", "orders", "--cache-type", "memory", "-o", "json")
	require.NoError(t, res.err, res.stderr)

	var out map[string][]string
	decode(t, res.stdout, &out)
	assert.Equal(t, []string{"users", "orders"}, out["evicted"])
}

func TestRootFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.db")

	res := run(t, path, "", "tables", "list", "-o", "yaml")
	assert.ErrorContains(t, res.err, "unsupported output format")

	res = run(t, path, "", "tables", "list", "--cache-type", "memcached")
	assert.ErrorIs(t, res.err, core.ErrConfig)

	res = run(t, path, "", "tables", "list", "-v")
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "database connected")
}
