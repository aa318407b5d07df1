package schema

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/dynatable/internal/core"
)

func usersSchema() *core.TableSchema {
	return &core.TableSchema{
		Name: "users",
		Columns: []core.ColumnDef{
			core.IDColumnDef(),
			{Name: "name", Type: core.TypeString, Length: 50, Nullable: false},
			{Name: "age", Type: core.TypeInteger, Nullable: true},
			{Name: "active", Type: core.TypeBoolean, Nullable: true, Default: true},
			{Name: "created_at", Type: core.TypeDateTime, Nullable: true, Default: core.DefaultFunc(func() interface{} {
				return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			})},
		},
	}
}

func TestValidator_PrepareInsert(t *testing.T) {
	v := NewValidator()

	t.Run("coerces values and fills defaults", func(t *testing.T) {
		rec, err := v.PrepareInsert(usersSchema(), core.Record{"name": "ann", "age": "30"})
		require.NoError(t, err)
		assert.Equal(t, core.Record{
			"name":       "ann",
			"age":        int64(30),
			"active":     true,
			"created_at": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		}, rec)
	})

	t.Run("explicit nil overrides default", func(t *testing.T) {
		rec, err := v.PrepareInsert(usersSchema(), core.Record{"name": "ann", "active": nil})
		require.NoError(t, err)
		assert.Nil(t, rec["active"])
		assert.Contains(t, rec, "active")
	})

	t.Run("unknown keys", func(t *testing.T) {
		_, err := v.PrepareInsert(usersSchema(), core.Record{"name": "ann", "zip": 1, "city": "x"})
		var unknown *core.UnknownColumnError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, []string{"city", "zip"}, unknown.Columns)
	})

	t.Run("generated key is rejected", func(t *testing.T) {
		_, err := v.PrepareInsert(usersSchema(), core.Record{"id": 5, "name": "ann"})
		assert.ErrorIs(t, err, core.ErrInvalidValue)
	})

	t.Run("bad value", func(t *testing.T) {
		_, err := v.PrepareInsert(usersSchema(), core.Record{"name": "ann", "age": "old"})
		var valueErr *core.ValueError
		require.ErrorAs(t, err, &valueErr)
		assert.Equal(t, "age", valueErr.Column)
	})

	t.Run("json number out of integer range", func(t *testing.T) {
		var rec core.Record
		require.NoError(t, json.Unmarshal([]byte(`{"name": "ann", "age": 1e19}`), &rec))

		_, err := v.PrepareInsert(usersSchema(), rec)
		var valueErr *core.ValueError
		require.ErrorAs(t, err, &valueErr)
		assert.Equal(t, "age", valueErr.Column)
		assert.ErrorIs(t, err, core.ErrInvalidValue)
	})
}

func TestValidator_PrepareUpdate(t *testing.T) {
	v := NewValidator()

	rec, err := v.PrepareUpdate(usersSchema(), core.Record{"age": 31})
	require.NoError(t, err)
	assert.Equal(t, core.Record{"age": int64(31)}, rec)

	_, err = v.PrepareUpdate(usersSchema(), core.Record{"id": 2})
	assert.ErrorIs(t, err, core.ErrInvalidValue)

	_, err = v.PrepareUpdate(usersSchema(), core.Record{"nickname": "a"})
	assert.ErrorIs(t, err, core.ErrUnknownColumn)
}

func TestValidator_PrepareFilters(t *testing.T) {
	v := NewValidator()

	filters, err := v.PrepareFilters(usersSchema(), core.Record{"active": "true", "age": nil})
	require.NoError(t, err)
	assert.Equal(t, core.Record{"active": true, "age": nil}, filters)

	_, err = v.PrepareFilters(usersSchema(), core.Record{"nickname": "a"})
	assert.ErrorIs(t, err, core.ErrUnknownColumn)
}

func TestValidator_CoerceKey(t *testing.T) {
	v := NewValidator()

	id, err := v.CoerceKey(usersSchema(), "12")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	_, err = v.CoerceKey(usersSchema(), "abc")
	assert.ErrorIs(t, err, core.ErrInvalidValue)

	_, err = v.CoerceKey(usersSchema(), nil)
	assert.ErrorIs(t, err, core.ErrInvalidValue)
}
