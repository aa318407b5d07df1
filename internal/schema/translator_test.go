package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/dynatable/internal/core"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name    string
		tag     string
		opts    Options
		want    core.ColumnDef
		wantErr error
	}{
		{
			name: "string defaults to length 255",
			tag:  "String",
			want: core.ColumnDef{Name: "col", Type: core.TypeString, Length: 255, Nullable: true},
		},
		{
			name: "string with explicit length",
			tag:  "string",
			opts: Options{"length": 50, "nullable": false, "unique": true},
			want: core.ColumnDef{Name: "col", Type: core.TypeString, Length: 50, Nullable: false, Unique: true},
		},
		{
			name: "integer",
			tag:  "INTEGER",
			want: core.ColumnDef{Name: "col", Type: core.TypeInteger, Nullable: true},
		},
		{
			name: "length accepts float64 from decoded config",
			tag:  "string",
			opts: Options{"length": float64(20)},
			want: core.ColumnDef{Name: "col", Type: core.TypeString, Length: 20, Nullable: true},
		},
		{
			name: "primary key flag",
			tag:  "integer",
			opts: Options{"primary_key": true},
			want: core.ColumnDef{Name: "col", Type: core.TypeInteger, Nullable: true, PrimaryKey: true},
		},
		{
			name:    "unknown tag",
			tag:     "uuid",
			wantErr: core.ErrUnsupportedType,
		},
		{
			name:    "length on integer is rejected",
			tag:     "integer",
			opts:    Options{"length": 10},
			wantErr: core.ErrInvalidSchema,
		},
		{
			name:    "non positive length",
			tag:     "string",
			opts:    Options{"length": 0},
			wantErr: core.ErrInvalidSchema,
		},
		{
			name:    "unknown option",
			tag:     "text",
			opts:    Options{"index": true},
			wantErr: core.ErrInvalidSchema,
		},
		{
			name:    "mistyped nullable",
			tag:     "boolean",
			opts:    Options{"nullable": "no"},
			wantErr: core.ErrInvalidSchema,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Translate("col", tt.tag, tt.opts)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslate_UnsupportedTypeCarriesTag(t *testing.T) {
	_, err := Translate("col", "money", nil)

	var typeErr *core.UnsupportedTypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, "money", typeErr.Type)
}

func TestTranslate_DefaultGenerator(t *testing.T) {
	calls := 0
	def, err := Translate("created", "integer", Options{"default": func() interface{} {
		calls++
		return calls
	}})
	require.NoError(t, err)

	v1, ok := def.DefaultValue()
	require.True(t, ok)
	v2, _ := def.DefaultValue()
	assert.Equal(t, 1, v1)
	assert.Equal(t, 2, v2)
}

func TestTranslateAll(t *testing.T) {
	t.Run("keeps order", func(t *testing.T) {
		defs, err := TranslateAll([]ColumnSpec{
			{Name: "name", Type: "string"},
			{Name: "age", Type: "integer"},
		})
		require.NoError(t, err)
		require.Len(t, defs, 2)
		assert.Equal(t, "name", defs[0].Name)
		assert.Equal(t, "age", defs[1].Name)
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		_, err := TranslateAll([]ColumnSpec{
			{Name: "name", Type: "string"},
			{Name: "name", Type: "text"},
		})
		assert.ErrorIs(t, err, core.ErrInvalidSchema)
	})
}

func TestParseColumnSpec(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ColumnSpec
		wantErr bool
	}{
		{
			name:  "name and type",
			input: "age:integer",
			want:  ColumnSpec{Name: "age", Type: "integer", Options: Options{}},
		},
		{
			name:  "with options",
			input: "email:string:length=100,unique=true,nullable=false",
			want: ColumnSpec{Name: "email", Type: "string", Options: Options{
				"length": 100, "unique": true, "nullable": false,
			}},
		},
		{
			name:  "default stays raw",
			input: "status:string:default=new",
			want:  ColumnSpec{Name: "status", Type: "string", Options: Options{"default": "new"}},
		},
		{name: "missing type", input: "age", wantErr: true},
		{name: "bad length", input: "name:string:length=abc", wantErr: true},
		{name: "bad pair", input: "name:string:unique", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseColumnSpec(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrInvalidSchema)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("users"))
	assert.True(t, ValidIdentifier("_tmp_2"))
	assert.False(t, ValidIdentifier("2users"))
	assert.False(t, ValidIdentifier("users; DROP TABLE x"))
	assert.False(t, ValidIdentifier(""))
}
