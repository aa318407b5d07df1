package dynatable

import (
	"github.com/rzpsarthak13/dynatable/internal/core"
	"github.com/rzpsarthak13/dynatable/internal/registry"
	"github.com/rzpsarthak13/dynatable/internal/schema"
)

// Record is one row: column name to value.
type Record = core.Record

// ColumnType is a logical column type.
type ColumnType = core.ColumnType

// Logical column types.
const (
	TypeInteger  = core.TypeInteger
	TypeString   = core.TypeString
	TypeText     = core.TypeText
	TypeDateTime = core.TypeDateTime
	TypeFloat    = core.TypeFloat
	TypeBoolean  = core.TypeBoolean
)

// ColumnDef describes one column of a table.
type ColumnDef = core.ColumnDef

// TableSchema is the resolved shape of a table. The first column is always
// the integer primary key "id".
type TableSchema = core.TableSchema

// DefaultFunc generates a client-side default for each insert.
type DefaultFunc = core.DefaultFunc

// Options configures a column for Column. Keys are the Option* constants.
type Options = schema.Options

// Column option keys.
const (
	OptionLength     = schema.OptionLength
	OptionNullable   = schema.OptionNullable
	OptionUnique     = schema.OptionUnique
	OptionDefault    = schema.OptionDefault
	OptionPrimaryKey = schema.OptionPrimaryKey
)

// LifecycleHook is notified after a table is created or dropped.
type LifecycleHook = registry.LifecycleHook

// LifecycleHookFunc adapts plain functions to LifecycleHook.
type LifecycleHookFunc = registry.LifecycleHookFunc

// Column builds a column definition from a case-insensitive type tag
// (integer, string, text, datetime, float, boolean) and options.
//
//	email, err := dynatable.Column("email", "string", dynatable.Options{
//		dynatable.OptionLength:   100,
//		dynatable.OptionUnique:   true,
//		dynatable.OptionNullable: false,
//	})
func Column(name, tag string, opts Options) (ColumnDef, error) {
	return schema.Translate(name, tag, opts)
}

// ParseColumn parses the compact form name:type[:key=value,...].
func ParseColumn(spec string) (ColumnDef, error) {
	cs, err := schema.ParseColumnSpec(spec)
	if err != nil {
		return ColumnDef{}, err
	}
	return schema.Translate(cs.Name, cs.Type, cs.Options)
}
