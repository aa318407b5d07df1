package schema

import (
	"errors"
	"sort"

	"github.com/rzpsarthak13/dynatable/internal/core"
)

var (
	errGeneratedKey = errors.New("primary key is generated by the database")
	errImmutableKey = errors.New("primary key cannot be updated")
)

// Validator checks records against a schema and coerces values to column types.
// Every check runs before a transaction is opened.
type Validator struct {
	mapper *TypeMapper
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{mapper: NewTypeMapper()}
}

// CheckColumns returns an UnknownColumnError naming every key the schema lacks.
func (v *Validator) CheckColumns(schema *core.TableSchema, record core.Record) error {
	var unknown []string
	for key := range record {
		if !schema.HasColumn(key) {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return &core.UnknownColumnError{Table: schema.Name, Columns: unknown}
}

// PrepareInsert validates a record for insertion, fills client-side defaults for
// omitted columns and coerces every value to its column type.
func (v *Validator) PrepareInsert(schema *core.TableSchema, record core.Record) (core.Record, error) {
	if err := v.CheckColumns(schema, record); err != nil {
		return nil, err
	}

	out := make(core.Record, len(schema.Columns))
	for _, col := range schema.Columns {
		value, present := record[col.Name]
		if col.PrimaryKey && col.AutoIncrement {
			if present {
				return nil, &core.ValueError{Table: schema.Name, Column: col.Name, Value: value, Err: errGeneratedKey}
			}
			continue
		}
		if !present {
			def, ok := col.DefaultValue()
			if !ok {
				continue
			}
			value = def
		}

		converted, err := v.coerce(schema, col, value)
		if err != nil {
			return nil, err
		}
		out[col.Name] = converted
	}
	return out, nil
}

// PrepareUpdate validates a partial record. Only present keys are kept.
func (v *Validator) PrepareUpdate(schema *core.TableSchema, partial core.Record) (core.Record, error) {
	if err := v.CheckColumns(schema, partial); err != nil {
		return nil, err
	}

	out := make(core.Record, len(partial))
	for key, value := range partial {
		col, _ := schema.Column(key)
		if col.PrimaryKey {
			return nil, &core.ValueError{Table: schema.Name, Column: key, Value: value, Err: errImmutableKey}
		}
		converted, err := v.coerce(schema, col, value)
		if err != nil {
			return nil, err
		}
		out[key] = converted
	}
	return out, nil
}

// PrepareFilters validates equality filters. Unknown filter keys are rejected.
func (v *Validator) PrepareFilters(schema *core.TableSchema, filters core.Record) (core.Record, error) {
	if err := v.CheckColumns(schema, filters); err != nil {
		return nil, err
	}

	out := make(core.Record, len(filters))
	for key, value := range filters {
		col, _ := schema.Column(key)
		converted, err := v.coerce(schema, col, value)
		if err != nil {
			return nil, err
		}
		out[key] = converted
	}
	return out, nil
}

// CoerceKey converts a primary key value to the type of the key column.
func (v *Validator) CoerceKey(schema *core.TableSchema, id interface{}) (interface{}, error) {
	pk, ok := schema.PrimaryKey()
	if !ok {
		return nil, &core.SchemaError{Table: schema.Name, Reason: "schema has no primary key"}
	}
	if id == nil {
		return nil, &core.ValueError{Table: schema.Name, Column: pk.Name, Value: id, Err: errors.New("primary key cannot be nil")}
	}
	return v.coerce(schema, pk, id)
}

func (v *Validator) coerce(schema *core.TableSchema, col core.ColumnDef, value interface{}) (interface{}, error) {
	converted, err := v.mapper.ConvertToDBValue(value, col.Type)
	if err != nil {
		return nil, &core.ValueError{Table: schema.Name, Column: col.Name, Value: value, Err: err}
	}
	return converted, nil
}
