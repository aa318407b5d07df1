package schema

import (
	"fmt"
	"strings"

	"github.com/rzpsarthak13/dynatable/internal/core"
)

// StatementBuilder renders DDL and DML for a schema in one engine's dialect and
// scans result rows back into records.
type StatementBuilder struct {
	dialect core.Dialect
	mapper  *TypeMapper
}

// NewStatementBuilder creates a builder for the given dialect.
func NewStatementBuilder(dialect core.Dialect) *StatementBuilder {
	return &StatementBuilder{
		dialect: dialect,
		mapper:  NewTypeMapper(),
	}
}

// Dialect returns the dialect the builder renders for.
func (b *StatementBuilder) Dialect() core.Dialect {
	return b.dialect
}

// CreateTable returns the statements that create the table, the implicit primary key included.
func (b *StatementBuilder) CreateTable(schema *core.TableSchema) []string {
	defs := []string{b.dialect.IDColumnDDL(schema.Name)}
	for _, col := range schema.Columns {
		if col.PrimaryKey {
			continue
		}
		def := b.dialect.QuoteIdent(col.Name) + " " + b.dialect.ColumnType(col)
		if !col.Nullable {
			def += " NOT NULL"
		}
		if col.Unique {
			def += " UNIQUE"
		}
		defs = append(defs, def)
	}

	statements := append([]string{}, b.dialect.CreatePrelude(schema.Name)...)
	statements = append(statements, fmt.Sprintf("CREATE TABLE %s (%s)",
		b.dialect.QuoteIdent(schema.Name), strings.Join(defs, ", ")))
	return statements
}

// DropTable returns the statements that drop the table.
func (b *StatementBuilder) DropTable(table string) []string {
	statements := []string{fmt.Sprintf("DROP TABLE %s", b.dialect.QuoteIdent(table))}
	return append(statements, b.dialect.DropEpilogue(table)...)
}

// selectList renders the quoted column list in ordinal order.
func (b *StatementBuilder) selectList(schema *core.TableSchema) string {
	cols := make([]string, len(schema.Columns))
	for i, col := range schema.Columns {
		cols[i] = b.dialect.QuoteIdent(col.Name)
	}
	return strings.Join(cols, ", ")
}

// Insert builds an INSERT for a prepared record. Columns follow schema order so
// the statement text is deterministic. When the dialect supports it the new
// primary key is returned through RETURNING.
func (b *StatementBuilder) Insert(schema *core.TableSchema, record core.Record) (string, []interface{}) {
	table := b.dialect.QuoteIdent(schema.Name)

	var cols, placeholders []string
	var args []interface{}
	for _, col := range schema.Columns {
		value, ok := record[col.Name]
		if !ok {
			continue
		}
		args = append(args, value)
		cols = append(cols, b.dialect.QuoteIdent(col.Name))
		placeholders = append(placeholders, b.dialect.Placeholder(len(args)))
	}

	var query string
	if len(cols) == 0 {
		query = b.dialect.EmptyInsert(table)
	} else {
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	}

	if b.dialect.SupportsReturning() {
		if pk, ok := schema.PrimaryKey(); ok {
			query += " RETURNING " + b.dialect.QuoteIdent(pk.Name)
		}
	}
	return query, args
}

// SelectByKey builds a single-row lookup by primary key.
func (b *StatementBuilder) SelectByKey(schema *core.TableSchema, id interface{}) (string, []interface{}) {
	pk, _ := schema.PrimaryKey()
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		b.selectList(schema), b.dialect.QuoteIdent(schema.Name),
		b.dialect.QuoteIdent(pk.Name), b.dialect.Placeholder(1))
	return query, []interface{}{id}
}

// SelectAll builds a conjunctive equality query ordered by primary key.
// A nil filter value matches NULL.
func (b *StatementBuilder) SelectAll(schema *core.TableSchema, filters core.Record) (string, []interface{}) {
	query := fmt.Sprintf("SELECT %s FROM %s", b.selectList(schema), b.dialect.QuoteIdent(schema.Name))

	var conds []string
	var args []interface{}
	for _, col := range schema.Columns {
		value, ok := filters[col.Name]
		if !ok {
			continue
		}
		if value == nil {
			conds = append(conds, b.dialect.QuoteIdent(col.Name)+" IS NULL")
			continue
		}
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = %s", b.dialect.QuoteIdent(col.Name), b.dialect.Placeholder(len(args))))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	if pk, ok := schema.PrimaryKey(); ok {
		query += " ORDER BY " + b.dialect.QuoteIdent(pk.Name)
	}
	return query, args
}

// Update builds an UPDATE of the present keys of a prepared partial record.
func (b *StatementBuilder) Update(schema *core.TableSchema, id interface{}, partial core.Record) (string, []interface{}) {
	pk, _ := schema.PrimaryKey()

	var sets []string
	var args []interface{}
	for _, col := range schema.Columns {
		value, ok := partial[col.Name]
		if !ok {
			continue
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = %s", b.dialect.QuoteIdent(col.Name), b.dialect.Placeholder(len(args))))
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		b.dialect.QuoteIdent(schema.Name), strings.Join(sets, ", "),
		b.dialect.QuoteIdent(pk.Name), b.dialect.Placeholder(len(args)))
	return query, args
}

// Delete builds a DELETE by primary key.
func (b *StatementBuilder) Delete(schema *core.TableSchema, id interface{}) (string, []interface{}) {
	pk, _ := schema.PrimaryKey()
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		b.dialect.QuoteIdent(schema.Name), b.dialect.QuoteIdent(pk.Name), b.dialect.Placeholder(1))
	return query, []interface{}{id}
}

// ScanRecord reads the current row of a result produced by SelectByKey or
// SelectAll and normalizes every value to its column's Go type.
func (b *StatementBuilder) ScanRecord(rows core.Rows, schema *core.TableSchema) (core.Record, error) {
	values := make([]interface{}, len(schema.Columns))
	dest := make([]interface{}, len(schema.Columns))
	for i := range values {
		dest[i] = &values[i]
	}

	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	record := make(core.Record, len(schema.Columns))
	for i, col := range schema.Columns {
		value, err := b.mapper.ConvertFromDBValue(values[i], col.Type)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name, err)
		}
		record[col.Name] = value
	}
	return record, nil
}
