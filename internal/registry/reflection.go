package registry

import (
	"context"
	"io"
	"log/slog"

	"github.com/rzpsarthak13/dynatable/internal/core"
	"github.com/rzpsarthak13/dynatable/internal/schema"
)

// Reflector rebuilds a TableSchema from the physical catalog of an existing table.
type Reflector struct {
	db     core.Database
	mapper *schema.TypeMapper
	logger *slog.Logger
}

// NewReflector creates a reflector on db.
func NewReflector(db core.Database, logger *slog.Logger) *Reflector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reflector{
		db:     db,
		mapper: schema.NewTypeMapper(),
		logger: logger,
	}
}

// Reflect introspects the table and maps every physical column back to a
// ColumnDef. The mapping is lossy: client-side defaults are never recovered and
// unknown physical types become Text.
//
// The table must have exactly one integer primary key and at least one other column.
func (r *Reflector) Reflect(ctx context.Context, name string) (*core.TableSchema, error) {
	physical, err := r.db.IntrospectColumns(ctx, name)
	if err != nil {
		return nil, &core.ReflectionError{Table: name, Reason: "catalog query failed", Err: err}
	}
	if len(physical) == 0 {
		return nil, &core.ReflectionError{Table: name, Reason: "table has no columns"}
	}

	ts := &core.TableSchema{
		Name:    name,
		Columns: make([]core.ColumnDef, 0, len(physical)),
	}
	var keys, others int
	for _, pc := range physical {
		col := r.column(name, pc)
		if col.PrimaryKey {
			keys++
			if col.Type != core.TypeInteger {
				return nil, &core.ReflectionError{Table: name, Reason: "primary key " + col.Name + " is not an integer column"}
			}
		} else {
			others++
		}
		ts.Columns = append(ts.Columns, col)
	}

	switch {
	case keys == 0:
		return nil, &core.ReflectionError{Table: name, Reason: "table has no primary key"}
	case keys > 1:
		return nil, &core.ReflectionError{Table: name, Reason: "composite primary keys are not supported"}
	case others == 0:
		return nil, &core.ReflectionError{Table: name, Reason: "table has no columns besides the primary key"}
	}

	r.logger.Debug("table reflected", slog.String("table", name), slog.Int("columns", len(ts.Columns)))
	return ts, nil
}

// SameColumns reports whether the physical table has exactly the column names of ts.
func (r *Reflector) SameColumns(ctx context.Context, ts *core.TableSchema) (bool, error) {
	physical, err := r.db.IntrospectColumns(ctx, ts.Name)
	if err != nil {
		return false, &core.ReflectionError{Table: ts.Name, Reason: "catalog query failed", Err: err}
	}
	if len(physical) != len(ts.Columns) {
		return false, nil
	}
	for _, pc := range physical {
		if _, ok := ts.Column(pc.Name); !ok {
			return false, nil
		}
	}
	return true, nil
}

func (r *Reflector) column(table string, pc core.PhysicalColumn) core.ColumnDef {
	typ, known := r.mapper.ColumnTypeFor(pc.DataType)
	if !known {
		r.logger.Warn("unknown physical type, using text",
			slog.String("table", table),
			slog.String("column", pc.Name),
			slog.String("type", pc.DataType))
	}

	col := core.ColumnDef{
		Name:          pc.Name,
		Type:          typ,
		Nullable:      pc.Nullable && !pc.PrimaryKey,
		Unique:        pc.Unique && !pc.PrimaryKey,
		PrimaryKey:    pc.PrimaryKey,
		AutoIncrement: pc.PrimaryKey && pc.AutoIncrement,
	}
	if typ == core.TypeString {
		col.Length = pc.Length
		if col.Length <= 0 {
			col.Length = schema.ParseLength(pc.DataType)
		}
		if col.Length <= 0 {
			col.Length = core.DefaultStringLength
		}
	}
	if pc.Default != nil && !col.AutoIncrement {
		col.ServerDefault = *pc.Default
	}
	return col
}
