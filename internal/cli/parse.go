package cli

import (
	"fmt"
	"strings"

	"github.com/rzpsarthak13/dynatable/internal/core"
	"github.com/rzpsarthak13/dynatable/internal/schema"
)

// parseColumns parses name:type[:key=value,...] arguments into column definitions.
func parseColumns(args []string) ([]core.ColumnDef, error) {
	specs := make([]schema.ColumnSpec, 0, len(args))
	for _, arg := range args {
		spec, err := schema.ParseColumnSpec(arg)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return schema.TranslateAll(specs)
}

// parseAssignments parses key=value arguments. The literal null sets NULL;
// every other value stays a string and is converted by the column type.
func parseAssignments(args []string) (core.Record, error) {
	rec := make(core.Record, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("argument %q must look like column=value", arg)
		}
		if _, dup := rec[key]; dup {
			return nil, fmt.Errorf("column %q given more than once", key)
		}
		if value == "null" {
			rec[key] = nil
			continue
		}
		rec[key] = value
	}
	return rec, nil
}
