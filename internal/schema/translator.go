package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rzpsarthak13/dynatable/internal/core"
)

// Recognized column option keys.
const (
	OptionLength     = "length"
	OptionNullable   = "nullable"
	OptionUnique     = "unique"
	OptionDefault    = "default"
	OptionPrimaryKey = "primary_key"
)

// Options configures a column. Unset keys take their defaults: nullable=true,
// unique=false, primary_key=false and, for String columns, length=255.
type Options map[string]interface{}

// ColumnSpec is an authored column: a name, a type tag and its options.
type ColumnSpec struct {
	Name    string
	Type    string
	Options Options
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether name can be used as a table or column name.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// ParseType resolves a case-insensitive type tag.
func ParseType(tag string) (core.ColumnType, error) {
	switch core.ColumnType(strings.ToLower(strings.TrimSpace(tag))) {
	case core.TypeInteger:
		return core.TypeInteger, nil
	case core.TypeString:
		return core.TypeString, nil
	case core.TypeText:
		return core.TypeText, nil
	case core.TypeDateTime:
		return core.TypeDateTime, nil
	case core.TypeFloat:
		return core.TypeFloat, nil
	case core.TypeBoolean:
		return core.TypeBoolean, nil
	default:
		return "", &core.UnsupportedTypeError{Type: tag}
	}
}

// Translate maps a type tag and options to a column definition.
// It has no side effects.
func Translate(name, tag string, opts Options) (core.ColumnDef, error) {
	if name == "" {
		return core.ColumnDef{}, &core.SchemaError{Reason: "column name cannot be empty"}
	}

	columnType, err := ParseType(tag)
	if err != nil {
		return core.ColumnDef{}, err
	}

	def := core.ColumnDef{
		Name:     name,
		Type:     columnType,
		Nullable: true,
	}
	if columnType == core.TypeString {
		def.Length = core.DefaultStringLength
	}

	// Sorted so the first reported problem does not depend on map order
	keys := make([]string, 0, len(opts))
	for key := range opts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := opts[key]
		switch key {
		case OptionLength:
			if columnType != core.TypeString {
				return core.ColumnDef{}, &core.SchemaError{Column: name, Reason: fmt.Sprintf("length is only valid for string columns, not %s", columnType)}
			}
			n, ok := asInt(value)
			if !ok {
				return core.ColumnDef{}, &core.SchemaError{Column: name, Reason: fmt.Sprintf("length must be an integer, got %T", value)}
			}
			if n <= 0 {
				return core.ColumnDef{}, &core.SchemaError{Column: name, Reason: "length must be positive"}
			}
			def.Length = n
		case OptionNullable, OptionUnique, OptionPrimaryKey:
			b, ok := value.(bool)
			if !ok {
				return core.ColumnDef{}, &core.SchemaError{Column: name, Reason: fmt.Sprintf("%s must be a bool, got %T", key, value)}
			}
			switch key {
			case OptionNullable:
				def.Nullable = b
			case OptionUnique:
				def.Unique = b
			default:
				def.PrimaryKey = b
			}
		case OptionDefault:
			if fn, ok := value.(func() interface{}); ok {
				def.Default = core.DefaultFunc(fn)
			} else {
				def.Default = value
			}
		default:
			return core.ColumnDef{}, &core.SchemaError{Column: name, Reason: fmt.Sprintf("unknown option %q", key)}
		}
	}

	return def, nil
}

// TranslateAll translates an ordered list of column specs and rejects duplicate names.
func TranslateAll(specs []ColumnSpec) ([]core.ColumnDef, error) {
	defs := make([]core.ColumnDef, 0, len(specs))
	seen := make(map[string]bool, len(specs))
	for _, spec := range specs {
		if seen[spec.Name] {
			return nil, &core.SchemaError{Column: spec.Name, Reason: "duplicate column"}
		}
		seen[spec.Name] = true

		def, err := Translate(spec.Name, spec.Type, spec.Options)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// ParseColumnSpec parses the compact form name:type[:key=value,...], for example
// "email:string:length=100,unique=true,nullable=false".
func ParseColumnSpec(s string) (ColumnSpec, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return ColumnSpec{}, &core.SchemaError{Reason: fmt.Sprintf("column spec %q must look like name:type[:key=value,...]", s)}
	}

	spec := ColumnSpec{Name: parts[0], Type: parts[1], Options: Options{}}
	if len(parts) < 3 || parts[2] == "" {
		return spec, nil
	}

	for _, pair := range strings.Split(parts[2], ",") {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return ColumnSpec{}, &core.SchemaError{Column: spec.Name, Reason: fmt.Sprintf("option %q must look like key=value", pair)}
		}
		key = strings.TrimSpace(key)
		raw = strings.TrimSpace(raw)
		switch key {
		case OptionLength:
			n, err := strconv.Atoi(raw)
			if err != nil {
				return ColumnSpec{}, &core.SchemaError{Column: spec.Name, Reason: fmt.Sprintf("length %q is not an integer", raw)}
			}
			spec.Options[key] = n
		case OptionNullable, OptionUnique, OptionPrimaryKey:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return ColumnSpec{}, &core.SchemaError{Column: spec.Name, Reason: fmt.Sprintf("%s %q is not a bool", key, raw)}
			}
			spec.Options[key] = b
		default:
			// Left for Translate to accept (default) or reject (anything else)
			spec.Options[key] = raw
		}
	}
	return spec, nil
}

func asInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}
