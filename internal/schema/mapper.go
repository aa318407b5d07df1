package schema

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rzpsarthak13/dynatable/internal/core"
)

// TypeMapper handles mapping between physical database types, abstract column
// types and Go values.
type TypeMapper struct{}

// NewTypeMapper creates a new type mapper.
func NewTypeMapper() *TypeMapper {
	return &TypeMapper{}
}

// baseType upper-cases a physical type and strips size/precision information
// (e.g., VARCHAR(255) -> VARCHAR).
func baseType(physical string) string {
	upper := strings.ToUpper(strings.TrimSpace(physical))
	if idx := strings.Index(upper, "("); idx > 0 {
		upper = strings.TrimSpace(upper[:idx])
	}
	return upper
}

// ColumnTypeFor maps a physical database type back to the closest column type.
// The second return value is false when the type was not recognized, in which
// case Text is returned.
func (tm *TypeMapper) ColumnTypeFor(physical string) (core.ColumnType, bool) {
	// MySQL reports booleans as tinyint(1)
	if strings.EqualFold(strings.ReplaceAll(physical, " ", ""), "tinyint(1)") {
		return core.TypeBoolean, true
	}

	switch baseType(physical) {
	case "INT", "INTEGER", "MEDIUMINT", "BIGINT", "SMALLINT", "TINYINT",
		"INT2", "INT4", "INT8", "SERIAL", "BIGSERIAL", "SMALLSERIAL",
		"HUGEINT", "UBIGINT", "UINTEGER", "USMALLINT", "UTINYINT":
		return core.TypeInteger, true
	case "VARCHAR", "CHAR", "CHARACTER VARYING", "CHARACTER", "NVARCHAR", "NCHAR", "VARCHAR2":
		return core.TypeString, true
	case "TEXT", "LONGTEXT", "MEDIUMTEXT", "TINYTEXT", "CLOB", "STRING":
		return core.TypeText, true
	case "DATE", "DATETIME", "TIMESTAMP", "TIMESTAMP WITHOUT TIME ZONE",
		"TIMESTAMP WITH TIME ZONE", "TIMESTAMPTZ":
		return core.TypeDateTime, true
	case "FLOAT", "DOUBLE", "DOUBLE PRECISION", "REAL", "FLOAT4", "FLOAT8", "DECIMAL", "NUMERIC":
		return core.TypeFloat, true
	case "BOOLEAN", "BOOL":
		return core.TypeBoolean, true
	default:
		return core.TypeText, false
	}
}

// ParseLength extracts the length from a declared type such as VARCHAR(50).
// Returns 0 when no length is present.
func ParseLength(physical string) int {
	open := strings.Index(physical, "(")
	end := strings.Index(physical, ")")
	if open < 0 || end <= open+1 {
		return 0
	}
	inner := physical[open+1 : end]
	if comma := strings.Index(inner, ","); comma >= 0 {
		inner = inner[:comma]
	}
	n, err := strconv.Atoi(strings.TrimSpace(inner))
	if err != nil {
		return 0
	}
	return n
}

// ConvertToDBValue converts a Go value to a value the driver can bind for the column type.
func (tm *TypeMapper) ConvertToDBValue(value interface{}, columnType core.ColumnType) (interface{}, error) {
	if value == nil {
		return nil, nil
	}

	switch columnType {
	case core.TypeInteger:
		return tm.toInt64(value)
	case core.TypeString, core.TypeText:
		return tm.toString(value)
	case core.TypeDateTime:
		return tm.toTime(value)
	case core.TypeFloat:
		return tm.toFloat64(value)
	case core.TypeBoolean:
		return tm.toBool(value)
	default:
		return nil, &core.UnsupportedTypeError{Type: string(columnType)}
	}
}

// ConvertFromDBValue normalizes a scanned driver value to the Go type of the column:
// int64, string, time.Time, float64 or bool.
func (tm *TypeMapper) ConvertFromDBValue(value interface{}, columnType core.ColumnType) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	if b, ok := value.([]byte); ok {
		value = string(b)
	}
	return tm.ConvertToDBValue(value, columnType)
}

// Helper conversion functions

func (tm *TypeMapper) toInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", v)
		}
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", v)
		}
		return int64(v), nil
	case float32:
		return tm.toInt64(float64(v))
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("cannot convert non-integral float %g to int64", v)
		}
		if v < math.MinInt64 || v >= 1<<63 {
			return 0, fmt.Errorf("value %g overflows int64", v)
		}
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert string to int64: %w", err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int64", value)
	}
}

func (tm *TypeMapper) toFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int, int8, int16, int32, int64:
		return float64(reflect.ValueOf(v).Int()), nil
	case uint, uint8, uint16, uint32, uint64:
		return float64(reflect.ValueOf(v).Uint()), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert string to float64: %w", err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", value)
	}
}

func (tm *TypeMapper) toString(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("cannot convert %T to string", value)
	}
}

// timeFormats are tried in order when parsing datetime strings.
var timeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (tm *TypeMapper) toTime(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		for _, format := range timeFormats {
			if t, err := time.Parse(format, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse time string: %s", v)
	case int64:
		// Assume Unix timestamp
		return time.Unix(v, 0).UTC(), nil
	case int:
		return time.Unix(int64(v), 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to time.Time", value)
	}
}

func (tm *TypeMapper) toBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case int, int8, int16, int32, int64:
		// Non-zero is true
		return reflect.ValueOf(v).Int() != 0, nil
	case uint, uint8, uint16, uint32, uint64:
		return reflect.ValueOf(v).Uint() != 0, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			// Try numeric string
			if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return i != 0, nil
			}
			return false, fmt.Errorf("cannot convert string to bool: %w", err)
		}
		return b, nil
	default:
		return false, fmt.Errorf("cannot convert %T to bool", value)
	}
}
