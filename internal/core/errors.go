package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedType    = errors.New("unsupported column type")
	ErrTableAlreadyExists = errors.New("table already exists")
	ErrTableNotFound      = errors.New("table not found")
	ErrUnknownColumn      = errors.New("unknown column")
	ErrReflection         = errors.New("reflection failed")
	ErrStorageEngine      = errors.New("storage engine error")
	ErrInvalidSchema      = errors.New("invalid schema")
	ErrInvalidValue       = errors.New("invalid value")
	ErrConfig             = errors.New("invalid configuration")

	// ErrRecordNotFound marks the business-level absence of a row. CRUD methods
	// report absence through a found flag; callers that prefer an error use this.
	ErrRecordNotFound = errors.New("record not found")

	// ErrKeyNotFound is returned by KV stores when a key is missing or expired.
	ErrKeyNotFound = errors.New("key not found")
)

// UnsupportedTypeError is returned when a column type tag is not recognized.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported column type %q", e.Type)
}

func (e *UnsupportedTypeError) Is(target error) bool { return target == ErrUnsupportedType }

// TableAlreadyExistsError is returned when creating a table that is already present.
type TableAlreadyExistsError struct {
	Table string
}

func (e *TableAlreadyExistsError) Error() string {
	return fmt.Sprintf("table %q already exists", e.Table)
}

func (e *TableAlreadyExistsError) Is(target error) bool { return target == ErrTableAlreadyExists }

// TableNotFoundError is returned when a table neither exists nor may be created.
type TableNotFoundError struct {
	Table string
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("table %q not found", e.Table)
}

func (e *TableNotFoundError) Is(target error) bool { return target == ErrTableNotFound }

// UnknownColumnError lists record or filter keys that the schema does not declare.
type UnknownColumnError struct {
	Table   string
	Columns []string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("table %q has no column(s) %s", e.Table, strings.Join(e.Columns, ", "))
}

func (e *UnknownColumnError) Is(target error) bool { return target == ErrUnknownColumn }

// ReflectionError is returned when a table cannot be turned into a schema.
type ReflectionError struct {
	Table  string
	Reason string
	Err    error
}

func (e *ReflectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("reflect table %q: %s: %v", e.Table, e.Reason, e.Err)
	}
	return fmt.Sprintf("reflect table %q: %s", e.Table, e.Reason)
}

func (e *ReflectionError) Is(target error) bool { return target == ErrReflection }

func (e *ReflectionError) Unwrap() error { return e.Err }

// StorageEngineError wraps a connectivity, DDL or DML failure and keeps the cause.
type StorageEngineError struct {
	Op    string
	Table string
	Err   error
}

func (e *StorageEngineError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Table, e.Err)
}

func (e *StorageEngineError) Is(target error) bool { return target == ErrStorageEngine }

func (e *StorageEngineError) Unwrap() error { return e.Err }

// NewStorageError wraps err unless it already is a StorageEngineError.
func NewStorageError(op, table string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageEngineError
	if errors.As(err, &se) {
		return err
	}
	return &StorageEngineError{Op: op, Table: table, Err: err}
}

// SchemaError reports a malformed column or table definition.
type SchemaError struct {
	Table  string
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	switch {
	case e.Column != "" && e.Table != "":
		return fmt.Sprintf("table %q column %q: %s", e.Table, e.Column, e.Reason)
	case e.Column != "":
		return fmt.Sprintf("column %q: %s", e.Column, e.Reason)
	case e.Table != "":
		return fmt.Sprintf("table %q: %s", e.Table, e.Reason)
	default:
		return e.Reason
	}
}

func (e *SchemaError) Is(target error) bool { return target == ErrInvalidSchema }

// ValueError reports a record value that cannot be stored in its column.
type ValueError struct {
	Table  string
	Column string
	Value  interface{}
	Err    error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("table %q column %q: invalid value %v: %v", e.Table, e.Column, e.Value, e.Err)
}

func (e *ValueError) Is(target error) bool { return target == ErrInvalidValue }

func (e *ValueError) Unwrap() error { return e.Err }

// ConfigError reports a missing or mistyped configuration entry.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("config: %s", e.Reason)
	}
	return fmt.Sprintf("config %q: %s", e.Key, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }
