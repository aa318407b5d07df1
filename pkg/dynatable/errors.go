package dynatable

import (
	"github.com/rzpsarthak13/dynatable/internal/client"
	"github.com/rzpsarthak13/dynatable/internal/core"
)

// Sentinel errors. Match them with errors.Is; the typed errors below carry
// the details and match their sentinel.
var (
	ErrUnsupportedType    = core.ErrUnsupportedType
	ErrTableAlreadyExists = core.ErrTableAlreadyExists
	ErrTableNotFound      = core.ErrTableNotFound
	ErrUnknownColumn      = core.ErrUnknownColumn
	ErrReflection         = core.ErrReflection
	ErrStorageEngine      = core.ErrStorageEngine
	ErrInvalidSchema      = core.ErrInvalidSchema
	ErrInvalidValue       = core.ErrInvalidValue
	ErrConfig             = core.ErrConfig
	ErrRecordNotFound     = core.ErrRecordNotFound
	ErrClosed             = client.ErrClosed
)

type (
	UnsupportedTypeError    = core.UnsupportedTypeError
	TableAlreadyExistsError = core.TableAlreadyExistsError
	TableNotFoundError      = core.TableNotFoundError
	UnknownColumnError      = core.UnknownColumnError
	ReflectionError         = core.ReflectionError
	StorageEngineError      = core.StorageEngineError
	SchemaError             = core.SchemaError
	ValueError              = core.ValueError
	ConfigError             = core.ConfigError
)
