package schema

import (
	"encoding/json"
	"fmt"

	"github.com/rzpsarthak13/dynatable/internal/core"
)

// EncodeSchema serializes a schema for the shared schema cache.
// Client-side defaults are not serializable and are left out.
func EncodeSchema(s *core.TableSchema) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("schema cannot be nil")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}

// DecodeSchema deserializes and sanity-checks a cached schema.
func DecodeSchema(data []byte) (*core.TableSchema, error) {
	var s core.TableSchema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("cached schema has no table name")
	}
	if _, ok := s.PrimaryKey(); !ok {
		return nil, fmt.Errorf("cached schema for %q has no primary key", s.Name)
	}
	for _, col := range s.Columns {
		if _, err := ParseType(string(col.Type)); err != nil {
			return nil, fmt.Errorf("cached schema for %q: %w", s.Name, err)
		}
	}
	return &s, nil
}
