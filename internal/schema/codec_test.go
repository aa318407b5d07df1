package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeSchema(t *testing.T) {
	original := usersSchema()

	data, err := EncodeSchema(original)
	require.NoError(t, err)

	decoded, err := DecodeSchema(data)
	require.NoError(t, err)
	assert.True(t, original.Equal(decoded))

	// Generators do not survive encoding
	col, ok := decoded.Column("created_at")
	require.True(t, ok)
	assert.Nil(t, col.Default)
}

func TestDecodeSchema_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"no name", `{"columns":[{"name":"id","type":"integer","primary_key":true}]}`},
		{"no primary key", `{"name":"t","columns":[{"name":"a","type":"text"}]}`},
		{"bad type", `{"name":"t","columns":[{"name":"id","type":"integer","primary_key":true},{"name":"a","type":"blob"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSchema([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}
