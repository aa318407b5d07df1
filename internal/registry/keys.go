package registry

// KeyBuilder builds L2 cache keys in the format: {namespace}:schema:{table}
type KeyBuilder struct {
	namespace string
}

// NewKeyBuilder creates a new key builder.
func NewKeyBuilder(namespace string) *KeyBuilder {
	if namespace == "" {
		namespace = "dynatable"
	}
	return &KeyBuilder{namespace: namespace}
}

// Schema returns the key under which the schema of table is shared.
func (kb *KeyBuilder) Schema(table string) string {
	return kb.namespace + ":schema:" + table
}
