package core

// ColumnType is the abstract type tag of a column, independent of any storage engine.
type ColumnType string

const (
	TypeInteger  ColumnType = "integer"
	TypeString   ColumnType = "string"
	TypeText     ColumnType = "text"
	TypeDateTime ColumnType = "datetime"
	TypeFloat    ColumnType = "float"
	TypeBoolean  ColumnType = "boolean"
)

const (
	// IDColumn is the name of the implicit auto-increment primary key.
	IDColumn = "id"

	// DefaultStringLength is used for String columns declared without a length.
	DefaultStringLength = 255
)

// Record is one row keyed by column name.
type Record = map[string]interface{}

// DefaultFunc generates a column value at insert time.
type DefaultFunc func() interface{}

// ColumnDef describes a single column of a table.
type ColumnDef struct {
	// Name is the column name.
	Name string `json:"name"`

	// Type is the abstract column type.
	Type ColumnType `json:"type"`

	// Length is the maximum length of a String column. Zero for every other type.
	Length int `json:"length,omitempty"`

	// Nullable indicates whether the column accepts NULL values.
	Nullable bool `json:"nullable"`

	// Unique indicates whether the column carries a unique constraint.
	Unique bool `json:"unique,omitempty"`

	// Default is applied client-side when a record omits the column.
	// It is either a static value or a DefaultFunc.
	Default interface{} `json:"-"`

	// PrimaryKey marks the primary key column.
	PrimaryKey bool `json:"primary_key,omitempty"`

	// AutoIncrement marks a column whose value is generated by the engine.
	AutoIncrement bool `json:"auto_increment,omitempty"`

	// ServerDefault is the default expression reported by the catalog, if any.
	ServerDefault string `json:"server_default,omitempty"`
}

// DefaultValue returns the value to insert for an omitted column and whether one exists.
func (c ColumnDef) DefaultValue() (interface{}, bool) {
	switch d := c.Default.(type) {
	case nil:
		return nil, false
	case DefaultFunc:
		return d(), true
	case func() interface{}:
		return d(), true
	default:
		return d, true
	}
}

// equal compares every field except Default, which may hold a function.
func (c ColumnDef) equal(o ColumnDef) bool {
	return c.Name == o.Name &&
		c.Type == o.Type &&
		c.Length == o.Length &&
		c.Nullable == o.Nullable &&
		c.Unique == o.Unique &&
		c.PrimaryKey == o.PrimaryKey &&
		c.AutoIncrement == o.AutoIncrement &&
		c.ServerDefault == o.ServerDefault
}

// IDColumnDef returns the implicit primary key column injected into every created table.
func IDColumnDef() ColumnDef {
	return ColumnDef{
		Name:          IDColumn,
		Type:          TypeInteger,
		Nullable:      false,
		PrimaryKey:    true,
		AutoIncrement: true,
	}
}

// TableSchema is the runtime shape of one table.
type TableSchema struct {
	// Name is the physical table name.
	Name string `json:"name"`

	// Columns holds the column definitions in ordinal order.
	Columns []ColumnDef `json:"columns"`
}

// Column returns the column with the given name.
func (s *TableSchema) Column(name string) (ColumnDef, bool) {
	for _, col := range s.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return ColumnDef{}, false
}

// HasColumn reports whether the schema declares the named column.
func (s *TableSchema) HasColumn(name string) bool {
	_, ok := s.Column(name)
	return ok
}

// ColumnNames returns the column names in ordinal order.
func (s *TableSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		names[i] = col.Name
	}
	return names
}

// PrimaryKey returns the primary key column. Every valid schema has exactly one.
func (s *TableSchema) PrimaryKey() (ColumnDef, bool) {
	for _, col := range s.Columns {
		if col.PrimaryKey {
			return col, true
		}
	}
	return ColumnDef{}, false
}

// Equal reports whether two schemas describe the same table shape.
func (s *TableSchema) Equal(o *TableSchema) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Name != o.Name || len(s.Columns) != len(o.Columns) {
		return false
	}
	for i := range s.Columns {
		if !s.Columns[i].equal(o.Columns[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy so cached schemas are never shared mutably.
func (s *TableSchema) Clone() *TableSchema {
	if s == nil {
		return nil
	}
	cols := make([]ColumnDef, len(s.Columns))
	copy(cols, s.Columns)
	return &TableSchema{Name: s.Name, Columns: cols}
}

// PhysicalColumn is one column as reported by the storage engine catalog.
type PhysicalColumn struct {
	Name          string
	DataType      string
	Length        int
	Nullable      bool
	PrimaryKey    bool
	AutoIncrement bool
	Unique        bool
	Default       *string
}
