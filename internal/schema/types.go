package schema

// ConnectionStringAnnotation is the reserved annotation key under which an
// introspector may record a connection string it discovered while reading the
// database. When present, generated code embeds this value instead of the
// caller-supplied reference. Absence means "no override".
const ConnectionStringAnnotation = "dbscaffold:connection-string"

// Schema is a provider-neutral snapshot of a database schema.
// Table names are unique within a snapshot, annotation keys within the map.
type Schema struct {
	Tables      []Table
	Annotations map[string]string
}

// SetAnnotation records a provider annotation on the snapshot.
func (s *Schema) SetAnnotation(key, value string) {
	if s.Annotations == nil {
		s.Annotations = make(map[string]string)
	}
	s.Annotations[key] = value
}

// Annotation returns the value stored under key, if any.
func (s *Schema) Annotation(key string) (string, bool) {
	v, ok := s.Annotations[key]
	return v, ok
}

// Table returns the table descriptor with the given name, or nil.
func (s *Schema) Table(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// Table represents a database table
type Table struct {
	Name       string
	Columns    []Column
	Relations  []Relation
	Indexes    []Index
	PrimaryKey []string
}

// Column returns the column descriptor with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// Column represents a table column
type Column struct {
	Name         string
	Type         string
	Nullable     bool
	DefaultValue *string
	IsUnique     bool
	EnumValues   []string
}

// Relation represents a foreign key relationship
type Relation struct {
	TargetTable  string
	TargetColumn string
	SourceColumn string
	Cardinality  string // 1:1, 1:N, N:1
}

// Index represents a database index
type Index struct {
	Name     string
	Columns  []string
	IsUnique bool
}
