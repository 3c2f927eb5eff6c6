// Package model transforms a schema snapshot into the entity model consumed
// by code generation. Building is a pure function of the snapshot and the
// options: no I/O, and identical inputs always produce identical models.
package model

import "fmt"

// Options controls naming and filtering during model building.
// Every option is deterministic given the same snapshot.
type Options struct {
	// Tables limits the model to the named tables. Empty means all.
	Tables []string

	// ExcludeTables drops the named tables from the model, applied after
	// the Tables include list.
	ExcludeTables []string

	// UseTableNames disables singularization; entity names are the
	// PascalCase form of the raw table names.
	UseTableNames bool
}

// Model is the entity representation of a schema snapshot.
// Entities are ordered by their source table name.
type Model struct {
	Entities []Entity
}

// Entity returns the entity with the given name, or nil.
func (m *Model) Entity(name string) *Entity {
	for i := range m.Entities {
		if m.Entities[i].Name == name {
			return &m.Entities[i]
		}
	}
	return nil
}

// Entity is one generated model type.
type Entity struct {
	Name        string // singular PascalCase unless UseTableNames is set
	TableName   string
	Properties  []Property
	Navigations []Navigation
	Indexes     []Index
}

// Property is one scalar field of an entity.
type Property struct {
	Name         string
	Column       string
	Type         string // Go type, pointer form when the column is nullable
	Nullable     bool
	IsPrimaryKey bool
	IsUnique     bool
	Default      *string
	EnumValues   []string
}

// Navigation is a relationship field derived from a foreign key.
type Navigation struct {
	Name       string
	Target     string // entity name
	Collection bool
	ForeignKey string // source column on the owning side
}

// Index mirrors a database index on the owning entity's table.
type Index struct {
	Name     string
	Columns  []string
	IsUnique bool
}

// BuildError reports a schema object that violates a structural invariant.
type BuildError struct {
	Object string
	Reason string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("invalid schema object %s: %s", e.Object, e.Reason)
}
