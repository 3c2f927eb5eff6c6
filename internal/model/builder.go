package model

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/tordrt/dbscaffold/internal/schema"
)

// Builder is the default model builder.
type Builder struct{}

// Build derives the entity model from a schema snapshot.
//
// Tables dropped by the filters disappear silently, as do foreign keys whose
// target was filtered out. A foreign key referencing a table absent from the
// snapshot itself is a structural fault and fails with a *BuildError naming
// the offending column.
func (Builder) Build(s *schema.Schema, opts Options) (*Model, error) {
	kept := filterTables(s.Tables, opts)

	keptNames := make(map[string]bool, len(kept))
	for _, t := range kept {
		keptNames[t.Name] = true
	}

	for _, t := range kept {
		for _, rel := range t.Relations {
			if s.Table(rel.TargetTable) == nil {
				return nil, &BuildError{
					Object: t.Name + "." + rel.SourceColumn,
					Reason: fmt.Sprintf("foreign key references unknown table %q", rel.TargetTable),
				}
			}
		}
	}

	entityName := func(table string) string {
		if opts.UseTableNames {
			return pascal(table)
		}
		return pascal(rules.Singularize(table))
	}

	m := &Model{}
	byTable := make(map[string]int, len(kept))
	for _, t := range kept {
		e := Entity{
			Name:      entityName(t.Name),
			TableName: t.Name,
		}
		for _, col := range t.Columns {
			e.Properties = append(e.Properties, Property{
				Name:         pascal(col.Name),
				Column:       col.Name,
				Type:         goType(col.Type, col.Nullable),
				Nullable:     col.Nullable,
				IsPrimaryKey: slices.Contains(t.PrimaryKey, col.Name),
				IsUnique:     col.IsUnique,
				Default:      col.DefaultValue,
				EnumValues:   col.EnumValues,
			})
		}
		for _, idx := range t.Indexes {
			e.Indexes = append(e.Indexes, Index{
				Name:     idx.Name,
				Columns:  idx.Columns,
				IsUnique: idx.IsUnique,
			})
		}
		byTable[t.Name] = len(m.Entities)
		m.Entities = append(m.Entities, e)
	}

	// Navigations: a reference on the owning side, a collection on the
	// target side. Relations into filtered-out tables are dropped.
	for _, t := range kept {
		owner := &m.Entities[byTable[t.Name]]
		for _, rel := range t.Relations {
			if !keptNames[rel.TargetTable] {
				continue
			}
			target := &m.Entities[byTable[rel.TargetTable]]

			owner.Navigations = append(owner.Navigations, Navigation{
				Name:       navigationName(owner, entityName(rel.TargetTable)),
				Target:     entityName(rel.TargetTable),
				ForeignKey: rel.SourceColumn,
			})
			target.Navigations = append(target.Navigations, Navigation{
				Name:       navigationName(target, pascal(rules.Pluralize(t.Name))),
				Target:     owner.Name,
				Collection: true,
				ForeignKey: rel.SourceColumn,
			})
		}
	}

	return m, nil
}

// filterTables narrows the snapshot to the include list (when given) and then
// applies the exclusions on top of it.
func filterTables(tables []schema.Table, opts Options) []schema.Table {
	include := make(map[string]bool, len(opts.Tables))
	for _, name := range opts.Tables {
		include[name] = true
	}
	exclude := make(map[string]bool, len(opts.ExcludeTables))
	for _, name := range opts.ExcludeTables {
		exclude[name] = true
	}

	kept := make([]schema.Table, 0, len(tables))
	for _, t := range tables {
		if len(include) > 0 && !include[t.Name] {
			continue
		}
		if exclude[t.Name] {
			continue
		}
		kept = append(kept, t)
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Name < kept[j].Name })
	return kept
}

// navigationName keeps navigation names unique on an entity by suffixing a
// duplicate with the entity's own name.
func navigationName(e *Entity, base string) string {
	taken := func(name string) bool {
		for _, p := range e.Properties {
			if p.Name == name {
				return true
			}
		}
		for _, n := range e.Navigations {
			if n.Name == name {
				return true
			}
		}
		return false
	}

	if !taken(base) {
		return base
	}
	name := base + "Nav"
	for i := 2; taken(name); i++ {
		name = fmt.Sprintf("%sNav%d", base, i)
	}
	return name
}

var rules = ruleset()

func ruleset() *inflect.Ruleset {
	r := inflect.NewDefaultRuleset()
	for _, w := range []string{"ID", "URL", "API", "SQL", "UUID", "JSON"} {
		r.AddAcronym(w)
	}
	return r
}

var acronyms = map[string]string{
	"id":   "ID",
	"url":  "URL",
	"api":  "API",
	"sql":  "SQL",
	"uuid": "UUID",
	"json": "JSON",
}

// pascal converts a snake_case database identifier to PascalCase, keeping
// common acronyms upper-cased.
func pascal(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	var b strings.Builder
	for _, part := range parts {
		if a, ok := acronyms[strings.ToLower(part)]; ok {
			b.WriteString(a)
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

// goType maps a database column type to the Go type used in generated code.
// Nullable columns map to pointer types.
func goType(dbType string, nullable bool) string {
	t := strings.ToLower(dbType)
	if i := strings.Index(t, "("); i != -1 {
		t = t[:i]
	}

	var goT string
	switch t {
	case "smallint", "int2", "tinyint", "mediumint", "int", "int4", "integer", "serial":
		goT = "int"
	case "bigint", "int8", "bigserial":
		goT = "int64"
	case "boolean", "bool":
		goT = "bool"
	case "real", "float", "float4", "float8", "double", "double precision", "numeric", "decimal":
		goT = "float64"
	case "date", "datetime", "timestamp", "timestamptz", "timestamp with time zone", "timestamp without time zone":
		goT = "time.Time"
	case "bytea", "blob", "binary", "varbinary":
		goT = "[]byte"
	default:
		// text, varchar, char, enum, json, uuid and anything unrecognized.
		goT = "string"
	}

	if nullable && goT != "[]byte" {
		return "*" + goT
	}
	return goT
}
