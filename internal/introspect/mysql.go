package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/tordrt/dbscaffold/internal/schema"
)

// MySQL introspects MySQL databases through database/sql.
type MySQL struct{}

// Introspect connects, reads the schema snapshot, and closes the connection
// on every exit path. The DSN is the driver form without a mysql:// scheme.
func (MySQL) Introspect(ctx context.Context, dsn string, opts Options) (*schema.Schema, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, &Error{Engine: "mysql", Err: fmt.Errorf("open: %w", err)}
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return nil, &Error{Engine: "mysql", Err: fmt.Errorf("ping: %w", err)}
	}

	schemaName := opts.SchemaName
	if schemaName == "" {
		schemaName, err = databaseName(dsn)
		if err != nil {
			return nil, &Error{Engine: "mysql", Err: err}
		}
	}

	ex := &mysqlExtractor{db: db, schemaName: schemaName}
	snap, err := ex.extract(ctx, opts.Tables)
	if err != nil {
		return nil, &Error{Engine: "mysql", Err: err}
	}
	return snap, nil
}

type mysqlExtractor struct {
	db         *sql.DB
	schemaName string
}

func (e *mysqlExtractor) extract(ctx context.Context, tables []string) (*schema.Schema, error) {
	names, err := e.tableNames(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}

	snap := &schema.Schema{}
	for _, name := range names {
		table, err := e.table(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("reading table %s: %w", name, err)
		}
		snap.Tables = append(snap.Tables, *table)
	}
	return snap, nil
}

func (e *mysqlExtractor) tableNames(ctx context.Context, requested []string) ([]string, error) {
	if len(requested) > 0 {
		return requested, nil
	}

	rows, err := e.db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, e.schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (e *mysqlExtractor) table(ctx context.Context, name string) (*schema.Table, error) {
	table := &schema.Table{Name: name}

	var err error
	if table.Columns, err = e.columns(ctx, name); err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	if table.PrimaryKey, err = e.primaryKey(ctx, name); err != nil {
		return nil, fmt.Errorf("primary key: %w", err)
	}
	if table.Relations, err = e.foreignKeys(ctx, name); err != nil {
		return nil, fmt.Errorf("foreign keys: %w", err)
	}
	if table.Indexes, err = e.indexes(ctx, name); err != nil {
		return nil, fmt.Errorf("indexes: %w", err)
	}
	return table, nil
}

func (e *mysqlExtractor) columns(ctx context.Context, tableName string) ([]schema.Column, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT
			c.column_name,
			c.column_type,
			c.is_nullable,
			c.column_default,
			CASE WHEN EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON tc.constraint_name = kcu.constraint_name
					AND tc.table_schema = kcu.table_schema
					AND tc.table_name = kcu.table_name
				WHERE tc.table_schema = ?
					AND tc.table_name = ?
					AND tc.constraint_type = 'UNIQUE'
					AND kcu.column_name = c.column_name
			) THEN true ELSE false END as is_unique,
			c.data_type
		FROM information_schema.columns c
		WHERE c.table_schema = ? AND c.table_name = ?
		ORDER BY c.ordinal_position
	`, e.schemaName, tableName, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var col schema.Column
		var columnType, nullable, dataType string
		var defaultVal sql.NullString
		var isUnique bool

		if err := rows.Scan(&col.Name, &columnType, &nullable, &defaultVal, &isUnique, &dataType); err != nil {
			return nil, err
		}

		col.Type = columnType
		col.Nullable = nullable == "YES"
		col.IsUnique = isUnique
		if defaultVal.Valid {
			col.DefaultValue = &defaultVal.String
		}
		if dataType == "enum" {
			values, err := enumValues(columnType)
			if err != nil {
				return nil, err
			}
			col.EnumValues = values
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// enumValues parses the value list out of a MySQL column type of the form
// enum('a','b','c').
func enumValues(columnType string) ([]string, error) {
	if !strings.HasPrefix(columnType, "enum(") {
		return nil, nil
	}

	start := strings.Index(columnType, "(")
	end := strings.LastIndex(columnType, ")")
	if start == -1 || end == -1 || start >= end {
		return nil, fmt.Errorf("invalid enum type format: %s", columnType)
	}

	var values []string
	for _, part := range strings.Split(columnType[start+1:end], ",") {
		part = strings.TrimSpace(part)
		if len(part) >= 2 && part[0] == '\'' && part[len(part)-1] == '\'' {
			part = part[1 : len(part)-1]
		}
		values = append(values, part)
	}
	return values, nil
}

func (e *mysqlExtractor) primaryKey(ctx context.Context, tableName string) ([]string, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
			AND table_name = ?
			AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position
	`, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pk []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		pk = append(pk, name)
	}
	return pk, rows.Err()
}

func (e *mysqlExtractor) foreignKeys(ctx context.Context, tableName string) ([]schema.Relation, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT
			kcu.column_name,
			kcu.referenced_table_name,
			kcu.referenced_column_name
		FROM information_schema.key_column_usage kcu
		WHERE kcu.table_schema = ?
			AND kcu.table_name = ?
			AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.ordinal_position
	`, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relations []schema.Relation
	for rows.Next() {
		var rel schema.Relation
		if err := rows.Scan(&rel.SourceColumn, &rel.TargetTable, &rel.TargetColumn); err != nil {
			return nil, err
		}
		rel.Cardinality = "N:1"
		relations = append(relations, rel)
	}
	return relations, rows.Err()
}

func (e *mysqlExtractor) indexes(ctx context.Context, tableName string) ([]schema.Index, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT
			s.index_name,
			s.non_unique = 0 AS is_unique,
			GROUP_CONCAT(s.column_name ORDER BY s.seq_in_index) AS column_names
		FROM information_schema.statistics s
		WHERE s.table_schema = ?
			AND s.table_name = ?
			AND s.index_name != 'PRIMARY'
		GROUP BY s.index_name, s.non_unique
		ORDER BY s.index_name
	`, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var idx schema.Index
		var isUnique int
		var columnNames string

		if err := rows.Scan(&idx.Name, &isUnique, &columnNames); err != nil {
			return nil, err
		}
		idx.IsUnique = isUnique == 1
		idx.Columns = strings.Split(columnNames, ",")
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}
