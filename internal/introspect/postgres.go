package introspect

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tordrt/dbscaffold/internal/schema"
)

// Postgres introspects PostgreSQL databases through pgx.
type Postgres struct{}

// Introspect connects, reads the schema snapshot, and closes the connection
// on every exit path.
func (Postgres) Introspect(ctx context.Context, connString string, opts Options) (*schema.Schema, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, &Error{Engine: "postgres", Err: fmt.Errorf("connect: %w", err)}
	}
	defer func() { _ = conn.Close(ctx) }()

	schemaName := opts.SchemaName
	if schemaName == "" {
		schemaName = "public"
	}

	ex := &pgExtractor{conn: conn, schemaName: schemaName}
	snap, err := ex.extract(ctx, opts.Tables)
	if err != nil {
		return nil, &Error{Engine: "postgres", Err: err}
	}
	return snap, nil
}

type pgExtractor struct {
	conn       *pgx.Conn
	schemaName string
}

func (e *pgExtractor) extract(ctx context.Context, tables []string) (*schema.Schema, error) {
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

func (e *pgExtractor) tableNames(ctx context.Context, requested []string) ([]string, error) {
	if len(requested) > 0 {
		return requested, nil
	}

	rows, err := e.conn.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
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

func (e *pgExtractor) table(ctx context.Context, name string) (*schema.Table, error) {
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

func (e *pgExtractor) columns(ctx context.Context, tableName string) ([]schema.Column, error) {
	rows, err := e.conn.Query(ctx, `
		SELECT
			column_name,
			data_type,
			is_nullable,
			column_default,
			CASE WHEN EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				JOIN information_schema.constraint_column_usage ccu
					ON tc.constraint_name = ccu.constraint_name
					AND tc.table_schema = ccu.table_schema
				WHERE tc.table_schema = $1
					AND tc.table_name = $2
					AND tc.constraint_type = 'UNIQUE'
					AND ccu.column_name = c.column_name
			) THEN true ELSE false END as is_unique
		FROM information_schema.columns c
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var col schema.Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.DefaultValue, &col.IsUnique); err != nil {
			return nil, err
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (e *pgExtractor) primaryKey(ctx context.Context, tableName string) ([]string, error) {
	rows, err := e.conn.Query(ctx, `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = $1
			AND table_name = $2
			AND constraint_name IN (
				SELECT constraint_name
				FROM information_schema.table_constraints
				WHERE table_schema = $1
					AND table_name = $2
					AND constraint_type = 'PRIMARY KEY'
			)
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

func (e *pgExtractor) foreignKeys(ctx context.Context, tableName string) ([]schema.Relation, error) {
	rows, err := e.conn.Query(ctx, `
		SELECT
			kcu.column_name,
			ccu.table_name AS foreign_table_name,
			ccu.column_name AS foreign_column_name
		FROM information_schema.table_constraints AS tc
		JOIN information_schema.key_column_usage AS kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage AS ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = $1
			AND tc.table_name = $2
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

func (e *pgExtractor) indexes(ctx context.Context, tableName string) ([]schema.Index, error) {
	rows, err := e.conn.Query(ctx, `
		SELECT
			i.relname AS index_name,
			ix.indisunique AS is_unique,
			array_agg(a.attname ORDER BY array_position(ix.indkey, a.attnum)) AS column_names
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE t.relkind = 'r'
			AND n.nspname = $1
			AND t.relname = $2
			AND NOT ix.indisprimary
		GROUP BY i.relname, ix.indisunique
		ORDER BY i.relname
	`, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var idx schema.Index
		if err := rows.Scan(&idx.Name, &idx.IsUnique, &idx.Columns); err != nil {
			return nil, err
		}
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}
