package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tordrt/dbscaffold/internal/schema"
)

// SQLite introspects SQLite database files through database/sql.
type SQLite struct{}

// Introspect opens the database file, reads the schema snapshot, and closes
// the handle on every exit path.
//
// The snapshot carries the canonical sqlite:// URL of the database file under
// the reserved connection-string annotation, so generated code refers to the
// resolved file path rather than whatever relative form the caller used.
func (SQLite) Introspect(ctx context.Context, path string, opts Options) (*schema.Schema, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &Error{Engine: "sqlite", Err: fmt.Errorf("open: %w", err)}
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return nil, &Error{Engine: "sqlite", Err: fmt.Errorf("ping: %w", err)}
	}

	ex := &sqliteExtractor{db: db}
	snap, err := ex.extract(ctx, opts.Tables)
	if err != nil {
		return nil, &Error{Engine: "sqlite", Err: err}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &Error{Engine: "sqlite", Err: fmt.Errorf("resolving database path: %w", err)}
	}
	snap.SetAnnotation(schema.ConnectionStringAnnotation, "sqlite://"+filepath.ToSlash(abs))

	return snap, nil
}

type sqliteExtractor struct {
	db *sql.DB
}

func (e *sqliteExtractor) extract(ctx context.Context, tables []string) (*schema.Schema, error) {
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

func (e *sqliteExtractor) tableNames(ctx context.Context, requested []string) ([]string, error) {
	if len(requested) > 0 {
		return requested, nil
	}

	rows, err := e.db.QueryContext(ctx, `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
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

func (e *sqliteExtractor) table(ctx context.Context, name string) (*schema.Table, error) {
	table := &schema.Table{Name: name}

	columns, pk, err := e.columns(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	table.Columns = columns
	table.PrimaryKey = pk

	if table.Relations, err = e.foreignKeys(ctx, name); err != nil {
		return nil, fmt.Errorf("foreign keys: %w", err)
	}

	indexes, err := e.indexes(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("indexes: %w", err)
	}

	// Single-column unique indexes surface as column-level uniqueness. This
	// includes the sqlite_autoindex entries backing inline UNIQUE
	// constraints, which are then dropped from the index list itself.
	for _, idx := range indexes {
		if idx.IsUnique && len(idx.Columns) == 1 {
			if col := table.Column(idx.Columns[0]); col != nil {
				col.IsUnique = true
			}
		}
		if strings.HasPrefix(idx.Name, "sqlite_autoindex") {
			continue
		}
		table.Indexes = append(table.Indexes, idx)
	}
	return table, nil
}

// columns reads column metadata and primary key ordering in one PRAGMA pass.
func (e *sqliteExtractor) columns(ctx context.Context, tableName string) ([]schema.Column, []string, error) {
	rows, err := e.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	type pkColumn struct {
		name  string
		order int
	}
	var pkColumns []pkColumn

	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return nil, nil, err
		}

		col := schema.Column{
			Name:     name,
			Type:     colType,
			Nullable: notNull == 0,
		}
		if defaultValue.Valid {
			col.DefaultValue = &defaultValue.String
		}
		if pk > 0 {
			pkColumns = append(pkColumns, pkColumn{name: name, order: pk})
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	pk := make([]string, len(pkColumns))
	for _, c := range pkColumns {
		if c.order >= 1 && c.order <= len(pk) {
			pk[c.order-1] = c.name
		}
	}
	return columns, pk, nil
}

func (e *sqliteExtractor) foreignKeys(ctx context.Context, tableName string) ([]schema.Relation, error) {
	rows, err := e.db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", tableName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relations []schema.Relation
	for rows.Next() {
		var id, seq int
		var targetTable, fromCol, toCol, onUpdate, onDelete, match string

		if err := rows.Scan(&id, &seq, &targetTable, &fromCol, &toCol, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}
		relations = append(relations, schema.Relation{
			SourceColumn: fromCol,
			TargetTable:  targetTable,
			TargetColumn: toCol,
			Cardinality:  "N:1",
		})
	}
	return relations, rows.Err()
}

func (e *sqliteExtractor) indexes(ctx context.Context, tableName string) ([]schema.Index, error) {
	rows, err := e.db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%s)", tableName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type indexEntry struct {
		name   string
		unique bool
	}
	var entries []indexEntry
	for rows.Next() {
		var seq, unique, partial int
		var name, origin string

		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, err
		}
		entries = append(entries, indexEntry{name: name, unique: unique == 1})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var indexes []schema.Index
	for _, entry := range entries {
		columns, err := e.indexColumns(ctx, entry.name)
		if err != nil {
			return nil, err
		}
		if len(columns) == 0 {
			continue
		}
		indexes = append(indexes, schema.Index{
			Name:     entry.name,
			Columns:  columns,
			IsUnique: entry.unique,
		})
	}
	return indexes, nil
}

func (e *sqliteExtractor) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	rows, err := e.db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%s)", indexName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var name sql.NullString

		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, err
		}
		if name.Valid {
			columns = append(columns, name.String)
		}
	}
	return columns, rows.Err()
}
