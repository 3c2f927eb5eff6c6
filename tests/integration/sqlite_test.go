//go:build integration
// +build integration

package integration

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tordrt/dbscaffold"
	"github.com/tordrt/dbscaffold/internal/introspect"
	"github.com/tordrt/dbscaffold/internal/schema"
)

// createSQLiteFixture builds a throwaway shop database and returns its path.
func createSQLiteFixture(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "shop.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("Failed to open SQLite database: %v", err)
	}
	defer db.Close()

	ddl := []string{
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL,
			created_at TIMESTAMP
		)`,
		`CREATE TABLE orders (
			id INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id),
			total NUMERIC NOT NULL
		)`,
		`CREATE INDEX idx_orders_user ON orders(user_id)`,
	}
	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("Failed to create fixture schema: %v", err)
		}
	}
	return path
}

func TestSQLiteIntrospection(t *testing.T) {
	ctx := context.Background()
	path := createSQLiteFixture(t)

	s, err := introspect.SQLite{}.Introspect(ctx, path, introspect.Options{})
	if err != nil {
		t.Fatalf("Failed to introspect SQLite database: %v", err)
	}

	verifyTablesExist(t, s, []string{"users", "orders"})

	table := s.Table("users")
	if table == nil {
		t.Fatal("Users table not found")
	}
	verifyPrimaryKey(t, table, []string{"id"})
	verifyColumns(t, table, []string{"id", "username", "email", "created_at"})
	verifyUniqueConstraint(t, s, "users", "username")
	verifyForeignKey(t, s, "orders", "user_id", "users")
	verifyIndex(t, s, "orders", "idx_orders_user", []string{"user_id"})

	// The introspector records the canonical connection string so generated
	// code does not depend on how the caller spelled the path.
	conn, ok := s.Annotation(schema.ConnectionStringAnnotation)
	if !ok {
		t.Fatal("Expected connection-string annotation on SQLite snapshot")
	}
	if !strings.HasPrefix(conn, "sqlite://") {
		t.Errorf("Expected sqlite:// connection string, got %s", conn)
	}
}

func TestSQLiteScaffoldEndToEnd(t *testing.T) {
	ctx := context.Background()
	path := createSQLiteFixture(t)
	outputDir := filepath.Join(t.TempDir(), "Models")

	scaffolder := dbscaffold.NewScaffolder()
	scaffolded, err := scaffolder.ScaffoldModel(ctx, "sqlite://"+path,
		dbscaffold.IntrospectOptions{},
		dbscaffold.ModelOptions{},
		dbscaffold.CodeOptions{Package: "shop"},
	)
	if err != nil {
		t.Fatalf("Failed to scaffold model: %v", err)
	}

	saved, err := dbscaffold.Save(scaffolded, outputDir, false)
	if err != nil {
		t.Fatalf("Failed to save scaffolded model: %v", err)
	}

	if len(saved.AdditionalFiles) != 2 {
		t.Fatalf("Expected 2 entity files, got %d", len(saved.AdditionalFiles))
	}

	content, err := os.ReadFile(saved.ContextFile)
	if err != nil {
		t.Fatalf("Failed to read context file: %v", err)
	}
	if !strings.Contains(string(content), "package shop") {
		t.Error("Expected context file to use the shop package")
	}
	if !strings.Contains(string(content), "sqlite://") {
		t.Error("Expected context file to embed the canonical connection string")
	}

	for _, f := range saved.AdditionalFiles {
		if _, err := os.Stat(f); err != nil {
			t.Errorf("Expected entity file %s to exist: %v", f, err)
		}
	}
}
