// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package connectors

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	stmts := []string{
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT,
			active INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE notes (
			id INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL,
			body TEXT
		)`,
		`INSERT INTO users (name, email, active) VALUES
			('Alice', 'alice@example.com', 1),
			('Bob', 'bob@example.com', 1),
			('Carol', NULL, 0)`,
		`INSERT INTO notes (user_id, body) VALUES (1, 'first note'), (2, 'second note')`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt[:20], err)
		}
	}
	return db
}

func newTestDatabaseTool(t *testing.T, opts ...DatabaseOption) *DatabaseTool {
	t.Helper()
	tool, err := NewDatabaseTool(context.Background(), openTestDB(t), "sqlite", opts...)
	if err != nil {
		t.Fatalf("new database tool: %v", err)
	}
	return tool
}

func TestDatabaseToolIntrospection(t *testing.T) {
	tool := newTestDatabaseTool(t)

	if tool.Name() != "db" {
		t.Errorf("name = %q", tool.Name())
	}
	tables := tool.Tables()
	if len(tables) != 2 || tables[0] != "notes" || tables[1] != "users" {
		t.Errorf("tables = %v", tables)
	}
	if !strings.Contains(tool.Description(), "read-only") {
		t.Errorf("description = %q", tool.Description())
	}
}

func TestDatabaseToolTableFilter(t *testing.T) {
	tool := newTestDatabaseTool(t, WithDatabaseTables("users"))

	if tables := tool.Tables(); len(tables) != 1 || tables[0] != "users" {
		t.Errorf("tables = %v", tables)
	}

	res := tool.Execute(context.Background(), map[string]any{
		"operation": "select",
		"table":     "notes",
	})
	if res.Success {
		t.Fatal("filtered table should be invisible")
	}
	if !strings.Contains(res.Error, "unknown table") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestDatabaseToolTables(t *testing.T) {
	tool := newTestDatabaseTool(t)

	res := tool.Execute(context.Background(), map[string]any{"operation": "tables"})
	if !res.Success {
		t.Fatalf("tables failed: %s", res.Error)
	}
	if !strings.Contains(res.Output, "2 tables") {
		t.Errorf("output = %q", res.Output)
	}
	if !strings.Contains(res.Output, "users (4 columns)") {
		t.Errorf("output = %q", res.Output)
	}
}

func TestDatabaseToolSchema(t *testing.T) {
	tool := newTestDatabaseTool(t)

	res := tool.Execute(context.Background(), map[string]any{
		"operation": "schema",
		"table":     "users",
	})
	if !res.Success {
		t.Fatalf("schema failed: %s", res.Error)
	}
	if !strings.Contains(res.Output, "id INTEGER PRIMARY KEY") {
		t.Errorf("output = %q", res.Output)
	}
	if !strings.Contains(res.Output, "name TEXT NOT NULL") {
		t.Errorf("output = %q", res.Output)
	}
}

func TestDatabaseToolSelect(t *testing.T) {
	tool := newTestDatabaseTool(t)

	res := tool.Execute(context.Background(), map[string]any{
		"operation": "select",
		"table":     "users",
		"columns":   []any{"id", "name"},
		"filters":   map[string]any{"active": 1},
		"order_by":  "name",
	})
	if !res.Success {
		t.Fatalf("select failed: %s", res.Error)
	}
	if !strings.Contains(res.Output, "2 rows from users") {
		t.Errorf("output = %q", res.Output)
	}
	if !strings.Contains(res.Output, "Alice") || !strings.Contains(res.Output, "Bob") {
		t.Errorf("output = %q", res.Output)
	}
	if strings.Contains(res.Output, "Carol") {
		t.Errorf("inactive user leaked: %q", res.Output)
	}
	if res.Metadata["rows"] != 2 {
		t.Errorf("rows metadata = %v", res.Metadata["rows"])
	}
}

func TestDatabaseToolSelectNoMatch(t *testing.T) {
	tool := newTestDatabaseTool(t)

	res := tool.Execute(context.Background(), map[string]any{
		"operation": "select",
		"table":     "users",
		"filters":   map[string]any{"name": "Zed"},
	})
	if !res.Success {
		t.Fatalf("select failed: %s", res.Error)
	}
	if !strings.Contains(res.Output, "No rows") {
		t.Errorf("output = %q", res.Output)
	}
}

func TestDatabaseToolSelectRowCap(t *testing.T) {
	tool := newTestDatabaseTool(t, WithDatabaseMaxRows(2))

	res := tool.Execute(context.Background(), map[string]any{
		"operation": "select",
		"table":     "users",
	})
	if !res.Success {
		t.Fatalf("select failed: %s", res.Error)
	}
	if !strings.Contains(res.Output, "2 rows from users") {
		t.Errorf("cap not applied: %q", res.Output)
	}

	// A larger explicit limit is clamped too.
	res = tool.Execute(context.Background(), map[string]any{
		"operation": "select",
		"table":     "users",
		"limit":     50,
	})
	if !strings.Contains(res.Output, "2 rows from users") {
		t.Errorf("limit not clamped: %q", res.Output)
	}
}

func TestDatabaseToolReadOnlyByDefault(t *testing.T) {
	tool := newTestDatabaseTool(t)

	res := tool.Execute(context.Background(), map[string]any{
		"operation": "insert",
		"table":     "users",
		"values":    map[string]any{"name": "Mallory"},
	})
	if res.Success {
		t.Fatal("insert should be rejected on a read-only connector")
	}
	if !strings.Contains(res.Error, "read-only") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestDatabaseToolWrites(t *testing.T) {
	tool := newTestDatabaseTool(t, WithDatabaseWrites())
	ctx := context.Background()

	res := tool.Execute(ctx, map[string]any{
		"operation": "insert",
		"table":     "users",
		"values":    map[string]any{"name": "Dave", "email": "dave@example.com"},
	})
	if !res.Success {
		t.Fatalf("insert failed: %s", res.Error)
	}
	if !strings.Contains(res.Output, "Inserted 1 row into users") {
		t.Errorf("output = %q", res.Output)
	}

	res = tool.Execute(ctx, map[string]any{
		"operation": "update",
		"table":     "users",
		"values":    map[string]any{"active": 0},
		"filters":   map[string]any{"name": "Dave"},
	})
	if !res.Success {
		t.Fatalf("update failed: %s", res.Error)
	}
	if !strings.Contains(res.Output, "Updated 1 row(s) in users") {
		t.Errorf("output = %q", res.Output)
	}

	res = tool.Execute(ctx, map[string]any{
		"operation": "delete",
		"table":     "users",
		"filters":   map[string]any{"name": "Dave"},
	})
	if !res.Success {
		t.Fatalf("delete failed: %s", res.Error)
	}
	if !strings.Contains(res.Output, "Deleted 1 row(s) from users") {
		t.Errorf("output = %q", res.Output)
	}

	res = tool.Execute(ctx, map[string]any{
		"operation": "select",
		"table":     "users",
		"filters":   map[string]any{"name": "Dave"},
	})
	if !strings.Contains(res.Output, "No rows") {
		t.Errorf("row survived delete: %q", res.Output)
	}
}

func TestDatabaseToolRejectsUnknownIdentifiers(t *testing.T) {
	tool := newTestDatabaseTool(t, WithDatabaseWrites())
	ctx := context.Background()

	res := tool.Execute(ctx, map[string]any{
		"operation": "select",
		"table":     "secrets",
	})
	if res.Success || !strings.Contains(res.Error, "unknown table") {
		t.Errorf("error = %q", res.Error)
	}

	res = tool.Execute(ctx, map[string]any{
		"operation": "select",
		"table":     "users",
		"filters":   map[string]any{"password": "x"},
	})
	if res.Success || !strings.Contains(res.Error, "unknown column") {
		t.Errorf("error = %q", res.Error)
	}

	res = tool.Execute(ctx, map[string]any{
		"operation": "select",
		"table":     "users",
		"order_by":  "1; DROP TABLE users",
	})
	if res.Success || !strings.Contains(res.Error, "unknown column") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestDatabaseToolRefusesUnfilteredWrites(t *testing.T) {
	tool := newTestDatabaseTool(t, WithDatabaseWrites())

	res := tool.Execute(context.Background(), map[string]any{
		"operation": "delete",
		"table":     "users",
	})
	if res.Success {
		t.Fatal("unfiltered delete must be rejected")
	}
	if !strings.Contains(res.Error, "refusing to touch every row") {
		t.Errorf("error = %q", res.Error)
	}

	res = tool.Execute(context.Background(), map[string]any{
		"operation": "update",
		"table":     "users",
		"values":    map[string]any{"active": 0},
	})
	if res.Success {
		t.Fatal("unfiltered update must be rejected")
	}
}

func TestDatabaseToolValidateParams(t *testing.T) {
	tool := newTestDatabaseTool(t)

	if err := tool.ValidateParams(map[string]any{"operation": "tables"}); err != nil {
		t.Errorf("tables: %v", err)
	}
	if err := tool.ValidateParams(map[string]any{"operation": "select", "table": "users"}); err != nil {
		t.Errorf("select: %v", err)
	}
	if err := tool.ValidateParams(map[string]any{"operation": "schema"}); err == nil {
		t.Error("expected error for schema without table")
	}
	if err := tool.ValidateParams(map[string]any{"operation": "drop", "table": "users"}); err == nil {
		t.Error("expected error for unknown operation")
	}
	if err := tool.ValidateParams(map[string]any{
		"operation": "insert",
		"table":     "users",
		"values":    map[string]any{"name": "X"},
	}); err == nil {
		t.Error("write on read-only connector should fail validation")
	}
}

func TestNewDatabaseToolRequiresTables(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "empty.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if _, err := NewDatabaseTool(context.Background(), db, "sqlite"); err == nil {
		t.Error("expected error for a database with no tables")
	}
}
