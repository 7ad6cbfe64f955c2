// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

// Package connectors turns workspace schemas into registry tools. A SQL
// database becomes a single query tool whose identifiers are validated
// against the introspected schema; an OpenAPI document becomes one tool per
// declared operation. Connectors never invent capabilities: everything they
// expose is read from a schema the operator pointed them at.
package connectors

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jllopis/praxis/pkg/core"
	"github.com/jllopis/praxis/pkg/errors"
)

// Table describes one introspected database table.
type Table struct {
	Name       string
	Columns    []Column
	PrimaryKey []string
}

// Column describes one introspected column.
type Column struct {
	Name      string
	Type      string
	Nullable  bool
	IsPrimary bool
}

var databaseOperations = map[string]bool{
	"tables": true,
	"schema": true,
	"select": true,
	"insert": true,
	"update": true,
	"delete": true,
}

// defaultMaxRows caps select results so a broad query cannot flood the
// step output.
const defaultMaxRows = 100

// DatabaseTool exposes one database through the tool registry. Instead of
// free-form SQL the model gets six fixed operations; every table and column
// name is checked against the schema captured at startup, and values bind
// through placeholders. Writes are off unless explicitly enabled.
type DatabaseTool struct {
	db      *sql.DB
	driver  string
	name    string
	tables  map[string]*Table
	order   []string
	filter  map[string]bool
	writes  bool
	maxRows int
}

// DatabaseOption configures a DatabaseTool.
type DatabaseOption func(*DatabaseTool)

// WithDatabaseToolName overrides the registry name (default "db").
func WithDatabaseToolName(name string) DatabaseOption {
	return func(t *DatabaseTool) {
		if name != "" {
			t.name = name
		}
	}
}

// WithDatabaseWrites enables insert, update and delete.
func WithDatabaseWrites() DatabaseOption {
	return func(t *DatabaseTool) {
		t.writes = true
	}
}

// WithDatabaseTables limits introspection to the named tables.
func WithDatabaseTables(tables ...string) DatabaseOption {
	return func(t *DatabaseTool) {
		t.filter = make(map[string]bool, len(tables))
		for _, name := range tables {
			t.filter[name] = true
		}
	}
}

// WithDatabaseMaxRows overrides the select row cap.
func WithDatabaseMaxRows(n int) DatabaseOption {
	return func(t *DatabaseTool) {
		if n > 0 {
			t.maxRows = n
		}
	}
}

// NewDatabaseTool introspects the database and builds the tool. The schema
// snapshot is taken once; tables created after startup are invisible until
// the runtime restarts.
func NewDatabaseTool(ctx context.Context, db *sql.DB, driver string, opts ...DatabaseOption) (*DatabaseTool, error) {
	if db == nil {
		return nil, errors.New(errors.CodeInvalidInput, "database handle is nil", nil)
	}
	t := &DatabaseTool{
		db:      db,
		driver:  driver,
		name:    "db",
		tables:  make(map[string]*Table),
		maxRows: defaultMaxRows,
	}
	for _, opt := range opts {
		opt(t)
	}

	if err := t.introspect(ctx); err != nil {
		return nil, fmt.Errorf("introspect %s schema: %w", driver, err)
	}
	if len(t.tables) == 0 {
		return nil, errors.New(errors.CodeInvalidInput, "database has no tables to expose", nil)
	}

	t.order = make([]string, 0, len(t.tables))
	for name := range t.tables {
		t.order = append(t.order, name)
	}
	sort.Strings(t.order)
	return t, nil
}

func (t *DatabaseTool) introspect(ctx context.Context) error {
	switch t.driver {
	case "sqlite", "sqlite3":
		return t.introspectSQLite(ctx)
	default:
		return t.introspectInformationSchema(ctx)
	}
}

func (t *DatabaseTool) introspectSQLite(ctx context.Context) error {
	rows, err := t.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		if t.filter != nil && !t.filter[name] {
			continue
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, name := range names {
		table := &Table{Name: name}
		pragma, err := t.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", t.quote(name)))
		if err != nil {
			return fmt.Errorf("table_info %s: %w", name, err)
		}
		for pragma.Next() {
			var cid, notNull, pk int
			var colName, colType string
			var dflt sql.NullString
			if err := pragma.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
				pragma.Close()
				return err
			}
			table.Columns = append(table.Columns, Column{
				Name:      colName,
				Type:      colType,
				Nullable:  notNull == 0,
				IsPrimary: pk > 0,
			})
			if pk > 0 {
				table.PrimaryKey = append(table.PrimaryKey, colName)
			}
		}
		if err := pragma.Close(); err != nil {
			return err
		}
		t.tables[name] = table
	}
	return nil
}

func (t *DatabaseTool) introspectInformationSchema(ctx context.Context) error {
	rows, err := t.db.QueryContext(ctx, `
		SELECT table_name, column_name, data_type, is_nullable
		FROM information_schema.columns
		ORDER BY table_name, ordinal_position`)
	if err != nil {
		return fmt.Errorf("query information_schema: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, colName, colType, nullable string
		if err := rows.Scan(&tableName, &colName, &colType, &nullable); err != nil {
			return err
		}
		if t.filter != nil && !t.filter[tableName] {
			continue
		}
		table, ok := t.tables[tableName]
		if !ok {
			table = &Table{Name: tableName}
			t.tables[tableName] = table
		}
		table.Columns = append(table.Columns, Column{
			Name:     colName,
			Type:     colType,
			Nullable: strings.EqualFold(nullable, "YES"),
		})
	}
	return rows.Err()
}

func (t *DatabaseTool) Name() string {
	return t.name
}

func (t *DatabaseTool) Description() string {
	mode := "read-only"
	if t.writes {
		mode = "read-write"
	}
	return fmt.Sprintf("Queries the %s database (%s). Operations: tables, schema, select%s. Table and column names must come from the schema operation.",
		t.driver, mode, writesSuffix(t.writes))
}

func writesSuffix(writes bool) string {
	if writes {
		return ", insert, update, delete"
	}
	return ""
}

func (t *DatabaseTool) ParameterSchema() map[string]any {
	ops := []string{"tables", "schema", "select"}
	if t.writes {
		ops = append(ops, "insert", "update", "delete")
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operation": map[string]any{
				"type":        "string",
				"enum":        ops,
				"description": "The database operation to perform",
			},
			"table": map[string]any{
				"type":        "string",
				"description": "Table name, required for everything except tables",
			},
			"columns": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Columns to select, defaults to all",
			},
			"filters": map[string]any{
				"type":        "object",
				"description": "Equality conditions (column: value), ANDed together",
			},
			"values": map[string]any{
				"type":        "object",
				"description": "Column values for insert and update",
			},
			"order_by": map[string]any{
				"type":        "string",
				"description": "Column to order select results by",
			},
			"descending": map[string]any{
				"type":        "boolean",
				"description": "Order descending",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum rows for select",
			},
		},
		"required": []string{"operation"},
	}
}

type databaseParams struct {
	Operation string
	Table     string
	Columns   []string
	Filters   map[string]any
	Values    map[string]any
	OrderBy   string
	Desc      bool
	Limit     int
}

// ValidateParams checks the parameter map against the captured schema
// without touching the database.
func (t *DatabaseTool) ValidateParams(params map[string]any) error {
	p, err := decodeDatabaseParams(params)
	if err != nil {
		return err
	}
	return t.check(p)
}

func decodeDatabaseParams(params map[string]any) (databaseParams, error) {
	var p databaseParams

	op, _ := params["operation"].(string)
	if op == "" {
		return p, errors.New(errors.CodeInvalidInput, "operation is required", nil)
	}
	if !databaseOperations[op] {
		return p, errors.New(errors.CodeInvalidInput,
			fmt.Sprintf("unknown operation %q, expected one of tables, schema, select, insert, update, delete", op), nil)
	}
	p.Operation = op

	p.Table, _ = params["table"].(string)
	if op != "tables" && p.Table == "" {
		return p, errors.New(errors.CodeInvalidInput,
			fmt.Sprintf("table is required for %s", op), nil)
	}

	if raw, ok := params["columns"]; ok {
		items, ok := raw.([]any)
		if !ok {
			return p, errors.New(errors.CodeInvalidInput, "columns must be an array of strings", nil)
		}
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return p, errors.New(errors.CodeInvalidInput, "columns must be an array of strings", nil)
			}
			p.Columns = append(p.Columns, s)
		}
	}

	if raw, ok := params["filters"]; ok {
		m, ok := raw.(map[string]any)
		if !ok {
			return p, errors.New(errors.CodeInvalidInput, "filters must be an object", nil)
		}
		p.Filters = m
	}
	if raw, ok := params["values"]; ok {
		m, ok := raw.(map[string]any)
		if !ok {
			return p, errors.New(errors.CodeInvalidInput, "values must be an object", nil)
		}
		p.Values = m
	}

	p.OrderBy, _ = params["order_by"].(string)
	p.Desc, _ = params["descending"].(bool)
	switch v := params["limit"].(type) {
	case int:
		p.Limit = v
	case float64:
		p.Limit = int(v)
	}

	switch op {
	case "insert":
		if len(p.Values) == 0 {
			return p, errors.New(errors.CodeInvalidInput, "values is required for insert", nil)
		}
	case "update":
		if len(p.Values) == 0 {
			return p, errors.New(errors.CodeInvalidInput, "values is required for update", nil)
		}
		if len(p.Filters) == 0 {
			return p, errors.New(errors.CodeInvalidInput, "update requires filters, refusing to touch every row", nil)
		}
	case "delete":
		if len(p.Filters) == 0 {
			return p, errors.New(errors.CodeInvalidInput, "delete requires filters, refusing to touch every row", nil)
		}
	}

	return p, nil
}

// check validates identifiers and write gating against the schema snapshot.
func (t *DatabaseTool) check(p databaseParams) error {
	switch p.Operation {
	case "insert", "update", "delete":
		if !t.writes {
			return errors.New(errors.CodeInvalidInput,
				fmt.Sprintf("%s is disabled, the connector is read-only", p.Operation), nil)
		}
	}
	if p.Table == "" {
		return nil
	}
	table, ok := t.tables[p.Table]
	if !ok {
		return errors.New(errors.CodeInvalidInput,
			fmt.Sprintf("unknown table %q, known tables: %s", p.Table, strings.Join(t.order, ", ")), nil)
	}
	for _, col := range p.Columns {
		if err := t.checkColumn(table, col); err != nil {
			return err
		}
	}
	for col := range p.Filters {
		if err := t.checkColumn(table, col); err != nil {
			return err
		}
	}
	for col := range p.Values {
		if err := t.checkColumn(table, col); err != nil {
			return err
		}
	}
	if p.OrderBy != "" {
		if err := t.checkColumn(table, p.OrderBy); err != nil {
			return err
		}
	}
	return nil
}

func (t *DatabaseTool) checkColumn(table *Table, name string) error {
	for _, col := range table.Columns {
		if col.Name == name {
			return nil
		}
	}
	return errors.New(errors.CodeInvalidInput,
		fmt.Sprintf("unknown column %q in table %s", name, table.Name), nil)
}

func (t *DatabaseTool) Execute(ctx context.Context, params map[string]any) core.ExecutionResult {
	p, err := decodeDatabaseParams(params)
	if err != nil {
		return core.Failuref("invalid parameters: %v", err)
	}
	if err := t.check(p); err != nil {
		return core.Failuref("invalid parameters: %v", err)
	}

	if err := ctx.Err(); err != nil {
		return core.Failuref("canceled before %s: %v", p.Operation, err)
	}

	switch p.Operation {
	case "tables":
		return t.listTables()
	case "schema":
		return t.describeTable(p.Table)
	case "select":
		return t.selectRows(ctx, p)
	case "insert":
		return t.insertRow(ctx, p)
	case "update":
		return t.updateRows(ctx, p)
	case "delete":
		return t.deleteRows(ctx, p)
	}
	return core.Failuref("unknown operation %q", p.Operation)
}

func (t *DatabaseTool) listTables() core.ExecutionResult {
	var b strings.Builder
	fmt.Fprintf(&b, "%d tables:", len(t.order))
	for _, name := range t.order {
		fmt.Fprintf(&b, "\n%s (%d columns)", name, len(t.tables[name].Columns))
	}
	return core.Successf("%s", b.String())
}

func (t *DatabaseTool) describeTable(name string) core.ExecutionResult {
	table := t.tables[name]
	var b strings.Builder
	fmt.Fprintf(&b, "Table %s:", table.Name)
	for _, col := range table.Columns {
		fmt.Fprintf(&b, "\n  %s %s", col.Name, col.Type)
		if !col.Nullable {
			b.WriteString(" NOT NULL")
		}
		if col.IsPrimary {
			b.WriteString(" PRIMARY KEY")
		}
	}
	if len(table.PrimaryKey) > 1 {
		fmt.Fprintf(&b, "\nPrimary key: (%s)", strings.Join(table.PrimaryKey, ", "))
	}
	return core.Successf("%s", b.String())
}

func (t *DatabaseTool) selectRows(ctx context.Context, p databaseParams) core.ExecutionResult {
	cols := "*"
	if len(p.Columns) > 0 {
		quoted := make([]string, len(p.Columns))
		for i, col := range p.Columns {
			quoted[i] = t.quote(col)
		}
		cols = strings.Join(quoted, ", ")
	}

	query := fmt.Sprintf("SELECT %s FROM %s", cols, t.quote(p.Table))
	where, args := t.whereClause(p.Filters)
	query += where
	if p.OrderBy != "" {
		query += " ORDER BY " + t.quote(p.OrderBy)
		if p.Desc {
			query += " DESC"
		}
	}
	limit := p.Limit
	if limit <= 0 || limit > t.maxRows {
		limit = t.maxRows
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return core.Failuref("select failed: %v", err)
	}
	defer rows.Close()

	records, err := rowsToMaps(rows)
	if err != nil {
		return core.Failuref("reading rows: %v", err)
	}
	if len(records) == 0 {
		return core.Successf("No rows in %s matched", p.Table)
	}

	encoded, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return core.Failuref("encoding rows: %v", err)
	}
	res := core.Successf("%d rows from %s:\n%s", len(records), p.Table, encoded)
	return res.WithMetadata(map[string]any{"rows": len(records)})
}

func (t *DatabaseTool) insertRow(ctx context.Context, p databaseParams) core.ExecutionResult {
	cols := make([]string, 0, len(p.Values))
	for col := range p.Values {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		quoted[i] = t.quote(col)
		placeholders[i] = "?"
		args[i] = p.Values[col]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.quote(p.Table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	result, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		return core.Failuref("insert failed: %v", err)
	}
	if id, err := result.LastInsertId(); err == nil && id > 0 {
		return core.Successf("Inserted 1 row into %s (id %d)", p.Table, id)
	}
	return core.Successf("Inserted 1 row into %s", p.Table)
}

func (t *DatabaseTool) updateRows(ctx context.Context, p databaseParams) core.ExecutionResult {
	cols := make([]string, 0, len(p.Values))
	for col := range p.Values {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(p.Filters))
	for i, col := range cols {
		sets[i] = t.quote(col) + " = ?"
		args = append(args, p.Values[col])
	}
	where, whereArgs := t.whereClause(p.Filters)
	args = append(args, whereArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s%s", t.quote(p.Table), strings.Join(sets, ", "), where)
	result, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		return core.Failuref("update failed: %v", err)
	}
	affected, _ := result.RowsAffected()
	return core.Successf("Updated %d row(s) in %s", affected, p.Table)
}

func (t *DatabaseTool) deleteRows(ctx context.Context, p databaseParams) core.ExecutionResult {
	where, args := t.whereClause(p.Filters)
	query := fmt.Sprintf("DELETE FROM %s%s", t.quote(p.Table), where)

	result, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		return core.Failuref("delete failed: %v", err)
	}
	affected, _ := result.RowsAffected()
	return core.Successf("Deleted %d row(s) from %s", affected, p.Table)
}

// whereClause renders ANDed equality conditions in sorted column order so
// queries are deterministic.
func (t *DatabaseTool) whereClause(filters map[string]any) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	cols := make([]string, 0, len(filters))
	for col := range filters {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	conds := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		conds[i] = t.quote(col) + " = ?"
		args[i] = filters[col]
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (t *DatabaseTool) quote(name string) string {
	if t.driver == "mysql" {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}

// Tables returns the introspected table names in lexical order.
func (t *DatabaseTool) Tables() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

func rowsToMaps(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		record := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				record[col] = string(b)
			} else {
				record[col] = values[i]
			}
		}
		out = append(out, record)
	}
	return out, rows.Err()
}
