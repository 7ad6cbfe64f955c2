package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

const taskTable = "praxis_tasks"

// SQLiteStore persists task records in a SQLite database. The full record is
// stored as a JSON payload; status and timestamps are lifted into columns for
// filtering and ordering.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite-backed task store and ensures schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if err := ensureTaskSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func ensureTaskSchema(db *sql.DB) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			goal TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			record_json BLOB NOT NULL
		);`, taskTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_status ON %s(status);`, taskTable, taskTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_updated ON %s(updated_at);`, taskTable, taskTable),
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Create registers a new pending record for the goal.
func (s *SQLiteStore) Create(ctx context.Context, goal string) (*Record, error) {
	if strings.TrimSpace(goal) == "" {
		return nil, fmt.Errorf("goal is empty")
	}
	now := time.Now().UTC()
	rec := &Record{
		ID:        uuid.NewString(),
		Goal:      goal,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, goal, status, created_at, updated_at, record_json) VALUES (?, ?, ?, ?, ?, ?)", taskTable),
		rec.ID, rec.Goal, string(rec.Status), now.UnixMilli(), now.UnixMilli(), payload)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Get returns the record with the given id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT record_json FROM %s WHERE id = ?", taskTable), id).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("task %q not found", id)
		}
		return nil, err
	}
	return unmarshalRecord(payload)
}

// Update replaces the stored record and bumps its UpdatedAt.
func (s *SQLiteStore) Update(ctx context.Context, rec *Record) (*Record, error) {
	if rec == nil || rec.ID == "" {
		return nil, fmt.Errorf("record id is required")
	}
	stored := rec.Clone()
	stored.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(stored)
	if err != nil {
		return nil, err
	}
	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET goal = ?, status = ?, updated_at = ?, record_json = ? WHERE id = ?", taskTable),
		stored.Goal, string(stored.Status), stored.UpdatedAt.UnixMilli(), payload, stored.ID)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("task %q not found", stored.ID)
	}
	return stored, nil
}

// List returns records ordered most recently updated first.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]*Record, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	var clauses []string
	var args []any
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}
	query := fmt.Sprintf("SELECT record_json FROM %s%s ORDER BY updated_at DESC, id ASC LIMIT ?", taskTable, where)
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		rec, err := unmarshalRecord(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func unmarshalRecord(payload []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

var _ Store = (*SQLiteStore)(nil)
