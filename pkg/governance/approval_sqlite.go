package governance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

const approvalTable = "praxis_approvals"

// SQLiteApprovalStore persists approvals in a SQLite database.
type SQLiteApprovalStore struct {
	db *sql.DB
}

// NewSQLiteApprovalStore creates a SQLite-backed approval store and ensures schema.
func NewSQLiteApprovalStore(db *sql.DB) (*SQLiteApprovalStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if err := ensureApprovalSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteApprovalStore{db: db}, nil
}

func ensureApprovalSchema(db *sql.DB) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL,
			plan_digest TEXT NOT NULL,
			status TEXT NOT NULL,
			reason TEXT NOT NULL,
			summary TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL DEFAULT 0
		);`, approvalTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_task ON %s(task_id);`, approvalTable, approvalTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_digest ON %s(plan_digest);`, approvalTable, approvalTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_status ON %s(status);`, approvalTable, approvalTable),
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Create inserts an approval record.
func (s *SQLiteApprovalStore) Create(ctx context.Context, record ApprovalRecord) (*ApprovalRecord, error) {
	if record.PlanDigest == "" {
		return nil, fmt.Errorf("plan_digest is required")
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Status == "" {
		record.Status = ApprovalStatusPending
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	expiresAt := int64(0)
	if !record.ExpiresAt.IsZero() {
		expiresAt = record.ExpiresAt.UnixMilli()
	}
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, task_id, plan_digest, status, reason, summary, created_at, updated_at, expires_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", approvalTable),
		record.ID, record.TaskID, record.PlanDigest, string(record.Status), record.Reason, record.Summary, record.CreatedAt.UnixMilli(), record.UpdatedAt.UnixMilli(), expiresAt)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, record.ID)
}

// Get returns an approval record by id.
func (s *SQLiteApprovalStore) Get(ctx context.Context, id string) (*ApprovalRecord, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT id, task_id, plan_digest, status, reason, summary, created_at, updated_at, expires_at FROM %s WHERE id = ?", approvalTable),
		id,
	)
	record, err := scanApproval(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("approval %q not found", id)
		}
		return nil, err
	}
	return record, nil
}

// List returns approvals matching the filter.
func (s *SQLiteApprovalStore) List(ctx context.Context, filter ApprovalFilter) ([]*ApprovalRecord, error) {
	where := "1=1"
	args := make([]any, 0)
	if filter.TaskID != "" {
		where += " AND task_id = ?"
		args = append(args, filter.TaskID)
	}
	if filter.PlanDigest != "" {
		where += " AND plan_digest = ?"
		args = append(args, filter.PlanDigest)
	}
	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if !filter.ExpiringBefore.IsZero() {
		where += " AND expires_at > 0 AND expires_at <= ?"
		args = append(args, filter.ExpiringBefore.UnixMilli())
	}
	limit := ""
	if filter.Limit > 0 {
		limit = fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	query := fmt.Sprintf("SELECT id, task_id, plan_digest, status, reason, summary, created_at, updated_at, expires_at FROM %s WHERE %s ORDER BY updated_at DESC%s", approvalTable, where, limit)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*ApprovalRecord, 0)
	for rows.Next() {
		record, err := scanApproval(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// UpdateStatus updates approval status and reason.
func (s *SQLiteApprovalStore) UpdateStatus(ctx context.Context, id string, status ApprovalStatus, reason string) (*ApprovalRecord, error) {
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET status = ?, reason = ?, updated_at = ? WHERE id = ?", approvalTable),
		string(status), reason, time.Now().UTC().UnixMilli(), id)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func scanApproval(scan func(dest ...any) error) (*ApprovalRecord, error) {
	var (
		record      ApprovalRecord
		status      string
		createdAtMs int64
		updatedAtMs int64
		expiresAtMs int64
	)
	if err := scan(&record.ID, &record.TaskID, &record.PlanDigest, &status, &record.Reason, &record.Summary, &createdAtMs, &updatedAtMs, &expiresAtMs); err != nil {
		return nil, err
	}
	record.Status = ApprovalStatus(status)
	record.CreatedAt = time.UnixMilli(createdAtMs).UTC()
	record.UpdatedAt = time.UnixMilli(updatedAtMs).UTC()
	if expiresAtMs > 0 {
		record.ExpiresAt = time.UnixMilli(expiresAtMs).UTC()
	}
	return &record, nil
}
