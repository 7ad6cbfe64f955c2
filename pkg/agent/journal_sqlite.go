package agent

import (
	"context"
	"database/sql"
	"errors"

	_ "modernc.org/sqlite"
)

// SQLiteRunJournal persists run events in SQLite.
type SQLiteRunJournal struct {
	db *sql.DB
}

// NewSQLiteRunJournal creates a SQLite-backed run journal and ensures schema.
func NewSQLiteRunJournal(db *sql.DB) (*SQLiteRunJournal, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureRunJournalSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteRunJournal{db: db}, nil
}

// Record stores a single journal entry.
func (j *SQLiteRunJournal) Record(ctx context.Context, entry JournalEntry) error {
	entry = normalizeJournalEntry(entry)
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO praxis_run_events (
			run_id, event, step_id, tool, detail, at
		) VALUES (?, ?, ?, ?, ?, ?)
	`,
		entry.RunID,
		entry.Event,
		entry.StepID,
		entry.Tool,
		entry.Detail,
		entry.At,
	)
	return err
}

// List returns journal entries matching the filter.
func (j *SQLiteRunJournal) List(ctx context.Context, filter JournalFilter) ([]JournalEntry, error) {
	query := `
		SELECT run_id, event, step_id, tool, detail, at
		FROM praxis_run_events
	`
	var args []any
	where := ""
	addFilter := func(clause string, value any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, value)
	}
	if filter.RunID != "" {
		addFilter("run_id = ?", filter.RunID)
	}
	if filter.Event != "" {
		addFilter("event = ?", filter.Event)
	}
	if filter.StepID != "" {
		addFilter("step_id = ?", filter.StepID)
	}
	query += where + " ORDER BY at ASC, rowid ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var (
			entry JournalEntry
			at    sql.NullTime
		)
		if err := rows.Scan(
			&entry.RunID,
			&entry.Event,
			&entry.StepID,
			&entry.Tool,
			&entry.Detail,
			&at,
		); err != nil {
			return nil, err
		}
		if at.Valid {
			entry.At = at.Time
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func ensureRunJournalSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS praxis_run_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			event TEXT NOT NULL,
			step_id TEXT,
			tool TEXT,
			detail TEXT,
			at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_praxis_run_events_run ON praxis_run_events(run_id);
		CREATE INDEX IF NOT EXISTS idx_praxis_run_events_event ON praxis_run_events(event);
	`)
	return err
}
