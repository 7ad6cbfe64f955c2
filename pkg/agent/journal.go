package agent

import (
	"context"
	"sync"
	"time"
)

// Journal event names. One entry per lifecycle transition; the journal is
// append-only and never rewritten.
const (
	EventPlanCreated   = "plan_created"
	EventPlanApplied   = "plan_applied"
	EventStepStarted   = "step_started"
	EventStepCompleted = "step_completed"
	EventStepFailed    = "step_failed"
	EventStepRetried   = "step_retried"
	EventRunFinished   = "run_finished"
)

// JournalEntry is one timestamped record of a run event.
type JournalEntry struct {
	RunID  string    `json:"run_id"`
	Event  string    `json:"event"`
	StepID string    `json:"step_id,omitempty"`
	Tool   string    `json:"tool,omitempty"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// RunJournal persists run events for later inspection.
type RunJournal interface {
	Record(ctx context.Context, entry JournalEntry) error
	List(ctx context.Context, filter JournalFilter) ([]JournalEntry, error)
}

// JournalFilter limits journal queries.
type JournalFilter struct {
	RunID  string
	Event  string
	StepID string
	Limit  int
}

// MemoryRunJournal keeps journal entries in memory.
type MemoryRunJournal struct {
	mu      sync.Mutex
	entries []JournalEntry
}

// NewMemoryRunJournal returns an in-memory run journal.
func NewMemoryRunJournal() *MemoryRunJournal {
	return &MemoryRunJournal{}
}

// Record appends a journal entry.
func (j *MemoryRunJournal) Record(_ context.Context, entry JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, normalizeJournalEntry(entry))
	return nil
}

// List returns filtered journal entries in record order.
func (j *MemoryRunJournal) List(_ context.Context, filter JournalFilter) ([]JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]JournalEntry, 0, len(j.entries))
	for _, entry := range j.entries {
		if filter.RunID != "" && entry.RunID != filter.RunID {
			continue
		}
		if filter.Event != "" && entry.Event != filter.Event {
			continue
		}
		if filter.StepID != "" && entry.StepID != filter.StepID {
			continue
		}
		out = append(out, entry)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func normalizeJournalEntry(entry JournalEntry) JournalEntry {
	if entry.At.IsZero() {
		entry.At = time.Now()
	}
	entry.At = entry.At.UTC()
	return entry
}
