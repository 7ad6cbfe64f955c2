// Package task persists submitted goals as task records and projects agent
// runs into them: a record is created pending, moves to executing while the
// agent runs, and ends completed or failed with the run result attached.
// Previewed plans park the record back in pending until the plan is applied.
package task

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jllopis/praxis/pkg/agent"
	"github.com/jllopis/praxis/pkg/core"
)

// Status is the lifecycle state of a task record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusExecuting Status = "executing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether the task reached a final state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Progress counts completed plan steps against the plan total.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Record is one submitted goal and everything known about its run. Plan is
// set once planning succeeds, Result once the run finishes or previews.
type Record struct {
	ID        string           `json:"id"`
	Goal      string           `json:"goal"`
	Status    Status           `json:"status"`
	Plan      *core.Plan       `json:"plan,omitempty"`
	Result    *agent.RunResult `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	Progress  Progress         `json:"progress"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	dup := *r
	dup.Plan = r.Plan.Clone()
	dup.Result = r.Result.Clone()
	return &dup
}

// Filter narrows List results. A zero filter lists the most recent records.
type Filter struct {
	Status Status
	Limit  int
}

const defaultListLimit = 50

// Store persists task records. Implementations return clones; mutating a
// returned record does not change stored state until Update is called.
type Store interface {
	// Create registers a new pending record for the goal.
	Create(ctx context.Context, goal string) (*Record, error)
	// Get returns the record with the given id.
	Get(ctx context.Context, id string) (*Record, error)
	// Update replaces the stored record. UpdatedAt is set by the store.
	Update(ctx context.Context, rec *Record) (*Record, error)
	// List returns records ordered most recently updated first.
	List(ctx context.Context, filter Filter) ([]*Record, error)
}

// MemoryStore keeps task records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore creates an empty in-memory task store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Create registers a new pending record for the goal.
func (s *MemoryStore) Create(ctx context.Context, goal string) (*Record, error) {
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
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	return rec.Clone(), nil
}

// Get returns the record with the given id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("task %q not found", id)
	}
	return rec.Clone(), nil
}

// Update replaces the stored record and bumps its UpdatedAt.
func (s *MemoryStore) Update(ctx context.Context, rec *Record) (*Record, error) {
	if rec == nil || rec.ID == "" {
		return nil, fmt.Errorf("record id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; !ok {
		return nil, fmt.Errorf("task %q not found", rec.ID)
	}
	stored := rec.Clone()
	stored.UpdatedAt = time.Now().UTC()
	s.records[stored.ID] = stored
	return stored.Clone(), nil
}

// List returns records ordered most recently updated first.
func (s *MemoryStore) List(ctx context.Context, filter Filter) ([]*Record, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	s.mu.RLock()
	out := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		out = append(out, rec.Clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
