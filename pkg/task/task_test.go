package task

import (
	"context"
	"strings"
	"testing"

	"github.com/jllopis/praxis/pkg/agent"
	"github.com/jllopis/praxis/pkg/core"
)

func samplePlan() *core.Plan {
	return &core.Plan{
		Steps: []core.Step{
			{ID: "step-1", Description: "write the file", ToolName: "file", Params: map[string]any{"operation": "write", "path": "NOTES.md"}},
			{ID: "step-2", Description: "commit it", ToolName: "git", Params: map[string]any{"operation": "commit", "message": "add notes"}},
		},
		Reasoning: "write the file, then commit it",
	}
}

func completedResult(plan *core.Plan) *agent.RunResult {
	return &agent.RunResult{
		State:          agent.StateCompleted,
		RunID:          "run-1",
		Plan:           plan,
		CompletedSteps: []string{"step-1", "step-2"},
		FilesModified:  []string{"NOTES.md"},
	}
}

func mustCreate(t *testing.T, s Store, goal string) *Record {
	t.Helper()
	rec, err := s.Create(context.Background(), goal)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return rec
}

func mustUpdate(t *testing.T, s Store, rec *Record) *Record {
	t.Helper()
	updated, err := s.Update(context.Background(), rec)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	return updated
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	rec := mustCreate(t, s, "add release notes")
	if rec.ID == "" {
		t.Fatalf("expected generated id")
	}
	if rec.Status != StatusPending {
		t.Fatalf("expected pending, got %s", rec.Status)
	}
	if rec.CreatedAt.IsZero() || rec.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not set: %+v", rec)
	}

	got, err := s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Goal != "add release notes" {
		t.Fatalf("unexpected goal %q", got.Goal)
	}

	plan := samplePlan()
	got.Status = StatusCompleted
	got.Plan = plan
	got.Result = completedResult(plan)
	got.Progress = Progress{Completed: 2, Total: 2}
	mustUpdate(t, s, got)

	final, err := s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if final.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", final.Status)
	}
	if final.Plan == nil || len(final.Plan.Steps) != 2 {
		t.Fatalf("plan not persisted: %+v", final.Plan)
	}
	if final.Result == nil || final.Result.RunID != "run-1" {
		t.Fatalf("result not persisted: %+v", final.Result)
	}
	if final.Progress.Completed != 2 || final.Progress.Total != 2 {
		t.Fatalf("unexpected progress %+v", final.Progress)
	}
	if final.UpdatedAt.Before(final.CreatedAt) {
		t.Fatalf("updated_at went backwards: %+v", final)
	}
}

func TestMemoryStoreCloneIsolation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	rec := mustCreate(t, s, "refactor the parser")
	rec.Plan = samplePlan()
	mustUpdate(t, s, rec)

	got, err := s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.Status = StatusFailed
	got.Plan.Steps[0].Params["path"] = "ELSEWHERE"

	again, err := s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if again.Status == StatusFailed {
		t.Fatalf("mutating a returned record changed the store")
	}
	if again.Plan.Steps[0].Params["path"] != "NOTES.md" {
		t.Fatalf("mutating returned plan params changed the store")
	}
}

func TestMemoryStoreValidation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Create(ctx, "   "); err == nil {
		t.Fatalf("expected error for empty goal")
	}
	if _, err := s.Get(ctx, "missing"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.Update(ctx, nil); err == nil {
		t.Fatalf("expected error for nil record")
	}
	if _, err := s.Update(ctx, &Record{ID: "missing", Goal: "g"}); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStoreList(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	a := mustCreate(t, s, "ship the docs")
	b := mustCreate(t, s, "fix the tests")
	c := mustCreate(t, s, "tag the release")

	a.Status = StatusCompleted
	mustUpdate(t, s, a)
	c.Status = StatusFailed
	mustUpdate(t, s, c)

	all, err := s.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	if all[0].ID != c.ID || all[1].ID != a.ID || all[2].ID != b.ID {
		t.Fatalf("expected most recently updated first, got %s %s %s", all[0].Goal, all[1].Goal, all[2].Goal)
	}

	completed, err := s.List(ctx, Filter{Status: StatusCompleted})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != a.ID {
		t.Fatalf("unexpected completed records: %+v", completed)
	}

	limited, err := s.List(ctx, Filter{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(limited) != 2 || limited[0].ID != c.ID {
		t.Fatalf("unexpected limited records: %+v", limited)
	}

	pending, err := s.List(ctx, Filter{Status: StatusPending})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != b.ID {
		t.Fatalf("unexpected pending records: %+v", pending)
	}
}

func TestRecordCloneDeep(t *testing.T) {
	plan := samplePlan()
	rec := &Record{
		ID:       "t-1",
		Goal:     "write notes",
		Status:   StatusCompleted,
		Plan:     plan,
		Result:   completedResult(plan),
		Progress: Progress{Completed: 2, Total: 2},
	}

	dup := rec.Clone()
	dup.Plan.Steps[0].Params["path"] = "CHANGED"
	dup.Result.FilesModified[0] = "CHANGED"

	if rec.Plan.Steps[0].Params["path"] != "NOTES.md" {
		t.Fatalf("clone shares plan params with original")
	}
	if rec.Result.FilesModified[0] != "NOTES.md" {
		t.Fatalf("clone shares result slices with original")
	}

	var missing *Record
	if missing.Clone() != nil {
		t.Fatalf("nil clone should be nil")
	}
}

func TestStatusIsTerminal(t *testing.T) {
	if !StatusCompleted.IsTerminal() || !StatusFailed.IsTerminal() {
		t.Fatalf("completed and failed are terminal")
	}
	if StatusPending.IsTerminal() || StatusExecuting.IsTerminal() {
		t.Fatalf("pending and executing are not terminal")
	}
}
