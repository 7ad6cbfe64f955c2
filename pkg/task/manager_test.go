package task

import (
	"context"
	"strings"
	"testing"

	"github.com/jllopis/praxis/pkg/agent"
	"github.com/jllopis/praxis/pkg/core"
	"github.com/jllopis/praxis/pkg/errors"
)

type runnerFunc func(ctx context.Context, goal string) (*agent.RunResult, error)

func (f runnerFunc) Execute(ctx context.Context, goal string) (*agent.RunResult, error) {
	return f(ctx, goal)
}

type applierFunc func(ctx context.Context, plan *core.Plan) (*agent.RunResult, error)

func (f applierFunc) ApplyPlan(ctx context.Context, plan *core.Plan) (*agent.RunResult, error) {
	return f(ctx, plan)
}

func newTestManager(t *testing.T) (*Manager, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	m, err := NewManager(store)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m, store
}

func TestManagerSubmitCompleted(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	plan := samplePlan()

	sawExecuting := false
	runner := runnerFunc(func(ctx context.Context, goal string) (*agent.RunResult, error) {
		executing, err := store.List(ctx, Filter{Status: StatusExecuting})
		if err == nil && len(executing) == 1 && executing[0].Goal == goal {
			sawExecuting = true
		}
		return completedResult(plan), nil
	})

	rec, err := m.Submit(ctx, "add release notes", runner)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !sawExecuting {
		t.Fatalf("record was not executing while the runner ran")
	}
	if rec.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", rec.Status)
	}
	if rec.Error != "" {
		t.Fatalf("unexpected error %q", rec.Error)
	}
	if rec.Plan == nil || rec.Result == nil {
		t.Fatalf("plan and result not projected: %+v", rec)
	}
	if rec.Progress.Completed != 2 || rec.Progress.Total != 2 {
		t.Fatalf("unexpected progress %+v", rec.Progress)
	}

	stored, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != StatusCompleted {
		t.Fatalf("stored record not updated: %+v", stored)
	}
}

func TestManagerSubmitRunError(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	plan := samplePlan()

	partial := &agent.RunResult{
		State:       agent.StateFailed,
		RunID:       "run-2",
		Plan:        plan,
		FailedSteps: []string{"step-1"},
	}
	runner := runnerFunc(func(ctx context.Context, goal string) (*agent.RunResult, error) {
		return partial, errors.New(errors.CodeAgent, "step step-1 failed", nil)
	})

	rec, err := m.Submit(ctx, "add release notes", runner)
	if err == nil || !errors.IsCode(err, errors.CodeAgent) {
		t.Fatalf("expected agent error back, got %v", err)
	}
	if rec == nil || rec.Status != StatusFailed {
		t.Fatalf("expected failed record, got %+v", rec)
	}
	if !strings.Contains(rec.Error, "step step-1 failed") {
		t.Fatalf("run error not recorded: %q", rec.Error)
	}
	if rec.Progress.Completed != 0 || rec.Progress.Total != 2 {
		t.Fatalf("unexpected progress %+v", rec.Progress)
	}
}

func TestManagerSubmitAutonomousFailure(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	plan := samplePlan()

	result := &agent.RunResult{
		State:          agent.StateFailed,
		RunID:          "run-3",
		Plan:           plan,
		CompletedSteps: []string{"step-2"},
		FailedSteps:    []string{"step-1"},
	}
	runner := runnerFunc(func(ctx context.Context, goal string) (*agent.RunResult, error) {
		return result, nil
	})

	rec, err := m.Submit(ctx, "add release notes", runner)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rec.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", rec.Status)
	}
	if rec.Error != "steps failed: step-1" {
		t.Fatalf("unexpected error %q", rec.Error)
	}
	if rec.Progress.Completed != 1 || rec.Progress.Total != 2 {
		t.Fatalf("unexpected progress %+v", rec.Progress)
	}
}

func TestManagerSubmitPreviewParksPending(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	plan := samplePlan()

	runner := runnerFunc(func(ctx context.Context, goal string) (*agent.RunResult, error) {
		return &agent.RunResult{State: agent.StatePreviewing, RunID: "run-4", Plan: plan}, nil
	})

	rec, err := m.Submit(ctx, "add release notes", runner)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rec.Status != StatusPending {
		t.Fatalf("expected pending after preview, got %s", rec.Status)
	}
	if rec.Plan == nil || len(rec.Plan.Steps) != 2 {
		t.Fatalf("previewed plan not recorded: %+v", rec.Plan)
	}
	if rec.Progress.Completed != 0 || rec.Progress.Total != 2 {
		t.Fatalf("unexpected progress %+v", rec.Progress)
	}
}

func TestManagerApplyRunsPreviewedPlan(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	plan := samplePlan()

	preview := runnerFunc(func(ctx context.Context, goal string) (*agent.RunResult, error) {
		return &agent.RunResult{State: agent.StatePreviewing, RunID: "run-5", Plan: plan}, nil
	})
	rec, err := m.Submit(ctx, "add release notes", preview)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	var appliedDigest string
	applier := applierFunc(func(ctx context.Context, p *core.Plan) (*agent.RunResult, error) {
		appliedDigest = p.Digest()
		return completedResult(p), nil
	})
	applied, err := m.Apply(ctx, rec.ID, applier)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if applied.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", applied.Status)
	}
	if appliedDigest != plan.Digest() {
		t.Fatalf("applier did not receive the previewed plan")
	}
	if applied.Progress.Completed != 2 {
		t.Fatalf("unexpected progress %+v", applied.Progress)
	}
}

func TestManagerApplyApprovalRequiredStaysPending(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	plan := samplePlan()

	preview := runnerFunc(func(ctx context.Context, goal string) (*agent.RunResult, error) {
		return &agent.RunResult{State: agent.StatePreviewing, RunID: "run-6", Plan: plan}, nil
	})
	rec, err := m.Submit(ctx, "add release notes", preview)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	rejecting := applierFunc(func(ctx context.Context, p *core.Plan) (*agent.RunResult, error) {
		return nil, agent.NewApprovalRequiredError(p.Digest())
	})
	after, err := m.Apply(ctx, rec.ID, rejecting)
	if err == nil || !errors.IsCode(err, errors.CodeApprovalRequired) {
		t.Fatalf("expected approval required, got %v", err)
	}
	if after.Status != StatusPending {
		t.Fatalf("unapproved apply should leave the task pending, got %s", after.Status)
	}
	if after.Plan == nil {
		t.Fatalf("unapproved apply dropped the plan")
	}
	if !strings.Contains(after.Error, "not approved") {
		t.Fatalf("approval failure not recorded: %q", after.Error)
	}

	accepting := applierFunc(func(ctx context.Context, p *core.Plan) (*agent.RunResult, error) {
		return completedResult(p), nil
	})
	final, err := m.Apply(ctx, rec.ID, accepting)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if final.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", final.Status)
	}
	if final.Error != "" {
		t.Fatalf("stale error survived: %q", final.Error)
	}
}

func TestManagerApplyValidation(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	noop := applierFunc(func(ctx context.Context, p *core.Plan) (*agent.RunResult, error) {
		return completedResult(p), nil
	})

	if _, err := m.Apply(ctx, "missing", noop); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found, got %v", err)
	}

	pending := mustCreate(t, store, "no plan yet")
	if _, err := m.Apply(ctx, pending.ID, noop); err == nil || !strings.Contains(err.Error(), "no previewed plan") {
		t.Fatalf("expected no plan error, got %v", err)
	}

	done := runnerFunc(func(ctx context.Context, goal string) (*agent.RunResult, error) {
		return completedResult(samplePlan()), nil
	})
	rec, err := m.Submit(ctx, "already finished", done)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := m.Apply(ctx, rec.ID, noop); err == nil || !strings.Contains(err.Error(), "not pending") {
		t.Fatalf("expected not pending error, got %v", err)
	}

	if _, err := m.Apply(ctx, rec.ID, nil); err == nil {
		t.Fatalf("expected error for nil applier")
	}
}

func TestManagerSubmitValidation(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Submit(ctx, "goal", nil); err == nil {
		t.Fatalf("expected error for nil runner")
	}
	noop := runnerFunc(func(ctx context.Context, goal string) (*agent.RunResult, error) {
		return completedResult(samplePlan()), nil
	})
	if _, err := m.Submit(ctx, "  ", noop); err == nil {
		t.Fatalf("expected error for empty goal")
	}

	if _, err := NewManager(nil); err == nil {
		t.Fatalf("expected error for nil store")
	}
}

func TestManagerSubmitNoResult(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	runner := runnerFunc(func(ctx context.Context, goal string) (*agent.RunResult, error) {
		return nil, nil
	})
	rec, err := m.Submit(ctx, "add release notes", runner)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rec.Status != StatusFailed || !strings.Contains(rec.Error, "no result") {
		t.Fatalf("expected failed record, got %+v", rec)
	}
}
