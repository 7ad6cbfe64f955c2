package task

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jllopis/praxis/pkg/agent"
	"github.com/jllopis/praxis/pkg/core"
	"github.com/jllopis/praxis/pkg/errors"
)

// Runner executes a goal from scratch. *agent.Agent satisfies it.
type Runner interface {
	Execute(ctx context.Context, goal string) (*agent.RunResult, error)
}

// Applier applies an already previewed plan. *agent.Agent satisfies it.
type Applier interface {
	ApplyPlan(ctx context.Context, plan *core.Plan) (*agent.RunResult, error)
}

// Manager projects agent runs into task records. It owns the record
// lifecycle only; the caller supplies the runner for each submission so
// every goal gets its own agent instance.
type Manager struct {
	store Store
	log   *slog.Logger
}

// NewManager creates a manager over the given store.
func NewManager(store Store) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	return &Manager{store: store, log: slog.Default()}, nil
}

// Submit creates a record for the goal and runs it. The record moves
// pending -> executing -> completed or failed. A preview run parks the
// record back in pending with the plan attached so Apply can pick it up.
// The run error, if any, is returned alongside the updated record.
func (m *Manager) Submit(ctx context.Context, goal string, runner Runner) (*Record, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner is nil")
	}
	rec, err := m.store.Create(ctx, goal)
	if err != nil {
		return nil, err
	}
	m.log.Info("task.created",
		slog.String("task_id", rec.ID),
		slog.String("goal", goal),
	)
	rec.Status = StatusExecuting
	if rec, err = m.store.Update(ctx, rec); err != nil {
		return nil, err
	}
	result, runErr := runner.Execute(ctx, goal)
	return m.finish(ctx, rec, result, runErr)
}

// Apply runs the previewed plan held by a pending record. An approval
// rejection leaves the record pending so it can be applied again once the
// plan is approved.
func (m *Manager) Apply(ctx context.Context, id string, applier Applier) (*Record, error) {
	if applier == nil {
		return nil, fmt.Errorf("applier is nil")
	}
	rec, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != StatusPending {
		return nil, fmt.Errorf("task %q is %s, not pending", id, rec.Status)
	}
	if rec.Plan == nil || len(rec.Plan.Steps) == 0 {
		return nil, fmt.Errorf("task %q has no previewed plan", id)
	}
	m.log.Info("task.apply",
		slog.String("task_id", rec.ID),
		slog.String("plan_digest", rec.Plan.Digest()),
	)
	rec.Status = StatusExecuting
	if rec, err = m.store.Update(ctx, rec); err != nil {
		return nil, err
	}
	result, runErr := applier.ApplyPlan(ctx, rec.Plan)
	return m.finish(ctx, rec, result, runErr)
}

// finish records the outcome of a run on the record and hands the run error
// back to the caller. Approval-required failures and previews return the
// record to pending; everything else lands on completed or failed.
func (m *Manager) finish(ctx context.Context, rec *Record, result *agent.RunResult, runErr error) (*Record, error) {
	if result != nil {
		if result.Plan != nil {
			rec.Plan = result.Plan
		}
		rec.Result = result
		rec.Progress = Progress{
			Completed: len(result.CompletedSteps),
			Total:     len(result.CompletedSteps) + len(result.FailedSteps),
		}
		if result.Plan != nil {
			rec.Progress.Total = len(result.Plan.Steps)
		}
	}
	switch {
	case runErr != nil && errors.IsCode(runErr, errors.CodeApprovalRequired):
		rec.Status = StatusPending
		rec.Error = runErr.Error()
	case runErr != nil:
		rec.Status = StatusFailed
		rec.Error = runErr.Error()
	case result == nil:
		rec.Status = StatusFailed
		rec.Error = "runner returned no result"
	case result.State == agent.StatePreviewing:
		rec.Status = StatusPending
		rec.Error = ""
	case result.State == agent.StateFailed:
		rec.Status = StatusFailed
		rec.Error = failedStepsMessage(result)
	default:
		rec.Status = StatusCompleted
		rec.Error = ""
	}
	updated, err := m.store.Update(ctx, rec)
	if err != nil {
		return nil, err
	}
	m.log.Info("task.finished",
		slog.String("task_id", updated.ID),
		slog.String("status", string(updated.Status)),
		slog.Int("completed_steps", updated.Progress.Completed),
		slog.Int("total_steps", updated.Progress.Total),
	)
	return updated, runErr
}

func failedStepsMessage(result *agent.RunResult) string {
	if len(result.FailedSteps) == 0 {
		return "run failed"
	}
	return fmt.Sprintf("steps failed: %s", strings.Join(result.FailedSteps, ", "))
}
