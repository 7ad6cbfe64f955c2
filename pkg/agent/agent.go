// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent wires the planning and execution halves of Praxis into a
// run loop: create a plan for a goal, optionally stop for preview, then
// execute the steps in order with policy gating and bounded remediation
// of failures.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jllopis/praxis/pkg/core"
	"github.com/jllopis/praxis/pkg/errors"
	"github.com/jllopis/praxis/pkg/governance"
	"github.com/jllopis/praxis/pkg/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// State describes where a run is in its lifecycle.
type State string

const (
	StatePlanning   State = "planning"
	StatePreviewing State = "previewing"
	StateExecuting  State = "executing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

const defaultMaxIterations = 10

// Planner produces an executable plan for a goal. *planner.Planner
// satisfies it.
type Planner interface {
	CreatePlan(ctx context.Context, goal string, execCtx *core.ExecutionContext) (*core.Plan, error)
}

// RunResult summarizes a run or a preview.
type RunResult struct {
	State          State                `json:"state"`
	RunID          string               `json:"runId"`
	Plan           *core.Plan           `json:"plan,omitempty"`
	CompletedSteps []string             `json:"completedSteps,omitempty"`
	FailedSteps    []string             `json:"failedSteps,omitempty"`
	FilesModified  []string             `json:"filesModified,omitempty"`
	Commands       []core.CommandRecord `json:"commands,omitempty"`
	Logs           []core.LogEntry      `json:"logs,omitempty"`
}

// Clone returns a deep copy of the result. Task stores persist clones so a
// caller cannot mutate a stored run through the returned slices.
func (r *RunResult) Clone() *RunResult {
	if r == nil {
		return nil
	}
	dup := &RunResult{
		State: r.State,
		RunID: r.RunID,
		Plan:  r.Plan.Clone(),
	}
	if r.CompletedSteps != nil {
		dup.CompletedSteps = append([]string(nil), r.CompletedSteps...)
	}
	if r.FailedSteps != nil {
		dup.FailedSteps = append([]string(nil), r.FailedSteps...)
	}
	if r.FilesModified != nil {
		dup.FilesModified = append([]string(nil), r.FilesModified...)
	}
	if r.Commands != nil {
		dup.Commands = append([]core.CommandRecord(nil), r.Commands...)
	}
	if r.Logs != nil {
		dup.Logs = append([]core.LogEntry(nil), r.Logs...)
	}
	return dup
}

// Agent drives a goal from plan to completion. A single Agent may be
// reused across runs; preview state is guarded by a mutex.
type Agent struct {
	planner   Planner
	executor  *Executor
	iterator  *Iterator
	journal   RunJournal
	approvals governance.ApprovalStore
	metrics   *telemetry.RunMetrics
	tracer    trace.Tracer

	autonomous    bool
	previewMode   bool
	maxIterations int
	workingDir    string

	mu            sync.Mutex
	previewedPlan *core.Plan
	previewedGoal string
	previewedCtx  *core.ExecutionContext
}

// Option configures an Agent.
type Option func(*Agent) error

// New creates an agent. The planner and executor are required; the
// iterator may be nil, in which case failed steps are never retried.
func New(planner Planner, executor *Executor, iterator *Iterator, opts ...Option) (*Agent, error) {
	if planner == nil {
		return nil, NewInvalidInputError("planner is required")
	}
	if executor == nil {
		return nil, NewInvalidInputError("executor is required")
	}

	a := &Agent{
		planner:       planner,
		executor:      executor,
		iterator:      iterator,
		maxIterations: defaultMaxIterations,
		tracer:        otel.Tracer("praxis/agent"),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// WithAutonomous keeps the run going after a step fails instead of
// aborting on the first failure.
func WithAutonomous(v bool) Option {
	return func(a *Agent) error {
		a.autonomous = v
		return nil
	}
}

// WithPreviewMode makes Execute stop after planning. The plan is cached
// and executed later through ApplyPlan.
func WithPreviewMode(v bool) Option {
	return func(a *Agent) error {
		a.previewMode = v
		return nil
	}
}

// WithMaxIterations bounds how many steps a single run may execute.
func WithMaxIterations(n int) Option {
	return func(a *Agent) error {
		if n <= 0 {
			return NewInvalidInputError("max iterations must be positive")
		}
		a.maxIterations = n
		return nil
	}
}

// WithWorkingDir sets the directory file and command steps operate in.
func WithWorkingDir(dir string) Option {
	return func(a *Agent) error {
		a.workingDir = dir
		return nil
	}
}

// WithJournal records run lifecycle events to the given journal.
func WithJournal(j RunJournal) Option {
	return func(a *Agent) error {
		a.journal = j
		return nil
	}
}

// WithApprovalStore gates ApplyPlan on an approved, unexpired record for
// the plan digest.
func WithApprovalStore(s governance.ApprovalStore) Option {
	return func(a *Agent) error {
		a.approvals = s
		return nil
	}
}

// WithMetrics attaches run metrics.
func WithMetrics(m *telemetry.RunMetrics) Option {
	return func(a *Agent) error {
		a.metrics = m
		return nil
	}
}

// Execute plans the goal and, unless preview mode is on, runs the plan
// to completion. In preview mode the result carries the plan and state
// previewing; repeated calls with the same goal return the cached plan
// without planning again.
func (a *Agent) Execute(ctx context.Context, goal string) (*RunResult, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil, NewInvalidInputError("goal is empty")
	}

	ctx, runID := core.EnsureRunID(ctx)

	ctx, span := a.tracer.Start(ctx, "Agent.Execute", trace.WithAttributes(
		telemetry.RunAttributes(runID, goal, a.autonomous, 0, a.maxIterations)...,
	))
	defer span.End()
	log := slog.Default()
	log.Info("agent.run.start",
		slog.String("run_id", runID),
		slog.String("goal", goal),
		slog.Bool("autonomous", a.autonomous),
		slog.Bool("preview", a.previewMode),
	)

	if a.previewMode {
		a.mu.Lock()
		if a.previewedPlan != nil && a.previewedGoal == goal {
			plan, logs := a.previewedPlan, a.previewedCtx.Logs()
			a.mu.Unlock()
			log.Info("agent.plan.cached", slog.String("run_id", runID), slog.String("digest", plan.Digest()))
			return &RunResult{State: StatePreviewing, RunID: runID, Plan: plan, Logs: logs}, nil
		}
		a.mu.Unlock()
	}

	execCtx := core.NewExecutionContext(goal, a.workingDir)

	plan, err := a.planner.CreatePlan(ctx, goal, execCtx)
	if err != nil {
		a.metrics.RecordRun(ctx, string(StateFailed))
		a.metrics.RecordError(ctx, err, "agent")
		log.Error("agent.plan.error", slog.String("run_id", runID), slog.String("error", err.Error()))
		return &RunResult{State: StateFailed, RunID: runID, Logs: execCtx.Logs()}, WrapPlanningError(err, goal)
	}

	digest := plan.Digest()
	span.SetAttributes(telemetry.PlanAttributes(digest, len(plan.Steps), a.previewMode)...)
	log.Info("agent.plan.created",
		slog.String("run_id", runID),
		slog.String("digest", digest),
		slog.Int("steps", len(plan.Steps)),
	)
	a.journalRecord(ctx, JournalEntry{RunID: runID, Event: EventPlanCreated, Detail: digest})

	if a.previewMode {
		a.mu.Lock()
		a.previewedPlan = plan
		a.previewedGoal = goal
		a.previewedCtx = execCtx
		a.mu.Unlock()
		execCtx.Log(core.LogInfo, fmt.Sprintf("previewing plan with %d steps", len(plan.Steps)))
		return &RunResult{State: StatePreviewing, RunID: runID, Plan: plan, Logs: execCtx.Logs()}, nil
	}

	return a.run(ctx, runID, plan, execCtx)
}

// ApplyPlan executes a plan produced by a previous preview. When an
// approval store is configured the plan digest must have an approved,
// unexpired record or the run is refused.
func (a *Agent) ApplyPlan(ctx context.Context, plan *core.Plan) (*RunResult, error) {
	if plan == nil || len(plan.Steps) == 0 {
		return nil, NewInvalidInputError("plan has no steps")
	}

	ctx, runID := core.EnsureRunID(ctx)
	digest := plan.Digest()

	ctx, span := a.tracer.Start(ctx, "Agent.ApplyPlan", trace.WithAttributes(
		telemetry.PlanAttributes(digest, len(plan.Steps), false)...,
	))
	defer span.End()
	log := slog.Default()

	if a.approvals != nil {
		approved, err := a.approvedForDigest(ctx, digest)
		if err != nil {
			return nil, err
		}
		if !approved {
			log.Warn("agent.apply.unapproved", slog.String("run_id", runID), slog.String("digest", digest))
			return nil, NewApprovalRequiredError(digest)
		}
	}

	log.Info("agent.plan.applied", slog.String("run_id", runID), slog.String("digest", digest))
	a.journalRecord(ctx, JournalEntry{RunID: runID, Event: EventPlanApplied, Detail: digest})

	execCtx := a.takePreviewed(digest)
	if execCtx == nil {
		execCtx = core.NewExecutionContext("", a.workingDir)
	}

	return a.run(ctx, runID, plan, execCtx)
}

// takePreviewed claims the cached preview context when the digest
// matches the previewed plan. The cache is cleared on a match so a plan
// applies at most once against its preview context.
func (a *Agent) takePreviewed(digest string) *core.ExecutionContext {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.previewedPlan == nil || a.previewedPlan.Digest() != digest {
		return nil
	}
	execCtx := a.previewedCtx
	a.previewedPlan = nil
	a.previewedGoal = ""
	a.previewedCtx = nil
	return execCtx
}

func (a *Agent) approvedForDigest(ctx context.Context, digest string) (bool, error) {
	records, err := a.approvals.List(ctx, governance.ApprovalFilter{
		PlanDigest: digest,
		Status:     governance.ApprovalStatusApproved,
	})
	if err != nil {
		return false, errors.New(errors.CodeInternal, "list approvals", err)
	}
	now := time.Now()
	for _, rec := range records {
		if rec.ExpiresAt.IsZero() || rec.ExpiresAt.After(now) {
			return true, nil
		}
	}
	return false, nil
}

func (a *Agent) run(ctx context.Context, runID string, plan *core.Plan, execCtx *core.ExecutionContext) (*RunResult, error) {
	ctx, span := a.tracer.Start(ctx, "Agent.Run", trace.WithAttributes(
		telemetry.PlanAttributes(plan.Digest(), len(plan.Steps), false)...,
	))
	defer span.End()
	log := slog.Default()

	if a.iterator != nil {
		a.iterator.Reset()
	}

	var completed, failedIDs []string
	iterations := 0
	state := StateFailed

	defer func() {
		a.metrics.RecordRun(ctx, string(state))
		a.journalRecord(ctx, JournalEntry{RunID: runID, Event: EventRunFinished, Detail: string(state)})
		log.Info("agent.run.finish",
			slog.String("run_id", runID),
			slog.String("state", string(state)),
			slog.Int("completed", len(completed)),
			slog.Int("failed", len(failedIDs)),
		)
	}()

	result := func() *RunResult {
		return &RunResult{
			State:          state,
			RunID:          runID,
			CompletedSteps: completed,
			FailedSteps:    failedIDs,
			FilesModified:  execCtx.FilesModified(),
			Commands:       execCtx.CommandsRun(),
			Logs:           execCtx.Logs(),
		}
	}

	for i := range plan.Steps {
		step := &plan.Steps[i]

		if err := ctx.Err(); err != nil {
			execCtx.Log(core.LogError, fmt.Sprintf("run canceled before step %s", step.ID))
			return result(), NewCanceledError(err)
		}
		if iterations >= a.maxIterations {
			execCtx.Log(core.LogError, fmt.Sprintf("iteration limit %d reached", a.maxIterations))
			return result(), NewIterationLimitError(a.maxIterations)
		}
		iterations++

		execCtx.Log(core.LogInfo, fmt.Sprintf("executing step %d/%d: %s", i+1, len(plan.Steps), step.Description))
		log.Info("agent.step.start",
			slog.String("run_id", runID),
			slog.String("step_id", step.ID),
			slog.String("tool", step.ToolName),
		)
		a.journalRecord(ctx, JournalEntry{RunID: runID, Event: EventStepStarted, StepID: step.ID, Tool: step.ToolName})

		step.Status = core.StepStatusInProgress
		stepResult := a.executor.ExecuteStep(ctx, *step, execCtx)

		for !stepResult.Success && a.iterator != nil && a.iterator.CanRetry(step.ID) {
			log.Warn("agent.step.retry",
				slog.String("run_id", runID),
				slog.String("step_id", step.ID),
				slog.Int("attempt", a.iterator.Attempts(step.ID)+1),
			)
			a.journalRecord(ctx, JournalEntry{RunID: runID, Event: EventStepRetried, StepID: step.ID, Tool: step.ToolName, Detail: stepResult.Error})
			stepResult = a.iterator.RetryWithFix(ctx, *step, stepResult, execCtx, a.executor)
		}

		if stepResult.Success {
			step.Status = core.StepStatusCompleted
			completed = append(completed, step.ID)
			a.journalRecord(ctx, JournalEntry{RunID: runID, Event: EventStepCompleted, StepID: step.ID, Tool: step.ToolName})
			continue
		}

		step.Status = core.StepStatusFailed
		failedIDs = append(failedIDs, step.ID)
		attempts := 1
		if a.iterator != nil {
			attempts += a.iterator.Attempts(step.ID)
		}
		execCtx.Log(core.LogError, fmt.Sprintf("step %s failed after %d attempts: %s", step.ID, attempts, stepResult.Error))
		log.Error("agent.step.failed",
			slog.String("run_id", runID),
			slog.String("step_id", step.ID),
			slog.Int("attempts", attempts),
			slog.String("error", stepResult.Error),
		)
		a.journalRecord(ctx, JournalEntry{RunID: runID, Event: EventStepFailed, StepID: step.ID, Tool: step.ToolName, Detail: stepResult.Error})

		if !a.autonomous {
			execCtx.Log(core.LogError, fmt.Sprintf("aborting run: step %s failed", step.ID))
			return result(), NewStepFailedError(step.ID, stepResult.Error)
		}
		execCtx.Log(core.LogWarn, fmt.Sprintf("continuing after failed step %s", step.ID))
	}

	if len(failedIDs) == 0 {
		state = StateCompleted
	}
	return result(), nil
}

// journalRecord writes a journal entry, logging instead of failing the
// run when the journal is unavailable.
func (a *Agent) journalRecord(ctx context.Context, entry JournalEntry) {
	if a.journal == nil {
		return
	}
	if err := a.journal.Record(ctx, entry); err != nil {
		slog.Default().Warn("agent.journal.error",
			slog.String("run_id", entry.RunID),
			slog.String("event", entry.Event),
			slog.String("error", err.Error()),
		)
	}
}
