// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jllopis/praxis/pkg/core"
	"github.com/jllopis/praxis/pkg/governance"
	"github.com/jllopis/praxis/pkg/telemetry"
	"github.com/jllopis/praxis/pkg/tools"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Executor dispatches plan steps to registered tools. Every failure mode is
// reported through the ExecutionResult so the run loop has a single error
// surface; ExecuteStep never returns a Go error and never panics.
type Executor struct {
	registry *tools.Registry
	policy   governance.PolicyEngine
	approval governance.ApprovalHook
	metrics  *telemetry.RunMetrics
	tracer   trace.Tracer
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an executor over the given tool registry.
func NewExecutor(registry *tools.Registry, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry: registry,
		tracer:   otel.Tracer("praxis/agent"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithPolicy attaches a policy engine consulted before every dispatch.
func WithPolicy(engine governance.PolicyEngine) ExecutorOption {
	return func(e *Executor) {
		e.policy = engine
	}
}

// WithApprovalHook attaches the hook that resolves pending policy decisions.
// Without a hook, a pending decision fails the step.
func WithApprovalHook(hook governance.ApprovalHook) ExecutorOption {
	return func(e *Executor) {
		e.approval = hook
	}
}

// WithExecutorMetrics attaches run metrics.
func WithExecutorMetrics(m *telemetry.RunMetrics) ExecutorOption {
	return func(e *Executor) {
		e.metrics = m
	}
}

// ExecuteStep runs one step against its tool. The execution context collects
// log entries, modified files, and executed commands as side effects.
func (e *Executor) ExecuteStep(ctx context.Context, step core.Step, execCtx *core.ExecutionContext) core.ExecutionResult {
	ctx, span := e.tracer.Start(ctx, "Executor.ExecuteStep", trace.WithAttributes(
		telemetry.StepAttributes(step.ID, step.ToolName, string(step.Status), 0)...,
	))
	defer span.End()
	log := slog.Default()
	runID, _ := core.RunID(ctx)

	tool, ok := e.registry.Get(step.ToolName)
	if !ok {
		execCtx.Log(core.LogError, fmt.Sprintf("step %s: tool %q is not registered", step.ID, step.ToolName))
		log.Warn("executor.tool.missing",
			slog.String("run_id", runID),
			slog.String("step_id", step.ID),
			slog.String("tool", step.ToolName),
		)
		e.metrics.RecordStep(ctx, step.ToolName, false, 0)
		return core.Failuref("tool %q is not registered", step.ToolName)
	}

	if e.policy != nil {
		action := actionForStep(step)
		decision := e.policy.Evaluate(ctx, action)
		span.SetAttributes(telemetry.PolicyAttributes(string(decision.Status), decision.RuleID)...)
		switch {
		case decision.IsDenied():
			reason := decision.Reason
			if reason == "" {
				reason = "denied by policy"
			}
			execCtx.Log(core.LogError, fmt.Sprintf("step %s: policy denied: %s", step.ID, reason))
			log.Warn("executor.policy.denied",
				slog.String("run_id", runID),
				slog.String("step_id", step.ID),
				slog.String("tool", step.ToolName),
				slog.String("rule_id", decision.RuleID),
				slog.String("reason", reason),
			)
			e.metrics.RecordStep(ctx, step.ToolName, false, 0)
			return core.Failuref("policy denied: %s", reason)
		case decision.IsPending():
			result, approved := e.resolveApproval(ctx, log, step, action, decision, execCtx)
			if !approved {
				e.metrics.RecordStep(ctx, step.ToolName, false, 0)
				return result
			}
		}
	}

	start := time.Now()
	result := runTool(ctx, tool, step.Params)
	durationMs := time.Since(start).Seconds() * 1000

	span.SetAttributes(telemetry.ToolCallAttributes(step.ToolName, "local", durationMs, result.Success)...)
	span.SetAttributes(telemetry.ToolParamsOutput(fmt.Sprint(step.Params), result.Output, 500)...)
	e.metrics.RecordStep(ctx, step.ToolName, result.Success, durationMs)

	for _, path := range result.FilesModified() {
		execCtx.AddFileModified(path)
	}
	if command, ok := result.Command(); ok {
		execCtx.RecordCommand(command)
	}

	if !result.Success {
		execCtx.Log(core.LogError, fmt.Sprintf("step %s (%s) failed: %s", step.ID, step.ToolName, result.Error))
		log.Error("executor.tool.error",
			slog.String("run_id", runID),
			slog.String("step_id", step.ID),
			slog.String("tool", step.ToolName),
			slog.String("error", result.Error),
		)
		return result
	}

	execCtx.Log(core.LogInfo, fmt.Sprintf("step %s (%s) completed", step.ID, step.ToolName))
	log.Info("executor.tool.complete",
		slog.String("run_id", runID),
		slog.String("step_id", step.ID),
		slog.String("tool", step.ToolName),
	)
	return result
}

// resolveApproval asks the approval hook to settle a pending decision. The
// second return value reports whether execution may proceed.
func (e *Executor) resolveApproval(ctx context.Context, log *slog.Logger, step core.Step, action governance.Action, decision governance.Decision, execCtx *core.ExecutionContext) (core.ExecutionResult, bool) {
	runID, _ := core.RunID(ctx)
	if e.approval == nil {
		execCtx.Log(core.LogError, fmt.Sprintf("step %s: approval required but no approval hook is configured", step.ID))
		log.Warn("executor.approval.unresolved",
			slog.String("run_id", runID),
			slog.String("step_id", step.ID),
			slog.String("tool", step.ToolName),
		)
		return core.Failuref("approval required: %s", decision.Reason), false
	}

	hookDecision, err := e.approval.RequestApproval(ctx, governance.ApprovalRequest{
		Action:  action,
		Reason:  decision.Reason,
		Summary: step.Description,
	})
	if err != nil {
		execCtx.Log(core.LogError, fmt.Sprintf("step %s: approval request failed: %v", step.ID, err))
		log.Error("executor.approval.error",
			slog.String("run_id", runID),
			slog.String("step_id", step.ID),
			slog.String("error", err.Error()),
		)
		return core.Failuref("approval request failed: %v", err), false
	}
	if !hookDecision.IsAllowed() {
		execCtx.Log(core.LogError, fmt.Sprintf("step %s: approval rejected: %s", step.ID, hookDecision.Reason))
		log.Warn("executor.approval.rejected",
			slog.String("run_id", runID),
			slog.String("step_id", step.ID),
			slog.String("tool", step.ToolName),
			slog.String("reason", hookDecision.Reason),
		)
		return core.Failuref("approval rejected: %s", hookDecision.Reason), false
	}

	execCtx.Log(core.LogInfo, fmt.Sprintf("step %s: approved: %s", step.ID, hookDecision.Reason))
	log.Info("executor.approval.granted",
		slog.String("run_id", runID),
		slog.String("step_id", step.ID),
		slog.String("tool", step.ToolName),
	)
	return core.ExecutionResult{}, true
}

// runTool isolates tool panics so a buggy tool fails its step instead of
// tearing down the run.
func runTool(ctx context.Context, tool core.Tool, params map[string]any) (result core.ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			result = core.Failuref("tool panicked: %v", r)
		}
	}()
	return tool.Execute(ctx, params)
}

// actionForStep projects a step onto the policy action space. Operation and
// path come from the step params when present, so rules can target
// "file:write" or path prefixes.
func actionForStep(step core.Step) governance.Action {
	action := governance.Action{Tool: step.ToolName}
	if op, ok := step.Params["operation"].(string); ok {
		action.Operation = op
	}
	if path, ok := step.Params["path"].(string); ok {
		action.Path = path
	}
	return action
}
