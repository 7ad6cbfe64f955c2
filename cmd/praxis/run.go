// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/jllopis/praxis/pkg/agent"
	"github.com/jllopis/praxis/pkg/config"
	"github.com/jllopis/praxis/pkg/core"
	"github.com/jllopis/praxis/pkg/governance"
	"github.com/jllopis/praxis/pkg/runtime"
	"github.com/jllopis/praxis/pkg/task"
)

func runRun(ctx context.Context, global globalFlags, args []string) {
	cmd := flag.NewFlagSet("run", flag.ContinueOnError)
	preview := cmd.Bool("preview", false, "plan only; park the task pending approval")
	applyID := cmd.String("apply", "", "task id of a previewed plan to execute")
	autonomous := cmd.Bool("autonomous", false, "keep executing past step failures")
	approvalMode := cmd.String("approval-mode", "auto", "policy-gated step handling: auto, ask, approve, deny, off")
	approvalTimeout := cmd.Duration("approval-timeout", 2*time.Minute, "wait limit for an interactive approval")
	workspaceDir := cmd.String("workspace", "", "workspace directory override")
	noTelemetry := cmd.Bool("no-telemetry", false, "disable trace and metric export")
	if err := cmd.Parse(args); err != nil {
		fatal(err)
	}

	goal := strings.TrimSpace(strings.Join(cmd.Args(), " "))
	if *applyID == "" && goal == "" {
		fatal(NewInvalidArgumentError("run", "a goal is required; usage: praxis run <goal...>"))
	}
	if *applyID != "" && goal != "" {
		fatal(NewInvalidArgumentError("run", "--apply takes a task id, not a goal"))
	}
	if *applyID != "" && *preview {
		fatal(NewInvalidArgumentError("run", "--preview and --apply are mutually exclusive"))
	}

	cfg, err := loadConfig(global)
	if err != nil {
		exitError(global.JSON, WrapConfigError(err))
	}
	if *workspaceDir != "" {
		cfg.Tools.Workspace = *workspaceDir
	}

	// JSON output keeps stdout machine-readable, so the stdout trace
	// exporter is suppressed alongside --no-telemetry.
	rt, err := newRuntime(cfg, !*noTelemetry && !global.JSON)
	if err != nil {
		exitError(global.JSON, WrapRuntimeError(err))
	}
	if err := rt.Start(ctx); err != nil {
		exitError(global.JSON, WrapRuntimeError(err))
	}
	defer func() {
		// The signal context may already be canceled; shutdown gets its own.
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = rt.Stop(stopCtx)
	}()

	opts := []runtime.RunOption{}
	if *preview {
		opts = append(opts, runtime.WithPreview())
	}
	if flagProvided(cmd, "autonomous") {
		opts = append(opts, runtime.WithAutonomous(*autonomous))
	}
	if hook := buildApprovalHook(cfg, *approvalMode, *approvalTimeout, global.JSON); hook != nil {
		opts = append(opts, runtime.WithApprovalHook(hook))
	}

	runCtx, cancel := context.WithTimeout(ctx, global.Timeout)
	defer cancel()

	var rec *task.Record
	var runErr error
	if *applyID != "" {
		resolvePendingApproval(runCtx, rt, *applyID, *approvalMode, *approvalTimeout, global.JSON)
		rec, runErr = rt.Apply(runCtx, *applyID, opts...)
	} else {
		rec, runErr = rt.Submit(runCtx, goal, opts...)
	}

	if rec != nil {
		printTaskOutcome(runCtx, rt, global, rec)
	}
	if runErr != nil {
		exitError(global.JSON, WrapRunError(runErr))
	}
	if rec != nil && rec.Status == task.StatusFailed {
		os.Exit(1)
	}
}

// buildApprovalHook resolves the --approval-mode flag into a hook for
// policy decisions that require a human. auto asks on a TTY and denies
// otherwise, and skips the hook entirely when no configured rule can
// produce a pending decision.
func buildApprovalHook(cfg *config.Config, mode string, timeout time.Duration, jsonOutput bool) governance.ApprovalHook {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = "auto"
	}
	if mode == "off" || mode == "disabled" || mode == "none" {
		return nil
	}
	if mode == "auto" && !policyRequiresApproval(cfg) {
		return nil
	}

	isTTY := isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
	if jsonOutput {
		isTTY = false
	}

	if mode == "auto" {
		if isTTY {
			mode = "ask"
		} else {
			mode = "deny"
		}
	}
	if mode == "ask" && !isTTY {
		fmt.Fprintln(os.Stderr, "Approval mode 'ask' requires a TTY; falling back to deny.")
		mode = "deny"
	}

	switch mode {
	case "ask":
		opts := []governance.ConsoleApprovalOption{}
		if timeout > 0 {
			opts = append(opts, governance.WithApprovalTimeout(timeout))
		}
		return governance.NewConsoleApprovalHook(opts...)
	case "approve":
		return governance.StaticApprovalHook{
			Decision: governance.Decision{
				Allowed: true,
				Status:  governance.DecisionStatusAllow,
				Reason:  "auto-approved",
			},
		}
	case "deny":
		return governance.StaticApprovalHook{
			Decision: governance.Decision{
				Allowed: false,
				Status:  governance.DecisionStatusDeny,
				Reason:  "auto-denied",
			},
		}
	default:
		return nil
	}
}

// policyRequiresApproval reports whether any configured rule can yield a
// pending decision. A policy that fails to load counts as gating; the
// runtime surfaces the load error itself.
func policyRequiresApproval(cfg *config.Config) bool {
	if !cfg.Governance.Enabled || strings.TrimSpace(cfg.Governance.PolicyPath) == "" {
		return false
	}
	rs, err := governance.LoadRuleSet(cfg.Governance.PolicyPath)
	if err != nil {
		return true
	}
	for _, rule := range rs.Rules {
		switch strings.ToLower(strings.TrimSpace(rule.Effect)) {
		case "require-approval", "pending":
			return true
		}
	}
	return false
}

// resolvePendingApproval settles the task's pending plan approval before an
// apply. approve mode approves outright; interactive modes show the plan
// summary and prompt. A declined or denied prompt leaves the record pending
// so the apply is refused rather than the approval destroyed.
func resolvePendingApproval(ctx context.Context, rt *runtime.LocalRuntime, taskID, mode string, timeout time.Duration, jsonOutput bool) {
	store := rt.Approvals()
	if store == nil {
		return
	}
	pending, err := store.List(ctx, governance.ApprovalFilter{
		TaskID: taskID,
		Status: governance.ApprovalStatusPending,
	})
	if err != nil || len(pending) == 0 {
		return
	}

	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = "auto"
	}
	isTTY := isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
	if jsonOutput {
		isTTY = false
	}

	for _, rec := range pending {
		switch {
		case mode == "approve":
			_, _ = store.UpdateStatus(ctx, rec.ID, governance.ApprovalStatusApproved, "approved by --approval-mode=approve")
		case (mode == "ask" || mode == "auto") && isTTY:
			fmt.Printf("Approval %s is pending for plan %s.\n", rec.ID, shortDigest(rec.PlanDigest))
			if rec.Summary != "" {
				fmt.Println(indentLines(rec.Summary, "  "))
			}
			hook := governance.NewConsoleApprovalHook(
				governance.WithApprovalPrompt("Approve this plan? [y/N]: "),
				governance.WithApprovalTimeout(timeout),
			)
			decision, err := hook.RequestApproval(ctx, governance.ApprovalRequest{
				PlanDigest: rec.PlanDigest,
				Reason:     rec.Reason,
				Summary:    rec.Summary,
			})
			if err == nil && decision.IsAllowed() {
				_, _ = store.UpdateStatus(ctx, rec.ID, governance.ApprovalStatusApproved, "approved at the console")
			}
		}
	}
}

func printTaskOutcome(ctx context.Context, rt *runtime.LocalRuntime, global globalFlags, rec *task.Record) {
	if global.JSON {
		printJSON(rec)
		return
	}

	fmt.Printf("Task %s: %s\n", rec.ID, rec.Status)
	if rec.Goal != "" {
		fmt.Printf("Goal: %s\n", truncateMessage(rec.Goal, 120))
	}

	switch {
	case rec.Status == task.StatusPending && rec.Plan != nil:
		printPlan(rec.Plan)
		if id := pendingApprovalID(ctx, rt, rec.ID); id != "" {
			fmt.Printf("\nApproval %s is pending. Approve and apply with:\n", id)
			fmt.Printf("  praxis approvals approve %s\n", id)
			fmt.Printf("  praxis run --apply %s\n", rec.ID)
		} else {
			fmt.Printf("\nApply with: praxis run --apply %s\n", rec.ID)
		}
	case rec.Result != nil:
		printRunResult(rec.Result)
	}
	if rec.Error != "" {
		fmt.Printf("Error: %s\n", rec.Error)
	}
}

func printPlan(plan *core.Plan) {
	fmt.Printf("\nPlan (%d steps, digest %s):\n", len(plan.Steps), shortDigest(plan.Digest()))
	if plan.Reasoning != "" {
		fmt.Printf("Reasoning: %s\n", truncateMessage(plan.Reasoning, 200))
	}
	for i, step := range plan.Steps {
		desc := step.Description
		if desc == "" {
			desc = step.ToolName
		}
		fmt.Printf("  %2d. [%s] %s\n", i+1, step.ToolName, truncateMessage(desc, 100))
		if len(step.Dependencies) > 0 {
			fmt.Printf("      after: %s\n", strings.Join(step.Dependencies, ", "))
		}
	}
}

func printRunResult(result *agent.RunResult) {
	fmt.Printf("Steps: %d completed, %d failed\n", len(result.CompletedSteps), len(result.FailedSteps))
	if len(result.FailedSteps) > 0 {
		fmt.Printf("Failed: %s\n", strings.Join(result.FailedSteps, ", "))
	}
	if len(result.FilesModified) > 0 {
		fmt.Println("Files modified:")
		for _, path := range result.FilesModified {
			fmt.Printf("  %s\n", path)
		}
	}
	if len(result.Commands) > 0 {
		fmt.Println("Commands run:")
		for _, record := range result.Commands {
			fmt.Printf("  %s\n", truncateMessage(record.Command, 120))
		}
	}
	for _, entry := range result.Logs {
		if entry.Level == "error" || entry.Level == "warn" {
			fmt.Printf("  [%s] %s\n", entry.Level, entry.Message)
		}
	}
}

func pendingApprovalID(ctx context.Context, rt *runtime.LocalRuntime, taskID string) string {
	store := rt.Approvals()
	if store == nil {
		return ""
	}
	records, err := store.List(ctx, governance.ApprovalFilter{
		TaskID: taskID,
		Status: governance.ApprovalStatusPending,
		Limit:  1,
	})
	if err != nil || len(records) == 0 {
		return ""
	}
	return records[0].ID
}

func flagProvided(cmd *flag.FlagSet, name string) bool {
	provided := false
	cmd.Visit(func(f *flag.Flag) {
		if f.Name == name {
			provided = true
		}
	})
	return provided
}

func shortDigest(digest string) string {
	if len(digest) <= 12 {
		return digest
	}
	return digest[:12]
}

func indentLines(value, prefix string) string {
	lines := strings.Split(strings.TrimRight(value, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
