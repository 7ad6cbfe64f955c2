// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/jllopis/praxis/pkg/core"
	"github.com/jllopis/praxis/pkg/governance"
	"github.com/jllopis/praxis/pkg/tools"
)

// fakeTool is a scriptable core.Tool shared by the executor, iterator, and
// agent tests. The zero behavior succeeds; tests override execute or
// validate to steer failures.
type fakeTool struct {
	name       string
	execute    func(ctx context.Context, params map[string]any) core.ExecutionResult
	validate   func(params map[string]any) error
	calls      int
	lastParams map[string]any
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "fake " + f.name + " tool" }

func (f *fakeTool) ParameterSchema() map[string]any {
	return map[string]any{"type": "object"}
}

func (f *fakeTool) Execute(ctx context.Context, params map[string]any) core.ExecutionResult {
	f.calls++
	f.lastParams = params
	if f.execute != nil {
		return f.execute(ctx, params)
	}
	return core.Successf("%s ok", f.name)
}

func (f *fakeTool) ValidateParams(params map[string]any) error {
	if f.validate != nil {
		return f.validate(params)
	}
	return nil
}

func testStep(id, tool string, params map[string]any) core.Step {
	return core.Step{ID: id, Description: "test " + id, ToolName: tool, Params: params, Status: core.StepStatusPending}
}

func TestExecutorRunsTool(t *testing.T) {
	ft := &fakeTool{name: "file", execute: func(_ context.Context, params map[string]any) core.ExecutionResult {
		return core.Successf("wrote %v", params["path"]).WithMetadata(map[string]any{
			core.MetaFilesModified: []string{"LICENSE"},
		})
	}}
	exec := NewExecutor(tools.NewRegistry(ft))
	execCtx := core.NewExecutionContext("add a license", t.TempDir())

	result := exec.ExecuteStep(context.Background(), testStep("step-1", "file", map[string]any{"path": "LICENSE"}), execCtx)
	if !result.Success {
		t.Fatalf("expected success, got %s", result.Error)
	}
	if ft.calls != 1 {
		t.Fatalf("expected 1 tool call, got %d", ft.calls)
	}
	files := execCtx.FilesModified()
	if len(files) != 1 || files[0] != "LICENSE" {
		t.Fatalf("unexpected files modified: %v", files)
	}
	logs := execCtx.Logs()
	if len(logs) == 0 || !strings.Contains(logs[len(logs)-1].Message, "completed") {
		t.Fatalf("expected completion log, got %+v", logs)
	}
}

func TestExecutorMissingTool(t *testing.T) {
	exec := NewExecutor(tools.NewRegistry())
	execCtx := core.NewExecutionContext("goal", "")

	result := exec.ExecuteStep(context.Background(), testStep("step-1", "ghost", nil), execCtx)
	if result.Success {
		t.Fatalf("expected failure for unregistered tool")
	}
	if !strings.Contains(result.Error, "not registered") {
		t.Fatalf("unexpected error: %s", result.Error)
	}
}

func TestExecutorPolicyDeny(t *testing.T) {
	ft := &fakeTool{name: "git"}
	engine := governance.NewRuleSet([]governance.Rule{
		{ID: "no-push", Effect: "deny", Target: "git:push", Reason: "pushes are blocked"},
	})
	exec := NewExecutor(tools.NewRegistry(ft), WithPolicy(engine))
	execCtx := core.NewExecutionContext("goal", "")

	result := exec.ExecuteStep(context.Background(), testStep("step-1", "git", map[string]any{"operation": "push"}), execCtx)
	if result.Success {
		t.Fatalf("expected policy denial")
	}
	if !strings.Contains(result.Error, "pushes are blocked") {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if ft.calls != 0 {
		t.Fatalf("tool must not run on denial, got %d calls", ft.calls)
	}
}

func TestExecutorPendingWithoutHook(t *testing.T) {
	ft := &fakeTool{name: "command"}
	engine := governance.NewRuleSet([]governance.Rule{
		{ID: "gate-commands", Effect: "require-approval", Target: "command", Reason: "shell execution"},
	})
	exec := NewExecutor(tools.NewRegistry(ft), WithPolicy(engine))
	execCtx := core.NewExecutionContext("goal", "")

	result := exec.ExecuteStep(context.Background(), testStep("step-1", "command", map[string]any{"command": "ls"}), execCtx)
	if result.Success {
		t.Fatalf("expected failure without approval hook")
	}
	if !strings.Contains(result.Error, "approval required") {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if ft.calls != 0 {
		t.Fatalf("tool must not run, got %d calls", ft.calls)
	}
}

func TestExecutorPendingApproved(t *testing.T) {
	ft := &fakeTool{name: "command"}
	engine := governance.NewRuleSet([]governance.Rule{
		{ID: "gate-commands", Effect: "require-approval", Target: "command"},
	})
	hook := &governance.StaticApprovalHook{Decision: governance.Decision{
		Allowed: true,
		Status:  governance.DecisionStatusAllow,
		Reason:  "auto approved",
	}}
	exec := NewExecutor(tools.NewRegistry(ft), WithPolicy(engine), WithApprovalHook(hook))
	execCtx := core.NewExecutionContext("goal", "")

	result := exec.ExecuteStep(context.Background(), testStep("step-1", "command", map[string]any{"command": "ls"}), execCtx)
	if !result.Success {
		t.Fatalf("expected success after approval, got %s", result.Error)
	}
	if ft.calls != 1 {
		t.Fatalf("expected 1 tool call, got %d", ft.calls)
	}
	var approvedLog bool
	for _, entry := range execCtx.Logs() {
		if strings.Contains(entry.Message, "approved") {
			approvedLog = true
		}
	}
	if !approvedLog {
		t.Fatalf("expected approval log, got %+v", execCtx.Logs())
	}
}

func TestExecutorPendingRejected(t *testing.T) {
	ft := &fakeTool{name: "command"}
	engine := governance.NewRuleSet([]governance.Rule{
		{ID: "gate-commands", Effect: "require-approval", Target: "command"},
	})
	hook := &governance.StaticApprovalHook{Decision: governance.Decision{
		Status: governance.DecisionStatusDeny,
		Reason: "operator said no",
	}}
	exec := NewExecutor(tools.NewRegistry(ft), WithPolicy(engine), WithApprovalHook(hook))
	execCtx := core.NewExecutionContext("goal", "")

	result := exec.ExecuteStep(context.Background(), testStep("step-1", "command", map[string]any{"command": "rm -rf /"}), execCtx)
	if result.Success {
		t.Fatalf("expected rejection")
	}
	if !strings.Contains(result.Error, "operator said no") {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if ft.calls != 0 {
		t.Fatalf("tool must not run, got %d calls", ft.calls)
	}
}

func TestExecutorRecoversToolPanic(t *testing.T) {
	ft := &fakeTool{name: "file", execute: func(_ context.Context, _ map[string]any) core.ExecutionResult {
		panic("boom")
	}}
	exec := NewExecutor(tools.NewRegistry(ft))
	execCtx := core.NewExecutionContext("goal", "")

	result := exec.ExecuteStep(context.Background(), testStep("step-1", "file", nil), execCtx)
	if result.Success {
		t.Fatalf("expected failure from panic")
	}
	if !strings.Contains(result.Error, "tool panicked: boom") {
		t.Fatalf("unexpected error: %s", result.Error)
	}
}

func TestExecutorRecordsCommands(t *testing.T) {
	ft := &fakeTool{name: "command", execute: func(_ context.Context, params map[string]any) core.ExecutionResult {
		cmd, _ := params["command"].(string)
		return core.Successf("ran %s", cmd).WithMetadata(map[string]any{core.MetaCommand: cmd})
	}}
	exec := NewExecutor(tools.NewRegistry(ft))
	execCtx := core.NewExecutionContext("goal", "")

	result := exec.ExecuteStep(context.Background(), testStep("step-1", "command", map[string]any{"command": "go test ./..."}), execCtx)
	if !result.Success {
		t.Fatalf("expected success, got %s", result.Error)
	}
	commands := execCtx.CommandsRun()
	if len(commands) != 1 || commands[0].Command != "go test ./..." {
		t.Fatalf("unexpected commands: %+v", commands)
	}
}

func TestExecutorFailureMergesSideEffects(t *testing.T) {
	ft := &fakeTool{name: "command", execute: func(_ context.Context, _ map[string]any) core.ExecutionResult {
		return core.Failuref("exit status 1").WithMetadata(map[string]any{core.MetaCommand: "make build"})
	}}
	exec := NewExecutor(tools.NewRegistry(ft))
	execCtx := core.NewExecutionContext("goal", "")

	result := exec.ExecuteStep(context.Background(), testStep("step-1", "command", nil), execCtx)
	if result.Success {
		t.Fatalf("expected failure")
	}
	commands := execCtx.CommandsRun()
	if len(commands) != 1 || commands[0].Command != "make build" {
		t.Fatalf("failed commands must still be audited, got %+v", commands)
	}
}
