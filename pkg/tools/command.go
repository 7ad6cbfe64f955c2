// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jllopis/praxis/pkg/core"
	"github.com/jllopis/praxis/pkg/errors"
)

type commandParams struct {
	Command string
	Timeout time.Duration // zero means use the tool default
}

// CommandTool runs shell commands with a bounded wall-clock timeout. A
// timed-out command's whole process group is killed, so background children
// cannot outlive the step.
type CommandTool struct {
	workDir   string
	timeout   time.Duration
	allowlist []string // first-token allowlist; empty allows everything
	maxOutput int
}

// NewCommandTool creates a CommandTool running commands under workDir.
func NewCommandTool(workDir string) *CommandTool {
	return &CommandTool{
		workDir:   workDir,
		timeout:   DefaultCommandTimeout,
		maxOutput: DefaultMaxOutputBytes,
	}
}

// SetTimeout overrides the default per-command timeout.
func (t *CommandTool) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		t.timeout = timeout
	}
}

// SetAllowlist restricts commands to programs in the list. The check is on
// the first whitespace-separated token.
func (t *CommandTool) SetAllowlist(programs []string) {
	t.allowlist = programs
}

// SetMaxOutputBytes overrides the combined-output truncation threshold.
func (t *CommandTool) SetMaxOutputBytes(n int) {
	if n > 0 {
		t.maxOutput = n
	}
}

func (t *CommandTool) Name() string {
	return "command"
}

func (t *CommandTool) Description() string {
	return "Executes a shell command and returns combined stdout/stderr. Commands run under the workspace with a bounded timeout; oversized output is truncated keeping head and tail."
}

func (t *CommandTool) ParameterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "The shell command to execute",
			},
			"timeout_seconds": map[string]any{
				"type":        "integer",
				"description": "Optional wall-clock timeout override in seconds",
			},
		},
		"required": []string{"command"},
	}
}

// ValidateParams checks the parameter map, including the allowlist, without
// spawning a process.
func (t *CommandTool) ValidateParams(params map[string]any) error {
	_, err := t.decodeParams(params)
	return err
}

func (t *CommandTool) decodeParams(params map[string]any) (commandParams, error) {
	var p commandParams

	command, ok := stringParam(params, "command")
	if !ok || strings.TrimSpace(command) == "" {
		return p, errors.New(errors.CodeInvalidInput, "command is required", nil)
	}
	p.Command = command

	if secs, ok := intParam(params, "timeout_seconds"); ok {
		if secs <= 0 {
			return p, errors.New(errors.CodeInvalidInput, "timeout_seconds must be positive", nil)
		}
		p.Timeout = time.Duration(secs) * time.Second
	}

	if err := t.checkAllowlist(command); err != nil {
		return p, err
	}
	return p, nil
}

func (t *CommandTool) checkAllowlist(command string) error {
	if len(t.allowlist) == 0 {
		return nil
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return errors.New(errors.CodeInvalidInput, "command is empty", nil)
	}
	program := fields[0]
	for _, allowed := range t.allowlist {
		if program == allowed {
			return nil
		}
	}
	return errors.New(errors.CodeInvalidInput,
		fmt.Sprintf("command %q is not in the allowlist", program), nil)
}

func (t *CommandTool) Execute(ctx context.Context, params map[string]any) core.ExecutionResult {
	p, err := t.decodeParams(params)
	if err != nil {
		return invalidParams(err)
	}

	timeout := p.Timeout
	if timeout == 0 {
		timeout = t.timeout
	}

	outcome := runBounded(ctx, t.workDir, timeout, "bash", "-c", p.Command)
	metadata := map[string]any{core.MetaCommand: p.Command}

	if outcome.err != nil {
		return core.Failuref("command failed: %v", outcome.err).WithMetadata(metadata)
	}
	if outcome.timedOut {
		return core.Failuref("command timed out after %v", timeout).WithMetadata(metadata)
	}

	output := combineOutput(outcome.stdout, outcome.stderr, t.maxOutput)
	if outcome.exitCode != 0 {
		return core.ExecutionResult{
			Success:  false,
			Output:   output,
			Error:    fmt.Sprintf("command exited with code %d", outcome.exitCode),
			Metadata: metadata,
		}
	}

	return core.ExecutionResult{
		Success:  true,
		Output:   output,
		Metadata: metadata,
	}
}
