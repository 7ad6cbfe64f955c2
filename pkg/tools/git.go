package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jllopis/praxis/pkg/core"
	"github.com/jllopis/praxis/pkg/errors"
)

var gitOperations = map[string]bool{
	"status":   true,
	"add":      true,
	"commit":   true,
	"diff":     true,
	"checkout": true,
}

type gitParams struct {
	Operation string
	Paths     []string // add
	Message   string   // commit
	Branch    string   // checkout
	Create    bool     // checkout -b
}

// GitTool wraps the git binary for the repository at workDir. All
// invocations run through the same bounded-exec path as CommandTool, so a
// hung git process cannot stall a run indefinitely.
type GitTool struct {
	workDir string
	timeout time.Duration
}

// NewGitTool creates a GitTool for the repository at workDir.
func NewGitTool(workDir string) *GitTool {
	return &GitTool{
		workDir: workDir,
		timeout: DefaultCommandTimeout,
	}
}

// SetTimeout overrides the default per-invocation timeout.
func (t *GitTool) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		t.timeout = timeout
	}
}

func (t *GitTool) Name() string {
	return "git"
}

func (t *GitTool) Description() string {
	return "Runs version-control operations in the workspace repository. Operations: status, add (paths), commit (message), diff, checkout (branch, optionally created)."
}

func (t *GitTool) ParameterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operation": map[string]any{
				"type":        "string",
				"enum":        operationEnum(gitOperations),
				"description": "The git operation to perform",
			},
			"paths": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Paths to stage for the add operation",
			},
			"message": map[string]any{
				"type":        "string",
				"description": "Commit message for the commit operation",
			},
			"branch": map[string]any{
				"type":        "string",
				"description": "Branch name for the checkout operation",
			},
			"create": map[string]any{
				"type":        "boolean",
				"description": "Create the branch on checkout (git checkout -b)",
			},
		},
		"required": []string{"operation"},
	}
}

// ValidateParams checks the parameter map without invoking git.
func (t *GitTool) ValidateParams(params map[string]any) error {
	_, err := decodeGitParams(params)
	return err
}

func decodeGitParams(params map[string]any) (gitParams, error) {
	var p gitParams

	op, ok := stringParam(params, "operation")
	if !ok || op == "" {
		return p, errors.New(errors.CodeInvalidInput, "operation is required", nil)
	}
	if !gitOperations[op] {
		return p, errors.New(errors.CodeInvalidInput,
			fmt.Sprintf("unknown operation %q, expected one of %s", op, strings.Join(operationEnum(gitOperations), ", ")), nil)
	}
	p.Operation = op

	switch op {
	case "add":
		paths, ok := stringSliceParam(params, "paths")
		if !ok || len(paths) == 0 {
			return p, errors.New(errors.CodeInvalidInput, "paths is required for add", nil)
		}
		p.Paths = paths
	case "commit":
		msg, ok := stringParam(params, "message")
		if !ok || strings.TrimSpace(msg) == "" {
			return p, errors.New(errors.CodeInvalidInput, "message is required for commit", nil)
		}
		p.Message = msg
	case "checkout":
		branch, ok := stringParam(params, "branch")
		if !ok || branch == "" {
			return p, errors.New(errors.CodeInvalidInput, "branch is required for checkout", nil)
		}
		p.Branch = branch
		p.Create = boolParam(params, "create", false)
	}

	return p, nil
}

func (t *GitTool) Execute(ctx context.Context, params map[string]any) core.ExecutionResult {
	p, err := decodeGitParams(params)
	if err != nil {
		return invalidParams(err)
	}

	switch p.Operation {
	case "status":
		return t.run(ctx, nil, "status", "--porcelain")
	case "add":
		args := append([]string{"add", "--"}, p.Paths...)
		return t.run(ctx, normalizePaths(p.Paths), args...)
	case "commit":
		return t.commit(ctx, p.Message)
	case "diff":
		return t.run(ctx, nil, "diff")
	case "checkout":
		if p.Create {
			return t.run(ctx, nil, "checkout", "-b", p.Branch)
		}
		return t.run(ctx, nil, "checkout", p.Branch)
	}
	return core.Failuref("unknown operation %q", p.Operation)
}

// commit reads the staged set before committing so filesModified reflects
// what the commit actually contained.
func (t *GitTool) commit(ctx context.Context, message string) core.ExecutionResult {
	staged := t.stagedFiles(ctx)
	return t.run(ctx, staged, "commit", "-m", message)
}

// stagedFiles lists the paths currently staged for commit. Best effort: an
// error here only degrades filesModified reporting.
func (t *GitTool) stagedFiles(ctx context.Context) []string {
	outcome := runBounded(ctx, t.workDir, t.timeout, "git", "diff", "--name-only", "--cached")
	if outcome.err != nil || outcome.timedOut || outcome.exitCode != 0 {
		return nil
	}
	var files []string
	for _, line := range strings.Split(outcome.stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files
}

func (t *GitTool) run(ctx context.Context, filesModified []string, args ...string) core.ExecutionResult {
	outcome := runBounded(ctx, t.workDir, t.timeout, "git", args...)
	command := "git " + strings.Join(args, " ")

	metadata := map[string]any{core.MetaCommand: command}
	if len(filesModified) > 0 {
		metadata[core.MetaFilesModified] = filesModified
	}

	if outcome.err != nil {
		return core.Failuref("git invocation failed: %v", outcome.err).WithMetadata(map[string]any{core.MetaCommand: command})
	}
	if outcome.timedOut {
		return core.Failuref("git timed out after %v", t.timeout).WithMetadata(map[string]any{core.MetaCommand: command})
	}

	output := combineOutput(outcome.stdout, outcome.stderr, DefaultMaxOutputBytes)
	if outcome.exitCode != 0 {
		return core.ExecutionResult{
			Success:  false,
			Output:   output,
			Error:    fmt.Sprintf("git exited with code %d", outcome.exitCode),
			Metadata: map[string]any{core.MetaCommand: command},
		}
	}

	return core.ExecutionResult{
		Success:  true,
		Output:   output,
		Metadata: metadata,
	}
}

// normalizePaths cleans path separators for consistent filesModified
// reporting alongside FileTool.
func normalizePaths(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = strings.TrimPrefix(strings.ReplaceAll(p, "\\", "/"), "./")
	}
	return out
}
