// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jllopis/praxis/pkg/core"
	"github.com/jllopis/praxis/pkg/errors"
)

var fileOperations = map[string]bool{
	"write":  true,
	"read":   true,
	"append": true,
	"delete": true,
	"mkdir":  true,
}

type fileParams struct {
	Operation string
	Path      string
	Content   string
}

// FileTool reads and mutates files under a fixed workspace directory. Paths
// that resolve outside the workspace are rejected before any side effect.
type FileTool struct {
	workspace string
}

// NewFileTool creates a FileTool rooted at workspace.
func NewFileTool(workspace string) *FileTool {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		abs = filepath.Clean(workspace)
	}
	return &FileTool{workspace: abs}
}

func (t *FileTool) Name() string {
	return "file"
}

func (t *FileTool) Description() string {
	return "Reads and writes files in the workspace. Operations: write (create or overwrite), read, append, delete, mkdir. Paths are relative to the workspace root and may not escape it."
}

func (t *FileTool) ParameterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operation": map[string]any{
				"type":        "string",
				"enum":        operationEnum(fileOperations),
				"description": "The file operation to perform",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "Path of the file or directory, relative to the workspace",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "File content for write and append operations",
			},
		},
		"required": []string{"operation", "path"},
	}
}

// ValidateParams checks the parameter map without touching the filesystem.
func (t *FileTool) ValidateParams(params map[string]any) error {
	_, err := decodeFileParams(params)
	return err
}

func decodeFileParams(params map[string]any) (fileParams, error) {
	var p fileParams

	op, ok := stringParam(params, "operation")
	if !ok || op == "" {
		return p, errors.New(errors.CodeInvalidInput, "operation is required", nil)
	}
	if !fileOperations[op] {
		return p, errors.New(errors.CodeInvalidInput,
			fmt.Sprintf("unknown operation %q, expected one of %s", op, strings.Join(operationEnum(fileOperations), ", ")), nil)
	}
	p.Operation = op

	path, ok := stringParam(params, "path")
	if !ok || path == "" {
		return p, errors.New(errors.CodeInvalidInput, "path is required", nil)
	}
	p.Path = path

	content, hasContent := stringParam(params, "content")
	if op == "write" || op == "append" {
		if !hasContent {
			return p, errors.New(errors.CodeInvalidInput,
				fmt.Sprintf("content is required for %s", op), nil)
		}
	}
	p.Content = content

	return p, nil
}

// resolvePath joins raw against the workspace and rejects escapes. It
// returns the absolute path and the workspace-relative form used for
// filesModified reporting.
func (t *FileTool) resolvePath(raw string) (string, string, error) {
	abs := raw
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(t.workspace, raw)
	}
	abs = filepath.Clean(abs)

	rel, err := filepath.Rel(t.workspace, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", errors.New(errors.CodeInvalidInput,
			fmt.Sprintf("path %q escapes the workspace", raw), nil)
	}
	return abs, filepath.ToSlash(rel), nil
}

func (t *FileTool) Execute(ctx context.Context, params map[string]any) core.ExecutionResult {
	p, err := decodeFileParams(params)
	if err != nil {
		return invalidParams(err)
	}

	abs, rel, err := t.resolvePath(p.Path)
	if err != nil {
		return core.Failuref("path validation failed: %v", err)
	}

	if err := ctx.Err(); err != nil {
		return core.Failuref("canceled before %s: %v", p.Operation, err)
	}

	switch p.Operation {
	case "write":
		return t.write(abs, rel, p.Content)
	case "read":
		return t.read(abs, rel)
	case "append":
		return t.appendFile(abs, rel, p.Content)
	case "delete":
		return t.deleteFile(abs, rel)
	case "mkdir":
		return t.mkdir(abs, rel)
	}
	return core.Failuref("unknown operation %q", p.Operation)
}

func (t *FileTool) write(abs, rel, content string) core.ExecutionResult {
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return core.Failuref("error creating directories: %v", err)
	}

	_, statErr := os.Stat(abs)
	isNew := os.IsNotExist(statErr)

	if err := atomicWrite(abs, []byte(content), 0o644); err != nil {
		return core.Failuref("error writing file: %v", err)
	}

	var res core.ExecutionResult
	if isNew {
		res = core.Successf("Created new file: %s (%d bytes)", rel, len(content))
	} else {
		res = core.Successf("Updated file: %s (%d bytes)", rel, len(content))
	}
	return res.WithMetadata(map[string]any{core.MetaFilesModified: []string{rel}})
}

func (t *FileTool) read(abs, rel string) core.ExecutionResult {
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return core.Failuref("file does not exist: %s", rel)
		}
		return core.Failuref("error reading file: %v", err)
	}
	return core.ExecutionResult{
		Success: true,
		Output:  combineOutput(string(data), "", DefaultMaxOutputBytes),
	}
}

func (t *FileTool) appendFile(abs, rel, content string) core.ExecutionResult {
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return core.Failuref("error creating directories: %v", err)
	}

	f, err := os.OpenFile(abs, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return core.Failuref("error opening file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return core.Failuref("error appending to file: %v", err)
	}
	if err := f.Close(); err != nil {
		return core.Failuref("error closing file: %v", err)
	}

	res := core.Successf("Appended to %s (%d bytes added)", rel, len(content))
	return res.WithMetadata(map[string]any{core.MetaFilesModified: []string{rel}})
}

func (t *FileTool) deleteFile(abs, rel string) core.ExecutionResult {
	if _, err := os.Stat(abs); os.IsNotExist(err) {
		return core.Failuref("file does not exist: %s", rel)
	}
	if err := os.Remove(abs); err != nil {
		return core.Failuref("error deleting file: %v", err)
	}

	res := core.Successf("Deleted: %s", rel)
	return res.WithMetadata(map[string]any{core.MetaFilesModified: []string{rel}})
}

func (t *FileTool) mkdir(abs, rel string) core.ExecutionResult {
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return core.Failuref("error creating directory: %v", err)
	}

	res := core.Successf("Created directory: %s", rel)
	return res.WithMetadata(map[string]any{core.MetaFilesModified: []string{rel}})
}

// atomicWrite writes via a temp file in the target directory plus rename, so
// an interrupted write never leaves a half-written file behind.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".praxis-write-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
