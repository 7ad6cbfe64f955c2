// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jllopis/praxis/pkg/core"
	"github.com/jllopis/praxis/pkg/errors"
)

var skillOperations = map[string]bool{
	"activate": true,
	"read":     true,
	"list":     true,
}

// resourceDirs are the skill subdirectories reachable through read and list.
// Anything outside them stays invisible to the model.
var resourceDirs = []string{"assets", "references", "scripts"}

// maxResourceBytes bounds a single resource read so a stray binary asset
// cannot flood the step output.
const maxResourceBytes = 256 * 1024

type skillParams struct {
	Operation string
	Resource  string
}

// SkillTool exposes one loaded skill through the tool registry. The catalog
// carries only name and description; activate delivers the instruction body
// and read/list open the files bundled next to the SKILL.md.
type SkillTool struct {
	spec SkillSpec
}

// NewTool wraps a loaded skill spec.
func NewTool(spec SkillSpec) *SkillTool {
	return &SkillTool{spec: spec}
}

// Spec returns the underlying skill document.
func (t *SkillTool) Spec() SkillSpec {
	return t.spec
}

func (t *SkillTool) Name() string {
	return t.spec.Name
}

func (t *SkillTool) Description() string {
	return fmt.Sprintf("%s Skill tool: activate returns the full instructions, list and read expose bundled resource files.", t.spec.Description)
}

func (t *SkillTool) ParameterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operation": map[string]any{
				"type":        "string",
				"enum":        []string{"activate", "list", "read"},
				"description": "activate (default) returns the skill instructions, list enumerates bundled resources, read returns one resource",
			},
			"resource": map[string]any{
				"type":        "string",
				"description": "Resource path relative to the skill directory, required for read",
			},
		},
	}
}

// ValidateParams checks the parameter map without touching the filesystem.
func (t *SkillTool) ValidateParams(params map[string]any) error {
	_, err := decodeSkillParams(params)
	return err
}

func decodeSkillParams(params map[string]any) (skillParams, error) {
	p := skillParams{Operation: "activate"}

	if v, ok := params["operation"]; ok {
		op, ok := v.(string)
		if !ok {
			return p, errors.New(errors.CodeInvalidInput, "operation must be a string", nil)
		}
		if op != "" {
			if !skillOperations[op] {
				return p, errors.New(errors.CodeInvalidInput,
					fmt.Sprintf("unknown operation %q, expected one of activate, list, read", op), nil)
			}
			p.Operation = op
		}
	}

	if v, ok := params["resource"]; ok {
		res, ok := v.(string)
		if !ok {
			return p, errors.New(errors.CodeInvalidInput, "resource must be a string", nil)
		}
		p.Resource = res
	}
	if p.Operation == "read" && p.Resource == "" {
		return p, errors.New(errors.CodeInvalidInput, "resource is required for read", nil)
	}

	return p, nil
}

func (t *SkillTool) Execute(ctx context.Context, params map[string]any) core.ExecutionResult {
	p, err := decodeSkillParams(params)
	if err != nil {
		return core.Failuref("invalid parameters: %v", err)
	}

	if err := ctx.Err(); err != nil {
		return core.Failuref("canceled before %s: %v", p.Operation, err)
	}

	switch p.Operation {
	case "activate":
		return t.activate()
	case "read":
		return t.readResource(p.Resource)
	case "list":
		return t.list()
	}
	return core.Failuref("unknown operation %q", p.Operation)
}

func (t *SkillTool) activate() core.ExecutionResult {
	var b strings.Builder
	fmt.Fprintf(&b, "# Skill: %s\n\n%s", t.spec.Name, t.spec.Body)
	if len(t.spec.AllowedTools) > 0 {
		fmt.Fprintf(&b, "\n\nTools permitted while following this skill: %s", strings.Join(t.spec.AllowedTools, ", "))
	}
	if resources := t.resources(); len(resources) > 0 {
		b.WriteString("\n\nBundled resources (use the read operation to open one):")
		for _, res := range resources {
			fmt.Fprintf(&b, "\n- %s", res)
		}
	}
	return core.Successf("%s", b.String())
}

func (t *SkillTool) readResource(raw string) core.ExecutionResult {
	abs, rel, err := t.resolveResource(raw)
	if err != nil {
		return core.Failuref("resource validation failed: %v", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return core.Failuref("resource not found: %s", rel)
		}
		return core.Failuref("error reading resource: %v", err)
	}
	if info.IsDir() {
		return core.Failuref("resource %s is a directory", rel)
	}
	if info.Size() > maxResourceBytes {
		return core.Failuref("resource %s is %d bytes, limit is %d", rel, info.Size(), maxResourceBytes)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return core.Failuref("error reading resource: %v", err)
	}
	return core.Successf("%s", string(data))
}

func (t *SkillTool) list() core.ExecutionResult {
	resources := t.resources()
	if len(resources) == 0 {
		return core.Successf("Skill %s bundles no resources", t.spec.Name)
	}
	return core.Successf("Resources for %s:\n%s", t.spec.Name, strings.Join(resources, "\n"))
}

// resolveResource joins raw against the skill directory and rejects paths
// that escape it or land outside the resource subdirectories.
func (t *SkillTool) resolveResource(raw string) (string, string, error) {
	abs := filepath.Clean(filepath.Join(t.spec.Dir, raw))

	rel, err := filepath.Rel(t.spec.Dir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", errors.New(errors.CodeInvalidInput,
			fmt.Sprintf("resource %q escapes the skill directory", raw), nil)
	}

	top := rel
	if i := strings.IndexRune(top, filepath.Separator); i >= 0 {
		top = top[:i]
	}
	allowed := false
	for _, dir := range resourceDirs {
		if top == dir {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", "", errors.New(errors.CodeInvalidInput,
			fmt.Sprintf("resource %q is outside the %s directories", raw, strings.Join(resourceDirs, "/")), nil)
	}
	return abs, filepath.ToSlash(rel), nil
}

// resources walks the resource subdirectories and returns skill-relative
// paths in lexical order.
func (t *SkillTool) resources() []string {
	var out []string
	for _, dir := range resourceDirs {
		root := filepath.Join(t.spec.Dir, dir)
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil || d.IsDir() {
				return nil
			}
			if rel, err := filepath.Rel(t.spec.Dir, path); err == nil {
				out = append(out, filepath.ToSlash(rel))
			}
			return nil
		})
	}
	sort.Strings(out)
	return out
}
