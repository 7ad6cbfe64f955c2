// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

// Package skills loads workspace skill documents and exposes them as
// registry tools. A skill is a directory holding a SKILL.md file: YAML
// frontmatter (name, description, allowed-tools) followed by a markdown
// body with the full instructions. The planner sees only the frontmatter
// metadata through the tool catalog; the body is delivered when a plan
// step activates the skill.
package skills

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// SkillSpec is one parsed skill document.
type SkillSpec struct {
	Name         string
	Description  string
	AllowedTools []string
	Metadata     map[string]string
	Body         string
	Path         string
	Dir          string
}

const (
	maxNameLen        = 64
	maxDescriptionLen = 1024
)

var namePattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Discover returns the SKILL.md paths under root, one per immediate
// subdirectory, in lexical order. A missing root is not an error; it
// just yields nothing.
func Discover(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(root, entry.Name(), "SKILL.md")
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out, nil
}

// LoadDir loads every skill under root. The first invalid skill fails the
// whole load; callers that want to keep the valid ones use Discover and
// LoadFile per path.
func LoadDir(root string) ([]SkillSpec, error) {
	paths, err := Discover(root)
	if err != nil {
		return nil, err
	}
	out := make([]SkillSpec, 0, len(paths))
	for _, path := range paths {
		skill, err := LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, skill)
	}
	return out, nil
}

// LoadFile parses and validates a single SKILL.md file.
func LoadFile(path string) (SkillSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SkillSpec{}, err
	}
	fm, body, err := splitFrontmatter(string(data))
	if err != nil {
		return SkillSpec{}, err
	}

	var parsed frontmatter
	if err := yaml.Unmarshal([]byte(fm), &parsed); err != nil {
		return SkillSpec{}, fmt.Errorf("parse frontmatter: %w", err)
	}
	allowed, err := normalizeAllowedTools(parsed.AllowedTools)
	if err != nil {
		return SkillSpec{}, err
	}

	spec := SkillSpec{
		Name:         strings.TrimSpace(parsed.Name),
		Description:  strings.TrimSpace(parsed.Description),
		AllowedTools: allowed,
		Metadata:     parsed.Metadata,
		Body:         strings.TrimSpace(body),
		Path:         path,
		Dir:          filepath.Dir(path),
	}
	if err := validate(spec); err != nil {
		return SkillSpec{}, err
	}
	return spec, nil
}

type frontmatter struct {
	Name         string            `yaml:"name"`
	Description  string            `yaml:"description"`
	Metadata     map[string]string `yaml:"metadata"`
	AllowedTools any               `yaml:"allowed-tools"`
}

func splitFrontmatter(content string) (string, string, error) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "---") {
		return "", "", errors.New("missing frontmatter")
	}
	parts := strings.SplitN(trimmed, "---", 3)
	if len(parts) < 3 {
		return "", "", errors.New("unterminated frontmatter")
	}
	return strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2]), nil
}

func validate(spec SkillSpec) error {
	if spec.Name == "" {
		return errors.New("name is required")
	}
	if utf8.RuneCountInString(spec.Name) > maxNameLen {
		return fmt.Errorf("name exceeds %d characters", maxNameLen)
	}
	if !namePattern.MatchString(spec.Name) {
		return fmt.Errorf("name must match %s", namePattern.String())
	}
	if dirName := filepath.Base(spec.Dir); dirName != spec.Name {
		return fmt.Errorf("name must match directory name (%s)", dirName)
	}
	if spec.Description == "" {
		return errors.New("description is required")
	}
	if utf8.RuneCountInString(spec.Description) > maxDescriptionLen {
		return fmt.Errorf("description exceeds %d characters", maxDescriptionLen)
	}
	if spec.Body == "" {
		return errors.New("instruction body is required")
	}
	return nil
}

// normalizeAllowedTools accepts either a YAML list or a whitespace
// separated string of tool targets ("command", "file:write").
func normalizeAllowedTools(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return strings.Fields(v), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("allowed-tools entries must be strings, got %T", item)
			}
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("allowed-tools must be a string or list, got %T", value)
	}
}
