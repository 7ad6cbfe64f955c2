// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/jllopis/praxis/pkg/core"
)

// planMermaid renders a plan as a mermaid flowchart. Steps execute in
// order, so a step without explicit dependencies is chained onto its
// predecessor to keep the sequence visible.
func planMermaid(plan *core.Plan) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, step := range plan.Steps {
		sb.WriteString(fmt.Sprintf("    %s[%s]\n", nodeID(step.ID), stepLabel(step)))
	}

	for i, step := range plan.Steps {
		if len(step.Dependencies) > 0 {
			for _, dep := range step.Dependencies {
				sb.WriteString(fmt.Sprintf("    %s --> %s\n", nodeID(dep), nodeID(step.ID)))
			}
			continue
		}
		if i > 0 {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", nodeID(plan.Steps[i-1].ID), nodeID(step.ID)))
		}
	}

	if len(plan.Steps) > 0 {
		sb.WriteString(fmt.Sprintf("    style %s fill:#90EE90\n", nodeID(plan.Steps[0].ID)))
	}

	return sb.String()
}

// planDOT renders a plan in graphviz dot form.
func planDOT(plan *core.Plan) string {
	var sb strings.Builder
	sb.WriteString("digraph plan {\n")
	sb.WriteString("    rankdir=TB;\n")
	sb.WriteString("    node [shape=box, style=rounded];\n")

	for i, step := range plan.Steps {
		attrs := fmt.Sprintf("label=\"%s\"", dotLabel(step))
		if i == 0 {
			attrs += ", style=\"rounded,filled\", fillcolor=\"#90EE90\""
		}
		sb.WriteString(fmt.Sprintf("    %q [%s];\n", step.ID, attrs))
	}

	for i, step := range plan.Steps {
		if len(step.Dependencies) > 0 {
			for _, dep := range step.Dependencies {
				sb.WriteString(fmt.Sprintf("    %q -> %q;\n", dep, step.ID))
			}
			continue
		}
		if i > 0 {
			sb.WriteString(fmt.Sprintf("    %q -> %q;\n", plan.Steps[i-1].ID, step.ID))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

func stepLabel(step core.Step) string {
	desc := truncateMessage(step.Description, 40)
	if desc == "-" {
		return fmt.Sprintf("%s: %s", step.ID, step.ToolName)
	}
	return fmt.Sprintf("%s: %s", step.ToolName, sanitizeMermaid(desc))
}

func dotLabel(step core.Step) string {
	desc := truncateMessage(step.Description, 40)
	if desc == "-" {
		return fmt.Sprintf("%s\\n(%s)", step.ID, step.ToolName)
	}
	return fmt.Sprintf("%s\\n(%s)", strings.ReplaceAll(desc, `"`, `'`), step.ToolName)
}

// nodeID strips characters mermaid treats as syntax from step ids.
func nodeID(id string) string {
	var sb strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	if sb.Len() == 0 {
		return "step"
	}
	return sb.String()
}

func sanitizeMermaid(label string) string {
	replacer := strings.NewReplacer(
		"[", "(",
		"]", ")",
		"{", "(",
		"}", ")",
		`"`, "'",
		"|", "/",
	)
	return replacer.Replace(label)
}
