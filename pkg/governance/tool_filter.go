// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package governance

import (
	"context"
	"path"
	"strings"
)

// ToolFilter decides which tools an agent may see, combining allowlists,
// denylists, and an optional policy engine. The filtered name set is what
// the planner catalog and the executor dispatch table are built from.
type ToolFilter struct {
	allowlist    map[string]bool
	denylist     map[string]bool
	policyEngine PolicyEngine
}

// ToolFilterOption configures a ToolFilter.
type ToolFilterOption func(*ToolFilter)

// NewToolFilter creates a new ToolFilter with the given options.
func NewToolFilter(opts ...ToolFilterOption) *ToolFilter {
	tf := &ToolFilter{
		allowlist: make(map[string]bool),
		denylist:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(tf)
	}
	return tf
}

// WithAllowlist sets the allowlist of permitted tool names/patterns.
func WithAllowlist(tools []string) ToolFilterOption {
	return func(tf *ToolFilter) {
		for _, tool := range tools {
			tool = strings.TrimSpace(tool)
			if tool != "" {
				tf.allowlist[tool] = true
			}
		}
	}
}

// WithDenylist sets the denylist of forbidden tool names/patterns.
func WithDenylist(tools []string) ToolFilterOption {
	return func(tf *ToolFilter) {
		for _, tool := range tools {
			tool = strings.TrimSpace(tool)
			if tool != "" {
				tf.denylist[tool] = true
			}
		}
	}
}

// WithPolicyEngine attaches a policy engine for additional evaluation.
func WithPolicyEngine(engine PolicyEngine) ToolFilterOption {
	return func(tf *ToolFilter) {
		tf.policyEngine = engine
	}
}

// IsAllowed checks if a tool name is permitted by the filter.
// Evaluation order:
// 1. If denylist contains tool → deny
// 2. If allowlist is non-empty and doesn't contain tool → deny
// 3. If policy engine exists, evaluate → respect decision
// 4. Otherwise → allow
func (tf *ToolFilter) IsAllowed(ctx context.Context, toolName string) Decision {
	if tf.matchesList(toolName, tf.denylist) {
		return Decision{
			Allowed: false,
			Status:  DecisionStatusDeny,
			Reason:  "tool is in denylist",
		}
	}

	if len(tf.allowlist) > 0 && !tf.matchesList(toolName, tf.allowlist) {
		return Decision{
			Allowed: false,
			Status:  DecisionStatusDeny,
			Reason:  "tool is not in allowlist",
		}
	}

	if tf.policyEngine != nil {
		return tf.policyEngine.Evaluate(ctx, Action{Tool: toolName})
	}

	return Decision{
		Allowed: true,
		Status:  DecisionStatusAllow,
	}
}

// FilterTools returns only the tool names that pass the filter. A pending
// decision keeps the tool visible; the executor gates the actual call.
func (tf *ToolFilter) FilterTools(ctx context.Context, toolNames []string) []string {
	if len(tf.allowlist) == 0 && len(tf.denylist) == 0 && tf.policyEngine == nil {
		return toolNames
	}

	filtered := make([]string, 0, len(toolNames))
	for _, name := range toolNames {
		decision := tf.IsAllowed(ctx, name)
		if decision.IsAllowed() || decision.IsPending() {
			filtered = append(filtered, name)
		}
	}
	return filtered
}

// matchesList checks if toolName matches any pattern in the list.
// Supports glob patterns (e.g., "git", "mcp:*").
func (tf *ToolFilter) matchesList(toolName string, list map[string]bool) bool {
	if list[toolName] {
		return true
	}

	for pattern := range list {
		if ok, err := path.Match(pattern, toolName); err == nil && ok {
			return true
		}
	}

	return false
}

// AddToAllowlist adds tools to the allowlist.
func (tf *ToolFilter) AddToAllowlist(tools ...string) {
	for _, tool := range tools {
		tool = strings.TrimSpace(tool)
		if tool != "" {
			tf.allowlist[tool] = true
		}
	}
}

// AddToDenylist adds tools to the denylist.
func (tf *ToolFilter) AddToDenylist(tools ...string) {
	for _, tool := range tools {
		tool = strings.TrimSpace(tool)
		if tool != "" {
			tf.denylist[tool] = true
		}
	}
}
