// Package governance gates tool dispatch and plan application: ordered
// policy rules over tool operations and paths, human approval hooks, and
// durable approval records bound to plan digests.
package governance

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Action describes one tool invocation for policy evaluation.
type Action struct {
	Tool      string            // dispatch name, e.g. "file"
	Operation string            // tool operation when the tool has one, e.g. "write"
	Path      string            // affected filesystem path, when known
	Metadata  map[string]string // extra context for hooks
}

// Target renders the action as "tool:operation", or just "tool" when the
// tool has no operation. Rule targets match against this form.
func (a Action) Target() string {
	if a.Operation == "" {
		return a.Tool
	}
	return a.Tool + ":" + a.Operation
}

// DecisionStatus captures the policy outcome.
type DecisionStatus string

const (
	DecisionStatusAllow   DecisionStatus = "allow"
	DecisionStatusDeny    DecisionStatus = "deny"
	DecisionStatusPending DecisionStatus = "pending"
)

// Decision captures the outcome of a policy evaluation.
type Decision struct {
	Allowed bool
	Reason  string
	RuleID  string
	Status  DecisionStatus
}

// IsAllowed returns true when the decision permits the action.
func (d Decision) IsAllowed() bool {
	if d.Status == "" {
		return d.Allowed
	}
	return d.Status == DecisionStatusAllow
}

// IsPending returns true when the decision requires approval.
func (d Decision) IsPending() bool {
	return d.Status == DecisionStatusPending
}

// IsDenied returns true when the decision forbids the action.
func (d Decision) IsDenied() bool {
	if d.Status == "" {
		return !d.Allowed
	}
	return d.Status == DecisionStatusDeny
}

// PolicyEngine evaluates actions before the executor dispatches them.
type PolicyEngine interface {
	Evaluate(ctx context.Context, action Action) Decision
}

// Rule defines a single policy rule. Target matches the action's
// "tool:operation" form; Path, when set, must additionally match the
// affected path. Effects: allow, deny, require-approval.
type Rule struct {
	ID     string `yaml:"id"`
	Effect string `yaml:"effect"`
	Target string `yaml:"target"`
	Path   string `yaml:"path,omitempty"`
	Reason string `yaml:"reason,omitempty"`
}

// RuleSet evaluates rules in order; the first match wins.
type RuleSet struct {
	Rules           []Rule
	DefaultDecision Decision
}

// NewRuleSet creates a rule set with a default allow decision.
func NewRuleSet(rules []Rule) *RuleSet {
	return &RuleSet{
		Rules:           append([]Rule(nil), rules...),
		DefaultDecision: Decision{Allowed: true, Status: DecisionStatusAllow},
	}
}

// Evaluate checks rules in order and returns the first match.
func (r *RuleSet) Evaluate(_ context.Context, action Action) Decision {
	target := action.Target()
	for _, rule := range r.Rules {
		if rule.Target != "" && !matchPattern(rule.Target, target) && !matchPattern(rule.Target, action.Tool) {
			continue
		}
		if rule.Path != "" {
			if action.Path == "" || !matchPathPattern(rule.Path, action.Path) {
				continue
			}
		}
		decision := Decision{Reason: rule.Reason, RuleID: rule.ID}
		switch strings.ToLower(rule.Effect) {
		case "deny":
			decision.Status = DecisionStatusDeny
		case "require-approval", "pending":
			decision.Status = DecisionStatusPending
		default:
			decision.Status = DecisionStatusAllow
		}
		decision.Allowed = decision.Status == DecisionStatusAllow
		return decision
	}
	return r.DefaultDecision
}

func matchPattern(pattern, value string) bool {
	if pattern == "" {
		return true
	}
	ok, err := path.Match(pattern, value)
	if err == nil && ok {
		return true
	}
	return pattern == value
}

// matchPathPattern matches slash-form paths. path.Match does not cross
// separators, so a trailing "/**" matches any path under the prefix.
func matchPathPattern(pattern, value string) bool {
	value = strings.TrimPrefix(strings.ReplaceAll(value, "\\", "/"), "./")
	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
		return value == prefix || strings.HasPrefix(value, prefix+"/")
	}
	return matchPattern(pattern, value)
}

type policyFile struct {
	Default string `yaml:"default"`
	Rules   []Rule `yaml:"rules"`
}

// LoadRuleSet reads an ordered rule set from a YAML policy file.
//
//	default: allow
//	rules:
//	  - id: gate-writes
//	    target: "file:write"
//	    effect: require-approval
//	    reason: filesystem mutation
func LoadRuleSet(policyPath string) (*RuleSet, error) {
	raw, err := os.ReadFile(policyPath)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return ParseRuleSet(raw)
}

// ParseRuleSet parses YAML policy content.
func ParseRuleSet(raw []byte) (*RuleSet, error) {
	var file policyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}
	for i, rule := range file.Rules {
		if strings.TrimSpace(rule.ID) == "" {
			file.Rules[i].ID = fmt.Sprintf("rule-%d", i+1)
		}
		switch strings.ToLower(strings.TrimSpace(rule.Effect)) {
		case "", "allow", "deny", "require-approval", "pending":
		default:
			return nil, fmt.Errorf("rule %q has unknown effect %q", file.Rules[i].ID, rule.Effect)
		}
	}
	rs := NewRuleSet(file.Rules)
	if strings.EqualFold(strings.TrimSpace(file.Default), "deny") {
		rs.DefaultDecision = Decision{Allowed: false, Status: DecisionStatusDeny, Reason: "default deny"}
	}
	return rs, nil
}
