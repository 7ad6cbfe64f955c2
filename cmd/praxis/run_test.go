// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jllopis/praxis/pkg/config"
	"github.com/jllopis/praxis/pkg/governance"
)

const gatedPolicy = `default: allow
rules:
  - id: gate-deletes
    target: "file:delete"
    effect: require-approval
    reason: deletions need a human eye
`

const allowOnlyPolicy = `default: allow
rules:
  - id: block-push
    target: "git:push"
    effect: deny
`

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	return path
}

func gatedConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Governance.Enabled = true
	cfg.Governance.PolicyPath = writePolicy(t, gatedPolicy)
	return cfg
}

func TestBuildApprovalHookOff(t *testing.T) {
	cfg := gatedConfig(t)
	for _, mode := range []string{"off", "disabled", "none", "OFF"} {
		if hook := buildApprovalHook(cfg, mode, time.Minute, false); hook != nil {
			t.Errorf("mode %q: expected no hook", mode)
		}
	}
}

func TestBuildApprovalHookAutoWithoutGatingPolicy(t *testing.T) {
	// Nothing can produce a pending decision, so auto installs no hook at
	// all and the runtime never blocks on one.
	cfg := &config.Config{}
	if hook := buildApprovalHook(cfg, "auto", time.Minute, false); hook != nil {
		t.Error("governance disabled: expected no hook")
	}

	cfg = &config.Config{}
	cfg.Governance.Enabled = true
	cfg.Governance.PolicyPath = writePolicy(t, allowOnlyPolicy)
	if hook := buildApprovalHook(cfg, "", time.Minute, false); hook != nil {
		t.Error("allow-only policy: expected no hook")
	}
}

func TestBuildApprovalHookAutoDeniesWithoutTTY(t *testing.T) {
	// JSON output forces the non-interactive path.
	hook := buildApprovalHook(gatedConfig(t), "auto", time.Minute, true)
	static, ok := hook.(governance.StaticApprovalHook)
	if !ok {
		t.Fatalf("expected StaticApprovalHook, got %T", hook)
	}
	if static.Decision.Allowed {
		t.Error("auto without a TTY must deny")
	}
	if static.Decision.Reason != "auto-denied" {
		t.Errorf("reason = %q", static.Decision.Reason)
	}
}

func TestBuildApprovalHookAskFallsBackToDeny(t *testing.T) {
	hook := buildApprovalHook(gatedConfig(t), "ask", time.Minute, true)
	static, ok := hook.(governance.StaticApprovalHook)
	if !ok {
		t.Fatalf("expected StaticApprovalHook, got %T", hook)
	}
	if static.Decision.Allowed {
		t.Error("ask without a TTY must deny")
	}
}

func TestBuildApprovalHookStaticModes(t *testing.T) {
	cfg := gatedConfig(t)

	hook := buildApprovalHook(cfg, "approve", time.Minute, false)
	static, ok := hook.(governance.StaticApprovalHook)
	if !ok {
		t.Fatalf("expected StaticApprovalHook, got %T", hook)
	}
	if !static.Decision.Allowed || static.Decision.Status != governance.DecisionStatusAllow {
		t.Errorf("approve decision = %+v", static.Decision)
	}
	if static.Decision.Reason != "auto-approved" {
		t.Errorf("reason = %q", static.Decision.Reason)
	}

	hook = buildApprovalHook(cfg, "deny", time.Minute, false)
	static, ok = hook.(governance.StaticApprovalHook)
	if !ok {
		t.Fatalf("expected StaticApprovalHook, got %T", hook)
	}
	if static.Decision.Allowed || static.Decision.Status != governance.DecisionStatusDeny {
		t.Errorf("deny decision = %+v", static.Decision)
	}
}

func TestBuildApprovalHookUnknownMode(t *testing.T) {
	if hook := buildApprovalHook(gatedConfig(t), "sometimes", time.Minute, true); hook != nil {
		t.Errorf("unknown mode: expected no hook, got %T", hook)
	}
}

func TestPolicyRequiresApproval(t *testing.T) {
	cfg := &config.Config{}
	if policyRequiresApproval(cfg) {
		t.Error("disabled governance cannot gate")
	}

	cfg.Governance.Enabled = true
	if policyRequiresApproval(cfg) {
		t.Error("no policy path means nothing can gate")
	}

	cfg.Governance.PolicyPath = writePolicy(t, allowOnlyPolicy)
	if policyRequiresApproval(cfg) {
		t.Error("allow and deny rules never go pending")
	}

	cfg.Governance.PolicyPath = writePolicy(t, gatedPolicy)
	if !policyRequiresApproval(cfg) {
		t.Error("require-approval rule must gate")
	}

	// A broken policy counts as gating; the runtime reports the load error.
	cfg.Governance.PolicyPath = filepath.Join(t.TempDir(), "missing.yaml")
	if !policyRequiresApproval(cfg) {
		t.Error("unloadable policy must gate")
	}
}

func TestFlagProvided(t *testing.T) {
	cmd := flag.NewFlagSet("run", flag.ContinueOnError)
	autonomous := cmd.Bool("autonomous", false, "")
	if err := cmd.Parse([]string{"--autonomous=false", "goal"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if *autonomous {
		t.Error("flag value should be false")
	}
	// Explicitly set to its default is still provided; that is the point of
	// tracking it separately from the value.
	if !flagProvided(cmd, "autonomous") {
		t.Error("expected autonomous to count as provided")
	}
	if flagProvided(cmd, "preview") {
		t.Error("unset flag reported as provided")
	}
}

func TestShortDigest(t *testing.T) {
	if got := shortDigest("abc"); got != "abc" {
		t.Errorf("got %q", got)
	}
	if got := shortDigest("0123456789abcdef0123"); got != "0123456789ab" {
		t.Errorf("got %q", got)
	}
}

func TestIndentLines(t *testing.T) {
	got := indentLines("first\nsecond\n", "  ")
	want := "  first\n  second"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
