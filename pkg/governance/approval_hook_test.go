// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package governance

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestStaticApprovalHook(t *testing.T) {
	allow := StaticApprovalHook{Decision: Decision{Allowed: true, Status: DecisionStatusAllow}}
	d, err := allow.RequestApproval(context.Background(), ApprovalRequest{})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if !d.IsAllowed() {
		t.Fatalf("expected allowed, got %+v", d)
	}

	var unset StaticApprovalHook
	d, err = unset.RequestApproval(context.Background(), ApprovalRequest{})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if !d.IsDenied() {
		t.Fatalf("zero-value hook should deny, got %+v", d)
	}
	if d.Reason != "approval decision not set" {
		t.Fatalf("unexpected reason: %s", d.Reason)
	}
}

func TestConsoleApprovalHookApprove(t *testing.T) {
	var out strings.Builder
	hook := NewConsoleApprovalHook(
		WithApprovalInput(strings.NewReader("y\n")),
		WithApprovalOutput(&out),
	)
	req := ApprovalRequest{
		Action:     Action{Tool: "file", Operation: "write", Path: "LICENSE"},
		PlanDigest: "0123456789abcdef0123456789abcdef",
		Reason:     "filesystem mutation",
		Summary:    "Write the MIT license text",
	}
	d, err := hook.RequestApproval(context.Background(), req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if !d.IsAllowed() {
		t.Fatalf("expected allowed, got %+v", d)
	}
	if d.Reason != "approved by operator" {
		t.Fatalf("unexpected reason: %s", d.Reason)
	}
	prompt := out.String()
	for _, want := range []string{"file:write", "LICENSE", "0123456789ab", "filesystem mutation", "Write the MIT license text"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "0123456789abc") {
		t.Fatalf("digest should be shortened in prompt:\n%s", prompt)
	}
}

func TestConsoleApprovalHookReject(t *testing.T) {
	var out strings.Builder
	hook := NewConsoleApprovalHook(
		WithApprovalInput(strings.NewReader("no\n")),
		WithApprovalOutput(&out),
	)
	d, err := hook.RequestApproval(context.Background(), ApprovalRequest{Action: Action{Tool: "command"}})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if !d.IsDenied() {
		t.Fatalf("expected denied, got %+v", d)
	}
	if d.Reason != "rejected by operator" {
		t.Fatalf("unexpected reason: %s", d.Reason)
	}
}

func TestConsoleApprovalHookEmptyInput(t *testing.T) {
	var out strings.Builder
	hook := NewConsoleApprovalHook(
		WithApprovalInput(strings.NewReader("")),
		WithApprovalOutput(&out),
	)
	d, err := hook.RequestApproval(context.Background(), ApprovalRequest{Action: Action{Tool: "command"}})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if !d.IsDenied() {
		t.Fatalf("empty input should deny, got %+v", d)
	}
}

// blockingReader never returns, standing in for an operator who walked away.
type blockingReader struct{}

func (blockingReader) Read([]byte) (int, error) {
	select {}
}

func TestConsoleApprovalHookTimeout(t *testing.T) {
	var out strings.Builder
	hook := NewConsoleApprovalHook(
		WithApprovalInput(blockingReader{}),
		WithApprovalOutput(&out),
		WithApprovalTimeout(50*time.Millisecond),
		WithApprovalDefault(Decision{Allowed: false, Status: DecisionStatusDeny, Reason: "timed out"}),
	)
	start := time.Now()
	d, err := hook.RequestApproval(context.Background(), ApprovalRequest{Action: Action{Tool: "command"}})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("timeout took too long: %v", elapsed)
	}
	if !d.IsDenied() {
		t.Fatalf("expected default deny on timeout, got %+v", d)
	}
	if d.Reason != "timed out" {
		t.Fatalf("unexpected reason: %s", d.Reason)
	}
}

func TestConsoleApprovalHookCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out strings.Builder
	hook := NewConsoleApprovalHook(
		WithApprovalInput(blockingReader{}),
		WithApprovalOutput(&out),
	)
	d, err := hook.RequestApproval(ctx, ApprovalRequest{Action: Action{Tool: "command"}})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if !d.IsDenied() {
		t.Fatalf("cancelled request should fall back to deny, got %+v", d)
	}
	if d.Reason != "approval cancelled" {
		t.Fatalf("unexpected reason: %s", d.Reason)
	}
}
