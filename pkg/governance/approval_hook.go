// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package governance

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// ApprovalRequest carries everything an approver needs to judge a pending
// action: the action itself, the digest of the plan it belongs to, and the
// reason the policy engine flagged it.
type ApprovalRequest struct {
	Action     Action
	PlanDigest string
	Reason     string
	Summary    string
}

// ApprovalHook resolves pending policy decisions. Implementations may block
// until an operator answers; they must honor ctx cancellation.
type ApprovalHook interface {
	RequestApproval(ctx context.Context, req ApprovalRequest) (Decision, error)
}

// StaticApprovalHook returns a fixed decision for every request.
type StaticApprovalHook struct {
	Decision Decision
}

// RequestApproval returns the configured decision.
func (h StaticApprovalHook) RequestApproval(_ context.Context, _ ApprovalRequest) (Decision, error) {
	return normalizeApprovalDecision(h.Decision, "approval decision not set"), nil
}

// ConsoleApprovalHook prompts for approval on stdin/stdout.
type ConsoleApprovalHook struct {
	in              *bufio.Reader
	out             io.Writer
	prompt          string
	timeout         time.Duration
	defaultDecision Decision
}

// ConsoleApprovalOption configures the console approval hook.
type ConsoleApprovalOption func(*ConsoleApprovalHook)

// NewConsoleApprovalHook creates a console-based approval hook.
func NewConsoleApprovalHook(opts ...ConsoleApprovalOption) *ConsoleApprovalHook {
	h := &ConsoleApprovalHook{
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		prompt: "Approve? [y/N]: ",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// WithApprovalInput sets the input reader for the console hook.
func WithApprovalInput(r io.Reader) ConsoleApprovalOption {
	return func(h *ConsoleApprovalHook) {
		if r != nil {
			h.in = bufio.NewReader(r)
		}
	}
}

// WithApprovalOutput sets the output writer for the console hook.
func WithApprovalOutput(w io.Writer) ConsoleApprovalOption {
	return func(h *ConsoleApprovalHook) {
		if w != nil {
			h.out = w
		}
	}
}

// WithApprovalPrompt sets the prompt string.
func WithApprovalPrompt(prompt string) ConsoleApprovalOption {
	return func(h *ConsoleApprovalHook) {
		if strings.TrimSpace(prompt) != "" {
			h.prompt = prompt
		}
	}
}

// WithApprovalTimeout sets a timeout for waiting on user input.
func WithApprovalTimeout(timeout time.Duration) ConsoleApprovalOption {
	return func(h *ConsoleApprovalHook) {
		if timeout > 0 {
			h.timeout = timeout
		}
	}
}

// WithApprovalDefault sets the decision used when input is missing or the
// wait is cancelled.
func WithApprovalDefault(decision Decision) ConsoleApprovalOption {
	return func(h *ConsoleApprovalHook) {
		h.defaultDecision = decision
	}
}

// RequestApproval prompts for approval and returns the operator decision.
func (h *ConsoleApprovalHook) RequestApproval(ctx context.Context, req ApprovalRequest) (Decision, error) {
	if h == nil || h.in == nil {
		return normalizeApprovalDecision(h.defaultDecision, "approval input not available"), nil
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "approval required"
	}

	_, _ = fmt.Fprintf(h.out, "\nApproval required for %s\n", req.Action.Target())
	if req.Action.Path != "" {
		_, _ = fmt.Fprintf(h.out, "Path: %s\n", req.Action.Path)
	}
	if req.PlanDigest != "" {
		_, _ = fmt.Fprintf(h.out, "Plan: %s\n", shortDigest(req.PlanDigest))
	}
	if summary := strings.TrimSpace(req.Summary); summary != "" {
		_, _ = fmt.Fprintf(h.out, "Step: %s\n", summary)
	}
	_, _ = fmt.Fprintf(h.out, "Reason: %s\n", reason)
	_, _ = fmt.Fprint(h.out, h.prompt)

	responseCh := make(chan string, 1)
	go func() {
		line, _ := h.in.ReadString('\n')
		responseCh <- line
	}()

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	select {
	case <-ctx.Done():
		return normalizeApprovalDecision(h.defaultDecision, "approval cancelled"), nil
	case line := <-responseCh:
		answer := strings.ToLower(strings.TrimSpace(line))
		if strings.HasPrefix(answer, "y") {
			return Decision{Allowed: true, Status: DecisionStatusAllow, Reason: "approved by operator"}, nil
		}
		return Decision{Allowed: false, Status: DecisionStatusDeny, Reason: "rejected by operator"}, nil
	}
}

func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

func normalizeApprovalDecision(decision Decision, fallbackReason string) Decision {
	if decision.Status == "" && decision.Reason == "" && !decision.Allowed {
		return Decision{Allowed: false, Status: DecisionStatusDeny, Reason: fallbackReason}
	}
	if decision.Status == "" {
		if decision.Allowed {
			decision.Status = DecisionStatusAllow
		} else {
			decision.Status = DecisionStatusDeny
		}
	}
	return decision
}
