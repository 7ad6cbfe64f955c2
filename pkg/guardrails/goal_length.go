// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package guardrails

import (
	"context"
	"fmt"
	"unicode/utf8"
)

// DefaultMaxGoalLength bounds goal text when no explicit limit is set. A
// goal is one sentence of intent; anything near this size is pasted content,
// not a goal.
const DefaultMaxGoalLength = 8192

// GoalLengthChecker blocks goals longer than a rune limit.
type GoalLengthChecker struct {
	max int
}

// NewGoalLengthChecker creates a checker with the given rune limit.
// Non-positive limits fall back to DefaultMaxGoalLength.
func NewGoalLengthChecker(max int) *GoalLengthChecker {
	if max <= 0 {
		max = DefaultMaxGoalLength
	}
	return &GoalLengthChecker{max: max}
}

// ID returns the guardrail identifier.
func (c *GoalLengthChecker) ID() string {
	return "goal-length"
}

// CheckInput blocks input exceeding the limit.
func (c *GoalLengthChecker) CheckInput(ctx context.Context, input string) CheckResult {
	n := utf8.RuneCountInString(input)
	if n <= c.max {
		return CheckResult{}
	}
	return CheckResult{
		Blocked:    true,
		Reason:     fmt.Sprintf("goal is %d characters, limit is %d", n, c.max),
		Confidence: 1.0,
		Metadata:   map[string]any{"length": n, "limit": c.max},
	}
}

// WithMaxGoalLength adds a goal length bound to the input chain.
func WithMaxGoalLength(max int) Option {
	return WithInputChecker(NewGoalLengthChecker(max))
}
