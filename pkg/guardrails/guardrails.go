// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

// Package guardrails screens content crossing the process boundary.
//
// Two checkpoints exist in the run lifecycle:
//   - Input: the goal text, before it reaches the planner prompt
//     (injection phrases, oversized goals, embedded secrets)
//   - Output: text leaving the process, such as run summaries headed for
//     cross-run memory (PII masking)
//
// Governance policies gate actions; guardrails inspect content. A blocked
// goal never creates a plan.
//
//	guard := guardrails.New(
//	    guardrails.WithPromptInjectionDetector(),
//	    guardrails.WithMaxGoalLength(8192),
//	    guardrails.WithPIIFilter(guardrails.PIIFilterMask),
//	)
//
//	if res := guard.CheckInput(ctx, goal); res.Blocked {
//	    return res.Reason
//	}
package guardrails

import "context"

// CheckResult is the outcome of one input check.
type CheckResult struct {
	// Blocked indicates the content must not proceed.
	Blocked bool

	// Reason explains the block; empty when not blocked.
	Reason string

	// GuardrailID names the checker that blocked.
	GuardrailID string

	// Confidence is the detection confidence in [0, 1].
	Confidence float64

	// Metadata carries checker-specific context.
	Metadata map[string]any
}

// FilterResult is the outcome of output filtering.
type FilterResult struct {
	// Content is the filtered text.
	Content string

	// Modified reports whether anything changed.
	Modified bool

	// Redactions lists what was masked or removed.
	Redactions []Redaction
}

// Redaction describes one content modification.
type Redaction struct {
	// Type categorizes the redaction, e.g. "email".
	Type string

	// Replacement is what stands in for the original.
	Replacement string

	// Position is the character offset in the pre-filter content.
	Position int
}

// InputChecker screens content before it reaches the model.
type InputChecker interface {
	CheckInput(ctx context.Context, input string) CheckResult
	ID() string
}

// OutputFilter rewrites content before it leaves the process.
type OutputFilter interface {
	FilterOutput(ctx context.Context, output string) FilterResult
	ID() string
}

// Guardrails runs a fixed chain of input checkers and output filters.
type Guardrails struct {
	inputCheckers []InputChecker
	outputFilters []OutputFilter
	failOpen      bool
}

// Option configures a Guardrails instance.
type Option func(*Guardrails)

// New builds a guardrails chain. With no options every check passes.
func New(opts ...Option) *Guardrails {
	g := &Guardrails{}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// WithInputChecker appends an input checker.
func WithInputChecker(checker InputChecker) Option {
	return func(g *Guardrails) {
		if checker != nil {
			g.inputCheckers = append(g.inputCheckers, checker)
		}
	}
}

// WithOutputFilter appends an output filter.
func WithOutputFilter(filter OutputFilter) Option {
	return func(g *Guardrails) {
		if filter != nil {
			g.outputFilters = append(g.outputFilters, filter)
		}
	}
}

// WithFailOpen lets content through when a check is cut short by context
// cancellation. Default is fail-closed.
func WithFailOpen(failOpen bool) Option {
	return func(g *Guardrails) { g.failOpen = failOpen }
}

// CheckInput runs the checkers in registration order and returns the first
// blocking result, stamped with the checker's ID.
func (g *Guardrails) CheckInput(ctx context.Context, input string) CheckResult {
	if g == nil {
		return CheckResult{}
	}
	for _, checker := range g.inputCheckers {
		select {
		case <-ctx.Done():
			if g.failOpen {
				return CheckResult{}
			}
			return CheckResult{
				Blocked:     true,
				Reason:      "guardrail check canceled",
				GuardrailID: "system",
			}
		default:
		}

		result := checker.CheckInput(ctx, input)
		if result.Blocked {
			result.GuardrailID = checker.ID()
			return result
		}
	}
	return CheckResult{}
}

// FilterOutput runs the filters in sequence, each over the previous one's
// content, and accumulates their redactions.
func (g *Guardrails) FilterOutput(ctx context.Context, output string) FilterResult {
	result := FilterResult{Content: output}
	if g == nil {
		return result
	}
	for _, filter := range g.outputFilters {
		select {
		case <-ctx.Done():
			return result
		default:
		}

		filtered := filter.FilterOutput(ctx, result.Content)
		if filtered.Modified {
			result.Content = filtered.Content
			result.Modified = true
			result.Redactions = append(result.Redactions, filtered.Redactions...)
		}
	}
	return result
}
