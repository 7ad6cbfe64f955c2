// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package guardrails

import (
	"context"
	"regexp"
	"strings"
)

// PromptInjectionDetector flags goals that try to rewrite the planner's
// instructions instead of describing work.
type PromptInjectionDetector struct {
	patterns   []*regexp.Regexp
	threshold  float64
	strictMode bool
}

// PromptInjectionOption configures the detector.
type PromptInjectionOption func(*PromptInjectionDetector)

// Injection signatures a goal string has no legitimate reason to carry.
var defaultInjectionPatterns = []string{
	// instruction override
	`(?i)(ignore|disregard|forget|override)\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?)`,

	// persona swap
	`(?i)you\s+are\s+now\s+(a|an)\s+`,
	`(?i)pretend\s+(you\s+are|to\s+be)\s+`,
	`(?i)roleplay\s+as\s+`,

	// prompt extraction
	`(?i)(show|reveal|print|display)\s+(me\s+)?your\s+(system\s+)?(prompt|instructions?)`,
	`(?i)what\s+(is|are)\s+your\s+(system\s+)?(prompt|instructions?)`,

	// jailbreak vocabulary
	`(?i)do\s+anything\s+now`,
	`(?i)jailbreak`,
	`(?i)bypass\s+(safety|content|filter)`,
	`(?i)(developer|debug|sudo|admin|maintenance)\s+mode`,

	// template delimiter smuggling
	`(?i)\]\]\s*system\s*:`,
	`(?i)<\|.*\|>`,
	`(?i)\[\/?INST\]`,
	`(?i)<<\/?SYS>>`,
}

// NewPromptInjectionDetector compiles the default signature set. Patterns
// that fail to compile are skipped.
func NewPromptInjectionDetector(opts ...PromptInjectionOption) *PromptInjectionDetector {
	d := &PromptInjectionDetector{
		patterns: compilePatterns(defaultInjectionPatterns),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		if re, err := regexp.Compile(pattern); err == nil {
			compiled = append(compiled, re)
		}
	}
	return compiled
}

// WithInjectionPatterns appends custom signatures.
func WithInjectionPatterns(patterns []string) PromptInjectionOption {
	return func(d *PromptInjectionDetector) {
		d.patterns = append(d.patterns, compilePatterns(patterns)...)
	}
}

// WithInjectionThreshold sets the confidence a goal must reach before it is
// blocked. Zero blocks on any match.
func WithInjectionThreshold(threshold float64) PromptInjectionOption {
	return func(d *PromptInjectionDetector) {
		if threshold >= 0 && threshold <= 1 {
			d.threshold = threshold
		}
	}
}

// WithStrictMode blocks on the first match regardless of threshold.
func WithStrictMode(strict bool) PromptInjectionOption {
	return func(d *PromptInjectionDetector) {
		d.strictMode = strict
	}
}

// ID returns the guardrail identifier.
func (d *PromptInjectionDetector) ID() string {
	return "prompt-injection"
}

// CheckInput matches the goal against the signature set. Confidence starts
// at 0.7 for one match and rises 0.1 per additional match.
func (d *PromptInjectionDetector) CheckInput(ctx context.Context, input string) CheckResult {
	if input == "" {
		return CheckResult{}
	}

	normalized := strings.ToLower(input)
	var matched []string
	for _, pattern := range d.patterns {
		select {
		case <-ctx.Done():
			return CheckResult{}
		default:
		}
		if !pattern.MatchString(normalized) {
			continue
		}
		matched = append(matched, pattern.String())
		if d.strictMode {
			return CheckResult{
				Blocked:    true,
				Reason:     "potential prompt injection detected",
				Confidence: 1.0,
				Metadata:   map[string]any{"matched_patterns": matched},
			}
		}
	}
	if len(matched) == 0 {
		return CheckResult{}
	}

	confidence := 0.7 + float64(len(matched)-1)*0.1
	if confidence > 1.0 {
		confidence = 1.0
	}
	if confidence < d.threshold {
		return CheckResult{}
	}
	return CheckResult{
		Blocked:    true,
		Reason:     "potential prompt injection detected",
		Confidence: confidence,
		Metadata: map[string]any{
			"matched_patterns": matched,
			"match_count":      len(matched),
		},
	}
}

// WithPromptInjectionDetector adds injection detection to the input chain.
func WithPromptInjectionDetector(opts ...PromptInjectionOption) Option {
	return WithInputChecker(NewPromptInjectionDetector(opts...))
}
