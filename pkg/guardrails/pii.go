// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package guardrails

import (
	"context"
	"regexp"
)

// PIIFilterMode determines what replaces detected PII.
type PIIFilterMode int

const (
	// PIIFilterMask replaces PII with a typed placeholder, e.g. "[EMAIL]".
	PIIFilterMask PIIFilterMode = iota
	// PIIFilterRedact removes PII entirely.
	PIIFilterRedact
)

// PIIType categorizes detected PII.
type PIIType string

const (
	PIITypeEmail      PIIType = "email"
	PIITypePhone      PIIType = "phone"
	PIITypeSSN        PIIType = "ssn"
	PIITypeCreditCard PIIType = "credit_card"
	PIITypeIPAddress  PIIType = "ip_address"
)

type piiPattern struct {
	piiType PIIType
	pattern *regexp.Regexp
	mask    string
}

// PIIFilter detects and rewrites personally identifiable information. It
// serves both directions: FilterOutput masks PII in text leaving the
// process, CheckInput blocks goals that embed PII outright.
type PIIFilter struct {
	mode       PIIFilterMode
	patterns   []piiPattern
	enabledPII map[PIIType]bool
}

// PIIFilterOption configures the PII filter.
type PIIFilterOption func(*PIIFilter)

// Conservative high-precision patterns. Order matters: card and SSN shapes
// overlap phone shapes and must win.
var defaultPIIPatterns = []struct {
	piiType PIIType
	pattern string
	mask    string
}{
	{PIITypeCreditCard, `\b[0-9]{4}[-\s]?[0-9]{4}[-\s]?[0-9]{4}[-\s]?[0-9]{4}\b`, "[CREDIT_CARD]"},
	{PIITypeCreditCard, `\b(?:4[0-9]{12}(?:[0-9]{3})?|5[1-5][0-9]{14}|3[47][0-9]{13}|6(?:011|5[0-9]{2})[0-9]{12})\b`, "[CREDIT_CARD]"},
	{PIITypeSSN, `\b[0-9]{3}[-\s]?[0-9]{2}[-\s]?[0-9]{4}\b`, "[SSN]"},
	{PIITypeEmail, `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`, "[EMAIL]"},
	{PIITypePhone, `\+?1?[-.\s]?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}`, "[PHONE]"},
	{PIITypePhone, `\+[0-9]{1,3}[-.\s]?[0-9]{6,14}`, "[PHONE]"},
	{PIITypeIPAddress, `\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`, "[IP_ADDRESS]"},
}

// NewPIIFilter compiles the default pattern set with every type enabled.
func NewPIIFilter(mode PIIFilterMode, opts ...PIIFilterOption) *PIIFilter {
	f := &PIIFilter{
		mode:       mode,
		enabledPII: make(map[PIIType]bool),
	}
	for _, p := range defaultPIIPatterns {
		re, err := regexp.Compile(p.pattern)
		if err != nil {
			continue
		}
		f.patterns = append(f.patterns, piiPattern{piiType: p.piiType, pattern: re, mask: p.mask})
		f.enabledPII[p.piiType] = true
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// WithPIITypes enables only the named types.
func WithPIITypes(types ...PIIType) PIIFilterOption {
	return func(f *PIIFilter) {
		for k := range f.enabledPII {
			f.enabledPII[k] = false
		}
		for _, t := range types {
			f.enabledPII[t] = true
		}
	}
}

// WithExcludePII disables the named types.
func WithExcludePII(types ...PIIType) PIIFilterOption {
	return func(f *PIIFilter) {
		for _, t := range types {
			f.enabledPII[t] = false
		}
	}
}

// WithCustomPIIPattern adds one pattern. Non-compiling patterns are ignored.
func WithCustomPIIPattern(piiType PIIType, pattern, mask string) PIIFilterOption {
	return func(f *PIIFilter) {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return
		}
		f.patterns = append(f.patterns, piiPattern{piiType: piiType, pattern: re, mask: mask})
		f.enabledPII[piiType] = true
	}
}

// ID returns the guardrail identifier.
func (f *PIIFilter) ID() string {
	return "pii-filter"
}

// FilterOutput masks or removes every enabled PII match. Matches are
// replaced back-to-front so recorded positions stay valid.
func (f *PIIFilter) FilterOutput(ctx context.Context, output string) FilterResult {
	result := FilterResult{Content: output}
	if output == "" {
		return result
	}

	for _, p := range f.patterns {
		if !f.enabledPII[p.piiType] {
			continue
		}
		select {
		case <-ctx.Done():
			return result
		default:
		}

		matches := p.pattern.FindAllStringIndex(result.Content, -1)
		for i := len(matches) - 1; i >= 0; i-- {
			match := matches[i]
			replacement := p.mask
			if f.mode == PIIFilterRedact {
				replacement = ""
			}
			result.Redactions = append(result.Redactions, Redaction{
				Type:        string(p.piiType),
				Replacement: replacement,
				Position:    match[0],
			})
			result.Content = result.Content[:match[0]] + replacement + result.Content[match[1]:]
			result.Modified = true
		}
	}
	return result
}

// CheckInput blocks input containing any enabled PII type.
func (f *PIIFilter) CheckInput(ctx context.Context, input string) CheckResult {
	if input == "" {
		return CheckResult{}
	}
	for _, p := range f.patterns {
		if !f.enabledPII[p.piiType] {
			continue
		}
		select {
		case <-ctx.Done():
			return CheckResult{}
		default:
		}
		if p.pattern.MatchString(input) {
			return CheckResult{
				Blocked:    true,
				Reason:     "PII detected in input: " + string(p.piiType),
				Confidence: 1.0,
				Metadata:   map[string]any{"pii_type": string(p.piiType)},
			}
		}
	}
	return CheckResult{}
}

// WithPIIFilter adds PII filtering to the output chain.
func WithPIIFilter(mode PIIFilterMode, opts ...PIIFilterOption) Option {
	return WithOutputFilter(NewPIIFilter(mode, opts...))
}

// WithPIIInputChecker blocks goals that carry PII.
func WithPIIInputChecker(opts ...PIIFilterOption) Option {
	return func(g *Guardrails) {
		g.inputCheckers = append(g.inputCheckers, NewPIIFilter(PIIFilterMask, opts...))
	}
}
