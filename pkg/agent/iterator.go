// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jllopis/praxis/pkg/core"
	"github.com/jllopis/praxis/pkg/llm"
	"github.com/jllopis/praxis/pkg/telemetry"
	"github.com/jllopis/praxis/pkg/tools"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultMaxRetries    = 3
	remediationMaxTokens = 1024

	// Remediation completions use the same pinned temperature as plan
	// generation; callers must not raise it.
	remediationTemperature = 0.3
)

const remediationSystemPrompt = `You repair failed plan steps. Respond ONLY with a JSON object:
{"reasoning": "<why the step failed and what changes>", "modifiedParams": {<full replacement parameter map>}}
Rules:
- Set "modifiedParams" to null when no parameter change can fix the failure.
- The tool never changes; only its parameters may.
- Return the complete parameter map, not a diff.
- Keep file paths relative to the working directory.`

// stepFix is the remediation the model proposes for a failed step.
type stepFix struct {
	Reasoning      string         `json:"reasoning"`
	ModifiedParams map[string]any `json:"modifiedParams"`
}

// Iterator retries failed steps with LLM-proposed parameter fixes, within a
// per-step attempt budget. Like the execution context it belongs to a single
// run loop and is not safe for concurrent use.
type Iterator struct {
	provider   llm.Provider
	provName   string
	maxRetries int
	maxTokens  int
	attempts   map[string]int
	metrics    *telemetry.RunMetrics
	tracer     trace.Tracer
}

// IteratorOption configures an Iterator.
type IteratorOption func(*Iterator)

// NewIterator creates an iterator backed by the given completion provider.
func NewIterator(provider llm.Provider, opts ...IteratorOption) *Iterator {
	it := &Iterator{
		provider:   provider,
		maxRetries: defaultMaxRetries,
		maxTokens:  remediationMaxTokens,
		attempts:   make(map[string]int),
		tracer:     otel.Tracer("praxis/agent"),
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// WithMaxRetries sets the per-step remediation budget.
func WithMaxRetries(n int) IteratorOption {
	return func(it *Iterator) {
		if n >= 0 {
			it.maxRetries = n
		}
	}
}

// WithIteratorMetrics attaches run metrics.
func WithIteratorMetrics(m *telemetry.RunMetrics) IteratorOption {
	return func(it *Iterator) {
		it.metrics = m
	}
}

// WithIteratorProviderName labels LLM latency metrics with the provider name.
func WithIteratorProviderName(name string) IteratorOption {
	return func(it *Iterator) {
		it.provName = name
	}
}

// CanRetry reports whether the step has remediation budget left.
func (it *Iterator) CanRetry(stepID string) bool {
	if it.provider == nil {
		return false
	}
	return it.attempts[stepID] < it.maxRetries
}

// Attempts returns how many remediation attempts the step has consumed.
func (it *Iterator) Attempts(stepID string) int {
	return it.attempts[stepID]
}

// Reset clears all attempt counters for a new run.
func (it *Iterator) Reset() {
	it.attempts = make(map[string]int)
}

// RetryWithFix consumes one attempt: it asks the model for modified
// parameters, validates them, and re-executes the step once. When no usable
// fix comes back the original failure is returned unchanged.
func (it *Iterator) RetryWithFix(ctx context.Context, step core.Step, failed core.ExecutionResult, execCtx *core.ExecutionContext, exec *Executor) core.ExecutionResult {
	it.attempts[step.ID]++
	attempt := it.attempts[step.ID]

	ctx, span := it.tracer.Start(ctx, "Iterator.RetryWithFix", trace.WithAttributes(
		telemetry.StepAttributes(step.ID, step.ToolName, string(step.Status), attempt)...,
	))
	defer span.End()
	log := slog.Default()
	runID, _ := core.RunID(ctx)

	execCtx.Log(core.LogWarn, fmt.Sprintf("remediation attempt %d/%d for step %s", attempt, it.maxRetries, step.ID))

	fix, err := it.requestFix(ctx, step, failed)
	if err != nil {
		execCtx.Log(core.LogWarn, fmt.Sprintf("remediation request for step %s failed: %v", step.ID, err))
		log.Warn("iterator.remediation.error",
			slog.String("run_id", runID),
			slog.String("step_id", step.ID),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		span.SetAttributes(telemetry.RetryAttributes(attempt, it.maxRetries, false)...)
		it.metrics.RecordRetry(ctx, step.ToolName, false)
		return failed
	}
	if fix.ModifiedParams == nil {
		execCtx.Log(core.LogWarn, fmt.Sprintf("no fix available for step %s", step.ID))
		log.Info("iterator.remediation.nofix",
			slog.String("run_id", runID),
			slog.String("step_id", step.ID),
			slog.Int("attempt", attempt),
		)
		span.SetAttributes(telemetry.RetryAttributes(attempt, it.maxRetries, false)...)
		it.metrics.RecordRetry(ctx, step.ToolName, false)
		return failed
	}

	if tool, ok := exec.registry.Get(step.ToolName); ok {
		if validator, ok := tool.(tools.ParamValidator); ok {
			if err := validator.ValidateParams(fix.ModifiedParams); err != nil {
				execCtx.Log(core.LogError, fmt.Sprintf("remediated parameters for step %s are invalid: %v", step.ID, err))
				log.Warn("iterator.remediation.invalid",
					slog.String("run_id", runID),
					slog.String("step_id", step.ID),
					slog.Int("attempt", attempt),
					slog.String("error", err.Error()),
				)
				span.SetAttributes(telemetry.RetryAttributes(attempt, it.maxRetries, false)...)
				it.metrics.RecordRetry(ctx, step.ToolName, false)
				return failed
			}
		}
	}

	if reasoning := strings.TrimSpace(fix.Reasoning); reasoning != "" {
		execCtx.Log(core.LogInfo, fmt.Sprintf("remediation for step %s: %s", step.ID, reasoning))
	}
	execCtx.Log(core.LogInfo, fmt.Sprintf("retrying step %s with modified parameters", step.ID))

	retryStep := step.Clone()
	retryStep.Params = fix.ModifiedParams
	retryStep.Description = step.Description + " (retry with fix)"

	result := exec.ExecuteStep(ctx, retryStep, execCtx)
	span.SetAttributes(telemetry.RetryAttributes(attempt, it.maxRetries, result.Success)...)
	it.metrics.RecordRetry(ctx, step.ToolName, result.Success)
	log.Info("iterator.remediation.result",
		slog.String("run_id", runID),
		slog.String("step_id", step.ID),
		slog.Int("attempt", attempt),
		slog.Bool("recovered", result.Success),
	)
	return result
}

func (it *Iterator) requestFix(ctx context.Context, step core.Step, failed core.ExecutionResult) (*stepFix, error) {
	start := time.Now()
	resp, err := it.provider.Complete(ctx, llm.CompletionRequest{
		System:      remediationSystemPrompt,
		Prompt:      buildFixPrompt(step, failed),
		MaxTokens:   it.maxTokens,
		Temperature: remediationTemperature,
	})
	it.metrics.RecordLLMLatency(ctx, it.provName, time.Since(start).Seconds()*1000)
	if err != nil {
		return nil, err
	}

	var fix stepFix
	if err := llm.DecodeJSON(resp.Text, &fix); err != nil {
		return nil, err
	}
	return &fix, nil
}

func buildFixPrompt(step core.Step, failed core.ExecutionResult) string {
	params, err := json.Marshal(step.Params)
	if err != nil {
		params = []byte("{}")
	}

	var b strings.Builder
	b.WriteString("A plan step failed and may need modified parameters.\n\n")
	fmt.Fprintf(&b, "Step ID: %s\n", step.ID)
	fmt.Fprintf(&b, "Description: %s\n", step.Description)
	fmt.Fprintf(&b, "Tool: %s\n", step.ToolName)
	fmt.Fprintf(&b, "Parameters: %s\n", params)
	fmt.Fprintf(&b, "Error: %s\n", failed.Error)
	if out := strings.TrimSpace(failed.Output); out != "" {
		fmt.Fprintf(&b, "Tool output:\n%s\n", clipForPrompt(out, 2000))
	}
	return b.String()
}

// clipForPrompt bounds diagnostic text carried into remediation prompts.
func clipForPrompt(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n[... truncated]"
}
