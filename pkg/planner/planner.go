// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

// Package planner turns a natural-language goal into an ordered step
// sequence by prompting the completion provider with the tool catalog
// and parsing the structured output into a core.Plan.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jllopis/praxis/pkg/core"
	perrors "github.com/jllopis/praxis/pkg/errors"
	"github.com/jllopis/praxis/pkg/llm"
	"github.com/jllopis/praxis/pkg/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// planTemperature is fixed low so repeated planning of the same goal
// yields reproducible step sequences. Remediation in the iterator uses
// the same value; callers must not raise it.
const planTemperature = 0.3

const (
	defaultMaxTokens  = 2048
	defaultRetrievalK = 3
)

// Catalog renders the available tools for the planning prompt.
// *tools.Registry satisfies it.
type Catalog interface {
	Catalog() string
}

// Retriever supplies prior-run context strings for the planning prompt.
// A retrieval failure degrades planning context; it never fails the plan.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]string, error)
}

// Planner creates one plan per goal. Instances are cheap and not shared
// between concurrent runs.
type Planner struct {
	provider     llm.Provider
	catalog      Catalog
	retriever    Retriever
	retrieveK    int
	maxTokens    int
	provName     string
	instructions string
	tracer       trace.Tracer
	metrics      *telemetry.RunMetrics
}

// Option configures a Planner.
type Option func(*Planner)

// WithRetriever attaches a prior-run retriever. At most k context
// strings are appended to the planning prompt; k <= 0 keeps the default.
func WithRetriever(r Retriever, k int) Option {
	return func(p *Planner) {
		p.retriever = r
		if k > 0 {
			p.retrieveK = k
		}
	}
}

// WithMaxTokens bounds the plan completion.
func WithMaxTokens(n int) Option {
	return func(p *Planner) {
		if n > 0 {
			p.maxTokens = n
		}
	}
}

// WithProviderName labels LLM latency metrics with the configured
// provider name.
func WithProviderName(name string) Option {
	return func(p *Planner) { p.provName = name }
}

// WithInstructions injects workspace instructions (for example the
// contents of an AGENTS.md file) into every planning prompt.
func WithInstructions(text string) Option {
	return func(p *Planner) { p.instructions = strings.TrimSpace(text) }
}

// WithMetrics attaches run metrics.
func WithMetrics(m *telemetry.RunMetrics) Option {
	return func(p *Planner) { p.metrics = m }
}

// New creates a Planner over the given completion provider and tool
// catalog.
func New(provider llm.Provider, catalog Catalog, opts ...Option) *Planner {
	p := &Planner{
		provider:  provider,
		catalog:   catalog,
		retrieveK: defaultRetrievalK,
		maxTokens: defaultMaxTokens,
		tracer:    otel.Tracer("praxis/planner"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CreatePlan produces the ordered step sequence for a goal. Any failure
// here is fatal for the run: a completion error or unparseable output
// returns a planning-coded error and no steps execute. Step ordering is
// exactly the order the model returned; Dependencies is advisory
// metadata and never drives scheduling.
func (p *Planner) CreatePlan(ctx context.Context, goal string, execCtx *core.ExecutionContext) (*core.Plan, error) {
	if strings.TrimSpace(goal) == "" {
		return nil, perrors.New(perrors.CodeInvalidInput, "goal is empty", nil)
	}
	if p.provider == nil {
		return nil, perrors.New(perrors.CodePlanning, "no completion provider configured", nil)
	}

	ctx, runID := core.EnsureRunID(ctx)
	ctx, span := p.tracer.Start(ctx, "Planner.CreatePlan",
		trace.WithAttributes(attribute.String(telemetry.AttrRunID, runID)))
	defer span.End()
	log := slog.Default()

	execCtx.Log(core.LogInfo, fmt.Sprintf("planning: requesting plan for goal %q", goal))

	retrieved := p.retrieve(ctx, log, runID, goal)

	req := llm.CompletionRequest{
		System:      planSystemPrompt,
		Prompt:      p.buildPrompt(goal, execCtx, retrieved),
		MaxTokens:   p.maxTokens,
		Temperature: planTemperature,
	}

	start := time.Now()
	resp, err := p.provider.Complete(ctx, req)
	durationMs := time.Since(start).Seconds() * 1000
	if p.metrics != nil {
		p.metrics.RecordLLMLatency(ctx, p.provName, durationMs)
	}
	if err != nil {
		execCtx.Log(core.LogError, fmt.Sprintf("planning: completion request failed: %v", err))
		log.Error("planner.completion.error",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		return nil, perrors.New(perrors.CodePlanning, "plan completion failed", err)
	}
	span.SetAttributes(telemetry.LLMUsageAttributes(resp.Usage.PromptTokens, resp.Usage.CompletionTokens, durationMs, string(resp.FinishReason))...)

	plan, err := ParsePlan(resp.Text)
	if err != nil {
		execCtx.Log(core.LogError, fmt.Sprintf("planning: could not parse plan: %v", err))
		log.Error("planner.parse.error",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		return nil, perrors.New(perrors.CodePlanning, "plan output was not parseable", err)
	}

	span.SetAttributes(telemetry.PlanAttributes(plan.Digest(), len(plan.Steps), false)...)
	execCtx.Log(core.LogInfo, fmt.Sprintf("planning: received plan with %d steps", len(plan.Steps)))
	log.Info("planner.plan.created",
		slog.String("run_id", runID),
		slog.Int("steps", len(plan.Steps)),
		slog.String("plan_digest", plan.Digest()),
	)
	return plan, nil
}

// retrieve gathers prior-run context strings. Best effort only.
func (p *Planner) retrieve(ctx context.Context, log *slog.Logger, runID, goal string) []string {
	if p.retriever == nil {
		return nil
	}
	items, err := p.retriever.Retrieve(ctx, goal, p.retrieveK)
	if err != nil {
		log.Warn("planner.retrieve.error",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if len(items) > p.retrieveK {
		items = items[:p.retrieveK]
	}
	return items
}

const planSystemPrompt = `You are the planning component of a coding agent. You translate a goal into an ordered sequence of tool invocations.

Respond with ONLY a JSON object, no prose and no code fences, matching this schema:
{
  "steps": [
    {"id": "step-1", "description": "what this step does", "tool": "tool name", "params": {}, "dependencies": []}
  ],
  "reasoning": "why this sequence achieves the goal",
  "estimatedStepCount": 1
}

Rules:
- Use only the tools listed in the prompt, with their documented parameters.
- Steps execute strictly in list order. "dependencies" is informational only.
- Prefer the smallest number of steps that achieves the goal.
- Paths are relative to the working directory.`

func (p *Planner) buildPrompt(goal string, execCtx *core.ExecutionContext, retrieved []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n", goal)
	if execCtx != nil && execCtx.WorkingDirectory != "" {
		fmt.Fprintf(&b, "\nWorking directory: %s\n", execCtx.WorkingDirectory)
	}
	if p.catalog != nil {
		if catalog := p.catalog.Catalog(); catalog != "" {
			fmt.Fprintf(&b, "\nAvailable tools:\n%s", catalog)
		}
	}
	if p.instructions != "" {
		fmt.Fprintf(&b, "\nWorkspace instructions:\n%s\n", p.instructions)
	}
	if len(retrieved) > 0 {
		b.WriteString("\nContext from previous runs:\n")
		for _, item := range retrieved {
			fmt.Fprintf(&b, "- %s\n", item)
		}
	}
	return b.String()
}
