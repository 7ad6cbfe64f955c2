// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry provides OpenTelemetry integration with rich attributes
// for run observability.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Semantic conventions for praxis run telemetry.
// These follow OpenTelemetry naming conventions where applicable.
const (
	// Run attributes
	AttrRunID         = "praxis.run.id"
	AttrRunGoal       = "praxis.run.goal"
	AttrRunState      = "praxis.run.state"
	AttrRunAutonomous = "praxis.run.autonomous"
	AttrRunIteration  = "praxis.run.iteration"
	AttrRunMaxIter    = "praxis.run.max_iterations"

	// Plan attributes
	AttrPlanDigest    = "praxis.plan.digest"
	AttrPlanStepCount = "praxis.plan.step_count"
	AttrPlanPreviewed = "praxis.plan.previewed"

	// Step attributes
	AttrStepID         = "praxis.step.id"
	AttrStepTool       = "praxis.step.tool"
	AttrStepStatus     = "praxis.step.status"
	AttrStepAttempt    = "praxis.step.attempt"
	AttrStepDurationMs = "praxis.step.duration_ms"

	// Tool attributes
	AttrToolName       = "praxis.tool.name"
	AttrToolParams     = "praxis.tool.params"
	AttrToolOutput     = "praxis.tool.output"
	AttrToolDurationMs = "praxis.tool.duration_ms"
	AttrToolSuccess    = "praxis.tool.success"
	AttrToolSource     = "praxis.tool.source" // "local", "mcp"

	// Retry attributes
	AttrRetryAttempt   = "praxis.retry.attempt"
	AttrRetryBudget    = "praxis.retry.budget"
	AttrRetryRecovered = "praxis.retry.recovered"

	// LLM attributes (extending standard gen_ai conventions)
	AttrLLMModel        = "gen_ai.request.model"
	AttrLLMProvider     = "gen_ai.system"
	AttrLLMTokensInput  = "gen_ai.usage.input_tokens"
	AttrLLMTokensOutput = "gen_ai.usage.output_tokens"
	AttrLLMTokensTotal  = "gen_ai.usage.total_tokens"
	AttrLLMDurationMs   = "gen_ai.duration_ms"
	AttrLLMFinishReason = "gen_ai.finish_reason"

	// Governance attributes
	AttrPolicyDecision = "praxis.policy.decision"
	AttrPolicyRule     = "praxis.policy.rule"
	AttrApprovalID     = "praxis.approval.id"
	AttrApprovalStatus = "praxis.approval.status"

	// Task attributes
	AttrTaskID     = "praxis.task.id"
	AttrTaskGoal   = "praxis.task.goal"
	AttrTaskStatus = "praxis.task.status"

	// Memory attributes
	AttrMemoryBackend   = "praxis.memory.backend"
	AttrMemoryRetrieved = "praxis.memory.retrieved_count"
	AttrMemoryStored    = "praxis.memory.stored"
)

// RunAttributes returns common attributes for run spans.
func RunAttributes(runID, goal string, autonomous bool, iteration, maxIter int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrRunID, runID),
		attribute.Bool(AttrRunAutonomous, autonomous),
	}
	if goal != "" {
		if len(goal) > 200 {
			goal = goal[:200] + "..."
		}
		attrs = append(attrs, attribute.String(AttrRunGoal, goal))
	}
	if iteration > 0 {
		attrs = append(attrs, attribute.Int(AttrRunIteration, iteration))
	}
	if maxIter > 0 {
		attrs = append(attrs, attribute.Int(AttrRunMaxIter, maxIter))
	}
	return attrs
}

// PlanAttributes returns attributes describing a generated plan.
func PlanAttributes(digest string, stepCount int, previewed bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int(AttrPlanStepCount, stepCount),
		attribute.Bool(AttrPlanPreviewed, previewed),
	}
	if digest != "" {
		attrs = append(attrs, attribute.String(AttrPlanDigest, digest))
	}
	return attrs
}

// StepAttributes returns attributes for a step execution span.
func StepAttributes(stepID, tool, status string, attempt int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrStepID, stepID),
		attribute.String(AttrStepTool, tool),
	}
	if status != "" {
		attrs = append(attrs, attribute.String(AttrStepStatus, status))
	}
	if attempt > 0 {
		attrs = append(attrs, attribute.Int(AttrStepAttempt, attempt))
	}
	return attrs
}

// ToolCallAttributes returns attributes for a tool call span.
func ToolCallAttributes(name, source string, durationMs float64, success bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrToolName, name),
		attribute.String(AttrToolSource, source),
		attribute.Float64(AttrToolDurationMs, durationMs),
		attribute.Bool(AttrToolSuccess, success),
	}
}

// ToolParamsOutput returns attributes with tool parameters and output (truncated for safety).
func ToolParamsOutput(params, output string, maxLen int) []attribute.KeyValue {
	if maxLen <= 0 {
		maxLen = 500
	}
	attrs := []attribute.KeyValue{}
	if params != "" {
		if len(params) > maxLen {
			params = params[:maxLen] + "..."
		}
		attrs = append(attrs, attribute.String(AttrToolParams, params))
	}
	if output != "" {
		if len(output) > maxLen {
			output = output[:maxLen] + "..."
		}
		attrs = append(attrs, attribute.String(AttrToolOutput, output))
	}
	return attrs
}

// RetryAttributes returns attributes for a remediation attempt span.
func RetryAttributes(attempt, budget int, recovered bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrRetryAttempt, attempt),
		attribute.Int(AttrRetryBudget, budget),
		attribute.Bool(AttrRetryRecovered, recovered),
	}
}

// LLMAttributes returns attributes for completion call spans.
func LLMAttributes(model, provider string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrLLMModel, model),
	}
	if provider != "" {
		attrs = append(attrs, attribute.String(AttrLLMProvider, provider))
	}
	return attrs
}

// LLMUsageAttributes returns token usage attributes.
func LLMUsageAttributes(inputTokens, outputTokens int, durationMs float64, finishReason string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{}
	if inputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensInput, inputTokens))
	}
	if outputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensOutput, outputTokens))
	}
	if inputTokens > 0 || outputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensTotal, inputTokens+outputTokens))
	}
	if durationMs > 0 {
		attrs = append(attrs, attribute.Float64(AttrLLMDurationMs, durationMs))
	}
	if finishReason != "" {
		attrs = append(attrs, attribute.String(AttrLLMFinishReason, finishReason))
	}
	return attrs
}

// PolicyAttributes returns attributes for policy evaluation.
func PolicyAttributes(decision, rule string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrPolicyDecision, decision),
	}
	if rule != "" {
		attrs = append(attrs, attribute.String(AttrPolicyRule, rule))
	}
	return attrs
}

// ApprovalAttributes returns attributes for approval tracking.
func ApprovalAttributes(approvalID, status string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{}
	if approvalID != "" {
		attrs = append(attrs, attribute.String(AttrApprovalID, approvalID))
	}
	if status != "" {
		attrs = append(attrs, attribute.String(AttrApprovalStatus, status))
	}
	return attrs
}

// TaskAttributes returns attributes for task tracking.
func TaskAttributes(taskID, goal, status string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{}
	if taskID != "" {
		attrs = append(attrs, attribute.String(AttrTaskID, taskID))
	}
	if goal != "" {
		// Truncate long goals
		if len(goal) > 200 {
			goal = goal[:200] + "..."
		}
		attrs = append(attrs, attribute.String(AttrTaskGoal, goal))
	}
	if status != "" {
		attrs = append(attrs, attribute.String(AttrTaskStatus, status))
	}
	return attrs
}

// MemoryAttributes returns attributes for memory operations.
func MemoryAttributes(backend string, retrieved int, stored bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{}
	if backend != "" {
		attrs = append(attrs, attribute.String(AttrMemoryBackend, backend))
	}
	if retrieved > 0 {
		attrs = append(attrs, attribute.Int(AttrMemoryRetrieved, retrieved))
	}
	if stored {
		attrs = append(attrs, attribute.Bool(AttrMemoryStored, stored))
	}
	return attrs
}
