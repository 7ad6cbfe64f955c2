// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package ptesting

import (
	"encoding/json"

	"github.com/jllopis/praxis/pkg/core"
)

// StepBuilder helps construct plan steps for testing.
type StepBuilder struct {
	step core.Step
}

// NewStep creates a new step builder for the given step id and tool.
func NewStep(id, tool string) *StepBuilder {
	return &StepBuilder{
		step: core.Step{
			ID:       id,
			ToolName: tool,
			Params:   make(map[string]any),
		},
	}
}

// WithDescription sets the step description.
func (b *StepBuilder) WithDescription(desc string) *StepBuilder {
	b.step.Description = desc
	return b
}

// WithParam adds a parameter to the step.
func (b *StepBuilder) WithParam(key string, value any) *StepBuilder {
	b.step.Params[key] = value
	return b
}

// WithParams sets all parameters at once.
func (b *StepBuilder) WithParams(params map[string]any) *StepBuilder {
	b.step.Params = params
	return b
}

// DependsOn records the step ids this step depends on.
func (b *StepBuilder) DependsOn(ids ...string) *StepBuilder {
	b.step.Dependencies = append(b.step.Dependencies, ids...)
	return b
}

// Build creates the step.
func (b *StepBuilder) Build() core.Step {
	return b.step.Clone()
}

// PlanBuilder helps construct plans for testing. BuildJSON renders the
// plan in the document form the planner parses, so a built plan can be
// queued on a scripted provider as the model's planning response.
type PlanBuilder struct {
	plan core.Plan
}

// NewPlan creates a new plan builder.
func NewPlan() *PlanBuilder {
	return &PlanBuilder{}
}

// WithReasoning sets the plan reasoning.
func (b *PlanBuilder) WithReasoning(reasoning string) *PlanBuilder {
	b.plan.Reasoning = reasoning
	return b
}

// AddStep appends a step to the plan.
func (b *PlanBuilder) AddStep(step core.Step) *PlanBuilder {
	b.plan.Steps = append(b.plan.Steps, step)
	return b
}

// Build creates the plan. The estimated step count defaults to the
// number of steps when not set.
func (b *PlanBuilder) Build() *core.Plan {
	plan := b.plan.Clone()
	if plan.EstimatedStepCount <= 0 {
		plan.EstimatedStepCount = len(plan.Steps)
	}
	return plan
}

// BuildJSON renders the plan as a JSON document.
func (b *PlanBuilder) BuildJSON() string {
	raw, err := json.Marshal(b.Build())
	if err != nil {
		return "{}"
	}
	return string(raw)
}
