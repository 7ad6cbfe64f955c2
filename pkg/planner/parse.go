// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package planner

import (
	"fmt"

	"github.com/jllopis/praxis/pkg/core"
	"github.com/jllopis/praxis/pkg/llm"
)

// ParsePlan decodes model output into a validated core.Plan. Decoding
// runs the shared fallback chain (strict JSON, fence-stripped JSON,
// first balanced-brace substring) before giving up; the decoded plan is
// then normalized so every step has an id, a non-nil params map, and
// pending status.
func ParsePlan(raw string) (*core.Plan, error) {
	var plan core.Plan
	if err := llm.DecodeJSON(raw, &plan); err != nil {
		return nil, err
	}
	if len(plan.Steps) == 0 {
		return nil, fmt.Errorf("plan contains no steps")
	}
	for i := range plan.Steps {
		step := &plan.Steps[i]
		if step.ID == "" {
			step.ID = fmt.Sprintf("step-%d", i+1)
		}
		if step.ToolName == "" {
			return nil, fmt.Errorf("step %q has no tool", step.ID)
		}
		if step.Params == nil {
			step.Params = map[string]any{}
		}
		step.Status = core.StepStatusPending
	}
	if plan.EstimatedStepCount <= 0 {
		plan.EstimatedStepCount = len(plan.Steps)
	}
	return &plan, nil
}
