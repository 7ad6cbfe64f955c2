// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	stderrors "errors"
	"fmt"

	"github.com/jllopis/praxis/pkg/errors"
)

// WrapPlanningError normalizes a planner failure. PraxisError values pass
// through untouched so the planner's own codes survive; anything else becomes
// a PLANNING_ERROR.
func WrapPlanningError(err error, goal string) *errors.PraxisError {
	if err == nil {
		return nil
	}
	var pe *errors.PraxisError
	if stderrors.As(err, &pe) {
		return pe
	}
	return errors.New(errors.CodePlanning, "planning failed", err).
		WithContext("goal", goal).
		WithRecoverable(false)
}

// NewStepFailedError reports a step that exhausted its attempts in a
// non-autonomous run.
func NewStepFailedError(stepID, reason string) *errors.PraxisError {
	return errors.New(errors.CodeAgent, fmt.Sprintf("step %s failed: %s", stepID, reason), nil).
		WithContext("step_id", stepID).
		WithAttribute("praxis.step.id", stepID).
		WithRecoverable(false)
}

// NewIterationLimitError reports a run that hit its iteration ceiling.
func NewIterationLimitError(limit int) *errors.PraxisError {
	return errors.New(errors.CodeAgent, fmt.Sprintf("iteration limit %d reached", limit), nil).
		WithContext("iteration_limit", limit).
		WithRecoverable(false)
}

// NewApprovalRequiredError reports an apply attempt against a plan digest with
// no approved record. Recoverable: approving the plan and re-applying succeeds.
func NewApprovalRequiredError(planDigest string) *errors.PraxisError {
	return errors.New(errors.CodeApprovalRequired, "plan is not approved", nil).
		WithContext("plan_digest", planDigest).
		WithAttribute("praxis.plan.digest", planDigest).
		WithRecoverable(true)
}

// NewCanceledError wraps a context cancellation observed between steps.
func NewCanceledError(cause error) *errors.PraxisError {
	return errors.New(errors.CodeCanceled, "run canceled", cause).
		WithRecoverable(false)
}

// NewInvalidInputError creates a new invalid input error.
func NewInvalidInputError(msg string) *errors.PraxisError {
	return errors.New(errors.CodeInvalidInput, msg, nil).
		WithRecoverable(false)
}
