// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package ptesting

import (
	"fmt"
	"strings"
	"testing"

	"github.com/jllopis/praxis/pkg/agent"
	"github.com/jllopis/praxis/pkg/core"
)

// Assertions provides assertion helpers for testing.
type Assertions struct {
	t      *testing.T
	failed bool
}

// NewAssertions creates a new assertions helper.
func NewAssertions(t *testing.T) *Assertions {
	return &Assertions{t: t}
}

// Failed returns true if any assertion has failed.
func (a *Assertions) Failed() bool {
	return a.failed
}

// AssertEqual asserts that two values are equal.
func (a *Assertions) AssertEqual(expected, actual any, msg string) {
	a.t.Helper()
	if expected != actual {
		a.t.Errorf("%s: expected %v, got %v", msg, expected, actual)
		a.failed = true
	}
}

// AssertNotEqual asserts that two values are not equal.
func (a *Assertions) AssertNotEqual(expected, actual any, msg string) {
	a.t.Helper()
	if expected == actual {
		a.t.Errorf("%s: expected not %v, got %v", msg, expected, actual)
		a.failed = true
	}
}

// AssertNil asserts that the value is nil.
func (a *Assertions) AssertNil(value any, msg string) {
	a.t.Helper()
	if value != nil {
		a.t.Errorf("%s: expected nil, got %v", msg, value)
		a.failed = true
	}
}

// AssertNotNil asserts that the value is not nil.
func (a *Assertions) AssertNotNil(value any, msg string) {
	a.t.Helper()
	if value == nil {
		a.t.Errorf("%s: expected non-nil value", msg)
		a.failed = true
	}
}

// AssertTrue asserts that the value is true.
func (a *Assertions) AssertTrue(value bool, msg string) {
	a.t.Helper()
	if !value {
		a.t.Errorf("%s: expected true", msg)
		a.failed = true
	}
}

// AssertFalse asserts that the value is false.
func (a *Assertions) AssertFalse(value bool, msg string) {
	a.t.Helper()
	if value {
		a.t.Errorf("%s: expected false", msg)
		a.failed = true
	}
}

// AssertContains asserts that the string contains the substring.
func (a *Assertions) AssertContains(s, substr, msg string) {
	a.t.Helper()
	if !strings.Contains(s, substr) {
		a.t.Errorf("%s: %q does not contain %q", msg, s, substr)
		a.failed = true
	}
}

// AssertNotContains asserts that the string does not contain the substring.
func (a *Assertions) AssertNotContains(s, substr, msg string) {
	a.t.Helper()
	if strings.Contains(s, substr) {
		a.t.Errorf("%s: %q should not contain %q", msg, s, substr)
		a.failed = true
	}
}

// AssertError asserts that the error is not nil.
func (a *Assertions) AssertError(err error, msg string) {
	a.t.Helper()
	if err == nil {
		a.t.Errorf("%s: expected error, got nil", msg)
		a.failed = true
	}
}

// AssertNoError asserts that the error is nil.
func (a *Assertions) AssertNoError(err error, msg string) {
	a.t.Helper()
	if err != nil {
		a.t.Errorf("%s: unexpected error: %v", msg, err)
		a.failed = true
	}
}

// AssertErrorContains asserts that the error message contains the substring.
func (a *Assertions) AssertErrorContains(err error, substr, msg string) {
	a.t.Helper()
	if err == nil {
		a.t.Errorf("%s: expected error containing %q, got nil", msg, substr)
		a.failed = true
		return
	}
	if !strings.Contains(err.Error(), substr) {
		a.t.Errorf("%s: error %q does not contain %q", msg, err.Error(), substr)
		a.failed = true
	}
}

// AssertLen asserts the length of a slice or map.
func (a *Assertions) AssertLen(value any, expected int, msg string) {
	a.t.Helper()
	var length int
	switch v := value.(type) {
	case string:
		length = len(v)
	case []any:
		length = len(v)
	case []string:
		length = len(v)
	case []core.Step:
		length = len(v)
	case []core.CommandRecord:
		length = len(v)
	case []agent.JournalEntry:
		length = len(v)
	case map[string]any:
		length = len(v)
	default:
		a.t.Errorf("%s: cannot get length of %T", msg, value)
		a.failed = true
		return
	}
	if length != expected {
		a.t.Errorf("%s: expected length %d, got %d", msg, expected, length)
		a.failed = true
	}
}

// RunAssertions provides assertion helpers for run results.
type RunAssertions struct {
	*Assertions
	result *agent.RunResult
}

// AssertRun creates run assertions for the given result.
func (a *Assertions) AssertRun(result *agent.RunResult) *RunAssertions {
	a.t.Helper()
	if result == nil {
		a.t.Error("run result is nil")
		a.failed = true
		return &RunAssertions{Assertions: a, result: &agent.RunResult{}}
	}
	return &RunAssertions{Assertions: a, result: result}
}

// Completed asserts the run finished in the completed state.
func (r *RunAssertions) Completed() *RunAssertions {
	return r.HasState(agent.StateCompleted)
}

// Failed asserts the run finished in the failed state.
func (r *RunAssertions) Failed() *RunAssertions {
	return r.HasState(agent.StateFailed)
}

// HasState asserts the run finished in the given state.
func (r *RunAssertions) HasState(state agent.State) *RunAssertions {
	r.t.Helper()
	if r.result.State != state {
		r.t.Errorf("expected state %q, got %q", state, r.result.State)
		r.failed = true
	}
	return r
}

// HasRunID asserts the result carries a run id.
func (r *RunAssertions) HasRunID() *RunAssertions {
	r.t.Helper()
	if r.result.RunID == "" {
		r.t.Error("expected a run id, got none")
		r.failed = true
	}
	return r
}

// HasCompletedSteps asserts the number of completed steps.
func (r *RunAssertions) HasCompletedSteps(count int) *RunAssertions {
	r.t.Helper()
	if len(r.result.CompletedSteps) != count {
		r.t.Errorf("expected %d completed steps, got %d: %v", count, len(r.result.CompletedSteps), r.result.CompletedSteps)
		r.failed = true
	}
	return r
}

// HasNoFailedSteps asserts no step failed.
func (r *RunAssertions) HasNoFailedSteps() *RunAssertions {
	r.t.Helper()
	if len(r.result.FailedSteps) > 0 {
		r.t.Errorf("expected no failed steps, got: %v", r.result.FailedSteps)
		r.failed = true
	}
	return r
}

// HasFailedStep asserts the step with the given id failed.
func (r *RunAssertions) HasFailedStep(stepID string) *RunAssertions {
	r.t.Helper()
	for _, id := range r.result.FailedSteps {
		if id == stepID {
			return r
		}
	}
	r.t.Errorf("step %q did not fail, failed steps: %v", stepID, r.result.FailedSteps)
	r.failed = true
	return r
}

// ModifiedFile asserts the run modified the given path.
func (r *RunAssertions) ModifiedFile(path string) *RunAssertions {
	r.t.Helper()
	for _, f := range r.result.FilesModified {
		if f == path {
			return r
		}
	}
	r.t.Errorf("file %q was not modified, got: %v", path, r.result.FilesModified)
	r.failed = true
	return r
}

// ModifiedNothing asserts the run touched no files.
func (r *RunAssertions) ModifiedNothing() *RunAssertions {
	r.t.Helper()
	if len(r.result.FilesModified) > 0 {
		r.t.Errorf("expected no modified files, got: %v", r.result.FilesModified)
		r.failed = true
	}
	return r
}

// RanCommand asserts a recorded command contains the substring.
func (r *RunAssertions) RanCommand(contains string) *RunAssertions {
	r.t.Helper()
	for _, c := range r.result.Commands {
		if strings.Contains(c.Command, contains) {
			return r
		}
	}
	r.t.Errorf("no command containing %q, got: %s", contains, FormatCommands(r.result.Commands))
	r.failed = true
	return r
}

// HasPlanSteps asserts a preview result carries a plan with the given
// number of steps.
func (r *RunAssertions) HasPlanSteps(count int) *RunAssertions {
	r.t.Helper()
	if r.result.Plan == nil {
		r.t.Errorf("expected a plan with %d steps, result has no plan", count)
		r.failed = true
		return r
	}
	if len(r.result.Plan.Steps) != count {
		r.t.Errorf("expected %d plan steps, got %d", count, len(r.result.Plan.Steps))
		r.failed = true
	}
	return r
}

// Quick assertion functions for common patterns

// RequireNoError fails the test immediately if err is not nil.
func RequireNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", msg, err)
	}
}

// RequireEqual fails the test immediately if values are not equal.
func RequireEqual(t *testing.T, expected, actual any, msg string) {
	t.Helper()
	if expected != actual {
		t.Fatalf("%s: expected %v, got %v", msg, expected, actual)
	}
}

// RequireNotNil fails the test immediately if value is nil.
func RequireNotNil(t *testing.T, value any, msg string) {
	t.Helper()
	if value == nil {
		t.Fatalf("%s: expected non-nil value", msg)
	}
}

// AssertStepParams validates a step's tool and returns its params.
func AssertStepParams(t *testing.T, step core.Step, expectedTool string) map[string]any {
	t.Helper()
	if step.ToolName != expectedTool {
		t.Errorf("expected tool %q, got %q", expectedTool, step.ToolName)
	}
	return step.Params
}

// FormatCommands formats recorded commands for error messages.
func FormatCommands(records []core.CommandRecord) string {
	if len(records) == 0 {
		return "(none)"
	}
	commands := make([]string, len(records))
	for i, rec := range records {
		commands[i] = rec.Command
	}
	return fmt.Sprintf("[%s]", strings.Join(commands, ", "))
}
