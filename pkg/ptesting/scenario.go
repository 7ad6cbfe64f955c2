// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

// Package ptesting provides utilities for testing Praxis agents.
//
// This package includes:
//   - Scenario definitions for declarative run testing
//   - Plan and step builders that produce scripted planner output
//   - Assertion helpers for run results
//
// The package is named ptesting so importers do not collide with the
// standard library testing package.
//
// Example usage:
//
//	scenario := ptesting.NewScenario("notes test").
//	    WithGoal("record the release checklist in NOTES.md").
//	    ExpectNoError().
//	    ExpectState(agent.StateCompleted).
//	    ExpectFileModified("NOTES.md")
//
//	result := scenario.Run(t, ag)
//	result.Assert(t, scenario)
package ptesting

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jllopis/praxis/pkg/agent"
)

// Scenario defines a test scenario for one agent run.
type Scenario struct {
	name          string
	description   string
	goal          string
	context       context.Context
	timeout       time.Duration
	journal       agent.RunJournal
	expectations  []Expectation
	setupFuncs    []func() error
	teardownFuncs []func() error
}

// Expectation defines a condition to verify after running a scenario.
type Expectation interface {
	// Check verifies the expectation against the result.
	Check(result *ScenarioResult) error
	// Description returns a human-readable description of the expectation.
	Description() string
}

// ScenarioResult contains the outcome of running a scenario. Journal is
// populated only when the scenario was given a journal with WithJournal.
type ScenarioResult struct {
	Result   *agent.RunResult
	Err      error
	Duration time.Duration
	Journal  []agent.JournalEntry
}

// NewScenario creates a new test scenario with the given name.
func NewScenario(name string) *Scenario {
	return &Scenario{
		name:         name,
		timeout:      30 * time.Second,
		context:      context.Background(),
		expectations: make([]Expectation, 0),
	}
}

// WithDescription adds a description to the scenario.
func (s *Scenario) WithDescription(desc string) *Scenario {
	s.description = desc
	return s
}

// WithGoal sets the goal the agent runs.
func (s *Scenario) WithGoal(goal string) *Scenario {
	s.goal = goal
	return s
}

// WithContext sets the context for the scenario.
func (s *Scenario) WithContext(ctx context.Context) *Scenario {
	s.context = ctx
	return s
}

// WithTimeout sets the timeout for the scenario.
func (s *Scenario) WithTimeout(d time.Duration) *Scenario {
	s.timeout = d
	return s
}

// WithJournal attaches a run journal. After the run, entries for the
// run's id are loaded into the result so journal expectations can see
// them.
func (s *Scenario) WithJournal(j agent.RunJournal) *Scenario {
	s.journal = j
	return s
}

// WithSetup adds a setup function to run before the scenario.
func (s *Scenario) WithSetup(fn func() error) *Scenario {
	s.setupFuncs = append(s.setupFuncs, fn)
	return s
}

// WithTeardown adds a teardown function to run after the scenario.
func (s *Scenario) WithTeardown(fn func() error) *Scenario {
	s.teardownFuncs = append(s.teardownFuncs, fn)
	return s
}

// Expect adds an expectation to the scenario.
func (s *Scenario) Expect(exp Expectation) *Scenario {
	s.expectations = append(s.expectations, exp)
	return s
}

// ExpectState expects the run to finish in the given state.
func (s *Scenario) ExpectState(state agent.State) *Scenario {
	return s.Expect(&stateExpectation{state: state})
}

// ExpectNoError expects no error from the agent.
func (s *Scenario) ExpectNoError() *Scenario {
	return s.Expect(&noErrorExpectation{})
}

// ExpectError expects an error matching the given pattern.
func (s *Scenario) ExpectError(matcher StringMatcher) *Scenario {
	return s.Expect(&errorExpectation{matcher: matcher})
}

// ExpectCompletedSteps expects exactly n completed steps.
func (s *Scenario) ExpectCompletedSteps(n int) *Scenario {
	return s.Expect(&completedStepsExpectation{count: n})
}

// ExpectFailedSteps expects exactly n failed steps.
func (s *Scenario) ExpectFailedSteps(n int) *Scenario {
	return s.Expect(&failedStepsExpectation{count: n})
}

// ExpectFileModified expects the run to have modified the given path.
func (s *Scenario) ExpectFileModified(path string) *Scenario {
	return s.Expect(&fileModifiedExpectation{path: path})
}

// ExpectCommand expects a recorded command matching the given pattern.
func (s *Scenario) ExpectCommand(matcher StringMatcher) *Scenario {
	return s.Expect(&commandExpectation{matcher: matcher})
}

// ExpectLog expects a run log line matching the given pattern.
func (s *Scenario) ExpectLog(matcher StringMatcher) *Scenario {
	return s.Expect(&logExpectation{matcher: matcher})
}

// ExpectToolUsed expects a journal step entry naming the given tool.
// The scenario needs WithJournal for this expectation to observe
// anything.
func (s *Scenario) ExpectToolUsed(tool string) *Scenario {
	return s.Expect(&toolUsedExpectation{tool: tool})
}

// ExpectJournalEvent expects a journal entry with the given event name.
// The scenario needs WithJournal for this expectation to observe
// anything.
func (s *Scenario) ExpectJournalEvent(event string) *Scenario {
	return s.Expect(&journalEventExpectation{event: event})
}

// ExpectMinDuration expects the scenario to take at least the given duration.
func (s *Scenario) ExpectMinDuration(d time.Duration) *Scenario {
	return s.Expect(&minDurationExpectation{min: d})
}

// ExpectMaxDuration expects the scenario to complete within the given duration.
func (s *Scenario) ExpectMaxDuration(d time.Duration) *Scenario {
	return s.Expect(&maxDurationExpectation{max: d})
}

// GoalRunner is the interface for running agent scenarios. *agent.Agent
// satisfies it.
type GoalRunner interface {
	Execute(ctx context.Context, goal string) (*agent.RunResult, error)
}

// Run executes the scenario against the given runner.
func (s *Scenario) Run(t *testing.T, runner GoalRunner) *ScenarioResult {
	t.Helper()

	for _, setup := range s.setupFuncs {
		if err := setup(); err != nil {
			t.Fatalf("scenario %q setup failed: %v", s.name, err)
		}
	}

	defer func() {
		for _, teardown := range s.teardownFuncs {
			if err := teardown(); err != nil {
				t.Errorf("scenario %q teardown failed: %v", s.name, err)
			}
		}
	}()

	ctx, cancel := context.WithTimeout(s.context, s.timeout)
	defer cancel()

	start := time.Now()
	runResult, err := runner.Execute(ctx, s.goal)
	duration := time.Since(start)

	result := &ScenarioResult{
		Result:   runResult,
		Err:      err,
		Duration: duration,
	}

	// The journal read is not bound by the run timeout.
	if s.journal != nil && runResult != nil && runResult.RunID != "" {
		entries, jerr := s.journal.List(context.Background(), agent.JournalFilter{RunID: runResult.RunID})
		if jerr != nil {
			t.Errorf("scenario %q journal read failed: %v", s.name, jerr)
		}
		result.Journal = entries
	}

	return result
}

// Assert checks all expectations and reports failures to the test.
func (r *ScenarioResult) Assert(t *testing.T, scenario *Scenario) {
	t.Helper()

	for _, exp := range scenario.expectations {
		if err := exp.Check(r); err != nil {
			t.Errorf("expectation %q failed: %v", exp.Description(), err)
		}
	}
}

// StringMatcher defines how to match strings in expectations.
type StringMatcher interface {
	Match(s string) bool
	Description() string
}

// Contains returns a matcher that checks if the string contains the substring.
func Contains(substr string) StringMatcher {
	return &containsMatcher{substr: substr}
}

// Equals returns a matcher that checks exact string equality.
func Equals(expected string) StringMatcher {
	return &equalsMatcher{expected: expected}
}

// Regex returns a matcher that checks against a regular expression. The
// pattern is compiled once; an invalid pattern never matches.
func Regex(pattern string) StringMatcher {
	re, _ := regexp.Compile(pattern)
	return &regexMatcher{pattern: pattern, re: re}
}

// HasPrefix returns a matcher that checks if the string has the given prefix.
func HasPrefix(prefix string) StringMatcher {
	return &prefixMatcher{prefix: prefix}
}

// HasSuffix returns a matcher that checks if the string has the given suffix.
func HasSuffix(suffix string) StringMatcher {
	return &suffixMatcher{suffix: suffix}
}

// containsMatcher checks if a string contains a substring.
type containsMatcher struct {
	substr string
}

func (m *containsMatcher) Match(s string) bool {
	return strings.Contains(s, m.substr)
}

func (m *containsMatcher) Description() string {
	return fmt.Sprintf("contains %q", m.substr)
}

// equalsMatcher checks exact string equality.
type equalsMatcher struct {
	expected string
}

func (m *equalsMatcher) Match(s string) bool {
	return s == m.expected
}

func (m *equalsMatcher) Description() string {
	return fmt.Sprintf("equals %q", m.expected)
}

// regexMatcher checks against a compiled regular expression.
type regexMatcher struct {
	pattern string
	re      *regexp.Regexp
}

func (m *regexMatcher) Match(s string) bool {
	if m.re == nil {
		return false
	}
	return m.re.MatchString(s)
}

func (m *regexMatcher) Description() string {
	return fmt.Sprintf("matches regex %q", m.pattern)
}

// prefixMatcher checks if a string has the given prefix.
type prefixMatcher struct {
	prefix string
}

func (m *prefixMatcher) Match(s string) bool {
	return strings.HasPrefix(s, m.prefix)
}

func (m *prefixMatcher) Description() string {
	return fmt.Sprintf("has prefix %q", m.prefix)
}

// suffixMatcher checks if a string has the given suffix.
type suffixMatcher struct {
	suffix string
}

func (m *suffixMatcher) Match(s string) bool {
	return strings.HasSuffix(s, m.suffix)
}

func (m *suffixMatcher) Description() string {
	return fmt.Sprintf("has suffix %q", m.suffix)
}

// Expectation implementations

type stateExpectation struct {
	state agent.State
}

func (e *stateExpectation) Check(r *ScenarioResult) error {
	if r.Result == nil {
		return fmt.Errorf("expected state %q, run produced no result", e.state)
	}
	if r.Result.State != e.state {
		return fmt.Errorf("expected state %q, got %q", e.state, r.Result.State)
	}
	return nil
}

func (e *stateExpectation) Description() string {
	return fmt.Sprintf("state %q", e.state)
}

type noErrorExpectation struct{}

func (e *noErrorExpectation) Check(r *ScenarioResult) error {
	if r.Err != nil {
		return fmt.Errorf("expected no error, got: %v", r.Err)
	}
	return nil
}

func (e *noErrorExpectation) Description() string {
	return "no error"
}

type errorExpectation struct {
	matcher StringMatcher
}

func (e *errorExpectation) Check(r *ScenarioResult) error {
	if r.Err == nil {
		return fmt.Errorf("expected error matching %s, got nil", e.matcher.Description())
	}
	if !e.matcher.Match(r.Err.Error()) {
		return fmt.Errorf("error %q does not match: %s", r.Err.Error(), e.matcher.Description())
	}
	return nil
}

func (e *errorExpectation) Description() string {
	return fmt.Sprintf("error %s", e.matcher.Description())
}

type completedStepsExpectation struct {
	count int
}

func (e *completedStepsExpectation) Check(r *ScenarioResult) error {
	if r.Result == nil {
		return fmt.Errorf("expected %d completed steps, run produced no result", e.count)
	}
	if got := len(r.Result.CompletedSteps); got != e.count {
		return fmt.Errorf("expected %d completed steps, got %d: %v", e.count, got, r.Result.CompletedSteps)
	}
	return nil
}

func (e *completedStepsExpectation) Description() string {
	return fmt.Sprintf("%d completed steps", e.count)
}

type failedStepsExpectation struct {
	count int
}

func (e *failedStepsExpectation) Check(r *ScenarioResult) error {
	if r.Result == nil {
		return fmt.Errorf("expected %d failed steps, run produced no result", e.count)
	}
	if got := len(r.Result.FailedSteps); got != e.count {
		return fmt.Errorf("expected %d failed steps, got %d: %v", e.count, got, r.Result.FailedSteps)
	}
	return nil
}

func (e *failedStepsExpectation) Description() string {
	return fmt.Sprintf("%d failed steps", e.count)
}

type fileModifiedExpectation struct {
	path string
}

func (e *fileModifiedExpectation) Check(r *ScenarioResult) error {
	if r.Result == nil {
		return fmt.Errorf("expected %q modified, run produced no result", e.path)
	}
	for _, f := range r.Result.FilesModified {
		if f == e.path {
			return nil
		}
	}
	return fmt.Errorf("file %q was not modified, got: %v", e.path, r.Result.FilesModified)
}

func (e *fileModifiedExpectation) Description() string {
	return fmt.Sprintf("file %q modified", e.path)
}

type commandExpectation struct {
	matcher StringMatcher
}

func (e *commandExpectation) Check(r *ScenarioResult) error {
	if r.Result == nil {
		return fmt.Errorf("expected command matching %s, run produced no result", e.matcher.Description())
	}
	for _, c := range r.Result.Commands {
		if e.matcher.Match(c.Command) {
			return nil
		}
	}
	return fmt.Errorf("no command matches %s, got: %s", e.matcher.Description(), FormatCommands(r.Result.Commands))
}

func (e *commandExpectation) Description() string {
	return fmt.Sprintf("command %s", e.matcher.Description())
}

type logExpectation struct {
	matcher StringMatcher
}

func (e *logExpectation) Check(r *ScenarioResult) error {
	if r.Result == nil {
		return fmt.Errorf("expected log matching %s, run produced no result", e.matcher.Description())
	}
	for _, entry := range r.Result.Logs {
		if e.matcher.Match(entry.Message) {
			return nil
		}
	}
	return fmt.Errorf("no log line matches %s in %d entries", e.matcher.Description(), len(r.Result.Logs))
}

func (e *logExpectation) Description() string {
	return fmt.Sprintf("log %s", e.matcher.Description())
}

type toolUsedExpectation struct {
	tool string
}

func (e *toolUsedExpectation) Check(r *ScenarioResult) error {
	if len(r.Journal) == 0 {
		return fmt.Errorf("tool %q not observed; the scenario has no journal entries", e.tool)
	}
	for _, entry := range r.Journal {
		if entry.Tool == e.tool {
			return nil
		}
	}
	return fmt.Errorf("tool %q does not appear in %d journal entries", e.tool, len(r.Journal))
}

func (e *toolUsedExpectation) Description() string {
	return fmt.Sprintf("tool %q used", e.tool)
}

type journalEventExpectation struct {
	event string
}

func (e *journalEventExpectation) Check(r *ScenarioResult) error {
	if len(r.Journal) == 0 {
		return fmt.Errorf("event %q not observed; the scenario has no journal entries", e.event)
	}
	for _, entry := range r.Journal {
		if entry.Event == e.event {
			return nil
		}
	}
	return fmt.Errorf("event %q does not appear in %d journal entries", e.event, len(r.Journal))
}

func (e *journalEventExpectation) Description() string {
	return fmt.Sprintf("journal event %q", e.event)
}

type minDurationExpectation struct {
	min time.Duration
}

func (e *minDurationExpectation) Check(r *ScenarioResult) error {
	if r.Duration < e.min {
		return fmt.Errorf("duration %v is less than minimum %v", r.Duration, e.min)
	}
	return nil
}

func (e *minDurationExpectation) Description() string {
	return fmt.Sprintf("duration >= %v", e.min)
}

type maxDurationExpectation struct {
	max time.Duration
}

func (e *maxDurationExpectation) Check(r *ScenarioResult) error {
	if r.Duration > e.max {
		return fmt.Errorf("duration %v exceeds maximum %v", r.Duration, e.max)
	}
	return nil
}

func (e *maxDurationExpectation) Description() string {
	return fmt.Sprintf("duration <= %v", e.max)
}
