// Package core defines the shared data model for the Praxis orchestration
// loop: plans, steps, execution results, and the per-run execution context.
package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// StepStatus describes the lifecycle state of a step. Transitions are
// monotonic: pending -> in-progress -> completed or failed.
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusInProgress StepStatus = "in-progress"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusFailed     StepStatus = "failed"
)

// Step is one atomic tool invocation within a Plan. Params is an opaque map
// interpreted by the named tool. Dependencies is advisory metadata for
// observability; steps always execute strictly sequentially in list order.
type Step struct {
	ID           string         `json:"id"`
	Description  string         `json:"description"`
	ToolName     string         `json:"tool"`
	Params       map[string]any `json:"params"`
	Dependencies []string       `json:"dependencies,omitempty"`
	Status       StepStatus     `json:"status"`
}

// Clone returns a copy of the step with its own params map. Retried steps are
// new Step values; the original is never mutated through a clone.
func (s Step) Clone() Step {
	dup := s
	dup.Params = make(map[string]any, len(s.Params))
	for k, v := range s.Params {
		dup.Params[k] = v
	}
	if s.Dependencies != nil {
		dup.Dependencies = append([]string(nil), s.Dependencies...)
	}
	return dup
}

// Plan is the ordered step sequence produced by the planner for one goal.
// The step sequence is fixed once created; only each step's Status advances
// while the plan executes.
type Plan struct {
	Steps              []Step `json:"steps"`
	Reasoning          string `json:"reasoning"`
	EstimatedStepCount int    `json:"estimatedStepCount"`
}

// Clone returns a deep copy of the plan. Stores hand out clones so callers
// cannot mutate persisted plans through shared step params.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	dup := &Plan{
		Reasoning:          p.Reasoning,
		EstimatedStepCount: p.EstimatedStepCount,
	}
	if p.Steps != nil {
		dup.Steps = make([]Step, len(p.Steps))
		for i, s := range p.Steps {
			dup.Steps[i] = s.Clone()
		}
	}
	return dup
}

// StepByID returns the step with the given id, or nil if absent.
func (p *Plan) StepByID(id string) *Step {
	for i := range p.Steps {
		if p.Steps[i].ID == id {
			return &p.Steps[i]
		}
	}
	return nil
}

// Digest returns a stable hex digest of the plan's executable content
// (step ids, tools, and params). Two plans with the same digest request the
// same side effects, which is what approval records bind to.
func (p *Plan) Digest() string {
	type stepKey struct {
		ID     string         `json:"id"`
		Tool   string         `json:"tool"`
		Params map[string]any `json:"params"`
	}
	keys := make([]stepKey, 0, len(p.Steps))
	for _, s := range p.Steps {
		keys = append(keys, stepKey{ID: s.ID, Tool: s.ToolName, Params: canonicalMap(s.Params)})
	}
	raw, err := json.Marshal(keys)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// canonicalMap rebuilds a params map with sorted keys so the digest does not
// depend on Go map iteration order. encoding/json already sorts map keys, but
// nested any values may hold maps of their own.
func canonicalMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if nested, ok := m[k].(map[string]any); ok {
			out[k] = canonicalMap(nested)
			continue
		}
		out[k] = m[k]
	}
	return out
}
