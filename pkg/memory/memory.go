// Package memory stores summaries of finished runs and retrieves the ones
// relevant to a new goal. Retrieval output is plain strings appended to the
// planning prompt; backends range from a token-overlap fallback to a
// Qdrant-backed vector index fed by Ollama embeddings.
package memory

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RunSummary is the unit of run memory: one finished run reduced to the
// facts worth recalling when planning a later goal.
type RunSummary struct {
	RunID         string    `json:"runId"`
	Goal          string    `json:"goal"`
	Outcome       string    `json:"outcome"`
	FilesModified []string  `json:"filesModified,omitempty"`
	Commands      []string  `json:"commands,omitempty"`
	CompletedAt   time.Time `json:"completedAt"`
}

// Render returns the string form of the summary. Backends store and return
// this shape; the planner receives it verbatim as context.
func (s RunSummary) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "goal: %s\noutcome: %s", s.Goal, s.Outcome)
	if len(s.FilesModified) > 0 {
		fmt.Fprintf(&b, "\nfiles: %s", strings.Join(s.FilesModified, ", "))
	}
	if len(s.Commands) > 0 {
		fmt.Fprintf(&b, "\ncommands: %s", strings.Join(s.Commands, "; "))
	}
	return b.String()
}

// Retriever returns up to k stored summaries relevant to the query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]string, error)
}

// Recorder persists one finished run.
type Recorder interface {
	Record(ctx context.Context, summary RunSummary) error
}

// Memory is a retriever that also records. The runtime wires one in and
// hands its Retriever side to the planner.
type Memory interface {
	Retriever
	Recorder
}
