package core

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

// LogLevel for execution context log entries.
const (
	LogInfo  = "info"
	LogWarn  = "warn"
	LogError = "error"
)

// LogEntry is one append-only, timestamped line in a run's audit trail.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// CommandRecord captures one executed command reported by a tool.
type CommandRecord struct {
	Command string    `json:"command"`
	At      time.Time `json:"at"`
}

// ExecutionContext is the per-goal mutable record of logs, modified files,
// and executed commands. It is exclusively owned by one agent run and is not
// safe for concurrent use; isolation comes from one-context-per-run, not
// from locking.
type ExecutionContext struct {
	Goal             string
	WorkingDirectory string

	filesModified []string
	seenFiles     map[string]struct{}
	commandsRun   []CommandRecord
	logs          []LogEntry
}

// NewExecutionContext creates a context for a single run of the given goal.
func NewExecutionContext(goal, workingDirectory string) *ExecutionContext {
	return &ExecutionContext{
		Goal:             goal,
		WorkingDirectory: workingDirectory,
		seenFiles:        make(map[string]struct{}),
	}
}

// AddFileModified records a modified path, preserving insertion order and
// dropping duplicates.
func (c *ExecutionContext) AddFileModified(path string) {
	if path == "" {
		return
	}
	if c.seenFiles == nil {
		c.seenFiles = make(map[string]struct{})
	}
	if _, ok := c.seenFiles[path]; ok {
		return
	}
	c.seenFiles[path] = struct{}{}
	c.filesModified = append(c.filesModified, path)
}

// FilesModified returns the deduplicated modified paths in insertion order.
func (c *ExecutionContext) FilesModified() []string {
	return append([]string(nil), c.filesModified...)
}

// RecordCommand appends an executed command to the audit trail.
func (c *ExecutionContext) RecordCommand(command string) {
	if command == "" {
		return
	}
	c.commandsRun = append(c.commandsRun, CommandRecord{Command: command, At: time.Now().UTC()})
}

// CommandsRun returns the recorded commands in execution order.
func (c *ExecutionContext) CommandsRun() []CommandRecord {
	return append([]CommandRecord(nil), c.commandsRun...)
}

// Log appends an entry to the run's audit trail. Entries are append-only;
// nothing in the core rewrites history.
func (c *ExecutionContext) Log(level, message string) {
	c.logs = append(c.logs, LogEntry{Time: time.Now().UTC(), Level: level, Message: message})
}

// Logs returns a copy of the audit trail.
func (c *ExecutionContext) Logs() []LogEntry {
	return append([]LogEntry(nil), c.logs...)
}

type runIDKey struct{}

// WithRunID attaches a run id to the context.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the run id if present.
func RunID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey{}).(string)
	return id, ok
}

// EnsureRunID ensures a run id exists in the context.
func EnsureRunID(ctx context.Context) (context.Context, string) {
	if id, ok := RunID(ctx); ok {
		return ctx, id
	}
	id := newRunID()
	return WithRunID(ctx, id), id
}

func newRunID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "run-unknown"
	}
	return "run-" + hex.EncodeToString(buf)
}
