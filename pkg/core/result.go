package core

import "fmt"

// Metadata keys recognized by the executor when merging tool side effects
// into the execution context. Tools that mutate files or run processes MUST
// populate these or the context's audit trail under-counts.
const (
	MetaFilesModified = "filesModified"
	MetaCommand       = "command"
)

// ExecutionResult is the uniform outcome of a tool invocation. Failures are
// data, not control flow: tools and the executor return failed results
// instead of raising, so the agent loop can decide about retries.
type ExecutionResult struct {
	Success  bool           `json:"success"`
	Output   string         `json:"output"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Successf builds a success result with a formatted output message.
func Successf(format string, args ...any) ExecutionResult {
	return ExecutionResult{Success: true, Output: fmt.Sprintf(format, args...)}
}

// Failuref builds a failure result with a formatted error message.
func Failuref(format string, args ...any) ExecutionResult {
	return ExecutionResult{Success: false, Error: fmt.Sprintf(format, args...)}
}

// WithMetadata returns a copy of the result carrying the given metadata map.
func (r ExecutionResult) WithMetadata(md map[string]any) ExecutionResult {
	r.Metadata = md
	return r
}

// FilesModified extracts the MetaFilesModified entry, tolerating both
// []string and []any encodings (the latter appears after JSON round trips).
func (r ExecutionResult) FilesModified() []string {
	if r.Metadata == nil {
		return nil
	}
	switch v := r.Metadata[MetaFilesModified].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Command extracts the MetaCommand entry if present.
func (r ExecutionResult) Command() (string, bool) {
	if r.Metadata == nil {
		return "", false
	}
	s, ok := r.Metadata[MetaCommand].(string)
	return s, ok && s != ""
}
