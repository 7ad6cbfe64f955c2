// Package llm defines the completion API boundary the orchestration core
// consumes. The planner and the iterator are the only core callers; both make
// single blocking completions, so the boundary is a one-shot request/response
// rather than a conversational exchange.
package llm

import "context"

// FinishReason reports why the model stopped generating.
type FinishReason string

const (
	FinishStop    FinishReason = "stop"
	FinishLength  FinishReason = "length"
	FinishUnknown FinishReason = ""
)

// CompletionRequest encapsulates one completion round trip.
type CompletionRequest struct {
	// System sets the system prompt for the completion.
	System string `json:"system,omitempty"`

	// Prompt is the user-visible request body.
	Prompt string `json:"prompt"`

	// MaxTokens bounds the response length. Zero lets the provider decide.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls sampling. Plan generation deliberately pins this
	// low (0.3) for reproducible plans; callers must not raise it for
	// planning or remediation.
	Temperature float64 `json:"temperature,omitempty"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse encapsulates the output from the model.
type CompletionResponse struct {
	Text         string       `json:"text"`
	Usage        Usage        `json:"usage"`
	FinishReason FinishReason `json:"finish_reason"`
}

// Provider defines the interface for completion backends.
type Provider interface {
	// Complete sends one completion request and blocks until the response
	// arrives or ctx is done.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
