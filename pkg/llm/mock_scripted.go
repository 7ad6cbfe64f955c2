package llm

import (
	"context"
	"errors"
	"sync"
)

// ScriptedProvider is a mock provider that returns a pre-defined sequence of
// responses and records every request it sees. Useful for testing multi-call
// flows (plan, then one or more remediations).
type ScriptedProvider struct {
	mu        sync.Mutex
	Responses []string
	Errs      []error
	// Requests captures each CompletionRequest in call order so tests can
	// assert on prompts and temperatures.
	Requests []CompletionRequest
	// CallCount tracks how many times Complete has been called.
	CallCount int
}

// NewScripted creates a ScriptedProvider that pops one response per call.
func NewScripted(responses ...string) *ScriptedProvider {
	return &ScriptedProvider{Responses: responses}
}

// Complete pops the next scripted response, or the next scripted error when
// one is queued ahead of the remaining responses.
func (s *ScriptedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.CallCount++
	s.Requests = append(s.Requests, req)

	if len(s.Errs) > 0 {
		err := s.Errs[0]
		s.Errs = s.Errs[1:]
		if err != nil {
			return nil, err
		}
	}

	if len(s.Responses) == 0 {
		return nil, errors.New("scripted provider: no more responses available")
	}

	text := s.Responses[0]
	s.Responses = s.Responses[1:]

	return &CompletionResponse{
		Text:         text,
		FinishReason: FinishStop,
		Usage: Usage{
			PromptTokens:     10,
			CompletionTokens: 10,
			TotalTokens:      20,
		},
	}, nil
}

// AddResponse appends a response to the queue.
func (s *ScriptedProvider) AddResponse(response string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Responses = append(s.Responses, response)
}

// FailNext queues an error to be returned before the remaining responses.
func (s *ScriptedProvider) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errs = append(s.Errs, err)
}

// LastRequest returns the most recent captured request, or false when none.
func (s *ScriptedProvider) LastRequest() (CompletionRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Requests) == 0 {
		return CompletionRequest{}, false
	}
	return s.Requests[len(s.Requests)-1], true
}
