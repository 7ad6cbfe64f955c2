package llm

import (
	"context"
	"time"

	"github.com/jllopis/praxis/pkg/errors"
	"github.com/jllopis/praxis/pkg/resilience"
)

// ResilientProvider decorates a Provider with retry, circuit breaking, and a
// per-call timeout. The decoration order is retry outermost, so a rejected
// call from an open breaker (recoverable) is retried after backoff.
type ResilientProvider struct {
	inner       Provider
	retry       resilience.RetryConfig
	breaker     *resilience.CircuitBreaker
	callTimeout resilience.TimeoutConfig
}

// ResilientOption configures a ResilientProvider.
type ResilientOption func(*ResilientProvider)

// WithRetry sets the retry configuration.
func WithRetry(cfg resilience.RetryConfig) ResilientOption {
	return func(p *ResilientProvider) {
		p.retry = cfg
	}
}

// WithCircuitBreaker sets the circuit breaker guarding the provider.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) ResilientOption {
	return func(p *ResilientProvider) {
		p.breaker = cb
	}
}

// WithCallTimeout bounds each individual completion attempt.
func WithCallTimeout(d time.Duration) ResilientOption {
	return func(p *ResilientProvider) {
		p.callTimeout = resilience.TimeoutConfig{Duration: d}
	}
}

// NewResilientProvider wraps inner with the configured resilience layers.
// Without options it retries with the package defaults and no breaker.
func NewResilientProvider(inner Provider, opts ...ResilientOption) *ResilientProvider {
	p := &ResilientProvider{
		inner: inner,
		retry: resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Complete implements Provider.
func (p *ResilientProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	var resp *CompletionResponse

	attempt := func() error {
		value, err := resilience.WithTimeoutResult(ctx, p.callTimeout, func() (interface{}, error) {
			return p.inner.Complete(ctx, req)
		})
		if err != nil {
			return err
		}
		resp = value.(*CompletionResponse)
		return nil
	}

	call := attempt
	if p.breaker != nil {
		call = func() error {
			return p.breaker.Call(ctx, attempt)
		}
	}

	if err := p.retry.Do(ctx, call); err != nil {
		return nil, err
	}
	return resp, nil
}

// FallbackProvider tries providers in order until one succeeds. It serves
// deployments with a preferred local model and a hosted gateway behind it.
type FallbackProvider struct {
	providers []Provider
}

// NewFallbackProvider creates a provider chain. At least one provider is
// required; nil entries are skipped.
func NewFallbackProvider(primary Provider, fallbacks ...Provider) *FallbackProvider {
	providers := make([]Provider, 0, 1+len(fallbacks))
	if primary != nil {
		providers = append(providers, primary)
	}
	for _, f := range fallbacks {
		if f != nil {
			providers = append(providers, f)
		}
	}
	return &FallbackProvider{providers: providers}
}

// Complete implements Provider.
func (p *FallbackProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if len(p.providers) == 0 {
		return nil, errors.New(errors.CodeLLMError, "no completion providers configured", nil)
	}

	var lastErr error
	for _, provider := range p.providers {
		resp, err := provider.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, errors.New(errors.CodeCanceled, "completion canceled", ctx.Err())
		default:
		}
	}

	return nil, errors.New(errors.CodeLLMError, "all completion providers failed", lastErr).
		WithContext("providers", len(p.providers))
}

var (
	_ Provider = (*ResilientProvider)(nil)
	_ Provider = (*FallbackProvider)(nil)
)
