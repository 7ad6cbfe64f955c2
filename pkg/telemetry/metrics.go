// SPDX-License-Identifier: Apache-2.0
// Run-level metric instruments for agent observability.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jllopis/praxis/pkg/errors"
)

// RunMetrics tracks run outcomes, step execution, retries, and error rates
// for production monitoring.
type RunMetrics struct {
	// runCounter tracks completed runs by final state
	runCounter metric.Int64Counter

	// stepCounter tracks executed steps by tool and outcome
	stepCounter metric.Int64Counter

	// retryCounter tracks remediation attempts by tool and outcome
	retryCounter metric.Int64Counter

	// errorCounter tracks total errors by code and component
	errorCounter metric.Int64Counter

	// toolLatency tracks tool execution duration in milliseconds
	toolLatency metric.Float64Histogram

	// llmLatency tracks completion call duration in milliseconds
	llmLatency metric.Float64Histogram

	// circuitBreakerStateGauge tracks circuit breaker state per component
	circuitBreakerStateGauge metric.Int64Gauge

	mu sync.RWMutex
}

// NewRunMetrics creates a run metrics tracker with OTEL meters.
func NewRunMetrics(ctx context.Context) (*RunMetrics, error) {
	meter := otel.Meter("praxis/runs")

	runCounter, err := meter.Int64Counter(
		"praxis.runs.total",
		metric.WithDescription("Completed runs by final state"),
	)
	if err != nil {
		return nil, err
	}

	stepCounter, err := meter.Int64Counter(
		"praxis.steps.total",
		metric.WithDescription("Executed steps by tool and outcome"),
	)
	if err != nil {
		return nil, err
	}

	retryCounter, err := meter.Int64Counter(
		"praxis.retries.total",
		metric.WithDescription("Step remediation attempts by tool and outcome"),
	)
	if err != nil {
		return nil, err
	}

	errorCounter, err := meter.Int64Counter(
		"praxis.errors.total",
		metric.WithDescription("Total errors by code and component"),
	)
	if err != nil {
		return nil, err
	}

	toolLatency, err := meter.Float64Histogram(
		"praxis.tool.duration_ms",
		metric.WithDescription("Tool execution duration in milliseconds"),
	)
	if err != nil {
		return nil, err
	}

	llmLatency, err := meter.Float64Histogram(
		"praxis.llm.duration_ms",
		metric.WithDescription("Completion call duration in milliseconds"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerStateGauge, err := meter.Int64Gauge(
		"praxis.circuitbreaker.state",
		metric.WithDescription("Circuit breaker state per component (0=open, 1=half-open, 2=closed)"),
	)
	if err != nil {
		return nil, err
	}

	return &RunMetrics{
		runCounter:               runCounter,
		stepCounter:              stepCounter,
		retryCounter:             retryCounter,
		errorCounter:             errorCounter,
		toolLatency:              toolLatency,
		llmLatency:               llmLatency,
		circuitBreakerStateGauge: circuitBreakerStateGauge,
	}, nil
}

// RecordRun increments the run counter for the given final state
// ("completed" or "failed").
func (rm *RunMetrics) RecordRun(ctx context.Context, state string) {
	if rm == nil {
		return
	}

	rm.mu.RLock()
	defer rm.mu.RUnlock()

	rm.runCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(AttrRunState, state),
		),
	)
}

// RecordStep records one step execution with its tool, outcome, and duration.
func (rm *RunMetrics) RecordStep(ctx context.Context, tool string, success bool, durationMs float64) {
	if rm == nil {
		return
	}

	rm.mu.RLock()
	defer rm.mu.RUnlock()

	attrs := metric.WithAttributes(
		attribute.String(AttrStepTool, tool),
		attribute.Bool(AttrToolSuccess, success),
	)
	rm.stepCounter.Add(ctx, 1, attrs)
	if durationMs > 0 {
		rm.toolLatency.Record(ctx, durationMs, attrs)
	}
}

// RecordRetry records one remediation attempt and whether it recovered the step.
func (rm *RunMetrics) RecordRetry(ctx context.Context, tool string, recovered bool) {
	if rm == nil {
		return
	}

	rm.mu.RLock()
	defer rm.mu.RUnlock()

	rm.retryCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(AttrStepTool, tool),
			attribute.Bool("praxis.retry.recovered", recovered),
		),
	)
}

// RecordError increments the error counter for the given error and component.
func (rm *RunMetrics) RecordError(ctx context.Context, err error, component string) {
	if rm == nil || err == nil {
		return
	}

	rm.mu.RLock()
	defer rm.mu.RUnlock()

	if pe, ok := err.(*errors.PraxisError); ok {
		rm.errorCounter.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("error.code", string(pe.Code)),
				attribute.String("component", component),
				attribute.String("recoverable", pe.RecoverableString()),
			),
		)
	} else {
		// Generic error
		rm.errorCounter.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("error.code", "UNKNOWN"),
				attribute.String("component", component),
				attribute.String("recoverable", "unknown"),
			),
		)
	}
}

// RecordLLMLatency records the duration of one completion call.
func (rm *RunMetrics) RecordLLMLatency(ctx context.Context, provider string, durationMs float64) {
	if rm == nil {
		return
	}

	rm.mu.RLock()
	defer rm.mu.RUnlock()

	rm.llmLatency.Record(ctx, durationMs,
		metric.WithAttributes(
			attribute.String(AttrLLMProvider, provider),
		),
	)
}

// RecordCircuitBreakerState records the circuit breaker state (0=open, 1=half-open, 2=closed).
func (rm *RunMetrics) RecordCircuitBreakerState(ctx context.Context, component string, state int64) {
	if rm == nil {
		return
	}

	rm.mu.RLock()
	defer rm.mu.RUnlock()

	rm.circuitBreakerStateGauge.Record(ctx, state,
		metric.WithAttributes(
			attribute.String("component", component),
		),
	)
}
