// SPDX-License-Identifier: Apache-2.0
package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	// HealthHealthy indicates the component is fully operational.
	HealthHealthy HealthStatus = "HEALTHY"

	// HealthDegraded indicates the component is operational but with reduced capacity.
	HealthDegraded HealthStatus = "DEGRADED"

	// HealthUnhealthy indicates the component is not operational.
	HealthUnhealthy HealthStatus = "UNHEALTHY"
)

// HealthResult represents the result of a health check.
type HealthResult struct {
	Status    HealthStatus
	Component string
	Message   string
	LastCheck time.Time
	Error     error
}

// HealthChecker checks the health of a component. The context can be used to
// implement timeouts.
type HealthChecker interface {
	Check(ctx context.Context) HealthResult
}

// CheckerFunc adapts a function to the HealthChecker interface.
type CheckerFunc func(ctx context.Context) HealthResult

// Check calls the underlying function.
func (f CheckerFunc) Check(ctx context.Context) HealthResult {
	result := f(ctx)
	if result.LastCheck.IsZero() {
		result.LastCheck = time.Now()
	}
	return result
}

// HealthSet holds named checkers for a runtime's components and aggregates
// their results. The zero value is not usable; construct with NewHealthSet.
type HealthSet struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
}

// NewHealthSet creates an empty health set.
func NewHealthSet() *HealthSet {
	return &HealthSet{checkers: make(map[string]HealthChecker)}
}

// Register adds or replaces the checker for a component.
func (h *HealthSet) Register(name string, checker HealthChecker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// Check checks a single registered component.
func (h *HealthSet) Check(ctx context.Context, name string) (HealthResult, error) {
	h.mu.RLock()
	checker, ok := h.checkers[name]
	h.mu.RUnlock()
	if !ok {
		return HealthResult{}, fmt.Errorf("checker not registered: %s", name)
	}
	result := checker.Check(ctx)
	result.Component = name
	return result, nil
}

// CheckAll checks every registered component and returns the individual
// results plus an overall status: unhealthy if any component is unhealthy,
// else degraded if any is degraded, else healthy.
func (h *HealthSet) CheckAll(ctx context.Context) ([]HealthResult, HealthStatus) {
	h.mu.RLock()
	snapshot := make(map[string]HealthChecker, len(h.checkers))
	for name, checker := range h.checkers {
		snapshot[name] = checker
	}
	h.mu.RUnlock()

	results := make([]HealthResult, 0, len(snapshot))
	overall := HealthHealthy
	for name, checker := range snapshot {
		result := checker.Check(ctx)
		result.Component = name
		results = append(results, result)

		switch result.Status {
		case HealthUnhealthy:
			overall = HealthUnhealthy
		case HealthDegraded:
			if overall == HealthHealthy {
				overall = HealthDegraded
			}
		}
	}
	return results, overall
}
