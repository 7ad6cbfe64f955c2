// SPDX-License-Identifier: Apache-2.0
package core

import (
	"context"
	"testing"
	"time"
)

func staticChecker(status HealthStatus, message string) CheckerFunc {
	return func(ctx context.Context) HealthResult {
		return HealthResult{Status: status, Message: message}
	}
}

func TestCheckerFuncSetsLastCheck(t *testing.T) {
	callCount := 0
	checker := CheckerFunc(func(ctx context.Context) HealthResult {
		callCount++
		return HealthResult{Status: HealthHealthy, Message: "ok"}
	})

	result := checker.Check(context.Background())
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
	if result.Status != HealthHealthy {
		t.Errorf("expected Healthy")
	}
	if result.LastCheck.IsZero() {
		t.Errorf("expected LastCheck to be set by wrapper")
	}
}

func TestHealthSetOverall(t *testing.T) {
	tests := []struct {
		name     string
		statuses []HealthStatus
		overall  HealthStatus
	}{
		{"all healthy", []HealthStatus{HealthHealthy, HealthHealthy}, HealthHealthy},
		{"one degraded", []HealthStatus{HealthHealthy, HealthDegraded}, HealthDegraded},
		{"unhealthy wins", []HealthStatus{HealthHealthy, HealthDegraded, HealthUnhealthy}, HealthUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := NewHealthSet()
			for i, status := range tt.statuses {
				set.Register(string(rune('a'+i)), staticChecker(status, "x"))
			}

			results, overall := set.CheckAll(context.Background())
			if len(results) != len(tt.statuses) {
				t.Errorf("expected %d results, got %d", len(tt.statuses), len(results))
			}
			if overall != tt.overall {
				t.Errorf("expected overall %v, got %v", tt.overall, overall)
			}
			for _, r := range results {
				if r.Component == "" {
					t.Errorf("expected component name on result")
				}
			}
		})
	}
}

func TestHealthSetCheckSpecific(t *testing.T) {
	set := NewHealthSet()
	set.Register("provider", staticChecker(HealthHealthy, "ok"))

	result, err := set.Check(context.Background(), "provider")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != HealthHealthy {
		t.Errorf("expected Healthy")
	}
	if result.Component != "provider" {
		t.Errorf("expected component name, got %q", result.Component)
	}

	if _, err := set.Check(context.Background(), "nonexistent"); err == nil {
		t.Errorf("expected error for nonexistent checker")
	}
}

func TestHealthCheckRespectsContext(t *testing.T) {
	set := NewHealthSet()
	set.Register("slow_service", CheckerFunc(func(ctx context.Context) HealthResult {
		select {
		case <-ctx.Done():
			return HealthResult{Status: HealthUnhealthy, Message: "context timeout"}
		case <-time.After(100 * time.Millisecond):
			return HealthResult{Status: HealthHealthy, Message: "ok"}
		}
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, _ := set.Check(ctx, "slow_service")
	if result.Status != HealthUnhealthy {
		t.Errorf("expected Unhealthy due to timeout")
	}
}
