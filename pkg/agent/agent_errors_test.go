// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"fmt"
	"strings"
	"testing"

	"github.com/jllopis/praxis/pkg/errors"
)

func TestWrapPlanningError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantNil  bool
		wantCode errors.ErrorCode
	}{
		{
			name:    "nil error",
			err:     nil,
			wantNil: true,
		},
		{
			name:     "plain error becomes planning error",
			err:      fmt.Errorf("llm exploded"),
			wantCode: errors.CodePlanning,
		},
		{
			name:     "praxis error passes through",
			err:      errors.New(errors.CodeLLMError, "completion failed", nil),
			wantCode: errors.CodeLLMError,
		},
		{
			name:     "wrapped praxis error passes through",
			err:      fmt.Errorf("create plan: %w", errors.New(errors.CodeTimeout, "deadline hit", nil)),
			wantCode: errors.CodeTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := WrapPlanningError(tt.err, "add a license")
			if tt.wantNil {
				if pe != nil {
					t.Fatalf("WrapPlanningError() = %v, want nil", pe)
				}
				return
			}
			if pe == nil {
				t.Fatalf("WrapPlanningError() = nil, want non-nil")
			}
			if pe.Code != tt.wantCode {
				t.Errorf("WrapPlanningError().Code = %v, want %v", pe.Code, tt.wantCode)
			}
			if tt.wantCode == errors.CodePlanning && pe.Context["goal"] != "add a license" {
				t.Errorf("WrapPlanningError().Context[goal] = %v, want goal", pe.Context["goal"])
			}
		})
	}
}

func TestNewStepFailedError(t *testing.T) {
	pe := NewStepFailedError("step-2", "policy denied: pushes are blocked")
	if pe.Code != errors.CodeAgent {
		t.Errorf("Code = %v, want %v", pe.Code, errors.CodeAgent)
	}
	if !strings.Contains(pe.Error(), "step step-2 failed") {
		t.Errorf("unexpected message: %v", pe.Error())
	}
	if pe.Context["step_id"] != "step-2" {
		t.Errorf("Context[step_id] = %v, want step-2", pe.Context["step_id"])
	}
	if pe.Recoverable {
		t.Error("step failures are terminal for the run")
	}
}

func TestNewIterationLimitError(t *testing.T) {
	pe := NewIterationLimitError(10)
	if pe.Code != errors.CodeAgent {
		t.Errorf("Code = %v, want %v", pe.Code, errors.CodeAgent)
	}
	if !strings.Contains(pe.Error(), "iteration limit 10 reached") {
		t.Errorf("unexpected message: %v", pe.Error())
	}
}

func TestNewApprovalRequiredError(t *testing.T) {
	pe := NewApprovalRequiredError("abc123")
	if pe.Code != errors.CodeApprovalRequired {
		t.Errorf("Code = %v, want %v", pe.Code, errors.CodeApprovalRequired)
	}
	if pe.Context["plan_digest"] != "abc123" {
		t.Errorf("Context[plan_digest] = %v, want abc123", pe.Context["plan_digest"])
	}
	if !pe.Recoverable {
		t.Error("approval gaps are recoverable by approving the plan")
	}
	if !errors.IsRecoverable(pe) {
		t.Error("IsRecoverable() = false, want true")
	}
}

func TestNewCanceledError(t *testing.T) {
	cause := fmt.Errorf("context canceled")
	pe := NewCanceledError(cause)
	if pe.Code != errors.CodeCanceled {
		t.Errorf("Code = %v, want %v", pe.Code, errors.CodeCanceled)
	}
	if !strings.Contains(pe.Error(), "context canceled") {
		t.Errorf("expected cause in message: %v", pe.Error())
	}
}
