// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

// Package main implements the Praxis CLI.
package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/jllopis/praxis/pkg/errors"
)

// CLIError wraps PraxisError with CLI-specific formatting and hints.
type CLIError struct {
	*errors.PraxisError
	Hint string
}

// NewCLIError creates a new CLI error.
func NewCLIError(pe *errors.PraxisError, hint string) *CLIError {
	return &CLIError{
		PraxisError: pe,
		Hint:        hint,
	}
}

// Error returns the formatted error message with hints.
func (e *CLIError) Error() string {
	if e.PraxisError == nil {
		return "unknown error"
	}

	msg := e.PraxisError.Error()
	if e.Hint != "" {
		msg += "\n  Hint: " + e.Hint
	}
	return msg
}

// Unwrap exposes the underlying typed error to errors.As.
func (e *CLIError) Unwrap() error {
	if e.PraxisError == nil {
		return nil
	}
	return e.PraxisError
}

// PrintError prints the error with appropriate formatting.
func (e *CLIError) PrintError(jsonOutput bool) {
	if jsonOutput {
		payload, _ := json.Marshal(map[string]any{
			"error": map[string]any{
				"code":        string(e.PraxisError.Code),
				"message":     e.PraxisError.Message,
				"hint":        e.Hint,
				"recoverable": e.PraxisError.Recoverable,
			},
		})
		fmt.Fprintln(os.Stderr, string(payload))
		return
	}

	fmt.Fprintf(os.Stderr, "Error [%s]: %s\n", e.PraxisError.Code, e.PraxisError.Message)
	if e.PraxisError.Err != nil {
		fmt.Fprintf(os.Stderr, "  Cause: %v\n", e.PraxisError.Err)
	}
	if e.Hint != "" {
		fmt.Fprintf(os.Stderr, "  Hint: %s\n", e.Hint)
	}
}

// WrapConfigError wraps a configuration load failure with CLI hints.
func WrapConfigError(err error) *CLIError {
	pe := errors.New(errors.CodeInvalidInput, "configuration error", err).
		WithRecoverable(false)
	return NewCLIError(pe, "'praxis init' writes a starter praxis.yaml; 'praxis validate' checks an existing one")
}

// WrapRuntimeError wraps a runtime assembly or start failure with CLI hints.
func WrapRuntimeError(err error) *CLIError {
	pe := errors.New(errors.CodeInternal, "runtime start failed", err).
		WithRecoverable(true)
	return NewCLIError(pe, "'praxis validate' checks the provider, workspace, policy, and stores")
}

// WrapTimeoutError wraps a timeout error with CLI hints.
func WrapTimeoutError(err error, operation string) *CLIError {
	pe := errors.New(errors.CodeTimeout, operation+" timed out", err).
		WithContext("operation", operation).
		WithRecoverable(true)
	return NewCLIError(pe, "raise the run budget with --timeout")
}

// WrapRunError attaches a recovery hint matched to the failure that ended
// the run. Errors without a typed code pass through unchanged.
func WrapRunError(err error) error {
	var pe *errors.PraxisError
	if !stderrors.As(err, &pe) {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return WrapTimeoutError(err, "run")
		}
		return err
	}
	switch pe.Code {
	case errors.CodeApprovalRequired:
		return NewCLIError(pe, "list pending approvals with 'praxis approvals list --status pending', approve with 'praxis approvals approve <id>', then apply again")
	case errors.CodePlanning, errors.CodeLLMError:
		return NewCLIError(pe, "check the model endpoint with 'praxis validate'")
	case errors.CodeTimeout:
		return NewCLIError(pe, "raise the run budget with --timeout")
	case errors.CodeToolFailure:
		return NewCLIError(pe, "'praxis tasks show <task_id>' prints the full step log")
	default:
		return NewCLIError(pe, "")
	}
}

// NewNotFoundError creates a not found error with CLI hints.
func NewNotFoundError(resource, name string) *CLIError {
	pe := errors.New(errors.CodeNotFound, fmt.Sprintf("%s %q not found", resource, name), nil).
		WithContext("resource", resource).
		WithContext("name", name).
		WithRecoverable(false)
	return NewCLIError(pe, fmt.Sprintf("'praxis %ss list' shows the known %ss", resource, resource))
}

// NewInvalidArgumentError creates an invalid argument error with CLI hints.
func NewInvalidArgumentError(command, reason string) *CLIError {
	pe := errors.New(errors.CodeInvalidInput, fmt.Sprintf("invalid argument: %s", reason), nil).
		WithContext("command", command).
		WithRecoverable(false)
	return NewCLIError(pe, "run 'praxis help' for usage information")
}

// PrintSimpleError prints a plain error message for non-PraxisError cases.
func PrintSimpleError(err error, jsonOutput bool) {
	if jsonOutput {
		payload, _ := json.Marshal(map[string]any{
			"error": map[string]any{"code": "UNKNOWN", "message": err.Error()},
		})
		fmt.Fprintln(os.Stderr, string(payload))
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
}

// exitError prints err in the requested format and exits nonzero.
func exitError(jsonOutput bool, err error) {
	var cliErr *CLIError
	if stderrors.As(err, &cliErr) {
		cliErr.PrintError(jsonOutput)
	} else {
		PrintSimpleError(err, jsonOutput)
	}
	os.Exit(1)
}

// FormatErrorCode returns a user-friendly name for error codes.
func FormatErrorCode(code errors.ErrorCode) string {
	switch code {
	case errors.CodeInternal:
		return "Internal Error"
	case errors.CodeInvalidInput:
		return "Invalid Input"
	case errors.CodeNotFound:
		return "Not Found"
	case errors.CodePlanning:
		return "Planning Error"
	case errors.CodeApprovalRequired:
		return "Approval Required"
	case errors.CodeTimeout:
		return "Timeout"
	case errors.CodeRateLimit:
		return "Rate Limited"
	case errors.CodeToolFailure:
		return "Tool Failure"
	case errors.CodeLLMError:
		return "LLM Error"
	case errors.CodeMemoryError:
		return "Memory Error"
	case errors.CodeCanceled:
		return "Canceled"
	default:
		return string(code)
	}
}
