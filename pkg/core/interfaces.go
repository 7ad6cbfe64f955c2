package core

import "context"

// Tool is a polymorphic capability the executor can dispatch a step to.
// Implementations declare a parameter schema and keep no shared mutable
// state; the same tool instance may serve many sequential runs.
type Tool interface {
	// Name is the dispatch key steps refer to via ToolName.
	Name() string

	// Description is the human-readable summary rendered into the planner's
	// tool catalog.
	Description() string

	// ParameterSchema describes the accepted params as a JSON-schema-shaped
	// map (type/properties/required).
	ParameterSchema() map[string]any

	// Execute runs the tool. Failures are reported through the result, not
	// through a raised error; implementations own their bounded timeouts.
	Execute(ctx context.Context, params map[string]any) ExecutionResult
}
