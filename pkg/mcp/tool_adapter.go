package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jllopis/praxis/pkg/core"
	"github.com/mark3labs/mcp-go/mcp"
)

// ToolCaller abstracts MCP tool execution for adapters.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error)
}

// ToolAdapter wraps a remote MCP tool as a registry tool. Transport errors
// and server-side IsError results both surface as failure results so the
// executor treats remote tools exactly like local ones.
type ToolAdapter struct {
	tool   mcp.Tool
	caller ToolCaller
	server string
}

// NewToolAdapter builds a registry tool backed by an MCP tool definition and
// caller. The server name, when the caller is a *Client with one configured,
// attributes failures to their origin server.
func NewToolAdapter(tool mcp.Tool, caller ToolCaller) (*ToolAdapter, error) {
	if tool.Name == "" {
		return nil, errors.New("mcp tool name is required")
	}
	if caller == nil {
		return nil, errors.New("tool caller is required")
	}
	adapter := &ToolAdapter{tool: tool, caller: caller}
	if c, ok := caller.(*Client); ok {
		adapter.server = c.ServerName()
	}
	return adapter, nil
}

// AdaptTools lists the server's tools and wraps every one as a registry tool.
func AdaptTools(ctx context.Context, c *Client) ([]core.Tool, error) {
	mcpTools, err := c.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	adapted := make([]core.Tool, 0, len(mcpTools))
	for _, t := range mcpTools {
		adapter, err := NewToolAdapter(t, c)
		if err != nil {
			return nil, fmt.Errorf("adapt mcp tool %q: %w", t.Name, err)
		}
		adapted = append(adapted, adapter)
	}
	return adapted, nil
}

// Name returns the MCP tool name.
func (t *ToolAdapter) Name() string {
	return t.tool.Name
}

// Description returns the MCP tool description.
func (t *ToolAdapter) Description() string {
	return t.tool.Description
}

// Server returns the name of the origin server, or "" when the caller was
// not a named client.
func (t *ToolAdapter) Server() string {
	return t.server
}

// ParameterSchema renders the MCP input schema as a JSON-schema-shaped map.
// A raw schema from the server wins over the typed one when both are set.
func (t *ToolAdapter) ParameterSchema() map[string]any {
	if t.tool.RawInputSchema != nil {
		var decoded map[string]any
		if err := json.Unmarshal(t.tool.RawInputSchema, &decoded); err == nil {
			return decoded
		}
	}

	schema := map[string]any{"type": "object"}
	if t.tool.InputSchema.Type != "" {
		schema["type"] = t.tool.InputSchema.Type
	}
	if len(t.tool.InputSchema.Properties) > 0 {
		schema["properties"] = t.tool.InputSchema.Properties
	}
	if len(t.tool.InputSchema.Required) > 0 {
		schema["required"] = t.tool.InputSchema.Required
	}
	return schema
}

// Execute calls the remote tool. Missing required params fail before the
// request goes out; transport errors and IsError results come back as
// failure results, never as panics or raised errors.
func (t *ToolAdapter) Execute(ctx context.Context, params map[string]any) core.ExecutionResult {
	if params == nil {
		params = map[string]any{}
	}
	if err := validateRequiredArgs(t.tool, params); err != nil {
		return core.Failuref("invalid parameters: %v", err)
	}

	result, err := t.caller.CallTool(ctx, t.tool.Name, params)
	if err != nil {
		return t.failuref("call failed: %v", err)
	}
	if result == nil {
		return t.failuref("empty result")
	}
	if result.IsError {
		msg := extractTextContent(result.Content)
		if msg == "" {
			msg = "tool reported an error"
		}
		return t.failuref("%s", msg)
	}

	output, err := resultOutput(result)
	if err != nil {
		return t.failuref("%v", err)
	}
	return core.ExecutionResult{Success: true, Output: output}
}

// failuref prefixes failures with the tool's origin so multi-server runs
// stay attributable end to end.
func (t *ToolAdapter) failuref(format string, args ...any) core.ExecutionResult {
	msg := fmt.Sprintf(format, args...)
	if t.server != "" {
		return core.Failuref("mcp server %q tool %q: %s", t.server, t.tool.Name, msg)
	}
	return core.Failuref("mcp tool %q: %s", t.tool.Name, msg)
}

func validateRequiredArgs(tool mcp.Tool, args map[string]interface{}) error {
	schema := tool.InputSchema
	if schema.Type != "" && schema.Type != "object" {
		return nil
	}
	for _, key := range schema.Required {
		if _, ok := args[key]; !ok {
			return fmt.Errorf("missing required field %q", key)
		}
	}
	return nil
}

// resultOutput flattens a tool result into the single output string the
// execution result carries: structured content as JSON, otherwise the
// concatenated text content.
func resultOutput(result *mcp.CallToolResult) (string, error) {
	if result.StructuredContent != nil {
		encoded, err := json.Marshal(result.StructuredContent)
		if err != nil {
			return "", fmt.Errorf("structured content not serializable: %w", err)
		}
		return string(encoded), nil
	}
	return extractTextContent(result.Content), nil
}

func extractTextContent(items []mcp.Content) string {
	if len(items) == 0 {
		return ""
	}
	var parts []string
	for _, item := range items {
		switch content := item.(type) {
		case mcp.TextContent:
			parts = append(parts, content.Text)
		case *mcp.TextContent:
			parts = append(parts, content.Text)
		}
	}
	return strings.Join(parts, "\n")
}

var _ core.Tool = (*ToolAdapter)(nil)
