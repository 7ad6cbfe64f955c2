package mcp

import (
	"context"
	"encoding/json"

	"github.com/jllopis/praxis/pkg/core"
	"github.com/jllopis/praxis/pkg/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server publishes registry tools over MCP so other agents can call them
// remotely. Tool schemas pass through verbatim; execution results map onto
// MCP results with failures flagged IsError.
type Server struct {
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server.
func NewServer(name, version string) *Server {
	return &Server{
		mcpServer: server.NewMCPServer(name, version),
	}
}

// RegisterTool publishes a single registry tool.
func (s *Server) RegisterTool(t core.Tool) {
	def := mcp.Tool{
		Name:        t.Name(),
		Description: t.Description(),
	}
	if raw, err := json.Marshal(t.ParameterSchema()); err == nil {
		def.RawInputSchema = raw
	} else {
		def.InputSchema = mcp.ToolInputSchema{Type: "object"}
	}

	s.mcpServer.AddTool(def, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		return toCallToolResult(t.Execute(ctx, args)), nil
	})
}

// RegisterRegistry publishes every tool in the registry.
func (s *Server) RegisterRegistry(reg *tools.Registry) {
	for _, t := range reg.Tools() {
		s.RegisterTool(t)
	}
}

// ServeStdio starts the server on Stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func toCallToolResult(res core.ExecutionResult) *mcp.CallToolResult {
	text := res.Output
	if !res.Success {
		text = res.Error
		if text == "" {
			text = "tool execution failed"
		}
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: !res.Success,
	}
}
