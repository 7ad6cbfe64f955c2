package mcp

import (
	"context"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

func newPingHTTPServer() *mcpserver.MCPServer {
	server := mcpserver.NewMCPServer("test-http", "1.0.0")
	server.AddTool(mcpgo.NewTool("ping"), func(ctx context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		return &mcpgo.CallToolResult{
			Content: []mcpgo.Content{mcpgo.TextContent{Type: "text", Text: "ok"}},
		}, nil
	})
	return server
}

func TestClient_StreamableHTTP_ListTools(t *testing.T) {
	httpServer := mcpserver.NewTestStreamableHTTPServer(newPingHTTPServer())
	defer httpServer.Close()

	client, err := NewClientWithStreamableHTTPProtocol(httpServer.URL, mcpgo.LATEST_PROTOCOL_VERSION)
	if err != nil {
		t.Fatalf("NewClientWithStreamableHTTPProtocol error: %v", err)
	}
	defer client.Close()

	tools, err := client.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools error: %v", err)
	}
	if len(tools) == 0 || tools[0].Name != "ping" {
		t.Fatalf("Expected tool 'ping', got %+v", tools)
	}
}

func TestClient_StreamableHTTP_CallAndCache(t *testing.T) {
	httpServer := mcpserver.NewTestStreamableHTTPServer(newPingHTTPServer())
	defer httpServer.Close()

	client, err := NewClientWithStreamableHTTP(httpServer.URL, WithToolCacheTTL(time.Minute))
	if err != nil {
		t.Fatalf("NewClientWithStreamableHTTP error: %v", err)
	}
	defer client.Close()

	result, err := client.CallTool(context.Background(), "ping", map[string]interface{}{})
	if err != nil {
		t.Fatalf("CallTool error: %v", err)
	}
	if result == nil || result.IsError {
		t.Fatalf("Expected successful tool result, got %+v", result)
	}

	if _, err := client.ListTools(context.Background()); err != nil {
		t.Fatalf("ListTools error: %v", err)
	}
	// Second listing is served from the discovery cache.
	cached, err := client.ListTools(context.Background())
	if err != nil {
		t.Fatalf("Cached ListTools error: %v", err)
	}
	if len(cached) != 1 || cached[0].Name != "ping" {
		t.Fatalf("Expected cached tool 'ping', got %+v", cached)
	}
}
