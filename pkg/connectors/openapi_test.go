// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package connectors

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jllopis/praxis/pkg/core"
)

const testOpenAPISpec = `
openapi: "3.0.0"
info:
  title: Test API
  version: "1.0.0"
servers:
  - url: https://api.example.com
paths:
  /users:
    get:
      operationId: listUsers
      summary: List all users
      parameters:
        - name: limit
          in: query
          description: Maximum number of users to return
          required: false
          schema:
            type: integer
            default: 10
    post:
      operationId: createUser
      summary: Create a new user
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              properties:
                name:
                  type: string
                email:
                  type: string
              required:
                - name
                - email
  /users/{id}:
    get:
      operationId: getUser
      summary: Get a user by ID
      parameters:
        - name: id
          in: path
          description: User ID
          required: true
          schema:
            type: string
    delete:
      operationId: deleteUser
      summary: Delete a user
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: string
`

func findTool(t *testing.T, c *OpenAPIConnector, name string) core.Tool {
	t.Helper()
	for _, tool := range c.Tools() {
		if tool.Name() == name {
			return tool
		}
	}
	t.Fatalf("tool %s not generated, have %v", name, toolNames(c))
	return nil
}

func toolNames(c *OpenAPIConnector) []string {
	names := make([]string, len(c.Tools()))
	for i, tool := range c.Tools() {
		names[i] = tool.Name()
	}
	return names
}

func TestOpenAPIConnectorReadOnlyByDefault(t *testing.T) {
	c, err := NewOpenAPIConnector([]byte(testOpenAPISpec))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Title() != "Test API" {
		t.Errorf("title = %q", c.Title())
	}

	names := toolNames(c)
	if len(names) != 2 {
		t.Fatalf("expected 2 GET tools, got %v", names)
	}
	if names[0] != "api_list_users" || names[1] != "api_get_user" {
		t.Errorf("names = %v", names)
	}
	if c.Skipped() != 2 {
		t.Errorf("skipped = %d, want 2 write operations", c.Skipped())
	}
}

func TestOpenAPIConnectorWithWrites(t *testing.T) {
	c, err := NewOpenAPIConnector([]byte(testOpenAPISpec),
		WithConnectorName("users"),
		WithOpenAPIWrites(),
	)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	// Paths sorted, then GET before writes within a path.
	want := []string{"users_list_users", "users_create_user", "users_get_user", "users_delete_user"}
	names := toolNames(c)
	if len(names) != len(want) {
		t.Fatalf("names = %v", names)
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("names[%d] = %q, want %q", i, names[i], name)
		}
	}
	if c.Skipped() != 0 {
		t.Errorf("skipped = %d", c.Skipped())
	}
}

func TestOpenAPIConnectorToolCap(t *testing.T) {
	c, err := NewOpenAPIConnector([]byte(testOpenAPISpec),
		WithOpenAPIWrites(),
		WithMaxTools(1),
	)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(c.Tools()) != 1 {
		t.Errorf("tools = %v", toolNames(c))
	}
	if c.Skipped() != 3 {
		t.Errorf("skipped = %d", c.Skipped())
	}
}

func TestOpenAPIOperationSchema(t *testing.T) {
	c, err := NewOpenAPIConnector([]byte(testOpenAPISpec), WithOpenAPIWrites())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	tool := findTool(t, c, "api_get_user")
	schema := tool.ParameterSchema()
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("properties missing: %v", schema)
	}
	if _, ok := props["id"]; !ok {
		t.Error("id property missing")
	}
	required, ok := schema["required"].([]string)
	if !ok || len(required) != 1 || required[0] != "id" {
		t.Errorf("required = %v", schema["required"])
	}

	create := findTool(t, c, "api_create_user")
	createSchema := create.ParameterSchema()
	createProps := createSchema["properties"].(map[string]any)
	if _, ok := createProps["name"]; !ok {
		t.Error("body field name missing from schema")
	}
	if !strings.Contains(create.Description(), "POST /users") {
		t.Errorf("description = %q", create.Description())
	}
}

func TestOpenAPIValidateParams(t *testing.T) {
	c, err := NewOpenAPIConnector([]byte(testOpenAPISpec), WithOpenAPIWrites())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	get := findTool(t, c, "api_get_user").(*apiOperation)
	if err := get.ValidateParams(map[string]any{"id": "1"}); err != nil {
		t.Errorf("valid params rejected: %v", err)
	}
	if err := get.ValidateParams(map[string]any{}); err == nil {
		t.Error("expected error for missing id")
	}

	create := findTool(t, c, "api_create_user").(*apiOperation)
	if err := create.ValidateParams(map[string]any{"name": "A"}); err == nil {
		t.Error("expected error for missing email")
	}
}

func TestOpenAPIExecute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/users" && r.Method == http.MethodGet:
			if r.URL.Query().Get("limit") != "10" {
				t.Errorf("limit query = %q", r.URL.Query().Get("limit"))
			}
			json.NewEncoder(w).Encode([]map[string]string{
				{"id": "1", "name": "Alice"},
				{"id": "2", "name": "Bob"},
			})
		case r.URL.Path == "/users/1" && r.Method == http.MethodGet:
			json.NewEncoder(w).Encode(map[string]string{"id": "1", "name": "Alice"})
		case r.URL.Path == "/users" && r.Method == http.MethodPost:
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type = %q", ct)
			}
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decoding body: %v", err)
			}
			if body["name"] != "Charlie" {
				t.Errorf("body = %v", body)
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]string{"id": "3", "name": "Charlie"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c, err := NewOpenAPIConnector([]byte(testOpenAPISpec),
		WithBaseURL(server.URL),
		WithOpenAPIWrites(),
	)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ctx := context.Background()

	res := findTool(t, c, "api_list_users").Execute(ctx, map[string]any{"limit": 10})
	if !res.Success {
		t.Fatalf("list failed: %s", res.Error)
	}
	if !strings.Contains(res.Output, "Alice") {
		t.Errorf("output = %q", res.Output)
	}
	if res.Metadata["status"] != http.StatusOK {
		t.Errorf("status metadata = %v", res.Metadata["status"])
	}

	res = findTool(t, c, "api_get_user").Execute(ctx, map[string]any{"id": "1"})
	if !res.Success || !strings.Contains(res.Output, "Alice") {
		t.Errorf("get: success=%v output=%q error=%q", res.Success, res.Output, res.Error)
	}

	res = findTool(t, c, "api_create_user").Execute(ctx, map[string]any{
		"name":  "Charlie",
		"email": "charlie@example.com",
	})
	if !res.Success {
		t.Fatalf("create failed: %s", res.Error)
	}
	if res.Metadata["status"] != http.StatusCreated {
		t.Errorf("status metadata = %v", res.Metadata["status"])
	}
}

func TestOpenAPIExecuteReportsAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "user not found", http.StatusNotFound)
	}))
	defer server.Close()

	c, err := NewOpenAPIConnector([]byte(testOpenAPISpec), WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	res := findTool(t, c, "api_get_user").Execute(context.Background(), map[string]any{"id": "9"})
	if res.Success {
		t.Fatal("expected failure for 404")
	}
	if !strings.Contains(res.Error, "status 404") || !strings.Contains(res.Error, "user not found") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestOpenAPIAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") == "test-key" || r.Header.Get("Authorization") == "Bearer test-token" {
			w.Write([]byte(`{"status": "authenticated"}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	t.Run("api key", func(t *testing.T) {
		c, err := NewOpenAPIConnector([]byte(testOpenAPISpec),
			WithBaseURL(server.URL),
			WithAPIKey("test-key", ""),
		)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		res := findTool(t, c, "api_list_users").Execute(context.Background(), nil)
		if !res.Success {
			t.Errorf("request failed: %s", res.Error)
		}
	})

	t.Run("bearer", func(t *testing.T) {
		c, err := NewOpenAPIConnector([]byte(testOpenAPISpec),
			WithBaseURL(server.URL),
			WithBearerToken("test-token"),
		)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		res := findTool(t, c, "api_list_users").Execute(context.Background(), nil)
		if !res.Success {
			t.Errorf("request failed: %s", res.Error)
		}
	})
}

func TestOpenAPIJSONSpec(t *testing.T) {
	jsonSpec := `{
		"openapi": "3.0.0",
		"info": {"title": "JSON API", "version": "1.0.0"},
		"paths": {
			"/ping": {
				"get": {
					"operationId": "ping",
					"summary": "Health check"
				}
			}
		}
	}`

	c, err := NewOpenAPIConnector([]byte(jsonSpec), WithBaseURL("http://localhost:9"))
	if err != nil {
		t.Fatalf("parse JSON spec: %v", err)
	}
	if c.Title() != "JSON API" {
		t.Errorf("title = %q", c.Title())
	}
	if names := toolNames(c); len(names) != 1 || names[0] != "api_ping" {
		t.Errorf("names = %v", names)
	}
}

func TestOpenAPIConnectorRejectsBadSpecs(t *testing.T) {
	if _, err := NewOpenAPIConnector([]byte("not: a spec")); err == nil {
		t.Error("expected error for spec without paths")
	}

	// Paths but no server URL anywhere.
	spec := `{"openapi": "3.0.0", "info": {"title": "T"}, "paths": {"/x": {"get": {"operationId": "x"}}}}`
	if _, err := NewOpenAPIConnector([]byte(spec)); err == nil {
		t.Error("expected error for missing base URL")
	}
}
