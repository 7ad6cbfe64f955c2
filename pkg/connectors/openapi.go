// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/jllopis/praxis/pkg/core"
	"github.com/jllopis/praxis/pkg/errors"
	"gopkg.in/yaml.v3"
)

// OpenAPISpec is a parsed OpenAPI 3.x document, reduced to the parts tool
// generation needs.
type OpenAPISpec struct {
	OpenAPI string              `json:"openapi" yaml:"openapi"`
	Info    OpenAPIInfo         `json:"info" yaml:"info"`
	Servers []OpenAPIServer     `json:"servers" yaml:"servers"`
	Paths   map[string]PathItem `json:"paths" yaml:"paths"`
}

type OpenAPIInfo struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Version     string `json:"version" yaml:"version"`
}

type OpenAPIServer struct {
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description" yaml:"description"`
}

// PathItem holds the operations declared on one path.
type PathItem struct {
	Get    *Operation `json:"get" yaml:"get"`
	Post   *Operation `json:"post" yaml:"post"`
	Put    *Operation `json:"put" yaml:"put"`
	Patch  *Operation `json:"patch" yaml:"patch"`
	Delete *Operation `json:"delete" yaml:"delete"`
}

// Operation is one declared API operation.
type Operation struct {
	OperationID string       `json:"operationId" yaml:"operationId"`
	Summary     string       `json:"summary" yaml:"summary"`
	Description string       `json:"description" yaml:"description"`
	Parameters  []Parameter  `json:"parameters" yaml:"parameters"`
	RequestBody *RequestBody `json:"requestBody" yaml:"requestBody"`
	Tags        []string     `json:"tags" yaml:"tags"`
}

type Parameter struct {
	Name        string  `json:"name" yaml:"name"`
	In          string  `json:"in" yaml:"in"`
	Description string  `json:"description" yaml:"description"`
	Required    bool    `json:"required" yaml:"required"`
	Schema      *Schema `json:"schema" yaml:"schema"`
}

type RequestBody struct {
	Description string               `json:"description" yaml:"description"`
	Required    bool                 `json:"required" yaml:"required"`
	Content     map[string]MediaType `json:"content" yaml:"content"`
}

type MediaType struct {
	Schema *Schema `json:"schema" yaml:"schema"`
}

// Schema is a JSON-schema fragment as it appears in OpenAPI documents.
type Schema struct {
	Type        string             `json:"type" yaml:"type"`
	Description string             `json:"description" yaml:"description"`
	Properties  map[string]*Schema `json:"properties" yaml:"properties"`
	Items       *Schema            `json:"items" yaml:"items"`
	Required    []string           `json:"required" yaml:"required"`
	Enum        []any              `json:"enum" yaml:"enum"`
	Default     any                `json:"default" yaml:"default"`
	Format      string             `json:"format" yaml:"format"`
}

// AuthConfig carries credentials applied to every generated request.
type AuthConfig struct {
	Type   AuthType
	APIKey string
	Header string
	Token  string
	User   string
	Pass   string
}

type AuthType int

const (
	AuthNone AuthType = iota
	AuthAPIKey
	AuthBearer
	AuthBasic
)

// defaultMaxTools caps how many operations one document may contribute so a
// sprawling spec cannot crowd out the built-in tool set.
const defaultMaxTools = 32

// maxResponseBytes bounds API response bodies carried into step output.
const maxResponseBytes = 256 * 1024

// OpenAPIConnector turns an OpenAPI document into registry tools, one per
// declared operation. Only GET operations are exposed unless writes are
// enabled. Tool names are "<connector>_<operationId>".
type OpenAPIConnector struct {
	spec    *OpenAPISpec
	name    string
	baseURL string
	auth    AuthConfig
	client  *http.Client
	writes  bool
	cap     int
	tools   []core.Tool
	skipped int
}

// OpenAPIOption configures an OpenAPIConnector.
type OpenAPIOption func(*OpenAPIConnector)

// WithConnectorName sets the tool name prefix (default "api").
func WithConnectorName(name string) OpenAPIOption {
	return func(c *OpenAPIConnector) {
		if name != "" {
			c.name = name
		}
	}
}

// WithBaseURL overrides the server URL declared in the document.
func WithBaseURL(base string) OpenAPIOption {
	return func(c *OpenAPIConnector) {
		c.baseURL = base
	}
}

// WithOpenAPIWrites exposes POST, PUT, PATCH and DELETE operations.
func WithOpenAPIWrites() OpenAPIOption {
	return func(c *OpenAPIConnector) {
		c.writes = true
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) OpenAPIOption {
	return func(c *OpenAPIConnector) {
		if client != nil {
			c.client = client
		}
	}
}

// WithMaxTools overrides the operation cap.
func WithMaxTools(n int) OpenAPIOption {
	return func(c *OpenAPIConnector) {
		if n > 0 {
			c.cap = n
		}
	}
}

// WithAPIKey authenticates with an API key header (default X-API-Key).
func WithAPIKey(key, header string) OpenAPIOption {
	return func(c *OpenAPIConnector) {
		c.auth = AuthConfig{Type: AuthAPIKey, APIKey: key, Header: header}
	}
}

// WithBearerToken authenticates with a bearer token.
func WithBearerToken(token string) OpenAPIOption {
	return func(c *OpenAPIConnector) {
		c.auth = AuthConfig{Type: AuthBearer, Token: token}
	}
}

// WithBasicAuth authenticates with HTTP basic credentials.
func WithBasicAuth(user, pass string) OpenAPIOption {
	return func(c *OpenAPIConnector) {
		c.auth = AuthConfig{Type: AuthBasic, User: user, Pass: pass}
	}
}

// LoadOpenAPIConnector reads an OpenAPI document from the filesystem.
func LoadOpenAPIConnector(path string, opts ...OpenAPIOption) (*OpenAPIConnector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spec: %w", err)
	}
	return NewOpenAPIConnector(data, opts...)
}

// NewOpenAPIConnector parses a JSON or YAML OpenAPI document and generates
// its tools.
func NewOpenAPIConnector(data []byte, opts ...OpenAPIOption) (*OpenAPIConnector, error) {
	var spec OpenAPISpec
	if err := json.Unmarshal(data, &spec); err != nil {
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("parse spec (tried JSON and YAML): %w", err)
		}
	}
	if len(spec.Paths) == 0 {
		return nil, errors.New(errors.CodeInvalidInput, "spec declares no paths", nil)
	}

	c := &OpenAPIConnector{
		spec:   &spec,
		name:   "api",
		client: http.DefaultClient,
		cap:    defaultMaxTools,
	}
	if len(spec.Servers) > 0 {
		c.baseURL = spec.Servers[0].URL
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		return nil, errors.New(errors.CodeInvalidInput, "no server URL in spec and no base URL configured", nil)
	}

	c.generate()
	if len(c.tools) == 0 {
		return nil, errors.New(errors.CodeInvalidInput, "spec has no usable operations", nil)
	}
	return c, nil
}

// Name returns the configured connector name.
func (c *OpenAPIConnector) Name() string {
	return c.name
}

// Title returns the API title from the document.
func (c *OpenAPIConnector) Title() string {
	return c.spec.Info.Title
}

// Tools returns the generated tools in deterministic order.
func (c *OpenAPIConnector) Tools() []core.Tool {
	return c.tools
}

// Skipped reports how many operations the cap excluded.
func (c *OpenAPIConnector) Skipped() int {
	return c.skipped
}

var methodOrder = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

func (c *OpenAPIConnector) generate() {
	paths := make([]string, 0, len(c.spec.Paths))
	for p := range c.spec.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		item := c.spec.Paths[path]
		for _, method := range methodOrder {
			op := item.operation(method)
			if op == nil {
				continue
			}
			if method != http.MethodGet && !c.writes {
				c.skipped++
				continue
			}
			if len(c.tools) >= c.cap {
				c.skipped++
				continue
			}
			c.tools = append(c.tools, newAPIOperation(c, method, path, op))
		}
	}
}

func (p PathItem) operation(method string) *Operation {
	switch method {
	case http.MethodGet:
		return p.Get
	case http.MethodPost:
		return p.Post
	case http.MethodPut:
		return p.Put
	case http.MethodPatch:
		return p.Patch
	case http.MethodDelete:
		return p.Delete
	}
	return nil
}

var toolNameSanitizer = regexp.MustCompile(`[^a-z0-9_]+`)

// apiOperation is one generated tool: a single method+path bound to the
// connector's base URL and auth.
type apiOperation struct {
	connector *OpenAPIConnector
	name      string
	method    string
	path      string
	op        *Operation
}

func newAPIOperation(c *OpenAPIConnector, method, path string, op *Operation) *apiOperation {
	id := op.OperationID
	if id == "" {
		id = strings.ToLower(method) + strings.ReplaceAll(path, "/", "_")
	}
	id = toolNameSanitizer.ReplaceAllString(toSnakeCase(id), "_")
	id = strings.Trim(id, "_")

	return &apiOperation{
		connector: c,
		name:      c.name + "_" + id,
		method:    method,
		path:      path,
		op:        op,
	}
}

// toSnakeCase converts camelCase operation IDs to snake_case tool names.
func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && s[i-1] != '_' {
				b.WriteRune('_')
			}
			b.WriteRune(r + 32)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (a *apiOperation) Name() string {
	return a.name
}

// Connector reports which connector generated this tool.
func (a *apiOperation) Connector() string {
	return a.connector.name
}

func (a *apiOperation) Description() string {
	desc := a.op.Summary
	if desc == "" {
		desc = a.op.Description
	}
	if desc == "" {
		return fmt.Sprintf("%s %s on %s", a.method, a.path, a.connector.spec.Info.Title)
	}
	return fmt.Sprintf("%s (%s %s)", desc, a.method, a.path)
}

func (a *apiOperation) ParameterSchema() map[string]any {
	properties := make(map[string]any)
	var required []string

	for _, param := range a.op.Parameters {
		properties[param.Name] = paramSchema(param)
		if param.Required {
			required = append(required, param.Name)
		}
	}

	if body := a.jsonBody(); body != nil {
		if body.Properties != nil {
			for name, prop := range body.Properties {
				properties[name] = schemaToMap(prop)
			}
			required = append(required, body.Required...)
		} else {
			properties["body"] = schemaToMap(body)
			if a.op.RequestBody.Required {
				required = append(required, "body")
			}
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func (a *apiOperation) jsonBody() *Schema {
	if a.op.RequestBody == nil {
		return nil
	}
	content, ok := a.op.RequestBody.Content["application/json"]
	if !ok {
		return nil
	}
	return content.Schema
}

// ValidateParams checks required parameters without issuing the request.
func (a *apiOperation) ValidateParams(params map[string]any) error {
	for _, param := range a.op.Parameters {
		if !param.Required {
			continue
		}
		if _, ok := params[param.Name]; !ok {
			return errors.New(errors.CodeInvalidInput,
				fmt.Sprintf("missing required parameter %q (%s)", param.Name, param.In), nil)
		}
	}
	if body := a.jsonBody(); body != nil {
		for _, name := range body.Required {
			if _, ok := params[name]; !ok {
				return errors.New(errors.CodeInvalidInput,
					fmt.Sprintf("missing required body field %q", name), nil)
			}
		}
	}
	return nil
}

func (a *apiOperation) Execute(ctx context.Context, params map[string]any) core.ExecutionResult {
	if err := a.ValidateParams(params); err != nil {
		return core.Failuref("invalid parameters: %v", err)
	}
	if err := ctx.Err(); err != nil {
		return core.Failuref("canceled before %s %s: %v", a.method, a.path, err)
	}

	reqPath := a.path
	query := url.Values{}
	headers := http.Header{}
	consumed := make(map[string]bool)

	for _, param := range a.op.Parameters {
		value, ok := params[param.Name]
		if !ok {
			continue
		}
		consumed[param.Name] = true
		str := fmt.Sprintf("%v", value)
		switch param.In {
		case "path":
			reqPath = strings.ReplaceAll(reqPath, "{"+param.Name+"}", url.PathEscape(str))
		case "query":
			query.Set(param.Name, str)
		case "header":
			headers.Set(param.Name, str)
		}
	}
	if strings.Contains(reqPath, "{") {
		return core.Failuref("unresolved path parameters in %s", reqPath)
	}

	var bodyReader io.Reader
	if a.op.RequestBody != nil {
		payload := a.bodyPayload(params, consumed)
		if payload != nil {
			encoded, err := json.Marshal(payload)
			if err != nil {
				return core.Failuref("encoding request body: %v", err)
			}
			bodyReader = strings.NewReader(string(encoded))
		}
	}

	endpoint := strings.TrimRight(a.connector.baseURL, "/") + reqPath
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, a.method, endpoint, bodyReader)
	if err != nil {
		return core.Failuref("building request: %v", err)
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	a.connector.applyAuth(req)

	resp, err := a.connector.client.Do(req)
	if err != nil {
		return core.Failuref("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return core.Failuref("reading response: %v", err)
	}

	if resp.StatusCode >= 400 {
		return core.Failuref("API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	output := strings.TrimSpace(string(body))
	if output == "" {
		output = fmt.Sprintf("%s %s returned status %d with no body", a.method, a.path, resp.StatusCode)
	}
	res := core.Successf("%s", output)
	return res.WithMetadata(map[string]any{"status": resp.StatusCode})
}

// bodyPayload assembles the JSON body: an explicit "body" argument wins,
// otherwise every argument that is not a declared parameter becomes a field.
func (a *apiOperation) bodyPayload(params map[string]any, consumed map[string]bool) any {
	if body, ok := params["body"]; ok {
		return body
	}
	fields := make(map[string]any)
	for key, value := range params {
		if consumed[key] {
			continue
		}
		fields[key] = value
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func paramSchema(param Parameter) map[string]any {
	schema := map[string]any{
		"type":        "string",
		"description": param.Description,
	}
	if param.Schema != nil {
		if param.Schema.Type != "" {
			schema["type"] = param.Schema.Type
		}
		if len(param.Schema.Enum) > 0 {
			schema["enum"] = param.Schema.Enum
		}
		if param.Schema.Default != nil {
			schema["default"] = param.Schema.Default
		}
	}
	return schema
}

func schemaToMap(schema *Schema) map[string]any {
	if schema == nil {
		return map[string]any{"type": "string"}
	}
	out := map[string]any{}
	if schema.Type != "" {
		out["type"] = schema.Type
	}
	if schema.Description != "" {
		out["description"] = schema.Description
	}
	if len(schema.Enum) > 0 {
		out["enum"] = schema.Enum
	}
	if schema.Default != nil {
		out["default"] = schema.Default
	}
	if schema.Properties != nil {
		props := make(map[string]any, len(schema.Properties))
		for name, prop := range schema.Properties {
			props[name] = schemaToMap(prop)
		}
		out["properties"] = props
	}
	if schema.Items != nil {
		out["items"] = schemaToMap(schema.Items)
	}
	if len(schema.Required) > 0 {
		out["required"] = schema.Required
	}
	return out
}

func (c *OpenAPIConnector) applyAuth(req *http.Request) {
	switch c.auth.Type {
	case AuthAPIKey:
		header := c.auth.Header
		if header == "" {
			header = "X-API-Key"
		}
		req.Header.Set(header, c.auth.APIKey)
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+c.auth.Token)
	case AuthBasic:
		req.SetBasicAuth(c.auth.User, c.auth.Pass)
	}
}
