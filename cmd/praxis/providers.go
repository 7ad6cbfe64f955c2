// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"os"
)

// Provider describes a pluggable backend and the config keys that select it.
type Provider struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	ConfigKeys  []string `json:"config_keys,omitempty"`
	Docs        string   `json:"docs,omitempty"`
}

// providerCatalog is the catalog of known backends.
var providerCatalog = []Provider{
	// Completion providers
	{
		Name:        "ollama",
		Type:        "llm",
		Description: "Local model inference with Ollama",
		ConfigKeys:  []string{"llm.provider=ollama", "llm.base_url", "llm.model"},
		Docs:        "https://ollama.ai",
	},
	{
		Name:        "openai",
		Type:        "llm",
		Description: "OpenAI completion API",
		ConfigKeys:  []string{"llm.provider=openai", "llm.api_key", "llm.model"},
		Docs:        "https://platform.openai.com/docs",
	},
	{
		Name:        "openai-compat",
		Type:        "llm",
		Description: "Any OpenAI-compatible endpoint (vLLM, llama.cpp, LM Studio)",
		ConfigKeys:  []string{"llm.provider=openai-compat", "llm.base_url", "llm.api_key", "llm.model"},
		Docs:        "pkg/llm/openai.go",
	},
	{
		Name:        "mock",
		Type:        "llm",
		Description: "Canned responses for tests and dry wiring checks",
		ConfigKeys:  []string{"llm.provider=mock"},
		Docs:        "pkg/llm/mock_scripted.go",
	},

	// Run memory
	{
		Name:        "keyword",
		Type:        "memory",
		Description: "In-process keyword recall over past runs",
		ConfigKeys:  []string{"memory.enabled=true", "memory.provider=keyword"},
		Docs:        "pkg/memory/keyword.go",
	},
	{
		Name:        "vector",
		Type:        "memory",
		Description: "Semantic recall via Qdrant with Ollama embeddings",
		ConfigKeys:  []string{"memory.enabled=true", "memory.provider=vector", "memory.qdrant_addr", "memory.embedder_model"},
		Docs:        "https://qdrant.tech",
	},

	// Task store
	{
		Name:        "tasks-memory",
		Type:        "tasks",
		Description: "In-memory task records, lost at process exit",
		ConfigKeys:  []string{"task.store=memory"},
		Docs:        "pkg/task/task.go",
	},
	{
		Name:        "tasks-sqlite",
		Type:        "tasks",
		Description: "Durable task records; required for preview/apply across invocations",
		ConfigKeys:  []string{"task.store=sqlite", "task.dsn"},
		Docs:        "pkg/task/sqlite.go",
	},

	// Approvals
	{
		Name:        "approvals-sqlite",
		Type:        "approvals",
		Description: "Durable plan approvals bound to plan digests",
		ConfigKeys:  []string{"governance.enabled=true", "governance.approval_db", "governance.approval_ttl_seconds"},
		Docs:        "pkg/governance/approval_sqlite.go",
	},

	// Run journal
	{
		Name:        "journal-sqlite",
		Type:        "journal",
		Description: "Append-only run event journal",
		ConfigKeys:  []string{"journal.enabled=true", "journal.dsn"},
		Docs:        "pkg/agent/journal_sqlite.go",
	},

	// Tool surfaces
	{
		Name:        "skills",
		Type:        "tools",
		Description: "Markdown skill documents loaded from the workspace as tools",
		ConfigKeys:  []string{"tools.skills_dir"},
		Docs:        "pkg/skills/skills.go",
	},
	{
		Name:        "database",
		Type:        "tools",
		Description: "Schema-aware SQL access to a configured database",
		ConfigKeys:  []string{"tools.database.dsn", "tools.database.driver", "tools.database.allow_writes", "tools.database.tables"},
		Docs:        "pkg/connectors/database.go",
	},
	{
		Name:        "openapi",
		Type:        "tools",
		Description: "One tool per operation of an OpenAPI 3 document",
		ConfigKeys:  []string{"tools.openapi.<n>.spec", "tools.openapi.<n>.base_url", "tools.openapi.<n>.allow_writes"},
		Docs:        "pkg/connectors/openapi.go",
	},

	// MCP transports
	{
		Name:        "mcp-stdio",
		Type:        "mcp",
		Description: "MCP server run as a subprocess over stdio",
		ConfigKeys:  []string{"mcp.servers.<name>.transport=stdio", "mcp.servers.<name>.command"},
		Docs:        "https://modelcontextprotocol.io",
	},
	{
		Name:        "mcp-http",
		Type:        "mcp",
		Description: "MCP server over streamable HTTP",
		ConfigKeys:  []string{"mcp.servers.<name>.transport=http", "mcp.servers.<name>.url"},
		Docs:        "https://modelcontextprotocol.io",
	},

	// Telemetry
	{
		Name:        "otel-stdout",
		Type:        "telemetry",
		Description: "OpenTelemetry traces and metrics pretty-printed to stdout",
		ConfigKeys:  []string{"telemetry.exporter=stdout"},
		Docs:        "pkg/telemetry/telemetry.go",
	},
	{
		Name:        "otel-otlp",
		Type:        "telemetry",
		Description: "OpenTelemetry export over OTLP gRPC",
		ConfigKeys:  []string{"telemetry.exporter=otlp", "telemetry.otlp_endpoint", "telemetry.otlp_insecure"},
		Docs:        "pkg/telemetry/telemetry.go",
	},
}

func runProviders(global globalFlags, args []string) {
	if len(args) == 0 {
		runProvidersList(global, nil)
		return
	}
	switch args[0] {
	case "list":
		runProvidersList(global, args[1:])
	case "info":
		runProvidersInfo(global, args[1:])
	default:
		// Bare type filter: praxis providers llm
		runProvidersList(global, []string{"--type", args[0]})
	}
}

func runProvidersList(global globalFlags, args []string) {
	cmd := flag.NewFlagSet("providers list", flag.ContinueOnError)
	filterType := cmd.String("type", "", "filter by type: llm, memory, tasks, approvals, journal, tools, mcp, telemetry")
	if err := cmd.Parse(args); err != nil {
		fatal(err)
	}
	ensureNoArgs(cmd.Args())

	entries := providerCatalog
	if *filterType != "" {
		filtered := make([]Provider, 0)
		for _, p := range entries {
			if p.Type == *filterType {
				filtered = append(filtered, p)
			}
		}
		entries = filtered
	}

	if global.JSON {
		printJSON(map[string]any{"providers": entries, "total": len(entries)})
		return
	}

	if len(entries) == 0 {
		fmt.Println("No providers found.")
		return
	}

	writer := newTabWriter()
	writeRow(writer, "NAME", "TYPE", "DESCRIPTION")
	for _, p := range entries {
		writeRow(writer, p.Name, p.Type, p.Description)
	}
	_ = writer.Flush()

	fmt.Println("\nUse 'praxis providers info <name>' for configuration details.")
}

func runProvidersInfo(global globalFlags, args []string) {
	if len(args) != 1 {
		fatal(fmt.Errorf("usage: praxis providers info <name>"))
	}
	name := args[0]

	var found *Provider
	for i := range providerCatalog {
		if providerCatalog[i].Name == name {
			found = &providerCatalog[i]
			break
		}
	}

	if global.JSON {
		result := map[string]any{"found": found != nil}
		if found != nil {
			result["provider"] = *found
		}
		printJSON(result)
		if found == nil {
			os.Exit(1)
		}
		return
	}

	if found == nil {
		fmt.Printf("Provider %q not found.\n", name)
		fmt.Println("\nAvailable providers:")
		for _, p := range providerCatalog {
			fmt.Printf("  - %s (%s)\n", p.Name, p.Type)
		}
		os.Exit(1)
	}

	fmt.Printf("Provider: %s\n", found.Name)
	fmt.Printf("Type: %s\n", found.Type)
	fmt.Printf("Description: %s\n", found.Description)
	if len(found.ConfigKeys) > 0 {
		fmt.Println("\nConfiguration:")
		for _, key := range found.ConfigKeys {
			fmt.Printf("  %s\n", key)
		}
	}
	if found.Docs != "" {
		fmt.Printf("\nDocumentation: %s\n", found.Docs)
	}
}
