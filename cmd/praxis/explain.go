// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/jllopis/praxis/pkg/config"
	"github.com/jllopis/praxis/pkg/connectors"
	"github.com/jllopis/praxis/pkg/governance"
	"github.com/jllopis/praxis/pkg/skills"
)

// explain prints the environment a run would assemble from the effective
// configuration without starting it: no provider call, no store open, no
// MCP dial. Skills and OpenAPI specs are parsed from disk; the database
// connector is described from config alone. 'praxis tools list' is the
// dialing counterpart.

type explainResult struct {
	Workspace  explainWorkspace  `json:"workspace"`
	LLM        explainLLM        `json:"llm"`
	Agent      explainAgent      `json:"agent"`
	Governance explainGovernance `json:"governance"`
	Guardrails explainGuardrails `json:"guardrails"`
	Memory     explainMemory     `json:"memory"`
	Stores     explainStores     `json:"stores"`
	Telemetry  explainTelemetry  `json:"telemetry"`
	Tools      []explainTool     `json:"tools"`
	MCPServers []explainMCP      `json:"mcp_servers,omitempty"`
}

type explainWorkspace struct {
	Path            string   `json:"path"`
	Instructions    bool     `json:"instructions"`
	CommandTimeout  int      `json:"command_timeout_seconds,omitempty"`
	CommandAllowed  []string `json:"command_allowlist,omitempty"`
	MaxOutputBytes  int      `json:"max_output_bytes,omitempty"`
}

type explainLLM struct {
	Provider   string `json:"provider"`
	Model      string `json:"model,omitempty"`
	BaseURL    string `json:"base_url,omitempty"`
	MaxTokens  int    `json:"max_tokens,omitempty"`
	MaxRetries int    `json:"max_retries,omitempty"`
}

type explainAgent struct {
	Autonomous    bool `json:"autonomous"`
	MaxIterations int  `json:"max_iterations"`
	MaxRetries    int  `json:"max_retries"`
}

type explainGovernance struct {
	Enabled     bool   `json:"enabled"`
	PolicyPath  string `json:"policy_path,omitempty"`
	Rules       int    `json:"rules"`
	Gated       int    `json:"gated"`
	PolicyError string `json:"policy_error,omitempty"`
	ApprovalDB  string `json:"approval_db,omitempty"`
	ApprovalTTL int    `json:"approval_ttl_seconds,omitempty"`
}

type explainGuardrails struct {
	Enabled         bool `json:"enabled"`
	MaxGoalLength   int  `json:"max_goal_length,omitempty"`
	StrictInjection bool `json:"strict_injection,omitempty"`
	MaskPII         bool `json:"mask_pii,omitempty"`
}

type explainMemory struct {
	Enabled    bool   `json:"enabled"`
	Provider   string `json:"provider,omitempty"`
	QdrantAddr string `json:"qdrant_addr,omitempty"`
	Embedder   string `json:"embedder,omitempty"`
	TopK       int    `json:"top_k,omitempty"`
}

type explainStores struct {
	Tasks   string `json:"tasks"`
	Journal string `json:"journal"`
}

type explainTelemetry struct {
	Exporter string `json:"exporter"`
	Endpoint string `json:"endpoint,omitempty"`
}

type explainTool struct {
	Name        string `json:"name"`
	Source      string `json:"source"`
	Description string `json:"description,omitempty"`
}

type explainMCP struct {
	Name      string `json:"name"`
	Transport string `json:"transport"`
	Target    string `json:"target"`
}

func runExplain(global globalFlags, args []string) {
	ensureNoArgs(args)

	cfg, err := loadConfig(global)
	if err != nil {
		exitError(global.JSON, WrapConfigError(err))
	}

	result := buildExplainResult(cfg)

	if global.JSON {
		printJSON(result)
		return
	}
	printExplainTree(result)
}

func buildExplainResult(cfg *config.Config) explainResult {
	ws := strings.TrimSpace(cfg.Tools.Workspace)
	if ws == "" {
		ws = "."
	}
	hasInstructions := false
	if instructions, err := governance.LoadAGENTS(ws); err == nil && instructions.Instructions() != "" {
		hasInstructions = true
	}

	result := explainResult{
		Workspace: explainWorkspace{
			Path:           ws,
			Instructions:   hasInstructions,
			CommandTimeout: cfg.Tools.CommandTimeoutSeconds,
			CommandAllowed: cfg.Tools.CommandAllowlist,
			MaxOutputBytes: cfg.Tools.MaxOutputBytes,
		},
		LLM: explainLLM{
			Provider:   cfg.LLM.Provider,
			Model:      cfg.LLM.Model,
			BaseURL:    cfg.LLM.BaseURL,
			MaxTokens:  cfg.LLM.MaxTokens,
			MaxRetries: cfg.LLM.MaxRetries,
		},
		Agent: explainAgent{
			Autonomous:    cfg.Agent.Autonomous,
			MaxIterations: cfg.Agent.MaxIterations,
			MaxRetries:    cfg.Agent.MaxRetries,
		},
		Guardrails: explainGuardrails{
			Enabled:         cfg.Guardrails.Enabled,
			MaxGoalLength:   cfg.Guardrails.MaxGoalLength,
			StrictInjection: cfg.Guardrails.StrictInjection,
			MaskPII:         cfg.Guardrails.MaskPII,
		},
		Memory: explainMemory{
			Enabled:    cfg.Memory.Enabled,
			Provider:   cfg.Memory.Provider,
			QdrantAddr: cfg.Memory.QdrantAddr,
			Embedder:   cfg.Memory.EmbedderModel,
			TopK:       cfg.Memory.TopK,
		},
		Telemetry: explainTelemetry{
			Exporter: cfg.Telemetry.Exporter,
			Endpoint: cfg.Telemetry.OTLPEndpoint,
		},
	}

	result.Governance = explainGovernanceResult(cfg)
	result.Stores = explainStoresResult(cfg)
	result.Tools = []explainTool{
		{Name: "file", Source: "local", Description: "read, write, list, and delete files inside the workspace"},
		{Name: "command", Source: "local", Description: "run shell commands inside the workspace"},
		{Name: "git", Source: "local", Description: "git operations against the workspace repository"},
	}
	result.Tools = append(result.Tools, explainSkillTools(cfg)...)
	result.Tools = append(result.Tools, explainConnectorTools(cfg)...)
	if cfg.MCP.Enabled {
		for name, server := range cfg.MCP.Servers {
			transport := strings.ToLower(strings.TrimSpace(server.Transport))
			if transport == "" {
				transport = "stdio"
			}
			target := server.Command
			if transport != "stdio" {
				target = server.URL
			}
			result.MCPServers = append(result.MCPServers, explainMCP{
				Name:      name,
				Transport: transport,
				Target:    target,
			})
		}
	}
	return result
}

func explainSkillTools(cfg *config.Config) []explainTool {
	dir := strings.TrimSpace(cfg.Tools.SkillsDir)
	if dir == "" {
		return nil
	}
	paths, err := skills.Discover(dir)
	if err != nil {
		return nil
	}
	out := make([]explainTool, 0, len(paths))
	for _, path := range paths {
		spec, err := skills.LoadFile(path)
		if err != nil {
			// The runtime skips invalid skills too; validate reports them.
			continue
		}
		out = append(out, explainTool{
			Name:        spec.Name,
			Source:      "skill",
			Description: spec.Description,
		})
	}
	return out
}

func explainConnectorTools(cfg *config.Config) []explainTool {
	var out []explainTool

	if strings.TrimSpace(cfg.Tools.Database.DSN) != "" {
		name := cfg.Tools.Database.ToolName
		if name == "" {
			name = "db"
		}
		driver := strings.TrimSpace(cfg.Tools.Database.Driver)
		if driver == "" {
			driver = "sqlite"
		}
		mode := "read-only"
		if cfg.Tools.Database.AllowWrites {
			mode = "read-write"
		}
		out = append(out, explainTool{
			Name:        name,
			Source:      "connector",
			Description: fmt.Sprintf("%s database at %s, %s", driver, cfg.Tools.Database.DSN, mode),
		})
	}

	for _, api := range cfg.Tools.OpenAPI {
		if strings.TrimSpace(api.Spec) == "" {
			continue
		}
		opts := []connectors.OpenAPIOption{}
		if api.Name != "" {
			opts = append(opts, connectors.WithConnectorName(api.Name))
		}
		if api.BaseURL != "" {
			opts = append(opts, connectors.WithBaseURL(api.BaseURL))
		}
		if api.AllowWrites {
			opts = append(opts, connectors.WithOpenAPIWrites())
		}
		if api.MaxTools > 0 {
			opts = append(opts, connectors.WithMaxTools(api.MaxTools))
		}
		conn, err := connectors.LoadOpenAPIConnector(api.Spec, opts...)
		if err != nil {
			continue
		}
		for _, tool := range conn.Tools() {
			out = append(out, explainTool{
				Name:        tool.Name(),
				Source:      "connector",
				Description: tool.Description(),
			})
		}
	}

	return out
}

func explainGovernanceResult(cfg *config.Config) explainGovernance {
	out := explainGovernance{
		Enabled:     cfg.Governance.Enabled,
		PolicyPath:  cfg.Governance.PolicyPath,
		ApprovalDB:  cfg.Governance.ApprovalDB,
		ApprovalTTL: cfg.Governance.ApprovalTTLSeconds,
	}
	if !cfg.Governance.Enabled || strings.TrimSpace(cfg.Governance.PolicyPath) == "" {
		return out
	}
	rs, err := governance.LoadRuleSet(cfg.Governance.PolicyPath)
	if err != nil {
		out.PolicyError = err.Error()
		return out
	}
	out.Rules = len(rs.Rules)
	for _, rule := range rs.Rules {
		switch strings.ToLower(strings.TrimSpace(rule.Effect)) {
		case "require-approval", "pending":
			out.Gated++
		}
	}
	return out
}

func explainStoresResult(cfg *config.Config) explainStores {
	out := explainStores{Tasks: "memory", Journal: "disabled"}
	if strings.EqualFold(cfg.Task.Store, "sqlite") && cfg.Task.DSN != "" {
		out.Tasks = fmt.Sprintf("sqlite (%s)", cfg.Task.DSN)
	}
	if cfg.Journal.Enabled {
		out.Journal = "memory"
		if cfg.Journal.DSN != "" {
			out.Journal = fmt.Sprintf("sqlite (%s)", cfg.Journal.DSN)
		}
	}
	return out
}

func printExplainTree(r explainResult) {
	fmt.Printf("Workspace: %s\n", r.Workspace.Path)
	if r.Workspace.Instructions {
		fmt.Printf("│   AGENTS.md instructions feed the planner\n")
	}
	if len(r.Workspace.CommandAllowed) > 0 {
		fmt.Printf("│   Commands restricted to: %s\n", strings.Join(r.Workspace.CommandAllowed, ", "))
	}

	llmInfo := r.LLM.Provider
	if r.LLM.Model != "" {
		llmInfo = fmt.Sprintf("%s (%s)", r.LLM.Provider, r.LLM.Model)
	}
	fmt.Printf("├── LLM: %s\n", llmInfo)

	mode := "step-gated"
	if r.Agent.Autonomous {
		mode = "autonomous"
	}
	fmt.Printf("├── Agent: %s, up to %d iterations, %d retries per step\n",
		mode, r.Agent.MaxIterations, r.Agent.MaxRetries)

	switch {
	case !r.Governance.Enabled:
		fmt.Printf("├── Governance: disabled\n")
	case r.Governance.PolicyError != "":
		fmt.Printf("├── Governance: policy error: %s\n", r.Governance.PolicyError)
	case r.Governance.PolicyPath == "":
		fmt.Printf("├── Governance: enabled, no policy (allow all)\n")
	default:
		fmt.Printf("├── Governance: %d rules, %d require approval\n", r.Governance.Rules, r.Governance.Gated)
	}

	if r.Guardrails.Enabled {
		fmt.Printf("├── Guardrails: enabled (max goal length %d)\n", r.Guardrails.MaxGoalLength)
	} else {
		fmt.Printf("├── Guardrails: disabled\n")
	}

	memInfo := "disabled"
	if r.Memory.Enabled {
		memInfo = r.Memory.Provider
		if r.Memory.QdrantAddr != "" && (r.Memory.Provider == "" || r.Memory.Provider == "vector") {
			memInfo = fmt.Sprintf("vector (qdrant %s)", r.Memory.QdrantAddr)
		}
	}
	fmt.Printf("├── Memory: %s\n", memInfo)

	fmt.Printf("├── Stores: tasks %s, journal %s\n", r.Stores.Tasks, r.Stores.Journal)
	fmt.Printf("├── Telemetry: %s\n", r.Telemetry.Exporter)

	fmt.Printf("├── Tools: %d\n", len(r.Tools))
	for i, t := range r.Tools {
		prefix := "│   ├──"
		if i == len(r.Tools)-1 && len(r.MCPServers) == 0 {
			prefix = "│   └──"
		}
		label := t.Name
		if t.Source != "local" {
			label = fmt.Sprintf("%s (%s)", t.Name, t.Source)
		}
		fmt.Printf("%s %s\n", prefix, label)
	}

	if len(r.MCPServers) > 0 {
		fmt.Printf("└── MCP servers: %d\n", len(r.MCPServers))
		for i, s := range r.MCPServers {
			prefix := "    ├──"
			if i == len(r.MCPServers)-1 {
				prefix = "    └──"
			}
			fmt.Printf("%s %s (%s: %s)\n", prefix, s.Name, s.Transport, truncateMessage(s.Target, 50))
		}
	} else {
		fmt.Printf("└── MCP servers: none\n")
	}
}
