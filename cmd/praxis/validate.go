// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jllopis/praxis/pkg/config"
	"github.com/jllopis/praxis/pkg/connectors"
	"github.com/jllopis/praxis/pkg/governance"
	"github.com/jllopis/praxis/pkg/runtime"
	"github.com/jllopis/praxis/pkg/skills"
)

type validateResult struct {
	Config     checkResult   `json:"config"`
	LLM        checkResult   `json:"llm"`
	Workspace  checkResult   `json:"workspace"`
	Governance checkResult   `json:"governance"`
	Stores     []checkResult `json:"stores"`
	Memory     checkResult   `json:"memory"`
	Skills     checkResult   `json:"skills"`
	Connectors []checkResult `json:"connectors"`
	MCP        []checkResult `json:"mcp"`
	Guardrails checkResult   `json:"guardrails"`
	Overall    string        `json:"overall"`
}

type checkResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warn", "error", "skip"
	Message string `json:"message,omitempty"`
}

func runValidate(ctx context.Context, global globalFlags, args []string) {
	ensureNoArgs(args)

	result := validateResult{
		Stores:     []checkResult{},
		Connectors: []checkResult{},
		MCP:        []checkResult{},
	}
	hasError := false
	hasWarn := false
	track := func(r checkResult) checkResult {
		switch r.Status {
		case "error":
			hasError = true
		case "warn":
			hasWarn = true
		}
		return r
	}

	cfg, err := loadConfig(global)
	if err != nil {
		result.Config = track(checkResult{
			Name:    "config",
			Status:  "error",
			Message: fmt.Sprintf("failed to load: %v", err),
		})
	} else {
		result.Config = checkResult{Name: "config", Status: "ok"}
	}

	if cfg != nil {
		result.LLM = track(validateLLM(cfg))
		result.Workspace = track(validateWorkspace(cfg))
		result.Governance = track(validateGovernance(cfg))
		for _, r := range validateStores(cfg) {
			result.Stores = append(result.Stores, track(r))
		}
		result.Memory = track(validateMemory(cfg))
		result.Skills = track(validateSkills(cfg))
		for _, r := range validateConnectors(ctx, cfg) {
			result.Connectors = append(result.Connectors, track(r))
		}
		if len(cfg.MCP.Servers) > 0 && cfg.MCP.Enabled {
			for _, r := range validateMCPServers(ctx, cfg) {
				result.MCP = append(result.MCP, track(r))
			}
		}
		result.Guardrails = validateGuardrails(cfg)
	} else {
		skip := func(name string) checkResult {
			return checkResult{Name: name, Status: "skip", Message: "config not loaded"}
		}
		result.LLM = skip("llm")
		result.Workspace = skip("workspace")
		result.Governance = skip("governance")
		result.Memory = skip("memory")
		result.Skills = skip("skills")
		result.Guardrails = skip("guardrails")
	}

	switch {
	case hasError:
		result.Overall = "error"
	case hasWarn:
		result.Overall = "warn"
	default:
		result.Overall = "ok"
	}

	if global.JSON {
		printJSON(result)
		if hasError {
			os.Exit(1)
		}
		return
	}

	printValidateResult(result)

	if hasError {
		os.Exit(1)
	}
}

func validateLLM(cfg *config.Config) checkResult {
	switch strings.ToLower(strings.TrimSpace(cfg.LLM.Provider)) {
	case "", "ollama":
		baseURL := cfg.LLM.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Get(baseURL + "/api/tags")
		if err != nil {
			return checkResult{
				Name:    "llm",
				Status:  "error",
				Message: fmt.Sprintf("ollama not reachable at %s: %v", baseURL, err),
			}
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return checkResult{
				Name:    "llm",
				Status:  "error",
				Message: fmt.Sprintf("ollama returned status %d", resp.StatusCode),
			}
		}
		if cfg.LLM.Model == "" {
			return checkResult{
				Name:    "llm",
				Status:  "warn",
				Message: "ollama reachable but no model configured",
			}
		}
		return checkResult{
			Name:    "llm",
			Status:  "ok",
			Message: fmt.Sprintf("ollama (%s)", cfg.LLM.Model),
		}

	case "openai":
		if cfg.LLM.APIKey == "" {
			return checkResult{
				Name:    "llm",
				Status:  "error",
				Message: "openai configured but no api_key set",
			}
		}
		return checkResult{
			Name:    "llm",
			Status:  "ok",
			Message: fmt.Sprintf("openai (%s)", cfg.LLM.Model),
		}

	case "openai-compat":
		if cfg.LLM.BaseURL == "" {
			return checkResult{
				Name:    "llm",
				Status:  "error",
				Message: "openai-compat configured but no base_url set",
			}
		}
		if cfg.LLM.APIKey == "" {
			return checkResult{
				Name:    "llm",
				Status:  "warn",
				Message: fmt.Sprintf("openai-compat at %s without api_key", cfg.LLM.BaseURL),
			}
		}
		return checkResult{
			Name:    "llm",
			Status:  "ok",
			Message: fmt.Sprintf("openai-compat (%s)", cfg.LLM.Model),
		}

	case "mock":
		return checkResult{
			Name:    "llm",
			Status:  "ok",
			Message: "mock provider",
		}

	default:
		return checkResult{
			Name:    "llm",
			Status:  "error",
			Message: fmt.Sprintf("unknown provider %q", cfg.LLM.Provider),
		}
	}
}

func validateWorkspace(cfg *config.Config) checkResult {
	ws := strings.TrimSpace(cfg.Tools.Workspace)
	if ws == "" {
		ws = "."
	}
	info, err := os.Stat(ws)
	if err != nil {
		return checkResult{
			Name:    "workspace",
			Status:  "error",
			Message: fmt.Sprintf("not accessible: %v", err),
		}
	}
	if !info.IsDir() {
		return checkResult{
			Name:    "workspace",
			Status:  "error",
			Message: fmt.Sprintf("%s is not a directory", ws),
		}
	}
	message := ws
	if len(cfg.Tools.CommandAllowlist) > 0 {
		message = fmt.Sprintf("%s (commands restricted to: %s)", ws, strings.Join(cfg.Tools.CommandAllowlist, ", "))
	}
	return checkResult{Name: "workspace", Status: "ok", Message: message}
}

func validateGovernance(cfg *config.Config) checkResult {
	if !cfg.Governance.Enabled {
		return checkResult{
			Name:    "governance",
			Status:  "skip",
			Message: "disabled",
		}
	}
	path := strings.TrimSpace(cfg.Governance.PolicyPath)
	if path == "" {
		return checkResult{
			Name:    "governance",
			Status:  "warn",
			Message: "enabled without a policy_path; every action is allowed",
		}
	}
	rs, err := governance.LoadRuleSet(path)
	if err != nil {
		return checkResult{
			Name:    "governance",
			Status:  "error",
			Message: fmt.Sprintf("policy %s: %v", path, err),
		}
	}
	gated := 0
	for _, rule := range rs.Rules {
		switch strings.ToLower(strings.TrimSpace(rule.Effect)) {
		case "require-approval", "pending":
			gated++
		}
	}
	return checkResult{
		Name:    "governance",
		Status:  "ok",
		Message: fmt.Sprintf("%d rules (%d require approval)", len(rs.Rules), gated),
	}
}

func validateStores(cfg *config.Config) []checkResult {
	results := make([]checkResult, 0, 3)

	if strings.EqualFold(cfg.Task.Store, "sqlite") && cfg.Task.DSN != "" {
		results = append(results, checkResult{
			Name:    "task-store",
			Status:  "ok",
			Message: fmt.Sprintf("sqlite: %s", cfg.Task.DSN),
		})
	} else {
		results = append(results, checkResult{
			Name:    "task-store",
			Status:  "warn",
			Message: "in-memory; tasks are lost when the process exits",
		})
	}

	if cfg.Governance.Enabled {
		if cfg.Governance.ApprovalDB != "" {
			results = append(results, checkResult{
				Name:    "approval-store",
				Status:  "ok",
				Message: fmt.Sprintf("sqlite: %s", cfg.Governance.ApprovalDB),
			})
		} else {
			results = append(results, checkResult{
				Name:    "approval-store",
				Status:  "warn",
				Message: "in-memory; preview/apply across invocations will not work",
			})
		}
	}

	if cfg.Journal.Enabled {
		if cfg.Journal.DSN != "" {
			results = append(results, checkResult{
				Name:    "journal",
				Status:  "ok",
				Message: fmt.Sprintf("sqlite: %s", cfg.Journal.DSN),
			})
		} else {
			results = append(results, checkResult{
				Name:    "journal",
				Status:  "warn",
				Message: "enabled without a DSN; events are lost when the process exits",
			})
		}
	}

	return results
}

func validateMemory(cfg *config.Config) checkResult {
	if !cfg.Memory.Enabled {
		return checkResult{Name: "memory", Status: "skip", Message: "disabled"}
	}
	switch strings.ToLower(cfg.Memory.Provider) {
	case "", "vector":
		addr := cfg.Memory.QdrantAddr
		if !checkTCP(addr) {
			return checkResult{
				Name:    "memory",
				Status:  "error",
				Message: fmt.Sprintf("qdrant not reachable at %s", addr),
			}
		}
		return checkResult{
			Name:    "memory",
			Status:  "ok",
			Message: fmt.Sprintf("qdrant %s, collection %s", addr, cfg.Memory.Collection),
		}
	case "keyword":
		return checkResult{Name: "memory", Status: "ok", Message: "keyword (in-process)"}
	default:
		return checkResult{
			Name:    "memory",
			Status:  "error",
			Message: fmt.Sprintf("unknown provider %q", cfg.Memory.Provider),
		}
	}
}

func validateSkills(cfg *config.Config) checkResult {
	dir := strings.TrimSpace(cfg.Tools.SkillsDir)
	if dir == "" {
		return checkResult{Name: "skills", Status: "skip", Message: "not configured"}
	}
	specs, err := skills.LoadDir(dir)
	if err != nil {
		return checkResult{
			Name:    "skills",
			Status:  "error",
			Message: err.Error(),
		}
	}
	if len(specs) == 0 {
		return checkResult{
			Name:    "skills",
			Status:  "warn",
			Message: fmt.Sprintf("no skills found in %s", dir),
		}
	}
	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		names = append(names, spec.Name)
	}
	return checkResult{
		Name:    "skills",
		Status:  "ok",
		Message: fmt.Sprintf("%d skills: %s", len(specs), strings.Join(names, ", ")),
	}
}

func validateConnectors(ctx context.Context, cfg *config.Config) []checkResult {
	results := []checkResult{}

	if strings.TrimSpace(cfg.Tools.Database.DSN) != "" {
		results = append(results, validateDatabase(ctx, cfg.Tools.Database))
	}
	for _, api := range cfg.Tools.OpenAPI {
		results = append(results, validateOpenAPISpec(api))
	}

	return results
}

func validateDatabase(ctx context.Context, dbCfg config.DatabaseConfig) checkResult {
	name := dbCfg.ToolName
	if name == "" {
		name = "db"
	}
	check := fmt.Sprintf("connector:%s", name)

	driver := strings.TrimSpace(dbCfg.Driver)
	if driver == "" {
		driver = "sqlite"
	}
	db, err := sql.Open(driver, dbCfg.DSN)
	if err != nil {
		return checkResult{
			Name:    check,
			Status:  "error",
			Message: fmt.Sprintf("open %s: %v", driver, err),
		}
	}
	defer db.Close()

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(checkCtx); err != nil {
		return checkResult{
			Name:    check,
			Status:  "error",
			Message: fmt.Sprintf("%s not reachable: %v", dbCfg.DSN, err),
		}
	}

	opts := []connectors.DatabaseOption{}
	if len(dbCfg.Tables) > 0 {
		opts = append(opts, connectors.WithDatabaseTables(dbCfg.Tables...))
	}
	tool, err := connectors.NewDatabaseTool(checkCtx, db, driver, opts...)
	if err != nil {
		return checkResult{Name: check, Status: "error", Message: err.Error()}
	}
	mode := "read-only"
	if dbCfg.AllowWrites {
		mode = "read-write"
	}
	return checkResult{
		Name:    check,
		Status:  "ok",
		Message: fmt.Sprintf("%s: %d tables, %s", driver, len(tool.Tables()), mode),
	}
}

func validateOpenAPISpec(api config.OpenAPIConfig) checkResult {
	name := api.Name
	if name == "" {
		name = "api"
	}
	check := fmt.Sprintf("connector:%s", name)

	if strings.TrimSpace(api.Spec) == "" {
		return checkResult{Name: check, Status: "error", Message: "missing spec path"}
	}
	opts := []connectors.OpenAPIOption{connectors.WithConnectorName(name)}
	if api.BaseURL != "" {
		opts = append(opts, connectors.WithBaseURL(api.BaseURL))
	}
	if api.AllowWrites {
		opts = append(opts, connectors.WithOpenAPIWrites())
	}
	if api.MaxTools > 0 {
		opts = append(opts, connectors.WithMaxTools(api.MaxTools))
	}
	// Parse check only; the upstream API is not contacted.
	conn, err := connectors.LoadOpenAPIConnector(api.Spec, opts...)
	if err != nil {
		return checkResult{
			Name:    check,
			Status:  "error",
			Message: fmt.Sprintf("%s: %v", api.Spec, err),
		}
	}
	message := fmt.Sprintf("%s: %d tools", conn.Title(), len(conn.Tools()))
	if conn.Skipped() > 0 {
		message = fmt.Sprintf("%s (%d operations skipped)", message, conn.Skipped())
	}
	return checkResult{Name: check, Status: "ok", Message: message}
}

func validateMCPServers(ctx context.Context, cfg *config.Config) []checkResult {
	results := make([]checkResult, 0, len(cfg.MCP.Servers))

	for name, server := range cfg.MCP.Servers {
		transport := strings.ToLower(strings.TrimSpace(server.Transport))
		if transport == "" {
			transport = "stdio"
		}

		switch transport {
		case "stdio":
			if strings.TrimSpace(server.Command) == "" {
				results = append(results, checkResult{
					Name:    fmt.Sprintf("mcp:%s", name),
					Status:  "error",
					Message: "missing command for stdio transport",
				})
				continue
			}
			// Config check only; spawning the process here is too intrusive.
			results = append(results, checkResult{
				Name:    fmt.Sprintf("mcp:%s", name),
				Status:  "ok",
				Message: fmt.Sprintf("stdio: %s", server.Command),
			})

		case "http", "streamable-http", "streamablehttp":
			if server.URL == "" {
				results = append(results, checkResult{
					Name:    fmt.Sprintf("mcp:%s", name),
					Status:  "error",
					Message: "missing url for http transport",
				})
				continue
			}
			checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			client, err := runtime.NewMCPClient(name, server)
			if err != nil {
				cancel()
				results = append(results, checkResult{
					Name:    fmt.Sprintf("mcp:%s", name),
					Status:  "error",
					Message: fmt.Sprintf("failed to connect: %v", err),
				})
				continue
			}
			remoteTools, err := client.ListTools(checkCtx)
			cancel()
			_ = client.Close()
			if err != nil {
				results = append(results, checkResult{
					Name:    fmt.Sprintf("mcp:%s", name),
					Status:  "error",
					Message: fmt.Sprintf("failed to list tools: %v", err),
				})
				continue
			}
			results = append(results, checkResult{
				Name:    fmt.Sprintf("mcp:%s", name),
				Status:  "ok",
				Message: fmt.Sprintf("http: %d tools available", len(remoteTools)),
			})

		default:
			results = append(results, checkResult{
				Name:    fmt.Sprintf("mcp:%s", name),
				Status:  "error",
				Message: fmt.Sprintf("unsupported transport %q", transport),
			})
		}
	}

	return results
}

func validateGuardrails(cfg *config.Config) checkResult {
	if !cfg.Guardrails.Enabled {
		return checkResult{Name: "guardrails", Status: "skip", Message: "disabled"}
	}
	return checkResult{
		Name:    "guardrails",
		Status:  "ok",
		Message: fmt.Sprintf("enabled (max goal length %d)", cfg.Guardrails.MaxGoalLength),
	}
}

func checkTCP(addr string) bool {
	if strings.TrimSpace(addr) == "" {
		return false
	}
	conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func printValidateResult(result validateResult) {
	statusIcon := map[string]string{
		"ok":    "✓",
		"warn":  "⚠",
		"error": "✗",
		"skip":  "○",
	}

	fmt.Println("Praxis Configuration Validation")
	fmt.Println("================================")
	fmt.Println()

	printCheck(statusIcon, result.Config)
	printCheck(statusIcon, result.LLM)
	printCheck(statusIcon, result.Workspace)
	printCheck(statusIcon, result.Governance)
	for _, r := range result.Stores {
		printCheck(statusIcon, r)
	}
	printCheck(statusIcon, result.Memory)
	printCheck(statusIcon, result.Skills)
	for _, r := range result.Connectors {
		printCheck(statusIcon, r)
	}
	if len(result.MCP) > 0 {
		for _, r := range result.MCP {
			printCheck(statusIcon, r)
		}
	} else {
		fmt.Printf("%s mcp: no servers configured\n", statusIcon["ok"])
	}
	printCheck(statusIcon, result.Guardrails)

	fmt.Println()
	switch result.Overall {
	case "ok":
		fmt.Println("✓ All checks passed")
	case "warn":
		fmt.Println("⚠ Validation completed with warnings")
	case "error":
		fmt.Println("✗ Validation failed")
	}
}

func printCheck(icons map[string]string, r checkResult) {
	icon := icons[r.Status]
	if r.Message != "" {
		fmt.Printf("%s %s: %s\n", icon, r.Name, r.Message)
	} else {
		fmt.Printf("%s %s\n", icon, r.Name)
	}
}
