// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

const starterConfig = `# Praxis workspace configuration.
# Every key can be overridden per invocation with --set key=value.

log:
  level: info
  format: text

llm:
  provider: ollama
  model: qwen2.5-coder:7b-instruct-q5_K_M
  base_url: http://localhost:11434
  max_tokens: 4096
  max_retries: 2

agent:
  # autonomous keeps executing past step failures; the default stops and
  # asks the model for a remediation first.
  autonomous: false
  max_iterations: 10
  max_retries: 3

tools:
  workspace: .
  command_timeout_seconds: 60
  # command_allowlist:
  #   - go
  #   - git
  #   - make
  # Each subdirectory of skills_dir with a SKILL.md becomes a tool.
  # skills_dir: .praxis/skills
  # database:
  #   dsn: inventory.db
  #   allow_writes: false
  #   tables: [parts, orders]
  # openapi:
  #   - name: status
  #     spec: openapi.yaml
  #     base_url: https://status.example.com

governance:
  enabled: true
  policy_path: .praxis/policy.yaml
  approval_db: .praxis/approvals.db
  approval_ttl_seconds: 3600

guardrails:
  enabled: true
  max_goal_length: 8192
  mask_pii: true

# Durable stores make preview/approve/apply work across invocations.
task:
  store: sqlite
  dsn: .praxis/tasks.db

journal:
  enabled: true
  dsn: .praxis/journal.db

memory:
  enabled: false
  provider: vector
  qdrant_addr: localhost:6334
  collection: praxis_runs
  embedder_model: nomic-embed-text

telemetry:
  exporter: stdout
  # exporter: otlp
  # otlp_endpoint: localhost:4317
  # otlp_insecure: true

# mcp:
#   enabled: true
#   servers:
#     docs:
#       transport: http
#       url: http://localhost:9090/mcp
`

const starterPolicy = `# Policy rules are evaluated in order; the first match wins.
# Effects: allow, deny, require-approval.
default: allow
rules:
  - id: protect-remote-history
    target: "git:push"
    effect: deny
    reason: pushing is out of bounds for the agent
  - id: gate-deletes
    target: "file:delete"
    effect: require-approval
    reason: deletions need a human eye
`

// runInit writes a starter praxis.yaml and policy file into an existing
// repository. It never scaffolds code; praxis works on the code already
// there.
func runInit(global globalFlags, args []string) {
	cmd := flag.NewFlagSet("init", flag.ContinueOnError)
	force := cmd.Bool("force", false, "overwrite existing files")
	noPolicy := cmd.Bool("no-policy", false, "skip the starter policy file")
	if err := cmd.Parse(args); err != nil {
		fatal(err)
	}
	rest := cmd.Args()
	dir := "."
	switch len(rest) {
	case 0:
	case 1:
		dir = rest[0]
	default:
		fatal(fmt.Errorf("usage: praxis init [dir] [--force] [--no-policy]"))
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		fatal(fmt.Errorf("create %s: %w", dir, err))
	}

	configPath := filepath.Join(dir, "praxis.yaml")
	if err := writeStarter(configPath, starterConfig, *force); err != nil {
		fatal(err)
	}
	written := []string{configPath}

	if !*noPolicy {
		policyDir := filepath.Join(dir, ".praxis")
		if err := os.MkdirAll(policyDir, 0o755); err != nil {
			fatal(fmt.Errorf("create %s: %w", policyDir, err))
		}
		policyPath := filepath.Join(policyDir, "policy.yaml")
		if err := writeStarter(policyPath, starterPolicy, *force); err != nil {
			fatal(err)
		}
		written = append(written, policyPath)
	}

	if global.JSON {
		printJSON(map[string]any{"written": written})
		return
	}

	for _, path := range written {
		fmt.Printf("wrote %s\n", path)
	}
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  praxis validate")
	fmt.Println("  praxis run --preview <goal>")
}

func writeStarter(path, content string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists; use --force to overwrite", path)
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
