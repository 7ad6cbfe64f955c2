package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Log        LogConfig        `koanf:"log"`
	LLM        LLMConfig        `koanf:"llm"`
	Agent      AgentConfig      `koanf:"agent"`
	Tools      ToolsConfig      `koanf:"tools"`
	Governance GovernanceConfig `koanf:"governance"`
	Guardrails GuardrailsConfig `koanf:"guardrails"`
	Memory     MemoryConfig     `koanf:"memory"`
	Task       TaskConfig       `koanf:"task"`
	Journal    JournalConfig    `koanf:"journal"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	Runtime    RuntimeConfig    `koanf:"runtime"`
	MCP        MCPConfig        `koanf:"mcp"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type LLMConfig struct {
	Provider       string `koanf:"provider"` // ollama, openai, mock
	Model          string `koanf:"model"`
	BaseURL        string `koanf:"base_url"`
	APIKey         string `koanf:"api_key"`
	MaxTokens      int    `koanf:"max_tokens"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
	MaxRetries     int    `koanf:"max_retries"`
}

type AgentConfig struct {
	Autonomous    bool `koanf:"autonomous"`
	MaxIterations int  `koanf:"max_iterations"`
	MaxRetries    int  `koanf:"max_retries"` // per-step remediation budget
}

type ToolsConfig struct {
	Workspace             string          `koanf:"workspace"`
	CommandTimeoutSeconds int             `koanf:"command_timeout_seconds"`
	CommandAllowlist      []string        `koanf:"command_allowlist"` // empty allows everything
	MaxOutputBytes        int             `koanf:"max_output_bytes"`
	SkillsDir             string          `koanf:"skills_dir"` // empty disables skill loading
	Database              DatabaseConfig  `koanf:"database"`
	OpenAPI               []OpenAPIConfig `koanf:"openapi"`
}

// DatabaseConfig wires a database connector tool. An empty DSN leaves the
// connector off.
type DatabaseConfig struct {
	Driver      string   `koanf:"driver"`
	DSN         string   `koanf:"dsn"`
	ToolName    string   `koanf:"tool_name"`
	Tables      []string `koanf:"tables"` // empty exposes every table
	AllowWrites bool     `koanf:"allow_writes"`
	MaxRows     int      `koanf:"max_rows"`
}

// OpenAPIConfig wires one OpenAPI document as a set of connector tools.
type OpenAPIConfig struct {
	Name        string            `koanf:"name"`
	Spec        string            `koanf:"spec"` // path to the document
	BaseURL     string            `koanf:"base_url"`
	AllowWrites bool              `koanf:"allow_writes"`
	MaxTools    int               `koanf:"max_tools"`
	Auth        OpenAPIAuthConfig `koanf:"auth"`
}

type OpenAPIAuthConfig struct {
	Type   string `koanf:"type"` // api-key, bearer, basic
	APIKey string `koanf:"api_key"`
	Header string `koanf:"header"`
	Token  string `koanf:"token"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
}

type GovernanceConfig struct {
	Enabled            bool   `koanf:"enabled"`
	PolicyPath         string `koanf:"policy_path"`
	ApprovalDB         string `koanf:"approval_db"` // sqlite path, empty keeps approvals in memory
	ApprovalTTLSeconds int    `koanf:"approval_ttl_seconds"`
}

type GuardrailsConfig struct {
	Enabled         bool `koanf:"enabled"`
	MaxGoalLength   int  `koanf:"max_goal_length"`
	StrictInjection bool `koanf:"strict_injection"`
	MaskPII         bool `koanf:"mask_pii"` // mask PII in summaries persisted to run memory
}

type MemoryConfig struct {
	Enabled          bool   `koanf:"enabled"`
	Provider         string `koanf:"provider"` // vector, keyword
	QdrantAddr       string `koanf:"qdrant_addr"`
	Collection       string `koanf:"collection"`
	EmbedderProvider string `koanf:"embedder_provider"` // ollama
	EmbedderBaseURL  string `koanf:"embedder_base_url"`
	EmbedderModel    string `koanf:"embedder_model"`
	TopK             int    `koanf:"top_k"`
}

type TaskConfig struct {
	Store string `koanf:"store"` // memory, sqlite
	DSN   string `koanf:"dsn"`
}

type JournalConfig struct {
	Enabled bool   `koanf:"enabled"`
	DSN     string `koanf:"dsn"`
}

type TelemetryConfig struct {
	Exporter           string            `koanf:"exporter"` // stdout, otlp
	OTLPEndpoint       string            `koanf:"otlp_endpoint"`
	OTLPInsecure       bool              `koanf:"otlp_insecure"`
	OTLPTimeoutSeconds int               `koanf:"otlp_timeout_seconds"`
	OTLPHeaders        map[string]string `koanf:"otlp_headers"`
	OTLPUser           string            `koanf:"otlp_user"`
	OTLPToken          string            `koanf:"otlp_token"`
}

type RuntimeConfig struct {
	ApprovalSweepIntervalSeconds int `koanf:"approval_sweep_interval_seconds"`
}

type MCPConfig struct {
	Enabled bool                       `koanf:"enabled"`
	Servers map[string]MCPServerConfig `koanf:"servers"`
}

type MCPServerConfig struct {
	Transport       string   `koanf:"transport"` // stdio, http
	Command         string   `koanf:"command"`
	Args            []string `koanf:"args"`
	URL             string   `koanf:"url"`
	ProtocolVersion string   `koanf:"protocol_version"`
	// Optional per-server overrides; nil keeps the client defaults.
	TimeoutSeconds  *int `koanf:"timeout_seconds"`
	RetryCount      *int `koanf:"retry_count"`
	RetryBackoffMs  *int `koanf:"retry_backoff_ms"`
	CacheTTLSeconds *int `koanf:"cache_ttl_seconds"`
}

// Global k instance
var k = koanf.New(".")

// Load reads configuration from the optional YAML file at path, applying
// defaults first and PRAXIS_* environment variables last.
func Load(path string) (*Config, error) {
	return load(path, "", nil)
}

// LoadWithProfile loads the base config file and overlays the profile
// variant (config.yaml + config.dev.yaml for profile "dev") when it exists.
func LoadWithProfile(path, profile string) (*Config, error) {
	return load(path, profile, nil)
}

// LoadWithCLI loads configuration honoring --config, --profile/--env, and
// --set key=value flags. --set overrides win over file and environment.
func LoadWithCLI(args []string) (*Config, error) {
	path, ov, err := parseCLIOverrides(args)
	if err != nil {
		return nil, err
	}
	return load(path, ov.profile, ov.sets)
}

func load(path, profile string, sets []setOverride) (*Config, error) {
	// Fresh instance so stale keys from a previous load never leak through.
	k = koanf.New(".")

	// Defaults
	k.Set("log.level", "info")
	k.Set("log.format", "text")

	k.Set("llm.provider", "ollama")
	k.Set("llm.model", "qwen2.5-coder:7b-instruct-q5_K_M")
	k.Set("llm.base_url", "http://localhost:11434")
	k.Set("llm.max_tokens", 4096)
	k.Set("llm.timeout_seconds", 120)
	k.Set("llm.max_retries", 2)

	k.Set("agent.autonomous", false)
	k.Set("agent.max_iterations", 10)
	k.Set("agent.max_retries", 3)

	k.Set("tools.workspace", ".")
	k.Set("tools.command_timeout_seconds", 60)
	k.Set("tools.max_output_bytes", 16384)
	k.Set("tools.database.driver", "sqlite")

	k.Set("governance.enabled", true)
	k.Set("governance.approval_ttl_seconds", 3600)

	k.Set("guardrails.enabled", false)
	k.Set("guardrails.max_goal_length", 8192)
	k.Set("guardrails.mask_pii", true)

	k.Set("memory.enabled", false)
	k.Set("memory.provider", "vector")
	k.Set("memory.qdrant_addr", "localhost:6334")
	k.Set("memory.collection", "praxis_runs")
	k.Set("memory.embedder_provider", "ollama")
	k.Set("memory.embedder_base_url", "http://localhost:11434")
	k.Set("memory.embedder_model", "nomic-embed-text")
	k.Set("memory.top_k", 3)

	k.Set("task.store", "memory")

	k.Set("journal.enabled", false)

	k.Set("telemetry.exporter", "stdout")

	k.Set("runtime.approval_sweep_interval_seconds", 60)

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// 2. Profile overlay (config.dev.yaml over config.yaml)
	if pp := profileConfigPath(path, profile); pp != "" {
		if err := k.Load(file.Provider(pp), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// 3. Load from ENV (PRAXIS_LLM_PROVIDER -> llm.provider)
	if err := k.Load(env.Provider("PRAXIS_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "PRAXIS_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// 4. CLI --set overrides win over everything
	for _, s := range sets {
		k.Set(s.key, s.value)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// profileConfigPath resolves the profile variant of a config path, returning
// "" when either input is empty or the variant file does not exist.
func profileConfigPath(base, profile string) string {
	if base == "" || profile == "" {
		return ""
	}
	dir := filepath.Dir(base)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(filepath.Base(base), ext)
	path := filepath.Join(dir, name+"."+profile+ext)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

type setOverride struct {
	key   string
	value any
}

type cliOverrides struct {
	profile string
	sets    []setOverride
}

func parseCLIOverrides(args []string) (string, cliOverrides, error) {
	var path string
	var ov cliOverrides

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--config":
			i++
			if i >= len(args) {
				return "", ov, fmt.Errorf("--config requires a value")
			}
			path = args[i]
		case strings.HasPrefix(arg, "--config="):
			path = strings.TrimPrefix(arg, "--config=")
		case arg == "--profile", arg == "--env":
			i++
			if i >= len(args) {
				return "", ov, fmt.Errorf("%s requires a value", arg)
			}
			ov.profile = args[i]
		case strings.HasPrefix(arg, "--profile="):
			ov.profile = strings.TrimPrefix(arg, "--profile=")
		case strings.HasPrefix(arg, "--env="):
			ov.profile = strings.TrimPrefix(arg, "--env=")
		case arg == "--set":
			i++
			if i >= len(args) {
				return "", ov, fmt.Errorf("--set requires key=value")
			}
			s, err := parseSetFlag(args[i])
			if err != nil {
				return "", ov, err
			}
			ov.sets = append(ov.sets, s)
		case strings.HasPrefix(arg, "--set="):
			s, err := parseSetFlag(strings.TrimPrefix(arg, "--set="))
			if err != nil {
				return "", ov, err
			}
			ov.sets = append(ov.sets, s)
		}
	}
	return path, ov, nil
}

func parseSetFlag(raw string) (setOverride, error) {
	key, value, found := strings.Cut(raw, "=")
	if !found || key == "" {
		return setOverride{}, fmt.Errorf("--set expects key=value, got %q", raw)
	}
	return setOverride{key: key, value: coerceValue(value)}, nil
}

// coerceValue decodes JSON object/array literals so structured --set values
// (like mcp.servers) survive unmarshaling; everything else stays a string
// and relies on weakly typed decoding.
func coerceValue(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	}
	return raw
}
