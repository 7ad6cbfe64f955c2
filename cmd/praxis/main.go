package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/jllopis/praxis/pkg/config"
	"github.com/jllopis/praxis/pkg/runtime"
	"github.com/jllopis/praxis/pkg/telemetry"
)

// version is stamped by the release build; "dev" otherwise.
var version = "dev"

type globalFlags struct {
	ConfigArgs []string
	Timeout    time.Duration
	JSON       bool
	Help       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	global, args, err := parseGlobalFlags(os.Args[1:])
	if err != nil {
		fatal(err)
	}
	if global.Help || len(args) == 0 {
		printUsage()
		return
	}

	cmd := args[0]
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}

	switch cmd {
	case "run":
		runRun(ctx, global, args[1:])
	case "tasks":
		runTasks(ctx, global, args[1:])
	case "approvals":
		runApprovals(ctx, global, args[1:])
	case "tools":
		runTools(ctx, global, args[1:])
	case "providers":
		runProviders(global, args[1:])
	case "validate":
		runValidate(ctx, global, args[1:])
	case "explain":
		runExplain(global, args[1:])
	case "serve-mcp":
		runServeMCP(ctx, global, args[1:])
	case "init":
		runInit(global, args[1:])
	case "help":
		printUsage()
	case "version":
		printVersion()
	default:
		if sub == "" {
			fatal(fmt.Errorf("unknown command %q", cmd))
		}
		fatal(fmt.Errorf("unknown command %q %q", cmd, sub))
	}
}

func parseGlobalFlags(args []string) (globalFlags, []string, error) {
	flags := globalFlags{
		Timeout: 10 * time.Minute,
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return flags, args[i+1:], nil
		}
		if !strings.HasPrefix(arg, "-") {
			return flags, args[i:], nil
		}
		switch {
		case arg == "-h" || arg == "--help":
			flags.Help = true
			return flags, nil, nil
		case arg == "--json":
			flags.JSON = true
		case arg == "--config":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for --config")
			}
			flags.ConfigArgs = append(flags.ConfigArgs, arg, args[i+1])
			i++
		case strings.HasPrefix(arg, "--config="):
			flags.ConfigArgs = append(flags.ConfigArgs, arg)
		case arg == "--profile":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for --profile")
			}
			flags.ConfigArgs = append(flags.ConfigArgs, arg, args[i+1])
			i++
		case strings.HasPrefix(arg, "--profile="):
			flags.ConfigArgs = append(flags.ConfigArgs, arg)
		case arg == "--set":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for --set")
			}
			flags.ConfigArgs = append(flags.ConfigArgs, arg, args[i+1])
			i++
		case strings.HasPrefix(arg, "--set="):
			flags.ConfigArgs = append(flags.ConfigArgs, arg)
		case arg == "--timeout":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for --timeout")
			}
			value, err := time.ParseDuration(args[i+1])
			if err != nil {
				return flags, nil, fmt.Errorf("invalid --timeout: %w", err)
			}
			flags.Timeout = value
			i++
		case strings.HasPrefix(arg, "--timeout="):
			value, err := time.ParseDuration(strings.TrimPrefix(arg, "--timeout="))
			if err != nil {
				return flags, nil, fmt.Errorf("invalid --timeout: %w", err)
			}
			flags.Timeout = value
		default:
			return flags, nil, fmt.Errorf("unknown global flag %q", arg)
		}
	}
	return flags, nil, nil
}

// loadConfig resolves the effective configuration for a command. When no
// --config was given it falls back to PRAXIS_CONFIG and then to the first
// praxis.yaml found in the usual places, so running inside a configured
// workspace just works.
func loadConfig(flags globalFlags) (*config.Config, error) {
	return config.LoadWithCLI(withDiscoveredConfig(flags.ConfigArgs))
}

func withDiscoveredConfig(configArgs []string) []string {
	if hasConfigArg(configArgs) {
		return configArgs
	}
	if path := discoverConfigPath(); path != "" {
		return append([]string{"--config", path}, configArgs...)
	}
	return configArgs
}

func hasConfigArg(configArgs []string) bool {
	for _, arg := range configArgs {
		if arg == "--config" || strings.HasPrefix(arg, "--config=") {
			return true
		}
	}
	return false
}

func discoverConfigPath() string {
	if path := getenv("PRAXIS_CONFIG", ""); path != "" {
		return path
	}
	candidates := []string{
		"praxis.yaml",
		"praxis.yml",
		".praxis/praxis.yaml",
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// newRuntime builds the local runtime for one command invocation. Logging
// goes to stderr so stdout stays a clean data channel; telemetry export is
// suppressed for the same reason unless the command opts back in.
func newRuntime(cfg *config.Config, withTelemetry bool) (*runtime.LocalRuntime, error) {
	telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	opts := []runtime.LocalOption{runtime.WithVersion(version)}
	if !withTelemetry {
		opts = append(opts, runtime.WithoutTelemetry())
	}
	return runtime.NewLocal(cfg, opts...)
}

// openRuntime starts the runtime for commands that only read or mutate
// local state. Remote tool servers are never dialed for those.
func openRuntime(ctx context.Context, global globalFlags) (*runtime.LocalRuntime, *config.Config, func()) {
	cfg, err := loadConfig(global)
	if err != nil {
		exitError(global.JSON, WrapConfigError(err))
	}
	cfg.MCP.Enabled = false
	rt, err := newRuntime(cfg, false)
	if err != nil {
		exitError(global.JSON, WrapRuntimeError(err))
	}
	if err := rt.Start(ctx); err != nil {
		exitError(global.JSON, WrapRuntimeError(err))
	}
	cleanup := func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rt.Stop(stopCtx)
	}
	return rt, cfg, cleanup
}

func printJSON(value any) {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(payload))
}

func newTabWriter() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
}

func writeRow(writer *tabwriter.Writer, cols ...string) {
	for i, col := range cols {
		cols[i] = normalizeCell(col)
	}
	fmt.Fprintln(writer, strings.Join(cols, "\t"))
}

func normalizeCell(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return strings.Join(strings.Fields(value), " ")
}

func truncateMessage(value string, limit int) string {
	value = normalizeCell(value)
	if limit <= 0 || len(value) <= limit {
		return value
	}
	if limit <= 3 {
		return value[:limit]
	}
	return value[:limit-3] + "..."
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.UTC().Format(time.RFC3339)
}

func printVersion() {
	fmt.Println(version)
}

func printUsage() {
	fmt.Print(`Praxis: a goal-driven coding agent

Usage:
  praxis [global flags] <command> [args]

Global flags:
  --config <path>      Path to praxis.yaml (default: auto-discovered)
  --profile <name>     Config profile to layer on top of the base file
  --set key=value      Override config (repeatable)
  --timeout <dur>      Run timeout (default 10m)
  --json               JSON output

Commands:
  run <goal...>        Plan and execute a goal in the workspace
  run --preview <goal...>
                       Plan only; park the task pending approval
  run --apply <task_id>
                       Execute a previously previewed plan
  tasks list [--status <state>] [--limit N]
  tasks show <task_id>
  tasks graph <task_id> [--format mermaid|dot]
  approvals list [--status <status>]
  approvals approve <id> [--reason <text>]
  approvals reject <id> [--reason <text>]
  tools list           Tools available to the agent, local and MCP
  providers [type]     Pluggable backends and their config keys
  validate             Check config, provider, workspace, policy, MCP
  explain              Show the effective configuration and assembly
  serve-mcp            Expose the local tools as an MCP stdio server
  init [dir]           Write a starter praxis.yaml
  version
`)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func ensureNoArgs(args []string) {
	if len(args) > 0 {
		fatal(fmt.Errorf("unexpected args: %v", args))
	}
}

func getenv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
