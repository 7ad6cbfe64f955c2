// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

// Package runtime assembles a working agent environment from configuration:
// completion provider, tool registry (local and MCP), policy engine, task
// and approval stores, run memory, and the approval sweeper. Every submitted
// goal gets a fresh planner/executor/iterator/agent chain; the runtime owns
// the shared stores and their lifecycle.
package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/praxis/pkg/agent"
	"github.com/jllopis/praxis/pkg/config"
	"github.com/jllopis/praxis/pkg/connectors"
	"github.com/jllopis/praxis/pkg/core"
	praxiserrors "github.com/jllopis/praxis/pkg/errors"
	"github.com/jllopis/praxis/pkg/governance"
	"github.com/jllopis/praxis/pkg/guardrails"
	"github.com/jllopis/praxis/pkg/llm"
	"github.com/jllopis/praxis/pkg/mcp"
	"github.com/jllopis/praxis/pkg/memory"
	ollamaembed "github.com/jllopis/praxis/pkg/memory/ollama"
	"github.com/jllopis/praxis/pkg/memory/qdrant"
	"github.com/jllopis/praxis/pkg/planner"
	"github.com/jllopis/praxis/pkg/resilience"
	"github.com/jllopis/praxis/pkg/skills"
	"github.com/jllopis/praxis/pkg/task"
	"github.com/jllopis/praxis/pkg/telemetry"
	"github.com/jllopis/praxis/pkg/tools"

	_ "modernc.org/sqlite"
)

const serviceName = "praxis"

// Runtime is the lifecycle surface the CLI drives.
type Runtime interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Submit(ctx context.Context, goal string, opts ...RunOption) (*task.Record, error)
	Apply(ctx context.Context, taskID string, opts ...RunOption) (*task.Record, error)
}

// LocalRuntime is the in-process runtime.
type LocalRuntime struct {
	cfg     *config.Config
	version string
	tracer  trace.Tracer

	provider  llm.Provider
	registry  *tools.Registry
	policy    governance.PolicyEngine
	guard     *guardrails.Guardrails
	taskStore task.Store
	manager   *task.Manager
	approvals governance.ApprovalStore
	runMemory memory.Memory
	journal   agent.RunJournal
	metrics   *telemetry.RunMetrics
	health    *core.HealthSet

	noTelemetry       bool
	telemetryShutdown telemetry.ShutdownFunc
	dbs               []*sql.DB
	mcpClients        []*mcp.Client

	approvalExpirers      []ApprovalExpirer
	approvalSweepInterval time.Duration
	approvalSweepTimeout  time.Duration
	approvalSweepCancel   context.CancelFunc
	approvalSweepDone     chan struct{}

	mu      sync.Mutex
	started bool
}

// LocalOption overrides a component the runtime would otherwise build from
// configuration. Injected components are not closed on Stop.
type LocalOption func(*LocalRuntime)

// WithProvider injects the completion provider.
func WithProvider(p llm.Provider) LocalOption {
	return func(r *LocalRuntime) { r.provider = p }
}

// WithRegistry injects the tool registry.
func WithRegistry(reg *tools.Registry) LocalOption {
	return func(r *LocalRuntime) { r.registry = reg }
}

// WithTaskStore injects the task store.
func WithTaskStore(s task.Store) LocalOption {
	return func(r *LocalRuntime) { r.taskStore = s }
}

// WithApprovalStore injects the approval store.
func WithApprovalStore(s governance.ApprovalStore) LocalOption {
	return func(r *LocalRuntime) { r.approvals = s }
}

// WithRunMemory injects the run memory backend.
func WithRunMemory(m memory.Memory) LocalOption {
	return func(r *LocalRuntime) { r.runMemory = m }
}

// WithRunJournal injects the run journal.
func WithRunJournal(j agent.RunJournal) LocalOption {
	return func(r *LocalRuntime) { r.journal = j }
}

// WithPolicyEngine injects the policy engine instead of loading the
// configured policy file.
func WithPolicyEngine(engine governance.PolicyEngine) LocalOption {
	return func(r *LocalRuntime) { r.policy = engine }
}

// WithGuardrails injects the content guardrails chain.
func WithGuardrails(g *guardrails.Guardrails) LocalOption {
	return func(r *LocalRuntime) { r.guard = g }
}

// WithoutTelemetry skips OpenTelemetry SDK initialization on Start. Spans
// and metrics still record against whatever global providers are installed.
func WithoutTelemetry() LocalOption {
	return func(r *LocalRuntime) { r.noTelemetry = true }
}

// WithVersion sets the service version reported to telemetry.
func WithVersion(v string) LocalOption {
	return func(r *LocalRuntime) {
		if v != "" {
			r.version = v
		}
	}
}

// NewLocal creates a runtime over the given configuration. Components not
// injected through options are built from the config on Start.
func NewLocal(cfg *config.Config, opts ...LocalOption) (*LocalRuntime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	r := &LocalRuntime{
		cfg:     cfg,
		version: "dev",
		health:  core.NewHealthSet(),
	}
	if cfg.Runtime.ApprovalSweepIntervalSeconds > 0 {
		r.approvalSweepInterval = time.Duration(cfg.Runtime.ApprovalSweepIntervalSeconds) * time.Second
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Start builds every component the configuration asks for and launches the
// approval sweeper. Starting an already started runtime is a no-op.
func (r *LocalRuntime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer("praxis/runtime")
	}
	log := slog.Default()

	if !r.noTelemetry {
		shutdown, err := telemetry.InitWithConfig(serviceName, r.version, telemetry.Config{
			Exporter:           r.cfg.Telemetry.Exporter,
			OTLPEndpoint:       r.cfg.Telemetry.OTLPEndpoint,
			OTLPInsecure:       r.cfg.Telemetry.OTLPInsecure,
			OTLPTimeoutSeconds: r.cfg.Telemetry.OTLPTimeoutSeconds,
			OTLPHeaders:        r.cfg.Telemetry.OTLPHeaders,
			OTLPUser:           r.cfg.Telemetry.OTLPUser,
			OTLPToken:          r.cfg.Telemetry.OTLPToken,
		})
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		r.telemetryShutdown = shutdown
	}
	if r.metrics == nil {
		m, err := telemetry.NewRunMetrics(ctx)
		if err != nil {
			log.Warn("runtime.metrics.error", slog.String("error", err.Error()))
		} else {
			r.metrics = m
		}
	}

	if r.provider == nil {
		p, err := buildProvider(r.cfg)
		if err != nil {
			return err
		}
		r.provider = p
	}
	if r.registry == nil {
		r.registry = buildRegistry(r.cfg)
	}
	if r.policy == nil && r.cfg.Governance.Enabled && r.cfg.Governance.PolicyPath != "" {
		engine, err := governance.LoadRuleSet(r.cfg.Governance.PolicyPath)
		if err != nil {
			return fmt.Errorf("load policy %s: %w", r.cfg.Governance.PolicyPath, err)
		}
		r.policy = engine
	}
	if r.guard == nil && r.cfg.Guardrails.Enabled {
		r.guard = buildGuardrails(r.cfg)
	}

	if err := r.buildTaskStore(); err != nil {
		return err
	}
	manager, err := task.NewManager(r.taskStore)
	if err != nil {
		return err
	}
	r.manager = manager

	if err := r.buildApprovalStore(); err != nil {
		return err
	}
	if r.approvals != nil {
		r.AddApprovalExpirer(NewStoreExpirer(r.approvals))
	}

	if err := r.buildRunMemory(); err != nil {
		return err
	}
	if err := r.buildJournal(); err != nil {
		return err
	}
	r.loadSkills(log)
	r.connectDatabase(ctx, log)
	r.connectOpenAPI(log)
	if r.cfg.MCP.Enabled {
		r.connectMCPServers(ctx, log)
	}
	r.registerHealthChecks()

	r.startApprovalSweeper()
	r.started = true
	log.Info("runtime.start",
		slog.Int("tools", len(r.registry.Names())),
		slog.String("task_store", r.cfg.Task.Store),
		slog.Bool("governance", r.approvals != nil),
		slog.Bool("memory", r.runMemory != nil),
		slog.Bool("journal", r.journal != nil),
		slog.Int("mcp_servers", len(r.mcpClients)),
	)
	return nil
}

// Stop halts the sweeper, closes MCP connections and owned databases, and
// flushes telemetry. The first error is returned; shutdown continues past
// failures.
func (r *LocalRuntime) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return nil
	}
	log := slog.Default()
	r.stopApprovalSweeper()

	var firstErr error
	for _, client := range r.mcpClients {
		if err := client.Close(); err != nil {
			log.Warn("runtime.mcp.close.error", slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	r.mcpClients = nil
	for _, db := range r.dbs {
		if err := db.Close(); err != nil {
			log.Warn("runtime.db.close.error", slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	r.dbs = nil
	if r.telemetryShutdown != nil {
		if err := r.telemetryShutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		r.telemetryShutdown = nil
	}
	r.started = false
	log.Info("runtime.stop")
	return firstErr
}

// runOptions adjust a single submission.
type runOptions struct {
	preview      bool
	autonomous   bool
	approvalHook governance.ApprovalHook
}

// RunOption adjusts one submission without touching runtime defaults.
type RunOption func(*runOptions)

// WithPreview stops the run at the preview gate; the plan is attached to
// the pending task record and an approval record is opened for it.
func WithPreview() RunOption {
	return func(o *runOptions) { o.preview = true }
}

// WithAutonomous overrides the configured autonomous mode for this run.
func WithAutonomous(v bool) RunOption {
	return func(o *runOptions) { o.autonomous = v }
}

// WithApprovalHook gates require-approval policy decisions on the hook for
// this run. Without one, require-approval steps are refused.
func WithApprovalHook(h governance.ApprovalHook) RunOption {
	return func(o *runOptions) { o.approvalHook = h }
}

// Submit creates a task record for the goal and runs a fresh agent against
// it. With WithPreview the record parks pending with the plan attached and
// a pending approval bound to the plan digest. A goal the guardrails block
// never creates a record.
func (r *LocalRuntime) Submit(ctx context.Context, goal string, opts ...RunOption) (*task.Record, error) {
	ro, ag, manager, err := r.prepareRun(opts)
	if err != nil {
		return nil, err
	}
	if check := r.guard.CheckInput(ctx, goal); check.Blocked {
		slog.Default().Warn("runtime.goal.blocked",
			slog.String("guardrail", check.GuardrailID),
			slog.String("reason", check.Reason),
		)
		return nil, praxiserrors.New(praxiserrors.CodeInvalidInput,
			fmt.Sprintf("goal blocked by %s guardrail: %s", check.GuardrailID, check.Reason), nil)
	}

	ctx, span := r.tracer.Start(ctx, "Runtime.Submit", trace.WithAttributes(
		attribute.Bool("preview", ro.preview),
		attribute.Bool("autonomous", ro.autonomous),
	))
	defer span.End()

	rec, runErr := manager.Submit(ctx, goal, ag)
	if rec == nil {
		return nil, runErr
	}
	if ro.preview && rec.Status == task.StatusPending && rec.Plan != nil {
		r.openApproval(ctx, rec)
	}
	r.recordRunMemory(ctx, rec)
	return rec, runErr
}

// Apply executes the previewed plan held by a pending task record. The
// agent refuses unless the plan digest has an approved, unexpired approval
// record.
func (r *LocalRuntime) Apply(ctx context.Context, taskID string, opts ...RunOption) (*task.Record, error) {
	_, ag, manager, err := r.prepareRun(opts)
	if err != nil {
		return nil, err
	}

	ctx, span := r.tracer.Start(ctx, "Runtime.Apply", trace.WithAttributes(
		attribute.String("task.id", taskID),
	))
	defer span.End()

	rec, runErr := manager.Apply(ctx, taskID, ag)
	if rec != nil {
		r.recordRunMemory(ctx, rec)
	}
	return rec, runErr
}

// Health checks every registered component.
func (r *LocalRuntime) Health(ctx context.Context) ([]core.HealthResult, core.HealthStatus) {
	return r.health.CheckAll(ctx)
}

// Registry returns the tool registry. Nil before Start unless injected.
func (r *LocalRuntime) Registry() *tools.Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registry
}

// Tasks returns the task store. Nil before Start unless injected.
func (r *LocalRuntime) Tasks() task.Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.taskStore
}

// Approvals returns the approval store, nil when governance is disabled.
func (r *LocalRuntime) Approvals() governance.ApprovalStore {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.approvals
}

// Journal returns the run journal, nil when journaling is disabled.
func (r *LocalRuntime) Journal() agent.RunJournal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.journal
}

func (r *LocalRuntime) prepareRun(opts []RunOption) (runOptions, *agent.Agent, *task.Manager, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return runOptions{}, nil, nil, fmt.Errorf("runtime not started")
	}
	ro := runOptions{autonomous: r.cfg.Agent.Autonomous}
	for _, opt := range opts {
		if opt != nil {
			opt(&ro)
		}
	}
	ag, err := r.buildAgent(ro)
	if err != nil {
		return runOptions{}, nil, nil, err
	}
	return ro, ag, r.manager, nil
}

// buildAgent assembles the fresh planner/executor/iterator/agent chain for
// one run. Sharing stops at the stores: orchestration state is never reused
// across goals.
func (r *LocalRuntime) buildAgent(ro runOptions) (*agent.Agent, error) {
	execOpts := []agent.ExecutorOption{agent.WithExecutorMetrics(r.metrics)}
	if r.policy != nil {
		execOpts = append(execOpts, agent.WithPolicy(r.policy))
	}
	if ro.approvalHook != nil {
		execOpts = append(execOpts, agent.WithApprovalHook(ro.approvalHook))
	}
	executor := agent.NewExecutor(r.registry, execOpts...)

	iterator := agent.NewIterator(r.provider,
		agent.WithMaxRetries(r.cfg.Agent.MaxRetries),
		agent.WithIteratorMetrics(r.metrics),
		agent.WithIteratorProviderName(r.cfg.LLM.Provider),
	)

	plannerOpts := []planner.Option{
		planner.WithProviderName(r.cfg.LLM.Provider),
		planner.WithMetrics(r.metrics),
	}
	if r.cfg.LLM.MaxTokens > 0 {
		plannerOpts = append(plannerOpts, planner.WithMaxTokens(r.cfg.LLM.MaxTokens))
	}
	if r.runMemory != nil {
		k := r.cfg.Memory.TopK
		if k <= 0 {
			k = 3
		}
		plannerOpts = append(plannerOpts, planner.WithRetriever(r.runMemory, k))
	}
	if text := r.workspaceInstructions(); text != "" {
		plannerOpts = append(plannerOpts, planner.WithInstructions(text))
	}
	plan := planner.New(r.provider, r.registry, plannerOpts...)

	agentOpts := []agent.Option{
		agent.WithAutonomous(ro.autonomous),
		agent.WithPreviewMode(ro.preview),
		agent.WithWorkingDir(r.workspace()),
		agent.WithMetrics(r.metrics),
	}
	if r.cfg.Agent.MaxIterations > 0 {
		agentOpts = append(agentOpts, agent.WithMaxIterations(r.cfg.Agent.MaxIterations))
	}
	if r.journal != nil {
		agentOpts = append(agentOpts, agent.WithJournal(r.journal))
	}
	if r.approvals != nil {
		agentOpts = append(agentOpts, agent.WithApprovalStore(r.approvals))
	}
	return agent.New(plan, executor, iterator, agentOpts...)
}

func (r *LocalRuntime) workspace() string {
	ws := strings.TrimSpace(r.cfg.Tools.Workspace)
	if ws == "" {
		ws = "."
	}
	return ws
}

// workspaceInstructions loads AGENTS.md from the workspace for the planning
// prompt. Absence is normal; load failures only cost the extra context.
func (r *LocalRuntime) workspaceInstructions() string {
	instructions, err := governance.LoadAGENTS(r.workspace())
	if err != nil {
		slog.Default().Debug("runtime.instructions.error", slog.String("error", err.Error()))
		return ""
	}
	return instructions.Instructions()
}

// openApproval creates the pending approval record that binds the previewed
// plan digest to the task. Repeated previews of the same plan reuse the
// existing record.
func (r *LocalRuntime) openApproval(ctx context.Context, rec *task.Record) {
	if r.approvals == nil {
		return
	}
	log := slog.Default()
	digest := rec.Plan.Digest()
	existing, err := r.approvals.List(ctx, governance.ApprovalFilter{TaskID: rec.ID, PlanDigest: digest})
	if err == nil && len(existing) > 0 {
		return
	}
	record := governance.ApprovalRecord{
		TaskID:     rec.ID,
		PlanDigest: digest,
		Status:     governance.ApprovalStatusPending,
		Summary:    fmt.Sprintf("%d-step plan for: %s", len(rec.Plan.Steps), rec.Goal),
	}
	if ttl := r.cfg.Governance.ApprovalTTLSeconds; ttl > 0 {
		record.ExpiresAt = time.Now().UTC().Add(time.Duration(ttl) * time.Second)
	}
	created, err := r.approvals.Create(ctx, record)
	if err != nil {
		log.Warn("runtime.approval.create.error",
			slog.String("task_id", rec.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	log.Info("runtime.approval.pending",
		slog.String("task_id", rec.ID),
		slog.String("approval_id", created.ID),
		slog.String("digest", digest),
	)
}

// recordRunMemory stores a summary of a finished run. Recording is
// fire-and-forget: a memory failure never fails the run. Summaries pass the
// output guardrails first since run memory may persist outside the process.
func (r *LocalRuntime) recordRunMemory(ctx context.Context, rec *task.Record) {
	if r.runMemory == nil || rec.Result == nil || !rec.Status.IsTerminal() {
		return
	}
	commands := make([]string, 0, len(rec.Result.Commands))
	for _, c := range rec.Result.Commands {
		commands = append(commands, c.Command)
	}
	summary := memory.RunSummary{
		RunID:         rec.Result.RunID,
		Goal:          r.guard.FilterOutput(ctx, rec.Goal).Content,
		Outcome:       string(rec.Status),
		FilesModified: rec.Result.FilesModified,
		Commands:      commands,
		CompletedAt:   time.Now().UTC(),
	}
	if err := r.runMemory.Record(ctx, summary); err != nil {
		slog.Default().Warn("runtime.memory.record.error",
			slog.String("run_id", summary.RunID),
			slog.String("error", err.Error()),
		)
	}
}

func (r *LocalRuntime) buildTaskStore() error {
	if r.taskStore != nil {
		return nil
	}
	if strings.EqualFold(r.cfg.Task.Store, "sqlite") && r.cfg.Task.DSN != "" {
		db, err := sql.Open("sqlite", r.cfg.Task.DSN)
		if err != nil {
			return fmt.Errorf("open task db: %w", err)
		}
		store, err := task.NewSQLiteStore(db)
		if err != nil {
			db.Close()
			return fmt.Errorf("init task store: %w", err)
		}
		r.dbs = append(r.dbs, db)
		r.taskStore = store
		return nil
	}
	r.taskStore = task.NewMemoryStore()
	return nil
}

func (r *LocalRuntime) buildApprovalStore() error {
	if r.approvals != nil || !r.cfg.Governance.Enabled {
		return nil
	}
	if r.cfg.Governance.ApprovalDB != "" {
		db, err := sql.Open("sqlite", r.cfg.Governance.ApprovalDB)
		if err != nil {
			return fmt.Errorf("open approval db: %w", err)
		}
		store, err := governance.NewSQLiteApprovalStore(db)
		if err != nil {
			db.Close()
			return fmt.Errorf("init approval store: %w", err)
		}
		r.dbs = append(r.dbs, db)
		r.approvals = store
		return nil
	}
	r.approvals = governance.NewMemoryApprovalStore()
	return nil
}

func (r *LocalRuntime) buildRunMemory() error {
	if r.runMemory != nil || !r.cfg.Memory.Enabled {
		return nil
	}
	switch strings.ToLower(r.cfg.Memory.Provider) {
	case "", "vector":
		store, err := qdrant.New(r.cfg.Memory.QdrantAddr)
		if err != nil {
			return fmt.Errorf("connect qdrant %s: %w", r.cfg.Memory.QdrantAddr, err)
		}
		embedder := ollamaembed.NewEmbedder(r.cfg.Memory.EmbedderBaseURL, r.cfg.Memory.EmbedderModel)
		vm, err := memory.NewVectorMemory(store, embedder, r.cfg.Memory.Collection)
		if err != nil {
			return fmt.Errorf("init vector memory: %w", err)
		}
		r.runMemory = vm
	case "keyword":
		r.runMemory = memory.NewKeywordMemory()
	default:
		return fmt.Errorf("unknown memory provider %q", r.cfg.Memory.Provider)
	}
	return nil
}

func (r *LocalRuntime) buildJournal() error {
	if r.journal != nil || !r.cfg.Journal.Enabled {
		return nil
	}
	if r.cfg.Journal.DSN != "" {
		db, err := sql.Open("sqlite", r.cfg.Journal.DSN)
		if err != nil {
			return fmt.Errorf("open journal db: %w", err)
		}
		journal, err := agent.NewSQLiteRunJournal(db)
		if err != nil {
			db.Close()
			return fmt.Errorf("init journal: %w", err)
		}
		r.dbs = append(r.dbs, db)
		r.journal = journal
		return nil
	}
	r.journal = agent.NewMemoryRunJournal()
	return nil
}

// loadSkills registers every valid skill under the configured directory.
// An invalid skill is skipped, not fatal, and a skill whose name collides
// with an already registered tool is refused rather than replacing it.
func (r *LocalRuntime) loadSkills(log *slog.Logger) {
	dir := strings.TrimSpace(r.cfg.Tools.SkillsDir)
	if dir == "" {
		return
	}
	paths, err := skills.Discover(dir)
	if err != nil {
		log.Warn("runtime.skills.discover.error",
			slog.String("dir", dir),
			slog.String("error", err.Error()),
		)
		return
	}
	loaded := 0
	for _, path := range paths {
		spec, err := skills.LoadFile(path)
		if err != nil {
			log.Warn("runtime.skills.load.error",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			continue
		}
		if _, exists := r.registry.Get(spec.Name); exists {
			log.Warn("runtime.skills.name.conflict", slog.String("skill", spec.Name))
			continue
		}
		r.registry.Register(skills.NewTool(spec))
		loaded++
	}
	if loaded > 0 {
		log.Info("runtime.skills.loaded",
			slog.String("dir", dir),
			slog.Int("skills", loaded),
		)
	}
}

// connectDatabase wires the configured database as a connector tool. The
// runtime owns the handle and closes it on Stop.
func (r *LocalRuntime) connectDatabase(ctx context.Context, log *slog.Logger) {
	dbCfg := r.cfg.Tools.Database
	if strings.TrimSpace(dbCfg.DSN) == "" {
		return
	}
	driver := strings.TrimSpace(dbCfg.Driver)
	if driver == "" {
		driver = "sqlite"
	}
	db, err := sql.Open(driver, dbCfg.DSN)
	if err != nil {
		log.Warn("runtime.connector.db.error",
			slog.String("dsn", dbCfg.DSN),
			slog.String("error", err.Error()),
		)
		return
	}

	var opts []connectors.DatabaseOption
	if dbCfg.ToolName != "" {
		opts = append(opts, connectors.WithDatabaseToolName(dbCfg.ToolName))
	}
	if len(dbCfg.Tables) > 0 {
		opts = append(opts, connectors.WithDatabaseTables(dbCfg.Tables...))
	}
	if dbCfg.AllowWrites {
		opts = append(opts, connectors.WithDatabaseWrites())
	}
	if dbCfg.MaxRows > 0 {
		opts = append(opts, connectors.WithDatabaseMaxRows(dbCfg.MaxRows))
	}

	tool, err := connectors.NewDatabaseTool(ctx, db, driver, opts...)
	if err != nil {
		log.Warn("runtime.connector.db.error",
			slog.String("dsn", dbCfg.DSN),
			slog.String("error", err.Error()),
		)
		_ = db.Close()
		return
	}
	if _, exists := r.registry.Get(tool.Name()); exists {
		log.Warn("runtime.connector.db.name.conflict", slog.String("tool", tool.Name()))
		_ = db.Close()
		return
	}
	r.dbs = append(r.dbs, db)
	r.registry.Register(tool)
	log.Info("runtime.connector.db",
		slog.String("tool", tool.Name()),
		slog.String("driver", driver),
		slog.Int("tables", len(tool.Tables())),
		slog.Bool("writes", dbCfg.AllowWrites),
	)
}

// connectOpenAPI registers tools for every configured OpenAPI document. A
// document that fails to load is skipped, not fatal.
func (r *LocalRuntime) connectOpenAPI(log *slog.Logger) {
	for _, apiCfg := range r.cfg.Tools.OpenAPI {
		specPath := strings.TrimSpace(apiCfg.Spec)
		if specPath == "" {
			log.Warn("runtime.connector.api.error",
				slog.String("name", apiCfg.Name),
				slog.String("error", "missing spec path"),
			)
			continue
		}

		var opts []connectors.OpenAPIOption
		if apiCfg.Name != "" {
			opts = append(opts, connectors.WithConnectorName(apiCfg.Name))
		}
		if apiCfg.BaseURL != "" {
			opts = append(opts, connectors.WithBaseURL(apiCfg.BaseURL))
		}
		if apiCfg.AllowWrites {
			opts = append(opts, connectors.WithOpenAPIWrites())
		}
		if apiCfg.MaxTools > 0 {
			opts = append(opts, connectors.WithMaxTools(apiCfg.MaxTools))
		}
		if auth := openAPIAuthOption(apiCfg.Auth); auth != nil {
			opts = append(opts, auth)
		}

		connector, err := connectors.LoadOpenAPIConnector(specPath, opts...)
		if err != nil {
			log.Warn("runtime.connector.api.error",
				slog.String("name", apiCfg.Name),
				slog.String("spec", specPath),
				slog.String("error", err.Error()),
			)
			continue
		}
		registered := 0
		for _, tool := range connector.Tools() {
			if _, exists := r.registry.Get(tool.Name()); exists {
				log.Warn("runtime.connector.api.name.conflict", slog.String("tool", tool.Name()))
				continue
			}
			r.registry.Register(tool)
			registered++
		}
		log.Info("runtime.connector.api",
			slog.String("name", connector.Name()),
			slog.String("title", connector.Title()),
			slog.Int("tools", registered),
			slog.Int("skipped", connector.Skipped()),
		)
	}
}

func openAPIAuthOption(auth config.OpenAPIAuthConfig) connectors.OpenAPIOption {
	switch strings.ToLower(strings.TrimSpace(auth.Type)) {
	case "api-key", "apikey":
		return connectors.WithAPIKey(auth.APIKey, auth.Header)
	case "bearer":
		return connectors.WithBearerToken(auth.Token)
	case "basic":
		return connectors.WithBasicAuth(auth.User, auth.Pass)
	}
	return nil
}

// connectMCPServers registers every reachable configured server's tools. A
// server that fails to connect or list is skipped, not fatal: the local
// tool set still works without it.
func (r *LocalRuntime) connectMCPServers(ctx context.Context, log *slog.Logger) {
	for name, server := range r.cfg.MCP.Servers {
		client, err := NewMCPClient(name, server)
		if err != nil {
			log.Warn("runtime.mcp.connect.error",
				slog.String("server", name),
				slog.String("error", err.Error()),
			)
			continue
		}
		adapted, err := mcp.AdaptTools(ctx, client)
		if err != nil {
			log.Warn("runtime.mcp.tools.error",
				slog.String("server", name),
				slog.String("error", err.Error()),
			)
			_ = client.Close()
			continue
		}
		for _, tool := range adapted {
			r.registry.Register(tool)
		}
		r.mcpClients = append(r.mcpClients, client)
		log.Info("runtime.mcp.connected",
			slog.String("server", name),
			slog.Int("tools", len(adapted)),
		)
	}
}

// NewMCPClient dials one configured MCP server, applying its per-server
// timeout, retry, and cache overrides.
func NewMCPClient(name string, cfg config.MCPServerConfig) (*mcp.Client, error) {
	opts := []mcp.ClientOption{mcp.WithServerName(name)}
	if cfg.TimeoutSeconds != nil {
		opts = append(opts, mcp.WithTimeout(time.Duration(*cfg.TimeoutSeconds)*time.Second))
	}
	if cfg.RetryCount != nil || cfg.RetryBackoffMs != nil {
		retries := 0
		backoff := 0 * time.Millisecond
		if cfg.RetryCount != nil {
			retries = *cfg.RetryCount
		}
		if cfg.RetryBackoffMs != nil {
			backoff = time.Duration(*cfg.RetryBackoffMs) * time.Millisecond
		}
		opts = append(opts, mcp.WithRetry(retries, backoff))
	}
	if cfg.CacheTTLSeconds != nil {
		opts = append(opts, mcp.WithToolCacheTTL(time.Duration(*cfg.CacheTTLSeconds)*time.Second))
	}

	transport := strings.ToLower(strings.TrimSpace(cfg.Transport))
	if transport == "" || transport == "stdio" {
		if strings.TrimSpace(cfg.Command) == "" {
			return nil, fmt.Errorf("mcp server %q missing command", name)
		}
		return mcp.NewClientWithStdioProtocol(cfg.Command, cfg.Args, cfg.ProtocolVersion, opts...)
	}
	if transport == "http" {
		if strings.TrimSpace(cfg.URL) == "" {
			return nil, fmt.Errorf("mcp server %q missing url", name)
		}
		return mcp.NewClientWithStreamableHTTPProtocol(cfg.URL, cfg.ProtocolVersion, opts...)
	}
	return nil, fmt.Errorf("mcp server %q has unsupported transport %q", name, cfg.Transport)
}

func (r *LocalRuntime) registerHealthChecks() {
	r.health.Register("provider", staticHealthy("completion provider configured"))
	for i, db := range r.dbs {
		db := db
		name := fmt.Sprintf("sqlite-%d", i)
		r.health.Register(name, core.CheckerFunc(func(ctx context.Context) core.HealthResult {
			if err := db.PingContext(ctx); err != nil {
				return core.HealthResult{Status: core.HealthUnhealthy, Message: "ping failed", Error: err}
			}
			return core.HealthResult{Status: core.HealthHealthy}
		}))
	}
	if r.runMemory != nil {
		r.health.Register("run-memory", staticHealthy("run memory configured"))
	}
}

func staticHealthy(msg string) core.HealthChecker {
	return core.CheckerFunc(func(context.Context) core.HealthResult {
		return core.HealthResult{Status: core.HealthHealthy, Message: msg}
	})
}

func traceIDs(span trace.Span) (string, string) {
	sc := span.SpanContext()
	return sc.TraceID().String(), sc.SpanID().String()
}

// buildProvider constructs the configured completion provider wrapped with
// retry and per-call timeout.
func buildProvider(cfg *config.Config) (llm.Provider, error) {
	var base llm.Provider
	switch strings.ToLower(strings.TrimSpace(cfg.LLM.Provider)) {
	case "", "ollama":
		base = llm.NewOllama(cfg.LLM.BaseURL, cfg.LLM.Model)
	case "openai", "openai-compat":
		base = llm.NewOpenAICompat(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model)
	case "mock":
		base = &llm.MockProvider{Response: "{}"}
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}

	var opts []llm.ResilientOption
	if cfg.LLM.MaxRetries > 0 {
		opts = append(opts, llm.WithRetry(
			resilience.DefaultRetryConfig().WithMaxAttempts(cfg.LLM.MaxRetries+1),
		))
	}
	if cfg.LLM.TimeoutSeconds > 0 {
		opts = append(opts, llm.WithCallTimeout(time.Duration(cfg.LLM.TimeoutSeconds)*time.Second))
	}
	return llm.NewResilientProvider(base, opts...), nil
}

// buildGuardrails assembles the configured content screens: injection and
// length checks on goals, PII masking on summaries leaving the process.
func buildGuardrails(cfg *config.Config) *guardrails.Guardrails {
	injectionOpts := []guardrails.PromptInjectionOption{}
	if cfg.Guardrails.StrictInjection {
		injectionOpts = append(injectionOpts, guardrails.WithStrictMode(true))
	}
	opts := []guardrails.Option{
		guardrails.WithPromptInjectionDetector(injectionOpts...),
		guardrails.WithMaxGoalLength(cfg.Guardrails.MaxGoalLength),
	}
	if cfg.Guardrails.MaskPII {
		opts = append(opts, guardrails.WithPIIFilter(guardrails.PIIFilterMask))
	}
	return guardrails.New(opts...)
}

// buildRegistry constructs the local tool set rooted at the workspace.
func buildRegistry(cfg *config.Config) *tools.Registry {
	ws := strings.TrimSpace(cfg.Tools.Workspace)
	if ws == "" {
		ws = "."
	}
	command := tools.NewCommandTool(ws)
	if cfg.Tools.CommandTimeoutSeconds > 0 {
		command.SetTimeout(time.Duration(cfg.Tools.CommandTimeoutSeconds) * time.Second)
	}
	if len(cfg.Tools.CommandAllowlist) > 0 {
		command.SetAllowlist(cfg.Tools.CommandAllowlist)
	}
	if cfg.Tools.MaxOutputBytes > 0 {
		command.SetMaxOutputBytes(cfg.Tools.MaxOutputBytes)
	}
	return tools.NewRegistry(
		tools.NewFileTool(ws),
		command,
		tools.NewGitTool(ws),
	)
}
