// SPDX-License-Identifier: Apache-2.0
// Praxis Run Observability Dashboards
// This file documents dashboard templates for an OTLP backend or Grafana.
// Every metric named here is emitted by pkg/telemetry/metrics.go or
// pkg/runtime/approval_sweeper.go; attribute names live in
// pkg/telemetry/attributes.go.
//
// DASHBOARD: Run Outcomes
//   Shows run and step throughput with success breakdown.
//
//   Queries:
//   - praxis.runs.total{praxis.run.state} (rate 5m)
//     Metric: Completed runs by final state (completed, failed)
//     Display: Stacked area chart
//     Goal: failed / total < 5%
//
//   - praxis.steps.total{praxis.step.tool, praxis.tool.success} (rate 5m)
//     Metric: Step executions by tool and outcome
//     Display: Line chart with one series per tool
//     Insight: Which tools fail most often?
//
//   - praxis.retries.total{praxis.retry.recovered} (rate 5m)
//     Metric: Remediation attempts and whether the replanned step recovered
//     Display: Stacked area chart
//     Goal: recovered="true" / total > 80%
//
// DASHBOARD: Error Rate & Recovery
//   Shows error trends over time with breakdown by error code and component.
//
//   Queries:
//   - praxis.errors.total{error.code} (rate 5m)
//     Metric: Error rate by error code
//     Display: Line chart with legend (TOOL_FAILURE, TIMEOUT, RATE_LIMITED, LLM_ERROR, etc)
//     Alert Threshold: > 10 errors/min for INTERNAL_ERROR or MEMORY_ERROR
//
//   - praxis.errors.total by (error.code, component, recoverable)
//     Breakdown: Error code × component × recoverability
//     Display: Heatmap or table
//     Insight: Which components produce non-recoverable errors?
//
//   - praxis.errors.total{error.code="TIMEOUT"} vs praxis.circuitbreaker.state
//     Correlation: Timeouts vs circuit breaker trips
//     Display: Dual axis line chart
//     Insight: Do provider timeouts trigger circuit breaker opens?
//
// DASHBOARD: Latency
//   Shows where a run spends its time: tool execution vs completion calls.
//
//   Queries:
//   - praxis.tool.duration_ms{praxis.step.tool} (p50/p95)
//     Metric: Tool execution duration
//     Display: Heatmap per tool
//     Threshold: p95 > command_timeout_seconds is a misconfigured timeout
//
//   - praxis.llm.duration_ms{gen_ai.system} (p50/p95)
//     Metric: Completion call duration
//     Display: Line chart per provider (the attribute follows the
//     OpenTelemetry gen_ai conventions)
//     Insight: Planner latency dominates short runs; compare against
//     iteration counts before blaming the executor.
//
//   - praxis.circuitbreaker.state{component}
//     Metric: Circuit breaker state (0=open, 1=half-open, 2=closed)
//     Display: Status panels per component
//     Meaning:
//       OPEN (0): Circuit is broken, fallback active, requests rejected
//       HALF_OPEN (1): Testing recovery, allowing limited requests
//       CLOSED (2): Normal operation, requests flowing
//
// DASHBOARD: Approval Hygiene
//   Shows whether the approval sweeper keeps up with expiring approvals.
//   An approval that outlives its TTL must flip to expired before a stale
//   apply can pick it up.
//
//   Queries:
//   - praxis.runtime.approval.sweep.count (rate 5m)
//     Metric: Sweep passes
//     Display: Single stat; a flat line means the sweeper stopped
//
//   - praxis.runtime.approval.sweep.error.count (rate 5m)
//     Metric: Failed sweep passes
//     Display: Single stat with threshold > 0
//
//   - praxis.runtime.approval.expired.count (rate 1h)
//     Metric: Approvals expired per sweep
//     Display: Bar chart
//     Insight: A spike means plans are previewed but never applied.
//
//   - praxis.runtime.approval.sweep.latency_ms (p95)
//     Metric: Sweep pass duration
//     Display: Line chart; should stay far below the sweep interval
//
// NOTE: Component health is a pull surface, not a metric. The runtime
// answers Health() per component (provider, stores, MCP clients, attached
// databases); 'praxis validate' is the CLI view of the same checks. The
// circuit breaker gauge is the push-side signal to alert on.
//
// ALERT RULES (Prometheus/AlertManager format):
//
// Alert 1: High Error Rate
//   Name: PraxisHighErrorRate
//   Condition: rate(praxis.errors.total[5m]) > 10
//   Duration: 2m
//   Severity: critical
//   Message: "Praxis error rate {{ $value }} errors/sec, threshold 10"
//   Action: Page on-call engineer, check runtime logs
//
// Alert 2: Low Recovery Rate
//   Name: PraxisLowRecoveryRate
//   Condition: rate(praxis.retries.total{praxis.retry.recovered="true"}[5m])
//              / rate(praxis.retries.total[5m]) < 0.8
//   Duration: 5m
//   Severity: warning
//   Message: "Step recovery rate {{ $value }}%, goal 80%"
//   Action: Review remediation prompts and per-step retry budgets
//
// Alert 3: Circuit Breaker Open
//   Name: PraxisCircuitBreakerOpen
//   Condition: praxis.circuitbreaker.state{component=~".*"} == 0
//   Duration: 1m
//   Severity: critical
//   Message: "Circuit breaker OPEN on {{ $labels.component }}, using fallback"
//   Action: Investigate component health, check dependencies
//
// Alert 4: Run Failure Ratio
//   Name: PraxisRunFailureRatio
//   Condition: rate(praxis.runs.total{praxis.run.state="failed"}[15m])
//              / rate(praxis.runs.total[15m]) > 0.05
//   Duration: 10m
//   Severity: warning
//   Message: "{{ $value }}% of runs end failed"
//   Action: Sample failed run journals, look for a common failing step
//
// Alert 5: Approval Sweeper Failing
//   Name: PraxisApprovalSweepFailing
//   Condition: rate(praxis.runtime.approval.sweep.error.count[10m]) > 0
//   Duration: 10m
//   Severity: warning
//   Message: "Approval sweeps failing on {{ $labels.component }}"
//   Action: Check approval store DSN and disk; expired approvals accumulate
//
// Alert 6: Non-Recoverable Errors
//   Name: PraxisNonRecoverableErrors
//   Condition: rate(praxis.errors.total{recoverable="false"}[5m]) > 1
//   Duration: 2m
//   Severity: critical
//   Message: "{{ $value }} non-recoverable errors/sec"
//   Action: Check for bugs or configuration issues
//
// OTEL QUERY EXAMPLES for an OTLP UI or Grafana:
//
// 1. Error Rate by Code (5-minute)
//    Metric QL: rate(praxis_errors_total[5m]) by (error_code)
//    PromQL: rate(praxis.errors.total{error.code=~".+"}[5m]) group by (error.code)
//
// 2. Step Recovery Percentage
//    PromQL: (rate(praxis.retries.total{praxis.retry.recovered="true"}[5m])
//             / rate(praxis.retries.total[5m])) * 100
//    Display: Single stat, goal >= 80%
//
// 3. Top Tools by Failure Count
//    PromQL: topk(5, sum(rate(praxis.steps.total{praxis.tool.success="false"}[5m])) by (praxis.step.tool))
//    Display: Bar chart
//
// 4. Run Outcome Trend (24h)
//    PromQL: rate(praxis.runs.total[5m]) by (praxis.run.state)
//    Range: 24h
//    Display: Area chart
//
// 5. Circuit Breaker State Changes
//    PromQL: rate(changes(praxis.circuitbreaker.state[5m])[1h:5m]) by (component)
//    Display: Line chart, shows how often circuit breakers flip
//
// INTEGRATION PATTERNS:
//
// 1. Remediation Tracking:
//    - RecordStep on every execution with tool, outcome, and duration
//    - RecordRetry after each remediation with whether the step recovered
//    - Dashboard shows: retries vs recoveries ratio per tool
//
// 2. Error Attribution:
//    - RecordError with the originating component (planner, executor, memory)
//    - praxis.errors.total carries error.code and recoverable from the
//      typed error, UNKNOWN for anything untyped
//    - Alert on UNKNOWN growth; it means an error path lost its type
//
// 3. SLO Tracking:
//    - Run success SLO: failed runs / total < 5%
//    - Recovery rate SLO: recovered retries / retries > 80%
//    - Approval hygiene SLO: sweep errors == 0 over 24h
//
// 4. Cost Optimization:
//    - Monitor RATE_LIMITED errors to adjust provider capacity
//    - Monitor TOOL_FAILURE by tool to identify expensive/unreliable tools
//    - Compare praxis.llm.duration_ms across providers before switching models
//
package internal

// This file carries no code. See pkg/telemetry/metrics.go for the
// instruments and pkg/telemetry/attributes.go for attribute names.
