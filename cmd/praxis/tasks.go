// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/jllopis/praxis/pkg/agent"
	"github.com/jllopis/praxis/pkg/config"
	"github.com/jllopis/praxis/pkg/core"
	"github.com/jllopis/praxis/pkg/runtime"
	"github.com/jllopis/praxis/pkg/task"
)

func runTasks(ctx context.Context, global globalFlags, args []string) {
	if len(args) == 0 {
		fatal(fmt.Errorf("usage: praxis tasks <list|show|graph> [args]"))
	}
	switch args[0] {
	case "list":
		runTasksList(ctx, global, args[1:])
	case "show":
		runTasksShow(ctx, global, args[1:])
	case "graph":
		runTasksGraph(ctx, global, args[1:])
	default:
		fatal(fmt.Errorf("unknown tasks command %q", args[0]))
	}
}

func runTasksList(ctx context.Context, global globalFlags, args []string) {
	cmd := flag.NewFlagSet("tasks list", flag.ContinueOnError)
	status := cmd.String("status", "", "filter by status: pending, executing, completed, failed")
	limit := cmd.Int("limit", 0, "maximum records to return")
	if err := cmd.Parse(args); err != nil {
		fatal(err)
	}
	ensureNoArgs(cmd.Args())
	if *status != "" && !validTaskStatus(*status) {
		fatal(NewInvalidArgumentError("tasks list", fmt.Sprintf("unknown status %q", *status)))
	}

	rt, cfg, cleanup := openRuntime(ctx, global)
	defer cleanup()
	warnEphemeralTaskStore(cfg)

	records, err := rt.Tasks().List(ctx, task.Filter{
		Status: task.Status(strings.ToLower(strings.TrimSpace(*status))),
		Limit:  *limit,
	})
	if err != nil {
		exitError(global.JSON, err)
	}

	if global.JSON {
		printJSON(records)
		return
	}

	writer := newTabWriter()
	writeRow(writer, "TASK_ID", "STATUS", "PROGRESS", "UPDATED", "GOAL")
	for _, rec := range records {
		writeRow(writer,
			rec.ID,
			string(rec.Status),
			formatProgress(rec.Progress),
			formatTime(rec.UpdatedAt),
			truncateMessage(rec.Goal, 60),
		)
	}
	_ = writer.Flush()
}

func runTasksShow(ctx context.Context, global globalFlags, args []string) {
	cmd := flag.NewFlagSet("tasks show", flag.ContinueOnError)
	withJournal := cmd.Bool("journal", false, "include run journal events")
	if err := cmd.Parse(args); err != nil {
		fatal(err)
	}
	rest := cmd.Args()
	if len(rest) != 1 {
		fatal(fmt.Errorf("usage: praxis tasks show <task_id> [--journal]"))
	}
	id := rest[0]

	rt, _, cleanup := openRuntime(ctx, global)
	defer cleanup()

	rec, err := rt.Tasks().Get(ctx, id)
	if err != nil {
		exitError(global.JSON, NewNotFoundError("task", id))
	}

	var events []agent.JournalEntry
	if *withJournal {
		events = journalEvents(ctx, rt, rec)
	}

	if global.JSON {
		if *withJournal {
			printJSON(map[string]any{"task": rec, "journal": events})
			return
		}
		printJSON(rec)
		return
	}

	fmt.Printf("Task:    %s\n", rec.ID)
	fmt.Printf("Status:  %s\n", rec.Status)
	fmt.Printf("Goal:    %s\n", rec.Goal)
	fmt.Printf("Created: %s\n", formatTime(rec.CreatedAt))
	fmt.Printf("Updated: %s\n", formatTime(rec.UpdatedAt))
	if rec.Progress.Total > 0 {
		fmt.Printf("Progress: %s\n", formatProgress(rec.Progress))
	}
	if rec.Error != "" {
		fmt.Printf("Error:   %s\n", rec.Error)
	}
	if rec.Plan != nil {
		printPlan(rec.Plan)
	}
	if rec.Result != nil {
		fmt.Println()
		printRunResult(rec.Result)
	}
	if *withJournal {
		printJournal(events)
	}
}

func runTasksGraph(ctx context.Context, global globalFlags, args []string) {
	cmd := flag.NewFlagSet("tasks graph", flag.ContinueOnError)
	format := cmd.String("format", "mermaid", "output format: mermaid or dot")
	if err := cmd.Parse(args); err != nil {
		fatal(err)
	}
	rest := cmd.Args()
	if len(rest) != 1 {
		fatal(fmt.Errorf("usage: praxis tasks graph <task_id> [--format mermaid|dot]"))
	}
	id := rest[0]

	rt, _, cleanup := openRuntime(ctx, global)
	defer cleanup()

	rec, err := rt.Tasks().Get(ctx, id)
	if err != nil {
		exitError(global.JSON, NewNotFoundError("task", id))
	}
	plan := recordedPlan(rec)
	if plan == nil {
		exitError(global.JSON, fmt.Errorf("task %s has no recorded plan", id))
	}

	switch strings.ToLower(strings.TrimSpace(*format)) {
	case "mermaid":
		fmt.Print(planMermaid(plan))
	case "dot":
		fmt.Print(planDOT(plan))
	default:
		fatal(fmt.Errorf("unknown format %q; use mermaid or dot", *format))
	}
}

// recordedPlan prefers the plan parked on the record and falls back to the
// one carried by a preview result.
func recordedPlan(rec *task.Record) *core.Plan {
	if rec.Plan != nil {
		return rec.Plan
	}
	if rec.Result != nil && rec.Result.Plan != nil {
		return rec.Result.Plan
	}
	return nil
}

func journalEvents(ctx context.Context, rt *runtime.LocalRuntime, rec *task.Record) []agent.JournalEntry {
	journal := rt.Journal()
	if journal == nil || rec.Result == nil || rec.Result.RunID == "" {
		return nil
	}
	events, err := journal.List(ctx, agent.JournalFilter{RunID: rec.Result.RunID})
	if err != nil {
		fmt.Fprintf(os.Stderr, "journal read failed: %v\n", err)
		return nil
	}
	return events
}

func printJournal(events []agent.JournalEntry) {
	if len(events) == 0 {
		fmt.Println("\nJournal: no events (enable journal.enabled with a DSN to keep them across runs)")
		return
	}
	fmt.Println("\nJournal:")
	writer := newTabWriter()
	writeRow(writer, "TIME", "EVENT", "STEP", "TOOL", "DETAIL")
	for _, entry := range events {
		writeRow(writer,
			formatTime(entry.At),
			entry.Event,
			entry.StepID,
			entry.Tool,
			truncateMessage(entry.Detail, 60),
		)
	}
	_ = writer.Flush()
}

func formatProgress(p task.Progress) string {
	if p.Total == 0 {
		return "-"
	}
	return fmt.Sprintf("%d/%d", p.Completed, p.Total)
}

func validTaskStatus(value string) bool {
	switch task.Status(strings.ToLower(strings.TrimSpace(value))) {
	case task.StatusPending, task.StatusExecuting, task.StatusCompleted, task.StatusFailed:
		return true
	}
	return false
}

// warnEphemeralTaskStore flags listings backed by the in-memory store:
// records from other praxis invocations are invisible there.
func warnEphemeralTaskStore(cfg *config.Config) {
	if strings.EqualFold(cfg.Task.Store, "sqlite") && cfg.Task.DSN != "" {
		return
	}
	fmt.Fprintln(os.Stderr, "note: task.store is in-memory; tasks from other invocations are not visible. Set task.store: sqlite with a DSN to persist them.")
}
