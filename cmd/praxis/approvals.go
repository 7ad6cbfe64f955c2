// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/jllopis/praxis/pkg/config"
	"github.com/jllopis/praxis/pkg/errors"
	"github.com/jllopis/praxis/pkg/governance"
)

func runApprovals(ctx context.Context, global globalFlags, args []string) {
	if len(args) == 0 {
		fatal(fmt.Errorf("usage: praxis approvals <list|approve|reject> [args]"))
	}
	switch args[0] {
	case "list":
		runApprovalsList(ctx, global, args[1:])
	case "approve":
		runApprovalsDecide(ctx, global, args[1:], governance.ApprovalStatusApproved)
	case "reject":
		runApprovalsDecide(ctx, global, args[1:], governance.ApprovalStatusRejected)
	default:
		fatal(fmt.Errorf("unknown approvals command %q", args[0]))
	}
}

func runApprovalsList(ctx context.Context, global globalFlags, args []string) {
	cmd := flag.NewFlagSet("approvals list", flag.ContinueOnError)
	status := cmd.String("status", "", "filter by status: pending, approved, rejected, expired")
	taskID := cmd.String("task", "", "filter by task id")
	limit := cmd.Int("limit", 0, "maximum records to return")
	if err := cmd.Parse(args); err != nil {
		fatal(err)
	}
	ensureNoArgs(cmd.Args())
	if *status != "" && !validApprovalStatus(*status) {
		fatal(NewInvalidArgumentError("approvals list", fmt.Sprintf("unknown status %q", *status)))
	}

	store, cleanup := openApprovalStore(ctx, global)
	defer cleanup()

	records, err := store.List(ctx, governance.ApprovalFilter{
		Status: governance.ApprovalStatus(strings.ToLower(strings.TrimSpace(*status))),
		TaskID: *taskID,
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
	writeRow(writer, "APPROVAL_ID", "TASK_ID", "STATUS", "EXPIRES", "SUMMARY")
	for _, rec := range records {
		writeRow(writer,
			rec.ID,
			rec.TaskID,
			string(rec.Status),
			formatTime(rec.ExpiresAt),
			truncateMessage(rec.Summary, 60),
		)
	}
	_ = writer.Flush()
}

func runApprovalsDecide(ctx context.Context, global globalFlags, args []string, status governance.ApprovalStatus) {
	name := "approve"
	if status == governance.ApprovalStatusRejected {
		name = "reject"
	}
	cmd := flag.NewFlagSet("approvals "+name, flag.ContinueOnError)
	reason := cmd.String("reason", "", "free-form reason recorded with the decision")
	if err := cmd.Parse(args); err != nil {
		fatal(err)
	}
	rest := cmd.Args()
	if len(rest) != 1 {
		fatal(fmt.Errorf("usage: praxis approvals %s <approval_id> [--reason <text>]", name))
	}
	id := rest[0]

	store, cleanup := openApprovalStore(ctx, global)
	defer cleanup()

	rec, err := store.UpdateStatus(ctx, id, status, *reason)
	if err != nil {
		exitError(global.JSON, NewNotFoundError("approval", id))
	}

	if global.JSON {
		printJSON(rec)
		return
	}
	fmt.Printf("Approval %s: %s\n", rec.ID, rec.Status)
	if rec.TaskID != "" && status == governance.ApprovalStatusApproved {
		fmt.Printf("Apply the plan with: praxis run --apply %s\n", rec.TaskID)
	}
}

// openApprovalStore starts the runtime and returns its approval store.
// Governance must be enabled; a memory-backed store earns a warning since
// approvals made here would vanish with the process.
func openApprovalStore(ctx context.Context, global globalFlags) (governance.ApprovalStore, func()) {
	rt, cfg, cleanup := openRuntime(ctx, global)
	store := rt.Approvals()
	if store == nil {
		cleanup()
		exitError(global.JSON, NewCLIError(
			errors.New(errors.CodeInvalidInput, "governance is disabled", nil),
			"enable it with --set governance.enabled=true or in praxis.yaml",
		))
	}
	warnEphemeralApprovalStore(cfg)
	return store, cleanup
}

func warnEphemeralApprovalStore(cfg *config.Config) {
	if strings.TrimSpace(cfg.Governance.ApprovalDB) != "" {
		return
	}
	fmt.Fprintln(os.Stderr, "note: governance.approval_db is not set; approvals live only inside this invocation. Point it at a sqlite file to make them durable.")
}

func validApprovalStatus(value string) bool {
	switch governance.ApprovalStatus(strings.ToLower(strings.TrimSpace(value))) {
	case governance.ApprovalStatusPending, governance.ApprovalStatusApproved,
		governance.ApprovalStatusRejected, governance.ApprovalStatusExpired:
		return true
	}
	return false
}
