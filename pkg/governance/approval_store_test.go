package governance

import (
	"context"
	"testing"
	"time"
)

func TestMemoryApprovalStore_CRUD(t *testing.T) {
	store := NewMemoryApprovalStore()
	record, err := store.Create(context.Background(), ApprovalRecord{
		TaskID:     "task-1",
		PlanDigest: "digest-1",
		Summary:    "2 steps: write LICENSE, git commit",
		ExpiresAt:  time.Now().UTC().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if record.ID == "" {
		t.Fatalf("expected id")
	}
	if record.Status != ApprovalStatusPending {
		t.Fatalf("expected pending status")
	}
	if record.CreatedAt.IsZero() || record.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps to be set")
	}
	found, err := store.Get(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found.PlanDigest != "digest-1" {
		t.Fatalf("unexpected plan digest: %s", found.PlanDigest)
	}
	if _, err := store.UpdateStatus(context.Background(), record.ID, ApprovalStatusApproved, "ok"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	updated, err := store.Get(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("get updated: %v", err)
	}
	if updated.Status != ApprovalStatusApproved {
		t.Fatalf("expected approved")
	}
	if updated.Reason != "ok" {
		t.Fatalf("unexpected reason: %s", updated.Reason)
	}
	list, err := store.List(context.Background(), ApprovalFilter{Status: ApprovalStatusApproved})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected list size 1, got %d", len(list))
	}
	expiring, err := store.List(context.Background(), ApprovalFilter{
		Status:         ApprovalStatusApproved,
		ExpiringBefore: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("list expiring: %v", err)
	}
	if len(expiring) != 1 {
		t.Fatalf("expected expiring approval")
	}
}

func TestMemoryApprovalStoreRequiresDigest(t *testing.T) {
	store := NewMemoryApprovalStore()
	if _, err := store.Create(context.Background(), ApprovalRecord{TaskID: "task-1"}); err == nil {
		t.Fatalf("expected error without plan digest")
	}
}

func TestMemoryApprovalStoreGetMissing(t *testing.T) {
	store := NewMemoryApprovalStore()
	if _, err := store.Get(context.Background(), "nope"); err == nil {
		t.Fatalf("expected not found error")
	}
	if _, err := store.UpdateStatus(context.Background(), "nope", ApprovalStatusApproved, ""); err == nil {
		t.Fatalf("expected not found error")
	}
}

func TestMemoryApprovalStoreFilters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryApprovalStore()
	if _, err := store.Create(ctx, ApprovalRecord{TaskID: "task-a", PlanDigest: "digest-a"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Create(ctx, ApprovalRecord{TaskID: "task-b", PlanDigest: "digest-b"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	byDigest, err := store.List(ctx, ApprovalFilter{PlanDigest: "digest-b"})
	if err != nil {
		t.Fatalf("list by digest: %v", err)
	}
	if len(byDigest) != 1 || byDigest[0].TaskID != "task-b" {
		t.Fatalf("unexpected digest filter result: %+v", byDigest)
	}

	byTask, err := store.List(ctx, ApprovalFilter{TaskID: "task-a"})
	if err != nil {
		t.Fatalf("list by task: %v", err)
	}
	if len(byTask) != 1 || byTask[0].PlanDigest != "digest-a" {
		t.Fatalf("unexpected task filter result: %+v", byTask)
	}

	limited, err := store.List(ctx, ApprovalFilter{Limit: 1})
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected 1 record, got %d", len(limited))
	}
}

func TestMemoryApprovalStoreClones(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryApprovalStore()
	record, err := store.Create(ctx, ApprovalRecord{PlanDigest: "digest-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	record.Status = ApprovalStatusRejected
	record.PlanDigest = "mutated"

	stored, err := store.Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != ApprovalStatusPending || stored.PlanDigest != "digest-1" {
		t.Fatalf("caller mutation leaked into store: %+v", stored)
	}
}
