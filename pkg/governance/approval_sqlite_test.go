package governance

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func TestSQLiteApprovalStore_CRUD(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	store, err := NewSQLiteApprovalStore(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
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
	found, err := store.Get(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found.PlanDigest != "digest-1" {
		t.Fatalf("unexpected plan digest: %s", found.PlanDigest)
	}
	if found.Summary != "2 steps: write LICENSE, git commit" {
		t.Fatalf("unexpected summary: %s", found.Summary)
	}
	if _, err := store.UpdateStatus(context.Background(), record.ID, ApprovalStatusApproved, "ok"); err != nil {
		t.Fatalf("update: %v", err)
	}
	updated, err := store.Get(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("get updated: %v", err)
	}
	if updated.Status != ApprovalStatusApproved {
		t.Fatalf("expected approved")
	}
	list, err := store.List(context.Background(), ApprovalFilter{Status: ApprovalStatusApproved})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) == 0 {
		t.Fatalf("expected list results")
	}
	expiring, err := store.List(context.Background(), ApprovalFilter{
		Status:         ApprovalStatusApproved,
		ExpiringBefore: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("list expiring: %v", err)
	}
	if len(expiring) == 0 {
		t.Fatalf("expected expiring results")
	}
}

func TestSQLiteApprovalStoreDigestFilter(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	store, err := NewSQLiteApprovalStore(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()
	if _, err := store.Create(ctx, ApprovalRecord{PlanDigest: "digest-a"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Create(ctx, ApprovalRecord{PlanDigest: "digest-b"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := store.List(ctx, ApprovalFilter{PlanDigest: "digest-b"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].PlanDigest != "digest-b" {
		t.Fatalf("unexpected filter result: %+v", list)
	}
}

func TestSQLiteApprovalStoreMissing(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	store, err := NewSQLiteApprovalStore(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.Get(context.Background(), "nope"); err == nil {
		t.Fatalf("expected not found error")
	}
}

func TestNewSQLiteApprovalStoreNilDB(t *testing.T) {
	if _, err := NewSQLiteApprovalStore(nil); err == nil {
		t.Fatalf("expected error for nil db")
	}
}
