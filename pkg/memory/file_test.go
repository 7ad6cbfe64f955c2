package memory

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileMemoryPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory", "runs.jsonl")
	ctx := context.Background()

	first, err := NewFileMemory(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := first.Record(ctx, summaryFor("wire up structured logging", "completed", "log.go")); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := first.Record(ctx, summaryFor("tune garbage collection", "failed")); err != nil {
		t.Fatalf("record: %v", err)
	}

	reopened, err := NewFileMemory(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.Retrieve(ctx, "structured logging setup", 3)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) == 0 || !strings.Contains(got[0], "logging") {
		t.Fatalf("expected persisted logging run, got %v", got)
	}
}

func TestFileMemoryMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.jsonl")
	m, err := NewFileMemory(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got, err := m.Retrieve(context.Background(), "anything at all", 3); err != nil || len(got) != 0 {
		t.Fatalf("missing file should mean empty memory, got %v, %v", got, err)
	}
}

func TestFileMemoryRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	if err := os.WriteFile(path, []byte("{not json\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFileMemory(path); err == nil {
		t.Fatalf("expected error for corrupt file")
	}
}

func TestFileMemorySkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	content := "\n" + `{"runId":"run-1","goal":"publish the docs site","outcome":"completed"}` + "\n\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, err := NewFileMemory(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := m.Retrieve(context.Background(), "publish docs", 2)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected the one real entry, got %v", got)
	}
}
