package core

import (
	"context"
	"strings"
	"testing"
)

func TestFilesModifiedDeduplicates(t *testing.T) {
	ec := NewExecutionContext("add a license", "/tmp/work")

	ec.AddFileModified("LICENSE")
	ec.AddFileModified("README.md")
	ec.AddFileModified("LICENSE")
	ec.AddFileModified("")

	got := ec.FilesModified()
	want := []string{"LICENSE", "README.md"}
	if len(got) != len(want) {
		t.Fatalf("expected %d paths, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestFilesModifiedReturnsCopy(t *testing.T) {
	ec := NewExecutionContext("goal", ".")
	ec.AddFileModified("a.go")

	snapshot := ec.FilesModified()
	snapshot[0] = "mutated"

	if ec.FilesModified()[0] != "a.go" {
		t.Errorf("caller mutation leaked into the context")
	}
}

func TestLogsAppendOnly(t *testing.T) {
	ec := NewExecutionContext("goal", ".")
	ec.Log(LogInfo, "planning started")
	ec.Log(LogError, "step failed: exit status 1")
	ec.Log(LogInfo, "step completed")

	logs := ec.Logs()
	if len(logs) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(logs))
	}
	if logs[1].Level != LogError || !strings.Contains(logs[1].Message, "exit status 1") {
		t.Errorf("unexpected second entry: %+v", logs[1])
	}
	for _, entry := range logs {
		if entry.Time.IsZero() {
			t.Errorf("expected timestamped entry, got %+v", entry)
		}
	}
}

func TestRecordCommand(t *testing.T) {
	ec := NewExecutionContext("goal", ".")
	ec.RecordCommand("go test ./...")
	ec.RecordCommand("")

	cmds := ec.CommandsRun()
	if len(cmds) != 1 {
		t.Fatalf("expected 1 command, got %d", len(cmds))
	}
	if cmds[0].Command != "go test ./..." {
		t.Errorf("unexpected command %q", cmds[0].Command)
	}
	if cmds[0].At.IsZero() {
		t.Errorf("expected timestamp on command record")
	}
}

func TestEnsureRunID(t *testing.T) {
	ctx, id := EnsureRunID(context.Background())
	if id == "" || !strings.HasPrefix(id, "run-") {
		t.Fatalf("unexpected run id %q", id)
	}

	ctx2, id2 := EnsureRunID(ctx)
	if id2 != id {
		t.Errorf("expected existing run id to be preserved, got %q and %q", id, id2)
	}
	if ctx2 != ctx {
		t.Errorf("expected context to be returned unchanged when id present")
	}
}
