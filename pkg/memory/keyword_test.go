package memory

import (
	"context"
	"strings"
	"testing"
	"time"
)

func summaryFor(goal, outcome string, files ...string) RunSummary {
	return RunSummary{
		RunID:         "run-" + strings.ReplaceAll(goal, " ", "-"),
		Goal:          goal,
		Outcome:       outcome,
		FilesModified: files,
		CompletedAt:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestKeywordMemoryRanksMatchingFirst(t *testing.T) {
	m := NewKeywordMemory()
	ctx := context.Background()

	if err := m.Record(ctx, summaryFor("update the changelog for release", "completed", "CHANGELOG.md")); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := m.Record(ctx, summaryFor("configure database migrations", "completed", "migrations/001.sql")); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := m.Retrieve(ctx, "prepare changelog for next release", 2)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) == 0 {
		t.Fatalf("expected at least one hit")
	}
	if !strings.Contains(got[0], "changelog") {
		t.Fatalf("expected changelog run first, got %q", got[0])
	}
	for _, text := range got {
		if strings.Contains(text, "migrations") {
			t.Fatalf("unrelated run leaked into results: %q", text)
		}
	}
}

func TestKeywordMemoryLimitsToK(t *testing.T) {
	m := NewKeywordMemory()
	ctx := context.Background()

	goals := []string{
		"write release notes for v1",
		"write release notes for v2",
		"write release notes for v3",
	}
	for _, g := range goals {
		if err := m.Record(ctx, summaryFor(g, "completed")); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := m.Retrieve(ctx, "write release notes", 2)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
}

func TestKeywordMemoryPrefersRecentOnTies(t *testing.T) {
	m := NewKeywordMemory()
	ctx := context.Background()

	if err := m.Record(ctx, summaryFor("refactor payment service", "failed")); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := m.Record(ctx, summaryFor("refactor payment service", "completed")); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := m.Retrieve(ctx, "refactor payment service", 1)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) != 1 || !strings.Contains(got[0], "completed") {
		t.Fatalf("expected the newer run, got %v", got)
	}
}

func TestKeywordMemoryEmptyCases(t *testing.T) {
	m := NewKeywordMemory()
	ctx := context.Background()

	if got, err := m.Retrieve(ctx, "anything", 3); err != nil || len(got) != 0 {
		t.Fatalf("empty store should return nothing, got %v, %v", got, err)
	}
	if err := m.Record(ctx, summaryFor("seed the cache", "completed")); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got, err := m.Retrieve(ctx, "seed the cache", 0); err != nil || len(got) != 0 {
		t.Fatalf("k=0 should return nothing, got %v, %v", got, err)
	}
	if got, err := m.Retrieve(ctx, "???", 3); err != nil || len(got) != 0 {
		t.Fatalf("tokenless query should return nothing, got %v, %v", got, err)
	}
	if got, err := m.Retrieve(ctx, "kubernetes operators", 3); err != nil || len(got) != 0 {
		t.Fatalf("zero-overlap query should return nothing, got %v, %v", got, err)
	}
}

func TestKeywordMemoryCapsEntries(t *testing.T) {
	m := NewKeywordMemory()
	m.max = 2
	ctx := context.Background()

	for _, g := range []string{"first goal", "second goal", "third goal"} {
		if err := m.Record(ctx, summaryFor(g, "completed")); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if m.Len() != 2 {
		t.Fatalf("expected cap of 2, got %d", m.Len())
	}
	if got, _ := m.Retrieve(ctx, "first", 3); len(got) != 0 {
		t.Fatalf("oldest entry should be evicted, got %v", got)
	}
	if got, _ := m.Retrieve(ctx, "third", 3); len(got) != 1 {
		t.Fatalf("newest entry should survive, got %v", got)
	}
}

func TestRunSummaryRender(t *testing.T) {
	s := RunSummary{
		Goal:          "add license header",
		Outcome:       "completed",
		FilesModified: []string{"main.go", "util.go"},
		Commands:      []string{`git commit -m "license"`},
	}
	text := s.Render()
	for _, want := range []string{"goal: add license header", "outcome: completed", "files: main.go, util.go", `commands: git commit -m "license"`} {
		if !strings.Contains(text, want) {
			t.Fatalf("render missing %q:\n%s", want, text)
		}
	}

	bare := RunSummary{Goal: "noop", Outcome: "failed"}
	if strings.Contains(bare.Render(), "files:") || strings.Contains(bare.Render(), "commands:") {
		t.Fatalf("empty sections should be omitted: %q", bare.Render())
	}
}
