package tools

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func initGitRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	for _, args := range [][]string{
		{"init"},
		{"config", "user.email", "praxis@example.com"},
		{"config", "user.name", "Praxis Test"},
		{"config", "commit.gpgsign", "false"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	return dir
}

func TestGitStatusClean(t *testing.T) {
	dir := initGitRepo(t)
	tool := NewGitTool(dir)

	res := tool.Execute(context.Background(), map[string]any{"operation": "status"})
	if !res.Success {
		t.Fatalf("status failed: %s", res.Error)
	}
	cmd, ok := res.Command()
	if !ok || cmd != "git status --porcelain" {
		t.Errorf("metadata command = %q, %v", cmd, ok)
	}
}

func TestGitAddCommitFlow(t *testing.T) {
	dir := initGitRepo(t)
	tool := NewGitTool(dir)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := tool.Execute(context.Background(), map[string]any{
		"operation": "add",
		"paths":     []any{"notes.txt"},
	})
	if !res.Success {
		t.Fatalf("add failed: %s", res.Error)
	}
	if files := res.FilesModified(); len(files) != 1 || files[0] != "notes.txt" {
		t.Errorf("add filesModified = %v", files)
	}

	res = tool.Execute(context.Background(), map[string]any{
		"operation": "commit",
		"message":   "Add notes",
	})
	if !res.Success {
		t.Fatalf("commit failed: %s\n%s", res.Error, res.Output)
	}
	// filesModified on commit comes from the staged set
	if files := res.FilesModified(); len(files) != 1 || files[0] != "notes.txt" {
		t.Errorf("commit filesModified = %v", files)
	}
	if cmd, _ := res.Command(); !strings.HasPrefix(cmd, "git commit") {
		t.Errorf("metadata command = %q", cmd)
	}

	// The workspace is clean after commit
	res = tool.Execute(context.Background(), map[string]any{"operation": "status"})
	if !res.Success {
		t.Fatalf("status failed: %s", res.Error)
	}
	if strings.Contains(res.Output, "notes.txt") {
		t.Errorf("status still dirty: %q", res.Output)
	}
}

func TestGitCommitNothingStaged(t *testing.T) {
	dir := initGitRepo(t)
	tool := NewGitTool(dir)

	res := tool.Execute(context.Background(), map[string]any{
		"operation": "commit",
		"message":   "empty",
	})
	if res.Success {
		t.Fatal("commit with nothing staged should fail")
	}
	if !strings.Contains(res.Error, "exited with code") {
		t.Errorf("error = %q", res.Error)
	}
	if res.FilesModified() != nil {
		t.Errorf("failed commit should not report filesModified, got %v", res.FilesModified())
	}
}

func TestGitCheckoutCreate(t *testing.T) {
	dir := initGitRepo(t)
	tool := NewGitTool(dir)

	// Need an initial commit before branching
	if err := os.WriteFile(filepath.Join(dir, "base.txt"), []byte("base\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, params := range []map[string]any{
		{"operation": "add", "paths": []any{"base.txt"}},
		{"operation": "commit", "message": "Initial"},
	} {
		if res := tool.Execute(context.Background(), params); !res.Success {
			t.Fatalf("%v failed: %s\n%s", params["operation"], res.Error, res.Output)
		}
	}

	res := tool.Execute(context.Background(), map[string]any{
		"operation": "checkout",
		"branch":    "feature/docs",
		"create":    true,
	})
	if !res.Success {
		t.Fatalf("checkout failed: %s\n%s", res.Error, res.Output)
	}
	if cmd, _ := res.Command(); cmd != "git checkout -b feature/docs" {
		t.Errorf("metadata command = %q", cmd)
	}

	// Checking out an unknown branch without create fails as data
	res = tool.Execute(context.Background(), map[string]any{
		"operation": "checkout",
		"branch":    "does-not-exist",
	})
	if res.Success {
		t.Fatal("checkout of unknown branch should fail")
	}
}

func TestGitDiff(t *testing.T) {
	dir := initGitRepo(t)
	tool := NewGitTool(dir)

	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("one\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, params := range []map[string]any{
		{"operation": "add", "paths": []any{"a.txt"}},
		{"operation": "commit", "message": "Initial"},
	} {
		if res := tool.Execute(context.Background(), params); !res.Success {
			t.Fatalf("%v failed: %s", params["operation"], res.Error)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("two\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := tool.Execute(context.Background(), map[string]any{"operation": "diff"})
	if !res.Success {
		t.Fatalf("diff failed: %s", res.Error)
	}
	if !strings.Contains(res.Output, "a.txt") {
		t.Errorf("diff output = %q", res.Output)
	}
}

func TestGitOutsideRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	tool := NewGitTool(t.TempDir())

	res := tool.Execute(context.Background(), map[string]any{"operation": "status"})
	if res.Success {
		t.Fatal("status outside a repository should fail")
	}
	if !strings.Contains(res.Error, "exited with code") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestGitValidateParams(t *testing.T) {
	tool := NewGitTool(t.TempDir())

	cases := []struct {
		name    string
		params  map[string]any
		wantErr bool
	}{
		{"status ok", map[string]any{"operation": "status"}, false},
		{"missing operation", map[string]any{}, true},
		{"unknown operation", map[string]any{"operation": "rebase"}, true},
		{"add without paths", map[string]any{"operation": "add"}, true},
		{"add with paths", map[string]any{"operation": "add", "paths": []any{"x.txt"}}, false},
		{"commit without message", map[string]any{"operation": "commit"}, true},
		{"checkout without branch", map[string]any{"operation": "checkout"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tool.ValidateParams(tc.params)
			if tc.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestNormalizePaths(t *testing.T) {
	got := normalizePaths([]string{"./sub/a.txt", "b.txt", "dir\\c.txt"})
	want := []string{"sub/a.txt", "b.txt", "dir/c.txt"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("normalizePaths[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
