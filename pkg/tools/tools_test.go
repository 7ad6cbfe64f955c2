package tools

import (
	"strings"
	"testing"
)

func TestRegistryLookup(t *testing.T) {
	file := NewFileTool(t.TempDir())
	cmd := NewCommandTool(t.TempDir())
	reg := NewRegistry(file, cmd)

	got, ok := reg.Get("file")
	if !ok {
		t.Fatal("file tool should be registered")
	}
	if got.Name() != "file" {
		t.Errorf("got tool %q", got.Name())
	}

	if _, ok := reg.Get("missing"); ok {
		t.Error("lookup of unregistered tool should fail")
	}
}

func TestRegistryOrder(t *testing.T) {
	reg := NewRegistry(
		NewCommandTool(t.TempDir()),
		NewFileTool(t.TempDir()),
		NewGitTool(t.TempDir()),
	)

	names := reg.Names()
	want := []string{"command", "file", "git"}
	if len(names) != len(want) {
		t.Fatalf("got %d names, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestRegistryReplace(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry(NewFileTool(dir))
	replacement := NewFileTool(dir)
	reg.Register(replacement)

	if len(reg.Names()) != 1 {
		t.Fatalf("re-registering should not duplicate, got %v", reg.Names())
	}
	got, _ := reg.Get("file")
	if got != replacement {
		t.Error("re-registering should replace the tool")
	}
}

func TestRegistrySubset(t *testing.T) {
	reg := NewRegistry(
		NewFileTool(t.TempDir()),
		NewCommandTool(t.TempDir()),
		NewGitTool(t.TempDir()),
	)

	t.Run("allow list", func(t *testing.T) {
		sub := reg.Subset([]string{"file", "git"}, nil)
		if _, ok := sub.Get("command"); ok {
			t.Error("command should be excluded")
		}
		if _, ok := sub.Get("file"); !ok {
			t.Error("file should be included")
		}
	})

	t.Run("deny wins", func(t *testing.T) {
		sub := reg.Subset([]string{"file", "git"}, []string{"git"})
		if _, ok := sub.Get("git"); ok {
			t.Error("deny should win over allow")
		}
	})

	t.Run("empty allow keeps all", func(t *testing.T) {
		sub := reg.Subset(nil, []string{"command"})
		if len(sub.Names()) != 2 {
			t.Errorf("expected 2 tools, got %v", sub.Names())
		}
	})
}

func TestRegistryCatalog(t *testing.T) {
	reg := NewRegistry(NewFileTool(t.TempDir()), NewCommandTool(t.TempDir()))
	catalog := reg.Catalog()

	for _, want := range []string{"- file:", "- command:", `"required"`, "operation"} {
		if !strings.Contains(catalog, want) {
			t.Errorf("catalog missing %q:\n%s", want, catalog)
		}
	}
}

func TestIntParamEncodings(t *testing.T) {
	// JSON decoding yields float64 for numbers
	if n, ok := intParam(map[string]any{"x": float64(7)}, "x"); !ok || n != 7 {
		t.Errorf("float64 encoding: got %d, %v", n, ok)
	}
	if n, ok := intParam(map[string]any{"x": 7}, "x"); !ok || n != 7 {
		t.Errorf("int encoding: got %d, %v", n, ok)
	}
	if _, ok := intParam(map[string]any{"x": "7"}, "x"); ok {
		t.Error("string should not decode as int")
	}
	if _, ok := intParam(map[string]any{}, "x"); ok {
		t.Error("missing key should not decode")
	}
}

func TestStringSliceParamEncodings(t *testing.T) {
	if paths, ok := stringSliceParam(map[string]any{"p": []string{"a", "b"}}, "p"); !ok || len(paths) != 2 {
		t.Errorf("[]string encoding: got %v, %v", paths, ok)
	}
	if paths, ok := stringSliceParam(map[string]any{"p": []any{"a", "b"}}, "p"); !ok || len(paths) != 2 {
		t.Errorf("[]any encoding: got %v, %v", paths, ok)
	}
	if _, ok := stringSliceParam(map[string]any{"p": []any{"a", 1}}, "p"); ok {
		t.Error("mixed slice should not decode")
	}
}

func TestCombineOutputTruncation(t *testing.T) {
	long := strings.Repeat("line of output\n", 200)
	out := combineOutput(long, "", 300)

	if len(out) >= len(long) {
		t.Error("output should be truncated")
	}
	if !strings.Contains(out, "omitted") {
		t.Errorf("truncated output should note omission:\n%s", out)
	}
	// Head and tail both survive
	if !strings.HasPrefix(out, "line of output") {
		t.Error("head should be preserved")
	}
	if !strings.HasSuffix(strings.TrimRight(out, "\n"), "line of output") {
		t.Error("tail should be preserved")
	}
}

func TestCombineOutputStderr(t *testing.T) {
	out := combineOutput("stdout text", "stderr text", 0)
	if !strings.Contains(out, "stdout text") || !strings.Contains(out, "STDERR:\nstderr text") {
		t.Errorf("unexpected combined output:\n%s", out)
	}

	if got := combineOutput("", "", 0); got != "(no output)" {
		t.Errorf("empty output should render placeholder, got %q", got)
	}
}
