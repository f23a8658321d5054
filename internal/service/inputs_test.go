package service

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func TestCollectInputs(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "b.md"), "b")
	writeFile(t, filepath.Join(dir, "src", "nested", "a.md"), "a")
	writeFile(t, filepath.Join(dir, "src", "skip.txt"), "x")
	writeFile(t, filepath.Join(dir, "inputs.jsonl"), "{\"id\": 1}\n\n\"two\"\n")

	inputs, err := CollectInputs(InputSource{
		Values:    []string{"hello"},
		Globs:     []string{"src/**/*.md"},
		JSONLPath: filepath.Join(dir, "inputs.jsonl"),
		BaseDir:   dir,
	})
	if err != nil {
		t.Fatalf("CollectInputs failed: %v", err)
	}

	want := []any{
		"hello",
		map[string]any{"path": "src/b.md", "name": "b.md", "stem": "b", "ext": "md", "dir": "src"},
		map[string]any{"path": "src/nested/a.md", "name": "a.md", "stem": "a", "ext": "md", "dir": "src/nested"},
		map[string]any{"id": float64(1)},
		"two",
	}
	if !reflect.DeepEqual(inputs, want) {
		t.Fatalf("expected %#v, got %#v", want, inputs)
	}
}

func TestCollectInputsNoSource(t *testing.T) {
	t.Parallel()

	inputs, err := CollectInputs(InputSource{})
	if err != nil {
		t.Fatalf("CollectInputs failed: %v", err)
	}
	if inputs != nil {
		t.Fatalf("expected nil inputs, got %#v", inputs)
	}
}

func TestCollectInputsInvalidJSONL(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "inputs.jsonl")
	writeFile(t, path, "{\"ok\": true}\n{broken\n")

	_, err := CollectInputs(InputSource{JSONLPath: path})
	if err == nil || !strings.Contains(err.Error(), ":2: invalid json") {
		t.Fatalf("expected an invalid json error on line 2, got %v", err)
	}
}

func TestInputLabel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input any
		want  string
	}{
		{nil, "(no input)"},
		{"plain", "plain"},
		{map[string]any{"path": "docs/a.md"}, "docs/a.md"},
		{map[string]any{"id": 1}, `{"id":1}`},
		{[]any{1, "a"}, `[1,"a"]`},
	}
	for _, tc := range cases {
		if got := InputLabel(tc.input); got != tc.want {
			t.Fatalf("InputLabel(%#v) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestCollectInputsRejectsOversizedLine(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "inputs.jsonl")
	writeFile(t, path, `{"ok": true}`+"\n"+`"`+strings.Repeat("z", maxInputLineBytes)+`"`+"\n")

	_, err := CollectInputs(InputSource{JSONLPath: path})
	if err == nil || !strings.Contains(err.Error(), ":2: line is too long") {
		t.Fatalf("expected a line too long error on line 2, got %v", err)
	}
}
