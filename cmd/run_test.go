package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDataset(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadExamples(t *testing.T) {
	dir := t.TempDir()
	a := writeDataset(t, dir, "a.jsonl", `{"question": "q1"}`+"\n"+`{"question": "q2"}`+"\n")
	b := writeDataset(t, dir, "b.jsonl", `{"question": "q3"}`+"\n")

	examples, err := loadExamples([]string{a, b}, 0)
	if err != nil {
		t.Fatalf("loadExamples failed: %v", err)
	}
	if len(examples) != 3 {
		t.Fatalf("expected 3 examples, got %d", len(examples))
	}
	if examples[2].Question != "q3" {
		t.Errorf("files read out of order: %+v", examples)
	}
}

func TestLoadExamplesLimitAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeDataset(t, dir, "a.jsonl", `{"question": "q1"}`+"\n"+`{"question": "q2"}`+"\n")
	b := writeDataset(t, dir, "b.jsonl", `{"question": "q3"}`+"\n")

	examples, err := loadExamples([]string{a, b}, 2)
	if err != nil {
		t.Fatalf("loadExamples failed: %v", err)
	}
	if len(examples) != 2 {
		t.Fatalf("limit should apply across files, got %d examples", len(examples))
	}
	if examples[1].Question != "q2" {
		t.Errorf("unexpected examples: %+v", examples)
	}
}

func TestLoadExamplesMissingFile(t *testing.T) {
	if _, err := loadExamples([]string{filepath.Join(t.TempDir(), "nope.jsonl")}, 0); err == nil {
		t.Error("expected an error for a missing dataset")
	}
}

func TestDefaultResultsPath(t *testing.T) {
	got := defaultResultsPath("results", "baseline", "0f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0")
	want := filepath.Join("results", "baseline-0f1e2d3c.jsonl")
	if got != want {
		t.Errorf("defaultResultsPath = %q, want %q", got, want)
	}

	got = defaultResultsPath("out", "few-shot", "abc")
	want = filepath.Join("out", "few-shot-abc.jsonl")
	if got != want {
		t.Errorf("short run IDs should pass through, got %q", got)
	}
}
