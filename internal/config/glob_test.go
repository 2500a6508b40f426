package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandGlobs(t *testing.T) {
	dir := t.TempDir()

	fileA := filepath.Join(dir, "train.jsonl")
	fileB := filepath.Join(dir, "eval.jsonl")
	fileC := filepath.Join(dir, "notes.txt")

	for _, path := range []string{fileA, fileB, fileC} {
		if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}

	files, err := ExpandGlobs([]string{filepath.Join(dir, "*.jsonl")})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}

	// Overlapping plain path and glob should not duplicate entries.
	files, err = ExpandGlobs([]string{fileA, filepath.Join(dir, "*.jsonl")})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
}

func TestExpandGlobsNoMatch(t *testing.T) {
	dir := t.TempDir()

	_, err := ExpandGlobs([]string{filepath.Join(dir, "*.missing")})
	if err == nil {
		t.Fatal("expected error for unmatched glob")
	}
}

func TestExpandGlobsMissingFile(t *testing.T) {
	dir := t.TempDir()

	_, err := ExpandGlobs([]string{filepath.Join(dir, "absent.jsonl")})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
