package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testJSONL = `{"question": "How many teams are there?", "query": "SELECT COUNT(DISTINCT Team) FROM nba_roster;"}

{"question": "Who is the tallest player?"}
{"question": "What team is Klay Thompson on?", "query": "SELECT Team FROM nba_roster WHERE NAME = 'Klay Thompson';"}
`

func TestReadStream(t *testing.T) {
	var got []Example
	err := ReadStream(strings.NewReader(testJSONL), 0, func(ex Example) error {
		got = append(got, ex)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadStream() error = %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("ReadStream() produced %d examples, want 3 (blank line skipped)", len(got))
	}
	if got[0].Question != "How many teams are there?" {
		t.Errorf("first question = %q", got[0].Question)
	}
	if got[1].Query != "" {
		t.Errorf("second example should have no reference query, got %q", got[1].Query)
	}
	if !strings.Contains(got[2].Query, "Klay Thompson") {
		t.Errorf("third query = %q", got[2].Query)
	}
}

func TestReadStreamMaxExamples(t *testing.T) {
	var count int
	err := ReadStream(strings.NewReader(testJSONL), 2, func(Example) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("ReadStream() error = %v", err)
	}
	if count != 2 {
		t.Errorf("ReadStream() with cap 2 produced %d examples", count)
	}
}

func TestReadStreamDecodeError(t *testing.T) {
	bad := "{\"question\": \"ok\"}\nnot json\n"
	err := ReadStream(strings.NewReader(bad), 0, func(Example) error { return nil })
	if err == nil {
		t.Fatal("expected decode error")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error %q should name the offending line", err)
	}
}

func TestReadStreamCallbackError(t *testing.T) {
	sentinel := errors.New("stop")
	err := ReadStream(strings.NewReader(testJSONL), 0, func(Example) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("ReadStream() error = %v, want callback error", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gold.jsonl")
	if err := os.WriteFile(path, []byte(testJSONL), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	examples, err := Load(path, 0)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(examples) != 3 {
		t.Errorf("Load() produced %d examples, want 3", len(examples))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "absent.jsonl"), 0); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadStreamWrapsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	if err := os.WriteFile(path, []byte("nope\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	err := LoadStream(path, 0, func(Example) error { return nil })
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "bad.jsonl") {
		t.Errorf("error %q should include the file path", err)
	}
}
