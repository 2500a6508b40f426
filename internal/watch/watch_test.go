package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRunMissingFile(t *testing.T) {
	w := New(Options{
		FilePath: filepath.Join(t.TempDir(), "does-not-exist.yaml"),
		OnChange: func(context.Context) error { return nil },
	}, testLogger())

	if err := w.Run(context.Background()); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestRunMissingCallback(t *testing.T) {
	w := New(Options{FilePath: "prompts.yaml"}, testLogger())
	if err := w.Run(context.Background()); err == nil {
		t.Error("expected an error when OnChange is nil")
	}
}

func TestRunInitialCallbackError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	if err := os.WriteFile(path, []byte("experiments: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("bad prompt library")
	w := New(Options{
		FilePath: path,
		OnChange: func(context.Context) error { return boom },
	}, testLogger())

	if err := w.Run(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected the callback error, got %v", err)
	}
}

func TestRunFiresOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	if err := os.WriteFile(path, []byte("experiments: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	calls := make(chan struct{}, 8)
	w := New(Options{
		FilePath: path,
		Debounce: 20 * time.Millisecond,
		OnChange: func(context.Context) error {
			calls <- struct{}{}
			return nil
		},
	}, testLogger())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// The callback fires once before watching begins.
	select {
	case <-calls:
	case <-ctx.Done():
		t.Fatal("timed out waiting for the initial run")
	}

	if err := os.WriteFile(path, []byte("experiments:\n  - name: a\n    system_template: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-calls:
	case <-ctx.Done():
		t.Fatal("timed out waiting for the change-triggered run")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}
