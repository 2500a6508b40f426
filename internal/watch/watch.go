// Package watch re-runs a callback whenever a watched file changes.
//
// It exists for prompt iteration: edit a prompt library in one editor
// pane while the agent re-answers the same question in another,
// showing how the generated SQL shifts with each save.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Options configures the watcher behavior.
type Options struct {
	FilePath string                      // Path to the watched file
	Debounce time.Duration               // Quiet period before a change fires (default 250ms)
	OnChange func(context.Context) error // Called once at startup and after each change
}

// Watcher re-runs a callback when a file changes on disk.
type Watcher struct {
	opts    Options
	logger  *slog.Logger
	watcher *fsnotify.Watcher
}

// New creates a new Watcher with the given options.
func New(opts Options, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 250 * time.Millisecond
	}
	return &Watcher{opts: opts, logger: logger}
}

// Run invokes the callback once, then blocks re-invoking it after each
// change to the watched file. It returns when the context is cancelled,
// when the callback returns an error, or when watching fails.
func (w *Watcher) Run(ctx context.Context) error {
	if w.opts.OnChange == nil {
		return fmt.Errorf("watch: OnChange callback is required")
	}

	if err := w.setupWatcher(); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.opts.FilePath, err)
	}
	defer w.watcher.Close()

	if err := w.opts.OnChange(ctx); err != nil {
		return err
	}

	return w.watch(ctx)
}

// setupWatcher initializes the fsnotify watcher.
func (w *Watcher) setupWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	if err := watcher.Add(w.opts.FilePath); err != nil {
		return err
	}

	return nil
}

// watch monitors the file and fires the callback after a debounce
// window, so editors that write in several bursts trigger one re-run.
func (w *Watcher) watch(ctx context.Context) error {
	timer := time.NewTimer(w.opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed unexpectedly")
			}
			fire, err := w.handleEvent(ctx, event)
			if err != nil {
				return err
			}
			if fire {
				timer.Reset(w.opts.Debounce)
				pending = true
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			return fmt.Errorf("watcher error: %w", err)

		case <-timer.C:
			if ctx.Err() != nil {
				return nil
			}
			if !pending {
				continue
			}
			pending = false
			w.logger.Debug("file changed, re-running", "path", w.opts.FilePath)
			if err := w.opts.OnChange(ctx); err != nil {
				return err
			}
		}
	}
}

// handleEvent processes a file system event, reporting whether it
// should count as a change.
func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) (bool, error) {
	switch {
	case event.Op&fsnotify.Write == fsnotify.Write,
		event.Op&fsnotify.Create == fsnotify.Create:
		return true, nil

	case event.Op&fsnotify.Remove == fsnotify.Remove,
		event.Op&fsnotify.Rename == fsnotify.Rename:
		// Editors that save atomically replace the file, taking the
		// watch with it. Wait for the new file and watch it again.
		if err := w.reattach(ctx); err != nil {
			return false, err
		}
		return true, nil
	}

	return false, nil
}

// reattach waits for the watched file to reappear after a replace.
func (w *Watcher) reattach(ctx context.Context) error {
	timeout := time.After(10 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timeout:
			return fmt.Errorf("timeout waiting for %s to reappear", w.opts.FilePath)
		case <-ticker.C:
			if _, err := os.Stat(w.opts.FilePath); err != nil {
				continue
			}
			if err := w.watcher.Add(w.opts.FilePath); err != nil {
				return fmt.Errorf("failed to watch replaced file: %w", err)
			}
			w.logger.Debug("file replaced, following new file", "path", w.opts.FilePath)
			return nil
		}
	}
}
