package experiment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Writer appends results to a JSONL file, buffering up to batchSize
// records between writes so long runs don't hit the disk per example.
type Writer struct {
	mu        sync.Mutex
	file      *os.File
	path      string
	batchSize int
	pending   []Result
}

// NewWriter opens path for appending, creating parent directories as
// needed. A batchSize below 1 flushes every result immediately.
func NewWriter(path string, batchSize int) (*Writer, error) {
	if batchSize < 1 {
		batchSize = 1
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening results file: %w", err)
	}

	return &Writer{
		file:      f,
		path:      path,
		batchSize: batchSize,
		pending:   make([]Result, 0, batchSize),
	}, nil
}

// Path returns the file the writer appends to.
func (w *Writer) Path() string {
	return w.path
}

// Write buffers a result, flushing when the batch is full.
func (w *Writer) Write(res Result) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, res)
	if len(w.pending) >= w.batchSize {
		return w.flushLocked()
	}
	return nil
}

// Flush writes any buffered results to disk.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

// Close flushes buffered results and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	flushErr := w.flushLocked()
	closeErr := w.file.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

func (w *Writer) flushLocked() error {
	if len(w.pending) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, res := range w.pending {
		line, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	if _, err := w.file.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing results to %s: %w", w.path, err)
	}
	w.pending = w.pending[:0]
	return nil
}
