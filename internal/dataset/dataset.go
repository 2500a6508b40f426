// Package dataset loads gold question datasets stored as JSON Lines.
//
// Each line is one JSON object with a "question" field and, optionally, a
// reference "query". Blank lines are skipped; anything else that fails to
// decode aborts the load with its line number.
package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Example is one gold dataset record.
type Example struct {
	// Question is the natural language question posed to the model.
	Question string `json:"question"`

	// Query is the reference SQL, when the dataset carries one.
	Query string `json:"query,omitempty"`
}

// maxLineSize caps a single dataset line at 1 MiB. Questions are short;
// anything larger is a malformed file, not a dataset.
const maxLineSize = 1 << 20

// ReadStream decodes examples from r and invokes fn for each one, stopping
// after maxExamples records when maxExamples > 0. A non-nil error from fn
// aborts the stream and is returned as-is.
func ReadStream(r io.Reader, maxExamples int, fn func(Example) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNum := 0
	count := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 || isBlank(line) {
			continue
		}

		var ex Example
		if err := json.Unmarshal(line, &ex); err != nil {
			return fmt.Errorf("dataset line %d: %w", lineNum, err)
		}

		if err := fn(ex); err != nil {
			return err
		}

		count++
		if maxExamples > 0 && count >= maxExamples {
			return nil
		}
	}

	return scanner.Err()
}

// LoadStream opens a JSON Lines file and streams its examples through fn.
// See [ReadStream] for the callback contract.
func LoadStream(path string, maxExamples int, fn func(Example) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := ReadStream(f, maxExamples, fn); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Load reads up to maxExamples examples from a JSON Lines file into a slice.
func Load(path string, maxExamples int) ([]Example, error) {
	var examples []Example
	err := LoadStream(path, maxExamples, func(ex Example) error {
		examples = append(examples, ex)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return examples, nil
}

func isBlank(line []byte) bool {
	for _, c := range line {
		if c != ' ' && c != '\t' && c != '\r' {
			return false
		}
	}
	return true
}
