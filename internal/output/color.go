package output

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// ColorMode determines when to use colored output.
type ColorMode int

const (
	ColorAuto   ColorMode = iota // Auto-detect based on TTY
	ColorAlways                  // Always use colors
	ColorNever                   // Never use colors
)

// ParseColorMode converts a flag value to a ColorMode, defaulting to auto.
func ParseColorMode(s string) ColorMode {
	switch strings.ToLower(s) {
	case "always":
		return ColorAlways
	case "never":
		return ColorNever
	default:
		return ColorAuto
	}
}

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// shouldColorize determines if output should be colorized based on mode and TTY detection.
func shouldColorize(mode ColorMode, w any) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	case ColorAuto:
		// Check if writer is a file and if it's a terminal
		if f, ok := w.(*os.File); ok {
			return isTerminal(f)
		}
		return false
	}
	return false
}

// FormatSQL styles a generated SQL statement for terminal display.
func FormatSQL(sql string, colorize bool) string {
	if colorize {
		return colorBold + sql + colorReset
	}
	return sql
}

// FormatError styles an error message.
func FormatError(msg string, colorize bool) string {
	if colorize {
		return colorRed + msg + colorReset
	}
	return msg
}

// FormatWarning styles a warning message.
func FormatWarning(msg string, colorize bool) string {
	if colorize {
		return colorYellow + msg + colorReset
	}
	return msg
}

// FormatNote styles secondary information like hints and progress.
func FormatNote(msg string, colorize bool) string {
	if colorize {
		return colorGray + msg + colorReset
	}
	return msg
}

// WriteColored writes a line to the writer, styled by fn when the mode
// and destination allow color.
func (wr *Writer) WriteColored(line string, mode ColorMode, fn func(string, bool) string) error {
	_, err := fmt.Fprintln(wr.w, fn(line, shouldColorize(mode, wr.w)))
	return err
}
