package parser

import (
	"regexp"
	"strings"
)

// sqlPattern matches the first SELECT statement terminated by a semicolon,
// case-insensitively and across newlines. Non-greedy so trailing prose after
// the semicolon is ignored.
var sqlPattern = regexp.MustCompile(`(?is)SELECT.*?;`)

// ExtractSQL pulls the first SELECT statement out of free-form response text.
// When no terminated statement is found the trimmed response is returned
// unchanged with matched == false, leaving the judgement call to the caller.
func ExtractSQL(raw string) (sql string, matched bool) {
	if m := sqlPattern.FindString(raw); m != "" {
		return strings.TrimSpace(m), true
	}
	return strings.TrimSpace(raw), false
}
