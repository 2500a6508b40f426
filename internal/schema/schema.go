// Package schema describes the tables questions are asked against and
// renders them as prompt-ready text.
package schema

import (
	"fmt"
	"strings"
)

// Column describes a single table column.
type Column struct {
	// Name is the column name as stored in SQLite.
	Name string

	// Type is the declared SQLite type ("TEXT", "INT", ...).
	Type string

	// Example annotates the column with sample values and null conventions,
	// e.g. `"$9,945,830" and when null has a value "--"`. Optional.
	Example string
}

// Table describes one queryable table.
type Table struct {
	Name    string
	Columns []Column
}

// Describe renders the table as one pipe-delimited line per column:
//
//	0|Team|TEXT
//	1|NAME|TEXT
//	...
//
// This is the compact form used when example values would only burn tokens.
func (t Table) Describe() string {
	var b strings.Builder
	for i, col := range t.Columns {
		fmt.Fprintf(&b, "%d|%s|%s\n", i, col.Name, col.Type)
	}
	return strings.TrimRight(b.String(), "\n")
}

// DescribeWithExamples renders the table like Describe but appends each
// column's example annotation. Small local models answer noticeably better
// when they can see literal value formats, in particular for columns that
// store numbers as text.
func (t Table) DescribeWithExamples() string {
	var b strings.Builder
	for i, col := range t.Columns {
		if col.Example == "" {
			fmt.Fprintf(&b, "%d|%s|%s\n", i, col.Name, col.Type)
			continue
		}
		fmt.Fprintf(&b, "%d|%s|%s eg. %s\n", i, col.Name, col.Type, col.Example)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Roster returns the NBA roster table bundled with the agent. The example
// annotations mirror the raw ESPN export: heights like `6' 7"`, weights like
// "232 lbs", and salaries stored as formatted text.
func Roster() Table {
	return Table{
		Name: "nba_roster",
		Columns: []Column{
			{Name: "Team", Type: "TEXT", Example: `"Toronto Raptors"`},
			{Name: "NAME", Type: "TEXT", Example: `"Otto Porter Jr."`},
			{Name: "Jersey", Type: "TEXT", Example: `"0" and when null has a value "NA"`},
			{Name: "POS", Type: "TEXT", Example: `"PF"`},
			{Name: "AGE", Type: "INT", Example: `"22" in years`},
			{Name: "HT", Type: "TEXT", Example: "`6' 7\"` or `6' 10\"`"},
			{Name: "WT", Type: "TEXT", Example: `"232 lbs"`},
			{Name: "COLLEGE", Type: "TEXT", Example: `"Michigan" and when null has a value "--"`},
			{Name: "SALARY", Type: "TEXT", Example: `"$9,945,830" and when null has a value "--"`},
		},
	}
}
