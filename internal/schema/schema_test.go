package schema

import (
	"strings"
	"testing"
)

func TestRoster(t *testing.T) {
	table := Roster()

	if table.Name != "nba_roster" {
		t.Errorf("Roster().Name = %q, want %q", table.Name, "nba_roster")
	}
	if len(table.Columns) != 9 {
		t.Fatalf("Roster() has %d columns, want 9", len(table.Columns))
	}

	wantNames := []string{"Team", "NAME", "Jersey", "POS", "AGE", "HT", "WT", "COLLEGE", "SALARY"}
	for i, want := range wantNames {
		if got := table.Columns[i].Name; got != want {
			t.Errorf("column %d = %q, want %q", i, got, want)
		}
	}
}

func TestDescribe(t *testing.T) {
	table := Table{
		Name: "t",
		Columns: []Column{
			{Name: "Team", Type: "TEXT", Example: `"Toronto Raptors"`},
			{Name: "AGE", Type: "INT"},
		},
	}

	got := table.Describe()
	want := "0|Team|TEXT\n1|AGE|INT"
	if got != want {
		t.Errorf("Describe() = %q, want %q", got, want)
	}
	if strings.Contains(got, "eg.") {
		t.Error("Describe() should not include example annotations")
	}
}

func TestDescribeWithExamples(t *testing.T) {
	got := Roster().DescribeWithExamples()

	lines := strings.Split(got, "\n")
	if len(lines) != 9 {
		t.Fatalf("DescribeWithExamples() produced %d lines, want 9", len(lines))
	}

	if lines[0] != `0|Team|TEXT eg. "Toronto Raptors"` {
		t.Errorf("first line = %q", lines[0])
	}
	if lines[8] != `8|SALARY|TEXT eg. "$9,945,830" and when null has a value "--"` {
		t.Errorf("last line = %q", lines[8])
	}
	if !strings.Contains(got, `when null has a value "NA"`) {
		t.Error("DescribeWithExamples() missing Jersey null convention")
	}
}

func TestDescribeWithExamplesOmitsEmptyAnnotation(t *testing.T) {
	table := Table{Columns: []Column{{Name: "POS", Type: "TEXT"}}}

	got := table.DescribeWithExamples()
	if got != "0|POS|TEXT" {
		t.Errorf("DescribeWithExamples() = %q, want %q", got, "0|POS|TEXT")
	}
}
