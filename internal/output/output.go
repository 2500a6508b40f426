// Package output provides formatted rendering of generated queries,
// run summaries, and prompt experiment listings. It supports text,
// JSON, and table formats.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/stbedoya/sqlite-agent/internal/experiment"
	"github.com/stbedoya/sqlite-agent/internal/prompt"
	"github.com/stbedoya/sqlite-agent/internal/schema"
)

// Format represents an output format type.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// ParseFormat converts a string to a Format, defaulting to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "table":
		return FormatTable
	default:
		return FormatText
	}
}

// Writer handles writing formatted output.
type Writer struct {
	w      io.Writer
	format Format
}

// New creates a new output Writer.
func New(w io.Writer, format Format) *Writer {
	return &Writer{w: w, format: format}
}

// WriteJSON outputs any value as indented JSON.
func (wr *Writer) WriteJSON(v any) error {
	enc := json.NewEncoder(wr.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Answer is the reply to a single question.
type Answer struct {
	Question     string `json:"question"`
	SQL          string `json:"sql_query"`
	Raw          string `json:"generated_response,omitempty"`
	Model        string `json:"model,omitempty"`
	InputTokens  int    `json:"num_input_tokens,omitempty"`
	OutputTokens int    `json:"num_output_tokens,omitempty"`
}

// WriteAnswer outputs an answer in the configured format. Text format
// prints only the SQL so the output can be piped straight into sqlite3.
func (wr *Writer) WriteAnswer(ans Answer, mode ColorMode) error {
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(ans)
	case FormatTable:
		return wr.writeAnswerTable(ans)
	default:
		return wr.writeAnswerText(ans, mode)
	}
}

func (wr *Writer) writeAnswerText(ans Answer, mode ColorMode) error {
	text := ans.SQL
	if text == "" {
		text = ans.Raw
	}
	_, err := fmt.Fprintln(wr.w, FormatSQL(text, shouldColorize(mode, wr.w)))
	return err
}

func (wr *Writer) writeAnswerTable(ans Answer) error {
	tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "QUESTION\tSQL\tTOKENS")
	fmt.Fprintln(tw, "--------\t---\t------")

	q := ans.Question
	if len(q) > 60 {
		q = q[:57] + "..."
	}
	fmt.Fprintf(tw, "%s\t%s\t%d/%d\n", q, ans.SQL, ans.InputTokens, ans.OutputTokens)

	return tw.Flush()
}

// WriteSummary outputs run statistics in the configured format.
func (wr *Writer) WriteSummary(sum experiment.Summary, mode ColorMode) error {
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(sum)
	case FormatTable:
		return wr.writeSummaryTable(sum)
	default:
		return wr.writeSummaryText(sum, mode)
	}
}

func (wr *Writer) writeSummaryText(sum experiment.Summary, mode ColorMode) error {
	colorize := shouldColorize(mode, wr.w)

	fmt.Fprintf(wr.w, "run: %s\n", sum.RunID)
	fmt.Fprintf(wr.w, "experiment: %s\n", sum.Experiment)
	if sum.Model != "" {
		fmt.Fprintf(wr.w, "model: %s\n", sum.Model)
	}
	fmt.Fprintf(wr.w, "examples: %d\n", sum.Examples)
	fmt.Fprintf(wr.w, "extracted: %d (%.1f%%)\n", sum.Extracted, sum.ExtractionRate*100)

	failed := fmt.Sprintf("%d", sum.Failed)
	if colorize && sum.Failed > 0 {
		failed = colorRed + failed + colorReset
	}
	fmt.Fprintf(wr.w, "failed: %s\n", failed)

	fmt.Fprintf(wr.w, "tokens: %d in / %d out\n", sum.InputTokens, sum.OutputTokens)
	_, err := fmt.Fprintf(wr.w, "elapsed: %.1fs\n", sum.ElapsedSeconds)
	return err
}

func (wr *Writer) writeSummaryTable(sum experiment.Summary) error {
	tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tEXPERIMENT\tEXAMPLES\tEXTRACTED\tFAILED\tTOKENS\tELAPSED")
	fmt.Fprintln(tw, "---\t----------\t--------\t---------\t------\t------\t-------")
	fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d/%d\t%.1fs\n",
		shortID(sum.RunID), sum.Experiment, sum.Examples, sum.Extracted,
		sum.Failed, sum.InputTokens, sum.OutputTokens, sum.ElapsedSeconds)
	return tw.Flush()
}

// experimentView is the serialized shape of an experiment listing.
type experimentView struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Framing     string   `json:"framing,omitempty"`
	Variables   []string `json:"variables"`
}

// WriteExperiments lists prompt experiments in the configured format.
func (wr *Writer) WriteExperiments(exps []prompt.Experiment) error {
	switch wr.format {
	case FormatJSON:
		views := make([]experimentView, 0, len(exps))
		for _, e := range exps {
			views = append(views, experimentView{
				Name:        e.Name,
				Description: e.Description,
				Framing:     e.Framing,
				Variables:   e.Variables(),
			})
		}
		return wr.WriteJSON(views)

	case FormatTable:
		tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tFRAMING\tVARIABLES\tDESCRIPTION")
		fmt.Fprintln(tw, "----\t-------\t---------\t-----------")
		for _, e := range exps {
			framing := e.Framing
			if framing == "" {
				framing = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				e.Name, framing, strings.Join(e.Variables(), ", "), e.Description)
		}
		return tw.Flush()

	default:
		for _, e := range exps {
			if e.Description != "" {
				fmt.Fprintf(wr.w, "%s: %s\n", e.Name, e.Description)
			} else {
				fmt.Fprintln(wr.w, e.Name)
			}
		}
		return nil
	}
}

// columnView is the serialized shape of a schema column.
type columnView struct {
	ID      int    `json:"cid"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Example string `json:"example,omitempty"`
}

// WriteSchema outputs a table description in the configured format.
// Text format matches the compact "cid|name|type" pragma style that
// prompts embed.
func (wr *Writer) WriteSchema(tbl schema.Table, withExamples bool) error {
	switch wr.format {
	case FormatJSON:
		cols := make([]columnView, 0, len(tbl.Columns))
		for i, c := range tbl.Columns {
			view := columnView{ID: i, Name: c.Name, Type: c.Type}
			if withExamples {
				view.Example = c.Example
			}
			cols = append(cols, view)
		}
		return wr.WriteJSON(struct {
			Table   string       `json:"table"`
			Columns []columnView `json:"columns"`
		}{Table: tbl.Name, Columns: cols})

	case FormatTable:
		tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CID\tNAME\tTYPE\tEXAMPLE")
		fmt.Fprintln(tw, "---\t----\t----\t-------")
		for i, c := range tbl.Columns {
			example := ""
			if withExamples {
				example = c.Example
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i, c.Name, c.Type, example)
		}
		return tw.Flush()

	default:
		desc := tbl.Describe()
		if withExamples {
			desc = tbl.DescribeWithExamples()
		}
		_, err := fmt.Fprintln(wr.w, desc)
		return err
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
