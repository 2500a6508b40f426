// Package experiment runs prompt experiments over question datasets,
// generating SQL through an LLM provider and recording per-example
// results for later analysis.
package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stbedoya/sqlite-agent/internal/config"
	"github.com/stbedoya/sqlite-agent/internal/dataset"
	"github.com/stbedoya/sqlite-agent/internal/llm"
	"github.com/stbedoya/sqlite-agent/internal/parser"
	"github.com/stbedoya/sqlite-agent/internal/prompt"
)

// Result records the outcome of a single example in a run.
type Result struct {
	RunID             string `json:"run_id"`
	Question          string `json:"question"`
	GeneratedResponse string `json:"generated_response"`
	SQLQuery          string `json:"sql_query"`
	NumInputTokens    int    `json:"num_input_tokens"`
	NumOutputTokens   int    `json:"num_output_tokens"`
	Error             string `json:"error,omitempty"`
}

// Summary holds aggregate statistics for a completed run.
type Summary struct {
	RunID          string  `json:"run_id"`
	Experiment     string  `json:"experiment"`
	Model          string  `json:"model,omitempty"`
	Examples       int     `json:"examples"`
	Extracted      int     `json:"extracted"`
	Failed         int     `json:"failed"`
	ExtractionRate float64 `json:"extraction_rate"`
	InputTokens    int     `json:"input_tokens"`
	OutputTokens   int     `json:"output_tokens"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// ResultSink receives results as a run produces them.
type ResultSink interface {
	Write(Result) error
}

// Config wires a Runner to an experiment definition.
type Config struct {
	// Experiment supplies the system instruction template.
	Experiment prompt.Experiment

	// Framing overrides the experiment's chat framing when non-empty.
	Framing string

	// Schema is the table description bound to {schema}.
	Schema string

	// Extraction selects how SQL is pulled out of model output.
	Extraction config.ExtractionMode

	// Options are passed through to the provider on every request.
	Options *llm.GenerateOptions
}

// Runner executes experiments against an LLM provider.
type Runner struct {
	provider llm.Provider
	parser   *parser.Parser
	logger   *slog.Logger

	runID      string
	experiment prompt.Experiment
	framing    string
	schema     string
	extraction config.ExtractionMode
	options    *llm.GenerateOptions
}

// NewRunner creates a Runner with a fresh run ID.
func NewRunner(provider llm.Provider, cfg Config, logger *slog.Logger) (*Runner, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.Experiment.SystemTemplate) == "" {
		return nil, fmt.Errorf("experiment %q has no system template", cfg.Experiment.Name)
	}

	return &Runner{
		provider:   provider,
		parser:     parser.New(parser.DefaultFields()...),
		logger:     logger,
		runID:      uuid.NewString(),
		experiment: cfg.Experiment,
		framing:    cfg.Framing,
		schema:     cfg.Schema,
		extraction: cfg.Extraction,
		options:    cfg.Options,
	}, nil
}

// RunID returns the identifier stamped on every result of this run.
func (r *Runner) RunID() string {
	return r.runID
}

// Run processes examples in order, writing each result to sink as it
// completes. Generation and extraction failures are recorded on the
// result and counted; only context cancellation and sink errors stop
// the run early.
func (r *Runner) Run(ctx context.Context, examples []dataset.Example, sink ResultSink) (Summary, error) {
	start := time.Now()
	sum := Summary{
		RunID:      r.runID,
		Experiment: r.experiment.Name,
	}
	if r.options != nil {
		sum.Model = r.options.Model
	}

	r.logger.Info("starting run",
		"run_id", r.runID,
		"experiment", r.experiment.Name,
		"examples", len(examples))

	for _, ex := range examples {
		if err := ctx.Err(); err != nil {
			return finish(sum, start), err
		}

		res, extracted := r.runExample(ctx, ex)
		sum.Examples++
		sum.InputTokens += res.NumInputTokens
		sum.OutputTokens += res.NumOutputTokens
		switch {
		case res.Error != "":
			sum.Failed++
		case extracted:
			sum.Extracted++
		}

		if sink != nil {
			if err := sink.Write(res); err != nil {
				return finish(sum, start), fmt.Errorf("recording result: %w", err)
			}
		}
	}

	sum = finish(sum, start)
	r.logger.Info("run complete",
		"run_id", r.runID,
		"examples", sum.Examples,
		"extracted", sum.Extracted,
		"failed", sum.Failed)
	return sum, nil
}

// RunExample generates and extracts SQL for a single question. Failures
// are reported through the result's Error field rather than an error
// return so a batch run can continue past them.
func (r *Runner) RunExample(ctx context.Context, ex dataset.Example) Result {
	res, _ := r.runExample(ctx, ex)
	return res
}

// runExample additionally reports whether a statement was actually
// extracted. Regex extraction keeps the raw output on no match, so the
// query field alone cannot distinguish a hit from a passthrough.
func (r *Runner) runExample(ctx context.Context, ex dataset.Example) (Result, bool) {
	res := Result{RunID: r.runID, Question: ex.Question}

	question := strings.TrimSpace(ex.Question)
	if question == "" {
		r.logger.Warn("skipping example with empty question")
		res.Error = "empty question"
		return res, false
	}

	built, err := r.buildPrompt(question)
	if err != nil {
		res.Error = err.Error()
		return res, false
	}

	resp, err := r.provider.Generate(ctx, built, r.options)
	if err != nil {
		r.logger.Error("generation failed", "question", truncate(question, 60), "error", err)
		res.Error = err.Error()
		return res, false
	}

	res.GeneratedResponse = resp.Content
	res.NumInputTokens = resp.TokensPrompt
	if res.NumInputTokens == 0 {
		res.NumInputTokens = estimateTokens(built)
	}
	res.NumOutputTokens = resp.TokensOutput
	if res.NumOutputTokens == 0 {
		res.NumOutputTokens = estimateTokens(resp.Content)
	}

	sql, extracted, err := r.extract(resp.Content)
	if err != nil {
		r.logger.Debug("extraction failed", "question", truncate(question, 60), "error", err)
		res.Error = err.Error()
		return res, false
	}
	res.SQLQuery = sql

	return res, extracted
}

// buildPrompt composes the full prompt for one question. A fresh
// builder per call keeps requests independent of each other.
func (r *Runner) buildPrompt(question string) (string, error) {
	b, err := r.experiment.NewBuilder(r.framing)
	if err != nil {
		return "", err
	}
	b.AddVariables(map[string]string{
		prompt.VarSchema:             r.schema,
		prompt.VarFormatInstructions: r.parser.FormatInstructions(),
		prompt.VarQuestion:           question,
	})
	return b.BuildPrompt()
}

func (r *Runner) extract(raw string) (string, bool, error) {
	switch r.extraction {
	case config.ExtractRegex:
		sql, matched := parser.ExtractSQL(raw)
		if !matched {
			r.logger.Debug("no SELECT statement matched, keeping raw output")
		}
		return sql, matched, nil
	default:
		out, err := r.parser.Parse(raw)
		if err != nil {
			return "", false, err
		}
		return out.Query(), true, nil
	}
}

func finish(sum Summary, start time.Time) Summary {
	if sum.Examples > 0 {
		sum.ExtractionRate = float64(sum.Extracted) / float64(sum.Examples)
	}
	sum.ElapsedSeconds = time.Since(start).Seconds()
	return sum
}

// estimateTokens approximates token usage by whitespace-separated
// words, used when the provider reports no counts.
func estimateTokens(text string) int {
	return len(strings.Fields(text))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
