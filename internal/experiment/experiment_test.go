package experiment

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stbedoya/sqlite-agent/internal/config"
	"github.com/stbedoya/sqlite-agent/internal/dataset"
	"github.com/stbedoya/sqlite-agent/internal/llm"
	"github.com/stbedoya/sqlite-agent/internal/prompt"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeProvider returns canned responses in order and records the
// prompts it received. The last response repeats once exhausted.
type fakeProvider struct {
	responses    []string
	err          error
	tokensPrompt int
	tokensOutput int
	prompts      []string
}

func (p *fakeProvider) Generate(ctx context.Context, input string, opts *llm.GenerateOptions) (*llm.Response, error) {
	p.prompts = append(p.prompts, input)
	if p.err != nil {
		return nil, p.err
	}
	idx := len(p.prompts) - 1
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	return &llm.Response{
		Content:      p.responses[idx],
		Model:        "fake",
		TokensPrompt: p.tokensPrompt,
		TokensOutput: p.tokensOutput,
	}, nil
}

func (p *fakeProvider) GenerateStream(ctx context.Context, input string, opts *llm.GenerateOptions) (<-chan llm.StreamEvent, error) {
	resp, err := p.Generate(ctx, input, opts)
	if err != nil {
		return nil, err
	}
	ch := make(chan llm.StreamEvent, 2)
	ch <- llm.StreamEvent{Content: resp.Content}
	ch <- llm.StreamEvent{Done: true}
	close(ch)
	return ch, nil
}

func (p *fakeProvider) Heartbeat(ctx context.Context) error { return nil }

func (p *fakeProvider) ModelAvailable(ctx context.Context, model string) (bool, error) {
	return true, nil
}

// memorySink collects results in memory.
type memorySink struct {
	results []Result
	err     error
}

func (s *memorySink) Write(res Result) error {
	if s.err != nil {
		return s.err
	}
	s.results = append(s.results, res)
	return nil
}

func testConfig(extraction config.ExtractionMode) Config {
	return Config{
		Experiment: prompt.Experiment{
			Name:           "structured",
			SystemTemplate: "You write SQLite queries.\n\nSchema:\n{schema}\n\n{format_instructions}",
			Framing:        "plain",
		},
		Schema:     "0|Team|TEXT\n1|NAME|TEXT",
		Extraction: extraction,
		Options:    &llm.GenerateOptions{Model: "llama3.2"},
	}
}

const goodResponse = "```json\n{\"query\": \"SELECT COUNT(*) FROM nba_roster;\"}\n```"

func TestNewRunner(t *testing.T) {
	cfg := testConfig(config.ExtractStructured)

	if _, err := NewRunner(nil, cfg, testLogger()); err == nil {
		t.Error("expected error for nil provider")
	}

	empty := cfg
	empty.Experiment.SystemTemplate = "  "
	if _, err := NewRunner(&fakeProvider{}, empty, testLogger()); err == nil {
		t.Error("expected error for empty system template")
	}

	r, err := NewRunner(&fakeProvider{}, cfg, testLogger())
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	if r.RunID() == "" {
		t.Error("expected a non-empty run ID")
	}
}

func TestRunExampleStructured(t *testing.T) {
	p := &fakeProvider{
		responses:    []string{goodResponse},
		tokensPrompt: 40,
		tokensOutput: 12,
	}
	r, err := NewRunner(p, testConfig(config.ExtractStructured), testLogger())
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	res := r.RunExample(context.Background(), dataset.Example{Question: "How many players are there?"})

	if res.Error != "" {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	if res.RunID != r.RunID() {
		t.Errorf("result run ID = %q, want %q", res.RunID, r.RunID())
	}
	if res.SQLQuery != "SELECT COUNT(*) FROM nba_roster;" {
		t.Errorf("unexpected SQL: %q", res.SQLQuery)
	}
	if res.GeneratedResponse != goodResponse {
		t.Errorf("raw response not preserved: %q", res.GeneratedResponse)
	}
	if res.NumInputTokens != 40 || res.NumOutputTokens != 12 {
		t.Errorf("tokens = %d/%d, want 40/12", res.NumInputTokens, res.NumOutputTokens)
	}

	if len(p.prompts) != 1 {
		t.Fatalf("expected 1 generate call, got %d", len(p.prompts))
	}
	sent := p.prompts[0]
	for _, want := range []string{"0|Team|TEXT", "How many players are there?", "```json"} {
		if !strings.Contains(sent, want) {
			t.Errorf("prompt missing %q:\n%s", want, sent)
		}
	}
}

func TestRunExampleRegex(t *testing.T) {
	p := &fakeProvider{
		responses: []string{"Sure! Here you go:\nSELECT AGE FROM nba_roster WHERE NAME='Stephen Curry';\nHope that helps."},
	}
	r, err := NewRunner(p, testConfig(config.ExtractRegex), testLogger())
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	res := r.RunExample(context.Background(), dataset.Example{Question: "How old is Stephen Curry?"})

	if res.Error != "" {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	if res.SQLQuery != "SELECT AGE FROM nba_roster WHERE NAME='Stephen Curry';" {
		t.Errorf("unexpected SQL: %q", res.SQLQuery)
	}
}

func TestRunExampleRegexNoMatch(t *testing.T) {
	p := &fakeProvider{responses: []string{"  I can't answer that.  "}}
	r, err := NewRunner(p, testConfig(config.ExtractRegex), testLogger())
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	res := r.RunExample(context.Background(), dataset.Example{Question: "What is the weather?"})

	if res.Error != "" {
		t.Fatalf("regex mode should not fail on unmatched output, got: %s", res.Error)
	}
	if res.SQLQuery != "I can't answer that." {
		t.Errorf("expected trimmed raw output, got %q", res.SQLQuery)
	}
}

func TestRunExampleEmptyQuestion(t *testing.T) {
	p := &fakeProvider{responses: []string{goodResponse}}
	r, err := NewRunner(p, testConfig(config.ExtractStructured), testLogger())
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	res := r.RunExample(context.Background(), dataset.Example{Question: "   "})

	if res.Error != "empty question" {
		t.Errorf("error = %q, want %q", res.Error, "empty question")
	}
	if len(p.prompts) != 0 {
		t.Error("provider should not be called for an empty question")
	}
}

func TestRunExampleGenerateError(t *testing.T) {
	p := &fakeProvider{err: errors.New("connection refused")}
	r, err := NewRunner(p, testConfig(config.ExtractStructured), testLogger())
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	res := r.RunExample(context.Background(), dataset.Example{Question: "How many teams?"})

	if !strings.Contains(res.Error, "connection refused") {
		t.Errorf("error = %q, want it to mention the provider failure", res.Error)
	}
	if res.SQLQuery != "" {
		t.Errorf("expected no SQL on failure, got %q", res.SQLQuery)
	}
}

func TestRunExampleMalformedOutput(t *testing.T) {
	p := &fakeProvider{responses: []string{"I refuse to emit JSON."}}
	r, err := NewRunner(p, testConfig(config.ExtractStructured), testLogger())
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	res := r.RunExample(context.Background(), dataset.Example{Question: "How many teams?"})

	if !strings.Contains(res.Error, "malformed model output") {
		t.Errorf("error = %q, want a malformed output report", res.Error)
	}
	if res.GeneratedResponse != "I refuse to emit JSON." {
		t.Error("raw response should be recorded even when extraction fails")
	}
}

func TestRunExampleTokenEstimate(t *testing.T) {
	p := &fakeProvider{responses: []string{goodResponse}}
	r, err := NewRunner(p, testConfig(config.ExtractStructured), testLogger())
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	res := r.RunExample(context.Background(), dataset.Example{Question: "How many players are there?"})

	if res.NumInputTokens == 0 {
		t.Error("expected estimated input tokens when the provider reports none")
	}
	if res.NumOutputTokens == 0 {
		t.Error("expected estimated output tokens when the provider reports none")
	}
}

func TestRun(t *testing.T) {
	p := &fakeProvider{
		responses: []string{
			goodResponse,
			"no JSON in this one",
			"```json\n{\"query\": \"SELECT NAME FROM nba_roster LIMIT 5;\"}\n```",
		},
		tokensPrompt: 10,
		tokensOutput: 5,
	}
	r, err := NewRunner(p, testConfig(config.ExtractStructured), testLogger())
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	examples := []dataset.Example{
		{Question: "How many players are there?"},
		{Question: "What is the average age?"},
		{Question: "Name five players."},
	}
	sink := &memorySink{}

	sum, err := r.Run(context.Background(), examples, sink)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if sum.Examples != 3 || sum.Extracted != 2 || sum.Failed != 1 {
		t.Errorf("summary = %d examples / %d extracted / %d failed, want 3/2/1",
			sum.Examples, sum.Extracted, sum.Failed)
	}
	if sum.ExtractionRate < 0.66 || sum.ExtractionRate > 0.67 {
		t.Errorf("extraction rate = %f, want 2/3", sum.ExtractionRate)
	}
	if sum.InputTokens != 30 || sum.OutputTokens != 15 {
		t.Errorf("token totals = %d/%d, want 30/15", sum.InputTokens, sum.OutputTokens)
	}
	if sum.RunID != r.RunID() || sum.Experiment != "structured" || sum.Model != "llama3.2" {
		t.Errorf("summary identity fields wrong: %+v", sum)
	}

	if len(sink.results) != 3 {
		t.Fatalf("sink got %d results, want 3", len(sink.results))
	}
	for i, res := range sink.results {
		if res.RunID != r.RunID() {
			t.Errorf("result %d has run ID %q, want %q", i, res.RunID, r.RunID())
		}
	}
	if sink.results[1].Error == "" {
		t.Error("second result should carry the extraction failure")
	}
}

func TestRunRegexSummaryCountsMatchesOnly(t *testing.T) {
	p := &fakeProvider{
		responses: []string{
			"SELECT COUNT(*) FROM nba_roster;",
			"I can't answer that.",
		},
	}
	r, err := NewRunner(p, testConfig(config.ExtractRegex), testLogger())
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	examples := []dataset.Example{
		{Question: "How many players are there?"},
		{Question: "What is the weather?"},
	}
	sink := &memorySink{}

	sum, err := r.Run(context.Background(), examples, sink)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if sum.Examples != 2 || sum.Extracted != 1 || sum.Failed != 0 {
		t.Errorf("summary = %d examples / %d extracted / %d failed, want 2/1/0",
			sum.Examples, sum.Extracted, sum.Failed)
	}
	if sink.results[1].SQLQuery != "I can't answer that." {
		t.Errorf("passthrough should still be recorded, got %q", sink.results[1].SQLQuery)
	}
}

func TestRunNilSink(t *testing.T) {
	p := &fakeProvider{responses: []string{goodResponse}}
	r, err := NewRunner(p, testConfig(config.ExtractStructured), testLogger())
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	sum, err := r.Run(context.Background(), []dataset.Example{{Question: "How many?"}}, nil)
	if err != nil {
		t.Fatalf("Run with nil sink failed: %v", err)
	}
	if sum.Examples != 1 {
		t.Errorf("examples = %d, want 1", sum.Examples)
	}
}

func TestRunSinkError(t *testing.T) {
	p := &fakeProvider{responses: []string{goodResponse}}
	r, err := NewRunner(p, testConfig(config.ExtractStructured), testLogger())
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	sink := &memorySink{err: errors.New("disk full")}
	_, err = r.Run(context.Background(), []dataset.Example{{Question: "How many?"}}, sink)
	if err == nil || !strings.Contains(err.Error(), "recording result") {
		t.Errorf("expected a sink error, got %v", err)
	}
}

func TestRunContextCanceled(t *testing.T) {
	p := &fakeProvider{responses: []string{goodResponse}}
	r, err := NewRunner(p, testConfig(config.ExtractStructured), testLogger())
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := r.Run(ctx, []dataset.Example{{Question: "How many?"}}, &memorySink{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if sum.Examples != 0 {
		t.Errorf("no examples should run after cancellation, got %d", sum.Examples)
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"SELECT 1;", 2},
		{"  spaced   out   words  ", 3},
	}
	for _, tt := range tests {
		if got := estimateTokens(tt.text); got != tt.want {
			t.Errorf("estimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
