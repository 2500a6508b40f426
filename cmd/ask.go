package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stbedoya/sqlite-agent/internal/config"
	"github.com/stbedoya/sqlite-agent/internal/llm"
	"github.com/stbedoya/sqlite-agent/internal/output"
	"github.com/stbedoya/sqlite-agent/internal/parser"
	"github.com/stbedoya/sqlite-agent/internal/prompt"
	"github.com/stbedoya/sqlite-agent/internal/schema"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Translate a natural language question into a SQLite query",
	Long: `Translate a natural language question about the NBA roster table into
a SQLite query using the configured LLM.

The prompt is composed from the selected experiment's system template,
the roster schema, and your question. By default the model must answer
with a JSON object that is validated before the query is extracted;
use --extraction regex for experiments that produce bare SQL.

Examples:
  sqlite-agent ask "How many players are on the Lakers?"
  sqlite-agent ask "What is the average age of the Celtics?" --experiment few-shot
  sqlite-agent ask "Who has the highest salary?" --framing chatml --model sqlcoder
  sqlite-agent ask "Name five centers." --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringP("experiment", "e", "", "prompt experiment to use")
	askCmd.Flags().String("framing", "", "chat framing preset (plain, chatml, zephyr, instruct) or a literal template")
	askCmd.Flags().String("prompts", "", "prompt library YAML file (default: embedded library)")
	askCmd.Flags().StringP("model", "m", "", "model to generate with")
	askCmd.Flags().StringP("extraction", "x", "", "extraction mode (structured, regex)")
	askCmd.Flags().Bool("stream", false, "stream raw model output as it generates (skips extraction)")
	askCmd.Flags().Bool("dry-run", false, "print the composed prompt instead of querying the model")

	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]
	experimentName, _ := cmd.Flags().GetString("experiment")
	framing, _ := cmd.Flags().GetString("framing")
	promptsFile, _ := cmd.Flags().GetString("prompts")
	model, _ := cmd.Flags().GetString("model")
	extractionStr, _ := cmd.Flags().GetString("extraction")
	stream, _ := cmd.Flags().GetBool("stream")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	format := output.ParseFormat(viper.GetString("format"))
	verbose := viper.GetBool("verbose")
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mode, err := resolveExtraction(extractionStr, cfg)
	if err != nil {
		return err
	}

	exp, err := resolveExperiment(promptsFile, experimentName, cfg)
	if err != nil {
		return err
	}

	p := parser.New(parser.DefaultFields()...)
	built, err := composePrompt(exp, firstNonEmpty(framing, cfg.Prompts.Framing), p, question)
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), built)
		return nil
	}

	logger := newLogger(verbose)

	provider, err := llm.NewProvider(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w\n\nTroubleshooting:\n- Ensure Ollama is running: ollama serve\n- Check provider config in ~/.sqlite-agent.yaml", err)
	}

	if err := provider.Heartbeat(ctx); err != nil {
		if cfg.LLM.Provider == "ollama" {
			return fmt.Errorf("cannot connect to Ollama at %s: %w\n\nStart Ollama with: ollama serve",
				cfg.LLM.Ollama.Host, err)
		}
		return fmt.Errorf("LLM provider %s unavailable: %w", cfg.LLM.Provider, err)
	}

	opts := generateOptions(cfg, model)
	warnMissingModel(ctx, provider, opts.Model)

	if stream {
		return streamAnswer(ctx, cmd, provider, built, opts, format)
	}

	resp, err := provider.Generate(ctx, built, opts)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	logger.Info("generation complete",
		"model", resp.Model,
		"tokens_prompt", resp.TokensPrompt,
		"tokens_output", resp.TokensOutput)

	ans, matched, err := buildAnswer(question, resp, p, mode)
	if err != nil {
		return err
	}
	if !matched && format == output.FormatText {
		warn := output.New(os.Stderr, output.FormatText)
		_ = warn.WriteColored("no SELECT statement found, showing raw output", colorMode(), output.FormatWarning)
	}

	writer := output.New(cmd.OutOrStdout(), format)
	return writer.WriteAnswer(ans, colorMode())
}

// resolveExtraction picks the extraction mode from the flag, falling
// back to configuration.
func resolveExtraction(flagValue string, cfg *config.Config) (config.ExtractionMode, error) {
	s := firstNonEmpty(flagValue, cfg.Extraction, string(config.ExtractStructured))
	return config.ParseExtractionMode(s)
}

// resolveExperiment loads the prompt library and selects an experiment.
func resolveExperiment(promptsFile, name string, cfg *config.Config) (prompt.Experiment, error) {
	lib, err := loadLibrary(firstNonEmpty(promptsFile, cfg.Prompts.File))
	if err != nil {
		return prompt.Experiment{}, err
	}
	return lib.Get(firstNonEmpty(name, cfg.Prompts.Experiment, "baseline"))
}

// composePrompt renders the full prompt for a question against the
// roster schema.
func composePrompt(exp prompt.Experiment, framing string, p *parser.Parser, question string) (string, error) {
	b, err := exp.NewBuilder(framing)
	if err != nil {
		return "", err
	}
	b.AddVariables(map[string]string{
		prompt.VarSchema:             schema.Roster().DescribeWithExamples(),
		prompt.VarFormatInstructions: p.FormatInstructions(),
		prompt.VarQuestion:           question,
	})
	return b.BuildPrompt()
}

// buildAnswer extracts SQL from the model response. The second return
// reports whether extraction found a query; in regex mode the raw
// output is kept as the answer either way.
func buildAnswer(question string, resp *llm.Response, p *parser.Parser, mode config.ExtractionMode) (output.Answer, bool, error) {
	ans := output.Answer{
		Question:     question,
		Raw:          resp.Content,
		Model:        resp.Model,
		InputTokens:  resp.TokensPrompt,
		OutputTokens: resp.TokensOutput,
	}

	switch mode {
	case config.ExtractRegex:
		sql, matched := parser.ExtractSQL(resp.Content)
		ans.SQL = sql
		return ans, matched, nil
	default:
		out, err := p.Parse(resp.Content)
		if err != nil {
			return ans, false, fmt.Errorf("%w\n\nRaw output:\n%s", err, resp.Content)
		}
		ans.SQL = out.Query()
		return ans, true, nil
	}
}

// generateOptions builds per-request options from config, with the
// model flag taking precedence.
func generateOptions(cfg *config.Config, modelFlag string) *llm.GenerateOptions {
	return &llm.GenerateOptions{
		Model:       firstNonEmpty(modelFlag, cfg.LLM.Ollama.Model),
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}
}

// warnMissingModel tells the user when the requested model has not been
// pulled yet. The request still proceeds so Ollama can report its own
// error; lookup failures are ignored.
func warnMissingModel(ctx context.Context, provider llm.Provider, model string) {
	if model == "" {
		return
	}
	available, err := provider.ModelAvailable(ctx, model)
	if err != nil || available {
		return
	}
	warn := output.New(os.Stderr, output.FormatText)
	_ = warn.WriteColored(fmt.Sprintf("model %q not found locally; run: ollama pull %s", model, model), colorMode(), output.FormatWarning)
}

// streamAnswer prints raw model output as it arrives. Extraction is
// skipped; streaming exists to watch the generation live.
func streamAnswer(ctx context.Context, cmd *cobra.Command, provider llm.Provider, built string, opts *llm.GenerateOptions, format output.Format) error {
	stream, err := provider.GenerateStream(ctx, built, opts)
	if err != nil {
		return fmt.Errorf("failed to start LLM stream: %w", err)
	}

	var full strings.Builder
	for event := range stream {
		if event.Error != nil {
			if full.Len() > 0 {
				fmt.Fprintf(os.Stderr, "\n\nError during streaming: %v\n", event.Error)
			}
			return event.Error
		}
		if event.Content != "" {
			if format == output.FormatText {
				fmt.Fprint(cmd.OutOrStdout(), event.Content)
			}
			full.WriteString(event.Content)
		}
	}

	if format == output.FormatText {
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	}

	writer := output.New(cmd.OutOrStdout(), format)
	return writer.WriteJSON(map[string]any{
		"generated_response": full.String(),
	})
}
