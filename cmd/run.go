package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stbedoya/sqlite-agent/internal/config"
	"github.com/stbedoya/sqlite-agent/internal/dataset"
	"github.com/stbedoya/sqlite-agent/internal/experiment"
	"github.com/stbedoya/sqlite-agent/internal/llm"
	"github.com/stbedoya/sqlite-agent/internal/output"
	"github.com/stbedoya/sqlite-agent/internal/schema"
)

var runCmd = &cobra.Command{
	Use:   "run <dataset>...",
	Short: "Run a prompt experiment over a question dataset",
	Long: `Run a prompt experiment over JSONL question datasets, recording one
result per question.

Each dataset line is a JSON object with a "question" field. For every
question the composed prompt is sent to the model, SQL is extracted
from the response, and the result is appended to a results file along
with token counts and any failure. A summary is printed when the run
completes. Interrupting a run keeps the results recorded so far.

Examples:
  sqlite-agent run data/questions.jsonl
  sqlite-agent run "data/*.jsonl" --experiment few-shot --max-examples 50
  sqlite-agent run data/questions.jsonl --extraction regex --out results/regex.jsonl`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringP("experiment", "e", "", "prompt experiment to use")
	runCmd.Flags().String("framing", "", "chat framing preset (plain, chatml, zephyr, instruct) or a literal template")
	runCmd.Flags().String("prompts", "", "prompt library YAML file (default: embedded library)")
	runCmd.Flags().StringP("model", "m", "", "model to generate with")
	runCmd.Flags().StringP("extraction", "x", "", "extraction mode (structured, regex)")
	runCmd.Flags().StringP("out", "o", "", "results file (default: <output_dir>/<experiment>-<run>.jsonl)")
	runCmd.Flags().Int("batch-size", 0, "results buffered between file flushes")
	runCmd.Flags().Int("max-examples", 0, "stop after this many questions (0 = all)")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	experimentName, _ := cmd.Flags().GetString("experiment")
	framing, _ := cmd.Flags().GetString("framing")
	promptsFile, _ := cmd.Flags().GetString("prompts")
	model, _ := cmd.Flags().GetString("model")
	extractionStr, _ := cmd.Flags().GetString("extraction")
	outPath, _ := cmd.Flags().GetString("out")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	maxExamples, _ := cmd.Flags().GetInt("max-examples")

	format := output.ParseFormat(viper.GetString("format"))
	verbose := viper.GetBool("verbose")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if batchSize <= 0 {
		batchSize = cfg.Run.BatchSize
	}
	if maxExamples <= 0 {
		maxExamples = cfg.Run.MaxExamples
	}

	mode, err := resolveExtraction(extractionStr, cfg)
	if err != nil {
		return err
	}

	exp, err := resolveExperiment(promptsFile, experimentName, cfg)
	if err != nil {
		return err
	}

	paths, err := config.ExpandGlobs(args)
	if err != nil {
		return err
	}

	examples, err := loadExamples(paths, maxExamples)
	if err != nil {
		return err
	}
	if len(examples) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No questions found in the given datasets.")
		return nil
	}

	logger := newLogger(verbose)

	provider, err := llm.NewProvider(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w\n\nTroubleshooting:\n- Ensure Ollama is running: ollama serve\n- Check provider config in ~/.sqlite-agent.yaml", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := provider.Heartbeat(ctx); err != nil {
		if cfg.LLM.Provider == "ollama" {
			return fmt.Errorf("cannot connect to Ollama at %s: %w\n\nStart Ollama with: ollama serve",
				cfg.LLM.Ollama.Host, err)
		}
		return fmt.Errorf("LLM provider %s unavailable: %w", cfg.LLM.Provider, err)
	}

	opts := generateOptions(cfg, model)
	warnMissingModel(ctx, provider, opts.Model)

	runner, err := experiment.NewRunner(provider, experiment.Config{
		Experiment: exp,
		Framing:    firstNonEmpty(framing, cfg.Prompts.Framing),
		Schema:     schema.Roster().DescribeWithExamples(),
		Extraction: mode,
		Options:    opts,
	}, logger)
	if err != nil {
		return err
	}

	if outPath == "" {
		outPath = defaultResultsPath(cfg.Run.OutputDir, exp.Name, runner.RunID())
	}
	writer, err := experiment.NewWriter(outPath, batchSize)
	if err != nil {
		return err
	}

	sum, runErr := runner.Run(ctx, examples, writer)
	closeErr := writer.Close()

	interrupted := errors.Is(runErr, context.Canceled)
	if runErr != nil && !interrupted {
		return runErr
	}
	if closeErr != nil {
		return closeErr
	}

	out := output.New(cmd.OutOrStdout(), format)
	if err := out.WriteSummary(sum, colorMode()); err != nil {
		return err
	}

	if format == output.FormatText {
		note := output.New(os.Stderr, output.FormatText)
		if interrupted {
			_ = note.WriteColored("run interrupted, partial results kept", colorMode(), output.FormatWarning)
		}
		_ = note.WriteColored("results written to "+writer.Path(), colorMode(), output.FormatNote)
	}

	return nil
}

// loadExamples reads questions from dataset files, stopping at limit
// across all files when limit > 0.
func loadExamples(paths []string, limit int) ([]dataset.Example, error) {
	var examples []dataset.Example
	for _, path := range paths {
		remaining := 0
		if limit > 0 {
			remaining = limit - len(examples)
			if remaining <= 0 {
				break
			}
		}
		batch, err := dataset.Load(path, remaining)
		if err != nil {
			return nil, err
		}
		examples = append(examples, batch...)
	}
	return examples, nil
}

// defaultResultsPath names the results file for a run.
func defaultResultsPath(outputDir, experimentName, runID string) string {
	if len(runID) > 8 {
		runID = runID[:8]
	}
	return filepath.Join(outputDir, fmt.Sprintf("%s-%s.jsonl", experimentName, runID))
}

// signalContext returns a context cancelled on SIGINT or SIGTERM so a
// long run can stop between examples.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
