package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stbedoya/sqlite-agent/internal/llm"
	"github.com/stbedoya/sqlite-agent/internal/output"
	"github.com/stbedoya/sqlite-agent/internal/parser"
	"github.com/stbedoya/sqlite-agent/internal/prompt"
	"github.com/stbedoya/sqlite-agent/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <question> --prompts <file>",
	Short: "Re-answer a question whenever the prompt library changes",
	Long: `Watch a prompt library file and re-answer the same question every time
it is saved.

This is the tight loop for prompt iteration: keep the library open in
an editor, run watch in another terminal, and each save shows how the
generated SQL shifts with the new wording. Errors from half-saved
files are reported and the watch continues.

Examples:
  sqlite-agent watch "Who is the tallest player?" --prompts prompts.yaml
  sqlite-agent watch "How many teams are there?" --prompts prompts.yaml --experiment structured`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("prompts", "", "prompt library YAML file to watch (required)")
	watchCmd.Flags().StringP("experiment", "e", "", "prompt experiment to use")
	watchCmd.Flags().String("framing", "", "chat framing preset (plain, chatml, zephyr, instruct) or a literal template")
	watchCmd.Flags().StringP("model", "m", "", "model to generate with")
	watchCmd.Flags().StringP("extraction", "x", "", "extraction mode (structured, regex)")

	_ = watchCmd.MarkFlagRequired("prompts")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	question := args[0]
	promptsFile, _ := cmd.Flags().GetString("prompts")
	experimentName, _ := cmd.Flags().GetString("experiment")
	framing, _ := cmd.Flags().GetString("framing")
	model, _ := cmd.Flags().GetString("model")
	extractionStr, _ := cmd.Flags().GetString("extraction")

	format := output.ParseFormat(viper.GetString("format"))
	verbose := viper.GetBool("verbose")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mode, err := resolveExtraction(extractionStr, cfg)
	if err != nil {
		return err
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

	p := parser.New(parser.DefaultFields()...)
	writer := output.New(cmd.OutOrStdout(), format)
	note := output.New(cmd.OutOrStdout(), output.FormatText)
	errOut := output.New(os.Stderr, output.FormatText)

	// A broken library or a failed generation should not end the
	// watch; report it and wait for the next save.
	report := func(err error) error {
		_ = errOut.WriteColored(err.Error(), colorMode(), output.FormatError)
		return nil
	}

	onChange := func(ctx context.Context) error {
		lib, err := prompt.LoadLibrary(promptsFile)
		if err != nil {
			return report(err)
		}
		exp, err := lib.Get(firstNonEmpty(experimentName, cfg.Prompts.Experiment, "baseline"))
		if err != nil {
			return report(err)
		}
		built, err := composePrompt(exp, firstNonEmpty(framing, cfg.Prompts.Framing), p, question)
		if err != nil {
			return report(err)
		}

		resp, err := provider.Generate(ctx, built, opts)
		if err != nil {
			return report(err)
		}

		ans, _, err := buildAnswer(question, resp, p, mode)
		if err != nil {
			return report(err)
		}

		if format == output.FormatText {
			header := fmt.Sprintf("=== %s %s ===", time.Now().Format("15:04:05"), exp.Name)
			_ = note.WriteColored(header, colorMode(), output.FormatNote)
		}
		return writer.WriteAnswer(ans, colorMode())
	}

	w := watch.New(watch.Options{
		FilePath: promptsFile,
		OnChange: onChange,
	}, logger)

	return w.Run(ctx)
}
