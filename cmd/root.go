package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stbedoya/sqlite-agent/internal/config"
	"github.com/stbedoya/sqlite-agent/internal/output"
	"github.com/stbedoya/sqlite-agent/internal/prompt"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sqlite-agent",
	Short: "Translate natural language questions into SQLite queries",
	Long: `sqlite-agent turns natural language questions about an NBA roster
table into SQLite queries using a locally hosted LLM.

Prompts are composed from swappable experiment templates, model output
is validated against a strict JSON contract, and batch runs record
per-question results as JSONL so prompt variants can be compared side
by side.

Examples:
  sqlite-agent ask "How many players are on the Lakers?"
  sqlite-agent ask "What is the average age?" --experiment few-shot
  sqlite-agent run data/questions.jsonl --experiment structured
  sqlite-agent prompts list
  sqlite-agent watch "Who is the tallest player?" --prompts prompts.yaml`,
}

// Execute is called by main.main(). It runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sqlite-agent.yaml)")
	rootCmd.PersistentFlags().StringP("format", "f", "text", "output format (text, json, table)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().String("color", "auto", "colored output (auto, always, never)")

	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("color", rootCmd.PersistentFlags().Lookup("color"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error finding home directory:", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".sqlite-agent")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SQLITE_AGENT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("format", "text")
	viper.SetDefault("color", "auto")
	viper.SetDefault("verbose", false)
	viper.SetDefault("extraction", string(config.ExtractStructured))
	viper.SetDefault("llm.provider", "ollama")
	viper.SetDefault("llm.temperature", 0)
	viper.SetDefault("llm.ollama.model", "llama3.2")
	viper.SetDefault("prompts.experiment", "baseline")
	viper.SetDefault("prompts.framing", prompt.DefaultFraming)
	viper.SetDefault("run.batch_size", 10)
	viper.SetDefault("run.output_dir", "results")

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// loadConfig decodes the merged flag, env, and file configuration.
func loadConfig() (*config.Config, error) {
	cfg := &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the CLI logger. Verbose promotes it to info level;
// the default only surfaces errors so stdout stays pipeable.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelError
	if verbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadLibrary opens a prompt library file, falling back to the
// embedded defaults when no path is configured.
func loadLibrary(path string) (*prompt.Library, error) {
	if path == "" {
		return prompt.DefaultLibrary()
	}
	return prompt.LoadLibrary(path)
}

func colorMode() output.ColorMode {
	return output.ParseColorMode(viper.GetString("color"))
}

// firstNonEmpty returns the first string with content, so flags can
// shadow config values.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
