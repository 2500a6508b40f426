package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stbedoya/sqlite-agent/internal/output"
	"github.com/stbedoya/sqlite-agent/internal/prompt"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Inspect the prompt experiment library",
	Long: `Inspect the prompt experiment library.

Without --prompts these commands read the embedded default library;
point --prompts at a YAML file to inspect your own experiments.`,
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available prompt experiments",
	RunE:  runPromptsList,
}

var promptsShowCmd = &cobra.Command{
	Use:   "show <experiment>",
	Short: "Show an experiment's template, framing, and variables",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromptsShow,
}

func init() {
	promptsCmd.PersistentFlags().String("prompts", "", "prompt library YAML file (default: embedded library)")

	promptsCmd.AddCommand(promptsListCmd)
	promptsCmd.AddCommand(promptsShowCmd)
	rootCmd.AddCommand(promptsCmd)
}

func runPromptsList(cmd *cobra.Command, args []string) error {
	promptsFile, _ := cmd.Flags().GetString("prompts")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	lib, err := loadLibrary(firstNonEmpty(promptsFile, cfg.Prompts.File))
	if err != nil {
		return err
	}

	names := lib.Names()
	exps := make([]prompt.Experiment, 0, len(names))
	for _, name := range names {
		exp, err := lib.Get(name)
		if err != nil {
			return err
		}
		exps = append(exps, exp)
	}

	writer := output.New(cmd.OutOrStdout(), output.ParseFormat(viper.GetString("format")))
	return writer.WriteExperiments(exps)
}

func runPromptsShow(cmd *cobra.Command, args []string) error {
	promptsFile, _ := cmd.Flags().GetString("prompts")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	lib, err := loadLibrary(firstNonEmpty(promptsFile, cfg.Prompts.File))
	if err != nil {
		return err
	}

	exp, err := lib.Get(args[0])
	if err != nil {
		return err
	}

	format := output.ParseFormat(viper.GetString("format"))
	if format == output.FormatJSON {
		writer := output.New(cmd.OutOrStdout(), format)
		return writer.WriteJSON(map[string]any{
			"name":            exp.Name,
			"description":     exp.Description,
			"framing":         exp.Framing,
			"variables":       exp.Variables(),
			"system_template": exp.SystemTemplate,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "name: %s\n", exp.Name)
	if exp.Description != "" {
		fmt.Fprintf(out, "description: %s\n", exp.Description)
	}
	if exp.Framing != "" {
		fmt.Fprintf(out, "framing: %s\n", exp.Framing)
	}
	fmt.Fprintf(out, "variables: %s\n", strings.Join(exp.Variables(), ", "))
	fmt.Fprintf(out, "\n%s\n", exp.SystemTemplate)
	return nil
}
