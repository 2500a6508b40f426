package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stbedoya/sqlite-agent/internal/output"
	"github.com/stbedoya/sqlite-agent/internal/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the NBA roster table schema",
	Long: `Print the nba_roster table schema in the compact "cid|name|type"
pragma style that prompts embed.

With --examples, each column carries a sample value showing the data's
quirks, like salaries stored as text with dollar signs and nulls spelled
"--". These annotations are what the model sees, so they matter when
reading generated queries.`,
	RunE: runSchema,
}

func init() {
	schemaCmd.Flags().Bool("examples", false, "annotate columns with example values")

	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, args []string) error {
	withExamples, _ := cmd.Flags().GetBool("examples")

	writer := output.New(cmd.OutOrStdout(), output.ParseFormat(viper.GetString("format")))
	return writer.WriteSchema(schema.Roster(), withExamples)
}
