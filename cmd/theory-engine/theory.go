// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/consclab/theory-engine/internal/theory"
	"github.com/consclab/theory-engine/pkg/types"
)

var theoryCmd = &cobra.Command{
	Use:   "theory",
	Short: "Maintain the cumulative theory of consciousness",
	Long: `Theory folds analysis results into a single evolving theory document.
Use update to incorporate the newest unprocessed analysis, or show to print
the current theory.`,
}

var theoryUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Incorporate the newest unprocessed analysis into the theory",
	Long: `Update picks the newest analysis result not yet incorporated (or the
one named with --analysis), sends it to the model together with the current
theory, and writes the revised theory plus a timestamped backup.`,
	RunE: runTheoryUpdate,
}

var theoryShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current cumulative theory",
	RunE:  runTheoryShow,
}

func init() {
	theoryUpdateCmd.Flags().String("model", "", "AI model identifier (gpt-5, gpt-5-mini, gpt-5-nano)")
	theoryUpdateCmd.Flags().String("analysis", "", "incorporate a specific analysis file instead of the newest")
	theoryUpdateCmd.Flags().Bool("summary", false, "print the revised theory after updating")

	theoryCmd.AddCommand(theoryUpdateCmd)
	theoryCmd.AddCommand(theoryShowCmd)
	rootCmd.AddCommand(theoryCmd)
}

func theoryConfig(ai types.AIConfig) types.TheoryConfig {
	return types.TheoryConfig{
		AIConfig:   ai,
		ResultsDir: viper.GetString("results_dir"),
		TheoryDir:  viper.GetString("theory_dir"),
	}
}

func runTheoryUpdate(cmd *cobra.Command, args []string) error {
	ai, err := aiConfig(cmd)
	if err != nil {
		return err
	}

	backend, err := newBackend()
	if err != nil {
		return err
	}

	analysisFile, _ := cmd.Flags().GetString("analysis")
	withSummary, _ := cmd.Flags().GetBool("summary")

	result, updated, err := theory.Update(cmd.Context(), backend, theoryConfig(ai), theory.Options{
		AnalysisFile: analysisFile,
	}, os.Stdout)
	if err != nil {
		return err
	}
	if !updated {
		fmt.Println("Nothing to incorporate: all analyses are already in the theory.")
		return nil
	}

	if withSummary {
		theory.WriteSummary(os.Stdout, result)
	}
	return nil
}

func runTheoryShow(cmd *cobra.Command, args []string) error {
	current, err := theory.LoadCurrent(viper.GetString("theory_dir"))
	if err != nil {
		return err
	}
	if current == nil {
		fmt.Println("No theory developed yet. Run `theory-engine theory update` first.")
		return nil
	}

	theory.WriteSummary(os.Stdout, current)
	return nil
}
