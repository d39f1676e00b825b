// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/consclab/theory-engine/internal/summary"
	"github.com/consclab/theory-engine/pkg/types"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Generate figure-1 summaries for every paper",
	Long: `Summarize uploads each PDF into a shared vector store and asks the
model to explain the paper's first figure. All summaries, including per-paper
failures, are written to summaries.json in the results directory.`,
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().String("model", "", "AI model identifier (gpt-5, gpt-5-mini, gpt-5-nano)")

	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, args []string) error {
	ai, err := aiConfig(cmd)
	if err != nil {
		return err
	}

	backend, err := newBackend()
	if err != nil {
		return err
	}

	cfg := types.SummaryConfig{
		AIConfig:   ai,
		PapersDir:  viper.GetString("papers_dir"),
		ResultsDir: viper.GetString("results_dir"),
	}

	_, err = summary.Run(cmd.Context(), backend, cfg, os.Stdout)
	return err
}
