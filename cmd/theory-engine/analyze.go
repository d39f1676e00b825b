// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/consclab/theory-engine/internal/analyze"
	"github.com/consclab/theory-engine/internal/viewer"
	"github.com/consclab/theory-engine/pkg/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze consciousness papers and extract structured evidence",
	Long: `Analyze uploads each PDF in the papers directory to the OpenAI API,
runs the theory analysis prompt against it via file search, and writes one
JSON result per paper. Papers already processed with unchanged content are
skipped; --reprocess forces a fresh run.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("model", "", "AI model identifier (gpt-5, gpt-5-mini, gpt-5-nano)")
	analyzeCmd.Flags().String("pdf", "", "analyze a single named PDF instead of the whole directory")
	analyzeCmd.Flags().Bool("reprocess", false, "reanalyze papers even when already processed")
	analyzeCmd.Flags().Bool("summary", false, "print a human-readable digest of each result")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ai, err := aiConfig(cmd)
	if err != nil {
		return err
	}

	backend, err := newBackend()
	if err != nil {
		return err
	}

	cfg := types.AnalyzeConfig{
		AIConfig:   ai,
		PapersDir:  viper.GetString("papers_dir"),
		PromptsDir: viper.GetString("prompts_dir"),
		ResultsDir: viper.GetString("results_dir"),
	}

	pdf, _ := cmd.Flags().GetString("pdf")
	reprocess, _ := cmd.Flags().GetBool("reprocess")
	withDigest, _ := cmd.Flags().GetBool("summary")

	summary, err := analyze.Run(cmd.Context(), backend, cfg, analyze.Options{
		PDF:       pdf,
		Reprocess: reprocess,
	}, os.Stdout)
	if err != nil {
		return err
	}

	if withDigest {
		for _, r := range viewer.LoadResults(cfg.ResultsDir) {
			analyze.WriteDigest(os.Stdout, r)
		}
	}

	if summary.HasFailures() {
		return fmt.Errorf("%d paper(s) failed analysis", summary.Failed)
	}
	return nil
}
