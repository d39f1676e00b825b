// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/consclab/theory-engine/internal/evidenceindex"
	"github.com/consclab/theory-engine/pkg/types"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the evidence search index (store, search)",
	Long: `Index maintains a local SQLite database of evidence items extracted
from analysis results, with FTS5 full-text indexing over mechanisms and
quotes. Use store to build or refresh the index and search to query it.`,
}

var indexStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Ingest analysis results into the evidence index",
	Long: `Store reads analysis JSON files from the results directory and indexes
their evidence items. Unchanged files are skipped on subsequent runs.`,
	RunE: runIndexStore,
}

var indexSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Query the evidence index with full-text search and filters",
	Long: `Search looks up evidence items using FTS5 full-text search, structured
filters (phenomenon, system type), or a combination of both. Results include
the source paper.`,
	RunE: runIndexSearch,
}

func init() {
	indexSearchCmd.Flags().String("phenomenon", "", "filter by phenomenon identifier")
	indexSearchCmd.Flags().String("system", "", "filter by system type: bio, ai, or other")
	indexSearchCmd.Flags().Int("limit", 0, "maximum number of results")
	indexSearchCmd.Flags().Bool("json", false, "emit results as JSON")

	indexCmd.AddCommand(indexStoreCmd)
	indexCmd.AddCommand(indexSearchCmd)
	rootCmd.AddCommand(indexCmd)
}

func indexConfig() types.IndexConfig {
	return types.IndexConfig{
		ResultsDir: viper.GetString("results_dir"),
		IndexDir:   viper.GetString("index.dir"),
		MaxResults: viper.GetInt("index.max_results"),
	}
}

func runIndexStore(cmd *cobra.Command, args []string) error {
	store, err := evidenceindex.NewStore(indexConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(cmd.Context(), os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d result file(s) failed indexing", summary.Failed)
	}
	return nil
}

func runIndexSearch(cmd *cobra.Command, args []string) error {
	phenomenon, _ := cmd.Flags().GetString("phenomenon")
	system, _ := cmd.Flags().GetString("system")
	limit, _ := cmd.Flags().GetInt("limit")

	opts := evidenceindex.QueryOptions{
		Query:      strings.Join(args, " "),
		Phenomenon: phenomenon,
		System:     types.SystemType(system),
		MaxResults: limit,
	}
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide search terms, --phenomenon, or --system")
	}

	store, err := evidenceindex.NewStore(indexConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := store.Query(cmd.Context(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatSearchOutput(results, jsonOutput)
}

func formatSearchOutput(results []evidenceindex.Result, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-26s  %-6s  %-50s  %s\n",
		"Rank", "Phenomenon", "System", "Content", "Paper")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))

	for i, r := range results {
		content := strings.ReplaceAll(r.Content, "\n", " ")
		if len(content) > 50 {
			content = content[:47] + "..."
		}
		paper := r.PaperTitle
		if paper == "" {
			paper = r.PaperFilename
		}
		if len(paper) > 24 {
			paper = paper[:21] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-26s  %-6s  %-50s  %s\n",
			i+1, r.PhenomenonID, r.SystemType, content, paper)
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}
