// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/consclab/theory-engine/internal/phenomena"
	"github.com/consclab/theory-engine/internal/viewer"
	"github.com/consclab/theory-engine/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis results dashboard",
	Long: `Serve runs a local web server over the analysis results directory:
an HTML dashboard with phenomenon and system-type filtering, plus JSON
endpoints under /api/. Results are re-read from disk on every request, so
the dashboard always reflects the latest analyses.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :5009)")
	serveCmd.Flags().String("catalog", "", "phenomena catalog YAML (default: embedded)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = viper.GetString("serve.addr")
	}
	catalogPath, _ := cmd.Flags().GetString("catalog")
	if catalogPath == "" {
		catalogPath = viper.GetString("serve.catalog")
	}

	catalog, err := phenomena.Load(catalogPath)
	if err != nil {
		return err
	}

	srv, err := viewer.New(types.ViewerConfig{
		Addr:        addr,
		ResultsDir:  viper.GetString("results_dir"),
		CatalogPath: catalogPath,
	}, catalog)
	if err != nil {
		return err
	}

	return srv.ListenAndServe()
}
