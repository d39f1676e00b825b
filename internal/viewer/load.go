// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package viewer

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/consclab/theory-engine/pkg/types"
)

// skipFiles are JSON files in the results directory that are not analysis
// results.
var skipFiles = map[string]bool{
	"processed_papers.json": true,
	"summaries.json":        true,
}

// LoadResults reads every analysis JSON in resultsDir, newest first by
// analysis timestamp (results without a timestamp sort last). Malformed
// files are logged and skipped so one bad file never empties the dashboard.
// A missing directory returns an empty slice.
func LoadResults(resultsDir string) []*types.AnalysisResult {
	entries, err := os.ReadDir(resultsDir)
	if err != nil {
		slog.Error("results directory unreadable", "dir", resultsDir, "error", err)
		return nil
	}

	var papers []*types.AnalysisResult
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || skipFiles[name] {
			continue
		}

		data, err := os.ReadFile(filepath.Join(resultsDir, name))
		if err != nil {
			slog.Error("skipping unreadable result", "file", name, "error", err)
			continue
		}

		var a types.AnalysisResult
		if err := json.Unmarshal(data, &a); err != nil {
			slog.Error("skipping malformed result", "file", name, "error", err)
			continue
		}
		a.Filename = name
		papers = append(papers, &a)
	}

	sort.SliceStable(papers, func(i, j int) bool {
		ti, tj := papers[i].Metadata.AnalysisTimestamp, papers[j].Metadata.AnalysisTimestamp
		if (ti == "") != (tj == "") {
			return tj == ""
		}
		return ti > tj
	})
	return papers
}

// Stats aggregates counts across all loaded papers.
type Stats struct {
	TotalPapers      int            `json:"total_papers"`
	TotalEvidence    int            `json:"total_evidence"`
	PhenomenonCounts map[string]int `json:"phenomenon_counts"`
	PhenomenaCount   int            `json:"phenomena_count"`
	UniqueSystems    int            `json:"unique_systems"`
}

// ComputeStats tallies evidence items across papers: total count, per
// phenomenon counts, the number of phenomena with any evidence, and the
// number of distinct system types seen.
func ComputeStats(papers []*types.AnalysisResult) Stats {
	stats := Stats{
		TotalPapers:      len(papers),
		PhenomenonCounts: map[string]int{},
	}

	systems := map[types.SystemType]bool{}
	for _, p := range papers {
		stats.TotalEvidence += len(p.Evidence)
		for _, item := range p.Evidence {
			if item.PhenomenonID != "" {
				stats.PhenomenonCounts[item.PhenomenonID]++
			}
			if item.SystemType != "" {
				systems[item.SystemType] = true
			}
		}
	}

	stats.PhenomenaCount = len(stats.PhenomenonCounts)
	stats.UniqueSystems = len(systems)
	return stats
}

// ClaimCounts tallies how many papers support each claim number.
func ClaimCounts(papers []*types.AnalysisResult) map[int]int {
	counts := map[int]int{}
	for _, p := range papers {
		for _, claim := range p.SupportedClaims {
			counts[claim]++
		}
	}
	return counts
}
