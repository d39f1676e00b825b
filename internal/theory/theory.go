// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package theory maintains the cumulative theory document, folding one new
// analysis at a time into the running synthesis.
package theory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/consclab/theory-engine/internal/openai"
	"github.com/consclab/theory-engine/pkg/types"
)

const currentTheoryFile = "current_theory.json"

// Backend abstracts the JSON-mode chat call so tests can supply a mock.
// *openai.Client satisfies it.
type Backend interface {
	ChatJSON(ctx context.Context, model, system, user string) (openai.ChatResult, error)
}

// Options controls a theory update run.
type Options struct {
	// AnalysisFile names a specific result file to fold in. Empty selects
	// the newest analysis not yet incorporated.
	AnalysisFile string
}

// LoadCurrent reads the current theory. A missing file returns (nil, nil):
// no theory has been developed yet.
func LoadCurrent(theoryDir string) (*types.CumulativeTheory, error) {
	data, err := os.ReadFile(filepath.Join(theoryDir, currentTheoryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading current theory: %w", err)
	}

	var t types.CumulativeTheory
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing current theory: %w", err)
	}
	return &t, nil
}

// Save overwrites the current theory file in place and writes a timestamped
// backup copy alongside it.
func Save(theoryDir string, t *types.CumulativeTheory) error {
	if err := os.MkdirAll(theoryDir, 0o755); err != nil {
		return fmt.Errorf("creating theory directory: %w", err)
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling theory: %w", err)
	}

	current := filepath.Join(theoryDir, currentTheoryFile)
	if err := os.WriteFile(current, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", current, err)
	}

	backup := filepath.Join(theoryDir, fmt.Sprintf("theory_backup_%s.json", time.Now().Format("20060102_150405")))
	if err := os.WriteFile(backup, data, 0o644); err != nil {
		return fmt.Errorf("writing backup %s: %w", backup, err)
	}

	slog.Info("theory saved", "current", current, "backup", backup)
	return nil
}

// LoadAnalyses reads every analysis_*.json in resultsDir, newest first by
// analysis timestamp (results without a timestamp sort last). Malformed
// files are logged and skipped; they never abort the load.
func LoadAnalyses(resultsDir string) ([]*types.AnalysisResult, error) {
	paths, err := filepath.Glob(filepath.Join(resultsDir, "analysis_*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	sort.Strings(paths)

	var analyses []*types.AnalysisResult
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Error("skipping unreadable analysis", "file", filepath.Base(path), "error", err)
			continue
		}

		var a types.AnalysisResult
		if err := json.Unmarshal(data, &a); err != nil {
			slog.Error("skipping malformed analysis", "file", filepath.Base(path), "error", err)
			continue
		}
		a.Filename = filepath.Base(path)
		analyses = append(analyses, &a)
	}

	sort.SliceStable(analyses, func(i, j int) bool {
		ti, tj := analyses[i].Metadata.AnalysisTimestamp, analyses[j].Metadata.AnalysisTimestamp
		if (ti == "") != (tj == "") {
			return tj == ""
		}
		return ti > tj
	})
	return analyses, nil
}

// FindLatest returns the newest analysis not yet incorporated into current,
// or nil when everything has been folded in. current may be nil.
func FindLatest(analyses []*types.AnalysisResult, current *types.CumulativeTheory) *types.AnalysisResult {
	for _, a := range analyses {
		if current == nil || !current.Incorporated(a.Filename) {
			return a
		}
	}
	return nil
}

// Update folds one analysis into the cumulative theory: it builds the update
// prompt from the current theory, all prior summaries, and the new analysis,
// calls the model, and persists the revised theory with a backup. Any network
// or parse failure aborts the run with nothing written.
//
// When every analysis is already incorporated, Update returns the current
// theory unchanged with updated == false.
func Update(ctx context.Context, backend Backend, cfg types.TheoryConfig, opts Options, w io.Writer) (result *types.CumulativeTheory, updated bool, err error) {
	current, err := LoadCurrent(cfg.TheoryDir)
	if err != nil {
		return nil, false, err
	}

	analyses, err := LoadAnalyses(cfg.ResultsDir)
	if err != nil {
		return nil, false, err
	}
	if len(analyses) == 0 {
		return nil, false, fmt.Errorf("no analyses found in %s", cfg.ResultsDir)
	}

	var newest *types.AnalysisResult
	if opts.AnalysisFile != "" {
		for _, a := range analyses {
			if a.Filename == opts.AnalysisFile {
				newest = a
				break
			}
		}
		if newest == nil {
			return nil, false, fmt.Errorf("analysis file %s not found", opts.AnalysisFile)
		}
	} else {
		newest = FindLatest(analyses, current)
		if newest == nil {
			fmt.Fprintln(w, "all analyses already incorporated into the theory")
			return current, false, nil
		}
	}

	fmt.Fprintf(w, "incorporating %s\n", newest.Filename)

	prompt, err := buildPrompt(current, analyses, newest)
	if err != nil {
		return nil, false, err
	}

	chat, err := backend.ChatJSON(ctx, cfg.Model, systemPrompt, prompt)
	if err != nil {
		return nil, false, fmt.Errorf("theory update call: %w", err)
	}

	var revised types.CumulativeTheory
	if err := json.Unmarshal([]byte(chat.Content), &revised); err != nil {
		return nil, false, fmt.Errorf("parsing revised theory: %w", err)
	}

	revised.Metadata = types.TheoryMetadata{
		UpdateTimestamp:    time.Now().Format(time.RFC3339),
		ModelUsed:          cfg.Model,
		PapersIncorporated: len(analyses),
		LatestPaper:        orUnknown(newest.PaperMetadata.Title),
	}

	if current != nil {
		revised.IncorporatedAnalyses = append([]string(nil), current.IncorporatedAnalyses...)
	}
	revised.IncorporatedAnalyses = append(revised.IncorporatedAnalyses, newest.Filename)

	if err := Save(cfg.TheoryDir, &revised); err != nil {
		return nil, false, err
	}
	return &revised, true, nil
}

// WriteSummary prints a human-readable view of the theory.
func WriteSummary(w io.Writer, t *types.CumulativeTheory) {
	line := strings.Repeat("=", 60)
	fmt.Fprintf(w, "\n%s\nCUMULATIVE CONSCIOUSNESS THEORY\n%s\n", line, line)

	fmt.Fprintf(w, "\nSynthesis:\n%s\n", orUnknown(t.Synthesis))

	fmt.Fprintf(w, "\nCore principles:\n")
	for i, p := range t.Theory.CorePrinciples {
		fmt.Fprintf(w, "  %d. %s\n", i+1, p)
	}

	if t.ChangesFromPrevious.Any() {
		fmt.Fprintf(w, "\nRecent changes:\n")
		writeChange(w, "Additions", t.ChangesFromPrevious.Additions)
		writeChange(w, "Modifications", t.ChangesFromPrevious.Modifications)
		writeChange(w, "Rejections", t.ChangesFromPrevious.Rejections)
		writeChange(w, "Strengthened", t.ChangesFromPrevious.Strengthened)
		writeChange(w, "Weakened", t.ChangesFromPrevious.Weakened)
	}

	fmt.Fprintf(w, "\nNext research priorities:\n")
	for i, p := range t.NextResearchPriorities {
		if i == 3 {
			break
		}
		fmt.Fprintf(w, "  %d. %s\n", i+1, p)
	}

	fmt.Fprintf(w, "\n%s\n", line)
}

func writeChange(w io.Writer, label string, items []string) {
	if len(items) > 0 {
		fmt.Fprintf(w, "  %s: %d items\n", label, len(items))
	}
}
