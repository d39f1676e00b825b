// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analyze runs PDF papers through the model with retrieval access
// and persists the structured analysis results.
package analyze

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/consclab/theory-engine/pkg/types"
)

//go:embed theory_analysis.txt
var defaultPrompt string

// promptFile is the on-disk prompt that overrides the embedded default.
const promptFile = "theory_analysis.txt"

// Backend abstracts the OpenAI operations the analyzer uses so tests can
// supply a mock.
type Backend interface {
	UploadFile(ctx context.Context, path string) (string, error)
	CreateVectorStore(ctx context.Context, name string) (string, error)
	AddFile(ctx context.Context, vectorStoreID, fileID string) error
	Respond(ctx context.Context, model, input, vectorStoreID string) (string, error)
}

// Options controls a batch run.
type Options struct {
	// PDF names a single file inside PapersDir. Empty means every PDF.
	PDF string

	// Reprocess bypasses the dedupe ledger.
	Reprocess bool
}

// BatchSummary holds counts from a batch analysis run.
type BatchSummary struct {
	Analyzed int
	Skipped  int
	Failed   int
}

// Total returns the number of papers considered.
func (s BatchSummary) Total() int {
	return s.Analyzed + s.Skipped + s.Failed
}

// HasFailures reports whether any papers failed.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// Run analyzes PDFs from cfg.PapersDir and writes one result JSON per paper
// into cfg.ResultsDir. Papers already recorded in the ledger with an
// unchanged content hash and an existing output file are skipped unless
// opts.Reprocess is set. One paper failing does not abort the batch.
func Run(ctx context.Context, backend Backend, cfg types.AnalyzeConfig, opts Options, w io.Writer) (BatchSummary, error) {
	if err := os.MkdirAll(cfg.ResultsDir, 0o755); err != nil {
		return BatchSummary{}, fmt.Errorf("creating results directory: %w", err)
	}

	pdfs, err := listPDFs(cfg.PapersDir, opts.PDF)
	if err != nil {
		return BatchSummary{}, err
	}

	ledger, err := LoadLedger(cfg.ResultsDir)
	if err != nil {
		return BatchSummary{}, err
	}

	var summary BatchSummary
	for _, pdfPath := range pdfs {
		name := filepath.Base(pdfPath)

		hash, err := HashFile(pdfPath)
		if err != nil {
			fmt.Fprintf(w, "failed   %s: %v\n", name, err)
			summary.Failed++
			continue
		}

		if !opts.Reprocess && AlreadyProcessed(ledger, cfg.ResultsDir, name, hash) {
			fmt.Fprintf(w, "skipped  %s (unchanged)\n", name)
			summary.Skipped++
			continue
		}

		fmt.Fprintf(w, "analyzing %s\n", name)

		result, err := AnalyzePDF(ctx, backend, pdfPath, cfg)
		if err != nil {
			fmt.Fprintf(w, "failed   %s: %v\n", name, err)
			summary.Failed++
			continue
		}

		outName := outputFilename(name)
		if err := saveResult(filepath.Join(cfg.ResultsDir, outName), result); err != nil {
			fmt.Fprintf(w, "failed   %s: %v\n", name, err)
			summary.Failed++
			continue
		}

		ledger[name] = types.ProcessedEntry{
			FileHash:    hash,
			ProcessedAt: result.Metadata.AnalysisTimestamp,
			OutputFile:  outName,
			PaperTitle:  result.PaperMetadata.Title,
		}
		if err := SaveLedger(cfg.ResultsDir, ledger); err != nil {
			return summary, err
		}

		if result.IsStub() {
			fmt.Fprintf(w, "analyzed %s (unparseable response saved as stub)\n", name)
		} else {
			fmt.Fprintf(w, "analyzed %s (%d evidence items)\n", name, len(result.Evidence))
		}
		summary.Analyzed++
	}

	return summary, nil
}

// AnalyzePDF uploads one PDF, indexes it in a fresh vector store, and asks
// the model for a structured analysis. A response that is not valid JSON is
// returned as an error stub result rather than an error, so the batch can
// continue and the raw text is preserved for inspection.
func AnalyzePDF(ctx context.Context, backend Backend, pdfPath string, cfg types.AnalyzeConfig) (*types.AnalysisResult, error) {
	name := filepath.Base(pdfPath)

	prompt, err := loadPrompt(cfg.PromptsDir)
	if err != nil {
		return nil, err
	}

	fileID, err := backend.UploadFile(ctx, pdfPath)
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", name, err)
	}

	vsID, err := backend.CreateVectorStore(ctx, vectorStoreName(name))
	if err != nil {
		return nil, err
	}
	if err := backend.AddFile(ctx, vsID, fileID); err != nil {
		return nil, err
	}

	input := prompt + "\n\nFocus only on: " + name
	slog.Info("requesting analysis", "pdf", name, "model", cfg.Model, "vector_store", vsID)

	text, err := backend.Respond(ctx, cfg.Model, input, vsID)
	if err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", name, err)
	}

	result := parseResponse(text)
	result.Metadata = types.AnalysisMetadata{
		AnalysisTimestamp:    time.Now().Format(time.RFC3339),
		ModelUsed:            cfg.Model,
		SourcePDF:            name,
		FileID:               fileID,
		VectorStoreID:        vsID,
		PromptTokensEstimate: len(strings.Fields(input)),
	}
	return result, nil
}

// parseResponse decodes the model's JSON text. Malformed output becomes an
// {error, raw_response} stub.
func parseResponse(text string) *types.AnalysisResult {
	var result types.AnalysisResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		slog.Error("model returned unparseable JSON", "error", err)
		return &types.AnalysisResult{
			Error:       fmt.Sprintf("response was not valid JSON: %v", err),
			RawResponse: text,
		}
	}
	return &result
}

// loadPrompt returns promptsDir/theory_analysis.txt when present, otherwise
// the embedded default.
func loadPrompt(promptsDir string) (string, error) {
	if promptsDir == "" {
		return defaultPrompt, nil
	}
	data, err := os.ReadFile(filepath.Join(promptsDir, promptFile))
	if err != nil {
		if os.IsNotExist(err) {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("reading prompt: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// listPDFs returns the PDFs to process, sorted by name. When single is
// non-empty only that file is returned; it must exist.
func listPDFs(papersDir, single string) ([]string, error) {
	if single != "" {
		path := filepath.Join(papersDir, single)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("pdf %s: %w", single, err)
		}
		return []string{path}, nil
	}

	entries, err := os.ReadDir(papersDir)
	if err != nil {
		return nil, fmt.Errorf("reading papers directory %s: %w", papersDir, err)
	}

	var pdfs []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".pdf") {
			continue
		}
		pdfs = append(pdfs, filepath.Join(papersDir, e.Name()))
	}
	sort.Strings(pdfs)
	return pdfs, nil
}

// outputFilename builds analysis_<timestamp>_<slug>.json from a PDF name.
// The slug keeps only alphanumerics, hyphens, and underscores, capped at 30
// characters.
func outputFilename(pdfName string) string {
	ts := time.Now().Format("20060102_150405")
	base := strings.TrimSuffix(pdfName, filepath.Ext(pdfName))

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	slug := b.String()
	if slug == "" {
		slug = "unknown"
	}
	if len(slug) > 30 {
		slug = slug[:30]
	}
	return fmt.Sprintf("analysis_%s_%s.json", ts, slug)
}

// vectorStoreName derives a store name from the PDF filename.
func vectorStoreName(pdfName string) string {
	return "analysis_" + strings.TrimSuffix(pdfName, filepath.Ext(pdfName))
}

// saveResult writes the analysis result as indented JSON.
func saveResult(path string, result *types.AnalysisResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// WriteDigest prints a human-readable summary of one analysis result.
func WriteDigest(w io.Writer, r *types.AnalysisResult) {
	line := strings.Repeat("=", 60)
	fmt.Fprintf(w, "\n%s\nANALYSIS SUMMARY\n%s\n", line, line)

	fmt.Fprintf(w, "\nPaper: %s\n", orNA(r.PaperMetadata.Title))
	fmt.Fprintf(w, "Link:  %s\n", orNA(r.PaperMetadata.Link))

	if r.IsStub() {
		fmt.Fprintf(w, "\nAnalysis failed to parse: %s\n", r.Error)
		fmt.Fprintf(w, "%s\n", line)
		return
	}

	fmt.Fprintf(w, "\nTheory synthesis:\n  %s\n", orNA(r.TheorySynthesis))

	claims := make([]string, len(r.SupportedClaims))
	for i, c := range r.SupportedClaims {
		claims[i] = fmt.Sprintf("%d", c)
	}
	fmt.Fprintf(w, "\nSupported claims (%d): %s\n", len(r.SupportedClaims), strings.Join(claims, ", "))

	fmt.Fprintf(w, "\nEvidence items: %d\n", len(r.Evidence))
	for _, item := range r.Evidence {
		fmt.Fprintf(w, "  [%s/%s] %s (%d quotes)\n",
			item.PhenomenonID, item.SystemType, item.Strength, len(item.TextRefs))
	}

	if len(r.Insights) > 0 {
		fmt.Fprintf(w, "\nAdditional insights: %d\n", len(r.Insights))
	}
	fmt.Fprintf(w, "\n%s\n", line)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
