// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package summary collects figure descriptions for every paper in the
// papers directory into a single summaries.json.
package summary

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

	"github.com/consclab/theory-engine/internal/analyze"
	"github.com/consclab/theory-engine/pkg/types"
)

// outputFile is the collected summaries filename inside the results directory.
const outputFile = "summaries.json"

// figurePrompt asks the model to describe figure 1 of the focused paper.
const figurePrompt = "You are an expert scientific summarizer. Read the attached paper via retrieval and explain figure 1 in detail, each part of it."

// vectorStoreName names the single shared store for the whole batch.
const vectorStoreName = "consciousness_papers_vs"

// Run uploads every PDF in cfg.PapersDir into one shared vector store, asks
// the model to describe figure 1 of each, and writes all records to
// summaries.json. A failing paper produces an error record and the batch
// continues. Returns the number of successful summaries.
func Run(ctx context.Context, backend analyze.Backend, cfg types.SummaryConfig, w io.Writer) (int, error) {
	pdfs, err := listPDFs(cfg.PapersDir)
	if err != nil {
		return 0, err
	}
	if len(pdfs) == 0 {
		fmt.Fprintf(w, "no PDFs found in %s\n", cfg.PapersDir)
		return 0, nil
	}

	if err := os.MkdirAll(cfg.ResultsDir, 0o755); err != nil {
		return 0, fmt.Errorf("creating results directory: %w", err)
	}

	// One vector store for all PDFs reduces overhead.
	vsID, err := backend.CreateVectorStore(ctx, vectorStoreName)
	if err != nil {
		return 0, err
	}
	slog.Info("vector store created", "id", vsID)

	var records []types.SummaryRecord
	succeeded := 0

	for _, pdfPath := range pdfs {
		name := filepath.Base(pdfPath)

		record, err := summarizeOne(ctx, backend, vsID, pdfPath, cfg.Model)
		if err != nil {
			slog.Error("summary failed", "pdf", name, "error", err)
			records = append(records, types.SummaryRecord{
				Filename: name,
				Error:    "exception",
				Detail:   err.Error(),
			})
			fmt.Fprintf(w, "failed   %s: %v\n", name, err)
			continue
		}

		records = append(records, record)
		succeeded++
		fmt.Fprintf(w, "summarized %s\n", name)
	}

	outPath := filepath.Join(cfg.ResultsDir, outputFile)
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return succeeded, fmt.Errorf("marshaling summaries: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return succeeded, fmt.Errorf("writing %s: %w", outPath, err)
	}

	slog.Info("summaries written", "count", len(records), "path", outPath)
	return succeeded, nil
}

// summarizeOne uploads a PDF, attaches it to the shared store, and requests
// the figure description.
func summarizeOne(ctx context.Context, backend analyze.Backend, vsID, pdfPath, model string) (types.SummaryRecord, error) {
	name := filepath.Base(pdfPath)

	info, err := os.Stat(pdfPath)
	if err != nil {
		return types.SummaryRecord{}, fmt.Errorf("stat %s: %w", name, err)
	}

	fileID, err := backend.UploadFile(ctx, pdfPath)
	if err != nil {
		return types.SummaryRecord{}, fmt.Errorf("uploading: %w", err)
	}
	if err := backend.AddFile(ctx, vsID, fileID); err != nil {
		return types.SummaryRecord{}, err
	}

	input := figurePrompt + "\n\nFocus only on: " + name
	text, err := backend.Respond(ctx, model, input, vsID)
	if err != nil {
		return types.SummaryRecord{}, fmt.Errorf("summarizing: %w", err)
	}

	return types.SummaryRecord{
		Filename:      name,
		FileID:        fileID,
		VectorStoreID: vsID,
		SizeMB:        float64(info.Size()) / (1024 * 1024),
		Summary:       text,
	}, nil
}

func listPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading papers directory %s: %w", dir, err)
	}

	var pdfs []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".pdf") {
			continue
		}
		pdfs = append(pdfs, filepath.Join(dir, e.Name()))
	}
	sort.Strings(pdfs)
	return pdfs, nil
}
