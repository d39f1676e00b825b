// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consclab/theory-engine/pkg/types"
)

// mockBackend returns a canned response text and records calls.
type mockBackend struct {
	response  string
	uploadErr error
	calls     int
}

func (m *mockBackend) UploadFile(_ context.Context, path string) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	return "file-" + filepath.Base(path), nil
}

func (m *mockBackend) CreateVectorStore(_ context.Context, name string) (string, error) {
	return "vs-" + name, nil
}

func (m *mockBackend) AddFile(_ context.Context, _, _ string) error {
	return nil
}

func (m *mockBackend) Respond(_ context.Context, _, _, _ string) (string, error) {
	m.calls++
	return m.response, nil
}

const validResponse = `{
	"paper_metadata": {"title": "Gamma Coherence in Anesthesia", "authors": ["Doe"], "year": 2024},
	"theory_synthesis": "Coherence tracks conscious state.",
	"supported_claims": [3, 17],
	"evidence": [
		{"phenomenon_id": "temporal_coordination", "system_type": "bio", "strength": "strong",
		 "text_refs": [{"quote": "Gamma coherence collapsed under propofol.", "page": 4}]}
	]
}`

func testSetup(t *testing.T, response string) (types.AnalyzeConfig, *mockBackend) {
	t.Helper()
	root := t.TempDir()
	cfg := types.AnalyzeConfig{
		AIConfig:   types.AIConfig{Model: "gpt-5-mini", MaxRetries: 3},
		PapersDir:  filepath.Join(root, "papers"),
		ResultsDir: filepath.Join(root, "results"),
	}
	require.NoError(t, os.MkdirAll(cfg.PapersDir, 0o755))
	return cfg, &mockBackend{response: response}
}

func writePDF(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRunAnalyzesAndRecordsLedger(t *testing.T) {
	cfg, backend := testSetup(t, validResponse)
	writePDF(t, cfg.PapersDir, "gamma.pdf", "%PDF gamma v1")

	var out bytes.Buffer
	summary, err := Run(context.Background(), backend, cfg, Options{}, &out)
	require.NoError(t, err)
	assert.Equal(t, BatchSummary{Analyzed: 1}, summary)

	ledger, err := LoadLedger(cfg.ResultsDir)
	require.NoError(t, err)
	entry, ok := ledger["gamma.pdf"]
	require.True(t, ok)
	assert.Equal(t, "Gamma Coherence in Anesthesia", entry.PaperTitle)
	assert.NotEmpty(t, entry.FileHash)

	data, err := os.ReadFile(filepath.Join(cfg.ResultsDir, entry.OutputFile))
	require.NoError(t, err)
	var result types.AnalysisResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Len(t, result.Evidence, 1)
	assert.Equal(t, "gpt-5-mini", result.Metadata.ModelUsed)
	assert.Equal(t, "gamma.pdf", result.Metadata.SourcePDF)
}

func TestRunSkipsUnchangedPDF(t *testing.T) {
	cfg, backend := testSetup(t, validResponse)
	writePDF(t, cfg.PapersDir, "gamma.pdf", "%PDF gamma v1")

	_, err := Run(context.Background(), backend, cfg, Options{}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.calls)

	summary, err := Run(context.Background(), backend, cfg, Options{}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, BatchSummary{Skipped: 1}, summary)
	assert.Equal(t, 1, backend.calls, "unchanged PDF must not be re-analyzed")
}

func TestRunChangedBytesInvalidateSkip(t *testing.T) {
	cfg, backend := testSetup(t, validResponse)
	writePDF(t, cfg.PapersDir, "gamma.pdf", "%PDF gamma v1")

	_, err := Run(context.Background(), backend, cfg, Options{}, io.Discard)
	require.NoError(t, err)

	writePDF(t, cfg.PapersDir, "gamma.pdf", "%PDF gamma v2 revised")

	summary, err := Run(context.Background(), backend, cfg, Options{}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, BatchSummary{Analyzed: 1}, summary)
	assert.Equal(t, 2, backend.calls)
}

func TestRunMissingOutputInvalidatesSkip(t *testing.T) {
	cfg, backend := testSetup(t, validResponse)
	writePDF(t, cfg.PapersDir, "gamma.pdf", "%PDF gamma v1")

	_, err := Run(context.Background(), backend, cfg, Options{}, io.Discard)
	require.NoError(t, err)

	ledger, err := LoadLedger(cfg.ResultsDir)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(cfg.ResultsDir, ledger["gamma.pdf"].OutputFile)))

	summary, err := Run(context.Background(), backend, cfg, Options{}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, BatchSummary{Analyzed: 1}, summary)
}

func TestRunReprocessBypassesLedger(t *testing.T) {
	cfg, backend := testSetup(t, validResponse)
	writePDF(t, cfg.PapersDir, "gamma.pdf", "%PDF gamma v1")

	_, err := Run(context.Background(), backend, cfg, Options{}, io.Discard)
	require.NoError(t, err)

	summary, err := Run(context.Background(), backend, cfg, Options{Reprocess: true}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, BatchSummary{Analyzed: 1}, summary)
	assert.Equal(t, 2, backend.calls)
}

func TestRunUnparseableResponseBecomesStub(t *testing.T) {
	cfg, backend := testSetup(t, "Sorry, I cannot produce JSON today.")
	writePDF(t, cfg.PapersDir, "odd.pdf", "%PDF odd")

	var out bytes.Buffer
	summary, err := Run(context.Background(), backend, cfg, Options{}, &out)
	require.NoError(t, err)
	assert.Equal(t, BatchSummary{Analyzed: 1}, summary)
	assert.Contains(t, out.String(), "stub")

	ledger, err := LoadLedger(cfg.ResultsDir)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(cfg.ResultsDir, ledger["odd.pdf"].OutputFile))
	require.NoError(t, err)

	var result types.AnalysisResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.True(t, result.IsStub())
	assert.Equal(t, "Sorry, I cannot produce JSON today.", result.RawResponse)
}

func TestRunBatchContinuesPastFailure(t *testing.T) {
	cfg, backend := testSetup(t, validResponse)
	writePDF(t, cfg.PapersDir, "a.pdf", "%PDF a")
	writePDF(t, cfg.PapersDir, "b.pdf", "%PDF b")

	backend.uploadErr = fmt.Errorf("upload quota exceeded")

	var out bytes.Buffer
	summary, err := Run(context.Background(), backend, cfg, Options{}, &out)
	require.NoError(t, err)
	assert.Equal(t, BatchSummary{Failed: 2}, summary)
	assert.True(t, summary.HasFailures())
	assert.Equal(t, 2, summary.Total())
}

func TestRunNamedPDFMissingIsError(t *testing.T) {
	cfg, backend := testSetup(t, validResponse)

	_, err := Run(context.Background(), backend, cfg, Options{PDF: "absent.pdf"}, io.Discard)
	require.Error(t, err)
}

func TestOutputFilename(t *testing.T) {
	name := outputFilename("A Paper: on Minds (final).pdf")
	assert.True(t, strings.HasPrefix(name, "analysis_"))
	assert.True(t, strings.HasSuffix(name, ".json"))
	assert.NotContains(t, name, ":")
	assert.NotContains(t, name, "(")
	assert.NotContains(t, name, " ")

	long := outputFilename(strings.Repeat("x", 80) + ".pdf")
	base := strings.TrimSuffix(strings.TrimPrefix(long, "analysis_"), ".json")
	parts := strings.SplitN(base, "_", 3)
	require.Len(t, parts, 3)
	assert.LessOrEqual(t, len(parts[2]), 30)
}

func TestLoadPromptFallsBackToEmbedded(t *testing.T) {
	prompt, err := loadPrompt(t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, prompt, "phenomenon_id")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, promptFile), []byte("custom prompt\n"), 0o644))
	prompt, err = loadPrompt(dir)
	require.NoError(t, err)
	assert.Equal(t, "custom prompt", prompt)
}

func TestWriteDigest(t *testing.T) {
	var r types.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(validResponse), &r))

	var out bytes.Buffer
	WriteDigest(&out, &r)
	assert.Contains(t, out.String(), "Gamma Coherence in Anesthesia")
	assert.Contains(t, out.String(), "temporal_coordination")
}
