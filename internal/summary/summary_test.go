// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consclab/theory-engine/pkg/types"
)

// mockBackend describes figures and can fail the upload of selected files.
type mockBackend struct {
	failUploads map[string]bool
	stores      int
}

func (m *mockBackend) UploadFile(_ context.Context, path string) (string, error) {
	name := filepath.Base(path)
	if m.failUploads[name] {
		return "", fmt.Errorf("upload rejected")
	}
	return "file-" + name, nil
}

func (m *mockBackend) CreateVectorStore(_ context.Context, name string) (string, error) {
	m.stores++
	return "vs-" + name, nil
}

func (m *mockBackend) AddFile(_ context.Context, _, _ string) error { return nil }

func (m *mockBackend) Respond(_ context.Context, _, input, _ string) (string, error) {
	// Echo back the focus line so the test can verify per-file prompts.
	for _, line := range strings.Split(input, "\n") {
		if strings.HasPrefix(line, "Focus only on: ") {
			return "Figure 1 of " + strings.TrimPrefix(line, "Focus only on: "), nil
		}
	}
	return "Figure 1 description", nil
}

func testConfig(t *testing.T) types.SummaryConfig {
	t.Helper()
	root := t.TempDir()
	cfg := types.SummaryConfig{
		AIConfig:   types.AIConfig{Model: "gpt-5"},
		PapersDir:  filepath.Join(root, "papers"),
		ResultsDir: filepath.Join(root, "results"),
	}
	require.NoError(t, os.MkdirAll(cfg.PapersDir, 0o755))
	return cfg
}

func TestRunCollectsSummaries(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.PapersDir, "a.pdf"), []byte("%PDF a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.PapersDir, "b.pdf"), []byte("%PDF bb"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.PapersDir, "notes.txt"), []byte("not a pdf"), 0o644))

	backend := &mockBackend{}
	var out bytes.Buffer
	n, err := Run(context.Background(), backend, cfg, &out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, backend.stores, "one shared vector store for the batch")

	data, err := os.ReadFile(filepath.Join(cfg.ResultsDir, outputFile))
	require.NoError(t, err)
	var records []types.SummaryRecord
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 2)

	assert.Equal(t, "a.pdf", records[0].Filename)
	assert.Equal(t, "file-a.pdf", records[0].FileID)
	assert.Equal(t, "Figure 1 of a.pdf", records[0].Summary)
	assert.Greater(t, records[0].SizeMB, 0.0)
}

func TestRunRecordsFailures(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.PapersDir, "bad.pdf"), []byte("%PDF"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.PapersDir, "good.pdf"), []byte("%PDF"), 0o644))

	backend := &mockBackend{failUploads: map[string]bool{"bad.pdf": true}}
	var out bytes.Buffer
	n, err := Run(context.Background(), backend, cfg, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(filepath.Join(cfg.ResultsDir, outputFile))
	require.NoError(t, err)
	var records []types.SummaryRecord
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 2)

	assert.Equal(t, "exception", records[0].Error)
	assert.Contains(t, records[0].Detail, "upload rejected")
	assert.Empty(t, records[1].Error)
}

func TestRunEmptyDirectory(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	n, err := Run(context.Background(), &mockBackend{}, cfg, &out)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, out.String(), "no PDFs")
}
