// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/consclab/theory-engine/pkg/types"
)

// ledgerFile is the dedupe ledger's filename inside the results directory.
const ledgerFile = "processed_papers.json"

// HashFile returns the SHA-256 hex digest of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// LoadLedger reads the processed-papers ledger from resultsDir. A missing
// ledger is not an error; it returns an empty log.
func LoadLedger(resultsDir string) (types.ProcessedPapersLog, error) {
	data, err := os.ReadFile(filepath.Join(resultsDir, ledgerFile))
	if err != nil {
		if os.IsNotExist(err) {
			return types.ProcessedPapersLog{}, nil
		}
		return nil, fmt.Errorf("reading ledger: %w", err)
	}

	var log types.ProcessedPapersLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("parsing ledger: %w", err)
	}
	return log, nil
}

// SaveLedger writes the ledger wholesale to resultsDir.
func SaveLedger(resultsDir string, log types.ProcessedPapersLog) error {
	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling ledger: %w", err)
	}
	if err := os.WriteFile(filepath.Join(resultsDir, ledgerFile), data, 0o644); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}
	return nil
}

// AlreadyProcessed reports whether the PDF named filename, with content hash
// hash, can be skipped: the ledger must hold a matching hash and the recorded
// output file must still exist in resultsDir. A changed hash or a deleted
// output invalidates the entry.
func AlreadyProcessed(log types.ProcessedPapersLog, resultsDir, filename, hash string) bool {
	entry, ok := log[filename]
	if !ok || entry.FileHash != hash {
		return false
	}
	_, err := os.Stat(filepath.Join(resultsDir, entry.OutputFile))
	return err == nil
}
