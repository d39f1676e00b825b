// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evidenceindex persists extracted evidence items in SQLite and
// builds a full-text retrieval index over them.
package evidenceindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/consclab/theory-engine/pkg/types"
)

const dbFile = "evidence.db"

// Store manages the evidence index SQLite database.
type Store struct {
	db         *sql.DB
	resultsDir string
	maxResults int
}

// NewStore opens or creates the evidence index at cfg.IndexDir/evidence.db,
// creating the schema when absent.
func NewStore(cfg types.IndexConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.IndexDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(cfg.IndexDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:         db,
		resultsDir: cfg.ResultsDir,
		maxResults: maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			filename TEXT PRIMARY KEY,
			title TEXT,
			authors TEXT,
			year INTEGER,
			domain TEXT,
			doi_or_arxiv TEXT,
			link TEXT,
			analysis_timestamp TEXT,
			model_used TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS evidence (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			paper_filename TEXT NOT NULL REFERENCES papers(filename),
			phenomenon_id TEXT,
			system_type TEXT,
			species_or_model TEXT,
			method TEXT,
			state TEXT,
			strength TEXT,
			content TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_evidence_paper ON evidence(paper_filename)`,
		`CREATE INDEX IF NOT EXISTS idx_evidence_phenomenon ON evidence(phenomenon_id)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			paper_filename TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='evidence_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE evidence_fts USING fts5(content, content=evidence, content_rowid=rowid)`,
			`CREATE TRIGGER evidence_ai AFTER INSERT ON evidence BEGIN
				INSERT INTO evidence_fts(rowid, content) VALUES (new.rowid, new.content);
			END`,
			`CREATE TRIGGER evidence_ad AFTER DELETE ON evidence BEGIN
				INSERT INTO evidence_fts(evidence_fts, rowid, content) VALUES('delete', old.rowid, old.content);
			END`,
			`CREATE TRIGGER evidence_au AFTER UPDATE ON evidence BEGIN
				INSERT INTO evidence_fts(evidence_fts, rowid, content) VALUES('delete', old.rowid, old.content);
				INSERT INTO evidence_fts(rowid, content) VALUES (new.rowid, new.content);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// IngestSummary holds counts from an index build run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of result files processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// skipFiles are JSON files in the results directory that are not analysis
// results.
var skipFiles = map[string]bool{
	"processed_papers.json": true,
	"summaries.json":        true,
}

// Ingest reads analysis result files from the results directory and
// populates the index. Files unchanged since the last run are skipped by
// modification-time comparison; error stubs are skipped outright.
func (s *Store) Ingest(ctx context.Context, w io.Writer) (IngestSummary, error) {
	entries, err := os.ReadDir(s.resultsDir)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("reading results directory %s: %w", s.resultsDir, err)
	}

	var summary IngestSummary

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || skipFiles[name] {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		var storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM indexing_status WHERE paper_filename = ?`, name,
		).Scan(&storedModTime)

		if err == nil && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", name)
			summary.Skipped++
			continue
		}

		isUpdate := err == nil

		data, err := os.ReadFile(filepath.Join(s.resultsDir, name))
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}

		var result types.AnalysisResult
		if err := json.Unmarshal(data, &result); err != nil {
			fmt.Fprintf(w, "failed  %s: parse error: %v\n", name, err)
			summary.Failed++
			continue
		}

		if result.IsStub() {
			fmt.Fprintf(w, "skipped %s (error stub)\n", name)
			summary.Skipped++
			continue
		}

		if err := s.ingestResult(ctx, name, &result, modTime, isUpdate); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d items)\n", name, len(result.Evidence))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s (%d items)\n", name, len(result.Evidence))
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	return summary, nil
}

func (s *Store) ingestResult(ctx context.Context, filename string, result *types.AnalysisResult, modTime string, isUpdate bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if isUpdate {
		if _, err := tx.ExecContext(ctx, `DELETE FROM evidence WHERE paper_filename = ?`, filename); err != nil {
			return fmt.Errorf("deleting old evidence: %w", err)
		}
	}

	authorsJSON, _ := json.Marshal(result.PaperMetadata.Authors)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO papers (filename, title, authors, year, domain, doi_or_arxiv, link, analysis_timestamp, model_used)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(filename) DO UPDATE SET
			title=excluded.title, authors=excluded.authors, year=excluded.year,
			domain=excluded.domain, doi_or_arxiv=excluded.doi_or_arxiv,
			link=excluded.link, analysis_timestamp=excluded.analysis_timestamp,
			model_used=excluded.model_used`,
		filename, result.PaperMetadata.Title, string(authorsJSON), result.PaperMetadata.Year,
		result.PaperMetadata.Domain, result.PaperMetadata.DOIOrArxiv, result.PaperMetadata.Link,
		result.Metadata.AnalysisTimestamp, result.Metadata.ModelUsed,
	)
	if err != nil {
		return fmt.Errorf("upserting paper: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO evidence (paper_filename, phenomenon_id, system_type, species_or_model, method, state, strength, content)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, item := range result.Evidence {
		_, err := stmt.ExecContext(ctx,
			filename, item.PhenomenonID, string(item.SystemType),
			item.SpeciesOrModel, item.Method, item.State, item.Strength,
			searchText(item),
		)
		if err != nil {
			return fmt.Errorf("inserting evidence: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO indexing_status (paper_filename, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(paper_filename) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		filename, modTime,
	)
	if err != nil {
		return fmt.Errorf("updating indexing status: %w", err)
	}

	return tx.Commit()
}

// searchText joins an item's free-text fields into the indexed document.
func searchText(item types.EvidenceItem) string {
	var b strings.Builder
	b.WriteString(item.BriefMechanism)
	for _, ref := range item.TextRefs {
		b.WriteString("\n")
		b.WriteString(ref.Quote)
		if ref.Interpretation != "" {
			b.WriteString("\n")
			b.WriteString(ref.Interpretation)
		}
	}
	if item.Limitations != "" {
		b.WriteString("\n")
		b.WriteString(item.Limitations)
	}
	return strings.TrimSpace(b.String())
}
