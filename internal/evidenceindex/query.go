// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidenceindex

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/consclab/theory-engine/pkg/types"
)

// QueryOptions holds parameters for evidence index queries.
type QueryOptions struct {
	// Query is the FTS5 full-text search string.
	Query string

	// Phenomenon filters by phenomenon identifier.
	Phenomenon string

	// System filters by system type (bio, ai, other).
	System types.SystemType

	// MaxResults limits result count. Zero uses store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.Phenomenon == "" && q.System == ""
}

// Result is one evidence row joined with its paper metadata.
type Result struct {
	PaperFilename  string           `json:"paper_filename"`
	PaperTitle     string           `json:"paper_title"`
	PhenomenonID   string           `json:"phenomenon_id"`
	SystemType     types.SystemType `json:"system_type"`
	SpeciesOrModel string           `json:"species_or_model,omitempty"`
	Method         string           `json:"method,omitempty"`
	State          string           `json:"state,omitempty"`
	Strength       string           `json:"strength,omitempty"`
	Content        string           `json:"content"`
}

// Query searches the index with optional full-text matching and structured
// filters. Full-text queries rank by relevance; structured-only queries
// sort by paper and phenomenon.
func (s *Store) Query(ctx context.Context, opts QueryOptions) ([]Result, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(
			`SELECT e.paper_filename, p.title, e.phenomenon_id, e.system_type,
				e.species_or_model, e.method, e.state, e.strength, e.content
			FROM evidence_fts
			JOIN evidence e ON e.rowid = evidence_fts.rowid
			LEFT JOIN papers p ON e.paper_filename = p.filename
			WHERE evidence_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(
			`SELECT e.paper_filename, p.title, e.phenomenon_id, e.system_type,
				e.species_or_model, e.method, e.state, e.strength, e.content
			FROM evidence e
			LEFT JOIN papers p ON e.paper_filename = p.filename
			WHERE 1=1`)
	}

	if opts.Phenomenon != "" {
		qb.WriteString(` AND e.phenomenon_id = ?`)
		args = append(args, opts.Phenomenon)
	}

	if opts.System != "" {
		qb.WriteString(` AND e.system_type = ?`)
		args = append(args, string(opts.System))
	}

	if useFTS {
		qb.WriteString(` ORDER BY evidence_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY e.paper_filename, e.phenomenon_id`)
	}

	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying evidence index: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			r          Result
			paperTitle sql.NullString
			systemType string
		)
		if err := rows.Scan(
			&r.PaperFilename, &paperTitle, &r.PhenomenonID, &systemType,
			&r.SpeciesOrModel, &r.Method, &r.State, &r.Strength, &r.Content,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		r.SystemType = types.SystemType(systemType)
		if paperTitle.Valid {
			r.PaperTitle = paperTitle.String
		}
		results = append(results, r)
	}

	return results, rows.Err()
}
