// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package viewer serves the analysis dashboard: one HTML page with
// client-side filtering, plus read-only JSON mirrors of the same data.
// It is a pure consumer of the results directory; every request re-reads
// the files on disk.
package viewer

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/consclab/theory-engine/internal/phenomena"
	"github.com/consclab/theory-engine/pkg/types"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

// Server renders the dashboard and the /api mirrors.
type Server struct {
	cfg     types.ViewerConfig
	catalog *phenomena.Catalog
	tmpl    *template.Template
	mux     *http.ServeMux
}

// New builds a Server over the given results directory and catalog.
func New(cfg types.ViewerConfig, catalog *phenomena.Catalog) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/dashboard.html")
	if err != nil {
		return nil, fmt.Errorf("parsing dashboard template: %w", err)
	}

	s := &Server{
		cfg:     cfg,
		catalog: catalog,
		tmpl:    tmpl,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /api/papers", s.handlePapers)
	s.mux.HandleFunc("GET /api/phenomena", s.handlePhenomena)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
	s.mux.HandleFunc("GET /api/claims", s.handleClaims)
	return s, nil
}

// Handler exposes the route table for tests and for ListenAndServe.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe blocks serving HTTP on cfg.Addr.
func (s *Server) ListenAndServe() error {
	slog.Info("viewer listening", "addr", s.cfg.Addr, "results_dir", s.cfg.ResultsDir)
	return http.ListenAndServe(s.cfg.Addr, s.mux)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	papers := LoadResults(s.cfg.ResultsDir)
	stats := ComputeStats(papers)

	data := dashboardData{
		Stats:       stats,
		Phenomena:   s.phenomenaViews(stats),
		Papers:      paperViews(papers, s.catalog),
		GeneratedAt: time.Now().Format("January 2, 2006"),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, data); err != nil {
		slog.Error("rendering dashboard", "error", err)
	}
}

func (s *Server) handlePapers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, LoadResults(s.cfg.ResultsDir))
}

func (s *Server) handlePhenomena(w http.ResponseWriter, r *http.Request) {
	stats := ComputeStats(LoadResults(s.cfg.ResultsDir))
	writeJSON(w, s.phenomenaViews(stats))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, ComputeStats(LoadResults(s.cfg.ResultsDir)))
}

func (s *Server) handleClaims(w http.ResponseWriter, r *http.Request) {
	papers := LoadResults(s.cfg.ResultsDir)

	type paperClaims struct {
		Title           string `json:"title"`
		Filename        string `json:"filename"`
		SupportedClaims []int  `json:"supported_claims,omitempty"`
	}
	resp := struct {
		ClaimCounts map[int]int   `json:"claim_counts"`
		Papers      []paperClaims `json:"papers"`
	}{
		ClaimCounts: ClaimCounts(papers),
		Papers:      make([]paperClaims, 0, len(papers)),
	}
	for _, p := range papers {
		resp.Papers = append(resp.Papers, paperClaims{
			Title:           p.PaperMetadata.Title,
			Filename:        p.Filename,
			SupportedClaims: p.SupportedClaims,
		})
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// PhenomenonView is a catalog entry joined with its evidence count.
type PhenomenonView struct {
	phenomena.Phenomenon
	EvidenceCount int `json:"evidence_count"`
}

func (s *Server) phenomenaViews(stats Stats) []PhenomenonView {
	views := make([]PhenomenonView, len(s.catalog.Phenomena))
	for i, p := range s.catalog.Phenomena {
		views[i] = PhenomenonView{Phenomenon: p, EvidenceCount: stats.PhenomenonCounts[p.ID]}
	}
	return views
}
