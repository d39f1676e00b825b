// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SystemType classifies the system an evidence item concerns.
type SystemType string

const (
	SystemBio   SystemType = "bio"
	SystemAI    SystemType = "ai"
	SystemOther SystemType = "other"
)

// PaperMetadata identifies the analyzed paper as reported by the model.
type PaperMetadata struct {
	Title      string   `json:"title"`
	Authors    []string `json:"authors,omitempty"`
	Year       int      `json:"year,omitempty"`
	Domain     string   `json:"domain,omitempty"`
	DOIOrArxiv string   `json:"doi_or_arxiv,omitempty"`
	Link       string   `json:"link,omitempty"`
}

// TextRef is a supporting quote with its location in the paper.
type TextRef struct {
	Quote          string `json:"quote"`
	SectionTitle   string `json:"section_title,omitempty"`
	SectionType    string `json:"section_type,omitempty"`
	Page           int    `json:"page,omitempty"`
	Interpretation string `json:"interpretation,omitempty"`
}

// FigureRef points at a figure supporting an evidence item.
type FigureRef struct {
	FigureLabel         string `json:"figure_label"`
	Page                int    `json:"page,omitempty"`
	InterpretationShort string `json:"interpretation_short,omitempty"`
}

// TableRef points at a table supporting an evidence item.
type TableRef struct {
	TableLabel   string `json:"table_label"`
	Page         int    `json:"page,omitempty"`
	CaptionQuote string `json:"caption_quote,omitempty"`
}

// AIUnits expresses model-internal time in layers and tokens.
type AIUnits struct {
	Layers string `json:"layers,omitempty"`
	Tokens string `json:"tokens,omitempty"`
}

// TimeScale records the timescale of an observation, in biological
// milliseconds or AI-internal units depending on the system type.
type TimeScale struct {
	BioMS   string   `json:"bio_ms,omitempty"`
	AIUnits *AIUnits `json:"ai_units,omitempty"`
}

// EvidenceItem is one claim-supporting observation extracted from a paper,
// tagged with a phenomenon identifier and supporting references.
type EvidenceItem struct {
	PhenomenonID   string      `json:"phenomenon_id"`
	SystemType     SystemType  `json:"system_type"`
	SpeciesOrModel string      `json:"species_or_model,omitempty"`
	Method         string      `json:"method,omitempty"`
	State          string      `json:"state,omitempty"`
	Strength       string      `json:"strength,omitempty"`
	BriefMechanism string      `json:"brief_mechanism,omitempty"`
	Time           *TimeScale  `json:"time,omitempty"`
	TextRefs       []TextRef   `json:"text_refs,omitempty"`
	FigureRefs     []FigureRef `json:"figure_refs,omitempty"`
	TableRefs      []TableRef  `json:"table_refs,omitempty"`
	Limitations    string      `json:"limitations,omitempty"`
}

// ClaimEvidence is the older per-claim evidence shape keyed by claim number.
type ClaimEvidence struct {
	ClaimText    string   `json:"claim_text,omitempty"`
	Strength     string   `json:"strength,omitempty"`
	DirectQuotes []string `json:"direct_quotes,omitempty"`
}

// Insight is an additional or contradictory finding outside the claim list.
type Insight struct {
	Finding   string `json:"finding"`
	Relevance string `json:"relevance,omitempty"`
}

// AnalysisMetadata is bookkeeping attached to every analysis result.
type AnalysisMetadata struct {
	AnalysisTimestamp    string `json:"analysis_timestamp"`
	ModelUsed            string `json:"model_used"`
	SourcePDF            string `json:"source_pdf,omitempty"`
	PaperLink            string `json:"paper_link,omitempty"`
	FileID               string `json:"file_id,omitempty"`
	VectorStoreID        string `json:"vector_store_id,omitempty"`
	PromptTokensEstimate int    `json:"prompt_tokens_estimate,omitempty"`
}

// AnalysisResult is one paper's analysis as persisted to disk. Immutable
// after creation; read by the viewer, the theory updater, and the index.
//
// Two evidence shapes exist in the wild: newer results carry Evidence
// (phenomenon-tagged items), older ones EvidenceDetails (claim-number keyed).
// Both decode; absent fields stay zero-valued.
type AnalysisResult struct {
	PaperMetadata   PaperMetadata            `json:"paper_metadata"`
	TheorySynthesis string                   `json:"theory_synthesis,omitempty"`
	SupportedClaims []int                    `json:"supported_claims,omitempty"`
	Evidence        []EvidenceItem           `json:"evidence,omitempty"`
	EvidenceDetails map[string]ClaimEvidence `json:"evidence_details,omitempty"`
	Insights        []Insight                `json:"additional_or_contradictory_insights,omitempty"`

	// Error and RawResponse are set instead of the fields above when the
	// model returned something that did not parse as the expected JSON.
	Error       string `json:"error,omitempty"`
	RawResponse string `json:"raw_response,omitempty"`

	Metadata AnalysisMetadata `json:"_metadata"`

	// Filename is the on-disk name of the result file. Populated at load
	// time, never serialized.
	Filename string `json:"-"`
}

// IsStub reports whether the result is an error stub rather than a parsed analysis.
func (r *AnalysisResult) IsStub() bool {
	return r.Error != ""
}

// ProcessedEntry is one row of the dedupe ledger.
type ProcessedEntry struct {
	FileHash    string `json:"file_hash"`
	ProcessedAt string `json:"processed_at"`
	OutputFile  string `json:"output_file"`
	PaperTitle  string `json:"paper_title,omitempty"`
}

// ProcessedPapersLog maps PDF filenames to their processing records. It is
// read and written wholesale; concurrent writers are not guarded against.
type ProcessedPapersLog map[string]ProcessedEntry

// SummaryRecord holds one figure summary, or the error that prevented it.
type SummaryRecord struct {
	Filename      string  `json:"filename"`
	FileID        string  `json:"file_id,omitempty"`
	VectorStoreID string  `json:"vector_store_id,omitempty"`
	SizeMB        float64 `json:"size_mb,omitempty"`
	Summary       string  `json:"summary,omitempty"`
	Error         string  `json:"error,omitempty"`
	Detail        string  `json:"detail,omitempty"`
}
