package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout (default 120s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "theory-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AIConfig holds shared settings for stages that call the OpenAI API.
type AIConfig struct {
	// Model is the model identifier: gpt-5, gpt-5-mini, or gpt-5-nano.
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// ValidModels is the set of accepted model identifiers.
var ValidModels = map[string]bool{
	"gpt-5":      true,
	"gpt-5-mini": true,
	"gpt-5-nano": true,
}

// AnalyzeConfig holds settings for the paper analysis stage.
type AnalyzeConfig struct {
	AIConfig `yaml:",inline"`

	// PapersDir is the directory containing input PDFs (default "papers").
	PapersDir string `json:"papers_dir" yaml:"papers_dir"`

	// PromptsDir is the directory containing prompt text files (default "prompts").
	// When theory_analysis.txt is absent the embedded default prompt is used.
	PromptsDir string `json:"prompts_dir" yaml:"prompts_dir"`

	// ResultsDir is the directory for analysis output JSON
	// (default "output/analysis_results").
	ResultsDir string `json:"results_dir" yaml:"results_dir"`
}

// TheoryConfig holds settings for the cumulative theory update stage.
type TheoryConfig struct {
	AIConfig `yaml:",inline"`

	// ResultsDir is the directory holding analysis result JSON files.
	ResultsDir string `json:"results_dir" yaml:"results_dir"`

	// TheoryDir is the directory for the current theory and its backups
	// (default "output/cumulative_theory").
	TheoryDir string `json:"theory_dir" yaml:"theory_dir"`
}

// SummaryConfig holds settings for the figure summary stage.
type SummaryConfig struct {
	AIConfig `yaml:",inline"`

	// PapersDir is the directory containing input PDFs.
	PapersDir string `json:"papers_dir" yaml:"papers_dir"`

	// ResultsDir is the directory where summaries.json is written.
	ResultsDir string `json:"results_dir" yaml:"results_dir"`
}

// ViewerConfig holds settings for the web viewer.
type ViewerConfig struct {
	// Addr is the listen address (default ":5009").
	Addr string `json:"addr" yaml:"addr"`

	// ResultsDir is the directory holding analysis result JSON files.
	ResultsDir string `json:"results_dir" yaml:"results_dir"`

	// CatalogPath optionally overrides the embedded phenomena catalog.
	CatalogPath string `json:"catalog_path,omitempty" yaml:"catalog_path,omitempty"`
}

// IndexConfig holds settings for the evidence search index.
type IndexConfig struct {
	// ResultsDir is the directory holding analysis result JSON files.
	ResultsDir string `json:"results_dir" yaml:"results_dir"`

	// IndexDir is the directory for the SQLite database (default "output/index").
	IndexDir string `json:"index_dir" yaml:"index_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	HTTP    HTTPConfig    `json:"http" yaml:"http"`
	Analyze AnalyzeConfig `json:"analyze" yaml:"analyze"`
	Theory  TheoryConfig  `json:"theory" yaml:"theory"`
	Summary SummaryConfig `json:"summary" yaml:"summary"`
	Viewer  ViewerConfig  `json:"viewer" yaml:"viewer"`
	Index   IndexConfig   `json:"index" yaml:"index"`
}
