// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ConfidenceLevels buckets theory aspects by how well the evidence supports them.
type ConfidenceLevels struct {
	High     []string `json:"high,omitempty"`
	Moderate []string `json:"moderate,omitempty"`
	Low      []string `json:"low,omitempty"`
}

// TheoryBody is the substantive content of the cumulative theory.
type TheoryBody struct {
	CorePrinciples       []string          `json:"core_principles,omitempty"`
	Mechanisms           map[string]string `json:"mechanisms,omitempty"`
	IntegrationFramework string            `json:"integration_framework,omitempty"`
	KeyPredictions       []string          `json:"key_predictions,omitempty"`
	ConfidenceLevels     ConfidenceLevels  `json:"confidence_levels"`
}

// TheoryChanges records what the latest update did to the theory.
type TheoryChanges struct {
	Additions     []string `json:"additions,omitempty"`
	Modifications []string `json:"modifications,omitempty"`
	Rejections    []string `json:"rejections,omitempty"`
	Strengthened  []string `json:"strengthened,omitempty"`
	Weakened      []string `json:"weakened,omitempty"`
}

// Any reports whether the update changed anything.
func (c TheoryChanges) Any() bool {
	return len(c.Additions)+len(c.Modifications)+len(c.Rejections)+
		len(c.Strengthened)+len(c.Weakened) > 0
}

// TheoryMetadata is bookkeeping attached to every theory revision.
type TheoryMetadata struct {
	UpdateTimestamp    string `json:"update_timestamp"`
	ModelUsed          string `json:"model_used"`
	PapersIncorporated int    `json:"papers_incorporated"`
	LatestPaper        string `json:"latest_paper,omitempty"`
}

// CumulativeTheory is the running synthesis aggregating claims supported
// across all analyzed papers. The current file is replaced wholesale on each
// update; a timestamped backup of every revision is retained.
type CumulativeTheory struct {
	Theory                 TheoryBody     `json:"theory"`
	ChangesFromPrevious    TheoryChanges  `json:"changes_from_previous"`
	Synthesis              string         `json:"synthesis,omitempty"`
	NextResearchPriorities []string       `json:"next_research_priorities,omitempty"`
	IncorporatedAnalyses   []string       `json:"incorporated_analyses,omitempty"`
	Metadata               TheoryMetadata `json:"_metadata"`
}

// Incorporated reports whether the named analysis file has been folded in.
func (t *CumulativeTheory) Incorporated(filename string) bool {
	for _, f := range t.IncorporatedAnalyses {
		if f == filename {
			return true
		}
	}
	return false
}
