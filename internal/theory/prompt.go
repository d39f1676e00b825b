// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package theory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/consclab/theory-engine/pkg/types"
)

// systemPrompt frames the model's role for theory updates.
const systemPrompt = "You are a scientific theory builder specializing in consciousness research. Respond only with valid JSON."

// noTheorySentinel is sent in place of the current theory on the first run.
const noTheorySentinel = "No theory developed yet - this is the first analysis."

// updatePromptTmpl is the prompt sent to the model to fold one new analysis
// into the cumulative theory. The response schema is spelled out verbatim so
// JSON mode has an exact target.
var updatePromptTmpl = template.Must(template.New("update").Parse(`You are a consciousness researcher tasked with maintaining and updating a cumulative theory of consciousness based on accumulating evidence from scientific papers.

PREVIOUS ANALYSES AND THEIR THEORIES:
{{.AllSummaries}}

CURRENT CUMULATIVE THEORY OF CONSCIOUSNESS:
{{.CurrentTheory}}

NEW PAPER ANALYSIS:
{{.NewSummary}}

FULL EVIDENCE DETAILS FROM NEW PAPER:
{{.NewEvidence}}

TASK:
Based on the new evidence, update the cumulative theory of consciousness. Consider:
1. Does the new evidence support, contradict, or extend the current theory?
2. Are there new mechanisms or principles that should be incorporated?
3. Should any aspects of the current theory be revised or rejected?
4. What is the overall confidence level in different aspects of the theory?

Respond with a JSON object in this format:
{
    "theory": {
        "core_principles": ["List of fundamental principles supported by evidence"],
        "mechanisms": {
            "ion_channels": "Role and evidence summary",
            "cytoskeleton": "Role and evidence summary",
            "em_fields": "Role and evidence summary",
            "microtubules": "Role and evidence summary",
            "signaling_pathways": "Role and evidence summary",
            "perturbation_effects": "Role and evidence summary"
        },
        "integration_framework": "How these mechanisms work together",
        "key_predictions": ["Testable predictions from the theory"],
        "confidence_levels": {
            "high": ["Well-supported aspects"],
            "moderate": ["Aspects with some support"],
            "low": ["Speculative aspects"]
        }
    },
    "changes_from_previous": {
        "additions": ["New elements added to theory"],
        "modifications": ["Elements that were modified"],
        "rejections": ["Elements removed or contradicted"],
        "strengthened": ["Elements with increased support"],
        "weakened": ["Elements with decreased support"]
    },
    "synthesis": "A 2-3 sentence summary of the current unified theory",
    "next_research_priorities": ["Key questions that need investigation"]
}

If the new paper doesn't add anything meaningful, indicate minimal changes but still provide the complete current theory.`))

// analysisSummary is the condensed view of one analysis included in the prompt.
type analysisSummary struct {
	Paper            string            `json:"paper"`
	Link             string            `json:"link,omitempty"`
	TheorySynthesis  string            `json:"theory_synthesis,omitempty"`
	SupportedClaims  []int             `json:"supported_claims,omitempty"`
	EvidenceStrength map[string]string `json:"evidence_strength,omitempty"`
	KeyInsights      []string          `json:"key_insights,omitempty"`
}

// summarize condenses an analysis for the prompt: identity, synthesis,
// claims, a strength map, and at most three insight findings.
func summarize(a *types.AnalysisResult) analysisSummary {
	s := analysisSummary{
		Paper:           orUnknown(a.PaperMetadata.Title),
		Link:            a.PaperMetadata.Link,
		TheorySynthesis: a.TheorySynthesis,
		SupportedClaims: a.SupportedClaims,
	}

	if len(a.EvidenceDetails) > 0 {
		s.EvidenceStrength = make(map[string]string, len(a.EvidenceDetails))
		for claim, details := range a.EvidenceDetails {
			s.EvidenceStrength[claim] = orUnknown(details.Strength)
		}
	} else if len(a.Evidence) > 0 {
		s.EvidenceStrength = make(map[string]string, len(a.Evidence))
		for _, item := range a.Evidence {
			s.EvidenceStrength[item.PhenomenonID] = orUnknown(item.Strength)
		}
	}

	for _, insight := range a.Insights {
		if len(s.KeyInsights) == 3 {
			break
		}
		s.KeyInsights = append(s.KeyInsights, insight.Finding)
	}
	return s
}

// buildPrompt renders the theory update prompt. current may be nil on the
// first run.
func buildPrompt(current *types.CumulativeTheory, all []*types.AnalysisResult, newest *types.AnalysisResult) (string, error) {
	summaries := make([]analysisSummary, len(all))
	for i, a := range all {
		summaries[i] = summarize(a)
	}

	allJSON, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling summaries: %w", err)
	}

	currentText := noTheorySentinel
	if current != nil {
		body, err := json.MarshalIndent(current.Theory, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshaling current theory: %w", err)
		}
		currentText = string(body)
	}

	newJSON, err := json.MarshalIndent(summarize(newest), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling new summary: %w", err)
	}

	evidence := any(newest.Evidence)
	if len(newest.EvidenceDetails) > 0 {
		evidence = newest.EvidenceDetails
	}
	evidenceJSON, err := json.MarshalIndent(evidence, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling evidence: %w", err)
	}

	var buf bytes.Buffer
	err = updatePromptTmpl.Execute(&buf, struct {
		AllSummaries  string
		CurrentTheory string
		NewSummary    string
		NewEvidence   string
	}{
		AllSummaries:  string(allJSON),
		CurrentTheory: currentText,
		NewSummary:    string(newJSON),
		NewEvidence:   string(evidenceJSON),
	})
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return buf.String(), nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
