// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package viewer

import (
	"fmt"
	"strings"

	"github.com/consclab/theory-engine/internal/phenomena"
	"github.com/consclab/theory-engine/pkg/types"
)

// dashboardData is the root template context.
type dashboardData struct {
	Stats       Stats
	Phenomena   []PhenomenonView
	Papers      []PaperView
	GeneratedAt string
}

// PaperView is one paper prepared for rendering. All fields are total over
// whatever shape the result file had; missing data renders as empty strings.
type PaperView struct {
	Title    string
	Authors  string
	Year     int
	Domain   string
	DOI      string
	Link     string
	IsStub   bool
	Error    string
	Evidence []EvidenceView
}

// EvidenceView is one evidence item prepared for rendering.
type EvidenceView struct {
	PhenomenonID   string
	PhenomenonName string
	SystemType     string
	SystemLabel    string
	Strength       string
	Metadata       string
	Mechanism      string
	TextRefs       []types.TextRef
	MoreQuotes     int
	FigureRefs     []types.FigureRef
	TableRefs      []types.TableRef
	Limitations    string
}

// maxQuotesShown limits the quotes rendered per evidence item.
const maxQuotesShown = 3

func paperViews(papers []*types.AnalysisResult, catalog *phenomena.Catalog) []PaperView {
	views := make([]PaperView, 0, len(papers))
	for _, p := range papers {
		pv := PaperView{
			Title:   p.PaperMetadata.Title,
			Authors: strings.Join(p.PaperMetadata.Authors, ", "),
			Year:    p.PaperMetadata.Year,
			Domain:  p.PaperMetadata.Domain,
			DOI:     p.PaperMetadata.DOIOrArxiv,
			Link:    p.PaperMetadata.Link,
			IsStub:  p.IsStub(),
			Error:   p.Error,
		}
		if pv.Title == "" {
			pv.Title = "Untitled Paper"
		}
		for _, item := range p.Evidence {
			pv.Evidence = append(pv.Evidence, evidenceView(item, catalog))
		}
		views = append(views, pv)
	}
	return views
}

func evidenceView(item types.EvidenceItem, catalog *phenomena.Catalog) EvidenceView {
	ev := EvidenceView{
		PhenomenonID:   item.PhenomenonID,
		PhenomenonName: item.PhenomenonID,
		SystemType:     string(item.SystemType),
		SystemLabel:    strings.ToUpper(string(item.SystemType)),
		Strength:       item.Strength,
		Metadata:       metadataLine(item),
		Mechanism:      item.BriefMechanism,
		TextRefs:       item.TextRefs,
		FigureRefs:     item.FigureRefs,
		TableRefs:      item.TableRefs,
		Limitations:    item.Limitations,
	}
	if p, ok := catalog.ByID(item.PhenomenonID); ok {
		ev.PhenomenonName = p.Name
	}
	if ev.SystemType == "" {
		ev.SystemType = string(types.SystemOther)
		ev.SystemLabel = "OTHER"
	}
	if len(ev.TextRefs) > maxQuotesShown {
		ev.MoreQuotes = len(ev.TextRefs) - maxQuotesShown
		ev.TextRefs = ev.TextRefs[:maxQuotesShown]
	}
	return ev
}

// metadataLine joins the item's descriptive fields into one display line.
func metadataLine(item types.EvidenceItem) string {
	var parts []string
	if item.SpeciesOrModel != "" {
		parts = append(parts, "Species/Model: "+item.SpeciesOrModel)
	}
	if item.Method != "" {
		parts = append(parts, "Method: "+item.Method)
	}
	if item.State != "" {
		parts = append(parts, "State: "+item.State)
	}
	if item.Time != nil {
		if item.Time.BioMS != "" {
			parts = append(parts, fmt.Sprintf("Time: %sms", item.Time.BioMS))
		}
		if item.Time.AIUnits != nil {
			if item.Time.AIUnits.Layers != "" {
				parts = append(parts, "Layers: "+item.Time.AIUnits.Layers)
			}
			if item.Time.AIUnits.Tokens != "" {
				parts = append(parts, "Tokens: "+item.Time.AIUnits.Tokens)
			}
		}
	}
	return strings.Join(parts, " | ")
}
