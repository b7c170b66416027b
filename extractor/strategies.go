package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/propscout/propscout/models"
)

// selectorSet is one extraction strategy for a known site layout. Strategies
// are tried in order; the first whose name selector matches wins. When the
// layout drifts, add a new set at the front rather than editing an old one.
type selectorSet struct {
	name string

	projectName string
	category    string
	district    string
	address     string
	tenure      string
	unitRows    string
}

var strategies = []selectorSet{
	{
		name:        "2024-layout",
		projectName: "h1.project-title",
		category:    "span.project-type",
		district:    "span.project-district",
		address:     "div.project-address",
		tenure:      "span.project-tenure",
		unitRows:    "table.unit-mix tbody tr",
	},
	{
		name:        "2023-layout",
		projectName: "div.project-header h1",
		category:    "div.project-header .category",
		district:    "div.project-header .district",
		address:     "div.project-meta .address",
		tenure:      "div.project-meta .tenure",
		unitRows:    "div.unit-mix table tr",
	},
	{
		name:        "legacy-layout",
		projectName: "h1",
		category:    ".listing-category",
		district:    ".listing-district",
		address:     ".listing-address",
		tenure:      ".listing-tenure",
		unitRows:    "table tr",
	},
}

// extractCore applies the layered strategies over a rendered detail page.
// On total miss it returns a typed ExtractionError carrying which strategies
// were tried and how many candidate heading elements existed.
func extractCore(doc *goquery.Document, identityKey string) (*models.Property, error) {
	var tried []string
	for _, s := range strategies {
		name := textOf(doc, s.projectName)
		if name == "" {
			tried = append(tried, s.name)
			continue
		}
		return &models.Property{
			IdentityKey: identityKey,
			Name:        name,
			Category:    textOf(doc, s.category),
			District:    textOf(doc, s.district),
			Address:     textOf(doc, s.address),
			Tenure:      textOf(doc, s.tenure),
			UnitRows:    parseUnitRows(doc, s.unitRows),
		}, nil
	}
	return nil, &models.ExtractionError{
		IdentityKey:    identityKey,
		TriedSelectors: tried,
		CandidateCount: doc.Find("h1, h2").Length(),
	}
}

func textOf(doc *goquery.Document, sel string) string {
	if sel == "" {
		return ""
	}
	return strings.TrimSpace(doc.Find(sel).First().Text())
}
