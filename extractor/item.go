package extractor

import (
	"context"

	"github.com/propscout/propscout/models"
	"github.com/propscout/propscout/navigator"
)

// ItemExtractor opens an item's detail page and extracts it in one step.
// It is what the scrape loop consumes: the loop deals in item references,
// never in live browser tabs.
type ItemExtractor struct {
	nav *navigator.Navigator
	ex  *Extractor
}

// NewItemExtractor combines navigation and extraction for the scrape loop.
func NewItemExtractor(nav *navigator.Navigator, ex *Extractor) *ItemExtractor {
	return &ItemExtractor{nav: nav, ex: ex}
}

// Extract opens the detail page for ref, extracts the record, and closes the
// tab before returning.
func (ie *ItemExtractor) Extract(ctx context.Context, ref navigator.ItemRef) (*models.Property, error) {
	page, err := ie.nav.OpenItem(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer page.Close()
	return ie.ex.Extract(ctx, page)
}
