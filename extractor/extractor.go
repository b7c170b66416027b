// Package extractor turns one rendered detail page into a normalized
// property record. Static fields and the unit-mix table are read from the
// rendered HTML through layered selector strategies; the tabbed image
// gallery needs live tab activation and is captured through the browser.
package extractor

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/propscout/propscout/models"
	"github.com/propscout/propscout/navigator"
)

// Extractor extracts property records from item pages.
type Extractor struct {
	settleTimeout time.Duration
}

// New creates an Extractor. settleTimeout bounds the wait for each gallery
// tab's asynchronous image swap.
func New(settleTimeout time.Duration) *Extractor {
	if settleTimeout <= 0 {
		settleTimeout = 3 * time.Second
	}
	return &Extractor{settleTimeout: settleTimeout}
}

// Extract pulls the full record for one item. A total selector miss returns
// a typed *models.ExtractionError; the caller skips the item and continues.
func (e *Extractor) Extract(ctx context.Context, item *navigator.ItemPage) (*models.Property, error) {
	html, err := item.HTML()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeExtraction,
			"failed to read item HTML", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeExtraction,
			"failed to parse item HTML", err)
	}

	prop, err := extractCore(doc, item.Ref.DetailURL)
	if err != nil {
		return nil, err
	}
	if prop.Name == "" {
		prop.Name = item.Ref.Title
	}

	for _, img := range captureGallery(ctx, item.Page(), e.settleTimeout) {
		prop.Images = append(prop.Images, models.ImageAsset{
			Label:     img.Label,
			SourceURL: img.Src,
			Fetchable: fetchable(img.Src),
		})
	}

	prop.ScrapedAt = time.Now().UTC()
	return prop, nil
}

// fetchable reports whether a captured src is a directly downloadable
// binary reference rather than an inline data: or blob: URL.
func fetchable(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}
