package extractor

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Tab and main-image selectors, layered like the core strategies.
var (
	tabSelectors = []string{
		"ul.gallery-tabs li button",
		"div.floorplan-tabs button",
		".gallery-nav a",
	}
	mainImageSelectors = []string{
		"div.gallery-main img",
		".gallery img.active",
		".gallery img",
	}
)

// capturedImage is one gallery capture before conversion to a model asset.
type capturedImage struct {
	Label string
	Src   string
}

// captureGallery activates each gallery tab in turn and captures the main
// image reference it swaps in. The swap is asynchronous on the source side,
// so after each click we poll for a changed src with a deadline instead of
// sleeping a fixed interval; on deadline expiry the last seen src is kept.
func captureGallery(ctx context.Context, page *rod.Page, settleTimeout time.Duration) []capturedImage {
	p := page.Context(ctx)

	tabs := findAll(p, tabSelectors)
	if len(tabs) == 0 {
		// No tabbed gallery; a single static image still counts.
		if src := currentImageSrc(p); src != "" {
			return []capturedImage{{Label: "Main", Src: src}}
		}
		return nil
	}

	images := make([]capturedImage, 0, len(tabs))
	prev := currentImageSrc(p)
	for i, tab := range tabs {
		label, err := tab.Text()
		if err != nil || strings.TrimSpace(label) == "" {
			label = "Tab " + strconv.Itoa(i+1)
		}
		label = strings.TrimSpace(label)

		if err := tab.Click(proto.InputMouseButtonLeft, 1); err != nil {
			slog.Warn("gallery tab click failed, skipping tab",
				"tab", label, "error", err)
			continue
		}

		src := waitImageChange(ctx, p, prev, settleTimeout)
		if src == "" {
			continue
		}
		images = append(images, capturedImage{Label: label, Src: src})
		prev = src
	}
	return images
}

// waitImageChange polls the main image src until it differs from prev or the
// settle deadline passes. The first tab may legitimately show the image that
// is already displayed, so when nothing changes the current src is returned
// as-is once the deadline expires.
func waitImageChange(ctx context.Context, p *rod.Page, prev string, timeout time.Duration) string {
	deadline := time.Now().Add(timeout)
	for {
		src := currentImageSrc(p)
		if src != "" && src != prev {
			return src
		}
		if time.Now().After(deadline) {
			return src
		}
		select {
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
			return currentImageSrc(p)
		}
	}
}

func currentImageSrc(p *rod.Page) string {
	for _, sel := range mainImageSelectors {
		el, err := p.Sleeper(rod.NotFoundSleeper).Element(sel)
		if err != nil {
			continue
		}
		src, err := el.Attribute("src")
		if err != nil || src == nil {
			continue
		}
		return *src
	}
	return ""
}

func findAll(p *rod.Page, selectors []string) []*rod.Element {
	for _, sel := range selectors {
		els, err := p.Sleeper(rod.NotFoundSleeper).Elements(sel)
		if err != nil || len(els) == 0 {
			continue
		}
		return els
	}
	return nil
}
