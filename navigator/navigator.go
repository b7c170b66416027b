// Package navigator drives the browser session through paginated listing
// pages. It is stateless per call: recovery lives entirely in the checkpoint
// layer, the navigator only knows how to open a page and enumerate its items.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
	"golang.org/x/time/rate"

	"github.com/propscout/propscout/config"
	"github.com/propscout/propscout/models"
)

// ItemRef is an ordered reference to one listing item. DetailURL doubles as
// the record's identity key.
type ItemRef struct {
	Title     string
	DetailURL string
}

// ListingPage wraps one rendered listing page.
type ListingPage struct {
	Index int

	page   *rod.Page
	base   *url.URL
	router *rod.HijackRouter
}

// ItemPage wraps one rendered item detail page.
type ItemPage struct {
	Ref ItemRef

	page *rod.Page
}

// Page exposes the underlying rod page for extraction.
func (p *ItemPage) Page() *rod.Page { return p.page }

// HTML returns the rendered document.
func (p *ItemPage) HTML() (string, error) { return p.page.HTML() }

// Close releases the browser tab.
func (p *ItemPage) Close() { _ = p.page.Close() }

// Close releases the browser tab and its request interceptor.
func (p *ListingPage) Close() {
	if p.router != nil {
		_ = p.router.Stop()
	}
	_ = p.page.Close()
}

// cardSelectors are the layered selector sets for listing cards, most
// specific first. The site layout drifts; extend this list rather than
// editing the primary in place. Precompiled so a bad selector fails at
// startup, not mid-run.
var cardSelectors = []cascadia.Selector{
	cascadia.MustCompile("div.project-card a.project-card__link"),
	cascadia.MustCompile("article.listing-item h3 a"),
	cascadia.MustCompile("div.listings a[href*='/projects/']"),
}

// Navigator opens listing and item pages over a single browser session.
type Navigator struct {
	browser *rod.Browser
	cfg     config.ScraperConfig
	source  config.SourceConfig
	stealth bool
	limiter *rate.Limiter
	baseURL *url.URL
	blocked map[proto.NetworkResourceType]struct{}
	onRetry func()
}

// SetRetryHook registers a callback invoked once per scheduled retry.
func (n *Navigator) SetRetryHook(fn func()) { n.onRetry = fn }

// New launches the browser and prepares the navigator.
func New(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig, source config.SourceConfig) (*Navigator, error) {
	base, err := url.Parse(source.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	browser, err := launchBrowser(browserCfg)
	if err != nil {
		return nil, err
	}

	rps := scraperCfg.RequestsPerSecond
	if rps <= 0 {
		rps = 0.5
	}

	return &Navigator{
		browser: browser,
		cfg:     scraperCfg,
		source:  source,
		stealth: browserCfg.Stealth,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		baseURL: base,
		blocked: compileBlockSet(browserCfg.BlockedResources),
	}, nil
}

// Close kills the browser process. Call on shutdown to prevent zombie
// Chrome processes.
func (n *Navigator) Close() {
	slog.Info("navigator shutting down: closing browser")
	n.browser.MustClose()
}

// listingURL builds the URL for a zero-based page index. The site paginates
// one-based.
func (n *Navigator) listingURL(pageIndex int) string {
	u := *n.baseURL
	q := u.Query()
	q.Set(n.source.PageParam, strconv.Itoa(pageIndex+1))
	u.RawQuery = q.Encode()
	return u.String()
}

// OpenListing navigates to the listing page at pageIndex with bounded retry
// and exponential backoff on transient failures.
func (n *Navigator) OpenListing(ctx context.Context, pageIndex int) (*ListingPage, error) {
	target := n.listingURL(pageIndex)
	page, router, err := n.navigate(ctx, target, true)
	if err != nil {
		return nil, err
	}
	return &ListingPage{Index: pageIndex, page: page, base: n.baseURL, router: router}, nil
}

// OpenItem navigates to an item's detail page with the same retry policy.
// Detail pages load with nothing blocked.
func (n *Navigator) OpenItem(ctx context.Context, ref ItemRef) (*ItemPage, error) {
	page, _, err := n.navigate(ctx, ref.DetailURL, false)
	if err != nil {
		return nil, err
	}
	return &ItemPage{Ref: ref, page: page}, nil
}

// navigate opens a fresh tab on target, retrying transient failures. Each
// attempt gets its own tab; a half-loaded tab is never reused.
func (n *Navigator) navigate(ctx context.Context, target string, blockAssets bool) (*rod.Page, *rod.HijackRouter, error) {
	attempts := n.cfg.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if n.onRetry != nil {
				n.onRetry()
			}
			delay := n.cfg.RetryBackoff * time.Duration(1<<(attempt-1))
			slog.Warn("navigation retry",
				"url", target, "attempt", attempt+1, "delay", delay, "error", lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, nil, categorizeError(ctx.Err(), "navigation canceled")
			}
		}

		if err := n.limiter.Wait(ctx); err != nil {
			return nil, nil, categorizeError(err, "rate limiter wait")
		}

		page, router, err := n.openOnce(ctx, target, blockAssets)
		if err == nil {
			return page, router, nil
		}
		lastErr = err
		if !transient(err) {
			break
		}
	}
	return nil, nil, categorizeError(lastErr, fmt.Sprintf("navigation to %s failed", target))
}

func (n *Navigator) openOnce(ctx context.Context, target string, blockAssets bool) (*rod.Page, *rod.HijackRouter, error) {
	navCtx, cancel := context.WithTimeout(ctx, n.cfg.NavigationTimeout)
	defer cancel()

	page, err := n.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash, "failed to create page", err)
	}

	// Interceptor must mount before the navigation it should filter.
	var router *rod.HijackRouter
	if blockAssets {
		router = blockResources(page, n.blocked)
	}

	// Stealth JS must be installed before the navigation it should mask.
	if n.stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr)
		}
		// A search-engine referer makes the visit look organic.
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{
				"Referer": "https://www.google.com/search?q=" + url.QueryEscape(n.baseURL.Hostname()),
			}),
		}.Call(page)
	}

	p := page.Context(navCtx)
	if err := p.Navigate(target); err != nil {
		if router != nil {
			_ = router.Stop()
		}
		_ = page.Close()
		return nil, nil, err
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"url", target, "error", err)
	}
	return page, router, nil
}

// Items returns the page's item references in listing order, trying each
// card selector set until one matches.
func (p *ListingPage) Items() ([]ItemRef, error) {
	html, err := p.page.HTML()
	if err != nil {
		return nil, categorizeError(err, "failed to read listing HTML")
	}
	return parseItems(html, p.base)
}

func parseItems(html string, base *url.URL) ([]ItemRef, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeNavigation, "failed to parse listing HTML", err)
	}

	for _, sel := range cardSelectors {
		nodes := doc.FindMatcher(sel)
		if nodes.Length() == 0 {
			continue
		}
		refs := make([]ItemRef, 0, nodes.Length())
		nodes.Each(func(_ int, a *goquery.Selection) {
			href, ok := a.Attr("href")
			if !ok || href == "" {
				return
			}
			refs = append(refs, ItemRef{
				Title:     strings.TrimSpace(a.Text()),
				DetailURL: canonicalize(base, href),
			})
		})
		if len(refs) > 0 {
			return refs, nil
		}
	}
	// An empty page is how the loop discovers the end of the listing.
	return nil, nil
}

// canonicalize resolves href against the listing host and strips fragments
// and query noise so the identity key stays stable across visits.
func canonicalize(base *url.URL, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	resolved := base.ResolveReference(u)
	resolved.Fragment = ""
	resolved.RawQuery = ""
	return resolved.String()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// transient reports whether a navigation failure is worth retrying.
// Context expiry on the parent means the run is shutting down.
func transient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

// categorizeError wraps raw errors into typed ScrapeErrors so the runner can
// map them onto its recovery policy.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "navigation canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
