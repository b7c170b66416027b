package navigator

import (
	"net/url"
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propscout/propscout/config"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestParseItemsPrimarySelector(t *testing.T) {
	html := `<html><body>
		<div class="project-card"><a class="project-card__link" href="/projects/riverfront-residences">Riverfront Residences</a></div>
		<div class="project-card"><a class="project-card__link" href="/projects/the-continuum?src=card#gallery">The Continuum</a></div>
	</body></html>`

	refs, err := parseItems(html, mustParse(t, "https://example.com/projects"))
	require.NoError(t, err)
	require.Len(t, refs, 2)

	assert.Equal(t, "Riverfront Residences", refs[0].Title)
	assert.Equal(t, "https://example.com/projects/riverfront-residences", refs[0].DetailURL)
	// Fragment and query are stripped so the identity key stays stable.
	assert.Equal(t, "https://example.com/projects/the-continuum", refs[1].DetailURL)
}

func TestParseItemsFallbackSelector(t *testing.T) {
	html := `<html><body>
		<article class="listing-item"><h3><a href="/projects/lentor-hills">Lentor Hills</a></h3></article>
	</body></html>`

	refs, err := parseItems(html, mustParse(t, "https://example.com/projects"))
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "Lentor Hills", refs[0].Title)
}

func TestParseItemsPreservesListingOrder(t *testing.T) {
	html := `<html><body>
		<div class="project-card"><a class="project-card__link" href="/p/a">A</a></div>
		<div class="project-card"><a class="project-card__link" href="/p/b">B</a></div>
		<div class="project-card"><a class="project-card__link" href="/p/c">C</a></div>
	</body></html>`

	refs, err := parseItems(html, mustParse(t, "https://example.com/"))
	require.NoError(t, err)
	require.Len(t, refs, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{refs[0].Title, refs[1].Title, refs[2].Title})
}

func TestParseItemsEmptyPage(t *testing.T) {
	refs, err := parseItems(`<html><body><p>No projects found.</p></body></html>`,
		mustParse(t, "https://example.com/projects"))
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestListingURL(t *testing.T) {
	n := &Navigator{
		baseURL: mustParse(t, "https://example.com/projects"),
		source:  config.SourceConfig{PageParam: "page"},
	}

	// Zero-based index, one-based site pagination.
	assert.Equal(t, "https://example.com/projects?page=1", n.listingURL(0))
	assert.Equal(t, "https://example.com/projects?page=4", n.listingURL(3))
}

func TestCompileBlockSet(t *testing.T) {
	set := compileBlockSet([]string{"Image", "Font", "Media", "Bogus"})
	assert.Len(t, set, 3)
	_, ok := set[proto.NetworkResourceTypeImage]
	assert.True(t, ok)

	assert.Empty(t, compileBlockSet(nil))
}
