package extractor

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const unitMixHTML = `<html><body>
<table class="unit-mix"><tbody>
	<tr><td>1 Bedroom</td><td>474 - 517 sqft</td><td>$1.15M - $1.28M</td><td>12 / 40</td></tr>
	<tr><td>3 Bedroom + Study</td><td>1,001 - 1,184 sqft</td><td>$1,760,000 - $2,100,000</td><td>3 / 24</td></tr>
	<tr><td>Car Park Lot</td><td>-</td><td>$80,000</td><td>10 / 50</td></tr>
	<tr><td>Penthouse</td><td>2,357 sqft</td><td>$5.2M</td><td>1 / 2</td></tr>
</tbody></table>
</body></html>`

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestParseUnitRows(t *testing.T) {
	rows := parseUnitRows(docFrom(t, unitMixHTML), "table.unit-mix tbody tr")

	// Car Park Lot is a classification miss, excluded without error.
	require.Len(t, rows, 3)

	assert.Equal(t, "1 Bedroom", rows[0].TypeLabel)
	assert.Equal(t, 1, rows[0].Bedrooms)
	assert.Equal(t, 474, rows[0].SizeMinSqft)
	assert.Equal(t, 517, rows[0].SizeMaxSqft)
	assert.Equal(t, int64(1_150_000), rows[0].PriceMin)
	assert.Equal(t, int64(1_280_000), rows[0].PriceMax)
	assert.Equal(t, 12, rows[0].UnitsAvailable)
	assert.Equal(t, 40, rows[0].UnitsTotal)

	assert.Equal(t, "3 Bedroom + Study", rows[1].TypeLabel)
	assert.Equal(t, 3, rows[1].Bedrooms)
	assert.Equal(t, 1001, rows[1].SizeMinSqft)
	assert.Equal(t, int64(1_760_000), rows[1].PriceMin)
	assert.Equal(t, int64(2_100_000), rows[1].PriceMax)

	// Single values fill both range ends.
	assert.Equal(t, "Penthouse", rows[2].TypeLabel)
	assert.Equal(t, 2357, rows[2].SizeMinSqft)
	assert.Equal(t, 2357, rows[2].SizeMaxSqft)
	assert.Equal(t, int64(5_200_000), rows[2].PriceMin)
	assert.Equal(t, int64(5_200_000), rows[2].PriceMax)
	assert.Equal(t, 1, rows[2].UnitsAvailable)
	assert.Equal(t, 2, rows[2].UnitsTotal)
}

func TestParseUnitRowsShortRowsSkipped(t *testing.T) {
	html := `<table class="unit-mix"><tbody>
		<tr><td>2 Bedroom</td><td>700 sqft</td></tr>
	</tbody></table>`
	rows := parseUnitRows(docFrom(t, html), "table.unit-mix tbody tr")
	assert.Empty(t, rows)
}

func TestParsePriceRange(t *testing.T) {
	tests := []struct {
		in     string
		lo, hi int64
	}{
		{"$1.15M - $1.42M", 1_150_000, 1_420_000},
		{"$1,150,000 - $1,420,000", 1_150_000, 1_420_000},
		{"$980,000", 980_000, 980_000},
		{"TBA", 0, 0},
	}
	for _, tt := range tests {
		lo, hi := parsePriceRange(tt.in)
		assert.Equal(t, tt.lo, lo, "low of %q", tt.in)
		assert.Equal(t, tt.hi, hi, "high of %q", tt.in)
	}
}

func TestParseAvailability(t *testing.T) {
	avail, total := parseAvailability("5 / 20")
	assert.Equal(t, 5, avail)
	assert.Equal(t, 20, total)

	avail, total = parseAvailability("sold out")
	assert.Zero(t, avail)
	assert.Zero(t, total)
}
