package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/propscout/propscout/models"
)

var (
	numberPattern = regexp.MustCompile(`[\d,.]+`)
	millionSuffix = regexp.MustCompile(`(?i)([\d.]+)\s*m\b`)
)

// parseUnitRows walks the unit-mix table rows under sel and returns the rows
// that classify into the unit vocabulary, in table order. Rows that fail
// classification are excluded, not errored.
func parseUnitRows(doc *goquery.Document, sel string) []models.UnitRow {
	var rows []models.UnitRow
	doc.Find(sel).Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 4 {
			return
		}
		label := strings.TrimSpace(cells.Eq(0).Text())
		bedrooms, ok := classifyUnitType(label)
		if !ok {
			return
		}

		sizeMin, sizeMax := parseIntRange(cells.Eq(1).Text())
		priceMin, priceMax := parsePriceRange(cells.Eq(2).Text())
		avail, total := parseAvailability(cells.Eq(3).Text())

		rows = append(rows, models.UnitRow{
			TypeLabel:      label,
			Bedrooms:       bedrooms,
			SizeMinSqft:    sizeMin,
			SizeMaxSqft:    sizeMax,
			PriceMin:       priceMin,
			PriceMax:       priceMax,
			UnitsAvailable: avail,
			UnitsTotal:     total,
		})
	})
	return rows
}

// parseIntRange reads "657 - 786 sqft" into (657, 786). A single value fills
// both ends; unparsable text yields zeros.
func parseIntRange(s string) (int, int) {
	nums := numberPattern.FindAllString(s, 2)
	if len(nums) == 0 {
		return 0, 0
	}
	lo := parseInt(nums[0])
	if len(nums) == 1 {
		return lo, lo
	}
	return lo, parseInt(nums[1])
}

// parsePriceRange reads "$1.15M - $1.42M" or "$1,150,000 - $1,420,000" into
// whole dollars.
func parsePriceRange(s string) (int64, int64) {
	parts := strings.SplitN(s, "-", 2)
	lo := parsePrice(parts[0])
	if len(parts) == 1 {
		return lo, lo
	}
	return lo, parsePrice(parts[1])
}

func parsePrice(s string) int64 {
	if m := millionSuffix.FindStringSubmatch(s); m != nil {
		f, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return int64(f * 1_000_000)
		}
	}
	num := numberPattern.FindString(s)
	if num == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(num, ",", ""), 64)
	if err != nil {
		return 0
	}
	return int64(f)
}

// parseAvailability reads "3 / 24" into (3, 24).
func parseAvailability(s string) (int, int) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	return parseInt(numberPattern.FindString(parts[0])),
		parseInt(numberPattern.FindString(parts[1]))
}

func parseInt(s string) int {
	n, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return 0
	}
	return n
}
