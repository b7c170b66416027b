package extractor

import (
	"regexp"
	"strconv"
	"strings"
)

// Unit-type classification is deliberately precision-over-recall: the source
// markup mixes genuine unit rows with car park lots, commercial units, and
// footer junk, so a row is accepted only when its label matches the
// controlled vocabulary. Everything else is silently excluded.
var (
	bedroomPattern   = regexp.MustCompile(`(?i)\b(\d+)\s*(?:br|bed(?:room)?s?)\b`)
	studioPattern    = regexp.MustCompile(`(?i)\bstudio\b`)
	penthousePattern = regexp.MustCompile(`(?i)\bpenthouse\b`)
	nbrPattern       = regexp.MustCompile(`\bNBR\b`)
	leadingDigits    = regexp.MustCompile(`^\s*(\d+)`)
)

// classifyUnitType reports whether a raw type label belongs to the unit-mix
// vocabulary, and the parsed bedroom count when it does. Studios classify as
// zero bedrooms. Penthouse and NBR rows take an embedded count when one is
// present.
func classifyUnitType(label string) (bedrooms int, ok bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return 0, false
	}

	if m := bedroomPattern.FindStringSubmatch(label); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		return n, true
	}
	if studioPattern.MatchString(label) {
		return 0, true
	}
	if penthousePattern.MatchString(label) || nbrPattern.MatchString(label) {
		if m := leadingDigits.FindStringSubmatch(label); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n, true
			}
		}
		return 0, true
	}
	return 0, false
}
