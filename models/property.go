package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Property is the normalized record for one scraped listing. IdentityKey is
// the canonical detail-page URL and is the sole deduplication key against
// the backing store.
type Property struct {
	IdentityKey string `json:"identity_key"`

	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	District string `json:"district,omitempty"`
	Address  string `json:"address,omitempty"`
	Tenure   string `json:"tenure,omitempty"`

	UnitRows []UnitRow    `json:"unit_rows"`
	Images   []ImageAsset `json:"images"`

	ScrapedAt time.Time `json:"scraped_at"`
}

// UnitRow is one row of a listing's unit-mix table after classification.
type UnitRow struct {
	// TypeLabel is the raw label as scraped, e.g. "3 Bedroom + Study".
	TypeLabel string `json:"type_label"`

	// Bedrooms is the parsed bedroom count; 0 for studio units.
	Bedrooms int `json:"bedrooms"`

	SizeMinSqft int `json:"size_min_sqft,omitempty"`
	SizeMaxSqft int `json:"size_max_sqft,omitempty"`

	PriceMin int64 `json:"price_min,omitempty"`
	PriceMax int64 `json:"price_max,omitempty"`

	UnitsAvailable int `json:"units_available"`
	UnitsTotal     int `json:"units_total"`
}

// ImageAsset is one captured gallery image, keyed by its tab label.
type ImageAsset struct {
	Label     string `json:"label"`
	SourceURL string `json:"source_url"`

	// Fetchable reports whether the URL looked like a directly downloadable
	// binary (http(s) scheme, not a data: or blob: reference).
	Fetchable bool `json:"fetchable"`
}

// snapshot is the subset of Property fields that participate in change
// detection. ScrapedAt is deliberately excluded so that re-scraping an
// unchanged listing hashes identically.
type snapshot struct {
	Name     string       `json:"name"`
	Category string       `json:"category"`
	District string       `json:"district"`
	Address  string       `json:"address"`
	Tenure   string       `json:"tenure"`
	UnitRows []UnitRow    `json:"unit_rows"`
	Images   []ImageAsset `json:"images"`
}

// SnapshotHash returns a stable hex digest of the property's attributes and
// child sets. Two scrapes of an unchanged listing produce the same hash.
func (p *Property) SnapshotHash() string {
	buf, _ := json.Marshal(snapshot{
		Name:     p.Name,
		Category: p.Category,
		District: p.District,
		Address:  p.Address,
		Tenure:   p.Tenure,
		UnitRows: p.UnitRows,
		Images:   p.Images,
	})
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}
