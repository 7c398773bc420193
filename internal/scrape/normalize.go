package scrape

import (
	"errors"
	"fmt"
	"strings"

	"dealradar-engine/internal/scrape/types"
	"dealradar-engine/internal/scrape/util"
)

var (
	ErrEmptyName = errors.New("empty name")
)

// NormalizedProduct is the canonical shape of one candidate after cleanup.
// Ephemeral: it only lives for one pipeline pass.
type NormalizedProduct struct {
	Name          string
	Brand         string
	Category      string
	Slug          string
	VolumeValue   float64
	VolumeUnit    string
	DealPrice     float64
	OriginalPrice float64
	PricePerUnit  float64
	ImageURL      string
	URL           string
	Merchant      string
	DedupKey      string
}

// Normalize canonicalizes a raw candidate. Pure: same candidate in, same
// product out. Fails (non-fatally for the run) on an empty name or a price
// that doesn't parse to a positive number.
func Normalize(c types.Candidate, merchant string) (NormalizedProduct, error) {
	name := util.CleanText(c.Name)
	if name == "" {
		return NormalizedProduct{}, ErrEmptyName
	}

	dealPrice, err := util.ParsePrice(c.PriceRaw)
	if err != nil {
		return NormalizedProduct{}, fmt.Errorf("price %q: %w", c.PriceRaw, err)
	}

	// A missing or nonsensical was-price means "no discount", not a failure.
	originalPrice := dealPrice
	if c.OriginalRaw != "" {
		if op, err := util.ParsePrice(c.OriginalRaw); err == nil && op > dealPrice {
			originalPrice = op
		}
	}

	p := NormalizedProduct{
		Name:          name,
		Brand:         util.CleanText(c.Brand),
		Slug:          util.Slugify(strings.ToLower(merchant) + " " + name),
		DealPrice:     dealPrice,
		OriginalPrice: originalPrice,
		ImageURL:      strings.TrimSpace(c.ImageURL),
		URL:           util.CanonicalizeURL(c.URL),
		Merchant:      strings.ToLower(strings.TrimSpace(merchant)),
		DedupKey:      util.DedupKey(merchant, c.URL),
	}

	if vol, ok := util.ExtractVolume(name); ok {
		p.VolumeValue = vol.Value
		p.VolumeUnit = vol.Unit
		p.PricePerUnit = util.UnitPrice(dealPrice, vol)
	}

	return p, nil
}
