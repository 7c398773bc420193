package types

import (
	"context"
	"time"

	"dealradar-engine/internal/domain"
)

// Candidate is one raw product tile as parsed off a catalog page. Nothing here
// is trusted: prices are still strings, the name is whatever the site renders.
type Candidate struct {
	Name          string
	PriceRaw      string
	OriginalRaw   string // strikethrough/was-price text, may be empty
	DiscountBadge string // "-30%", "AKTION", ... informational only
	Brand         string
	ImageURL      string
	URL           string
	Merchant      string
}

// FetchConfig is the per-source knob set handed to an adapter.
type FetchConfig struct {
	Headless             bool
	DelayBetweenRequests time.Duration
	MaxProducts          int
}

// Result is what one adapter invocation produced for one source. A tile that
// failed to parse lands in Errors; the rest of the page is still returned.
type Result struct {
	Success    bool          `json:"success"`
	Candidates []Candidate   `json:"products"`
	Errors     []string      `json:"errors"`
	Duration   time.Duration `json:"duration"`
}

// Fetcher is the per-merchant adapter contract. Implementations may be plain
// HTTP+goquery, a colly collector, or a headless browser; the importer never
// knows which.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, src domain.ScrapingSource, cfg FetchConfig) (Result, error)
}
