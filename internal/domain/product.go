package domain

import "time"

// Product owns catalog identity for one physical listing on one merchant.
// Identity is the dedup key (merchant + canonical URL), never the display name.
type Product struct {
	ID        int64
	Name      string
	Slug      string
	Brand     string // empty when the merchant doesn't expose one
	Category  string
	Merchant  string
	URL       string
	ImageURL  string
	DedupKey  string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Deal is the single current offer for a Product. Historical prices live in
// PriceHistory rows, never in extra Deal rows.
type Deal struct {
	ID              int64
	ProductID       int64
	DealPrice       float64
	OriginalPrice   float64
	DiscountPercent int // always recomputed from prices, never trusted from source
	DiscountAmount  float64
	VolumeValue     float64
	VolumeUnit      string
	PricePerUnit    float64 // per reference unit (100ml / 100g), 0 when no volume
	Score           int
	VerifiedLowest  bool
	DealQualityHot  bool
	CommunityHot    bool // vote-driven, written by the web layer, never by imports
	IsExpired       bool
	Votes           int
	Views           int
	LastSeenAt      time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PricePoint is one (product, date) price observation.
type PricePoint struct {
	ID         int64
	ProductID  int64
	Price      float64
	ObservedOn string // YYYY-MM-DD, one row per day per product
	CreatedAt  time.Time
}

// PriceStats summarizes a product's history for scoring decisions.
type PriceStats struct {
	Count        int
	CoverageDays int
	Lowest       float64
	Average      float64
	Highest      float64
}

// ScrapingSource is one crawlable catalog URL plus its scheduling state.
type ScrapingSource struct {
	ID          int64     `json:"id"`
	URL         string    `json:"url"`
	Merchant    string    `json:"merchant"`
	Category    string    `json:"category"`
	Priority    int       `json:"priority"`
	IsActive    bool      `json:"isActive"`
	MaxProducts int       `json:"maxProducts"`
	LastScraped time.Time `json:"lastScraped"`
}
