package store

import (
	"context"
	"fmt"
	"time"
)

// DealRow is the read shape for UIs: product identity plus its current deal.
type DealRow struct {
	ProductID       int64   `json:"productId"`
	Name            string  `json:"name"`
	Slug            string  `json:"slug"`
	Brand           string  `json:"brand"`
	Merchant        string  `json:"merchant"`
	URL             string  `json:"url"`
	ImageURL        string  `json:"imageUrl"`
	DealPrice       float64 `json:"dealPrice"`
	OriginalPrice   float64 `json:"originalPrice"`
	DiscountPercent int     `json:"discountPercent"`
	PricePerUnit    float64 `json:"pricePerUnit"`
	VolumeValue     float64 `json:"volumeValue"`
	VolumeUnit      string  `json:"volumeUnit"`
	Score           int     `json:"score"`
	VerifiedLowest  bool    `json:"verifiedLowest"`
	Hot             bool    `json:"hot"`
	LastSeenAt      string  `json:"lastSeenAt"`
}

type ListDealsOpts struct {
	Merchant string
	HotOnly  bool
	Sort     string // score | discount | price | recent
	Limit    int
}

func (d *DB) ListDeals(ctx context.Context, opts ListDealsOpts) ([]DealRow, error) {
	if opts.Limit <= 0 || opts.Limit > 2000 {
		opts.Limit = 200
	}

	// whitelist sort columns (prevents SQL injection)
	sortCol := map[string]string{
		"score":    "d.score DESC",
		"discount": "d.discount_percent DESC",
		"price":    "d.deal_price ASC",
		"recent":   "d.last_seen_at DESC",
	}[opts.Sort]
	if sortCol == "" {
		sortCol = "d.score DESC"
	}

	where := "WHERE p.is_active = 1 AND d.is_expired = 0"
	args := []any{}
	if opts.Merchant != "" {
		where += " AND p.merchant = ?"
		args = append(args, opts.Merchant)
	}
	if opts.HotOnly {
		where += " AND (d.deal_quality_hot = 1 OR d.community_hot = 1)"
	}
	args = append(args, opts.Limit)

	query := fmt.Sprintf(`
SELECT p.id, p.name, p.slug, p.brand, p.merchant, p.url, p.image_url,
       d.deal_price, d.original_price, d.discount_percent, d.price_per_unit,
       d.volume_value, d.volume_unit, d.score, d.verified_lowest,
       (d.deal_quality_hot OR d.community_hot), d.last_seen_at
FROM deals d
JOIN products p ON p.id = d.product_id
%s
ORDER BY %s
LIMIT ?;`, where, sortCol)

	rows, err := d.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	defer rows.Close()

	var out []DealRow
	for rows.Next() {
		var r DealRow
		var lastSeen string
		if err := rows.Scan(
			&r.ProductID, &r.Name, &r.Slug, &r.Brand, &r.Merchant, &r.URL, &r.ImageURL,
			&r.DealPrice, &r.OriginalPrice, &r.DiscountPercent, &r.PricePerUnit,
			&r.VolumeValue, &r.VolumeUnit, &r.Score, &r.VerifiedLowest, &r.Hot, &lastSeen,
		); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, lastSeen); err == nil {
			r.LastSeenAt = t.Format("2006-01-02 15:04:05")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
