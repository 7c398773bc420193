package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"dealradar-engine/internal/domain"
)

var ErrDedupConflict = errors.New("dedup key already exists")

const maxSlugAttempts = 20

// FindProductByDedupKey returns the product and its current deal (nil when
// the deal was swept or never created).
func (d *DB) FindProductByDedupKey(ctx context.Context, dedupKey string) (*domain.Product, *domain.Deal, error) {
	var p domain.Product
	var createdAt, updatedAt string
	err := d.Pool.QueryRowContext(ctx, `
SELECT id, name, slug, brand, category, merchant, url, image_url, dedup_key, is_active, created_at, updated_at
FROM products
WHERE dedup_key = ?;`, dedupKey).Scan(
		&p.ID, &p.Name, &p.Slug, &p.Brand, &p.Category, &p.Merchant, &p.URL,
		&p.ImageURL, &p.DedupKey, &p.IsActive, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find product: %w", err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	deal, err := d.dealForProduct(ctx, p.ID)
	if err != nil {
		return nil, nil, err
	}
	return &p, deal, nil
}

func (d *DB) dealForProduct(ctx context.Context, productID int64) (*domain.Deal, error) {
	var dl domain.Deal
	var lastSeen, createdAt, updatedAt string
	err := d.Pool.QueryRowContext(ctx, `
SELECT id, product_id, deal_price, original_price, discount_percent, discount_amount,
       volume_value, volume_unit, price_per_unit, score, verified_lowest,
       deal_quality_hot, community_hot, is_expired, votes, views,
       last_seen_at, created_at, updated_at
FROM deals
WHERE product_id = ?;`, productID).Scan(
		&dl.ID, &dl.ProductID, &dl.DealPrice, &dl.OriginalPrice, &dl.DiscountPercent,
		&dl.DiscountAmount, &dl.VolumeValue, &dl.VolumeUnit, &dl.PricePerUnit,
		&dl.Score, &dl.VerifiedLowest, &dl.DealQualityHot, &dl.CommunityHot,
		&dl.IsExpired, &dl.Votes, &dl.Views, &lastSeen, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find deal: %w", err)
	}
	dl.LastSeenAt, _ = time.Parse(time.RFC3339, lastSeen)
	dl.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	dl.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &dl, nil
}

// NewProduct is the write shape for a first sighting.
type NewProduct struct {
	Name     string
	Slug     string
	Brand    string
	Category string
	Merchant string
	URL      string
	ImageURL string
	DedupKey string
}

// NewDeal is the write shape for a deal create or price refresh.
type NewDeal struct {
	DealPrice       float64
	OriginalPrice   float64
	DiscountPercent int
	VolumeValue     float64
	VolumeUnit      string
	PricePerUnit    float64
	Score           int
	VerifiedLowest  bool
	DealQualityHot  bool
}

// CreateProductWithDeal inserts product, deal and the first price history row
// in one transaction. Slug collisions get a counter suffix; a dedup-key
// collision (a concurrent run won the race) surfaces as ErrDedupConflict so
// the caller can retry through the update path.
func (d *DB) CreateProductWithDeal(ctx context.Context, p NewProduct, dl NewDeal, now time.Time) (int64, error) {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	ts := now.UTC().Format(time.RFC3339)

	var productID int64
	slug := p.Slug
	for attempt := 1; ; attempt++ {
		res, err := tx.ExecContext(ctx, `
INSERT INTO products(name, slug, brand, category, merchant, url, image_url, dedup_key, is_active, created_at, updated_at)
VALUES(?,?,?,?,?,?,?,?,1,?,?);`,
			p.Name, slug, p.Brand, p.Category, p.Merchant, p.URL, p.ImageURL, p.DedupKey, ts, ts,
		)
		if err == nil {
			productID, _ = res.LastInsertId()
			break
		}
		if isUniqueViolation(err, "products.dedup_key") {
			return 0, ErrDedupConflict
		}
		if isUniqueViolation(err, "products.slug") && attempt < maxSlugAttempts {
			slug = fmt.Sprintf("%s-%d", p.Slug, attempt+1)
			continue
		}
		return 0, fmt.Errorf("insert product: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO deals(product_id, deal_price, original_price, discount_percent, discount_amount,
                  volume_value, volume_unit, price_per_unit, score, verified_lowest,
                  deal_quality_hot, last_seen_at, created_at, updated_at)
VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?);`,
		productID, dl.DealPrice, dl.OriginalPrice, dl.DiscountPercent,
		dl.OriginalPrice-dl.DealPrice, dl.VolumeValue, dl.VolumeUnit, dl.PricePerUnit,
		dl.Score, dl.VerifiedLowest, dl.DealQualityHot, ts, ts, ts,
	); err != nil {
		return 0, fmt.Errorf("insert deal: %w", err)
	}

	if err := appendHistoryTx(ctx, tx, productID, dl.DealPrice, now); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return productID, nil
}

// RefreshProductMeta updates mutable catalog fields on a re-sighting.
func (d *DB) RefreshProductMeta(ctx context.Context, productID int64, name, brand, imageURL string, now time.Time) error {
	_, err := d.Pool.ExecContext(ctx, `
UPDATE products
SET name = ?,
    brand = CASE WHEN ? != '' THEN ? ELSE brand END,
    image_url = CASE WHEN ? != '' THEN ? ELSE image_url END,
    is_active = 1,
    updated_at = ?
WHERE id = ?;`,
		name, brand, brand, imageURL, imageURL, now.UTC().Format(time.RFC3339), productID,
	)
	if err != nil {
		return fmt.Errorf("refresh product meta: %w", err)
	}
	return nil
}

func isUniqueViolation(err error, column string) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: "+column)
}
