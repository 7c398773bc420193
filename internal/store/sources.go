package store

import (
	"context"
	"fmt"
	"time"

	"dealradar-engine/internal/domain"
)

// ListActiveSources returns a merchant's active sources, highest priority
// first. Pass merchant="" for all merchants.
func (d *DB) ListActiveSources(ctx context.Context, merchant string) ([]domain.ScrapingSource, error) {
	query := `
SELECT id, url, merchant, category, priority, is_active, max_products, last_scraped
FROM scraping_sources
WHERE is_active = 1`
	args := []any{}
	if merchant != "" {
		query += ` AND merchant = ?`
		args = append(args, merchant)
	}
	query += `
ORDER BY priority DESC, id ASC;`

	return d.querySources(ctx, query, args...)
}

// ListSources returns every source row, for the seeding/ops surface.
func (d *DB) ListSources(ctx context.Context) ([]domain.ScrapingSource, error) {
	return d.querySources(ctx, `
SELECT id, url, merchant, category, priority, is_active, max_products, last_scraped
FROM scraping_sources
ORDER BY merchant ASC, priority DESC, id ASC;`)
}

func (d *DB) querySources(ctx context.Context, query string, args ...any) ([]domain.ScrapingSource, error) {
	rows, err := d.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []domain.ScrapingSource
	for rows.Next() {
		var s domain.ScrapingSource
		var lastScraped string
		if err := rows.Scan(&s.ID, &s.URL, &s.Merchant, &s.Category, &s.Priority, &s.IsActive, &s.MaxProducts, &lastScraped); err != nil {
			return nil, err
		}
		if lastScraped != "" {
			s.LastScraped, _ = time.Parse(time.RFC3339, lastScraped)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpsertSource inserts or updates a source keyed by URL. The seeding script
// and the /sources endpoint both land here.
func (d *DB) UpsertSource(ctx context.Context, s domain.ScrapingSource) (int64, error) {
	res, err := d.Pool.ExecContext(ctx, `
INSERT INTO scraping_sources(url, merchant, category, priority, is_active, max_products)
VALUES(?,?,?,?,?,?)
ON CONFLICT(url) DO UPDATE SET
  merchant = excluded.merchant,
  category = excluded.category,
  priority = excluded.priority,
  is_active = excluded.is_active,
  max_products = excluded.max_products;`,
		s.URL, s.Merchant, s.Category, s.Priority, s.IsActive, s.MaxProducts,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert source: %w", err)
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// TouchLastScraped stamps a source after a run so selection can skew towards
// stale sources later.
func (d *DB) TouchLastScraped(ctx context.Context, sourceID int64, now time.Time) error {
	_, err := d.Pool.ExecContext(ctx, `
UPDATE scraping_sources
SET last_scraped = ?
WHERE id = ?;`,
		now.UTC().Format(time.RFC3339), sourceID,
	)
	if err != nil {
		return fmt.Errorf("touch last scraped: %w", err)
	}
	return nil
}
