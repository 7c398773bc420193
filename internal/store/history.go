package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dealradar-engine/internal/domain"
)

// one history row per (product, day); a second observation the same day with
// a different price overwrites that day's row instead of duplicating it
func appendHistoryTx(ctx context.Context, tx *sql.Tx, productID int64, price float64, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO price_history(product_id, price, observed_on, created_at)
VALUES(?,?,?,?)
ON CONFLICT(product_id, observed_on) DO UPDATE SET price = excluded.price;`,
		productID, price, now.UTC().Format("2006-01-02"), now.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("append price history: %w", err)
	}
	return nil
}

// AppendPriceHistory records a standalone observation outside the deal write
// paths (e.g. backfills).
func (d *DB) AppendPriceHistory(ctx context.Context, productID int64, price float64, now time.Time) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := appendHistoryTx(ctx, tx, productID, price, now); err != nil {
		return err
	}
	return tx.Commit()
}

// PriceStats summarizes a product's observations for the scorer.
func (d *DB) PriceStats(ctx context.Context, productID int64) (domain.PriceStats, error) {
	var st domain.PriceStats
	var lowest, average, highest sql.NullFloat64
	var first, last sql.NullString

	err := d.Pool.QueryRowContext(ctx, `
SELECT COUNT(*), MIN(price), AVG(price), MAX(price), MIN(observed_on), MAX(observed_on)
FROM price_history
WHERE product_id = ?;`, productID).Scan(&st.Count, &lowest, &average, &highest, &first, &last)
	if err != nil {
		return st, fmt.Errorf("price stats: %w", err)
	}

	st.Lowest = lowest.Float64
	st.Average = average.Float64
	st.Highest = highest.Float64

	if first.Valid && last.Valid {
		f, errF := time.Parse("2006-01-02", first.String)
		l, errL := time.Parse("2006-01-02", last.String)
		if errF == nil && errL == nil {
			st.CoverageDays = int(l.Sub(f).Hours()/24) + 1
		}
	}
	return st, nil
}

// History returns a product's observations oldest first.
func (d *DB) History(ctx context.Context, productID int64) ([]domain.PricePoint, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT id, product_id, price, observed_on, created_at
FROM price_history
WHERE product_id = ?
ORDER BY observed_on ASC;`, productID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []domain.PricePoint
	for rows.Next() {
		var p domain.PricePoint
		var createdAt string
		if err := rows.Scan(&p.ID, &p.ProductID, &p.Price, &p.ObservedOn, &createdAt); err != nil {
			return nil, err
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}
