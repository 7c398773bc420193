package store

import (
	"context"
	"fmt"
	"time"
)

// UpdateDealPrice applies a price change: deal row refresh plus history
// append, one transaction, so a changed price never lands without its
// history row.
func (d *DB) UpdateDealPrice(ctx context.Context, productID int64, dl NewDeal, now time.Time) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	ts := now.UTC().Format(time.RFC3339)

	res, err := tx.ExecContext(ctx, `
UPDATE deals
SET deal_price = ?, original_price = ?, discount_percent = ?, discount_amount = ?,
    volume_value = ?, volume_unit = ?, price_per_unit = ?,
    score = ?, verified_lowest = ?, deal_quality_hot = ?,
    is_expired = 0, last_seen_at = ?, updated_at = ?
WHERE product_id = ?;`,
		dl.DealPrice, dl.OriginalPrice, dl.DiscountPercent, dl.OriginalPrice-dl.DealPrice,
		dl.VolumeValue, dl.VolumeUnit, dl.PricePerUnit,
		dl.Score, dl.VerifiedLowest, dl.DealQualityHot, ts, ts, productID,
	)
	if err != nil {
		return fmt.Errorf("update deal: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		// deal was swept since the lookup; recreate it
		if _, err := tx.ExecContext(ctx, `
INSERT INTO deals(product_id, deal_price, original_price, discount_percent, discount_amount,
                  volume_value, volume_unit, price_per_unit, score, verified_lowest,
                  deal_quality_hot, last_seen_at, created_at, updated_at)
VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?);`,
			productID, dl.DealPrice, dl.OriginalPrice, dl.DiscountPercent,
			dl.OriginalPrice-dl.DealPrice, dl.VolumeValue, dl.VolumeUnit, dl.PricePerUnit,
			dl.Score, dl.VerifiedLowest, dl.DealQualityHot, ts, ts, ts,
		); err != nil {
			return fmt.Errorf("recreate deal: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
UPDATE products SET is_active = 1, updated_at = ? WHERE id = ?;`, ts, productID); err != nil {
			return fmt.Errorf("reactivate product: %w", err)
		}
	}

	if err := appendHistoryTx(ctx, tx, productID, dl.DealPrice, now); err != nil {
		return err
	}

	return tx.Commit()
}

// TouchLastSeen keeps an unchanged deal alive for the expiry sweep. No
// history row: unchanged prices don't get redundant observations.
func (d *DB) TouchLastSeen(ctx context.Context, productID int64, now time.Time) error {
	_, err := d.Pool.ExecContext(ctx, `
UPDATE deals
SET last_seen_at = ?, is_expired = 0
WHERE product_id = ?;`,
		now.UTC().Format(time.RFC3339), productID,
	)
	if err != nil {
		return fmt.Errorf("touch last seen: %w", err)
	}
	return nil
}

// SweepExpired deletes deals unseen since the cutoff. Idempotent; the WHERE
// re-evaluates at delete time, so a concurrent TouchLastSeen wins the race.
// Products stay (catalog identity survives), their is_active flag drops.
func (d *DB) SweepExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	ts := cutoff.UTC().Format(time.RFC3339)

	if _, err := d.Pool.ExecContext(ctx, `
UPDATE products
SET is_active = 0
WHERE id IN (SELECT product_id FROM deals WHERE last_seen_at < ?);`, ts); err != nil {
		return 0, fmt.Errorf("sweep deactivate products: %w", err)
	}

	res, err := d.Pool.ExecContext(ctx, `
DELETE FROM deals
WHERE last_seen_at < ?;`, ts)
	if err != nil {
		return 0, fmt.Errorf("sweep deals: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// CleanMerchant wipes everything imported for one merchant. Used for full
// re-seeds only; callers must opt in explicitly.
func (d *DB) CleanMerchant(ctx context.Context, merchant string) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// deals and price_history cascade from products
	if _, err := tx.ExecContext(ctx, `
DELETE FROM products WHERE merchant = ?;`, merchant); err != nil {
		return fmt.Errorf("clean merchant %s: %w", merchant, err)
	}

	return tx.Commit()
}
