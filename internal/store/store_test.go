package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"dealradar-engine/internal/domain"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := Migrate(db.Pool); err != nil {
		t.Fatal(err)
	}
	return db
}

func testProduct(key string) NewProduct {
	return NewProduct{
		Name:     "Sérum Vitamine C 30ml",
		Slug:     "nocibe-serum-vitamine-c-30ml",
		Brand:    "The Ordinary",
		Merchant: "nocibe",
		URL:      "https://www.nocibe.fr/p/serum-vitamine-c",
		DedupKey: key,
	}
}

func testDeal(price float64) NewDeal {
	return NewDeal{
		DealPrice:       price,
		OriginalPrice:   39.99,
		DiscountPercent: 38,
		VolumeValue:     30,
		VolumeUnit:      "ml",
		PricePerUnit:    price / 30 * 100,
		Score:           57,
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db := openTest(t)
	if err := Migrate(db.Pool); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestCreateAndFind(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	now := time.Now().UTC()

	id, err := db.CreateProductWithDeal(ctx, testProduct("nocibe:k1"), testDeal(24.99), now)
	if err != nil {
		t.Fatal(err)
	}

	p, d, err := db.FindProductByDedupKey(ctx, "nocibe:k1")
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || d == nil {
		t.Fatal("expected product and deal")
	}
	if p.ID != id || d.ProductID != id {
		t.Errorf("ids disagree: product=%d deal.product=%d created=%d", p.ID, d.ProductID, id)
	}
	if d.DealPrice != 24.99 || d.DiscountPercent != 38 {
		t.Errorf("deal = %+v", d)
	}

	hist, err := db.History(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 1 || hist[0].Price != 24.99 {
		t.Errorf("expected one history row at 24.99, got %+v", hist)
	}
}

func TestFindMissing(t *testing.T) {
	db := openTest(t)
	p, d, err := db.FindProductByDedupKey(context.Background(), "nope")
	if err != nil || p != nil || d != nil {
		t.Errorf("expected nil,nil,nil got %v %v %v", p, d, err)
	}
}

func TestSlugCollisionGetsSuffix(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := db.CreateProductWithDeal(ctx, testProduct("nocibe:k1"), testDeal(24.99), now); err != nil {
		t.Fatal(err)
	}
	// same proposed slug, different listing
	if _, err := db.CreateProductWithDeal(ctx, testProduct("nocibe:k2"), testDeal(19.99), now); err != nil {
		t.Fatal(err)
	}

	p, _, err := db.FindProductByDedupKey(ctx, "nocibe:k2")
	if err != nil || p == nil {
		t.Fatal(err)
	}
	if p.Slug != "nocibe-serum-vitamine-c-30ml-2" {
		t.Errorf("slug = %q, want counter suffix", p.Slug)
	}
}

func TestDedupConflict(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := db.CreateProductWithDeal(ctx, testProduct("nocibe:k1"), testDeal(24.99), now); err != nil {
		t.Fatal(err)
	}
	_, err := db.CreateProductWithDeal(ctx, testProduct("nocibe:k1"), testDeal(24.99), now)
	if !errors.Is(err, ErrDedupConflict) {
		t.Errorf("expected ErrDedupConflict, got %v", err)
	}
}

func TestUpdateDealPriceAppendsHistory(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	day1 := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	id, err := db.CreateProductWithDeal(ctx, testProduct("nocibe:k1"), testDeal(24.99), day1)
	if err != nil {
		t.Fatal(err)
	}

	if err := db.UpdateDealPrice(ctx, id, testDeal(19.99), day2); err != nil {
		t.Fatal(err)
	}

	hist, err := db.History(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(hist))
	}
	if hist[1].Price != 19.99 || hist[1].ObservedOn != "2026-08-26" {
		t.Errorf("latest observation = %+v", hist[1])
	}

	// second change the same day overwrites that day's row
	if err := db.UpdateDealPrice(ctx, id, testDeal(17.99), day2.Add(2*time.Hour)); err != nil {
		t.Fatal(err)
	}
	hist, _ = db.History(ctx, id)
	if len(hist) != 2 {
		t.Fatalf("same-day change must not duplicate rows, got %d", len(hist))
	}
	if hist[1].Price != 17.99 {
		t.Errorf("same-day row should hold latest price, got %v", hist[1].Price)
	}
}

func TestTouchLastSeenNoHistory(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	day1 := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	id, err := db.CreateProductWithDeal(ctx, testProduct("nocibe:k1"), testDeal(24.99), day1)
	if err != nil {
		t.Fatal(err)
	}

	later := day1.AddDate(0, 0, 2)
	if err := db.TouchLastSeen(ctx, id, later); err != nil {
		t.Fatal(err)
	}

	_, d, err := db.FindProductByDedupKey(ctx, "nocibe:k1")
	if err != nil || d == nil {
		t.Fatal(err)
	}
	if !d.LastSeenAt.Equal(later) {
		t.Errorf("last seen = %v, want %v", d.LastSeenAt, later)
	}

	hist, _ := db.History(ctx, id)
	if len(hist) != 1 {
		t.Errorf("touch must not append history, got %d rows", len(hist))
	}
}

func TestSweepExpiredIdempotent(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	old := time.Now().UTC().AddDate(0, 0, -5)

	id, err := db.CreateProductWithDeal(ctx, testProduct("nocibe:k1"), testDeal(24.99), old)
	if err != nil {
		t.Fatal(err)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -3)
	n, err := db.SweepExpired(ctx, cutoff)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("first sweep deleted %d, want 1", n)
	}

	n, err = db.SweepExpired(ctx, cutoff)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("second sweep deleted %d, want 0", n)
	}

	// catalog identity survives, the deal does not
	p, d, err := db.FindProductByDedupKey(ctx, "nocibe:k1")
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || d != nil {
		t.Errorf("expected product without deal, got p=%v d=%v", p, d)
	}
	if p.IsActive {
		t.Error("swept product should be inactive")
	}

	hist, _ := db.History(ctx, id)
	if len(hist) != 1 {
		t.Errorf("sweep must not delete history, got %d rows", len(hist))
	}
}

func TestSweepSparesRecentlySeen(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := db.CreateProductWithDeal(ctx, testProduct("nocibe:k1"), testDeal(24.99), now); err != nil {
		t.Fatal(err)
	}

	n, err := db.SweepExpired(ctx, now.AddDate(0, 0, -3))
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("sweep deleted a live deal")
	}
}

func TestSourcesUpsertAndOrdering(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	seed := []domain.ScrapingSource{
		{URL: "https://a.example/1", Merchant: "nocibe", Priority: 5, IsActive: true},
		{URL: "https://a.example/2", Merchant: "nocibe", Priority: 10, IsActive: true},
		{URL: "https://a.example/3", Merchant: "nocibe", Priority: 1, IsActive: false},
		{URL: "https://b.example/1", Merchant: "sephora", Priority: 7, IsActive: true},
	}
	for _, s := range seed {
		if _, err := db.UpsertSource(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	active, err := db.ListActiveSources(ctx, "nocibe")
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 2 {
		t.Fatalf("active sources = %d, want 2", len(active))
	}
	if active[0].Priority != 10 || active[1].Priority != 5 {
		t.Errorf("wrong priority order: %+v", active)
	}

	// upsert by URL updates in place
	if _, err := db.UpsertSource(ctx, domain.ScrapingSource{URL: "https://a.example/1", Merchant: "nocibe", Priority: 20, IsActive: true}); err != nil {
		t.Fatal(err)
	}
	all, _ := db.ListSources(ctx)
	if len(all) != 4 {
		t.Errorf("upsert duplicated a row: %d", len(all))
	}
}

func TestPriceStats(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	day1 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	id, err := db.CreateProductWithDeal(ctx, testProduct("nocibe:k1"), testDeal(30), day1)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AppendPriceHistory(ctx, id, 20, day1.AddDate(0, 0, 7)); err != nil {
		t.Fatal(err)
	}
	if err := db.AppendPriceHistory(ctx, id, 25, day1.AddDate(0, 0, 14)); err != nil {
		t.Fatal(err)
	}

	st, err := db.PriceStats(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if st.Count != 3 {
		t.Errorf("count = %d, want 3", st.Count)
	}
	if st.Lowest != 20 || st.Highest != 30 {
		t.Errorf("lowest/highest = %v/%v", st.Lowest, st.Highest)
	}
	if st.CoverageDays != 15 {
		t.Errorf("coverage = %d, want 15", st.CoverageDays)
	}
}

func TestCleanMerchant(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := db.CreateProductWithDeal(ctx, testProduct("nocibe:k1"), testDeal(24.99), now); err != nil {
		t.Fatal(err)
	}
	other := testProduct("sephora:k1")
	other.Merchant = "sephora"
	other.Slug = "sephora-serum"
	if _, err := db.CreateProductWithDeal(ctx, other, testDeal(22), now); err != nil {
		t.Fatal(err)
	}

	if err := db.CleanMerchant(ctx, "nocibe"); err != nil {
		t.Fatal(err)
	}

	p, _, _ := db.FindProductByDedupKey(ctx, "nocibe:k1")
	if p != nil {
		t.Error("nocibe product should be gone")
	}
	p, d, _ := db.FindProductByDedupKey(ctx, "sephora:k1")
	if p == nil || d == nil {
		t.Error("sephora product should survive")
	}
}
