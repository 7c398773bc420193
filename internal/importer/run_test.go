package importer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"dealradar-engine/internal/config"
	"dealradar-engine/internal/domain"
	"dealradar-engine/internal/rank"
	"dealradar-engine/internal/scrape/types"
	"dealradar-engine/internal/store"
)

type fakeFetcher struct {
	fetch func(ctx context.Context, src domain.ScrapingSource, fc types.FetchConfig) (types.Result, error)
}

func (f fakeFetcher) Name() string { return "fake" }

func (f fakeFetcher) Fetch(ctx context.Context, src domain.ScrapingSource, fc types.FetchConfig) (types.Result, error) {
	return f.fetch(ctx, src, fc)
}

type fakeRegistry struct {
	f   types.Fetcher
	err error
}

func (r fakeRegistry) Lookup(string) (types.Fetcher, error) { return r.f, r.err }

func testCfg() config.Config {
	var cfg config.Config
	cfg.Import.MinDiscountPercent = 5
	cfg.Import.MaxProducts = 100
	cfg.Import.SourceTimeoutSeconds = 10
	return cfg
}

func newTestEngine(t *testing.T, fetch func(ctx context.Context, src domain.ScrapingSource, fc types.FetchConfig) (types.Result, error)) (*Engine, *store.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.Migrate(db.Pool); err != nil {
		t.Fatal(err)
	}
	if _, err := db.UpsertSource(context.Background(), domain.ScrapingSource{
		URL: "https://www.nocibe.fr/soins", Merchant: "nocibe", Priority: 1, IsActive: true,
	}); err != nil {
		t.Fatal(err)
	}

	e := New(db, fakeRegistry{f: fakeFetcher{fetch: fetch}}, rank.DealScorer{Cfg: testCfg()})
	e.Now = func() time.Time { return time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC) }
	return e, db
}

func cand(name, price, orig string) types.Candidate {
	return types.Candidate{
		Name:        name,
		PriceRaw:    price,
		OriginalRaw: orig,
		URL:         "https://www.nocibe.fr/p/" + name,
		Merchant:    "nocibe",
	}
}

func fixedResult(cands ...types.Candidate) func(context.Context, domain.ScrapingSource, types.FetchConfig) (types.Result, error) {
	return func(context.Context, domain.ScrapingSource, types.FetchConfig) (types.Result, error) {
		return types.Result{Success: true, Candidates: cands}, nil
	}
}

func TestRunCreatesDeals(t *testing.T) {
	e, db := newTestEngine(t, fixedResult(
		cand("serum-30ml", "24,99 €", "39,99 €"),
		cand("palette", "15,00 €", "30,00 €"),
	))

	var announced int
	stats, err := e.Run(context.Background(), testCfg(), "nocibe", Options{OnNewDeal: func() { announced++ }})
	if err != nil {
		t.Fatal(err)
	}

	if stats.Scraped != 2 || stats.Created != 2 {
		t.Errorf("scraped=%d created=%d, want 2/2", stats.Scraped, stats.Created)
	}
	if stats.WithVolume != 1 {
		t.Errorf("withVolume = %d, want 1 (only the serum names a volume)", stats.WithVolume)
	}
	if announced != 2 {
		t.Errorf("OnNewDeal fired %d times, want 2", announced)
	}

	p, d, err := db.FindProductByDedupKey(context.Background(), "nocibe:https://www.nocibe.fr/p/serum-30ml")
	if err != nil || p == nil || d == nil {
		t.Fatalf("serum not persisted: %v %v %v", p, d, err)
	}
	if d.DealPrice != 24.99 || d.DiscountPercent != 38 {
		t.Errorf("deal = price %v discount %d", d.DealPrice, d.DiscountPercent)
	}
}

func TestRunUnchangedTouchesOnly(t *testing.T) {
	e, db := newTestEngine(t, fixedResult(cand("serum-30ml", "24,99 €", "39,99 €")))
	cfg := testCfg()
	ctx := context.Background()

	if _, err := e.Run(ctx, cfg, "nocibe", Options{}); err != nil {
		t.Fatal(err)
	}

	// same price a day later
	e.Now = func() time.Time { return time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC) }
	stats, err := e.Run(ctx, cfg, "nocibe", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Created != 0 || stats.Updated != 0 || stats.PriceChanges != 0 {
		t.Errorf("unchanged re-scrape wrote: %+v", stats)
	}

	p, d, _ := db.FindProductByDedupKey(ctx, "nocibe:https://www.nocibe.fr/p/serum-30ml")
	if p == nil || d == nil {
		t.Fatal("product lost")
	}
	if d.LastSeenAt.Day() != 26 {
		t.Errorf("last seen not touched: %v", d.LastSeenAt)
	}
	hist, _ := db.History(ctx, p.ID)
	if len(hist) != 1 {
		t.Errorf("unchanged price must not append history, got %d rows", len(hist))
	}
}

func TestRunPriceDropAppendsHistory(t *testing.T) {
	price := "24,99 €"
	e, db := newTestEngine(t, func(context.Context, domain.ScrapingSource, types.FetchConfig) (types.Result, error) {
		return types.Result{Success: true, Candidates: []types.Candidate{cand("serum-30ml", price, "39,99 €")}}, nil
	})
	cfg := testCfg()
	ctx := context.Background()

	if _, err := e.Run(ctx, cfg, "nocibe", Options{}); err != nil {
		t.Fatal(err)
	}

	price = "19,99 €"
	e.Now = func() time.Time { return time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC) }
	stats, err := e.Run(ctx, cfg, "nocibe", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if stats.PriceChanges != 1 || stats.Updated != 1 || stats.Created != 0 {
		t.Errorf("stats = %+v, want one price change", stats)
	}

	p, d, _ := db.FindProductByDedupKey(ctx, "nocibe:https://www.nocibe.fr/p/serum-30ml")
	if d == nil || d.DealPrice != 19.99 {
		t.Fatalf("deal = %+v, want 19.99", d)
	}
	if d.DiscountPercent != 50 {
		t.Errorf("discount = %d, want recomputed 50", d.DiscountPercent)
	}
	hist, _ := db.History(ctx, p.ID)
	if len(hist) != 2 {
		t.Errorf("expected 2 history rows, got %d", len(hist))
	}
}

func TestRunCollectsBadTiles(t *testing.T) {
	var cands []types.Candidate
	for i := 0; i < 8; i++ {
		cands = append(cands, cand(fmt.Sprintf("item-%d", i), "10,00 €", "20,00 €"))
	}
	cands = append(cands, cand("broken-a", "", ""))
	cands = append(cands, cand("broken-b", "n/a", ""))

	e, _ := newTestEngine(t, fixedResult(cands...))
	stats, err := e.Run(context.Background(), testCfg(), "nocibe", Options{})
	if err != nil {
		t.Fatal(err)
	}

	if stats.Scraped != 10 {
		t.Errorf("scraped = %d, want 10", stats.Scraped)
	}
	if stats.Created != 8 {
		t.Errorf("created = %d, want 8", stats.Created)
	}
	if len(stats.Errors) < 2 {
		t.Errorf("expected the two broken tiles in errors, got %v", stats.Errors)
	}
}

func TestRunFetchFailureIsSoft(t *testing.T) {
	e, _ := newTestEngine(t, func(context.Context, domain.ScrapingSource, types.FetchConfig) (types.Result, error) {
		return types.Result{}, errors.New("HTTP 403")
	})

	stats, err := e.Run(context.Background(), testCfg(), "nocibe", Options{})
	if err != nil {
		t.Fatalf("fetch failure must not fail the run: %v", err)
	}
	if stats.Created != 0 {
		t.Errorf("created = %d, want 0", stats.Created)
	}
	if len(stats.Errors) == 0 {
		t.Error("fetch failure must be reported in stats")
	}
}

func TestRunMissingAdapter(t *testing.T) {
	e, _ := newTestEngine(t, fixedResult())
	e.Registry = fakeRegistry{err: errors.New("no adapter for merchant douglas")}

	stats, err := e.Run(context.Background(), testCfg(), "nocibe", Options{})
	if err != nil {
		t.Fatalf("missing adapter must not fail the run: %v", err)
	}
	if len(stats.Errors) == 0 {
		t.Error("missing adapter must be reported per source")
	}
}

func TestRunRejectsConcurrentMerchant(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	e, _ := newTestEngine(t, func(context.Context, domain.ScrapingSource, types.FetchConfig) (types.Result, error) {
		close(started)
		<-release
		return types.Result{Success: true}, nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := e.Run(context.Background(), testCfg(), "nocibe", Options{})
		done <- err
	}()
	<-started

	_, err := e.Run(context.Background(), testCfg(), "nocibe", Options{})
	if !errors.Is(err, ErrRunInProgress) {
		t.Errorf("expected ErrRunInProgress, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
}

func TestRunMinDiscountFloor(t *testing.T) {
	// 2% off is not a deal
	e, db := newTestEngine(t, fixedResult(cand("mascara", "9,80 €", "10,00 €")))

	stats, err := e.Run(context.Background(), testCfg(), "nocibe", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Created != 0 || stats.Skipped != 1 {
		t.Errorf("stats = %+v, want skipped only", stats)
	}

	p, _, _ := db.FindProductByDedupKey(context.Background(), "nocibe:https://www.nocibe.fr/p/mascara")
	if p != nil {
		t.Error("below-floor candidate must not create a product")
	}
}

func TestRunCleanWipesMerchant(t *testing.T) {
	result := fixedResult(cand("serum-30ml", "24,99 €", "39,99 €"))
	e, db := newTestEngine(t, result)
	ctx := context.Background()

	if _, err := e.Run(ctx, testCfg(), "nocibe", Options{}); err != nil {
		t.Fatal(err)
	}

	// source dried up; clean run leaves nothing behind
	e.Registry = fakeRegistry{f: fakeFetcher{fetch: fixedResult()}}
	if _, err := e.Run(ctx, testCfg(), "nocibe", Options{Clean: true}); err != nil {
		t.Fatal(err)
	}

	p, _, _ := db.FindProductByDedupKey(ctx, "nocibe:https://www.nocibe.fr/p/serum-30ml")
	if p != nil {
		t.Error("clean run should have wiped the merchant")
	}
}

func TestSweepRediscoveryCreatesFreshDeal(t *testing.T) {
	e, db := newTestEngine(t, fixedResult(cand("serum-30ml", "24,99 €", "39,99 €")))
	cfg := testCfg()
	ctx := context.Background()

	if _, err := e.Run(ctx, cfg, "nocibe", Options{}); err != nil {
		t.Fatal(err)
	}

	// five days pass unseen; the sweep expires the deal
	e.Now = func() time.Time { return time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC) }
	n, err := e.SweepExpired(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("sweep deleted %d, want 1", n)
	}

	// the product shows up again
	stats, err := e.Run(ctx, cfg, "nocibe", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Created != 1 {
		t.Errorf("re-discovery should count as created, got %+v", stats)
	}

	p, d, _ := db.FindProductByDedupKey(ctx, "nocibe:https://www.nocibe.fr/p/serum-30ml")
	if p == nil || d == nil {
		t.Fatal("re-discovered deal missing")
	}
	if !p.IsActive {
		t.Error("re-discovered product should be active again")
	}
	hist, _ := db.History(ctx, p.ID)
	if len(hist) != 2 {
		t.Errorf("history rows = %d, want original plus re-discovery", len(hist))
	}
}
