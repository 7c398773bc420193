package importer

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"dealradar-engine/internal/config"
	"dealradar-engine/internal/domain"
	"dealradar-engine/internal/rank"
	"dealradar-engine/internal/scrape"
	"dealradar-engine/internal/scrape/types"
	"dealradar-engine/internal/scrape/util"
	"dealradar-engine/internal/store"
)

// Options are the per-run knobs exposed to the trigger interface.
type Options struct {
	Clean       bool // wipe the merchant before importing; never default-on
	MaxProducts int  // overrides source caps when > 0
	OnNewDeal   func()
}

// Run imports one merchant's active sources. Per-source failures are
// collected, never thrown: "0 imported, 12 errors" is a valid outcome. Only
// setup problems (nil store, concurrent run) return an error.
func (e *Engine) Run(ctx context.Context, cfg config.Config, merchant string, opts Options) (RunStats, error) {
	stats := RunStats{Merchant: merchant}
	if e.Store == nil {
		return stats, ErrNilStore
	}
	if !e.tryLock(merchant) {
		return stats, fmt.Errorf("%w: %s", ErrRunInProgress, merchant)
	}
	defer e.unlock(merchant)

	start := e.Now()
	defer func() { stats.Duration = time.Since(start) }()

	if opts.Clean {
		log.Printf("[import:%s] clean mode: wiping merchant data", merchant)
		if err := e.Store.CleanMerchant(ctx, merchant); err != nil {
			return stats, fmt.Errorf("clean merchant: %w", err)
		}
	}

	sources, err := e.Store.ListActiveSources(ctx, merchant)
	if err != nil {
		return stats, fmt.Errorf("list sources: %w", err)
	}
	if len(sources) == 0 {
		log.Printf("[import:%s] no active sources", merchant)
		return stats, nil
	}

	fetcher, ferr := e.Registry.Lookup(merchant)

	for _, src := range sources {
		// cooperative checkpoint: abort between sources, never mid-write
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if ferr != nil {
			// configuration error: this source can't run, the run continues
			stats.merge(SourceDetail{
				Merchant: merchant, URL: src.URL,
				Errors: []string{ferr.Error()},
			})
			continue
		}

		detail := e.runSource(ctx, cfg, fetcher, src, opts, &stats)
		stats.merge(detail)

		if err := e.Store.TouchLastScraped(ctx, src.ID, e.Now()); err != nil {
			log.Printf("[import:%s] touch source %d: %v", merchant, src.ID, err)
		}
	}

	log.Printf("[import:%s] done scraped=%d created=%d updated=%d priceChanges=%d skipped=%d errors=%d",
		merchant, stats.Scraped, stats.Created, stats.Updated, stats.PriceChanges, stats.Skipped, len(stats.Errors))
	return stats, nil
}

func (e *Engine) runSource(ctx context.Context, cfg config.Config, fetcher types.Fetcher, src domain.ScrapingSource, opts Options, stats *RunStats) SourceDetail {
	detail := SourceDetail{Merchant: src.Merchant, URL: src.URL}
	start := e.Now()
	defer func() { detail.Duration = time.Since(start) }()

	maxProducts := src.MaxProducts
	if opts.MaxProducts > 0 {
		maxProducts = opts.MaxProducts
	}
	if maxProducts <= 0 {
		maxProducts = cfg.Import.MaxProducts
	}

	fctx, cancel := context.WithTimeout(ctx, cfg.SourceTimeout())
	defer cancel()

	res, err := fetcher.Fetch(fctx, src, types.FetchConfig{
		Headless:             merchantHeadless(cfg, src.Merchant),
		DelayBetweenRequests: cfg.RequestDelay(),
		MaxProducts:          maxProducts,
	})
	if err != nil {
		// whole-page failure is a hard failure for this source only
		detail.Errors = append(detail.Errors, fmt.Sprintf("fetch %s: %v", src.URL, err))
		return detail
	}
	detail.Success = true
	detail.Scraped = len(res.Candidates)
	detail.Errors = append(detail.Errors, res.Errors...)

	for _, cand := range res.Candidates {
		np, err := scrape.Normalize(cand, src.Merchant)
		if err != nil {
			detail.Errors = append(detail.Errors, fmt.Sprintf("normalize %q: %v", cand.Name, err))
			continue
		}
		np.Category = src.Category
		if np.VolumeValue > 0 {
			stats.WithVolume++
		}

		switch outcome, err := e.persist(ctx, cfg, np); {
		case err != nil:
			detail.Errors = append(detail.Errors, fmt.Sprintf("persist %q: %v", np.Name, err))
		case outcome == outcomeCreated:
			stats.Created++
			detail.Imported++
			if opts.OnNewDeal != nil {
				opts.OnNewDeal()
			}
		case outcome == outcomePriceChanged:
			stats.Updated++
			stats.PriceChanges++
			detail.Imported++
		case outcome == outcomeTouched:
			// alive, unchanged; nothing to count
		case outcome == outcomeSkipped:
			detail.Skipped++
		}
	}

	return detail
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeCreated
	outcomePriceChanged
	outcomeTouched
)

const priceEpsilon = 0.001

// persist decides the write for one normalized candidate: create, price
// update, keep-alive touch, or metadata-only skip.
func (e *Engine) persist(ctx context.Context, cfg config.Config, np scrape.NormalizedProduct) (outcome, error) {
	now := e.Now()
	discount := util.DiscountPercent(np.DealPrice, np.OriginalPrice)

	product, deal, err := e.Store.FindProductByDedupKey(ctx, np.DedupKey)
	if err != nil {
		return outcomeSkipped, err
	}

	minDiscount := cfg.Import.MinDiscountPercent
	if minDiscount <= 0 {
		minDiscount = 5
	}

	if discount < minDiscount {
		// not a deal: refresh catalog metadata, never write a Deal row
		if product != nil {
			if err := e.Store.RefreshProductMeta(ctx, product.ID, np.Name, np.Brand, np.ImageURL, now); err != nil {
				return outcomeSkipped, err
			}
		}
		return outcomeSkipped, nil
	}

	if product == nil {
		_, err := e.Store.CreateProductWithDeal(ctx, newProductOf(np), e.newDealOf(ctx, np, discount, 0), now)
		if err == store.ErrDedupConflict {
			// a near-simultaneous run created it first; take the update path
			product, deal, err = e.Store.FindProductByDedupKey(ctx, np.DedupKey)
			if err != nil || product == nil {
				return outcomeSkipped, fmt.Errorf("dedup conflict resolution: %w", err)
			}
			return e.persistExisting(ctx, np, discount, product, deal, now)
		}
		if err != nil {
			return outcomeSkipped, err
		}
		return outcomeCreated, nil
	}

	return e.persistExisting(ctx, np, discount, product, deal, now)
}

func (e *Engine) persistExisting(ctx context.Context, np scrape.NormalizedProduct, discount int, product *domain.Product, deal *domain.Deal, now time.Time) (outcome, error) {
	if err := e.Store.RefreshProductMeta(ctx, product.ID, np.Name, np.Brand, np.ImageURL, now); err != nil {
		return outcomeSkipped, err
	}

	if deal == nil {
		// swept since last sighting: re-discovery is a fresh create
		if err := e.Store.UpdateDealPrice(ctx, product.ID, e.newDealOf(ctx, np, discount, product.ID), now); err != nil {
			return outcomeSkipped, err
		}
		return outcomeCreated, nil
	}

	if math.Abs(deal.DealPrice-np.DealPrice) < priceEpsilon {
		// unchanged: keep it alive for the sweep, no redundant history row
		if err := e.Store.TouchLastSeen(ctx, product.ID, now); err != nil {
			return outcomeSkipped, err
		}
		return outcomeTouched, nil
	}

	if err := e.Store.UpdateDealPrice(ctx, product.ID, e.newDealOf(ctx, np, discount, product.ID), now); err != nil {
		return outcomeSkipped, err
	}
	return outcomePriceChanged, nil
}

func (e *Engine) newDealOf(ctx context.Context, np scrape.NormalizedProduct, discount int, productID int64) store.NewDeal {
	var history domain.PriceStats
	if productID > 0 {
		if st, err := e.Store.PriceStats(ctx, productID); err == nil {
			history = st
		}
	}

	out := e.Scorer.Score(rank.Input{
		DealPrice:       np.DealPrice,
		OriginalPrice:   np.OriginalPrice,
		DiscountPercent: discount,
		Brand:           np.Brand,
		History:         history,
	})

	return store.NewDeal{
		DealPrice:       np.DealPrice,
		OriginalPrice:   np.OriginalPrice,
		DiscountPercent: discount,
		VolumeValue:     np.VolumeValue,
		VolumeUnit:      np.VolumeUnit,
		PricePerUnit:    np.PricePerUnit,
		Score:           out.Score,
		VerifiedLowest:  out.VerifiedLowest,
		DealQualityHot:  out.Hot,
	}
}

func newProductOf(np scrape.NormalizedProduct) store.NewProduct {
	return store.NewProduct{
		Name:     np.Name,
		Slug:     np.Slug,
		Brand:    np.Brand,
		Category: np.Category,
		Merchant: np.Merchant,
		URL:      np.URL,
		ImageURL: np.ImageURL,
		DedupKey: np.DedupKey,
	}
}

func merchantHeadless(cfg config.Config, merchant string) bool {
	for _, m := range cfg.Merchants {
		if m.Name == merchant {
			return m.Headless
		}
	}
	return false
}

// RunAll imports every enabled merchant with bounded parallelism. Distinct
// merchants only run concurrently; the per-merchant lock still serializes
// anything targeting one site.
func (e *Engine) RunAll(ctx context.Context, cfg config.Config, opts Options) []RunStats {
	limit := cfg.Import.MaxParallelMerchants
	if limit <= 0 {
		limit = 2
	}

	var g errgroup.Group
	g.SetLimit(limit)

	var mu sync.Mutex
	var all []RunStats

	for _, m := range cfg.Merchants {
		if !m.Enabled {
			continue
		}
		merchant := m.Name
		g.Go(func() error {
			stats, err := e.Run(ctx, cfg, merchant, opts)
			if err != nil {
				log.Printf("[import:%s] error: %v", merchant, err)
				stats.Errors = append(stats.Errors, err.Error())
			}
			mu.Lock()
			all = append(all, stats)
			mu.Unlock()
			return nil // best-effort: don't cancel siblings
		})
	}
	_ = g.Wait()

	return all
}
