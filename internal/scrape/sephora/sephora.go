package sephora

import (
	"context"
	"fmt"
	"time"

	"dealradar-engine/internal/domain"
	"dealradar-engine/internal/scrape/types"
	"dealradar-engine/internal/scrape/util"

	"github.com/chromedp/chromedp"
)

const Merchant = "sephora"

// Scraper renders the catalog in a headless browser before extracting tiles:
// the grid is filled in client-side, so a plain GET sees an empty page.
type Scraper struct {
	limiter *util.MerchantLimiter
}

func New(limiter *util.MerchantLimiter) *Scraper {
	return &Scraper{limiter: limiter}
}

func (s *Scraper) Name() string { return Merchant }

type tile struct {
	Name     string `json:"name"`
	Brand    string `json:"brand"`
	Price    string `json:"price"`
	OldPrice string `json:"oldPrice"`
	Badge    string `json:"badge"`
	Image    string `json:"image"`
	Href     string `json:"href"`
}

const extractTiles = `
(function() {
  return Array.from(document.querySelectorAll(".product-tile")).map(function(t) {
    var q = function(sel, attr) {
      var el = t.querySelector(sel);
      if (!el) return "";
      return attr ? (el.getAttribute(attr) || "") : el.innerText;
    };
    return {
      name: q(".product-title"),
      brand: q(".product-brand"),
      price: q(".product-price .price-sales"),
      oldPrice: q(".product-price .price-standard"),
      badge: q(".product-flag"),
      image: q("img", "src"),
      href: q("a", "href")
    };
  });
})()
`

func (s *Scraper) Fetch(ctx context.Context, src domain.ScrapingSource, cfg types.FetchConfig) (types.Result, error) {
	start := time.Now()
	res := types.Result{}

	if err := s.limiter.Wait(ctx, Merchant, cfg.DelayBetweenRequests); err != nil {
		return res, err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	navCtx, cancelNav := context.WithTimeout(browserCtx, 60*time.Second)
	defer cancelNav()

	var tiles []tile
	err := chromedp.Run(navCtx,
		chromedp.Navigate(src.URL),
		chromedp.WaitReady(".product-tile", chromedp.ByQuery),
		chromedp.Evaluate(extractTiles, &tiles),
	)
	if err != nil {
		return res, fmt.Errorf("sephora headless fetch: %w", err)
	}

	for i, t := range tiles {
		if cfg.MaxProducts > 0 && len(res.Candidates) >= cfg.MaxProducts {
			break
		}
		name := util.CleanText(t.Name)
		price := util.CleanText(t.Price)
		if name == "" || price == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("tile %d: missing name or price", i))
			continue
		}
		if t.Href == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("tile %d (%s): missing link", i, name))
			continue
		}

		res.Candidates = append(res.Candidates, types.Candidate{
			Name:          name,
			PriceRaw:      price,
			OriginalRaw:   util.CleanText(t.OldPrice),
			DiscountBadge: util.CleanText(t.Badge),
			Brand:         util.CleanText(t.Brand),
			ImageURL:      t.Image,
			URL:           t.Href,
			Merchant:      Merchant,
		})
	}

	res.Success = true
	res.Duration = time.Since(start)
	return res, nil
}
