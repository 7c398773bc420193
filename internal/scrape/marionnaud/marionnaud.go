package marionnaud

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"dealradar-engine/internal/domain"
	"dealradar-engine/internal/scrape/types"
	"dealradar-engine/internal/scrape/util"

	"github.com/gocolly/colly/v2"
)

const Merchant = "marionnaud"

// Scraper drives a colly collector over a catalog page. The collector's
// LimitRule carries the inter-request delay so pagination hops stay spaced.
type Scraper struct{}

func New() *Scraper { return &Scraper{} }

func (s *Scraper) Name() string { return Merchant }

func (s *Scraper) Fetch(ctx context.Context, src domain.ScrapingSource, cfg types.FetchConfig) (types.Result, error) {
	start := time.Now()

	delay := cfg.DelayBetweenRequests
	if delay <= 0 {
		delay = time.Second
	}

	c := colly.NewCollector(
		colly.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"),
	)
	c.SetRequestTimeout(30 * time.Second)
	_ = c.Limit(&colly.LimitRule{
		DomainGlob: "*",
		Delay:      delay,
	})

	var (
		mu       sync.Mutex
		res      types.Result
		fetchErr error
	)

	c.OnHTML("article.product-item", func(e *colly.HTMLElement) {
		mu.Lock()
		defer mu.Unlock()
		if cfg.MaxProducts > 0 && len(res.Candidates) >= cfg.MaxProducts {
			return
		}

		name := util.CleanText(e.ChildText(".product-item__title"))
		price := util.CleanText(e.ChildText(".product-item__price .price--current"))
		if name == "" || price == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("tile at %s: missing name or price", e.Request.URL))
			return
		}

		href := strings.TrimSpace(e.ChildAttr("a[href]", "href"))
		if href == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("tile %q: missing link", name))
			return
		}

		res.Candidates = append(res.Candidates, types.Candidate{
			Name:          name,
			PriceRaw:      price,
			OriginalRaw:   util.CleanText(e.ChildText(".product-item__price .price--old")),
			DiscountBadge: util.CleanText(e.ChildText(".product-item__flag")),
			Brand:         util.CleanText(e.ChildText(".product-item__brand")),
			ImageURL:      strings.TrimSpace(e.ChildAttr("img", "src")),
			URL:           e.Request.AbsoluteURL(href),
			Merchant:      Merchant,
		})
	})

	c.OnError(func(r *colly.Response, err error) {
		mu.Lock()
		defer mu.Unlock()
		if fetchErr == nil {
			fetchErr = fmt.Errorf("marionnaud get %s: %w", r.Request.URL, err)
		}
	})

	if err := c.Visit(src.URL); err != nil {
		return res, fmt.Errorf("marionnaud visit: %w", err)
	}
	c.Wait()

	if fetchErr != nil {
		return res, fetchErr
	}

	res.Success = true
	res.Duration = time.Since(start)
	return res, nil
}
