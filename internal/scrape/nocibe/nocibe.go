package nocibe

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dealradar-engine/internal/domain"
	"dealradar-engine/internal/scrape/types"
	"dealradar-engine/internal/scrape/util"

	"github.com/PuerkitoBio/goquery"
)

const Merchant = "nocibe"

type Scraper struct {
	hc      *http.Client
	limiter *util.MerchantLimiter
}

func New(limiter *util.MerchantLimiter) *Scraper {
	return &Scraper{
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: limiter,
	}
}

func (s *Scraper) Name() string { return Merchant }

func (s *Scraper) Fetch(ctx context.Context, src domain.ScrapingSource, cfg types.FetchConfig) (types.Result, error) {
	start := time.Now()
	res := types.Result{}

	if err := s.limiter.Wait(ctx, Merchant, cfg.DelayBetweenRequests); err != nil {
		return res, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return res, fmt.Errorf("nocibe request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")

	resp, err := s.hc.Do(req)
	if err != nil {
		return res, fmt.Errorf("nocibe get catalog: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return res, fmt.Errorf("nocibe catalog status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return res, fmt.Errorf("nocibe parse catalog html: %w", err)
	}

	doc.Find("div.product-tile").EachWithBreak(func(i int, tile *goquery.Selection) bool {
		if cfg.MaxProducts > 0 && len(res.Candidates) >= cfg.MaxProducts {
			return false
		}

		name := util.CleanText(tile.Find(".product-tile__name").First().Text())
		price := util.CleanText(tile.Find(".product-tile__price .price-sales").First().Text())
		if name == "" || price == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("tile %d: missing name or price", i))
			return true
		}

		href, _ := tile.Find("a[href]").First().Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("tile %d (%s): missing link", i, name))
			return true
		}
		if strings.HasPrefix(href, "/") {
			href = baseOf(src.URL) + href
		}

		img, _ := tile.Find("img").First().Attr("src")

		res.Candidates = append(res.Candidates, types.Candidate{
			Name:          name,
			PriceRaw:      price,
			OriginalRaw:   util.CleanText(tile.Find(".product-tile__price .price-standard").First().Text()),
			DiscountBadge: util.CleanText(tile.Find(".product-tile__badge").First().Text()),
			Brand:         util.CleanText(tile.Find(".product-tile__brand").First().Text()),
			ImageURL:      strings.TrimSpace(img),
			URL:           href,
			Merchant:      Merchant,
		})
		return true
	})

	res.Success = true
	res.Duration = time.Since(start)
	return res, nil
}

func baseOf(rawURL string) string {
	// scheme://host, best effort
	if i := strings.Index(rawURL, "://"); i > 0 {
		rest := rawURL[i+3:]
		if j := strings.Index(rest, "/"); j > 0 {
			return rawURL[:i+3+j]
		}
	}
	return rawURL
}
