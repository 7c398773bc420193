package importer

import (
	"context"
	"errors"
	"sync"
	"time"

	"dealradar-engine/internal/domain"
	"dealradar-engine/internal/rank"
	"dealradar-engine/internal/scrape/types"
	"dealradar-engine/internal/store"
)

var (
	ErrRunInProgress = errors.New("import already running for merchant")
	ErrNilStore      = errors.New("importer: nil store")
)

// Gateway is the slice of the persistence layer the importer needs. *store.DB
// satisfies it; tests inject an in-memory fake.
type Gateway interface {
	ListActiveSources(ctx context.Context, merchant string) ([]domain.ScrapingSource, error)
	FindProductByDedupKey(ctx context.Context, dedupKey string) (*domain.Product, *domain.Deal, error)
	CreateProductWithDeal(ctx context.Context, p store.NewProduct, d store.NewDeal, now time.Time) (int64, error)
	UpdateDealPrice(ctx context.Context, productID int64, d store.NewDeal, now time.Time) error
	TouchLastSeen(ctx context.Context, productID int64, now time.Time) error
	RefreshProductMeta(ctx context.Context, productID int64, name, brand, imageURL string, now time.Time) error
	PriceStats(ctx context.Context, productID int64) (domain.PriceStats, error)
	TouchLastScraped(ctx context.Context, sourceID int64, now time.Time) error
	SweepExpired(ctx context.Context, cutoff time.Time) (int64, error)
	CleanMerchant(ctx context.Context, merchant string) error
}

// FetcherRegistry resolves merchant ids to their adapters.
type FetcherRegistry interface {
	Lookup(merchant string) (types.Fetcher, error)
}

// Engine coordinates one import run: fetch, normalize, diff, persist.
type Engine struct {
	Store    Gateway
	Registry FetcherRegistry
	Scorer   rank.Scorer
	Now      func() time.Time // injectable clock

	mu      sync.Mutex
	running map[string]bool
}

func New(gw Gateway, reg FetcherRegistry, scorer rank.Scorer) *Engine {
	return &Engine{
		Store:    gw,
		Registry: reg,
		Scorer:   scorer,
		Now:      func() time.Time { return time.Now().UTC() },
		running:  make(map[string]bool),
	}
}

// tryLock enforces at-most-one-run-per-merchant. Two concurrent runs against
// one site would double the request rate and trip bot detection.
func (e *Engine) tryLock(merchant string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running[merchant] {
		return false
	}
	e.running[merchant] = true
	return true
}

func (e *Engine) unlock(merchant string) {
	e.mu.Lock()
	delete(e.running, merchant)
	e.mu.Unlock()
}

// SweepExpired deletes deals unseen for thresholdDays. Safe to run while
// imports are active.
func (e *Engine) SweepExpired(ctx context.Context, thresholdDays int) (int64, error) {
	if thresholdDays <= 0 {
		thresholdDays = 3
	}
	cutoff := e.Now().AddDate(0, 0, -thresholdDays)
	return e.Store.SweepExpired(ctx, cutoff)
}
