package scrape

import (
	"errors"
	"fmt"
	"strings"

	"dealradar-engine/internal/scrape/marionnaud"
	"dealradar-engine/internal/scrape/nocibe"
	"dealradar-engine/internal/scrape/sephora"
	"dealradar-engine/internal/scrape/types"
	"dealradar-engine/internal/scrape/util"
)

var ErrNoAdapter = errors.New("no adapter for merchant")

// Registry maps merchant ids to their fetcher adapters. Adapters sharing the
// process share one MerchantLimiter so every fetch path respects the same
// per-merchant spacing.
type Registry struct {
	fetchers map[string]types.Fetcher
}

func NewRegistry(limiter *util.MerchantLimiter) *Registry {
	r := &Registry{fetchers: make(map[string]types.Fetcher)}
	r.Register(nocibe.New(limiter))
	r.Register(marionnaud.New())
	r.Register(sephora.New(limiter))
	return r
}

func (r *Registry) Register(f types.Fetcher) {
	r.fetchers[strings.ToLower(f.Name())] = f
}

func (r *Registry) Lookup(merchant string) (types.Fetcher, error) {
	f, ok := r.fetchers[strings.ToLower(strings.TrimSpace(merchant))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoAdapter, merchant)
	}
	return f, nil
}

// Merchants lists registered merchant ids (unordered).
func (r *Registry) Merchants() []string {
	out := make([]string, 0, len(r.fetchers))
	for m := range r.fetchers {
		out = append(out, m)
	}
	return out
}
