package util

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MerchantLimiter enforces the inter-request delay per merchant. The delay is
// an anti-bot throttle, not a performance knob: retry or timeout layers on top
// must still go through Wait, so the minimum spacing always holds.
type MerchantLimiter struct {
	mu sync.Mutex
	m  map[string]*rate.Limiter
}

func NewMerchantLimiter() *MerchantLimiter {
	return &MerchantLimiter{m: make(map[string]*rate.Limiter)}
}

func (ml *MerchantLimiter) limiterFor(merchant string, delay time.Duration) *rate.Limiter {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	if lim, ok := ml.m[merchant]; ok {
		return lim
	}
	if delay <= 0 {
		delay = time.Second
	}
	// burst 1: requests are spaced by exactly one delay interval
	lim := rate.NewLimiter(rate.Every(delay), 1)
	ml.m[merchant] = lim
	return lim
}

// Wait blocks until the merchant's next request slot, or until ctx is done.
func (ml *MerchantLimiter) Wait(ctx context.Context, merchant string, delay time.Duration) error {
	return ml.limiterFor(merchant, delay).Wait(ctx)
}
