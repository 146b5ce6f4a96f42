package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Budget caps how many requests each external provider may receive per
// window (a day by default) and paces consecutive requests.
type Budget struct {
	mu        sync.Mutex
	limits    map[string]int
	used      map[string]int
	maxTotal  int
	total     int
	window    time.Duration
	resetTime time.Time
	pacer     *rate.Limiter
	now       func() time.Time
}

// NewBudget creates a budget. A limit of 0 means unlimited for that provider;
// maxTotal of 0 disables the shared cap. perSecond of 0 disables pacing.
func NewBudget(limits map[string]int, maxTotal int, perSecond float64) *Budget {
	b := &Budget{
		limits:   make(map[string]int, len(limits)),
		used:     make(map[string]int),
		maxTotal: maxTotal,
		window:   24 * time.Hour,
		now:      time.Now,
	}
	for k, v := range limits {
		b.limits[k] = v
	}
	b.resetTime = b.now().Add(b.window)
	if perSecond > 0 {
		b.pacer = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return b
}

// allow reports whether provider still has budget, without consuming it.
func (b *Budget) allow(provider string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()
	return b.availableLocked(provider) == nil
}

// Take waits for the pacer and consumes one request of provider's budget.
func (b *Budget) Take(ctx context.Context, provider string) error {
	b.mu.Lock()
	b.checkReset()
	if err := b.availableLocked(provider); err != nil {
		b.mu.Unlock()
		return err
	}
	b.used[provider]++
	b.total++
	used, limit := b.used[provider], b.limits[provider]
	b.mu.Unlock()

	slog.Debug("ai budget", "provider", provider, "used", used, "limit", limit)

	if b.pacer != nil {
		if err := b.pacer.Wait(ctx); err != nil {
			return fmt.Errorf("%s pacing: %w", provider, err)
		}
	}
	return nil
}

// GetStats returns current usage per provider.
func (b *Budget) GetStats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := map[string]interface{}{
		"total_used":  b.total,
		"total_limit": b.maxTotal,
		"reset_time":  b.resetTime.Format(time.RFC3339),
	}
	for p, limit := range b.limits {
		stats[p+"_used"] = b.used[p]
		stats[p+"_limit"] = limit
	}
	return stats
}

func (b *Budget) availableLocked(provider string) error {
	if limit := b.limits[provider]; limit > 0 && b.used[provider] >= limit {
		return fmt.Errorf("%s rate limit exceeded (%d/%d)", provider, b.used[provider], limit)
	}
	if b.maxTotal > 0 && b.total >= b.maxTotal {
		return fmt.Errorf("total AI rate limit exceeded (%d/%d)", b.total, b.maxTotal)
	}
	return nil
}

// checkReset resets counters if reset time has passed
func (b *Budget) checkReset() {
	if b.now().After(b.resetTime) {
		slog.Info("resetting ai budget", "total_used", b.total)
		b.used = make(map[string]int)
		b.total = 0
		b.resetTime = b.now().Add(b.window)
	}
}
