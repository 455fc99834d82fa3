package worker

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
	"golang.org/x/time/rate"
)

// Limiter throttles requests per source domain
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a per-domain limiter. A non-positive rate disables
// throttling.
func NewLimiter(cfg model.RateLimitConfig) *Limiter {
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}

	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// Wait blocks until a request to rawURL's domain is allowed or ctx ends.
// URLs without a host are not throttled.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	domain := domainOf(rawURL)
	if domain == "" {
		return nil
	}
	return l.limiter(domain).Wait(ctx)
}

// SlowDown lowers the rate for rawURL's domain to one request per delay,
// e.g. to honor a robots.txt crawl delay. It never raises a rate.
func (l *Limiter) SlowDown(rawURL string, delay time.Duration) {
	domain := domainOf(rawURL)
	if delay <= 0 || domain == "" {
		return
	}
	limit := rate.Every(delay)

	lim := l.limiter(domain)
	if lim.Limit() > limit {
		lim.SetLimit(limit)
	}
}

func (l *Limiter) limiter(domain string) *rate.Limiter {
	l.mu.RLock()
	lim, exists := l.limiters[domain]
	l.mu.RUnlock()

	if exists {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, exists := l.limiters[domain]; exists {
		return lim
	}

	lim = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[domain] = lim
	return lim
}

func domainOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Host)
}
