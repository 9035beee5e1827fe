// Package ratelimit implements per-host token buckets for navigation
// politeness.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/contact-crawler/internal/metrics"
)

// Config holds rate limiter configuration.
type Config struct {
	RPS   float64
	Burst int
	// Hosts restricts limiting to these hostnames. Empty limits every host.
	Hosts []string
}

// Limiter manages per-host rate limits.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	hosts    map[string]struct{}
	rate     rate.Limit
	burst    int
}

// New creates a new Limiter. A non-positive RPS disables throttling.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	var hosts map[string]struct{}
	if len(cfg.Hosts) > 0 {
		hosts = make(map[string]struct{}, len(cfg.Hosts))
		for _, h := range cfg.Hosts {
			hosts[strings.ToLower(h)] = struct{}{}
		}
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		hosts:    hosts,
		rate:     r,
		burst:    burst,
	}
}

// Wait blocks until a token is available for rawURL's host, respecting the
// context. Hosts outside the configured set pass through.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = strings.ToLower(u.Hostname())
	}
	limiter := l.limiterFor(host)
	if limiter == nil {
		return nil
	}

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(host, waited)
	}
	return nil
}

func (l *Limiter) limiterFor(host string) *rate.Limiter {
	if l.hosts != nil {
		if _, ok := l.hosts[host]; !ok {
			return nil
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[host] = limiter
	}
	return limiter
}
