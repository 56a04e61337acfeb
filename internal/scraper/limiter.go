package scraper

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter enforces a minimum spacing between requests to the same origin.
// Only needed when companies are crawled concurrently; the sequential
// orchestrator already waits between companies.
type HostLimiter struct {
	spacing  time.Duration
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHostLimiter returns a limiter allowing one request per spacing per host.
func NewHostLimiter(spacing time.Duration) *HostLimiter {
	return &HostLimiter{spacing: spacing, limiters: make(map[string]*rate.Limiter)}
}

// Wait blocks until a request to rawURL's host is allowed or ctx is done.
func (h *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	if h == nil || h.spacing <= 0 {
		return nil
	}
	return h.limiter(hostOf(rawURL)).Wait(ctx)
}

func (h *HostLimiter) limiter(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Every(h.spacing), 1)
		h.limiters[host] = l
	}
	return l
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return strings.ToLower(u.Host)
}
