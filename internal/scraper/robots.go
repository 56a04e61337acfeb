package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// ErrDisallowed is returned when robots.txt forbids fetching a careers page.
var ErrDisallowed = errors.New("disallowed by robots.txt")

const (
	defaultRobotsCacheTTL = 24 * time.Hour
	maxRobotsBodyBytes    = 512 * 1024
)

// RobotsChecker checks and caches robots.txt rules per host. A missing or
// unreachable robots.txt allows everything. Only answers the host actually
// gave are cached; a transport failure is retried on the next check.
type RobotsChecker struct {
	client    *http.Client
	userAgent string
	ttl       time.Duration

	mu    sync.RWMutex
	cache map[string]robotsEntry
}

type robotsEntry struct {
	data      *robotstxt.RobotsData // nil means allow all
	fetchedAt time.Time
}

// NewRobotsChecker constructs a checker. A nil client uses a 10s-timeout client.
func NewRobotsChecker(client *http.Client, userAgent string) *RobotsChecker {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &RobotsChecker{
		client:    client,
		userAgent: userAgent,
		ttl:       defaultRobotsCacheTTL,
		cache:     make(map[string]robotsEntry),
	}
}

// Check returns ErrDisallowed when rawURL may not be fetched.
func (r *RobotsChecker) Check(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("robots: parse url: %w", err)
	}
	host := strings.ToLower(u.Host)
	if host == "" {
		return fmt.Errorf("robots: empty host in url %q", rawURL)
	}

	entry, ok := r.cached(host)
	if !ok {
		var answered bool
		entry, answered = r.fetch(ctx, u.Scheme, host)
		if answered {
			r.mu.Lock()
			r.cache[host] = entry
			r.mu.Unlock()
		}
	}

	if entry.data == nil {
		return nil
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if !entry.data.TestAgent(path, r.userAgent) {
		return ErrDisallowed
	}
	return nil
}

func (r *RobotsChecker) cached(host string) (robotsEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.cache[host]
	if !ok || time.Since(e.fetchedAt) > r.ttl {
		return robotsEntry{}, false
	}
	return e, true
}

// fetch never fails: errors degrade to allow-all. answered is false when the
// host never produced a response, so the entry must not be cached.
func (r *RobotsChecker) fetch(ctx context.Context, scheme, host string) (entry robotsEntry, answered bool) {
	entry = robotsEntry{fetchedAt: time.Now()}
	if scheme == "" {
		scheme = "https"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, scheme+"://"+host+"/robots.txt", http.NoBody)
	if err != nil {
		return entry, false
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return entry, false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBodyBytes))
	if err != nil {
		return entry, false
	}

	// FromStatusAndBytes maps 4xx to allow-all and 5xx to disallow-all.
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return entry, true
	}
	entry.data = data
	return entry, true
}
