package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"jobmate/internship-crawler/internal/model"
)

const (
	// DefaultUserAgent is a realistic desktop Chrome UA; bare Go/colly agents
	// are blocked by many careers sites.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36"

	DefaultFetchTimeout = 30 * time.Second
)

// Fetcher loads a careers page and returns its rendered HTML.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	// Close releases any resources (browser processes, etc.).
	Close() error
	Mode() model.RenderMode
}

// FetchOptions is shared by every Fetcher implementation.
type FetchOptions struct {
	UserAgent string
	Timeout   time.Duration
	// SettleDelay is how long a browser fetch waits after the DOM is ready
	// for client-side rendering to finish.
	SettleDelay time.Duration
	Headless    bool
	ChromePath  string
}

func (o FetchOptions) withDefaults() FetchOptions {
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultFetchTimeout
	}
	return o
}

// Fetchers selects a Fetcher per company by its render mode.
type Fetchers map[model.RenderMode]Fetcher

// For returns the fetcher for mode, falling back to the browser fetcher.
func (fs Fetchers) For(mode model.RenderMode) (Fetcher, error) {
	if f, ok := fs[mode]; ok {
		return f, nil
	}
	if f, ok := fs[model.RenderBrowser]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("no fetcher configured for render mode %q", mode)
}

// Close closes every fetcher, returning the joined errors.
func (fs Fetchers) Close() error {
	var errs []error
	for _, f := range fs {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StaticFetcher issues a plain HTTP GET through a colly collector. It is
// meant for careers pages that render without JavaScript.
type StaticFetcher struct {
	opts   FetchOptions
	logger *zap.Logger
}

// NewStaticFetcher constructs a StaticFetcher.
func NewStaticFetcher(opts FetchOptions, logger *zap.Logger) *StaticFetcher {
	return &StaticFetcher{
		opts:   opts.withDefaults(),
		logger: logger.With(zap.String("component", "fetcher"), zap.String("mode", string(model.RenderStatic))),
	}
}

// Fetch GETs url. Non-2xx responses and transport failures are errors.
func (f *StaticFetcher) Fetch(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	// A fresh collector per fetch keeps callbacks and visited state scoped to
	// one company.
	c := colly.NewCollector(
		colly.UserAgent(f.opts.UserAgent),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(f.opts.Timeout)

	var (
		body     string
		fetchErr error
	)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml")
		r.Headers.Set("Accept-Language", "en-SG,en;q=0.9")
	})
	c.OnResponse(func(r *colly.Response) {
		body = string(r.Body)
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("GET %s returned %d: %w", url, r.StatusCode, err)
			return
		}
		fetchErr = fmt.Errorf("GET %s: %w", url, err)
	})

	start := time.Now()
	if err := c.Visit(url); err != nil && fetchErr == nil {
		fetchErr = fmt.Errorf("visit %s: %w", url, err)
	}
	if fetchErr != nil {
		return "", fetchErr
	}

	f.logger.Debug("page fetched", zap.String("url", url), zap.Int("bytes", len(body)), zap.Duration("took", time.Since(start)))
	return body, nil
}

// Close is a no-op; collectors are discarded after each fetch.
func (f *StaticFetcher) Close() error { return nil }

// Mode returns model.RenderStatic.
func (f *StaticFetcher) Mode() model.RenderMode { return model.RenderStatic }
