package scraper

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"jobmate/internship-crawler/internal/model"
)

// RetryingFetcher retries a failed fetch with bounded exponential backoff.
// With zero retries it behaves exactly like the wrapped fetcher.
type RetryingFetcher struct {
	next         Fetcher
	retries      uint64
	initialDelay time.Duration
	logger       *zap.Logger
}

// WithRetry wraps next. initialDelay <= 0 uses two seconds.
func WithRetry(next Fetcher, retries int, initialDelay time.Duration, logger *zap.Logger) Fetcher {
	if retries <= 0 {
		return next
	}
	if initialDelay <= 0 {
		initialDelay = 2 * time.Second
	}
	return &RetryingFetcher{
		next:         next,
		retries:      uint64(retries),
		initialDelay: initialDelay,
		logger:       logger.With(zap.String("component", "fetcher")),
	}
}

// Fetch calls the wrapped fetcher until it succeeds, the retry budget is
// spent or ctx is done.
func (f *RetryingFetcher) Fetch(ctx context.Context, url string) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.initialDelay
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0

	var html string
	op := func() error {
		var err error
		html, err = f.next.Fetch(ctx, url)
		return err
	}
	notify := func(err error, wait time.Duration) {
		f.logger.Warn("fetch failed, retrying", zap.String("url", url), zap.Duration("wait", wait), zap.Error(err))
	}

	err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, f.retries), ctx), notify)
	return html, err
}

// Close closes the wrapped fetcher.
func (f *RetryingFetcher) Close() error { return f.next.Close() }

// Mode reports the wrapped fetcher's mode.
func (f *RetryingFetcher) Mode() model.RenderMode { return f.next.Mode() }
