package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"jobmate/internship-crawler/internal/model"
)

// BrowserFetcher renders pages in headless Chrome via chromedp. One browser
// process is shared for the fetcher's lifetime; each Fetch opens its own tab
// and closes it on every exit path.
type BrowserFetcher struct {
	opts        FetchOptions
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	logger      *zap.Logger

	mu            sync.Mutex
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
}

// NewBrowserFetcher prepares an exec allocator. Chrome itself is launched on
// the first Fetch.
func NewBrowserFetcher(opts FetchOptions, logger *zap.Logger) *BrowserFetcher {
	opts = opts.withDefaults()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(opts.UserAgent),
		chromedp.WindowSize(1366, 900),
	)
	if opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	return &BrowserFetcher{
		opts:        opts,
		allocCtx:    allocCtx,
		cancelAlloc: cancel,
		logger:      logger.With(zap.String("component", "fetcher"), zap.String("mode", string(model.RenderBrowser))),
	}
}

// Fetch navigates a new tab to url, waits for the body plus the settle delay
// and returns the document's outer HTML.
func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (string, error) {
	browserCtx, err := f.browser()
	if err != nil {
		return "", err
	}

	tabCtx, closeTab := chromedp.NewContext(browserCtx)
	defer closeTab()

	// Tabs hang off the browser, not the caller; tie them together so a
	// cancelled run still closes the tab.
	stop := context.AfterFunc(ctx, closeTab)
	defer stop()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, f.opts.Timeout)
	defer cancelTimeout()

	start := time.Now()
	var html string
	err = chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(f.opts.SettleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("render %s: %w", url, ctx.Err())
		}
		return "", fmt.Errorf("render %s: %w", url, err)
	}

	f.logger.Debug("page rendered", zap.String("url", url), zap.Int("bytes", len(html)), zap.Duration("took", time.Since(start)))
	return html, nil
}

// browser returns the shared browser context, launching Chrome if needed.
// Cancelling the first context of an allocator kills the browser, so tabs
// must be children of this one rather than of the allocator.
func (f *BrowserFetcher) browser() (context.Context, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browserCtx != nil && f.browserCtx.Err() == nil {
		return f.browserCtx, nil
	}

	ctx, cancel := chromedp.NewContext(f.allocCtx)
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	f.browserCtx, f.cancelBrowser = ctx, cancel
	f.logger.Info("browser launched", zap.Bool("headless", f.opts.Headless))
	return ctx, nil
}

// Close shuts down the browser process.
func (f *BrowserFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelBrowser != nil {
		f.cancelBrowser()
	}
	f.cancelAlloc()
	return nil
}

// Mode returns model.RenderBrowser.
func (f *BrowserFetcher) Mode() model.RenderMode { return model.RenderBrowser }
