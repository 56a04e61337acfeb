package scraper_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jobmate/internship-crawler/internal/model"
	"jobmate/internship-crawler/internal/scraper"
)

func TestStaticFetcher_ReturnsBodyAndSendsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, `<html><body><a href="/jobs/1">Intern</a></body></html>`)
	}))
	defer srv.Close()

	f := scraper.NewStaticFetcher(scraper.FetchOptions{}, zap.NewNop())
	html, err := f.Fetch(context.Background(), srv.URL+"/careers")
	require.NoError(t, err)
	assert.Contains(t, html, `href="/jobs/1"`)
	assert.Equal(t, scraper.DefaultUserAgent, gotUA)
	assert.Equal(t, model.RenderStatic, f.Mode())
}

func TestStaticFetcher_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := scraper.NewStaticFetcher(scraper.FetchOptions{}, zap.NewNop())
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestStaticFetcher_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	f := scraper.NewStaticFetcher(scraper.FetchOptions{Timeout: 100 * time.Millisecond}, zap.NewNop())
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

type flakyFetcher struct {
	failures int32
	calls    atomic.Int32
}

func (f *flakyFetcher) Fetch(context.Context, string) (string, error) {
	if f.calls.Add(1) <= f.failures {
		return "", errors.New("connection reset")
	}
	return "<html></html>", nil
}

func (f *flakyFetcher) Close() error { return nil }

func (f *flakyFetcher) Mode() model.RenderMode { return model.RenderStatic }

func TestWithRetry_RecoversWithinBudget(t *testing.T) {
	inner := &flakyFetcher{failures: 2}
	f := scraper.WithRetry(inner, 2, time.Millisecond, zap.NewNop())

	html, err := f.Fetch(context.Background(), "https://acme.com/careers")
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", html)
	assert.EqualValues(t, 3, inner.calls.Load())
}

func TestWithRetry_GivesUp(t *testing.T) {
	inner := &flakyFetcher{failures: 10}
	f := scraper.WithRetry(inner, 1, time.Millisecond, zap.NewNop())

	_, err := f.Fetch(context.Background(), "https://acme.com/careers")
	require.Error(t, err)
	assert.EqualValues(t, 2, inner.calls.Load())
}

func TestWithRetry_ZeroRetriesIsPassThrough(t *testing.T) {
	inner := &flakyFetcher{failures: 1}
	f := scraper.WithRetry(inner, 0, time.Millisecond, zap.NewNop())
	assert.Same(t, scraper.Fetcher(inner), f)
}

func TestFetchers_For(t *testing.T) {
	static := &flakyFetcher{}
	fs := scraper.Fetchers{model.RenderStatic: static}

	got, err := fs.For(model.RenderStatic)
	require.NoError(t, err)
	assert.Same(t, scraper.Fetcher(static), got)

	_, err = fs.For(model.RenderBrowser)
	assert.Error(t, err)
}

func TestRobotsChecker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			hits.Add(1)
			fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
			return
		}
	}))
	defer srv.Close()

	rc := scraper.NewRobotsChecker(srv.Client(), "")
	ctx := context.Background()

	assert.NoError(t, rc.Check(ctx, srv.URL+"/careers"))
	assert.ErrorIs(t, rc.Check(ctx, srv.URL+"/private/jobs"), scraper.ErrDisallowed)
	assert.EqualValues(t, 1, hits.Load(), "robots.txt should be cached per host")
}

func TestRobotsChecker_MissingRobotsAllowsAll(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	rc := scraper.NewRobotsChecker(srv.Client(), "")
	assert.NoError(t, rc.Check(context.Background(), srv.URL+"/careers"))
}

func TestRobotsChecker_FailedFetchIsNotCached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			hits.Add(1)
			fmt.Fprint(w, "User-agent: *\nDisallow: /careers\n")
		}
	}))
	defer srv.Close()

	rc := scraper.NewRobotsChecker(srv.Client(), "")

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, rc.Check(cancelled, srv.URL+"/careers"), "unreachable robots.txt allows the fetch")
	assert.EqualValues(t, 0, hits.Load())

	assert.ErrorIs(t, rc.Check(context.Background(), srv.URL+"/careers"), scraper.ErrDisallowed)
	assert.EqualValues(t, 1, hits.Load())
}

func TestHostLimiter_SpacesSameHost(t *testing.T) {
	l := scraper.NewHostLimiter(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://acme.com/a"))
	require.NoError(t, l.Wait(ctx, "https://globex.com/a"))
	assert.Less(t, time.Since(start), 40*time.Millisecond, "different hosts are independent")

	require.NoError(t, l.Wait(ctx, "https://acme.com/b"))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}
