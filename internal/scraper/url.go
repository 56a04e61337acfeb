package scraper

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var errUnresolvableHref = errors.New("href is neither absolute nor root-relative")

// ResolveHref turns an anchor href into an absolute http(s) URL.
// Absolute URLs are kept; root-relative hrefs ("/jobs/1") resolve against the
// page origin. Anything else (relative paths, fragments, javascript:, mailto:)
// is rejected.
func ResolveHref(pageURL, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", errUnresolvableHref
	}

	if strings.HasPrefix(href, "/") {
		base, err := url.Parse(pageURL)
		if err != nil || base.Host == "" {
			return "", fmt.Errorf("invalid page url %q", pageURL)
		}
		ref, err := url.Parse(href)
		if err != nil {
			return "", fmt.Errorf("parse href: %w", err)
		}
		return base.ResolveReference(ref).String(), nil
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse href: %w", err)
	}
	if !isHTTPURL(u) {
		return "", errUnresolvableHref
	}
	return u.String(), nil
}

// IsAbsoluteHTTPURL reports whether raw parses as an http or https URL with a host.
func IsAbsoluteHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && isHTTPURL(u)
}

func isHTTPURL(u *url.URL) bool {
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}
