package fetch

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/leofalp/webresearch/providers/observability"
)

const (
	// MaxSearchResults caps the number of URLs returned by Search.
	MaxSearchResults = 10

	// DefaultTimeout bounds a single search or page load.
	DefaultTimeout = 10 * time.Second

	// DefaultUserAgent is a desktop Chrome user agent. Search engines serve
	// degraded or empty pages to unknown clients.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
)

// Operation names used in errors and logs.
const (
	OpSearch = "search"
	OpFetch  = "fetch"
)

// ContentFetcher retrieves search results and page text.
type ContentFetcher interface {
	// Search returns at most MaxSearchResults absolute http(s) URLs. A page
	// with no results is not an error and yields an empty, non-nil slice.
	Search(ctx context.Context, query string) ([]string, error)

	// Fetch returns the non-empty, whitespace-normalised visible text of the
	// page at rawURL.
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// ValidateQuery trims query and rejects empty input.
func ValidateQuery(query string) (string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", &Error{Kind: KindParse, Op: OpSearch, Target: query, Err: errEmptyQuery}
	}
	return trimmed, nil
}

// ValidateURL parses rawURL and requires an absolute http or https URL.
func ValidateURL(rawURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(rawURL)
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, &Error{Kind: KindParse, Op: OpFetch, Target: rawURL, Err: err}
	}
	if !IsHTTPURL(parsed) {
		return nil, &Error{Kind: KindParse, Op: OpFetch, Target: rawURL, Err: errNotHTTP}
	}
	return parsed, nil
}

// IsHTTPURL reports whether u is an absolute http(s) URL with a host.
func IsHTTPURL(u *url.URL) bool {
	if u == nil || u.Host == "" {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// Notify emits an informational progress message through the observer in
// ctx, if any.
func Notify(ctx context.Context, msg string, attrs ...observability.Attribute) {
	if observer := observability.ObserverFromContext(ctx); observer != nil {
		observer.Info(ctx, msg, attrs...)
	}
}
