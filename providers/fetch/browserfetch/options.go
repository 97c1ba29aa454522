package browserfetch

import (
	"time"

	"github.com/leofalp/webresearch/providers/fetch"
)

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithSearchEngine selects the engine used by Search. Default fetch.Google.
func WithSearchEngine(engine fetch.SearchEngine) Option {
	return func(f *Fetcher) {
		f.engine = engine
	}
}

// WithTimeout overrides the browser's page timeout for this Fetcher.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// WithUserAgent overrides the browser's user agent for this Fetcher.
func WithUserAgent(userAgent string) Option {
	return func(f *Fetcher) {
		if userAgent != "" {
			f.userAgent = userAgent
		}
	}
}

// WithResultWait sets how long Search waits for the first result container
// to render before reading the page. Default 3s.
func WithResultWait(wait time.Duration) Option {
	return func(f *Fetcher) {
		if wait >= 0 {
			f.resultWait = wait
		}
	}
}
