package httpfetch

import (
	"net/http"
	"time"

	"github.com/leofalp/webresearch/providers/fetch"
)

// Format selects what Fetch returns.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// DefaultMaxBodySize caps how much of a response body is read (10 MiB).
const DefaultMaxBodySize = 10 * 1024 * 1024

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the HTTP client. Its Timeout is left untouched;
// per-operation deadlines come from WithTimeout.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithTimeout bounds each Search and Fetch call. Non-positive values are ignored.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(f *Fetcher) {
		if userAgent != "" {
			f.userAgent = userAgent
		}
	}
}

// WithSearchEngine selects the engine used by Search. Default fetch.Google.
func WithSearchEngine(engine fetch.SearchEngine) Option {
	return func(f *Fetcher) {
		f.engine = engine
	}
}

// WithFormat selects the output of Fetch. Default FormatText.
func WithFormat(format Format) Option {
	return func(f *Fetcher) {
		f.format = format
	}
}

// WithMaxBodySize caps how many bytes of a response are read.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}
