package httpfetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"

	"github.com/leofalp/webresearch/internal/utils"
	"github.com/leofalp/webresearch/providers/fetch"
	"github.com/leofalp/webresearch/providers/observability"
)

const maxRedirects = 10

// Fetcher implements fetch.ContentFetcher over HTTP. It holds no per-call
// state and is safe for concurrent use.
type Fetcher struct {
	client      *http.Client
	timeout     time.Duration
	userAgent   string
	engine      fetch.SearchEngine
	format      Format
	maxBodySize int64
}

var _ fetch.ContentFetcher = (*Fetcher)(nil)

// New returns a Fetcher with a 10 s timeout, a desktop browser user agent
// and Google as search engine.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      newHTTPClient(),
		timeout:     fetch.DefaultTimeout,
		userAgent:   fetch.DefaultUserAgent,
		engine:      fetch.Google,
		format:      FormatText,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			ForceAttemptHTTP2:     true,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects (>%d)", maxRedirects)
			}
			return nil
		},
	}
}

// Search scrapes the engine's HTML results page for query.
func (f *Fetcher) Search(ctx context.Context, query string) ([]string, error) {
	query, err := fetch.ValidateQuery(query)
	if err != nil {
		return nil, err
	}

	fetch.Notify(ctx, "Searching the web",
		observability.String(observability.AttrFetchBackend, "http"),
		observability.String(observability.AttrFetchEngine, f.engine.Name),
		observability.String(observability.AttrFetchQuery, query),
	)

	body, err := f.get(ctx, fetch.OpSearch, query, f.engine.SearchURL(query))
	if err != nil {
		return nil, err
	}

	doc, err := fetch.ParseHTML(bytes.NewReader(body))
	if err != nil {
		return nil, &fetch.Error{Kind: fetch.KindParse, Op: fetch.OpSearch, Target: query, Err: err}
	}

	results := f.engine.CollectLinks(fetch.ResultHrefs(doc, f.engine))
	logDebug(ctx, "Search completed",
		observability.String(observability.AttrFetchQuery, query),
		observability.Int(observability.AttrFetchResults, len(results)),
	)
	return results, nil
}

// Fetch downloads rawURL and returns its visible text, or Markdown when
// configured with FormatMarkdown.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	target, err := fetch.ValidateURL(rawURL)
	if err != nil {
		return "", err
	}

	fetch.Notify(ctx, "Fetching page",
		observability.String(observability.AttrFetchBackend, "http"),
		observability.String(observability.AttrFetchURL, rawURL),
	)

	body, err := f.get(ctx, fetch.OpFetch, rawURL, target.String())
	if err != nil {
		return "", err
	}

	doc, err := fetch.ParseHTML(bytes.NewReader(body))
	if err != nil {
		return "", &fetch.Error{Kind: fetch.KindParse, Op: fetch.OpFetch, Target: rawURL, Err: err}
	}
	fetch.RemoveElements(doc, "script", "style", "noscript")

	var content string
	switch f.format {
	case FormatMarkdown:
		content, err = toMarkdown(doc)
		if err != nil {
			return "", &fetch.Error{Kind: fetch.KindParse, Op: fetch.OpFetch, Target: rawURL, Err: err}
		}
	default:
		content = fetch.NodeText(doc)
	}

	if content == "" {
		return "", &fetch.Error{Kind: fetch.KindEmpty, Op: fetch.OpFetch, Target: rawURL, Err: fetch.ErrNoContent}
	}

	logDebug(ctx, "Fetch completed",
		observability.String(observability.AttrFetchURL, rawURL),
		observability.Int(observability.AttrFetchLength, len(content)),
	)
	return content, nil
}

// get performs a bounded GET and returns the body of a 2xx response.
func (f *Fetcher) get(ctx context.Context, op, target, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &fetch.Error{Kind: fetch.KindParse, Op: op, Target: target, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fetch.Classify(op, target, err)
	}
	defer utils.CloseWithLog(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fetch.StatusError(op, target, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, fetch.Classify(op, target, err)
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, &fetch.Error{Kind: fetch.KindTransport, Op: op, Target: target, Err: fmt.Errorf("response body exceeds %d bytes", f.maxBodySize)}
	}
	return body, nil
}

// toMarkdown converts the cleaned document and normalises whitespace line by
// line, keeping at most one blank line between blocks.
func toMarkdown(doc *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", err
	}

	markdown, err := htmltomarkdown.ConvertString(buf.String())
	if err != nil {
		return "", fmt.Errorf("convert HTML to Markdown: %w", err)
	}

	lines := strings.Split(markdown, "\n")
	out := make([]string, 0, len(lines))
	blank := true
	for _, line := range lines {
		line = utils.NormalizeWhitespace(line)
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n")), nil
}

func logDebug(ctx context.Context, msg string, attrs ...observability.Attribute) {
	if observer := observability.ObserverFromContext(ctx); observer != nil {
		observer.Debug(ctx, msg, attrs...)
	}
}
