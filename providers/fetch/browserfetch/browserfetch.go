package browserfetch

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/leofalp/webresearch/internal/utils"
	"github.com/leofalp/webresearch/providers/fetch"
	"github.com/leofalp/webresearch/providers/observability"
)

const defaultResultWait = 3 * time.Second

const (
	// Navigation Timing exposes the main document's status since Chrome 109.
	statusScript = `() => {
		const nav = performance.getEntriesByType('navigation')[0];
		return nav && nav.responseStatus ? nav.responseStatus : 0;
	}`

	visibleTextScript = `() => {
		document.querySelectorAll('script, style, noscript').forEach(el => el.remove());
		return document.body ? document.body.innerText : '';
	}`
)

// Fetcher implements fetch.ContentFetcher with a borrowed Browser.
type Fetcher struct {
	browser    *Browser
	engine     fetch.SearchEngine
	timeout    time.Duration
	userAgent  string
	resultWait time.Duration
}

var _ fetch.ContentFetcher = (*Fetcher)(nil)

// New returns a Fetcher using b. Timeout and user agent default to the
// browser's Config.
func New(b *Browser, opts ...Option) (*Fetcher, error) {
	if b == nil {
		return nil, errNoBrowser
	}
	cfg := b.Config()
	f := &Fetcher{
		browser:    b,
		engine:     fetch.Google,
		timeout:    cfg.PageTimeout,
		userAgent:  cfg.UserAgent,
		resultWait: defaultResultWait,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Search loads the engine's results page and reads the result links.
func (f *Fetcher) Search(ctx context.Context, query string) ([]string, error) {
	query, err := fetch.ValidateQuery(query)
	if err != nil {
		return nil, err
	}

	fetch.Notify(ctx, "Searching the web",
		observability.String(observability.AttrFetchBackend, "browser"),
		observability.String(observability.AttrFetchEngine, f.engine.Name),
		observability.String(observability.AttrFetchQuery, query),
	)

	var hrefs []string
	err = f.withPage(ctx, fetch.OpSearch, query, f.engine.SearchURL(query), func(page *rod.Page) error {
		f.waitForResults(page)

		elements, err := page.Elements(f.engine.LinkSelector())
		if err != nil {
			return err
		}
		for _, el := range elements {
			href, err := el.Attribute("href")
			if err != nil || href == nil {
				continue
			}
			hrefs = append(hrefs, *href)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	results := f.engine.CollectLinks(hrefs)
	logDebug(ctx, "Search completed",
		observability.String(observability.AttrFetchQuery, query),
		observability.Int(observability.AttrFetchResults, len(results)),
	)
	return results, nil
}

// waitForResults gives script-rendered result pages a moment to populate. A
// page without results is not an error, so the wait failing is ignored.
func (f *Fetcher) waitForResults(page *rod.Page) {
	if f.resultWait <= 0 {
		return
	}
	waiting := page.Timeout(f.resultWait)
	defer waiting.CancelTimeout()
	_, _ = waiting.Element(f.engine.ResultSelector())
}

// Fetch loads rawURL and returns the page's rendered visible text.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	target, err := fetch.ValidateURL(rawURL)
	if err != nil {
		return "", err
	}

	fetch.Notify(ctx, "Fetching page",
		observability.String(observability.AttrFetchBackend, "browser"),
		observability.String(observability.AttrFetchURL, rawURL),
	)

	var text string
	err = f.withPage(ctx, fetch.OpFetch, rawURL, target.String(), func(page *rod.Page) error {
		if _, err := page.Element("body"); err != nil {
			return err
		}
		res, err := page.Eval(visibleTextScript)
		if err != nil {
			return err
		}
		text = utils.NormalizeWhitespace(res.Value.Str())
		return nil
	})
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", &fetch.Error{Kind: fetch.KindEmpty, Op: fetch.OpFetch, Target: rawURL, Err: fetch.ErrNoContent}
	}

	logDebug(ctx, "Fetch completed",
		observability.String(observability.AttrFetchURL, rawURL),
		observability.Int(observability.AttrFetchLength, len(text)),
	)
	return text, nil
}

// withPage opens a page, loads rawURL into it and runs read. The page is
// closed before returning.
func (f *Fetcher) withPage(ctx context.Context, op, target, rawURL string, read func(*rod.Page) error) error {
	f.browser.pages.Lock()
	defer f.browser.pages.Unlock()

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	page, err := f.browser.rod.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return classify(op, target, err)
	}
	defer func() {
		if err := page.Context(context.Background()).Close(); err != nil {
			logDebug(ctx, "closing page failed", observability.Error(err))
		}
	}()

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: f.userAgent}); err != nil {
		return classify(op, target, err)
	}
	if err := page.Navigate(rawURL); err != nil {
		return classify(op, target, err)
	}
	if err := page.WaitLoad(); err != nil {
		return classify(op, target, err)
	}

	if res, err := page.Eval(statusScript); err == nil {
		if status := res.Value.Int(); status >= 400 {
			return fetch.StatusError(op, target, status)
		}
	}

	if err := read(page); err != nil {
		return classify(op, target, err)
	}
	return nil
}

// classify maps rod failures onto fetch failure kinds.
func classify(op, target string, err error) error {
	var navErr *rod.NavigationError
	if errors.As(err, &navErr) {
		kind := fetch.KindTransport
		if strings.Contains(navErr.Reason, "TIMED_OUT") {
			kind = fetch.KindTimeout
		}
		return &fetch.Error{Kind: kind, Op: op, Target: target, Err: err}
	}
	var notFound *rod.ElementNotFoundError
	if errors.As(err, &notFound) {
		return &fetch.Error{Kind: fetch.KindParse, Op: op, Target: target, Err: err}
	}
	return fetch.Classify(op, target, err)
}

func logDebug(ctx context.Context, msg string, attrs ...observability.Attribute) {
	if observer := observability.ObserverFromContext(ctx); observer != nil {
		observer.Debug(ctx, msg, attrs...)
	}
}
