package fetch

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// SearchEngine describes how to query a search engine over its HTML
// interface and how to pick result links out of the page.
type SearchEngine struct {
	Name       string
	Endpoint   string
	QueryParam string
	// ResultClass is the class of the div wrapping each organic result.
	ResultClass string
	// LinkClass restricts links inside a result to anchors with this class.
	// Empty means every anchor.
	LinkClass string
	// Domain is the engine's own domain; links to it or its subdomains are
	// never results.
	Domain string
	// RedirectPath and RedirectParam describe the engine's click-tracking
	// redirect. Links through it are unwrapped to their target.
	RedirectPath  string
	RedirectParam string
}

var (
	Google = SearchEngine{
		Name:          "google",
		Endpoint:      "https://www.google.com/search",
		QueryParam:    "q",
		ResultClass:   "g",
		Domain:        "google.com",
		RedirectPath:  "/url",
		RedirectParam: "q",
	}

	DuckDuckGo = SearchEngine{
		Name:          "duckduckgo",
		Endpoint:      "https://html.duckduckgo.com/html/",
		QueryParam:    "q",
		ResultClass:   "result",
		LinkClass:     "result__a",
		Domain:        "duckduckgo.com",
		RedirectPath:  "/l/",
		RedirectParam: "uddg",
	}
)

// Engines lists the built-in search engines.
func Engines() []SearchEngine {
	return []SearchEngine{Google, DuckDuckGo}
}

// EngineByName looks up a built-in engine, ignoring case.
func EngineByName(name string) (SearchEngine, error) {
	for _, engine := range Engines() {
		if strings.EqualFold(engine.Name, strings.TrimSpace(name)) {
			return engine, nil
		}
	}
	return SearchEngine{}, fmt.Errorf("unknown search engine %q", name)
}

// SearchURL returns the results page URL for query.
func (e SearchEngine) SearchURL(query string) string {
	values := url.Values{}
	values.Set(e.QueryParam, query)
	separator := "?"
	if strings.Contains(e.Endpoint, "?") {
		separator = "&"
	}
	return e.Endpoint + separator + values.Encode()
}

// ResultSelector is the CSS selector of one result container.
func (e SearchEngine) ResultSelector() string {
	return "div." + e.ResultClass
}

// LinkSelector is the CSS selector of result links.
func (e SearchEngine) LinkSelector() string {
	if e.LinkClass == "" {
		return e.ResultSelector() + " a"
	}
	return e.ResultSelector() + " a." + e.LinkClass
}

// ResolveLink turns an href found on a results page into an absolute result
// URL. It reports false for links that are not results: non-http(s) links,
// links back to the engine and malformed hrefs.
func (e SearchEngine) ResolveLink(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}

	base, err := url.Parse(e.Endpoint)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	link := base.ResolveReference(ref)

	if e.isRedirect(link) {
		target := link.Query().Get(e.RedirectParam)
		if target == "" {
			return "", false
		}
		if link, err = url.Parse(target); err != nil {
			return "", false
		}
	}

	if !IsHTTPURL(link) || e.isEngineHost(link.Hostname()) {
		return "", false
	}
	return link.String(), true
}

// CollectLinks resolves hrefs in order and keeps at most MaxSearchResults.
// The result is never nil.
func (e SearchEngine) CollectLinks(hrefs []string) []string {
	results := make([]string, 0, min(len(hrefs), MaxSearchResults))
	for _, href := range hrefs {
		if len(results) == MaxSearchResults {
			break
		}
		if link, ok := e.ResolveLink(href); ok {
			results = append(results, link)
		}
	}
	return results
}

func (e SearchEngine) isRedirect(u *url.URL) bool {
	if e.RedirectPath == "" || e.RedirectParam == "" || !e.isEngineHost(u.Hostname()) {
		return false
	}
	return path.Clean(u.Path) == path.Clean(e.RedirectPath)
}

func (e SearchEngine) isEngineHost(host string) bool {
	if e.Domain == "" {
		return false
	}
	host = strings.ToLower(host)
	domain := strings.ToLower(e.Domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}
