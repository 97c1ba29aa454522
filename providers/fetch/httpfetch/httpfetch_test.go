package httpfetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/leofalp/webresearch/providers/fetch"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func testEngine(server *httptest.Server) fetch.SearchEngine {
	return fetch.SearchEngine{
		Name:        "test",
		Endpoint:    server.URL + "/search",
		QueryParam:  "q",
		ResultClass: "g",
		Domain:      "search.test",
	}
}

func htmlHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}
}

func TestSearch_EmptyResultsPage(t *testing.T) {
	var gotQuery, gotUA string
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, "<html><body><p>No results found.</p></body></html>")
	})

	f := New(WithSearchEngine(testEngine(server)))
	results, err := f.Search(context.Background(), "golang channels")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("Search() = %#v, want empty non-nil slice", results)
	}
	if gotQuery != "golang channels" {
		t.Errorf("query param = %q", gotQuery)
	}
	if gotUA != fetch.DefaultUserAgent {
		t.Errorf("User-Agent = %q, want default browser UA", gotUA)
	}
}

func TestSearch_FiltersAndCaps(t *testing.T) {
	var page strings.Builder
	page.WriteString("<html><body>")
	page.WriteString(`<a href="https://outside.example/">not a result</a>`)
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&page, `<div class="g">
			<a href="https://site%d.example/page">Result %d</a>
			<a href="https://www.search.test/cache?id=%d">cached</a>
			<a href="javascript:void(0)">menu</a>
		</div>`, i, i, i)
	}
	page.WriteString("</body></html>")

	server := newServer(t, htmlHandler(page.String()))
	f := New(WithSearchEngine(testEngine(server)))

	results, err := f.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != fetch.MaxSearchResults {
		t.Fatalf("got %d results, want %d: %v", len(results), fetch.MaxSearchResults, results)
	}
	for i, link := range results {
		if want := fmt.Sprintf("https://site%d.example/page", i); link != want {
			t.Errorf("result %d = %q, want %q", i, link, want)
		}
	}
}

func TestSearch_Idempotent(t *testing.T) {
	server := newServer(t, htmlHandler(`<html><body>
		<div class="g"><a href="https://go.dev/doc/effective_go">Effective Go</a></div>
		<div class="g"><a href="https://go.dev/tour/concurrency/2">Channels</a></div>
	</body></html>`))
	f := New(WithSearchEngine(testEngine(server)))

	first, err1 := f.Search(context.Background(), "golang channels")
	second, err2 := f.Search(context.Background(), "golang channels")
	if err1 != nil || err2 != nil {
		t.Fatalf("errors: %v, %v", err1, err2)
	}
	if len(first) != 2 {
		t.Fatalf("Search() = %v, want 2 links", first)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ: %v vs %v", first, second)
	}
}

func TestSearch_DuckDuckGoRedirects(t *testing.T) {
	target := "https://go.dev/ref/spec#Channel_types"
	page := fmt.Sprintf(`<div class="result results_links">
		<a class="result__a" href="//duckduckgo.com/l/?uddg=%s&amp;rut=x">Spec</a>
		<a class="result__snippet" href="//duckduckgo.com/l/?uddg=%s">snippet</a>
	</div>`, url.QueryEscape(target), url.QueryEscape(target))

	server := newServer(t, htmlHandler(page))
	engine := fetch.DuckDuckGo
	engine.Endpoint = server.URL + "/html/"

	results, err := New(WithSearchEngine(engine)).Search(context.Background(), "go channels")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if !reflect.DeepEqual(results, []string{target}) {
		t.Errorf("Search() = %v, want [%s]", results, target)
	}
}

func TestSearch_Failures(t *testing.T) {
	t.Run("empty query makes no request", func(t *testing.T) {
		called := false
		server := newServer(t, func(w http.ResponseWriter, r *http.Request) { called = true })
		_, err := New(WithSearchEngine(testEngine(server))).Search(context.Background(), "  ")
		if fetch.KindOf(err) != fetch.KindParse {
			t.Errorf("error = %v, want parse failure", err)
		}
		if called {
			t.Error("no request expected for an empty query")
		}
	})

	t.Run("server error", func(t *testing.T) {
		server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		_, err := New(WithSearchEngine(testEngine(server))).Search(context.Background(), "q")
		if fetch.KindOf(err) != fetch.KindTransport {
			t.Errorf("error = %v, want transport failure", err)
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		engine := testEngine(server)
		server.Close()

		_, err := New(WithSearchEngine(engine)).Search(context.Background(), "q")
		if fetch.KindOf(err) != fetch.KindTransport {
			t.Errorf("error = %v, want transport failure", err)
		}
	})
}

func TestFetch_VisibleText(t *testing.T) {
	server := newServer(t, htmlHandler("<script>x</script><p>Hello   World</p>"))

	text, err := New().Fetch(context.Background(), server.URL+"/page")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if text != "Hello World" {
		t.Errorf("Fetch() = %q, want %q", text, "Hello World")
	}
}

func TestFetch_Idempotent(t *testing.T) {
	server := newServer(t, htmlHandler("<h1>Channels</h1><p>Typed conduits.</p>"))
	f := New()

	first, err1 := f.Fetch(context.Background(), server.URL)
	second, err2 := f.Fetch(context.Background(), server.URL)
	if err1 != nil || err2 != nil {
		t.Fatalf("errors: %v, %v", err1, err2)
	}
	if first != second {
		t.Errorf("results differ: %q vs %q", first, second)
	}
}

func TestFetch_Timeout(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})

	start := time.Now()
	text, err := New(WithTimeout(50*time.Millisecond)).Fetch(context.Background(), server.URL)
	if text != "" {
		t.Errorf("Fetch() = %q, want absent", text)
	}
	if !fetch.IsTimeout(err) {
		t.Errorf("error = %v, want timeout failure", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Fetch took %v, timeout not enforced", elapsed)
	}
}

func TestFetch_StatusKinds(t *testing.T) {
	tests := []struct {
		status int
		want   fetch.Kind
	}{
		{http.StatusNotFound, fetch.KindNotFound},
		{http.StatusGone, fetch.KindNotFound},
		{http.StatusForbidden, fetch.KindTransport},
		{http.StatusBadGateway, fetch.KindTransport},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, "<p>error page</p>")
			})
			_, err := New().Fetch(context.Background(), server.URL)
			if fetch.KindOf(err) != tt.want {
				t.Errorf("error = %v, want kind %q", err, tt.want)
			}
		})
	}
}

func TestFetch_EmptyAndInvalid(t *testing.T) {
	server := newServer(t, htmlHandler("<html><head><style>body{}</style></head><body><script>render()</script></body></html>"))

	if _, err := New().Fetch(context.Background(), server.URL); !fetch.IsEmpty(err) {
		t.Errorf("error = %v, want empty failure", err)
	}
	if _, err := New().Fetch(context.Background(), "not a url"); fetch.KindOf(err) != fetch.KindParse {
		t.Errorf("error = %v, want parse failure", err)
	}
}

func TestFetch_MaxBodySize(t *testing.T) {
	server := newServer(t, htmlHandler("<p>"+strings.Repeat("a", 2048)+"</p>"))

	_, err := New(WithMaxBodySize(1024)).Fetch(context.Background(), server.URL)
	if fetch.KindOf(err) != fetch.KindTransport || !strings.Contains(err.Error(), "exceeds") {
		t.Errorf("error = %v, want oversized body failure", err)
	}
}

func TestFetch_Markdown(t *testing.T) {
	server := newServer(t, htmlHandler(`<html><body>
		<h1>Go   Channels</h1>
		<script>alert("x")</script>
		<p>Channels are <strong>typed</strong> conduits.</p>
		<ul><li>send</li><li>receive</li></ul>
	</body></html>`))

	md, err := New(WithFormat(FormatMarkdown)).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	for _, want := range []string{"# Go Channels", "**typed**", "- send", "- receive"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "alert") {
		t.Errorf("script content leaked into markdown:\n%s", md)
	}
	if strings.Contains(md, "\n\n\n") {
		t.Errorf("blank lines should be collapsed:\n%s", md)
	}
}

func TestOptions(t *testing.T) {
	client := &http.Client{}
	f := New(
		WithHTTPClient(client),
		WithTimeout(3*time.Second),
		WithUserAgent("custom/1.0"),
		WithSearchEngine(fetch.DuckDuckGo),
		WithFormat(FormatMarkdown),
		WithMaxBodySize(42),
	)

	if f.client != client || f.timeout != 3*time.Second || f.userAgent != "custom/1.0" ||
		f.engine.Name != "duckduckgo" || f.format != FormatMarkdown || f.maxBodySize != 42 {
		t.Errorf("options not applied: %+v", f)
	}

	defaults := New(WithHTTPClient(nil), WithTimeout(0), WithUserAgent(""), WithMaxBodySize(-1))
	if defaults.client == nil || defaults.timeout != fetch.DefaultTimeout || defaults.userAgent != fetch.DefaultUserAgent || defaults.maxBodySize != DefaultMaxBodySize {
		t.Errorf("zero values should keep defaults: %+v", defaults)
	}
}
