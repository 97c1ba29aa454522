// Package httpfetch implements fetch.ContentFetcher with plain HTTP requests
// and static HTML parsing.
//
// Pages that build their content with JavaScript come back mostly empty;
// use browserfetch for those. Fetch can return plain text (the default) or
// Markdown that keeps headings, lists and links:
//
//	f := httpfetch.New(
//	    httpfetch.WithSearchEngine(fetch.DuckDuckGo),
//	    httpfetch.WithFormat(httpfetch.FormatMarkdown),
//	)
package httpfetch
