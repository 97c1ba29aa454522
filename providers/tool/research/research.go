package research

import (
	"context"

	"github.com/leofalp/webresearch/providers/fetch"
	"github.com/leofalp/webresearch/providers/tool"
)

const (
	SearchWebToolName = "search_web"
	FetchPageToolName = "fetch_page"

	// FetchFailedMessage is the tool output when a page could not be fetched.
	FetchFailedMessage = "Failed to fetch page"
)

// SearchInput is the argument of search_web.
type SearchInput struct {
	Query string `json:"query" jsonschema:"description=The search query,required"`
}

// FetchInput is the argument of fetch_page.
type FetchInput struct {
	URL string `json:"url" jsonschema:"description=The absolute http(s) URL of the page to fetch,required"`
}

// NewSearchWebTool returns search_web. Its output is a JSON array of at most
// 10 result URLs.
func NewSearchWebTool(f fetch.ContentFetcher) *tool.Tool[SearchInput, []string] {
	return tool.NewTool[SearchInput, []string](
		SearchWebToolName,
		func(ctx context.Context, input SearchInput) ([]string, error) {
			return fetch.SearchOrEmpty(ctx, f, input.Query), nil
		},
		tool.WithDescription("Search the web for a query and return a list of up to 10 result URLs."),
	)
}

// NewFetchPageTool returns fetch_page. Its output is the page's visible text.
func NewFetchPageTool(f fetch.ContentFetcher) *tool.Tool[FetchInput, string] {
	return tool.NewTool[FetchInput, string](
		FetchPageToolName,
		func(ctx context.Context, input FetchInput) (string, error) {
			text, ok := fetch.FetchOrAbsent(ctx, f, input.URL)
			if !ok {
				return FetchFailedMessage, nil
			}
			return text, nil
		},
		tool.WithDescription("Fetch a web page and return its visible text content."),
	)
}

// NewCatalog returns a catalog holding search_web and fetch_page, in that order.
func NewCatalog(f fetch.ContentFetcher) *tool.Catalog {
	return tool.NewCatalogWithTools(NewSearchWebTool(f), NewFetchPageTool(f))
}
