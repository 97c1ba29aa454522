// Package fetch defines the content fetcher contract used by the research
// tools, together with the pieces shared by its implementations: typed
// failures, search engine descriptors and HTML text extraction.
//
// A [ContentFetcher] answers two questions. Search returns up to
// [MaxSearchResults] result URLs for a query, in the order the engine ranked
// them. Fetch returns the visible text of a page with whitespace collapsed.
// Failures are reported as [*Error] values carrying a [Kind]; callers that
// want the lenient behaviour of returning nothing instead use [SearchOrEmpty]
// and [FetchOrAbsent].
//
// Implementations live in subpackages: httpfetch talks HTTP directly and
// parses static HTML, browserfetch drives a real browser.
package fetch
