// Package research declares the two tools offered to the research
// assistant, search_web and fetch_page, bound to a fetch.ContentFetcher.
//
// Both tools follow the best-effort policy: fetcher failures are logged
// through the observer in the context and reach the model as an empty
// result list or as [FetchFailedMessage], never as a tool error.
package research
