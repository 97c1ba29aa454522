// Package browserfetch implements fetch.ContentFetcher on top of a real
// Chromium browser driven through the DevTools protocol by go-rod.
//
// The browser is an explicit resource owned by the caller:
//
//	browser, err := browserfetch.Launch(ctx, browserfetch.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer browser.Close()
//
//	fetcher, err := browserfetch.New(browser, browserfetch.WithSearchEngine(fetch.DuckDuckGo))
//
// Every Search or Fetch opens one page, loads it with the configured user
// agent and timeout, reads what it needs and closes the page again. Page use
// on one Browser is serialised.
package browserfetch
