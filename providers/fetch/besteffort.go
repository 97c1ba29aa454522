package fetch

import (
	"context"

	"github.com/leofalp/webresearch/providers/observability"
)

// SearchOrEmpty runs Search and degrades any failure to an empty result.
// The failure is logged through the observer in ctx.
func SearchOrEmpty(ctx context.Context, f ContentFetcher, query string) []string {
	urls, err := f.Search(ctx, query)
	if err != nil {
		logFailure(ctx, OpSearch, query, err)
		return []string{}
	}
	if urls == nil {
		return []string{}
	}
	return urls
}

// FetchOrAbsent runs Fetch and reports false instead of an error. The
// failure is logged through the observer in ctx.
func FetchOrAbsent(ctx context.Context, f ContentFetcher, rawURL string) (string, bool) {
	text, err := f.Fetch(ctx, rawURL)
	if err != nil {
		logFailure(ctx, OpFetch, rawURL, err)
		return "", false
	}
	if text == "" {
		return "", false
	}
	return text, true
}

func logFailure(ctx context.Context, op, target string, err error) {
	observer := observability.ObserverFromContext(ctx)
	if observer == nil {
		return
	}

	kind := KindOf(err)
	if kind == "" {
		kind = KindTransport
	}
	targetKey := observability.AttrFetchURL
	if op == OpSearch {
		targetKey = observability.AttrFetchQuery
	}

	observer.Warn(ctx, op+" failed",
		observability.String(targetKey, target),
		observability.String(observability.AttrFetchFailureKind, string(kind)),
		observability.Error(err),
	)
	if counter := observer.Counter(observability.MetricFetchFailureCount); counter != nil {
		counter.Add(ctx, 1, observability.String(observability.AttrFetchFailureKind, string(kind)))
	}
}
