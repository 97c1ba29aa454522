package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/leofalp/webresearch/providers/ai"
	"github.com/leofalp/webresearch/providers/ai/anthropic"
	"github.com/leofalp/webresearch/providers/fetch"
	"github.com/leofalp/webresearch/providers/fetch/browserfetch"
	"github.com/leofalp/webresearch/providers/fetch/httpfetch"
	"github.com/leofalp/webresearch/providers/observability"
	"github.com/leofalp/webresearch/providers/observability/slogobs"
)

const (
	fetcherHTTP    = "http"
	fetcherBrowser = "browser"
)

type options struct {
	fetcher    string
	engine     string
	format     string
	timeout    time.Duration
	browserBin string
	headless   bool

	maxCalls    int
	maxTokens   int
	temperature float64
	model       string

	logLevel  string
	logFormat string
}

// app holds the command's collaborators so tests can replace them.
type app struct {
	opts        options
	out         io.Writer
	newProvider func() (ai.Provider, error)
	newFetcher  func(ctx context.Context, opts options) (fetch.ContentFetcher, func() error, error)
}

func newApp() *app {
	return &app{
		out:         os.Stdout,
		newProvider: anthropicProvider,
		newFetcher:  buildFetcher,
	}
}

func anthropicProvider() (ai.Provider, error) {
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		return nil, errors.New("ANTHROPIC_API_KEY is not set")
	}
	return anthropic.New(), nil
}

// buildFetcher returns the configured fetcher and a function releasing what
// it holds.
func buildFetcher(ctx context.Context, opts options) (fetch.ContentFetcher, func() error, error) {
	engine, err := fetch.EngineByName(opts.engine)
	if err != nil {
		return nil, nil, err
	}

	switch strings.ToLower(opts.fetcher) {
	case fetcherHTTP:
		format := httpfetch.FormatText
		if strings.EqualFold(opts.format, string(httpfetch.FormatMarkdown)) {
			format = httpfetch.FormatMarkdown
		}
		f := httpfetch.New(
			httpfetch.WithSearchEngine(engine),
			httpfetch.WithTimeout(opts.timeout),
			httpfetch.WithFormat(format),
		)
		return f, func() error { return nil }, nil

	case fetcherBrowser:
		cfg := browserfetch.DefaultConfig()
		if opts.browserBin != "" {
			cfg.Bin = opts.browserBin
		}
		cfg.Headless = opts.headless
		if opts.timeout > 0 {
			cfg.PageTimeout = opts.timeout
		}

		browser, err := browserfetch.Launch(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		f, err := browserfetch.New(browser, browserfetch.WithSearchEngine(engine))
		if err != nil {
			_ = browser.Close()
			return nil, nil, err
		}
		return f, browser.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown fetcher %q (want %s or %s)", opts.fetcher, fetcherHTTP, fetcherBrowser)
	}
}

// observe attaches a slog-backed observer to ctx.
func (a *app) observe(ctx context.Context) context.Context {
	var opts []slogobs.Option
	if a.opts.logLevel != "" {
		opts = append(opts, slogobs.WithLevel(slogobs.ParseLogLevel(a.opts.logLevel)))
	}
	if a.opts.logFormat != "" {
		opts = append(opts, slogobs.WithFormat(slogobs.ParseFormat(a.opts.logFormat)))
	}
	return observability.ContextWithObserver(ctx, slogobs.New(opts...))
}

// withFetcher builds the fetcher, runs fn and releases the fetcher.
func (a *app) withFetcher(ctx context.Context, fn func(fetch.ContentFetcher) error) (err error) {
	f, release, err := a.newFetcher(ctx, a.opts)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := release(); closeErr != nil && err == nil {
			err = fmt.Errorf("release fetcher: %w", closeErr)
		}
	}()
	return fn(f)
}
