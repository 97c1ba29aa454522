package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leofalp/webresearch/core/client"
	"github.com/leofalp/webresearch/internal/utils"
	"github.com/leofalp/webresearch/patterns/react"
	"github.com/leofalp/webresearch/providers/ai"
	"github.com/leofalp/webresearch/providers/fetch"
	"github.com/leofalp/webresearch/providers/tool/research"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "research [prompt...]",
		Short: "Answer a question by searching and reading the web",
		Long: `research sends the prompt to the model together with two tools,
search_web and fetch_page, and keeps answering the model's tool requests
until it produces a final answer or the call budget is spent.`,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runResearch(cmd.Context(), strings.Join(args, " "))
		},
	}
	root.SetOut(a.out)

	defaults := client.DefaultGenerationConfig()

	persistent := root.PersistentFlags()
	persistent.StringVar(&a.opts.fetcher, "fetcher", fetcherHTTP, "content fetcher: http or browser")
	persistent.StringVar(&a.opts.engine, "engine", fetch.Google.Name, "search engine: google or duckduckgo")
	persistent.StringVar(&a.opts.format, "format", "text", "page format for the http fetcher: text or markdown")
	persistent.DurationVar(&a.opts.timeout, "timeout", fetch.DefaultTimeout, "timeout of a single search or page load")
	persistent.StringVar(&a.opts.browserBin, "browser-bin", "", "browser binary (default $RESEARCH_BROWSER_BIN or auto-detected)")
	persistent.BoolVar(&a.opts.headless, "headless", true, "run the browser headless")
	persistent.StringVar(&a.opts.logLevel, "log-level", "", "log level: trace, debug, info, warn or error (default $RESEARCH_LOG_LEVEL)")
	persistent.StringVar(&a.opts.logFormat, "log-format", "", "log format: compact or json (default $RESEARCH_LOG_FORMAT)")

	flags := root.Flags()
	flags.IntVar(&a.opts.maxCalls, "max-calls", react.DefaultMaxCalls, "maximum number of tool-use rounds")
	flags.IntVar(&a.opts.maxTokens, "max-tokens", defaults.MaxTokens, "maximum tokens per model response")
	flags.Float64Var(&a.opts.temperature, "temperature", *defaults.Temperature, "sampling temperature")
	flags.StringVar(&a.opts.model, "model", "", "model name (default $ANTHROPIC_MODEL or "+client.DefaultModel+")")

	root.AddCommand(newSearchCmd(a), newFetchCmd(a))
	return root
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query...>",
		Short: "Print the result URLs of a web search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.observe(cmd.Context())
			return a.withFetcher(ctx, func(f fetch.ContentFetcher) error {
				urls, err := f.Search(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				for _, u := range urls {
					fmt.Fprintln(cmd.OutOrStdout(), u)
				}
				return nil
			})
		},
	}
}

func newFetchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <url>",
		Short: "Print the visible text of a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.observe(cmd.Context())
			return a.withFetcher(ctx, func(f fetch.ContentFetcher) error {
				text, err := f.Fetch(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}
}

func (a *app) runResearch(ctx context.Context, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return errors.New("a prompt is required")
	}

	provider, err := a.newProvider()
	if err != nil {
		return err
	}
	modelClient, err := client.New(provider, client.WithModel(a.opts.model))
	if err != nil {
		return err
	}

	ctx = a.observe(ctx)
	return a.withFetcher(ctx, func(f fetch.ContentFetcher) error {
		orchestrator, err := react.New(modelClient, research.NewCatalog(f),
			react.WithMaxCalls(a.opts.maxCalls),
			react.WithGenerationConfig(ai.GenerationConfig{
				MaxTokens:   a.opts.maxTokens,
				Temperature: utils.Ptr(a.opts.temperature),
			}),
		)
		if err != nil {
			return err
		}

		result, err := orchestrator.Execute(ctx, prompt)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, result.Text)
		return nil
	})
}
