// Package observability defines the interfaces and semantic conventions used
// for tracing, metrics and structured logging across webresearch.
//
// [Provider] composes [Tracer], [Metrics] and [Logger]. An active Provider and
// [Span] travel through a [context.Context] via [ContextWithObserver] and
// [ContextWithSpan], so fetchers and tools can report progress without being
// handed a logger explicitly. Everything is nil-safe at the call site: when
// no observer is attached, components stay silent.
package observability
