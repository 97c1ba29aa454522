// Package slogobs provides an observability.Provider backed by log/slog.
//
// Spans, counters and log calls are all rendered as structured log records
// through a [Handler] that writes either a compact single-line format or
// JSON. Level and format default to the RESEARCH_LOG_LEVEL and
// RESEARCH_LOG_FORMAT environment variables (falling back to LOG_LEVEL and
// LOG_FORMAT), and can be overridden with [WithLevel] and [WithFormat].
package slogobs
