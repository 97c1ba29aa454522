package slogobs

import (
	"log/slog"
	"os"
	"strings"
)

// Format represents the output format for logs.
type Format string

const (
	// FormatCompact is a single-line format with JSON attributes.
	// Example: 2025-11-03 10:40:35 DEBUG Message → {"key":"value"}
	FormatCompact Format = "compact"

	// FormatJSON is one JSON object per line, for log aggregation.
	FormatJSON Format = "json"
)

// LevelTrace sits below slog.LevelDebug and is filtered out unless requested.
const LevelTrace = slog.LevelDebug - 4

// ParseFormat parses a format string. Unknown values yield FormatCompact.
func ParseFormat(s string) Format {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "json":
		return FormatJSON
	default:
		return FormatCompact
	}
}

// ParseLogLevel parses a level name (trace, debug, info, warn/warning, error).
// Unknown values yield slog.LevelInfo.
func ParseLogLevel(s string) slog.Level {
	switch strings.TrimSpace(strings.ToUpper(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetFormatFromEnv reads RESEARCH_LOG_FORMAT, then LOG_FORMAT.
func GetFormatFromEnv() Format {
	return ParseFormat(firstEnv("RESEARCH_LOG_FORMAT", "LOG_FORMAT"))
}

// GetLogLevelFromEnv reads RESEARCH_LOG_LEVEL, then LOG_LEVEL.
func GetLogLevelFromEnv() slog.Level {
	return ParseLogLevel(firstEnv("RESEARCH_LOG_LEVEL", "LOG_LEVEL"))
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

// String returns the string representation of the Format.
func (f Format) String() string {
	return string(f)
}
