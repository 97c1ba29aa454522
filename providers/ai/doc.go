// Package ai defines the provider-agnostic chat types and the [Provider]
// interface implemented by model backends.
//
// A conversation is a slice of [Message]. Assistant messages may carry
// [ToolCall] requests; the user message that follows answers each of them
// with exactly one [ToolResult], correlated by tool call id.
package ai
