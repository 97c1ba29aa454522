// Package anthropic implements [ai.Provider] for Anthropic's Messages API
// over plain HTTP.
//
// [New] reads ANTHROPIC_API_KEY and ANTHROPIC_API_BASE_URL from the
// environment. Requests carry the x-api-key and anthropic-version headers.
// Assistant tool calls become tool_use blocks and [ai.ToolResult] values
// become tool_result blocks, with is_error preserved.
package anthropic
