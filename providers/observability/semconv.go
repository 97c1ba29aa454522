package observability

// Semantic conventions for observability attributes, spans, events and
// metrics. Components use these names so log output stays consistent.

// --- LLM Provider Attributes ---

const (
	AttrLLMProvider     = "llm.provider"
	AttrLLMModel        = "llm.model"
	AttrLLMEndpoint     = "llm.endpoint"
	AttrLLMResponseID   = "llm.response.id"
	AttrLLMFinishReason = "llm.finish_reason"
	AttrLLMTemperature  = "llm.temperature"
	AttrLLMMaxTokens    = "llm.max_tokens" // #nosec G101 -- Not a credential, token refers to LLM tokens
	AttrLLMTokensTotal  = "llm.tokens.total"
)

// --- Tool Execution Attributes ---

const (
	AttrToolName     = "tool.name"
	AttrToolCallID   = "tool.call_id"
	AttrToolInput    = "tool.input"
	AttrToolOutput   = "tool.output"
	AttrToolDuration = "tool.duration"
	AttrToolError    = "tool.error"
)

// --- Request Attributes ---

const (
	AttrRequestMessagesCount = "request.messages_count"
	AttrRequestToolsCount    = "request.tools_count"
)

// --- HTTP Attributes ---

const (
	AttrHTTPMethod           = "http.method"
	AttrHTTPStatusCode       = "http.status_code"
	AttrHTTPURL              = "http.url"
	AttrHTTPRequestBodySize  = "http.request.body.size"
	AttrHTTPResponseBodySize = "http.response.body.size"
)

// --- Fetcher Attributes ---

const (
	// AttrFetchBackend is the fetcher implementation ("http", "browser").
	AttrFetchBackend = "fetch.backend"
	AttrFetchQuery   = "fetch.query"
	AttrFetchURL     = "fetch.url"
	AttrFetchEngine  = "fetch.engine"
	// AttrFetchResults is the number of URLs returned by a search.
	AttrFetchResults = "fetch.results"
	// AttrFetchLength is the length of extracted page text.
	AttrFetchLength      = "fetch.length"
	AttrFetchFailureKind = "fetch.failure_kind"
)

// --- Orchestrator Attributes ---

const (
	AttrRunID          = "react.run_id"
	AttrCallsRemaining = "react.calls_remaining"
	AttrCallsUsed      = "react.calls_used"
	AttrMaxCalls       = "react.max_calls"
	AttrStopReason     = "react.stop_reason"
	AttrToolCallsCount = "react.tool_calls_count"
)

// --- General Attributes ---

const (
	AttrError             = "error"
	AttrStatus            = "status"
	AttrStatusDescription = "status_description"
)

// --- Span Names ---

const (
	SpanReactExecute   = "react.execute"
	SpanClientComplete = "client.complete"
	SpanToolExecution  = "tool.execution"
)

// --- Event Names ---

const (
	EventLLMRequestStart    = "llm.request.start"
	EventLLMRequestEnd      = "llm.request.end"
	EventToolExecutionStart = "tool.execution.start"
	EventToolExecutionEnd   = "tool.execution.end"
	EventTokensReceived     = "llm.tokens.received" // #nosec G101 -- Not a credential, token refers to LLM tokens
	EventBudgetExhausted    = "react.budget_exhausted"
)

// --- Metric Names ---

const (
	MetricClientRequestCount = "webresearch.client.request.count"
	MetricClientErrorCount   = "webresearch.client.error.count"
	MetricToolCallCount      = "webresearch.react.tool_calls"
	MetricFetchFailureCount  = "webresearch.fetch.failures"
)
