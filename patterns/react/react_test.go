package react

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"github.com/leofalp/webresearch/core/client"
	"github.com/leofalp/webresearch/providers/ai"
	"github.com/leofalp/webresearch/providers/fetch"
	"github.com/leofalp/webresearch/providers/observability"
	"github.com/leofalp/webresearch/providers/tool"
	"github.com/leofalp/webresearch/providers/tool/research"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockTool records the arguments it is called with.
type mockTool struct {
	name   string
	result string
	err    error
	calls  []string
}

func (m *mockTool) ToolInfo() ai.ToolDescription {
	return ai.ToolDescription{Name: m.name, Description: "Mock tool for testing"}
}

func (m *mockTool) Call(ctx context.Context, arguments string) (string, error) {
	m.calls = append(m.calls, arguments)
	if m.err != nil {
		return "", m.err
	}
	return m.result, nil
}

// mockProvider replays scripted responses and records every request.
type mockProvider struct {
	responses []*ai.ChatResponse
	err       error
	requests  []ai.ChatRequest
}

func (m *mockProvider) SendMessage(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	req.Messages = append([]ai.Message(nil), req.Messages...)
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.requests) > len(m.responses) {
		return nil, errors.New("no more mock responses")
	}
	return m.responses[len(m.requests)-1], nil
}

func (m *mockProvider) IsStopMessage(response *ai.ChatResponse) bool {
	return len(response.ToolCalls) == 0
}

func (m *mockProvider) WithAPIKey(apiKey string) ai.Provider {
	return m
}

func (m *mockProvider) WithBaseURL(baseURL string) ai.Provider {
	return m
}

func (m *mockProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	return m
}

func toolCall(id, name, args string) ai.ToolCall {
	return ai.ToolCall{ID: id, Type: "function", Function: ai.ToolCallFunction{Name: name, Arguments: args}}
}

func toolResponse(calls ...ai.ToolCall) *ai.ChatResponse {
	return &ai.ChatResponse{ToolCalls: calls, FinishReason: "tool_calls"}
}

func finalResponse(text string) *ai.ChatResponse {
	return &ai.ChatResponse{Content: text, FinishReason: "stop"}
}

func newOrchestrator(t *testing.T, provider *mockProvider, catalog *tool.Catalog, opts ...Option) *Orchestrator {
	t.Helper()
	c, err := client.New(provider)
	if err != nil {
		t.Fatal(err)
	}
	o, err := New(c, catalog, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func TestNew_Validation(t *testing.T) {
	c, _ := client.New(&mockProvider{})
	if _, err := New(nil, tool.NewCatalog()); err == nil {
		t.Error("expected error for nil client")
	}
	if _, err := New(c, nil); err == nil {
		t.Error("expected error for nil catalog")
	}

	o, err := New(c, tool.NewCatalog(), WithMaxCalls(-3))
	if err != nil {
		t.Fatal(err)
	}
	if o.maxCalls != DefaultMaxCalls {
		t.Errorf("negative budget should keep default, got %d", o.maxCalls)
	}
}

func TestRun_ZeroBudgetNeverCallsModel(t *testing.T) {
	provider := &mockProvider{responses: []*ai.ChatResponse{finalResponse("unreachable")}}
	o := newOrchestrator(t, provider, tool.NewCatalog(), WithMaxCalls(0))

	result := o.Run(context.Background(), []ai.Message{ai.NewUserMessage("hello")})

	if result.Text != BudgetExhaustedMessage || result.Reason != ReasonBudgetExhausted {
		t.Errorf("result = %q / %s", result.Text, result.Reason)
	}
	if len(provider.requests) != 0 {
		t.Errorf("model called %d times, want 0", len(provider.requests))
	}
	if result.CallsUsed != 0 {
		t.Errorf("CallsUsed = %d", result.CallsUsed)
	}
}

func TestRun_FinalAnswerImmediately(t *testing.T) {
	provider := &mockProvider{responses: []*ai.ChatResponse{finalResponse("42")}}
	o := newOrchestrator(t, provider, tool.NewCatalog())

	result, err := o.Execute(context.Background(), "What is the answer?")
	if err != nil {
		t.Fatal(err)
	}
	if result.Text != "42" || result.Reason != ReasonFinal || result.CallsUsed != 0 {
		t.Errorf("result = %+v", result)
	}
	if len(result.Messages) != 2 || result.Messages[1].Role != ai.RoleAssistant {
		t.Errorf("messages = %+v", result.Messages)
	}
	if result.RunID == "" {
		t.Error("RunID should be set")
	}
}

func TestExecute_EmptyPrompt(t *testing.T) {
	o := newOrchestrator(t, &mockProvider{}, tool.NewCatalog())
	if _, err := o.Execute(context.Background(), "   "); err == nil {
		t.Error("expected error for empty prompt")
	}
}

func TestRun_ResultsCorrelatedInRequestOrder(t *testing.T) {
	alpha := &mockTool{name: "alpha", result: "A"}
	beta := &mockTool{name: "beta", result: "B"}
	calls := []ai.ToolCall{
		toolCall("id_1", "beta", `{"n":1}`),
		toolCall("id_2", "alpha", `{"n":2}`),
		toolCall("id_3", "beta", `{"n":3}`),
	}
	provider := &mockProvider{responses: []*ai.ChatResponse{toolResponse(calls...), finalResponse("done")}}
	o := newOrchestrator(t, provider, tool.NewCatalogWithTools(alpha, beta))

	result := o.Run(context.Background(), []ai.Message{ai.NewUserMessage("go")})

	if result.Text != "done" || result.CallsUsed != 1 {
		t.Fatalf("result = %+v", result)
	}
	if len(provider.requests) != 2 {
		t.Fatalf("model called %d times, want 2", len(provider.requests))
	}

	second := provider.requests[1].Messages
	if len(second) != 3 {
		t.Fatalf("second request carries %d messages, want 3", len(second))
	}
	if second[1].Role != ai.RoleAssistant || len(second[1].ToolCalls) != 3 {
		t.Errorf("assistant message = %+v", second[1])
	}

	toolResults := second[2].ToolResults
	if second[2].Role != ai.RoleUser || len(toolResults) != 3 {
		t.Fatalf("tool results message = %+v", second[2])
	}
	for i, want := range []ai.ToolResult{
		{ToolCallID: "id_1", Content: "B"},
		{ToolCallID: "id_2", Content: "A"},
		{ToolCallID: "id_3", Content: "B"},
	} {
		if toolResults[i] != want {
			t.Errorf("result %d = %+v, want %+v", i, toolResults[i], want)
		}
	}
	if !reflect.DeepEqual(beta.calls, []string{`{"n":1}`, `{"n":3}`}) || len(alpha.calls) != 1 {
		t.Errorf("dispatch order wrong: alpha=%v beta=%v", alpha.calls, beta.calls)
	}
}

type scriptedFetcher struct {
	searches []string
	fetches  []string
}

func (f *scriptedFetcher) Search(ctx context.Context, query string) ([]string, error) {
	f.searches = append(f.searches, query)
	return []string{"https://example.com/top", "https://example.com/second"}, nil
}

func (f *scriptedFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	f.fetches = append(f.fetches, rawURL)
	return "Top result text", nil
}

func TestRun_SearchThenFetchUsesTwoUnits(t *testing.T) {
	tests := []struct {
		budget       int
		wantRequests int
		wantText     string
		wantReason   StopReason
	}{
		{budget: 2, wantRequests: 2, wantText: BudgetExhaustedMessage, wantReason: ReasonBudgetExhausted},
		{budget: 3, wantRequests: 3, wantText: "Summary of X", wantReason: ReasonFinal},
		{budget: 10, wantRequests: 3, wantText: "Summary of X", wantReason: ReasonFinal},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("budget %d", tt.budget), func(t *testing.T) {
			fetcher := &scriptedFetcher{}
			provider := &mockProvider{responses: []*ai.ChatResponse{
				toolResponse(toolCall("s1", research.SearchWebToolName, `{"query":"X"}`)),
				toolResponse(toolCall("f1", research.FetchPageToolName, `{"url":"https://example.com/top"}`)),
				finalResponse("Summary of X"),
			}}
			o := newOrchestrator(t, provider, research.NewCatalog(fetcher), WithMaxCalls(tt.budget))

			result, err := o.Execute(context.Background(), "search for X then summarize the top result")
			if err != nil {
				t.Fatal(err)
			}

			if result.Text != tt.wantText || result.Reason != tt.wantReason {
				t.Errorf("result = %q / %s, want %q / %s", result.Text, result.Reason, tt.wantText, tt.wantReason)
			}
			if result.CallsUsed != 2 {
				t.Errorf("CallsUsed = %d, want 2", result.CallsUsed)
			}
			if len(fetcher.searches) != 1 || len(fetcher.fetches) != 1 {
				t.Errorf("searches=%v fetches=%v", fetcher.searches, fetcher.fetches)
			}
			if len(provider.requests) != tt.wantRequests {
				t.Fatalf("model requests = %d, want %d", len(provider.requests), tt.wantRequests)
			}

			searchResult := provider.requests[1].Messages[2].ToolResults[0]
			if searchResult.ToolCallID != "s1" || searchResult.Content != `["https://example.com/top","https://example.com/second"]` {
				t.Errorf("search result block = %+v", searchResult)
			}

			var fetchResult ai.ToolResult
			if len(provider.requests) > 2 {
				fetchResult = provider.requests[2].Messages[4].ToolResults[0]
			} else {
				fetchResult = result.Messages[4].ToolResults[0]
			}
			if fetchResult.ToolCallID != "f1" || fetchResult.Content != "Top result text" {
				t.Errorf("fetch result block = %+v", fetchResult)
			}
		})
	}
}

func TestRun_BudgetExhaustedAfterToolRounds(t *testing.T) {
	search := &mockTool{name: "search_web", result: "[]"}
	responses := make([]*ai.ChatResponse, 0, 5)
	for i := 0; i < 5; i++ {
		responses = append(responses, toolResponse(toolCall("c", "search_web", `{"query":"again"}`)))
	}
	provider := &mockProvider{responses: responses}
	o := newOrchestrator(t, provider, tool.NewCatalogWithTools(search), WithMaxCalls(3))

	result := o.Run(context.Background(), []ai.Message{ai.NewUserMessage("loop")})

	if result.Reason != ReasonBudgetExhausted || result.Text != BudgetExhaustedMessage {
		t.Errorf("result = %q / %s", result.Text, result.Reason)
	}
	if len(provider.requests) != 3 || result.CallsUsed != 3 || len(search.calls) != 3 {
		t.Errorf("model calls=%d used=%d tool calls=%d, want 3 each", len(provider.requests), result.CallsUsed, len(search.calls))
	}
}

func TestRun_UnknownTool(t *testing.T) {
	known := &mockTool{name: "search_web", result: "[]"}
	calls := []ai.ToolCall{toolCall("k", "search_web", `{}`), toolCall("u", "delete_everything", `{}`)}

	t.Run("error result by default", func(t *testing.T) {
		provider := &mockProvider{responses: []*ai.ChatResponse{toolResponse(calls...), finalResponse("ok")}}
		o := newOrchestrator(t, provider, tool.NewCatalogWithTools(known))

		o.Run(context.Background(), []ai.Message{ai.NewUserMessage("q")})

		toolResults := provider.requests[1].Messages[2].ToolResults
		if len(toolResults) != 2 {
			t.Fatalf("got %d result blocks, want 2", len(toolResults))
		}
		unknown := toolResults[1]
		if unknown.ToolCallID != "u" || !unknown.IsError || unknown.Content != `unknown tool "delete_everything"` {
			t.Errorf("unknown tool block = %+v", unknown)
		}
	})

	t.Run("skip policy drops the request", func(t *testing.T) {
		provider := &mockProvider{responses: []*ai.ChatResponse{toolResponse(calls...), finalResponse("ok")}}
		o := newOrchestrator(t, provider, tool.NewCatalogWithTools(known), WithUnknownToolPolicy(UnknownToolSkip))

		o.Run(context.Background(), []ai.Message{ai.NewUserMessage("q")})

		toolResults := provider.requests[1].Messages[2].ToolResults
		if len(toolResults) != 1 || toolResults[0].ToolCallID != "k" {
			t.Errorf("tool results = %+v", toolResults)
		}
	})

	t.Run("skip policy with only unknown tools ends the run", func(t *testing.T) {
		provider := &mockProvider{responses: []*ai.ChatResponse{{Content: "trying", ToolCalls: calls[1:]}}}
		o := newOrchestrator(t, provider, tool.NewCatalogWithTools(known), WithUnknownToolPolicy(UnknownToolSkip))

		result := o.Run(context.Background(), []ai.Message{ai.NewUserMessage("q")})
		if result.Reason != ReasonFinal || result.Text != "trying" || len(provider.requests) != 1 {
			t.Errorf("result = %+v, model calls = %d", result, len(provider.requests))
		}
	})
}

func TestRun_ToolErrorBecomesErrorBlock(t *testing.T) {
	failing := &mockTool{name: "fetch_page", err: errors.New("invalid input for fetch_page")}
	provider := &mockProvider{responses: []*ai.ChatResponse{
		toolResponse(toolCall("f", "fetch_page", `not json`)),
		finalResponse("recovered"),
	}}
	o := newOrchestrator(t, provider, tool.NewCatalogWithTools(failing))

	result := o.Run(context.Background(), []ai.Message{ai.NewUserMessage("q")})

	if result.Text != "recovered" {
		t.Errorf("Text = %q", result.Text)
	}
	block := provider.requests[1].Messages[2].ToolResults[0]
	if !block.IsError || !strings.HasPrefix(block.Content, "Error: ") {
		t.Errorf("block = %+v", block)
	}
}

func TestRun_ProviderErrorBecomesFinalText(t *testing.T) {
	provider := &mockProvider{err: errors.New("503 service unavailable")}
	o := newOrchestrator(t, provider, tool.NewCatalog())

	result := o.Run(context.Background(), []ai.Message{ai.NewUserMessage("q")})

	if result.Reason != ReasonClientError {
		t.Errorf("Reason = %s", result.Reason)
	}
	if result.Text != "Error: 503 service unavailable" {
		t.Errorf("Text = %q", result.Text)
	}
}

func TestRun_CanceledContext(t *testing.T) {
	provider := &mockProvider{responses: []*ai.ChatResponse{finalResponse("unreachable")}}
	o := newOrchestrator(t, provider, tool.NewCatalog())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := o.Run(ctx, []ai.Message{ai.NewUserMessage("q")})

	if result.Reason != ReasonCanceled || !strings.HasPrefix(result.Text, "Error: ") {
		t.Errorf("result = %q / %s", result.Text, result.Reason)
	}
	if len(provider.requests) != 0 {
		t.Error("model should not be called with a canceled context")
	}
}

func TestRun_DoesNotMutateCallerConversation(t *testing.T) {
	search := &mockTool{name: "search_web", result: "[]"}
	provider := &mockProvider{responses: []*ai.ChatResponse{
		toolResponse(toolCall("a", "search_web", `{}`)),
		finalResponse("done"),
	}}
	o := newOrchestrator(t, provider, tool.NewCatalogWithTools(search))

	conversation := make([]ai.Message, 1, 10)
	conversation[0] = ai.NewUserMessage("original")
	snapshot := append([]ai.Message(nil), conversation...)

	result := o.Run(context.Background(), conversation)

	if !reflect.DeepEqual(conversation, snapshot) {
		t.Errorf("caller conversation changed: %+v", conversation)
	}
	if extended := conversation[:cap(conversation)]; extended[1].Role != "" {
		t.Errorf("backing array of caller slice was written: %+v", extended[1])
	}
	if len(result.Messages) != 4 {
		t.Errorf("result transcript has %d messages, want 4", len(result.Messages))
	}
}

func TestRun_AccumulatesUsage(t *testing.T) {
	search := &mockTool{name: "search_web", result: "[]"}
	first := toolResponse(toolCall("a", "search_web", `{}`))
	first.Usage = &ai.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	last := finalResponse("done")
	last.Usage = &ai.Usage{PromptTokens: 20, CompletionTokens: 7, TotalTokens: 27}

	o := newOrchestrator(t, &mockProvider{responses: []*ai.ChatResponse{first, last}}, tool.NewCatalogWithTools(search))
	result := o.Run(context.Background(), []ai.Message{ai.NewUserMessage("q")})

	if result.Usage != (ai.Usage{PromptTokens: 30, CompletionTokens: 12, TotalTokens: 42}) {
		t.Errorf("Usage = %+v", result.Usage)
	}
}

// testObserver implements observability.Provider for testing
type testObserver struct {
	spans    []string
	logs     []string
	counters map[string]int64
}

func newTestObserver() *testObserver {
	return &testObserver{counters: make(map[string]int64)}
}

func (t *testObserver) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	t.spans = append(t.spans, name)
	span := &testSpan{}
	return observability.ContextWithSpan(ctx, span), span
}

func (t *testObserver) Counter(name string) observability.Counter {
	return &testCounter{name: name, observer: t}
}

func (t *testObserver) Histogram(name string) observability.Histogram {
	return nil
}

func (t *testObserver) Trace(ctx context.Context, msg string, attrs ...observability.Attribute) {
	t.logs = append(t.logs, msg)
}
func (t *testObserver) Debug(ctx context.Context, msg string, attrs ...observability.Attribute) {
	t.logs = append(t.logs, msg)
}
func (t *testObserver) Info(ctx context.Context, msg string, attrs ...observability.Attribute) {
	t.logs = append(t.logs, msg)
}
func (t *testObserver) Warn(ctx context.Context, msg string, attrs ...observability.Attribute) {
	t.logs = append(t.logs, msg)
}
func (t *testObserver) Error(ctx context.Context, msg string, attrs ...observability.Attribute) {
	t.logs = append(t.logs, msg)
}

type testSpan struct {
	events []string
}

func (s *testSpan) End()                                                        {}
func (s *testSpan) SetAttributes(attrs ...observability.Attribute)              {}
func (s *testSpan) SetStatus(code observability.StatusCode, description string) {}
func (s *testSpan) RecordError(err error)                                       {}
func (s *testSpan) AddEvent(name string, attrs ...observability.Attribute) {
	s.events = append(s.events, name)
}

type testCounter struct {
	name     string
	observer *testObserver
}

func (c *testCounter) Add(ctx context.Context, value int64, attrs ...observability.Attribute) {
	c.observer.counters[c.name] += value
}

func TestRun_Observability(t *testing.T) {
	observer := newTestObserver()
	fetcher := &scriptedFetcher{}
	provider := &mockProvider{responses: []*ai.ChatResponse{
		toolResponse(toolCall("s", research.SearchWebToolName, `{"query":"X"}`)),
		finalResponse("done"),
	}}
	o := newOrchestrator(t, provider, research.NewCatalog(fetcher))

	ctx := observability.ContextWithObserver(context.Background(), observer)
	o.Run(ctx, []ai.Message{ai.NewUserMessage("q")})

	wantSpans := []string{
		observability.SpanReactExecute,
		observability.SpanClientComplete,
		observability.SpanToolExecution,
		observability.SpanClientComplete,
	}
	if !reflect.DeepEqual(observer.spans, wantSpans) {
		t.Errorf("spans = %v, want %v", observer.spans, wantSpans)
	}
	if observer.counters[observability.MetricToolCallCount] != 1 {
		t.Errorf("tool call count = %d", observer.counters[observability.MetricToolCallCount])
	}

	joined := strings.Join(observer.logs, "\n")
	for _, want := range []string{"Using tool", "Tool completed", "Run completed"} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing log %q in:\n%s", want, joined)
		}
	}
}

func TestRun_FetchFailureReachesModelAsText(t *testing.T) {
	fetcher := &failingFetcher{err: &fetch.Error{Kind: fetch.KindTimeout, Op: fetch.OpFetch, Target: "https://slow.example"}}
	provider := &mockProvider{responses: []*ai.ChatResponse{
		toolResponse(toolCall("f", research.FetchPageToolName, `{"url":"https://slow.example"}`)),
		finalResponse("could not read it"),
	}}
	o := newOrchestrator(t, provider, research.NewCatalog(fetcher))

	result := o.Run(context.Background(), []ai.Message{ai.NewUserMessage("q")})

	if result.Reason != ReasonFinal || result.CallsUsed != 1 {
		t.Errorf("result = %+v", result)
	}
	block := provider.requests[1].Messages[2].ToolResults[0]
	if block.Content != research.FetchFailedMessage || block.IsError {
		t.Errorf("block = %+v", block)
	}
}

type failingFetcher struct {
	err error
}

func (f *failingFetcher) Search(ctx context.Context, query string) ([]string, error) {
	return nil, f.err
}

func (f *failingFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	return "", f.err
}
