package client

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/leofalp/webresearch/internal/utils"
	"github.com/leofalp/webresearch/providers/ai"
	"github.com/leofalp/webresearch/providers/observability"
)

const (
	// EnvModel overrides DefaultModel.
	EnvModel = "ANTHROPIC_MODEL"

	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultMaxTokens = 8192

	ResearchSystemPrompt = "You are a research assistant helping users find and analyze information from the web."
	GeneralSystemPrompt  = "You are a helpful AI assistant."

	// ErrorPrefix starts the text of a response synthesised from a failure.
	ErrorPrefix = "Error: "

	previewLength = 200
)

var errNilProvider = errors.New("client: provider is nil")

// DefaultGenerationConfig returns 8192 max tokens at temperature 0.
func DefaultGenerationConfig() ai.GenerationConfig {
	return ai.GenerationConfig{
		MaxTokens:   DefaultMaxTokens,
		Temperature: utils.Ptr(0.0),
	}
}

// Client talks to one model provider. It holds no conversation state and can
// be shared between runs.
type Client struct {
	provider     ai.Provider
	model        string
	systemPrompt string
	observer     observability.Provider
}

// New returns a Client using the research system prompt and the model named
// by ANTHROPIC_MODEL, falling back to DefaultModel.
func New(provider ai.Provider, opts ...Option) (*Client, error) {
	if provider == nil {
		return nil, errNilProvider
	}

	model := os.Getenv(EnvModel)
	if model == "" {
		model = DefaultModel
	}

	c := &Client{
		provider:     provider,
		model:        model,
		systemPrompt: ResearchSystemPrompt,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model returns the model name sent with requests.
func (c *Client) Model() string {
	return c.model
}

// Response is the outcome of one model call. When IsFinal reports true, Text
// holds the answer; otherwise ToolCalls lists the requested invocations in the
// order the model emitted them.
type Response struct {
	Text      string
	ToolCalls []ai.ToolCall
	// Message is the assistant message to append to the conversation.
	Message ai.Message
	Usage   *ai.Usage
	// Err is the provider failure a synthetic final response was built from.
	Err error
}

// IsFinal reports whether the response ends the exchange.
func (r *Response) IsFinal() bool {
	return len(r.ToolCalls) == 0
}

func errorResponse(err error) *Response {
	text := ErrorPrefix + err.Error()
	return &Response{
		Text:    text,
		Message: ai.Message{Role: ai.RoleAssistant, Content: text},
		Err:     err,
	}
}

// Complete sends conversation and tools to the model. remainingCalls is only
// reported; enforcing the budget is the caller's job. A zero MaxTokens in
// config means DefaultMaxTokens. Complete never returns nil.
func (c *Client) Complete(ctx context.Context, conversation []ai.Message, tools []ai.ToolDescription, remainingCalls int, config ai.GenerationConfig) *Response {
	observer := c.observerFor(ctx)
	if observer != nil {
		var span observability.Span
		ctx, span = observer.StartSpan(ctx, observability.SpanClientComplete,
			observability.String(observability.AttrLLMModel, c.model),
			observability.Int(observability.AttrCallsRemaining, remainingCalls),
		)
		defer span.End()
		ctx = observability.ContextWithSpan(ctx, span)
		ctx = observability.ContextWithObserver(ctx, observer)

		observer.Info(ctx, "Sending request to model",
			observability.Int(observability.AttrCallsRemaining, remainingCalls),
			observability.Int(observability.AttrRequestMessagesCount, len(conversation)),
			observability.Int(observability.AttrRequestToolsCount, len(tools)),
		)
		if len(conversation) > 0 {
			observer.Debug(ctx, "Last message",
				observability.String("message.preview", preview(conversation[len(conversation)-1])),
			)
		}
	}

	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultMaxTokens
	}
	request := ai.ChatRequest{
		Model:            c.model,
		Messages:         conversation,
		SystemPrompt:     c.systemPrompt,
		Tools:            tools,
		GenerationConfig: &config,
	}

	start := time.Now()
	resp, err := c.provider.SendMessage(ctx, request)
	duration := time.Since(start)
	if err == nil && resp == nil {
		err = errors.New("provider returned no response")
	}
	if err != nil {
		c.recordFailure(ctx, observer, err, duration)
		return errorResponse(err)
	}

	result := &Response{
		Message: resp.AsMessage(),
		Usage:   resp.Usage,
	}
	if c.provider.IsStopMessage(resp) {
		result.Text = resp.Content
		result.Message.ToolCalls = nil
	} else {
		result.ToolCalls = append([]ai.ToolCall(nil), resp.ToolCalls...)
	}

	c.recordSuccess(ctx, observer, resp, result, duration)
	return result
}

// Ask sends a single user prompt, without tools, using the general system
// prompt, and returns the model's text.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	observer := c.observerFor(ctx)
	if observer != nil {
		observer.Info(ctx, "Sending prompt to model",
			observability.String("prompt.preview", utils.TruncateString(prompt, previewLength)),
		)
	}

	resp, err := c.provider.SendMessage(ctx, ai.ChatRequest{
		Model:            c.model,
		Messages:         []ai.Message{ai.NewUserMessage(prompt)},
		SystemPrompt:     GeneralSystemPrompt,
		GenerationConfig: utils.Ptr(DefaultGenerationConfig()),
	})
	if err != nil {
		if observer != nil {
			observer.Error(ctx, "Model call failed", observability.Error(err))
		}
		return "", err
	}
	if resp == nil {
		return "", errors.New("provider returned no response")
	}

	if observer != nil {
		observer.Info(ctx, "Model response",
			observability.String("response.preview", utils.TruncateString(resp.Content, previewLength)),
		)
	}
	return resp.Content, nil
}

func (c *Client) observerFor(ctx context.Context) observability.Provider {
	if c.observer != nil {
		return c.observer
	}
	return observability.ObserverFromContext(ctx)
}

func (c *Client) recordFailure(ctx context.Context, observer observability.Provider, err error, duration time.Duration) {
	if observer == nil {
		return
	}
	if span := observability.SpanFromContext(ctx); span != nil {
		span.RecordError(err)
		span.SetStatus(observability.StatusError, "model call failed")
	}
	observer.Error(ctx, "Model call failed",
		observability.Error(err),
		observability.Duration("duration", duration),
		observability.String(observability.AttrLLMModel, c.model),
	)
	addCount(ctx, observer, observability.MetricClientRequestCount, observability.String(observability.AttrStatus, "error"))
	addCount(ctx, observer, observability.MetricClientErrorCount)
}

func (c *Client) recordSuccess(ctx context.Context, observer observability.Provider, resp *ai.ChatResponse, result *Response, duration time.Duration) {
	if observer == nil {
		return
	}
	attrs := []observability.Attribute{
		observability.String(observability.AttrLLMResponseID, resp.Id),
		observability.String(observability.AttrLLMFinishReason, resp.FinishReason),
		observability.Int(observability.AttrToolCallsCount, len(result.ToolCalls)),
		observability.Duration("duration", duration),
	}
	if resp.Usage != nil {
		attrs = append(attrs, observability.Int(observability.AttrLLMTokensTotal, resp.Usage.TotalTokens))
	}

	if span := observability.SpanFromContext(ctx); span != nil {
		span.SetAttributes(attrs...)
		span.SetStatus(observability.StatusOK, "")
	}
	observer.Debug(ctx, "Model call completed", attrs...)
	for _, call := range result.ToolCalls {
		observer.Info(ctx, "Model requested tool",
			observability.String(observability.AttrToolName, call.Function.Name),
			observability.String(observability.AttrToolInput, call.Function.Arguments),
		)
	}
	addCount(ctx, observer, observability.MetricClientRequestCount, observability.String(observability.AttrStatus, "success"))
}

func addCount(ctx context.Context, observer observability.Provider, name string, attrs ...observability.Attribute) {
	if counter := observer.Counter(name); counter != nil {
		counter.Add(ctx, 1, attrs...)
	}
}

func preview(message ai.Message) string {
	if message.Content != "" {
		return utils.TruncateString(message.Content, previewLength)
	}
	if len(message.ToolResults) > 0 {
		return utils.TruncateString(utils.JSONToString(message.ToolResults), previewLength)
	}
	return utils.TruncateString(utils.JSONToString(message.ToolCalls), previewLength)
}
