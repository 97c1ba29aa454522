package react

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leofalp/webresearch/core/client"
	"github.com/leofalp/webresearch/internal/utils"
	"github.com/leofalp/webresearch/providers/ai"
	"github.com/leofalp/webresearch/providers/observability"
	"github.com/leofalp/webresearch/providers/tool"
)

const (
	DefaultMaxCalls = 10

	// BudgetExhaustedMessage is the final text of a run that used its whole budget.
	BudgetExhaustedMessage = "Max API calls reached. Stopping."

	outputPreviewLength = 200
)

// StopReason tells why a run ended.
type StopReason string

const (
	ReasonFinal           StopReason = "final"
	ReasonBudgetExhausted StopReason = "budget_exhausted"
	ReasonClientError     StopReason = "client_error"
	ReasonCanceled        StopReason = "canceled"
)

var (
	errNilClient  = errors.New("react: client is nil")
	errNilCatalog = errors.New("react: tool catalog is nil")
	errEmptyInput = errors.New("react: prompt is empty")
)

// Completer is the model side of the loop. *client.Client implements it.
type Completer interface {
	Complete(ctx context.Context, conversation []ai.Message, tools []ai.ToolDescription, remainingCalls int, config ai.GenerationConfig) *client.Response
}

// Orchestrator runs the tool-use loop. It keeps no state between runs.
type Orchestrator struct {
	client      Completer
	catalog     *tool.Catalog
	maxCalls    int
	config      ai.GenerationConfig
	unknownTool UnknownToolPolicy
}

// Result is the outcome of one run.
type Result struct {
	Text string
	// Messages is the full conversation of the run, starting with a copy of
	// the caller's messages.
	Messages  []ai.Message
	CallsUsed int
	Reason    StopReason
	RunID     string
	Usage     ai.Usage
}

// New returns an Orchestrator with a budget of DefaultMaxCalls and
// client.DefaultGenerationConfig.
func New(c Completer, catalog *tool.Catalog, opts ...Option) (*Orchestrator, error) {
	if c == nil {
		return nil, errNilClient
	}
	if catalog == nil {
		return nil, errNilCatalog
	}

	o := &Orchestrator{
		client:   c,
		catalog:  catalog,
		maxCalls: DefaultMaxCalls,
		config:   client.DefaultGenerationConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Execute runs the loop on a single user prompt.
func (o *Orchestrator) Execute(ctx context.Context, prompt string) (*Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errEmptyInput
	}
	return o.Run(ctx, []ai.Message{ai.NewUserMessage(prompt)}), nil
}

// Run continues conversation until the model answers or the budget is spent.
// conversation is copied and never modified. Run always returns a result
// with non-empty Reason.
func (o *Orchestrator) Run(ctx context.Context, conversation []ai.Message) *Result {
	result := &Result{
		Messages: append([]ai.Message(nil), conversation...),
		RunID:    uuid.NewString(),
	}

	observer := observability.ObserverFromContext(ctx)
	if observer != nil {
		var span observability.Span
		ctx, span = observer.StartSpan(ctx, observability.SpanReactExecute,
			observability.String(observability.AttrRunID, result.RunID),
			observability.Int(observability.AttrMaxCalls, o.maxCalls),
		)
		ctx = observability.ContextWithSpan(ctx, span)
		defer func() {
			span.SetAttributes(
				observability.String(observability.AttrStopReason, string(result.Reason)),
				observability.Int(observability.AttrCallsUsed, result.CallsUsed),
			)
			span.End()
		}()
	}

	tools := o.catalog.Descriptions()
	remaining := o.maxCalls

	for {
		if remaining == 0 {
			o.finish(ctx, observer, result, BudgetExhaustedMessage, ReasonBudgetExhausted)
			return result
		}
		if err := ctx.Err(); err != nil {
			o.finish(ctx, observer, result, client.ErrorPrefix+err.Error(), ReasonCanceled)
			return result
		}

		resp := o.client.Complete(ctx, result.Messages, tools, remaining, o.config)
		addUsage(&result.Usage, resp.Usage)

		if resp.IsFinal() {
			if resp.Err != nil {
				o.finish(ctx, observer, result, resp.Text, ReasonClientError)
				return result
			}
			result.Messages = append(result.Messages, resp.Message)
			o.finish(ctx, observer, result, resp.Text, ReasonFinal)
			return result
		}

		toolResults := make([]ai.ToolResult, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			if toolResult, ok := o.dispatch(ctx, observer, call); ok {
				toolResults = append(toolResults, toolResult)
			}
		}

		// Every request was for a skipped unknown tool: nothing to send back.
		if len(toolResults) == 0 {
			result.Messages = append(result.Messages, resp.Message)
			o.finish(ctx, observer, result, resp.Message.Content, ReasonFinal)
			return result
		}

		result.Messages = append(result.Messages, resp.Message, ai.NewToolResultsMessage(toolResults))
		remaining--
		result.CallsUsed++

		if observer != nil {
			observer.Debug(ctx, "Sending tool results back to model",
				observability.Int(observability.AttrToolCallsCount, len(toolResults)),
				observability.Int(observability.AttrCallsRemaining, remaining),
			)
		}
	}
}

// dispatch runs one tool call. It reports false when the call is dropped.
func (o *Orchestrator) dispatch(ctx context.Context, observer observability.Provider, call ai.ToolCall) (ai.ToolResult, bool) {
	name := call.Function.Name
	toolResult := ai.ToolResult{ToolCallID: call.ID}

	t, ok := o.catalog.Get(name)
	if !ok {
		if observer != nil {
			observer.Warn(ctx, "Model requested an unknown tool",
				observability.String(observability.AttrToolName, name),
				observability.String(observability.AttrToolCallID, call.ID),
			)
		}
		if o.unknownTool == UnknownToolSkip {
			return toolResult, false
		}
		toolResult.Content = fmt.Sprintf("unknown tool %q", name)
		toolResult.IsError = true
		return toolResult, true
	}

	if observer != nil {
		var span observability.Span
		ctx, span = observer.StartSpan(ctx, observability.SpanToolExecution,
			observability.String(observability.AttrToolName, name),
			observability.String(observability.AttrToolCallID, call.ID),
		)
		ctx = observability.ContextWithSpan(ctx, span)
		defer span.End()

		observer.Info(ctx, "Using tool",
			observability.String(observability.AttrToolName, name),
			observability.String(observability.AttrToolInput, call.Function.Arguments),
		)
		if counter := observer.Counter(observability.MetricToolCallCount); counter != nil {
			counter.Add(ctx, 1, observability.String(observability.AttrToolName, name))
		}
	}

	start := time.Now()
	output, err := t.Call(ctx, call.Function.Arguments)
	if err != nil {
		if observer != nil {
			if span := observability.SpanFromContext(ctx); span != nil {
				span.RecordError(err)
				span.SetStatus(observability.StatusError, "tool failed")
			}
			observer.Warn(ctx, "Tool failed",
				observability.String(observability.AttrToolName, name),
				observability.Error(err),
			)
		}
		toolResult.Content = client.ErrorPrefix + err.Error()
		toolResult.IsError = true
		return toolResult, true
	}

	if observer != nil {
		observer.Info(ctx, "Tool completed",
			observability.String(observability.AttrToolName, name),
			observability.String(observability.AttrToolOutput, utils.TruncateString(output, outputPreviewLength)),
			observability.Duration(observability.AttrToolDuration, time.Since(start)),
		)
	}
	toolResult.Content = output
	return toolResult, true
}

func (o *Orchestrator) finish(ctx context.Context, observer observability.Provider, result *Result, text string, reason StopReason) {
	result.Text = text
	result.Reason = reason
	if observer == nil {
		return
	}

	attrs := []observability.Attribute{
		observability.String(observability.AttrRunID, result.RunID),
		observability.String(observability.AttrStopReason, string(reason)),
		observability.Int(observability.AttrCallsUsed, result.CallsUsed),
	}
	switch reason {
	case ReasonBudgetExhausted:
		if span := observability.SpanFromContext(ctx); span != nil {
			span.AddEvent(observability.EventBudgetExhausted)
		}
		observer.Warn(ctx, "Max API calls reached", attrs...)
	case ReasonClientError, ReasonCanceled:
		observer.Error(ctx, "Run ended with an error", append(attrs, observability.String(observability.AttrError, text))...)
	default:
		observer.Info(ctx, "Run completed", attrs...)
	}
}

func addUsage(total *ai.Usage, usage *ai.Usage) {
	if usage == nil {
		return
	}
	total.PromptTokens += usage.PromptTokens
	total.CompletionTokens += usage.CompletionTokens
	total.TotalTokens += usage.TotalTokens
}
