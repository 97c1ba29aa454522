package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/leofalp/webresearch/internal/utils"
	"github.com/leofalp/webresearch/providers/ai"
	"github.com/leofalp/webresearch/providers/observability"
)

const (
	defaultBaseURL   = "https://api.anthropic.com/v1"
	messagesEndpoint = "/messages"

	// anthropicVersion pins the wire format independently of the URL.
	anthropicVersion = "2023-06-01"

	// defaultMaxTokens is used when the request does not set one; the API
	// requires max_tokens on every call.
	defaultMaxTokens = 4096
)

// AnthropicProvider implements [ai.Provider] for Anthropic's Messages API.
type AnthropicProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New returns a provider configured from ANTHROPIC_API_KEY and
// ANTHROPIC_API_BASE_URL (default https://api.anthropic.com/v1).
func New() *AnthropicProvider {
	baseURL := os.Getenv("ANTHROPIC_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &AnthropicProvider{
		apiKey:  os.Getenv("ANTHROPIC_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

func (p *AnthropicProvider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

func (p *AnthropicProvider) WithBaseURL(baseURL string) ai.Provider {
	p.baseURL = baseURL
	return p
}

func (p *AnthropicProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	p.client = httpClient
	return p
}

// Anthropic authenticates with x-api-key rather than a Bearer token.
func (p *AnthropicProvider) buildHeaders() []utils.HeaderOption {
	return []utils.HeaderOption{
		{Key: "x-api-key", Value: p.apiKey},
		{Key: "anthropic-version", Value: anthropicVersion},
	}
}

// SendMessage implements [ai.Provider].
func (p *AnthropicProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	span := observability.SpanFromContext(ctx)
	observer := observability.ObserverFromContext(ctx)

	if span != nil {
		span.AddEvent(observability.EventLLMRequestStart)
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, "anthropic"),
			observability.String(observability.AttrLLMEndpoint, p.baseURL),
			observability.String(observability.AttrLLMModel, request.Model),
		)
		defer span.AddEvent(observability.EventLLMRequestEnd)
	}

	if observer != nil {
		observer.Trace(ctx, "Anthropic provider preparing request",
			observability.String(observability.AttrLLMModel, request.Model),
			observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
			observability.Int(observability.AttrRequestToolsCount, len(request.Tools)),
		)
	}

	if p.apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
	}
	if request.Model == "" {
		return nil, fmt.Errorf("anthropic: model is required")
	}

	anthropicReq, err := requestToAnthropic(request)
	if err != nil {
		return nil, fmt.Errorf("failed to build Anthropic request: %w", err)
	}

	httpResponse, resp, err := utils.DoPostSync[anthropicResponse](
		ctx,
		p.client,
		p.baseURL+messagesEndpoint,
		"",
		anthropicReq,
		p.buildHeaders()...,
	)
	if err != nil {
		if observer != nil {
			observer.Trace(ctx, "HTTP request failed", observability.Error(err))
		}
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("empty response from Anthropic API: %s", httpResponse.Status)
	}
	if resp.Type == "error" {
		return nil, fmt.Errorf("anthropic error %s: %s", resp.Error.Type, resp.Error.Message)
	}

	result := anthropicToGeneric(*resp)
	if result.Model == "" {
		result.Model = request.Model
	}

	if span != nil {
		span.SetAttributes(
			observability.String(observability.AttrLLMResponseID, result.Id),
			observability.String(observability.AttrLLMFinishReason, result.FinishReason),
			observability.Int(observability.AttrHTTPStatusCode, httpResponse.StatusCode),
		)
		if result.Usage != nil {
			span.AddEvent(observability.EventTokensReceived,
				observability.Int(observability.AttrLLMTokensTotal, result.Usage.TotalTokens),
			)
		}
	}

	return result, nil
}

// IsStopMessage reports whether message is terminal. Responses carrying tool
// calls are never terminal, whatever the stop reason says.
func (p *AnthropicProvider) IsStopMessage(message *ai.ChatResponse) bool {
	if message == nil {
		return true
	}
	return len(message.ToolCalls) == 0
}
