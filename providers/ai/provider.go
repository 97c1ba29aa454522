package ai

import (
	"context"
	"net/http"
)

// Provider is the interface every model backend satisfies.
type Provider interface {
	// SendMessage sends a chat request and returns the completed response.
	// It returns an error if the call fails, the context is cancelled, or the
	// response cannot be decoded.
	SendMessage(ctx context.Context, request ChatRequest) (*ChatResponse, error)

	// IsStopMessage reports whether the response is terminal, i.e. carries no
	// tool calls to execute.
	IsStopMessage(message *ChatResponse) bool

	WithAPIKey(apiKey string) Provider
	WithBaseURL(baseURL string) Provider
	WithHttpClient(httpClient *http.Client) Provider
}
