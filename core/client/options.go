package client

import (
	"github.com/leofalp/webresearch/providers/observability"
)

// Option configures a Client.
type Option func(*Client)

// WithModel sets the model name sent with every request.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithSystemPrompt replaces the system prompt used by Complete.
func WithSystemPrompt(prompt string) Option {
	return func(c *Client) {
		c.systemPrompt = prompt
	}
}

// WithObserver attaches an observability provider. Without one, the
// observer carried by the request context is used, if any.
func WithObserver(observer observability.Provider) Option {
	return func(c *Client) {
		c.observer = observer
	}
}
