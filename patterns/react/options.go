package react

import (
	"github.com/leofalp/webresearch/providers/ai"
)

// UnknownToolPolicy decides how a request for an undeclared tool is answered.
type UnknownToolPolicy int

const (
	// UnknownToolError answers with an is_error result, keeping one result
	// per request.
	UnknownToolError UnknownToolPolicy = iota
	// UnknownToolSkip drops the request without a result.
	UnknownToolSkip
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxCalls sets the call budget of each run. Zero is allowed and stops a
// run before the first model call; negative values are ignored.
func WithMaxCalls(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.maxCalls = n
		}
	}
}

// WithGenerationConfig sets the sampling parameters passed to every model call.
func WithGenerationConfig(config ai.GenerationConfig) Option {
	return func(o *Orchestrator) {
		o.config = config
	}
}

// WithUnknownToolPolicy selects how unknown tool names are handled.
func WithUnknownToolPolicy(policy UnknownToolPolicy) Option {
	return func(o *Orchestrator) {
		o.unknownTool = policy
	}
}
