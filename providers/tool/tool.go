package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/leofalp/webresearch/core/parse"
	"github.com/leofalp/webresearch/internal/jsonschema"
	"github.com/leofalp/webresearch/providers/ai"
	"github.com/leofalp/webresearch/providers/observability"
)

// Tool is a typed, callable tool. Use [NewTool] to construct one.
type Tool[I, O any] struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
	Function    func(ctx context.Context, input I) (O, error)
}

// GenericTool is the type-erased view of a [Tool].
type GenericTool interface {
	// ToolInfo returns the declaration advertised to the model.
	ToolInfo() ai.ToolDescription

	// Call parses inputJson, runs the tool and returns its output as text.
	Call(ctx context.Context, inputJson string) (string, error)
}

type funcToolOptions struct {
	Description string
}

// WithDescription sets the description shown to the model.
func WithDescription(description string) func(tool *funcToolOptions) {
	return func(s *funcToolOptions) {
		s.Description = description
	}
}

// NewTool constructs a [Tool] whose parameter schema is derived from I.
// It panics if I cannot be described as a JSON schema, which only happens
// for invalid jsonschema struct tags.
//
//	search := tool.NewTool("search_web", searchFunc,
//	    tool.WithDescription("Search the web and return result URLs."),
//	)
func NewTool[I, O any](name string, function func(ctx context.Context, input I) (O, error), options ...func(tool *funcToolOptions)) *Tool[I, O] {
	toolOptions := &funcToolOptions{}
	for _, option := range options {
		option(toolOptions)
	}

	parameters, err := jsonschema.GenerateJSONSchema[I]()
	if err != nil {
		panic(fmt.Sprintf("tool %s: invalid input schema: %v", name, err))
	}

	return &Tool[I, O]{
		Name:        name,
		Description: toolOptions.Description,
		Parameters:  parameters,
		Function:    function,
	}
}

func (t *Tool[I, O]) ToolInfo() ai.ToolDescription {
	return ai.ToolDescription{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  t.Parameters,
	}
}

// Call runs the tool. String outputs are returned verbatim; any other output
// is encoded as JSON.
func (t *Tool[I, O]) Call(ctx context.Context, inputJson string) (string, error) {
	span := observability.SpanFromContext(ctx)
	if span != nil {
		span.AddEvent(observability.EventToolExecutionStart,
			observability.String(observability.AttrToolName, t.Name),
			observability.String(observability.AttrToolInput, inputJson),
		)
		defer span.AddEvent(observability.EventToolExecutionEnd,
			observability.String(observability.AttrToolName, t.Name),
		)
	}

	start := time.Now()

	parsedInput, err := parse.ParseStringAs[I](inputJson)
	if err != nil {
		err = fmt.Errorf("invalid input for %s: %w", t.Name, err)
		if span != nil {
			span.SetAttributes(observability.String(observability.AttrToolError, err.Error()))
		}
		return "", err
	}

	output, err := t.Function(ctx, parsedInput)
	duration := time.Since(start)
	if err != nil {
		if span != nil {
			span.SetAttributes(
				observability.String(observability.AttrToolError, err.Error()),
				observability.Duration(observability.AttrToolDuration, duration),
			)
		}
		return "", err
	}

	text, err := encodeOutput(output)
	if err != nil {
		return "", fmt.Errorf("encode output of %s: %w", t.Name, err)
	}

	if span != nil {
		span.SetAttributes(
			observability.Duration(observability.AttrToolDuration, duration),
			observability.Int("tool.output.length", len(text)),
		)
	}

	return text, nil
}

func encodeOutput(output any) (string, error) {
	if s, ok := output.(string); ok {
		return s, nil
	}
	encoded, err := json.Marshal(output)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
