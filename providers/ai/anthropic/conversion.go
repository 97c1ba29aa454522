package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leofalp/webresearch/providers/ai"
)

var emptyObjectSchema = json.RawMessage(`{"type":"object","properties":{}}`)

func requestToAnthropic(request ai.ChatRequest) (anthropicRequest, error) {
	messages, err := buildMessages(request.Messages)
	if err != nil {
		return anthropicRequest{}, err
	}

	req := anthropicRequest{
		Model:     request.Model,
		Messages:  messages,
		System:    request.SystemPrompt,
		MaxTokens: defaultMaxTokens,
	}

	if cfg := request.GenerationConfig; cfg != nil {
		if cfg.MaxTokens > 0 {
			req.MaxTokens = cfg.MaxTokens
		}
		if cfg.Temperature != nil {
			temperature := *cfg.Temperature
			req.Temperature = &temperature
		}
	}

	tools, err := buildTools(request.Tools)
	if err != nil {
		return anthropicRequest{}, err
	}
	req.Tools = tools

	return req, nil
}

// buildMessages maps the conversation onto content blocks. Within a user
// message, tool_result blocks come first and in the order given, followed by
// any text. Messages with no content are skipped and consecutive messages of
// the same role are merged, so roles keep alternating.
func buildMessages(messages []ai.Message) ([]anthropicMessage, error) {
	result := make([]anthropicMessage, 0, len(messages))

	for i, msg := range messages {
		out := anthropicMessage{Role: string(msg.Role)}

		switch msg.Role {
		case ai.RoleUser:
			for _, toolResult := range msg.ToolResults {
				out.Content = append(out.Content, anthropicContentBlock{
					Type:      "tool_result",
					ToolUseID: toolResult.ToolCallID,
					Content:   toolResult.Content,
					IsError:   toolResult.IsError,
				})
			}
			if msg.Content != "" {
				out.Content = append(out.Content, anthropicContentBlock{Type: "text", Text: msg.Content})
			}

		case ai.RoleAssistant:
			if msg.Content != "" {
				out.Content = append(out.Content, anthropicContentBlock{Type: "text", Text: msg.Content})
			}
			for _, toolCall := range msg.ToolCalls {
				input := json.RawMessage(toolCall.Function.Arguments)
				if strings.TrimSpace(toolCall.Function.Arguments) == "" {
					input = json.RawMessage(`{}`)
				} else if !json.Valid(input) {
					return nil, fmt.Errorf("message %d: tool call %s has invalid JSON arguments", i, toolCall.ID)
				}
				out.Content = append(out.Content, anthropicContentBlock{
					Type:  "tool_use",
					ID:    toolCall.ID,
					Name:  toolCall.Function.Name,
					Input: input,
				})
			}

		default:
			return nil, fmt.Errorf("message %d: unsupported role %q", i, msg.Role)
		}

		if len(out.Content) == 0 {
			continue
		}
		if last := len(result) - 1; last >= 0 && result[last].Role == out.Role {
			result[last].Content = append(result[last].Content, out.Content...)
			continue
		}
		result = append(result, out)
	}

	return result, nil
}

func buildTools(tools []ai.ToolDescription) ([]anthropicTool, error) {
	if len(tools) == 0 {
		return nil, nil
	}

	result := make([]anthropicTool, 0, len(tools))
	for _, tool := range tools {
		entry := anthropicTool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: emptyObjectSchema,
		}
		if tool.Parameters != nil {
			schema, err := json.Marshal(tool.Parameters)
			if err != nil {
				return nil, fmt.Errorf("tool %s: failed to marshal input schema: %w", tool.Name, err)
			}
			entry.InputSchema = schema
		}
		result = append(result, entry)
	}
	return result, nil
}

// anthropicToGeneric joins text blocks with newlines and keeps tool_use
// blocks in response order.
func anthropicToGeneric(response anthropicResponse) *ai.ChatResponse {
	result := &ai.ChatResponse{
		Id:           response.ID,
		Model:        response.Model,
		FinishReason: mapStopReason(response.StopReason),
		Usage: &ai.Usage{
			PromptTokens:     response.Usage.InputTokens,
			CompletionTokens: response.Usage.OutputTokens,
			TotalTokens:      response.Usage.InputTokens + response.Usage.OutputTokens,
		},
	}

	var textParts []string
	for _, block := range response.Content {
		switch block.Type {
		case "text":
			textParts = append(textParts, block.Text)
		case "tool_use":
			arguments := string(block.Input)
			if arguments == "" {
				arguments = "{}"
			}
			result.ToolCalls = append(result.ToolCalls, ai.ToolCall{
				ID:   block.ID,
				Type: "function",
				Function: ai.ToolCallFunction{
					Name:      block.Name,
					Arguments: arguments,
				},
			})
		}
	}
	result.Content = strings.Join(textParts, "\n")

	return result
}

func mapStopReason(stopReason string) string {
	switch stopReason {
	case "tool_use":
		return "tool_calls"
	case "max_tokens":
		return "length"
	default:
		return "stop"
	}
}
