package ai

import (
	"github.com/leofalp/webresearch/internal/jsonschema"
)

/*
	##### PROVIDER INPUT #####
*/

// ChatRequest represents a request to send a chat message
type ChatRequest struct {
	Model            string            `json:"model,omitempty"`
	Messages         []Message         `json:"messages"` // every message except the system prompt
	SystemPrompt     string            `json:"system_prompt,omitempty"`
	Tools            []ToolDescription `json:"tools,omitempty"`
	GenerationConfig *GenerationConfig `json:"generation_config,omitempty"`
}

// ToolDescription declares a tool the model may call.
type ToolDescription struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

// Message represents a single message in a conversation
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content,omitempty"`

	// ToolCalls is set on assistant messages requesting tool invocations.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// ToolResults is set on user messages answering the previous ToolCalls.
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// NewUserMessage returns a plain-text user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewToolResultsMessage returns the user message answering a batch of tool calls.
func NewToolResultsMessage(results []ToolResult) Message {
	return Message{Role: RoleUser, ToolResults: results}
}

// GenerationConfig holds sampling parameters. Zero values mean provider defaults.
type GenerationConfig struct {
	MaxTokens int `json:"max_tokens,omitempty"`
	// Temperature is a pointer so that an explicit 0 is distinguishable from unset.
	Temperature *float64 `json:"temperature,omitempty"`
}

/*
	##### PROVIDER OUTPUT #####
*/

type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// ChatResponse represents the response from a chat completion
type ChatResponse struct {
	Id           string     `json:"id"`
	Model        string     `json:"model"`
	Content      string     `json:"content"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	FinishReason string     `json:"finish_reason,omitempty"`
	Usage        *Usage     `json:"usage,omitempty"`
}

// AsMessage returns the assistant message to append to the conversation.
func (r *ChatResponse) AsMessage() Message {
	return Message{
		Role:      RoleAssistant,
		Content:   r.Content,
		ToolCalls: append([]ToolCall(nil), r.ToolCalls...),
	}
}

/*
	##### TOOLS #####
*/

// ToolCall represents a function/tool call request from the model
type ToolCall struct {
	ID       string           `json:"id,omitempty"`
	Type     string           `json:"type"` // "function"
	Function ToolCallFunction `json:"function"`
}

type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string
}

// ToolResult answers exactly one ToolCall.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// MessageRole represents the role of a message; compatible with string
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)
