// Package types defines the provider-neutral conversation model shared by
// the turn loop, the model providers, and the snapshot store.
package types

import (
	"encoding/json"
	"fmt"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in a conversation history. Content may be empty when
// an assistant message carries only tool calls. ToolCallID is set on
// tool-role messages to correlate a result with the call that produced it.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

func ToolMessage(content, toolCallID string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: toolCallID}
}

// ToolCall is a model-issued request to invoke a named tool. Arguments holds
// the raw JSON text exactly as produced by the model; during streaming it is
// accumulated across chunks before being parsed.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ParsedArguments decodes Arguments into a structured value. A decode
// failure is not fatal to dispatch; callers fall back to the raw text.
func (tc ToolCall) ParsedArguments() (map[string]any, error) {
	if tc.Arguments == "" {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(tc.Arguments), &out); err != nil {
		return nil, fmt.Errorf("parse arguments for tool %q: %w", tc.Name, err)
	}
	return out, nil
}
