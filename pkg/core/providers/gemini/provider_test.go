package gemini

import (
	"testing"

	"google.golang.org/genai"
)

func TestToolCallIDFallbackStaysUnique(t *testing.T) {
	first := toolCallFromFunctionCall(&genai.FunctionCall{Name: "lookup", Args: map[string]any{"q": "a"}}, 0)
	second := toolCallFromFunctionCall(&genai.FunctionCall{Name: "lookup", Args: map[string]any{"q": "b"}}, 1)

	if first.ID == "" || second.ID == "" {
		t.Fatalf("fallback produced an empty ID: %q, %q", first.ID, second.ID)
	}
	if first.ID == second.ID {
		t.Fatalf("two calls to the same function share ID %q", first.ID)
	}
	if first.Arguments != `{"q":"a"}` {
		t.Fatalf("arguments = %q", first.Arguments)
	}
}

func TestToolCallKeepsBackendID(t *testing.T) {
	call := toolCallFromFunctionCall(&genai.FunctionCall{ID: "call_9", Name: "lookup"}, 4)
	if call.ID != "call_9" {
		t.Fatalf("ID = %q, want backend ID kept", call.ID)
	}
}
