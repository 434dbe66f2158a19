package types

type FinishReason string

const (
	FinishNone      FinishReason = ""
	FinishStop      FinishReason = "stop"
	FinishToolCalls FinishReason = "tool_calls"
)

// ToolCallDelta is one streamed fragment of a tool call. A fragment with a
// non-empty ID opens a new call; a fragment with only Arguments extends the
// most recently opened call.
type ToolCallDelta struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

// Chunk is one increment of a streamed model response.
type Chunk struct {
	Token     string
	ToolCalls []ToolCallDelta
	Finish    FinishReason
}
