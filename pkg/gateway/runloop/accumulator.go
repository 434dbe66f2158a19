package runloop

import (
	"strings"

	"github.com/voicerelay/voicerelay/pkg/core/types"
)

// StreamAccumulator reconstructs an assistant message from stream chunks.
// A tool-call delta carrying an id opens a new call; a delta carrying only
// argument text extends the most recently opened call.
type StreamAccumulator struct {
	text  strings.Builder
	calls []types.ToolCall
}

func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{}
}

func (a *StreamAccumulator) Apply(chunk *types.Chunk) {
	if chunk == nil {
		return
	}
	a.text.WriteString(chunk.Token)

	for _, delta := range chunk.ToolCalls {
		if delta.ID != "" {
			a.calls = append(a.calls, types.ToolCall{
				ID:        delta.ID,
				Name:      delta.Name,
				Arguments: delta.Arguments,
			})
			continue
		}
		if len(a.calls) == 0 {
			continue
		}
		last := &a.calls[len(a.calls)-1]
		if delta.Name != "" && last.Name == "" {
			last.Name = delta.Name
		}
		last.Arguments += delta.Arguments
	}
}

func (a *StreamAccumulator) Text() string {
	return a.text.String()
}

func (a *StreamAccumulator) Calls() []types.ToolCall {
	out := make([]types.ToolCall, len(a.calls))
	copy(out, a.calls)
	return out
}

// Message assembles the accumulated assistant message.
func (a *StreamAccumulator) Message() types.Message {
	return types.Message{
		Role:      types.RoleAssistant,
		Content:   a.Text(),
		ToolCalls: a.Calls(),
	}
}
