package openai

import (
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/voicerelay/voicerelay/pkg/core/types"
)

// chunkStream adapts the OpenAI SSE stream to the ChunkStream contract.
//
// Tool call deltas arrive via delta.ToolCalls; id and name appear only in
// the first delta for a call, with incremental argument JSON in the rest.
// Both are forwarded as-is so the accumulator downstream owns the
// reassembly policy.
type chunkStream struct {
	stream *ssestream.Stream[openai.ChatCompletionChunk]
	done   bool
}

func (s *chunkStream) Next() (*types.Chunk, error) {
	if s.done {
		return nil, io.EOF
	}

	for s.stream.Next() {
		raw := s.stream.Current()
		if len(raw.Choices) == 0 {
			// Trailing usage-only chunk.
			continue
		}
		choice := raw.Choices[0]

		chunk := &types.Chunk{Token: choice.Delta.Content}
		for _, tc := range choice.Delta.ToolCalls {
			chunk.ToolCalls = append(chunk.ToolCalls, types.ToolCallDelta{
				Index:     int(tc.Index),
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		switch choice.FinishReason {
		case "stop":
			chunk.Finish = types.FinishStop
			s.done = true
		case "tool_calls":
			chunk.Finish = types.FinishToolCalls
			s.done = true
		}
		return chunk, nil
	}

	if err := s.stream.Err(); err != nil {
		return nil, fmt.Errorf("openai stream: %w", err)
	}
	return nil, io.EOF
}

func (s *chunkStream) Close() error {
	return s.stream.Close()
}
