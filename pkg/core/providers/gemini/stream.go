package gemini

import (
	"context"
	"fmt"
	"io"
	"iter"

	"google.golang.org/genai"

	"github.com/voicerelay/voicerelay/pkg/core"
	"github.com/voicerelay/voicerelay/pkg/core/types"
)

func (p *Provider) Stream(ctx context.Context, req *core.TurnRequest) (core.ChunkStream, error) {
	contents, config := p.buildRequest(req)
	seq := p.client.Models.GenerateContentStream(ctx, p.modelFor(req), contents, config)
	next, stop := iter.Pull2(seq)
	return &chunkStream{next: next, stop: stop}, nil
}

// chunkStream adapts the genai pull iterator to the ChunkStream contract.
// Gemini delivers each function call whole in a single part, so every call
// becomes one delta carrying id, name, and the complete argument JSON.
type chunkStream struct {
	next     func() (*genai.GenerateContentResponse, error, bool)
	stop     func()
	sawCalls bool
	callSeq  int
	done     bool
}

func (s *chunkStream) Next() (*types.Chunk, error) {
	if s.done {
		return nil, io.EOF
	}

	for {
		resp, err, ok := s.next()
		if err != nil {
			s.done = true
			return nil, fmt.Errorf("gemini stream: %w", err)
		}
		if !ok {
			s.done = true
			// Stream closed without an explicit finish marker.
			finish := types.FinishStop
			if s.sawCalls {
				finish = types.FinishToolCalls
			}
			return &types.Chunk{Finish: finish}, nil
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}
		candidate := resp.Candidates[0]

		chunk := &types.Chunk{}
		for i, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			chunk.Token += part.Text
			if part.FunctionCall != nil {
				s.sawCalls = true
				call := toolCallFromFunctionCall(part.FunctionCall, s.callSeq)
				s.callSeq++
				chunk.ToolCalls = append(chunk.ToolCalls, types.ToolCallDelta{
					Index:     i,
					ID:        call.ID,
					Name:      call.Name,
					Arguments: call.Arguments,
				})
			}
		}
		if candidate.FinishReason != "" {
			s.done = true
			if s.sawCalls {
				chunk.Finish = types.FinishToolCalls
			} else {
				chunk.Finish = types.FinishStop
			}
		}
		return chunk, nil
	}
}

func (s *chunkStream) Close() error {
	s.stop()
	return nil
}
