// Package openai implements the model-backend contract over the OpenAI
// chat completions API.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/voicerelay/voicerelay/pkg/core"
	"github.com/voicerelay/voicerelay/pkg/core/types"
)

const DefaultModel = "gpt-4o"

type Provider struct {
	client openai.Client
	model  string
}

type Option func(*Provider)

func WithModel(model string) Option {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  DefaultModel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string {
	return "openai"
}

func (p *Provider) Invoke(ctx context.Context, req *core.TurnRequest) (*types.Message, error) {
	completion, err := p.client.Chat.Completions.New(ctx, p.buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("openai completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, core.ErrNoResponse
	}

	choice := completion.Choices[0].Message
	msg := &types.Message{
		Role:    types.RoleAssistant,
		Content: choice.Content,
	}
	for _, tc := range choice.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, types.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return msg, nil
}

func (p *Provider) Stream(ctx context.Context, req *core.TurnRequest) (core.ChunkStream, error) {
	stream := p.client.Chat.Completions.NewStreaming(ctx, p.buildParams(req))
	return &chunkStream{stream: stream}, nil
}

func (p *Provider) buildParams(req *core.TurnRequest) openai.ChatCompletionNewParams {
	model := req.Model
	if model == "" {
		model = p.model
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: buildMessages(req.Messages),
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	return params
}

func buildMessages(messages []types.Message) []openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			params = append(params, openai.SystemMessage(msg.Content))
		case types.RoleUser:
			params = append(params, openai.UserMessage(msg.Content))
		case types.RoleTool:
			params = append(params, openai.ToolMessage(msg.Content, msg.ToolCallID))
		case types.RoleAssistant:
			assistant := openai.ChatCompletionAssistantMessageParam{
				Content: openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(msg.Content),
				},
			}
			for _, tc := range msg.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			params = append(params, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		}
	}
	return params
}

func buildTools(tools []types.ToolDefinition) []openai.ChatCompletionToolParam {
	result := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		fn := shared.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
		}
		if t.Parameters != nil {
			fn.Parameters = shared.FunctionParameters{
				"type":       "object",
				"properties": t.Parameters.Properties,
			}
			if len(t.Parameters.Required) > 0 {
				fn.Parameters["required"] = t.Parameters.Required
			}
		}
		result = append(result, openai.ChatCompletionToolParam{
			Type:     "function",
			Function: fn,
		})
	}
	return result
}
