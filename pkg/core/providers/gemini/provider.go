// Package gemini implements the model-backend contract over the Google
// Gemini API using the official genai SDK.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/voicerelay/voicerelay/pkg/core"
	"github.com/voicerelay/voicerelay/pkg/core/types"
)

const DefaultModel = "gemini-2.0-flash"

type Provider struct {
	client *genai.Client
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

func New(ctx context.Context, apiKey string, opts ...Option) (*Provider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	p := &Provider{client: client, model: DefaultModel}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) Name() string {
	return "gemini"
}

func (p *Provider) Invoke(ctx context.Context, req *core.TurnRequest) (*types.Message, error) {
	contents, config := p.buildRequest(req)

	resp, err := p.client.Models.GenerateContent(ctx, p.modelFor(req), contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, core.ErrNoResponse
	}

	msg := &types.Message{Role: types.RoleAssistant}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" {
			msg.Content += part.Text
		}
		if part.FunctionCall != nil {
			msg.ToolCalls = append(msg.ToolCalls, toolCallFromFunctionCall(part.FunctionCall, len(msg.ToolCalls)))
		}
	}
	return msg, nil
}

func (p *Provider) modelFor(req *core.TurnRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return p.model
}

// buildRequest converts neutral history into Gemini contents. Gemini has no
// separate tool role; tool results travel as function-response parts in a
// user-role content, correlated by function name rather than call id.
func (p *Provider) buildRequest(req *core.TurnRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(req.Tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: buildDeclarations(req.Tools)}}
	}

	callNames := make(map[string]string)
	var contents []*genai.Content

	for _, msg := range req.Messages {
		switch msg.Role {
		case types.RoleSystem:
			if config.SystemInstruction == nil {
				config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: msg.Content}}}
			} else {
				config.SystemInstruction.Parts = append(config.SystemInstruction.Parts, &genai.Part{Text: msg.Content})
			}
		case types.RoleUser:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		case types.RoleAssistant:
			content := &genai.Content{Role: genai.RoleModel}
			if msg.Content != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				callNames[tc.ID] = tc.Name
				args, err := tc.ParsedArguments()
				if err != nil {
					args = map[string]any{"raw": tc.Arguments}
				}
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: args},
				})
			}
			if len(content.Parts) > 0 {
				contents = append(contents, content)
			}
		case types.RoleTool:
			contents = append(contents, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						ID:       msg.ToolCallID,
						Name:     callNames[msg.ToolCallID],
						Response: map[string]any{"output": msg.Content},
					},
				}},
			})
		}
	}
	return contents, config
}

func buildDeclarations(tools []types.ToolDefinition) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decl := &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
		}
		if t.Parameters != nil {
			decl.Parameters = buildSchema(t.Parameters)
		}
		decls = append(decls, decl)
	}
	return decls
}

func buildSchema(s *types.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Description: s.Description,
		Required:    s.Required,
	}
	switch s.Type {
	case "object":
		out.Type = genai.TypeObject
	case "string":
		out.Type = genai.TypeString
	case "number":
		out.Type = genai.TypeNumber
	case "integer":
		out.Type = genai.TypeInteger
	case "boolean":
		out.Type = genai.TypeBoolean
	case "array":
		out.Type = genai.TypeArray
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = buildSchema(prop)
		}
	}
	if s.Items != nil {
		out.Items = buildSchema(s.Items)
	}
	if len(s.Enum) > 0 {
		out.Enum = s.Enum
	}
	return out
}

// toolCallFromFunctionCall converts one function call. The backend may omit
// IDs; seq keeps the fallback unique when the same function is called more
// than once in a turn.
func toolCallFromFunctionCall(fc *genai.FunctionCall, seq int) types.ToolCall {
	id := fc.ID
	if id == "" {
		id = fmt.Sprintf("%s_%d", fc.Name, seq)
	}
	args, err := json.Marshal(fc.Args)
	if err != nil {
		args = []byte("{}")
	}
	return types.ToolCall{ID: id, Name: fc.Name, Arguments: string(args)}
}
