// Package tools holds the closed catalogue of capabilities the model may
// invoke during a turn. The catalogue is validated at construction so an
// unknown tool name is a configuration error, not a runtime surprise.
package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/voicerelay/voicerelay/pkg/core/types"
)

// Arguments carries a tool invocation's inputs. Parsed is nil when the
// model produced arguments that were not valid JSON; Raw always holds the
// exact text so a handler can still interpret it.
type Arguments struct {
	Parsed map[string]any
	Raw    string
}

func (a Arguments) String(key string) string {
	if a.Parsed == nil {
		return ""
	}
	v, _ := a.Parsed[key].(string)
	return v
}

func (a Arguments) Number(key string) (float64, bool) {
	if a.Parsed == nil {
		return 0, false
	}
	v, ok := a.Parsed[key].(float64)
	return v, ok
}

type EffectKind string

const (
	EffectSwitchLanguage EffectKind = "switch_language"
	EffectCollectDigits  EffectKind = "collect_digits"
	EffectHandoff        EffectKind = "human_agent_handoff"
)

// Effect is a side effect a tool asks the session wiring to perform. The
// turn loop surfaces effects as events; it never acts on them itself.
type Effect struct {
	Kind                  EffectKind
	TTSLanguage           string
	TranscriptionLanguage string
	HandoffData           string
	CollectMode           string
}

type Result struct {
	Content string
	Effect  *Effect
}

// Handler is one invocable tool.
type Handler interface {
	Definition() types.ToolDefinition
	Execute(ctx context.Context, args Arguments) (Result, error)
}

type Registry struct {
	handlers map[string]Handler
	order    []string
}

func NewRegistry(handlers ...Handler) (*Registry, error) {
	r := &Registry{handlers: make(map[string]Handler, len(handlers))}
	for _, h := range handlers {
		name := strings.TrimSpace(h.Definition().Name)
		if name == "" {
			return nil, fmt.Errorf("tool with empty name")
		}
		if _, exists := r.handlers[name]; exists {
			return nil, fmt.Errorf("duplicate tool %q", name)
		}
		r.handlers[name] = h
		r.order = append(r.order, name)
	}
	return r, nil
}

// Definitions returns the catalogue in registration order, as submitted
// with every model request.
func (r *Registry) Definitions() []types.ToolDefinition {
	defs := make([]types.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.handlers[name].Definition())
	}
	return defs
}

// Execute dispatches one model-issued call. An argument parse failure is
// recoverable: the handler still runs with the raw text available.
func (r *Registry) Execute(ctx context.Context, call types.ToolCall) (Result, error) {
	h, ok := r.handlers[call.Name]
	if !ok {
		return Result{}, fmt.Errorf("tool %q not registered", call.Name)
	}

	args := Arguments{Raw: call.Arguments}
	if parsed, err := call.ParsedArguments(); err == nil {
		args.Parsed = parsed
	}
	return h.Execute(ctx, args)
}
