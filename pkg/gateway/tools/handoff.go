package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/voicerelay/voicerelay/pkg/core/types"
)

// HumanAgentHandoff ends the automated conversation and hands the call to
// a live agent. The effect carries a JSON payload the telephony side
// receives with the end frame.
type HumanAgentHandoff struct{}

func (HumanAgentHandoff) Definition() types.ToolDefinition {
	return types.ToolDefinition{
		Name:        "human_agent_handoff",
		Description: "Transfers the customer to a live agent in case they request help from a real person.",
		Parameters: types.ObjectSchema(map[string]*types.Schema{
			"reason":  types.StringProp("The reason for the handoff, such as user request, legal issue, financial matter, or other sensitive topics."),
			"context": types.StringProp("Any relevant conversation context or details leading to the handoff."),
		}, "reason"),
	}
}

func (HumanAgentHandoff) Execute(_ context.Context, args Arguments) (Result, error) {
	reason := args.String("reason")
	callContext := args.String("context")

	payload, err := json.Marshal(map[string]string{
		"reasonCode": "live-agent-handoff",
		"reason":     reason,
		"context":    callContext,
	})
	if err != nil {
		return Result{}, fmt.Errorf("encode handoff data: %w", err)
	}

	return Result{
		Content: fmt.Sprintf("The call has been handed off to a human agent. Reason: %s. Context: %s", reason, callContext),
		Effect: &Effect{
			Kind:        EffectHandoff,
			HandoffData: string(payload),
		},
	}, nil
}
