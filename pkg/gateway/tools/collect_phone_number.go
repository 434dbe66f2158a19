package tools

import (
	"context"

	"github.com/voicerelay/voicerelay/pkg/core/types"
)

// CollectPhoneNumber arms the keypad collector so the caller can enter
// their phone number digit by digit.
type CollectPhoneNumber struct{}

func (CollectPhoneNumber) Definition() types.ToolDefinition {
	return types.ToolDefinition{
		Name:        "collect_phone_number",
		Description: "Collect the user's phone number",
		Parameters:  types.ObjectSchema(nil),
	}
}

func (CollectPhoneNumber) Execute(_ context.Context, _ Arguments) (Result, error) {
	return Result{
		Content: "Please prompt the caller to say or input their phone number",
		Effect: &Effect{
			Kind:        EffectCollectDigits,
			CollectMode: "phone_number",
		},
	}, nil
}
