package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/voicerelay/voicerelay/pkg/core/types"
	"github.com/voicerelay/voicerelay/pkg/gateway/billing"
)

// VerifyUserIdentity matches the caller's stated name and date of birth
// against the patient directory. The result is JSON either way so the
// model can branch on the verified flag.
type VerifyUserIdentity struct {
	directory billing.Directory
}

func NewVerifyUserIdentity(directory billing.Directory) *VerifyUserIdentity {
	return &VerifyUserIdentity{directory: directory}
}

func (t *VerifyUserIdentity) Definition() types.ToolDefinition {
	return types.ToolDefinition{
		Name:        "verify_user_identity",
		Description: "Verify the identity of a user",
		Parameters: types.ObjectSchema(map[string]*types.Schema{
			"firstName": types.StringProp("First name of the user"),
			"lastName":  types.StringProp("Last name of the user"),
			"DOB":       types.StringProp("Date of birth of the user. Format: YYYY-MM-DD"),
		}, "firstName", "lastName", "DOB"),
	}
}

func (t *VerifyUserIdentity) Execute(ctx context.Context, args Arguments) (Result, error) {
	user, err := t.directory.VerifyIdentity(ctx, args.String("firstName"), args.String("lastName"), args.String("DOB"))
	if err != nil && !errors.Is(err, billing.ErrNotFound) {
		return Result{}, fmt.Errorf("verify identity: %w", err)
	}

	out := struct {
		UserID   *string `json:"userId"`
		Verified bool    `json:"verified"`
	}{}
	if user != nil {
		out.UserID = &user.ID
		out.Verified = true
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return Result{}, fmt.Errorf("encode verification result: %w", err)
	}
	return Result{Content: string(payload)}, nil
}
