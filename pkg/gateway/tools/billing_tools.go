package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/invoice"

	"github.com/voicerelay/voicerelay/pkg/core/types"
	"github.com/voicerelay/voicerelay/pkg/gateway/billing"
)

const userIDDescription = "The user ID. Note: This is verified user id from the verify_user_identity function"

// CheckPendingBill returns the caller's open bill as JSON, or a plain
// message when nothing is owed.
type CheckPendingBill struct {
	directory billing.Directory
}

func NewCheckPendingBill(directory billing.Directory) *CheckPendingBill {
	return &CheckPendingBill{directory: directory}
}

func (t *CheckPendingBill) Definition() types.ToolDefinition {
	return types.ToolDefinition{
		Name:        "check_pending_bill",
		Description: "Check if the user has a pending medical bill",
		Parameters: types.ObjectSchema(map[string]*types.Schema{
			"userId": types.StringProp(userIDDescription),
		}, "userId"),
	}
}

func (t *CheckPendingBill) Execute(ctx context.Context, args Arguments) (Result, error) {
	userID := args.String("userId")
	bill, err := t.directory.PendingBill(ctx, userID)
	if errors.Is(err, billing.ErrNotFound) {
		return Result{Content: "No pending bill found."}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("check pending bill: %w", err)
	}

	payload, err := json.Marshal(map[string]any{"userId": userID, "bill": bill})
	if err != nil {
		return Result{}, fmt.Errorf("encode bill: %w", err)
	}
	return Result{Content: string(payload)}, nil
}

// CheckHSAAccount reports the caller's HSA balance.
type CheckHSAAccount struct {
	directory billing.Directory
}

func NewCheckHSAAccount(directory billing.Directory) *CheckHSAAccount {
	return &CheckHSAAccount{directory: directory}
}

func (t *CheckHSAAccount) Definition() types.ToolDefinition {
	return types.ToolDefinition{
		Name:        "check_hsa_account",
		Description: "Check the balance of a user's Health Savings Account (HSA)",
		Parameters: types.ObjectSchema(map[string]*types.Schema{
			"userId": types.StringProp(userIDDescription),
		}, "userId"),
	}
}

func (t *CheckHSAAccount) Execute(ctx context.Context, args Arguments) (Result, error) {
	userID := args.String("userId")
	acct, err := t.directory.HSAAccount(ctx, userID)
	if errors.Is(err, billing.ErrNotFound) {
		return Result{Content: "No HSA account found."}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("check hsa account: %w", err)
	}

	payload, err := json.Marshal(map[string]any{"userId": userID, "hsaAccount": acct})
	if err != nil {
		return Result{}, fmt.Errorf("encode hsa account: %w", err)
	}
	return Result{Content: string(payload)}, nil
}

// CheckPaymentOptions decides whether the caller's HSA covers the open
// bill. When Stripe is configured and the patient has a customer record,
// the outstanding amount comes from their open Stripe invoices instead of
// the model-supplied figure.
type CheckPaymentOptions struct {
	directory     billing.Directory
	stripeEnabled bool
}

func NewCheckPaymentOptions(directory billing.Directory, stripeAPIKey string) *CheckPaymentOptions {
	if stripeAPIKey != "" {
		stripe.Key = stripeAPIKey
	}
	return &CheckPaymentOptions{directory: directory, stripeEnabled: stripeAPIKey != ""}
}

func (t *CheckPaymentOptions) Definition() types.ToolDefinition {
	return types.ToolDefinition{
		Name:        "check_payment_options",
		Description: "Check the payment options available to the user",
		Parameters: types.ObjectSchema(map[string]*types.Schema{
			"userId":            types.StringProp(userIDDescription),
			"hsaAccountBalance": types.NumberProp("The balance of the user's Health Savings Account (HSA). Note: This is verified by the check_hsa_account function"),
			"balance":           types.NumberProp("The total amount of the balance on a pending medical bill. Note: This is verified by the check_pending_bill function"),
		}, "userId", "hsaAccountBalance", "balance"),
	}
}

func (t *CheckPaymentOptions) Execute(ctx context.Context, args Arguments) (Result, error) {
	userID := args.String("userId")
	hsaBalance, _ := args.Number("hsaAccountBalance")
	balance, _ := args.Number("balance")

	if t.stripeEnabled {
		if due, ok := t.stripeBalance(ctx, userID); ok {
			balance = due
		}
	}

	options := "[HSA Account]"
	if balance > hsaBalance {
		options = "[Payment Plan - ask caller if they would like to discus payment plan options. And invoke transfer to human agent if caller wants to learn more ]"
	}

	payload, err := json.Marshal(map[string]any{"userId": userID, "paymentOptions": options})
	if err != nil {
		return Result{}, fmt.Errorf("encode payment options: %w", err)
	}
	return Result{Content: string(payload)}, nil
}

// stripeBalance sums the caller's open Stripe invoices. Any failure falls
// back to the model-supplied balance; payment guidance should not break
// because the billing processor is unreachable.
func (t *CheckPaymentOptions) stripeBalance(ctx context.Context, userID string) (float64, bool) {
	user, err := t.directory.User(ctx, userID)
	if err != nil || user.StripeCustomerID == "" {
		return 0, false
	}

	params := &stripe.InvoiceListParams{
		Customer: stripe.String(user.StripeCustomerID),
		Status:   stripe.String(string(stripe.InvoiceStatusOpen)),
	}
	params.Context = ctx

	var totalCents int64
	var found bool
	it := invoice.List(params)
	for it.Next() {
		totalCents += it.Invoice().AmountDue
		found = true
	}
	if it.Err() != nil || !found {
		return 0, false
	}
	return float64(totalCents) / 100, true
}
