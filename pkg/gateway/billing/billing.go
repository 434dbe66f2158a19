// Package billing looks up patients, their open bills, and HSA balances.
// Two directory implementations exist: an in-memory seed for local runs
// and a Postgres-backed one for deployments.
package billing

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("billing: not found")

type User struct {
	ID               string `json:"userId"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	DOB              string `json:"dob"`
	StripeCustomerID string `json:"-"`
}

type Bill struct {
	UserID      string  `json:"userId"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	DueDate     string  `json:"dueDate"`
}

type HSAAccount struct {
	UserID  string  `json:"userId"`
	Balance float64 `json:"balance"`
}

// Directory is the read surface the conversation tools use. Lookups that
// find nothing return ErrNotFound rather than a nil record.
type Directory interface {
	// VerifyIdentity matches first name, last name, and date of birth
	// (YYYY-MM-DD) exactly.
	VerifyIdentity(ctx context.Context, firstName, lastName, dob string) (*User, error)
	User(ctx context.Context, userID string) (*User, error)
	PendingBill(ctx context.Context, userID string) (*Bill, error)
	HSAAccount(ctx context.Context, userID string) (*HSAAccount, error)
}
