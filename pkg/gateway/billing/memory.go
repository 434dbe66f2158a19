package billing

import "context"

// MemoryDirectory serves a fixed data set. It backs local development and
// the test suite; nothing mutates it after construction.
type MemoryDirectory struct {
	users []User
	bills map[string]Bill
	hsa   map[string]HSAAccount
}

// NewMemoryDirectory returns a directory seeded with demo patients. One
// patient's HSA balance covers their open bill, the other's does not, so
// both payment paths are reachable in a demo call.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		users: []User{
			{ID: "user_001", FirstName: "John", LastName: "Doe", DOB: "1985-04-12", StripeCustomerID: "cus_demo_001"},
			{ID: "user_002", FirstName: "Maria", LastName: "Garcia", DOB: "1990-09-23", StripeCustomerID: "cus_demo_002"},
		},
		bills: map[string]Bill{
			"user_001": {UserID: "user_001", Amount: 245.50, Description: "Annual physical and lab work", DueDate: "2026-09-30"},
			"user_002": {UserID: "user_002", Amount: 1880.00, Description: "Outpatient imaging", DueDate: "2026-10-15"},
		},
		hsa: map[string]HSAAccount{
			"user_001": {UserID: "user_001", Balance: 1200.00},
			"user_002": {UserID: "user_002", Balance: 350.00},
		},
	}
}

func (d *MemoryDirectory) VerifyIdentity(_ context.Context, firstName, lastName, dob string) (*User, error) {
	for _, u := range d.users {
		if u.FirstName == firstName && u.LastName == lastName && u.DOB == dob {
			out := u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (d *MemoryDirectory) User(_ context.Context, userID string) (*User, error) {
	for _, u := range d.users {
		if u.ID == userID {
			out := u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (d *MemoryDirectory) PendingBill(_ context.Context, userID string) (*Bill, error) {
	bill, ok := d.bills[userID]
	if !ok {
		return nil, ErrNotFound
	}
	out := bill
	return &out, nil
}

func (d *MemoryDirectory) HSAAccount(_ context.Context, userID string) (*HSAAccount, error) {
	acct, ok := d.hsa[userID]
	if !ok {
		return nil, ErrNotFound
	}
	out := acct
	return &out, nil
}
