package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDirectory reads patient records from Postgres. Schema lives in
// the migrations directory next to this package.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

func NewPostgresDirectory(ctx context.Context, dsn string) (*PostgresDirectory, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresDirectory{pool: pool}, nil
}

func (d *PostgresDirectory) Close() {
	d.pool.Close()
}

func (d *PostgresDirectory) VerifyIdentity(ctx context.Context, firstName, lastName, dob string) (*User, error) {
	const q = `SELECT id, first_name, last_name, dob, COALESCE(stripe_customer_id, '')
		FROM users WHERE first_name = $1 AND last_name = $2 AND dob = $3`

	var u User
	err := d.pool.QueryRow(ctx, q, firstName, lastName, dob).
		Scan(&u.ID, &u.FirstName, &u.LastName, &u.DOB, &u.StripeCustomerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

func (d *PostgresDirectory) User(ctx context.Context, userID string) (*User, error) {
	const q = `SELECT id, first_name, last_name, dob, COALESCE(stripe_customer_id, '')
		FROM users WHERE id = $1`

	var u User
	err := d.pool.QueryRow(ctx, q, userID).
		Scan(&u.ID, &u.FirstName, &u.LastName, &u.DOB, &u.StripeCustomerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

func (d *PostgresDirectory) PendingBill(ctx context.Context, userID string) (*Bill, error) {
	const q = `SELECT user_id, amount, description, due_date
		FROM bills WHERE user_id = $1 AND settled = FALSE
		ORDER BY due_date LIMIT 1`

	var b Bill
	err := d.pool.QueryRow(ctx, q, userID).
		Scan(&b.UserID, &b.Amount, &b.Description, &b.DueDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query bill: %w", err)
	}
	return &b, nil
}

func (d *PostgresDirectory) HSAAccount(ctx context.Context, userID string) (*HSAAccount, error) {
	const q = `SELECT user_id, balance FROM hsa_accounts WHERE user_id = $1`

	var a HSAAccount
	err := d.pool.QueryRow(ctx, q, userID).Scan(&a.UserID, &a.Balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query hsa account: %w", err)
	}
	return &a, nil
}
