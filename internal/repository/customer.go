package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/kayak-tours/internal/model"
)

// CustomerRepository handles persistence for identity provider accounts.
type CustomerRepository struct {
	db *pgxpool.Pool
}

// NewCustomerRepository constructs a CustomerRepository.
func NewCustomerRepository(db *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{db: db}
}

const customerColumns = `id, email, user_name, phone_number, password_hash, role,
	email_confirmed, COALESCE(confirmation_code, ''), created_at`

func scanCustomer(row pgx.Row) (*model.Customer, error) {
	var c model.Customer
	err := row.Scan(&c.ID, &c.Email, &c.UserName, &c.PhoneNumber, &c.PasswordHash,
		&c.Role, &c.EmailConfirmed, &c.ConfirmationCode, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Create inserts a new account. ErrDuplicate is returned when the email is taken.
func (r *CustomerRepository) Create(ctx context.Context, c *model.Customer) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO customers (id, email, user_name, phone_number, password_hash, role,
		                        email_confirmed, confirmation_code)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
		 RETURNING created_at`,
		c.ID, c.Email, c.UserName, c.PhoneNumber, c.PasswordHash, c.Role,
		c.EmailConfirmed, c.ConfirmationCode,
	).Scan(&c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

// GetByID returns a single account or ErrNotFound.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*model.Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, err
}

// GetByEmail returns a single account or ErrNotFound.
func (r *CustomerRepository) GetByEmail(ctx context.Context, email string) (*model.Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE email = $1`, email))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get customer by email: %w", err)
	}
	return c, err
}

// ConfirmEmail marks the account confirmed when code matches the stored
// confirmation code. ErrNotFound covers both an unknown id and a wrong code.
func (r *CustomerRepository) ConfirmEmail(ctx context.Context, id, code string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE customers
		 SET email_confirmed = TRUE, confirmation_code = NULL
		 WHERE id = $1 AND confirmation_code = $2`,
		id, code,
	)
	if err != nil {
		return fmt.Errorf("confirm email: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetResetCode stores a password reset code valid until expiresAt,
// replacing any earlier one.
func (r *CustomerRepository) SetResetCode(ctx context.Context, id, code string, expiresAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE customers SET reset_code = $2, reset_expires_at = $3 WHERE id = $1`,
		id, code, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("set reset code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetPassword replaces the password hash if code is the account's
// unexpired reset code, and consumes the code. ErrNotFound covers an
// unknown email, a wrong code and an expired one.
func (r *CustomerRepository) ResetPassword(ctx context.Context, email, code, hash string, now time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE customers
		 SET password_hash = $3, reset_code = NULL, reset_expires_at = NULL
		 WHERE email = $1 AND reset_code = $2 AND reset_expires_at > $4`,
		email, code, hash, now,
	)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePassword overwrites the password hash.
func (r *CustomerRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE customers SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPendingEmail records the address the account wants to move to and the
// code that confirms it.
func (r *CustomerRepository) SetPendingEmail(ctx context.Context, id, email, code string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE customers SET pending_email = $2, email_change_code = $3 WHERE id = $1`,
		id, email, code,
	)
	if err != nil {
		return fmt.Errorf("set pending email: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ConfirmNewEmail moves the account to its pending address when email and
// code match what SetPendingEmail stored. The user name follows the email.
// ErrDuplicate is returned if another account took the address meanwhile.
func (r *CustomerRepository) ConfirmNewEmail(ctx context.Context, id, email, code string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE customers
		 SET email = $2, user_name = $2, pending_email = NULL, email_change_code = NULL
		 WHERE id = $1 AND pending_email = $2 AND email_change_code = $3`,
		id, email, code,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("confirm new email: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
