package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the postgres error code raised by the unique index on email.
const uniqueViolation = "23505"

const getAccountSQL = `
SELECT id, email, password, email_confirmed, two_factor_enabled, two_factor_secret, created_at, updated_at
FROM accounts
WHERE id = $1
`

const getAccountByEmailSQL = `
SELECT id, email, password, email_confirmed, two_factor_enabled, two_factor_secret, created_at, updated_at
FROM accounts
WHERE email = $1
`

const createAccountSQL = `
INSERT INTO accounts (id, email)
VALUES ($1, $2)
RETURNING id, email, password, email_confirmed, two_factor_enabled, two_factor_secret, created_at, updated_at
`

const setPasswordSQL = `
UPDATE accounts
SET password = $2, updated_at = now()
WHERE id = $1
`

const setConfirmedSQL = `
UPDATE accounts
SET email_confirmed = TRUE, updated_at = now()
WHERE id = $1
`

const setTotpSecretSQL = `
UPDATE accounts
SET two_factor_secret = $2, two_factor_enabled = TRUE, updated_at = now()
WHERE id = $1
`

const toggleTwoFactorSQL = `
UPDATE accounts
SET two_factor_enabled = NOT two_factor_enabled, updated_at = now()
WHERE id = $1
RETURNING two_factor_enabled
`

// PostgresAccountRepository implements AccountRepository using PostgreSQL
type PostgresAccountRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAccountRepository creates a new PostgreSQL-based account repository
func NewPostgresAccountRepository(pool *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{
		pool: pool,
	}
}

// GetByID retrieves an account by ID
func (r *PostgresAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (Account, error) {
	return r.scanAccount(r.pool.QueryRow(ctx, getAccountSQL, id))
}

// GetByEmail retrieves an account by its unique email
func (r *PostgresAccountRepository) GetByEmail(ctx context.Context, email string) (Account, error) {
	return r.scanAccount(r.pool.QueryRow(ctx, getAccountByEmailSQL, email))
}

// Create inserts a new account with only the email populated
func (r *PostgresAccountRepository) Create(ctx context.Context, email string) (Account, error) {
	acct, err := r.scanAccount(r.pool.QueryRow(ctx, createAccountSQL, uuid.New(), email))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Account{}, ErrEmailTaken
		}
		return Account{}, fmt.Errorf("failed to create account: %w", err)
	}
	return acct, nil
}

// SetPassword overwrites the stored password hash
func (r *PostgresAccountRepository) SetPassword(ctx context.Context, id uuid.UUID, hash string) error {
	return r.exec(ctx, setPasswordSQL, id, hash)
}

// SetConfirmed marks the account email as confirmed
func (r *PostgresAccountRepository) SetConfirmed(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, setConfirmedSQL, id)
}

// SetTotpSecret stores the TOTP secret and enables two-factor authentication
func (r *PostgresAccountRepository) SetTotpSecret(ctx context.Context, id uuid.UUID, secret string) error {
	return r.exec(ctx, setTotpSecretSQL, id, secret)
}

// ToggleTwoFactor flips the two-factor flag and returns the new state
func (r *PostgresAccountRepository) ToggleTwoFactor(ctx context.Context, id uuid.UUID) (bool, error) {
	var enabled bool
	err := r.pool.QueryRow(ctx, toggleTwoFactorSQL, id).Scan(&enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrAccountNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to toggle two-factor: %w", err)
	}
	return enabled, nil
}

func (r *PostgresAccountRepository) exec(ctx context.Context, sql string, args ...interface{}) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *PostgresAccountRepository) scanAccount(row pgx.Row) (Account, error) {
	var (
		acct     Account
		password pgtype.Text
		secret   pgtype.Text
	)
	err := row.Scan(&acct.ID, &acct.Email, &password, &acct.EmailConfirmed,
		&acct.TwoFactorEnabled, &secret, &acct.CreatedAt, &acct.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, err
	}
	acct.PasswordHash = password.String
	acct.TwoFactorSecret = secret.String
	return acct, nil
}
