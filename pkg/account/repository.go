package account

import (
	"context"

	"github.com/google/uuid"
)

// AccountRepository defines the interface for account persistence operations.
// All mutations are read-modify-write against the current row; conflicts are
// last-writer-wins, which is acceptable at human-scale mutation rates.
type AccountRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Account, error)
	GetByEmail(ctx context.Context, email string) (Account, error)

	// Create inserts a new account with no password, unconfirmed email and
	// 2FA disabled. Returns ErrEmailTaken when the email already exists.
	Create(ctx context.Context, email string) (Account, error)

	// SetPassword overwrites the stored password hash.
	SetPassword(ctx context.Context, id uuid.UUID, hash string) error

	// SetConfirmed marks the account email as confirmed. The flag is
	// monotonic and is never reset.
	SetConfirmed(ctx context.Context, id uuid.UUID) error

	// SetTotpSecret stores the TOTP secret and enables two-factor
	// authentication in the same update.
	SetTotpSecret(ctx context.Context, id uuid.UUID, secret string) error

	// ToggleTwoFactor flips the two-factor flag and returns the new state.
	ToggleTwoFactor(ctx context.Context, id uuid.UUID) (bool, error)
}
