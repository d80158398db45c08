package account

import (
	"time"

	"github.com/google/uuid"
)

// Account represents an admin account record in the domain model.
// PasswordHash and TwoFactorSecret are never serialized outward.
type Account struct {
	ID               uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	EmailConfirmed   bool      `json:"email_confirmed"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	TwoFactorSecret  string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// HasPassword reports whether a password has been set for the account.
// A bcrypt hash is never empty, so the empty string marks an unset password.
func (a Account) HasPassword() bool {
	return a.PasswordHash != ""
}
