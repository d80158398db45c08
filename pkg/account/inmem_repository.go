package account

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryAccountRepository implements AccountRepository using in-memory storage.
// It mirrors the behavior of the postgres repository, including email
// uniqueness, and is intended for tests and local development.
type InMemoryAccountRepository struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]Account
}

// NewInMemoryAccountRepository creates a new in-memory account repository
func NewInMemoryAccountRepository() *InMemoryAccountRepository {
	return &InMemoryAccountRepository{
		accounts: make(map[uuid.UUID]Account),
	}
}

// GetByID retrieves an account by ID
func (r *InMemoryAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acct, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return acct, nil
}

// GetByEmail retrieves an account by email
func (r *InMemoryAccountRepository) GetByEmail(ctx context.Context, email string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, acct := range r.accounts {
		if acct.Email == email {
			return acct, nil
		}
	}
	return Account{}, ErrAccountNotFound
}

// Create inserts a new account with only the email populated
func (r *InMemoryAccountRepository) Create(ctx context.Context, email string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, acct := range r.accounts {
		if acct.Email == email {
			return Account{}, ErrEmailTaken
		}
	}

	now := time.Now()
	acct := Account{
		ID:        uuid.New(),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.accounts[acct.ID] = acct
	return acct, nil
}

// SetPassword overwrites the stored password hash
func (r *InMemoryAccountRepository) SetPassword(ctx context.Context, id uuid.UUID, hash string) error {
	return r.update(id, func(acct *Account) {
		acct.PasswordHash = hash
	})
}

// SetConfirmed marks the account email as confirmed
func (r *InMemoryAccountRepository) SetConfirmed(ctx context.Context, id uuid.UUID) error {
	return r.update(id, func(acct *Account) {
		acct.EmailConfirmed = true
	})
}

// SetTotpSecret stores the TOTP secret and enables two-factor authentication
func (r *InMemoryAccountRepository) SetTotpSecret(ctx context.Context, id uuid.UUID, secret string) error {
	return r.update(id, func(acct *Account) {
		acct.TwoFactorSecret = secret
		acct.TwoFactorEnabled = true
	})
}

// ToggleTwoFactor flips the two-factor flag and returns the new state
func (r *InMemoryAccountRepository) ToggleTwoFactor(ctx context.Context, id uuid.UUID) (bool, error) {
	var enabled bool
	err := r.update(id, func(acct *Account) {
		acct.TwoFactorEnabled = !acct.TwoFactorEnabled
		enabled = acct.TwoFactorEnabled
	})
	return enabled, err
}

func (r *InMemoryAccountRepository) update(id uuid.UUID, fn func(*Account)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	acct, ok := r.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	fn(&acct)
	acct.UpdatedAt = time.Now()
	r.accounts[id] = acct
	return nil
}
