package account

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEnforcesEmailUniqueness(t *testing.T) {
	repo := NewInMemoryAccountRepository()
	ctx := context.Background()

	acct, err := repo.Create(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", acct.Email)
	assert.False(t, acct.EmailConfirmed)
	assert.False(t, acct.TwoFactorEnabled)
	assert.False(t, acct.HasPassword())

	_, err = repo.Create(ctx, "a@x.com")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestGetByEmailAndID(t *testing.T) {
	repo := NewInMemoryAccountRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, "a@x.com")
	require.NoError(t, err)

	byEmail, err := repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", byID.Email)

	_, err = repo.GetByEmail(ctx, "missing@x.com")
	assert.ErrorIs(t, err, ErrAccountNotFound)
	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestMutations(t *testing.T) {
	repo := NewInMemoryAccountRepository()
	ctx := context.Background()

	acct, err := repo.Create(ctx, "a@x.com")
	require.NoError(t, err)

	require.NoError(t, repo.SetPassword(ctx, acct.ID, "$2a$10$hash"))
	require.NoError(t, repo.SetConfirmed(ctx, acct.ID))
	require.NoError(t, repo.SetTotpSecret(ctx, acct.ID, "JBSWY3DPEHPK3PXP"))

	got, err := repo.GetByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$hash", got.PasswordHash)
	assert.True(t, got.EmailConfirmed)
	assert.True(t, got.TwoFactorEnabled, "SetTotpSecret enables two-factor")
	assert.Equal(t, "JBSWY3DPEHPK3PXP", got.TwoFactorSecret)
}

func TestToggleTwoFactor(t *testing.T) {
	repo := NewInMemoryAccountRepository()
	ctx := context.Background()

	acct, err := repo.Create(ctx, "a@x.com")
	require.NoError(t, err)
	require.NoError(t, repo.SetTotpSecret(ctx, acct.ID, "JBSWY3DPEHPK3PXP"))

	enabled, err := repo.ToggleTwoFactor(ctx, acct.ID)
	require.NoError(t, err)
	assert.False(t, enabled)

	enabled, err = repo.ToggleTwoFactor(ctx, acct.ID)
	require.NoError(t, err)
	assert.True(t, enabled)

	// Secret survives the toggle; it is never cleared
	got, err := repo.GetByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", got.TwoFactorSecret)

	_, err = repo.ToggleTwoFactor(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrAccountNotFound)
}
