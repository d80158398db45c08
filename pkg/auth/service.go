package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/admin-auth/pkg/account"
	"github.com/tendant/admin-auth/pkg/notice"
	"github.com/tendant/admin-auth/pkg/notification"
	"github.com/tendant/admin-auth/pkg/tokengenerator"
	"github.com/tendant/admin-auth/pkg/totp"
)

// AuthService orchestrates every auth state transition and is the sole
// issuer and validator of bearer tokens. It never talks to the network
// layer directly; the HTTP edge deserializes requests, invokes it, and
// serializes its result or error.
type AuthService struct {
	repo                account.AccountRepository
	tokenGenerator      tokengenerator.TokenGenerator
	totpProvider        *totp.Totp
	notificationManager *notification.NotificationManager
	passwordHasher      PasswordHasher
	subjectSecret       string
	accessTokenExpiry   time.Duration
	resetTokenExpiry    time.Duration
}

// AuthServiceOption is a functional option for configuring AuthService
type AuthServiceOption func(*AuthService)

// WithPasswordHasher sets the password hasher
func WithPasswordHasher(hasher PasswordHasher) AuthServiceOption {
	return func(s *AuthService) {
		s.passwordHasher = hasher
	}
}

// WithSubjectSecret sets the server secret prefixed to the current
// password hash when computing the reset-token subject binding.
func WithSubjectSecret(secret string) AuthServiceOption {
	return func(s *AuthService) {
		s.subjectSecret = secret
	}
}

// WithAccessTokenExpiry sets the login/invite token lifetime
func WithAccessTokenExpiry(expiry time.Duration) AuthServiceOption {
	return func(s *AuthService) {
		s.accessTokenExpiry = expiry
	}
}

// WithResetTokenExpiry sets the reset token lifetime
func WithResetTokenExpiry(expiry time.Duration) AuthServiceOption {
	return func(s *AuthService) {
		s.resetTokenExpiry = expiry
	}
}

// NewAuthService creates a new AuthService with the given collaborators
func NewAuthService(
	repo account.AccountRepository,
	tokenGenerator tokengenerator.TokenGenerator,
	totpProvider *totp.Totp,
	notificationManager *notification.NotificationManager,
	opts ...AuthServiceOption,
) *AuthService {
	s := &AuthService{
		repo:                repo,
		tokenGenerator:      tokenGenerator,
		totpProvider:        totpProvider,
		notificationManager: notificationManager,
		passwordHasher:      NewBcryptHasher(0),
		accessTokenExpiry:   tokengenerator.DefaultAccessTokenExpiry,
		resetTokenExpiry:    tokengenerator.DefaultResetTokenExpiry,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// TotpEnrollment is returned by SetPassword: the provisioning URI to
// render as a QR code plus the shared secret for manual entry.
type TotpEnrollment struct {
	URI    string `json:"totp_uri"`
	Secret string `json:"totp_secret"`
}

// SendCredentialEmail looks up the account for the given email, creating
// one if absent (no password, unconfirmed), issues a login token and
// emails it. An existing account is not an error: the same flow doubles
// as the resend mechanism.
func (s *AuthService) SendCredentialEmail(ctx context.Context, email string) (string, error) {
	acct, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, account.ErrAccountNotFound) {
		acct, err = s.repo.Create(ctx, email)
		if errors.Is(err, account.ErrEmailTaken) {
			// Lost a create race; the row exists now.
			acct, err = s.repo.GetByEmail(ctx, email)
		}
	}
	if err != nil {
		slog.Error("Failed to find or create account", "email", email, "err", err)
		return "", fmt.Errorf("failed to find or create account: %w", err)
	}

	token, _, err := s.tokenGenerator.GenerateToken(acct.ID, acct.Email, s.accessTokenExpiry, "")
	if err != nil {
		return "", fmt.Errorf("failed to issue credential token: %w", err)
	}

	err = s.notificationManager.Send(notice.EmailConfirmationNotice, notification.NotificationData{
		To: acct.Email,
		Data: map[string]string{
			"Token": token,
			"Link":  fmt.Sprintf("%s/confirm-email/%s", s.notificationManager.BaseUrl, token),
		},
	})
	if err != nil {
		slog.Error("Failed to send confirmation email", "email", email, "err", err)
		return "", fmt.Errorf("failed to send confirmation email: %w", err)
	}

	return token, nil
}

// Register creates a new admin account outright. Unlike
// SendCredentialEmail it never treats an existing account as a resend;
// a duplicate email fails ErrUserAlreadyExists.
func (s *AuthService) Register(ctx context.Context, email string) (account.Account, error) {
	acct, err := s.repo.Create(ctx, email)
	if errors.Is(err, account.ErrEmailTaken) {
		return account.Account{}, ErrUserAlreadyExists
	}
	if err != nil {
		slog.Error("Failed to create account", "email", email, "err", err)
		return account.Account{}, fmt.Errorf("failed to create account: %w", err)
	}
	return acct, nil
}

// Me returns the account for an already authenticated subject.
func (s *AuthService) Me(ctx context.Context, email string) (account.Account, error) {
	acct, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, account.ErrAccountNotFound) {
		return account.Account{}, ErrUserDoesNotExist
	}
	if err != nil {
		return account.Account{}, fmt.Errorf("failed to load account: %w", err)
	}
	return acct, nil
}

// ConfirmEmail marks the account email as confirmed. A second call on
// the same account fails ErrAlreadyConfirmed rather than succeeding
// silently; the flag is never reset.
func (s *AuthService) ConfirmEmail(ctx context.Context, email string) (account.Account, error) {
	acct, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, account.ErrAccountNotFound) {
		return account.Account{}, ErrInvalidEmail
	}
	if err != nil {
		return account.Account{}, fmt.Errorf("failed to load account: %w", err)
	}
	if acct.EmailConfirmed {
		return account.Account{}, ErrAlreadyConfirmed
	}

	if err := s.repo.SetConfirmed(ctx, acct.ID); err != nil {
		slog.Error("Failed to confirm email", "email", email, "err", err)
		return account.Account{}, fmt.Errorf("failed to confirm email: %w", err)
	}

	acct.EmailConfirmed = true
	return acct, nil
}

// SetPassword hashes and stores the password, then provisions (or
// reuses) the account's TOTP secret. Password-set and 2FA enrollment
// are fused into one step: the caller gets back the provisioning URI
// with the account email as label.
func (s *AuthService) SetPassword(ctx context.Context, email, password string) (TotpEnrollment, error) {
	acct, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, account.ErrAccountNotFound) {
		return TotpEnrollment{}, ErrInvalidEmail
	}
	if err != nil {
		return TotpEnrollment{}, fmt.Errorf("failed to load account: %w", err)
	}

	hash, err := s.passwordHasher.Hash(password)
	if err != nil {
		return TotpEnrollment{}, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.SetPassword(ctx, acct.ID, hash); err != nil {
		slog.Error("Failed to store password", "email", email, "err", err)
		return TotpEnrollment{}, fmt.Errorf("failed to store password: %w", err)
	}

	secret := acct.TwoFactorSecret
	if secret == "" {
		secret, err = s.totpProvider.GenerateSecret(acct.Email)
		if err != nil {
			return TotpEnrollment{}, fmt.Errorf("failed to generate totp secret: %w", err)
		}
		if err := s.repo.SetTotpSecret(ctx, acct.ID, secret); err != nil {
			slog.Error("Failed to store totp secret", "email", email, "err", err)
			return TotpEnrollment{}, fmt.Errorf("failed to store totp secret: %w", err)
		}
	}

	return TotpEnrollment{
		URI:    s.totpProvider.ProvisioningURI(secret, acct.Email),
		Secret: secret,
	}, nil
}

// VerifyTwoFactor checks the TOTP code and issues a fresh login token
// on success.
func (s *AuthService) VerifyTwoFactor(ctx context.Context, email, code string) (string, error) {
	acct, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, account.ErrAccountNotFound) {
		return "", ErrInvalidEmail
	}
	if err != nil {
		return "", fmt.Errorf("failed to load account: %w", err)
	}
	if !acct.TwoFactorEnabled {
		return "", ErrTwoFactorDisabled
	}
	if !s.totpProvider.Verify(acct.TwoFactorSecret, code) {
		return "", ErrInvalidCode
	}

	token, _, err := s.tokenGenerator.GenerateToken(acct.ID, acct.Email, s.accessTokenExpiry, "")
	if err != nil {
		return "", fmt.Errorf("failed to issue login token: %w", err)
	}
	return token, nil
}

// ToggleTwoFactor flips the two-factor flag after a successful TOTP
// check. The caller must prove possession of a valid code even when
// disabling. Returns the new state label.
func (s *AuthService) ToggleTwoFactor(ctx context.Context, email, code string) (string, error) {
	acct, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, account.ErrAccountNotFound) {
		return "", ErrInvalidEmail
	}
	if err != nil {
		return "", fmt.Errorf("failed to load account: %w", err)
	}
	if !s.totpProvider.Verify(acct.TwoFactorSecret, code) {
		return "", ErrInvalidCode
	}

	enabled, err := s.repo.ToggleTwoFactor(ctx, acct.ID)
	if err != nil {
		slog.Error("Failed to toggle two-factor", "email", email, "err", err)
		return "", fmt.Errorf("failed to toggle two-factor: %w", err)
	}

	if enabled {
		return "Enabled", nil
	}
	return "Disabled", nil
}

// Login validates the email and password. A missing account and a hash
// mismatch both yield ErrInvalidCredentials so the response cannot be
// used for account enumeration. Token issuance is left to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (account.Account, error) {
	acct, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, account.ErrAccountNotFound) {
		return account.Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return account.Account{}, fmt.Errorf("failed to load account: %w", err)
	}
	if !acct.HasPassword() {
		return account.Account{}, ErrInvalidCredentials
	}

	valid, err := s.passwordHasher.Verify(password, acct.PasswordHash)
	if err != nil {
		slog.Error("Failed to verify password", "email", email, "err", err)
		return account.Account{}, ErrInvalidCredentials
	}
	if !valid {
		return account.Account{}, ErrInvalidCredentials
	}

	return acct, nil
}

// CreateToken issues a login bearer token for an already authenticated
// account.
func (s *AuthService) CreateToken(acct account.Account) (string, time.Time, error) {
	return s.tokenGenerator.GenerateToken(acct.ID, acct.Email, s.accessTokenExpiry, "")
}

// ForgotPassword issues a reset token bound to the current password
// hash and emails it. The account itself is not mutated; any later
// password change invalidates the token through the subject binding.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	acct, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, account.ErrAccountNotFound) {
		return ErrEmailNotRegistered
	}
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}

	token, _, err := s.tokenGenerator.GenerateToken(acct.ID, acct.Email, s.resetTokenExpiry, s.resetSubject(acct))
	if err != nil {
		return fmt.Errorf("failed to issue reset token: %w", err)
	}

	err = s.notificationManager.Send(notice.ForgotPasswordNotice, notification.NotificationData{
		To: acct.Email,
		Data: map[string]string{
			"Token": token,
			"Link":  fmt.Sprintf("%s/reset-password/%s", s.notificationManager.BaseUrl, token),
		},
	})
	if err != nil {
		slog.Error("Failed to send reset email", "email", email, "err", err)
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	return nil
}

// CheckResetLinkExpiry recomputes the subject binding from the
// account's current password hash and verifies the reset token against
// it. Expired, malformed and subject-mismatch failures all collapse to
// ErrResetLinkExpired so the response leaks nothing about which check
// failed.
func (s *AuthService) CheckResetLinkExpiry(ctx context.Context, email, token string) error {
	acct, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, account.ErrAccountNotFound) {
		return ErrResetLinkExpired
	}
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}

	if _, err := s.tokenGenerator.ParseToken(token, s.resetSubject(acct)); err != nil {
		slog.Warn("Reset link verification failed", "email", email, "err", err)
		return ErrResetLinkExpired
	}
	return nil
}

// ConfirmForgotPassword re-hashes and overwrites the password
// unconditionally. It trusts that the caller's bearer-token guard has
// already verified the reset link; the trust boundary is deliberate.
func (s *AuthService) ConfirmForgotPassword(ctx context.Context, email, password string) error {
	acct, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, account.ErrAccountNotFound) {
		return ErrUserDoesNotExist
	}
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}

	hash, err := s.passwordHasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.SetPassword(ctx, acct.ID, hash); err != nil {
		slog.Error("Failed to overwrite password", "email", email, "err", err)
		return fmt.Errorf("failed to overwrite password: %w", err)
	}
	return nil
}

// resetSubject derives the reset-token subject from the server secret
// and the current password hash. Because the subject is embedded in
// the signature, a password change invalidates every previously issued
// reset token immediately, with no revocation list.
func (s *AuthService) resetSubject(acct account.Account) string {
	return s.subjectSecret + acct.PasswordHash
}
