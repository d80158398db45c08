package auth

import "errors"

// User-facing failures of the auth lifecycle engine. Store and token
// codec internals are mapped to these before any operation returns, so
// callers never see a raw signature parse error or database failure.
var (
	// ErrInvalidEmail is returned when a lookup misses and the email itself is the target of the check
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrAlreadyConfirmed is returned on a second confirmation of the same email
	ErrAlreadyConfirmed = errors.New("this email link has been expired")

	// ErrTwoFactorDisabled is returned when a 2FA check runs against an account with 2FA off
	ErrTwoFactorDisabled = errors.New("please enable two factor authentication first")

	// ErrInvalidCode is returned when a TOTP code fails verification
	ErrInvalidCode = errors.New("2fa code is invalid")

	// ErrInvalidCredentials is returned on login failure; deliberately
	// generic so callers cannot distinguish a missing account from a
	// wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUserAlreadyExists is returned when registering an email that already has an account
	ErrUserAlreadyExists = errors.New("user with the same email already exists")

	// ErrEmailNotRegistered is returned when forgot-password targets an unknown email
	ErrEmailNotRegistered = errors.New("email not registered")

	// ErrUserDoesNotExist is returned when confirm-forgot-password targets an unknown email
	ErrUserDoesNotExist = errors.New("user with specified email does not exist")

	// ErrResetLinkExpired collapses every reset-token verification
	// failure (expired, malformed, subject mismatch) into one
	// user-visible error to avoid leaking which check failed.
	ErrResetLinkExpired = errors.New("this reset password link has been expired")
)
