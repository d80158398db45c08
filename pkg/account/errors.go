package account

import "errors"

var (
	// ErrAccountNotFound is returned when no account matches the lookup key
	ErrAccountNotFound = errors.New("account not found")

	// ErrEmailTaken is returned when creating an account with an email that already exists
	ErrEmailTaken = errors.New("account with the same email already exists")
)
