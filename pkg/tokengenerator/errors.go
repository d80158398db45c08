package tokengenerator

import "errors"

var (
	// ErrTokenExpired is returned when a token's expiry has elapsed
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenMalformed is returned when a token cannot be parsed or its signature is invalid
	ErrTokenMalformed = errors.New("token is malformed")

	// ErrSubjectMismatch is returned when a token's subject does not match the expected binding
	ErrSubjectMismatch = errors.New("token subject mismatch")
)
