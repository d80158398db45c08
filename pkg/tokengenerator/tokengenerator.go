package tokengenerator

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token expiry durations
const (
	DefaultAccessTokenExpiry = 15 * time.Minute
	DefaultResetTokenExpiry  = 10 * time.Minute
)

// AccountClaims is the signed claims bundle carried by every bearer token.
// The optional subject binding lives in RegisteredClaims.Subject: reset
// tokens embed a digest of mutable account state there so that a state
// change invalidates every outstanding token without a revocation list.
type AccountClaims struct {
	AccountID string `json:"account_id,omitempty"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenGenerator interface defines methods for token operations.
// Implementations must be pure computation, safe for unlimited
// parallel invocation.
type TokenGenerator interface {
	// GenerateToken signs a token carrying the given claims. An empty
	// subject omits the subject binding and the token relies solely on
	// expiry.
	GenerateToken(accountID uuid.UUID, email string, expiry time.Duration, subject string) (string, time.Time, error)

	// ParseToken verifies signature and expiry and, when expectedSubject
	// is non-empty, the subject binding.
	ParseToken(tokenStr string, expectedSubject string) (*AccountClaims, error)
}

// JwtTokenGenerator implements the TokenGenerator interface with HS256
type JwtTokenGenerator struct {
	Secret   string
	Issuer   string
	Audience string
}

// NewJwtTokenGenerator creates a new JwtTokenGenerator
func NewJwtTokenGenerator(secret, issuer, audience string) *JwtTokenGenerator {
	return &JwtTokenGenerator{
		Secret:   secret,
		Issuer:   issuer,
		Audience: audience,
	}
}

// GenerateToken creates a new signed token for the given account
func (g *JwtTokenGenerator) GenerateToken(accountID uuid.UUID, email string, expiry time.Duration, subject string) (string, time.Time, error) {
	claims := AccountClaims{
		AccountID: accountID.String(),
		Email:     email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().UTC().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			NotBefore: jwt.NewNumericDate(time.Now().UTC().Add(-5 * time.Minute)),
			Issuer:    g.Issuer,
			Subject:   subject,
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{g.Audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(g.Secret))
	if err != nil {
		slog.Error("Failed to sign JWT claims", "err", err)
		return "", time.Time{}, err
	}
	return ss, claims.ExpiresAt.Time, nil
}

// ParseToken parses and validates a token string
func (g *JwtTokenGenerator) ParseToken(tokenStr string, expectedSubject string) (*AccountClaims, error) {
	claims := &AccountClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(g.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		slog.Error("Failed to parse JWT string", "err", err)
		return nil, ErrTokenMalformed
	}
	if !token.Valid {
		return nil, ErrTokenMalformed
	}

	if expectedSubject != "" {
		// Constant-time comparison: the subject embeds secret-derived material.
		if subtle.ConstantTimeCompare([]byte(claims.Subject), []byte(expectedSubject)) != 1 {
			return nil, ErrSubjectMismatch
		}
	}

	return claims, nil
}
