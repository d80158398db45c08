package api

import (
	"errors"
	"regexp"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
)

var (
	// RFC-ish email shape: must start with a letter, end alphanumeric,
	// domain labels 3-30 chars, TLD 2-5 chars.
	emailPattern = regexp.MustCompile(`^[a-zA-Z]+[a-zA-Z0-9_.-]*[a-zA-Z0-9]+@(([a-zA-Z0-9-]){3,30}\.)+([a-zA-Z0-9]{2,5})$`)

	consecutiveSeparators = regexp.MustCompile(`[-_.]{2}`)
)

func noConsecutiveSeparators(value interface{}) error {
	s, _ := value.(string)
	if consecutiveSeparators.MatchString(s) {
		return errors.New("must not contain consecutive separators")
	}
	return nil
}

// passwordComplexity requires at least one uppercase letter, one
// lowercase letter, one digit and one symbol. Length is checked
// separately so the two failures report distinctly.
func passwordComplexity(value interface{}) error {
	s, _ := value.(string)
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, c := range s {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsDigit(c):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasSymbol {
		return errors.New("must contain a mix of upper and lower case letters, numbers and symbols")
	}
	return nil
}

func emailRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Match(emailPattern).Error("must be a valid email address"),
		validation.By(noConsecutiveSeparators),
	}
}

func passwordRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(8, 50),
		validation.By(passwordComplexity),
	}
}

type RegisterRequest struct {
	Email string `json:"email"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, emailRules()...),
	)
}

type ConfirmEmailRequest struct {
	Email string `json:"email"`
}

func (r ConfirmEmailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, emailRules()...),
	)
}

type SetPasswordRequest struct {
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

func (r SetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, emailRules()...),
		validation.Field(&r.Password, passwordRules()...),
		validation.Field(&r.PasswordConfirmation,
			validation.Required,
			validation.In(r.Password).Error("must equal password"),
		),
	)
}

type TwoFactorRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (r TwoFactorRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, emailRules()...),
		validation.Field(&r.Code, validation.Required),
	)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

func (r ForgotPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, emailRules()...),
	)
}

type VerifyResetLinkRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

func (r VerifyResetLinkRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Token, validation.Required),
	)
}

// ConfirmForgotPasswordRequest carries only the new password: the email
// comes from the authenticated bearer token's claims, not the body.
type ConfirmForgotPasswordRequest struct {
	Password string `json:"password"`
}

func (r ConfirmForgotPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, passwordRules()...),
	)
}

// AccountResponse is the outward-facing account representation. The
// password hash and TOTP secret are never part of it.
type AccountResponse struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	EmailConfirmed   bool   `json:"email_confirmed"`
	TwoFactorEnabled bool   `json:"two_factor_enabled"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
