package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/jinzhu/copier"
	"github.com/tendant/admin-auth/pkg/account"
	"github.com/tendant/admin-auth/pkg/auth"
)

// AuthHandler returns a http.Handler for the auth API. The
// confirm-forgot-password route sits behind the bearer guard: the
// engine trusts that signature and expiry were verified before it runs.
func AuthHandler(h *Handle, tokenAuth *jwtauth.JWTAuth) http.Handler {
	r := chi.NewRouter()

	r.Post("/register", h.PostRegister)
	r.Post("/send-email", h.PostSendEmail)
	r.Post("/confirm-email", h.PostConfirmEmail)
	r.Post("/set-password", h.PostSetPassword)
	r.Post("/login", h.PostLogin)
	r.Post("/2fa/verify", h.Post2faVerify)
	r.Post("/2fa/toggle", h.Post2faToggle)
	r.Post("/forgot-password", h.PostForgotPassword)
	r.Post("/verify-reset-link", h.PostVerifyResetLink)

	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(tokenAuth))
		r.Use(jwtauth.Authenticator(tokenAuth))
		r.Post("/confirm-forgot-password", h.PostConfirmForgotPassword)
		r.Get("/me", h.GetMe)
	})

	return r
}

type Handle struct {
	authService *auth.AuthService
}

// NewHandle creates a new Handle
func NewHandle(authService *auth.AuthService) *Handle {
	return &Handle{
		authService: authService,
	}
}

// Register a new admin account. Create-only: an existing email is an
// error, never a resend.
// (POST /register)
func (h *Handle) PostRegister(w http.ResponseWriter, r *http.Request) {
	data := RegisterRequest{}
	if !decodeAndValidate(w, r, &data) {
		return
	}

	acct, err := h.authService.Register(r.Context(), data.Email)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toAccountResponse(acct))
}

// Send (or resend) the credential email with the confirmation link,
// creating the account when absent
// (POST /send-email)
func (h *Handle) PostSendEmail(w http.ResponseWriter, r *http.Request) {
	data := RegisterRequest{}
	if !decodeAndValidate(w, r, &data) {
		return
	}

	token, err := h.authService.SendCredentialEmail(r.Context(), data.Email)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.JSON(w, r, TokenResponse{AccessToken: token})
}

// Confirm the account email
// (POST /confirm-email)
func (h *Handle) PostConfirmEmail(w http.ResponseWriter, r *http.Request) {
	data := ConfirmEmailRequest{}
	if !decodeAndValidate(w, r, &data) {
		return
	}

	acct, err := h.authService.ConfirmEmail(r.Context(), data.Email)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.JSON(w, r, toAccountResponse(acct))
}

// Set the account password and return the TOTP enrollment URI
// (POST /set-password)
func (h *Handle) PostSetPassword(w http.ResponseWriter, r *http.Request) {
	data := SetPasswordRequest{}
	if !decodeAndValidate(w, r, &data) {
		return
	}

	enrollment, err := h.authService.SetPassword(r.Context(), data.Email, data.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.JSON(w, r, enrollment)
}

// Log in with email and password
// (POST /login)
func (h *Handle) PostLogin(w http.ResponseWriter, r *http.Request) {
	data := LoginRequest{}
	if !decodeAndValidate(w, r, &data) {
		return
	}

	acct, err := h.authService.Login(r.Context(), data.Email, data.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	token, expiresAt, err := h.authService.CreateToken(acct)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.JSON(w, r, struct {
		TokenResponse
		Account AccountResponse `json:"account"`
	}{
		TokenResponse: TokenResponse{AccessToken: token, ExpiresAt: expiresAt.Unix()},
		Account:       toAccountResponse(acct),
	})
}

// Verify a 2FA code and issue a fresh login token
// (POST /2fa/verify)
func (h *Handle) Post2faVerify(w http.ResponseWriter, r *http.Request) {
	data := TwoFactorRequest{}
	if !decodeAndValidate(w, r, &data) {
		return
	}

	token, err := h.authService.VerifyTwoFactor(r.Context(), data.Email, data.Code)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.JSON(w, r, TokenResponse{AccessToken: token})
}

// Toggle 2FA after a successful code check
// (POST /2fa/toggle)
func (h *Handle) Post2faToggle(w http.ResponseWriter, r *http.Request) {
	data := TwoFactorRequest{}
	if !decodeAndValidate(w, r, &data) {
		return
	}

	state, err := h.authService.ToggleTwoFactor(r.Context(), data.Email, data.Code)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.JSON(w, r, MessageResponse{Message: state})
}

// Send a password reset link
// (POST /forgot-password)
func (h *Handle) PostForgotPassword(w http.ResponseWriter, r *http.Request) {
	data := ForgotPasswordRequest{}
	if !decodeAndValidate(w, r, &data) {
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), data.Email); err != nil {
		respondError(w, r, err)
		return
	}

	render.JSON(w, r, MessageResponse{Message: "Please check your email to reset password"})
}

// Check whether a reset link is still valid for the account
// (POST /verify-reset-link)
func (h *Handle) PostVerifyResetLink(w http.ResponseWriter, r *http.Request) {
	data := VerifyResetLinkRequest{}
	if !decodeAndValidate(w, r, &data) {
		return
	}

	if err := h.authService.CheckResetLinkExpiry(r.Context(), data.Email, data.Token); err != nil {
		respondError(w, r, err)
		return
	}

	render.JSON(w, r, MessageResponse{Message: "Success"})
}

// Overwrite the password after a verified reset link. The email comes
// from the bearer token claims, never from the body.
// (POST /confirm-forgot-password)
func (h *Handle) PostConfirmForgotPassword(w http.ResponseWriter, r *http.Request) {
	data := ConfirmForgotPasswordRequest{}
	if !decodeAndValidate(w, r, &data) {
		return
	}

	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, MessageResponse{Message: "invalid bearer token"})
		return
	}
	email, _ := claims["email"].(string)
	if email == "" {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, MessageResponse{Message: "invalid bearer token"})
		return
	}

	if err := h.authService.ConfirmForgotPassword(r.Context(), email, data.Password); err != nil {
		respondError(w, r, err)
		return
	}

	render.JSON(w, r, MessageResponse{Message: "Success"})
}

// Return the account of the authenticated caller
// (GET /me)
func (h *Handle) GetMe(w http.ResponseWriter, r *http.Request) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, MessageResponse{Message: "invalid bearer token"})
		return
	}
	email, _ := claims["email"].(string)
	if email == "" {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, MessageResponse{Message: "invalid bearer token"})
		return
	}

	acct, err := h.authService.Me(r.Context(), email)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.JSON(w, r, toAccountResponse(acct))
}

type validator interface {
	Validate() error
}

// decodeAndValidate parses the JSON body and enforces the payload
// shape. Shape failures never reach the lifecycle engine.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, data validator) bool {
	if err := render.DecodeJSON(r.Body, data); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, MessageResponse{Message: "unable to parse body"})
		return false
	}
	if err := data.Validate(); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, MessageResponse{Message: err.Error()})
		return false
	}
	return true
}

// respondError maps engine sentinels to a status plus a fixed message.
// Anything unrecognized is an internal failure and stays opaque.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrAlreadyConfirmed),
		errors.Is(err, auth.ErrTwoFactorDisabled),
		errors.Is(err, auth.ErrInvalidCode),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrUserAlreadyExists):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, MessageResponse{Message: err.Error()})
	case errors.Is(err, auth.ErrEmailNotRegistered),
		errors.Is(err, auth.ErrUserDoesNotExist),
		errors.Is(err, auth.ErrResetLinkExpired):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, MessageResponse{Message: err.Error()})
	default:
		slog.Error("Unexpected error handling auth request", "err", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, MessageResponse{Message: "internal error"})
	}
}

func toAccountResponse(acct account.Account) AccountResponse {
	resp := AccountResponse{}
	if err := copier.Copy(&resp, &acct); err != nil {
		slog.Error("Failed to map account response", "err", err)
	}
	resp.ID = acct.ID.String()
	return resp
}
