package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	ptotp "github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/admin-auth/pkg/account"
	"github.com/tendant/admin-auth/pkg/auth"
	"github.com/tendant/admin-auth/pkg/notice"
	"github.com/tendant/admin-auth/pkg/notification"
	"github.com/tendant/admin-auth/pkg/tokengenerator"
	"github.com/tendant/admin-auth/pkg/totp"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	handler        http.Handler
	repo           *account.InMemoryAccountRepository
	mockNotifier   *notification.MockNotifier
	tokenGenerator *tokengenerator.JwtTokenGenerator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	repo := account.NewInMemoryAccountRepository()
	mockNotifier := &notification.MockNotifier{}

	notificationManager := notification.NewNotificationManager("http://localhost:3000")
	notificationManager.RegisterNotifier(notification.EmailSystem, mockNotifier)
	err := notificationManager.RegisterNotification(notice.EmailConfirmationNotice, notification.EmailSystem,
		notification.NoticeTemplate{Subject: "Confirm Your Email Address", Text: "{{.Link}}"})
	require.NoError(t, err)
	err = notificationManager.RegisterNotification(notice.ForgotPasswordNotice, notification.EmailSystem,
		notification.NoticeTemplate{Subject: "Password Reset Request", Text: "{{.Link}}"})
	require.NoError(t, err)

	tokenGenerator := tokengenerator.NewJwtTokenGenerator("test-secret", "admin-auth", "admin-auth")

	authService := auth.NewAuthService(repo, tokenGenerator, totp.New("admin-auth"), notificationManager,
		auth.WithSubjectSecret("test-secret"),
		auth.WithPasswordHasher(auth.NewBcryptHasher(bcrypt.MinCost)),
	)

	tokenAuth := jwtauth.New("HS256", []byte("test-secret"), nil)
	return &testServer{
		handler:        AuthHandler(NewHandle(authService), tokenAuth),
		repo:           repo,
		mockNotifier:   mockNotifier,
		tokenGenerator: tokenGenerator,
	}
}

func (s *testServer) post(t *testing.T, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func TestPostRegister(t *testing.T) {
	s := newTestServer(t)

	w := s.post(t, "/register", RegisterRequest{Email: "admin@example.com"}, "")
	require.Equal(t, http.StatusCreated, w.Code)

	var resp AccountResponse
	decodeJSON(t, w, &resp)
	assert.Equal(t, "admin@example.com", resp.Email)
	assert.False(t, resp.EmailConfirmed)
	assert.NotEmpty(t, resp.ID)

	// Create-only: a duplicate email is an error, never a resend
	w = s.post(t, "/register", RegisterRequest{Email: "admin@example.com"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// No credential email goes out on register
	assert.Empty(t, s.mockNotifier.SentNotifications)

	w = s.post(t, "/register", RegisterRequest{Email: "not-an-email"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostSendEmail(t *testing.T) {
	s := newTestServer(t)

	w := s.post(t, "/send-email", RegisterRequest{Email: "admin@example.com"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp TokenResponse
	decodeJSON(t, w, &resp)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Len(t, s.mockNotifier.SentNotifications, 1)

	// A second send on the same email is a resend, not an error
	w = s.post(t, "/send-email", RegisterRequest{Email: "admin@example.com"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, s.mockNotifier.SentNotifications, 2)

	w = s.post(t, "/send-email", RegisterRequest{Email: "not-an-email"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostConfirmEmail(t *testing.T) {
	s := newTestServer(t)
	s.post(t, "/send-email", RegisterRequest{Email: "admin@example.com"}, "")

	w := s.post(t, "/confirm-email", ConfirmEmailRequest{Email: "admin@example.com"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp AccountResponse
	decodeJSON(t, w, &resp)
	assert.Equal(t, "admin@example.com", resp.Email)
	assert.True(t, resp.EmailConfirmed)
	assert.NotEmpty(t, resp.ID)

	// Confirming twice fails
	w = s.post(t, "/confirm-email", ConfirmEmailRequest{Email: "admin@example.com"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.post(t, "/confirm-email", ConfirmEmailRequest{Email: "missing@example.com"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostSetPasswordAndLogin(t *testing.T) {
	s := newTestServer(t)
	s.post(t, "/send-email", RegisterRequest{Email: "admin@example.com"}, "")

	w := s.post(t, "/set-password", SetPasswordRequest{
		Email:                "admin@example.com",
		Password:             "Abcd123!",
		PasswordConfirmation: "Abcd123!",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var enrollment auth.TotpEnrollment
	decodeJSON(t, w, &enrollment)
	assert.Contains(t, enrollment.URI, "admin@example.com")
	assert.NotEmpty(t, enrollment.Secret)

	w = s.post(t, "/login", LoginRequest{Email: "admin@example.com", Password: "Abcd123!"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		TokenResponse
		Account AccountResponse `json:"account"`
	}
	decodeJSON(t, w, &resp)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "admin@example.com", resp.Account.Email)

	w = s.post(t, "/login", LoginRequest{Email: "admin@example.com", Password: "wrong"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostSetPasswordRejectsMismatchedConfirmation(t *testing.T) {
	s := newTestServer(t)
	s.post(t, "/send-email", RegisterRequest{Email: "admin@example.com"}, "")

	w := s.post(t, "/set-password", SetPasswordRequest{
		Email:                "admin@example.com",
		Password:             "Abcd123!",
		PasswordConfirmation: "Efgh456!",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPost2faVerifyAndToggle(t *testing.T) {
	s := newTestServer(t)
	s.post(t, "/send-email", RegisterRequest{Email: "admin@example.com"}, "")
	s.post(t, "/set-password", SetPasswordRequest{
		Email:                "admin@example.com",
		Password:             "Abcd123!",
		PasswordConfirmation: "Abcd123!",
	}, "")

	acct, err := s.repo.GetByEmail(context.Background(), "admin@example.com")
	require.NoError(t, err)
	code, err := ptotp.GenerateCode(acct.TwoFactorSecret, time.Now().UTC())
	require.NoError(t, err)

	w := s.post(t, "/2fa/verify", TwoFactorRequest{Email: "admin@example.com", Code: code}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var tokenResp TokenResponse
	decodeJSON(t, w, &tokenResp)
	assert.NotEmpty(t, tokenResp.AccessToken)

	w = s.post(t, "/2fa/verify", TwoFactorRequest{Email: "admin@example.com", Code: "000000"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.post(t, "/2fa/toggle", TwoFactorRequest{Email: "admin@example.com", Code: code}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var msg MessageResponse
	decodeJSON(t, w, &msg)
	assert.Equal(t, "Disabled", msg.Message)
}

func TestPostForgotPasswordFlow(t *testing.T) {
	s := newTestServer(t)
	s.post(t, "/send-email", RegisterRequest{Email: "admin@example.com"}, "")
	s.post(t, "/set-password", SetPasswordRequest{
		Email:                "admin@example.com",
		Password:             "Abcd123!",
		PasswordConfirmation: "Abcd123!",
	}, "")

	w := s.post(t, "/forgot-password", ForgotPasswordRequest{Email: "missing@example.com"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.post(t, "/forgot-password", ForgotPasswordRequest{Email: "admin@example.com"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	sent := s.mockNotifier.SentNotifications
	resetToken := sent[len(sent)-1].Data["Token"]
	require.NotEmpty(t, resetToken)

	w = s.post(t, "/verify-reset-link", VerifyResetLinkRequest{Email: "admin@example.com", Token: resetToken}, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.post(t, "/verify-reset-link", VerifyResetLinkRequest{Email: "admin@example.com", Token: "garbage"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostConfirmForgotPassword(t *testing.T) {
	s := newTestServer(t)
	s.post(t, "/send-email", RegisterRequest{Email: "admin@example.com"}, "")
	s.post(t, "/set-password", SetPasswordRequest{
		Email:                "admin@example.com",
		Password:             "Abcd123!",
		PasswordConfirmation: "Abcd123!",
	}, "")

	// Without a bearer token the guard rejects before the handler runs
	w := s.post(t, "/confirm-forgot-password", ConfirmForgotPasswordRequest{Password: "Efgh456!"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	acct, err := s.repo.GetByEmail(context.Background(), "admin@example.com")
	require.NoError(t, err)
	bearer, _, err := s.tokenGenerator.GenerateToken(acct.ID, acct.Email, 15*time.Minute, "")
	require.NoError(t, err)

	w = s.post(t, "/confirm-forgot-password", ConfirmForgotPasswordRequest{Password: "Efgh456!"}, bearer)
	require.Equal(t, http.StatusOK, w.Code)

	// The new password is live
	w = s.post(t, "/login", LoginRequest{Email: "admin@example.com", Password: "Efgh456!"}, bearer)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.post(t, "/login", LoginRequest{Email: "admin@example.com", Password: "Abcd123!"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMe(t *testing.T) {
	s := newTestServer(t)
	s.post(t, "/send-email", RegisterRequest{Email: "admin@example.com"}, "")

	// Without a bearer token the guard rejects
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	acct, err := s.repo.GetByEmail(context.Background(), "admin@example.com")
	require.NoError(t, err)
	bearer, _, err := s.tokenGenerator.GenerateToken(acct.ID, acct.Email, 15*time.Minute, "")
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+bearer)
	w = httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp AccountResponse
	decodeJSON(t, w, &resp)
	assert.Equal(t, "admin@example.com", resp.Email)
	assert.Equal(t, acct.ID.String(), resp.ID)
	assert.NotContains(t, w.Body.String(), "password")
	assert.NotContains(t, w.Body.String(), "two_factor_secret")
}

type failingAccountRepository struct {
	account.AccountRepository
}

func (failingAccountRepository) GetByEmail(ctx context.Context, email string) (account.Account, error) {
	return account.Account{}, errors.New("connection refused")
}

func TestStoreFailureIsInternalError(t *testing.T) {
	notificationManager := notification.NewNotificationManager("http://localhost:3000")
	tokenGenerator := tokengenerator.NewJwtTokenGenerator("test-secret", "admin-auth", "admin-auth")
	authService := auth.NewAuthService(failingAccountRepository{}, tokenGenerator, totp.New("admin-auth"), notificationManager)
	tokenAuth := jwtauth.New("HS256", []byte("test-secret"), nil)
	handler := AuthHandler(NewHandle(authService), tokenAuth)

	// A store failure must surface as a 500, not a validation 400
	payload, err := json.Marshal(ConfirmEmailRequest{Email: "admin@example.com"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/confirm-email", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal error")
}
