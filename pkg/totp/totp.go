package totp

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTP parameters shared by secret generation, provisioning URIs and
// verification. Verification tolerates one step of clock skew, so a code
// is accepted for the current 30-second window and the immediately
// adjacent window on either side.
const (
	Digits = otp.DigitsSix
	Period = 30
	Skew   = 1
)

// Totp generates shared secrets, builds provisioning URIs and verifies
// 6-digit time-based codes. The issuer is injected configuration, never
// an ambient lookup, so the provider stays deterministic under test.
type Totp struct {
	Issuer string
}

// New creates a Totp provider for the given issuer name
func New(issuer string) *Totp {
	return &Totp{Issuer: issuer}
}

// GenerateSecret generates a new random shared secret for the given
// account label. The secret is uppercased with whitespace stripped.
func (t *Totp) GenerateSecret(accountLabel string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      t.Issuer,
		AccountName: accountLabel,
	})
	if err != nil {
		slog.Error("Failed to generate totp secret", "account", accountLabel, "issuer", t.Issuer, "err", err)
		return "", err
	}
	secret := strings.ToUpper(strings.Join(strings.Fields(key.Secret()), ""))
	slog.Info("Generated new totp secret", "account", accountLabel)
	return secret, nil
}

// ProvisioningURI builds the otpauth:// enrollment URI for the given
// secret and account label, e.g. to render as a QR code.
func (t *Totp) ProvisioningURI(secret, accountLabel string) string {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", t.Issuer)
	v.Set("algorithm", otp.AlgorithmSHA1.String())
	v.Set("digits", Digits.String())
	v.Set("period", fmt.Sprintf("%d", Period))

	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + t.Issuer + ":" + accountLabel,
		RawQuery: v.Encode(),
	}
	return u.String()
}

// Verify reports whether the code matches the TOTP output for the
// current time window, within the configured skew tolerance.
func (t *Totp) Verify(secret, code string) bool {
	valid, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    Period,
		Skew:      Skew,
		Digits:    Digits,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		slog.Error("Failed to validate totp passcode", "err", err)
		return false
	}
	return valid
}
