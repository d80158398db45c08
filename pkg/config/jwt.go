package config

import "time"

// JwtConfig holds token signing configuration. The secret doubles as
// the server-side component of the reset-token subject binding.
type JwtConfig struct {
	Secret            string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
	Issuer            string `env:"JWT_ISSUER" env-default:"admin-auth"`
	Audience          string `env:"JWT_AUDIENCE" env-default:"admin-auth"`
	AccessTokenExpiry string `env:"ACCESS_TOKEN_EXPIRY" env-default:"15m"`
	ResetTokenExpiry  string `env:"RESET_TOKEN_EXPIRY" env-default:"10m"`
}

// ParseAccessTokenExpiry parses the access token expiry duration
func (j JwtConfig) ParseAccessTokenExpiry() (time.Duration, error) {
	return time.ParseDuration(j.AccessTokenExpiry)
}

// ParseResetTokenExpiry parses the reset token expiry duration
func (j JwtConfig) ParseResetTokenExpiry() (time.Duration, error) {
	return time.ParseDuration(j.ResetTokenExpiry)
}
