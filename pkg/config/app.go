package config

// AppConfig holds application-level configuration. Name is the issuer
// shown in authenticator apps; BaseUrl is the frontend links in outbound
// emails point at.
type AppConfig struct {
	Name       string `env:"APP_NAME" env-default:"admin-auth"`
	BaseUrl    string `env:"APP_BASE_URL" env-default:"http://localhost:3000"`
	BcryptCost int    `env:"BCRYPT_COST" env-default:"10"`
}
