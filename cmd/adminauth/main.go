package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/jwtauth/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/admin-auth/pkg/account"
	"github.com/tendant/admin-auth/pkg/auth"
	"github.com/tendant/admin-auth/pkg/auth/api"
	"github.com/tendant/admin-auth/pkg/config"
	"github.com/tendant/admin-auth/pkg/notice"
	"github.com/tendant/admin-auth/pkg/tokengenerator"
	"github.com/tendant/admin-auth/pkg/totp"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"
)

type Config struct {
	ServerConfig app.AppConfig
	AppConfig    config.AppConfig
	DbConfig     config.DbConfig
	JwtConfig    config.JwtConfig
	EmailConfig  config.EmailConfig
}

func (c Config) toDbConfig() dbutils.DbConfig {
	return dbutils.DbConfig{
		Host:     c.DbConfig.Host,
		Port:     c.DbConfig.Port,
		Database: c.DbConfig.Database,
		User:     c.DbConfig.User,
		Password: c.DbConfig.Password,
	}
}

func main() {
	cfg := Config{}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed reading configuration from env", "err", err)
		os.Exit(-1)
	}

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	dbConfig := cfg.toDbConfig()
	pool, err := dbutils.NewDbPool(context.Background(), dbConfig)
	if err != nil {
		slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User)
		os.Exit(-1)
	}

	notificationManager, err := notice.NewNotificationManager(cfg.AppConfig.BaseUrl, cfg.EmailConfig.ToSMTPConfig())
	if err != nil {
		slog.Error("Failed creating notification manager", "err", err)
		os.Exit(-1)
	}

	accessTokenExpiry, err := cfg.JwtConfig.ParseAccessTokenExpiry()
	if err != nil {
		slog.Error("Invalid ACCESS_TOKEN_EXPIRY", "err", err)
		os.Exit(-1)
	}
	resetTokenExpiry, err := cfg.JwtConfig.ParseResetTokenExpiry()
	if err != nil {
		slog.Error("Invalid RESET_TOKEN_EXPIRY", "err", err)
		os.Exit(-1)
	}

	repo := account.NewPostgresAccountRepository(pool)
	tokenGenerator := tokengenerator.NewJwtTokenGenerator(cfg.JwtConfig.Secret, cfg.JwtConfig.Issuer, cfg.JwtConfig.Audience)
	totpProvider := totp.New(cfg.AppConfig.Name)

	authService := auth.NewAuthService(repo, tokenGenerator, totpProvider, notificationManager,
		auth.WithSubjectSecret(cfg.JwtConfig.Secret),
		auth.WithPasswordHasher(auth.NewBcryptHasher(cfg.AppConfig.BcryptCost)),
		auth.WithAccessTokenExpiry(accessTokenExpiry),
		auth.WithResetTokenExpiry(resetTokenExpiry),
	)

	tokenAuth := jwtauth.New("HS256", []byte(cfg.JwtConfig.Secret), nil)
	handle := api.NewHandle(authService)

	server.R.Mount("/auth", api.AuthHandler(handle, tokenAuth))

	server.Run()
}
