// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"fmt"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Auth     AuthConfig
	SMTP     SMTPConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	Environment string // development, production
	ClientURL   string // Base URL of the frontend, used in reset links
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

// AuthConfig holds the token signing secret and the expiry policies of
// the three token kinds.
type AuthConfig struct { //nolint:govet // fieldalignment not critical for config structs
	JWTSecret       string
	SessionTTL      time.Duration
	ResetTTL        time.Duration
	VerificationTTL time.Duration
	CookieName      string
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

// CookieSecure reports whether session cookies must carry the Secure
// attribute. Mirrors the original NODE_ENV=production switch.
func (c *Config) CookieSecure() bool {
	return c.Server.Environment == "production"
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt-secret is required")
	}
	if c.Server.ClientURL == "" {
		return fmt.Errorf("client-url is required")
	}
	return nil
}

func NewFromCLI(cmd *cli.Command) *Config {
	return &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			Environment: cmd.String("environment"),
			ClientURL:   cmd.String("client-url"),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		Auth: AuthConfig{
			JWTSecret:       cmd.String("jwt-secret"),
			SessionTTL:      time.Duration(cmd.Int("session-ttl")) * time.Hour,
			ResetTTL:        time.Duration(cmd.Int("reset-ttl")) * time.Minute,
			VerificationTTL: time.Duration(cmd.Int("verification-ttl")) * time.Hour,
			CookieName:      cmd.String("cookie-name"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
		},
	}
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "environment",
			Value:   "development",
			Usage:   "Runtime environment (development, production)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ENVIRONMENT"), toml.TOML("server.environment", configFile)),
		},
		&cli.StringFlag{
			Name:    "client-url",
			Value:   "http://localhost:3000",
			Usage:   "Frontend base URL used in password reset links",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CLIENT_URL"), toml.TOML("server.client_url", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/auth.db",
			Usage:   "Database DSN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		&cli.StringFlag{
			Name:    "jwt-secret",
			Usage:   "Secret for signing session and reset tokens",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_SECRET"), toml.TOML("auth.jwt_secret", configFile)),
		},
		&cli.IntFlag{
			Name:    "session-ttl",
			Value:   168, // 7 days
			Usage:   "Session token lifetime in hours",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_TTL"), toml.TOML("auth.session_ttl", configFile)),
		},
		&cli.IntFlag{
			Name:    "reset-ttl",
			Value:   60,
			Usage:   "Password reset token lifetime in minutes",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RESET_TTL"), toml.TOML("auth.reset_ttl", configFile)),
		},
		&cli.IntFlag{
			Name:    "verification-ttl",
			Value:   24,
			Usage:   "Email verification code lifetime in hours",
			Sources: cli.NewValueSourceChain(cli.EnvVar("VERIFICATION_TTL"), toml.TOML("auth.verification_ttl", configFile)),
		},
		&cli.StringFlag{
			Name:    "cookie-name",
			Value:   "token",
			Usage:   "Session cookie name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("COOKIE_NAME"), toml.TOML("auth.cookie_name", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP server host",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "Sender address for outgoing mail",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "Auth App",
			Usage:   "Sender display name for outgoing mail",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("smtp.tls", configFile)),
		},
	}
}
