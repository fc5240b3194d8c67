package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/accountauth"
)

type daemonConfig struct {
	Addr            string
	AppEnv          string
	RedisAddr       string
	RedisPassword   string
	DatabaseURL     string
	AllowedOrigins  []string
	TrustProxy      bool
	PurgeSchedule   string
	ShutdownTimeout time.Duration

	SendGridAPIKey string
	MailFrom       string
	MailFromName   string
	MailSandbox    bool

	Engine accountauth.Config
}

func (c daemonConfig) production() bool {
	return c.AppEnv == "production" || c.AppEnv == "prod"
}

// loadConfig reads the daemon settings from the environment.
func loadConfig(getenv func(string) string) (daemonConfig, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := daemonConfig{
		Addr:           env("HTTP_ADDR", ":8080"),
		AppEnv:         strings.ToLower(env("APP_ENV", "development")),
		RedisAddr:      env("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getenv("REDIS_PASSWORD"),
		DatabaseURL:    env("DATABASE_URL", ""),
		AllowedOrigins: splitList(env("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		PurgeSchedule:  env("PURGE_SCHEDULE", "0 3 * * *"),
		SendGridAPIKey: getenv("SENDGRID_API_KEY"),
		MailFrom:       env("MAIL_FROM", "no-reply@localhost"),
		MailFromName:   env("MAIL_FROM_NAME", "Account Service"),
	}

	var err error
	if cfg.TrustProxy, err = parseBool(env("TRUST_PROXY", "false")); err != nil {
		return cfg, fmt.Errorf("TRUST_PROXY: %w", err)
	}
	if cfg.MailSandbox, err = parseBool(env("SENDGRID_SANDBOX", "false")); err != nil {
		return cfg, fmt.Errorf("SENDGRID_SANDBOX: %w", err)
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(env("SHUTDOWN_TIMEOUT", "10s")); err != nil {
		return cfg, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
	}

	ec := accountauth.DefaultConfig()
	ec.JWT.Secret = getenv("JWT_SECRET_KEY")
	ec.JWT.Issuer = env("JWT_ISSUER", ec.JWT.Issuer)
	if ec.JWT.AccessTTL, err = time.ParseDuration(env("JWT_ACCESS_TTL", ec.JWT.AccessTTL.String())); err != nil {
		return cfg, fmt.Errorf("JWT_ACCESS_TTL: %w", err)
	}
	if ec.JWT.RefreshTTL, err = time.ParseDuration(env("JWT_REFRESH_TTL", ec.JWT.RefreshTTL.String())); err != nil {
		return cfg, fmt.Errorf("JWT_REFRESH_TTL: %w", err)
	}
	if v := getenv("BCRYPT_COST"); v != "" {
		if ec.Password.BcryptCost, err = strconv.Atoi(v); err != nil {
			return cfg, fmt.Errorf("BCRYPT_COST: %w", err)
		}
	}
	if ec.Audit.Enabled, err = parseBool(env("AUDIT_ENABLED", "true")); err != nil {
		return cfg, fmt.Errorf("AUDIT_ENABLED: %w", err)
	}
	ec.Security.ProductionMode = cfg.production()
	cfg.Engine = ec

	if cfg.production() && cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required in production")
	}
	return cfg, nil
}

func parseBool(v string) (bool, error) {
	return strconv.ParseBool(strings.ToLower(v))
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
