package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(envMap(map[string]string{"JWT_SECRET_KEY": "secret"}))
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Addr)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, "localhost:6379", cfg.RedisAddr)
	require.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	require.Equal(t, "secret", cfg.Engine.JWT.Secret)
	require.False(t, cfg.Engine.Security.ProductionMode)
	require.True(t, cfg.Engine.Audit.Enabled)
	require.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := loadConfig(envMap(map[string]string{
		"APP_ENV":              "Production",
		"DATABASE_URL":         "postgres://localhost/auth",
		"CORS_ALLOWED_ORIGINS": "https://a.example, https://b.example ,",
		"JWT_ACCESS_TTL":       "30m",
		"BCRYPT_COST":          "12",
		"TRUST_PROXY":          "true",
	}))
	require.NoError(t, err)
	require.True(t, cfg.production())
	require.True(t, cfg.Engine.Security.ProductionMode)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	require.Equal(t, 30*time.Minute, cfg.Engine.JWT.AccessTTL)
	require.Equal(t, 12, cfg.Engine.Password.BcryptCost)
	require.True(t, cfg.TrustProxy)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	for name, env := range map[string]map[string]string{
		"prod without db": {"APP_ENV": "production"},
		"bad ttl":         {"JWT_ACCESS_TTL": "soon"},
		"bad cost":        {"BCRYPT_COST": "high"},
		"bad bool":        {"TRUST_PROXY": "maybe"},
	} {
		_, err := loadConfig(envMap(env))
		require.Error(t, err, name)
	}
}

type countingPurger struct {
	calls chan struct{}
}

func (p *countingPurger) PurgeExpiredCodes(context.Context) (int64, error) {
	p.calls <- struct{}{}
	return 3, nil
}

func TestSchedulePurge(t *testing.T) {
	_, err := schedulePurge("not a schedule", &countingPurger{}, zap.NewNop())
	require.Error(t, err)

	p := &countingPurger{calls: make(chan struct{}, 1)}
	c, err := schedulePurge("@every 1s", p, zap.NewNop())
	require.NoError(t, err)
	c.Start()
	defer c.Stop()

	select {
	case <-p.calls:
	case <-time.After(3 * time.Second):
		t.Fatal("purge job did not run")
	}
}
