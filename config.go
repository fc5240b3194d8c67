package accountauth

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/accountauth/blacklist"
	"github.com/MrEthical07/accountauth/internal/rate"
	"github.com/MrEthical07/accountauth/jwt"
	"github.com/MrEthical07/accountauth/password"
	"github.com/MrEthical07/accountauth/verification"
)

// Config is the full engine configuration. It is copied by the builder and
// read-only afterwards.
type Config struct {
	JWT          JWTConfig
	Verification VerificationConfig
	Blacklist    BlacklistConfig
	RateLimit    RateLimitConfig
	Password     PasswordConfig
	Security     SecurityConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures token signing. Secret is an HS256 key supplied out of
// band and checked by jwt.ValidateSecret.
type JWTConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration
}

/*
====================================
VERIFICATION CONFIG
====================================
*/

// VerificationConfig configures verification codes and the failover store.
type VerificationConfig struct {
	CodeTTL          time.Duration
	CodeLength       int
	RedisPrefix      string
	PrimaryTimeout   time.Duration
	SecondaryTimeout time.Duration
}

/*
====================================
BLACKLIST CONFIG
====================================
*/

type BlacklistConfig struct {
	RedisPrefix string
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateRule is a fixed-window budget. A zero Limit disables the rule.
type RateRule struct {
	Limit  int
	Window time.Duration
}

// RateLimitConfig holds per-action budgets. Per-IP rules are skipped for
// requests without WithClientIP.
type RateLimitConfig struct {
	Enabled             bool
	EmailSendPerIP      RateRule
	EmailVerifyPerEmail RateRule
	SignupPerIP         RateRule
	LoginPerIP          RateRule
	LoginPerEmail       RateRule
	RefreshPerIP        RateRule
}

func (c RateLimitConfig) rules() map[rate.Bucket]rate.Rule {
	if !c.Enabled {
		return nil
	}
	conv := func(r RateRule) rate.Rule { return rate.Rule{Limit: r.Limit, Window: r.Window} }
	return map[rate.Bucket]rate.Rule{
		rate.EmailSend:    conv(c.EmailSendPerIP),
		rate.EmailVerify:  conv(c.EmailVerifyPerEmail),
		rate.Signup:       conv(c.SignupPerIP),
		rate.Login:        conv(c.LoginPerIP),
		rate.LoginByEmail: conv(c.LoginPerEmail),
		rate.Refresh:      conv(c.RefreshPerIP),
	}
}

/*
====================================
PASSWORD CONFIG
====================================
*/

type PasswordConfig struct {
	BcryptCost int
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds deployment-wide policy.
type SecurityConfig struct {
	// ProductionMode makes every secret policy violation fatal. Outside it,
	// weak-pattern secrets are logged and accepted.
	ProductionMode bool
	// MinResponseTime pads Login so that unknown accounts and wrong
	// passwords take the same time.
	MinResponseTime time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns development defaults. JWT.Secret is left empty and
// must be provided.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			Issuer:     "accountauth",
			AccessTTL:  time.Hour,
			RefreshTTL: 7 * 24 * time.Hour,
			Leeway:     0,
		},
		Verification: VerificationConfig{
			CodeTTL:          verification.DefaultTTL,
			CodeLength:       6,
			RedisPrefix:      verification.DefaultRedisPrefix,
			PrimaryTimeout:   verification.DefaultPrimaryTimeout,
			SecondaryTimeout: verification.DefaultSecondaryTimeout,
		},
		Blacklist: BlacklistConfig{
			RedisPrefix: blacklist.DefaultPrefix,
		},
		RateLimit: RateLimitConfig{
			Enabled:             true,
			EmailSendPerIP:      RateRule{Limit: 3, Window: 5 * time.Minute},
			EmailVerifyPerEmail: RateRule{Limit: 5, Window: 10 * time.Minute},
			SignupPerIP:         RateRule{Limit: 10, Window: time.Hour},
			LoginPerIP:          RateRule{Limit: 5, Window: 15 * time.Minute},
			LoginPerEmail:       RateRule{Limit: 3, Window: 15 * time.Minute},
			RefreshPerIP:        RateRule{Limit: 10, Window: 5 * time.Minute},
		},
		Password: PasswordConfig{
			BcryptCost: password.DefaultCost,
		},
		Security: SecurityConfig{
			MinResponseTime: 200 * time.Millisecond,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks cfg and returns a *ConfigError for the first problem.
func (c *Config) Validate() error {
	return c.validate(zap.NewNop())
}

func (c *Config) validate(log *zap.Logger) error {
	if err := jwt.ValidateSecret(c.JWT.Secret); err != nil {
		if !errors.Is(err, jwt.ErrSecretWeak) || c.Security.ProductionMode {
			return configError("JWT.Secret", err)
		}
		log.Warn("signing secret matches a weak pattern; accepted outside production mode")
	}
	if strings.TrimSpace(c.JWT.Issuer) == "" {
		return configError("JWT.Issuer", errors.New("must not be empty"))
	}
	if c.JWT.AccessTTL <= 0 {
		return configError("JWT.AccessTTL", errors.New("must be > 0"))
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return configError("JWT.RefreshTTL", errors.New("must be greater than AccessTTL"))
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > time.Minute {
		return configError("JWT.Leeway", errors.New("must be within [0, 1m]"))
	}

	if c.Verification.CodeTTL != verification.DefaultTTL {
		return configError("Verification.CodeTTL", errors.New("verification codes live exactly 5m"))
	}
	if c.Verification.CodeLength < 6 || c.Verification.CodeLength > 10 {
		return configError("Verification.CodeLength", errors.New("must be between 6 and 10"))
	}
	if c.Verification.RedisPrefix == "" {
		return configError("Verification.RedisPrefix", errors.New("must not be empty"))
	}
	if c.Verification.PrimaryTimeout <= 0 || c.Verification.SecondaryTimeout <= 0 {
		return configError("Verification.Timeouts", errors.New("must be > 0"))
	}

	if c.Blacklist.RedisPrefix == "" {
		return configError("Blacklist.RedisPrefix", errors.New("must not be empty"))
	}

	if c.RateLimit.Enabled {
		for name, r := range map[string]RateRule{
			"EmailSendPerIP":      c.RateLimit.EmailSendPerIP,
			"EmailVerifyPerEmail": c.RateLimit.EmailVerifyPerEmail,
			"SignupPerIP":         c.RateLimit.SignupPerIP,
			"LoginPerIP":          c.RateLimit.LoginPerIP,
			"LoginPerEmail":       c.RateLimit.LoginPerEmail,
			"RefreshPerIP":        c.RateLimit.RefreshPerIP,
		} {
			if r.Limit < 0 || (r.Limit > 0 && r.Window <= 0) {
				return configError("RateLimit."+name, errors.New("needs Limit >= 0 and a positive Window"))
			}
		}
	}

	if c.Password.BcryptCost < 4 || c.Password.BcryptCost > 31 {
		return configError("Password.BcryptCost", errors.New("must be between 4 and 31"))
	}

	if c.Security.MinResponseTime < 0 {
		return configError("Security.MinResponseTime", errors.New("must be >= 0"))
	}
	if c.Security.ProductionMode {
		if !c.RateLimit.Enabled {
			return configError("RateLimit.Enabled", errors.New("ProductionMode requires rate limiting"))
		}
		if c.Password.BcryptCost < password.DefaultCost {
			return configError("Password.BcryptCost", errors.New("ProductionMode requires cost >= 10"))
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return configError("Audit.BufferSize", errors.New("must be > 0 when audit is enabled"))
	}

	return nil
}
