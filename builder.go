package accountauth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/accountauth/blacklist"
	"github.com/MrEthical07/accountauth/internal/accounts"
	"github.com/MrEthical07/accountauth/internal/audit"
	"github.com/MrEthical07/accountauth/internal/pg"
	"github.com/MrEthical07/accountauth/internal/rate"
	"github.com/MrEthical07/accountauth/jwt"
	"github.com/MrEthical07/accountauth/mail"
	"github.com/MrEthical07/accountauth/password"
	"github.com/MrEthical07/accountauth/refresh"
	"github.com/MrEthical07/accountauth/verification"
)

const dummyPassword = "Dummy-Password-1!"

// Builder assembles an Engine. A Builder can be used for one Build only.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	pool      pg.Pool
	codes     verification.Store
	accounts  AccountProvider
	mailer    mail.Mailer
	log       *zap.Logger
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the client for the primary verification store, the
// blacklist, the refresh registry and the rate limiter. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithPostgres sets the pool for the secondary verification store and, unless
// WithAccountProvider is used, the account repository.
func (b *Builder) WithPostgres(pool pg.Pool) *Builder {
	b.pool = pool
	return b
}

// WithVerificationStore replaces the Redis/Postgres failover store.
func (b *Builder) WithVerificationStore(store verification.Store) *Builder {
	b.codes = store
	return b
}

func (b *Builder) WithAccountProvider(p AccountProvider) *Builder {
	b.accounts = p
	return b
}

func (b *Builder) WithMailer(m mail.Mailer) *Builder {
	b.mailer = m
	return b
}

func (b *Builder) WithLogger(log *zap.Logger) *Builder {
	b.log = log
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the engine. Configuration
// problems are returned as *ConfigError before any backend is contacted.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	log := b.log
	if log == nil {
		log = zap.NewNop()
	}
	cfg := b.config

	if err := cfg.validate(log); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, configError("Redis", errors.New("client required"))
	}
	if b.accounts == nil && b.pool == nil {
		return nil, configError("Accounts", errors.New("account provider or postgres pool required"))
	}
	if b.codes == nil && b.pool == nil && cfg.Security.ProductionMode {
		return nil, configError("Verification", errors.New("ProductionMode requires a durable secondary store"))
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	codec, err := jwt.NewCodec(jwt.Config{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		Leeway: cfg.JWT.Leeway,
		Now:    now,
	})
	if err != nil {
		return nil, configError("JWT", err)
	}

	hasher, err := password.NewBcrypt(cfg.Password.BcryptCost)
	if err != nil {
		return nil, configError("Password.BcryptCost", err)
	}
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:    cfg,
		log:       log.Named("accountauth"),
		codec:     codec,
		blacklist: blacklist.NewRedisRegistry(b.redis, cfg.Blacklist.RedisPrefix),
		refresh:   refresh.NewRedisRegistry(b.redis),
		hasher:    hasher,
		dummyHash: dummyHash,
		metrics:   NewMetrics(cfg.Metrics),
		now:       now,
	}

	if rules := cfg.RateLimit.rules(); rules != nil {
		engine.limiter = rate.New(b.redis, rules)
	}

	engine.accounts = b.accounts
	if engine.accounts == nil {
		engine.accounts = accounts.NewRepo(b.pool)
	}

	engine.mailer = b.mailer
	if engine.mailer == nil {
		engine.mailer = mail.NewLogMailer(log)
	}

	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	engine.codes = b.codes
	if engine.codes == nil {
		engine.codes = b.failoverStore(engine, log)
	}

	b.built = true
	return engine, nil
}

func (b *Builder) failoverStore(engine *Engine, log *zap.Logger) *verification.FailoverStore {
	cfg := b.config.Verification

	primary := verification.NewRedisStore(b.redis,
		verification.WithRedisPrefix(cfg.RedisPrefix),
		verification.WithRedisTTL(cfg.CodeTTL))

	var secondary verification.Store
	if b.pool != nil {
		pgStore := verification.NewPostgresStore(b.pool, cfg.CodeTTL)
		engine.purger = pgStore
		secondary = pgStore
	} else {
		log.Warn("no postgres pool configured; verification codes fall back to process memory")
		secondary = verification.NewMemoryStore(cfg.CodeTTL)
	}

	return verification.NewFailoverStore(primary, secondary, verification.FailoverConfig{
		PrimaryTimeout:   cfg.PrimaryTimeout,
		SecondaryTimeout: cfg.SecondaryTimeout,
		Logger:           log,
		OnFailover: func(string) {
			engine.metricInc(MetricVerificationFailover)
		},
		OnStorageUnavailable: func(op string) {
			engine.metricInc(MetricVerificationStorageUnavailable)
			engine.emitAudit(context.Background(), AuditEvent{
				Type:     audit.EventStorageUnavailable,
				Metadata: map[string]string{"op": op},
			})
		},
	})
}
