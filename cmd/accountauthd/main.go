// Command accountauthd serves the account authentication HTTP API.
//
// Configuration comes from the environment: JWT_SECRET_KEY, REDIS_ADDR,
// DATABASE_URL, APP_ENV, SENDGRID_API_KEY and the optional settings read in
// loadConfig.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	cron "github.com/robfig/cron/v3"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/MrEthical07/accountauth"
	"github.com/MrEthical07/accountauth/internal/accounts"
	"github.com/MrEthical07/accountauth/internal/migrate"
	"github.com/MrEthical07/accountauth/internal/pg"
	"github.com/MrEthical07/accountauth/mail"
	otelexport "github.com/MrEthical07/accountauth/metrics/export/otel"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	if !cfg.production() {
		if dev, derr := zap.NewDevelopment(); derr == nil {
			log = dev
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("accountauthd stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg daemonConfig, log *zap.Logger) error {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis not reachable at startup", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		if err := migrate.Up(ctx, cfg.DatabaseURL); err != nil {
			return err
		}
		p, err := pg.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer p.Close()
		pool = p
	}

	builder := accountauth.New().
		WithConfig(cfg.Engine).
		WithRedis(rdb).
		WithLogger(log).
		WithMailer(newMailer(cfg, log))
	if pool != nil {
		builder = builder.WithPostgres(pool)
	} else {
		log.Warn("DATABASE_URL not set; accounts are kept in process memory")
		builder = builder.WithAccountProvider(accounts.NewMemoryRepo())
	}
	if cfg.Engine.Audit.Enabled {
		builder = builder.WithAuditSink(accountauth.NewZapSink(log.Named("audit")))
	}

	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()
	log.Info("engine ready", engine.SecurityReport().Field())

	// Observed through the global meter provider; a no-op until the host installs an SDK.
	meters, err := otelexport.NewOTelExporter(otel.Meter("accountauthd"), engine)
	if err != nil {
		return err
	}
	defer func() { _ = meters.Close() }()

	scheduler, err := schedulePurge(cfg.PurgeSchedule, engine, log)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	health := func(ctx context.Context) error {
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		if pool != nil {
			return pool.Ping(ctx)
		}
		return nil
	}

	co := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: co.Handler(newServer(engine, log, health).routes(cfg.TrustProxy)),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.String("env", cfg.AppEnv))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newMailer(cfg daemonConfig, log *zap.Logger) mail.Mailer {
	if cfg.SendGridAPIKey == "" {
		return mail.NewLogMailer(log)
	}
	return mail.NewSendGridMailer(mail.SendGridConfig{
		APIKey:      cfg.SendGridAPIKey,
		FromAddress: cfg.MailFrom,
		FromName:    cfg.MailFromName,
		SandboxMode: cfg.MailSandbox,
	}, log)
}

type purger interface {
	PurgeExpiredCodes(ctx context.Context) (int64, error)
}

// schedulePurge registers the expired verification row cleanup.
func schedulePurge(spec string, p purger, log *zap.Logger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		n, err := p.PurgeExpiredCodes(context.Background())
		if err != nil {
			log.Error("scheduled verification code purge failed", zap.Error(err))
			return
		}
		log.Info("purged expired verification codes", zap.Int64("rows", n))
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
