package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/Checker-Finance/cardlock/internal/api"
	"github.com/Checker-Finance/cardlock/internal/config"
	"github.com/Checker-Finance/cardlock/internal/lock"
	"github.com/Checker-Finance/cardlock/internal/publisher"
	"github.com/Checker-Finance/cardlock/internal/rate"
	internalsecrets "github.com/Checker-Finance/cardlock/internal/secrets"
	"github.com/Checker-Finance/cardlock/internal/store"
	"github.com/Checker-Finance/cardlock/pkg/credentials"
	"github.com/Checker-Finance/cardlock/pkg/logger"
	"github.com/Checker-Finance/cardlock/pkg/secrets"
	"github.com/Checker-Finance/cardlock/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()
	logg.Infow("starting [cardlock]...", "credentials_source", cfg.CredentialsSource)

	// --- Credential table source ---
	var provider secrets.Provider
	tableCache := secrets.NewCache[credentials.Table](cfg.CacheTTL)
	go tableCache.StartCleaner(ctx, cfg.CleanupFreq)

	if cfg.CredentialsSource == config.SourceAWS {
		awsProvider, err := secrets.NewAWSProvider(ctx, cfg.AWSRegion)
		if err != nil {
			logg.Fatalw("failed to create AWS Secrets Manager provider", "error", err)
		}
		provider = awsProvider
	}

	source, err := internalsecrets.NewSource(cfg, provider, tableCache, logger.Named("secrets"))
	if err != nil {
		logg.Fatalw("invalid credentials source", "error", err)
	}

	loadCtx, cancelLoad := context.WithTimeout(ctx, 15*time.Second)
	table, err := source.Load(loadCtx)
	cancelLoad()
	if err != nil {
		// An unreadable secret leaves an empty table; the service starts degraded.
		logg.Errorw("failed to load credential table", "error", err)
	}

	// --- Store (Redis + optional Postgres audit log) ---
	if cfg.DatabaseURL != "" {
		logg.Info("audit log DSN: ", utils.MaskDSN(cfg.DatabaseURL))
	}
	st, err := store.NewHybrid(store.Options{
		RedisAddr:   cfg.RedisAddr,
		RedisDB:     cfg.RedisDB,
		RedisPass:   cfg.RedisPass,
		RecentLimit: cfg.RecentEventsLimit,
		PGURL:       cfg.DatabaseURL,
		PGPoolConfig: store.PGPoolConfig{
			MaxConns:          int32(cfg.PGMaxConns),
			MinConns:          int32(cfg.PGMinConns),
			MaxConnLifetime:   cfg.PGMaxConnLifetime,
			MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
			HealthCheckPeriod: cfg.PGHealthCheckPeriod,
		},
	}, logger.Named("store"))
	if err != nil {
		logg.Fatalw("failed to init store", "error", err)
	}

	// --- Connect to NATS ---
	nc, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.ServiceName))
	if err != nil {
		logg.Fatalw("failed to connect to NATS", "error", err)
	}

	pub, err := publisher.New(nc, cfg.AccessSubject, cfg.ServiceName, logger.Named("publisher"))
	if err != nil {
		logg.Fatalw("failed to init publisher", "error", err)
	}

	// --- Lock service ---
	svc := lock.NewService(logger.Named("lock"), table, st, pub)
	if svc.Mode() == lock.ModeDegraded {
		logg.Warnw("credential table rejected; all card checks are denied",
			"error", svc.ValidationError())
	}

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BodyLimit:    cfg.HTTPBodyLimit,
	})

	limiter := rate.NewManager(rate.Config{
		PerSecond: float64(cfg.CheckRatePerSecond),
		Burst:     cfg.CheckBurst,
		MaxKeys:   cfg.CheckMaxKeys,
		IdleTTL:   cfg.CheckIdleTTL,
	})
	go limiter.StartJanitor(ctx, time.Minute)
	handler := api.NewAccessHandler(logger.Named("api"), svc, limiter, cfg.KnownReaders)
	api.RegisterRoutes(app, handler, map[string]api.CheckFunc{
		"store": st.HealthCheck,
		"nats":  api.NATSCheck(nc),
	})

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	logg.Infow("[cardlock] running",
		"mode", svc.Mode(),
		"lock_id", table.LockID(),
		"num_authorized_cards", table.NumAuthorizedCards(),
		"nats", cfg.NATSURL,
		"env", cfg.Env)

	<-ctx.Done()
	logg.Info("shutting down [cardlock]...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if err := nc.Drain(); err != nil {
		logg.Warnw("nats.drain_failed", "error", err)
	}
	if err := st.Close(); err != nil {
		logg.Warnw("store.close_failed", "error", err)
	}
}
