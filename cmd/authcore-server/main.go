package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Br3achBl0ckers/authcore"
	"github.com/Br3achBl0ckers/authcore/internal/config"
	"github.com/Br3achBl0ckers/authcore/internal/httpapi"
	"github.com/Br3achBl0ckers/authcore/internal/logger"
	"github.com/Br3achBl0ckers/authcore/internal/mailer"
	"github.com/Br3achBl0ckers/authcore/internal/repository/postgres"
	"github.com/Br3achBl0ckers/authcore/metrics/export/prometheus"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	lg, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}

	db, err := postgres.Open(ctx, cfg.Database.DSN)
	if err != nil {
		lg.Fatal("failed to connect to database", "error", err)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		lg.Fatal("failed to run migrations", "error", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		lg.Fatal("failed to connect to redis", "error", err, "addr", cfg.Redis.Addr)
	}

	notifier, err := newNotifier(cfg, lg)
	if err != nil {
		lg.Fatal("failed to configure mailer", "error", err)
	}

	engine, err := newEngine(cfg, rdb, postgres.NewAccountRepository(db), notifier, lg)
	if err != nil {
		lg.Fatal("failed to build auth engine", "error", err)
	}
	defer engine.Close()

	var metrics http.Handler
	if cfg.MetricsEnabled {
		metrics = prometheus.NewPrometheusExporter(engine).Handler()
	}

	trusted, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		lg.Fatal("invalid trusted proxies", "error", err)
	}

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.Options{
			Engine:         engine,
			Logger:         lg.Logger,
			Production:     cfg.Production(),
			AllowedOrigins: cfg.CORSAllowedOrigins,
			APIRateLimit:   cfg.APIRateLimit,
			APIRateWindow:  cfg.APIRateWindow,
			Metrics:        metrics,
			RequestLogging: !cfg.Production(),
			TrustedProxies: trusted,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		lg.Info("Starting server on", "address", srv.Addr, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("failed to start server", "error", err)
			stop()
		}
	}()

	logAppVersion()

	<-ctx.Done()
	lg.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("error during server shutdown", "error", err, "address", srv.Addr)
	}

	wg.Wait()
	lg.Info("shutdown complete")
}

// newEngine builds the auth engine. Audit events go to the process log when
// AUDIT_ENABLED is set.
func newEngine(cfg *config.Config, rdb redis.UniversalClient, accounts authcore.AccountStore, notifier authcore.Notifier, lg *logger.Logger) (*authcore.Engine, error) {
	engineCfg, err := cfg.Engine()
	if err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	return authcore.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithAccountStore(accounts).
		WithNotifier(notifier).
		WithAuditSink(authcore.NewSlogSink(lg.Logger)).
		WithLogger(lg.Logger).
		Build()
}

// errSMTPRequired is returned in production without SMTP_HOST: the log
// notifier would write OTPs and token links to the log.
var errSMTPRequired = errors.New("SMTP_HOST must be set when APP_ENV=production")

func newNotifier(cfg *config.Config, lg *logger.Logger) (authcore.Notifier, error) {
	if cfg.SMTP.Host == "" {
		if cfg.Production() {
			return nil, errSMTPRequired
		}
		lg.Warn("SMTP_HOST is not set, outgoing mail is written to the log")
		return mailer.NewLog(lg.Logger), nil
	}
	smtp, err := mailer.NewSMTP(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		Timeout:  15 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return smtp, nil
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
