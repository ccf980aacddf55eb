// Command loginguard-server serves the /auth API backed by Redis and a
// SQLite credential store.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/handlers"
	"github.com/redis/go-redis/v9"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	loginGuard "github.com/MrEthical07/loginGuard"
	"github.com/MrEthical07/loginGuard/captcha"
	"github.com/MrEthical07/loginGuard/httpapi"
	"github.com/MrEthical07/loginGuard/logging"
	otelexport "github.com/MrEthical07/loginGuard/metrics/export/otel"
	promexport "github.com/MrEthical07/loginGuard/metrics/export/prometheus"
	"github.com/MrEthical07/loginGuard/notify"
	"github.com/MrEthical07/loginGuard/userstore/sqlite"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := loadConfig()

	logger := logging.New(logging.Config{
		Service: "loginguard",
		Version: cfg.Version,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFmt,
	})

	rdb, closeRedis, err := openRedis(cfg, logger)
	if err != nil {
		return err
	}
	defer closeRedis()

	store, err := sqlite.NewStore(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.ApplyMigrations(); err != nil {
		return err
	}

	engineCfg := loginGuard.DefaultConfig()
	engineCfg.Password.Pepper = cfg.Pepper
	engineCfg.Cookie.Secure = cfg.CookieSecure
	engineCfg.Security.ProductionMode = cfg.Env == "prod"
	engineCfg.Audit.Enabled = true

	var verifier loginGuard.CaptchaVerifier
	if cfg.RecaptchaSecret != "" {
		rc, err := captcha.NewRecaptcha(cfg.RecaptchaSecret)
		if err != nil {
			return err
		}
		verifier = rc
	} else {
		logger.Warn("RECAPTCHA_SECRET not set, challenge band disabled")
		engineCfg.Throttle.CaptchaEnabled = false
	}

	builder := loginGuard.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithCredentialStore(store).
		WithLogger(logger).
		WithAuditSink(loginGuard.NewSlogSink(logger))
	if verifier != nil {
		builder = builder.WithCaptchaVerifier(verifier)
	}

	if cfg.SMTPAddr != "" {
		mailer, err := notify.NewSMTPMailer(notify.SMTPConfig{
			Addr:     cfg.SMTPAddr,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		if err != nil {
			return err
		}
		builder = builder.WithMailer(mailer)
	} else {
		logger.Warn("SMTP_ADDR not set, temporary passwords are written to the log")
		builder = builder.WithMailer(notify.NewLogMailer(logger))
	}

	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	report := engine.SecurityReport()
	logger.Info("security posture",
		"production_mode", report.ProductionMode,
		"secure_cookies", report.SecureCookies,
		"pepper_configured", report.PepperConfigured,
		"captcha_enabled", report.CaptchaEnabled,
		"ban_threshold", report.BanThreshold,
		"session_ttl", report.SessionTTL.String(),
	)

	if cfg.OTelEnabled {
		provider := sdkmetric.NewMeterProvider()
		defer func() { _ = provider.Shutdown(context.Background()) }()
		exporter, err := otelexport.NewOTelExporter(provider.Meter("loginguard"), engine)
		if err != nil {
			return err
		}
		defer exporter.Close()
	}

	router := httpapi.NewRouter(httpapi.Config{
		Engine:     engine,
		Logger:     logger,
		Version:    cfg.Version,
		TrustProxy: cfg.TrustProxy,
		Checks: map[string]httpapi.ReadinessCheck{
			"database": store.Ping,
		},
		Metrics: promexport.NewPrometheusExporter(engine).Handler(),
	})

	var handler http.Handler = router
	handler = handlers.CORS(
		handlers.AllowedOrigins(cfg.CORSOrigins),
		handlers.AllowCredentials(),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", engineCfg.CSRF.HeaderName, logging.CorrelationHeader}),
	)(handler)
	handler = handlers.RecoveryHandler(handlers.PrintRecoveryStack(cfg.Env == "dev"))(handler)
	handler = handlers.LoggingHandler(os.Stdout, handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// openRedis connects to REDIS_ADDR, or starts an in-process miniredis when
// it is unset so the server can run without infrastructure in dev.
func openRedis(cfg serverConfig, logger *slog.Logger) (redis.UniversalClient, func(), error) {
	addr := cfg.RedisAddr
	var mr *miniredis.Miniredis
	if addr == "" {
		if cfg.Env == "prod" {
			return nil, nil, errors.New("REDIS_ADDR is required in prod")
		}
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, nil, err
		}
		addr = mr.Addr()
		logger.Warn("REDIS_ADDR not set, using in-process miniredis", "addr", addr)
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{addr},
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
		return nil, nil, err
	}

	return client, func() {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
	}, nil
}
