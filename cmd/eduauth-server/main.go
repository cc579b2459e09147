// Command eduauth-server runs the marketplace authentication API.
//
// Configuration comes from defaults, then .env, then EDUAUTH_* environment
// variables, then flags. With -dev it needs no external services: Redis and the
// account store run in-process and an admin account is seeded.
//
// Run:
//
//	go run ./cmd/eduauth-server -dev
//
// Then:
//
//	curl -i -X POST localhost:8080/api/auth/login \
//	  -H 'Content-Type: application/json' \
//	  -d '{"email":"admin@example.com","password":"correct-horse-battery"}'
//
//	curl -i localhost:8080/api/account/me -H "Authorization: Bearer <ACCESS_TOKEN>"
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	eduAuth "github.com/MrEthical07/eduAuth"
	"github.com/MrEthical07/eduAuth/accounts"
	"github.com/MrEthical07/eduAuth/httpapi"
	"github.com/MrEthical07/eduAuth/internal/envconfig"
	"github.com/MrEthical07/eduAuth/internal/logging"
	otelexport "github.com/MrEthical07/eduAuth/metrics/export/otel"
	promexport "github.com/MrEthical07/eduAuth/metrics/export/prometheus"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
)

const (
	devAdminEmail    = "admin@example.com"
	devAdminPassword = "correct-horse-battery"
	shutdownTimeout  = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "eduauth-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	settings, err := envconfig.Load(envconfig.Source{
		EnvFile: ".env",
		Args:    os.Args[1:],
		Output:  os.Stderr,
	})
	if err != nil {
		return err
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(settings.LogLevel),
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, store, cleanup, err := openBackends(ctx, settings)
	if err != nil {
		return err
	}
	defer cleanup()

	engine, err := eduAuth.New().
		WithConfig(settings.Auth).
		WithRedis(rdb).
		WithAccountStore(store).
		WithLogger(logger).
		WithAuditSink(eduAuth.NewLoggerAuditSink(logger.With("component", "audit"))).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	// Instruments register on the global provider; an embedding process that
	// installs an OTel SDK picks them up.
	otelExporter, err := otelexport.NewExporter(otel.Meter("github.com/MrEthical07/eduAuth"), engine)
	if err != nil {
		return fmt.Errorf("otel exporter: %w", err)
	}
	defer func() { _ = otelExporter.Close() }()

	if settings.Dev {
		if err := seedAdmin(ctx, engine); err != nil {
			return err
		}
		logger.Info(ctx, "dev admin seeded", "email", devAdminEmail)
	}

	srv := &http.Server{
		Addr: settings.HTTPAddr,
		Handler: httpapi.New(engine, logger, httpapi.Options{
			TrustForwarded: settings.TrustForwarded,
			Metrics:        promexport.NewExporter(engine).Handler(),
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "listening", "addr", settings.HTTPAddr, "dev", settings.Dev)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openBackends(ctx context.Context, s envconfig.Settings) (redis.UniversalClient, eduAuth.AccountStore, func(), error) {
	if s.Dev {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		return rdb, accounts.NewMemory(), func() {
			_ = rdb.Close()
			mr.Close()
		}, nil
	}

	db, err := accounts.Open(ctx, s.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := accounts.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, nil, fmt.Errorf("migrate: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     s.RedisAddr,
		Password: s.RedisPassword,
		DB:       s.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		_ = db.Close()
		return nil, nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	return rdb, accounts.NewPostgres(db), func() {
		_ = rdb.Close()
		_ = db.Close()
	}, nil
}

func seedAdmin(ctx context.Context, engine *eduAuth.Engine) error {
	id, err := engine.Register(ctx, devAdminEmail, devAdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if err := engine.ChangeRole(ctx, id.Subject, eduAuth.RoleAdmin); err != nil {
		return fmt.Errorf("seed admin role: %w", err)
	}
	return nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
